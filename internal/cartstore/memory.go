package cartstore

import (
	"context"
	"sync"

	"github.com/mmeshcher/coffee-order-system/internal/model"
)

// MemoryStore хранит корзины в памяти процесса. Используется, когда
// Redis не сконфигурирован, и в тестах.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[int64]model.Cart
}

// NewMemoryStore создаёт пустое хранилище корзин в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: map[int64]model.Cart{}}
}

// Get возвращает корзину пользователя, пустую — если её нет.
func (s *MemoryStore) Get(_ context.Context, userID int64) (model.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.carts[userID], nil
}

// Save сохраняет корзину пользователя.
func (s *MemoryStore) Save(_ context.Context, userID int64, cart model.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = cart
	return nil
}

// Clear удаляет корзину пользователя.
func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}
