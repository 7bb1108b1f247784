// Package service реализует бизнес-логику сервиса заказов кофейни.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/coffee-order-system/internal/cart"
	"github.com/mmeshcher/coffee-order-system/internal/cartstore"
	"github.com/mmeshcher/coffee-order-system/internal/model"
	"github.com/mmeshcher/coffee-order-system/internal/notify"
	"github.com/mmeshcher/coffee-order-system/internal/ordercode"
	"github.com/mmeshcher/coffee-order-system/internal/projection"
	"github.com/mmeshcher/coffee-order-system/internal/repository"
)

// ErrUnauthenticated возвращается при попытке оформить заказ без пользователя.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrEmptyCart возвращается при попытке оформить заказ с пустой корзиной.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidCredentials возвращается при неверном логине или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSubmissionFailed возвращается, если заказ не удалось сохранить.
	// Ошибка повторяемая: корзина при этом сохраняется.
	ErrSubmissionFailed = errors.New("order submission failed")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, passwordHash []byte, role model.Role) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	NextDailyCounter(ctx context.Context, dayKey string) (int64, error)
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrderByID(ctx context.Context, id string) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrdersByStatus(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error)
	MarkOrderReady(ctx context.Context, id string) error
	MarkOrderCompleted(ctx context.Context, id string) error
	MarkOrderCancelled(ctx context.Context, id string) error
	AutoCompleteOrder(ctx context.Context, id string) error
	GetOrdersDueAutoComplete(ctx context.Context, readyBefore time.Time, limit int) ([]model.Order, error)
}

// counterSource адаптирует репозиторий к контракту источника счётчиков.
type counterSource struct {
	repo Repository
}

func (c counterSource) Next(ctx context.Context, dayKey string) (int64, error) {
	return c.repo.NextDailyCounter(ctx, dayKey)
}

// Service содержит бизнес-логику сервиса заказов кофейни.
type Service struct {
	repo      Repository
	carts     cartstore.Store
	allocator *ordercode.Allocator
	notifier  *notify.TelegramNotifier
	now       func() time.Time
}

// NewService создаёт сервис с указанным репозиторием, хранилищем корзин
// и необязательным нотификатором персонала.
func NewService(repo Repository, carts cartstore.Store, notifier *notify.TelegramNotifier) *Service {
	return &Service{
		repo:      repo,
		carts:     carts,
		allocator: ordercode.NewAllocator(counterSource{repo: repo}),
		notifier:  notifier,
		now:       time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового покупателя.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, hashed, model.RoleCustomer)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// GetMenu возвращает позиции меню.
func (s *Service) GetMenu(ctx context.Context) ([]model.Product, error) {
	return s.repo.GetProducts(ctx)
}

// GetCart возвращает корзину пользователя.
func (s *Service) GetCart(ctx context.Context, userID int64) (model.Cart, error) {
	return s.carts.Get(ctx, userID)
}

// AddToCart добавляет позицию меню в корзину пользователя.
func (s *Service) AddToCart(ctx context.Context, userID int64, productID string, quantity int64) (model.Cart, error) {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return model.Cart{}, err
	}

	return s.applyCartAction(ctx, userID, cart.AddItem{Product: *p, Quantity: quantity})
}

// RemoveFromCart удаляет позицию из корзины пользователя.
func (s *Service) RemoveFromCart(ctx context.Context, userID int64, productID string) (model.Cart, error) {
	return s.applyCartAction(ctx, userID, cart.RemoveItem{ProductID: productID})
}

// UpdateCartQuantity устанавливает количество позиции в корзине.
// Количество <= 0 удаляет позицию.
func (s *Service) UpdateCartQuantity(ctx context.Context, userID int64, productID string, quantity int64) (model.Cart, error) {
	return s.applyCartAction(ctx, userID, cart.UpdateQuantity{ProductID: productID, Quantity: quantity})
}

// ClearCart очищает корзину пользователя.
func (s *Service) ClearCart(ctx context.Context, userID int64) (model.Cart, error) {
	return s.applyCartAction(ctx, userID, cart.Clear{})
}

func (s *Service) applyCartAction(ctx context.Context, userID int64, action cart.Action) (model.Cart, error) {
	state, err := s.carts.Get(ctx, userID)
	if err != nil {
		return model.Cart{}, err
	}

	state = cart.Apply(state, action)

	if err := s.carts.Save(ctx, userID, state); err != nil {
		return model.Cart{}, err
	}

	return state, nil
}

// SubmitOrder оформляет заказ из корзины пользователя. Предусловия
// проверяются до обращения к счётчику и хранилищу заказов. При ошибке
// сохранения корзина не очищается, чтобы пользователь мог повторить
// оформление без повторного набора позиций. Сгоревшее значение счётчика
// при этом не переиспользуется: откат монотонного счётчика вернул бы
// гонку, ради которой счётчик и существует.
func (s *Service) SubmitOrder(ctx context.Context, userID int64) (*model.Order, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	now := s.now()
	code := s.allocator.Allocate(ctx, now)

	order := &model.Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		FullCode:    code.FullCode,
		DisplayCode: code.DisplayCode,
		Lines:       c.Lines,
		TotalKurus:  c.TotalKurus,
		Status:      model.OrderStatusPending,
		CreatedAt:   now,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionFailed, err)
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		// Заказ уже сохранён; несброшенная корзина не повод его терять.
		return order, nil
	}

	s.notifier.OrderPlaced(order)

	return order, nil
}

// GetOrdersByUser возвращает заказы пользователя, новые первыми.
func (s *Service) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

// GetOrdersByBucket возвращает заказы указанной витринной корзины.
func (s *Service) GetOrdersByBucket(ctx context.Context, bucket projection.Bucket) ([]model.Order, error) {
	var statuses []model.OrderStatus
	switch bucket {
	case projection.BucketCompletedLike:
		statuses = []model.OrderStatus{model.OrderStatusCompleted}
	case projection.BucketCancelled:
		statuses = []model.OrderStatus{model.OrderStatusCancelled}
	default:
		statuses = []model.OrderStatus{model.OrderStatusPending, model.OrderStatusReady}
	}
	return s.repo.GetOrdersByStatus(ctx, statuses)
}

// MarkOrderReady переводит заказ в статус ready и уведомляет персонал.
func (s *Service) MarkOrderReady(ctx context.Context, orderID string) error {
	if err := s.repo.MarkOrderReady(ctx, orderID); err != nil {
		return err
	}

	if o, err := s.repo.GetOrderByID(ctx, orderID); err == nil {
		s.notifier.OrderReady(o)
	}

	return nil
}

// MarkOrderCompleted переводит заказ в статус completed.
func (s *Service) MarkOrderCompleted(ctx context.Context, orderID string) error {
	return s.repo.MarkOrderCompleted(ctx, orderID)
}

// MarkOrderCancelled переводит заказ в статус cancelled.
func (s *Service) MarkOrderCancelled(ctx context.Context, orderID string) error {
	return s.repo.MarkOrderCancelled(ctx, orderID)
}

// StartAutoCompleteSweeper запускает фоновый процесс, переводящий давно
// готовые заказы в completed. Перевод вынесен из путей чтения: побочный
// эффект внутри подписки на изменения провоцировал бы повторный вход.
func (s *Service) StartAutoCompleteSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processAutoCompleteBatch(ctx)
			}
		}
	}()
}

func (s *Service) processAutoCompleteBatch(ctx context.Context) {
	now := s.now()
	orders, err := s.repo.GetOrdersDueAutoComplete(ctx, now.Add(-projection.AutoCompleteAfter), 100)
	if err != nil {
		return
	}

	for _, o := range orders {
		if !projection.AutoCompleteDue(o, now) {
			continue
		}

		// Проигрыш гонки другому процессу не ошибка: перевод уже выполнен.
		_ = s.repo.AutoCompleteOrder(ctx, o.ID)
	}
}
