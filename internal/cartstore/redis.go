package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/mmeshcher/coffee-order-system/internal/model"
)

const (
	cartKeyPrefix = "coffee:cart:"

	// Брошенные корзины доживают сутки и исчезают сами.
	cartTTL = 24 * time.Hour
)

// RedisStore хранит корзины в Redis в виде JSON по ключу на пользователя.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore создаёт хранилище корзин поверх указанного адреса Redis
// и проверяет соединение.
func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Close закрывает соединение с Redis.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func cartKey(userID int64) string {
	return fmt.Sprintf("%s%d", cartKeyPrefix, userID)
}

// Get возвращает корзину пользователя, пустую — если её нет.
func (s *RedisStore) Get(ctx context.Context, userID int64) (model.Cart, error) {
	data, err := s.client.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Cart{}, nil
		}
		return model.Cart{}, fmt.Errorf("get cart: %w", err)
	}

	var cart model.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return model.Cart{}, fmt.Errorf("unmarshal cart: %w", err)
	}

	return cart, nil
}

// Save сохраняет корзину пользователя.
func (s *RedisStore) Save(ctx context.Context, userID int64, cart model.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := s.client.Set(ctx, cartKey(userID), data, cartTTL).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}

	return nil
}

// Clear удаляет корзину пользователя.
func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
