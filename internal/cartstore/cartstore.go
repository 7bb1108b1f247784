// Package cartstore содержит хранилища корзин пользователей. Корзина —
// эфемерное состояние сессии: создаётся пустой, уничтожается после
// успешного оформления заказа или явной очистки.
package cartstore

import (
	"context"

	"github.com/mmeshcher/coffee-order-system/internal/model"
)

// Store описывает контракт хранилища корзин. Отсутствующая корзина
// эквивалентна пустой.
type Store interface {
	Get(ctx context.Context, userID int64) (model.Cart, error)
	Save(ctx context.Context, userID int64, cart model.Cart) error
	Clear(ctx context.Context, userID int64) error
}
