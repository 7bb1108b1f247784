// Package projection отображает заказы в витринные корзины статусов.
package projection

import (
	"time"

	"github.com/mmeshcher/coffee-order-system/internal/model"
)

// Bucket описывает витринную корзину статусов.
type Bucket string

const (
	// BucketPendingLike объединяет заказы в работе: pending и ready.
	BucketPendingLike Bucket = "pending"
	// BucketCompletedLike содержит выполненные заказы.
	BucketCompletedLike Bucket = "completed"
	// BucketCancelled содержит отменённые заказы.
	BucketCancelled Bucket = "cancelled"
)

// AutoCompleteAfter задаёт срок, после которого готовый заказ считается
// выданным и автоматически переводится в completed.
const AutoCompleteAfter = 60 * time.Minute

// BucketOf возвращает корзину для указанного статуса. Корзины попарно
// не пересекаются и покрывают все статусы.
func BucketOf(status model.OrderStatus) Bucket {
	switch status {
	case model.OrderStatusCompleted:
		return BucketCompletedLike
	case model.OrderStatusCancelled:
		return BucketCancelled
	default:
		return BucketPendingLike
	}
}

// Split раскладывает заказы по корзинам, сохраняя исходный порядок
// внутри каждой корзины.
func Split(orders []model.Order) map[Bucket][]model.Order {
	out := map[Bucket][]model.Order{}
	for _, o := range orders {
		b := BucketOf(o.Status)
		out[b] = append(out[b], o)
	}
	return out
}

// AutoCompleteDue сообщает, пора ли автоматически перевести заказ в
// completed: заказ готов дольше AutoCompleteAfter и перевод ещё не
// выполнялся. Сам перевод выполняет фоновый процесс сервиса; флаг
// AutoCompletePending гарантирует не более одного перевода на заказ.
func AutoCompleteDue(o model.Order, now time.Time) bool {
	if o.Status != model.OrderStatusReady {
		return false
	}
	if o.AutoCompletePending {
		return false
	}
	if o.ReadyAt == nil {
		return false
	}
	return now.Sub(*o.ReadyAt) > AutoCompleteAfter
}
