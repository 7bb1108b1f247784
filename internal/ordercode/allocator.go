// Package ordercode реализует выдачу суточных кодов заказов.
package ordercode

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// CounterSource описывает контракт суточного счётчика. Next атомарно
// увеличивает счётчик дня dayKey на единицу и возвращает новое значение.
// Сериализация конкурентных вызовов — обязанность реализации (транзакция
// хранилища), а не клиента: клиенты независимы и конкурентны.
type CounterSource interface {
	Next(ctx context.Context, dayKey string) (int64, error)
}

// Code содержит пару кодов, выданную новому заказу. FullCode предназначен
// для внутреннего аудита, DisplayCode показывается покупателю.
type Code struct {
	FullCode    string
	DisplayCode string
	Counter     int64
	Fallback    bool
}

const (
	// dayKeyLayout задаёт формат суточного ключа: ДДММГГ.
	dayKeyLayout = "020106"

	defaultTimeout = 3 * time.Second
)

// Allocator выдаёт коды заказов. Основной режим — счётчик в общем
// хранилище, уникальный в пределах дня. Резервный режим — локальный
// случайный код: уникальность не гарантируется, но заказ всегда может
// быть размещён. Это осознанный выбор доступности в ущерб строгой
// уникальности.
type Allocator struct {
	counters CounterSource
	timeout  time.Duration
}

// NewAllocator создаёт Allocator поверх указанного источника счётчиков.
func NewAllocator(counters CounterSource) *Allocator {
	return &Allocator{
		counters: counters,
		timeout:  defaultTimeout,
	}
}

// NewAllocatorWithTimeout создаёт Allocator с нестандартным пределом
// ожидания счётчика.
func NewAllocatorWithTimeout(counters CounterSource, timeout time.Duration) *Allocator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Allocator{
		counters: counters,
		timeout:  timeout,
	}
}

// DayKey возвращает суточный ключ для указанного момента времени.
func DayKey(day time.Time) string {
	return day.Format(dayKeyLayout)
}

// Allocate выдаёт пару кодов для заказа, размещаемого в день day.
// Вызов всегда завершается за ограниченное время: при ошибке или
// истечении таймаута счётчика возвращается резервный код вместо
// бесконечных повторов.
func (a *Allocator) Allocate(ctx context.Context, day time.Time) Code {
	dayKey := DayKey(day)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	counter, err := a.counters.Next(ctx, dayKey)
	if err != nil {
		return fallbackCode(dayKey)
	}

	return Code{
		FullCode:    fmt.Sprintf("%s-%04d", dayKey, counter),
		DisplayCode: fmt.Sprintf("%04d", int64(day.Day())*100+counter),
		Counter:     counter,
	}
}

// fallbackCode строит помеченный резервный код из случайного значения
// в 3-4 знака.
func fallbackCode(dayKey string) Code {
	n := randomInRange(100, 9999)
	return Code{
		FullCode:    fmt.Sprintf("%s-FALLBACK-%04d", dayKey, n),
		DisplayCode: fmt.Sprintf("%04d", n),
		Fallback:    true,
	}
}

func randomInRange(min, max int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		// crypto/rand недоступен практически только вместе с ОС;
		// для резервного кода достаточно детерминированного остатка.
		return min + time.Now().UnixNano()%(max-min+1)
	}
	return min + v.Int64()
}
