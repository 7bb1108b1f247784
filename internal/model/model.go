// Package model содержит доменные сущности сервиса заказов кофейни.
package model

import "time"

// Role описывает роль пользователя в системе.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)

// User представляет зарегистрированного пользователя кофейни.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}

// Product описывает позицию меню.
type Product struct {
	ID         string
	Name       string
	PriceKurus int64
}

// CartLine описывает одну позицию корзины. В корзине не может быть
// двух строк с одинаковым ProductID.
type CartLine struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	PriceKurus int64  `json:"price"`
	Quantity   int64  `json:"quantity"`
}

// Cart представляет корзину пользователя. Строки хранятся в порядке
// добавления. TotalKurus всегда пересчитывается после любой мутации
// и равен сумме PriceKurus*Quantity по всем строкам.
type Cart struct {
	Lines      []CartLine `json:"lines"`
	TotalKurus int64      `json:"total"`
}

// OrderStatus описывает статус заказа. Переходы допустимы только вперёд:
// pending -> ready -> completed, либо pending/ready -> cancelled.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order описывает размещённый заказ.
type Order struct {
	ID            string
	UserID        int64
	FullCode      string
	DisplayCode   string
	Lines         []CartLine
	TotalKurus    int64
	Status        OrderStatus
	AutoCompleted bool
	// AutoCompletePending выставляется вместе с автоматическим переводом
	// ready -> completed и гарантирует, что перевод выполняется не более
	// одного раза для заказа.
	AutoCompletePending bool
	CreatedAt           time.Time
	ReadyAt             *time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
}

// DailyCounter представляет суточный счётчик кодов заказов. Один логический
// счётчик на календарный день, общий для всех конкурентных клиентов.
// Никогда не уменьшается и не удаляется.
type DailyCounter struct {
	DayKey string
	Value  int64
}
