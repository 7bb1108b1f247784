// Package handler содержит HTTP-обработчики API сервиса заказов кофейни.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/coffee-order-system/internal/middleware"
	"github.com/mmeshcher/coffee-order-system/internal/model"
	"github.com/mmeshcher/coffee-order-system/internal/projection"
	"github.com/mmeshcher/coffee-order-system/internal/repository"
	"github.com/mmeshcher/coffee-order-system/internal/service"
	"github.com/mmeshcher/coffee-order-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (*model.User, error)
	GetMenu(ctx context.Context) ([]model.Product, error)
	GetCart(ctx context.Context, userID int64) (model.Cart, error)
	AddToCart(ctx context.Context, userID int64, productID string, quantity int64) (model.Cart, error)
	RemoveFromCart(ctx context.Context, userID int64, productID string) (model.Cart, error)
	UpdateCartQuantity(ctx context.Context, userID int64, productID string, quantity int64) (model.Cart, error)
	ClearCart(ctx context.Context, userID int64) (model.Cart, error)
	SubmitOrder(ctx context.Context, userID int64) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrdersByBucket(ctx context.Context, bucket projection.Bucket) ([]model.Order, error)
	MarkOrderReady(ctx context.Context, orderID string) error
	MarkOrderCompleted(ctx context.Context, orderID string) error
	MarkOrderCancelled(ctx context.Context, orderID string) error
}

// Handler реализует HTTP-обработчики API сервиса заказов кофейни.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового покупателя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID, model.RoleCustomer)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, u.ID, u.Role)
	w.WriteHeader(http.StatusOK)
}

type productResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// GetMenu возвращает позиции меню.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.GetMenu(r.Context())
	if err != nil {
		h.logger.Error("get menu error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, productResponse{
			ID:    p.ID,
			Name:  p.Name,
			Price: float64(p.PriceKurus) / 100,
		})
	}

	writeJSON(w, h.logger, resp)
}

type cartLineResponse struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
}

type cartResponse struct {
	Lines []cartLineResponse `json:"lines"`
	Total float64            `json:"total"`
}

func toCartResponse(c model.Cart) cartResponse {
	lines := make([]cartLineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, cartLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     float64(l.PriceKurus) / 100,
			Quantity:  l.Quantity,
		})
	}
	return cartResponse{
		Lines: lines,
		Total: float64(c.TotalKurus) / 100,
	}
}

// GetCart возвращает корзину текущего пользователя.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	c, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		h.logger.Error("get cart error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, toCartResponse(c))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// AddCartItem добавляет позицию меню в корзину текущего пользователя.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Quantity == 0 {
		req.Quantity = 1
	}

	c, err := h.service.AddToCart(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("add cart item error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, toCartResponse(c))
}

type updateQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

// UpdateCartItem устанавливает количество позиции в корзине. Количество
// ноль или меньше удаляет позицию.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	productID := pathParam(r, "productID")
	if productID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	c, err := h.service.UpdateCartQuantity(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		h.logger.Error("update cart item error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, toCartResponse(c))
}

// RemoveCartItem удаляет позицию из корзины текущего пользователя.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	productID := pathParam(r, "productID")
	if productID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	c, err := h.service.RemoveFromCart(r.Context(), userID, productID)
	if err != nil {
		h.logger.Error("remove cart item error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, toCartResponse(c))
}

// ClearCart очищает корзину текущего пользователя.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	c, err := h.service.ClearCart(r.Context(), userID)
	if err != nil {
		h.logger.Error("clear cart error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, toCartResponse(c))
}

type cardRequest struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
	Holder string `json:"holder"`
}

type submitOrderRequest struct {
	Card cardRequest `json:"card"`
}

type submitOrderResponse struct {
	OrderID     string `json:"orderId"`
	FullCode    string `json:"fullCode"`
	DisplayCode string `json:"displayCode"`
}

// SubmitOrder оформляет заказ из корзины текущего пользователя. Платёжная
// форма проверяется только по виду, реальный платёж не проводится.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidCardNumber(req.Card.Number) ||
		!validation.IsValidExpiry(req.Card.Expiry) ||
		!validation.IsValidCVV(req.Card.CVV) ||
		!validation.IsValidHolder(req.Card.Holder) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	order, err := h.service.SubmitOrder(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthenticated):
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		case errors.Is(err, service.ErrEmptyCart):
			http.Error(w, "cart is empty", http.StatusBadRequest)
		case errors.Is(err, service.ErrSubmissionFailed):
			h.logger.Error("submit order error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, "order could not be submitted, please retry", http.StatusBadGateway)
		default:
			h.logger.Error("submit order error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(submitOrderResponse{
		OrderID:     order.ID,
		FullCode:    order.FullCode,
		DisplayCode: order.DisplayCode,
	}); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

type orderResponse struct {
	OrderID     string             `json:"orderId"`
	DisplayCode string             `json:"displayCode"`
	FullCode    string             `json:"fullCode"`
	Lines       []cartLineResponse `json:"lines"`
	Total       float64            `json:"total"`
	Status      string             `json:"status"`
	CreatedAt   string             `json:"createdAt"`
	ReadyAt     *string            `json:"readyAt,omitempty"`
	CompletedAt *string            `json:"completedAt,omitempty"`
	CancelledAt *string            `json:"cancelledAt,omitempty"`
}

func toOrderResponse(o model.Order) orderResponse {
	lines := make([]cartLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, cartLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     float64(l.PriceKurus) / 100,
			Quantity:  l.Quantity,
		})
	}

	formatTime := func(t *time.Time) *string {
		if t == nil {
			return nil
		}
		s := t.Format(time.RFC3339)
		return &s
	}

	return orderResponse{
		OrderID:     o.ID,
		DisplayCode: o.DisplayCode,
		FullCode:    o.FullCode,
		Lines:       lines,
		Total:       float64(o.TotalKurus) / 100,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
		ReadyAt:     formatTime(o.ReadyAt),
		CompletedAt: formatTime(o.CompletedAt),
		CancelledAt: formatTime(o.CancelledAt),
	}
}

// GetOrders возвращает заказы текущего пользователя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.GetOrdersByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	writeJSON(w, h.logger, resp)
}

// GetStaffOrders возвращает заказы витринной корзины для персонала.
// По умолчанию возвращается корзина заказов в работе.
func (h *Handler) GetStaffOrders(w http.ResponseWriter, r *http.Request) {
	bucket := projection.BucketPendingLike
	switch r.URL.Query().Get("bucket") {
	case "", string(projection.BucketPendingLike):
	case string(projection.BucketCompletedLike):
		bucket = projection.BucketCompletedLike
	case string(projection.BucketCancelled):
		bucket = projection.BucketCancelled
	default:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	orders, err := h.service.GetOrdersByBucket(r.Context(), bucket)
	if err != nil {
		h.logger.Error("get staff orders error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	writeJSON(w, h.logger, resp)
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) error) {
	orderID := pathParam(r, "orderID")
	if orderID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := fn(r.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrInvalidTransition):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("order transition error", zap.Error(err), zap.String("order", orderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// MarkOrderReady переводит заказ в статус ready.
func (h *Handler) MarkOrderReady(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, h.service.MarkOrderReady)
}

// MarkOrderCompleted переводит заказ в статус completed.
func (h *Handler) MarkOrderCompleted(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, h.service.MarkOrderCompleted)
}

// MarkOrderCancelled переводит заказ в статус cancelled.
func (h *Handler) MarkOrderCancelled(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, h.service.MarkOrderCancelled)
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response error", zap.Error(err))
	}
}
