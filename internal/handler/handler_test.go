package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/coffee-order-system/internal/middleware"
	"github.com/mmeshcher/coffee-order-system/internal/model"
	"github.com/mmeshcher/coffee-order-system/internal/projection"
	"github.com/mmeshcher/coffee-order-system/internal/repository"
	"github.com/mmeshcher/coffee-order-system/internal/service"
)

type stubService struct {
	registerUserID int64
	registerErr    error

	authUser *model.User
	authErr  error

	menuResp []model.Product

	cartResp model.Cart
	cartErr  error

	submitOrder  *model.Order
	submitErr    error
	submitCalled bool

	ordersResp []model.Order
	ordersErr  error

	bucketRequested projection.Bucket

	transitionErr error
}

func (s *stubService) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	return s.authUser, s.authErr
}

func (s *stubService) GetMenu(ctx context.Context) ([]model.Product, error) {
	return s.menuResp, nil
}

func (s *stubService) GetCart(ctx context.Context, userID int64) (model.Cart, error) {
	return s.cartResp, s.cartErr
}

func (s *stubService) AddToCart(ctx context.Context, userID int64, productID string, quantity int64) (model.Cart, error) {
	return s.cartResp, s.cartErr
}

func (s *stubService) RemoveFromCart(ctx context.Context, userID int64, productID string) (model.Cart, error) {
	return s.cartResp, s.cartErr
}

func (s *stubService) UpdateCartQuantity(ctx context.Context, userID int64, productID string, quantity int64) (model.Cart, error) {
	return s.cartResp, s.cartErr
}

func (s *stubService) ClearCart(ctx context.Context, userID int64) (model.Cart, error) {
	return model.Cart{}, s.cartErr
}

func (s *stubService) SubmitOrder(ctx context.Context, userID int64) (*model.Order, error) {
	s.submitCalled = true
	return s.submitOrder, s.submitErr
}

func (s *stubService) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.ordersResp, s.ordersErr
}

func (s *stubService) GetOrdersByBucket(ctx context.Context, bucket projection.Bucket) ([]model.Order, error) {
	s.bucketRequested = bucket
	return s.ordersResp, s.ordersErr
}

func (s *stubService) MarkOrderReady(ctx context.Context, orderID string) error {
	return s.transitionErr
}

func (s *stubService) MarkOrderCompleted(ctx context.Context, orderID string) error {
	return s.transitionErr
}

func (s *stubService) MarkOrderCancelled(ctx context.Context, orderID string) error {
	return s.transitionErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth)
}

func authCookie(t *testing.T, h *Handler, userID int64, role model.Role) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(rec, userID, role)
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no auth cookie set")
	}
	return cookies[0]
}

func validCard() cardRequest {
	return cardRequest{
		Number: "4242424242424242",
		Expiry: "12/30",
		CVV:    "123",
		Holder: "ERSIN KOC",
	}
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{
		registerUserID: 42,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) == 0 {
		t.Fatalf("no auth cookie set on register")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubService{
		authErr: service.ErrInvalidCredentials,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "wrong",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestSubmitOrder_RejectsBadCard(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	card := validCard()
	card.Number = "1234"
	body, _ := json.Marshal(submitOrderRequest{Card: card})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.AddCookie(authCookie(t, h, 1, model.RoleCustomer))

	rec := httptest.NewRecorder()
	h.authMiddleware.Middleware(http.HandlerFunc(h.SubmitOrder)).ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnprocessableEntity)
	}
	if svc.submitCalled {
		t.Fatalf("service called despite invalid card")
	}
}

func TestSubmitOrder_EmptyCart(t *testing.T) {
	svc := &stubService{
		submitErr: service.ErrEmptyCart,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(submitOrderRequest{Card: validCard()})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.AddCookie(authCookie(t, h, 1, model.RoleCustomer))

	rec := httptest.NewRecorder()
	h.authMiddleware.Middleware(http.HandlerFunc(h.SubmitOrder)).ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestSubmitOrder_Success(t *testing.T) {
	svc := &stubService{
		submitOrder: &model.Order{
			ID:          "ord-1",
			FullCode:    "150624-0001",
			DisplayCode: "1501",
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(submitOrderRequest{Card: validCard()})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.AddCookie(authCookie(t, h, 1, model.RoleCustomer))

	rec := httptest.NewRecorder()
	h.authMiddleware.Middleware(http.HandlerFunc(h.SubmitOrder)).ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp submitOrderResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.FullCode != "150624-0001" || resp.DisplayCode != "1501" {
		t.Fatalf("unexpected codes: %+v", resp)
	}
}

func TestSubmitOrder_RetryableFailure(t *testing.T) {
	svc := &stubService{
		submitErr: service.ErrSubmissionFailed,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(submitOrderRequest{Card: validCard()})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.AddCookie(authCookie(t, h, 1, model.RoleCustomer))

	rec := httptest.NewRecorder()
	h.authMiddleware.Middleware(http.HandlerFunc(h.SubmitOrder)).ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadGateway)
	}
}

func TestGetOrders_NoContent(t *testing.T) {
	svc := &stubService{
		ordersResp: []model.Order{},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(authCookie(t, h, 1, model.RoleCustomer))

	rec := httptest.NewRecorder()
	h.authMiddleware.Middleware(http.HandlerFunc(h.GetOrders)).ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusNoContent)
	}
}

func TestStaffOrders_ForbiddenForCustomer(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/staff/orders", nil)
	req.AddCookie(authCookie(t, h, 1, model.RoleCustomer))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusForbidden)
	}
}

func TestStaffOrders_BucketQuery(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/staff/orders?bucket=completed", nil)
	req.AddCookie(authCookie(t, h, 2, model.RoleStaff))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusOK)
	}
	if svc.bucketRequested != projection.BucketCompletedLike {
		t.Fatalf("bucket = %v, want completed", svc.bucketRequested)
	}
}

func TestMarkOrderReady_InvalidTransition(t *testing.T) {
	svc := &stubService{
		transitionErr: repository.ErrInvalidTransition,
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/staff/orders/ord-1/ready", nil)
	req.AddCookie(authCookie(t, h, 2, model.RoleStaff))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusConflict)
	}
}

func TestMarkOrderReady_NotFound(t *testing.T) {
	svc := &stubService{
		transitionErr: repository.ErrOrderNotFound,
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/staff/orders/no-such/ready", nil)
	req.AddCookie(authCookie(t, h, 2, model.RoleStaff))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusNotFound)
	}
}

func TestGetMenu_JSONResponse(t *testing.T) {
	svc := &stubService{
		menuResp: []model.Product{
			{ID: "latte", Name: "Latte", PriceKurus: 5000},
		},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	rec := httptest.NewRecorder()

	h.GetMenu(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var resp []productResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Price != 50 {
		t.Fatalf("unexpected menu: %+v", resp)
	}
}
