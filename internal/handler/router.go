package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/coffee-order-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса заказов кофейни.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.Register)
		r.Post("/user/login", h.Login)

		r.Get("/menu", h.GetMenu)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/cart", h.GetCart)
			r.Post("/cart/items", h.AddCartItem)
			r.Put("/cart/items/{productID}", h.UpdateCartItem)
			r.Delete("/cart/items/{productID}", h.RemoveCartItem)
			r.Delete("/cart", h.ClearCart)

			r.Post("/orders", h.SubmitOrder)
			r.Get("/orders", h.GetOrders)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(custommiddleware.RequireStaff)

			r.Get("/staff/orders", h.GetStaffOrders)
			r.Post("/staff/orders/{orderID}/ready", h.MarkOrderReady)
			r.Post("/staff/orders/{orderID}/complete", h.MarkOrderCompleted)
			r.Post("/staff/orders/{orderID}/cancel", h.MarkOrderCancelled)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
