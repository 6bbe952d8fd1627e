package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/shopledger/internal/model"
	custommiddleware "github.com/mmeshcher/shopledger/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthcheck", h.HealthCheck)

		r.Post("/user/signup", h.SignUp)
		r.Post("/user/login", h.Login)
		r.Post("/user/refresh", h.Refresh)

		r.Get("/article", h.ListArticles)
		r.Get("/article/{id}", h.GetArticle)

		r.Get("/currency", h.ListCurrencies)
		r.Get("/currency/{id}", h.GetCurrency)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/user/profile", h.Profile)
			r.Get("/user/balance", h.GetBalance)
			r.Get("/user/{id}", h.GetUser)
			r.Patch("/user/{id}", h.UpdateUser)
			r.Delete("/user/{id}", h.DeleteUser)

			r.Post("/transfer/user/{id}", h.CreateTransfer)
			r.Get("/transfer/user/{id}", h.ListUserTransfers)
			r.Get("/transfer/owner/{id}", h.ListOwnerTransfers)
			r.Get("/transfer/{transferId}/user/{id}", h.GetTransfer)

			r.Post("/order", h.PlaceOrder)
			r.Get("/order", h.ListOrders)
			r.Get("/order/{trackingNumber}", h.GetOrder)
			r.Patch("/order/{trackingNumber}", h.UpdateOrderStatus)

			r.With(custommiddleware.RequireCapability(model.CapVerifyTransactions)).
				Patch("/transfer/verify/{secureToken}", h.VerifyTransfer)

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.RequireCapability(model.CapManageArticles))

				r.Post("/article", h.CreateArticle)
				r.Patch("/article/{id}", h.UpdateArticle)
				r.Delete("/article/{id}", h.DeleteArticle)
			})

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.RequireCapability(model.CapManageCurrencies))

				r.Post("/currency", h.CreateCurrency)
				r.Patch("/currency/{id}/default", h.SetDefaultCurrency)
				r.Post("/currency/refresh", h.RefreshRates)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
