package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/application"
)

// Handler is the HTTP adapter entrypoint for the bundle store use-cases.
// Keeping only the application dependency here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// NewRouter registers the store routes and middleware stack.
// Centralizing routes here keeps error and logging behavior consistent across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/store/v1", func(r chi.Router) {
		r.Get("/bundles", handler.listBundles)
		r.Get("/bundles/{bundle_id}/files", handler.listFiles)
		r.Get("/bundles/{bundle_id}/files/{file_id}", handler.downloadFile)
		r.Post("/quote", handler.quote)
		r.Post("/orders", handler.createOrder)
		r.Post("/payments/verify", handler.verifyPayment)
		r.Post("/coupons/redeem", handler.redeemCoupon)
		r.Post("/access/check", handler.checkAccess)
		r.Post("/loyalty/grant", handler.grantLoyalty)
	})

	return r
}
