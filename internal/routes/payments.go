package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/qrwallet/internal/payments"
)

// RegisterPublicPaymentRoutes wires endpoints reachable without a token.
func RegisterPublicPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Get("/payments/requests/:id/status", h.Status)
}

// RegisterPaymentRoutes wires payment request endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	group := r.Group("/payments")
	group.Get("/scan", h.Scan)
	group.Post("/requests", h.Create)
	group.Get("/requests", h.List)
	group.Get("/requests/:id/confirmation", h.Confirmation)
	group.Post("/requests/:id/resolve", h.Resolve)
	group.Delete("/requests/:id", h.Cancel)
	group.Post("/requests/:id/archive", h.Archive)
}
