package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/qrwallet/internal/wallet"
)

// RegisterWalletRoutes wires the caller's wallet endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	group := r.Group("/wallet")
	group.Get("/balance", h.Balance)
	group.Post("/deposit", h.Deposit)
	group.Post("/add-funds", h.Deposit)
	group.Post("/withdraw", h.Withdraw)
	group.Post("/send", h.Send)
	group.Get("/transactions", h.Transactions)
	group.Get("/profile", h.Profile)
}
