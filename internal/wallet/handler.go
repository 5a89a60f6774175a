package wallet

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/qrwallet/internal/amount"
	"github.com/congo-pay/qrwallet/internal/identity"
	"github.com/congo-pay/qrwallet/internal/ledger"
)

// Handler exposes wallet HTTP endpoints for the authenticated caller.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type amountRequest struct {
	Amount amount.Raw `json:"amount"`
}

type sendRequest struct {
	ToWalletID string     `json:"to_wallet_id"`
	Amount     amount.Raw `json:"amount"`
}

type entryResponse struct {
	ID           string    `json:"id"`
	TransferID   string    `json:"transfer_id"`
	Amount       int64     `json:"amount"`
	Type         string    `json:"type"`
	BalanceAfter int64     `json:"balance_after"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Balance returns the caller's balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	caller, err := identity.CallerFrom(c)
	if err != nil {
		return err
	}
	balance, err := h.service.Balance(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id": balance.WalletID,
		"balance":   balance.Amount,
		"timestamp": balance.AsOf,
	})
}

// Deposit adds funds to the caller's wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	caller, err := identity.CallerFrom(c)
	if err != nil {
		return err
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p, err := h.service.Deposit(c.UserContext(), caller, string(req.Amount))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"wallet_id": p.WalletID, "new_balance": p.Balance, "transfer_id": p.TransferID})
}

// Withdraw removes funds from the caller's wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	caller, err := identity.CallerFrom(c)
	if err != nil {
		return err
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p, err := h.service.Withdraw(c.UserContext(), caller, string(req.Amount))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"wallet_id": p.WalletID, "new_balance": p.Balance, "transfer_id": p.TransferID})
}

// Send transfers funds to another wallet without a payment request.
func (h *Handler) Send(c *fiber.Ctx) error {
	caller, err := identity.CallerFrom(c)
	if err != nil {
		return err
	}
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Send(c.UserContext(), caller, req.ToWalletID, string(req.Amount))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"transfer_id":      res.TransferID,
		"from_wallet_id":   res.From,
		"new_from_balance": res.FromBalance,
		"to_wallet_id":     res.To,
		"new_to_balance":   res.ToBalance,
	})
}

// Transactions lists the caller's history; ?limit= is clamped by the ledger.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	caller, err := identity.CallerFrom(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), caller, c.QueryInt("limit", ledger.DefaultHistoryLimit))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"wallet_id": caller.WalletID, "transactions": toEntries(entries)})
}

// Profile returns the caller's profile with recent activity.
func (h *Handler) Profile(c *fiber.Ctx) error {
	caller, err := identity.CallerFrom(c)
	if err != nil {
		return err
	}
	p, err := h.service.Profile(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"profile": fiber.Map{
		"username":            p.Username,
		"email":               p.Email,
		"full_name":           p.FullName,
		"phoneNumber":         p.Phone,
		"wallet_id":           p.WalletID,
		"balance":             p.Balance,
		"transactions_count":  p.TransactionsCount,
		"recent_transactions": toEntries(p.Recent),
	}})
}

func toEntries(entries []ledger.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:           e.ID,
			TransferID:   e.TransferID,
			Amount:       e.Amount,
			Type:         e.Type,
			BalanceAfter: e.BalanceAfter,
			Description:  e.Description,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}
