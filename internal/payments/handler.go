package payments

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/qrwallet/internal/amount"
	"github.com/congo-pay/qrwallet/internal/errs"
	"github.com/congo-pay/qrwallet/internal/identity"
	"github.com/congo-pay/qrwallet/internal/requests"
)

// Handler exposes payment request endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Amount           amount.Raw `json:"amount"`
	Description      string     `json:"description"`
	ExpiresInMinutes int        `json:"expires_in_minutes"`
}

type createResponse struct {
	RequestID string    `json:"request_id"`
	Amount    int64     `json:"amount"`
	ExpiresAt time.Time `json:"expires_at"`
	QRURL     string    `json:"qr_url"`
}

type requestResponse struct {
	RequestID         string          `json:"request_id"`
	RecipientID       string          `json:"recipient_id"`
	RecipientUsername string          `json:"recipient_username"`
	SenderWalletID    string          `json:"sender_wallet_id,omitempty"`
	SenderUsername    string          `json:"sender_username,omitempty"`
	Amount            int64           `json:"amount"`
	Description       string          `json:"description,omitempty"`
	Status            requests.Status `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	ExpiresAt         time.Time       `json:"expires_at"`
}

type resolveRequest struct {
	Action string `json:"action"`
}

type outcomeResponse struct {
	RequestID  string          `json:"request_id"`
	Status     requests.Status `json:"status"`
	TransferID string          `json:"transfer_id,omitempty"`
}

// Create issues a new payment request for the caller.
func (h *Handler) Create(c *fiber.Ctx) error {
	caller, err := identity.CallerFrom(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	created, err := h.service.Create(c.UserContext(), caller, CreateInput{
		Amount:      string(req.Amount),
		Description: req.Description,
		ExpiresIn:   time.Duration(req.ExpiresInMinutes) * time.Minute,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(createResponse{
		RequestID: created.RequestID,
		Amount:    created.Amount,
		ExpiresAt: created.ExpiresAt,
		QRURL:     created.QRURL,
	})
}

// List returns the caller's requests filtered by ?status= and ?date=YYYY-MM-DD.
func (h *Handler) List(c *fiber.Ctx) error {
	caller, err := identity.CallerFrom(c)
	if err != nil {
		return err
	}
	filter := requests.Filter{Status: requests.Status(strings.ToLower(c.Query("status")))}
	if raw := c.Query("date"); raw != "" {
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return errs.Validation("date", "Date must be formatted as YYYY-MM-DD")
		}
		filter.Date = day
	}
	list, err := h.service.Filter(c.UserContext(), caller.WalletID, filter)
	if err != nil {
		return err
	}
	out := make([]requestResponse, 0, len(list))
	for _, r := range list {
		out = append(out, toResponse(r))
	}
	return c.JSON(fiber.Map{"requests": out, "count": len(out)})
}

// Status is the unauthenticated polling endpoint.
func (h *Handler) Status(c *fiber.Ctx) error {
	view, err := h.service.Status(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// Confirmation shows the payer what they are about to pay.
func (h *Handler) Confirmation(c *fiber.Ctx) error {
	caller, err := identity.CallerFrom(c)
	if err != nil {
		return err
	}
	view, err := h.service.Confirmation(c.UserContext(), c.Params("id"), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"request_id":      view.RequestID,
		"amount":          view.Amount,
		"payee_name":      view.PayeeName,
		"payee_wallet_id": view.PayeeWalletID,
		"description":     view.Description,
		"expires_at":      view.ExpiresAt,
	})
}

// Resolve accepts, rejects or cancels a request.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	caller, err := identity.CallerFrom(c)
	if err != nil {
		return err
	}
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	out, err := h.service.Resolve(c.UserContext(), c.Params("id"), caller, Action(strings.ToLower(strings.TrimSpace(req.Action))))
	return h.outcome(c, out, err)
}

// Cancel withdraws the caller's own pending request.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	caller, err := identity.CallerFrom(c)
	if err != nil {
		return err
	}
	out, err := h.service.Cancel(c.UserContext(), c.Params("id"), caller)
	return h.outcome(c, out, err)
}

// Archive removes a resolved request from the caller's list.
func (h *Handler) Archive(c *fiber.Ctx) error {
	caller, err := identity.CallerFrom(c)
	if err != nil {
		return err
	}
	if err := h.service.Archive(c.UserContext(), c.Params("id"), caller); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"request_id": c.Params("id"), "archived": true})
}

// Scan is the target of the QR code; it forwards to the confirmation view.
func (h *Handler) Scan(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Query("request_id"))
	if id == "" {
		return ErrMissingRequestID
	}
	base := strings.TrimSuffix(c.Path(), "/scan")
	return c.Redirect(base+"/requests/"+url.PathEscape(id)+"/confirmation", http.StatusSeeOther)
}

// outcome renders a resolution. A refused transition still reports the
// request's current status next to the error.
func (h *Handler) outcome(c *fiber.Ctx, out Outcome, err error) error {
	if err == nil {
		return c.JSON(outcomeResponse{RequestID: out.RequestID, Status: out.Status, TransferID: out.TransferID})
	}
	e, ok := errs.As(err)
	if !ok || out.Status == "" || e.Kind != errs.KindPrecondition {
		return err
	}
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{
		"reason":     e.Reason,
		"message":    e.Message,
		"request_id": out.RequestID,
		"status":     out.Status,
	})
}

func toResponse(r requests.Request) requestResponse {
	return requestResponse{
		RequestID:         r.ID,
		RecipientID:       r.RecipientID,
		RecipientUsername: r.RecipientUsername,
		SenderWalletID:    r.SenderWalletID,
		SenderUsername:    r.SenderUsername,
		Amount:            r.Amount,
		Description:       r.Description,
		Status:            r.Status,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		ExpiresAt:         r.ExpiresAt,
	}
}
