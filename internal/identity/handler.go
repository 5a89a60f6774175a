package identity

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/qrwallet/internal/errs"
)

// CallerKey is the fiber Locals key holding the authenticated Caller.
const CallerKey = "caller"

var errNoCaller = errs.Unauthenticated("unauthenticated", "Authentication required")

// CallerFrom returns the Caller attached by the authentication middleware.
func CallerFrom(c *fiber.Ctx) (Caller, error) {
	caller, ok := c.Locals(CallerKey).(Caller)
	if !ok || caller.WalletID == "" {
		return Caller{}, errNoCaller
	}
	return caller, nil
}

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Phone    string `json:"phoneNumber"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type registerResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	WalletID string `json:"wallet_id,omitempty"`
}

// Register handles user onboarding.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, outcome, err := h.service.Register(c.UserContext(), Registration{
		Phone:    req.Phone,
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	if outcome != Registered {
		return c.Status(http.StatusConflict).JSON(registerResponse{Status: "error", Message: outcome.Message()})
	}
	return c.Status(http.StatusCreated).JSON(registerResponse{Status: "success", Message: outcome.Message(), WalletID: user.WalletID})
}
