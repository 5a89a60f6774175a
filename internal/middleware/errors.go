package middleware

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/congo-pay/qrwallet/internal/errs"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation, errs.KindPrecondition:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders errors returned by handlers. Store and unknown errors
// are logged with their cause and answered with a generic message.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(ErrorBody{Reason: reasonForStatus(fe.Code), Message: fe.Message})
		}

		e, ok := errs.As(err)
		if !ok {
			logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(http.StatusInternalServerError).JSON(ErrorBody{Reason: "internal", Message: "internal server error"})
		}

		status := StatusFor(e.Kind)
		if status == http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("path", c.Path()),
				zap.Stringer("kind", e.Kind),
				zap.String("reason", e.Reason),
				zap.Error(err),
			)
		}
		return c.Status(status).JSON(ErrorBody{Reason: e.Reason, Message: e.Message})
	}
}

func reasonForStatus(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "error"
	}
}
