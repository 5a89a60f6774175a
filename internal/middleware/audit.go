package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/congo-pay/qrwallet/internal/errs"
)

// Audit emits structured logs for each request/response lifecycle event.
func Audit(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// The error handler has not written the response yet.
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = StatusFor(errs.KindOf(err))
			}
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		}
		if requestID, _ := c.Locals(requestIDHeader).(string); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
			if status >= fiber.StatusInternalServerError {
				logger.Error("request completed", fields...)
			} else {
				logger.Info("request completed", fields...)
			}
			return err
		}

		logger.Info("request completed", fields...)
		return nil
	}
}
