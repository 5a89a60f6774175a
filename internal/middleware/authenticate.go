package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/qrwallet/internal/auth"
	"github.com/congo-pay/qrwallet/internal/errs"
	"github.com/congo-pay/qrwallet/internal/identity"
)

// TokenVerifier checks a bearer token.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// CallerResolver loads the identity behind a verified wallet id.
type CallerResolver interface {
	Resolve(ctx context.Context, walletID string) (identity.Caller, error)
}

var errMissingBearer = errs.Unauthenticated("missing_token", "Missing bearer token")

// Authenticate resolves the bearer token into an identity.Caller stored
// under identity.CallerKey, or answers 401.
func Authenticate(tokens TokenVerifier, callers CallerResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return errMissingBearer
		}
		claims, err := tokens.Verify(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return err
		}
		caller, err := callers.Resolve(c.UserContext(), claims.WalletID)
		if err != nil {
			return err
		}
		if caller.Username != claims.Subject {
			return auth.ErrInvalidToken
		}
		c.Locals(identity.CallerKey, caller)
		return c.Next()
	}
}
