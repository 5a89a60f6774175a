package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	loginRatePrefix = "rl:login:"
	loginRateWindow = time.Minute
)

// LoginRateLimit caps login attempts per username, or per client IP when no
// username is supplied, within a one minute window. It is a no-op without
// Redis and fails open when Redis errors.
func LoginRateLimit(cache *redis.Client, maxPerMin int, logger *zap.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			Username string `json:"username"`
		}
		_ = c.BodyParser(&req)
		subject := strings.ToLower(strings.TrimSpace(req.Username))
		if subject == "" {
			subject = c.IP()
		}
		key := loginRatePrefix + subject

		count, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.Warn("login rate limit unavailable", zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			if err := cache.Expire(c.UserContext(), key, loginRateWindow).Err(); err != nil {
				logger.Warn("login rate window not set", zap.String("subject", subject), zap.Error(err))
			}
		}
		if count > int64(maxPerMin) {
			logger.Info("login throttled", zap.String("subject", subject))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(loginRateWindow.Seconds())))
			return fiber.NewError(fiber.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}
