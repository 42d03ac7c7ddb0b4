package middleware

import (
	"strconv"

	"github.com/NeuralTrust/TrustShield/pkg/app/ratelimit"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRetryAfter         = "Retry-After"
	HeaderAPIKey             = "X-API-Key"
)

type admissionMiddleware struct {
	limiter ratelimit.Limiter
	guard   ratelimit.Guard
	class   string
	logger  *logrus.Logger
}

// NewAdmissionMiddleware rejects denied origins with 403 and requests over
// the class limit with 429. Callers are identified by API key, else by IP.
// guard may be nil.
func NewAdmissionMiddleware(
	limiter ratelimit.Limiter,
	guard ratelimit.Guard,
	class string,
	logger *logrus.Logger,
) Middleware {
	return &admissionMiddleware{
		limiter: limiter,
		guard:   guard,
		class:   class,
		logger:  logger,
	}
}

func (m *admissionMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.IP()
		if m.guard != nil {
			denied, err := m.guard.IsDenied(c.Context(), origin)
			if err != nil {
				m.logger.WithError(err).WithField("origin", origin).Debug("deny list unavailable, admitting")
			} else if denied {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "origin is blocked"})
			}
		}

		identifier := c.Get(HeaderAPIKey)
		if identifier == "" {
			identifier = origin
		}

		allowed, info := m.limiter.CheckClass(c.Context(), identifier, m.class)
		c.Set(HeaderRateLimitLimit, strconv.Itoa(info.Limit))
		c.Set(HeaderRateLimitRemaining, strconv.Itoa(info.Remaining))
		if !allowed {
			c.Set(HeaderRetryAfter, strconv.Itoa(info.RetryAfterSeconds))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"retry_after": info.RetryAfterSeconds,
			})
		}
		return c.Next()
	}
}
