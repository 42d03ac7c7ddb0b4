package http

import (
	"github.com/NeuralTrust/TrustShield/pkg/app/ratelimit"
	"github.com/NeuralTrust/TrustShield/pkg/handlers/http/request"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type checkAdmissionHandler struct {
	logger  *logrus.Logger
	limiter ratelimit.Limiter
}

func NewCheckAdmissionHandler(logger *logrus.Logger, limiter ratelimit.Limiter) Handler {
	return &checkAdmissionHandler{
		logger:  logger,
		limiter: limiter,
	}
}

// Handle consumes one admission for a caller supplied identifier. A denial
// is a normal 200 answer; the caller decides whether to reject its request.
func (h *checkAdmissionHandler) Handle(c *fiber.Ctx) error {
	var req request.CheckAdmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var (
		allowed bool
		info    ratelimit.Info
	)
	if req.Class != "" {
		allowed, info = h.limiter.CheckClass(c.Context(), req.Identifier, req.Class)
	} else {
		allowed, info = h.limiter.CheckAndConsume(c.Context(), req.Identifier, req.Limit, req.WindowSeconds)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"allowed": allowed,
		"info":    info,
	})
}
