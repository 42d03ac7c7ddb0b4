package http

import (
	"errors"

	"github.com/NeuralTrust/TrustShield/pkg/app/ingest"
	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
	"github.com/NeuralTrust/TrustShield/pkg/handlers/http/request"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type recordStreamEventHandler struct {
	logger *logrus.Logger
	ingest ingest.Service
}

func NewRecordStreamEventHandler(logger *logrus.Logger, svc ingest.Service) Handler {
	return &recordStreamEventHandler{
		logger: logger,
		ingest: svc,
	}
}

func (h *recordStreamEventHandler) Handle(c *fiber.Ctx) error {
	stream := signal.Stream(c.Params("stream"))
	if !stream.Valid() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown stream"})
	}

	var req request.StreamEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	ev := req.ToEvent()

	var (
		kept = true
		err  error
	)
	switch stream {
	case signal.StreamFailedLogin:
		err = h.ingest.RecordFailedLogin(c.Context(), ev)
	case signal.StreamHighRiskScore:
		kept, err = h.ingest.RecordRiskScore(c.Context(), ev)
	case signal.StreamRateLimitViolation:
		err = h.ingest.RecordRateLimitViolation(c.Context(), ev)
	}
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidEvent) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.WithError(err).WithField("stream", stream).Error("failed to record stream event")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "failed to record event"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"stream": stream, "recorded": kept})
}
