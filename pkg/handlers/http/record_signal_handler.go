package http

import (
	"github.com/NeuralTrust/TrustShield/pkg/app/ingest"
	"github.com/NeuralTrust/TrustShield/pkg/handlers/http/request"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type recordSignalHandler struct {
	logger *logrus.Logger
	ingest ingest.Service
}

func NewRecordSignalHandler(logger *logrus.Logger, svc ingest.Service) Handler {
	return &recordSignalHandler{
		logger: logger,
		ingest: svc,
	}
}

// Handle records one detected attack and returns the escalation outcome.
// Store failures degrade to action "none" and are reported in "error".
func (h *recordSignalHandler) Handle(c *fiber.Ctx) error {
	var req request.RecordSignalRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.WithError(err).Debug("invalid signal body")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res := h.ingest.RecordThreat(c.Context(), req.ToSignal())
	body := fiber.Map{
		"action":        res.Action,
		"subject_count": res.SubjectCount,
		"origin_count":  res.OriginCount,
	}
	if res.Err != nil {
		body["error"] = res.Err.Error()
	}
	return c.Status(fiber.StatusOK).JSON(body)
}
