package http

import (
	"errors"

	"github.com/NeuralTrust/TrustShield/pkg/app/scheduler"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type runJobHandler struct {
	logger    *logrus.Logger
	scheduler scheduler.Scheduler
}

func NewRunJobHandler(logger *logrus.Logger, s scheduler.Scheduler) Handler {
	return &runJobHandler{
		logger:    logger,
		scheduler: s,
	}
}

// Handle runs one cycle of a named job. "ran" is false when the request
// joined a cycle already in flight.
func (h *runJobHandler) Handle(c *fiber.Ctx) error {
	name := c.Params("name")
	ran, err := h.scheduler.Trigger(c.Context(), name)
	if errors.Is(err, scheduler.ErrUnknownJob) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown job",
			"jobs":  h.scheduler.Jobs(),
		})
	}
	body := fiber.Map{"job": name, "ran": ran}
	if err != nil {
		h.logger.WithError(err).WithField("job", name).Warn("manual cycle failed")
		body["error"] = err.Error()
	}
	return c.Status(fiber.StatusOK).JSON(body)
}
