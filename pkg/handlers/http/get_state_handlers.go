package http

import (
	"errors"
	"strconv"

	"github.com/NeuralTrust/TrustShield/pkg/app/escalation"
	"github.com/NeuralTrust/TrustShield/pkg/domain/account"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type getSubjectStateHandler struct {
	logger    *logrus.Logger
	evaluator escalation.Evaluator
}

func NewGetSubjectStateHandler(logger *logrus.Logger, evaluator escalation.Evaluator) Handler {
	return &getSubjectStateHandler{
		logger:    logger,
		evaluator: evaluator,
	}
}

func (h *getSubjectStateHandler) Handle(c *fiber.Ctx) error {
	subjectID, err := strconv.ParseInt(c.Params("subject_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid subject_id"})
	}
	state, err := h.evaluator.SubjectState(c.Context(), subjectID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "subject not found"})
		}
		h.logger.WithError(err).WithField("subject_id", subjectID).Error("failed to compute subject state")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "failed to compute state"})
	}
	return c.Status(fiber.StatusOK).JSON(state)
}

type getOriginStateHandler struct {
	logger    *logrus.Logger
	evaluator escalation.Evaluator
}

func NewGetOriginStateHandler(logger *logrus.Logger, evaluator escalation.Evaluator) Handler {
	return &getOriginStateHandler{
		logger:    logger,
		evaluator: evaluator,
	}
}

func (h *getOriginStateHandler) Handle(c *fiber.Ctx) error {
	origin := c.Params("origin")
	if origin == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "origin is required"})
	}
	state, err := h.evaluator.OriginState(c.Context(), origin)
	if err != nil {
		h.logger.WithError(err).WithField("origin", origin).Error("failed to compute origin state")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "failed to compute state"})
	}
	return c.Status(fiber.StatusOK).JSON(state)
}
