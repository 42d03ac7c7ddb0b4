package http

import (
	"github.com/NeuralTrust/TrustShield/pkg/app/alerting"
	"github.com/NeuralTrust/TrustShield/pkg/app/correlator"
	"github.com/NeuralTrust/TrustShield/pkg/domain/response"
	"github.com/gofiber/fiber/v2"
)

type listRulesHandler struct {
	alerting    alerting.Engine
	correlation correlator.Engine
	routes      []response.Route
}

func NewListRulesHandler(a alerting.Engine, c correlator.Engine, routes []response.Route) Handler {
	return &listRulesHandler{
		alerting:    a,
		correlation: c,
		routes:      routes,
	}
}

func (h *listRulesHandler) Handle(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"alert_rules":       h.alerting.Rules(),
		"correlation_rules": h.correlation.Rules(),
		"alert_routes":      h.routes,
	})
}
