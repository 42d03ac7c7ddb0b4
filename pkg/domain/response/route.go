package response

import (
	"fmt"

	"github.com/NeuralTrust/TrustShield/pkg/domain"
)

// Route maps alerts of a rule at or above a severity to a remediation.
type Route struct {
	RuleName    string             `json:"rule_name" yaml:"rule_name"`
	MinSeverity domain.Severity    `json:"min_severity" yaml:"min_severity"`
	Action      domain.Remediation `json:"action" yaml:"action"`
}

func (r Route) Matches(ruleName string, severity domain.Severity) bool {
	return r.RuleName == ruleName && severity.AtLeast(r.MinSeverity)
}

func (r Route) Validate() error {
	if r.RuleName == "" {
		return fmt.Errorf("%w: alert route requires rule_name", domain.ErrInvalidRule)
	}
	if !r.MinSeverity.Valid() {
		return fmt.Errorf("%w: alert route %s has unknown min_severity %q", domain.ErrInvalidRule, r.RuleName, r.MinSeverity)
	}
	if !r.Action.Valid() {
		return fmt.Errorf("%w: alert route %s has unknown action %q", domain.ErrInvalidRule, r.RuleName, r.Action)
	}
	return nil
}

func DefaultRoutes() []Route {
	return []Route{
		{
			RuleName:    "high_processing_lag",
			MinSeverity: domain.SeverityHigh,
			Action:      domain.RemediationEscalateToOperator,
		},
	}
}
