package correlation

import (
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain"
	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
)

// Rule groups events of one stream by entity and fires when a group reaches
// CountThreshold inside Window.
type Rule struct {
	Name              string             `json:"name" yaml:"name"`
	SourceStream      signal.Stream      `json:"source_stream" yaml:"source_stream"`
	GroupBy           domain.EntityKind  `json:"group_by" yaml:"group_by"`
	CountThreshold    int                `json:"count_threshold" yaml:"count_threshold"`
	WindowMinutes     int                `json:"window_minutes" yaml:"window_minutes"`
	Severity          domain.Severity    `json:"severity" yaml:"severity"`
	RecommendedAction domain.Remediation `json:"recommended_action" yaml:"recommended_action"`
}

func (r Rule) Window() time.Duration {
	return time.Duration(r.WindowMinutes) * time.Minute
}

func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: correlation rule name is required", domain.ErrInvalidRule)
	}
	if !r.SourceStream.Valid() {
		return fmt.Errorf("%w: correlation rule %s has unknown source_stream %q", domain.ErrInvalidRule, r.Name, r.SourceStream)
	}
	if !r.GroupBy.Valid() {
		return fmt.Errorf("%w: correlation rule %s has unknown group_by %q", domain.ErrInvalidRule, r.Name, r.GroupBy)
	}
	if r.CountThreshold <= 0 {
		return fmt.Errorf("%w: correlation rule %s requires a positive count_threshold", domain.ErrInvalidRule, r.Name)
	}
	if r.WindowMinutes <= 0 {
		return fmt.Errorf("%w: correlation rule %s requires a positive window_minutes", domain.ErrInvalidRule, r.Name)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("%w: correlation rule %s has unknown severity %q", domain.ErrInvalidRule, r.Name, r.Severity)
	}
	if !r.RecommendedAction.Valid() {
		return fmt.Errorf("%w: correlation rule %s has unknown recommended_action %q", domain.ErrInvalidRule, r.Name, r.RecommendedAction)
	}
	return nil
}

const (
	RuleRapidFailedLogins = "rapid_failed_logins"
	RuleRepeatedHighRisk  = "repeated_high_risk_scores"
	RuleRateLimitAbuse    = "rate_limit_abuse"
)

func DefaultRules() []Rule {
	return []Rule{
		{
			Name:              RuleRapidFailedLogins,
			SourceStream:      signal.StreamFailedLogin,
			GroupBy:           domain.EntityOrigin,
			CountThreshold:    5,
			WindowMinutes:     10,
			Severity:          domain.SeverityHigh,
			RecommendedAction: domain.RemediationBlockOrigin,
		},
		{
			Name:              RuleRepeatedHighRisk,
			SourceStream:      signal.StreamHighRiskScore,
			GroupBy:           domain.EntitySubject,
			CountThreshold:    3,
			WindowMinutes:     60,
			Severity:          domain.SeverityHigh,
			RecommendedAction: domain.RemediationFlagSubject,
		},
		{
			Name:              RuleRateLimitAbuse,
			SourceStream:      signal.StreamRateLimitViolation,
			GroupBy:           domain.EntityOrigin,
			CountThreshold:    10,
			WindowMinutes:     5,
			Severity:          domain.SeverityMedium,
			RecommendedAction: domain.RemediationTightenAdmission,
		},
	}
}
