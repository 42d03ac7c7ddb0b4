package alert

import (
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain"
)

var ErrUnknownComparator = errors.New("unknown comparator")

type Comparator string

const (
	GT  Comparator = "gt"
	LT  Comparator = "lt"
	GTE Comparator = "gte"
	LTE Comparator = "lte"
	EQ  Comparator = "eq"
)

func (c Comparator) Compare(observed, threshold float64) (bool, error) {
	switch c {
	case GT:
		return observed > threshold, nil
	case LT:
		return observed < threshold, nil
	case GTE:
		return observed >= threshold, nil
	case LTE:
		return observed <= threshold, nil
	case EQ:
		return observed == threshold, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownComparator, string(c))
	}
}

func (c Comparator) Symbol() string {
	switch c {
	case GT:
		return ">"
	case LT:
		return "<"
	case GTE:
		return ">="
	case LTE:
		return "<="
	case EQ:
		return "=="
	default:
		return string(c)
	}
}

// Rule is a static threshold check against one scalar metric.
type Rule struct {
	Name          string          `json:"name" yaml:"name"`
	MetricKey     string          `json:"metric_key" yaml:"metric_key"`
	Comparator    Comparator      `json:"comparator" yaml:"comparator"`
	Threshold     float64         `json:"threshold" yaml:"threshold"`
	Severity      domain.Severity `json:"severity" yaml:"severity"`
	LastTriggered *time.Time      `json:"last_triggered,omitempty" yaml:"-"`
}

func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: alert rule name is required", domain.ErrInvalidRule)
	}
	if r.MetricKey == "" {
		return fmt.Errorf("%w: alert rule %s requires metric_key", domain.ErrInvalidRule, r.Name)
	}
	if _, err := r.Comparator.Compare(0, 0); err != nil {
		return fmt.Errorf("%w: alert rule %s: %w", domain.ErrInvalidRule, r.Name, err)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("%w: alert rule %s has unknown severity %q", domain.ErrInvalidRule, r.Name, r.Severity)
	}
	return nil
}

const (
	MetricProcessingLag          = "event_processing_lag_seconds"
	MetricAPIErrorRate           = "api_error_rate"
	MetricSuspiciousTransactions = "suspicious_transaction_count"
)

// DefaultRules returns the reference rule set.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "high_processing_lag",
			MetricKey:  MetricProcessingLag,
			Comparator: GT,
			Threshold:  300,
			Severity:   domain.SeverityHigh,
		},
		{
			Name:       "elevated_api_error_rate",
			MetricKey:  MetricAPIErrorRate,
			Comparator: GT,
			Threshold:  0.05,
			Severity:   domain.SeverityMedium,
		},
		{
			Name:       "suspicious_transaction_spike",
			MetricKey:  MetricSuspiciousTransactions,
			Comparator: GTE,
			Threshold:  10,
			Severity:   domain.SeverityHigh,
		},
	}
}
