package alerting

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain"
	"github.com/NeuralTrust/TrustShield/pkg/domain/alert"
	"github.com/NeuralTrust/TrustShield/pkg/infra/metricsource"
	"github.com/NeuralTrust/TrustShield/pkg/infra/prometheus"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// Cooldown suppresses a rule for this long after it fires. Zero re-fires
	// on every evaluation.
	Cooldown time.Duration
	// Timeout bounds one metrics snapshot.
	Timeout      time.Duration
	MetricSource string
}

//go:generate mockery --name=Engine --dir=. --output=./mocks --filename=alerting_engine_mock.go --case=underscore --with-expecter
type Engine interface {
	// Evaluate checks every rule against metrics and persists the alerts that fire.
	Evaluate(ctx context.Context, metrics map[string]float64) []*alert.Alert
	// RunCycle pulls a snapshot from the metrics provider and evaluates it.
	RunCycle(ctx context.Context) ([]*alert.Alert, error)
	Rules() []alert.Rule
}

type Option func(*engine)

func WithClock(now func() time.Time) Option {
	return func(e *engine) {
		e.now = now
	}
}

type engine struct {
	mu       sync.Mutex
	rules    []alert.Rule
	repo     alert.Repository
	provider metricsource.Provider
	cfg      Config
	metrics  *prometheus.Metrics
	logger   *logrus.Logger
	now      func() time.Time
}

func NewEngine(
	rules []alert.Rule,
	repo alert.Repository,
	provider metricsource.Provider,
	cfg Config,
	metrics *prometheus.Metrics,
	logger *logrus.Logger,
	opts ...Option,
) Engine {
	e := &engine{
		rules:    append([]alert.Rule(nil), rules...),
		repo:     repo,
		provider: provider,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engine) RunCycle(ctx context.Context) ([]*alert.Alert, error) {
	snapCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		snapCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	snapshot, err := e.provider.Snapshot(snapCtx)
	if err != nil {
		return nil, fmt.Errorf("metrics snapshot: %w", err)
	}
	return e.Evaluate(ctx, snapshot), nil
}

func (e *engine) Evaluate(ctx context.Context, metrics map[string]float64) []*alert.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var fired []*alert.Alert
	for i := range e.rules {
		rule := &e.rules[i]
		observed, ok := metrics[rule.MetricKey]
		if !ok {
			continue
		}
		matched, err := rule.Comparator.Compare(observed, rule.Threshold)
		if err != nil {
			e.logger.WithError(err).WithField("rule", rule.Name).Error("alert rule has an invalid comparator")
			continue
		}
		if !matched {
			continue
		}

		now := e.now()
		if e.coolingDown(rule, now) {
			e.logger.WithField("rule", rule.Name).Debug("alert suppressed by cooldown")
			continue
		}

		a := e.newAlert(rule, observed, now)
		if err := e.repo.Save(ctx, a); err != nil {
			e.logger.WithError(err).WithField("rule", rule.Name).Warn("failed to persist alert, skipping rule this cycle")
			e.metrics.StoreFailures.WithLabelValues("alerting").Inc()
			continue
		}
		rule.LastTriggered = &now
		e.metrics.AlertsFired.WithLabelValues(rule.Name, string(rule.Severity)).Inc()
		e.logger.WithFields(logrus.Fields{
			"rule":     rule.Name,
			"observed": observed,
			"severity": rule.Severity,
		}).Info("alert fired")
		fired = append(fired, a)
	}
	return fired
}

func (e *engine) coolingDown(rule *alert.Rule, now time.Time) bool {
	if e.cfg.Cooldown <= 0 || rule.LastTriggered == nil {
		return false
	}
	return now.Sub(*rule.LastTriggered) < e.cfg.Cooldown
}

func (e *engine) newAlert(rule *alert.Rule, observed float64, now time.Time) *alert.Alert {
	metadata := domain.MetadataJSON{
		domain.MetaComparator: rule.Comparator.Symbol(),
	}
	if e.cfg.MetricSource != "" {
		metadata[domain.MetaMetricSource] = e.cfg.MetricSource
	}
	if e.cfg.Cooldown > 0 {
		metadata[domain.MetaCooldown] = e.cfg.Cooldown.String()
	}
	return &alert.Alert{
		ID:            uuid.New(),
		RuleName:      rule.Name,
		MetricKey:     rule.MetricKey,
		ObservedValue: observed,
		Threshold:     rule.Threshold,
		Severity:      rule.Severity,
		Message: fmt.Sprintf("%s: %s is %s, threshold %s %s",
			rule.Name,
			rule.MetricKey,
			formatValue(observed),
			rule.Comparator.Symbol(),
			formatValue(rule.Threshold),
		),
		OccurredAt: now,
		Metadata:   metadata,
	}
}

func (e *engine) Rules() []alert.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]alert.Rule(nil), e.rules...)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
