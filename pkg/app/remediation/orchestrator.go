package remediation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain"
	"github.com/NeuralTrust/TrustShield/pkg/domain/alert"
	"github.com/NeuralTrust/TrustShield/pkg/domain/correlation"
	"github.com/NeuralTrust/TrustShield/pkg/domain/response"
	"github.com/NeuralTrust/TrustShield/pkg/infra/eventsink"
	"github.com/NeuralTrust/TrustShield/pkg/infra/notifier"
	"github.com/NeuralTrust/TrustShield/pkg/infra/prometheus"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoPlaybook      = errors.New("no playbook matches item")
	ErrUnsupportedItem = errors.New("unsupported item type")
)

const defaultDrainBatchSize = 100

type Config struct {
	Routes         []response.Route
	DrainBatchSize int
	// PublishTimeout bounds one event sink publish. Zero uses the caller context.
	PublishTimeout time.Duration
}

//go:generate mockery --name=Orchestrator --dir=. --output=./mocks --filename=remediation_orchestrator_mock.go --case=underscore --with-expecter
type Orchestrator interface {
	// Dispatch runs the single playbook matching an *alert.Alert or a
	// *correlation.Finding and records the action log entry.
	Dispatch(ctx context.Context, item interface{}) (*response.ActionLog, error)
	// HandleAlerts exports fired alerts and dispatches those with a route.
	HandleAlerts(ctx context.Context, alerts []*alert.Alert) []response.ActionLog
	// HandleFindings exports new findings, dispatches them and closes the
	// ones whose playbook succeeded.
	HandleFindings(ctx context.Context, findings []*correlation.Finding) []response.ActionLog
	// DrainOpen dispatches findings still open and closes them.
	DrainOpen(ctx context.Context) (int, error)
}

type Option func(*orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *orchestrator) {
		o.now = now
	}
}

func WithPlaybook(remediation domain.Remediation, p Playbook) Option {
	return func(o *orchestrator) {
		o.playbooks[remediation] = p
	}
}

type orchestrator struct {
	playbooks  map[domain.Remediation]Playbook
	actionLogs response.ActionLogRepository
	findings   correlation.Repository
	sink       eventsink.Sink
	cfg        Config
	metrics    *prometheus.Metrics
	logger     *logrus.Logger
	now        func() time.Time
}

func NewOrchestrator(
	actionLogs response.ActionLogRepository,
	findings correlation.Repository,
	sink eventsink.Sink,
	cfg Config,
	metrics *prometheus.Metrics,
	logger *logrus.Logger,
	opts ...Option,
) Orchestrator {
	if sink == nil {
		sink = eventsink.NewNopSink()
	}
	if cfg.DrainBatchSize <= 0 {
		cfg.DrainBatchSize = defaultDrainBatchSize
	}
	o := &orchestrator{
		playbooks:  make(map[domain.Remediation]Playbook),
		actionLogs: actionLogs,
		findings:   findings,
		sink:       sink,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *orchestrator) Dispatch(ctx context.Context, item interface{}) (*response.ActionLog, error) {
	var (
		remediation domain.Remediation
		target      Target
	)
	switch v := item.(type) {
	case *alert.Alert:
		r, ok := o.routeAlert(v)
		if !ok {
			return nil, fmt.Errorf("%w: alert %s severity %s", ErrNoPlaybook, v.RuleName, v.Severity)
		}
		remediation, target = r, alertTarget(v)
	case *correlation.Finding:
		remediation, target = v.RecommendedAction, findingTarget(v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedItem, item)
	}

	playbook, ok := o.playbooks[remediation]
	if !ok {
		return nil, fmt.Errorf("%w: remediation %s", ErrNoPlaybook, remediation)
	}

	outcome, err := playbook.Execute(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("playbook %s: %w", playbook.Action(), err)
	}

	entry := &response.ActionLog{
		ID:          uuid.New(),
		ActionType:  playbook.Action(),
		Description: outcome.Description,
		SourceKind:  target.SourceKind,
		SourceID:    target.SourceID,
		ExecutedAt:  o.now(),
	}
	if err := o.actionLogs.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append action log: %w", err)
	}

	o.metrics.PlaybookExecutions.WithLabelValues(string(entry.ActionType), strconv.FormatBool(outcome.Changed)).Inc()
	o.logger.WithFields(logrus.Fields{
		"action":      entry.ActionType,
		"source_kind": entry.SourceKind,
		"source_id":   entry.SourceID,
		"changed":     outcome.Changed,
	}).Info(entry.Description)
	o.publish(ctx, eventsink.EventActionExecuted, entry.SourceID.String(), entry)
	return entry, nil
}

func (o *orchestrator) HandleAlerts(ctx context.Context, alerts []*alert.Alert) []response.ActionLog {
	var out []response.ActionLog
	for _, a := range alerts {
		o.publish(ctx, eventsink.EventAlertFired, a.ID.String(), a)
		entry, err := o.Dispatch(ctx, a)
		if err != nil {
			if errors.Is(err, ErrNoPlaybook) {
				continue
			}
			o.logger.WithError(err).WithField("alert_id", a.ID).Warn("alert dispatch failed")
			continue
		}
		out = append(out, *entry)
	}
	return out
}

func (o *orchestrator) HandleFindings(ctx context.Context, findings []*correlation.Finding) []response.ActionLog {
	var out []response.ActionLog
	for _, f := range findings {
		o.publish(ctx, eventsink.EventFindingCreated, f.ID.String(), f)
		entry, err := o.dispatchAndClose(ctx, f)
		if err != nil {
			o.logger.WithError(err).WithField("finding_id", f.ID).Warn("finding dispatch failed, left open")
		}
		if entry != nil {
			out = append(out, *entry)
		}
	}
	return out
}

func (o *orchestrator) DrainOpen(ctx context.Context) (int, error) {
	open, err := o.findings.ListOpen(ctx, o.cfg.DrainBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list open findings: %w", err)
	}
	closed := 0
	var errs []error
	for i := range open {
		if _, err := o.dispatchAndClose(ctx, &open[i]); err != nil {
			errs = append(errs, fmt.Errorf("finding %s: %w", open[i].ID, err))
			continue
		}
		closed++
	}
	return closed, errors.Join(errs...)
}

func (o *orchestrator) dispatchAndClose(ctx context.Context, f *correlation.Finding) (*response.ActionLog, error) {
	entry, err := o.Dispatch(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := o.findings.UpdateStatus(ctx, f.ID, correlation.StatusClosed); err != nil {
		return entry, fmt.Errorf("failed to close finding: %w", err)
	}
	f.Status = correlation.StatusClosed
	return entry, nil
}

func (o *orchestrator) routeAlert(a *alert.Alert) (domain.Remediation, bool) {
	for _, r := range o.cfg.Routes {
		if r.Matches(a.RuleName, a.Severity) {
			return r.Action, true
		}
	}
	return "", false
}

func (o *orchestrator) publish(ctx context.Context, eventType, key string, payload interface{}) {
	if o.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.PublishTimeout)
		defer cancel()
	}
	err := o.sink.Publish(ctx, eventsink.Event{
		Type:       eventType,
		Key:        key,
		OccurredAt: o.now(),
		Payload:    payload,
	})
	if err != nil {
		o.logger.WithError(err).WithFields(logrus.Fields{
			"sink":  o.sink.Name(),
			"event": eventType,
		}).Warn("failed to publish event")
	}
}

func alertTarget(a *alert.Alert) Target {
	return Target{
		SourceKind: response.SourceAlert,
		SourceID:   a.ID,
		RuleName:   a.RuleName,
		Severity:   a.Severity,
		Summary:    a.Message,
	}
}

func findingTarget(f *correlation.Finding) Target {
	return Target{
		SourceKind: response.SourceFinding,
		SourceID:   f.ID,
		RuleName:   f.RuleName,
		Severity:   f.Severity,
		Origin:     f.Origin(),
		Subject:    f.Subject(),
		Summary:    fmt.Sprintf("%s (%d matches)", f.RuleName, f.MatchCount),
	}
}

// WithStandardPlaybooks registers the four built-in playbooks.
func WithStandardPlaybooks(
	blocklist response.BlocklistRepository,
	flags response.FlaggedSubjectRepository,
	throttles response.ThrottleRepository,
	n notifier.Notifier,
	throttleFor time.Duration,
) Option {
	return func(o *orchestrator) {
		now := func() time.Time { return o.now() }
		o.playbooks[domain.RemediationBlockOrigin] = NewBlockOriginPlaybook(blocklist, now)
		o.playbooks[domain.RemediationFlagSubject] = NewFlagSubjectPlaybook(flags, now)
		o.playbooks[domain.RemediationTightenAdmission] = NewThrottleOriginPlaybook(throttles, throttleFor)
		o.playbooks[domain.RemediationEscalateToOperator] = NewNotifyOperatorPlaybook(n, now)
	}
}
