package correlator

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain"
	"github.com/NeuralTrust/TrustShield/pkg/domain/correlation"
	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
	"github.com/NeuralTrust/TrustShield/pkg/infra/database/types"
	"github.com/NeuralTrust/TrustShield/pkg/infra/prometheus"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

const defaultDedupCacheSize = 4096

type Config struct {
	// Timeout bounds one RunCycle.
	Timeout        time.Duration
	DedupCacheSize int
}

//go:generate mockery --name=Engine --dir=. --output=./mocks --filename=correlator_engine_mock.go --case=underscore --with-expecter
type Engine interface {
	// Correlate scans every rule's stream and records one finding per entity
	// group over threshold and firing bucket. windowMinutes > 0 replaces each
	// rule's own window. Only findings recorded by this call are returned.
	Correlate(ctx context.Context, windowMinutes int) []*correlation.Finding
	RunCycle(ctx context.Context) ([]*correlation.Finding, error)
	Rules() []correlation.Rule
}

type Option func(*engine)

func WithClock(now func() time.Time) Option {
	return func(e *engine) {
		e.now = now
	}
}

type engine struct {
	mu       sync.Mutex
	rules    []correlation.Rule
	streams  signal.StreamRepository
	findings correlation.Repository
	seen     *lru.Cache[uuid.UUID, struct{}]
	cfg      Config
	metrics  *prometheus.Metrics
	logger   *logrus.Logger
	now      func() time.Time
}

func NewEngine(
	rules []correlation.Rule,
	streams signal.StreamRepository,
	findings correlation.Repository,
	cfg Config,
	metrics *prometheus.Metrics,
	logger *logrus.Logger,
	opts ...Option,
) (Engine, error) {
	size := cfg.DedupCacheSize
	if size <= 0 {
		size = defaultDedupCacheSize
	}
	seen, err := lru.New[uuid.UUID, struct{}](size)
	if err != nil {
		return nil, err
	}
	e := &engine{
		rules:    append([]correlation.Rule(nil), rules...),
		streams:  streams,
		findings: findings,
		seen:     seen,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *engine) RunCycle(ctx context.Context) ([]*correlation.Finding, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	found := e.Correlate(ctx, 0)
	return found, ctx.Err()
}

func (e *engine) Correlate(ctx context.Context, windowMinutes int) []*correlation.Finding {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	var out []*correlation.Finding
	for _, rule := range e.rules {
		window := rule.Window()
		if windowMinutes > 0 {
			window = time.Duration(windowMinutes) * time.Minute
		}
		found, err := e.correlateRule(ctx, rule, window, now)
		if err != nil {
			e.logger.WithError(err).WithField("rule", rule.Name).Warn("correlation rule skipped this cycle")
			e.metrics.StoreFailures.WithLabelValues("correlation").Inc()
			continue
		}
		out = append(out, found...)
	}
	return out
}

func (e *engine) correlateRule(
	ctx context.Context,
	rule correlation.Rule,
	window time.Duration,
	now time.Time,
) ([]*correlation.Finding, error) {
	events, err := e.streams.ListEvents(ctx, rule.SourceStream, now.Add(-window), now)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]signal.StreamEvent)
	for _, ev := range events {
		entity, ok := entityOf(rule.GroupBy, ev)
		if !ok {
			continue
		}
		groups[entity] = append(groups[entity], ev)
	}

	entities := make([]string, 0, len(groups))
	for entity, evs := range groups {
		if len(evs) >= rule.CountThreshold {
			entities = append(entities, entity)
		}
	}
	sort.Strings(entities)

	bucket := correlation.Bucket(now, window)
	var out []*correlation.Finding
	for _, entity := range entities {
		id := correlation.FindingID(rule.Name, entity, bucket)
		if e.seen.Contains(id) {
			continue
		}

		f := newFinding(id, rule, entity, groups[entity], window, bucket, now)
		created, err := e.findings.SaveIfAbsent(ctx, f)
		if err != nil {
			return out, err
		}
		e.seen.Add(id, struct{}{})
		if !created {
			continue
		}
		e.metrics.FindingsCreated.WithLabelValues(rule.Name).Inc()
		e.logger.WithFields(logrus.Fields{
			"rule":        rule.Name,
			"entity":      entity,
			"match_count": f.MatchCount,
		}).Info("correlation finding recorded")
		out = append(out, f)
	}
	return out, nil
}

func newFinding(
	id uuid.UUID,
	rule correlation.Rule,
	entity string,
	events []signal.StreamEvent,
	window time.Duration,
	bucket time.Time,
	now time.Time,
) *correlation.Finding {
	ids := make(types.UUIDArray, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	return &correlation.Finding{
		ID:                id,
		RuleName:          rule.Name,
		Severity:          rule.Severity,
		MatchedEntities:   domain.EntitiesJSON{rule.GroupBy: entity},
		MatchCount:        len(events),
		RecommendedAction: rule.RecommendedAction,
		Status:            correlation.StatusOpen,
		Bucket:            bucket,
		SignalIDs:         ids,
		Metadata: domain.MetadataJSON{
			domain.MetaStream: string(rule.SourceStream),
			domain.MetaWindow: window.String(),
			domain.MetaBucket: bucket.Format(time.RFC3339),
		},
		CreatedAt: now,
	}
}

func entityOf(kind domain.EntityKind, ev signal.StreamEvent) (string, bool) {
	switch kind {
	case domain.EntityOrigin:
		return ev.OriginAddress, ev.OriginAddress != ""
	case domain.EntitySubject:
		if ev.SubjectID == nil {
			return "", false
		}
		return strconv.FormatInt(*ev.SubjectID, 10), true
	default:
		return "", false
	}
}

func (e *engine) Rules() []correlation.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]correlation.Rule(nil), e.rules...)
}
