package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/response"
	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
	"github.com/NeuralTrust/TrustShield/pkg/infra/prometheus"
	store "github.com/NeuralTrust/TrustShield/pkg/infra/ratelimit"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultClass = "default"

type Class struct {
	Limit  int
	Window time.Duration
}

type Config struct {
	Classes map[string]Class
	// ThrottleDivisor divides a class limit while the identifier is throttled.
	ThrottleDivisor int
	StoreTimeout    time.Duration
}

// Info describes the window state after an admission attempt.
type Info struct {
	Limit             int  `json:"limit"`
	CurrentCount      int  `json:"current_count"`
	Remaining         int  `json:"remaining"`
	RetryAfterSeconds int  `json:"retry_after_seconds"`
	Throttled         bool `json:"throttled"`
}

//go:generate mockery --name=Limiter --dir=. --output=./mocks --filename=ratelimit_limiter_mock.go --case=underscore --with-expecter
type Limiter interface {
	// CheckAndConsume records one request for identifier when the trailing
	// window has room. Store failures admit the request.
	CheckAndConsume(ctx context.Context, identifier string, limit int, windowSeconds int) (bool, Info)
	// CheckClass applies the configured limit of an endpoint class, reduced
	// while a throttle flag is set for identifier.
	CheckClass(ctx context.Context, identifier string, class string) (bool, Info)
}

type Option func(*limiter)

func WithClock(now func() time.Time) Option {
	return func(l *limiter) {
		l.now = now
	}
}

type limiter struct {
	store     store.Store
	streams   signal.StreamRepository
	throttles response.ThrottleRepository
	cfg       Config
	metrics   *prometheus.Metrics
	logger    *logrus.Logger
	now       func() time.Time
}

func NewLimiter(
	s store.Store,
	streams signal.StreamRepository,
	throttles response.ThrottleRepository,
	cfg Config,
	metrics *prometheus.Metrics,
	logger *logrus.Logger,
	opts ...Option,
) Limiter {
	if cfg.ThrottleDivisor < 1 {
		cfg.ThrottleDivisor = 1
	}
	l := &limiter{
		store:     s,
		streams:   streams,
		throttles: throttles,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *limiter) CheckAndConsume(ctx context.Context, identifier string, limit int, windowSeconds int) (bool, Info) {
	return l.admit(ctx, identifier, identifier, "custom", limit, time.Duration(windowSeconds)*time.Second)
}

func (l *limiter) CheckClass(ctx context.Context, identifier string, class string) (bool, Info) {
	c, ok := l.cfg.Classes[class]
	if !ok {
		class = DefaultClass
		c = l.cfg.Classes[DefaultClass]
	}

	limit := c.Limit
	throttled := l.isThrottled(ctx, identifier)
	if throttled {
		limit = ThrottledLimit(limit, l.cfg.ThrottleDivisor)
	}

	allowed, info := l.admit(ctx, identifier, class+":"+identifier, class, limit, c.Window)
	info.Throttled = throttled
	return allowed, info
}

// ThrottledLimit is the reduced limit applied while an identifier is throttled.
func ThrottledLimit(limit, divisor int) int {
	if divisor < 1 {
		divisor = 1
	}
	reduced := limit / divisor
	if reduced < 1 {
		return 1
	}
	return reduced
}

func (l *limiter) admit(
	ctx context.Context,
	identifier string,
	key string,
	class string,
	limit int,
	window time.Duration,
) (bool, Info) {
	if window <= 0 {
		l.logger.WithFields(logrus.Fields{
			"identifier": identifier,
			"class":      class,
		}).Debug("non positive rate limit window, admitting")
		l.metrics.AdmissionDecisions.WithLabelValues(class, "fail_open").Inc()
		return true, Info{Limit: limit, Remaining: limit}
	}
	if limit <= 0 {
		l.metrics.AdmissionDecisions.WithLabelValues(class, "denied").Inc()
		return false, Info{Limit: limit, RetryAfterSeconds: ceilSeconds(window)}
	}

	storeCtx, cancel := l.withTimeout(ctx)
	defer cancel()

	now := l.now()
	decision, err := l.store.Admit(storeCtx, key, limit, window, now)
	if err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{
			"identifier": identifier,
			"class":      class,
		}).Warn("rate limit store unavailable, admitting request")
		l.metrics.StoreFailures.WithLabelValues("ratelimit").Inc()
		l.metrics.AdmissionDecisions.WithLabelValues(class, "fail_open").Inc()
		return true, Info{Limit: limit, Remaining: limit}
	}

	info := Info{
		Limit:        limit,
		CurrentCount: decision.Count,
		Remaining:    max(limit-decision.Count, 0),
	}
	if decision.Allowed {
		l.metrics.AdmissionDecisions.WithLabelValues(class, "allowed").Inc()
		return true, info
	}

	info.RetryAfterSeconds = ceilSeconds(decision.RetryAfter)
	l.metrics.AdmissionDecisions.WithLabelValues(class, "denied").Inc()
	l.recordViolation(storeCtx, identifier, now)
	return false, info
}

func (l *limiter) recordViolation(ctx context.Context, identifier string, now time.Time) {
	if l.streams == nil {
		return
	}
	ev := &signal.StreamEvent{
		ID:            uuid.New(),
		Stream:        signal.StreamRateLimitViolation,
		OriginAddress: identifier,
		OccurredAt:    now,
	}
	if err := l.streams.AppendEvent(ctx, ev); err != nil {
		l.logger.WithError(err).WithField("identifier", identifier).Warn("failed to record rate limit violation")
		l.metrics.StoreFailures.WithLabelValues("ratelimit").Inc()
	}
}

func (l *limiter) isThrottled(ctx context.Context, identifier string) bool {
	if l.throttles == nil {
		return false
	}
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()
	throttled, err := l.throttles.IsThrottled(ctx, identifier)
	if err != nil {
		l.logger.WithError(err).WithField("identifier", identifier).Warn("throttle lookup failed, using normal limit")
		l.metrics.StoreFailures.WithLabelValues("throttle").Inc()
		return false
	}
	return throttled
}

func (l *limiter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.cfg.StoreTimeout)
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
