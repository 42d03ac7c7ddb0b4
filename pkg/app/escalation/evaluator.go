package escalation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/account"
	"github.com/NeuralTrust/TrustShield/pkg/domain/ban"
	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
	"github.com/NeuralTrust/TrustShield/pkg/infra/keylock"
	"github.com/NeuralTrust/TrustShield/pkg/infra/prometheus"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Action string

const (
	ActionNone      Action = "none"
	ActionSuspended Action = "suspended"
	ActionBanned    Action = "banned"
)

// Result is the escalation outcome for one signal. Err is set when a backing
// store failed; Action is then None.
type Result struct {
	Action       Action `json:"action"`
	SubjectCount int64  `json:"subject_count"`
	OriginCount  int64  `json:"origin_count"`
	Err          error  `json:"-"`
}

type Config struct {
	SuspendThreshold int64
	BanThreshold     int64
	OriginBanWindow  time.Duration
	// StoreTimeout bounds the whole evaluation of one signal. Zero disables it.
	StoreTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		SuspendThreshold: 2,
		BanThreshold:     10,
		OriginBanWindow:  24 * time.Hour,
		StoreTimeout:     2 * time.Second,
	}
}

//go:generate mockery --name=Evaluator --dir=. --output=./mocks --filename=escalation_evaluator_mock.go --case=underscore --with-expecter
type Evaluator interface {
	// RecordSignalAndEvaluate appends the signal and applies the escalation
	// policy for its subject or origin. It never panics or fails the caller.
	RecordSignalAndEvaluate(ctx context.Context, s *signal.ThreatSignal) Result
	SubjectState(ctx context.Context, subjectID int64) (*account.SecurityState, error)
	OriginState(ctx context.Context, origin string) (*account.OriginState, error)
}

type Option func(*evaluator)

func WithClock(now func() time.Time) Option {
	return func(e *evaluator) {
		e.now = now
	}
}

type evaluator struct {
	signals  signal.Repository
	accounts account.Repository
	bans     ban.Repository
	cfg      Config
	locks    *keylock.Locker
	metrics  *prometheus.Metrics
	logger   *logrus.Logger
	now      func() time.Time
}

func NewEvaluator(
	signals signal.Repository,
	accounts account.Repository,
	bans ban.Repository,
	cfg Config,
	metrics *prometheus.Metrics,
	logger *logrus.Logger,
	opts ...Option,
) Evaluator {
	e := &evaluator{
		signals:  signals,
		accounts: accounts,
		bans:     bans,
		cfg:      cfg,
		locks:    keylock.New(),
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *evaluator) RecordSignalAndEvaluate(ctx context.Context, s *signal.ThreatSignal) (res Result) {
	kind := "origin"
	defer func() {
		if r := recover(); r != nil {
			res = Result{Action: ActionNone, Err: fmt.Errorf("panic recovered: %v", r)}
			e.logger.WithField("panic", r).Error("escalation evaluation panicked")
		}
		if res.Err != nil {
			e.metrics.StoreFailures.WithLabelValues("escalation").Inc()
		}
		e.metrics.EscalationOutcomes.WithLabelValues(kind, string(res.Action)).Inc()
	}()

	if s == nil || !s.Category.Qualifies() || (s.SubjectID == nil && s.OriginAddress == "") {
		return Result{Action: ActionNone}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.OccurredAt.IsZero() {
		s.OccurredAt = e.now()
	}

	if e.cfg.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.StoreTimeout)
		defer cancel()
	}

	if s.Authenticated() {
		kind = "subject"
		unlock := e.locks.Lock("subject:" + strconv.FormatInt(*s.SubjectID, 10))
		defer unlock()
		res = e.evaluateSubject(ctx, s)
	} else {
		unlock := e.locks.Lock("origin:" + s.OriginAddress)
		defer unlock()
		res = e.evaluateOrigin(ctx, s)
	}

	if res.Err != nil {
		e.logger.WithError(res.Err).WithFields(logrus.Fields{
			"category": s.Category,
			"origin":   s.OriginAddress,
		}).Warn("escalation evaluation degraded to no action")
	}
	return res
}

func (e *evaluator) evaluateSubject(ctx context.Context, s *signal.ThreatSignal) Result {
	subjectID := *s.SubjectID
	if err := e.signals.Append(ctx, s); err != nil {
		return Result{Action: ActionNone, Err: err}
	}

	acct, err := e.accounts.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			e.logger.WithField("subject_id", subjectID).Debug("signal for unknown subject ignored")
			return Result{Action: ActionNone}
		}
		return Result{Action: ActionNone, Err: err}
	}
	if acct.IsPrivileged() {
		return Result{Action: ActionNone}
	}

	count, err := e.signals.CountBySubject(ctx, subjectID)
	if err != nil {
		return Result{Action: ActionNone, Err: err}
	}
	res := Result{Action: ActionNone, SubjectCount: count}

	now := e.now()
	if count >= e.cfg.BanThreshold {
		existing, err := e.bans.FindActive(ctx, ban.SubjectAccount, ban.AccountKey(subjectID), now)
		if err != nil {
			res.Err = err
			return res
		}
		if existing != nil {
			if acct.IsActive {
				if _, err := e.accounts.Deactivate(ctx, subjectID); err != nil {
					res.Err = err
					return res
				}
				e.logger.WithField("subject_id", subjectID).Warn("banned account was active, deactivated")
			}
			return res
		}
		reason := fmt.Sprintf("%d qualifying attack signals (threshold %d)", count, e.cfg.BanThreshold)
		created, err := e.bans.CreateIfAbsent(ctx, ban.NewPermanentAccountBan(subjectID, reason, now))
		if err != nil {
			res.Err = err
			return res
		}
		if !created {
			return res
		}
		// The ban row stays. The next signal for this subject finds it and retries the deactivation.
		if _, err := e.accounts.Deactivate(ctx, subjectID); err != nil {
			res.Err = err
			return res
		}
		res.Action = ActionBanned
		e.logger.WithFields(logrus.Fields{
			"subject_id": subjectID,
			"count":      count,
		}).Warn("account banned")
		return res
	}

	if count >= e.cfg.SuspendThreshold && acct.IsActive {
		changed, err := e.accounts.Deactivate(ctx, subjectID)
		if err != nil {
			res.Err = err
			return res
		}
		if changed {
			res.Action = ActionSuspended
			e.logger.WithFields(logrus.Fields{
				"subject_id": subjectID,
				"count":      count,
			}).Warn("account suspended")
		}
	}
	return res
}

func (e *evaluator) evaluateOrigin(ctx context.Context, s *signal.ThreatSignal) Result {
	if err := e.signals.Append(ctx, s); err != nil {
		return Result{Action: ActionNone, Err: err}
	}

	now := e.now()
	count, err := e.signals.CountUnauthenticatedByOrigin(ctx, s.OriginAddress, now.Add(-e.cfg.OriginBanWindow))
	if err != nil {
		return Result{Action: ActionNone, Err: err}
	}
	res := Result{Action: ActionNone, OriginCount: count}
	if count < e.cfg.BanThreshold {
		return res
	}

	existing, err := e.bans.FindActive(ctx, ban.SubjectOrigin, ban.OriginKey(s.OriginAddress), now)
	if err != nil {
		res.Err = err
		return res
	}
	if existing != nil {
		return res
	}
	reason := fmt.Sprintf("%d unauthenticated attack signals in %s (threshold %d)", count, e.cfg.OriginBanWindow, e.cfg.BanThreshold)
	created, err := e.bans.CreateIfAbsent(ctx, ban.NewPermanentOriginBan(s.OriginAddress, reason, now))
	if err != nil {
		res.Err = err
		return res
	}
	if created {
		res.Action = ActionBanned
		e.logger.WithFields(logrus.Fields{
			"origin": s.OriginAddress,
			"count":  count,
		}).Warn("origin banned")
	}
	return res
}

func (e *evaluator) SubjectState(ctx context.Context, subjectID int64) (*account.SecurityState, error) {
	acct, err := e.accounts.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	count, err := e.signals.CountBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	active, err := e.bans.FindActive(ctx, ban.SubjectAccount, ban.AccountKey(subjectID), e.now())
	if err != nil {
		return nil, err
	}

	status := account.StatusActive
	switch {
	case active != nil:
		status = account.StatusBanned
	case !acct.IsActive:
		status = account.StatusSuspended
	}
	return &account.SecurityState{
		SubjectID:             subjectID,
		CumulativeAttackCount: count,
		IsPrivileged:          acct.IsPrivileged(),
		CurrentStatus:         status,
	}, nil
}

func (e *evaluator) OriginState(ctx context.Context, origin string) (*account.OriginState, error) {
	now := e.now()
	count, err := e.signals.CountUnauthenticatedByOrigin(ctx, origin, now.Add(-e.cfg.OriginBanWindow))
	if err != nil {
		return nil, err
	}
	active, err := e.bans.FindActive(ctx, ban.SubjectOrigin, ban.OriginKey(origin), now)
	if err != nil {
		return nil, err
	}
	status := account.StatusActive
	if active != nil {
		status = account.StatusBanned
	}
	return &account.OriginState{
		OriginAddress:       origin,
		WindowedAttackCount: count,
		CurrentStatus:       status,
	}, nil
}
