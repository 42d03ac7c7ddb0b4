package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUnknownJob   = errors.New("unknown job")
	ErrDuplicateJob = errors.New("job already registered")
	ErrInvalidJob   = errors.New("invalid job")
)

const (
	JobAlerting      = "alerting"
	JobCorrelation   = "correlation"
	JobResponseDrain = "response_drain"
)

// Job is one background engine cycle run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds one cycle. Zero leaves the cycle unbounded.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

//go:generate mockery --name=Scheduler --dir=. --output=./mocks --filename=scheduler_mock.go --case=underscore --with-expecter
type Scheduler interface {
	Register(job Job) error
	// Start runs every job until ctx is cancelled.
	Start(ctx context.Context) error
	// Trigger runs a cycle now. It reports false when it joined a cycle of
	// the same job already in flight. The cycle outlives ctx and is bounded
	// by the job timeout and the scheduler lifetime.
	Trigger(ctx context.Context, name string) (bool, error)
	Jobs() []string
}

type scheduler struct {
	mu      sync.RWMutex
	jobs    map[string]Job
	flight  singleflight.Group
	metrics *prometheus.Metrics
	logger  *logrus.Logger
	// stopped is cancelled once Start returns and aborts every in-flight cycle.
	stopped context.Context
	stop    context.CancelFunc
}

func New(metrics *prometheus.Metrics, logger *logrus.Logger) Scheduler {
	stopped, stop := context.WithCancel(context.Background())
	return &scheduler{
		jobs:    make(map[string]Job),
		metrics: metrics,
		logger:  logger,
		stopped: stopped,
		stop:    stop,
	}
}

func (s *scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidJob, job.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	s.jobs[job.Name] = job
	return nil
}

func (s *scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *scheduler) Start(ctx context.Context) error {
	s.mu.RLock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.RUnlock()

	release := context.AfterFunc(ctx, s.stop)
	defer release()

	g, ctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			s.loop(ctx, job)
			return nil
		})
	}
	return g.Wait()
}

func (s *scheduler) loop(ctx context.Context, job Job) {
	s.logger.WithFields(logrus.Fields{
		"job":      job.Name,
		"interval": job.Interval,
	}).Info("scheduled job started")

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.WithField("job", job.Name).Info("scheduled job stopped")
			return
		case <-ticker.C:
			if _, err := s.run(ctx, job); err != nil {
				s.logger.WithError(err).WithField("job", job.Name).Warn("scheduled cycle failed")
			}
		}
	}
}

func (s *scheduler) Trigger(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, job)
}

func (s *scheduler) run(ctx context.Context, job Job) (bool, error) {
	executed := false
	_, err, _ := s.flight.Do(job.Name, func() (interface{}, error) {
		executed = true
		return nil, s.cycle(ctx, job)
	})
	if !executed {
		s.metrics.CycleSkipped.WithLabelValues(job.Name).Inc()
		s.logger.WithField("job", job.Name).Debug("cycle already in flight, joined it")
	}
	return executed, err
}

func (s *scheduler) cycle(parent context.Context, job Job) (err error) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	defer cancel()
	release := context.AfterFunc(s.stopped, cancel)
	defer release()

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic recovered: %v", r)
		}
		s.metrics.CycleDuration.WithLabelValues(job.Name).Observe(time.Since(start).Seconds())
	}()
	return job.Run(ctx)
}
