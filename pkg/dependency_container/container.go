package dependency_container

import (
	"context"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/app/alerting"
	"github.com/NeuralTrust/TrustShield/pkg/app/correlator"
	"github.com/NeuralTrust/TrustShield/pkg/app/escalation"
	"github.com/NeuralTrust/TrustShield/pkg/app/ingest"
	"github.com/NeuralTrust/TrustShield/pkg/app/ratelimit"
	"github.com/NeuralTrust/TrustShield/pkg/app/remediation"
	"github.com/NeuralTrust/TrustShield/pkg/app/scheduler"
	"github.com/NeuralTrust/TrustShield/pkg/config"
	"github.com/NeuralTrust/TrustShield/pkg/domain/account"
	"github.com/NeuralTrust/TrustShield/pkg/domain/alert"
	"github.com/NeuralTrust/TrustShield/pkg/domain/ban"
	"github.com/NeuralTrust/TrustShield/pkg/domain/correlation"
	"github.com/NeuralTrust/TrustShield/pkg/domain/response"
	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
	handlers "github.com/NeuralTrust/TrustShield/pkg/handlers/http"
	"github.com/NeuralTrust/TrustShield/pkg/infra/cache"
	"github.com/NeuralTrust/TrustShield/pkg/infra/database"
	"github.com/NeuralTrust/TrustShield/pkg/infra/eventsink"
	"github.com/NeuralTrust/TrustShield/pkg/infra/httpx"
	"github.com/NeuralTrust/TrustShield/pkg/infra/metricsource"
	_ "github.com/NeuralTrust/TrustShield/pkg/infra/migrations"
	"github.com/NeuralTrust/TrustShield/pkg/infra/notifier"
	"github.com/NeuralTrust/TrustShield/pkg/infra/prometheus"
	store "github.com/NeuralTrust/TrustShield/pkg/infra/ratelimit"
	"github.com/NeuralTrust/TrustShield/pkg/infra/repository"
	"github.com/NeuralTrust/TrustShield/pkg/infra/repository/memory"
	"github.com/NeuralTrust/TrustShield/pkg/middleware"
	"github.com/sirupsen/logrus"
)

const (
	metricSourcePrometheus = "prometheus"
	metricSourceStatic     = "static"

	breakerTimeout     = 30 * time.Second
	breakerMaxFailures = 5
)

type Container struct {
	Metrics             *prometheus.Metrics
	Rules               config.RuleSet
	Evaluator           escalation.Evaluator
	Limiter             ratelimit.Limiter
	Guard               ratelimit.Guard
	AlertEngine         alerting.Engine
	CorrelationEngine   correlator.Engine
	Orchestrator        remediation.Orchestrator
	Ingest              ingest.Service
	Scheduler           scheduler.Scheduler
	HandlerTransport    handlers.HandlerTransport
	MiddlewareTransport middleware.Transport

	closers []func() error
}

type ContainerDI struct {
	Cfg    *config.Config
	Logger *logrus.Logger
	// Metrics defaults to a registry with process collectors.
	Metrics *prometheus.Metrics
	// MetricSource overrides the alert metric provider built from config.
	MetricSource metricsource.Provider
}

type repositories struct {
	signals    signal.Repository
	streams    signal.StreamRepository
	accounts   account.Repository
	bans       ban.Repository
	alerts     alert.Repository
	findings   correlation.Repository
	actionLogs response.ActionLogRepository
	blocklist  response.BlocklistRepository
	flags      response.FlaggedSubjectRepository
	throttles  response.ThrottleRepository
}

func NewContainer(ctx context.Context, di ContainerDI) (*Container, error) {
	cfg := di.Cfg
	logger := di.Logger
	c := &Container{Metrics: di.Metrics}
	if c.Metrics == nil {
		c.Metrics = prometheus.NewMetrics(true)
	}

	rules, err := config.LoadRules(cfg.Security.RulesFile)
	if err != nil {
		return nil, err
	}
	c.Rules = rules

	var cacheClient cache.Client
	if cfg.Redis.Host != "" {
		cacheClient, err = cache.NewClient(cache.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TLS:      cfg.Redis.TLS,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		c.closers = append(c.closers, cacheClient.RedisClient().Close)
	}

	repos, err := c.buildRepositories(ctx, cfg, cacheClient, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	var windowStore store.Store
	if cacheClient != nil {
		windowStore = store.NewRedisStore(cacheClient.RedisClient())
	} else {
		logger.Warn("redis is not configured, admission windows are kept in process memory")
		windowStore = store.NewMemoryStore()
	}

	provider := di.MetricSource
	sourceName := metricSourceStatic
	if provider == nil && cfg.Security.Alerting.PrometheusURL != "" {
		provider, err = metricsource.NewPrometheusProvider(
			cfg.Security.Alerting.PrometheusURL,
			cfg.Security.Alerting.MetricQueries,
			httpx.NewCircuitBreaker("prometheus", breakerTimeout, breakerMaxFailures, httpx.WithStateLogger(logger)),
			logger,
		)
		if err != nil {
			c.Close()
			return nil, err
		}
		sourceName = metricSourcePrometheus
	}
	if provider == nil {
		logger.Warn("no prometheus_url configured, alert rules evaluate against a static metric source")
		provider = metricsource.NewStaticProvider(nil)
	}

	sink, err := buildSink(cfg.Security.Sink, cacheClient)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.closers = append(c.closers, func() error { sink.Close(); return nil })

	operatorNotifier := notifier.NewLogNotifier(logger)
	if hook := cfg.Security.Response.OperatorWebhook; hook != "" {
		operatorNotifier = notifier.NewMulti(
			operatorNotifier,
			notifier.NewWebhookNotifier(
				hook,
				httpx.NewFastHTTPClient(),
				httpx.NewCircuitBreaker("operator-webhook", breakerTimeout, breakerMaxFailures, httpx.WithStateLogger(logger)),
			),
		)
	}

	esc := cfg.Security.Escalation
	c.Evaluator = escalation.NewEvaluator(
		repos.signals,
		repos.accounts,
		repos.bans,
		escalation.Config{
			SuspendThreshold: esc.SuspendThreshold,
			BanThreshold:     esc.BanThreshold,
			OriginBanWindow:  esc.OriginBanWindow,
			StoreTimeout:     esc.StoreTimeout,
		},
		c.Metrics,
		logger,
	)

	rl := cfg.Security.RateLimit
	classes := make(map[string]ratelimit.Class, len(rl.Classes))
	for name, class := range rl.Classes {
		classes[name] = ratelimit.Class{Limit: class.Limit, Window: class.Window}
	}
	c.Limiter = ratelimit.NewLimiter(
		windowStore,
		repos.streams,
		repos.throttles,
		ratelimit.Config{
			Classes:         classes,
			ThrottleDivisor: rl.ThrottleDivisor,
			StoreTimeout:    rl.StoreTimeout,
		},
		c.Metrics,
		logger,
	)
	c.Guard = ratelimit.NewGuard(repos.blocklist, repos.bans, logger)

	al := cfg.Security.Alerting
	c.AlertEngine = alerting.NewEngine(
		rules.AlertRules,
		repos.alerts,
		provider,
		alerting.Config{Cooldown: al.Cooldown, Timeout: al.Timeout, MetricSource: sourceName},
		c.Metrics,
		logger,
	)

	co := cfg.Security.Correlation
	c.CorrelationEngine, err = correlator.NewEngine(
		rules.CorrelationRules,
		repos.streams,
		repos.findings,
		correlator.Config{Timeout: co.Timeout, DedupCacheSize: co.DedupCacheSize},
		c.Metrics,
		logger,
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize correlation engine: %w", err)
	}

	resp := cfg.Security.Response
	c.Orchestrator = remediation.NewOrchestrator(
		repos.actionLogs,
		repos.findings,
		sink,
		remediation.Config{Routes: rules.AlertRoutes, DrainBatchSize: resp.DrainBatchSize},
		c.Metrics,
		logger,
		remediation.WithStandardPlaybooks(repos.blocklist, repos.flags, repos.throttles, operatorNotifier, rl.ThrottleDuration),
	)

	c.Ingest = ingest.NewService(
		c.Evaluator,
		repos.streams,
		ingest.Config{HighRiskScoreThreshold: cfg.Security.Signals.HighRiskScoreThreshold},
		logger,
	)

	c.Scheduler = scheduler.New(c.Metrics, logger)
	jobs := []scheduler.Job{
		scheduler.AlertingJob(c.AlertEngine, c.Orchestrator, al.Interval, al.Timeout),
		scheduler.CorrelationJob(c.CorrelationEngine, c.Orchestrator, co.Interval, co.Timeout),
		scheduler.DrainJob(c.Orchestrator, resp.DrainInterval, resp.Timeout),
	}
	for _, job := range jobs {
		if err := c.Scheduler.Register(job); err != nil {
			c.Close()
			return nil, err
		}
	}

	c.MiddlewareTransport = middleware.Transport{
		PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
		AdmissionMiddleware:    middleware.NewAdmissionMiddleware(c.Limiter, c.Guard, rl.OperatorClass, logger),
	}

	c.HandlerTransport = handlers.HandlerTransport{
		RecordSignalHandler:      handlers.NewRecordSignalHandler(logger, c.Ingest),
		RecordStreamEventHandler: handlers.NewRecordStreamEventHandler(logger, c.Ingest),
		CheckAdmissionHandler:    handlers.NewCheckAdmissionHandler(logger, c.Limiter),
		GetSubjectStateHandler:   handlers.NewGetSubjectStateHandler(logger, c.Evaluator),
		GetOriginStateHandler:    handlers.NewGetOriginStateHandler(logger, c.Evaluator),
		ListRulesHandler:         handlers.NewListRulesHandler(c.AlertEngine, c.CorrelationEngine, rules.AlertRoutes),
		RunJobHandler:            handlers.NewRunJobHandler(logger, c.Scheduler),
		GetVersionHandler:        handlers.NewGetVersionHandler(),
	}

	return c, nil
}

func (c *Container) buildRepositories(
	ctx context.Context,
	cfg *config.Config,
	cacheClient cache.Client,
	logger *logrus.Logger,
) (*repositories, error) {
	repos := &repositories{}
	if cacheClient != nil {
		repos.throttles = repository.NewRedisThrottleRepository(cacheClient)
	} else {
		repos.throttles = memory.NewThrottleRepository(time.Now)
	}

	if cfg.Storage.Driver == "memory" {
		logger.Warn("using in-memory storage, state is lost on restart")
		repos.signals = memory.NewSignalRepository()
		repos.streams = memory.NewStreamRepository()
		repos.accounts = memory.NewAccountRepository()
		repos.bans = memory.NewBanRepository()
		repos.alerts = memory.NewAlertRepository()
		repos.findings = memory.NewFindingRepository()
		repos.actionLogs = memory.NewActionLogRepository()
		repos.blocklist = memory.NewBlocklistRepository()
		repos.flags = memory.NewFlaggedSubjectRepository()
		return repos, nil
	}

	db, err := database.NewDB(ctx, logger, &database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, db.Close)

	repos.signals = repository.NewSignalRepository(db.DB)
	repos.streams = repository.NewStreamRepository(db.DB)
	repos.accounts = repository.NewAccountRepository(db.DB)
	repos.bans = repository.NewBanRepository(db.DB)
	repos.alerts = repository.NewAlertRepository(db.DB)
	repos.findings = repository.NewFindingRepository(db.DB)
	repos.actionLogs = repository.NewActionLogRepository(db.DB)
	repos.blocklist = repository.NewBlocklistRepository(db.DB)
	repos.flags = repository.NewFlaggedSubjectRepository(db.DB)
	return repos, nil
}

func buildSink(cfg config.SinkConfig, cacheClient cache.Client) (eventsink.Sink, error) {
	opts := []eventsink.LocatorOption{eventsink.WithSink(eventsink.NewKafkaSink())}
	if cacheClient != nil {
		opts = append(opts, eventsink.WithSink(eventsink.NewRedisSink(cacheClient)))
	}
	sink, err := eventsink.NewLocator(opts...).GetSink(cfg.Driver, cfg.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event sink: %w", err)
	}
	return sink, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
	c.closers = nil
}
