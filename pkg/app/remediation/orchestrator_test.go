package remediation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/app/correlator"
	"github.com/NeuralTrust/TrustShield/pkg/domain"
	"github.com/NeuralTrust/TrustShield/pkg/domain/alert"
	"github.com/NeuralTrust/TrustShield/pkg/domain/correlation"
	"github.com/NeuralTrust/TrustShield/pkg/domain/response"
	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
	"github.com/NeuralTrust/TrustShield/pkg/infra/eventsink"
	"github.com/NeuralTrust/TrustShield/pkg/infra/notifier"
	"github.com/NeuralTrust/TrustShield/pkg/infra/prometheus"
	"github.com/NeuralTrust/TrustShield/pkg/infra/repository/memory"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) ValidateConfig(map[string]interface{}) error { return nil }

func (m *mockSink) WithSettings(map[string]interface{}) (eventsink.Sink, error) { return m, nil }

func (m *mockSink) Publish(ctx context.Context, evt eventsink.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *mockSink) Close() {}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n notifier.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type orchestratorFixture struct {
	orchestrator Orchestrator
	actionLogs   *memory.ActionLogRepository
	findings     *memory.FindingRepository
	blocklist    *memory.BlocklistRepository
	flags        *memory.FlaggedSubjectRepository
	throttles    *memory.ThrottleRepository
	sink         *mockSink
	notifier     *mockNotifier
	now          time.Time
}

func setupOrchestrator(t *testing.T) *orchestratorFixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	f := &orchestratorFixture{
		actionLogs: memory.NewActionLogRepository(),
		findings:   memory.NewFindingRepository(),
		blocklist:  memory.NewBlocklistRepository(),
		flags:      memory.NewFlaggedSubjectRepository(),
		sink:       new(mockSink),
		notifier:   new(mockNotifier),
		now:        time.Date(2026, 10, 1, 10, 7, 0, 0, time.UTC),
	}
	f.throttles = memory.NewThrottleRepository(func() time.Time { return f.now })
	f.sink.On("Publish", mock.Anything, mock.Anything).Return(nil)

	f.orchestrator = NewOrchestrator(
		f.actionLogs,
		f.findings,
		f.sink,
		Config{Routes: response.DefaultRoutes(), PublishTimeout: time.Second},
		prometheus.NewNopMetrics(),
		logger,
		WithClock(func() time.Time { return f.now }),
		WithStandardPlaybooks(f.blocklist, f.flags, f.throttles, f.notifier, time.Hour),
	)
	return f
}

func originFinding(rule string, action domain.Remediation, origin string) *correlation.Finding {
	return &correlation.Finding{
		ID:                uuid.New(),
		RuleName:          rule,
		Severity:          domain.SeverityHigh,
		MatchedEntities:   domain.EntitiesJSON{domain.EntityOrigin: origin},
		MatchCount:        6,
		RecommendedAction: action,
		Status:            correlation.StatusOpen,
		CreatedAt:         time.Now(),
	}
}

func TestOrchestrator_BlockOriginIsIdempotent(t *testing.T) {
	f := setupOrchestrator(t)
	finding := originFinding(correlation.RuleRapidFailedLogins, domain.RemediationBlockOrigin, "203.0.113.7")

	first, err := f.orchestrator.Dispatch(context.Background(), finding)
	require.NoError(t, err)
	second, err := f.orchestrator.Dispatch(context.Background(), finding)
	require.NoError(t, err)

	assert.Equal(t, response.ActionBlockOrigin, first.ActionType)
	assert.Equal(t, response.SourceFinding, first.SourceKind)
	assert.Equal(t, finding.ID, first.SourceID)
	assert.Contains(t, second.Description, "already blocked")
	assert.Equal(t, 1, f.blocklist.Len())
	assert.Len(t, f.actionLogs.All(), 2)
}

func TestOrchestrator_FlagSubject(t *testing.T) {
	f := setupOrchestrator(t)
	finding := &correlation.Finding{
		ID:                uuid.New(),
		RuleName:          correlation.RuleRepeatedHighRisk,
		Severity:          domain.SeverityHigh,
		MatchedEntities:   domain.EntitiesJSON{domain.EntitySubject: "42"},
		MatchCount:        3,
		RecommendedAction: domain.RemediationFlagSubject,
	}

	for i := 0; i < 2; i++ {
		entry, err := f.orchestrator.Dispatch(context.Background(), finding)
		require.NoError(t, err)
		assert.Equal(t, response.ActionFlagSubject, entry.ActionType)
	}

	flagged, err := f.flags.IsFlagged(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, flagged)
	assert.Equal(t, 1, f.flags.Len())
}

func TestOrchestrator_ThrottleOrigin(t *testing.T) {
	f := setupOrchestrator(t)
	finding := originFinding(correlation.RuleRateLimitAbuse, domain.RemediationTightenAdmission, "198.51.100.2")

	entry, err := f.orchestrator.Dispatch(context.Background(), finding)
	require.NoError(t, err)
	assert.Equal(t, response.ActionThrottleOrigin, entry.ActionType)

	throttled, err := f.throttles.IsThrottled(context.Background(), "198.51.100.2")
	require.NoError(t, err)
	assert.True(t, throttled)

	f.now = f.now.Add(61 * time.Minute)
	throttled, err = f.throttles.IsThrottled(context.Background(), "198.51.100.2")
	require.NoError(t, err)
	assert.False(t, throttled)
}

func TestOrchestrator_MissingEntity(t *testing.T) {
	f := setupOrchestrator(t)
	finding := originFinding(correlation.RuleRapidFailedLogins, domain.RemediationBlockOrigin, "")

	_, err := f.orchestrator.Dispatch(context.Background(), finding)

	assert.ErrorIs(t, err, ErrMissingEntity)
	assert.Empty(t, f.actionLogs.All())
}

func TestOrchestrator_AlertRouting(t *testing.T) {
	f := setupOrchestrator(t)
	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n notifier.Notification) bool {
		return n.Title == "high_processing_lag" && n.Severity == "high"
	})).Return(nil).Once()

	lag := &alert.Alert{
		ID:       uuid.New(),
		RuleName: "high_processing_lag",
		Severity: domain.SeverityHigh,
		Message:  "high_processing_lag: event_processing_lag_seconds is 412, threshold > 300",
	}
	entry, err := f.orchestrator.Dispatch(context.Background(), lag)
	require.NoError(t, err)
	assert.Equal(t, response.ActionNotifyOperator, entry.ActionType)
	assert.Equal(t, response.SourceAlert, entry.SourceKind)

	low := &alert.Alert{ID: uuid.New(), RuleName: "high_processing_lag", Severity: domain.SeverityMedium}
	_, err = f.orchestrator.Dispatch(context.Background(), low)
	assert.ErrorIs(t, err, ErrNoPlaybook)

	other := &alert.Alert{ID: uuid.New(), RuleName: "elevated_api_error_rate", Severity: domain.SeverityCritical}
	_, err = f.orchestrator.Dispatch(context.Background(), other)
	assert.ErrorIs(t, err, ErrNoPlaybook)

	f.notifier.AssertExpectations(t)
}

func TestOrchestrator_NotifyFailureStillLogsAction(t *testing.T) {
	f := setupOrchestrator(t)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("webhook 503"))

	entry, err := f.orchestrator.Dispatch(context.Background(), &alert.Alert{
		ID:       uuid.New(),
		RuleName: "high_processing_lag",
		Severity: domain.SeverityCritical,
	})

	require.NoError(t, err)
	assert.Contains(t, entry.Description, "notification failed")
	assert.Len(t, f.actionLogs.All(), 1)
}

func TestOrchestrator_UnsupportedItem(t *testing.T) {
	f := setupOrchestrator(t)

	_, err := f.orchestrator.Dispatch(context.Background(), "not an item")

	assert.ErrorIs(t, err, ErrUnsupportedItem)
}

func TestOrchestrator_HandleAlertsPublishes(t *testing.T) {
	f := setupOrchestrator(t)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	entries := f.orchestrator.HandleAlerts(context.Background(), []*alert.Alert{
		{ID: uuid.New(), RuleName: "high_processing_lag", Severity: domain.SeverityHigh},
		{ID: uuid.New(), RuleName: "elevated_api_error_rate", Severity: domain.SeverityMedium},
	})

	assert.Len(t, entries, 1)
	f.sink.AssertNumberOfCalls(t, "Publish", 3)
	f.sink.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e eventsink.Event) bool {
		return e.Type == eventsink.EventActionExecuted
	}))
}

func TestOrchestrator_SinkFailureDoesNotBlockRemediation(t *testing.T) {
	f := setupOrchestrator(t)
	f.sink.ExpectedCalls = nil
	f.sink.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))
	finding := originFinding(correlation.RuleRapidFailedLogins, domain.RemediationBlockOrigin, "203.0.113.5")
	_, err := f.findings.SaveIfAbsent(context.Background(), finding)
	require.NoError(t, err)

	entries := f.orchestrator.HandleFindings(context.Background(), []*correlation.Finding{finding})

	assert.Len(t, entries, 1)
	assert.Equal(t, 1, f.blocklist.Len())
	assert.Equal(t, correlation.StatusClosed, finding.Status)
}

func TestOrchestrator_CloseFailureKeepsActionEntry(t *testing.T) {
	f := setupOrchestrator(t)
	finding := originFinding(correlation.RuleRapidFailedLogins, domain.RemediationBlockOrigin, "203.0.113.9")

	entries := f.orchestrator.HandleFindings(context.Background(), []*correlation.Finding{finding})

	require.Len(t, entries, 1)
	assert.Equal(t, response.ActionBlockOrigin, entries[0].ActionType)
	assert.Equal(t, correlation.StatusOpen, finding.Status)
	assert.Len(t, f.actionLogs.All(), 1)
}

func TestOrchestrator_DrainOpen(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	good := originFinding(correlation.RuleRapidFailedLogins, domain.RemediationBlockOrigin, "203.0.113.1")
	bad := originFinding(correlation.RuleRapidFailedLogins, domain.RemediationBlockOrigin, "")
	for _, fd := range []*correlation.Finding{good, bad} {
		_, err := f.findings.SaveIfAbsent(ctx, fd)
		require.NoError(t, err)
	}

	closed, err := f.orchestrator.DrainOpen(ctx)

	assert.Equal(t, 1, closed)
	assert.ErrorIs(t, err, ErrMissingEntity)
	stored, ok := f.findings.Get(good.ID)
	require.True(t, ok)
	assert.Equal(t, correlation.StatusClosed, stored.Status)
	stored, ok = f.findings.Get(bad.ID)
	require.True(t, ok)
	assert.Equal(t, correlation.StatusOpen, stored.Status)

	closed, err = f.orchestrator.DrainOpen(ctx)
	assert.Equal(t, 0, closed)
	assert.Error(t, err)
	assert.Equal(t, 1, f.blocklist.Len())
}

func TestFailedLoginsEndToEnd(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	streams := memory.NewStreamRepository()
	for i := 0; i < 6; i++ {
		require.NoError(t, streams.AppendEvent(ctx, &signal.StreamEvent{
			ID:            uuid.New(),
			Stream:        signal.StreamFailedLogin,
			OriginAddress: "203.0.113.66",
			OccurredAt:    f.now.Add(-time.Duration(i) * time.Minute),
		}))
	}
	engine, err := correlator.NewEngine(
		correlation.DefaultRules(),
		streams,
		f.findings,
		correlator.Config{},
		prometheus.NewNopMetrics(),
		logger,
		correlator.WithClock(func() time.Time { return f.now }),
	)
	require.NoError(t, err)

	found := engine.Correlate(ctx, 0)
	require.Len(t, found, 1)
	assert.Equal(t, correlation.RuleRapidFailedLogins, found[0].RuleName)

	entries := f.orchestrator.HandleFindings(ctx, found)
	require.Len(t, entries, 1)
	blocked, err := f.blocklist.IsBlocked(ctx, "203.0.113.66")
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, 1, f.blocklist.Len())

	assert.Empty(t, engine.Correlate(ctx, 0))
	n, err := f.orchestrator.DrainOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
