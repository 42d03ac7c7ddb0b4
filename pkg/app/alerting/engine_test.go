package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain"
	"github.com/NeuralTrust/TrustShield/pkg/domain/alert"
	"github.com/NeuralTrust/TrustShield/pkg/infra/metricsource"
	"github.com/NeuralTrust/TrustShield/pkg/infra/prometheus"
	"github.com/NeuralTrust/TrustShield/pkg/infra/repository/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Snapshot(ctx context.Context) (map[string]float64, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(map[string]float64), args.Error(1)
	}
	return nil, args.Error(1)
}

func setupEngine(t *testing.T, provider metricsource.Provider, cfg Config, now *time.Time) (Engine, *memory.AlertRepository) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	repo := memory.NewAlertRepository()
	e := NewEngine(
		alert.DefaultRules(),
		repo,
		provider,
		cfg,
		prometheus.NewNopMetrics(),
		logger,
		WithClock(func() time.Time { return *now }),
	)
	return e, repo
}

func TestEngine_EvaluateFiresMatchingRules(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	e, repo := setupEngine(t, metricsource.NewStaticProvider(nil), Config{MetricSource: "static"}, &now)

	alerts := e.Evaluate(context.Background(), map[string]float64{
		alert.MetricProcessingLag:          412,
		alert.MetricAPIErrorRate:           0.01,
		alert.MetricSuspiciousTransactions: 10,
	})

	require.Len(t, alerts, 2)
	assert.Equal(t, "high_processing_lag", alerts[0].RuleName)
	assert.Equal(t, domain.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, float64(412), alerts[0].ObservedValue)
	assert.Equal(t, ">", alerts[0].Metadata[domain.MetaComparator])
	assert.Equal(t, "static", alerts[0].Metadata[domain.MetaMetricSource])
	assert.Equal(t, "suspicious_transaction_spike", alerts[1].RuleName)
	assert.Len(t, repo.All(), 2)

	for _, r := range e.Rules() {
		if r.Name == "elevated_api_error_rate" {
			assert.Nil(t, r.LastTriggered)
		} else {
			require.NotNil(t, r.LastTriggered)
			assert.Equal(t, now, *r.LastTriggered)
		}
	}
}

func TestEngine_MissingMetricSkipsRule(t *testing.T) {
	now := time.Now()
	e, repo := setupEngine(t, metricsource.NewStaticProvider(nil), Config{}, &now)

	alerts := e.Evaluate(context.Background(), map[string]float64{"unrelated": 1e9})

	assert.Empty(t, alerts)
	assert.Empty(t, repo.All())
}

func TestEngine_RefiresWithoutCooldown(t *testing.T) {
	now := time.Now()
	e, repo := setupEngine(t, metricsource.NewStaticProvider(nil), Config{}, &now)
	metrics := map[string]float64{alert.MetricProcessingLag: 301}

	for i := 0; i < 3; i++ {
		assert.Len(t, e.Evaluate(context.Background(), metrics), 1)
		now = now.Add(time.Second)
	}
	assert.Len(t, repo.All(), 3)
}

func TestEngine_CooldownSuppresses(t *testing.T) {
	now := time.Now()
	e, _ := setupEngine(t, metricsource.NewStaticProvider(nil), Config{Cooldown: 5 * time.Minute}, &now)
	metrics := map[string]float64{alert.MetricProcessingLag: 301}

	first := e.Evaluate(context.Background(), metrics)
	require.Len(t, first, 1)
	assert.Equal(t, "5m0s", first[0].Metadata[domain.MetaCooldown])

	now = now.Add(4 * time.Minute)
	assert.Empty(t, e.Evaluate(context.Background(), metrics))

	now = now.Add(time.Minute)
	assert.Len(t, e.Evaluate(context.Background(), metrics), 1)
}

func TestEngine_PersistFailureSkipsRule(t *testing.T) {
	now := time.Now()
	e, repo := setupEngine(t, metricsource.NewStaticProvider(nil), Config{}, &now)
	repo.SaveErr = errors.New("database is down")

	alerts := e.Evaluate(context.Background(), map[string]float64{alert.MetricProcessingLag: 999})

	assert.Empty(t, alerts)
	for _, r := range e.Rules() {
		assert.Nil(t, r.LastTriggered)
	}
}

func TestEngine_RunCycle(t *testing.T) {
	now := time.Now()
	provider := metricsource.NewStaticProvider(map[string]float64{alert.MetricAPIErrorRate: 0.2})
	e, _ := setupEngine(t, provider, Config{Timeout: time.Second}, &now)

	alerts, err := e.RunCycle(context.Background())

	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "elevated_api_error_rate", alerts[0].RuleName)
}

func TestEngine_RunCycleProviderFailure(t *testing.T) {
	now := time.Now()
	provider := new(mockProvider)
	provider.On("Snapshot", mock.Anything).Return(nil, context.DeadlineExceeded)
	e, repo := setupEngine(t, provider, Config{Timeout: 10 * time.Millisecond}, &now)

	alerts, err := e.RunCycle(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, alerts)
	assert.Empty(t, repo.All())
	provider.AssertExpectations(t)
}
