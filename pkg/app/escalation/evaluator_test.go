package escalation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/account"
	"github.com/NeuralTrust/TrustShield/pkg/domain/ban"
	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
	"github.com/NeuralTrust/TrustShield/pkg/infra/prometheus"
	"github.com/NeuralTrust/TrustShield/pkg/infra/repository/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSignalRepository struct {
	mock.Mock
}

func (m *mockSignalRepository) Append(ctx context.Context, s *signal.ThreatSignal) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockSignalRepository) CountBySubject(ctx context.Context, subjectID int64) (int64, error) {
	args := m.Called(ctx, subjectID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSignalRepository) CountUnauthenticatedByOrigin(ctx context.Context, origin string, since time.Time) (int64, error) {
	args := m.Called(ctx, origin, since)
	return args.Get(0).(int64), args.Error(1)
}

type fixture struct {
	evaluator Evaluator
	signals   *memory.SignalRepository
	accounts  *memory.AccountRepository
	bans      *memory.BanRepository
	now       time.Time
}

func setupEvaluator(t *testing.T, accounts ...account.Account) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	f := &fixture{
		signals:  memory.NewSignalRepository(),
		accounts: memory.NewAccountRepository(accounts...),
		bans:     memory.NewBanRepository(),
		now:      time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	f.evaluator = NewEvaluator(
		f.signals,
		f.accounts,
		f.bans,
		DefaultConfig(),
		prometheus.NewNopMetrics(),
		logger,
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func subjectSignal(id int64, category signal.AttackCategory) *signal.ThreatSignal {
	return &signal.ThreatSignal{SubjectID: &id, OriginAddress: "10.0.0.1", Category: category}
}

func originSignal(origin string) *signal.ThreatSignal {
	return &signal.ThreatSignal{OriginAddress: origin, Category: signal.BruteForce}
}

func buyer(id int64) account.Account {
	return account.Account{ID: id, Email: "buyer@example.com", Role: account.RoleBuyer, IsActive: true}
}

func TestEvaluator_FirstSignalTakesNoAction(t *testing.T) {
	f := setupEvaluator(t, buyer(1))

	res := f.evaluator.RecordSignalAndEvaluate(context.Background(), subjectSignal(1, signal.SqlInjection))

	require.NoError(t, res.Err)
	assert.Equal(t, ActionNone, res.Action)
	assert.Equal(t, int64(1), res.SubjectCount)
	acct, err := f.accounts.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, acct.IsActive)
}

func TestEvaluator_SecondSignalSuspends(t *testing.T) {
	f := setupEvaluator(t, buyer(1))
	ctx := context.Background()

	f.evaluator.RecordSignalAndEvaluate(ctx, subjectSignal(1, signal.CrossSiteScript))
	res := f.evaluator.RecordSignalAndEvaluate(ctx, subjectSignal(1, signal.CrossSiteScript))

	require.NoError(t, res.Err)
	assert.Equal(t, ActionSuspended, res.Action)
	acct, err := f.accounts.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, acct.IsActive)
	assert.Empty(t, f.bans.All())
}

func TestEvaluator_SuspendsExactlyOnce(t *testing.T) {
	f := setupEvaluator(t, buyer(1))
	ctx := context.Background()

	suspended := 0
	for i := 0; i < 9; i++ {
		res := f.evaluator.RecordSignalAndEvaluate(ctx, subjectSignal(1, signal.ApiAbuse))
		require.NoError(t, res.Err)
		if res.Action == ActionSuspended {
			suspended++
		}
		assert.NotEqual(t, ActionBanned, res.Action)
	}
	assert.Equal(t, 1, suspended)

	state, err := f.evaluator.SubjectState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, account.StatusSuspended, state.CurrentStatus)
	assert.Equal(t, int64(9), state.CumulativeAttackCount)
}

func TestEvaluator_TenthSignalBansOnce(t *testing.T) {
	f := setupEvaluator(t, buyer(1))
	ctx := context.Background()

	var last Result
	for i := 0; i < 10; i++ {
		last = f.evaluator.RecordSignalAndEvaluate(ctx, subjectSignal(1, signal.CommandInjection))
	}
	require.NoError(t, last.Err)
	assert.Equal(t, ActionBanned, last.Action)
	assert.Equal(t, int64(10), last.SubjectCount)

	for i := 0; i < 5; i++ {
		res := f.evaluator.RecordSignalAndEvaluate(ctx, subjectSignal(1, signal.CommandInjection))
		assert.Equal(t, ActionNone, res.Action)
	}

	records := f.bans.All()
	require.Len(t, records, 1)
	assert.Equal(t, ban.SubjectAccount, records[0].SubjectType)
	assert.Equal(t, ban.DurationPermanent, records[0].Duration)
	assert.Nil(t, records[0].ExpiresAt)

	acct, err := f.accounts.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, acct.IsActive)

	state, err := f.evaluator.SubjectState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, account.StatusBanned, state.CurrentStatus)
}

func TestEvaluator_AdminsNeverEscalate(t *testing.T) {
	admin := account.Account{ID: 7, Role: account.RoleAdmin, IsActive: true}
	f := setupEvaluator(t, admin)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		res := f.evaluator.RecordSignalAndEvaluate(ctx, subjectSignal(7, signal.PenetrationTest))
		require.NoError(t, res.Err)
		assert.Equal(t, ActionNone, res.Action)
	}
	acct, err := f.accounts.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.True(t, acct.IsActive)
	assert.Empty(t, f.bans.All())

	state, err := f.evaluator.SubjectState(ctx, 7)
	require.NoError(t, err)
	assert.True(t, state.IsPrivileged)
	assert.Equal(t, account.StatusActive, state.CurrentStatus)
}

func TestEvaluator_IgnoresInvalidSignals(t *testing.T) {
	f := setupEvaluator(t, buyer(1))
	ctx := context.Background()

	cases := map[string]*signal.ThreatSignal{
		"nil":              nil,
		"unknown category": subjectSignal(1, signal.AttackCategory("port_scan")),
		"no subject or origin": {
			Category: signal.BruteForce,
		},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			res := f.evaluator.RecordSignalAndEvaluate(ctx, s)
			assert.NoError(t, res.Err)
			assert.Equal(t, ActionNone, res.Action)
		})
	}
	assert.Empty(t, f.signals.All())
}

func TestEvaluator_UnknownSubjectIsNoop(t *testing.T) {
	f := setupEvaluator(t)

	res := f.evaluator.RecordSignalAndEvaluate(context.Background(), subjectSignal(99, signal.BruteForce))

	assert.NoError(t, res.Err)
	assert.Equal(t, ActionNone, res.Action)
}

func TestEvaluator_OriginBannedOnceAfterTenSignals(t *testing.T) {
	f := setupEvaluator(t)
	ctx := context.Background()

	var results []Result
	for i := 0; i < 11; i++ {
		results = append(results, f.evaluator.RecordSignalAndEvaluate(ctx, originSignal("203.0.113.9")))
	}

	for i := 0; i < 9; i++ {
		assert.Equal(t, ActionNone, results[i].Action)
	}
	assert.Equal(t, ActionBanned, results[9].Action)
	assert.Equal(t, int64(10), results[9].OriginCount)
	assert.Equal(t, ActionNone, results[10].Action)

	records := f.bans.All()
	require.Len(t, records, 1)
	assert.Equal(t, ban.SubjectOrigin, records[0].SubjectType)
	require.NotNil(t, records[0].OriginAddress)
	assert.Equal(t, "203.0.113.9", *records[0].OriginAddress)

	state, err := f.evaluator.OriginState(ctx, "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, account.StatusBanned, state.CurrentStatus)
	assert.Equal(t, int64(11), state.WindowedAttackCount)
}

func TestEvaluator_OriginWindowExcludesOldSignals(t *testing.T) {
	f := setupEvaluator(t)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		s := originSignal("198.51.100.4")
		s.OccurredAt = f.now.Add(-25 * time.Hour)
		f.evaluator.RecordSignalAndEvaluate(ctx, s)
	}
	res := f.evaluator.RecordSignalAndEvaluate(ctx, originSignal("198.51.100.4"))

	assert.Equal(t, ActionNone, res.Action)
	assert.Equal(t, int64(1), res.OriginCount)
}

func TestEvaluator_StoreFailureDegradesToNone(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	signals := new(mockSignalRepository)
	storeErr := errors.New("connection refused")
	signals.On("Append", mock.Anything, mock.Anything).Return(storeErr)

	evaluator := NewEvaluator(
		signals,
		memory.NewAccountRepository(buyer(1)),
		memory.NewBanRepository(),
		DefaultConfig(),
		prometheus.NewNopMetrics(),
		logger,
	)

	res := evaluator.RecordSignalAndEvaluate(context.Background(), subjectSignal(1, signal.BruteForce))

	assert.Equal(t, ActionNone, res.Action)
	assert.ErrorIs(t, res.Err, storeErr)
	signals.AssertExpectations(t)
}

type flakyAccountRepository struct {
	*memory.AccountRepository
	deactivateErr error
}

func (r *flakyAccountRepository) Deactivate(ctx context.Context, id int64) (bool, error) {
	if r.deactivateErr != nil {
		return false, r.deactivateErr
	}
	return r.AccountRepository.Deactivate(ctx, id)
}

func TestEvaluator_BanDeactivationFailureIsRetried(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	ctx := context.Background()
	signals := memory.NewSignalRepository()
	bans := memory.NewBanRepository()
	accounts := &flakyAccountRepository{
		AccountRepository: memory.NewAccountRepository(buyer(1)),
		deactivateErr:     errors.New("deadlock detected"),
	}
	for i := 0; i < 9; i++ {
		require.NoError(t, signals.Append(ctx, subjectSignal(1, signal.CommandInjection)))
	}
	evaluator := NewEvaluator(signals, accounts, bans, DefaultConfig(), prometheus.NewNopMetrics(), logger)

	res := evaluator.RecordSignalAndEvaluate(ctx, subjectSignal(1, signal.CommandInjection))

	assert.Equal(t, ActionNone, res.Action)
	assert.ErrorIs(t, res.Err, accounts.deactivateErr)
	require.Len(t, bans.All(), 1)
	acct, err := accounts.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acct.IsActive)

	accounts.deactivateErr = nil
	res = evaluator.RecordSignalAndEvaluate(ctx, subjectSignal(1, signal.CommandInjection))

	require.NoError(t, res.Err)
	assert.Equal(t, ActionNone, res.Action)
	assert.Len(t, bans.All(), 1)
	acct, err = accounts.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, acct.IsActive)
}

func TestEvaluator_PanicIsRecovered(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	signals := new(mockSignalRepository)
	signals.On("Append", mock.Anything, mock.Anything).Return(nil)
	signals.On("CountUnauthenticatedByOrigin", mock.Anything, "192.0.2.1", mock.Anything).
		Run(func(mock.Arguments) { panic("driver bug") })

	evaluator := NewEvaluator(
		signals,
		memory.NewAccountRepository(),
		memory.NewBanRepository(),
		DefaultConfig(),
		prometheus.NewNopMetrics(),
		logger,
	)

	var res Result
	assert.NotPanics(t, func() {
		res = evaluator.RecordSignalAndEvaluate(context.Background(), originSignal("192.0.2.1"))
	})
	assert.Equal(t, ActionNone, res.Action)
	assert.Error(t, res.Err)
}

func TestEvaluator_ConcurrentSignalsBanOnce(t *testing.T) {
	f := setupEvaluator(t, buyer(1))
	ctx := context.Background()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		banned int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := f.evaluator.RecordSignalAndEvaluate(ctx, subjectSignal(1, signal.BruteForce))
			if res.Action == ActionBanned {
				mu.Lock()
				banned++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, banned)
	assert.Len(t, f.bans.All(), 1)
}
