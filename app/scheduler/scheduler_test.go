package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/AutoSEM/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memActivityRepo is a minimal in-memory ActivityLogRepository.
type memActivityRepo struct {
	mu      sync.Mutex
	entries []*models.ActivityLog
}

func (r *memActivityRepo) ByID(ctx context.Context, id uint) (*models.ActivityLog, error) {
	return nil, nil
}

func (r *memActivityRepo) ByFilter(ctx context.Context, filter models.ActivityLogFilter, orderBy string, limit, offset int) ([]*models.ActivityLog, error) {
	return nil, nil
}

func (r *memActivityRepo) Save(ctx context.Context, entry *models.ActivityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memActivityRepo) SaveBatch(ctx context.Context, entries []*models.ActivityLog) error {
	for _, e := range entries {
		_ = r.Save(ctx, e)
	}
	return nil
}

func (r *memActivityRepo) Count(ctx context.Context, filter models.ActivityLogFilter) (int64, error) {
	return 0, nil
}

func (r *memActivityRepo) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.ActivityLog, error) {
	return nil, nil
}

func (r *memActivityRepo) ListRecent(ctx context.Context, limit, offset int) ([]*models.ActivityLog, error) {
	return nil, nil
}

func (r *memActivityRepo) ListByCampaign(ctx context.Context, campaignRecordID uint, limit, offset int) ([]*models.ActivityLog, error) {
	return nil, nil
}

func (r *memActivityRepo) CountSince(ctx context.Context, action string, since time.Time) (int64, error) {
	return 0, nil
}

func (r *memActivityRepo) LatestByAction(ctx context.Context, action string) (*models.ActivityLog, error) {
	return nil, nil
}

func (r *memActivityRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// withFastRetries disables the in-run backoff so tests run instantly.
func withFastRetries(t *testing.T) {
	t.Helper()
	saved := retryDelays
	retryDelays = nil
	t.Cleanup(func() { retryDelays = saved })
}

func newTestScheduler(t *testing.T) (*AutomationScheduler, *memActivityRepo) {
	t.Helper()
	repo := &memActivityRepo{}
	s := NewAutomationScheduler(repo, t.TempDir())
	return s, repo
}

func TestScheduler_RunsJobAtStart(t *testing.T) {
	withFastRetries(t)
	s, _ := newTestScheduler(t)

	done := make(chan struct{})
	var once sync.Once
	s.AddJob("sync_performance", time.Hour, true, func(ctx context.Context) error {
		once.Do(func() { close(done) })
		return nil
	})

	s.Start(context.Background())
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run at start")
	}

	require.Eventually(t, func() bool {
		states := s.Status()
		return len(states) == 1 && states[0].TotalRuns == 1 && !states[0].Running
	}, 2*time.Second, 10*time.Millisecond)

	state := s.Status()[0]
	assert.Equal(t, "sync_performance", state.Name)
	assert.NotNil(t, state.LastSuccessAt)
	assert.Zero(t, state.ConsecutiveFailures)
}

func TestScheduler_InRunRetriesBeforeFailure(t *testing.T) {
	saved := retryDelays
	retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	t.Cleanup(func() { retryDelays = saved })

	s, repo := newTestScheduler(t)

	var mu sync.Mutex
	calls := 0
	s.AddJob("optimization_cycle", time.Hour, true, func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 3
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return s.Status()[0].ConsecutiveFailures == 0
	}, 2*time.Second, 10*time.Millisecond, "a run that succeeds after in-run retries is not a failure")

	assert.Empty(t, repo.actions(), "no failure activity for a run that recovered")
}

func TestScheduler_EscalatesOnThirdConsecutiveFailure(t *testing.T) {
	withFastRetries(t)
	s, repo := newTestScheduler(t)

	j := &job{name: "sync_performance", fn: func(ctx context.Context) error {
		return errors.New("boom")
	}}
	s.states.register(j.name)

	for i := 0; i < 3; i++ {
		s.runJob(context.Background(), j)
	}

	actions := repo.actions()
	require.Len(t, actions, 3)
	assert.Equal(t, models.ActionJobFailure, actions[0])
	assert.Equal(t, models.ActionJobFailure, actions[1])
	assert.Equal(t, models.ActionJobFailureCritical, actions[2], "exactly the third consecutive failure is critical")

	state := s.Status()[0]
	assert.Equal(t, 3, state.ConsecutiveFailures)
	assert.Equal(t, int64(3), state.TotalFailures)
}

func TestScheduler_SuccessResetsFailureStreak(t *testing.T) {
	withFastRetries(t)
	s, repo := newTestScheduler(t)

	fail := true
	j := &job{name: "shopify_catalog_sync", fn: func(ctx context.Context) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	}}
	s.states.register(j.name)

	s.runJob(context.Background(), j)
	s.runJob(context.Background(), j)
	fail = false
	s.runJob(context.Background(), j)
	fail = true
	s.runJob(context.Background(), j)
	s.runJob(context.Background(), j)
	s.runJob(context.Background(), j)

	// Two failures, success, then three more failures: only the last of the
	// new streak escalates.
	actions := repo.actions()
	criticals := 0
	for _, a := range actions {
		if a == models.ActionJobFailureCritical {
			criticals++
		}
	}
	assert.Equal(t, 1, criticals)
	assert.Equal(t, 3, s.Status()[0].ConsecutiveFailures)
}

func TestScheduler_OutcomeReportedOncePerInvocation(t *testing.T) {
	saved := retryDelays
	retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	t.Cleanup(func() { retryDelays = saved })

	s, _ := newTestScheduler(t)

	var mu sync.Mutex
	attempts := 0
	outcomes := 0
	var lastErr error
	j := &job{
		name: "sync_performance",
		fn: func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			return errors.New("down")
		},
		onOutcome: func(ctx context.Context, err error) {
			mu.Lock()
			defer mu.Unlock()
			outcomes++
			lastErr = err
		},
	}
	s.states.register(j.name)

	s.runJob(context.Background(), j)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, attempts, "initial attempt plus one per retry delay")
	assert.Equal(t, 1, outcomes, "retried attempts collapse into one reported outcome")
	assert.Error(t, lastErr)
}

func TestScheduler_PanicInJobIsContainedAsFailure(t *testing.T) {
	withFastRetries(t)
	s, repo := newTestScheduler(t)

	j := &job{name: "optimization_cycle", fn: func(ctx context.Context) error {
		panic("nil campaign")
	}}
	s.states.register(j.name)

	s.runJob(context.Background(), j)

	state := s.Status()[0]
	assert.Equal(t, 1, state.ConsecutiveFailures)
	assert.Contains(t, state.LastError, "panicked")

	actions := repo.actions()
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionJobFailure, actions[0])
}

func TestJobStateTracker_TrailingDayFailureWindow(t *testing.T) {
	tracker := newJobStateTracker()
	tracker.register("sync_performance")

	now := time.Now().UTC()
	stale := now.Add(-25 * time.Hour)
	recent := now.Add(-time.Hour)

	tracker.markStarted("sync_performance", stale)
	tracker.markFinished("sync_performance", stale, errors.New("boom"))
	tracker.markStarted("sync_performance", recent)
	tracker.markFinished("sync_performance", recent, errors.New("boom"))
	tracker.markStarted("sync_performance", now)
	tracker.markFinished("sync_performance", now, nil)

	state := tracker.snapshot()[0]
	assert.Equal(t, 1, state.FailuresLast24h, "only failures inside the trailing day count")
	assert.Equal(t, int64(2), state.TotalFailures)
	assert.Zero(t, state.ConsecutiveFailures, "the success reset the streak but not the day window")
}

func TestScheduler_StartStopIdempotent(t *testing.T) {
	withFastRetries(t)
	s, _ := newTestScheduler(t)
	s.AddJob("health_heartbeat", time.Hour, false, func(ctx context.Context) error { return nil })

	s.Start(context.Background())
	s.Start(context.Background())
	assert.True(t, s.IsRunning())

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}
