package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traylinx/arya/internal/diagnostics"
)

type fakeErrors struct {
	mu    sync.Mutex
	kinds []string
}

func (f *fakeErrors) LogError(kind, message, trace string) diagnostics.ErrorRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
	return diagnostics.ErrorRecord{Kind: kind, Message: message}
}

func (f *fakeErrors) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.kinds...)
}

func noop(context.Context) (Summary, error) { return Summary{"ok": true}, nil }

func fixedJobs() []Job {
	return []Job{
		{ID: "health_check", Name: "Autonomous Health Check", Trigger: Every(time.Hour), Run: noop},
		{ID: "continuous_learning", Name: "Continuous Learning", Trigger: Every(6 * time.Hour), Run: noop},
		{ID: "memory_optimization", Name: "Memory Optimization", Trigger: Daily(3, 0), Run: noop},
		{ID: "self_improvement", Name: "Self Improvement Check", Trigger: Every(12 * time.Hour), Run: noop},
	}
}

func newTestScheduler(t *testing.T, jobs []Job, opts ...Option) (*Scheduler, *fakeErrors) {
	t.Helper()
	errs := &fakeErrors{}
	s, err := New(DefaultConfig(), errs, jobs, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, errs
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	s, _ := newTestScheduler(t, fixedJobs())

	assert.False(t, s.IsRunning())
	assert.True(t, s.Start())
	assert.False(t, s.Start(), "second start must be a no-op")

	st := s.Status()
	assert.True(t, st.IsRunning)
	assert.Equal(t, 4, st.ActiveJobs)
	require.Len(t, st.Jobs, 4)
	assert.Len(t, s.cron.Entries(), 4)

	ids := map[string]bool{}
	for _, j := range st.Jobs {
		ids[j.ID] = true
		require.NotNil(t, j.NextRun, "job %s has no next run", j.ID)
		assert.True(t, j.NextRun.After(time.Now().Add(-time.Second)))
	}
	assert.Len(t, ids, 4)
}

func TestSchedulerStop(t *testing.T) {
	s, _ := newTestScheduler(t, fixedJobs())

	assert.False(t, s.Stop(), "stop while stopped is a no-op")
	s.Start()
	assert.True(t, s.Stop())

	st := s.Status()
	assert.False(t, st.IsRunning)
	assert.Zero(t, st.ActiveJobs)
	assert.Empty(t, st.Jobs)

	// restart registers a fresh set
	s.Start()
	assert.Equal(t, 4, s.Status().ActiveJobs)
}

func TestSchedulerNextRunForDailyTrigger(t *testing.T) {
	s, _ := newTestScheduler(t, fixedJobs())
	s.Start()

	for _, j := range s.Status().Jobs {
		if j.ID != "memory_optimization" {
			continue
		}
		require.NotNil(t, j.NextRun)
		local := j.NextRun.In(time.Local)
		assert.Equal(t, 3, local.Hour())
		assert.Equal(t, 0, local.Minute())
		assert.Equal(t, "cron[0 3 * * *]", j.Trigger)
	}
}

func TestRunNowRecordsSuccess(t *testing.T) {
	s, errs := newTestScheduler(t, fixedJobs())

	rec, err := s.RunNow(context.Background(), "health_check")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, rec.Outcome)
	assert.Equal(t, "Autonomous Health Check", rec.Task)
	assert.Equal(t, Summary{"ok": true}, rec.Summary)
	assert.Empty(t, errs.snapshot())

	recent := s.Status().RecentTasks
	require.Len(t, recent, 1)
	assert.Equal(t, "health_check", recent[0].JobID)

	_, err = s.RunNow(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestRunNowCapturesErrorsAndPanics(t *testing.T) {
	jobs := []Job{
		{ID: "fails", Name: "Failing Job", Trigger: Every(time.Hour), Run: func(context.Context) (Summary, error) {
			return Summary{"topic": "x"}, errors.New("search timeout")
		}},
		{ID: "panics", Name: "Panicking Job", Trigger: Every(time.Hour), Run: func(context.Context) (Summary, error) {
			panic("kaboom")
		}},
	}
	s, errs := newTestScheduler(t, jobs)

	rec, err := s.RunNow(context.Background(), "fails")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, rec.Outcome)
	assert.Equal(t, "search timeout", rec.Error)
	assert.Equal(t, "x", rec.Summary["topic"])

	rec, err = s.RunNow(context.Background(), "panics")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, rec.Outcome)
	assert.Contains(t, rec.Error, "kaboom")

	assert.Equal(t, []string{"Failing Job Error", "Panicking Job Error"}, errs.snapshot())
	assert.Len(t, s.RecentRuns(10), 2)
}

func TestStatusReturnsLastTenRuns(t *testing.T) {
	s, _ := newTestScheduler(t, fixedJobs())
	for i := 0; i < 15; i++ {
		_, err := s.RunNow(context.Background(), "self_improvement")
		require.NoError(t, err)
	}
	assert.Len(t, s.Status().RecentTasks, 10)
	assert.Len(t, s.RecentRuns(100), 15)
}

func TestHistoryIsBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryCapacity = 3
	s, err := New(cfg, nil, fixedJobs())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, _ = s.RunNow(context.Background(), "health_check")
	}
	assert.Len(t, s.RecentRuns(10), 3)
}

func TestIntervalTriggerFires(t *testing.T) {
	var runs atomic.Int32
	jobs := []Job{{ID: "tick", Name: "Tick", Trigger: Every(time.Second), Run: func(context.Context) (Summary, error) {
		runs.Add(1)
		return nil, nil
	}}}
	s, _ := newTestScheduler(t, jobs)
	s.Start()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 4*time.Second, 50*time.Millisecond)
	s.Stop()
	assert.NotEmpty(t, s.RecentRuns(10))
}

func TestStopLetsInFlightRunFinish(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	jobs := []Job{{ID: "slow", Name: "Slow", Trigger: Every(time.Second), Run: func(ctx context.Context) (Summary, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		finished.Store(ctx.Err() == nil)
		return nil, nil
	}}}
	s, _ := newTestScheduler(t, jobs)
	s.Start()

	select {
	case <-started:
	case <-time.After(4 * time.Second):
		t.Fatal("job never started")
	}
	s.Stop()
	assert.False(t, s.IsRunning())
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.True(t, finished.Load(), "in-flight run must complete with a live context")
}

func TestStartAfterShutdownUsesLiveContext(t *testing.T) {
	var liveRuns atomic.Int32
	jobs := []Job{{ID: "tick", Name: "Tick", Trigger: Every(time.Second), Run: func(ctx context.Context) (Summary, error) {
		if ctx.Err() == nil {
			liveRuns.Add(1)
		}
		return nil, ctx.Err()
	}}}
	s, _ := newTestScheduler(t, jobs)

	require.True(t, s.Start())
	require.NoError(t, s.Shutdown(context.Background()))

	require.True(t, s.Start())
	assert.Eventually(t, func() bool { return liveRuns.Load() >= 1 }, 4*time.Second, 50*time.Millisecond)
	for _, rec := range s.RecentRuns(10) {
		assert.Equal(t, OutcomeSuccess, rec.Outcome)
	}
}

func TestNewRejectsInvalidJobs(t *testing.T) {
	_, err := New(DefaultConfig(), nil, []Job{{ID: "bad", Name: "Bad", Trigger: Cron("not a cron"), Run: noop}})
	assert.Error(t, err)

	_, err = New(DefaultConfig(), nil, []Job{
		{ID: "a", Name: "A", Trigger: Every(time.Hour), Run: noop},
		{ID: "a", Name: "A2", Trigger: Every(time.Hour), Run: noop},
	})
	assert.Error(t, err)

	_, err = New(DefaultConfig(), nil, []Job{{ID: "z", Name: "Zero", Trigger: Every(0), Run: noop}})
	assert.Error(t, err)
}

type recordingObserver struct {
	mu     sync.Mutex
	runs   []Outcome
	states []bool
}

func (o *recordingObserver) JobCompleted(_ string, outcome Outcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, outcome)
}

func (o *recordingObserver) SchedulerStateChanged(running bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, running)
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	s, _ := newTestScheduler(t, fixedJobs(), WithObserver(obs))
	s.Start()
	s.Start()
	_, _ = s.RunNow(context.Background(), "health_check")
	s.Stop()

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []bool{true, false}, obs.states)
	assert.Equal(t, []Outcome{OutcomeSuccess}, obs.runs)
}

func TestTriggerString(t *testing.T) {
	assert.Equal(t, "interval[1h0m0s]", Every(time.Hour).String())
	assert.Equal(t, "cron[30 4 * * *]", Daily(4, 30).String())
}
