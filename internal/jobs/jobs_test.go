package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traylinx/arya/internal/diagnostics"
	"github.com/traylinx/arya/internal/providers"
	"github.com/traylinx/arya/internal/scheduler"
	"github.com/traylinx/arya/internal/store"
)

type fakeSearch struct {
	results []providers.SearchResult
	err     error
	queries []string
}

func (f *fakeSearch) Search(_ context.Context, q string, max int) ([]providers.SearchResult, error) {
	f.queries = append(f.queries, q)
	if len(f.results) > max {
		return f.results[:max], f.err
	}
	return f.results, f.err
}

func ok(context.Context) (string, error) { return "ok", nil }

func newDiag(checkers diagnostics.Checkers) *diagnostics.System {
	return diagnostics.NewSystem(diagnostics.DefaultConfig(), checkers)
}

func healthy() diagnostics.Checkers {
	return diagnostics.Checkers{
		Store: diagnostics.CheckerFunc(ok),
		LLM:   diagnostics.CheckerFunc(ok),
		Image: diagnostics.CheckerFunc(ok),
	}
}

var fixedNow = time.Date(2026, 5, 10, 14, 0, 0, 0, time.UTC)

func newRunner(t *testing.T, diag *diagnostics.System, st store.DocumentStore, search Searcher) *Runner {
	t.Helper()
	r := NewRunner(diag, st, search, DefaultConfig())
	r.now = func() time.Time { return fixedNow }
	return r
}

func TestJobsDefinitions(t *testing.T) {
	r := newRunner(t, newDiag(healthy()), store.NewMemory(), &fakeSearch{})
	jobs := r.Jobs()
	require.Len(t, jobs, 4)

	names := map[string]string{}
	triggers := map[string]string{}
	for _, j := range jobs {
		names[j.ID] = j.Name
		triggers[j.ID] = j.Trigger.String()
	}
	assert.Equal(t, "Autonomous Health Check", names[HealthCheckID])
	assert.Equal(t, "Continuous Learning", names[ContinuousLearningID])
	assert.Equal(t, "Memory Optimization", names[MemoryOptimizationID])
	assert.Equal(t, "Self Improvement Check", names[SelfImprovementID])
	assert.Equal(t, "interval[1h0m0s]", triggers[HealthCheckID])
	assert.Equal(t, "cron[0 3 * * *]", triggers[MemoryOptimizationID])

	_, err := scheduler.New(scheduler.DefaultConfig(), nil, jobs)
	assert.NoError(t, err)
}

func TestHealthCheckRepairsFailedComponents(t *testing.T) {
	checkers := healthy()
	checkers.Store = diagnostics.CheckerFunc(func(context.Context) (string, error) {
		return "", errors.New("database connection failed: connection refused")
	})
	r := newRunner(t, newDiag(checkers), store.NewMemory(), &fakeSearch{})

	summary, err := r.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "degraded", summary["overall_health"])
	assert.Equal(t, []string{"database"}, summary["failed_components"])
	repairs := summary["repairs"].([]diagnostics.ComponentRepair)
	require.Len(t, repairs, 1)
	assert.Equal(t, []string{"attempt reconnect"}, repairs[0].Outcome.Actions)
}

func TestHealthCheckHealthySkipsRepair(t *testing.T) {
	r := newRunner(t, newDiag(healthy()), store.NewMemory(), &fakeSearch{})
	summary, err := r.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", summary["overall_health"])
	assert.Empty(t, summary["repairs"])
}

func TestContinuousLearningStoresResults(t *testing.T) {
	st := store.NewMemory()
	search := &fakeSearch{results: []providers.SearchResult{
		{Title: "a", URL: "https://a"}, {Title: "b", URL: "https://b"},
		{Title: "c", URL: "https://c"}, {Title: "d", URL: "https://d"},
	}}
	r := newRunner(t, newDiag(healthy()), st, search)

	summary, err := r.ContinuousLearning(context.Background())
	require.NoError(t, err)

	// 14:00 -> 14 % 3 == 2
	assert.Equal(t, "machine learning breakthroughs", summary["topic"])
	assert.Equal(t, 3, summary["sources_found"])
	assert.Equal(t, true, summary["stored"])
	assert.Equal(t, []string{"machine learning breakthroughs"}, search.queries)

	doc, err := st.FindOne(context.Background(), store.CollectionKnowledge, store.Where(store.Eq("topic", "machine learning breakthroughs")))
	require.NoError(t, err)
	assert.True(t, doc.Bool("autonomous"))
	assert.Len(t, doc["sources"], 3)
	assert.True(t, fixedNow.Equal(doc.Time("learned_at")))
}

func TestContinuousLearningZeroResultsWritesNothing(t *testing.T) {
	st := store.NewMemory()
	r := newRunner(t, newDiag(healthy()), st, &fakeSearch{})

	summary, err := r.ContinuousLearning(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary["sources_found"])
	assert.Equal(t, false, summary["stored"])

	n, err := st.Count(context.Background(), store.CollectionKnowledge, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestContinuousLearningSearchFailure(t *testing.T) {
	r := newRunner(t, newDiag(healthy()), store.NewMemory(), &fakeSearch{err: errors.New("search timeout")})
	summary, err := r.ContinuousLearning(context.Background())
	require.Error(t, err)
	assert.Equal(t, "machine learning breakthroughs", summary["topic"])
}

func TestContinuousLearningTopicRotation(t *testing.T) {
	r := newRunner(t, newDiag(healthy()), store.NewMemory(), &fakeSearch{})
	r.SetTopics([]string{"only topic"})
	summary, _ := r.ContinuousLearning(context.Background())
	assert.Equal(t, "only topic", summary["topic"])

	r.SetTopics(nil)
	assert.Equal(t, DefaultTopics, r.Topics())
}

func seedMemory(t *testing.T, st store.DocumentStore, id string, importance int, updated time.Time) {
	t.Helper()
	_, err := st.InsertOne(context.Background(), store.CollectionMemories, store.Document{
		store.IDField: id,
		"user_id":     "u1",
		"key":         id,
		"importance":  importance,
		"updated_at":  updated,
	})
	require.NoError(t, err)
}

func TestMemoryOptimizationArchivesStaleMemories(t *testing.T) {
	st := store.NewMemory()
	old := fixedNow.Add(-40 * 24 * time.Hour)
	recent := fixedNow.Add(-24 * time.Hour)
	seedMemory(t, st, "stale-low", 2, old)
	seedMemory(t, st, "stale-edge", 3, old)
	seedMemory(t, st, "stale-important", 8, old)
	seedMemory(t, st, "fresh-low", 1, recent)

	r := newRunner(t, newDiag(healthy()), st, &fakeSearch{})
	summary, err := r.MemoryOptimization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary["archived_count"])

	ctx := context.Background()
	archived, err := st.Find(ctx, store.CollectionMemoryArchive, nil, store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, archived, 2)
	assert.ElementsMatch(t, []string{"stale-low", "stale-edge"}, []string{archived[0].ID(), archived[1].ID()})
	assert.True(t, fixedNow.Equal(archived[0].Time("archived_at")))

	left, err := st.Find(ctx, store.CollectionMemories, nil, store.FindOptions{})
	require.NoError(t, err)
	ids := []string{}
	for _, d := range left {
		ids = append(ids, d.ID())
	}
	assert.ElementsMatch(t, []string{"fresh-low", "stale-important"}, ids)
}

func TestMemoryOptimizationBatches(t *testing.T) {
	st := store.NewMemory()
	old := fixedNow.Add(-60 * 24 * time.Hour)
	for i := 0; i < 5; i++ {
		seedMemory(t, st, fmt.Sprintf("m%d", i), 1, old.Add(time.Duration(i)*time.Minute))
	}
	cfg := DefaultConfig()
	cfg.ArchiveBatchSize = 2
	r := NewRunner(newDiag(healthy()), st, nil, cfg)
	r.now = func() time.Time { return fixedNow }

	summary, err := r.MemoryOptimization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary["archived_count"])

	n, _ := st.Count(context.Background(), store.CollectionMemories, nil)
	assert.Equal(t, int64(3), n)
}

func TestMemoryOptimizationZeroRecordsIsNoop(t *testing.T) {
	st := store.NewMemory()
	seedMemory(t, st, "fresh", 1, fixedNow)
	diag := newDiag(healthy())
	r := newRunner(t, diag, st, &fakeSearch{})

	s, err := scheduler.New(scheduler.DefaultConfig(), diag, r.Jobs())
	require.NoError(t, err)

	rec, err := s.RunNow(context.Background(), MemoryOptimizationID)
	require.NoError(t, err)
	assert.Equal(t, scheduler.OutcomeSuccess, rec.Outcome)
	assert.Equal(t, 0, rec.Summary["archived_count"])
	require.Len(t, s.Status().RecentTasks, 1)

	ctx := context.Background()
	n, _ := st.Count(ctx, store.CollectionMemories, nil)
	assert.Equal(t, int64(1), n)
	n, _ = st.Count(ctx, store.CollectionMemoryArchive, nil)
	assert.Zero(t, n)
	assert.Zero(t, diag.ErrorLog().Len())
}

func TestSelfImprovementUpsertsSnapshot(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := st.InsertOne(ctx, store.CollectionConversations, store.Document{"user_id": fmt.Sprint(i)})
		require.NoError(t, err)
	}
	diag := newDiag(healthy())
	diag.LogError("Database Connection", "down", "")
	diag.LogError("Unknown Glitch", "?", "")
	r := newRunner(t, diag, st, &fakeSearch{})

	summary, err := r.SelfImprovement(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary["total_conversations"])
	assert.Equal(t, 1, summary["critical_errors"])
	assert.Equal(t, false, summary["early_warning_probe"])

	_, err = r.SelfImprovement(ctx)
	require.NoError(t, err)

	docs, err := st.Find(ctx, store.CollectionSystemConfig, store.Where(store.Eq("key", MetricsConfigKey)), store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1, "snapshot must be upserted, not appended")
	value := docs[0]["value"].(map[string]any)
	assert.Equal(t, 3.0, value["total_conversations"])
}

func TestSelfImprovementEarlyWarningProbe(t *testing.T) {
	diag := newDiag(healthy())
	for i := 0; i < 4; i++ {
		diag.LogError("Authentication failure", "bad key", "")
	}
	r := newRunner(t, diag, store.NewMemory(), &fakeSearch{})

	assert.True(t, diag.Counters().LastHealthCheck.IsZero())
	summary, err := r.SelfImprovement(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, summary["early_warning_probe"])
	assert.Equal(t, "healthy", summary["overall_health"])
	assert.False(t, diag.Counters().LastHealthCheck.IsZero())
}
