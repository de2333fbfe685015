package discover

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seastack/discover/internal/nav"
	"github.com/seastack/discover/internal/notify"
	"github.com/seastack/discover/internal/testutil"
)

// fakeFetcher scripts fetch outcomes and records every executed query.
// Primary and chart queries are told apart by the Groupby marker.
type fakeFetcher struct {
	mu         sync.Mutex
	queries    []WireQuery
	primaryErr error
	chartErr   error
	result     ResultPayload
	// block, when non-nil, is closed to release in-flight fetches.
	block chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, q WireQuery) (ResultPayload, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if len(q.Groupby) > 0 {
		if f.chartErr != nil {
			return ResultPayload{}, f.chartErr
		}
		return f.result, nil
	}
	if f.primaryErr != nil {
		return ResultPayload{}, f.primaryErr
	}
	return f.result, nil
}

func (f *fakeFetcher) fetched() []WireQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WireQuery(nil), f.queries...)
}

type fixture struct {
	model   *Model
	fetcher *fakeFetcher
	sink    *notify.Memory
	history *nav.History
	orch    *Orchestrator
}

func newFixture(t *testing.T, opts ...OrchestratorOption) *fixture {
	t.Helper()
	log := testutil.NewTestLogger(t)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	f := &fixture{
		model: NewModel(log, testColumns, DefaultQuery(now)),
		fetcher: &fakeFetcher{
			result: ResultPayload{Data: []map[string]any{{"id": "abc"}}},
		},
		sink:    notify.NewMemory(),
		history: nav.NewHistory(log),
	}
	f.orch = NewOrchestrator(log, f.model, f.fetcher, f.sink, f.history, "acme", opts...)
	return f
}

func TestRun_PrimaryOnlyWithoutAggregations(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	snap := f.orch.Run(ctx)

	require.NotNil(t, snap.LastResult)
	require.NotNil(t, snap.LastQuery)
	assert.Nil(t, snap.ChartResult)
	assert.Nil(t, snap.ChartQuery)
	assert.False(t, snap.IsFetching)

	queries := f.fetcher.fetched()
	require.Len(t, queries, 1)
	assert.Empty(t, queries[0].Groupby)
}

func TestRun_WithAggregationsFetchesChart(t *testing.T) {
	f := newFixture(t)
	f.orch.Set(FieldAggregations, []Aggregation{{AggCount, "id", "n"}})
	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	snap := f.orch.Run(ctx)

	require.NotNil(t, snap.ChartResult)
	require.NotNil(t, snap.ChartQuery)
	assert.Equal(t, []string{"time"}, snap.ChartQuery.Groupby)
	assert.Equal(t, ChartRollupSeconds, snap.ChartQuery.Rollup)
	assert.Equal(t, "time", snap.ChartQuery.Orderby)
	assert.Equal(t, ChartLimit, snap.ChartQuery.Limit)

	assert.Len(t, f.fetcher.fetched(), 2)
}

func TestRun_CleansInvalidClausesAndPersistsThem(t *testing.T) {
	f := newFixture(t)
	f.orch.Apply([]FieldUpdate{
		{FieldConditions, []Condition{
			{"status", OpGte, 500.0},
			{"ghost", OpEq, "x"},
		}},
		{FieldAggregations, []Aggregation{
			{AggCount, "id", "n"},
			{AggAvg, "id", "bad"},
		}},
	})
	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	snap := f.orch.Run(ctx)

	// The executed query contains only valid clauses.
	require.NotNil(t, snap.LastQuery)
	assert.Equal(t, []Condition{{"status", OpGte, 500.0}}, snap.LastQuery.Conditions)
	assert.Equal(t, []Aggregation{{AggCount, "id", "n"}}, snap.LastQuery.Aggregations)

	// The cleaned form was written back into the editable model.
	internal := f.model.Internal()
	assert.Equal(t, []Condition{{"status", OpGte, 500.0}}, internal.Conditions)
	assert.Equal(t, []Aggregation{{AggCount, "id", "n"}}, internal.Aggregations)

	// Dropped clauses never surface as errors.
	assert.Empty(t, f.sink.Errors())
}

func TestRun_WithoutCleanPersistenceLeavesModelUntouched(t *testing.T) {
	f := newFixture(t, WithoutCleanPersistence())
	f.orch.Set(FieldConditions, []Condition{{"ghost", OpEq, "x"}})
	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	snap := f.orch.Run(ctx)

	assert.Empty(t, snap.LastQuery.Conditions)
	assert.Len(t, f.model.Internal().Conditions, 1)
}

func TestRun_PushesEncodedLocation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	snap := f.orch.Run(ctx)

	current := f.history.Current()
	require.NotEmpty(t, current)

	org, token, err := nav.ParseQueryPath(current)
	require.NoError(t, err)
	assert.Equal(t, "acme", org)

	decoded, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, *snap.LastQuery, decoded)
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.orch.Set(FieldAggregations, []Aggregation{{AggCount, "id", "n"}})
	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	first := f.orch.Run(ctx)
	second := f.orch.Run(ctx)

	assert.Equal(t, first.LastQuery, second.LastQuery)
	assert.Equal(t, first.ChartQuery, second.ChartQuery)

	entries := f.history.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, entries[0], entries[1])
}

func TestRun_PrimaryFailureClearsStateAndNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	// Seed state from a previous successful run.
	snap := f.orch.Run(ctx)
	require.NotNil(t, snap.LastResult)
	f.fetcher.primaryErr = errors.New("boom")

	snap = f.orch.Run(ctx)

	assert.Nil(t, snap.LastResult)
	assert.Nil(t, snap.LastQuery)
	assert.False(t, snap.IsFetching)

	msgs := f.sink.Errors()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "boom")

	// No location was pushed for the failed run.
	assert.Len(t, f.history.Entries(), 1)
}

func TestRun_ChartFailureDegradesSilently(t *testing.T) {
	f := newFixture(t)
	f.orch.Set(FieldAggregations, []Aggregation{{AggCount, "id", "n"}})
	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	// Populate the chart, then make only the chart fetch fail.
	snap := f.orch.Run(ctx)
	require.NotNil(t, snap.ChartResult)
	f.fetcher.chartErr = errors.New("chart down")

	snap = f.orch.Run(ctx)

	require.NotNil(t, snap.LastResult, "primary result is unaffected")
	assert.Nil(t, snap.ChartResult)
	assert.Nil(t, snap.ChartQuery)
	assert.Empty(t, f.sink.Errors(), "chart failures are not user-visible")
}

func TestRun_RemovingAggregationsClearsPreviousChart(t *testing.T) {
	f := newFixture(t)
	f.orch.Set(FieldAggregations, []Aggregation{{AggCount, "id", "n"}})
	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	snap := f.orch.Run(ctx)
	require.NotNil(t, snap.ChartQuery)

	f.orch.Set(FieldAggregations, []Aggregation{})
	snap = f.orch.Run(ctx)

	assert.Nil(t, snap.ChartResult)
	assert.Nil(t, snap.ChartQuery)
}

func TestRun_ClearsIndicatorsAtStart(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	f.orch.Run(ctx)
	f.orch.Run(ctx)

	assert.Equal(t, 2, f.sink.Clears())
}

func TestRun_SupersededCompletionIsDiscarded(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	// First run blocks in flight.
	release := make(chan struct{})
	f.fetcher.mu.Lock()
	f.fetcher.block = release
	f.fetcher.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.orch.Run(ctx)
	}()

	// Wait for the first run's fetch to be in flight.
	require.Eventually(t, func() bool {
		return len(f.fetcher.fetched()) == 1
	}, time.Second, time.Millisecond)

	// Second run completes immediately and wins.
	f.fetcher.mu.Lock()
	f.fetcher.block = nil
	f.fetcher.mu.Unlock()
	f.orch.Set(FieldLimit, 42)
	snap := f.orch.Run(ctx)
	require.NotNil(t, snap.LastQuery)
	assert.Equal(t, 42, snap.LastQuery.Limit)

	// Release the stale first run; its completion must not clobber the
	// newer state.
	close(release)
	wg.Wait()

	final := f.orch.Snapshot()
	require.NotNil(t, final.LastQuery)
	assert.Equal(t, 42, final.LastQuery.Limit)
	assert.False(t, final.IsFetching)
	assert.Len(t, f.history.Entries(), 1, "stale run pushes no location")
}

func TestReset_ClearsEverything(t *testing.T) {
	f := newFixture(t)
	f.orch.Set(FieldAggregations, []Aggregation{{AggCount, "id", "n"}})
	f.orch.Set(FieldFields, []string{"project.name"})
	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	snap := f.orch.Run(ctx)
	require.NotNil(t, snap.LastResult)
	require.NotNil(t, snap.ChartResult)

	f.orch.Reset()

	snap = f.orch.Snapshot()
	assert.Nil(t, snap.LastResult)
	assert.Nil(t, snap.LastQuery)
	assert.Nil(t, snap.ChartResult)
	assert.Nil(t, snap.ChartQuery)
	assert.False(t, snap.IsFetching)

	// The model is back to its default query.
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, DefaultQuery(now), f.model.Internal())

	// The location returns to the base builder path.
	assert.Equal(t, BasePath("acme"), f.history.Current())
}

func TestApply_UpdatesInOrder(t *testing.T) {
	f := newFixture(t)

	f.orch.Apply([]FieldUpdate{
		{FieldOrderby, "id"},
		{FieldOrderby, "-id"},
	})

	assert.Equal(t, "-id", f.model.Internal().Orderby)
}
