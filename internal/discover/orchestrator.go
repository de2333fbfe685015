package discover

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Fetcher executes a wire query against the backend. A failed fetch
// returns an error whose message is suitable for showing to the user.
type Fetcher interface {
	Fetch(ctx context.Context, q WireQuery) (ResultPayload, error)
}

// Notifier is the sink for transient user-facing indicators.
type Notifier interface {
	ClearIndicators()
	AddErrorMessage(text string)
}

// Navigator records location changes so executed queries become
// navigable, shareable links.
type Navigator interface {
	Push(path string)
}

// Snapshot is the orchestrator's externally visible state. Result and
// query values are paired: LastQuery is always the exact query that
// produced LastResult, which may differ from the live edited model.
type Snapshot struct {
	LastResult  *ResultPayload
	LastQuery   *WireQuery
	ChartResult *ResultPayload
	ChartQuery  *WireQuery
	IsFetching  bool
}

// Orchestrator turns the editable query model into executed queries:
// it cleans invalid clauses, issues the primary and chart fetches, and
// keeps the navigable location in sync with what actually ran.
//
// The primary and chart fetches of one run are independent concurrent
// requests updating disjoint state slices. Runs are not cancelled when
// superseded; instead every run takes a sequence number and a
// completion is discarded once a newer run has started, so a stale
// response can never clobber newer state.
type Orchestrator struct {
	log      zerolog.Logger
	model    *Model
	fetcher  Fetcher
	notifier Notifier
	nav      Navigator
	org      string

	// persistClean writes clauses dropped by run-time validation back
	// into the model, so the editor reflects the query that actually
	// ran. On by default.
	persistClean bool

	seq atomic.Uint64

	mu          sync.Mutex
	lastResult  *ResultPayload
	lastQuery   *WireQuery
	chartResult *ResultPayload
	chartQuery  *WireQuery
	fetching    bool
}

// OrchestratorOption customizes orchestrator construction.
type OrchestratorOption func(*Orchestrator)

// WithoutCleanPersistence keeps run-time clause cleaning out of the
// editable model: the cleaned query still executes, but dropped
// clauses stay visible in the editor.
func WithoutCleanPersistence() OrchestratorOption {
	return func(o *Orchestrator) { o.persistClean = false }
}

// NewOrchestrator wires the orchestrator to its collaborators. org is
// the organization slug used in pushed locations.
func NewOrchestrator(
	log zerolog.Logger,
	model *Model,
	fetcher Fetcher,
	notifier Notifier,
	nav Navigator,
	org string,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		log:          log.With().Str("component", "orchestrator").Logger(),
		model:        model,
		fetcher:      fetcher,
		notifier:     notifier,
		nav:          nav,
		org:          org,
		persistClean: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Set forwards a single field edit to the query model. No validation
// happens here; validation is deferred to Run.
func (o *Orchestrator) Set(field Field, value any) {
	o.model.Set(field, value)
}

// Apply applies updates in order. Used to bulk-apply a suggested
// starter query.
func (o *Orchestrator) Apply(updates []FieldUpdate) {
	for _, u := range updates {
		o.model.Set(u.Field, u.Value)
	}
}

// Model exposes the underlying query model for presentation consumers.
func (o *Orchestrator) Model() *Model {
	return o.model
}

// Snapshot returns a copy of the current execution state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		LastResult:  o.lastResult,
		LastQuery:   o.lastQuery,
		ChartResult: o.chartResult,
		ChartQuery:  o.chartQuery,
		IsFetching:  o.fetching,
	}
}

// Run executes the current query: invalid clauses are cleaned off,
// the primary fetch and (with aggregations present) the chart fetch go
// out concurrently, and on primary success the executed query's token
// is pushed onto the location history. A primary failure surfaces one
// error notification and clears the result state; a chart failure
// degrades silently to no chart. Run blocks until both fetches of this
// run have settled and returns the resulting snapshot.
func (o *Orchestrator) Run(ctx context.Context) Snapshot {
	run := o.seq.Add(1)
	runID := uuid.NewString()
	log := o.log.With().Uint64("run", run).Str("run_id", runID).Logger()

	columns := o.model.Columns()
	cleaned, dropped := Clean(o.model.Internal(), columns)
	if dropped && o.persistClean {
		log.Debug().Msg("dropping invalid clauses from query model")
		o.model.Set(FieldConditions, cleaned.Conditions)
		o.model.Set(FieldAggregations, cleaned.Aggregations)
	}

	o.mu.Lock()
	o.fetching = true
	o.mu.Unlock()
	o.notifier.ClearIndicators()

	external := cleaned.External(columns)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.runPrimary(ctx, log, run, external)
	}()

	if len(cleaned.Aggregations) > 0 {
		chart := ChartQuery(external)
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.runChart(ctx, log, run, chart)
		}()
	} else {
		o.clearChart(run)
	}

	wg.Wait()
	return o.Snapshot()
}

func (o *Orchestrator) runPrimary(ctx context.Context, log zerolog.Logger, run uint64, q WireQuery) {
	result, err := o.fetcher.Fetch(ctx, q)

	o.mu.Lock()
	defer o.mu.Unlock()
	if run != o.seq.Load() {
		log.Debug().Msg("discarding superseded primary result")
		return
	}
	o.fetching = false
	if err != nil {
		log.Warn().Err(err).Msg("primary query failed")
		o.lastResult = nil
		o.lastQuery = nil
		o.notifier.AddErrorMessage(err.Error())
		return
	}
	o.lastResult = &result
	o.lastQuery = &q

	token, err := Encode(q)
	if err != nil {
		log.Warn().Err(err).Msg("query token encoding failed, location not updated")
		return
	}
	o.nav.Push(QueryPath(o.org, token))
}

func (o *Orchestrator) runChart(ctx context.Context, log zerolog.Logger, run uint64, q WireQuery) {
	result, err := o.fetcher.Fetch(ctx, q)

	o.mu.Lock()
	defer o.mu.Unlock()
	if run != o.seq.Load() {
		log.Debug().Msg("discarding superseded chart result")
		return
	}
	if err != nil {
		// The chart is a secondary enhancement; degrade without noise.
		log.Debug().Err(err).Msg("chart query failed")
		o.chartResult = nil
		o.chartQuery = nil
		return
	}
	o.chartResult = &result
	o.chartQuery = &q
}

func (o *Orchestrator) clearChart(run uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if run != o.seq.Load() {
		return
	}
	o.chartResult = nil
	o.chartQuery = nil
}

// Reset restores the default query, clears all execution state, and
// navigates to the base query builder location. In-flight fetches from
// earlier runs are left to finish; their completions are discarded.
func (o *Orchestrator) Reset() {
	o.seq.Add(1)
	o.model.Reset()

	o.mu.Lock()
	o.lastResult = nil
	o.lastQuery = nil
	o.chartResult = nil
	o.chartQuery = nil
	o.fetching = false
	o.mu.Unlock()

	o.nav.Push(BasePath(o.org))
}

// BasePath is the query-less builder location for an organization.
func BasePath(org string) string {
	return "/" + org + "/discover/"
}

// QueryPath is the location encoding an executed query.
func QueryPath(org, token string) string {
	return BasePath(org) + token
}
