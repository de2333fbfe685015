package discover

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Field names a single editable slot of the query model.
type Field string

const (
	FieldFields       Field = "fields"
	FieldAggregations Field = "aggregations"
	FieldConditions   Field = "conditions"
	FieldOrderby      Field = "orderby"
	FieldLimit        Field = "limit"
	FieldProjects     Field = "projects"
	FieldStart        Field = "start"
	FieldEnd          Field = "end"
)

// FieldUpdate pairs a field with its new value. Bulk updates take an
// ordered slice so apply order is deterministic.
type FieldUpdate struct {
	Field Field
	Value any
}

// DefaultQuery returns the query the model starts from and returns to
// on reset: no clauses, newest first, standard limit, last 14 days.
func DefaultQuery(now time.Time) Query {
	now = now.UTC().Truncate(time.Second)
	return Query{
		Orderby: "-timestamp",
		Limit:   DefaultLimit,
		Start:   now.AddDate(0, 0, -14),
		End:     now,
	}
}

// Model is the single source of truth for the in-progress query. Every
// mutation bumps a monotonically increasing version and notifies
// subscribers, so consumers can detect that a snapshot they hold has
// gone stale. All accessors return value copies.
type Model struct {
	mu      sync.Mutex
	log     zerolog.Logger
	columns []Column
	query   Query
	def     Query
	version uint64
	subs    map[int]func(version uint64)
	nextSub int
}

// NewModel creates a model over the given schema snapshot, initialized
// to def.
func NewModel(log zerolog.Logger, columns []Column, def Query) *Model {
	return &Model{
		log:     log.With().Str("component", "query-model").Logger(),
		columns: append([]Column(nil), columns...),
		query:   def.Clone(),
		def:     def.Clone(),
		subs:    make(map[int]func(uint64)),
	}
}

// Internal returns a copy of the editable query.
func (m *Model) Internal() Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query.Clone()
}

// External returns the normalized wire projection of the current query.
func (m *Model) External() WireQuery {
	m.mu.Lock()
	q := m.query.Clone()
	cols := append([]Column(nil), m.columns...)
	m.mu.Unlock()
	return q.External(cols)
}

// Columns returns a copy of the active schema snapshot.
func (m *Model) Columns() []Column {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Column(nil), m.columns...)
}

// SetColumns replaces the schema snapshot, e.g. after switching data
// sources. Existing clauses are not revalidated here; cleaning happens
// at run time.
func (m *Model) SetColumns(columns []Column) {
	m.mu.Lock()
	m.columns = append([]Column(nil), columns...)
	version := m.bumpLocked()
	m.mu.Unlock()
	m.notify(version)
}

// Version returns the current mutation counter.
func (m *Model) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// Subscribe registers fn to be called with the new version after every
// mutation. The returned function unsubscribes.
func (m *Model) Subscribe(fn func(version uint64)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Set writes one field of the query. It is the model's single update
// entry point and never fails: an unknown field or a value of the
// wrong type is logged and ignored, matching the editor contract where
// partial or invalid input is tolerated until run time.
func (m *Model) Set(field Field, value any) {
	m.mu.Lock()
	ok := true
	switch field {
	case FieldFields:
		v, cast := value.([]string)
		if ok = cast; ok {
			m.query.Fields = append([]string(nil), v...)
		}
	case FieldAggregations:
		v, cast := value.([]Aggregation)
		if ok = cast; ok {
			m.query.Aggregations = append([]Aggregation(nil), v...)
		}
	case FieldConditions:
		v, cast := value.([]Condition)
		if ok = cast; ok {
			m.query.Conditions = append([]Condition(nil), v...)
		}
	case FieldOrderby:
		v, cast := value.(string)
		if ok = cast; ok {
			m.query.Orderby = v
		}
	case FieldLimit:
		switch v := value.(type) {
		case int:
			m.query.Limit = v
		case int64:
			m.query.Limit = int(v)
		default:
			ok = false
		}
	case FieldProjects:
		v, cast := value.([]string)
		if ok = cast; ok {
			m.query.Projects = append([]string(nil), v...)
		}
	case FieldStart:
		v, cast := value.(time.Time)
		if ok = cast; ok {
			m.query.Start = v
		}
	case FieldEnd:
		v, cast := value.(time.Time)
		if ok = cast; ok {
			m.query.End = v
		}
	default:
		m.mu.Unlock()
		m.log.Warn().Str("field", string(field)).Msg("ignoring update for unknown query field")
		return
	}
	if !ok {
		m.mu.Unlock()
		m.log.Warn().
			Str("field", string(field)).
			Type("value", value).
			Msg("ignoring update with mismatched value type")
		return
	}
	version := m.bumpLocked()
	m.mu.Unlock()
	m.notify(version)
}

// Reset restores the default query.
func (m *Model) Reset() {
	m.mu.Lock()
	m.query = m.def.Clone()
	version := m.bumpLocked()
	m.mu.Unlock()
	m.notify(version)
}

func (m *Model) bumpLocked() uint64 {
	m.version++
	return m.version
}

func (m *Model) notify(version uint64) {
	m.mu.Lock()
	fns := make([]func(uint64), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(version)
	}
}
