// Package discover implements the query builder core: the editable
// query model, clause validation, sort option derivation, and the
// orchestration of query execution against a backend.
package discover

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Chart query constants. The chart fetch always buckets by time with a
// one day rollup and a fixed row cap, regardless of the primary query.
const (
	ChartRollupSeconds = 86400
	ChartLimit         = 1000
)

// DefaultLimit is the row cap applied when a query has no explicit limit.
const DefaultLimit = 1000

// ColumnType classifies a schema column for validation purposes.
type ColumnType string

const (
	ColumnString   ColumnType = "string"
	ColumnNumber   ColumnType = "number"
	ColumnDatetime ColumnType = "datetime"
	ColumnBoolean  ColumnType = "boolean"
)

// Column is a named, typed field in the queryable schema.
// Names are unique within a schema snapshot.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Operator is a condition comparison operator.
type Operator string

const (
	OpEq        Operator = "="
	OpNeq       Operator = "!="
	OpGt        Operator = ">"
	OpLt        Operator = "<"
	OpGte       Operator = ">="
	OpLte       Operator = "<="
	OpLike      Operator = "LIKE"
	OpNotLike   Operator = "NOT LIKE"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
)

// Condition is a filter clause restricting rows.
// On the wire it is a three element array: [column, operator, value].
type Condition struct {
	Column   string
	Operator Operator
	Value    any
}

// MarshalJSON encodes the condition as [column, operator, value].
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{c.Column, string(c.Operator), c.Value})
}

// UnmarshalJSON decodes a [column, operator, value] array.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var tuple [3]any
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("condition must be a [column, operator, value] array: %w", err)
	}
	col, ok := tuple[0].(string)
	if !ok {
		return fmt.Errorf("condition column must be a string, got %T", tuple[0])
	}
	op, ok := tuple[1].(string)
	if !ok {
		return fmt.Errorf("condition operator must be a string, got %T", tuple[1])
	}
	c.Column = col
	c.Operator = Operator(op)
	c.Value = tuple[2]
	return nil
}

// AggregateFunc is a summarizing function applied to a column.
type AggregateFunc string

const (
	AggCount AggregateFunc = "count"
	AggUniq  AggregateFunc = "uniq"
	AggAvg   AggregateFunc = "avg"
	AggSum   AggregateFunc = "sum"
	AggMin   AggregateFunc = "min"
	AggMax   AggregateFunc = "max"
)

// Aggregation produces a summarized value from a column.
// On the wire it is a three element array: [function, column, alias].
type Aggregation struct {
	Function AggregateFunc
	Column   string
	Alias    string
}

// MarshalJSON encodes the aggregation as [function, column, alias].
func (a Aggregation) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{string(a.Function), a.Column, a.Alias})
}

// UnmarshalJSON decodes a [function, column, alias] array.
func (a *Aggregation) UnmarshalJSON(data []byte) error {
	var tuple [3]string
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("aggregation must be a [function, column, alias] array: %w", err)
	}
	a.Function = AggregateFunc(tuple[0])
	a.Column = tuple[1]
	a.Alias = tuple[2]
	return nil
}

// Query is the editable, in-memory query form driving the UI.
// Orderby names a column or aggregation alias, with a "-" prefix for
// descending order. Derivability of the orderby is enforced lazily at
// sort option generation time, not at write time.
type Query struct {
	Fields       []string
	Aggregations []Aggregation
	Conditions   []Condition
	Orderby      string
	Limit        int
	Projects     []string
	Start        time.Time
	End          time.Time
}

// Clone returns a deep copy of the query.
func (q Query) Clone() Query {
	out := q
	out.Fields = append([]string(nil), q.Fields...)
	out.Aggregations = append([]Aggregation(nil), q.Aggregations...)
	out.Conditions = append([]Condition(nil), q.Conditions...)
	out.Projects = append([]string(nil), q.Projects...)
	return out
}

// External projects the query into its normalized wire form against the
// given schema snapshot: slices are copied, a zero limit becomes
// DefaultLimit, and an orderby that is not derivable from the current
// fields and aggregations falls back to the first derivable sort key.
func (q Query) External(columns []Column) WireQuery {
	c := q.Clone()
	limit := c.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	return WireQuery{
		Fields:       c.Fields,
		Aggregations: c.Aggregations,
		Conditions:   c.Conditions,
		Orderby:      normalizeOrderby(c.Orderby, columns, c),
		Limit:        limit,
		Projects:     c.Projects,
		Start:        c.Start.UTC(),
		End:          c.End.UTC(),
	}
}

// normalizeOrderby keeps orderby if it names a derivable sort key and
// otherwise falls back to the first derivable option. With no options
// at all the value passes through untouched.
func normalizeOrderby(orderby string, columns []Column, q Query) string {
	opts := SortOptions(columns, q)
	if len(opts) == 0 {
		return orderby
	}
	for _, opt := range opts {
		if opt.Value == orderby {
			return orderby
		}
	}
	return opts[0].Value
}

// WireQuery is the normalized query form sent to the backend. It is
// derived from a Query and never independently mutated. Groupby and
// Rollup are only populated on the derived chart query.
type WireQuery struct {
	Fields       []string      `json:"fields"`
	Aggregations []Aggregation `json:"aggregations,omitempty"`
	Conditions   []Condition   `json:"conditions,omitempty"`
	Orderby      string        `json:"orderby"`
	Limit        int           `json:"limit"`
	Projects     []string      `json:"projects,omitempty"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Groupby      []string      `json:"groupby,omitempty"`
	Rollup       int           `json:"rollup,omitempty"`
}

// ChartQuery derives the time series companion of a wire query:
// bucketed by time with a one day rollup, ordered by time, capped at
// ChartLimit rows. Callers must only derive a chart query when the
// source query has at least one aggregation.
func ChartQuery(q WireQuery) WireQuery {
	out := q
	out.Fields = append([]string(nil), q.Fields...)
	out.Aggregations = append([]Aggregation(nil), q.Aggregations...)
	out.Conditions = append([]Condition(nil), q.Conditions...)
	out.Projects = append([]string(nil), q.Projects...)
	out.Groupby = []string{"time"}
	out.Rollup = ChartRollupSeconds
	out.Orderby = "time"
	out.Limit = ChartLimit
	return out
}

// Encode serializes a wire query into a URL safe token. The encoding is
// deterministic for a given query, so tokens are stable across runs and
// usable as bookmarks.
func Encode(q WireQuery) (string, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("encode query: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode reverses Encode.
func Decode(token string) (WireQuery, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return WireQuery{}, fmt.Errorf("decode query token: %w", err)
	}
	var q WireQuery
	if err := json.Unmarshal(raw, &q); err != nil {
		return WireQuery{}, fmt.Errorf("decode query token: %w", err)
	}
	return q, nil
}

// MetaField describes one column of a result payload.
type MetaField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ResultPayload is the backend's response to a query. The core treats
// it as opaque apart from pairing it with the query that produced it.
type ResultPayload struct {
	Data []map[string]any `json:"data"`
	Meta []MetaField      `json:"meta,omitempty"`
}

// Placeholder returns the summarize sidebar placeholder for a query.
// With aggregations present, fields act as group by keys; without them,
// omitting fields means every column is returned.
func Placeholder(q Query) string {
	if len(q.Aggregations) > 0 {
		return "Select fields"
	}
	return "No fields selected, showing all"
}
