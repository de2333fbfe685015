package discover

// columnByName returns the schema column with the given name.
func columnByName(columns []Column, name string) (Column, bool) {
	for _, c := range columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func isComparison(op Operator) bool {
	switch op {
	case OpGt, OpLt, OpGte, OpLte:
		return true
	}
	return false
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// valuePresent reports whether a condition value is usable as an
// operand: non-nil, and not an empty string or empty list.
func valuePresent(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case []string:
		return len(val) > 0
	}
	return true
}

// IsValidCondition reports whether a condition can execute against the
// given schema snapshot: its column must exist and its operator and
// value must be structurally consistent. Pure and total.
func IsValidCondition(c Condition, columns []Column) bool {
	col, ok := columnByName(columns, c.Column)
	if !ok {
		return false
	}
	switch c.Operator {
	case OpIsNull, OpIsNotNull:
		// Null tests take no operand.
		return c.Value == nil
	case OpEq, OpNeq, OpGt, OpLt, OpGte, OpLte, OpLike, OpNotLike:
	default:
		return false
	}
	if !valuePresent(c.Value) {
		return false
	}
	if c.Operator == OpLike || c.Operator == OpNotLike {
		_, isString := c.Value.(string)
		return isString
	}
	if col.Type == ColumnNumber && isComparison(c.Operator) {
		return isNumeric(c.Value)
	}
	return true
}

// IsValidAggregation reports whether an aggregation can execute against
// the given schema snapshot: its column must exist and its function
// must be defined for that column's type. Pure and total.
func IsValidAggregation(a Aggregation, columns []Column) bool {
	col, ok := columnByName(columns, a.Column)
	if !ok {
		return false
	}
	switch a.Function {
	case AggCount, AggUniq:
		return true
	case AggAvg, AggSum:
		return col.Type == ColumnNumber
	case AggMin, AggMax:
		return col.Type == ColumnNumber || col.Type == ColumnDatetime
	}
	return false
}

// Clean returns a copy of the query with conditions and aggregations
// that fail validation removed, preserving order. The second return
// reports whether anything was dropped. Invalid clauses are discarded
// silently; they never surface as errors.
func Clean(q Query, columns []Column) (Query, bool) {
	out := q.Clone()
	conditions := out.Conditions[:0]
	for _, c := range out.Conditions {
		if IsValidCondition(c, columns) {
			conditions = append(conditions, c)
		}
	}
	aggregations := out.Aggregations[:0]
	for _, a := range out.Aggregations {
		if IsValidAggregation(a, columns) {
			aggregations = append(aggregations, a)
		}
	}
	dropped := len(conditions) != len(out.Conditions) || len(aggregations) != len(out.Aggregations)
	out.Conditions = conditions
	out.Aggregations = aggregations
	return out, dropped
}
