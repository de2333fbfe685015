package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/seastack/discover/internal/discover"
)

// parseAggregation parses "function,column,alias" into an aggregation
// tuple. The alias defaults to "function_column" when omitted.
func parseAggregation(s string) (discover.Aggregation, error) {
	parts := strings.SplitN(s, ",", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return discover.Aggregation{}, fmt.Errorf("aggregation %q must be function,column[,alias]", s)
	}
	agg := discover.Aggregation{
		Function: discover.AggregateFunc(strings.TrimSpace(parts[0])),
		Column:   strings.TrimSpace(parts[1]),
	}
	if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
		agg.Alias = strings.TrimSpace(parts[2])
	} else {
		agg.Alias = string(agg.Function) + "_" + strings.ReplaceAll(agg.Column, ".", "_")
	}
	return agg, nil
}

// parseCondition parses "column,operator[,value]" into a condition
// tuple. Null-test operators take no value; numeric-looking values are
// parsed as numbers.
func parseCondition(s string) (discover.Condition, error) {
	parts := strings.SplitN(s, ",", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return discover.Condition{}, fmt.Errorf("condition %q must be column,operator[,value]", s)
	}
	cond := discover.Condition{
		Column:   strings.TrimSpace(parts[0]),
		Operator: discover.Operator(strings.TrimSpace(parts[1])),
	}
	if len(parts) == 3 {
		cond.Value = parseConditionValue(parts[2])
	}
	return cond, nil
}

func parseConditionValue(s string) any {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// timeRange resolves the --since / --start / --end flags against the
// default query window. Explicit bounds win over --since.
func timeRange(def discover.Query, since time.Duration, start, end string) (time.Time, time.Time, error) {
	s, e := def.Start, def.End
	if since > 0 {
		e = time.Now().UTC().Truncate(time.Second)
		s = e.Add(-since)
	}
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return s, e, fmt.Errorf("invalid --start %q: %w", start, err)
		}
		s = t
	}
	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return s, e, fmt.Errorf("invalid --end %q: %w", end, err)
		}
		e = t
	}
	if !e.After(s) {
		return s, e, fmt.Errorf("time range is empty: start %s is not before end %s", s, e)
	}
	return s, e, nil
}
