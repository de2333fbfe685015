// Package filter applies boolean expressions to result rows, letting
// users narrow fetched data client-side without re-querying.
package filter

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-bexpr"
)

// Expression is a compiled boolean expression evaluated against a
// single result row.
type Expression struct {
	src       string
	evaluator *bexpr.Evaluator
}

// Compile parses a bexpr expression, e.g. `status == 500 and
// "checkout" in url`.
func Compile(expr string) (*Expression, error) {
	evaluator, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("error parsing expression '%s': %w", expr, err)
	}
	return &Expression{src: expr, evaluator: evaluator}, nil
}

// Match evaluates the expression against one row.
func (e *Expression) Match(row map[string]any) (bool, error) {
	ok, err := e.evaluator.Evaluate(row)
	if err != nil {
		return false, fmt.Errorf(
			"error evaluating expression '%s': %w, input values: %s",
			e.src, err, stringify(row),
		)
	}
	return ok, nil
}

// Rows returns the rows matching the expression, preserving order.
func (e *Expression) Rows(rows []map[string]any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		ok, err := e.Match(row)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func stringify(obj any) string {
	b, err := json.Marshal(obj)
	if err != nil {
		b = []byte(fmt.Sprintf("%+v", obj))
	}
	return string(b)
}
