package discover

// SortOption is one selectable sort key. Value is the orderby string
// ("name" ascending, "-name" descending); Label is the display text.
type SortOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// SortOptions derives the legal sort keys for the current query.
//
// Once a query aggregates, ordering by a raw column is only meaningful
// for columns the user explicitly grouped by (the selected fields);
// every other raw column has collapsed away. Without aggregations any
// schema column is orderable. Aggregation aliases are always orderable
// and are de-duplicated, since the same tuple may appear repeatedly
// while being edited.
//
// Column options come first in schema order, then alias options in
// aggregation order; each key contributes an ascending and a
// descending entry.
func SortOptions(columns []Column, q Query) []SortOption {
	valid := make([]Aggregation, 0, len(q.Aggregations))
	for _, a := range q.Aggregations {
		if IsValidAggregation(a, columns) {
			valid = append(valid, a)
		}
	}
	hasAggregations := len(valid) > 0

	fields := make(map[string]struct{}, len(q.Fields))
	for _, f := range q.Fields {
		fields[f] = struct{}{}
	}

	var opts []SortOption
	for _, col := range columns {
		if hasAggregations {
			if _, selected := fields[col.Name]; !selected {
				continue
			}
		}
		opts = appendSortPair(opts, col.Name)
	}

	seen := make(map[string]struct{}, len(valid))
	for _, a := range valid {
		if _, dup := seen[a.Alias]; dup {
			continue
		}
		seen[a.Alias] = struct{}{}
		opts = appendSortPair(opts, a.Alias)
	}
	return opts
}

func appendSortPair(opts []SortOption, name string) []SortOption {
	return append(opts,
		SortOption{Value: name, Label: name + " asc"},
		SortOption{Value: "-" + name, Label: name + " desc"},
	)
}
