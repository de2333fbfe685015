package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seastack/discover/internal/discover"
)

// printRun writes a completed run to stdout: the rows as a table or
// JSON, the chart summary when present, and the shareable link.
func printRun(cmd *cobra.Command, snap discover.Snapshot, rows []map[string]any, location string, asJSON bool) error {
	out := cmd.OutOrStdout()

	if asJSON {
		payload := map[string]any{
			"data":  rows,
			"meta":  snap.LastResult.Meta,
			"query": snap.LastQuery,
		}
		if snap.ChartResult != nil {
			payload["chart"] = map[string]any{
				"data":  snap.ChartResult.Data,
				"query": snap.ChartQuery,
			}
		}
		if location != "" {
			payload["link"] = location
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	printTable(out, snap.LastResult.Meta, rows)
	if snap.ChartResult != nil {
		fmt.Fprintf(out, "\nchart: %d time buckets (rollup %ds)\n", len(snap.ChartResult.Data), discover.ChartRollupSeconds)
	}
	if location != "" {
		fmt.Fprintf(out, "link: %s\n", location)
	}
	return nil
}

func printTable(out io.Writer, meta []discover.MetaField, rows []map[string]any) {
	headers := columnsFor(meta, rows)
	if len(headers) == 0 {
		fmt.Fprintln(out, "no rows")
		return
	}

	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, h)
	}
	fmt.Fprintln(w)
	for _, row := range rows {
		for i, h := range headers {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprintf(w, "%v", row[h])
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
	fmt.Fprintf(out, "%d rows\n", len(rows))
}

// columnsFor prefers the backend's meta ordering and falls back to the
// sorted union of row keys.
func columnsFor(meta []discover.MetaField, rows []map[string]any) []string {
	if len(meta) > 0 {
		out := make([]string, len(meta))
		for i, m := range meta {
			out[i] = m.Name
		}
		return out
	}
	seen := map[string]struct{}{}
	var out []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}
