package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seastack/discover/internal/discover"
	"github.com/seastack/discover/internal/errors"
	"github.com/seastack/discover/internal/filter"
	"github.com/seastack/discover/internal/nav"
	"github.com/seastack/discover/internal/notify"
	"github.com/seastack/discover/internal/savedquery"
)

type runFlags struct {
	fields     []string
	aggs       []string
	conds      []string
	orderby    string
	limit      int
	projects   []string
	since      time.Duration
	start      string
	end        string
	filterExpr string
	saveAs     string
	asJSON     bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a query and print the results",
		Long: `Run a query built from the given flags.

Aggregations are function,column[,alias] tuples; conditions are
column,operator[,value] tuples. Invalid clauses (unknown columns,
malformed operator/value shapes) are dropped before execution rather
than failing the run. Queries with at least one aggregation also fetch
a daily time series alongside the tabular result.

Examples:
  discover run --field project.name --field status --limit 20
  discover run --agg "count,id,n" --field project.name --orderby -n
  discover run --cond "url,LIKE,%checkout%" --since 48h
  discover run --agg "avg,duration,avg_dur" --filter "avg_dur > 250"
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, flags)
		},
	}

	cmd.Flags().StringArrayVar(&flags.fields, "field", nil, "column to select (repeatable)")
	cmd.Flags().StringArrayVar(&flags.aggs, "agg", nil, "aggregation as function,column[,alias] (repeatable)")
	cmd.Flags().StringArrayVar(&flags.conds, "cond", nil, "condition as column,operator[,value] (repeatable)")
	cmd.Flags().StringVar(&flags.orderby, "orderby", "", "sort key, prefix with - for descending")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "row limit (default 1000)")
	cmd.Flags().StringArrayVar(&flags.projects, "project", nil, "project identifier (repeatable)")
	cmd.Flags().DurationVar(&flags.since, "since", 0, "look-back window, e.g. 1h, 72h (default 14 days)")
	cmd.Flags().StringVar(&flags.start, "start", "", "range start (RFC3339), overrides --since")
	cmd.Flags().StringVar(&flags.end, "end", "", "range end (RFC3339)")
	cmd.Flags().StringVar(&flags.filterExpr, "filter", "", "boolean expression applied to result rows client-side")
	cmd.Flags().StringVar(&flags.saveAs, "save", "", "save the executed query under this name")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "print the raw JSON payload")

	return cmd
}

func runQuery(cmd *cobra.Command, flags runFlags) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()

	backend, err := newBackend(cfg, log)
	if err != nil {
		return err
	}

	columns, err := backend.Columns(ctx)
	if err != nil {
		return fmt.Errorf("fetch column schema: %w", err)
	}

	updates, err := updatesFromFlags(flags, cfg.Projects)
	if err != nil {
		return err
	}

	model := discover.NewModel(log, columns, discover.DefaultQuery(time.Now()))
	sink := notify.NewMemory()
	history := nav.NewHistory(log)
	orch := discover.NewOrchestrator(log, model, backend, sink, history, cfg.Org)

	orch.Apply(updates)
	snap := orch.Run(ctx)

	if snap.LastResult == nil {
		msgs := sink.Errors()
		if len(msgs) > 0 {
			return fmt.Errorf("query failed: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("query failed")
	}

	rows := snap.LastResult.Data
	if flags.filterExpr != "" {
		expr, err := filter.Compile(flags.filterExpr)
		if err != nil {
			return err
		}
		rows, err = expr.Rows(rows)
		if err != nil {
			return err
		}
	}

	if flags.saveAs != "" {
		store, err := savedquery.Open(cfg.SavedQueryDB, log)
		if err != nil {
			return err
		}
		defer errors.DeferClose(log, store, "close saved query store")
		if _, err := store.Save(flags.saveAs, *snap.LastQuery); err != nil {
			return err
		}
		log.Info().Str("name", flags.saveAs).Msg("query saved")
	}

	return printRun(cmd, snap, rows, history.Current(), flags.asJSON)
}

// updatesFromFlags turns parsed run flags into ordered model updates.
// Only explicitly set values are applied, so the default query shows
// through everywhere else.
func updatesFromFlags(flags runFlags, defaultProjects []string) ([]discover.FieldUpdate, error) {
	var updates []discover.FieldUpdate

	if len(flags.fields) > 0 {
		updates = append(updates, discover.FieldUpdate{Field: discover.FieldFields, Value: flags.fields})
	}
	if len(flags.aggs) > 0 {
		aggs := make([]discover.Aggregation, 0, len(flags.aggs))
		for _, raw := range flags.aggs {
			agg, err := parseAggregation(raw)
			if err != nil {
				return nil, err
			}
			aggs = append(aggs, agg)
		}
		updates = append(updates, discover.FieldUpdate{Field: discover.FieldAggregations, Value: aggs})
	}
	if len(flags.conds) > 0 {
		conds := make([]discover.Condition, 0, len(flags.conds))
		for _, raw := range flags.conds {
			cond, err := parseCondition(raw)
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
		}
		updates = append(updates, discover.FieldUpdate{Field: discover.FieldConditions, Value: conds})
	}
	if flags.orderby != "" {
		updates = append(updates, discover.FieldUpdate{Field: discover.FieldOrderby, Value: flags.orderby})
	}
	if flags.limit > 0 {
		updates = append(updates, discover.FieldUpdate{Field: discover.FieldLimit, Value: flags.limit})
	}
	projects := flags.projects
	if len(projects) == 0 {
		projects = defaultProjects
	}
	if len(projects) > 0 {
		updates = append(updates, discover.FieldUpdate{Field: discover.FieldProjects, Value: projects})
	}

	if flags.since > 0 || flags.start != "" || flags.end != "" {
		start, end, err := timeRange(discover.DefaultQuery(time.Now()), flags.since, flags.start, flags.end)
		if err != nil {
			return nil, err
		}
		updates = append(updates,
			discover.FieldUpdate{Field: discover.FieldStart, Value: start},
			discover.FieldUpdate{Field: discover.FieldEnd, Value: end},
		)
	}
	return updates, nil
}
