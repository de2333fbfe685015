// Package cli implements the discover command tree.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seastack/discover/internal/client"
	"github.com/seastack/discover/internal/config"
	"github.com/seastack/discover/internal/logging"
	"github.com/seastack/discover/internal/retry"
	"github.com/seastack/discover/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "discover",
	Short: "Build and run analytics queries from the command line",
	Long: `discover is a query builder for event analytics.

Compose a query from fields, aggregations, filter conditions, ordering
and a row limit, run it against the backend, and get the tabular result
plus a daily time series when the query aggregates. Every successful
run produces a shareable link token that encodes the executed query.

Examples:
  discover run --field project.name --cond "status,=,500" --limit 50
  discover run --agg "count,id,event_count" --orderby -event_count
  discover saved save errors-by-project --agg "count,id,n" --field project.name
  discover decode eyJmaWVsZHMiOi4uLg
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagConfig   string
	flagLogLevel string
	flagQuiet    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "only log warnings and errors")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSavedCmd())
	rootCmd.AddCommand(newColumnsCmd())
	rootCmd.AddCommand(newDecodeCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("discover version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newBackend builds the HTTP backend client from configuration.
func newBackend(cfg *config.Config, log zerolog.Logger) (*client.Client, error) {
	return client.New(client.Config{
		BaseURL: cfg.BaseURL,
		Org:     cfg.Org,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
		Retry: retry.Config{
			MaxRetries:     cfg.Retry.MaxRetries,
			InitialBackoff: cfg.Retry.InitialBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
			Jitter:         cfg.Retry.Jitter,
		},
	}, log)
}

// loadConfig builds the effective configuration and logger for a
// command invocation.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagQuiet {
		cfg.LogLevel = "warn"
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.Pretty})
	return cfg, log, nil
}
