package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "List the queryable columns of the active data source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			backend, err := newBackend(cfg, log)
			if err != nil {
				return err
			}

			columns, err := backend.Columns(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, col := range columns {
				fmt.Fprintf(out, "%s\t%s\n", col.Name, col.Type)
			}
			return nil
		},
	}
}
