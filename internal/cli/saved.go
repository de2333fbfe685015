package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seastack/discover/internal/config"
	"github.com/seastack/discover/internal/discover"
	"github.com/seastack/discover/internal/errors"
	"github.com/seastack/discover/internal/savedquery"
)

func newSavedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved queries",
	}

	cmd.AddCommand(newSavedListCmd())
	cmd.AddCommand(newSavedShowCmd())
	cmd.AddCommand(newSavedDeleteCmd())
	cmd.AddCommand(newSavedLinkCmd())

	return cmd
}

func withStore(fn func(cmd *cobra.Command, args []string, store *savedquery.Store, cfg *config.Config, log zerolog.Logger) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := savedquery.Open(cfg.SavedQueryDB, log)
		if err != nil {
			return err
		}
		defer errors.DeferClose(log, store, "close saved query store")
		return fn(cmd, args, store, cfg, log)
	}
}

func newSavedListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved queries",
		RunE: withStore(func(cmd *cobra.Command, args []string, store *savedquery.Store, cfg *config.Config, log zerolog.Logger) error {
			saved, err := store.List()
			if err != nil {
				return err
			}
			if len(saved) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no saved queries")
				return nil
			}
			for _, sq := range saved {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t(updated %s)\n", sq.Name, sq.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		}),
	}
}

func newSavedShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, store *savedquery.Store, cfg *config.Config, log zerolog.Logger) error {
			sq, err := store.Get(args[0])
			if err != nil {
				return err
			}
			printWireQuery(cmd, sq.Query)
			return nil
		}),
	}
}

func newSavedDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, store *savedquery.Store, cfg *config.Config, log zerolog.Logger) error {
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", args[0])
			return nil
		}),
	}
}

func newSavedLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <name>",
		Short: "Print the shareable link for a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, store *savedquery.Store, cfg *config.Config, log zerolog.Logger) error {
			sq, err := store.Get(args[0])
			if err != nil {
				return err
			}
			token, err := discover.Encode(sq.Query)
			if err != nil {
				return fmt.Errorf("encode saved query %q: %w", sq.Name, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), discover.QueryPath(cfg.Org, token))
			return nil
		}),
	}
}
