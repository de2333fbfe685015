package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seastack/discover/internal/discover"
	"github.com/seastack/discover/internal/nav"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token-or-link>",
		Short: "Decode a shared query link back into a readable query",
		Long: `Decode a query token back into a readable query.

Accepts either a bare token or a full /{org}/discover/{token} location
as produced by a successful run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := args[0]
			if strings.Contains(token, "/") {
				_, t, err := nav.ParseQueryPath(token)
				if err != nil {
					return err
				}
				token = t
			}
			q, err := discover.Decode(token)
			if err != nil {
				return err
			}
			printWireQuery(cmd, q)
			return nil
		},
	}
}

func printWireQuery(cmd *cobra.Command, q discover.WireQuery) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(q)
}
