package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unilakehq/queryguard/pkg/dialect"

	// Register the built-in dialects for listing.
	_ "github.com/unilakehq/queryguard/pkg/dialects/ansi"
	_ "github.com/unilakehq/queryguard/pkg/dialects/snowflake"
	_ "github.com/unilakehq/queryguard/pkg/dialects/starrocks"
	_ "github.com/unilakehq/queryguard/pkg/dialects/tsql"
	_ "github.com/unilakehq/queryguard/pkg/dialects/unilake"
)

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List registered SQL dialects",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range dialect.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
