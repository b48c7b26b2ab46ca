package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/unilakehq/queryguard"
)

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [sql]",
		Short: "Scan a SQL query for referenced entities and attributes",
		Long: `Parse a SQL query, qualify identifiers against the configured catalog
and database, and report the referenced entities and attributes per scope
together with the query IR.`,
		Example: `  # Scan a query given as an argument
  queryguard scan "SELECT a FROM b" --catalog c --database d

  # Scan from stdin and render a table
  echo "SELECT a FROM b" | queryguard scan --output table`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			start := time.Now()
			out := queryguard.Scan(strings.TrimSpace(sql), cfg.Dialect, cfg.Catalog, cfg.Database)
			slog.Debug("scan finished", "dialect", cfg.Dialect, "type", out.Type, "duration", time.Since(start))

			if cfg.Output == "table" {
				renderScanTable(cmd, out)
				return nil
			}
			encoded, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
	return cmd
}

func renderScanTable(cmd *cobra.Command, out *queryguard.ScanOutput) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "type: %s\n", out.Type)
	if out.TargetEntity != nil {
		fmt.Fprintf(w, "target: %s\n", *out.TargetEntity)
	}
	if out.Error != nil {
		fmt.Fprintf(w, "error: %s %s\n", out.Error.ErrorType, out.Error.Message)
		for _, e := range out.Error.Errors {
			fmt.Fprintf(w, "  line %d col %d: %s\n", e.Line, e.Col, e.Description)
		}
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Scope", "Entities", "Attributes", "Agg"})
	for _, obj := range out.Objects {
		var entities []string
		for _, e := range obj.Entities {
			name := e.Name
			if e.Db != "" {
				name = e.Db + "." + name
			}
			if e.Catalog != "" {
				name = e.Catalog + "." + name
			}
			if e.Alias != "" && e.Alias != e.Name {
				name += " AS " + e.Alias
			}
			entities = append(entities, name)
		}
		var attributes []string
		for _, a := range obj.Attributes {
			if a.EntityAlias != "" {
				attributes = append(attributes, a.EntityAlias+"."+a.Name)
			} else {
				attributes = append(attributes, a.Name)
			}
		}
		t.AppendRow(table.Row{obj.Scope, strings.Join(entities, "\n"), strings.Join(attributes, "\n"), obj.IsAgg})
	}
	t.Render()
}
