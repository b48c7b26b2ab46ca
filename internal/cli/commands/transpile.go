package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/unilakehq/queryguard"
)

// TranspileOptions holds options for the transpile command.
type TranspileOptions struct {
	InputFile string
	SQL       string
	Masks     []string
	Filters   []string
	Secure    bool
}

// NewTranspileCommand creates the transpile command.
func NewTranspileCommand() *cobra.Command {
	opts := &TranspileOptions{}

	cmd := &cobra.Command{
		Use:   "transpile",
		Short: "Rewrite a query with masking rules and row filters",
		Long: `Apply masking rules and row filters to a query and emit the rewritten
SQL in the execution dialect.

The full transpiler input (rules, filters, visible schema, query IR) is
read as JSON from --input or stdin. Alternatively --sql scans a query
first and --mask / --filter compose the policy inline.`,
		Example: `  # Full wire payload from stdin
  cat input.json | queryguard transpile

  # Inline: scan then mask and filter one column
  queryguard transpile --sql "SELECT a FROM b" \
    --mask '0:"b"."a":xxhash3' \
    --filter '0:"b"."a":? > 0'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			var out *queryguard.TranspilerOutput
			if opts.SQL != "" {
				input, err := composeInput(opts)
				if err != nil {
					return err
				}
				out = queryguard.Transpile(input, opts.Secure || cfg.SecureOutput)
			} else {
				payload, err := readFileOrStdin(opts.InputFile, cmd.InOrStdin())
				if err != nil {
					return err
				}
				out = queryguard.Transpile(payload, opts.Secure || cfg.SecureOutput)
			}
			slog.Debug("transpile finished", "duration", time.Since(start))

			encoded, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			if out.Error != nil {
				return fmt.Errorf("transpile failed: %s", out.Error.ErrorType)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Transpiler input JSON file (default stdin)")
	cmd.Flags().StringVar(&opts.SQL, "sql", "", "Scan this SQL and transpile the result")
	cmd.Flags().StringArrayVar(&opts.Masks, "mask", nil, `Masking rule as scope:attribute:name[:key=value,...]`)
	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, `Row filter as scope:attribute:expression`)
	cmd.Flags().BoolVar(&opts.Secure, "secure", false, "Replace literals with ? placeholders")
	return cmd
}

// composeInput scans opts.SQL and builds a transpiler input from the
// inline --mask and --filter specs.
func composeInput(opts *TranspileOptions) (*queryguard.TranspilerInput, error) {
	scanned := queryguard.Scan(opts.SQL, cfg.Dialect, cfg.Catalog, cfg.Database)
	if scanned.Error != nil {
		return nil, fmt.Errorf("scan failed: %s %s", scanned.Error.ErrorType, scanned.Error.Message)
	}

	input := &queryguard.TranspilerInput{
		Rules:   []queryguard.TranspilerInputRule{},
		Filters: []queryguard.TranspilerInputFilter{},
	}
	if scanned.Query != nil {
		input.Query = queryguard.QueryIR(*scanned.Query)
	}

	for _, spec := range opts.Masks {
		scope, attribute, rest, err := splitSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid --mask %q: %w", spec, err)
		}
		name, props := splitMaskRest(rest)
		input.Rules = append(input.Rules, queryguard.TranspilerInputRule{
			Scope:          scope,
			Attribute:      attribute,
			RuleID:         uuid.NewString(),
			RuleDefinition: queryguard.RuleDefinition{Name: name, Properties: props},
		})
	}
	for _, spec := range opts.Filters {
		scope, attribute, expression, err := splitSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid --filter %q: %w", spec, err)
		}
		input.Filters = append(input.Filters, queryguard.TranspilerInputFilter{
			Scope:            scope,
			Attribute:        attribute,
			FilterID:         uuid.NewString(),
			FilterDefinition: queryguard.FilterDefinition{Expression: expression},
		})
	}
	return input, nil
}

// splitSpec splits "scope:attribute:rest" where attribute may contain
// quoted dots but no colons.
func splitSpec(spec string) (int, string, string, error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) != 3 {
		return 0, "", "", fmt.Errorf("expected scope:attribute:value")
	}
	var scope int
	if _, err := fmt.Sscanf(parts[0], "%d", &scope); err != nil {
		return 0, "", "", fmt.Errorf("scope must be an integer")
	}
	return scope, parts[1], parts[2], nil
}

// splitMaskRest splits "name[:key=value,...]" into the rule name and its
// property bag.
func splitMaskRest(rest string) (string, map[string]string) {
	name, propSpec, found := strings.Cut(rest, ":")
	if !found {
		return rest, nil
	}
	props := make(map[string]string)
	for _, pair := range strings.Split(propSpec, ",") {
		if key, value, ok := strings.Cut(pair, "="); ok {
			props[key] = value
		}
	}
	return name, props
}
