package queryguard

import (
	"fmt"

	"github.com/unilakehq/queryguard/pkg/dialect"
	"github.com/unilakehq/queryguard/pkg/generate"
	"github.com/unilakehq/queryguard/pkg/ir"
	"github.com/unilakehq/queryguard/pkg/masking"
	"github.com/unilakehq/queryguard/pkg/parser"
	"github.com/unilakehq/queryguard/pkg/qualify"
)

// OutputDialect is the fixed execution dialect every transpiled query is
// serialized in.
const OutputDialect = "starrocks"

// ruleKey is the deterministic lookup key for rules and filters:
// "{scope}|{attribute}" over the ANSI-quoted column form.
func ruleKey(scope int, attribute string) string {
	return fmt.Sprintf("%d|%s", scope, attribute)
}

// quotedColumn renders a column reference in the ANSI-quoted form used by
// rule and filter attributes, e.g. "b"."a".
func quotedColumn(col *parser.ColumnRef) string {
	if col.Table == "" {
		return quoteANSI(col.Column)
	}
	return quoteANSI(col.Table) + "." + quoteANSI(col.Column)
}

// innerTranspile applies scrubbing, star expansion, masking rules and row
// filters to a deserialized query and re-serializes it in OutputDialect.
func innerTranspile(input *TranspilerInput, secureOutput bool) *TranspilerOutput {
	if input == nil {
		return inputError("Missing input")
	}
	if input.Query.Empty() {
		return inputError("Invalid input")
	}

	stmt, err := ir.Unmarshal([]byte(input.Query))
	if err != nil {
		return transpileError(internalError(err))
	}

	outDialect, ok := dialect.Get(OutputDialect)
	if !ok {
		return transpileError(internalError(fmt.Errorf("output dialect %q not registered", OutputDialect)))
	}

	if secureOutput {
		scrubLiterals(stmt)
	}

	if !input.VisibleSchema.Empty() {
		err := qualify.Qualify(stmt, qualify.Options{
			Schema:          input.VisibleSchema,
			ExpandStars:     true,
			ValidateColumns: true,
		})
		if err != nil {
			return transpileError(wireError(err, ""))
		}
	}

	rules := make(map[string]RuleDefinition)
	ruleScopes := make(map[int]bool)
	for _, rule := range input.Rules {
		rules[ruleKey(rule.Scope, rule.Attribute)] = rule.RuleDefinition
		ruleScopes[rule.Scope] = true
	}

	for _, scope := range parser.Scopes(stmt) {
		if ruleScopes[scope.ID] {
			applyMasks(scope, rules)
		}
		if err := applyFilters(scope, input.Filters, outDialect); err != nil {
			return transpileError(wireError(err, ""))
		}
	}

	return &TranspilerOutput{SQLTransformed: generate.SQL(stmt, outDialect)}
}

// scrubLiterals replaces every string and numeric literal with the ?
// placeholder text. Strings render as '?', numerics as ?.
func scrubLiterals(stmt parser.Statement) {
	parser.WalkStatementExprs(stmt, func(e parser.Expr) bool {
		if lit, ok := e.(*parser.Literal); ok {
			if lit.Type == parser.LiteralString || lit.Type == parser.LiteralNumber {
				lit.Value = "?"
			}
		}
		return true
	})
}

// applyMasks rewrites every column reference in the scope's own region
// whose quoted form matches a rule keyed to this scope.
func applyMasks(scope *parser.QueryScope, rules map[string]RuleDefinition) {
	parser.RewriteRegionExprs(scope.Core, func(e parser.Expr) parser.Expr {
		col, ok := e.(*parser.ColumnRef)
		if !ok || col.Column == "*" {
			return e
		}
		def, ok := rules[ruleKey(scope.ID, quotedColumn(col))]
		if !ok {
			return e
		}
		return masking.Apply(def.Name, def.Properties, col)
	})
}

// applyFilters AND-appends the scope's filter predicates to its WHERE
// clause, in input order. The ? placeholders of each template are replaced
// by the column parsed from the filter's attribute, so a filter applies
// even when its column is not projected.
func applyFilters(scope *parser.QueryScope, filters []TranspilerInputFilter, d *dialect.Dialect) error {
	var predicates []parser.Expr
	for _, filter := range filters {
		if filter.Scope != scope.ID {
			continue
		}
		col, err := parseAttribute(filter.Attribute)
		if err != nil {
			return err
		}
		cond, err := parser.ParseCondition(filter.FilterDefinition.Expression, d)
		if err != nil {
			return err
		}
		cond = parser.RewriteExpr(cond, func(e parser.Expr) parser.Expr {
			if _, ok := e.(*parser.Placeholder); ok {
				return parser.CloneExpr(col)
			}
			return e
		})
		predicates = append(predicates, cond)
	}
	if len(predicates) == 0 {
		return nil
	}

	where := scope.Core.Where
	for _, pred := range predicates {
		if where == nil {
			where = pred
		} else {
			where = parser.And(where, pred)
		}
	}
	scope.Core.Where = where
	return nil
}

// parseAttribute parses the ANSI-quoted attribute form ("b"."a") into a
// column reference.
func parseAttribute(attribute string) (*parser.ColumnRef, error) {
	ansi, ok := dialect.Get("ansi")
	if !ok {
		return nil, fmt.Errorf("ansi dialect not registered")
	}
	expr, err := parser.ParseCondition(attribute, ansi)
	if err != nil {
		return nil, err
	}
	col, ok := expr.(*parser.ColumnRef)
	if !ok {
		return nil, fmt.Errorf("attribute %q is not a column reference", attribute)
	}
	return col, nil
}
