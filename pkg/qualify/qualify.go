// Package qualify resolves identifiers in a parsed statement against a
// default namespace and, optionally, a visible schema.
//
// Qualification fills missing catalog/database parts on base table
// references, aliases every table and projection, resolves column
// qualifiers, expands positional GROUP BY / ORDER BY references, and
// expands stars where column sets are known. Two modes exist:
//
//   - permissive (scan): no schema; stars over base tables survive, stars
//     over CTEs and derived tables with known projections expand.
//   - strict (transpile with a visible schema): stars over base tables
//     expand in schema column order and column existence is validated.
package qualify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/unilakehq/queryguard/pkg/parser"
)

// Options controls a qualification pass.
type Options struct {
	Catalog  string
	Database string

	// Schema enables strict mode: star expansion over base tables and
	// column validation.
	Schema *VisibleSchema

	ExpandStars     bool
	ValidateColumns bool
}

// ResolutionError is a name resolution failure. The transpiler surfaces it
// as a parse-class error on the wire.
type ResolutionError struct {
	Message string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution error: %s", e.Message)
}

func resolutionErrorf(format string, args ...any) error {
	return &ResolutionError{Message: fmt.Sprintf(format, args...)}
}

// Qualify rewrites the statement in place.
func Qualify(stmt parser.Statement, opts Options) error {
	q := &qualifier{opts: opts}
	return q.statement(stmt)
}

type qualifier struct {
	opts       Options
	derivedSeq int
}

func (q *qualifier) strict() bool {
	return q.opts.Schema != nil && !q.opts.Schema.Empty()
}

// ---------- source resolution ----------

type sourceKind int

const (
	sourceBase sourceKind = iota
	sourceCTE
	sourceDerived
)

// source is one visible relation in a scope: a base table, CTE reference or
// derived table, with its known output columns (nil = unknown).
type source struct {
	kind    sourceKind
	alias   string
	table   *parser.TableName
	columns []string
}

// resolver tracks visible sources and CTE definitions for one scope, with a
// parent chain for correlated subqueries.
type resolver struct {
	parent  *resolver
	sources []*source
	ctes    map[string][]string // CTE name -> output columns (nil = unknown)
	hasCTE  map[string]bool
}

func newResolver(parent *resolver) *resolver {
	return &resolver{
		parent: parent,
		ctes:   make(map[string][]string),
		hasCTE: make(map[string]bool),
	}
}

func (r *resolver) registerCTE(name string, columns []string) {
	key := strings.ToLower(name)
	r.ctes[key] = columns
	r.hasCTE[key] = true
}

func (r *resolver) lookupCTE(name string) ([]string, bool) {
	key := strings.ToLower(name)
	if r.hasCTE[key] {
		return r.ctes[key], true
	}
	if r.parent != nil {
		return r.parent.lookupCTE(name)
	}
	return nil, false
}

func (r *resolver) bySource(alias string) (*source, bool) {
	for _, s := range r.sources {
		if strings.EqualFold(s.alias, alias) {
			return s, true
		}
	}
	if r.parent != nil {
		return r.parent.bySource(alias)
	}
	return nil, false
}

// byColumn returns the sources of the current scope whose known columns
// contain the given name.
func (r *resolver) byColumn(column string) []*source {
	var matches []*source
	for _, s := range r.sources {
		for _, c := range s.columns {
			if strings.EqualFold(c, column) {
				matches = append(matches, s)
				break
			}
		}
	}
	return matches
}

// ---------- statements ----------

func (q *qualifier) statement(stmt parser.Statement) error {
	switch s := stmt.(type) {
	case *parser.SelectStmt:
		_, err := q.selectStmt(s, nil)
		return err
	case *parser.InsertStmt:
		q.fillTable(s.Table)
		if s.Source != nil {
			if _, err := q.selectStmt(s.Source, nil); err != nil {
				return err
			}
		}
		return nil
	case *parser.UpdateStmt:
		return q.updateStmt(s)
	case *parser.DeleteStmt:
		q.fillTable(s.Table)
		if s.Where != nil {
			r := newResolver(nil)
			r.sources = append(r.sources, &source{kind: sourceBase, alias: s.Table.EffectiveAlias(), table: s.Table})
			return q.qualifyExprTree(s.Where, r)
		}
		return nil
	case *parser.CreateStmt:
		if s.Target != nil {
			q.fillTable(s.Target.Table)
		}
		if s.As != nil {
			if _, err := q.selectStmt(s.As, nil); err != nil {
				return err
			}
		}
		return nil
	case *parser.TruncateStmt:
		q.fillTable(s.Table)
		return nil
	case *parser.RawStmt:
		q.fillTable(s.Table)
		return nil
	}
	return nil
}

// fillTable completes a base table reference with the default namespace.
// DML and DDL targets keep their spelling; only FROM sources get a
// self-alias (see tableRef).
func (q *qualifier) fillTable(t *parser.TableName) {
	if t == nil {
		return
	}
	if t.Db == "" {
		t.Db = q.opts.Database
	}
	if t.Catalog == "" {
		t.Catalog = q.opts.Catalog
	}
}

func (q *qualifier) updateStmt(s *parser.UpdateStmt) error {
	r := newResolver(nil)
	// The written table may be an alias for a FROM source (T-SQL pattern);
	// only qualify it as a base table when no FROM source claims its name.
	if s.From != nil {
		if err := q.fromClause(s.From, r); err != nil {
			return err
		}
	}
	if _, isFromAlias := r.bySource(s.Table.Name); !isFromAlias {
		q.fillTable(s.Table)
		r.sources = append(r.sources, &source{kind: sourceBase, alias: s.Table.EffectiveAlias(), table: s.Table})
	}
	for i := range s.Set {
		if err := q.qualifyColumn(s.Set[i].Column, r); err != nil {
			return err
		}
		if err := q.qualifyExprTree(s.Set[i].Value, r); err != nil {
			return err
		}
	}
	if s.Where != nil {
		if err := q.qualifyExprTree(s.Where, r); err != nil {
			return err
		}
	}
	return nil
}

// qualifyExprTree resolves column references in a standalone expression
// (UPDATE assignments, WHERE clauses of write statements), recursing into
// nested query expressions with r as the correlation parent.
func (q *qualifier) qualifyExprTree(expr parser.Expr, r *resolver) error {
	var err error
	parser.WalkExpr(expr, func(e parser.Expr) bool {
		if err != nil {
			return false
		}
		switch c := e.(type) {
		case *parser.SubqueryExpr:
			_, err = q.selectStmt(c.Select, r)
			return false
		case *parser.ExistsExpr:
			_, err = q.selectStmt(c.Select, r)
			return false
		case *parser.InExpr:
			if c.Query != nil {
				if _, qerr := q.selectStmt(c.Query, r); qerr != nil {
					err = qerr
				}
			}
			return true
		case *parser.ColumnRef:
			err = q.qualifyColumn(c, r)
		}
		return true
	})
	return err
}

// ---------- SELECT ----------

// selectStmt qualifies a select statement and returns its output column
// names (the first core's projection aliases).
func (q *qualifier) selectStmt(sel *parser.SelectStmt, parent *resolver) ([]string, error) {
	r := newResolver(parent)

	if sel.With != nil {
		for _, cte := range sel.With.CTEs {
			cols, err := q.selectStmt(cte.Select, r)
			if err != nil {
				return nil, err
			}
			if len(cte.Columns) > 0 {
				cols = cte.Columns
			}
			r.registerCTE(cte.Name, cols)
		}
	}

	var outputs []string
	for body := sel.Body; body != nil; body = body.Right {
		cols, err := q.selectCore(body.Left, r)
		if err != nil {
			return nil, err
		}
		if outputs == nil {
			outputs = cols
		}
	}
	return outputs, nil
}

func (q *qualifier) selectCore(core *parser.SelectCore, parent *resolver) ([]string, error) {
	r := newResolver(parent)

	if core.From != nil {
		if err := q.fromClause(core.From, r); err != nil {
			return nil, err
		}
	}

	if err := q.expandStars(core, r); err != nil {
		return nil, err
	}

	// Nested query expressions resolve against this scope for correlation.
	if err := q.qualifySubqueries(core, r); err != nil {
		return nil, err
	}

	// Resolve column qualifiers across the core's own region.
	var resolveErr error
	parser.WalkRegionExprs(core, func(e parser.Expr) bool {
		if resolveErr != nil {
			return false
		}
		if col, ok := e.(*parser.ColumnRef); ok {
			resolveErr = q.qualifyColumn(col, r)
		}
		return true
	})
	if resolveErr != nil {
		return nil, resolveErr
	}

	q.expandOrdinals(core)

	// Alias every projection by its output name.
	for i := range core.Columns {
		item := &core.Columns[i]
		if item.Star || item.TableStar != "" || item.Alias != "" {
			continue
		}
		if col, ok := item.Expr.(*parser.ColumnRef); ok && col.Column != "*" {
			item.Alias = col.Column
		} else {
			item.Alias = "_col_" + strconv.Itoa(i)
		}
	}

	var outputs []string
	for _, item := range core.Columns {
		if item.Star || item.TableStar != "" {
			outputs = append(outputs, "*")
			continue
		}
		outputs = append(outputs, item.Alias)
	}
	return outputs, nil
}

func (q *qualifier) fromClause(from *parser.FromClause, r *resolver) error {
	if err := q.tableRef(from.Source, r); err != nil {
		return err
	}
	for _, join := range from.Joins {
		if err := q.tableRef(join.Right, r); err != nil {
			return err
		}
	}
	return nil
}

func (q *qualifier) tableRef(ref parser.TableRef, r *resolver) error {
	switch t := ref.(type) {
	case *parser.TableName:
		if t.Catalog == "" && t.Db == "" {
			if cols, ok := r.lookupCTE(t.Name); ok {
				if t.Alias == "" {
					t.Alias = t.Name
				}
				r.sources = append(r.sources, &source{kind: sourceCTE, alias: t.Alias, table: t, columns: cols})
				return nil
			}
		}
		q.fillTable(t)
		if t.Alias == "" {
			t.Alias = t.Name
		}
		src := &source{kind: sourceBase, alias: t.EffectiveAlias(), table: t}
		if tbl, ok := q.opts.Schema.Lookup(t.Catalog, t.Db, t.Name); ok {
			for _, col := range tbl.Columns {
				src.columns = append(src.columns, col.Name)
			}
		} else if q.strict() {
			return resolutionErrorf("table %q not present in visible schema", t.Name)
		}
		r.sources = append(r.sources, src)
		return nil
	case *parser.DerivedTable:
		cols, err := q.selectStmt(t.Select, r.parent)
		if err != nil {
			return err
		}
		if t.Alias == "" {
			t.Alias = "_q_" + strconv.Itoa(q.derivedSeq)
			q.derivedSeq++
		}
		r.sources = append(r.sources, &source{kind: sourceDerived, alias: t.Alias, columns: knownColumns(cols)})
		return nil
	}
	return nil
}

// knownColumns drops a derived projection list that still carries a star:
// its column set is unknown.
func knownColumns(cols []string) []string {
	for _, c := range cols {
		if c == "*" {
			return nil
		}
	}
	return cols
}

// ---------- stars ----------

func (q *qualifier) expandStars(core *parser.SelectCore, r *resolver) error {
	var expanded []parser.SelectItem
	for _, item := range core.Columns {
		switch {
		case item.Star:
			items, err := q.expandStarOver(r.sources, core)
			if err != nil {
				return err
			}
			if items == nil {
				expanded = append(expanded, item)
				continue
			}
			expanded = append(expanded, items...)
		case item.TableStar != "":
			src, ok := r.bySource(item.TableStar)
			if !ok {
				return resolutionErrorf("unknown table or alias %q", item.TableStar)
			}
			items, err := q.expandStarOver([]*source{src}, core)
			if err != nil {
				return err
			}
			if items == nil {
				expanded = append(expanded, item)
				continue
			}
			expanded = append(expanded, items...)
		default:
			expanded = append(expanded, item)
		}
	}
	core.Columns = expanded
	return nil
}

// expandStarOver expands a star over the given sources. It returns nil when
// any source's column set is unknown in permissive mode; strict mode errors
// instead.
func (q *qualifier) expandStarOver(sources []*source, core *parser.SelectCore) ([]parser.SelectItem, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	for _, src := range sources {
		if src.columns == nil {
			if q.strict() {
				return nil, resolutionErrorf("cannot expand * over %q: columns unknown", src.alias)
			}
			return nil, nil
		}
	}
	var items []parser.SelectItem
	for _, src := range sources {
		for _, col := range src.columns {
			items = append(items, parser.SelectItem{
				Expr:  &parser.ColumnRef{Table: src.alias, Column: col},
				Alias: col,
			})
		}
	}
	return items, nil
}

// ---------- columns ----------

func (q *qualifier) qualifyColumn(col *parser.ColumnRef, r *resolver) error {
	if col.Column == "*" {
		return nil
	}
	if col.Table != "" {
		src, ok := r.bySource(col.Table)
		if !ok {
			if q.strict() {
				return resolutionErrorf("unknown table or alias %q", col.Table)
			}
			return nil
		}
		if q.strict() && q.opts.ValidateColumns && src.columns != nil && !containsFold(src.columns, col.Column) {
			return resolutionErrorf("column %q not found in table %q", col.Column, col.Table)
		}
		return nil
	}

	for cur := r; cur != nil; cur = cur.parent {
		if len(cur.sources) == 0 {
			continue
		}
		matches := cur.byColumn(col.Column)
		if len(matches) == 1 {
			col.Table = matches[0].alias
			return nil
		}
		if len(matches) > 1 {
			return resolutionErrorf("ambiguous column reference %q", col.Column)
		}
		// No source in this scope claims the column. When every source's
		// column set is known the reference must be correlated: keep
		// climbing. Otherwise fall back to single-table inference.
		allKnown := true
		for _, s := range cur.sources {
			if s.columns == nil {
				allKnown = false
			}
		}
		if allKnown {
			continue
		}
		if len(cur.sources) == 1 {
			col.Table = cur.sources[0].alias
			return nil
		}
		return resolutionErrorf("ambiguous column reference %q", col.Column)
	}
	if q.strict() && q.opts.ValidateColumns {
		return resolutionErrorf("column %q could not be resolved", col.Column)
	}
	return nil
}

func containsFold(list []string, item string) bool {
	for _, s := range list {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}

// ---------- subqueries and ordinals ----------

func (q *qualifier) qualifySubqueries(core *parser.SelectCore, r *resolver) error {
	var err error
	visit := func(e parser.Expr) bool {
		if err != nil {
			return false
		}
		switch s := e.(type) {
		case *parser.SubqueryExpr:
			_, err = q.selectStmt(s.Select, r)
			return false
		case *parser.ExistsExpr:
			_, err = q.selectStmt(s.Select, r)
			return false
		case *parser.InExpr:
			if s.Query != nil {
				_, err = q.selectStmt(s.Query, r)
			}
			return true
		}
		return true
	}
	for _, item := range core.Columns {
		parser.WalkExpr(item.Expr, visit)
	}
	for _, join := range core.From.JoinsOrNil() {
		parser.WalkExpr(join.Condition, visit)
	}
	parser.WalkExpr(core.Where, visit)
	for _, g := range core.GroupBy {
		parser.WalkExpr(g, visit)
	}
	parser.WalkExpr(core.Having, visit)
	for _, o := range core.OrderBy {
		parser.WalkExpr(o.Expr, visit)
	}
	return err
}

// expandOrdinals replaces positional GROUP BY / ORDER BY references with a
// copy of the referenced projection expression.
func (q *qualifier) expandOrdinals(core *parser.SelectCore) {
	resolve := func(e parser.Expr) parser.Expr {
		lit, ok := e.(*parser.Literal)
		if !ok || lit.Type != parser.LiteralNumber {
			return e
		}
		n, err := strconv.Atoi(lit.Value)
		if err != nil || n < 1 || n > len(core.Columns) {
			return e
		}
		item := core.Columns[n-1]
		if item.Star || item.TableStar != "" || item.Expr == nil {
			return e
		}
		return parser.CloneExpr(item.Expr)
	}
	for i := range core.GroupBy {
		core.GroupBy[i] = resolve(core.GroupBy[i])
	}
	for i := range core.OrderBy {
		core.OrderBy[i].Expr = resolve(core.OrderBy[i].Expr)
	}
}
