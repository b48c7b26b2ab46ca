// Package generate serializes ASTs back to SQL in a target dialect.
// Output is canonical: single line, uppercase keywords, table, column and
// alias identifiers quoted with the dialect's quote characters. SET
// variable names and bare variables are written as they are.
package generate

import (
	"strings"

	"github.com/unilakehq/queryguard/pkg/dialect"
	"github.com/unilakehq/queryguard/pkg/parser"
)

// SQL serializes a statement in the given dialect.
func SQL(stmt parser.Statement, d *dialect.Dialect) string {
	g := &generator{dialect: d}
	g.statement(stmt)
	return g.sb.String()
}

// Expression serializes a single expression in the given dialect.
func Expression(expr parser.Expr, d *dialect.Dialect) string {
	g := &generator{dialect: d}
	g.expr(expr, 0)
	return g.sb.String()
}

type generator struct {
	sb      strings.Builder
	dialect *dialect.Dialect
}

func (g *generator) write(s string) {
	g.sb.WriteString(s)
}

func (g *generator) ident(name string) {
	g.write(g.dialect.QuoteIdentifier(name))
}

func (g *generator) statement(stmt parser.Statement) {
	switch s := stmt.(type) {
	case *parser.SelectStmt:
		g.selectStmt(s)
	case *parser.InsertStmt:
		g.insertStmt(s)
	case *parser.UpdateStmt:
		g.updateStmt(s)
	case *parser.DeleteStmt:
		g.deleteStmt(s)
	case *parser.CreateStmt:
		g.createStmt(s)
	case *parser.TruncateStmt:
		g.write("TRUNCATE TABLE ")
		g.tableName(s.Table)
	case *parser.SetStmt:
		g.write("SET ")
		g.write(s.Name)
		g.write(" = ")
		g.expr(s.Value, 0)
	case *parser.RawStmt:
		g.write(s.Keyword)
		if s.Table != nil {
			g.write(" ")
			g.tableName(s.Table)
		}
		if s.Rest != "" {
			g.write(" ")
			g.write(s.Rest)
		}
	case *parser.CommandStmt:
		g.write(s.Head)
		if s.Payload != "" {
			g.write(" ")
			g.write(s.Payload)
		}
	}
}

func (g *generator) selectStmt(sel *parser.SelectStmt) {
	if sel.With != nil {
		g.write("WITH ")
		if sel.With.Recursive {
			g.write("RECURSIVE ")
		}
		for i, cte := range sel.With.CTEs {
			if i > 0 {
				g.write(", ")
			}
			g.ident(cte.Name)
			if len(cte.Columns) > 0 {
				g.write(" (")
				for j, col := range cte.Columns {
					if j > 0 {
						g.write(", ")
					}
					g.ident(col)
				}
				g.write(")")
			}
			g.write(" AS (")
			g.selectStmt(cte.Select)
			g.write(")")
		}
		g.write(" ")
	}
	g.selectBody(sel.Body)
}

func (g *generator) selectBody(body *parser.SelectBody) {
	g.selectCore(body.Left)
	if body.Right != nil {
		g.write(" ")
		g.write(string(body.Op))
		if body.All {
			g.write(" ALL")
		}
		g.write(" ")
		g.selectBody(body.Right)
	}
}

func (g *generator) selectCore(core *parser.SelectCore) {
	g.write("SELECT ")
	if core.Distinct {
		g.write("DISTINCT ")
	}
	for i, item := range core.Columns {
		if i > 0 {
			g.write(", ")
		}
		g.selectItem(item)
	}
	if core.From != nil {
		g.write(" FROM ")
		g.fromClause(core.From)
	}
	if core.Where != nil {
		g.write(" WHERE ")
		g.expr(core.Where, 0)
	}
	if len(core.GroupBy) > 0 {
		g.write(" GROUP BY ")
		g.exprList(core.GroupBy)
	}
	if core.Having != nil {
		g.write(" HAVING ")
		g.expr(core.Having, 0)
	}
	if len(core.OrderBy) > 0 {
		g.write(" ORDER BY ")
		for i, item := range core.OrderBy {
			if i > 0 {
				g.write(", ")
			}
			g.expr(item.Expr, 0)
			if item.Desc {
				g.write(" DESC")
			}
			if item.NullsFirst != nil {
				if *item.NullsFirst {
					g.write(" NULLS FIRST")
				} else {
					g.write(" NULLS LAST")
				}
			}
		}
	}
	if core.Limit != nil {
		g.write(" LIMIT ")
		g.expr(core.Limit, 0)
	}
	if core.Offset != nil {
		g.write(" OFFSET ")
		g.expr(core.Offset, 0)
	}
}

func (g *generator) selectItem(item parser.SelectItem) {
	switch {
	case item.Star:
		g.write("*")
	case item.TableStar != "":
		g.ident(item.TableStar)
		g.write(".*")
	default:
		g.expr(item.Expr, 0)
		if item.Alias != "" {
			g.write(" AS ")
			g.ident(item.Alias)
		}
	}
}

func (g *generator) fromClause(from *parser.FromClause) {
	g.tableRef(from.Source)
	for _, join := range from.Joins {
		if join.Type == parser.JoinComma {
			g.write(", ")
			g.tableRef(join.Right)
			continue
		}
		g.write(" ")
		g.write(string(join.Type))
		g.write(" JOIN ")
		g.tableRef(join.Right)
		if join.Condition != nil {
			g.write(" ON ")
			g.expr(join.Condition, 0)
		}
		if len(join.Using) > 0 {
			g.write(" USING (")
			for i, col := range join.Using {
				if i > 0 {
					g.write(", ")
				}
				g.ident(col)
			}
			g.write(")")
		}
	}
}

func (g *generator) tableRef(ref parser.TableRef) {
	switch t := ref.(type) {
	case *parser.TableName:
		g.tableName(t)
	case *parser.DerivedTable:
		g.write("(")
		g.selectStmt(t.Select)
		g.write(")")
		if t.Alias != "" {
			g.write(" AS ")
			g.ident(t.Alias)
		}
	}
}

func (g *generator) tableName(t *parser.TableName) {
	if t.Catalog != "" {
		g.ident(t.Catalog)
		g.write(".")
	}
	if t.Db != "" {
		g.ident(t.Db)
		g.write(".")
	}
	g.ident(t.Name)
	if t.Alias != "" {
		g.write(" AS ")
		g.ident(t.Alias)
	}
}

func (g *generator) insertStmt(s *parser.InsertStmt) {
	if s.Overwrite {
		g.write("INSERT OVERWRITE ")
	} else {
		g.write("INSERT INTO ")
	}
	g.tableName(s.Table)
	if len(s.Columns) > 0 {
		g.write(" (")
		for i, col := range s.Columns {
			if i > 0 {
				g.write(", ")
			}
			g.ident(col)
		}
		g.write(")")
	}
	if s.Source != nil {
		g.write(" ")
		g.selectStmt(s.Source)
	}
	if len(s.Values) > 0 {
		g.write(" VALUES ")
		for i, row := range s.Values {
			if i > 0 {
				g.write(", ")
			}
			g.write("(")
			g.exprList(row)
			g.write(")")
		}
	}
}

func (g *generator) updateStmt(s *parser.UpdateStmt) {
	g.write("UPDATE ")
	g.tableName(s.Table)
	g.write(" SET ")
	for i, a := range s.Set {
		if i > 0 {
			g.write(", ")
		}
		g.expr(a.Column, 0)
		g.write(" = ")
		g.expr(a.Value, 0)
	}
	if s.From != nil {
		g.write(" FROM ")
		g.fromClause(s.From)
	}
	if s.Where != nil {
		g.write(" WHERE ")
		g.expr(s.Where, 0)
	}
}

func (g *generator) deleteStmt(s *parser.DeleteStmt) {
	g.write("DELETE FROM ")
	g.tableName(s.Table)
	if s.Where != nil {
		g.write(" WHERE ")
		g.expr(s.Where, 0)
	}
}

func (g *generator) createStmt(s *parser.CreateStmt) {
	g.write("CREATE ")
	if s.OrReplace {
		g.write("OR REPLACE ")
	}
	g.write("TABLE ")
	if s.IfNotExists {
		g.write("IF NOT EXISTS ")
	}
	g.tableName(s.Target.Table)
	if len(s.Target.Columns) > 0 {
		g.write(" (")
		for i, col := range s.Target.Columns {
			if i > 0 {
				g.write(", ")
			}
			g.ident(col.Name)
			if col.TypeName != "" {
				g.write(" ")
				g.write(strings.ToUpper(col.TypeName))
			}
		}
		g.write(")")
	}
	if s.As != nil {
		g.write(" AS ")
		g.selectStmt(s.As)
	}
}

func (g *generator) exprList(exprs []parser.Expr) {
	for i, e := range exprs {
		if i > 0 {
			g.write(", ")
		}
		g.expr(e, 0)
	}
}
