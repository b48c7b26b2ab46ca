package generate

import (
	"strings"

	"github.com/unilakehq/queryguard/pkg/parser"
	"github.com/unilakehq/queryguard/pkg/token"
)

var opText = map[token.Type]string{
	token.PLUS:  "+",
	token.MINUS: "-",
	token.STAR:  "*",
	token.SLASH: "/",
	token.MOD:   "%",
	token.DPIPE: "||",
	token.EQ:    "=",
	token.NE:    "<>",
	token.LT:    "<",
	token.GT:    ">",
	token.LE:    "<=",
	token.GE:    ">=",
	token.AND:   "AND",
	token.OR:    "OR",
	token.IS:    "IS",
}

// expr writes an expression, parenthesizing binary children that bind
// looser than the surrounding operator.
func (g *generator) expr(e parser.Expr, parentPrec int) {
	switch x := e.(type) {
	case *parser.ColumnRef:
		g.columnRef(x)
	case *parser.Literal:
		g.literal(x)
	case *parser.Placeholder:
		g.write("?")
	case *parser.VarExpr:
		g.write(x.Name)
	case *parser.BinaryExpr:
		g.binaryExpr(x, parentPrec)
	case *parser.UnaryExpr:
		if x.Op == token.NOT {
			g.write("NOT ")
			g.expr(x.Expr, parser.Precedence(token.AND))
		} else {
			g.write(opText[x.Op])
			g.expr(x.Expr, parser.Precedence(token.STAR))
		}
	case *parser.FuncCall:
		g.funcCall(x)
	case *parser.CaseExpr:
		g.caseExpr(x)
	case *parser.CastExpr:
		g.write("CAST(")
		g.expr(x.Expr, 0)
		g.write(" AS ")
		g.write(strings.ToUpper(x.TypeName))
		g.write(")")
	case *parser.InExpr:
		g.expr(x.Expr, parser.Precedence(token.IN))
		if x.Not {
			g.write(" NOT")
		}
		g.write(" IN (")
		if x.Query != nil {
			g.selectStmt(x.Query)
		} else {
			g.exprList(x.Values)
		}
		g.write(")")
	case *parser.BetweenExpr:
		g.expr(x.Expr, parser.Precedence(token.BETWEEN))
		if x.Not {
			g.write(" NOT")
		}
		g.write(" BETWEEN ")
		g.expr(x.Low, parser.Precedence(token.BETWEEN))
		g.write(" AND ")
		g.expr(x.High, parser.Precedence(token.BETWEEN))
	case *parser.IsNullExpr:
		g.expr(x.Expr, parser.Precedence(token.IS))
		if x.Not {
			g.write(" IS NOT NULL")
		} else {
			g.write(" IS NULL")
		}
	case *parser.LikeExpr:
		g.expr(x.Expr, parser.Precedence(token.LIKE))
		if x.Not {
			g.write(" NOT")
		}
		g.write(" LIKE ")
		g.expr(x.Pattern, parser.Precedence(token.LIKE))
	case *parser.ParenExpr:
		g.write("(")
		g.expr(x.Expr, 0)
		g.write(")")
	case *parser.StarExpr:
		if x.Table != "" {
			g.ident(x.Table)
			g.write(".")
		}
		g.write("*")
	case *parser.SubqueryExpr:
		g.write("(")
		g.selectStmt(x.Select)
		g.write(")")
	case *parser.ExistsExpr:
		if x.Not {
			g.write("NOT ")
		}
		g.write("EXISTS(")
		g.selectStmt(x.Select)
		g.write(")")
	}
}

func (g *generator) columnRef(col *parser.ColumnRef) {
	if col.Table != "" {
		g.ident(col.Table)
		g.write(".")
	}
	if col.Column == "*" {
		g.write("*")
		return
	}
	g.ident(col.Column)
}

func (g *generator) literal(lit *parser.Literal) {
	switch lit.Type {
	case parser.LiteralString:
		g.write("'")
		g.write(strings.ReplaceAll(lit.Value, "'", "''"))
		g.write("'")
	case parser.LiteralBool:
		g.write(strings.ToUpper(lit.Value))
	case parser.LiteralNull:
		g.write("NULL")
	default:
		g.write(lit.Value)
	}
}

func (g *generator) binaryExpr(e *parser.BinaryExpr, parentPrec int) {
	prec := parser.Precedence(e.Op)
	paren := prec != 0 && parentPrec != 0 && prec < parentPrec
	if paren {
		g.write("(")
	}
	g.expr(e.Left, prec)
	g.write(" ")
	g.write(opText[e.Op])
	g.write(" ")
	g.expr(e.Right, g.rightPrec(e.Op, prec))
	if paren {
		g.write(")")
	}
}

// rightPrec tightens the right operand's context for non-associative
// operators so that constructed trees like a - (b - c) keep their parens.
func (g *generator) rightPrec(op token.Type, prec int) int {
	switch op {
	case token.MINUS, token.SLASH, token.MOD:
		return prec + 1
	}
	return prec
}

func (g *generator) funcCall(fc *parser.FuncCall) {
	g.write(strings.ToUpper(fc.Name))
	g.write("(")
	if fc.Star {
		g.write("*")
	} else {
		if fc.Distinct {
			g.write("DISTINCT ")
		}
		g.exprList(fc.Args)
	}
	g.write(")")
}

func (g *generator) caseExpr(ce *parser.CaseExpr) {
	g.write("CASE")
	if ce.Operand != nil {
		g.write(" ")
		g.expr(ce.Operand, 0)
	}
	for _, w := range ce.Whens {
		g.write(" WHEN ")
		g.expr(w.Condition, 0)
		g.write(" THEN ")
		g.expr(w.Result, 0)
	}
	if ce.Else != nil {
		g.write(" ELSE ")
		g.expr(ce.Else, 0)
	}
	g.write(" END")
}
