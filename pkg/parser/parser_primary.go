package parser

import (
	"fmt"

	"github.com/unilakehq/queryguard/pkg/token"
)

// parsePrimaryExpr parses literals, column references, function calls,
// CASE/CAST, EXISTS, subqueries and parenthesized expressions.
func (p *Parser) parsePrimaryExpr() Expr {
	switch p.token.Type {
	case token.NUMBER:
		lit := &Literal{Type: LiteralNumber, Value: p.token.Literal}
		p.nextToken()
		return lit
	case token.STRING:
		lit := &Literal{Type: LiteralString, Value: p.token.Literal}
		p.nextToken()
		return lit
	case token.TRUE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "TRUE"}
	case token.FALSE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "FALSE"}
	case token.NULL:
		p.nextToken()
		return Null()
	case token.QUESTION:
		p.nextToken()
		return &Placeholder{}
	case token.CASE:
		return p.parseCaseExpr()
	case token.CAST:
		return p.parseCastExpr()
	case token.EXISTS:
		p.nextToken()
		p.expect(token.LPAREN)
		sel := p.parseSelectStmt()
		p.expect(token.RPAREN)
		return &ExistsExpr{Select: sel}
	case token.LPAREN:
		p.nextToken()
		if p.check(token.SELECT) || p.check(token.WITH) {
			sel := p.parseSelectStmt()
			p.expect(token.RPAREN)
			return &SubqueryExpr{Select: sel}
		}
		inner := p.parseExpression()
		p.expect(token.RPAREN)
		return &ParenExpr{Expr: inner}
	case token.STAR:
		p.nextToken()
		return &StarExpr{}
	// LEFT and RIGHT are both join modifiers and builtin string functions;
	// as a primary they can only be the function form.
	case token.LEFT, token.RIGHT:
		if p.checkPeek(token.LPAREN) {
			name := p.token.Literal
			p.nextToken()
			return p.parseFuncCall(name)
		}
	}

	if p.identLike() {
		name := p.token.Literal
		if p.checkPeek(token.LPAREN) {
			p.nextToken()
			return p.parseFuncCall(name)
		}
		return p.parseColumnRef()
	}

	p.addError(fmt.Sprintf("unexpected token %s in expression", p.describeToken()))
	p.nextToken()
	return &Literal{Type: LiteralNull, Value: "NULL"}
}

// parseColumnRef parses a column reference: col, t.col or t.*.
func (p *Parser) parseColumnRef() *ColumnRef {
	first := p.parseIdent()
	if p.match(token.DOT) {
		if p.check(token.STAR) {
			// t.* inside an expression position degrades to a star marker on
			// the column field; callers in projection handle it as TableStar.
			p.nextToken()
			return &ColumnRef{Table: first, Column: "*"}
		}
		return &ColumnRef{Table: first, Column: p.parseIdent()}
	}
	return &ColumnRef{Column: first}
}

// parseFuncCall parses a function call after the name; the current token is
// the opening parenthesis.
func (p *Parser) parseFuncCall(name string) Expr {
	p.expect(token.LPAREN)
	fc := &FuncCall{Name: name}

	if p.check(token.STAR) {
		p.nextToken()
		fc.Star = true
		p.expect(token.RPAREN)
		return fc
	}
	fc.Distinct = p.match(token.DISTINCT)

	if !p.check(token.RPAREN) {
		fc.Args = p.parseExpressionList()
	}
	p.expect(token.RPAREN)
	return fc
}

func (p *Parser) parseCaseExpr() Expr {
	p.nextToken() // consume CASE
	ce := &CaseExpr{}
	if !p.check(token.WHEN) {
		ce.Operand = p.parseExpression()
	}
	for p.match(token.WHEN) {
		when := WhenClause{Condition: p.parseExpression()}
		p.expect(token.THEN)
		when.Result = p.parseExpression()
		ce.Whens = append(ce.Whens, when)
	}
	if p.match(token.ELSE) {
		ce.Else = p.parseExpression()
	}
	p.expect(token.END)
	return ce
}

func (p *Parser) parseCastExpr() Expr {
	p.nextToken() // consume CAST
	p.expect(token.LPAREN)
	expr := p.parseExpression()
	p.expect(token.AS)
	typeName := p.parseDataType()
	p.expect(token.RPAREN)
	return &CastExpr{Expr: expr, TypeName: typeName}
}
