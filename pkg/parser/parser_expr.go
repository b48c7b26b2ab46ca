package parser

import "github.com/unilakehq/queryguard/pkg/token"

// Operator precedence levels, loosest binding first.
const (
	precNone       = 0
	precOr         = 1
	precAnd        = 2
	precNot        = 3
	precComparison = 4 // =, <>, <, >, <=, >=, LIKE, IN, BETWEEN, IS
	precAddition   = 5 // +, -, ||
	precMultiply   = 6 // *, /, %
	precUnary      = 7
)

// Precedence returns the binding strength of a binary operator token.
// The generator shares this table to decide parenthesization.
func Precedence(t token.Type) int {
	switch t {
	case token.OR:
		return precOr
	case token.AND:
		return precAnd
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE,
		token.LIKE, token.IN, token.BETWEEN, token.IS:
		return precComparison
	case token.PLUS, token.MINUS, token.DPIPE:
		return precAddition
	case token.STAR, token.SLASH, token.MOD:
		return precMultiply
	default:
		return precNone
	}
}

// parseExpression parses an expression at the loosest precedence.
func (p *Parser) parseExpression() Expr {
	return p.parseBinaryExpr(precNone)
}

func (p *Parser) parseExpressionList() []Expr {
	var exprs []Expr
	for {
		exprs = append(exprs, p.parseExpression())
		if !p.match(token.COMMA) {
			break
		}
	}
	return exprs
}

// parseBinaryExpr is a precedence climbing loop over infix operators and
// postfix predicates (IN, BETWEEN, IS, LIKE).
func (p *Parser) parseBinaryExpr(minPrec int) Expr {
	left := p.parseUnaryExpr()

	for {
		// x NOT IN / NOT BETWEEN / NOT LIKE bind at comparison precedence.
		if p.check(token.NOT) && minPrec < precComparison {
			switch p.peek.Type {
			case token.IN:
				p.nextToken()
				left = p.parseInExpr(left, true)
				continue
			case token.BETWEEN:
				p.nextToken()
				left = p.parseBetweenExpr(left, true)
				continue
			case token.LIKE:
				p.nextToken()
				p.nextToken()
				left = &LikeExpr{Expr: left, Not: true, Pattern: p.parseBinaryExpr(precComparison)}
				continue
			}
		}

		opPrec := Precedence(p.token.Type)
		if opPrec == precNone || opPrec <= minPrec {
			return left
		}

		switch p.token.Type {
		case token.IN:
			left = p.parseInExpr(left, false)
		case token.BETWEEN:
			left = p.parseBetweenExpr(left, false)
		case token.IS:
			left = p.parseIsExpr(left)
		case token.LIKE:
			p.nextToken()
			left = &LikeExpr{Expr: left, Pattern: p.parseBinaryExpr(precComparison)}
		default:
			op := p.token.Type
			p.nextToken()
			right := p.parseBinaryExpr(opPrec)
			left = &BinaryExpr{Left: left, Op: op, Right: right}
		}
	}
}

func (p *Parser) parseUnaryExpr() Expr {
	switch p.token.Type {
	case token.NOT:
		p.nextToken()
		return &UnaryExpr{Op: token.NOT, Expr: p.parseBinaryExpr(precNot)}
	case token.MINUS:
		p.nextToken()
		return &UnaryExpr{Op: token.MINUS, Expr: p.parseUnaryExpr()}
	case token.PLUS:
		p.nextToken()
		return p.parseUnaryExpr()
	}
	return p.parsePrimaryExpr()
}

func (p *Parser) parseInExpr(left Expr, not bool) Expr {
	p.nextToken() // consume IN
	in := &InExpr{Expr: left, Not: not}
	p.expect(token.LPAREN)
	if p.check(token.SELECT) || p.check(token.WITH) {
		in.Query = p.parseSelectStmt()
	} else {
		in.Values = p.parseExpressionList()
	}
	p.expect(token.RPAREN)
	return in
}

func (p *Parser) parseBetweenExpr(left Expr, not bool) Expr {
	p.nextToken() // consume BETWEEN
	low := p.parseBinaryExpr(precComparison)
	p.expect(token.AND)
	high := p.parseBinaryExpr(precComparison)
	return &BetweenExpr{Expr: left, Not: not, Low: low, High: high}
}

func (p *Parser) parseIsExpr(left Expr) Expr {
	p.nextToken() // consume IS
	not := p.match(token.NOT)
	if p.match(token.NULL) {
		return &IsNullExpr{Expr: left, Not: not}
	}
	if p.match(token.TRUE) {
		return &BinaryExpr{Left: left, Op: token.IS, Right: &Literal{Type: LiteralBool, Value: "TRUE"}}
	}
	if p.match(token.FALSE) {
		return &BinaryExpr{Left: left, Op: token.IS, Right: &Literal{Type: LiteralBool, Value: "FALSE"}}
	}
	p.addError("expected NULL, TRUE or FALSE after IS")
	return left
}
