package parser

import "github.com/unilakehq/queryguard/pkg/token"

// parseFromClause parses the FROM clause: first source, then joins.
func (p *Parser) parseFromClause() *FromClause {
	from := &FromClause{Source: p.parseTableRef()}

	for {
		switch {
		case p.check(token.COMMA):
			p.nextToken()
			from.Joins = append(from.Joins, &Join{Type: JoinComma, Right: p.parseTableRef()})
		case p.isJoinStart():
			from.Joins = append(from.Joins, p.parseJoin())
		default:
			return from
		}
	}
}

func (p *Parser) isJoinStart() bool {
	switch p.token.Type {
	case token.JOIN, token.INNER, token.LEFT, token.RIGHT, token.FULL, token.CROSS, token.NATURAL:
		return true
	}
	return false
}

func (p *Parser) parseJoin() *Join {
	join := &Join{}

	switch p.token.Type {
	case token.INNER:
		join.Type = "INNER"
		p.nextToken()
	case token.LEFT:
		join.Type = "LEFT"
		p.nextToken()
		p.match(token.OUTER)
	case token.RIGHT:
		join.Type = "RIGHT"
		p.nextToken()
		p.match(token.OUTER)
	case token.FULL:
		join.Type = "FULL"
		p.nextToken()
		p.match(token.OUTER)
	case token.CROSS:
		join.Type = "CROSS"
		p.nextToken()
	case token.NATURAL:
		join.Type = "NATURAL"
		p.nextToken()
	default:
		join.Type = "INNER"
	}
	p.expect(token.JOIN)

	join.Right = p.parseTableRef()

	switch {
	case p.match(token.ON):
		join.Condition = p.parseExpression()
	case p.match(token.USING):
		p.expect(token.LPAREN)
		for {
			join.Using = append(join.Using, p.parseIdent())
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	}
	return join
}

// parseTableRef parses a table name or derived table, with optional alias.
func (p *Parser) parseTableRef() TableRef {
	if p.check(token.LPAREN) {
		p.nextToken()
		sel := p.parseSelectStmt()
		p.expect(token.RPAREN)
		dt := &DerivedTable{Select: sel}
		if p.match(token.AS) {
			dt.Alias = p.parseIdent()
		} else if p.check(token.IDENT) {
			dt.Alias = p.parseIdent()
		}
		return dt
	}
	p.match(token.LATERAL)
	return p.parseTableName()
}

// parseTableName parses a dotted table name with optional alias. One part is
// a bare name, two parts db.name, three parts catalog.db.name.
func (p *Parser) parseTableName() *TableName {
	parts := []string{p.parseIdent()}
	for p.match(token.DOT) {
		parts = append(parts, p.parseIdent())
	}

	t := &TableName{}
	switch len(parts) {
	case 1:
		t.Name = parts[0]
	case 2:
		t.Db, t.Name = parts[0], parts[1]
	default:
		t.Catalog, t.Db, t.Name = parts[len(parts)-3], parts[len(parts)-2], parts[len(parts)-1]
	}

	if p.match(token.AS) {
		t.Alias = p.parseIdent()
	} else if p.check(token.IDENT) {
		// Bare aliases accept plain identifiers only; SET and VALUES must
		// stay visible to the statement parsers.
		t.Alias = p.parseIdent()
	}
	return t
}
