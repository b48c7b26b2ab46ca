package parser

import (
	"fmt"
	"strings"

	"github.com/unilakehq/queryguard/pkg/token"
)

// ---------- SELECT ----------

// parseSelectStmt parses [WITH ...] select_body.
func (p *Parser) parseSelectStmt() *SelectStmt {
	stmt := &SelectStmt{}

	if p.check(token.WITH) {
		stmt.With = p.parseWithClause()
	}

	stmt.Body = p.parseSelectBody()
	return stmt
}

func (p *Parser) parseWithClause() *WithClause {
	with := &WithClause{}
	p.nextToken() // consume WITH
	with.Recursive = p.match(token.RECURSIVE)

	for {
		cte := &CTE{Name: p.parseIdent()}
		if p.match(token.LPAREN) {
			for {
				cte.Columns = append(cte.Columns, p.parseIdent())
				if !p.match(token.COMMA) {
					break
				}
			}
			p.expect(token.RPAREN)
		}
		p.expect(token.AS)
		p.expect(token.LPAREN)
		cte.Select = p.parseSelectStmt()
		p.expect(token.RPAREN)
		with.CTEs = append(with.CTEs, cte)

		if !p.match(token.COMMA) {
			break
		}
	}
	return with
}

// parseSelectBody parses select_core [(UNION|INTERSECT|EXCEPT) [ALL] select_body].
func (p *Parser) parseSelectBody() *SelectBody {
	body := &SelectBody{}

	if p.check(token.LPAREN) && p.checkPeek(token.SELECT) {
		// Parenthesized branch of a set operation.
		p.nextToken()
		inner := p.parseSelectBody()
		p.expect(token.RPAREN)
		body = inner
	} else {
		body.Left = p.parseSelectCore()
	}

	switch p.token.Type {
	case token.UNION:
		p.nextToken()
		body.Op = SetOpUnion
		body.All = p.match(token.ALL)
		body.Right = p.parseSelectBody()
	case token.INTERSECT:
		p.nextToken()
		body.Op = SetOpIntersect
		body.All = p.match(token.ALL)
		body.Right = p.parseSelectBody()
	case token.EXCEPT:
		p.nextToken()
		body.Op = SetOpExcept
		body.All = p.match(token.ALL)
		body.Right = p.parseSelectBody()
	}
	return body
}

func (p *Parser) parseSelectCore() *SelectCore {
	core := &SelectCore{}
	if !p.expect(token.SELECT) {
		return core
	}
	core.Distinct = p.match(token.DISTINCT)
	p.match(token.ALL)

	core.Columns = p.parseSelectList()

	if p.match(token.FROM) {
		core.From = p.parseFromClause()
	}
	if p.match(token.WHERE) {
		core.Where = p.parseExpression()
	}
	if p.check(token.GROUP) {
		p.nextToken()
		p.expect(token.BY)
		core.GroupBy = p.parseExpressionList()
	}
	if p.match(token.HAVING) {
		core.Having = p.parseExpression()
	}
	if p.check(token.ORDER) {
		p.nextToken()
		p.expect(token.BY)
		core.OrderBy = p.parseOrderByList()
	}
	if p.match(token.LIMIT) {
		core.Limit = p.parseExpression()
	}
	if p.match(token.OFFSET) {
		core.Offset = p.parseExpression()
	}
	return core
}

func (p *Parser) parseSelectList() []SelectItem {
	var items []SelectItem
	for {
		items = append(items, p.parseSelectItem())
		if !p.match(token.COMMA) {
			break
		}
	}
	return items
}

func (p *Parser) parseSelectItem() SelectItem {
	if p.check(token.STAR) {
		p.nextToken()
		return SelectItem{Star: true}
	}
	if p.identLike() && p.checkPeek(token.DOT) {
		// t.* needs a two-token probe before expression parsing claims it.
		save := p.snapshot()
		tbl := p.token.Literal
		p.nextToken()
		p.nextToken()
		if p.check(token.STAR) {
			p.nextToken()
			return SelectItem{TableStar: tbl}
		}
		p.restore(save)
	}

	item := SelectItem{Expr: p.parseExpression()}
	if p.match(token.AS) {
		item.Alias = p.parseIdent()
	} else if p.identLike() {
		item.Alias = p.parseIdent()
	}
	return item
}

func (p *Parser) parseOrderByList() []OrderByItem {
	var items []OrderByItem
	for {
		item := OrderByItem{Expr: p.parseExpression()}
		if p.match(token.DESC) {
			item.Desc = true
		} else {
			p.match(token.ASC)
		}
		if p.match(token.NULLS) {
			switch {
			case p.identLike() && strings.EqualFold(p.token.Literal, "FIRST"):
				v := true
				item.NullsFirst = &v
				p.nextToken()
			case p.identLike() && strings.EqualFold(p.token.Literal, "LAST"):
				v := false
				item.NullsFirst = &v
				p.nextToken()
			default:
				p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describeToken(), "FIRST or LAST"))
			}
		}
		items = append(items, item)
		if !p.match(token.COMMA) {
			break
		}
	}
	return items
}

// ---------- INSERT ----------

func (p *Parser) parseInsertStmt() *InsertStmt {
	stmt := &InsertStmt{}
	p.nextToken() // consume INSERT
	if p.match(token.OVERWRITE) {
		stmt.Overwrite = true
	} else {
		p.expect(token.INTO)
		stmt.Overwrite = p.match(token.OVERWRITE)
	}
	stmt.Table = p.parseTableName()

	if p.check(token.LPAREN) && !p.checkPeek(token.SELECT) {
		p.nextToken()
		for {
			stmt.Columns = append(stmt.Columns, p.parseIdent())
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	}

	switch p.token.Type {
	case token.VALUES:
		p.nextToken()
		for {
			p.expect(token.LPAREN)
			row := p.parseExpressionList()
			p.expect(token.RPAREN)
			stmt.Values = append(stmt.Values, row)
			if !p.match(token.COMMA) {
				break
			}
		}
	case token.SELECT, token.WITH, token.LPAREN:
		stmt.Source = p.parseSelectStmt()
	default:
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describeToken(), "SELECT or VALUES"))
	}
	return stmt
}

// ---------- UPDATE ----------

func (p *Parser) parseUpdateStmt() *UpdateStmt {
	stmt := &UpdateStmt{}
	p.nextToken() // consume UPDATE
	stmt.Table = p.parseTableName()
	p.expect(token.SET)

	for {
		col := p.parseColumnRef()
		p.expect(token.EQ)
		stmt.Set = append(stmt.Set, Assignment{Column: col, Value: p.parseExpression()})
		if !p.match(token.COMMA) {
			break
		}
	}

	if p.match(token.FROM) {
		stmt.From = p.parseFromClause()
	}
	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}
	return stmt
}

// ---------- DELETE ----------

func (p *Parser) parseDeleteStmt() *DeleteStmt {
	stmt := &DeleteStmt{}
	p.nextToken() // consume DELETE
	p.expect(token.FROM)
	stmt.Table = p.parseTableName()
	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}
	return stmt
}

// ---------- CREATE / TRUNCATE ----------

func (p *Parser) parseCreateStmt() Statement {
	stmt := &CreateStmt{}
	p.nextToken() // consume CREATE
	if p.check(token.OR) {
		p.nextToken()
		p.expect(token.REPLACE)
		stmt.OrReplace = true
	}
	// CREATE OR REPLACE MASKING RULESET slips past the command prefix match;
	// re-route it here.
	if p.identLike() && strings.EqualFold(p.token.Literal, "MASKING") &&
		strings.EqualFold(p.peek.Literal, "RULESET") {
		p.nextToken()
		p.nextToken()
		return &CommandStmt{Head: "CREATE MASKING RULESET", Payload: p.capturePayload()}
	}
	p.expect(token.TABLE)
	if p.check(token.IF) {
		p.nextToken()
		p.expect(token.NOT)
		p.expect(token.EXISTS)
		stmt.IfNotExists = true
	}
	stmt.Target = &SchemaDef{Table: p.parseTableName()}

	if p.check(token.LPAREN) {
		p.nextToken()
		for {
			def := ColumnDef{Name: p.parseIdent()}
			if p.identLike() {
				def.TypeName = p.parseDataType()
			}
			stmt.Target.Columns = append(stmt.Target.Columns, def)
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	}

	if p.match(token.AS) {
		stmt.As = p.parseSelectStmt()
	} else if p.check(token.SELECT) || p.check(token.WITH) {
		stmt.As = p.parseSelectStmt()
	}
	return stmt
}

// parseDataType reads a type name with an optional parenthesized argument
// list, e.g. VARCHAR(255) or DECIMAL(10, 2).
func (p *Parser) parseDataType() string {
	name := p.parseIdent()
	if p.check(token.LPAREN) {
		var sb strings.Builder
		sb.WriteString(name)
		sb.WriteString("(")
		p.nextToken()
		first := true
		for !p.check(token.RPAREN) && !p.check(token.EOF) {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			sb.WriteString(p.token.Literal)
			p.nextToken()
			p.match(token.COMMA)
		}
		p.expect(token.RPAREN)
		sb.WriteString(")")
		return sb.String()
	}
	return name
}

func (p *Parser) parseTruncateStmt() *TruncateStmt {
	p.nextToken() // consume TRUNCATE
	p.match(token.TABLE)
	return &TruncateStmt{Table: p.parseTableName()}
}

// ---------- SET ----------

func (p *Parser) parseSetStmt() *SetStmt {
	p.nextToken() // consume SET
	stmt := &SetStmt{Name: p.parseIdent()}
	p.expect(token.EQ)
	stmt.Value = p.parseExpression()
	return stmt
}

// ---------- Coarse statements ----------

// parseRawStmt handles DROP, ALTER, DESCRIBE, REFRESH, EXPORT and USE:
// classification keyword, best-effort target table, raw remainder.
func (p *Parser) parseRawStmt() *RawStmt {
	stmt := &RawStmt{Keyword: strings.ToUpper(p.token.Literal)}
	p.nextToken()
	p.match(token.TABLE)
	if p.identLike() {
		stmt.Table = p.parseTableName()
	}
	if !p.check(token.EOF) {
		stmt.Rest = p.capturePayload()
	}
	return stmt
}
