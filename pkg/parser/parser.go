// Package parser provides SQL parsing for the query rewriting engine.
//
// The parser is split across multiple files:
//
//   - parser.go (this file): public API, Parser struct, token helpers
//   - parser_stmt.go: statement parsing (WITH, SELECT body, DML, DDL)
//   - parser_from.go: FROM clause parsing (table refs, JOINs)
//   - parser_expr.go: expression precedence parsing
//   - parser_primary.go: primary expressions (literals, columns, functions)
//   - scopes.go: deterministic lexical scope enumeration
//   - walk.go: region-limited walkers and rewriters
//
// Usage:
//
//	stmt, err := parser.ParseStatement("SELECT a, b FROM t", d)
package parser

import (
	"fmt"
	"strings"

	"github.com/unilakehq/queryguard/pkg/dialect"
	"github.com/unilakehq/queryguard/pkg/token"
)

// Parser parses SQL into an AST.
type Parser struct {
	lexer  *Lexer
	token  token.Token // current token
	peek   token.Token // lookahead token
	errors []error

	dialect *dialect.Dialect
}

// NewParser creates a new parser for the given SQL input and dialect.
func NewParser(sql string, d *dialect.Dialect) *Parser {
	p := &Parser{
		lexer:   NewLexer(sql, d),
		dialect: d,
	}
	// Read two tokens to initialize current and peek.
	p.nextToken()
	p.nextToken()
	return p
}

// ParseStatement parses a single SQL statement with the given dialect.
func ParseStatement(sql string, d *dialect.Dialect) (Statement, error) {
	p := NewParser(sql, d)
	stmt := p.parseStatement()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	if p.token.Type == token.SEMI {
		p.nextToken()
	}
	if p.token.Type != token.EOF {
		p.addError(fmt.Sprintf(ErrTrailingInput, p.token.Literal))
		return nil, p.errors[0]
	}
	return stmt, nil
}

// ParseCondition parses a boolean expression (filter templates) with the
// given dialect.
func ParseCondition(sql string, d *dialect.Dialect) (Expr, error) {
	p := NewParser(sql, d)
	expr := p.parseExpression()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	if p.token.Type != token.EOF {
		p.addError(fmt.Sprintf(ErrTrailingInput, p.token.Literal))
		return nil, p.errors[0]
	}
	return expr, nil
}

// Dialect returns the parser's dialect.
func (p *Parser) Dialect() *dialect.Dialect {
	return p.dialect
}

// ---------- Token Helpers ----------

func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) check(t token.Type) bool {
	return p.token.Type == t
}

func (p *Parser) checkPeek(t token.Type) bool {
	return p.peek.Type == t
}

func (p *Parser) match(t token.Type) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) expect(t token.Type) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describeToken(), t))
	return false
}

func (p *Parser) describeToken() string {
	if p.token.Type == token.EOF {
		return "EOF"
	}
	return fmt.Sprintf("%s (%q)", p.token.Type, p.token.Literal)
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
		Near:    p.token.Literal,
	})
}

// identLike reports whether the current token can serve as an identifier:
// a plain identifier or a non-reserved keyword used as a name.
func (p *Parser) identLike() bool {
	switch p.token.Type {
	case token.IDENT, token.TABLE, token.SET, token.VALUES, token.IF:
		return true
	}
	return false
}

// parseIdent consumes an identifier-like token and returns its text.
func (p *Parser) parseIdent() string {
	if p.identLike() {
		name := p.token.Literal
		p.nextToken()
		return name
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describeToken(), token.IDENT))
	return ""
}

// ---------- Statement dispatch ----------

func (p *Parser) parseStatement() Statement {
	if cmd := p.matchCommand(); cmd != nil {
		return cmd
	}

	switch p.token.Type {
	case token.WITH, token.SELECT, token.LPAREN:
		return p.parseSelectStmt()
	case token.INSERT:
		return p.parseInsertStmt()
	case token.UPDATE:
		return p.parseUpdateStmt()
	case token.DELETE:
		return p.parseDeleteStmt()
	case token.CREATE:
		return p.parseCreateStmt()
	case token.TRUNCATE:
		return p.parseTruncateStmt()
	case token.SET:
		return p.parseSetStmt()
	case token.DROP, token.ALTER, token.DESCRIBE, token.REFRESH, token.EXPORT, token.USE:
		return p.parseRawStmt()
	}
	p.addError(fmt.Sprintf(ErrUnexpectedStart, p.describeToken()))
	return nil
}

// matchCommand recognizes dialect command statements by their leading
// keyword sequence. On a match it consumes the head tokens and captures the
// raw remainder of the source text as the payload.
func (p *Parser) matchCommand() *CommandStmt {
	for _, pat := range p.dialect.Commands() {
		if !strings.EqualFold(p.token.Literal, pat.Words[0]) {
			continue
		}
		if len(pat.Words) > 1 && !strings.EqualFold(p.peek.Literal, pat.Words[1]) {
			continue
		}
		if len(pat.Words) > 2 {
			save := p.snapshot()
			p.nextToken()
			p.nextToken()
			matched := strings.EqualFold(p.token.Literal, pat.Words[2])
			if !matched {
				p.restore(save)
				continue
			}
			p.nextToken()
			return &CommandStmt{Head: pat.Head, Payload: p.capturePayload()}
		}
		for range pat.Words {
			p.nextToken()
		}
		return &CommandStmt{Head: pat.Head, Payload: p.capturePayload()}
	}
	return nil
}

// capturePayload slices the source text from the current token to the end
// of the input and drains the token stream.
func (p *Parser) capturePayload() string {
	if p.token.Type == token.EOF {
		return ""
	}
	payload := strings.TrimSpace(p.lexer.Source()[p.token.Pos.Offset:])
	payload = strings.TrimSuffix(payload, ";")
	for p.token.Type != token.EOF {
		p.nextToken()
	}
	return payload
}

// parserState is a resumable snapshot of the parser and its lexer, used for
// speculative command-prefix matching.
type parserState struct {
	lexer Lexer
	tok   token.Token
	peek  token.Token
	nerr  int
}

func (p *Parser) snapshot() parserState {
	return parserState{lexer: *p.lexer, tok: p.token, peek: p.peek, nerr: len(p.errors)}
}

func (p *Parser) restore(s parserState) {
	*p.lexer = s.lexer
	p.token = s.tok
	p.peek = s.peek
	p.errors = p.errors[:s.nerr]
}
