package parser

import (
	"fmt"

	"github.com/unilakehq/queryguard/pkg/token"
)

// ParseError is a parsing error with position information. Near holds the
// offending token's text so callers can build highlighted context.
type ParseError struct {
	Pos     token.Position
	Message string
	Near    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrUnexpectedToken = "unexpected token %s, expected %s"
	ErrUnexpectedStart = "unexpected token %s at start of statement"
	ErrTrailingInput   = "unexpected input after statement: %s"
)
