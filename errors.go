package queryguard

import (
	"errors"

	"github.com/unilakehq/queryguard/pkg/parser"
	"github.com/unilakehq/queryguard/pkg/qualify"
)

const contextWindow = 80

// wireError converts an internal error into the wire ParserError. Parse
// errors carry a located ErrorMessage with source context; resolution
// errors surface as parse-class errors with a bare message; anything else
// is internal.
func wireError(err error, source string) *ParserError {
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return &ParserError{
			ErrorType: ErrorTypeParse,
			Message:   "",
			Errors:    []ErrorMessage{locate(parseErr, source)},
		}
	}
	var resErr *qualify.ResolutionError
	if errors.As(err, &resErr) {
		return &ParserError{
			ErrorType: ErrorTypeParse,
			Message:   resErr.Message,
			Errors:    []ErrorMessage{},
		}
	}
	return internalError(err)
}

func internalError(err error) *ParserError {
	return &ParserError{
		ErrorType: ErrorTypeInternal,
		Message:   err.Error(),
		Errors:    []ErrorMessage{},
	}
}

// locate builds the context spans around the offending token.
func locate(e *parser.ParseError, source string) ErrorMessage {
	start := e.Pos.Offset
	if start < 0 {
		start = 0
	}
	if start > len(source) {
		start = len(source)
	}
	end := start + len(e.Near)
	if end > len(source) {
		end = len(source)
	}

	startCtx := source[:start]
	if len(startCtx) > contextWindow {
		startCtx = startCtx[len(startCtx)-contextWindow:]
	}
	endCtx := source[end:]
	if len(endCtx) > contextWindow {
		endCtx = endCtx[:contextWindow]
	}

	return ErrorMessage{
		Description:  e.Message,
		Line:         e.Pos.Line,
		Col:          e.Pos.Column,
		StartContext: startCtx,
		Highlight:    e.Near,
		EndContext:   endCtx,
	}
}
