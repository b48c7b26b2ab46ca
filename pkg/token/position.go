package token

import "fmt"

// Position is a location in the source text.
// Line and Column are 1-based; Offset is the 0-based byte offset.
type Position struct {
	Line   int
	Column int
	Offset int
}

// String returns "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}
