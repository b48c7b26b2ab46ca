// Package ansi provides the base ANSI SQL dialect: double-quoted
// identifiers, lowercase normalization of unquoted names. The unilake
// dialect extends it.
package ansi

import "github.com/unilakehq/queryguard/pkg/dialect"

func init() {
	dialect.Register(ANSI)
}

// ANSI is the base ANSI SQL dialect.
var ANSI = dialect.New("ansi").Build()
