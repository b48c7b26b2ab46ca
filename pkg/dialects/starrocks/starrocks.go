// Package starrocks provides the StarRocks SQL dialect: backtick-quoted
// identifiers, case-sensitive names. It is the fixed output dialect of the
// transpiler.
package starrocks

import "github.com/unilakehq/queryguard/pkg/dialect"

func init() {
	dialect.Register(StarRocks)
}

// StarRocks is the StarRocks SQL dialect.
var StarRocks = dialect.New("starrocks").
	Identifiers("`", "`", "``", dialect.NormCaseSensitive).
	AltIdentifiers(`"`, `"`, `""`).
	Build()
