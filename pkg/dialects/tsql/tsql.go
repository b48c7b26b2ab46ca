// Package tsql provides the T-SQL dialect: bracket-quoted identifiers with
// double quotes accepted as an alternative.
package tsql

import "github.com/unilakehq/queryguard/pkg/dialect"

func init() {
	dialect.Register(TSQL)
}

// TSQL is the Transact-SQL dialect.
var TSQL = dialect.New("tsql").
	Identifiers("[", "]", "]]", dialect.NormCaseSensitive).
	AltIdentifiers(`"`, `"`, `""`).
	Build()
