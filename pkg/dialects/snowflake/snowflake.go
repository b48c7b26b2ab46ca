// Package snowflake provides the Snowflake SQL dialect: double-quoted
// identifiers, uppercase normalization of unquoted names.
package snowflake

import "github.com/unilakehq/queryguard/pkg/dialect"

func init() {
	dialect.Register(Snowflake)
}

// Snowflake is the Snowflake SQL dialect.
var Snowflake = dialect.New("snowflake").
	Identifiers(`"`, `"`, `""`, dialect.NormUppercase).
	Build()
