// Package queryguard is a SQL-aware query rewriting engine for data-access
// proxies. Scan inspects a query for the entities and attributes it
// touches and hands back a stable intermediate representation; Transpile
// takes that representation together with resolved masking rules and row
// filters and produces the rewritten SQL in the fixed execution dialect.
//
// Both calls are pure functions of their inputs, hold no process state and
// never return a Go error: every failure is captured in the output's error
// payload.
package queryguard

import (
	"encoding/json"
	"fmt"

	// Register the built-in dialects.
	_ "github.com/unilakehq/queryguard/pkg/dialects/ansi"
	_ "github.com/unilakehq/queryguard/pkg/dialects/snowflake"
	_ "github.com/unilakehq/queryguard/pkg/dialects/starrocks"
	_ "github.com/unilakehq/queryguard/pkg/dialects/tsql"
	_ "github.com/unilakehq/queryguard/pkg/dialects/unilake"
)

// Scan parses sql in the named dialect, qualifies identifiers against the
// fallback (catalog, database) namespace and returns the per-scope entity
// and attribute sets plus the serialized query IR. Scan never panics:
// parse and qualification failures surface as PARSE_ERROR payloads,
// anything unexpected as INTERNAL_ERROR.
func Scan(sql, dialectName, catalog, database string) (out *ScanOutput) {
	defer func() {
		if r := recover(); r != nil {
			out = scanError(internalError(fmt.Errorf("%v", r)))
		}
	}()
	return innerScan(sql, dialectName, catalog, database)
}

// Transpile rewrites the query carried in source according to its masking
// rules, row filters and optional visible schema, and serializes the
// result in the fixed output dialect. Source may be a *TranspilerInput, a
// JSON string or raw JSON bytes. With secureOutput set, every literal in
// the query is replaced by a ? placeholder before rewriting.
func Transpile(source any, secureOutput bool) (out *TranspilerOutput) {
	defer func() {
		if r := recover(); r != nil {
			out = transpileError(internalError(fmt.Errorf("%v", r)))
		}
	}()

	if source == nil {
		return inputError("Missing input")
	}

	var input *TranspilerInput
	switch src := source.(type) {
	case *TranspilerInput:
		input = src
	case TranspilerInput:
		input = &src
	case string:
		input = &TranspilerInput{}
		if err := json.Unmarshal([]byte(src), input); err != nil {
			return inputError("Invalid input")
		}
	case []byte:
		input = &TranspilerInput{}
		if err := json.Unmarshal(src, input); err != nil {
			return inputError("Invalid input")
		}
	default:
		return inputError("Invalid input")
	}

	return innerTranspile(input, secureOutput)
}
