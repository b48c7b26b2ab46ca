package queryguard

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/unilakehq/queryguard/pkg/parser"
	"github.com/unilakehq/queryguard/pkg/qualify"
)

// StatementKind classifies the root node of a scanned statement.
type StatementKind string

// StatementKind values.
const (
	KindSelect   StatementKind = "SELECT"
	KindInsert   StatementKind = "INSERT"
	KindUpdate   StatementKind = "UPDATE"
	KindDelete   StatementKind = "DELETE"
	KindCreate   StatementKind = "CREATE"
	KindDescribe StatementKind = "DESCRIBE"
	KindTruncate StatementKind = "TRUNCATE"
	KindAlter    StatementKind = "ALTER"
	KindDrop     StatementKind = "DROP"
	KindRefresh  StatementKind = "REFRESH"
	KindCommand  StatementKind = "COMMAND"
	KindExport   StatementKind = "EXPORT"
	KindSet      StatementKind = "SET"
	KindUnknown  StatementKind = "UNKNOWN"
)

// classify maps a parsed statement to its kind.
func classify(stmt parser.Statement) StatementKind {
	switch s := stmt.(type) {
	case *parser.SelectStmt:
		return KindSelect
	case *parser.InsertStmt:
		return KindInsert
	case *parser.UpdateStmt:
		return KindUpdate
	case *parser.DeleteStmt:
		return KindDelete
	case *parser.CreateStmt:
		return KindCreate
	case *parser.TruncateStmt:
		return KindTruncate
	case *parser.SetStmt:
		return KindSet
	case *parser.CommandStmt:
		return KindCommand
	case *parser.RawStmt:
		switch s.Keyword {
		case "DROP":
			return KindDrop
		case "ALTER":
			return KindAlter
		case "DESCRIBE":
			return KindDescribe
		case "REFRESH":
			return KindRefresh
		case "EXPORT":
			return KindExport
		}
	}
	return KindUnknown
}

// ErrorMessage is one located error record on the wire.
type ErrorMessage struct {
	Description    string  `json:"description"`
	Line           int     `json:"line"`
	Col            int     `json:"col"`
	StartContext   string  `json:"start_context"`
	Highlight      string  `json:"highlight"`
	EndContext     string  `json:"end_context"`
	IntoExpression *string `json:"into_expression"`
}

// Error kinds carried in ParserError.ErrorType.
const (
	ErrorTypeParse    = "PARSE_ERROR"
	ErrorTypeInternal = "INTERNAL_ERROR"
)

// ParserError is the wire error payload. Scan and Transpile never raise;
// all failures land here.
type ParserError struct {
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	Errors    []ErrorMessage `json:"errors"`
}

// ScanEntity identifies a referenced table. Catalog and Db stay empty for
// CTE and derived references and marshal as null.
type ScanEntity struct {
	Catalog string
	Db      string
	Name    string
	Alias   string
}

// MarshalJSON emits the historical wire keys: the table name travels under
// "entity" and absent catalog/db are null.
func (e ScanEntity) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"catalog": nullable(e.Catalog),
		"db":      nullable(e.Db),
		"entity":  e.Name,
		"alias":   e.Alias,
	})
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ScanAttribute identifies a referenced column (or "*") by the alias of the
// entity it resolves to.
type ScanAttribute struct {
	EntityAlias string `json:"entity_alias"`
	Name        string `json:"name"`
}

// ScanOutputObject is the per-scope result: deduplicated entity and
// attribute sets plus an aggregation marker.
type ScanOutputObject struct {
	Scope      int             `json:"scope"`
	Entities   []ScanEntity    `json:"entities"`
	Attributes []ScanAttribute `json:"attributes"`
	IsAgg      bool            `json:"is_agg"`
}

// ScanOutput is the result of a scan call. The dialect travels under the
// wire key "dialects" (plural); existing callers depend on that spelling.
type ScanOutput struct {
	Objects      []ScanOutputObject `json:"objects"`
	Dialect      string             `json:"dialects"`
	Query        *string            `json:"query"`
	Type         StatementKind      `json:"type"`
	Error        *ParserError       `json:"error"`
	TargetEntity *string            `json:"target_entity"`
}

// scanError wraps a wire error into an empty scan output.
func scanError(perr *ParserError) *ScanOutput {
	return &ScanOutput{
		Objects: []ScanOutputObject{},
		Type:    KindUnknown,
		Error:   perr,
	}
}

// RuleDefinition names a masking transform and its properties.
type RuleDefinition struct {
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties"`
}

// TranspilerInputRule binds a masking rule to a (scope, attribute) key.
// The attribute is the ANSI-quoted column form, e.g. "b"."a".
type TranspilerInputRule struct {
	Scope          int            `json:"scope"`
	Attribute      string         `json:"attribute"`
	RuleID         string         `json:"rule_id"`
	RuleDefinition RuleDefinition `json:"rule_definition"`
}

// FilterDefinition carries a predicate template with ? placeholders for the
// concrete column reference.
type FilterDefinition struct {
	Expression string `json:"expression"`
}

// TranspilerInputFilter binds a row filter to a (scope, attribute) key.
type TranspilerInputFilter struct {
	Scope            int              `json:"scope"`
	Attribute        string           `json:"attribute"`
	FilterID         string           `json:"filter_id"`
	FilterDefinition FilterDefinition `json:"filter_definition"`
}

// QueryIR is the serialized statement handed between scan and transpile.
// On the wire it is either a JSON string containing the IR document (the
// form scan emits) or the IR object inline; both spellings decode.
type QueryIR []byte

// UnmarshalJSON accepts the string and object spellings.
func (q *QueryIR) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*q = nil
		return nil
	}
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return err
		}
		*q = QueryIR(inner)
		return nil
	}
	*q = QueryIR(trimmed)
	return nil
}

// MarshalJSON re-emits the string spelling scan uses.
func (q QueryIR) MarshalJSON() ([]byte, error) {
	if len(q) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(string(q))
}

// Empty reports whether the IR payload is missing or an empty document.
func (q QueryIR) Empty() bool {
	trimmed := strings.TrimSpace(string(q))
	return trimmed == "" || trimmed == "{}" || trimmed == "null"
}

// TranspilerInput is the full rewrite request.
type TranspilerInput struct {
	Rules         []TranspilerInputRule   `json:"rules"`
	Filters       []TranspilerInputFilter `json:"filters"`
	VisibleSchema *qualify.VisibleSchema  `json:"visible_schema,omitempty"`
	Cause         json.RawMessage         `json:"cause,omitempty"`
	Query         QueryIR                 `json:"query"`
	RequestURL    *string                 `json:"request_url,omitempty"`
}

// TranspilerOutput is the result of a transpile call.
type TranspilerOutput struct {
	SQLTransformed string       `json:"sql_transformed"`
	Error          *ParserError `json:"error"`
}

// transpileError wraps a wire error into an empty transpiler output.
func transpileError(perr *ParserError) *TranspilerOutput {
	return &TranspilerOutput{SQLTransformed: "", Error: perr}
}

// inputError builds the fixed-position errors used for malformed transpile
// requests ("Missing input", "Invalid input").
func inputError(description string) *TranspilerOutput {
	return transpileError(&ParserError{
		ErrorType: ErrorTypeParse,
		Message:   "",
		Errors: []ErrorMessage{{
			Description: description,
			Line:        1,
			Col:         1,
		}},
	})
}
