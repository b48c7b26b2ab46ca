package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unilakehq/queryguard/pkg/dialect"
	"github.com/unilakehq/queryguard/pkg/generate"
	"github.com/unilakehq/queryguard/pkg/parser"

	_ "github.com/unilakehq/queryguard/pkg/dialects/starrocks"
)

// renderRule applies a rule to b.a and serializes the replacement in the
// output dialect, pinning the exact expression each transform produces.
func renderRule(t *testing.T, name string, props map[string]string) string {
	t.Helper()
	d, ok := dialect.Get("starrocks")
	require.True(t, ok)
	col := &parser.ColumnRef{Table: "b", Column: "a"}
	return generate.Expression(Apply(name, props, col), d)
}

func TestApplyBuiltinRules(t *testing.T) {
	tests := []struct {
		name  string
		rule  string
		props map[string]string
		want  string
	}{
		{
			"xxhash3", "xxhash3", nil,
			"XX_HASH3_128(`b`.`a`)",
		},
		{
			"replace_null", "replace_null", nil,
			"NULL",
		},
		{
			"replace_char", "replace_char", map[string]string{"replacement": "X"},
			"REPEAT('X', LENGTH(`b`.`a`))",
		},
		{
			"replace_string", "replace_string", map[string]string{"replacement": "[REDACTED]"},
			"'[REDACTED]'",
		},
		{
			"mask_except_last", "mask_except_last", map[string]string{"value": "X", "len": "3"},
			"CONCAT(REPEAT('X', LENGTH(`b`.`a`) - 3), RIGHT(`b`.`a`, 3))",
		},
		{
			"mask_except_first", "mask_except_first", map[string]string{"value": "X", "len": "3"},
			"CONCAT(LEFT(`b`.`a`, 3), REPEAT('X', LENGTH(`b`.`a`) - 3))",
		},
		{
			"rounding", "rounding", map[string]string{"value": "2"},
			"ROUND(`b`.`a`, 2)",
		},
		{
			"random_number", "random_number", map[string]string{"min": "2", "max": "5"},
			"FLOOR((5 - 2 + 1) * RAND() + 2)",
		},
		{
			"random_multiplication", "random_multiplication", map[string]string{"max": "5"},
			"RAND() * 5",
		},
		{
			"left", "left", map[string]string{"len": "3"},
			"LEFT(`b`.`a`, 3)",
		},
		{
			"right", "right", map[string]string{"len": "3"},
			"RIGHT(`b`.`a`, 3)",
		},
		{
			"mail_mask_username", "mail_mask_username", nil,
			"CONCAT_WS('@', REPEAT('x', LOCATE('@', `b`.`a`) - 1), SPLIT_PART(`b`.`a`, '@', 2))",
		},
		{
			"mail_mask_domain", "mail_mask_domain", nil,
			"CONCAT_WS('@', SPLIT_PART(`b`.`a`, '@', 1), CONCAT(REPEAT('x', CHAR_LENGTH(SPLIT_PART(`b`.`a`, '@', 2)) - CHAR_LENGTH(SPLIT_PART(SPLIT_PART(`b`.`a`, '@', 2), '.', -1)) - 1), '.', SPLIT_PART(SPLIT_PART(`b`.`a`, '@', 2), '.', -1)))",
		},
		{
			"date_year_only", "date_year_only", nil,
			"DATE_TRUNC('YEAR', `b`.`a`)",
		},
		{
			"date_month_only", "date_month_only", nil,
			"DATE_TRUNC('MONTH', `b`.`a`)",
		},
		{
			"ip_anonymize", "ip_anonymize", nil,
			"CONCAT_WS('.', SPLIT_PART(`b`.`a`, '.', 1), SPLIT_PART(`b`.`a`, '.', 2), '0', '0')",
		},
		{
			"ip_mask_pres", "ip_mask_pres", nil,
			"CONCAT_WS('.', REPEAT('*', CHAR_LENGTH(SPLIT_PART(`b`.`a`, '.', 1))), REPEAT('*', CHAR_LENGTH(SPLIT_PART(`b`.`a`, '.', 2))), REPEAT('*', CHAR_LENGTH(SPLIT_PART(`b`.`a`, '.', 3))), REPEAT('*', CHAR_LENGTH(SPLIT_PART(`b`.`a`, '.', 4))))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderRule(t, tt.rule, tt.props))
		})
	}
}

func TestApplyPassthroughRules(t *testing.T) {
	passthrough := []string{
		"mail_hash_pres", "mail_mask_pres",
		"cc_hash_pres", "cc_mask_pres", "cc_last_four",
		"ip_hash_pres", "semi_structured", "custom",
		"not_a_rule_at_all",
	}
	for _, name := range passthrough {
		assert.Equal(t, "`b`.`a`", renderRule(t, name, nil), "rule %s", name)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	col := &parser.ColumnRef{Table: "b", Column: "a"}
	_ = Apply("mask_except_last", map[string]string{"value": "X", "len": "2"}, col)
	assert.Equal(t, "b", col.Table)
	assert.Equal(t, "a", col.Column)
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("xxhash3"))
	assert.True(t, Known("cc_last_four"))
	assert.False(t, Known("rot13"))
}
