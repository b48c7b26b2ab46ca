package queryguard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanQuery(t *testing.T, sql string) QueryIR {
	t.Helper()
	out := Scan(sql, "unilake", "catalog", "database")
	require.Nil(t, out.Error)
	require.NotNil(t, out.Query)
	return QueryIR(*out.Query)
}

func ruleInput(query QueryIR, rules []TranspilerInputRule, filters []TranspilerInputFilter) *TranspilerInput {
	return &TranspilerInput{Rules: rules, Filters: filters, Query: query}
}

func TestScanEmptyInput(t *testing.T) {
	out := Scan("", "unilake", "catalog", "database")
	assert.Nil(t, out.Error)
	assert.Equal(t, KindUnknown, out.Type)
	assert.Empty(t, out.Objects)
	assert.Nil(t, out.Query)
	assert.Nil(t, out.TargetEntity)
}

func TestScanStatementKinds(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		dialect string
		want    StatementKind
	}{
		{"select", "select * from some_table", "unilake", KindSelect},
		{"insert", "insert into some_table select * from another_table", "unilake", KindInsert},
		{"ctas", "create table some_table as select * from employees", "unilake", KindCreate},
		{"truncate", "truncate table some_table", "unilake", KindTruncate},
		{"delete", "delete from some_table where a > 1", "unilake", KindDelete},
		{"drop", "drop table some_table", "unilake", KindDrop},
		{"set", "set x=10", "unilake", KindSet},
		{"transpile command", "TRANSPILE SELECT * FROM t", "unilake", KindCommand},
		{"scan tags command", "SCAN TAGS FOR dataset1", "unilake", KindCommand},
		{"create tag command", "CREATE TAG pii.email", "unilake", KindCommand},
		{"create masking ruleset", "CREATE MASKING RULESET rs AS (x)", "unilake", KindCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Scan(tt.sql, tt.dialect, "catalog", "database")
			require.Nil(t, out.Error, "scan error: %+v", out.Error)
			assert.Equal(t, tt.want, out.Type)
		})
	}
}

func TestScanTargetEntity(t *testing.T) {
	out := Scan("insert into test (a, b) select a, b from test2", "unilake", "catalog", "database")
	require.Nil(t, out.Error)
	require.NotNil(t, out.TargetEntity)
	assert.Equal(t, `"catalog"."database"."test"`, *out.TargetEntity)

	out = Scan("set x=10", "unilake", "catalog", "database")
	require.Nil(t, out.Error)
	assert.Equal(t, KindSet, out.Type)
	assert.Nil(t, out.TargetEntity)

	out = Scan("select a from b", "unilake", "catalog", "database")
	require.Nil(t, out.Error)
	assert.Nil(t, out.TargetEntity)
}

func TestScanSimpleQuery(t *testing.T) {
	out := Scan("SELECT a from b", "unilake", "catalog", "database")
	require.Nil(t, out.Error)
	require.Len(t, out.Objects, 1)

	obj := out.Objects[0]
	assert.Equal(t, 0, obj.Scope)
	assert.False(t, obj.IsAgg)
	assert.Equal(t, []ScanEntity{{Catalog: "catalog", Db: "database", Name: "b", Alias: "b"}}, obj.Entities)
	assert.Equal(t, []ScanAttribute{{EntityAlias: "b", Name: "a"}}, obj.Attributes)
}

func TestScanAggregate(t *testing.T) {
	out := Scan("SELECT a as [Something] from b group by 1", "tsql", "catalog", "database")
	require.Nil(t, out.Error)
	require.Len(t, out.Objects, 1)
	assert.True(t, out.Objects[0].IsAgg)
	assert.Equal(t, []ScanAttribute{{EntityAlias: "b", Name: "a"}}, out.Objects[0].Attributes)
}

func TestScanStarAttribute(t *testing.T) {
	out := Scan("select * from some_table", "unilake", "catalog", "database")
	require.Nil(t, out.Error)
	require.Len(t, out.Objects, 1)
	assert.Equal(t, []ScanAttribute{{EntityAlias: "some_table", Name: "*"}}, out.Objects[0].Attributes)
}

func TestScanCountStarContributesNoAttribute(t *testing.T) {
	out := Scan("SELECT COUNT(*) FROM b", "unilake", "catalog", "database")
	require.Nil(t, out.Error)
	require.Len(t, out.Objects, 1)
	assert.Empty(t, out.Objects[0].Attributes)
}

func TestScanMultiScopedQuery(t *testing.T) {
	sql := "with src as (SELECT a as [Something] from b), second as (select b as [Something] from b) select distinct * from src cross join second"
	out := Scan(sql, "tsql", "catalog", "database")
	require.Nil(t, out.Error)
	require.Len(t, out.Objects, 3)
	assert.Equal(t, KindSelect, out.Type)

	// CTE scopes reference the base table; the outer scope references the
	// CTEs without a namespace.
	assert.Equal(t, []ScanEntity{{Catalog: "catalog", Db: "database", Name: "b", Alias: "b"}}, out.Objects[0].Entities)
	assert.Equal(t, []ScanEntity{
		{Name: "second", Alias: "second"},
		{Name: "src", Alias: "src"},
	}, out.Objects[2].Entities)
}

func TestScanUpdateWithJoin(t *testing.T) {
	sql := `
		UPDATE Table_A
		SET Table_A.col1 = Table_B.col1, Table_A.col2 = Table_B.col2
		FROM Some_Table AS Table_A
		INNER JOIN Other_Table AS Table_B ON Table_A.id = Table_B.id
		WHERE Table_A.col3 = 1`
	out := Scan(sql, "tsql", "catalog", "database")
	require.Nil(t, out.Error)
	assert.Equal(t, KindUpdate, out.Type)
}

func TestScanStability(t *testing.T) {
	sql := "with src as (select a from b) select * from src, (select c from d) where exists (select 1 from e)"
	first := Scan(sql, "unilake", "catalog", "database")
	require.Nil(t, first.Error)
	for i := 0; i < 5; i++ {
		again := Scan(sql, "unilake", "catalog", "database")
		require.Nil(t, again.Error)
		assert.Equal(t, first.Objects, again.Objects)
		assert.Equal(t, *first.Query, *again.Query)
	}
}

func TestScanMalformedSQL(t *testing.T) {
	out := Scan("SELECT SUM(Amount( FROM Finance", "unilake", "catalog", "database")
	require.NotNil(t, out.Error)
	assert.Equal(t, ErrorTypeParse, out.Error.ErrorType)
	assert.Equal(t, KindUnknown, out.Type)
	require.NotEmpty(t, out.Error.Errors)
	assert.Greater(t, out.Error.Errors[0].Line, 0)
	assert.Greater(t, out.Error.Errors[0].Col, 0)
}

func TestScanUnknownDialect(t *testing.T) {
	out := Scan("select 1", "klingon", "catalog", "database")
	require.NotNil(t, out.Error)
	assert.Equal(t, ErrorTypeParse, out.Error.ErrorType)
}

func TestScanOutputJSONShape(t *testing.T) {
	out := Scan("SELECT a from b", "unilake", "catalog", "database")
	require.Nil(t, out.Error)

	encoded, err := json.Marshal(out)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(encoded, &wire))
	// The dialect travels under the plural key; callers depend on it.
	assert.Equal(t, "unilake", wire["dialects"])
	assert.Contains(t, wire, "target_entity")
	assert.Nil(t, wire["target_entity"])

	objects := wire["objects"].([]any)
	entity := objects[0].(map[string]any)["entities"].([]any)[0].(map[string]any)
	assert.Equal(t, "b", entity["entity"])
	assert.Equal(t, "catalog", entity["catalog"])
}

func TestTranspileMissingInput(t *testing.T) {
	out := Transpile(nil, false)
	require.NotNil(t, out.Error)
	assert.Equal(t, "Missing input", out.Error.Errors[0].Description)
	assert.Equal(t, 1, out.Error.Errors[0].Line)
	assert.Equal(t, 1, out.Error.Errors[0].Col)
}

func TestTranspileEmptyQuery(t *testing.T) {
	out := Transpile(&TranspilerInput{Query: QueryIR("{}")}, false)
	require.NotNil(t, out.Error)
	assert.Equal(t, "Invalid input", out.Error.Errors[0].Description)
}

func TestTranspileSingleRule(t *testing.T) {
	query := scanQuery(t, "SELECT a from b")
	out := Transpile(ruleInput(query, []TranspilerInputRule{{
		Scope:          0,
		Attribute:      `"b"."a"`,
		RuleID:         "some_guid",
		RuleDefinition: RuleDefinition{Name: "xxhash3"},
	}}, nil), false)
	require.Nil(t, out.Error)
	assert.Equal(t,
		"SELECT XX_HASH3_128(`b`.`a`) AS `a` FROM `catalog`.`database`.`b` AS `b`",
		out.SQLTransformed)
}

func TestTranspileFilterWithExistingWhere(t *testing.T) {
	query := scanQuery(t, "SELECT a from b where a < 10000 or a < 0")
	out := Transpile(ruleInput(query, nil, []TranspilerInputFilter{{
		Scope:            0,
		Attribute:        `"b"."a"`,
		FilterID:         "some_guid",
		FilterDefinition: FilterDefinition{Expression: "? > 0"},
	}}), false)
	require.Nil(t, out.Error)
	assert.Equal(t,
		"SELECT `b`.`a` AS `a` FROM `catalog`.`database`.`b` AS `b` WHERE (`b`.`a` < 10000 OR `b`.`a` < 0) AND `b`.`a` > 0",
		out.SQLTransformed)
}

func TestTranspileFilterOnNonProjectedColumn(t *testing.T) {
	query := scanQuery(t, "SELECT c from b")
	out := Transpile(ruleInput(query, nil, []TranspilerInputFilter{{
		Scope:            0,
		Attribute:        `"b"."a"`,
		FilterID:         "some_guid",
		FilterDefinition: FilterDefinition{Expression: "? > 0"},
	}}), false)
	require.Nil(t, out.Error)
	assert.Equal(t,
		"SELECT `b`.`c` AS `c` FROM `catalog`.`database`.`b` AS `b` WHERE `b`.`a` > 0",
		out.SQLTransformed)
}

func visibleSchemaB(t *testing.T) *TranspilerInput {
	t.Helper()
	input := &TranspilerInput{}
	payload := `{"visible_schema": {"catalog": {"database": {"b": {"a": "INT", "b": "VARCHAR"}}}}}`
	require.NoError(t, json.Unmarshal([]byte(payload), input))
	return input
}

func TestTranspileStarExpandWithMask(t *testing.T) {
	input := visibleSchemaB(t)
	input.Query = scanQuery(t, "SELECT * from b")
	input.Rules = []TranspilerInputRule{{
		Scope:          0,
		Attribute:      `"b"."a"`,
		RuleID:         "some_guid",
		RuleDefinition: RuleDefinition{Name: "xxhash3"},
	}}
	out := Transpile(input, false)
	require.Nil(t, out.Error)
	assert.Equal(t,
		"SELECT XX_HASH3_128(`b`.`a`) AS `a`, `b`.`b` AS `b` FROM `catalog`.`database`.`b` AS `b`",
		out.SQLTransformed)
}

func TestTranspileStarExpandWithFilter(t *testing.T) {
	input := visibleSchemaB(t)
	input.Query = scanQuery(t, "SELECT * from b")
	input.Filters = []TranspilerInputFilter{{
		Scope:            0,
		Attribute:        `"b"."a"`,
		FilterID:         "some_guid",
		FilterDefinition: FilterDefinition{Expression: "? > 0"},
	}}
	out := Transpile(input, false)
	require.Nil(t, out.Error)
	assert.Equal(t,
		"SELECT `b`.`a` AS `a`, `b`.`b` AS `b` FROM `catalog`.`database`.`b` AS `b` WHERE `b`.`a` > 0",
		out.SQLTransformed)
}

func TestTranspileStarExpandWithMaskAndFilter(t *testing.T) {
	input := visibleSchemaB(t)
	input.Query = scanQuery(t, "SELECT * from b")
	input.Rules = []TranspilerInputRule{{
		Scope:          0,
		Attribute:      `"b"."a"`,
		RuleID:         "some_guid",
		RuleDefinition: RuleDefinition{Name: "xxhash3"},
	}}
	input.Filters = []TranspilerInputFilter{{
		Scope:            0,
		Attribute:        `"b"."a"`,
		FilterID:         "some_guid",
		FilterDefinition: FilterDefinition{Expression: "? > 0"},
	}}
	out := Transpile(input, false)
	require.Nil(t, out.Error)
	assert.Equal(t,
		"SELECT XX_HASH3_128(`b`.`a`) AS `a`, `b`.`b` AS `b` FROM `catalog`.`database`.`b` AS `b` WHERE `b`.`a` > 0",
		out.SQLTransformed)
}

func TestTranspileSecureOutput(t *testing.T) {
	sql := "SELECT firstname FROM b where username = 'admin' and country in ('USA', 'Canada') and age > 30"
	out := Transpile(ruleInput(scanQuery(t, sql), nil, nil), true)
	require.Nil(t, out.Error)
	assert.Equal(t,
		"SELECT `b`.`firstname` AS `firstname` FROM `catalog`.`database`.`b` AS `b` WHERE `b`.`username` = '?' AND `b`.`country` IN ('?', '?') AND `b`.`age` > ?",
		out.SQLTransformed)
}

func TestTranspileNestedScopeIsolation(t *testing.T) {
	query := scanQuery(t, "SELECT * from (select a from b)")
	mask := func(scope int) *TranspilerOutput {
		return Transpile(ruleInput(query, []TranspilerInputRule{{
			Scope:          scope,
			Attribute:      `"b"."a"`,
			RuleID:         "some_guid",
			RuleDefinition: RuleDefinition{Name: "replace_null"},
		}}, nil), false)
	}

	// The inner derived scope is scope 0; the rule rewrites only there.
	out := mask(0)
	require.Nil(t, out.Error)
	assert.Equal(t,
		"SELECT `_q_0`.`a` AS `a` FROM (SELECT NULL AS `a` FROM `catalog`.`database`.`b` AS `b`) AS `_q_0`",
		out.SQLTransformed)

	// Keyed to the outer scope, the rule matches nothing.
	out = mask(1)
	require.Nil(t, out.Error)
	assert.Equal(t,
		"SELECT `_q_0`.`a` AS `a` FROM (SELECT `b`.`a` AS `a` FROM `catalog`.`database`.`b` AS `b`) AS `_q_0`",
		out.SQLTransformed)
}

func TestTranspileInsertSelect(t *testing.T) {
	query := scanQuery(t, "INSERT INTO test (a, b) SELECT a, b from test2")
	out := Transpile(ruleInput(query, []TranspilerInputRule{{
		Scope:          0,
		Attribute:      `"test2"."a"`,
		RuleID:         "some_guid",
		RuleDefinition: RuleDefinition{Name: "replace_null"},
	}}, nil), false)
	require.Nil(t, out.Error)
	assert.Equal(t,
		"INSERT INTO `catalog`.`database`.`test` (`a`, `b`) SELECT NULL AS `a`, `test2`.`b` AS `b` FROM `catalog`.`database`.`test2` AS `test2`",
		out.SQLTransformed)
}

func TestTranspileFilterExpressionParseError(t *testing.T) {
	query := scanQuery(t, "SELECT a from b")
	out := Transpile(ruleInput(query, nil, []TranspilerInputFilter{{
		Scope:            0,
		Attribute:        `"b"."a"`,
		FilterID:         "some_guid",
		FilterDefinition: FilterDefinition{Expression: "? >"},
	}}), false)
	require.NotNil(t, out.Error)
	assert.Equal(t, ErrorTypeParse, out.Error.ErrorType)
	assert.Empty(t, out.SQLTransformed)
}

func TestTranspileRoundTripWithoutRules(t *testing.T) {
	tests := []string{
		"SELECT a from b",
		"SELECT a, b from b where a > 1 order by b desc limit 10",
		"with src as (select a from b) select * from src",
		"select distinct a from b group by a having count(*) > 1",
		"insert into t (a) select a from b",
	}
	for _, sql := range tests {
		out := Transpile(ruleInput(scanQuery(t, sql), nil, nil), false)
		require.Nil(t, out.Error, "sql: %s", sql)

		// Re-scanning the output and transpiling again is a fixpoint.
		rescanned := Scan(out.SQLTransformed, "starrocks", "catalog", "database")
		require.Nil(t, rescanned.Error, "sql: %s -> %s", sql, out.SQLTransformed)
		again := Transpile(ruleInput(QueryIR(*rescanned.Query), nil, nil), false)
		require.Nil(t, again.Error)
		assert.Equal(t, out.SQLTransformed, again.SQLTransformed, "sql: %s", sql)
	}
}

func TestTranspileJSONStringSource(t *testing.T) {
	query := scanQuery(t, "SELECT a from b")
	input := ruleInput(query, nil, nil)
	payload, err := json.Marshal(input)
	require.NoError(t, err)

	out := Transpile(string(payload), false)
	require.Nil(t, out.Error)
	assert.Equal(t,
		"SELECT `b`.`a` AS `a` FROM `catalog`.`database`.`b` AS `b`",
		out.SQLTransformed)
}

func TestTranspileInvalidJSONSource(t *testing.T) {
	out := Transpile("{not json", false)
	require.NotNil(t, out.Error)
	assert.Equal(t, "Invalid input", out.Error.Errors[0].Description)
}

func TestTranspileDuplicateRuleLastWins(t *testing.T) {
	query := scanQuery(t, "SELECT a from b")
	out := Transpile(ruleInput(query, []TranspilerInputRule{
		{Scope: 0, Attribute: `"b"."a"`, RuleID: "r1", RuleDefinition: RuleDefinition{Name: "xxhash3"}},
		{Scope: 0, Attribute: `"b"."a"`, RuleID: "r2", RuleDefinition: RuleDefinition{Name: "replace_null"}},
	}, nil), false)
	require.Nil(t, out.Error)
	assert.Equal(t,
		"SELECT NULL AS `a` FROM `catalog`.`database`.`b` AS `b`",
		out.SQLTransformed)
}
