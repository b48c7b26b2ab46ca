package qualify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unilakehq/queryguard/pkg/dialect"
	"github.com/unilakehq/queryguard/pkg/generate"
	"github.com/unilakehq/queryguard/pkg/parser"

	_ "github.com/unilakehq/queryguard/pkg/dialects/starrocks"
	_ "github.com/unilakehq/queryguard/pkg/dialects/unilake"
)

func parse(t *testing.T, sql string) parser.Statement {
	t.Helper()
	d, ok := dialect.Get("unilake")
	require.True(t, ok)
	stmt, err := parser.ParseStatement(sql, d)
	require.NoError(t, err)
	return stmt
}

func render(t *testing.T, stmt parser.Statement) string {
	t.Helper()
	d, ok := dialect.Get("starrocks")
	require.True(t, ok)
	return generate.SQL(stmt, d)
}

func schemaFromJSON(t *testing.T, payload string) *VisibleSchema {
	t.Helper()
	s := &VisibleSchema{}
	require.NoError(t, json.Unmarshal([]byte(payload), s))
	return s
}

func TestQualifyFillsNamespaceAndAliases(t *testing.T) {
	stmt := parse(t, "SELECT a from b")
	require.NoError(t, Qualify(stmt, Options{Catalog: "catalog", Database: "database"}))
	assert.Equal(t,
		"SELECT `b`.`a` AS `a` FROM `catalog`.`database`.`b` AS `b`",
		render(t, stmt))
}

func TestQualifyKeepsExplicitNamespace(t *testing.T) {
	stmt := parse(t, "SELECT a from other_cat.other_db.b")
	require.NoError(t, Qualify(stmt, Options{Catalog: "catalog", Database: "database"}))
	assert.Equal(t,
		"SELECT `b`.`a` AS `a` FROM `other_cat`.`other_db`.`b` AS `b`",
		render(t, stmt))
}

func TestQualifyCTEReferencesStayBare(t *testing.T) {
	stmt := parse(t, "with src as (select a from b) select a from src")
	require.NoError(t, Qualify(stmt, Options{Catalog: "catalog", Database: "database"}))
	assert.Equal(t,
		"WITH `src` AS (SELECT `b`.`a` AS `a` FROM `catalog`.`database`.`b` AS `b`) SELECT `src`.`a` AS `a` FROM `src` AS `src`",
		render(t, stmt))
}

func TestQualifyDerivedTableNumbering(t *testing.T) {
	stmt := parse(t, "SELECT * from (select a from b)")
	require.NoError(t, Qualify(stmt, Options{Catalog: "catalog", Database: "database"}))
	assert.Equal(t,
		"SELECT `_q_0`.`a` AS `a` FROM (SELECT `b`.`a` AS `a` FROM `catalog`.`database`.`b` AS `b`) AS `_q_0`",
		render(t, stmt))
}

func TestQualifyExpressionAliases(t *testing.T) {
	stmt := parse(t, "SELECT count(*) from b")
	require.NoError(t, Qualify(stmt, Options{Catalog: "c", Database: "d"}))
	assert.Equal(t,
		"SELECT COUNT(*) AS `_col_0` FROM `c`.`d`.`b` AS `b`",
		render(t, stmt))
}

func TestQualifyOrdinalExpansion(t *testing.T) {
	stmt := parse(t, "SELECT a as x from b group by 1 order by 1")
	require.NoError(t, Qualify(stmt, Options{Catalog: "c", Database: "d"}))
	assert.Equal(t,
		"SELECT `b`.`a` AS `x` FROM `c`.`d`.`b` AS `b` GROUP BY `b`.`a` ORDER BY `b`.`a`",
		render(t, stmt))
}

func TestQualifyAmbiguousColumn(t *testing.T) {
	stmt := parse(t, "SELECT a from b, c")
	err := Qualify(stmt, Options{Catalog: "cat", Database: "db"})
	require.Error(t, err)
	var resErr *ResolutionError
	assert.ErrorAs(t, err, &resErr)
}

func TestQualifyDisambiguatesThroughKnownColumns(t *testing.T) {
	stmt := parse(t, "with src as (select a from b) select a, c from src, d")
	// src projects only a, so a -> src; c cannot be placed and is ambiguous.
	err := Qualify(stmt, Options{Catalog: "cat", Database: "db"})
	require.Error(t, err)
}

func TestQualifyStarExpansionWithSchema(t *testing.T) {
	schema := schemaFromJSON(t, `{"catalog": {"database": {"b": {"a": "INT", "b": "VARCHAR"}}}}`)
	stmt := parse(t, "SELECT * from b")
	require.NoError(t, Qualify(stmt, Options{Catalog: "catalog", Database: "database"}))
	require.NoError(t, Qualify(stmt, Options{Schema: schema, ExpandStars: true, ValidateColumns: true}))
	assert.Equal(t,
		"SELECT `b`.`a` AS `a`, `b`.`b` AS `b` FROM `catalog`.`database`.`b` AS `b`",
		render(t, stmt))
}

func TestQualifyStarExpansionPreservesSchemaOrder(t *testing.T) {
	schema := schemaFromJSON(t, `{"c": {"d": {"t": {"z": "INT", "m": "INT", "a": "INT"}}}}`)
	stmt := parse(t, "SELECT * from t")
	require.NoError(t, Qualify(stmt, Options{Catalog: "c", Database: "d"}))
	require.NoError(t, Qualify(stmt, Options{Schema: schema, ExpandStars: true, ValidateColumns: true}))
	assert.Equal(t,
		"SELECT `t`.`z` AS `z`, `t`.`m` AS `m`, `t`.`a` AS `a` FROM `c`.`d`.`t` AS `t`",
		render(t, stmt))
}

func TestQualifyValidatesColumnsAgainstSchema(t *testing.T) {
	schema := schemaFromJSON(t, `{"c": {"d": {"t": {"a": "INT"}}}}`)
	stmt := parse(t, "SELECT nope from t")
	require.NoError(t, Qualify(stmt, Options{Catalog: "c", Database: "d"}))
	err := Qualify(stmt, Options{Schema: schema, ExpandStars: true, ValidateColumns: true})
	require.Error(t, err)
}

func TestQualifyTableMissingFromSchema(t *testing.T) {
	schema := schemaFromJSON(t, `{"c": {"d": {"other": {"a": "INT"}}}}`)
	stmt := parse(t, "SELECT a from t")
	require.NoError(t, Qualify(stmt, Options{Catalog: "c", Database: "d"}))
	err := Qualify(stmt, Options{Schema: schema, ExpandStars: true, ValidateColumns: true})
	require.Error(t, err)
}

func TestQualifyCorrelatedSubquery(t *testing.T) {
	stmt := parse(t, "SELECT a from b where exists (select 1 from c where c.x = b.a)")
	require.NoError(t, Qualify(stmt, Options{Catalog: "cat", Database: "db"}))
	assert.Contains(t, render(t, stmt), "`c`.`x` = `b`.`a`")
}

func TestVisibleSchemaLookup(t *testing.T) {
	schema := schemaFromJSON(t, `{"c": {"d": {"t": {"a": "INT", "b": "VARCHAR"}}}}`)

	tbl, ok := schema.Lookup("c", "d", "t")
	require.True(t, ok)
	require.Len(t, tbl.Columns, 2)
	assert.Equal(t, "a", tbl.Columns[0].Name)

	_, ok = schema.Lookup("c", "d", "missing")
	assert.False(t, ok)

	// Case-insensitive lookup.
	_, ok = schema.Lookup("C", "D", "T")
	assert.True(t, ok)
}

func TestVisibleSchemaRoundTrip(t *testing.T) {
	payload := `{"c":{"d":{"t":{"z":"INT","a":"VARCHAR"}}}}`
	schema := schemaFromJSON(t, payload)
	encoded, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(encoded))

	// Column order survives the round trip.
	again := schemaFromJSON(t, string(encoded))
	tbl, ok := again.Lookup("c", "d", "t")
	require.True(t, ok)
	assert.Equal(t, "z", tbl.Columns[0].Name)
	assert.Equal(t, "a", tbl.Columns[1].Name)
}
