package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unilakehq/queryguard/pkg/dialect"
	"github.com/unilakehq/queryguard/pkg/parser"
	_ "github.com/unilakehq/queryguard/pkg/dialects/starrocks"
	_ "github.com/unilakehq/queryguard/pkg/dialects/unilake"
)

func outDialect(t *testing.T) *dialect.Dialect {
	t.Helper()
	d, ok := dialect.Get("starrocks")
	require.True(t, ok)
	return d
}

func inDialect(t *testing.T) *dialect.Dialect {
	t.Helper()
	d, ok := dialect.Get("unilake")
	require.True(t, ok)
	return d
}

// roundTrip parses with the input dialect and generates with the output
// dialect, without qualification.
func roundTrip(t *testing.T, sql string) string {
	t.Helper()
	stmt, err := parser.ParseStatement(sql, inDialect(t))
	require.NoError(t, err)
	return SQL(stmt, outDialect(t))
}

func TestGenerateStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			"simple select",
			"select a, b as two from t",
			"SELECT `a`, `b` AS `two` FROM `t`",
		},
		{
			"qualified and aliased",
			"select t.a from c.d.t as t where t.a > 1",
			"SELECT `t`.`a` FROM `c`.`d`.`t` AS `t` WHERE `t`.`a` > 1",
		},
		{
			"star and table star",
			"select *, t.* from t",
			"SELECT *, `t`.* FROM `t`",
		},
		{
			"distinct group having order limit",
			"select distinct a from t group by a having count(*) > 1 order by a desc limit 5 offset 2",
			"SELECT DISTINCT `a` FROM `t` GROUP BY `a` HAVING COUNT(*) > 1 ORDER BY `a` DESC LIMIT 5 OFFSET 2",
		},
		{
			"joins",
			"select a from t1 inner join t2 on t1.id = t2.id cross join t3, t4",
			"SELECT `a` FROM `t1` INNER JOIN `t2` ON `t1`.`id` = `t2`.`id` CROSS JOIN `t3`, `t4`",
		},
		{
			"cte",
			"with x as (select a from t) select a from x",
			"WITH `x` AS (SELECT `a` FROM `t`) SELECT `a` FROM `x`",
		},
		{
			"union all",
			"select a from t union all select a from u",
			"SELECT `a` FROM `t` UNION ALL SELECT `a` FROM `u`",
		},
		{
			"derived table",
			"select a from (select a from t) as d",
			"SELECT `a` FROM (SELECT `a` FROM `t`) AS `d`",
		},
		{
			"predicates",
			"select a from t where a in (1, 2) and b between 1 and 2 and c is not null and d like 'x%'",
			"SELECT `a` FROM `t` WHERE `a` IN (1, 2) AND `b` BETWEEN 1 AND 2 AND `c` IS NOT NULL AND `d` LIKE 'x%'",
		},
		{
			"or under and keeps parens",
			"select a from t where (a < 1 or a > 2) and b = 3",
			"SELECT `a` FROM `t` WHERE (`a` < 1 OR `a` > 2) AND `b` = 3",
		},
		{
			"case and cast",
			"select case when a > 0 then 'p' else 'n' end, cast(a as varchar(10)) from t",
			"SELECT CASE WHEN `a` > 0 THEN 'p' ELSE 'n' END, CAST(`a` AS VARCHAR(10)) FROM `t`",
		},
		{
			"exists subquery",
			"select a from t where exists (select 1 from u)",
			"SELECT `a` FROM `t` WHERE EXISTS(SELECT 1 FROM `u`)",
		},
		{
			"insert select",
			"insert into t (a, b) select a, b from u",
			"INSERT INTO `t` (`a`, `b`) SELECT `a`, `b` FROM `u`",
		},
		{
			"insert values",
			"insert into t values (1, 'x')",
			"INSERT INTO `t` VALUES (1, 'x')",
		},
		{
			"update",
			"update t set a = 1 where b = 2",
			"UPDATE `t` SET `a` = 1 WHERE `b` = 2",
		},
		{
			"delete",
			"delete from t where a = 1",
			"DELETE FROM `t` WHERE `a` = 1",
		},
		{
			"create table",
			"create table t (a int, b varchar(20))",
			"CREATE TABLE `t` (`a` INT, `b` VARCHAR(20))",
		},
		{
			"ctas",
			"create table t as select * from u",
			"CREATE TABLE `t` AS SELECT * FROM `u`",
		},
		{
			"truncate",
			"truncate table t",
			"TRUNCATE TABLE `t`",
		},
		{
			"set",
			"set x = 10",
			"SET x = 10",
		},
		{
			"string escaping",
			"select 'it''s' from t",
			"SELECT 'it''s' FROM `t`",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, roundTrip(t, tt.sql))
		})
	}
}

func TestGenerateCommand(t *testing.T) {
	got := roundTrip(t, "TRANSPILE SELECT a FROM b")
	assert.Equal(t, "TRANSPILE SELECT a FROM b", got)
}

func TestGenerateConstructedExpressions(t *testing.T) {
	d := outDialect(t)
	col := &parser.ColumnRef{Table: "b", Column: "a"}

	assert.Equal(t, "XX_HASH3_128(`b`.`a`)", Expression(parser.Func("XX_HASH3_128", col), d))
	assert.Equal(t, "-1", Expression(parser.Neg(parser.Number("1")), d))
	assert.Equal(t, "NULL", Expression(parser.Null(), d))
	assert.Equal(t, "?", Expression(&parser.Placeholder{}, d))
}
