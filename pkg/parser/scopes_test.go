package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scopeIDs(t *testing.T, sql string) []*QueryScope {
	t.Helper()
	return Scopes(mustParse(t, sql))
}

func TestScopesSimpleSelect(t *testing.T) {
	scopes := scopeIDs(t, "SELECT a FROM t")
	require.Len(t, scopes, 1)
	assert.Equal(t, 0, scopes[0].ID)
}

func TestScopesCTEsDeclarationOrderOuterLast(t *testing.T) {
	scopes := scopeIDs(t, "WITH x AS (SELECT a FROM t), y AS (SELECT b FROM x) SELECT * FROM y")
	require.Len(t, scopes, 3)
	// Scope 0 = x, scope 1 = y, scope 2 = the outer select.
	xTables := RegionTables(scopes[0].Core)
	require.Len(t, xTables, 1)
	assert.Equal(t, "t", xTables[0].Name)
	yTables := RegionTables(scopes[1].Core)
	require.Len(t, yTables, 1)
	assert.Equal(t, "x", yTables[0].Name)
	outerTables := RegionTables(scopes[2].Core)
	require.Len(t, outerTables, 1)
	assert.Equal(t, "y", outerTables[0].Name)
}

func TestScopesDerivedBeforeOuter(t *testing.T) {
	scopes := scopeIDs(t, "SELECT * FROM (SELECT a FROM b) d")
	require.Len(t, scopes, 2)
	inner := RegionTables(scopes[0].Core)
	require.Len(t, inner, 1)
	assert.Equal(t, "b", inner[0].Name)
	assert.Empty(t, RegionTables(scopes[1].Core))
}

func TestScopesSetOperationBranches(t *testing.T) {
	scopes := scopeIDs(t, "SELECT a FROM t UNION SELECT a FROM u")
	require.Len(t, scopes, 2)
	assert.Equal(t, "t", RegionTables(scopes[0].Core)[0].Name)
	assert.Equal(t, "u", RegionTables(scopes[1].Core)[0].Name)
}

func TestScopesSubqueryInWhere(t *testing.T) {
	scopes := scopeIDs(t, "SELECT a FROM t WHERE a IN (SELECT b FROM u)")
	require.Len(t, scopes, 2)
	assert.Equal(t, "u", RegionTables(scopes[0].Core)[0].Name)
	assert.Equal(t, "t", RegionTables(scopes[1].Core)[0].Name)
}

func TestScopesInsertSelect(t *testing.T) {
	scopes := scopeIDs(t, "INSERT INTO t SELECT a FROM u")
	require.Len(t, scopes, 1)
	assert.Equal(t, "u", RegionTables(scopes[0].Core)[0].Name)
}

func TestScopesNoneForDDL(t *testing.T) {
	assert.Empty(t, scopeIDs(t, "TRUNCATE TABLE t"))
	assert.Empty(t, scopeIDs(t, "SET x = 1"))
}

func TestScopesStableAcrossCalls(t *testing.T) {
	sql := "WITH x AS (SELECT a FROM t) SELECT * FROM x, (SELECT b FROM u) d WHERE EXISTS (SELECT 1 FROM v)"
	stmt := mustParse(t, sql)
	first := Scopes(stmt)
	second := Scopes(stmt)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Same(t, first[i].Core, second[i].Core)
	}
}

func TestRegionWalkersStopAtNestedScopes(t *testing.T) {
	sel := mustSelect(t, "SELECT a, (SELECT inner_col FROM u) FROM t WHERE b > 1")
	core := sel.Body.Left

	var cols []string
	WalkRegionExprs(core, func(e Expr) bool {
		if col, ok := e.(*ColumnRef); ok {
			cols = append(cols, col.Column)
		}
		return true
	})
	assert.Equal(t, []string{"a", "b"}, cols)
}

func TestRewriteRegionExprsReplacesColumns(t *testing.T) {
	sel := mustSelect(t, "SELECT a FROM t WHERE a > 1")
	core := sel.Body.Left
	RewriteRegionExprs(core, func(e Expr) Expr {
		if col, ok := e.(*ColumnRef); ok && col.Column == "a" {
			return Null()
		}
		return e
	})
	assert.IsType(t, &Literal{}, core.Columns[0].Expr)
	where := core.Where.(*BinaryExpr)
	assert.IsType(t, &Literal{}, where.Left)
}
