package queryguard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/unilakehq/queryguard/pkg/dialect"
	"github.com/unilakehq/queryguard/pkg/ir"
	"github.com/unilakehq/queryguard/pkg/parser"
	"github.com/unilakehq/queryguard/pkg/qualify"
)

// innerScan parses, qualifies and extracts. The Scan wrapper handles
// panics and owns the never-raise contract.
func innerScan(sql, dialectName, catalog, database string) *ScanOutput {
	if sql == "" {
		return &ScanOutput{
			Objects: []ScanOutputObject{},
			Dialect: dialectName,
			Type:    KindUnknown,
		}
	}

	d, ok := dialect.Get(dialectName)
	if !ok {
		return scanError(&ParserError{
			ErrorType: ErrorTypeParse,
			Message:   fmt.Sprintf("unknown dialect %q", dialectName),
			Errors:    []ErrorMessage{},
		})
	}

	stmt, err := parser.ParseStatement(sql, d)
	if err != nil {
		return scanError(wireError(err, sql))
	}
	if err := qualify.Qualify(stmt, qualify.Options{Catalog: catalog, Database: database}); err != nil {
		return scanError(wireError(err, sql))
	}

	out := &ScanOutput{
		Dialect:      dialectName,
		Type:         classify(stmt),
		TargetEntity: targetEntity(stmt),
	}

	scopes := parser.Scopes(stmt)
	if len(scopes) > 0 {
		for _, scope := range scopes {
			out.Objects = append(out.Objects, extractScope(scope))
		}
	} else {
		// Statements without a query expression get a single synthetic
		// scope over the whole tree.
		out.Objects = append(out.Objects, extractStatement(stmt))
	}

	encoded, err := ir.Marshal(stmt)
	if err != nil {
		return scanError(internalError(err))
	}
	query := string(encoded)
	out.Query = &query
	return out
}

// extractScope collects the entity and attribute sets of one scope,
// limited to the scope's own region.
func extractScope(scope *parser.QueryScope) ScanOutputObject {
	obj := ScanOutputObject{
		Scope: scope.ID,
		IsAgg: len(scope.Core.GroupBy) > 0,
	}

	entities := make(map[ScanEntity]struct{})
	for _, t := range parser.RegionTables(scope.Core) {
		entities[ScanEntity{Catalog: t.Catalog, Db: t.Db, Name: t.Name, Alias: t.Alias}] = struct{}{}
	}

	attributes := make(map[ScanAttribute]struct{})
	parser.WalkRegionExprs(scope.Core, func(e parser.Expr) bool {
		if col, ok := e.(*parser.ColumnRef); ok && col.Column != "*" {
			attributes[ScanAttribute{EntityAlias: col.Table, Name: col.Column}] = struct{}{}
		}
		return true
	})
	for _, item := range scope.Core.Columns {
		switch {
		case item.Star:
			if alias := fromAlias(scope.Core.From); alias != "" {
				attributes[ScanAttribute{EntityAlias: alias, Name: "*"}] = struct{}{}
			}
		case item.TableStar != "":
			attributes[ScanAttribute{EntityAlias: item.TableStar, Name: "*"}] = struct{}{}
		}
	}

	obj.Entities = sortedEntities(entities)
	obj.Attributes = sortedAttributes(attributes)
	return obj
}

// extractStatement collects over the whole statement, for statements with
// no query scopes.
func extractStatement(stmt parser.Statement) ScanOutputObject {
	obj := ScanOutputObject{Scope: 0}

	entities := make(map[ScanEntity]struct{})
	for _, t := range parser.StatementTables(stmt) {
		entities[ScanEntity{Catalog: t.Catalog, Db: t.Db, Name: t.Name, Alias: t.Alias}] = struct{}{}
	}

	attributes := make(map[ScanAttribute]struct{})
	parser.WalkStatementExprs(stmt, func(e parser.Expr) bool {
		if col, ok := e.(*parser.ColumnRef); ok && col.Column != "*" {
			attributes[ScanAttribute{EntityAlias: col.Table, Name: col.Column}] = struct{}{}
		}
		return true
	})

	obj.Entities = sortedEntities(entities)
	obj.Attributes = sortedAttributes(attributes)
	return obj
}

// fromAlias returns the effective alias of a FROM clause's first source.
func fromAlias(from *parser.FromClause) string {
	if from == nil {
		return ""
	}
	switch s := from.Source.(type) {
	case *parser.TableName:
		return s.EffectiveAlias()
	case *parser.DerivedTable:
		return s.Alias
	}
	return ""
}

func sortedEntities(set map[ScanEntity]struct{}) []ScanEntity {
	out := make([]ScanEntity, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Catalog != b.Catalog {
			return a.Catalog < b.Catalog
		}
		if a.Db != b.Db {
			return a.Db < b.Db
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Alias < b.Alias
	})
	return out
}

func sortedAttributes(set map[ScanAttribute]struct{}) []ScanAttribute {
	out := make([]ScanAttribute, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityAlias != out[j].EntityAlias {
			return out[i].EntityAlias < out[j].EntityAlias
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// targetEntity returns the quoted qualified name of the written or altered
// object, or nil for read-only statements.
func targetEntity(stmt parser.Statement) *string {
	var table *parser.TableName
	switch s := stmt.(type) {
	case *parser.CreateStmt:
		if s.Target != nil {
			table = s.Target.Table
		}
	case *parser.InsertStmt:
		table = s.Table
	case *parser.UpdateStmt:
		table = s.Table
	case *parser.TruncateStmt:
		table = s.Table
	case *parser.DeleteStmt:
		table = s.Table
	case *parser.RawStmt:
		table = s.Table
	}
	if table == nil {
		return nil
	}
	name := quotedTableName(table)
	return &name
}

// quotedTableName renders the ANSI-quoted qualified form, the same spelling
// rule/filter attributes use.
func quotedTableName(t *parser.TableName) string {
	var parts []string
	if t.Catalog != "" {
		parts = append(parts, quoteANSI(t.Catalog))
	}
	if t.Db != "" {
		parts = append(parts, quoteANSI(t.Db))
	}
	parts = append(parts, quoteANSI(t.Name))
	return strings.Join(parts, ".")
}

func quoteANSI(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
