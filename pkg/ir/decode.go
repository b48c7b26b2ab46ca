package ir

import (
	"fmt"

	"github.com/unilakehq/queryguard/pkg/parser"
	"github.com/unilakehq/queryguard/pkg/token"
)

// node field accessors. The wire form came from encoding/json, so numbers
// arrive as float64 and nested nodes as map[string]any.

func str(node map[string]any, key string) string {
	if v, ok := node[key].(string); ok {
		return v
	}
	return ""
}

func boolean(node map[string]any, key string) bool {
	if v, ok := node[key].(bool); ok {
		return v
	}
	return false
}

func num(node map[string]any, key string) int {
	if v, ok := node[key].(float64); ok {
		return int(v)
	}
	return 0
}

func child(node map[string]any, key string) (map[string]any, bool) {
	v, ok := node[key].(map[string]any)
	return v, ok
}

func children(node map[string]any, key string) []map[string]any {
	list, ok := node[key].([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func strList(node map[string]any, key string) []string {
	list, ok := node[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func decodeStmt(node map[string]any) (parser.Statement, error) {
	switch str(node, "node") {
	case "select":
		return decodeSelect(node)
	case "insert":
		stmt := &parser.InsertStmt{Overwrite: boolean(node, "overwrite"), Columns: strList(node, "columns")}
		tbl, ok := child(node, "table")
		if !ok {
			return nil, fmt.Errorf("insert node missing table")
		}
		stmt.Table = decodeTableName(tbl)
		if src, ok := child(node, "source"); ok {
			sel, err := decodeSelect(src)
			if err != nil {
				return nil, err
			}
			stmt.Source = sel
		}
		if rows, ok := node["values"].([]any); ok {
			for _, row := range rows {
				rowList, ok := row.([]any)
				if !ok {
					continue
				}
				var exprs []parser.Expr
				for _, item := range rowList {
					m, ok := item.(map[string]any)
					if !ok {
						return nil, fmt.Errorf("malformed values row")
					}
					e, err := decodeExpr(m)
					if err != nil {
						return nil, err
					}
					exprs = append(exprs, e)
				}
				stmt.Values = append(stmt.Values, exprs)
			}
		}
		return stmt, nil
	case "update":
		tbl, ok := child(node, "table")
		if !ok {
			return nil, fmt.Errorf("update node missing table")
		}
		stmt := &parser.UpdateStmt{Table: decodeTableName(tbl)}
		for _, a := range children(node, "set") {
			colNode, ok := child(a, "column")
			if !ok {
				return nil, fmt.Errorf("update assignment missing column")
			}
			colExpr, err := decodeExpr(colNode)
			if err != nil {
				return nil, err
			}
			col, ok := colExpr.(*parser.ColumnRef)
			if !ok {
				return nil, fmt.Errorf("update assignment column is %T", colExpr)
			}
			valNode, ok := child(a, "value")
			if !ok {
				return nil, fmt.Errorf("update assignment missing value")
			}
			val, err := decodeExpr(valNode)
			if err != nil {
				return nil, err
			}
			stmt.Set = append(stmt.Set, parser.Assignment{Column: col, Value: val})
		}
		if fromNode, ok := child(node, "from"); ok {
			from, err := decodeFrom(fromNode)
			if err != nil {
				return nil, err
			}
			stmt.From = from
		}
		if whereNode, ok := child(node, "where"); ok {
			where, err := decodeExpr(whereNode)
			if err != nil {
				return nil, err
			}
			stmt.Where = where
		}
		return stmt, nil
	case "delete":
		tbl, ok := child(node, "table")
		if !ok {
			return nil, fmt.Errorf("delete node missing table")
		}
		stmt := &parser.DeleteStmt{Table: decodeTableName(tbl)}
		if whereNode, ok := child(node, "where"); ok {
			where, err := decodeExpr(whereNode)
			if err != nil {
				return nil, err
			}
			stmt.Where = where
		}
		return stmt, nil
	case "create":
		tbl, ok := child(node, "table")
		if !ok {
			return nil, fmt.Errorf("create node missing table")
		}
		stmt := &parser.CreateStmt{
			OrReplace:   boolean(node, "or_replace"),
			IfNotExists: boolean(node, "if_not_exists"),
			Target:      &parser.SchemaDef{Table: decodeTableName(tbl)},
		}
		for _, c := range children(node, "schema") {
			stmt.Target.Columns = append(stmt.Target.Columns, parser.ColumnDef{
				Name:     str(c, "name"),
				TypeName: str(c, "type"),
			})
		}
		if asNode, ok := child(node, "as"); ok {
			sel, err := decodeSelect(asNode)
			if err != nil {
				return nil, err
			}
			stmt.As = sel
		}
		return stmt, nil
	case "truncate":
		tbl, ok := child(node, "table")
		if !ok {
			return nil, fmt.Errorf("truncate node missing table")
		}
		return &parser.TruncateStmt{Table: decodeTableName(tbl)}, nil
	case "set":
		valNode, ok := child(node, "value")
		if !ok {
			return nil, fmt.Errorf("set node missing value")
		}
		val, err := decodeExpr(valNode)
		if err != nil {
			return nil, err
		}
		return &parser.SetStmt{Name: str(node, "name"), Value: val}, nil
	case "raw":
		stmt := &parser.RawStmt{Keyword: str(node, "keyword"), Rest: str(node, "rest")}
		if tbl, ok := child(node, "table"); ok {
			stmt.Table = decodeTableName(tbl)
		}
		return stmt, nil
	case "command":
		return &parser.CommandStmt{Head: str(node, "head"), Payload: str(node, "payload")}, nil
	}
	return nil, fmt.Errorf("unknown statement node %q", str(node, "node"))
}

func decodeSelect(node map[string]any) (*parser.SelectStmt, error) {
	sel := &parser.SelectStmt{}
	if withNode, ok := child(node, "with"); ok {
		with := &parser.WithClause{Recursive: boolean(withNode, "recursive")}
		for _, entry := range children(withNode, "ctes") {
			inner, ok := child(entry, "select")
			if !ok {
				return nil, fmt.Errorf("cte missing select")
			}
			cteSel, err := decodeSelect(inner)
			if err != nil {
				return nil, err
			}
			with.CTEs = append(with.CTEs, &parser.CTE{
				Name:    str(entry, "name"),
				Columns: strList(entry, "columns"),
				Select:  cteSel,
			})
		}
		sel.With = with
	}
	bodyNode, ok := child(node, "body")
	if !ok {
		return nil, fmt.Errorf("select node missing body")
	}
	body, err := decodeBody(bodyNode)
	if err != nil {
		return nil, err
	}
	sel.Body = body
	return sel, nil
}

func decodeBody(node map[string]any) (*parser.SelectBody, error) {
	coreNode, ok := child(node, "core")
	if !ok {
		return nil, fmt.Errorf("select body missing core")
	}
	core, err := decodeCore(coreNode)
	if err != nil {
		return nil, err
	}
	body := &parser.SelectBody{Left: core}
	if rightNode, ok := child(node, "right"); ok {
		body.Op = parser.SetOpType(str(node, "op"))
		body.All = boolean(node, "all")
		right, err := decodeBody(rightNode)
		if err != nil {
			return nil, err
		}
		body.Right = right
	}
	return body, nil
}

func decodeCore(node map[string]any) (*parser.SelectCore, error) {
	core := &parser.SelectCore{Distinct: boolean(node, "distinct")}

	for _, entry := range children(node, "columns") {
		switch {
		case boolean(entry, "star"):
			core.Columns = append(core.Columns, parser.SelectItem{Star: true})
		case str(entry, "table_star") != "":
			core.Columns = append(core.Columns, parser.SelectItem{TableStar: str(entry, "table_star")})
		default:
			exprNode, ok := child(entry, "expr")
			if !ok {
				return nil, fmt.Errorf("select item missing expr")
			}
			expr, err := decodeExpr(exprNode)
			if err != nil {
				return nil, err
			}
			core.Columns = append(core.Columns, parser.SelectItem{Expr: expr, Alias: str(entry, "alias")})
		}
	}

	if fromNode, ok := child(node, "from"); ok {
		from, err := decodeFrom(fromNode)
		if err != nil {
			return nil, err
		}
		core.From = from
	}
	if whereNode, ok := child(node, "where"); ok {
		where, err := decodeExpr(whereNode)
		if err != nil {
			return nil, err
		}
		core.Where = where
	}
	for _, g := range children(node, "group_by") {
		expr, err := decodeExpr(g)
		if err != nil {
			return nil, err
		}
		core.GroupBy = append(core.GroupBy, expr)
	}
	if havingNode, ok := child(node, "having"); ok {
		having, err := decodeExpr(havingNode)
		if err != nil {
			return nil, err
		}
		core.Having = having
	}
	for _, o := range children(node, "order_by") {
		exprNode, ok := child(o, "expr")
		if !ok {
			return nil, fmt.Errorf("order by item missing expr")
		}
		expr, err := decodeExpr(exprNode)
		if err != nil {
			return nil, err
		}
		item := parser.OrderByItem{Expr: expr, Desc: boolean(o, "desc")}
		if v, ok := o["nulls_first"].(bool); ok {
			item.NullsFirst = &v
		}
		core.OrderBy = append(core.OrderBy, item)
	}
	if limitNode, ok := child(node, "limit"); ok {
		limit, err := decodeExpr(limitNode)
		if err != nil {
			return nil, err
		}
		core.Limit = limit
	}
	if offsetNode, ok := child(node, "offset"); ok {
		offset, err := decodeExpr(offsetNode)
		if err != nil {
			return nil, err
		}
		core.Offset = offset
	}
	return core, nil
}

func decodeFrom(node map[string]any) (*parser.FromClause, error) {
	srcNode, ok := child(node, "source")
	if !ok {
		return nil, fmt.Errorf("from clause missing source")
	}
	src, err := decodeTableRef(srcNode)
	if err != nil {
		return nil, err
	}
	from := &parser.FromClause{Source: src}
	for _, j := range children(node, "joins") {
		rightNode, ok := child(j, "right")
		if !ok {
			return nil, fmt.Errorf("join missing right side")
		}
		right, err := decodeTableRef(rightNode)
		if err != nil {
			return nil, err
		}
		join := &parser.Join{Type: parser.JoinType(str(j, "type")), Right: right, Using: strList(j, "using")}
		if condNode, ok := child(j, "on"); ok {
			cond, err := decodeExpr(condNode)
			if err != nil {
				return nil, err
			}
			join.Condition = cond
		}
		from.Joins = append(from.Joins, join)
	}
	return from, nil
}

func decodeTableRef(node map[string]any) (parser.TableRef, error) {
	switch str(node, "node") {
	case "table":
		return decodeTableName(node), nil
	case "derived":
		selNode, ok := child(node, "select")
		if !ok {
			return nil, fmt.Errorf("derived table missing select")
		}
		sel, err := decodeSelect(selNode)
		if err != nil {
			return nil, err
		}
		return &parser.DerivedTable{Select: sel, Alias: str(node, "alias")}, nil
	}
	return nil, fmt.Errorf("unknown table reference node %q", str(node, "node"))
}

func decodeTableName(node map[string]any) *parser.TableName {
	return &parser.TableName{
		Catalog: str(node, "catalog"),
		Db:      str(node, "db"),
		Name:    str(node, "name"),
		Alias:   str(node, "alias"),
	}
}

func decodeExpr(node map[string]any) (parser.Expr, error) {
	switch str(node, "node") {
	case "column":
		return &parser.ColumnRef{Table: str(node, "table"), Column: str(node, "name")}, nil
	case "literal":
		return &parser.Literal{Type: parser.LiteralType(num(node, "type")), Value: str(node, "value")}, nil
	case "placeholder":
		return &parser.Placeholder{}, nil
	case "var":
		return &parser.VarExpr{Name: str(node, "name")}, nil
	case "binary":
		leftNode, ok := child(node, "left")
		if !ok {
			return nil, fmt.Errorf("binary node missing left")
		}
		left, err := decodeExpr(leftNode)
		if err != nil {
			return nil, err
		}
		rightNode, ok := child(node, "right")
		if !ok {
			return nil, fmt.Errorf("binary node missing right")
		}
		right, err := decodeExpr(rightNode)
		if err != nil {
			return nil, err
		}
		return &parser.BinaryExpr{Left: left, Op: token.Type(num(node, "op")), Right: right}, nil
	case "unary":
		exprNode, ok := child(node, "expr")
		if !ok {
			return nil, fmt.Errorf("unary node missing expr")
		}
		inner, err := decodeExpr(exprNode)
		if err != nil {
			return nil, err
		}
		return &parser.UnaryExpr{Op: token.Type(num(node, "op")), Expr: inner}, nil
	case "func":
		fc := &parser.FuncCall{
			Name:     str(node, "name"),
			Distinct: boolean(node, "distinct"),
			Star:     boolean(node, "star"),
		}
		for _, a := range children(node, "args") {
			arg, err := decodeExpr(a)
			if err != nil {
				return nil, err
			}
			fc.Args = append(fc.Args, arg)
		}
		return fc, nil
	case "case":
		ce := &parser.CaseExpr{}
		if operandNode, ok := child(node, "operand"); ok {
			operand, err := decodeExpr(operandNode)
			if err != nil {
				return nil, err
			}
			ce.Operand = operand
		}
		for _, w := range children(node, "whens") {
			condNode, ok := child(w, "when")
			if !ok {
				return nil, fmt.Errorf("case arm missing condition")
			}
			cond, err := decodeExpr(condNode)
			if err != nil {
				return nil, err
			}
			resultNode, ok := child(w, "then")
			if !ok {
				return nil, fmt.Errorf("case arm missing result")
			}
			result, err := decodeExpr(resultNode)
			if err != nil {
				return nil, err
			}
			ce.Whens = append(ce.Whens, parser.WhenClause{Condition: cond, Result: result})
		}
		if elseNode, ok := child(node, "else"); ok {
			els, err := decodeExpr(elseNode)
			if err != nil {
				return nil, err
			}
			ce.Else = els
		}
		return ce, nil
	case "cast":
		exprNode, ok := child(node, "expr")
		if !ok {
			return nil, fmt.Errorf("cast node missing expr")
		}
		inner, err := decodeExpr(exprNode)
		if err != nil {
			return nil, err
		}
		return &parser.CastExpr{Expr: inner, TypeName: str(node, "type")}, nil
	case "in":
		exprNode, ok := child(node, "expr")
		if !ok {
			return nil, fmt.Errorf("in node missing expr")
		}
		inner, err := decodeExpr(exprNode)
		if err != nil {
			return nil, err
		}
		in := &parser.InExpr{Expr: inner, Not: boolean(node, "not")}
		for _, v := range children(node, "values") {
			val, err := decodeExpr(v)
			if err != nil {
				return nil, err
			}
			in.Values = append(in.Values, val)
		}
		if queryNode, ok := child(node, "query"); ok {
			query, err := decodeSelect(queryNode)
			if err != nil {
				return nil, err
			}
			in.Query = query
		}
		return in, nil
	case "between":
		exprNode, ok := child(node, "expr")
		if !ok {
			return nil, fmt.Errorf("between node missing expr")
		}
		inner, err := decodeExpr(exprNode)
		if err != nil {
			return nil, err
		}
		lowNode, ok := child(node, "low")
		if !ok {
			return nil, fmt.Errorf("between node missing low")
		}
		low, err := decodeExpr(lowNode)
		if err != nil {
			return nil, err
		}
		highNode, ok := child(node, "high")
		if !ok {
			return nil, fmt.Errorf("between node missing high")
		}
		high, err := decodeExpr(highNode)
		if err != nil {
			return nil, err
		}
		return &parser.BetweenExpr{Expr: inner, Not: boolean(node, "not"), Low: low, High: high}, nil
	case "is_null":
		exprNode, ok := child(node, "expr")
		if !ok {
			return nil, fmt.Errorf("is_null node missing expr")
		}
		inner, err := decodeExpr(exprNode)
		if err != nil {
			return nil, err
		}
		return &parser.IsNullExpr{Expr: inner, Not: boolean(node, "not")}, nil
	case "like":
		exprNode, ok := child(node, "expr")
		if !ok {
			return nil, fmt.Errorf("like node missing expr")
		}
		inner, err := decodeExpr(exprNode)
		if err != nil {
			return nil, err
		}
		patternNode, ok := child(node, "pattern")
		if !ok {
			return nil, fmt.Errorf("like node missing pattern")
		}
		pattern, err := decodeExpr(patternNode)
		if err != nil {
			return nil, err
		}
		return &parser.LikeExpr{Expr: inner, Not: boolean(node, "not"), Pattern: pattern}, nil
	case "paren":
		exprNode, ok := child(node, "expr")
		if !ok {
			return nil, fmt.Errorf("paren node missing expr")
		}
		inner, err := decodeExpr(exprNode)
		if err != nil {
			return nil, err
		}
		return &parser.ParenExpr{Expr: inner}, nil
	case "star":
		return &parser.StarExpr{Table: str(node, "table")}, nil
	case "subquery":
		selNode, ok := child(node, "select")
		if !ok {
			return nil, fmt.Errorf("subquery node missing select")
		}
		sel, err := decodeSelect(selNode)
		if err != nil {
			return nil, err
		}
		return &parser.SubqueryExpr{Select: sel}, nil
	case "exists":
		selNode, ok := child(node, "select")
		if !ok {
			return nil, fmt.Errorf("exists node missing select")
		}
		sel, err := decodeSelect(selNode)
		if err != nil {
			return nil, err
		}
		return &parser.ExistsExpr{Not: boolean(node, "not"), Select: sel}, nil
	}
	return nil, fmt.Errorf("unknown expression node %q", str(node, "node"))
}
