// Package ir serializes parsed statements to a tagged-tree JSON form and
// restores them exactly. The scanner embeds the serialized form in its
// output; the transpiler re-inflates it, so the round-trip law
// parse -> Marshal -> Unmarshal -> generate must hold for every node kind.
package ir

import (
	"encoding/json"
	"fmt"

	"github.com/unilakehq/queryguard/pkg/parser"
)

// Marshal serializes a statement to its tagged-tree JSON form.
func Marshal(stmt parser.Statement) ([]byte, error) {
	node, err := encodeStmt(stmt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(node)
}

// Unmarshal restores a statement from its tagged-tree JSON form.
func Unmarshal(data []byte) (parser.Statement, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding query ir: %w", err)
	}
	return decodeStmt(raw)
}

// ---------- encoding ----------

func encodeStmt(stmt parser.Statement) (map[string]any, error) {
	switch s := stmt.(type) {
	case *parser.SelectStmt:
		return encodeSelect(s)
	case *parser.InsertStmt:
		node := map[string]any{
			"node":      "insert",
			"table":     encodeTableName(s.Table),
			"overwrite": s.Overwrite,
		}
		if len(s.Columns) > 0 {
			node["columns"] = s.Columns
		}
		if s.Source != nil {
			src, err := encodeSelect(s.Source)
			if err != nil {
				return nil, err
			}
			node["source"] = src
		}
		if len(s.Values) > 0 {
			var rows []any
			for _, row := range s.Values {
				encoded, err := encodeExprList(row)
				if err != nil {
					return nil, err
				}
				rows = append(rows, encoded)
			}
			node["values"] = rows
		}
		return node, nil
	case *parser.UpdateStmt:
		node := map[string]any{
			"node":  "update",
			"table": encodeTableName(s.Table),
		}
		var assigns []any
		for _, a := range s.Set {
			col, err := encodeExpr(a.Column)
			if err != nil {
				return nil, err
			}
			val, err := encodeExpr(a.Value)
			if err != nil {
				return nil, err
			}
			assigns = append(assigns, map[string]any{"column": col, "value": val})
		}
		node["set"] = assigns
		if s.From != nil {
			from, err := encodeFrom(s.From)
			if err != nil {
				return nil, err
			}
			node["from"] = from
		}
		if s.Where != nil {
			where, err := encodeExpr(s.Where)
			if err != nil {
				return nil, err
			}
			node["where"] = where
		}
		return node, nil
	case *parser.DeleteStmt:
		node := map[string]any{
			"node":  "delete",
			"table": encodeTableName(s.Table),
		}
		if s.Where != nil {
			where, err := encodeExpr(s.Where)
			if err != nil {
				return nil, err
			}
			node["where"] = where
		}
		return node, nil
	case *parser.CreateStmt:
		node := map[string]any{
			"node":          "create",
			"or_replace":    s.OrReplace,
			"if_not_exists": s.IfNotExists,
			"table":         encodeTableName(s.Target.Table),
		}
		if len(s.Target.Columns) > 0 {
			var cols []any
			for _, c := range s.Target.Columns {
				cols = append(cols, map[string]any{"name": c.Name, "type": c.TypeName})
			}
			node["schema"] = cols
		}
		if s.As != nil {
			as, err := encodeSelect(s.As)
			if err != nil {
				return nil, err
			}
			node["as"] = as
		}
		return node, nil
	case *parser.TruncateStmt:
		return map[string]any{"node": "truncate", "table": encodeTableName(s.Table)}, nil
	case *parser.SetStmt:
		val, err := encodeExpr(s.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any{"node": "set", "name": s.Name, "value": val}, nil
	case *parser.RawStmt:
		node := map[string]any{"node": "raw", "keyword": s.Keyword, "rest": s.Rest}
		if s.Table != nil {
			node["table"] = encodeTableName(s.Table)
		}
		return node, nil
	case *parser.CommandStmt:
		return map[string]any{"node": "command", "head": s.Head, "payload": s.Payload}, nil
	}
	return nil, fmt.Errorf("cannot encode statement %T", stmt)
}

func encodeSelect(sel *parser.SelectStmt) (map[string]any, error) {
	node := map[string]any{"node": "select"}
	if sel.With != nil {
		with := map[string]any{"recursive": sel.With.Recursive}
		var ctes []any
		for _, cte := range sel.With.CTEs {
			inner, err := encodeSelect(cte.Select)
			if err != nil {
				return nil, err
			}
			entry := map[string]any{"name": cte.Name, "select": inner}
			if len(cte.Columns) > 0 {
				entry["columns"] = cte.Columns
			}
			ctes = append(ctes, entry)
		}
		with["ctes"] = ctes
		node["with"] = with
	}
	body, err := encodeBody(sel.Body)
	if err != nil {
		return nil, err
	}
	node["body"] = body
	return node, nil
}

func encodeBody(body *parser.SelectBody) (map[string]any, error) {
	core, err := encodeCore(body.Left)
	if err != nil {
		return nil, err
	}
	node := map[string]any{"core": core}
	if body.Right != nil {
		node["op"] = string(body.Op)
		node["all"] = body.All
		right, err := encodeBody(body.Right)
		if err != nil {
			return nil, err
		}
		node["right"] = right
	}
	return node, nil
}

func encodeCore(core *parser.SelectCore) (map[string]any, error) {
	node := map[string]any{"distinct": core.Distinct}

	var items []any
	for _, item := range core.Columns {
		entry := map[string]any{}
		switch {
		case item.Star:
			entry["star"] = true
		case item.TableStar != "":
			entry["table_star"] = item.TableStar
		default:
			expr, err := encodeExpr(item.Expr)
			if err != nil {
				return nil, err
			}
			entry["expr"] = expr
			if item.Alias != "" {
				entry["alias"] = item.Alias
			}
		}
		items = append(items, entry)
	}
	node["columns"] = items

	if core.From != nil {
		from, err := encodeFrom(core.From)
		if err != nil {
			return nil, err
		}
		node["from"] = from
	}
	if core.Where != nil {
		where, err := encodeExpr(core.Where)
		if err != nil {
			return nil, err
		}
		node["where"] = where
	}
	if len(core.GroupBy) > 0 {
		group, err := encodeExprList(core.GroupBy)
		if err != nil {
			return nil, err
		}
		node["group_by"] = group
	}
	if core.Having != nil {
		having, err := encodeExpr(core.Having)
		if err != nil {
			return nil, err
		}
		node["having"] = having
	}
	if len(core.OrderBy) > 0 {
		var items []any
		for _, o := range core.OrderBy {
			expr, err := encodeExpr(o.Expr)
			if err != nil {
				return nil, err
			}
			entry := map[string]any{"expr": expr, "desc": o.Desc}
			if o.NullsFirst != nil {
				entry["nulls_first"] = *o.NullsFirst
			}
			items = append(items, entry)
		}
		node["order_by"] = items
	}
	if core.Limit != nil {
		limit, err := encodeExpr(core.Limit)
		if err != nil {
			return nil, err
		}
		node["limit"] = limit
	}
	if core.Offset != nil {
		offset, err := encodeExpr(core.Offset)
		if err != nil {
			return nil, err
		}
		node["offset"] = offset
	}
	return node, nil
}

func encodeFrom(from *parser.FromClause) (map[string]any, error) {
	src, err := encodeTableRef(from.Source)
	if err != nil {
		return nil, err
	}
	node := map[string]any{"source": src}
	if len(from.Joins) > 0 {
		var joins []any
		for _, join := range from.Joins {
			right, err := encodeTableRef(join.Right)
			if err != nil {
				return nil, err
			}
			entry := map[string]any{"type": string(join.Type), "right": right}
			if join.Condition != nil {
				cond, err := encodeExpr(join.Condition)
				if err != nil {
					return nil, err
				}
				entry["on"] = cond
			}
			if len(join.Using) > 0 {
				entry["using"] = join.Using
			}
			joins = append(joins, entry)
		}
		node["joins"] = joins
	}
	return node, nil
}

func encodeTableRef(ref parser.TableRef) (map[string]any, error) {
	switch t := ref.(type) {
	case *parser.TableName:
		return encodeTableName(t), nil
	case *parser.DerivedTable:
		sel, err := encodeSelect(t.Select)
		if err != nil {
			return nil, err
		}
		return map[string]any{"node": "derived", "select": sel, "alias": t.Alias}, nil
	}
	return nil, fmt.Errorf("cannot encode table reference %T", ref)
}

func encodeTableName(t *parser.TableName) map[string]any {
	return map[string]any{
		"node":    "table",
		"catalog": t.Catalog,
		"db":      t.Db,
		"name":    t.Name,
		"alias":   t.Alias,
	}
}

func encodeExprList(exprs []parser.Expr) ([]any, error) {
	var out []any
	for _, e := range exprs {
		encoded, err := encodeExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded)
	}
	return out, nil
}

func encodeExpr(expr parser.Expr) (map[string]any, error) {
	switch e := expr.(type) {
	case *parser.ColumnRef:
		return map[string]any{"node": "column", "table": e.Table, "name": e.Column}, nil
	case *parser.Literal:
		return map[string]any{"node": "literal", "type": int(e.Type), "value": e.Value}, nil
	case *parser.Placeholder:
		return map[string]any{"node": "placeholder"}, nil
	case *parser.VarExpr:
		return map[string]any{"node": "var", "name": e.Name}, nil
	case *parser.BinaryExpr:
		left, err := encodeExpr(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := encodeExpr(e.Right)
		if err != nil {
			return nil, err
		}
		return map[string]any{"node": "binary", "op": int(e.Op), "left": left, "right": right}, nil
	case *parser.UnaryExpr:
		inner, err := encodeExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		return map[string]any{"node": "unary", "op": int(e.Op), "expr": inner}, nil
	case *parser.FuncCall:
		node := map[string]any{"node": "func", "name": e.Name, "distinct": e.Distinct, "star": e.Star}
		if len(e.Args) > 0 {
			args, err := encodeExprList(e.Args)
			if err != nil {
				return nil, err
			}
			node["args"] = args
		}
		return node, nil
	case *parser.CaseExpr:
		node := map[string]any{"node": "case"}
		if e.Operand != nil {
			operand, err := encodeExpr(e.Operand)
			if err != nil {
				return nil, err
			}
			node["operand"] = operand
		}
		var whens []any
		for _, w := range e.Whens {
			cond, err := encodeExpr(w.Condition)
			if err != nil {
				return nil, err
			}
			result, err := encodeExpr(w.Result)
			if err != nil {
				return nil, err
			}
			whens = append(whens, map[string]any{"when": cond, "then": result})
		}
		node["whens"] = whens
		if e.Else != nil {
			els, err := encodeExpr(e.Else)
			if err != nil {
				return nil, err
			}
			node["else"] = els
		}
		return node, nil
	case *parser.CastExpr:
		inner, err := encodeExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		return map[string]any{"node": "cast", "expr": inner, "type": e.TypeName}, nil
	case *parser.InExpr:
		inner, err := encodeExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		node := map[string]any{"node": "in", "expr": inner, "not": e.Not}
		if len(e.Values) > 0 {
			values, err := encodeExprList(e.Values)
			if err != nil {
				return nil, err
			}
			node["values"] = values
		}
		if e.Query != nil {
			query, err := encodeSelect(e.Query)
			if err != nil {
				return nil, err
			}
			node["query"] = query
		}
		return node, nil
	case *parser.BetweenExpr:
		inner, err := encodeExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		low, err := encodeExpr(e.Low)
		if err != nil {
			return nil, err
		}
		high, err := encodeExpr(e.High)
		if err != nil {
			return nil, err
		}
		return map[string]any{"node": "between", "expr": inner, "not": e.Not, "low": low, "high": high}, nil
	case *parser.IsNullExpr:
		inner, err := encodeExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		return map[string]any{"node": "is_null", "expr": inner, "not": e.Not}, nil
	case *parser.LikeExpr:
		inner, err := encodeExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		pattern, err := encodeExpr(e.Pattern)
		if err != nil {
			return nil, err
		}
		return map[string]any{"node": "like", "expr": inner, "not": e.Not, "pattern": pattern}, nil
	case *parser.ParenExpr:
		inner, err := encodeExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		return map[string]any{"node": "paren", "expr": inner}, nil
	case *parser.StarExpr:
		return map[string]any{"node": "star", "table": e.Table}, nil
	case *parser.SubqueryExpr:
		sel, err := encodeSelect(e.Select)
		if err != nil {
			return nil, err
		}
		return map[string]any{"node": "subquery", "select": sel}, nil
	case *parser.ExistsExpr:
		sel, err := encodeSelect(e.Select)
		if err != nil {
			return nil, err
		}
		return map[string]any{"node": "exists", "not": e.Not, "select": sel}, nil
	}
	return nil, fmt.Errorf("cannot encode expression %T", expr)
}
