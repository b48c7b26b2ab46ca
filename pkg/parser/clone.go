package parser

// CloneExpr returns a deep copy of an expression. Rewrites mutate nodes in
// place, so any expression that ends up in two tree positions must be
// cloned first.
func CloneExpr(expr Expr) Expr {
	if expr == nil {
		return nil
	}
	switch e := expr.(type) {
	case *ColumnRef:
		c := *e
		return &c
	case *Literal:
		c := *e
		return &c
	case *Placeholder:
		return &Placeholder{}
	case *VarExpr:
		c := *e
		return &c
	case *BinaryExpr:
		return &BinaryExpr{Left: CloneExpr(e.Left), Op: e.Op, Right: CloneExpr(e.Right)}
	case *UnaryExpr:
		return &UnaryExpr{Op: e.Op, Expr: CloneExpr(e.Expr)}
	case *FuncCall:
		c := &FuncCall{Name: e.Name, Distinct: e.Distinct, Star: e.Star}
		for _, arg := range e.Args {
			c.Args = append(c.Args, CloneExpr(arg))
		}
		return c
	case *CaseExpr:
		c := &CaseExpr{Operand: CloneExpr(e.Operand), Else: CloneExpr(e.Else)}
		for _, w := range e.Whens {
			c.Whens = append(c.Whens, WhenClause{Condition: CloneExpr(w.Condition), Result: CloneExpr(w.Result)})
		}
		return c
	case *CastExpr:
		return &CastExpr{Expr: CloneExpr(e.Expr), TypeName: e.TypeName}
	case *InExpr:
		c := &InExpr{Expr: CloneExpr(e.Expr), Not: e.Not, Query: CloneSelect(e.Query)}
		for _, v := range e.Values {
			c.Values = append(c.Values, CloneExpr(v))
		}
		return c
	case *BetweenExpr:
		return &BetweenExpr{Expr: CloneExpr(e.Expr), Not: e.Not, Low: CloneExpr(e.Low), High: CloneExpr(e.High)}
	case *IsNullExpr:
		return &IsNullExpr{Expr: CloneExpr(e.Expr), Not: e.Not}
	case *LikeExpr:
		return &LikeExpr{Expr: CloneExpr(e.Expr), Not: e.Not, Pattern: CloneExpr(e.Pattern)}
	case *ParenExpr:
		return &ParenExpr{Expr: CloneExpr(e.Expr)}
	case *StarExpr:
		c := *e
		return &c
	case *SubqueryExpr:
		return &SubqueryExpr{Select: CloneSelect(e.Select)}
	case *ExistsExpr:
		return &ExistsExpr{Not: e.Not, Select: CloneSelect(e.Select)}
	}
	return expr
}

// CloneSelect returns a deep copy of a select statement.
func CloneSelect(sel *SelectStmt) *SelectStmt {
	if sel == nil {
		return nil
	}
	c := &SelectStmt{}
	if sel.With != nil {
		w := &WithClause{Recursive: sel.With.Recursive}
		for _, cte := range sel.With.CTEs {
			w.CTEs = append(w.CTEs, &CTE{
				Name:    cte.Name,
				Columns: append([]string(nil), cte.Columns...),
				Select:  CloneSelect(cte.Select),
			})
		}
		c.With = w
	}
	c.Body = cloneBody(sel.Body)
	return c
}

func cloneBody(body *SelectBody) *SelectBody {
	if body == nil {
		return nil
	}
	return &SelectBody{
		Left:  cloneCore(body.Left),
		Op:    body.Op,
		All:   body.All,
		Right: cloneBody(body.Right),
	}
}

func cloneCore(core *SelectCore) *SelectCore {
	if core == nil {
		return nil
	}
	c := &SelectCore{
		Distinct: core.Distinct,
		Where:    CloneExpr(core.Where),
		Having:   CloneExpr(core.Having),
		Limit:    CloneExpr(core.Limit),
		Offset:   CloneExpr(core.Offset),
	}
	for _, item := range core.Columns {
		c.Columns = append(c.Columns, SelectItem{
			Star:      item.Star,
			TableStar: item.TableStar,
			Expr:      CloneExpr(item.Expr),
			Alias:     item.Alias,
		})
	}
	if core.From != nil {
		c.From = &FromClause{Source: cloneTableRef(core.From.Source)}
		for _, join := range core.From.Joins {
			c.From.Joins = append(c.From.Joins, &Join{
				Type:      join.Type,
				Right:     cloneTableRef(join.Right),
				Condition: CloneExpr(join.Condition),
				Using:     append([]string(nil), join.Using...),
			})
		}
	}
	for _, gb := range core.GroupBy {
		c.GroupBy = append(c.GroupBy, CloneExpr(gb))
	}
	for _, ob := range core.OrderBy {
		item := OrderByItem{Expr: CloneExpr(ob.Expr), Desc: ob.Desc}
		if ob.NullsFirst != nil {
			v := *ob.NullsFirst
			item.NullsFirst = &v
		}
		c.OrderBy = append(c.OrderBy, item)
	}
	return c
}

func cloneTableRef(ref TableRef) TableRef {
	switch t := ref.(type) {
	case *TableName:
		c := *t
		return &c
	case *DerivedTable:
		return &DerivedTable{Select: CloneSelect(t.Select), Alias: t.Alias}
	}
	return ref
}
