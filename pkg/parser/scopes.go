package parser

// QueryScope is one lexical query scope: a single select core plus its
// stable id. Scope ids are dense, start at 0, and depend only on the shape
// of the AST, so masking rules and row filters can be keyed by them across
// separate scan and transpile calls.
type QueryScope struct {
	ID   int
	Core *SelectCore
}

// Scopes enumerates the lexical scopes of a statement in the contract
// order: CTE scopes in declaration order (recursing into each body),
// derived-table and subquery scopes before the core that contains them,
// set-operation branches left before right, the outermost core last.
// Statements without a query expression yield an empty list.
func Scopes(stmt Statement) []*QueryScope {
	e := &scopeEnum{}
	e.visitStatement(stmt)
	return e.scopes
}

type scopeEnum struct {
	scopes []*QueryScope
}

func (e *scopeEnum) add(core *SelectCore) {
	e.scopes = append(e.scopes, &QueryScope{ID: len(e.scopes), Core: core})
}

func (e *scopeEnum) visitStatement(stmt Statement) {
	switch s := stmt.(type) {
	case *SelectStmt:
		e.visitSelect(s)
	case *InsertStmt:
		if s.Source != nil {
			e.visitSelect(s.Source)
		}
	case *UpdateStmt:
		if s.From != nil {
			e.visitFromNested(s.From)
		}
		e.visitExpr(s.Where)
	case *DeleteStmt:
		e.visitExpr(s.Where)
	case *CreateStmt:
		if s.As != nil {
			e.visitSelect(s.As)
		}
	}
}

func (e *scopeEnum) visitSelect(sel *SelectStmt) {
	if sel == nil {
		return
	}
	if sel.With != nil {
		for _, cte := range sel.With.CTEs {
			e.visitSelect(cte.Select)
		}
	}
	e.visitBody(sel.Body)
}

func (e *scopeEnum) visitBody(body *SelectBody) {
	if body == nil {
		return
	}
	e.visitCore(body.Left)
	if body.Right != nil {
		e.visitBody(body.Right)
	}
}

func (e *scopeEnum) visitCore(core *SelectCore) {
	if core == nil {
		return
	}
	if core.From != nil {
		e.visitFromNested(core.From)
	}
	for _, item := range core.Columns {
		e.visitExpr(item.Expr)
	}
	for _, join := range joins(core.From) {
		e.visitExpr(join.Condition)
	}
	e.visitExpr(core.Where)
	for _, g := range core.GroupBy {
		e.visitExpr(g)
	}
	e.visitExpr(core.Having)
	for _, o := range core.OrderBy {
		e.visitExpr(o.Expr)
	}
	e.add(core)
}

// visitFromNested yields scopes of derived tables in FROM order.
func (e *scopeEnum) visitFromNested(from *FromClause) {
	if dt, ok := from.Source.(*DerivedTable); ok {
		e.visitSelect(dt.Select)
	}
	for _, join := range from.Joins {
		if dt, ok := join.Right.(*DerivedTable); ok {
			e.visitSelect(dt.Select)
		}
	}
}

// visitExpr yields scopes of subqueries nested in an expression.
func (e *scopeEnum) visitExpr(expr Expr) {
	WalkExpr(expr, func(child Expr) bool {
		switch c := child.(type) {
		case *SubqueryExpr:
			e.visitSelect(c.Select)
			return false
		case *ExistsExpr:
			e.visitSelect(c.Select)
			return false
		case *InExpr:
			e.visitExpr(c.Expr)
			for _, v := range c.Values {
				e.visitExpr(v)
			}
			if c.Query != nil {
				e.visitSelect(c.Query)
			}
			return false
		}
		return true
	})
}

func joins(from *FromClause) []*Join {
	if from == nil {
		return nil
	}
	return from.Joins
}
