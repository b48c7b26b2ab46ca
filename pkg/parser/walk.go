package parser

// WalkExpr visits expr and its children pre-order. The visit function
// returns false to stop descending below a node. Subquery boundaries are
// the caller's concern: WalkExpr itself does not enter nested selects.
func WalkExpr(expr Expr, visit func(Expr) bool) {
	if expr == nil || !visit(expr) {
		return
	}
	switch e := expr.(type) {
	case *BinaryExpr:
		WalkExpr(e.Left, visit)
		WalkExpr(e.Right, visit)
	case *UnaryExpr:
		WalkExpr(e.Expr, visit)
	case *FuncCall:
		for _, arg := range e.Args {
			WalkExpr(arg, visit)
		}
	case *CaseExpr:
		WalkExpr(e.Operand, visit)
		for _, w := range e.Whens {
			WalkExpr(w.Condition, visit)
			WalkExpr(w.Result, visit)
		}
		WalkExpr(e.Else, visit)
	case *CastExpr:
		WalkExpr(e.Expr, visit)
	case *InExpr:
		WalkExpr(e.Expr, visit)
		for _, v := range e.Values {
			WalkExpr(v, visit)
		}
	case *BetweenExpr:
		WalkExpr(e.Expr, visit)
		WalkExpr(e.Low, visit)
		WalkExpr(e.High, visit)
	case *IsNullExpr:
		WalkExpr(e.Expr, visit)
	case *LikeExpr:
		WalkExpr(e.Expr, visit)
		WalkExpr(e.Pattern, visit)
	case *ParenExpr:
		WalkExpr(e.Expr, visit)
	}
}

// WalkRegionExprs visits every expression belonging to a select core's own
// region: projections, join conditions, WHERE, GROUP BY, HAVING, ORDER BY,
// LIMIT and OFFSET. It does not cross into nested scopes (derived tables
// and subqueries).
func WalkRegionExprs(core *SelectCore, visit func(Expr) bool) {
	inRegion := func(e Expr) bool {
		switch e.(type) {
		case *SubqueryExpr, *ExistsExpr:
			return false
		}
		return visit(e)
	}
	for _, item := range core.Columns {
		WalkExpr(item.Expr, inRegion)
	}
	for _, join := range joins(core.From) {
		WalkExpr(join.Condition, inRegion)
	}
	WalkExpr(core.Where, inRegion)
	for _, g := range core.GroupBy {
		WalkExpr(g, inRegion)
	}
	WalkExpr(core.Having, inRegion)
	for _, o := range core.OrderBy {
		WalkExpr(o.Expr, inRegion)
	}
	WalkExpr(core.Limit, inRegion)
	WalkExpr(core.Offset, inRegion)
}

// RegionTables returns the table name references of a core's own FROM
// clause, in syntactic order. Derived tables contribute nothing; their
// contents belong to a nested scope.
func RegionTables(core *SelectCore) []*TableName {
	if core.From == nil {
		return nil
	}
	var tables []*TableName
	if t, ok := core.From.Source.(*TableName); ok {
		tables = append(tables, t)
	}
	for _, join := range core.From.Joins {
		if t, ok := join.Right.(*TableName); ok {
			tables = append(tables, t)
		}
	}
	return tables
}

// RewriteRegionExprs rewrites every expression in a core's own region
// bottom-up, replacing each node with fn's result. Nested scopes are left
// untouched.
func RewriteRegionExprs(core *SelectCore, fn func(Expr) Expr) {
	for i := range core.Columns {
		if core.Columns[i].Expr != nil {
			core.Columns[i].Expr = rewriteExpr(core.Columns[i].Expr, fn)
		}
	}
	for _, join := range joins(core.From) {
		if join.Condition != nil {
			join.Condition = rewriteExpr(join.Condition, fn)
		}
	}
	if core.Where != nil {
		core.Where = rewriteExpr(core.Where, fn)
	}
	for i := range core.GroupBy {
		core.GroupBy[i] = rewriteExpr(core.GroupBy[i], fn)
	}
	if core.Having != nil {
		core.Having = rewriteExpr(core.Having, fn)
	}
	for i := range core.OrderBy {
		core.OrderBy[i].Expr = rewriteExpr(core.OrderBy[i].Expr, fn)
	}
	if core.Limit != nil {
		core.Limit = rewriteExpr(core.Limit, fn)
	}
	if core.Offset != nil {
		core.Offset = rewriteExpr(core.Offset, fn)
	}
}

// RewriteExpr rewrites a single expression tree bottom-up, replacing each
// node with fn's result. Nested selects are left untouched.
func RewriteExpr(expr Expr, fn func(Expr) Expr) Expr {
	return rewriteExpr(expr, fn)
}

func rewriteExpr(expr Expr, fn func(Expr) Expr) Expr {
	if expr == nil {
		return nil
	}
	switch e := expr.(type) {
	case *BinaryExpr:
		e.Left = rewriteExpr(e.Left, fn)
		e.Right = rewriteExpr(e.Right, fn)
	case *UnaryExpr:
		e.Expr = rewriteExpr(e.Expr, fn)
	case *FuncCall:
		for i := range e.Args {
			e.Args[i] = rewriteExpr(e.Args[i], fn)
		}
	case *CaseExpr:
		if e.Operand != nil {
			e.Operand = rewriteExpr(e.Operand, fn)
		}
		for i := range e.Whens {
			e.Whens[i].Condition = rewriteExpr(e.Whens[i].Condition, fn)
			e.Whens[i].Result = rewriteExpr(e.Whens[i].Result, fn)
		}
		if e.Else != nil {
			e.Else = rewriteExpr(e.Else, fn)
		}
	case *CastExpr:
		e.Expr = rewriteExpr(e.Expr, fn)
	case *InExpr:
		e.Expr = rewriteExpr(e.Expr, fn)
		for i := range e.Values {
			e.Values[i] = rewriteExpr(e.Values[i], fn)
		}
	case *BetweenExpr:
		e.Expr = rewriteExpr(e.Expr, fn)
		e.Low = rewriteExpr(e.Low, fn)
		e.High = rewriteExpr(e.High, fn)
	case *IsNullExpr:
		e.Expr = rewriteExpr(e.Expr, fn)
	case *LikeExpr:
		e.Expr = rewriteExpr(e.Expr, fn)
		e.Pattern = rewriteExpr(e.Pattern, fn)
	case *ParenExpr:
		e.Expr = rewriteExpr(e.Expr, fn)
	case *SubqueryExpr, *ExistsExpr:
		// Nested scope boundary: contents belong to another scope.
		return expr
	}
	return fn(expr)
}

// WalkStatementExprs visits every expression anywhere in a statement,
// crossing scope boundaries. The literal scrubber and whole-statement
// extraction use this.
func WalkStatementExprs(stmt Statement, visit func(Expr) bool) {
	crossing := visitCrossing(visit)

	switch s := stmt.(type) {
	case *SelectStmt:
		walkSelectExprs(s, visit)
	case *InsertStmt:
		if s.Source != nil {
			walkSelectExprs(s.Source, visit)
		}
		for _, row := range s.Values {
			for _, v := range row {
				WalkExpr(v, crossing)
			}
		}
	case *UpdateStmt:
		for _, a := range s.Set {
			WalkExpr(a.Column, crossing)
			WalkExpr(a.Value, crossing)
		}
		if s.From != nil {
			walkFromExprs(s.From, visit)
		}
		WalkExpr(s.Where, crossing)
	case *DeleteStmt:
		WalkExpr(s.Where, crossing)
	case *CreateStmt:
		if s.As != nil {
			walkSelectExprs(s.As, visit)
		}
	case *SetStmt:
		WalkExpr(s.Value, crossing)
	}
}

func visitCrossing(visit func(Expr) bool) func(Expr) bool {
	return func(e Expr) bool {
		switch c := e.(type) {
		case *SubqueryExpr:
			walkSelectExprs(c.Select, visit)
			return false
		case *ExistsExpr:
			walkSelectExprs(c.Select, visit)
			return false
		case *InExpr:
			if !visit(e) {
				return false
			}
			if c.Query != nil {
				walkSelectExprs(c.Query, visit)
			}
			return true
		}
		return visit(e)
	}
}

func walkSelectExprs(sel *SelectStmt, visit func(Expr) bool) {
	if sel == nil {
		return
	}
	if sel.With != nil {
		for _, cte := range sel.With.CTEs {
			walkSelectExprs(cte.Select, visit)
		}
	}
	for body := sel.Body; body != nil; body = body.Right {
		core := body.Left
		if core == nil {
			continue
		}
		for _, item := range core.Columns {
			WalkExpr(item.Expr, visitCrossing(visit))
		}
		if core.From != nil {
			walkFromExprs(core.From, visit)
		}
		WalkExpr(core.Where, visitCrossing(visit))
		for _, g := range core.GroupBy {
			WalkExpr(g, visitCrossing(visit))
		}
		WalkExpr(core.Having, visitCrossing(visit))
		for _, o := range core.OrderBy {
			WalkExpr(o.Expr, visitCrossing(visit))
		}
		WalkExpr(core.Limit, visitCrossing(visit))
		WalkExpr(core.Offset, visitCrossing(visit))
	}
}

func walkFromExprs(from *FromClause, visit func(Expr) bool) {
	if dt, ok := from.Source.(*DerivedTable); ok {
		walkSelectExprs(dt.Select, visit)
	}
	for _, join := range from.Joins {
		if dt, ok := join.Right.(*DerivedTable); ok {
			walkSelectExprs(dt.Select, visit)
		}
		WalkExpr(join.Condition, visitCrossing(visit))
	}
}

// StatementTables returns every table name reference in a statement,
// including DML targets, crossing scope boundaries. Used for
// whole-statement extraction when a statement has no query scopes.
func StatementTables(stmt Statement) []*TableName {
	var tables []*TableName
	var fromTables func(from *FromClause)
	var selTables func(sel *SelectStmt)

	fromTables = func(from *FromClause) {
		if from == nil {
			return
		}
		switch s := from.Source.(type) {
		case *TableName:
			tables = append(tables, s)
		case *DerivedTable:
			selTables(s.Select)
		}
		for _, join := range from.Joins {
			switch r := join.Right.(type) {
			case *TableName:
				tables = append(tables, r)
			case *DerivedTable:
				selTables(r.Select)
			}
		}
	}
	selTables = func(sel *SelectStmt) {
		if sel == nil {
			return
		}
		if sel.With != nil {
			for _, cte := range sel.With.CTEs {
				selTables(cte.Select)
			}
		}
		for body := sel.Body; body != nil; body = body.Right {
			if body.Left != nil {
				fromTables(body.Left.From)
			}
		}
	}

	switch s := stmt.(type) {
	case *SelectStmt:
		selTables(s)
	case *InsertStmt:
		if s.Table != nil {
			tables = append(tables, s.Table)
		}
		selTables(s.Source)
	case *UpdateStmt:
		if s.Table != nil {
			tables = append(tables, s.Table)
		}
		fromTables(s.From)
	case *DeleteStmt:
		if s.Table != nil {
			tables = append(tables, s.Table)
		}
	case *CreateStmt:
		if s.Target != nil && s.Target.Table != nil {
			tables = append(tables, s.Target.Table)
		}
		selTables(s.As)
	case *TruncateStmt:
		if s.Table != nil {
			tables = append(tables, s.Table)
		}
	case *RawStmt:
		if s.Table != nil {
			tables = append(tables, s.Table)
		}
	}
	return tables
}
