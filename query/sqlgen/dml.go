package sqlgen

import (
	"github.com/dbkit-go/dbkit/query/statement"
)

func (w *writer) selectStmt(s *statement.Select) error {
	if len(s.From) == 0 {
		return w.fail(ErrNoTable, "SELECT requires a FROM section")
	}

	w.WriteString("SELECT ")
	if s.Distinct {
		w.WriteString("DISTINCT ")
	}
	if len(s.Columns) == 0 {
		w.WriteString("*")
	}
	for i, col := range s.Columns {
		if i > 0 {
			w.WriteString(", ")
		}
		if err := w.selectable(col); err != nil {
			return err
		}
	}

	w.WriteString(" FROM ")
	for i, t := range s.From {
		if i > 0 {
			w.WriteString(", ")
		}
		if err := w.table(t); err != nil {
			return err
		}
	}

	for _, j := range s.Joins {
		if err := w.join(j); err != nil {
			return err
		}
	}

	if hasPredicates(s.Where) {
		w.WriteString(" WHERE ")
		if err := w.predicates(s.Where); err != nil {
			return err
		}
	}

	if len(s.GroupBy) > 0 {
		w.WriteString(" GROUP BY ")
		for i, g := range s.GroupBy {
			if i > 0 {
				w.WriteString(", ")
			}
			if err := w.value(g); err != nil {
				return err
			}
		}
	}

	if hasPredicates(s.Having) {
		w.WriteString(" HAVING ")
		if err := w.predicates(s.Having); err != nil {
			return err
		}
	}

	if err := w.orderBy(s.OrderBy); err != nil {
		return err
	}
	w.d.writeLimit(w, s.Limit, s.Offset)
	return nil
}

func (w *writer) selectable(col statement.Selectable) error {
	if err := w.value(col.Expr); err != nil {
		return err
	}
	if col.Alias == "" {
		return nil
	}
	if c, ok := col.Expr.(statement.Column); ok && string(c) == col.Alias {
		return nil
	}
	w.WriteString(" AS ")
	w.ident(col.Alias)
	return nil
}

func (w *writer) table(t statement.TableRef) error {
	switch {
	case t.Sub != nil:
		if err := w.subSelect(t.Sub); err != nil {
			return err
		}
	case t.Table != "":
		w.ident(t.Table)
	default:
		return w.fail(ErrNoTable, "empty table reference")
	}
	if t.Alias != "" && t.Alias != t.Table {
		w.WriteString(" AS ")
		w.ident(t.Alias)
	}
	return nil
}

func (w *writer) join(j statement.Join) error {
	typ := j.Type
	if typ == "" {
		typ = statement.InnerJoin
	}
	w.WriteString(" " + string(typ) + " ")
	if err := w.table(j.Table); err != nil {
		return err
	}
	if typ != statement.CrossJoin && hasPredicates(j.On) {
		w.WriteString(" ON ")
		return w.predicates(j.On)
	}
	return nil
}

func (w *writer) orderBy(orders []statement.Order) error {
	if len(orders) == 0 {
		return nil
	}
	w.WriteString(" ORDER BY ")
	for i, o := range orders {
		if i > 0 {
			w.WriteString(", ")
		}
		if err := w.value(o.Expr); err != nil {
			return err
		}
		if o.Direction != statement.NoDirection {
			w.WriteString(" " + string(o.Direction))
		}
	}
	return nil
}

func (w *writer) insertStmt(s *statement.Insert) error {
	if s.Into == "" {
		return w.fail(ErrNoTable, "INSERT requires an INTO section")
	}
	if s.Select == nil && len(s.Values) == 0 {
		return w.fail(ErrNoValues, "INSERT into %q has no values", s.Into)
	}
	n := len(s.Columns)
	if s.Select == nil && n > 0 && len(s.Values)%n != 0 {
		return w.fail(ErrValueCount, "%d values for %d columns", len(s.Values), n)
	}

	w.WriteString(w.d.insertKeyword(s.Ignore) + " ")
	w.ident(s.Into)
	if n > 0 {
		w.WriteString(" (")
		w.idents(s.Columns)
		w.WriteString(")")
	}

	if s.Select != nil {
		w.WriteString(" ")
		return w.selectStmt(s.Select)
	}

	if n == 0 {
		n = len(s.Values)
	}
	w.WriteString(" VALUES ")
	for i, v := range s.Values {
		switch {
		case i == 0:
			w.WriteString("(")
		case i%n == 0:
			w.WriteString("),(")
		default:
			w.WriteString(",")
		}
		if err := w.value(v); err != nil {
			return err
		}
	}
	w.WriteString(")")
	return nil
}

func (w *writer) updateStmt(s *statement.Update) error {
	if s.Table.Table == "" {
		return w.fail(ErrNoTable, "UPDATE requires a table")
	}
	if len(s.Set) == 0 {
		return w.fail(ErrNoValues, "UPDATE of %q has no SET values", s.Table.Table)
	}
	if err := w.checkOrderedMutation(s.OrderBy, s.Limit); err != nil {
		return err
	}

	w.WriteString("UPDATE ")
	if err := w.table(s.Table); err != nil {
		return err
	}
	w.WriteString(" SET ")
	for i, a := range s.Set {
		if i > 0 {
			w.WriteString(", ")
		}
		w.ident(a.Column)
		w.WriteString("=")
		if err := w.value(a.Value); err != nil {
			return err
		}
	}
	if hasPredicates(s.Where) {
		w.WriteString(" WHERE ")
		if err := w.predicates(s.Where); err != nil {
			return err
		}
	}
	if err := w.orderBy(s.OrderBy); err != nil {
		return err
	}
	w.d.writeLimit(w, s.Limit, nil)
	return nil
}

func (w *writer) deleteStmt(s *statement.Delete) error {
	if s.From.Table == "" {
		return w.fail(ErrNoTable, "DELETE requires a FROM section")
	}
	if err := w.checkOrderedMutation(s.OrderBy, s.Limit); err != nil {
		return err
	}

	w.WriteString("DELETE FROM ")
	w.ident(s.From.Table)
	if hasPredicates(s.Where) {
		w.WriteString(" WHERE ")
		if err := w.predicates(s.Where); err != nil {
			return err
		}
	}
	if err := w.orderBy(s.OrderBy); err != nil {
		return err
	}
	w.d.writeLimit(w, s.Limit, nil)
	return nil
}

func (w *writer) checkOrderedMutation(orders []statement.Order, limit *int64) error {
	if w.d.orderedMutations() {
		return nil
	}
	if len(orders) > 0 || limit != nil {
		return w.fail(ErrUnsupported, "ORDER BY and LIMIT are not allowed in %s", w.kind)
	}
	return nil
}
