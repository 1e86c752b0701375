package vscroll

import "github.com/marcus/vscroll/internal/selection"

// cursorOperator returns the comparison operator for a slide direction:
// Backward -> <= (sweep backward in display order from the cursor),
// Forward -> >= (sweep forward, oldest-first, per §4.2/§4.3).
func cursorOperator(dir LoadDirection) string {
	if dir == Forward {
		return selection.OpGte
	}
	return selection.OpLte
}

// buildCursorPredicate combines the base predicate with an inequality on
// the first display-order field, bounded by the cursor item's value for
// that field (spec.md §4.2). If the cursor item's field value is missing,
// the base predicate is returned unchanged — defensive; should not
// normally occur (§7 class 6).
//
// Only the first display-order key is constrained: with a multi-key ORDER BY,
// items that tie on the first key are not separated by the later keys.
func buildCursorPredicate(base selection.Node, field string, dir LoadDirection, cursorItem Item) selection.Node {
	val, ok := cursorItem.FieldValue(field)
	if !ok {
		return base
	}
	cmp := &selection.Comparison{
		Field:    field,
		Operator: cursorOperator(dir),
		Value:    selection.LiteralFromValue(val),
	}
	return selection.And(base, cmp)
}
