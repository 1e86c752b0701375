package vscroll

import "github.com/marcus/vscroll/internal/selection"

// slidePlan is the result of planning a slide: the new Selection to
// dispatch and the PendingSlide to record before doing so (spec.md §4.3).
type slidePlan struct {
	selection        *selection.Selection
	pending          pendingSlide
	intersectionItem Item
}

// planSlide computes cursor index, intersection anchor, query limit, and
// ORDER BY inversion for a slide in the given direction, given the current
// window and the indices of the first/last visible items within it.
//
// base holds the manager's base predicate and display order (no cursor bound,
// no limit); its OrderBy[0] is the display-order field the cursor inequality
// is built on.
func planSlide[V Item](items []V, oldestVisible, newestVisible int, dir LoadDirection, geo Geometry, base *selection.Selection) slidePlan {
	buffer := geo.Buffer

	cursorIndex := computeCursorIndex(len(items), oldestVisible, newestVisible, dir, buffer)

	var anchorIndex int
	var orderBy []selection.OrderByItem

	switch dir {
	case Backward:
		anchorIndex = newestVisible
		orderBy = base.OrderBy
	case Forward:
		anchorIndex = oldestVisible
		orderBy = reverseOrderBy(base.OrderBy)
	}

	visibleSpan := newestVisible - oldestVisible + 1
	limit := visibleSpan + 2*buffer
	dispatchLimit := limit + 1

	var field string
	if len(base.OrderBy) > 0 {
		field = base.OrderBy[0].Field
	}

	cursorItem := Item(items[cursorIndex])
	predicate := buildCursorPredicate(base.Predicate, field, dir, cursorItem)

	sel := &selection.Selection{
		Predicate: predicate,
		OrderBy:   orderBy,
		Limit:     &dispatchLimit,
	}

	anchor := items[anchorIndex]
	return slidePlan{
		selection: sel,
		pending: pendingSlide{
			continuationID: anchor.EntityID(),
			expectedLimit:  limit,
			direction:      dir,
			reversedOrder:  dir == Forward,
		},
		intersectionItem: anchor,
	}
}

// computeCursorIndex computes the query cursor's position within the
// current window for the given direction, clamped to the window bounds
// (spec.md §4.3). Both the slide planner and the debounce check in
// on_scroll use this so they agree on "the newly chosen cursor_index".
func computeCursorIndex(windowLen, oldestVisible, newestVisible int, dir LoadDirection, buffer int) int {
	switch dir {
	case Backward:
		idx := newestVisible + buffer
		if idx > windowLen-1 {
			idx = windowLen - 1
		}
		return idx
	default: // Forward
		idx := oldestVisible - buffer
		if idx < 0 {
			idx = 0
		}
		return idx
	}
}

func reverseOrderBy(items []selection.OrderByItem) []selection.OrderByItem {
	out := make([]selection.OrderByItem, len(items))
	for i, it := range items {
		out[i] = selection.OrderByItem{Field: it.Field, Direction: it.Direction.Reversed()}
	}
	return out
}
