package vscroll

import "fmt"

// reconcileInput bundles everything the reconciler needs to turn one
// change-set into a VisibleSet update (spec.md §4.4).
type reconcileInput[V Item] struct {
	prevItems            []V
	prevHasMorePreceding bool
	prevHasMoreFollowing bool
	pending              *pendingSlide
	incoming             []V
	// descending is true when the first display-order key sorts descending.
	descending bool
}

type reconcileResult[V Item] struct {
	// skip is true when the reconciler must not publish at all: either the
	// initial-load guard (step 1) or the partial-result guard (step 2).
	skip bool

	items            []V
	hasMorePreceding bool
	hasMoreFollowing bool
	intersection     *Intersection
	err              error
	// enterLive is true when a Forward slide reached the newest end.
	enterLive bool
	// consumedPending is true when a pending slide was taken this round;
	// the caller uses it to decide whether to clear the pending-slide cell.
	consumedPending bool
}

// reconcile implements the change-set reconciliation steps of §4.4. It is
// pure: no reactive cells, no live-query calls. The caller (the manager's
// change-set subscription) applies the result to its cells and publishes.
func reconcile[V Item](in reconcileInput[V]) reconcileResult[V] {
	// Step 1: guard — not yet initialized.
	if len(in.prevItems) == 0 && len(in.incoming) > 0 {
		return reconcileResult[V]{skip: true}
	}

	// Step 2: partial-result guard.
	if in.pending != nil && len(in.incoming) < in.pending.expectedLimit {
		return reconcileResult[V]{skip: true}
	}

	if in.pending == nil {
		// Live update: insert/delete/modify within the current window. The
		// engine still returns results ordered by the active (non-reversed)
		// selection, so the same DESC orientation as step 4 applies.
		// Preserve prior flags, leave intersection unset.
		items := append([]V(nil), in.incoming...)
		if in.descending {
			reverseItems(items)
		}
		return reconcileResult[V]{
			items:            items,
			hasMorePreceding: in.prevHasMorePreceding,
			hasMoreFollowing: in.prevHasMoreFollowing,
		}
	}

	// Step 3: consume pending.
	pending := *in.pending

	// Step 4: orient. A Forward slide's result is already oldest-first; any
	// other DESC-display result must be reversed so index 0 is earliest.
	items := append([]V(nil), in.incoming...)
	if in.descending && !pending.reversedOrder {
		reverseItems(items)
	}

	// Step 5: trim the +1 probe item.
	trimmed := len(items) > pending.expectedLimit
	var hasMorePreceding, hasMoreFollowing bool

	switch pending.direction {
	case Backward:
		if trimmed {
			items = items[1:]
		}
		hasMorePreceding = trimmed
		// Step 6: flag the opposite edge — we left the live edge by choice.
		hasMoreFollowing = true
	case Forward:
		if trimmed {
			items = items[:len(items)-1]
		}
		hasMoreFollowing = trimmed
		earliestChanged := len(in.prevItems) == 0 || len(items) == 0 ||
			in.prevItems[0].EntityID() != items[0].EntityID()
		hasMorePreceding = in.prevHasMorePreceding || earliestChanged
	}

	// Step 7: re-enter Live.
	enterLive := pending.direction == Forward && !trimmed

	// Step 8: find intersection.
	var intersection *Intersection
	var err error
	if idx, found := indexOfEntity(items, pending.continuationID); found {
		intersection = &Intersection{EntityID: pending.continuationID, Index: idx, Direction: pending.direction}
	} else if pending.direction == Forward {
		intersection = nil
	} else {
		err = fmt.Errorf("virtual scroll: backward slide continuation %s not found in reconciled result", pending.continuationID)
	}

	return reconcileResult[V]{
		items:            items,
		hasMorePreceding: hasMorePreceding,
		hasMoreFollowing: hasMoreFollowing,
		intersection:     intersection,
		err:              err,
		enterLive:        enterLive,
		consumedPending:  true,
	}
}

func indexOfEntity[V Item](items []V, id EntityId) (int, bool) {
	for i, it := range items {
		if it.EntityID() == id {
			return i, true
		}
	}
	return 0, false
}

func reverseItems[V any](s []V) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
