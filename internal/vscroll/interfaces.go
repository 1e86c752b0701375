package vscroll

import (
	"context"

	"github.com/marcus/vscroll/internal/selection"
)

// ChangeSet is delivered by a LiveQuery whenever its result set changes. It
// always carries the complete current result for the active selection; the
// core has no notion of incremental insert/remove/update deltas, since the
// reconciler (§4.4) works entirely off the materialised list.
type ChangeSet[V Item] struct {
	Items []V
}

// LiveQuery is the narrow collaborator the core consumes from the
// underlying reactive data engine (spec.md §6). ctx.Query constructs one;
// NewScrollManager calls it exactly once for the manager's lifetime.
type LiveQuery[V Item] interface {
	WaitInitialized(ctx context.Context) error
	Peek() []V
	Subscribe(fn func(ChangeSet[V])) SubscriptionGuard
	UpdateSelection(sel *selection.Selection) error
	Selection() *selection.Selection
}

// QueryContext constructs a LiveQuery from a selection, mirroring
// `ctx.query(Selection) -> LiveQuery<V>` in spec.md §6.
type QueryContext[V Item] interface {
	Query(sel *selection.Selection) (LiveQuery[V], error)
}
