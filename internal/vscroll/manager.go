package vscroll

import (
	"context"
	"log/slog"
	"sync"

	"github.com/marcus/vscroll/internal/selection"
)

// ScrollManager is the top-level state machine (spec.md §4.5). It owns the
// live query, the current mode, any pending slide, the per-direction
// debounce cells, and the reactive visible_set it publishes.
type ScrollManager[V Item] struct {
	basePredicate selection.Node
	displayOrder  []selection.OrderByItem
	descending    bool
	geo           Geometry

	query LiveQuery[V]
	sub   SubscriptionGuard
	log   *slog.Logger

	mu sync.Mutex

	visibleSet               *Cell[VisibleSet[V]]
	mode                     *Cell[ScrollMode]
	pendingSlide             *Cell[*pendingSlide]
	lastBackwardContinuation *Cell[*EntityId]
	lastForwardContinuation  *Cell[*EntityId]
}

// NewScrollManager constructs a manager over ctx with the given base
// predicate, display order, and viewport geometry. displayOrder must have
// at least one key; buffer_factor is clamped to ≥ 2.0 before the geometry
// is derived. Fails with *RetrievalError if the live query cannot be
// created (spec.md §7 class 1).
func NewScrollManager[V Item](
	ctx QueryContext[V],
	basePredicate selection.Node,
	displayOrder []selection.OrderByItem,
	minRowHeight, viewportHeight, bufferFactor float64,
	log *slog.Logger,
) (*ScrollManager[V], error) {
	if log == nil {
		log = slog.Default()
	}
	geo := ComputeGeometry(viewportHeight, minRowHeight, bufferFactor)

	limit := geo.LiveWindow
	initialSel := &selection.Selection{
		Predicate: basePredicate,
		OrderBy:   displayOrder,
		Limit:     &limit,
	}

	lq, err := ctx.Query(initialSel)
	if err != nil {
		return nil, &RetrievalError{Err: err}
	}

	descending := len(displayOrder) > 0 && displayOrder[0].Direction == selection.Descending

	m := &ScrollManager[V]{
		basePredicate:            basePredicate,
		displayOrder:             displayOrder,
		descending:               descending,
		geo:                      geo,
		query:                    lq,
		log:                      log,
		visibleSet:               NewCell(VisibleSet[V]{}),
		mode:                     NewCell(ModeLive),
		pendingSlide:             NewCell[*pendingSlide](nil),
		lastBackwardContinuation: NewCell[*EntityId](nil),
		lastForwardContinuation:  NewCell[*EntityId](nil),
	}
	m.sub = lq.Subscribe(m.onChangeSet)
	return m, nil
}

// Geometry exposes the manager's derived windowing quantities, mainly for
// tests and diagnostics.
func (m *ScrollManager[V]) Geometry() Geometry { return m.geo }

// Start awaits the live query's first fully-loaded result and publishes
// the initial VisibleSet in Live mode (spec.md §4.5 start()).
func (m *ScrollManager[V]) Start(ctx context.Context) error {
	if err := m.query.WaitInitialized(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	raw := m.query.Peek()
	items := append([]V(nil), raw...)
	if m.descending {
		reverseItems(items)
	}

	// In the common newest-first (descending) feed, the live edge sits at
	// the start of the window and there is nothing newer to slide into, so
	// has_more_following is false. An ascending feed's live edge sits at
	// the end instead, so the same "did we fill the live window" test that
	// decides has_more_preceding for the descending case decides
	// has_more_following here.
	moreFollowing := false
	if !m.descending {
		moreFollowing = len(items) >= m.geo.LiveWindow
	}

	vs := VisibleSet[V]{
		Items:            items,
		HasMorePreceding: len(items) >= m.geo.LiveWindow,
		HasMoreFollowing: moreFollowing,
		ShouldAutoScroll: true,
	}
	m.mode.Set(ModeLive)
	m.visibleSet.Set(vs)
	return nil
}

// VisibleSet returns the read-only handle a renderer subscribes to.
func (m *ScrollManager[V]) VisibleSet() Read[VisibleSet[V]] { return asRead(m.visibleSet) }

// Mode returns the manager's current scroll mode.
func (m *ScrollManager[V]) Mode() ScrollMode { return m.mode.Get() }

// CurrentSelection returns the live query's current selection in its
// textual form, for inspection and testing.
func (m *ScrollManager[V]) CurrentSelection() string {
	sel := m.query.Selection()
	if sel == nil {
		return ""
	}
	return sel.String()
}

// Close releases the change-set subscription. No more callbacks fire
// afterward.
func (m *ScrollManager[V]) Close() {
	if m.sub != nil {
		m.sub.Close()
	}
}

// OnScroll is the renderer's sole input: it reports the identities of the
// first and last visible items and whether the user is scrolling toward
// earlier items (spec.md §4.5 on_scroll()).
func (m *ScrollManager[V]) OnScroll(firstVisible, lastVisible EntityId, scrollingBackward bool) {
	m.mu.Lock()

	vs := m.visibleSet.Get()
	firstIdx, ok1 := indexOfEntity(vs.Items, firstVisible)
	lastIdx, ok2 := indexOfEntity(vs.Items, lastVisible)
	if !ok1 || !ok2 {
		m.mu.Unlock()
		return // stale scroll event (§7 class 5)
	}

	itemsAbove := firstIdx
	itemsBelow := len(vs.Items) - lastIdx - 1
	s := m.geo.ScreenItems

	var dir LoadDirection
	var planned *selection.Selection
	switch {
	case scrollingBackward && itemsAbove <= s && vs.HasMorePreceding:
		m.mode.Set(ModeBackward)
		dir = Backward
		planned = m.planAndRecordSlide(Backward, firstIdx, lastIdx, vs.Items)
	case !scrollingBackward && itemsBelow <= s && vs.HasMoreFollowing:
		m.mode.Set(ModeForward)
		dir = Forward
		planned = m.planAndRecordSlide(Forward, firstIdx, lastIdx, vs.Items)
	}
	m.mu.Unlock()

	// UpdateSelection is called outside the lock: the underlying live query
	// may invoke onChangeSet synchronously and from the calling goroutine,
	// which would otherwise deadlock against a held, non-reentrant mutex.
	if planned != nil {
		if err := m.query.UpdateSelection(planned); err != nil {
			m.log.Error("virtual scroll: update selection failed", "direction", dir.String(), "error", err)
		}
	}
}

// planAndRecordSlide computes a slide plan, subject to the per-direction
// debounce (§4.3), and — if not debounced — records the PendingSlide and
// debounce continuation before returning the Selection to dispatch. Caller
// holds m.mu; returns nil when the slide is debounced away.
func (m *ScrollManager[V]) planAndRecordSlide(dir LoadDirection, oldestVisible, newestVisible int, items []V) *selection.Selection {
	buffer := m.geo.Buffer
	candidateCursor := computeCursorIndex(len(items), oldestVisible, newestVisible, dir, buffer)

	contCell := m.lastForwardContinuation
	if dir == Backward {
		contCell = m.lastBackwardContinuation
	}
	if prev := contCell.Get(); prev != nil {
		if idx, found := indexOfEntity(items, *prev); found {
			dist := candidateCursor - idx
			if dist < 0 {
				dist = -dist
			}
			if dist <= m.geo.ScreenItems {
				return nil
			}
		}
	}

	base := &selection.Selection{Predicate: m.basePredicate, OrderBy: m.displayOrder}
	plan := planSlide(items, oldestVisible, newestVisible, dir, m.geo, base)

	pending := plan.pending
	m.pendingSlide.Set(&pending)
	id := pending.continuationID
	contCell.Set(&id)

	return plan.selection
}

// onChangeSet is the live query's change-set callback (§4.4). It may be
// invoked on a different goroutine than OnScroll/Start; m.mu serializes
// mutation of the manager's reactive cells per the concurrency model (§5).
func (m *ScrollManager[V]) onChangeSet(cs ChangeSet[V]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.visibleSet.Get()
	pending := m.pendingSlide.Get()

	res := reconcile(reconcileInput[V]{
		prevItems:            prev.Items,
		prevHasMorePreceding: prev.HasMorePreceding,
		prevHasMoreFollowing: prev.HasMoreFollowing,
		pending:              pending,
		incoming:             cs.Items,
		descending:           m.descending,
	})
	if res.skip {
		return
	}

	if res.consumedPending {
		m.pendingSlide.Set(nil)
	}
	if res.enterLive {
		m.mode.Set(ModeLive)
	}

	mode := m.mode.Get()
	vs := VisibleSet[V]{
		Items:            res.items,
		Intersection:     res.intersection,
		HasMorePreceding: res.hasMorePreceding,
		HasMoreFollowing: res.hasMoreFollowing,
		ShouldAutoScroll: mode == ModeLive,
		Error:            res.err,
	}
	m.visibleSet.Set(vs)
}
