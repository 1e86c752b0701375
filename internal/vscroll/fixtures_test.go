package vscroll

import (
	"context"
	"fmt"
	"sync"

	"github.com/marcus/vscroll/internal/selection"
)

// testItem is a minimal Item used across the package's tests: a
// timestamped row, mirroring the Rust origin's TestMessage{timestamp}
// fixture (see SPEC_FULL.md §12).
type testItem struct {
	id EntityId
	ts float64
}

func (t testItem) EntityID() EntityId { return t.id }

func (t testItem) FieldValue(field string) (any, bool) {
	if field == "timestamp" {
		return t.ts, true
	}
	return nil, false
}

// Value satisfies selection.Entity so the fake store below can reuse the
// real predicate compiler instead of hand-rolling filter logic.
func (t testItem) Value(field string) (any, bool) { return t.FieldValue(field) }

func makeItems(startTs, n int) []testItem {
	items := make([]testItem, n)
	for i := 0; i < n; i++ {
		ts := startTs + i
		items[i] = testItem{id: EntityId(fmt.Sprintf("ts%d", ts)), ts: float64(ts)}
	}
	return items
}

// fakeStore is an in-memory dataset that evaluates a Selection the way a
// real engine would: filter by predicate, sort by order_by, cap by limit.
// It never mutates the backing slice, so tests can feed it a fixed dataset
// and drive change-sets by calling query() directly, or exercise the full
// LiveQuery contract through fakeLiveQuery.
type fakeStore struct {
	items []testItem
}

func (s *fakeStore) query(sel *selection.Selection) ([]testItem, error) {
	matcher, err := selection.Compile(sel.Predicate, selection.EvalContext{})
	if err != nil {
		return nil, err
	}
	var matched []testItem
	for _, it := range s.items {
		if matcher(it) {
			matched = append(matched, it)
		}
	}
	sortByOrder(matched, sel.OrderBy)
	if sel.Limit != nil && len(matched) > *sel.Limit {
		matched = matched[:*sel.Limit]
	}
	return matched, nil
}

func sortByOrder(items []testItem, orderBy []selection.OrderByItem) {
	if len(orderBy) == 0 {
		return
	}
	desc := orderBy[0].Direction == selection.Descending
	// insertion sort is fine for test-sized fixtures and keeps behavior easy to trace.
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 {
			less := items[j].ts < items[j-1].ts
			if desc {
				less = items[j].ts > items[j-1].ts
			}
			if !less {
				break
			}
			items[j], items[j-1] = items[j-1], items[j]
			j--
		}
	}
}

// fakeLiveQuery implements vscroll.LiveQuery[testItem] against a fakeStore,
// delivering change-sets synchronously from UpdateSelection so tests can
// assert on the manager's published VisibleSet without goroutine races.
type fakeLiveQuery struct {
	store *fakeStore

	mu        sync.Mutex
	sel       *selection.Selection
	result    []testItem
	listeners map[int]func(ChangeSet[testItem])
	nextID    int

	// deliverOverride, when useOverride is set, replaces the result actually
	// delivered on the next UpdateSelection — a hook for simulating partial
	// results and the intersection-not-found anomaly (§7 class 3).
	deliverOverride []testItem
	useOverride     bool
}

func newFakeLiveQuery(store *fakeStore, initialSel *selection.Selection) (*fakeLiveQuery, error) {
	lq := &fakeLiveQuery{store: store, sel: initialSel, listeners: make(map[int]func(ChangeSet[testItem]))}
	res, err := store.query(initialSel)
	if err != nil {
		return nil, err
	}
	lq.result = res
	return lq, nil
}

func (lq *fakeLiveQuery) WaitInitialized(ctx context.Context) error { return nil }

func (lq *fakeLiveQuery) Peek() []testItem {
	lq.mu.Lock()
	defer lq.mu.Unlock()
	out := make([]testItem, len(lq.result))
	copy(out, lq.result)
	return out
}

func (lq *fakeLiveQuery) Subscribe(fn func(ChangeSet[testItem])) SubscriptionGuard {
	lq.mu.Lock()
	id := lq.nextID
	lq.nextID++
	lq.listeners[id] = fn
	lq.mu.Unlock()
	return &fakeGuard{lq: lq, id: id}
}

func (lq *fakeLiveQuery) UpdateSelection(sel *selection.Selection) error {
	res, err := lq.store.query(sel)
	if err != nil {
		return err
	}
	lq.mu.Lock()
	lq.sel = sel
	if lq.useOverride {
		res = lq.deliverOverride
		lq.useOverride = false
	}
	lq.result = res
	listeners := make([]func(ChangeSet[testItem]), 0, len(lq.listeners))
	for _, fn := range lq.listeners {
		listeners = append(listeners, fn)
	}
	lq.mu.Unlock()
	for _, fn := range listeners {
		fn(ChangeSet[testItem]{Items: res})
	}
	return nil
}

func (lq *fakeLiveQuery) Selection() *selection.Selection {
	lq.mu.Lock()
	defer lq.mu.Unlock()
	return lq.sel
}

// overrideNextDelivery makes the next UpdateSelection deliver items instead
// of the store's real query result.
func (lq *fakeLiveQuery) overrideNextDelivery(items []testItem) {
	lq.mu.Lock()
	lq.deliverOverride = items
	lq.useOverride = true
	lq.mu.Unlock()
}

type fakeGuard struct {
	lq *fakeLiveQuery
	id int
}

func (g *fakeGuard) Close() {
	g.lq.mu.Lock()
	delete(g.lq.listeners, g.id)
	g.lq.mu.Unlock()
}

// fakeQueryContext adapts a single fakeStore to QueryContext[testItem].
type fakeQueryContext struct {
	store *fakeStore
	// failQuery, if set, makes every Query call fail, simulating construction
	// failure (§7 class 1).
	failQuery bool
}

func (c *fakeQueryContext) Query(sel *selection.Selection) (LiveQuery[testItem], error) {
	if c.failQuery {
		return nil, fmt.Errorf("simulated construction failure")
	}
	return newFakeLiveQuery(c.store, sel)
}
