package feedstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marcus/vscroll/internal/selection"
	"github.com/marcus/vscroll/internal/vscroll"
)

// PollInterval is how often a live query re-evaluates its selection against
// the store. Spec.md §5 leaves the live query's delivery mechanism
// implementation-defined ("on either the caller's task or a worker task");
// feedstore chooses a background poller, grounded on the teacher's
// connection model rather than SQLite update hooks (modernc.org/sqlite
// doesn't expose one, and a poller keeps both supported drivers usable
// interchangeably — see the mattn/go-sqlite3 harness in driver_parity_test.go).
const PollInterval = 50 * time.Millisecond

// QueryContext adapts a Store to vscroll.QueryContext[Message].
type QueryContext struct {
	Store *Store
}

// Query implements vscroll.QueryContext[Message]: it starts a background
// poller bound to sel and returns it as a LiveQuery handle.
func (c QueryContext) Query(sel *selection.Selection) (vscroll.LiveQuery[Message], error) {
	if c.Store == nil {
		return nil, fmt.Errorf("feedstore: nil store")
	}
	lq := &liveQuery{
		store:       c.Store,
		sel:         sel,
		initialized: make(chan struct{}),
		stop:        make(chan struct{}),
	}
	lq.refresh()
	close(lq.initialized)
	lq.wg.Add(1)
	go lq.pollLoop()
	return lq, nil
}

// liveQuery implements vscroll.LiveQuery[Message] over a polled SQLite
// store. All mutable state is guarded by mu; subscriber callbacks are
// invoked from the poller goroutine, or from the goroutine calling
// UpdateSelection, never while mu is held (mirrors the
// Cell notify-outside-the-lock discipline the scroll core uses).
type liveQuery struct {
	store *Store

	mu   sync.Mutex
	sel  *selection.Selection
	last []Message

	subMu     sync.Mutex
	nextSubID int
	subs      map[int]func(vscroll.ChangeSet[Message])

	initialized chan struct{}
	stop        chan struct{}
	wg          sync.WaitGroup
}

func (lq *liveQuery) pollLoop() {
	defer lq.wg.Done()
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-lq.stop:
			return
		case <-ticker.C:
			if changed := lq.refresh(); changed {
				lq.notify()
			}
		}
	}
}

// refresh re-runs the current selection against the store and reports
// whether the result differs from the last one delivered.
func (lq *liveQuery) refresh() bool {
	changed, err := lq.evaluateAndStore()
	if err != nil {
		return false
	}
	return changed
}

// evaluateAndStore runs the current selection and records the result as
// lq.last, reporting whether it differs (by id+seq) from what was there
// before. Both refresh (poll-driven, change-gated) and UpdateSelection
// (always notifies) build on this shared evaluation step.
func (lq *liveQuery) evaluateAndStore() (changed bool, err error) {
	lq.mu.Lock()
	sel := lq.sel
	lq.mu.Unlock()

	items, err := lq.evaluate(sel)
	if err != nil {
		return false, err
	}

	lq.mu.Lock()
	changed = !sameMessages(lq.last, items)
	lq.last = items
	lq.mu.Unlock()
	return changed, nil
}

func (lq *liveQuery) evaluate(sel *selection.Selection) ([]Message, error) {
	all, err := lq.store.All()
	if err != nil {
		return nil, fmt.Errorf("feedstore: evaluate selection: %w", err)
	}

	matcher, err := selection.Compile(sel.Predicate, selection.EvalContext{})
	if err != nil {
		return nil, fmt.Errorf("feedstore: compile predicate: %w", err)
	}

	filtered := all[:0:0]
	for _, m := range all {
		if matcher(m) {
			filtered = append(filtered, m)
		}
	}

	sortMessages(filtered, sel.OrderBy)

	if sel.Limit != nil && len(filtered) > *sel.Limit {
		filtered = filtered[:*sel.Limit]
	}
	return filtered, nil
}

func sortMessages(items []Message, orderBy []selection.OrderByItem) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, key := range orderBy {
			vi, _ := items[i].Value(key.Field)
			vj, _ := items[j].Value(key.Field)
			less, equal := compareAny(vi, vj)
			if equal {
				continue
			}
			if key.Direction == selection.Descending {
				return !less
			}
			return less
		}
		return false
	})
}

func compareAny(a, b any) (less, equal bool) {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf, af == bf
	}
	as, asok := a.(string)
	bs, bsok := b.(string)
	if asok && bsok {
		return as < bs, as == bs
	}
	return false, true
}

func sameMessages(a, b []Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Seq != b[i].Seq {
			return false
		}
	}
	return true
}

func (lq *liveQuery) notify() {
	lq.mu.Lock()
	items := append([]Message(nil), lq.last...)
	lq.mu.Unlock()

	lq.subMu.Lock()
	fns := make([]func(vscroll.ChangeSet[Message]), 0, len(lq.subs))
	for _, fn := range lq.subs {
		fns = append(fns, fn)
	}
	lq.subMu.Unlock()

	cs := vscroll.ChangeSet[Message]{Items: items}
	for _, fn := range fns {
		fn(cs)
	}
}

// WaitInitialized implements vscroll.LiveQuery[Message]. feedstore's first
// evaluate() runs synchronously in Query(), so this only needs to wait for
// that to be visible.
func (lq *liveQuery) WaitInitialized(ctx context.Context) error {
	select {
	case <-lq.initialized:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (lq *liveQuery) Peek() []Message {
	lq.mu.Lock()
	defer lq.mu.Unlock()
	return append([]Message(nil), lq.last...)
}

func (lq *liveQuery) Subscribe(fn func(vscroll.ChangeSet[Message])) vscroll.SubscriptionGuard {
	lq.subMu.Lock()
	id := lq.nextSubID
	lq.nextSubID++
	if lq.subs == nil {
		lq.subs = make(map[int]func(vscroll.ChangeSet[Message]))
	}
	lq.subs[id] = fn
	lq.subMu.Unlock()
	return &subGuard{lq: lq, id: id}
}

func (lq *liveQuery) UpdateSelection(sel *selection.Selection) error {
	lq.mu.Lock()
	lq.sel = sel
	lq.mu.Unlock()

	if _, err := lq.evaluateAndStore(); err != nil {
		return err
	}
	// A selection change must always give the subscriber's reconciler a
	// chance to run its orient/trim steps, even when the newly-selected
	// window happens to be set-equal (by id+seq) to what was last
	// published. Every slide issues a new selection, so gating notify()
	// on sameMessages() here — as the poll loop does — would leave a
	// pending slide permanently unconsumed whenever a slide's window
	// doesn't change the visible set, wedging the manager in
	// Backward/Forward mode instead of letting it settle back to Live.
	lq.notify()
	return nil
}

func (lq *liveQuery) Selection() *selection.Selection {
	lq.mu.Lock()
	defer lq.mu.Unlock()
	return lq.sel
}

// Close stops the poller. Not part of vscroll.LiveQuery; callers that own
// the QueryContext should keep a reference if they need to shut it down
// deterministically (tests do).
func (lq *liveQuery) Close() {
	close(lq.stop)
	lq.wg.Wait()
}

type subGuard struct {
	lq *liveQuery
	id int
}

func (g *subGuard) Close() {
	g.lq.subMu.Lock()
	delete(g.lq.subs, g.id)
	g.lq.subMu.Unlock()
}
