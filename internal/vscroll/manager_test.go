package vscroll

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/marcus/vscroll/internal/selection"
)

func descendingDisplayOrder() []selection.OrderByItem {
	return []selection.OrderByItem{{Field: "timestamp", Direction: selection.Descending}}
}

func newTestManager(t *testing.T, items []testItem) (*ScrollManager[testItem], *fakeQueryContext) {
	t.Helper()
	store := &fakeStore{items: items}
	qctx := &fakeQueryContext{store: store}
	base, err := selection.ParsePredicate("true")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// h=50, H=500, F=2.0 => S=10, live_window=30, buffer=20 (spec.md §8).
	mgr, err := NewScrollManager[testItem](qctx, base, descendingDisplayOrder(), 50, 500, 2.0, nil)
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	return mgr, qctx
}

func TestScrollManagerInitialLiveRender(t *testing.T) {
	mgr, _ := newTestManager(t, makeItems(1000, 60))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	vs := mgr.VisibleSet().Get()
	if len(vs.Items) != 30 {
		t.Fatalf("expected 30 items in the initial window, got %d", len(vs.Items))
	}
	if vs.Items[0].ts != 1030 || vs.Items[29].ts != 1059 {
		t.Fatalf("expected window ts1030..ts1059, got %v..%v", vs.Items[0].ts, vs.Items[29].ts)
	}
	want := makeItems(1030, 30)
	if diff := cmp.Diff(want, vs.Items, cmpopts.EquateComparable(testItem{})); diff != "" {
		t.Errorf("unexpected initial window (-want +got):\n%s", diff)
	}
	if !vs.HasMorePreceding {
		t.Errorf("expected has_more_preceding = true")
	}
	if vs.HasMoreFollowing {
		t.Errorf("expected has_more_following = false")
	}
	if !vs.ShouldAutoScroll {
		t.Errorf("expected should_auto_scroll = true in Live mode")
	}
	if mgr.Mode() != ModeLive {
		t.Errorf("expected mode = Live")
	}
}

func TestScrollManagerSmallDatasetStaysLive(t *testing.T) {
	mgr, _ := newTestManager(t, makeItems(1000, 20))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	vs := mgr.VisibleSet().Get()
	if len(vs.Items) != 20 {
		t.Fatalf("expected all 20 items, got %d", len(vs.Items))
	}
	if vs.HasMorePreceding || vs.HasMoreFollowing {
		t.Errorf("expected both more-flags false for a dataset smaller than live_window")
	}

	// An up-scroll must not issue a slide since has_more_preceding is false.
	mgr.OnScroll(vs.Items[0].id, vs.Items[len(vs.Items)-1].id, true)
	if mgr.Mode() != ModeLive {
		t.Errorf("expected mode to remain Live when has_more_preceding is false")
	}
}

func TestScrollManagerBackwardSlidePublishesAndAnchors(t *testing.T) {
	mgr, _ := newTestManager(t, makeItems(1000, 60))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	vs := mgr.VisibleSet().Get()
	first := vs.Items[10] // ts1040
	last := vs.Items[19]  // ts1049
	mgr.OnScroll(first.id, last.id, true)

	if mgr.Mode() != ModeBackward {
		t.Fatalf("expected mode = Backward after crossing the threshold, got %v", mgr.Mode())
	}

	vs = mgr.VisibleSet().Get()
	if vs.ShouldAutoScroll {
		t.Errorf("expected should_auto_scroll = false once scrolling backward")
	}
	if vs.Intersection == nil {
		t.Fatalf("expected an intersection to be published")
	}
	if vs.Intersection.EntityID != last.id {
		t.Errorf("expected intersection anchored at the previously newest-visible item %v, got %v", last.id, vs.Intersection.EntityID)
	}
	if vs.Items[vs.Intersection.Index].EntityID() != vs.Intersection.EntityID {
		t.Errorf("invariant violated: items[intersection.index].entity_id must equal intersection.entity_id")
	}
	if !vs.HasMoreFollowing {
		t.Errorf("expected has_more_following = true after a backward slide (left the live edge by choice)")
	}
	// items must be ascending in display order.
	for i := 1; i < len(vs.Items); i++ {
		if vs.Items[i].ts < vs.Items[i-1].ts {
			t.Fatalf("items not ascending at index %d: %v before %v", i, vs.Items[i-1].ts, vs.Items[i].ts)
		}
	}
}

func TestScrollManagerDebounceSkipsRedundantSlide(t *testing.T) {
	mgr, qctx := newTestManager(t, makeItems(1000, 60))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	vs := mgr.VisibleSet().Get()
	mgr.OnScroll(vs.Items[10].id, vs.Items[19].id, true)
	selAfterFirst := mgr.CurrentSelection()

	// A second scroll event close to the same continuation, before any new
	// data arrives, must be debounced (distance <= S).
	vs2 := mgr.VisibleSet().Get()
	mgr.OnScroll(vs2.Items[10].id, vs2.Items[19].id, true)
	if mgr.CurrentSelection() != selAfterFirst {
		t.Errorf("expected the second nearby slide to be debounced; selection changed to %q", mgr.CurrentSelection())
	}
	_ = qctx
}

func TestScrollManagerStaleScrollEventIsNoOp(t *testing.T) {
	mgr, _ := newTestManager(t, makeItems(1000, 60))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	before := mgr.CurrentSelection()
	mgr.OnScroll("does-not-exist", "also-missing", true)
	if mgr.CurrentSelection() != before {
		t.Errorf("expected a stale scroll event (unknown ids) to be a no-op")
	}
	if mgr.Mode() != ModeLive {
		t.Errorf("expected mode to remain unchanged on a stale scroll event")
	}
}

func TestScrollManagerConstructionFailureSurfacesRetrievalError(t *testing.T) {
	qctx := &fakeQueryContext{store: &fakeStore{}, failQuery: true}
	base, _ := selection.ParsePredicate("true")
	_, err := NewScrollManager[testItem](qctx, base, descendingDisplayOrder(), 50, 500, 2.0, nil)
	if err == nil {
		t.Fatal("expected a RetrievalError")
	}
	if _, ok := err.(*RetrievalError); !ok {
		t.Errorf("expected *RetrievalError, got %T", err)
	}
}

func TestScrollManagerClampsBufferFactor(t *testing.T) {
	store := &fakeStore{items: makeItems(1000, 60)}
	qctx := &fakeQueryContext{store: store}
	base, _ := selection.ParsePredicate("true")
	mgr, err := NewScrollManager[testItem](qctx, base, descendingDisplayOrder(), 50, 500, 0.5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mgr.Geometry().ScreenItems < 1 {
		t.Errorf("expected screen_items >= 1 after clamping")
	}
	want := ComputeGeometry(500, 50, 2.0)
	if mgr.Geometry() != want {
		t.Errorf("expected buffer_factor below 2.0 to clamp to 2.0: got %#v want %#v", mgr.Geometry(), want)
	}
}
