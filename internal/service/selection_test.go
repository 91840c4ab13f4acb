package service

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-geoview/internal/geo"
)

func TestResolve(t *testing.T) {
	split := testLayer("s", regions())
	split.SplitProperty = "region"
	split.Split = Split(split.Base, "region")
	plain := testLayer("p", regions())
	pt := orb.Point{1, 2}

	tests := []struct {
		name     string
		layer    *Layer
		props    geo.Properties
		identity string
		label    string
		cleared  bool
	}{
		{"id", &plain, geo.Properties{"id": geo.String("f1")}, "f1", "f1", false},
		{"id with name", &plain, geo.Properties{"id": geo.String("f1"), "name": geo.String("First")}, "f1", "First", false},
		{"numeric id", &plain, geo.Properties{"id": geo.Number(7)}, "7", "7", false},
		{"name only", &plain, geo.Properties{"name": geo.String("Lake")}, "", "", true},
		{"split value with name", &split, geo.Properties{"region": geo.String("north"), "name": geo.String("Lake")}, "north", "Lake", false},
		{"split value", &split, geo.Properties{"region": geo.String("north")}, "north", "north", false},
		{"no split context", &plain, geo.Properties{"region": geo.String("north")}, "", "", true},
		{"empty id", &plain, geo.Properties{"id": geo.String("")}, "", "", true},
		{"nil layer", nil, geo.Properties{"region": geo.String("north")}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Resolve(tt.layer, tt.props, pt)
			if tt.cleared {
				if sel != nil {
					t.Fatalf("selection=%+v, want nil", sel)
				}
				return
			}
			if sel == nil {
				t.Fatal("selection=nil")
			}
			if sel.Identity != tt.identity || sel.Label != tt.label || sel.Point != pt {
				t.Errorf("selection=%+v, want %s/%s at %v", sel, tt.identity, tt.label, pt)
			}
			if sel.LayerID != tt.layer.ID {
				t.Errorf("layer=%q, want %q", sel.LayerID, tt.layer.ID)
			}
		})
	}
}

func TestHitTest(t *testing.T) {
	bottom := testLayer("bottom", collection(
		feature(square(0, 0, 10), "name", "Big"),
	))
	top := testLayer("top", collection(
		feature(square(2, 2, 2), "id", "small"),
		feature(orb.Point{8, 8}, "id", "pt"),
	))
	layers := []Layer{bottom, top}

	if sel := HitTest(layers, orb.Point{3, 3}); sel == nil || sel.Identity != "small" || sel.LayerID != "top" {
		t.Errorf("inside small=%+v, want small on top", sel)
	}
	// Loaded features always carry an id, so name only labels them.
	if sel := HitTest(layers, orb.Point{8, 8}); sel == nil || sel.Identity != "feature-0" || sel.Label != "Big" {
		t.Errorf("points are not hit targets, got %+v", sel)
	}
	if sel := HitTest(layers, orb.Point{50, 50}); sel != nil {
		t.Errorf("outside=%+v, want nil", sel)
	}

	layers[1].Visible = false
	if sel := HitTest(layers, orb.Point{3, 3}); sel == nil || sel.LayerID != "bottom" {
		t.Errorf("hidden top layer should be skipped, got %+v", sel)
	}
}

func TestHitTestOverlapLastWins(t *testing.T) {
	l := testLayer("a", collection(
		feature(square(0, 0, 10), "id", "under"),
		feature(square(0, 0, 10), "id", "over"),
	))
	if sel := HitTest([]Layer{l}, orb.Point{5, 5}); sel == nil || sel.Identity != "over" {
		t.Errorf("selection=%+v, want over", sel)
	}
}

func TestHitTestHole(t *testing.T) {
	donut := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {4, 6}, {6, 6}, {6, 4}, {4, 4}},
	}
	l := testLayer("a", collection(feature(donut, "id", "donut")))
	if sel := HitTest([]Layer{l}, orb.Point{5, 5}); sel != nil {
		t.Errorf("hole hit=%+v, want nil", sel)
	}
	if sel := HitTest([]Layer{l}, orb.Point{2, 2}); sel == nil {
		t.Errorf("ring hit missing")
	}
}

func TestSelectionServiceSplitLayer(t *testing.T) {
	bus := NewEventBus()
	r := NewRegistry(bus)
	r.Add(testLayer("a", regions()))
	r.SplitBy("a", "region")

	svc, err := NewSelectionService(r, bus)
	if err != nil {
		t.Fatal(err)
	}
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	sel := svc.SelectAt(orb.Point{0.5, 10.5})
	if sel == nil || sel.Identity != "north" {
		t.Fatalf("selection=%+v, want north", sel)
	}
	if id, ok := svc.SelectedIn("a"); !ok || id != "north" {
		t.Errorf("SelectedIn=%q/%v", id, ok)
	}
	if e := nextSelectionEvent(t, ch); e.Action != ActionUpdated || e.ID != "north" {
		t.Errorf("event=%+v", e)
	}

	// Hidden split values cannot be struck.
	r.SetSplitValueVisible("a", "north", false)
	if sel := svc.SelectAt(orb.Point{0.5, 10.5}); sel != nil {
		t.Errorf("hidden value selected: %+v", sel)
	}
	if svc.Current() != nil {
		t.Errorf("miss should clear the selection")
	}
	if e := nextSelectionEvent(t, ch); e.Action != ActionCleared {
		t.Errorf("event=%+v, want cleared", e)
	}
}

func TestSelectionServiceSelect(t *testing.T) {
	r := NewRegistry(nil)
	r.Add(testLayer("a", regions()))
	svc, err := NewSelectionService(r, nil)
	if err != nil {
		t.Fatal(err)
	}

	sel := svc.Select("a", geo.Properties{"id": geo.String("x"), "name": geo.String("X")}, orb.Point{1, 1})
	if sel == nil || sel.Label != "X" || svc.Current() != sel {
		t.Fatalf("selection=%+v", sel)
	}
	if _, ok := svc.SelectedIn("other"); ok {
		t.Errorf("selection should be scoped to its layer")
	}

	svc.Clear()
	if svc.Current() != nil {
		t.Errorf("clear left %+v", svc.Current())
	}
}

func nextSelectionEvent(t *testing.T, ch chan Event) Event {
	t.Helper()
	for {
		select {
		case e := <-ch:
			if e.Resource == "selection" {
				return e
			}
		default:
			t.Fatal("no selection event")
		}
	}
}
