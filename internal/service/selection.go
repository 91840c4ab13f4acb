package service

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto"
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/joeblew999/plat-geoview/internal/geo"
)

const resourceSelection = "selection"

// Selection identifies what a map interaction struck.
type Selection struct {
	LayerID  string    `json:"layerId" doc:"Layer the struck feature belongs to"`
	Identity string    `json:"identity" doc:"Feature id or split value" example:"north"`
	Label    string    `json:"label" doc:"Display label" example:"North"`
	Point    orb.Point `json:"point" doc:"Interaction coordinate as [x, y]"`
}

// Resolve turns the attributes of a struck feature into a selection. The
// identity is the feature's id, else the value of the layer's split
// attribute; a name only labels the selection. Nil means nothing could be
// identified and the selection should be cleared.
func Resolve(l *Layer, props geo.Properties, pt orb.Point) *Selection {
	var identity string
	switch {
	case props[geo.IDKey].Truthy():
		identity = props[geo.IDKey].String()
	case l != nil && l.Split != nil && props[l.Split.Property].Truthy():
		identity = props[l.Split.Property].String()
	default:
		return nil
	}

	label := identity
	if name := props["name"]; name.Truthy() {
		label = name.String()
	}

	sel := &Selection{Identity: identity, Label: label, Point: pt}
	if l != nil {
		sel.LayerID = l.ID
	}
	return sel
}

// HitTest finds the top-most drawn feature under pt across visible layers,
// last layer first, and resolves it. Only polygonal geometry can be struck.
func HitTest(layers []Layer, pt orb.Point) *Selection {
	return hitTest(layers, pt, func(l *Layer) *featureIndex {
		return newFeatureIndex(l.Drawn())
	})
}

func hitTest(layers []Layer, pt orb.Point, indexOf func(*Layer) *featureIndex) *Selection {
	for i := len(layers) - 1; i >= 0; i-- {
		l := &layers[i]
		if !l.Visible {
			continue
		}
		if f := indexOf(l).hit(pt); f != nil {
			return Resolve(l, f.Properties, pt)
		}
	}
	return nil
}

// featureIndex is an R-tree over the bounds of one drawn collection.
type featureIndex struct {
	fc   *geo.FeatureCollection
	tree *rtreego.Rtree
}

// indexedFeature wraps a feature position for R-tree storage.
type indexedFeature struct {
	pos   int
	bound orb.Bound
}

// Bounds implements rtreego.Spatial.
func (f *indexedFeature) Bounds() rtreego.Rect {
	return boundRect(f.bound)
}

// boundRect converts a bound to an R-tree rectangle. Degenerate sides get a
// small epsilon, the tree rejects zero lengths.
func boundRect(b orb.Bound) rtreego.Rect {
	const epsilon = 1e-9
	w, h := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]
	if w < epsilon {
		w = epsilon
	}
	if h < epsilon {
		h = epsilon
	}
	rect, _ := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{w, h})
	return rect
}

func newFeatureIndex(fc *geo.FeatureCollection) *featureIndex {
	ix := &featureIndex{fc: fc, tree: rtreego.NewTree(2, 25, 50)}
	if fc == nil {
		return ix
	}
	for i, f := range fc.Features {
		if !polygonal(f.Geometry) {
			continue
		}
		ix.tree.Insert(&indexedFeature{pos: i, bound: f.Geometry.Bound()})
	}
	return ix
}

// hit returns the last feature in draw order containing pt.
func (ix *featureIndex) hit(pt orb.Point) *geo.Feature {
	best := -1
	for _, s := range ix.tree.SearchIntersect(boundRect(orb.Bound{Min: pt, Max: pt})) {
		c := s.(*indexedFeature)
		if c.pos <= best || !c.bound.Contains(pt) {
			continue
		}
		if contains(ix.fc.Features[c.pos].Geometry, pt) {
			best = c.pos
		}
	}
	if best < 0 {
		return nil
	}
	return ix.fc.Features[best]
}

func polygonal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

func contains(g orb.Geometry, pt orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	}
	return false
}

// SelectionService holds the current selection and caches hit-test indexes
// per layer and registry revision.
type SelectionService struct {
	registry *Registry
	bus      *EventBus
	indexes  *ristretto.Cache

	mu      sync.RWMutex
	current *Selection
}

// NewSelectionService creates a selection service over registry.
func NewSelectionService(registry *Registry, bus *EventBus) (*SelectionService, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     256, // indexes
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("selection index cache: %w", err)
	}
	return &SelectionService{registry: registry, bus: bus, indexes: cache}, nil
}

// Current returns the selection, or nil.
func (s *SelectionService) Current() *Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Select resolves a feature the renderer reported as struck on layerID. An
// unknown layer resolves without split context.
func (s *SelectionService) Select(layerID string, props geo.Properties, pt orb.Point) *Selection {
	var sel *Selection
	if l, ok := s.registry.Get(layerID); ok {
		sel = Resolve(&l, props, pt)
	} else {
		sel = Resolve(nil, props, pt)
	}
	s.set(sel)
	return sel
}

// SelectAt hit tests pt against the registry and stores the result.
func (s *SelectionService) SelectAt(pt orb.Point) *Selection {
	rev := s.registry.Revision()
	sel := hitTest(s.registry.List(), pt, func(l *Layer) *featureIndex {
		key := fmt.Sprintf("%s@%d", l.ID, rev)
		if v, ok := s.indexes.Get(key); ok {
			if ix, ok := v.(*featureIndex); ok {
				return ix
			}
		}
		ix := newFeatureIndex(l.Drawn())
		s.indexes.Set(key, ix, 1)
		return ix
	})
	s.set(sel)
	return sel
}

// Clear drops the selection.
func (s *SelectionService) Clear() {
	s.set(nil)
}

// SelectedIn returns the selected identity when the selection belongs to
// layerID.
func (s *SelectionService) SelectedIn(layerID string) (string, bool) {
	sel := s.Current()
	if sel == nil || sel.LayerID != layerID {
		return "", false
	}
	return sel.Identity, true
}

func (s *SelectionService) set(sel *Selection) {
	s.mu.Lock()
	s.current = sel
	s.mu.Unlock()

	e := Event{Resource: resourceSelection, Action: ActionUpdated, Revision: s.registry.Revision()}
	if sel == nil {
		e.Action = ActionCleared
	} else {
		e.ID = sel.Identity
	}
	s.bus.Publish(e)
}
