package service

import (
	"sync"

	"github.com/joeblew999/plat-geoview/internal/logger"
	"github.com/joeblew999/plat-geoview/internal/metrics"
)

const resourceLayers = "layers"

// Registry is the ordered set of layers. Every operation is keyed by layer
// id, does nothing for unknown ids, and returns the resulting snapshot.
//
// Snapshots are never modified after they are returned: an edit copies the
// layer it touches and swaps it into a new slice.
type Registry struct {
	mu       sync.RWMutex
	layers   []Layer
	revision uint64
	bus      *EventBus
}

// NewRegistry creates an empty registry publishing changes on bus, which may
// be nil.
func NewRegistry(bus *EventBus) *Registry {
	return &Registry{bus: bus}
}

// List returns the current snapshot in draw order, bottom first.
func (r *Registry) List() []Layer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.layers
}

// Get returns a layer by id.
func (r *Registry) Get(id string) (Layer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.index(id); i >= 0 {
		return r.layers[i], true
	}
	return Layer{}, false
}

// Len returns the number of layers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.layers)
}

// Revision increases with every change. Caches key on it.
func (r *Registry) Revision() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revision
}

// Add appends a layer. A layer whose id is already present is ignored.
func (r *Registry) Add(l Layer) []Layer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index(l.ID) >= 0 {
		logger.L().Warn("layer already registered", "layer", l.ID)
		return r.layers
	}

	next := make([]Layer, len(r.layers), len(r.layers)+1)
	copy(next, r.layers)
	r.commit(append(next, l.clone()), ActionCreated, l.ID)
	return r.layers
}

// Remove drops a layer.
func (r *Registry) Remove(id string) []Layer {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return r.layers
	}
	next := make([]Layer, 0, len(r.layers)-1)
	next = append(next, r.layers[:i]...)
	next = append(next, r.layers[i+1:]...)
	r.commit(next, ActionDeleted, id)
	return r.layers
}

// SetVisible shows or hides a layer.
func (r *Registry) SetVisible(id string, visible bool) []Layer {
	return r.update(id, func(l *Layer) bool {
		if l.Visible == visible {
			return false
		}
		l.Visible = visible
		return true
	})
}

// SetSplitProperty records the attribute to split by without applying it.
func (r *Registry) SetSplitProperty(id, attr string) []Layer {
	return r.update(id, func(l *Layer) bool {
		if l.SplitProperty == attr {
			return false
		}
		l.SplitProperty = attr
		return true
	})
}

// ApplySplit splits the layer by its chosen attribute, replacing any earlier
// split as a whole. Nothing happens when no attribute is chosen.
func (r *Registry) ApplySplit(id string) []Layer {
	return r.update(id, func(l *Layer) bool {
		if l.SplitProperty == "" {
			return false
		}
		applySplit(l)
		return true
	})
}

// SplitBy chooses attr and applies the split in one step.
func (r *Registry) SplitBy(id, attr string) []Layer {
	return r.update(id, func(l *Layer) bool {
		if attr == "" {
			return false
		}
		l.SplitProperty = attr
		applySplit(l)
		return true
	})
}

// ResetSplit removes the split and the chosen attribute. Colour overrides
// stay.
func (r *Registry) ResetSplit(id string) []Layer {
	return r.update(id, func(l *Layer) bool {
		if l.Split == nil && l.SplitProperty == "" {
			return false
		}
		l.Split = nil
		l.SplitProperty = ""
		return true
	})
}

// SetSplitValueVisible shows or hides one split value. Values not produced by
// the current split are ignored.
func (r *Registry) SetSplitValueVisible(id, value string, visible bool) []Layer {
	return r.update(id, func(l *Layer) bool {
		if l.Split == nil {
			return false
		}
		cur, ok := l.Split.Visible[value]
		if !ok || cur == visible {
			return false
		}
		l.Split.Visible[value] = visible
		return true
	})
}

// SetAllSplitValuesVisible shows or hides every split value.
func (r *Registry) SetAllSplitValuesVisible(id string, visible bool) []Layer {
	return r.update(id, func(l *Layer) bool {
		if l.Split == nil {
			return false
		}
		for v := range l.Split.Visible {
			l.Split.Visible[v] = visible
		}
		return true
	})
}

// SetSplitColor overrides the colour of one split value. The override is
// kept even when no current split produces the value.
func (r *Registry) SetSplitColor(id, value, color string) []Layer {
	return r.update(id, func(l *Layer) bool {
		if cur, ok := l.SplitColors[value]; ok && cur == color {
			return false
		}
		if l.SplitColors == nil {
			l.SplitColors = make(map[string]string)
		}
		l.SplitColors[value] = color
		return true
	})
}

// update runs edit on a private copy of the layer and swaps it in when edit
// reports a change.
func (r *Registry) update(id string, edit func(*Layer) bool) []Layer {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return r.layers
	}

	l := r.layers[i].clone()
	if !edit(&l) {
		return r.layers
	}

	next := make([]Layer, len(r.layers))
	copy(next, r.layers)
	next[i] = l
	r.commit(next, ActionUpdated, id)
	return r.layers
}

// commit installs a new snapshot. Callers hold the write lock.
func (r *Registry) commit(next []Layer, action, id string) {
	r.layers = next
	r.revision++
	metrics.LayersActive.Set(float64(len(next)))
	r.bus.Publish(Event{Resource: resourceLayers, Action: action, ID: id, Revision: r.revision})
}

func (r *Registry) index(id string) int {
	for i := range r.layers {
		if r.layers[i].ID == id {
			return i
		}
	}
	return -1
}

func applySplit(l *Layer) {
	s := Split(l.Base, l.SplitProperty)
	l.Split = s

	metrics.SplitsTotal.Inc()
	if s.Dropped > 0 {
		metrics.SplitDroppedFeatures.Add(float64(s.Dropped))
		logger.L().Warn("split left out non-polygonal features",
			"layer", l.ID,
			"property", s.Property,
			"dropped", s.Dropped,
		)
	}
}
