// Package service contains the layer registry and the operations behind the
// geoview API: ingest, attribute splitting, colour policy and selection.
package service

import (
	"sort"

	"github.com/joeblew999/plat-geoview/internal/geo"
)

// Layer is one uploaded file group rendered as a map layer.
//
// Base and Split.Collection are never modified after they are created;
// registry edits replace the Layer value instead.
type Layer struct {
	ID      string
	Name    string
	Base    *geo.FeatureCollection
	Visible bool
	Color   string

	// SplitProperty is the attribute picked for splitting. It may be set
	// before a split is applied.
	SplitProperty string
	// Split is nil until a split is applied.
	Split *SplitState
	// SplitColors holds per-value colour overrides. Only overridden values
	// have entries. It outlives resets and re-splits.
	SplitColors map[string]string
}

// SplitState is the derived data of an applied split. It is either absent or
// complete.
type SplitState struct {
	Property   string
	Collection *geo.FeatureCollection
	Values     []string
	Visible    map[string]bool
	// Dropped counts features with the attribute whose geometry is not
	// polygonal.
	Dropped int
}

// IsSplit reports whether a split is applied.
func (l *Layer) IsSplit() bool { return l.Split != nil }

// Drawn returns what a renderer should draw: the split collection restricted
// to visible values, or the base collection.
func (l *Layer) Drawn() *geo.FeatureCollection {
	if l.Split == nil {
		return l.Base
	}
	s := l.Split
	return s.Collection.Filter(func(f *geo.Feature) bool {
		return s.Visible[f.ID]
	})
}

// clone copies the mutable parts of a layer so edits never reach a snapshot
// already handed out.
func (l Layer) clone() Layer {
	if l.Split != nil {
		s := *l.Split
		s.Visible = make(map[string]bool, len(l.Split.Visible))
		for k, v := range l.Split.Visible {
			s.Visible[k] = v
		}
		l.Split = &s
	}
	if l.SplitColors != nil {
		colors := make(map[string]string, len(l.SplitColors))
		for k, v := range l.SplitColors {
			colors[k] = v
		}
		l.SplitColors = colors
	}
	return l
}

// LayerSummary is the wire view of a layer.
type LayerSummary struct {
	ID            string            `json:"id" yaml:"id" doc:"Layer identifier" example:"parcels-1718000000000-0"`
	Name          string            `json:"name" yaml:"name" doc:"Source file base name" example:"parcels"`
	Visible       bool              `json:"visible" yaml:"visible" doc:"Whether the layer is drawn"`
	Color         string            `json:"color" yaml:"color" doc:"Layer fill colour" example:"#1f77b4"`
	Features      int               `json:"features" yaml:"features" doc:"Feature count of the base collection"`
	GeometryTypes []string          `json:"geometryTypes,omitempty" yaml:"geometryTypes,omitempty" doc:"Distinct geometry types, sorted"`
	SplitProperty string            `json:"splitProperty,omitempty" yaml:"splitProperty,omitempty" doc:"Attribute chosen for splitting"`
	Split         *SplitSummary     `json:"split,omitempty" yaml:"split,omitempty" doc:"Applied split, if any"`
	SplitColors   map[string]string `json:"splitColors,omitempty" yaml:"splitColors,omitempty" doc:"Per-value colour overrides"`
}

// SplitSummary is the wire view of an applied split.
type SplitSummary struct {
	Property string          `json:"property" yaml:"property" doc:"Attribute the layer is split by" example:"region"`
	Values   []string        `json:"values" yaml:"values" doc:"Distinct values in display order"`
	Visible  map[string]bool `json:"visible" yaml:"visible" doc:"Visibility per value"`
	Dropped  int             `json:"dropped,omitempty" yaml:"dropped,omitempty" doc:"Non-polygonal features left out"`
}

// Summary returns the wire view of l.
func (l *Layer) Summary() LayerSummary {
	out := LayerSummary{
		ID:            l.ID,
		Name:          l.Name,
		Visible:       l.Visible,
		Color:         l.Color,
		Features:      l.Base.Len(),
		GeometryTypes: geometryTypes(l.Base),
		SplitProperty: l.SplitProperty,
		SplitColors:   l.SplitColors,
	}
	if s := l.Split; s != nil {
		out.Split = &SplitSummary{
			Property: s.Property,
			Values:   s.Values,
			Visible:  s.Visible,
			Dropped:  s.Dropped,
		}
	}
	return out
}

func geometryTypes(fc *geo.FeatureCollection) []string {
	if fc == nil {
		return nil
	}
	seen := make(map[string]bool)
	var types []string
	for _, f := range fc.Features {
		t := f.GeometryType()
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
