package geo

import (
	"encoding/json"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Properties maps attribute names to values.
type Properties map[string]Value

// Clone returns a shallow copy.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the attribute names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value for key, or null when absent.
func (p Properties) Get(key string) (Value, bool) {
	v, ok := p[key]
	return v, ok
}

// Feature is one geometric entity plus its attributes.
type Feature struct {
	ID         string
	Properties Properties
	Geometry   orb.Geometry // nil for null shapes
}

// GeometryType returns the GeoJSON type name, or "" for a nil geometry.
func (f *Feature) GeometryType() string {
	if f.Geometry == nil {
		return ""
	}
	return f.Geometry.GeoJSONType()
}

// FeatureCollection is an ordered set of features from one source.
// Collections are treated as immutable once handed to the registry.
type FeatureCollection struct {
	Name     string
	Features []*Feature
}

// Len returns the number of features.
func (fc *FeatureCollection) Len() int {
	if fc == nil {
		return 0
	}
	return len(fc.Features)
}

// Bound returns the bounding box of every non-nil geometry.
func (fc *FeatureCollection) Bound() orb.Bound {
	var (
		b     orb.Bound
		first = true
	)
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if first {
			b = f.Geometry.Bound()
			first = false
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b
}

// Filter returns a new collection holding the features keep accepts.
// Features are shared, not copied.
func (fc *FeatureCollection) Filter(keep func(*Feature) bool) *FeatureCollection {
	out := &FeatureCollection{Name: fc.Name}
	for _, f := range fc.Features {
		if keep(f) {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

// ToGeoJSON projects the collection onto orb's GeoJSON types.
func (fc *FeatureCollection) ToGeoJSON() *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		gf := geojson.NewFeature(f.Geometry)
		if f.ID != "" {
			gf.ID = f.ID
		}
		for k, v := range f.Properties {
			gf.Properties[k] = v.Interface()
		}
		out.Append(gf)
	}
	return out
}

// MarshalJSON encodes the collection as a GeoJSON FeatureCollection.
func (fc *FeatureCollection) MarshalJSON() ([]byte, error) {
	return json.Marshal(fc.ToGeoJSON())
}

// FromGeoJSON converts an orb FeatureCollection into the canonical model.
// Ids are not normalized here; see NormalizeIDs.
func FromGeoJSON(name string, in *geojson.FeatureCollection) *FeatureCollection {
	fc := &FeatureCollection{
		Name:     name,
		Features: make([]*Feature, 0, len(in.Features)),
	}
	for _, gf := range in.Features {
		f := &Feature{Properties: make(Properties)}
		if gf != nil {
			f.Geometry = gf.Geometry
			for k, v := range gf.Properties {
				f.Properties[k] = FromAny(v)
			}
		}
		fc.Features = append(fc.Features, f)
	}
	return fc
}
