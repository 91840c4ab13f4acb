package service

import (
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-geoview/internal/geo"
)

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y}}}
}

func feature(g orb.Geometry, kv ...any) *geo.Feature {
	props := make(geo.Properties)
	for i := 0; i+1 < len(kv); i += 2 {
		props[kv[i].(string)] = geo.FromAny(kv[i+1])
	}
	return &geo.Feature{Properties: props, Geometry: g}
}

func collection(features ...*geo.Feature) *geo.FeatureCollection {
	fc := &geo.FeatureCollection{Name: "test", Features: features}
	geo.NormalizeIDs(fc)
	return fc
}

// regions is the north/north/south scenario: three polygons, two regions.
func regions() *geo.FeatureCollection {
	return collection(
		feature(square(0, 10, 1), "region", "north"),
		feature(orb.MultiPolygon{square(2, 10, 1), square(4, 10, 1)}, "region", "north"),
		feature(square(0, 0, 1), "region", "south"),
	)
}

func testLayer(id string, fc *geo.FeatureCollection) Layer {
	return Layer{ID: id, Name: id, Base: fc, Visible: true, Color: Palette[0]}
}
