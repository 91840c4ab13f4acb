package decode

import (
	"fmt"

	"github.com/joeblew999/plat-geoview/internal/geo"
)

// Shapefile decodes a .shp buffer and its optional .dbf attribute table.
// A nil or empty dbf gives every feature an empty attribute map before ids
// are normalized.
func Shapefile(name string, shp, dbf []byte) (*geo.FeatureCollection, error) {
	geoms, err := readShp(name+".shp", shp)
	if err != nil {
		return nil, err
	}

	var attrs []geo.Properties
	if len(dbf) > 0 {
		attrs, err = readDbf(name+".dbf", dbf)
		if err != nil {
			return nil, err
		}
		if len(attrs) != len(geoms) {
			return nil, &DecodeError{
				File:   name + ".dbf",
				Offset: -1,
				Reason: fmt.Sprintf("%d attribute records for %d shapes", len(attrs), len(geoms)),
			}
		}
	}

	fc := &geo.FeatureCollection{
		Name:     name,
		Features: make([]*geo.Feature, len(geoms)),
	}
	for i, g := range geoms {
		props := make(geo.Properties)
		if attrs != nil {
			props = attrs[i]
		}
		fc.Features[i] = &geo.Feature{Properties: props, Geometry: g}
	}

	geo.NormalizeIDs(fc)
	return fc, nil
}
