package decode

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-geoview/internal/geo"
)

const featureCollectionType = "FeatureCollection"

// GeoJSON decodes a GeoJSON FeatureCollection. Geometry and attributes pass
// through unchanged; feature ids are normalized.
func GeoJSON(name string, data []byte) (*geo.FeatureCollection, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")) // UTF-8 BOM

	// Check the top-level type first so the error names the problem instead
	// of whatever orb trips over.
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &ParseError{File: name, Err: err}
	}
	if head.Type != featureCollectionType {
		return nil, &ParseError{File: name, Err: fmt.Errorf("top-level type is %q, want %s", head.Type, featureCollectionType)}
	}

	in, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, &ParseError{File: name, Err: err}
	}

	fc := geo.FromGeoJSON(name, in)
	geo.NormalizeIDs(fc)
	return fc, nil
}
