package decode

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-geoview/internal/geo"
)

const regionsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"region": "north", "id": "n1"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}},
    {"type": "Feature", "properties": {"region": "south", "id": 0},
     "geometry": {"type": "Point", "coordinates": [5,5]}},
    {"type": "Feature", "properties": {"tags": ["a", "b"]},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[0,0],[1,0],[1,1],[0,0]]]]}}
  ]
}`

func TestGeoJSON(t *testing.T) {
	fc, err := GeoJSON("regions", []byte("\xef\xbb\xbf"+regionsGeoJSON))
	if err != nil {
		t.Fatal(err)
	}
	if fc.Name != "regions" || fc.Len() != 3 {
		t.Fatalf("name=%q features=%d, want regions with 3", fc.Name, fc.Len())
	}

	wantIDs := []string{"n1", "feature-1", "feature-2"}
	for i, f := range fc.Features {
		if f.ID != wantIDs[i] {
			t.Errorf("feature %d: id=%q, want %q", i, f.ID, wantIDs[i])
		}
	}
	if got := fc.Features[0].Properties["region"]; got != geo.String("north") {
		t.Errorf("region=%v, want north", got)
	}
	if _, ok := fc.Features[1].Geometry.(orb.Point); !ok {
		t.Errorf("geometry=%T, want orb.Point passed through", fc.Features[1].Geometry)
	}
	if k := fc.Features[2].Properties["tags"].Kind(); k != geo.KindOpaque {
		t.Errorf("tags kind=%v, want opaque", k)
	}
}

func TestGeoJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"type": "FeatureCollection", "features": [`},
		{"not an object", `[1, 2, 3]`},
		{"single feature", `{"type": "Feature", "geometry": null, "properties": {}}`},
		{"geometry", `{"type": "Point", "coordinates": [0, 0]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GeoJSON("bad", []byte(tt.data))
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err=%v, want *ParseError", err)
			}
			if pe.File != "bad" {
				t.Errorf("file=%q, want bad", pe.File)
			}
		})
	}
}
