// Package tiles renders layer collections as Mapbox vector tiles, either one
// tile at a time for the map or as a PMTiles archive for download.
//
// Coordinates are taken to be WGS84 longitude/latitude; nothing is
// reprojected.
package tiles

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/plat-geoview/internal/geo"
)

// MaxZoom is the deepest zoom level rendered.
const MaxZoom = 14

// Render encodes the features of fc that touch t as a gzipped MVT with one
// layer called name. It returns nil when nothing survives clipping.
func Render(fc *geo.FeatureCollection, t maptile.Tile, name string) ([]byte, error) {
	if fc.Len() == 0 {
		return nil, nil
	}
	bound := t.Bound()

	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if f.Geometry == nil || !intersects(f.Geometry, bound) {
			continue
		}
		// Clip and ProjectToTile rewrite coordinates in place.
		gf := geojson.NewFeature(orb.Clone(f.Geometry))
		for k, v := range f.Properties {
			if p, ok := tileValue(v); ok {
				gf.Properties[k] = p
			}
		}
		out.Append(gf)
	}
	if len(out.Features) == 0 {
		return nil, nil
	}

	layer := mvt.NewLayer(name, out)
	if eps := simplifyEpsilon(t.Z); eps > 0 {
		layer.Simplify(simplify.DouglasPeucker(eps))
	}
	layer.Clip(bound)
	layer.ProjectToTile(t)
	layer.RemoveEmpty(0.5, 0.5)
	if len(layer.Features) == 0 {
		return nil, nil
	}

	return mvt.MarshalGzipped(mvt.Layers{layer})
}

// tileValue maps an attribute onto the scalar types MVT can carry. Nulls are
// left out; structured values travel as their JSON text.
func tileValue(v geo.Value) (any, bool) {
	switch v.Kind() {
	case geo.KindNull:
		return nil, false
	case geo.KindOpaque:
		return v.String(), true
	default:
		return v.Interface(), true
	}
}

// intersects reports whether g may draw inside tile. Points are exact;
// multi-part geometries are checked per part since split features spread
// their members far apart. Clipping settles the rest.
func intersects(g orb.Geometry, tile orb.Bound) bool {
	if !g.Bound().Intersects(tile) {
		return false
	}

	switch g := g.(type) {
	case orb.Point:
		return tile.Contains(g)
	case orb.MultiPoint:
		for _, p := range g {
			if tile.Contains(p) {
				return true
			}
		}
		return false
	case orb.MultiPolygon:
		for _, p := range g {
			if p.Bound().Intersects(tile) {
				return true
			}
		}
		return false
	case orb.MultiLineString:
		for _, ls := range g {
			if ls.Bound().Intersects(tile) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// tilesCovering returns every tile at zoom z that overlaps b.
func tilesCovering(b orb.Bound, z maptile.Zoom) []maptile.Tile {
	lo := maptile.At(orb.Point{b.Min[0], b.Max[1]}, z)
	hi := maptile.At(orb.Point{b.Max[0], b.Min[1]}, z)
	if lo.X > hi.X {
		lo.X, hi.X = hi.X, lo.X
	}
	if lo.Y > hi.Y {
		lo.Y, hi.Y = hi.Y, lo.Y
	}

	var out []maptile.Tile
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			out = append(out, maptile.New(x, y, z))
		}
	}
	return out
}

// simplifyEpsilon is the Douglas-Peucker tolerance in degrees for a zoom.
func simplifyEpsilon(z maptile.Zoom) float64 {
	switch {
	case z >= MaxZoom:
		return 0
	case z >= 10:
		return 0.00001
	case z >= 6:
		return 0.0001
	case z >= 4:
		return 0.0005
	default:
		return 0.001
	}
}
