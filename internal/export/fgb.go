// Package export writes layer collections in downloadable formats.
package export

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sort"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-geoview/internal/geo"
)

// ErrEmpty is returned when there is no geometry to write.
var ErrEmpty = errors.New("export: no features with geometry")

// FlatGeobufOptions configures WriteFlatGeobuf.
type FlatGeobufOptions struct {
	Name        string
	Description string
	// Index adds the packed Hilbert R-tree readers use for bbox queries.
	Index bool
}

type column struct {
	name string
	typ  flattypes.ColumnType
}

// WriteFlatGeobuf writes the features of fc that have a geometry. Columns are
// the union of attribute names, typed by the values they hold; a column
// with mixed scalar kinds is written as strings. Coordinates are declared
// as EPSG:4326.
func WriteFlatGeobuf(w io.Writer, fc *geo.FeatureCollection, opts FlatGeobufOptions) error {
	var features []*geo.Feature
	if fc != nil {
		for _, f := range fc.Features {
			if f.Geometry != nil && fgbType(f.Geometry) != flattypes.GeometryTypeUnknown {
				features = append(features, f)
			}
		}
	}
	if len(features) == 0 {
		return ErrEmpty
	}

	cols := columnsOf(features)
	b := flatbuffers.NewBuilder(4096)

	h := writer.NewHeader(b)
	h.SetGeometryType(commonType(features))
	if opts.Name != "" {
		h.SetName(opts.Name)
	}
	if opts.Description != "" {
		h.SetDescription(opts.Description)
	}
	crs := writer.NewCrs(b)
	crs.SetOrg("EPSG")
	crs.SetCode(4326)
	crs.SetName("WGS 84")
	h.SetCrs(crs)

	if len(cols) > 0 {
		hc := make([]*writer.Column, len(cols))
		for i, c := range cols {
			col := writer.NewColumn(b)
			col.SetName(c.name)
			col.SetTitle(c.name)
			col.SetType(c.typ)
			col.SetNullable(true)
			hc[i] = col
		}
		h.SetColumns(hc)
	}

	gen := &featureGenerator{features: features, columns: cols}
	_, err := writer.NewWriter(h, opts.Index, gen, nil).Write(w)
	return err
}

// featureGenerator hands features to the FlatGeobuf writer one at a time.
type featureGenerator struct {
	features []*geo.Feature
	columns  []column
	next     int
}

func (g *featureGenerator) Generate() *writer.Feature {
	if g.next >= len(g.features) {
		return nil
	}
	f := g.features[g.next]
	g.next++

	b := flatbuffers.NewBuilder(1024)
	out := writer.NewFeature(b)
	out.SetGeometry(fgbGeometry(f.Geometry, b))
	if props := encodeProperties(f.Properties, g.columns); len(props) > 0 {
		out.SetProperties(props)
	}
	return out
}

func columnsOf(features []*geo.Feature) []column {
	kinds := make(map[string]map[geo.Kind]bool)
	for _, f := range features {
		for k, v := range f.Properties {
			if kinds[k] == nil {
				kinds[k] = make(map[geo.Kind]bool)
			}
			if !v.IsNull() {
				kinds[k][v.Kind()] = true
			}
		}
	}

	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)

	cols := make([]column, len(names))
	for i, name := range names {
		cols[i] = column{name: name, typ: columnType(kinds[name])}
	}
	return cols
}

func columnType(kinds map[geo.Kind]bool) flattypes.ColumnType {
	if kinds[geo.KindOpaque] {
		return flattypes.ColumnTypeJson
	}
	if len(kinds) != 1 {
		return flattypes.ColumnTypeString
	}
	switch {
	case kinds[geo.KindNumber]:
		return flattypes.ColumnTypeDouble
	case kinds[geo.KindBool]:
		return flattypes.ColumnTypeBool
	default:
		return flattypes.ColumnTypeString
	}
}

// encodeProperties writes each non-null value as a little-endian column
// index followed by the value. Strings and JSON carry a uint32 byte length.
func encodeProperties(props geo.Properties, cols []column) []byte {
	var buf []byte
	le := binary.LittleEndian
	for i, c := range cols {
		v, ok := props[c.name]
		if !ok || v.IsNull() {
			continue
		}
		buf = le.AppendUint16(buf, uint16(i))

		switch c.typ {
		case flattypes.ColumnTypeDouble:
			n, _ := v.Num()
			buf = le.AppendUint64(buf, math.Float64bits(n))
		case flattypes.ColumnTypeBool:
			var bit byte
			if t, _ := v.BoolValue(); t {
				bit = 1
			}
			buf = append(buf, bit)
		default:
			s := v.String()
			buf = le.AppendUint32(buf, uint32(len(s)))
			buf = append(buf, s...)
		}
	}
	return buf
}

func commonType(features []*geo.Feature) flattypes.GeometryType {
	t := fgbType(features[0].Geometry)
	for _, f := range features[1:] {
		if fgbType(f.Geometry) != t {
			return flattypes.GeometryTypeUnknown
		}
	}
	return t
}

func fgbType(g orb.Geometry) flattypes.GeometryType {
	switch g.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case orb.LineString:
		return flattypes.GeometryTypeLineString
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case orb.Polygon:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	default:
		return flattypes.GeometryTypeUnknown
	}
}

// fgbGeometry flattens g into the xy/ends layout. Multipolygons are written
// as one part per polygon.
func fgbGeometry(g orb.Geometry, b *flatbuffers.Builder) *writer.Geometry {
	out := writer.NewGeometry(b)
	out.SetType(fgbType(g))

	switch g := g.(type) {
	case orb.Point:
		out.SetXY([]float64{g[0], g[1]})
	case orb.MultiPoint:
		out.SetXY(flatten(g))
	case orb.LineString:
		out.SetXY(flatten(g))
	case orb.MultiLineString:
		xy, ends := flattenParts(len(g), func(i int) []orb.Point { return g[i] })
		out.SetXY(xy)
		out.SetEnds(ends)
	case orb.Polygon:
		xy, ends := flattenPolygon(g)
		out.SetXY(xy)
		out.SetEnds(ends)
	case orb.MultiPolygon:
		parts := make([]writer.Geometry, 0, len(g))
		for _, p := range g {
			part := writer.NewGeometry(b)
			part.SetType(flattypes.GeometryTypePolygon)
			xy, ends := flattenPolygon(p)
			part.SetXY(xy)
			part.SetEnds(ends)
			parts = append(parts, *part)
		}
		out.SetParts(parts)
	}
	return out
}

func flattenPolygon(p orb.Polygon) ([]float64, []uint32) {
	return flattenParts(len(p), func(i int) []orb.Point { return p[i] })
}

func flattenParts(n int, part func(int) []orb.Point) ([]float64, []uint32) {
	var xy []float64
	ends := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		xy = append(xy, flatten(part(i))...)
		ends = append(ends, uint32(len(xy)/2))
	}
	return xy, ends
}

func flatten[P ~[]orb.Point](pts P) []float64 {
	xy := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		xy = append(xy, p[0], p[1])
	}
	return xy
}
