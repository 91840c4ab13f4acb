package decode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Shapefile main file layout (ESRI Shapefile Technical Description, 1998).
const (
	shpFileCode      = 9994
	shpHeaderLen     = 100
	shpRecordHeadLen = 8
)

// ShapeType is the shape type code stored in the .shp header and records.
type ShapeType int32

const (
	ShapeNull        ShapeType = 0
	ShapePoint       ShapeType = 1
	ShapePolyLine    ShapeType = 3
	ShapePolygon     ShapeType = 5
	ShapeMultiPoint  ShapeType = 8
	ShapePointZ      ShapeType = 11
	ShapePolyLineZ   ShapeType = 13
	ShapePolygonZ    ShapeType = 15
	ShapeMultiPointZ ShapeType = 18
	ShapePointM      ShapeType = 21
	ShapePolyLineM   ShapeType = 23
	ShapePolygonM    ShapeType = 25
	ShapeMultiPointM ShapeType = 28
	ShapeMultiPatch  ShapeType = 31
)

func (t ShapeType) String() string {
	switch t {
	case ShapeNull:
		return "Null"
	case ShapePoint, ShapePointZ, ShapePointM:
		return "Point"
	case ShapePolyLine, ShapePolyLineZ, ShapePolyLineM:
		return "PolyLine"
	case ShapePolygon, ShapePolygonZ, ShapePolygonM:
		return "Polygon"
	case ShapeMultiPoint, ShapeMultiPointZ, ShapeMultiPointM:
		return "MultiPoint"
	case ShapeMultiPatch:
		return "MultiPatch"
	default:
		return fmt.Sprintf("ShapeType(%d)", int32(t))
	}
}

// shpReader walks the records of a .shp buffer.
type shpReader struct {
	file string
	buf  []byte
}

// readShp decodes every record of a .shp buffer. Null shapes and multipatches
// yield nil geometries so record positions stay aligned with the .dbf.
func readShp(file string, buf []byte) ([]orb.Geometry, error) {
	r := &shpReader{file: file, buf: buf}
	if len(buf) < shpHeaderLen {
		return nil, r.fail(0, "shorter than the 100-byte header")
	}
	if code := int32(binary.BigEndian.Uint32(buf[0:4])); code != shpFileCode {
		return nil, r.fail(0, fmt.Sprintf("bad file code %d", code))
	}

	fileLen := int(binary.BigEndian.Uint32(buf[24:28])) * 2
	if fileLen < shpHeaderLen {
		return nil, r.fail(24, fmt.Sprintf("file length %d is shorter than the header", fileLen))
	}
	if fileLen > len(buf) {
		return nil, r.fail(len(buf), fmt.Sprintf("truncated: header declares %d bytes, have %d", fileLen, len(buf)))
	}

	var geoms []orb.Geometry
	for off := shpHeaderLen; off < fileLen; {
		if off+shpRecordHeadLen > fileLen {
			return nil, r.fail(off, "truncated record header")
		}
		contentLen := int(binary.BigEndian.Uint32(r.buf[off+4:off+8])) * 2
		start := off + shpRecordHeadLen
		end := start + contentLen
		if end > fileLen || end < start {
			return nil, r.fail(off, fmt.Sprintf("record content of %d bytes runs past end of file", contentLen))
		}

		g, err := r.shape(start, r.buf[start:end])
		if err != nil {
			return nil, err
		}
		geoms = append(geoms, g)
		off = end
	}
	return geoms, nil
}

func (r *shpReader) fail(offset int, reason string) error {
	return &DecodeError{File: r.file, Offset: offset, Reason: reason}
}

// shape decodes one record's content. base is the content's offset in the
// file, for error messages.
func (r *shpReader) shape(base int, c []byte) (orb.Geometry, error) {
	if len(c) < 4 {
		return nil, r.fail(base, "record too short for a shape type")
	}

	st := ShapeType(int32(binary.LittleEndian.Uint32(c[0:4])))
	switch st {
	case ShapeNull, ShapeMultiPatch:
		return nil, nil

	case ShapePoint, ShapePointZ, ShapePointM:
		if len(c) < 20 {
			return nil, r.fail(base, "point record too short")
		}
		return readPoint(c, 4), nil

	case ShapeMultiPoint, ShapeMultiPointZ, ShapeMultiPointM:
		if len(c) < 40 {
			return nil, r.fail(base, "multipoint record too short")
		}
		n := int32(binary.LittleEndian.Uint32(c[36:40]))
		if n < 0 || 40+int(n)*16 > len(c) {
			return nil, r.fail(base, fmt.Sprintf("multipoint declares %d points, record holds fewer", n))
		}
		mp := make(orb.MultiPoint, n)
		for i := range mp {
			mp[i] = readPoint(c, 40+i*16)
		}
		return mp, nil

	case ShapePolyLine, ShapePolyLineZ, ShapePolyLineM:
		parts, err := r.parts(base, c)
		if err != nil {
			return nil, err
		}
		switch len(parts) {
		case 0:
			return nil, nil
		case 1:
			return orb.LineString(parts[0]), nil
		}
		mls := make(orb.MultiLineString, len(parts))
		for i, p := range parts {
			mls[i] = orb.LineString(p)
		}
		return mls, nil

	case ShapePolygon, ShapePolygonZ, ShapePolygonM:
		parts, err := r.parts(base, c)
		if err != nil {
			return nil, err
		}
		rings := make([]orb.Ring, len(parts))
		for i, p := range parts {
			rings[i] = orb.Ring(p)
		}
		return assemblePolygons(rings), nil

	default:
		return nil, r.fail(base, fmt.Sprintf("unsupported shape type %d", int32(st)))
	}
}

// parts reads the bbox/NumParts/NumPoints/Parts/Points layout shared by
// polylines and polygons and slices the points into parts.
func (r *shpReader) parts(base int, c []byte) ([][]orb.Point, error) {
	if len(c) < 44 {
		return nil, r.fail(base, "part record too short")
	}
	numParts := int32(binary.LittleEndian.Uint32(c[36:40]))
	numPoints := int32(binary.LittleEndian.Uint32(c[40:44]))
	if numParts < 0 || numPoints < 0 {
		return nil, r.fail(base+36, "negative part or point count")
	}

	partsAt := 44
	pointsAt := partsAt + int(numParts)*4
	if pointsAt+int(numPoints)*16 > len(c) {
		return nil, r.fail(base, fmt.Sprintf("%d parts / %d points do not fit in a %d-byte record", numParts, numPoints, len(c)))
	}

	starts := make([]int, numParts)
	for i := range starts {
		s := int(int32(binary.LittleEndian.Uint32(c[partsAt+i*4:])))
		if s < 0 || s > int(numPoints) || (i > 0 && s < starts[i-1]) {
			return nil, r.fail(base+partsAt+i*4, fmt.Sprintf("part %d starts at invalid point index %d", i, s))
		}
		starts[i] = s
	}

	out := make([][]orb.Point, 0, numParts)
	for i, s := range starts {
		e := int(numPoints)
		if i+1 < len(starts) {
			e = starts[i+1]
		}
		pts := make([]orb.Point, e-s)
		for j := range pts {
			pts[j] = readPoint(c, pointsAt+(s+j)*16)
		}
		out = append(out, pts)
	}
	return out, nil
}

func readPoint(c []byte, at int) orb.Point {
	return orb.Point{
		math.Float64frombits(binary.LittleEndian.Uint64(c[at : at+8])),
		math.Float64frombits(binary.LittleEndian.Uint64(c[at+8 : at+16])),
	}
}

// assemblePolygons groups a polygon record's rings. Clockwise rings are outer
// boundaries, counter-clockwise rings are holes. A hole belongs to the
// smallest outer ring containing it; a hole no outer ring contains is kept as
// a polygon of its own.
func assemblePolygons(rings []orb.Ring) orb.Geometry {
	var (
		polys []orb.Polygon
		holes []orb.Ring
	)
	for _, ring := range rings {
		if len(ring) == 0 {
			continue
		}
		if ring.Orientation() == orb.CCW {
			holes = append(holes, ring)
		} else {
			polys = append(polys, orb.Polygon{ring})
		}
	}

	outerCount := len(polys)
	for _, hole := range holes {
		best, bestArea := -1, math.Inf(1)
		for i := 0; i < outerCount; i++ {
			outer := polys[i][0]
			if !ringInside(hole, outer) {
				continue
			}
			if a := math.Abs(planar.Area(outer)); a < bestArea {
				best, bestArea = i, a
			}
		}
		if best < 0 {
			polys = append(polys, orb.Polygon{hole})
			continue
		}
		polys[best] = append(polys[best], hole)
	}

	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	default:
		return orb.MultiPolygon(polys)
	}
}

// ringInside reports whether every vertex of inner lies in or on outer.
func ringInside(inner, outer orb.Ring) bool {
	if !outer.Bound().Contains(inner.Bound().Min) || !outer.Bound().Contains(inner.Bound().Max) {
		return false
	}
	for _, p := range inner {
		if !planar.RingContains(outer, p) {
			return false
		}
	}
	return true
}
