package tiles

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-geoview/internal/geo"
)

// PMTiles v3 layout constants.
const (
	pmHeaderLen   = 127
	pmRootMax     = 16384 - pmHeaderLen
	pmGzip        = 2
	pmTileTypeMVT = 1
)

// ErrTooManyTiles is returned when an archive's directory would not fit in
// the root directory a single PMTiles read fetches.
var ErrTooManyTiles = errors.New("too many tiles for a single-directory archive")

// ArchiveOptions configures WriteArchive.
type ArchiveOptions struct {
	Name    string
	MinZoom maptile.Zoom
	MaxZoom maptile.Zoom
}

type archiveTile struct {
	id   uint64
	data []byte
}

// WriteArchive renders fc at every zoom in the range and writes a PMTiles v3
// archive holding the non-empty tiles.
func WriteArchive(w io.Writer, fc *geo.FeatureCollection, opts ArchiveOptions) error {
	if opts.MaxZoom > MaxZoom {
		opts.MaxZoom = MaxZoom
	}
	if opts.MinZoom > opts.MaxZoom {
		return fmt.Errorf("min zoom %d above max zoom %d", opts.MinZoom, opts.MaxZoom)
	}

	var tiles []archiveTile
	for z := opts.MinZoom; z <= opts.MaxZoom; z++ {
		seen := make(map[maptile.Tile]bool)
		for _, f := range fc.Features {
			if f.Geometry == nil {
				continue
			}
			for _, t := range tilesCovering(f.Geometry.Bound(), z) {
				if seen[t] {
					continue
				}
				seen[t] = true
				data, err := Render(fc, t, opts.Name)
				if err != nil {
					return fmt.Errorf("render %d/%d/%d: %w", t.Z, t.X, t.Y, err)
				}
				if data != nil {
					tiles = append(tiles, archiveTile{id: tileID(t), data: data})
				}
			}
		}
	}
	if len(tiles) == 0 {
		return errors.New("no tiles to write")
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].id < tiles[j].id })

	dir, err := gzipped(directory(tiles))
	if err != nil {
		return err
	}
	if len(dir) > pmRootMax {
		return ErrTooManyTiles
	}
	meta, err := json.Marshal(map[string]any{
		"name":    opts.Name,
		"format":  "pbf",
		"minzoom": opts.MinZoom,
		"maxzoom": opts.MaxZoom,
		"vector_layers": []map[string]any{
			{"id": opts.Name, "minzoom": opts.MinZoom, "maxzoom": opts.MaxZoom},
		},
	})
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if meta, err = gzipped(meta); err != nil {
		return err
	}

	var dataLen uint64
	for _, t := range tiles {
		dataLen += uint64(len(t.data))
	}

	h := make([]byte, pmHeaderLen)
	copy(h, "PMTiles")
	h[7] = 3
	le := binary.LittleEndian
	root := uint64(pmHeaderLen)
	metaOff := root + uint64(len(dir))
	dataOff := metaOff + uint64(len(meta))
	le.PutUint64(h[8:], root)
	le.PutUint64(h[16:], uint64(len(dir)))
	le.PutUint64(h[24:], metaOff)
	le.PutUint64(h[32:], uint64(len(meta)))
	// No leaf directories: offsets 40 and 48 stay zero.
	le.PutUint64(h[56:], dataOff)
	le.PutUint64(h[64:], dataLen)
	le.PutUint64(h[72:], uint64(len(tiles)))
	le.PutUint64(h[80:], uint64(len(tiles)))
	le.PutUint64(h[88:], uint64(len(tiles)))
	h[96] = 1 // clustered
	h[97] = pmGzip
	h[98] = pmGzip
	h[99] = pmTileTypeMVT
	h[100] = uint8(opts.MinZoom)
	h[101] = uint8(opts.MaxZoom)
	b := fc.Bound()
	putE7(h[102:], b.Min[0])
	putE7(h[106:], b.Min[1])
	putE7(h[110:], b.Max[0])
	putE7(h[114:], b.Max[1])
	h[118] = uint8(opts.MinZoom)
	c := b.Center()
	putE7(h[119:], c[0])
	putE7(h[123:], c[1])

	for _, part := range [][]byte{h, dir, meta} {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}
	for _, t := range tiles {
		if _, err := w.Write(t.data); err != nil {
			return err
		}
	}
	return nil
}

// directory encodes tile entries column by column as PMTiles varints. Tiles
// are stored back to back, so every offset after the first is implied.
func directory(tiles []archiveTile) []byte {
	var buf []byte
	buf = binary.AppendUvarint(buf, uint64(len(tiles)))

	var last uint64
	for _, t := range tiles {
		buf = binary.AppendUvarint(buf, t.id-last)
		last = t.id
	}
	for range tiles {
		buf = binary.AppendUvarint(buf, 1) // run length
	}
	for _, t := range tiles {
		buf = binary.AppendUvarint(buf, uint64(len(t.data)))
	}
	for i := range tiles {
		if i == 0 {
			buf = binary.AppendUvarint(buf, 1) // offset 0, plus one
		} else {
			buf = binary.AppendUvarint(buf, 0)
		}
	}
	return buf
}

// tileID numbers tiles along a Hilbert curve per zoom, after all tiles of
// shallower zooms.
func tileID(t maptile.Tile) uint64 {
	z := uint32(t.Z)
	id := (uint64(1)<<(2*z) - 1) / 3

	x, y := t.X, t.Y
	n := uint32(1) << z
	for s := n / 2; s > 0; s /= 2 {
		var rx, ry uint32
		if x&s != 0 {
			rx = 1
		}
		if y&s != 0 {
			ry = 1
		}
		id += uint64(s) * uint64(s) * uint64((3*rx)^ry)
		if ry == 0 {
			if rx == 1 {
				x = n - 1 - x
				y = n - 1 - y
			}
			x, y = y, x
		}
	}
	return id
}

func putE7(b []byte, deg float64) {
	binary.LittleEndian.PutUint32(b, uint32(int32(math.Round(deg*1e7))))
}

func gzipped(b []byte) ([]byte, error) {
	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
