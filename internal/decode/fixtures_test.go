package decode

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
)

// Shapefile and dBASE fixtures built in memory.

type xy [2]float64

var le = binary.LittleEndian

func buildShp(shapeType int32, records ...[]byte) []byte {
	var body bytes.Buffer
	for i, c := range records {
		var hdr [8]byte
		binary.BigEndian.PutUint32(hdr[0:], uint32(i+1))
		binary.BigEndian.PutUint32(hdr[4:], uint32(len(c)/2))
		body.Write(hdr[:])
		body.Write(c)
	}

	head := make([]byte, shpHeaderLen)
	binary.BigEndian.PutUint32(head[0:], shpFileCode)
	binary.BigEndian.PutUint32(head[24:], uint32((shpHeaderLen+body.Len())/2))
	le.PutUint32(head[28:], 1000)
	le.PutUint32(head[32:], uint32(shapeType))
	return append(head, body.Bytes()...)
}

func nullShape() []byte {
	return make([]byte, 4)
}

func pointShape(x, y float64) []byte {
	c := make([]byte, 20)
	le.PutUint32(c[0:], uint32(ShapePoint))
	le.PutUint64(c[4:], math.Float64bits(x))
	le.PutUint64(c[12:], math.Float64bits(y))
	return c
}

func partShape(st ShapeType, parts ...[]xy) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	c := make([]byte, 44+4*len(parts)+16*n)
	le.PutUint32(c[0:], uint32(st))
	le.PutUint32(c[36:], uint32(len(parts)))
	le.PutUint32(c[40:], uint32(n))

	at, idx := 44, 0
	for _, p := range parts {
		le.PutUint32(c[at:], uint32(idx))
		at += 4
		idx += len(p)
	}
	for _, p := range parts {
		for _, pt := range p {
			le.PutUint64(c[at:], math.Float64bits(pt[0]))
			le.PutUint64(c[at+8:], math.Float64bits(pt[1]))
			at += 16
		}
	}
	return c
}

func polygonShape(rings ...[]xy) []byte {
	return partShape(ShapePolygon, rings...)
}

// cwSquare is a closed clockwise square, an outer ring.
func cwSquare(min, max float64) []xy {
	return []xy{{min, min}, {min, max}, {max, max}, {max, min}, {min, min}}
}

// ccwSquare is a closed counter-clockwise square, a hole.
func ccwSquare(min, max float64) []xy {
	return []xy{{min, min}, {max, min}, {max, max}, {min, max}, {min, min}}
}

type dbfColumn struct {
	name   string
	typ    byte
	length int
}

func buildDbf(cols []dbfColumn, rows ...[]string) []byte {
	headerLen := dbfHeaderLen + dbfFieldLen*len(cols) + 1
	recordLen := 1
	for _, c := range cols {
		recordLen += c.length
	}

	buf := make([]byte, headerLen+recordLen*len(rows)+1)
	buf[0] = 0x03
	le.PutUint32(buf[4:], uint32(len(rows)))
	le.PutUint16(buf[8:], uint16(headerLen))
	le.PutUint16(buf[10:], uint16(recordLen))
	for i, c := range cols {
		d := buf[dbfHeaderLen+dbfFieldLen*i:]
		copy(d[0:11], c.name)
		d[11] = c.typ
		d[16] = byte(c.length)
	}
	buf[headerLen-1] = dbfFieldTerminal

	for r, row := range rows {
		at := headerLen + r*recordLen
		buf[at] = ' '
		at++
		for i, c := range cols {
			cell := row[i]
			if len(cell) < c.length {
				cell += strings.Repeat(" ", c.length-len(cell))
			}
			copy(buf[at:at+c.length], cell)
			at += c.length
		}
	}
	buf[len(buf)-1] = 0x1A
	return buf
}
