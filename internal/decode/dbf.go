package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/joeblew999/plat-geoview/internal/geo"
)

// dBASE III table layout.
const (
	dbfHeaderLen     = 32
	dbfFieldLen      = 32
	dbfFieldTerminal = 0x0D
)

type dbfField struct {
	name     string
	typ      byte
	length   int
	decimals int
}

// readDbf decodes every record of a .dbf buffer into attribute maps, one per
// record in file order. Deleted records are kept so positions stay aligned
// with the .shp.
func readDbf(file string, buf []byte) ([]geo.Properties, error) {
	fail := func(offset int, reason string) error {
		return &DecodeError{File: file, Offset: offset, Reason: reason}
	}

	if len(buf) < dbfHeaderLen {
		return nil, fail(0, "shorter than the 32-byte header")
	}
	numRecords := int(binary.LittleEndian.Uint32(buf[4:8]))
	headerLen := int(binary.LittleEndian.Uint16(buf[8:10]))
	recordLen := int(binary.LittleEndian.Uint16(buf[10:12]))
	if headerLen > len(buf) || headerLen < dbfHeaderLen {
		return nil, fail(8, fmt.Sprintf("header length %d outside buffer of %d bytes", headerLen, len(buf)))
	}

	var (
		fields []dbfField
		width  = 1 // deletion flag
	)
	for pos := dbfHeaderLen; pos < headerLen && buf[pos] != dbfFieldTerminal; pos += dbfFieldLen {
		if pos+dbfFieldLen > headerLen {
			return nil, fail(pos, "truncated field descriptor")
		}
		d := buf[pos : pos+dbfFieldLen]
		f := dbfField{
			name:     string(bytes.TrimRight(d[0:11], "\x00 ")),
			typ:      d[11],
			length:   int(d[16]),
			decimals: int(d[17]),
		}
		fields = append(fields, f)
		width += f.length
	}
	if width > recordLen {
		return nil, fail(10, fmt.Sprintf("fields need %d bytes per record, header declares %d", width, recordLen))
	}

	if numRecords > 0 && recordLen == 0 {
		return nil, fail(10, "zero record length")
	}
	if need := int64(headerLen) + int64(numRecords)*int64(recordLen); need > int64(len(buf)) {
		return nil, fail(4, fmt.Sprintf("%d records of %d bytes need %d bytes, buffer has %d", numRecords, recordLen, need, len(buf)))
	}

	records := make([]geo.Properties, 0, numRecords)
	for i := 0; i < numRecords; i++ {
		start := headerLen + i*recordLen
		if start+recordLen > len(buf) {
			return nil, fail(start, fmt.Sprintf("truncated at record %d of %d", i, numRecords))
		}
		props := make(geo.Properties, len(fields))
		at := start + 1
		for _, f := range fields {
			props[f.name] = f.parse(buf[at : at+f.length])
			at += f.length
		}
		records = append(records, props)
	}
	return records, nil
}

// parse converts a raw field cell to a Value. Blank or unparseable cells
// become null.
func (f dbfField) parse(raw []byte) geo.Value {
	text := strings.TrimSpace(strings.Trim(dbfText(raw), "\x00"))

	switch f.typ {
	case 'N', 'F':
		if text == "" {
			return geo.Null()
		}
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return geo.Null()
		}
		return geo.Number(n)

	case 'L':
		if text == "" {
			return geo.Null()
		}
		switch text[0] {
		case 'Y', 'y', 'T', 't':
			return geo.Bool(true)
		case 'N', 'n', 'F', 'f':
			return geo.Bool(false)
		}
		return geo.Null()

	case 'D':
		if len(text) == 8 && isDigits(text) {
			return geo.String(text[0:4] + "-" + text[4:6] + "-" + text[6:8])
		}
	}

	if text == "" {
		return geo.Null()
	}
	return geo.String(text)
}

// dbfText decodes a cell as UTF-8 when valid, otherwise as Windows-1252, the
// usual codepage of files written without a .cpg.
func dbfText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
