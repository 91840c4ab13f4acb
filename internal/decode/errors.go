// Package decode turns uploaded vector files into the canonical feature
// model. It understands GeoJSON text and Shapefile pairs (.shp with an
// optional .dbf), and groups a batch of file names into decodable units.
package decode

import (
	"fmt"
	"strings"
)

// ParseError indicates malformed GeoJSON text or a top-level object that is
// not a FeatureCollection.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DecodeError indicates a truncated or structurally invalid binary buffer.
type DecodeError struct {
	File   string
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("decode %s at byte %d: %s", e.File, e.Offset, e.Reason)
	}
	return fmt.Sprintf("decode %s: %s", e.File, e.Reason)
}

// UnsupportedFileError indicates a file group that matches no known format.
type UnsupportedFileError struct {
	Group string
	Files []string
}

func (e *UnsupportedFileError) Error() string {
	return fmt.Sprintf("unsupported file group %q (%s): expected .shp (with optional .dbf) or .geojson",
		e.Group, strings.Join(e.Files, ", "))
}

// ValidationError is reserved for geometry integrity checks. Nothing returns
// it yet.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid geometry: " + e.Reason
}
