package decode

import (
	"path"
	"strings"
)

// Format is the decoder a file group is routed to.
type Format int

const (
	FormatUnsupported Format = iota
	FormatShapefile
	FormatGeoJSON
)

func (f Format) String() string {
	switch f {
	case FormatShapefile:
		return "shapefile"
	case FormatGeoJSON:
		return "geojson"
	default:
		return "unsupported"
	}
}

// Group is a set of uploaded files sharing a base name.
type Group struct {
	// Name is the shared base name, the future layer name.
	Name string
	// Index is the group's position in the batch.
	Index int
	// Files lists the member file names in upload order.
	Files []string

	Shp  string
	Dbf  string
	Text string
}

// Format routes the group: a .shp wins, then GeoJSON text.
func (g Group) Format() Format {
	switch {
	case g.Shp != "":
		return FormatShapefile
	case g.Text != "":
		return FormatGeoJSON
	default:
		return FormatUnsupported
	}
}

// Err returns an UnsupportedFileError for groups no decoder accepts.
func (g Group) Err() error {
	if g.Format() != FormatUnsupported {
		return nil
	}
	return &UnsupportedFileError{Group: g.Name, Files: g.Files}
}

// GroupFiles groups file names by base name with a recognized extension
// (.shp, .dbf, .geojson, .json; any case) stripped. Groups are returned in
// order of first appearance. Files with any other extension keep their full
// name as the group name and end up unsupported. When a group holds several
// files of one kind, the first wins.
func GroupFiles(names []string) []Group {
	var groups []Group
	byName := make(map[string]int)

	for _, file := range names {
		base, ext := splitExt(file)
		idx, ok := byName[base]
		if !ok {
			idx = len(groups)
			byName[base] = idx
			groups = append(groups, Group{Name: base, Index: idx})
		}

		g := &groups[idx]
		g.Files = append(g.Files, file)
		switch ext {
		case ".shp":
			if g.Shp == "" {
				g.Shp = file
			}
		case ".dbf":
			if g.Dbf == "" {
				g.Dbf = file
			}
		case ".geojson", ".json":
			if g.Text == "" {
				g.Text = file
			}
		}
	}
	return groups
}

// splitExt returns the base name of file and its lower-cased extension when
// the extension is one the decoders know. Directory components are dropped.
func splitExt(file string) (base, ext string) {
	file = path.Base(strings.ReplaceAll(file, "\\", "/"))
	ext = strings.ToLower(path.Ext(file))
	switch ext {
	case ".shp", ".dbf", ".geojson", ".json":
		return strings.TrimSuffix(file, file[len(file)-len(ext):]), ext
	}
	return file, ""
}
