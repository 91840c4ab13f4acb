package decode

import (
	"errors"
	"reflect"
	"testing"
)

func TestGroupFiles(t *testing.T) {
	groups := GroupFiles([]string{
		"roads.dbf",
		"lakes.geojson",
		"roads.SHP",
		"orphan.dbf",
		"notes.txt",
		"dir/towns.json",
	})

	type want struct {
		name   string
		format Format
		files  []string
	}
	expected := []want{
		{"roads", FormatShapefile, []string{"roads.dbf", "roads.SHP"}},
		{"lakes", FormatGeoJSON, []string{"lakes.geojson"}},
		{"orphan", FormatUnsupported, []string{"orphan.dbf"}},
		{"notes.txt", FormatUnsupported, []string{"notes.txt"}},
		{"towns", FormatGeoJSON, []string{"dir/towns.json"}},
	}

	if len(groups) != len(expected) {
		t.Fatalf("groups=%d, want %d: %+v", len(groups), len(expected), groups)
	}
	for i, w := range expected {
		g := groups[i]
		if g.Name != w.name || g.Index != i || g.Format() != w.format {
			t.Errorf("group %d: got %s/%d/%s, want %s/%d/%s", i, g.Name, g.Index, g.Format(), w.name, i, w.format)
		}
		if !reflect.DeepEqual(g.Files, w.files) {
			t.Errorf("group %d: files=%v, want %v", i, g.Files, w.files)
		}
	}

	if groups[0].Shp != "roads.SHP" || groups[0].Dbf != "roads.dbf" {
		t.Errorf("roads members: shp=%q dbf=%q", groups[0].Shp, groups[0].Dbf)
	}
}

func TestGroupErr(t *testing.T) {
	groups := GroupFiles([]string{"a.shp", "b.dbf"})
	if err := groups[0].Err(); err != nil {
		t.Errorf("a: err=%v, want nil", err)
	}

	var ue *UnsupportedFileError
	if err := groups[1].Err(); !errors.As(err, &ue) {
		t.Fatalf("b: err=%v, want *UnsupportedFileError", err)
	}
	if ue.Group != "b" {
		t.Errorf("group=%q, want b", ue.Group)
	}
}

func TestGroupPrefersShapefile(t *testing.T) {
	groups := GroupFiles([]string{"x.geojson", "x.shp"})
	if len(groups) != 1 || groups[0].Format() != FormatShapefile {
		t.Fatalf("got %+v, want one shapefile group", groups)
	}
}
