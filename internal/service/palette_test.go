package service

import "testing"

func TestPaletteSize(t *testing.T) {
	if len(Palette) != 32 {
		t.Fatalf("palette=%d colours, want 32", len(Palette))
	}
	seen := make(map[string]bool)
	for _, c := range Palette {
		if seen[c] {
			t.Errorf("duplicate palette colour %s", c)
		}
		seen[c] = true
	}
}

func TestLayerColor(t *testing.T) {
	tests := []struct {
		existing, index int
		want            string
	}{
		{0, 0, Palette[0]},
		{0, 1, Palette[1]},
		{0, 2, Palette[2]},
		{5, 1, Palette[6]},
		{31, 1, Palette[0]},
		{40, 0, Palette[8]},
	}
	for _, tt := range tests {
		if got := LayerColor(tt.existing, tt.index); got != tt.want {
			t.Errorf("LayerColor(%d, %d)=%s, want %s", tt.existing, tt.index, got, tt.want)
		}
	}
}

func TestDarken(t *testing.T) {
	tests := []struct {
		in     string
		amount float64
		want   string
	}{
		{"#ffffff", 0.5, "#7f7f7f"},
		{"#0a1414", 0.5, "#050a0a"},
		{"#000000", 0.3, "#000000"},
		{"#123456", 0, "#123456"},
		{"red", 0.3, "red"},
		{"#zzzzzz", 0.3, "#zzzzzz"},
	}
	for _, tt := range tests {
		if got := Darken(tt.in, tt.amount); got != tt.want {
			t.Errorf("Darken(%s, %v)=%s, want %s", tt.in, tt.amount, got, tt.want)
		}
	}
}

func TestResolveSplitColor(t *testing.T) {
	l := testLayer("a", regions())
	l.Color = "#ffffff"
	l.SplitColors = map[string]string{"north": "#00ff00"}

	if got := ResolveSplitColor(&l, "north", false); got != "#00ff00" {
		t.Errorf("override=%s, want #00ff00", got)
	}
	if got := ResolveSplitColor(&l, "south", false); got != "#ffffff" {
		t.Errorf("default=%s, want layer colour", got)
	}
	if got := ResolveSplitColor(&l, "north", true); got != Darken("#ffffff", HighlightAmount) {
		t.Errorf("selected=%s, want highlight", got)
	}
	if OutlineColor(true) != SelectedOutline || OutlineColor(false) != DefaultOutline {
		t.Errorf("outline colours swapped")
	}
}

func TestStyleOf(t *testing.T) {
	l := testLayer("a", regions())
	st := StyleOf(&l, "")
	if st.Field != "id" || st.Values != nil || st.Opacity != FillOpacity {
		t.Fatalf("unsplit style=%+v", st)
	}

	r := NewRegistry(nil)
	r.Add(l)
	r.SplitBy("a", "region")
	r.SetSplitValueVisible("a", "south", false)
	r.SetSplitColor("a", "south", "#abcdef")
	split, _ := r.Get("a")

	st = StyleOf(&split, "north")
	if st.Field != "region" || len(st.Values) != 2 {
		t.Fatalf("split style=%+v", st)
	}
	north, south := st.Values[0], st.Values[1]
	if north.Fill != st.Highlight || north.Outline != SelectedOutline {
		t.Errorf("north=%+v, want highlighted", north)
	}
	if south.Fill != "#abcdef" || south.Outline != DefaultOutline || south.Visible {
		t.Errorf("south=%+v, want override, default outline, hidden", south)
	}
}
