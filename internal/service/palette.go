package service

import (
	"fmt"
	"math"
	"strconv"
)

// Palette is the ordered set of layer colours.
var Palette = []string{
	"#1f77b4", // blue
	"#ff7f0e", // orange
	"#2ca02c", // green
	"#d62728", // red
	"#9467bd", // purple
	"#8c564b", // brown
	"#e377c2", // pink
	"#7f7f7f", // gray
	"#bcbd22", // olive
	"#17becf", // cyan
	"#aec7e8", // light blue
	"#ffbb78", // light orange
	"#98df8a", // light green
	"#ff9896", // light red
	"#c5b0d5", // light purple
	"#c49c94", // light brown
	"#f7b6d2", // light pink
	"#c7c7c7", // light gray
	"#dbdb8d", // light olive
	"#9edae5", // light cyan
	"#393b79", // deep blue
	"#637939", // deep green
	"#8c6d31", // deep brown
	"#843c39", // deep red
	"#7b4173", // deep purple
	"#5254a3", // dark blue
	"#bd9e39", // gold
	"#e7969c", // rose
	"#de9ed6", // mauve
	"#6b6ecf", // indigo
	"#ce6dbd", // magenta
	"#9c9ede", // soft indigo
}

// Paint constants shared by every layer.
const (
	SelectedOutline = "#1a1a1a"
	DefaultOutline  = "#666"
	FillOpacity     = 0.66
	HighlightAmount = 0.3
)

// LayerColor picks the colour of a new layer from the registry size when its
// batch was dispatched and the layer's position in that batch. Colours repeat
// once the palette is exhausted.
func LayerColor(existing, batchIndex int) string {
	i := (existing + batchIndex) % len(Palette)
	if i < 0 {
		i += len(Palette)
	}
	return Palette[i]
}

// Darken scales each channel of a #rrggbb colour by 1-amount, rounding down.
// Colours it cannot parse are returned unchanged.
func Darken(color string, amount float64) string {
	if len(color) != 7 || color[0] != '#' {
		return color
	}
	n, err := strconv.ParseUint(color[1:], 16, 32)
	if err != nil {
		return color
	}

	scale := func(c uint64) uint64 {
		v := math.Floor(float64(c) * (1 - amount))
		return uint64(math.Max(0, math.Min(255, v)))
	}
	r := scale((n >> 16) & 0xff)
	g := scale((n >> 8) & 0xff)
	b := scale(n & 0xff)
	return fmt.Sprintf("#%06x", r<<16|g<<8|b)
}

// ResolveSplitColor returns the fill of one split value: the highlight when
// selected, else the override, else the layer colour.
func ResolveSplitColor(l *Layer, value string, selected bool) string {
	if selected {
		return Darken(l.Color, HighlightAmount)
	}
	if c, ok := l.SplitColors[value]; ok {
		return c
	}
	return l.Color
}

// OutlineColor returns the outline of a feature or split value.
func OutlineColor(selected bool) string {
	if selected {
		return SelectedOutline
	}
	return DefaultOutline
}
