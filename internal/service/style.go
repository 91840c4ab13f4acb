package service

import "github.com/joeblew999/plat-geoview/internal/geo"

// LayerStyle carries the colour decisions for one layer. A renderer matches
// Field of each drawn feature against Selected and the value entries.
type LayerStyle struct {
	LayerID         string       `json:"layerId" doc:"Layer identifier"`
	Field           string       `json:"field" doc:"Attribute the renderer matches on" example:"id"`
	Fill            string       `json:"fill" doc:"Default fill colour" example:"#1f77b4"`
	Highlight       string       `json:"highlight" doc:"Fill of the selected feature" example:"#15537e"`
	Outline         string       `json:"outline" doc:"Default outline colour" example:"#666"`
	SelectedOutline string       `json:"selectedOutline" doc:"Outline of the selected feature" example:"#1a1a1a"`
	Opacity         float64      `json:"opacity" doc:"Fill opacity" example:"0.66"`
	Selected        string       `json:"selected,omitempty" doc:"Identity of the selected feature on this layer"`
	Values          []ValueStyle `json:"values,omitempty" doc:"Per split value decisions, in display order"`
}

// ValueStyle is the resolved paint of one split value.
type ValueStyle struct {
	Value   string `json:"value" doc:"Split value"`
	Fill    string `json:"fill" doc:"Resolved fill colour"`
	Outline string `json:"outline" doc:"Resolved outline colour"`
	Visible bool   `json:"visible" doc:"Whether the value is drawn"`
}

// StyleOf resolves the paint of l given the selected identity, "" for none.
func StyleOf(l *Layer, selected string) LayerStyle {
	st := LayerStyle{
		LayerID:         l.ID,
		Field:           geo.IDKey,
		Fill:            l.Color,
		Highlight:       Darken(l.Color, HighlightAmount),
		Outline:         DefaultOutline,
		SelectedOutline: SelectedOutline,
		Opacity:         FillOpacity,
		Selected:        selected,
	}
	if l.Split == nil {
		return st
	}

	st.Field = l.Split.Property
	st.Values = make([]ValueStyle, len(l.Split.Values))
	for i, v := range l.Split.Values {
		isSel := selected != "" && v == selected
		st.Values[i] = ValueStyle{
			Value:   v,
			Fill:    ResolveSplitColor(l, v, isSel),
			Outline: OutlineColor(isSel),
			Visible: l.Split.Visible[v],
		}
	}
	return st
}
