package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-geoview/internal/geo"
	"github.com/joeblew999/plat-geoview/internal/service"
)

type SelectBody struct {
	LayerID    string         `json:"layerId" doc:"Layer the renderer reported the hit on"`
	Properties map[string]any `json:"properties" doc:"Attributes of the struck feature"`
	Point      [2]float64     `json:"point" doc:"Interaction coordinate as [x, y]"`
}

type PointBody struct {
	Point [2]float64 `json:"point" doc:"Coordinate to hit test as [x, y]"`
}

type SelectionBody struct {
	Selection *service.Selection `json:"selection" doc:"Current selection; null when nothing is selected"`
}

type SelectionOutput struct {
	Body SelectionBody
}

// RegisterSelection registers the selection routes.
func (h *APIHandler) RegisterSelection(api huma.API) {
	huma.Get(api, "/api/v1/select", h.GetSelection, huma.OperationTags("selection"))
	huma.Post(api, "/api/v1/select", h.PostSelect, huma.OperationTags("selection"))
	huma.Post(api, "/api/v1/select/point", h.PostSelectPoint, huma.OperationTags("selection"))
	huma.Delete(api, "/api/v1/select", h.DeleteSelection, huma.OperationTags("selection"))
}

func (h *APIHandler) GetSelection(ctx context.Context, input *struct{}) (*SelectionOutput, error) {
	return &SelectionOutput{Body: SelectionBody{Selection: h.svc.Selection.Current()}}, nil
}

// PostSelect resolves a hit the renderer already made. A feature without a
// usable identity clears the selection.
func (h *APIHandler) PostSelect(ctx context.Context, input *struct{ Body SelectBody }) (*SelectionOutput, error) {
	props := make(geo.Properties, len(input.Body.Properties))
	for k, v := range input.Body.Properties {
		props[k] = geo.FromAny(v)
	}
	sel := h.svc.Selection.Select(input.Body.LayerID, props, orb.Point(input.Body.Point))
	return &SelectionOutput{Body: SelectionBody{Selection: sel}}, nil
}

// PostSelectPoint hit tests a coordinate against the visible layers, top
// layer first.
func (h *APIHandler) PostSelectPoint(ctx context.Context, input *struct{ Body PointBody }) (*SelectionOutput, error) {
	sel := h.svc.Selection.SelectAt(orb.Point(input.Body.Point))
	return &SelectionOutput{Body: SelectionBody{Selection: sel}}, nil
}

func (h *APIHandler) DeleteSelection(ctx context.Context, input *struct{}) (*struct{}, error) {
	h.svc.Selection.Clear()
	return nil, nil
}
