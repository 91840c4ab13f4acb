package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geoview/internal/service"
)

type PropertiesBody struct {
	Properties []string `json:"properties" doc:"Attribute names of the first feature, sorted"`
}

type SplitPropertyBody struct {
	Property string `json:"property" doc:"Attribute to split by; empty clears the choice" example:"region"`
}

type SplitInput struct {
	IDInput
	By string `query:"by" doc:"Choose this attribute and split in one step" example:"region"`
}

type ColorBody struct {
	Color string `json:"color" pattern:"^#[0-9a-fA-F]{6}$" doc:"Fill colour as #rrggbb" example:"#2ca02c"`
}

// RegisterSplit registers the attribute split routes.
func (h *APIHandler) RegisterSplit(api huma.API) {
	huma.Get(api, "/api/v1/layers/{id}/properties", h.GetProperties, huma.OperationTags("split"))
	huma.Put(api, "/api/v1/layers/{id}/split-property", h.PutSplitProperty, huma.OperationTags("split"))
	huma.Post(api, "/api/v1/layers/{id}/split", h.PostSplit, huma.OperationTags("split"))
	huma.Delete(api, "/api/v1/layers/{id}/split", h.DeleteSplit, huma.OperationTags("split"))
	huma.Put(api, "/api/v1/layers/{id}/split/visible", h.PutAllSplitVisible, huma.OperationTags("split"))
	huma.Put(api, "/api/v1/layers/{id}/split/values/{value}/visible", h.PutSplitValueVisible, huma.OperationTags("split"))
	huma.Put(api, "/api/v1/layers/{id}/split/values/{value}/color", h.PutSplitColor, huma.OperationTags("split"))
}

func (h *APIHandler) GetProperties(ctx context.Context, input *IDInput) (*struct{ Body PropertiesBody }, error) {
	l, err := h.layer(input.ID)
	if err != nil {
		return nil, err
	}
	props := service.PropertyNames(l.Base)
	if props == nil {
		props = []string{}
	}
	return &struct{ Body PropertiesBody }{Body: PropertiesBody{Properties: props}}, nil
}

func (h *APIHandler) PutSplitProperty(ctx context.Context, input *struct {
	IDInput
	Body SplitPropertyBody
}) (*LayersOutput, error) {
	return snapshot(h.svc.Registry.SetSplitProperty(input.ID, input.Body.Property)), nil
}

// PostSplit applies the split on the chosen attribute, or on ?by= when given.
func (h *APIHandler) PostSplit(ctx context.Context, input *SplitInput) (*LayersOutput, error) {
	if input.By != "" {
		return snapshot(h.svc.Registry.SplitBy(input.ID, input.By)), nil
	}
	return snapshot(h.svc.Registry.ApplySplit(input.ID)), nil
}

func (h *APIHandler) DeleteSplit(ctx context.Context, input *IDInput) (*LayersOutput, error) {
	return snapshot(h.svc.Registry.ResetSplit(input.ID)), nil
}

func (h *APIHandler) PutAllSplitVisible(ctx context.Context, input *struct {
	IDInput
	Body VisibleBody
}) (*LayersOutput, error) {
	return snapshot(h.svc.Registry.SetAllSplitValuesVisible(input.ID, input.Body.Visible)), nil
}

func (h *APIHandler) PutSplitValueVisible(ctx context.Context, input *struct {
	ValueInput
	Body VisibleBody
}) (*LayersOutput, error) {
	return snapshot(h.svc.Registry.SetSplitValueVisible(input.ID, input.Value, input.Body.Visible)), nil
}

func (h *APIHandler) PutSplitColor(ctx context.Context, input *struct {
	ValueInput
	Body ColorBody
}) (*LayersOutput, error) {
	return snapshot(h.svc.Registry.SetSplitColor(input.ID, input.Value, input.Body.Color)), nil
}
