// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geoview/internal/db"
	"github.com/joeblew999/plat-geoview/internal/service"
)

// Version is reported by the health and info endpoints.
const Version = "0.1.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	Registry  *service.Registry
	Ingest    *service.IngestService
	Selection *service.SelectionService
	Bus       *service.EventBus
	// Catalog is nil when DuckDB could not be opened.
	Catalog *db.Catalog
	// MaxUploadBytes bounds the multipart upload body.
	MaxUploadBytes int64
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"parcels-1718000000000-0"`
}

type ValueInput struct {
	IDInput
	Value string `path:"value" doc:"Split value" example:"north"`
}

type LayerOutput struct {
	Body service.LayerSummary
}

// LayersOutput is the registry snapshot returned by every layer edit.
type LayersOutput struct {
	Body []service.LayerSummary
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
}

type VisibleBody struct {
	Visible bool `json:"visible" doc:"Whether to draw it"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers the layer registry routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers/upload", h.Upload, huma.OperationTags("layers"),
		func(o *huma.Operation) {
			if h.svc.MaxUploadBytes > 0 {
				o.MaxBodyBytes = h.svc.MaxUploadBytes
			}
		})
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Delete(api, "/api/v1/layers/{id}", h.DeleteLayer, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/visible", h.PutVisible, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}/geojson", h.GetGeoJSON, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}/style", h.GetStyle, huma.OperationTags("layers"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	return snapshot(h.svc.Registry.List()), nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	l, err := h.layer(input.ID)
	if err != nil {
		return nil, err
	}
	return &LayerOutput{Body: l.Summary()}, nil
}

func (h *APIHandler) DeleteLayer(ctx context.Context, input *IDInput) (*LayersOutput, error) {
	return snapshot(h.svc.Registry.Remove(input.ID)), nil
}

func (h *APIHandler) PutVisible(ctx context.Context, input *struct {
	IDInput
	Body VisibleBody
}) (*LayersOutput, error) {
	return snapshot(h.svc.Registry.SetVisible(input.ID, input.Body.Visible)), nil
}

type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// GetGeoJSON returns what the map draws for the layer: the split collection
// restricted to visible values, or the base collection.
func (h *APIHandler) GetGeoJSON(ctx context.Context, input *IDInput) (*GeoJSONOutput, error) {
	l, err := h.layer(input.ID)
	if err != nil {
		return nil, err
	}
	data, err := l.Drawn().MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode layer", err)
	}
	return &GeoJSONOutput{ContentType: "application/geo+json", Body: data}, nil
}

func (h *APIHandler) GetStyle(ctx context.Context, input *IDInput) (*struct{ Body service.LayerStyle }, error) {
	l, err := h.layer(input.ID)
	if err != nil {
		return nil, err
	}
	selected, _ := h.svc.Selection.SelectedIn(l.ID)
	return &struct{ Body service.LayerStyle }{Body: service.StyleOf(&l, selected)}, nil
}

func (h *APIHandler) layer(id string) (service.Layer, error) {
	l, ok := h.svc.Registry.Get(id)
	if !ok {
		return service.Layer{}, huma.Error404NotFound("layer not found")
	}
	return l, nil
}

func snapshot(layers []service.Layer) *LayersOutput {
	out := make([]service.LayerSummary, len(layers))
	for i := range layers {
		out[i] = layers[i].Summary()
	}
	return &LayersOutput{Body: out}
}
