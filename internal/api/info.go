package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geoview/internal/service"
)

type InfoHandler struct {
	registry *service.Registry
	dbOK     bool
}

func NewInfoHandler(registry *service.Registry, dbOK bool) *InfoHandler {
	return &InfoHandler{registry: registry, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	Layers   int      `json:"layers" doc:"Layers in the registry"`
	Revision uint64   `json:"revision" doc:"Registry revision"`
	DB       bool     `json:"db" doc:"Whether the catalog is available"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"geojson", "shapefile", "split", "selection", "mvt", "pmtiles", "flatgeobuf"}
	if h.dbOK {
		features = append(features, "duckdb")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-geoview",
		Version:  Version,
		Layers:   h.registry.Len(),
		Revision: h.registry.Revision(),
		DB:       h.dbOK,
		Features: features,
	}}, nil
}
