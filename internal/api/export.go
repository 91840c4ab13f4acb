package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-geoview/internal/export"
	"github.com/joeblew999/plat-geoview/internal/tiles"
)

type FileOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

type ArchiveInput struct {
	IDInput
	MinZoom int `query:"minzoom" minimum:"0" maximum:"14" default:"0" doc:"Shallowest zoom in the archive"`
	MaxZoom int `query:"maxzoom" minimum:"0" maximum:"14" default:"8" doc:"Deepest zoom in the archive"`
}

// RegisterExports registers the download routes.
func (h *APIHandler) RegisterExports(api huma.API) {
	huma.Get(api, "/api/v1/layers/{id}/export.fgb", h.GetFlatGeobuf, huma.OperationTags("export"))
	huma.Get(api, "/api/v1/layers/{id}/export.pmtiles", h.GetPMTiles, huma.OperationTags("export"))
}

// GetFlatGeobuf downloads the drawn collection as FlatGeobuf.
func (h *APIHandler) GetFlatGeobuf(ctx context.Context, input *IDInput) (*FileOutput, error) {
	l, err := h.layer(input.ID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = export.WriteFlatGeobuf(&buf, l.Drawn(), export.FlatGeobufOptions{Name: l.Name, Index: true})
	if errors.Is(err, export.ErrEmpty) {
		return nil, huma.Error422UnprocessableEntity("Layer has nothing to export")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to write FlatGeobuf", err)
	}
	return &FileOutput{
		ContentType:        "application/flatgeobuf",
		ContentDisposition: fmt.Sprintf(`attachment; filename="%s.fgb"`, l.Name),
		Body:               buf.Bytes(),
	}, nil
}

// GetPMTiles downloads the drawn collection as a PMTiles vector archive.
func (h *APIHandler) GetPMTiles(ctx context.Context, input *ArchiveInput) (*FileOutput, error) {
	l, err := h.layer(input.ID)
	if err != nil {
		return nil, err
	}
	if input.MinZoom > input.MaxZoom {
		return nil, huma.Error400BadRequest("minzoom must not exceed maxzoom")
	}

	var buf bytes.Buffer
	err = tiles.WriteArchive(&buf, l.Drawn(), tiles.ArchiveOptions{
		Name:    l.Name,
		MinZoom: maptile.Zoom(input.MinZoom),
		MaxZoom: maptile.Zoom(input.MaxZoom),
	})
	switch {
	case errors.Is(err, tiles.ErrTooManyTiles):
		return nil, huma.Error422UnprocessableEntity("Too many tiles; lower maxzoom")
	case err != nil:
		return nil, huma.Error422UnprocessableEntity("Failed to build archive: " + err.Error())
	}
	return &FileOutput{
		ContentType:        "application/vnd.pmtiles",
		ContentDisposition: fmt.Sprintf(`attachment; filename="%s.pmtiles"`, l.Name),
		Body:               buf.Bytes(),
	}, nil
}
