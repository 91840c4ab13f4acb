package api

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geoview/internal/service"
)

type UploadInput struct {
	RawBody multipart.Form
}

type UploadBody struct {
	BatchID  string                 `json:"batchId" doc:"Identifier tagging the batch in logs"`
	Layers   []service.LayerSummary `json:"layers" doc:"Layers added by this batch, in completion order"`
	Failures []service.Failure      `json:"failures" doc:"File groups that failed"`
}

// Upload ingests the files of the multipart field "files" as one batch.
// Shapefile parts travel as separate files sharing a base name.
func (h *APIHandler) Upload(ctx context.Context, input *UploadInput) (*struct{ Body UploadBody }, error) {
	files := input.RawBody.File["files"]
	if len(files) == 0 {
		return nil, huma.Error400BadRequest("No files provided")
	}

	uploads := make([]service.Upload, len(files))
	for i, fh := range files {
		uploads[i] = service.Upload{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		}
	}

	res := h.svc.Ingest.Ingest(ctx, uploads)
	body := UploadBody{
		BatchID:  res.BatchID,
		Layers:   make([]service.LayerSummary, len(res.Layers)),
		Failures: res.Failures,
	}
	for i := range res.Layers {
		body.Layers[i] = res.Layers[i].Summary()
	}
	if body.Failures == nil {
		body.Failures = []service.Failure{}
	}
	return &struct{ Body UploadBody }{Body: body}, nil
}
