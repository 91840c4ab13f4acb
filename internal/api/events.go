package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geoview/internal/humastar"
	"github.com/joeblew999/plat-geoview/internal/logger"
)

// RegisterEvents registers the Datastar change feed.
func (h *APIHandler) RegisterEvents(api huma.API) {
	huma.Get(api, "/api/v1/events", h.Events, huma.OperationTags("events"))
}

// Events streams the registry and selection to the UI. A snapshot is sent
// on connect and after every change, followed by a resource-changed event.
func (h *APIHandler) Events(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
	return humastar.Stream(func(sse humastar.SSE) {
		ch := h.svc.Bus.Subscribe()
		defer h.svc.Bus.Unsubscribe(ch)

		if err := sse.Signals(h.signals()); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := sse.Signals(h.signals()); err != nil {
					logger.L().Debug("event stream closed", "error", err)
					return
				}
				sse.Dispatch("resource-changed", map[string]any{
					"resource": ev.Resource,
					"action":   ev.Action,
					"id":       ev.ID,
					"revision": ev.Revision,
				})
			}
		}
	}), nil
}

// signals is the state the UI binds to.
func (h *APIHandler) signals() map[string]any {
	return map[string]any{
		"layers":    snapshot(h.svc.Registry.List()).Body,
		"selection": h.svc.Selection.Current(),
		"revision":  h.svc.Registry.Revision(),
	}
}
