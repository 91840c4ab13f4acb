package db

import (
	"context"
	"fmt"

	"github.com/joeblew999/plat-geoview/internal/logger"
	"github.com/joeblew999/plat-geoview/internal/service"
)

// Follow mirrors registry changes into the catalog until ctx is done. The
// returned channel is closed once the follower has stopped.
//
// Subscribers drop events when they fall behind, so every layer event is
// checked against the last applied revision. After a gap, or a failed
// write, the catalog is rebuilt from the registry once the backlog drains.
func (c *Catalog) Follow(ctx context.Context, reg *service.Registry, bus *service.EventBus) <-chan struct{} {
	ch := bus.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer bus.Unsubscribe(ch)

		last, err := c.Sync(ctx, reg)
		if err != nil {
			logger.L().Warn("catalog sync failed", "error", err)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if ev.Resource != resourceLayers || ev.Revision <= last {
					continue
				}
				if ev.Revision == last+1 {
					if err := c.apply(ctx, reg, ev); err != nil {
						logger.L().Warn("catalog sync failed", "layer", ev.ID, "action", ev.Action, "error", err)
					} else {
						last = ev.Revision
					}
				}
				if len(ch) > 0 || reg.Revision() <= last {
					continue
				}
				logger.L().Debug("catalog behind registry, resyncing", "catalog", last, "registry", reg.Revision())
				if rev, err := c.Sync(ctx, reg); err != nil {
					logger.L().Warn("catalog sync failed", "error", err)
				} else {
					last = rev
				}
			}
		}
	}()
	return done
}

// Sync makes the catalog hold exactly the registered layers and returns
// the registry revision it reflects.
func (c *Catalog) Sync(ctx context.Context, reg *service.Registry) (uint64, error) {
	// Read before listing: later changes are replayed on top, and every
	// write here is idempotent.
	rev := reg.Revision()
	layers := reg.List()

	keep := make(map[string]bool, len(layers))
	for _, l := range layers {
		keep[l.ID] = true
		if err := c.Put(ctx, row(l)); err != nil {
			return 0, err
		}
	}

	stored, err := c.layerIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range stored {
		if keep[id] {
			continue
		}
		if err := c.Delete(ctx, id); err != nil {
			return 0, err
		}
	}
	return rev, nil
}

func (c *Catalog) layerIDs(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT id FROM layers")
	if err != nil {
		return nil, fmt.Errorf("list layers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list layers: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (c *Catalog) apply(ctx context.Context, reg *service.Registry, ev service.Event) error {
	switch ev.Action {
	case service.ActionDeleted:
		return c.Delete(ctx, ev.ID)
	case service.ActionCreated:
		if l, ok := reg.Get(ev.ID); ok {
			return c.Put(ctx, row(l))
		}
	case service.ActionUpdated:
		if l, ok := reg.Get(ev.ID); ok {
			return c.Update(ctx, l.ID, l.Visible, l.SplitProperty)
		}
	}
	return nil
}

const resourceLayers = "layers"

func row(l service.Layer) LayerRow {
	return LayerRow{
		ID:            l.ID,
		Name:          l.Name,
		Color:         l.Color,
		Visible:       l.Visible,
		SplitProperty: l.SplitProperty,
		Collection:    l.Base,
	}
}
