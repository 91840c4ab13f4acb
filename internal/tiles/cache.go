package tiles

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-geoview/internal/metrics"
	"github.com/joeblew999/plat-geoview/internal/service"
)

// Cache renders tiles of registry layers and keeps the encoded bytes. Entries
// are keyed by registry revision, so any registry change makes older tiles
// unreachable and they age out.
type Cache struct {
	registry *service.Registry
	tiles    *ristretto.Cache
}

// NewCache creates a tile cache bounded to maxBytes of encoded tiles.
func NewCache(registry *service.Registry, maxBytes int64) (*Cache, error) {
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("tile cache: %w", err)
	}
	return &Cache{registry: registry, tiles: c}, nil
}

// Tile returns the drawn collection of layer id at t. ok is false when the
// layer does not exist; a nil slice with ok true is an empty tile.
func (c *Cache) Tile(id string, t maptile.Tile) (data []byte, ok bool, err error) {
	if t.Z > MaxZoom || !t.Valid() {
		return nil, false, fmt.Errorf("tile %d/%d/%d out of range", t.Z, t.X, t.Y)
	}

	// Revision before layer: a concurrent edit can only put newer content
	// under a key that is already stale.
	rev := c.registry.Revision()
	l, ok := c.registry.Get(id)
	if !ok {
		return nil, false, nil
	}

	key := fmt.Sprintf("%s@%d/%d/%d/%d", id, rev, t.Z, t.X, t.Y)
	if v, found := c.tiles.Get(key); found {
		metrics.TileCacheHits.Inc()
		return nonEmpty(v.([]byte)), true, nil
	}
	metrics.TileCacheMisses.Inc()

	data, err = Render(l.Drawn(), t, l.Name)
	if err != nil {
		return nil, true, fmt.Errorf("render %s: %w", key, err)
	}
	if data == nil {
		data = []byte{}
	}
	c.tiles.Set(key, data, int64(len(data))+1)
	c.tiles.Wait()
	return nonEmpty(data), true, nil
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() { c.tiles.Close() }

func nonEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
