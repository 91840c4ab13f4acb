package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-geoview/internal/geo"
	"github.com/joeblew999/plat-geoview/internal/service"
)

func openCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func parcels() *geo.FeatureCollection {
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	fc := &geo.FeatureCollection{Name: "parcels", Features: []*geo.Feature{
		{Properties: geo.Properties{"zone": geo.String("north"), "area": geo.Number(12.5)}, Geometry: square},
		{Properties: geo.Properties{"zone": geo.Null()}, Geometry: orb.Point{3, 3}},
	}}
	geo.NormalizeIDs(fc)
	return fc
}

func count(t *testing.T, c *Catalog, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := c.DB().QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return n
}

func TestCatalogPutAndDelete(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()

	l := LayerRow{ID: "parcels-1-0", Name: "parcels", Color: "#1f77b4", Visible: true, Collection: parcels()}
	if err := c.Put(ctx, l); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Putting twice replaces rather than duplicates.
	recolored := l
	recolored.Color = "#ff7f0e"
	if err := c.Put(ctx, recolored); err != nil {
		t.Fatalf("second put: %v", err)
	}
	var color string
	if err := c.DB().QueryRow("SELECT color FROM layers WHERE id = ?", l.ID).Scan(&color); err != nil || color != "#ff7f0e" {
		t.Errorf("color=%q err=%v", color, err)
	}

	if n := count(t, c, "SELECT count(*) FROM layers"); n != 1 {
		t.Errorf("layers=%d, want 1", n)
	}
	if n := count(t, c, "SELECT count(*) FROM features WHERE layer_id = ?", l.ID); n != 2 {
		t.Errorf("features=%d, want 2", n)
	}
	// area, id, zone on the first feature; id, zone on the second.
	if n := count(t, c, "SELECT count(*) FROM attributes WHERE layer_id = ?", l.ID); n != 5 {
		t.Errorf("attributes=%d, want 5", n)
	}

	var area float64
	if err := c.DB().QueryRow(
		"SELECT value_number FROM attributes WHERE attr = 'area' AND layer_id = ?", l.ID,
	).Scan(&area); err != nil || area != 12.5 {
		t.Errorf("area=%v err=%v", area, err)
	}
	if n := count(t, c, "SELECT count(*) FROM attributes WHERE attr = 'zone' AND value_text IS NULL"); n != 1 {
		t.Errorf("null zones=%d, want 1", n)
	}

	if err := c.Delete(ctx, l.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := count(t, c, "SELECT count(*) FROM attributes"); n != 0 {
		t.Errorf("attributes after delete=%d", n)
	}
}

func TestCatalogTablesAndQuery(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()
	if err := c.Put(ctx, LayerRow{ID: "a", Name: "a", Collection: parcels()}); err != nil {
		t.Fatal(err)
	}

	tables, err := c.Tables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"layers": true, "features": true, "attributes": true}
	for _, name := range tables {
		delete(want, name)
	}
	if len(want) != 0 {
		t.Errorf("tables=%v, missing %v", tables, want)
	}

	res, err := c.Query(ctx, "SELECT feature_id, geometry_type FROM features ORDER BY idx")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Columns) != 2 || len(res.Rows) != 2 {
		t.Fatalf("result=%+v", res)
	}
	if res.Rows[1]["geometry_type"] != "Point" || res.Rows[0]["feature_id"] != "feature-0" {
		t.Errorf("rows=%v", res.Rows)
	}

	if _, err := c.Query(ctx, "SELECT * FROM nope"); err == nil {
		t.Errorf("query of unknown table should fail")
	}
}

func TestCatalogFollowsRegistry(t *testing.T) {
	c := openCatalog(t)
	bus := service.NewEventBus()
	reg := service.NewRegistry(bus)

	ctx, cancel := context.WithCancel(context.Background())
	done := c.Follow(ctx, reg, bus)
	defer func() {
		cancel()
		<-done
	}()

	reg.Add(service.Layer{ID: "a", Name: "a", Base: parcels(), Visible: true})
	waitFor(t, func() bool { return count(t, c, "SELECT count(*) FROM features WHERE layer_id = 'a'") == 2 })

	reg.SetSplitProperty("a", "zone")
	waitFor(t, func() bool {
		return count(t, c, "SELECT count(*) FROM layers WHERE split_property = 'zone'") == 1
	})

	reg.Remove("a")
	waitFor(t, func() bool { return count(t, c, "SELECT count(*) FROM layers") == 0 })
}

func TestCatalogCatchesUpAfterBurst(t *testing.T) {
	c := openCatalog(t)
	bus := service.NewEventBus()
	reg := service.NewRegistry(bus)

	ctx, cancel := context.WithCancel(context.Background())
	done := c.Follow(ctx, reg, bus)
	defer func() {
		cancel()
		<-done
	}()

	// Far more changes than a subscriber buffers.
	for i := 0; i < 200; i++ {
		reg.Add(service.Layer{ID: fmt.Sprintf("l%d", i), Name: "l", Visible: true})
	}
	waitFor(t, func() bool { return count(t, c, "SELECT count(*) FROM layers") == 200 })

	for i := 0; i < 150; i++ {
		reg.Remove(fmt.Sprintf("l%d", i))
	}
	waitFor(t, func() bool { return count(t, c, "SELECT count(*) FROM layers") == 50 })
}

func TestCatalogSyncDropsStaleLayers(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()
	if err := c.Put(ctx, LayerRow{ID: "gone", Name: "gone", Collection: parcels()}); err != nil {
		t.Fatal(err)
	}

	reg := service.NewRegistry(nil)
	reg.Add(service.Layer{ID: "a", Name: "a", Base: parcels(), Visible: true})
	rev, err := c.Sync(ctx, reg)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if rev != reg.Revision() {
		t.Errorf("rev=%d, want %d", rev, reg.Revision())
	}
	if n := count(t, c, "SELECT count(*) FROM layers WHERE id = 'gone'"); n != 0 {
		t.Errorf("stale layer kept")
	}
	if n := count(t, c, "SELECT count(*) FROM features WHERE layer_id = 'a'"); n != 2 {
		t.Errorf("features=%d, want 2", n)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
