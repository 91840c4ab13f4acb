package geo

import (
	"testing"

	"github.com/paulmach/orb"
)

func collectionWithIDs(ids ...Value) *FeatureCollection {
	fc := &FeatureCollection{}
	for _, id := range ids {
		props := Properties{"name": String("x"), IDKey: id}
		fc.Features = append(fc.Features, &Feature{Properties: props, Geometry: orb.Point{0, 0}})
	}
	return fc
}

func TestNormalizeIDs(t *testing.T) {
	fc := collectionWithIDs(String("a"), Null(), String(""), Number(0), Number(42), Bool(false))
	// A feature with no id attribute at all.
	fc.Features = append(fc.Features, &Feature{Geometry: orb.Point{1, 1}})

	dups := NormalizeIDs(fc)
	if len(dups) != 0 {
		t.Fatalf("expected no duplicates, got %v", dups)
	}

	expected := []string{"a", "feature-1", "feature-2", "feature-3", "42", "feature-5", "feature-6"}
	for i, f := range fc.Features {
		if f.ID != expected[i] {
			t.Errorf("feature %d: expected id %q, got %q", i, expected[i], f.ID)
		}
		if got := f.Properties[IDKey].String(); got != expected[i] {
			t.Errorf("feature %d: expected id attribute %q, got %q", i, expected[i], got)
		}
	}
}

func TestNormalizeIDsIdempotent(t *testing.T) {
	fc := collectionWithIDs(Null(), String("b"), Null())
	NormalizeIDs(fc)

	before := make([]string, len(fc.Features))
	for i, f := range fc.Features {
		before[i] = f.ID
	}

	NormalizeIDs(fc)
	for i, f := range fc.Features {
		if f.ID != before[i] {
			t.Errorf("feature %d: id changed from %q to %q", i, before[i], f.ID)
		}
	}
}

func TestNormalizeIDsUnique(t *testing.T) {
	fc := collectionWithIDs(Null(), Null(), String("x"), Null())
	NormalizeIDs(fc)

	seen := make(map[string]bool)
	for _, f := range fc.Features {
		if seen[f.ID] {
			t.Fatalf("duplicate id %q", f.ID)
		}
		seen[f.ID] = true
	}
}

func TestNormalizeIDsReportsDuplicates(t *testing.T) {
	fc := collectionWithIDs(String("a"), String("a"), String("a"), String("b"))
	dups := NormalizeIDs(fc)
	if len(dups) != 1 || dups[0] != "a" {
		t.Fatalf("expected [a], got %v", dups)
	}
	if fc.Features[1].ID != "a" {
		t.Errorf("duplicate source id should be preserved, got %q", fc.Features[1].ID)
	}
}
