package service

import (
	"sort"

	"github.com/paulmach/orb"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/joeblew999/plat-geoview/internal/geo"
)

// Split groups the features of fc by the string form of attr and merges each
// group's polygons into one MultiPolygon feature. Features whose attr is
// absent, null or "" are left out. Features with the attribute but without
// polygonal geometry add nothing to the output and are counted in Dropped;
// a group made only of those still gets a value with an empty MultiPolygon.
//
// Values come out in collation order with a byte-order tie break, so the same
// input always gives the same output.
func Split(fc *geo.FeatureCollection, attr string) *SplitState {
	if fc == nil {
		fc = &geo.FeatureCollection{}
	}
	groups := make(map[string]orb.MultiPolygon)
	dropped := 0

	for _, f := range fc.Features {
		v, ok := f.Properties[attr]
		if !ok || v.IsEmpty() {
			continue
		}
		key := v.String()
		members, seen := groups[key]
		if !seen {
			members = orb.MultiPolygon{}
		}

		switch g := f.Geometry.(type) {
		case orb.Polygon:
			members = append(members, g)
		case orb.MultiPolygon:
			members = append(members, g...)
		default:
			dropped++
		}
		groups[key] = members
	}

	values := make([]string, 0, len(groups))
	for k := range groups {
		values = append(values, k)
	}
	sortValues(values)

	out := &geo.FeatureCollection{
		Name:     fc.Name,
		Features: make([]*geo.Feature, len(values)),
	}
	visible := make(map[string]bool, len(values))
	for i, v := range values {
		out.Features[i] = &geo.Feature{
			ID:         v,
			Properties: geo.Properties{attr: geo.String(v)},
			Geometry:   groups[v],
		}
		visible[v] = true
	}

	return &SplitState{
		Property:   attr,
		Collection: out,
		Values:     values,
		Visible:    visible,
		Dropped:    dropped,
	}
}

// sortValues orders split values for display. A Collator is not safe for
// concurrent use, so each call builds its own.
func sortValues(values []string) {
	c := collate.New(language.Und)
	sort.SliceStable(values, func(i, j int) bool {
		if r := c.CompareString(values[i], values[j]); r != 0 {
			return r < 0
		}
		return values[i] < values[j]
	})
}

// PropertyNames lists the attribute names a layer can be split by: the
// sorted keys of its first feature.
func PropertyNames(fc *geo.FeatureCollection) []string {
	if fc.Len() == 0 {
		return nil
	}
	return fc.Features[0].Properties.Keys()
}
