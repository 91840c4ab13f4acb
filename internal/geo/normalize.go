package geo

import "strconv"

// IDKey is the attribute holding a feature's identifier.
const IDKey = "id"

// FallbackID returns the identifier assigned to the feature at index when its
// source carries none.
func FallbackID(index int) string {
	return "feature-" + strconv.Itoa(index)
}

// NormalizeIDs gives every feature an identifier. Features whose "id"
// attribute is absent or falsy get feature-<index>; existing ids are left
// alone, so running it twice is harmless. Feature.ID mirrors the attribute.
//
// Duplicate ids found in the source are returned for the caller to report.
// They are not rewritten.
func NormalizeIDs(fc *FeatureCollection) (duplicates []string) {
	if fc == nil {
		return nil
	}

	for i, f := range fc.Features {
		if f.Properties == nil {
			f.Properties = make(Properties)
		}
		if v, ok := f.Properties[IDKey]; !ok || !v.Truthy() {
			f.Properties[IDKey] = String(FallbackID(i))
		}
		f.ID = f.Properties[IDKey].String()
	}
	return DuplicateIDs(fc)
}

// DuplicateIDs lists ids shared by more than one feature, in first-seen order.
func DuplicateIDs(fc *FeatureCollection) []string {
	if fc == nil {
		return nil
	}
	var dups []string
	seen := make(map[string]int, fc.Len())
	for _, f := range fc.Features {
		seen[f.ID]++
		if seen[f.ID] == 2 {
			dups = append(dups, f.ID)
		}
	}
	return dups
}
