package models

// CanonicalPair orders two user identifiers under lexicographic comparison.
// Every site that stores, looks up, or reasons about a relationship pair must
// go through this function so the ordering never drifts between call sites.
func CanonicalPair(a, b string) (lo, hi string) {
	if a <= b {
		return a, b
	}
	return b, a
}
