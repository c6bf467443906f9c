package domain

// Snapshot maps an item identifier to its rounded score in [0,5].
// A missing key means the item has no feedback yet.
type Snapshot map[string]int

// Clone returns an independent copy. A nil snapshot clones to an empty one.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Score returns the score for id and whether the item has any feedback.
func (s Snapshot) Score(id string) (int, bool) {
	v, ok := s[id]
	return v, ok
}

// DemoSnapshot is served whenever the rating backend cannot be reached or is not configured.
func DemoSnapshot() Snapshot {
	return Snapshot{
		"cucumber-boats": 4,
		"nachos-salad":   5,
		"mocktail":       5,
		"bhel-poori":     4,
	}
}
