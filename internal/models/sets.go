package models

// The like/save/follow/book fields are duplicate-free string sets kept as
// slices (order irrelevant). These helpers keep insert/remove idempotent so
// a retried mutation converges instead of duplicating.

// ContainsKey reports whether key is present in set.
func ContainsKey(set []string, key string) bool {
	for _, k := range set {
		if k == key {
			return true
		}
	}
	return false
}

// AddKey returns set with key inserted, unchanged if already present.
func AddKey(set []string, key string) []string {
	if ContainsKey(set, key) {
		return set
	}
	return append(set, key)
}

// RemoveKey returns set with key removed, unchanged if absent.
func RemoveKey(set []string, key string) []string {
	for i, k := range set {
		if k == key {
			return append(set[:i], set[i+1:]...)
		}
	}
	return set
}
