package util

import (
	"cmp"
	"slices"
)

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SortedKeysDesc returns the keys of m in descending order.
func SortedKeysDesc[K cmp.Ordered, V any](m map[K]V) []K {
	keys := SortedKeys(m)
	slices.Reverse(keys)
	return keys
}
