// Package set provides a small deduplicating container, used while assembling
// a model to track object identities and declared column names.
package set

// Set stores at most one value per key. Keys are derived from values, so
// callers add and probe with the values themselves
type Set[K comparable, V any] struct {
	keyOf       func(V) K
	valuesByKey map[K]V
}

// NewSet builds a set of self-keyed values, optionally seeded with vals
func NewSet[K comparable](vals ...K) *Set[K, K] {
	s := NewSetWithCustomKey(func(k K) K { return k })
	for _, v := range vals {
		s.Add(v)
	}
	return s
}

// NewSetWithCustomKey builds a set keyed by keyOf(value)
func NewSetWithCustomKey[K comparable, V any](keyOf func(V) K) *Set[K, V] {
	return &Set[K, V]{
		keyOf:       keyOf,
		valuesByKey: make(map[K]V),
	}
}

// Add inserts val, replacing any value sharing its key
func (s *Set[K, V]) Add(val V) {
	s.valuesByKey[s.keyOf(val)] = val
}

func (s *Set[K, V]) Has(val V) bool {
	return s.HasKey(s.keyOf(val))
}

// HasKey probes by key, for callers that hold a key but no value
func (s *Set[K, V]) HasKey(key K) bool {
	_, ok := s.valuesByKey[key]
	return ok
}

func (s *Set[K, V]) Len() int {
	return len(s.valuesByKey)
}
