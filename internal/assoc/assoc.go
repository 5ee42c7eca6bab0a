// Package assoc implements the sparse keyed associations stored inside QoS
// records, such as a profile's queue number to entry mapping.
//
// An Association is a value: it is read from a record, and every change
// produces a new Association that replaces the whole field. Stored
// associations are never mutated in place, so a record can never hold a
// half-written key/value list.
//
// Lookups scan linearly. Associations hold at most a few dozen pairs
// (8 queues, 64 code points), and the order of pairs carries no meaning.
package assoc

// Pair is a single key/value entry of an Association.
type Pair[K comparable, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

// Association is an insertion-ordered list of unique keys and their values.
// The zero value is an empty association ready to use.
type Association[K comparable, V any] []Pair[K, V]

// Get returns the value stored for key.
func (a Association[K, V]) Get(key K) (V, bool) {
	for _, p := range a {
		if p.Key == key {
			return p.Value, true
		}
	}
	var zero V
	return zero, false
}

// Has reports whether key is present.
func (a Association[K, V]) Has(key K) bool {
	_, ok := a.Get(key)
	return ok
}

// Len returns the number of pairs.
func (a Association[K, V]) Len() int {
	return len(a)
}

// Keys returns the keys in insertion order.
func (a Association[K, V]) Keys() []K {
	keys := make([]K, 0, len(a))
	for _, p := range a {
		keys = append(keys, p.Key)
	}
	return keys
}

// Values returns the values in insertion order.
func (a Association[K, V]) Values() []V {
	values := make([]V, 0, len(a))
	for _, p := range a {
		values = append(values, p.Value)
	}
	return values
}

// with returns a copy of a with (key, value) appended. The receiver is left
// untouched so callers holding the old association never observe the change.
func (a Association[K, V]) with(key K, value V) Association[K, V] {
	next := make(Association[K, V], len(a), len(a)+1)
	copy(next, a)
	return append(next, Pair[K, V]{Key: key, Value: value})
}

// Upsert returns the value stored for key, creating it when absent.
//
// When key is missing, newValue produces the value, and replace receives the
// complete new association (all previous pairs plus the new one) so that it
// can be written back as a single field. The boolean result reports whether
// a value was created. Upsert is the only way to add a key, which keeps keys
// unique.
func Upsert[K comparable, V any](
	a Association[K, V],
	key K,
	newValue func() (V, error),
	replace func(Association[K, V]) error,
) (V, bool, error) {
	if v, ok := a.Get(key); ok {
		return v, false, nil
	}

	v, err := newValue()
	if err != nil {
		var zero V
		return zero, false, err
	}

	if err := replace(a.with(key, v)); err != nil {
		var zero V
		return zero, false, err
	}

	return v, true, nil
}
