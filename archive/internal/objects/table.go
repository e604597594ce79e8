package objects

// Handle identifies an object within one session. The zero Handle is never
// issued.
type Handle uint64

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Table assigns handles to distinct keys.
type Table[K comparable, V any] struct {
	index   map[K]Handle
	entries []entry[K, V]
}

// New creates an empty table.
func New[K comparable, V any]() *Table[K, V] {
	return &Table[K, V]{
		index:   make(map[K]Handle),
		entries: make([]entry[K, V], 0, 16),
	}
}

// Insert adds key with value and returns its handle. When key is already
// present the existing handle is returned with fresh set to false and the
// stored value is left unchanged.
func (t *Table[K, V]) Insert(key K, value V) (h Handle, fresh bool) {
	if h, ok := t.index[key]; ok {
		return h, false
	}
	t.entries = append(t.entries, entry[K, V]{key: key, value: value})
	h = Handle(len(t.entries))
	t.index[key] = h
	return h, true
}

// Value returns the value stored for key.
func (t *Table[K, V]) Value(key K) (V, bool) {
	h, ok := t.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return t.entries[h-1].value, true
}

// Len returns the number of handles issued.
func (t *Table[K, V]) Len() int {
	return len(t.entries)
}
