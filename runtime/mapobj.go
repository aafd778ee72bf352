package runtime

import "sync"

// Map is the heap layout for a naml map: opaque to codegen, backed by
// a hash table of i64 keys to i64 values (§3.6). Concurrent naml
// access to the same map value is serialized by a mutex rather than
// left undefined, since naml has no borrow checker preventing aliased
// mutable access across spawned tasks.
type Map struct {
	header HeapHeader
	mu     sync.Mutex
	data   map[int64]int64
	handle int64
}

func (m *Map) Header() *HeapHeader { return &m.header }
func (m *Map) Handle() int64       { return m.handle }

// MapNew allocates a new Map with the given initial capacity hint
// (§4.5.1's map literal constructs with capacity 16), refcount 1.
func MapNew(capacity int) *Map {
	m := &Map{
		header: HeapHeader{refcount: 1, tag: TagMap},
		data:   make(map[int64]int64, capacity),
	}
	m.handle = registerObject(m)
	return m
}

// Len returns the number of entries.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Contains reports whether key is present (backs the `map.contains`
// intrinsic and the forced-index existence check, §4.5.1).
func (m *Map) Contains(key int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// Get returns the raw value for key and whether it was present,
// backing the generic `map_get` entrypoint used when the element type
// is unknown at codegen.
func (m *Map) Get(key int64) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Set installs value for key without touching refcounts — used only
// when the value's element type is unknown at codegen, per §4.4.
func (m *Map) Set(key, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// MapSetTyped is the typed setter family (`map_set_string`,
// `map_set_array`, `map_set_struct`, ...) described in §4.4: it
// decrefs any value previously stored at key before writing the new
// one, and increfs the new value.
func MapSetTyped(m *Map, key, value int64, valueClass HeapClass) {
	m.mu.Lock()
	old, had := m.data[key]
	m.data[key] = value
	m.mu.Unlock()

	if valueClass == ClassNone {
		return
	}
	if had {
		decrefSlot(old, valueClass)
	}
	increfSlot(value, valueClass)
}

// Delete removes key, returning the previous value and whether it was
// present, so the caller can decref it per the map's value class.
func (m *Map) Delete(key int64) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if ok {
		delete(m.data, key)
	}
	return v, ok
}

// Keys returns a snapshot of the map's keys, for iteration (§4.5.2's
// "map iteration uses a runtime iterator").
func (m *Map) Keys() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]int64, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
