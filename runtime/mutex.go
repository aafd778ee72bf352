package runtime

import "sync"

// Mutex is the heap layout backing naml's user-visible `mutex<T>`: a
// refcounted wrapper around an OS mutex protecting a single i64 cell
// (§3.6, §4.8).
type Mutex struct {
	header HeapHeader
	handle int64
	mu     sync.Mutex
	cell   int64
}

func (m *Mutex) Header() *HeapHeader { return &m.header }
func (m *Mutex) Handle() int64       { return m.handle }

// MutexNew allocates a mutex guarding an initial cell value, refcount
// 1.
func MutexNew(initial int64) *Mutex {
	m := &Mutex{
		header: HeapHeader{refcount: 1, tag: TagMutex},
		cell:   initial,
	}
	m.handle = registerObject(m)
	return m
}

// guardTable tracks which goroutine currently holds each mutex's
// guard, keyed by the mutex's handle, mirroring §4.8's "thread-local
// guard table keyed by the mutex's address" — a handle stands in for
// an address for the same reason described in heap.go.
var guardTable = struct {
	sync.Mutex
	held map[int64]bool
}{held: make(map[int64]bool)}

// Lock acquires m's OS mutex and returns the current cell value. The
// caller must call Unlock with the (possibly updated) value to
// release it, lowering naml's `locked (v in m) { ... }` block.
func (m *Mutex) Lock() int64 {
	m.mu.Lock()
	guardTable.Lock()
	guardTable.held[m.handle] = true
	guardTable.Unlock()
	return m.cell
}

// Unlock writes back newVal and releases the lock.
func (m *Mutex) Unlock(newVal int64) {
	m.cell = newVal
	guardTable.Lock()
	delete(guardTable.held, m.handle)
	guardTable.Unlock()
	m.mu.Unlock()
}

// Get acquires and immediately releases m's lock to read the current
// cell value, backing `mutex_get` for reads taken outside a `locked`
// block rather than through the held-guard Lock/Unlock pair.
func (m *Mutex) Get() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cell
}

// Set acquires and immediately releases m's lock to overwrite the
// cell value, backing `mutex_set`.
func (m *Mutex) Set(v int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cell = v
}

// TryLock attempts to acquire m without blocking. On success it
// returns the current value and ok=true; the caller must still call
// Unlock. On failure it returns ok=false and must not call Unlock.
func (m *Mutex) TryLock() (value int64, ok bool) {
	if !m.mu.TryLock() {
		return 0, false
	}
	guardTable.Lock()
	guardTable.held[m.handle] = true
	guardTable.Unlock()
	return m.cell, true
}
