package runtime

// Array is the heap layout for a naml array: a length/capacity pair
// plus a block of 8-byte slots, each holding either a primitive value
// or a heap handle (§3.6).
type Array struct {
	header HeapHeader
	data   []int64
	arena  *Arena
	handle int64
	buf    []byte
}

func (a *Array) Header() *HeapHeader { return &a.header }
func (a *Array) Handle() int64       { return a.handle }
func (a *Array) backing() []byte     { return a.buf }

// ArrayNew allocates a new Array with the given capacity (in 8-byte
// slots), refcount 1, length 0.
func ArrayNew(arena *Arena, capacity int) *Array {
	buf := arena.Alloc(capacity * 8)
	arr := &Array{
		header: HeapHeader{refcount: 1, tag: TagArray},
		arena:  arena,
	}
	arr.handle = registerObject(arr)
	arr.buf = buf
	arr.data = make([]int64, 0, capacity)
	return arr
}

// Len returns the number of populated slots.
func (a *Array) Len() int { return len(a.data) }

// Get returns the raw slot value at index i.
func (a *Array) Get(i int) int64 { return a.data[i] }

// Set overwrites the slot at index i. The caller is responsible for
// decref'ing any heap value previously at i and incref'ing newVal if
// it is itself a heap handle — ArraySet below does both for the
// common "push/replace element" case.
func (a *Array) Set(i int, v int64) { a.data[i] = v }

// Push appends v to the array, growing the backing slice as needed.
// Growth beyond the arena-backed capacity falls back to ordinary Go
// slice growth; the array's own HeapHeader identity is unaffected.
func (a *Array) Push(v int64) { a.data = append(a.data, v) }

// ArraySet is the typed setter described by §4.4: it decrefs the
// element previously at index i (if elemClass carries a heap class)
// before installing newVal, and increfs newVal if it is itself a heap
// handle.
func ArraySet(a *Array, i int, newVal int64, elemClass HeapClass) {
	if elemClass != ClassNone {
		decrefSlot(a.data[i], elemClass)
		increfSlot(newVal, elemClass)
	}
	a.data[i] = newVal
}

func increfSlot(slot int64, class HeapClass) {
	if slot == 0 {
		return
	}
	if obj := objectFromSlot(slot); obj != nil {
		obj.Header().Incref()
	}
}
