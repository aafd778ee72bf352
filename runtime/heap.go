// Package runtime implements the managed heap and scheduler a
// compiled naml program links against. Everything here corresponds to
// the "*_new"/"*_incref"/"*_decref"-style C-ABI symbols codegen's
// symbols.go declares as externs; in this module they are realized as
// ordinary Go functions so they can be unit tested directly, standing
// in for what would otherwise be object code produced by a separate
// build of this package for the target platform (§6.1, §6.3).
package runtime

import (
	"sync"
	"sync/atomic"
)

// handleTable stands in for the raw pointers the spec's containers
// store in their 8-byte slots (§3.6's Array/Map "i64 values holding
// primitive values or heap pointers"). Rather than reach for
// unsafe.Pointer<->uintptr round-trips, every heap object is given a
// monotonic int64 handle at construction; a slot holding a heap
// pointer stores that handle instead of an address. This keeps the
// runtime entirely within safe Go while preserving the ABI-visible
// shape codegen expects: one opaque 8-byte value per slot.
var handleTable = struct {
	mu      sync.RWMutex
	next    int64
	objects map[int64]Object
}{objects: make(map[int64]Object)}

func registerObject(obj Object) int64 {
	handleTable.mu.Lock()
	defer handleTable.mu.Unlock()
	handleTable.next++
	h := handleTable.next
	handleTable.objects[h] = obj
	return h
}

func unregisterObject(handle int64) {
	handleTable.mu.Lock()
	defer handleTable.mu.Unlock()
	delete(handleTable.objects, handle)
}

// objectFromSlot resolves a slot value back to the Object it handles,
// or nil if the slot is zero or stale.
func objectFromSlot(slot int64) Object {
	handleTable.mu.RLock()
	defer handleTable.mu.RUnlock()
	return handleTable.objects[slot]
}

// HeapTag identifies the concrete layout following a HeapHeader.
// String/Bytes/Array/Map/Struct/Channel/Mutex mirror §3.6; Struct and
// Map intentionally share tag value 2 (§6.4 permits this — dispatch in
// this implementation always goes through the wrapping Go type, never
// the tag byte alone, so the shared value never causes ambiguity).
type HeapTag uint8

const (
	TagString  HeapTag = 1
	TagStruct  HeapTag = 2
	TagMap     HeapTag = 2
	TagBytes   HeapTag = 3
	TagArray   HeapTag = 4
	TagChannel HeapTag = 5
	TagMutex   HeapTag = 6
)

// HeapHeader is the 16-byte header every heap object begins with
// (§3.6). Refcount is signed so a decref past zero is detectable as
// use-after-free in debug builds rather than silently wrapping.
type HeapHeader struct {
	refcount int64
	tag      HeapTag
	_        [7]byte // reserved/padding to a 16-byte header
}

// Tag returns the object's heap tag.
func (h *HeapHeader) Tag() HeapTag { return h.tag }

// Refcount returns the current reference count. Intended for tests and
// debug tooling, not for decisions in hot paths.
func (h *HeapHeader) Refcount() int64 { return atomic.LoadInt64(&h.refcount) }

// Incref atomically increments the reference count. Monotonic: never
// called on an object whose count has already reached zero.
func (h *HeapHeader) Incref() { atomic.AddInt64(&h.refcount, 1) }

// HeapClass classifies a heap object for recursive decref, mirroring
// the compiler's own naml.HeapClass (§3.4) but expressed independently
// here since this package models the target runtime, not the
// compiler's internal type representation.
type HeapClass int

const (
	ClassNone HeapClass = iota
	ClassString
	ClassBytes
	ClassArray
	ClassMap
	ClassStruct
	ClassOption
	ClassChannel
	ClassMutex
)

// Object is implemented by every concrete heap value so decref can
// dispatch on it without knowing the concrete Go type.
type Object interface {
	Header() *HeapHeader
	Handle() int64
}

// Decref atomically decrements obj's refcount; at zero it invokes
// destroy to recursively release contained elements according to
// elemClass, then lets obj become eligible for collection by the
// arena or the Go garbage collector backing it (§4.4). elemClass is
// ClassNone for objects with no heap-typed contents (e.g. a plain
// byte string).
func Decref(obj Object, elemClass HeapClass) {
	h := obj.Header()
	if atomic.AddInt64(&h.refcount, -1) != 0 {
		return
	}
	destroy(obj, elemClass)
	unregisterObject(obj.Handle())
}

// destroy recursively decrefs contained elements per the object's
// declared element HeapClass, then frees the object's own backing
// storage.
func destroy(obj Object, elemClass HeapClass) {
	switch v := obj.(type) {
	case *Array:
		if elemClass != ClassNone {
			for _, slot := range v.data {
				decrefSlot(slot, elemClass)
			}
		}
		freeBacking(v.arena, v)
	case *Map:
		if elemClass != ClassNone {
			for _, val := range v.data {
				decrefSlot(val, elemClass)
			}
		}
	case *Struct:
		for i, f := range v.Descriptor.Fields {
			if f.Class != ClassNone && !f.Weak {
				decrefSlot(v.fields[i], f.Class)
			}
		}
		freeBacking(v.arena, v)
	case *Str:
		freeBacking(v.arena, v)
	case *Bytes:
		freeBacking(v.arena, v)
	case *Channel:
		// channels own no heap-typed elements in this runtime; the
		// element type is opaque i64 per §3.6.
	case *Mutex:
		// wraps a single i64 cell, never heap-typed.
	}
}

// decrefSlot interprets a raw i64 slot as a heap pointer and decrefs
// it. A slot holding a non-heap primitive (elemClass == ClassNone at
// the call site) is never routed here.
func decrefSlot(slot int64, class HeapClass) {
	if slot == 0 {
		return
	}
	obj := objectFromSlot(slot)
	if obj == nil {
		return
	}
	Decref(obj, class)
}
