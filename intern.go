package naml

import "sync"

// Symbol is an opaque interned-string handle. Symbols are comparable by
// equality and are cheap to pass around in place of the strings they
// represent.
type Symbol int32

// InvalidSymbol is returned by lookups that fail to resolve.
const InvalidSymbol Symbol = -1

// Interner is an append-only string table with O(1) resolution in both
// directions. It is safe for concurrent use: the codegen and the type
// checker may both be interning identifiers from worker goroutines.
type Interner struct {
	mu      sync.RWMutex
	byValue map[string]Symbol
	byIndex []string
}

// NewInterner creates an empty interner with reasonable initial capacity
// for a typical compilation unit.
func NewInterner() *Interner {
	return &Interner{
		byValue: make(map[string]Symbol, 256),
		byIndex: make([]string, 0, 256),
	}
}

// Intern returns the handle for s, assigning a fresh one if s has never
// been seen before.
func (in *Interner) Intern(s string) Symbol {
	in.mu.RLock()
	if id, ok := in.byValue[s]; ok {
		in.mu.RUnlock()
		return id
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.byValue[s]; ok {
		return id
	}
	id := Symbol(len(in.byIndex))
	in.byIndex = append(in.byIndex, s)
	in.byValue[s] = id
	return id
}

// Resolve returns the string behind a handle. It panics if the handle
// was never produced by this interner — that indicates a compiler bug,
// not a recoverable user-facing error.
func (in *Interner) Resolve(sym Symbol) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if sym < 0 || int(sym) >= len(in.byIndex) {
		panic("naml: resolving unknown symbol handle")
	}
	return in.byIndex[sym]
}

// Len returns the number of distinct strings interned so far.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.byIndex)
}
