package runtime

import "sync"

// ExceptionSlot is the thread-local pair `(current_exception,
// current_type_id)` the spec describes (§3.7): zero/zero when no
// exception is pending. Go gives every goroutine no first-class TLS,
// so this and ShadowStack are kept in a registry keyed by a
// WorkerID the scheduler assigns to each of its long-lived worker
// goroutines — the spec's "per OS thread" model maps naturally onto
// "per scheduler worker" because workers, unlike transient goroutines,
// live for the scheduler's whole lifetime (see Open Questions in
// DESIGN.md).
type ExceptionSlot struct {
	Pending *Struct
	TypeID  int64
}

// WorkerID identifies one scheduler worker for the purposes of
// per-worker exception/shadow-stack state.
type WorkerID int

type workerState struct {
	exception ExceptionSlot
	stack     ShadowStack
}

var workerRegistry = struct {
	mu      sync.Mutex
	workers map[WorkerID]*workerState
}{workers: make(map[WorkerID]*workerState)}

func stateFor(id WorkerID) *workerState {
	workerRegistry.mu.Lock()
	defer workerRegistry.mu.Unlock()
	st, ok := workerRegistry.workers[id]
	if !ok {
		st = &workerState{stack: newShadowStack(defaultShadowStackDepth)}
		workerRegistry.workers[id] = st
	}
	return st
}

// ReleaseWorker drops a worker's exception/shadow-stack state when the
// worker exits, per §4.3's "arena state destroyed at thread exit"
// sibling lifecycle for these other per-worker resources.
func ReleaseWorker(id WorkerID) {
	workerRegistry.mu.Lock()
	defer workerRegistry.mu.Unlock()
	delete(workerRegistry.workers, id)
}

// SetException stores a pending exception and its type id for worker
// id (§4.5.2's `throw` lowering).
func SetException(id WorkerID, exc *Struct, typeID int64) {
	st := stateFor(id)
	st.exception.Pending = exc
	st.exception.TypeID = typeID
}

// SetExceptionPointer stores exc as the pending exception's pointer
// half only, leaving the type id untouched. Backs the `exception_set`
// ABI entry, which `codegen/exceptions.go`'s catch-handler prologue
// calls with a null struct to clear the pointer half once the caught
// exception (read earlier via `exception_get`) is bound, as distinct
// from `exception_set_typed`'s §4.5.2
// `throw` lowering which sets both halves together via SetException.
func SetExceptionPointer(id WorkerID, exc *Struct) {
	st := stateFor(id)
	st.exception.Pending = exc
}

// CurrentException returns the exception currently pending for worker
// id, or nil if none.
func CurrentException(id WorkerID) (*Struct, int64) {
	st := stateFor(id)
	return st.exception.Pending, st.exception.TypeID
}

// ClearExceptionPointer clears only the pointer half of the slot,
// leaving the type id intact for `is`-checks inside a catch handler
// body, per §4.5.3.
func ClearExceptionPointer(id WorkerID) {
	st := stateFor(id)
	st.exception.Pending = nil
}

// ClearException clears both halves of the slot, called at
// catch-handler exit (§4.5.3).
func ClearException(id WorkerID) {
	st := stateFor(id)
	st.exception.Pending = nil
	st.exception.TypeID = 0
}

// HasPendingException reports whether worker id currently has a
// nonzero exception slot — the propagate-probe every `throws` call
// site consults (§4.5.3).
func HasPendingException(id WorkerID) bool {
	st := stateFor(id)
	return st.exception.TypeID != 0
}
