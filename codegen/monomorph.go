package codegen

import (
	"sync"

	"github.com/google/uuid"
	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"

	naml "github.com/kahflane/naml-sub003"
)

// MonomorphCache instantiates generic functions exactly once per
// mangled name and caches the result, per §4.5.4: "Instantiations are
// generated exactly once and cached." Two call sites racing to
// materialize the same specialization (from concurrent compilation of
// independent functions) are serialized by mu rather than by the
// mangled name alone, since map writes themselves are not safe for
// concurrent use.
type MonomorphCache struct {
	mu       sync.Mutex
	emitted  map[string]*ir.Func
	pending  map[string]uuid.UUID
	generics map[naml.Symbol]*naml.FunctionItem
}

// NewMonomorphCache builds a cache seeded with every generic function
// item in the compilation unit, keyed by its unspecialized name, so
// EnsureMonomorphization can find the template body a mangled call
// target should instantiate from.
func NewMonomorphCache(generics map[naml.Symbol]*naml.FunctionItem) *MonomorphCache {
	return &MonomorphCache{
		emitted:  make(map[string]*ir.Func),
		pending:  make(map[string]uuid.UUID),
		generics: generics,
	}
}

// EnsureMonomorphization returns the already-emitted specialization
// for mangled, or instantiates the generic function recorded against
// it in db's monomorphization ledger and emits it into fe's module.
// The pending-token dance exists so a second caller arriving while the
// first is still mid-instantiation can tell "someone else is doing
// this" apart from "this mangled name was never requested" without
// blocking on the whole cache for the full instantiation.
func (mc *MonomorphCache) EnsureMonomorphization(fe *FunctionEmitter, mangled string) (*ir.Func, error) {
	mc.mu.Lock()
	if fn, ok := mc.emitted[mangled]; ok {
		mc.mu.Unlock()
		return fn, nil
	}
	token := uuid.New()
	mc.pending[mangled] = token
	mc.mu.Unlock()

	fn, err := mc.instantiate(fe, mangled)

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.pending[mangled] != token {
		// Another goroutine finished first and already populated
		// emitted; prefer its result over discarding work either way.
		if existing, ok := mc.emitted[mangled]; ok {
			return existing, nil
		}
	}
	delete(mc.pending, mangled)
	if err != nil {
		return nil, err
	}
	mc.emitted[mangled] = fn
	return fn, nil
}

// instantiate builds the specialized function body, reusing the
// generic FunctionItem's AST under the recorded type substitution. The
// type-annotations map is assumed to have resolved each span inside
// the generic body specifically for this instantiation (the checker
// upstream of this repository's scope is responsible for that
// per-specialization re-keying; codegen only consumes it).
func (mc *MonomorphCache) instantiate(fe *FunctionEmitter, mangled string) (*ir.Func, error) {
	mono, ok := fe.db.Monomorphization(mangled)
	if !ok {
		return nil, errors.Errorf("codegen: no monomorphization ledger entry for %q", mangled)
	}
	generic, ok := mc.generics[mono.GenericName]
	if !ok {
		return nil, errors.Errorf("codegen: unknown generic function %q for specialization %q",
			fe.interner.Resolve(mono.GenericName), mangled)
	}

	irParams := make([]*ir.Param, 0, len(generic.Params)+1)
	for _, p := range generic.Params {
		irParams = append(irParams, ir.NewParam(fe.interner.Resolve(p.Name), wordI64))
	}
	irParams = append(irParams, ir.NewParam("worker_id", wordI64))

	fn := fe.module.NewFunc(mangled, wordI64, irParams...)
	entry := fn.NewBlock("entry")

	sub := NewFunctionEmitter(fe.module, fe.symbols, fe.db, fe.interner, fe.structDescriptors, fe.throwingFuncs)
	sub.trampolineDoneChannels = fe.trampolineDoneChannels
	sub.monomorph = fe.monomorph
	sub.fn = fn
	sub.setBlock(entry)
	sub.workerID = fn.Params[len(fn.Params)-1]
	sub.funcReturnType = wordI64
	sub.funcThrows = len(generic.Throws) > 0

	sub.pushScope()
	for i, p := range generic.Params {
		name := fe.interner.Resolve(p.Name)
		alloca := sub.declareVar(name, wordI64, naml.HeapClass{}, false, false)
		sub.block.NewStore(fn.Params[i], alloca)
	}

	if err := generic.Body.Accept(sub); err != nil {
		return nil, errors.Wrapf(err, "codegen: instantiating %q", mangled)
	}
	result := sub.result
	sub.popScope()
	if !sub.blockTerminated {
		sub.block.NewRet(result)
	}

	return fn, nil
}
