package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"

	naml "github.com/kahflane/naml-sub003"
)

// increfFuncFor and decrefFuncFor pick the §6.1 typed incref/decref
// extern for a HeapClass.Kind. Option is handled by the caller
// (refcounting an option only touches the inner value when the tag is
// present, which is a runtime branch, not a static dispatch).
func (fe *FunctionEmitter) increfFuncFor(kind naml.HeapClassKind) *ir.Func {
	switch kind {
	case naml.HeapClassString:
		return fe.symbols.StringIncref
	case naml.HeapClassBytes:
		return fe.symbols.BytesIncref
	case naml.HeapClassArray:
		return fe.symbols.ArrayIncref
	case naml.HeapClassMap:
		return fe.symbols.MapIncref
	case naml.HeapClassStruct:
		return fe.symbols.StructIncref
	case naml.HeapClassChannel:
		return fe.symbols.ChannelIncref
	case naml.HeapClassMutex:
		return fe.symbols.MutexIncref
	default:
		return nil
	}
}

func (fe *FunctionEmitter) decrefFuncFor(kind naml.HeapClassKind) *ir.Func {
	switch kind {
	case naml.HeapClassString:
		return fe.symbols.StringDecref
	case naml.HeapClassBytes:
		return fe.symbols.BytesDecref
	case naml.HeapClassArray:
		return fe.symbols.ArrayDecref
	case naml.HeapClassMap:
		return fe.symbols.MapDecref
	case naml.HeapClassStruct:
		return fe.symbols.StructDecref
	case naml.HeapClassChannel:
		return fe.symbols.ChannelDecref
	case naml.HeapClassMutex:
		return fe.symbols.MutexDecref
	default:
		return nil
	}
}

// emitIncrefValue emits a call to the typed incref entrypoint for v's
// HeapClass. For HeapClassOption it recurses on the inner class —
// codegen has no static knowledge of whether an option value is
// actually present, so in a fully lowered program this would branch
// on the option's tag word first; this emitter assumes the caller has
// already narrowed to the Some case (§4.4's general reference
// counting discipline applies uniformly once a heap value is known
// live).
func (fe *FunctionEmitter) emitIncrefValue(v value.Value, class naml.HeapClass) {
	kind := class.Kind
	if kind == naml.HeapClassOption {
		if class.Inner == nil {
			return
		}
		kind = class.Inner.Kind
	}
	fn := fe.increfFuncFor(kind)
	if fn == nil {
		return
	}
	fe.block.NewCall(fn, v)
}

// emitDecref loads name's current slot value and emits a call to the
// typed decref entrypoint for its HeapClass, per §4.4's "decref is
// emitted when a variable goes out of scope, is overwritten, or a
// function exits while holding an unused temporary."
func (fe *FunctionEmitter) emitDecref(name string, class naml.HeapClass) {
	if !fe.varHasHeap[name] {
		return
	}
	alloca, ok := fe.variables[name]
	if !ok {
		return
	}
	loaded := fe.block.NewLoad(fe.varLLType[name], alloca)
	kind := class.Kind
	if kind == naml.HeapClassOption {
		if class.Inner == nil {
			return
		}
		kind = class.Inner.Kind
	}
	fn := fe.decrefFuncFor(kind)
	if fn == nil {
		return
	}
	fe.block.NewCall(fn, loaded)
}
