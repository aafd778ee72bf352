package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	naml "github.com/kahflane/naml-sub003"
)

// lowerExpr emits e and returns its value together with its heap
// classification (ok is false for non-heap values), using the
// Accept/Visitor dispatch the rest of the AST family exposes (§4.5.1).
// This mirrors the teacher's generateExpression switch, just routed
// through Accept instead of a type switch since Expr is an open
// family.
func (fe *FunctionEmitter) lowerExpr(e naml.Expr) (value.Value, naml.HeapClass, bool, error) {
	if err := e.Accept(fe); err != nil {
		return nil, naml.HeapClass{}, false, err
	}
	return fe.result, fe.resultClass, fe.resultHeap, nil
}

func (fe *FunctionEmitter) setResult(v value.Value) {
	fe.result = v
	fe.resultHeap = false
	fe.resultClass = naml.HeapClass{}
}

func (fe *FunctionEmitter) setResultHeap(v value.Value, class naml.HeapClass) {
	fe.result = v
	fe.resultHeap = true
	fe.resultClass = class
}

func (fe *FunctionEmitter) typeInfo(e naml.Expr) (naml.ExprTypeInfo, error) {
	info, err := fe.db.ExprTypeInfoAt(e.Span())
	if err != nil {
		return naml.ExprTypeInfo{}, errors.Wrap(err, "codegen: missing type annotation")
	}
	return info, nil
}

// VisitLiteralExpr lowers a literal to its machine-word representation
// (§4.5.1 "Literal"). Strings allocate through string_new against a
// generated constant byte array, the same global-then-GEP pattern the
// llir/llvm-targeting sibling repos use for C string constants.
func (fe *FunctionEmitter) VisitLiteralExpr(e *naml.LiteralExpr) error {
	switch lit := e.Value.(type) {
	case *naml.IntLiteral:
		fe.setResult(constant.NewInt(wordI64, lit.Value))
		return nil
	case *naml.UintLiteral:
		fe.setResult(constant.NewInt(wordI64, int64(lit.Value)))
		return nil
	case *naml.FloatLiteral:
		fe.setResult(constant.NewFloat(wordF64, lit.Value))
		return nil
	case *naml.BoolLiteral:
		v := int64(0)
		if lit.Value {
			v = 1
		}
		fe.setResult(constant.NewInt(wordI64, v))
		return nil
	case *naml.StringLiteral:
		text := fe.interner.Resolve(lit.Value)
		ptr := fe.emitCStringConstant(text)
		call := fe.block.NewCall(fe.symbols.StringNew, ptr, constant.NewInt(wordI64, int64(len(text))))
		fe.setResultHeap(call, naml.HeapClass{Kind: naml.HeapClassString})
		return nil
	case *naml.BytesLiteral:
		ptr := fe.emitByteArrayConstant(lit.Value)
		call := fe.block.NewCall(fe.symbols.BytesFrom, ptr, constant.NewInt(wordI64, int64(len(lit.Value))))
		fe.setResultHeap(call, naml.HeapClass{Kind: naml.HeapClassBytes})
		return nil
	case *naml.NoneLiteral:
		fe.setResult(constant.NewInt(wordI64, 0))
		return nil
	default:
		return errors.Errorf("codegen: unhandled literal kind %T", lit)
	}
}

// emitCStringConstant declares a private global holding text plus a
// NUL terminator and returns a pointer to its first byte, the exact
// shape the reference llir/llvm emitter uses for string constants.
func (fe *FunctionEmitter) emitCStringConstant(text string) value.Value {
	arr := constant.NewCharArrayFromString(text + "\x00")
	g := fe.module.NewGlobalDef(fe.freshName("str"), arr)
	g.Immutable = true
	zero := constant.NewInt(types.I64, 0)
	return fe.block.NewGetElementPtr(arr.Type(), g, zero, zero)
}

func (fe *FunctionEmitter) emitByteArrayConstant(data []byte) value.Value {
	arr := constant.NewCharArray(data)
	g := fe.module.NewGlobalDef(fe.freshName("bytes"), arr)
	g.Immutable = true
	zero := constant.NewInt(types.I64, 0)
	return fe.block.NewGetElementPtr(arr.Type(), g, zero, zero)
}

// VisitIdentExpr loads a local variable (§4.5.1 "Identifier"). A name
// with no local of that name is an error; it is not resolved as a
// function reference.
func (fe *FunctionEmitter) VisitIdentExpr(e *naml.IdentExpr) error {
	name := fe.interner.Resolve(e.Name)
	alloca, ok := fe.lookupVar(name)
	if !ok {
		return errors.Errorf("codegen: reference to undeclared local %q", name)
	}
	loaded := fe.block.NewLoad(fe.varLLType[name], alloca)
	class := fe.varHeapType[name]
	if fe.varHasHeap[name] {
		fe.setResultHeap(loaded, class)
	} else {
		fe.setResult(loaded)
	}
	return nil
}

// VisitBinaryExpr lowers arithmetic, comparison, short-circuit
// boolean, and bitwise operators (§4.5.1 "Binary"). Float operands are
// distinguished by looking up the operand's resolved Type rather than
// inspecting the SSA type, since naml words are opaque int64 unless
// the checker says otherwise.
func (fe *FunctionEmitter) VisitBinaryExpr(e *naml.BinaryExpr) error {
	lhsInfo, err := fe.typeInfo(e.Lhs)
	if err != nil {
		return err
	}
	isFloat := lhsInfo.Type != nil && lhsInfo.Type.Kind == naml.TypeKindPrimitive && lhsInfo.Type.Primitive == naml.PrimitiveFloat

	if e.Op == naml.BinAnd || e.Op == naml.BinOr {
		return fe.lowerShortCircuit(e, isFloat)
	}

	lhs, _, _, err := fe.lowerExpr(e.Lhs)
	if err != nil {
		return err
	}
	rhs, _, _, err := fe.lowerExpr(e.Rhs)
	if err != nil {
		return err
	}

	var lv value.Value
	if isFloat {
		lv = fe.emitFloatBinary(e.Op, lhs, rhs)
	} else {
		lv = fe.emitIntBinary(e.Op, lhs, rhs)
	}
	fe.setResult(lv)
	return nil
}

func (fe *FunctionEmitter) emitIntBinary(op naml.BinaryOp, l, r value.Value) value.Value {
	switch op {
	case naml.BinAdd:
		return fe.block.NewAdd(l, r)
	case naml.BinSub:
		return fe.block.NewSub(l, r)
	case naml.BinMul:
		return fe.block.NewMul(l, r)
	case naml.BinDiv:
		return fe.block.NewSDiv(l, r)
	case naml.BinMod:
		return fe.block.NewSRem(l, r)
	case naml.BinEq:
		return fe.block.NewICmp(enum.IPredEQ, l, r)
	case naml.BinNeq:
		return fe.block.NewICmp(enum.IPredNE, l, r)
	case naml.BinLt:
		return fe.block.NewICmp(enum.IPredSLT, l, r)
	case naml.BinLte:
		return fe.block.NewICmp(enum.IPredSLE, l, r)
	case naml.BinGt:
		return fe.block.NewICmp(enum.IPredSGT, l, r)
	case naml.BinGte:
		return fe.block.NewICmp(enum.IPredSGE, l, r)
	case naml.BinBitAnd:
		return fe.block.NewAnd(l, r)
	case naml.BinBitOr:
		return fe.block.NewOr(l, r)
	case naml.BinBitXor:
		return fe.block.NewXor(l, r)
	case naml.BinShl:
		return fe.block.NewShl(l, r)
	case naml.BinShr:
		return fe.block.NewAShr(l, r)
	default:
		return l
	}
}

func (fe *FunctionEmitter) emitFloatBinary(op naml.BinaryOp, l, r value.Value) value.Value {
	lf := fe.asFloat(l)
	rf := fe.asFloat(r)
	switch op {
	case naml.BinAdd:
		return fe.block.NewFAdd(lf, rf)
	case naml.BinSub:
		return fe.block.NewFSub(lf, rf)
	case naml.BinMul:
		return fe.block.NewFMul(lf, rf)
	case naml.BinDiv:
		return fe.block.NewFDiv(lf, rf)
	case naml.BinMod:
		return fe.block.NewFRem(lf, rf)
	case naml.BinEq:
		return fe.block.NewFCmp(enum.FPredOEQ, lf, rf)
	case naml.BinNeq:
		return fe.block.NewFCmp(enum.FPredONE, lf, rf)
	case naml.BinLt:
		return fe.block.NewFCmp(enum.FPredOLT, lf, rf)
	case naml.BinLte:
		return fe.block.NewFCmp(enum.FPredOLE, lf, rf)
	case naml.BinGt:
		return fe.block.NewFCmp(enum.FPredOGT, lf, rf)
	case naml.BinGte:
		return fe.block.NewFCmp(enum.FPredOGE, lf, rf)
	default:
		return lf
	}
}

// asFloat bitcasts a raw i64 word to double when the value arrived as
// an integer register (e.g. loaded from a generic slot), a no-op when
// it is already double-typed.
func (fe *FunctionEmitter) asFloat(v value.Value) value.Value {
	if v.Type().Equal(wordF64) {
		return v
	}
	return fe.block.NewBitCast(v, wordF64)
}

// lowerShortCircuit emits `&&`/`||` with real control flow rather than
// a bitwise and/or, per §4.5.1's distinction between eager bitwise
// operators and the short-circuiting boolean ones.
func (fe *FunctionEmitter) lowerShortCircuit(e *naml.BinaryExpr, isFloat bool) error {
	lhs, _, _, err := fe.lowerExpr(e.Lhs)
	if err != nil {
		return err
	}
	lhsBool := fe.block.NewICmp(enum.IPredNE, lhs, constant.NewInt(wordI64, 0))

	rhsBlock := fe.fn.NewBlock(fe.freshName("sc.rhs"))
	contBlock := fe.fn.NewBlock(fe.freshName("sc.cont"))

	entry := fe.block
	if e.Op == naml.BinAnd {
		fe.block.NewCondBr(lhsBool, rhsBlock, contBlock)
	} else {
		fe.block.NewCondBr(lhsBool, contBlock, rhsBlock)
	}

	fe.setBlock(rhsBlock)
	rhs, _, _, err := fe.lowerExpr(e.Rhs)
	if err != nil {
		return err
	}
	rhsBool := fe.block.NewICmp(enum.IPredNE, rhs, constant.NewInt(wordI64, 0))
	rhsEnd := fe.block
	rhsEnd.NewBr(contBlock)

	fe.setBlock(contBlock)
	shortCircuitBit := int64(0)
	if e.Op == naml.BinOr {
		shortCircuitBit = 1
	}
	shortCircuitValue := constant.NewInt(types.I1, shortCircuitBit)
	phi := fe.block.NewPhi(
		ir.NewIncoming(shortCircuitValue, entry),
		ir.NewIncoming(rhsBool, rhsEnd),
	)
	fe.setResult(fe.block.NewZExt(phi, wordI64))
	return nil
}

// VisitUnaryExpr lowers `-x`, `!x`, `~x` (§4.5.1 "Unary").
func (fe *FunctionEmitter) VisitUnaryExpr(e *naml.UnaryExpr) error {
	info, err := fe.typeInfo(e.Operand)
	if err != nil {
		return err
	}
	operand, _, _, err := fe.lowerExpr(e.Operand)
	if err != nil {
		return err
	}
	isFloat := info.Type != nil && info.Type.Kind == naml.TypeKindPrimitive && info.Type.Primitive == naml.PrimitiveFloat

	switch e.Op {
	case naml.UnaryNeg:
		if isFloat {
			fe.setResult(fe.block.NewFSub(constant.NewFloat(wordF64, 0), fe.asFloat(operand)))
		} else {
			fe.setResult(fe.block.NewSub(constant.NewInt(wordI64, 0), operand))
		}
	case naml.UnaryNot:
		fe.setResult(fe.block.NewXor(operand, constant.NewInt(wordI64, 1)))
	case naml.UnaryBNot:
		fe.setResult(fe.block.NewXor(operand, constant.NewInt(wordI64, -1)))
	default:
		return errors.Errorf("codegen: unhandled unary operator %v", e.Op)
	}
	return nil
}

// VisitCallExpr lowers a direct call to either a monomorphized
// specialization (looked up by call-site span in the TypeDatabase) or
// the plain function named by the callee identifier (§4.5.1 "Call",
// §4.5.4).
func (fe *FunctionEmitter) VisitCallExpr(e *naml.CallExpr) error {
	ident, ok := e.Callee.(*naml.IdentExpr)
	if !ok {
		return errors.New("codegen: indirect calls through a non-identifier callee are not yet supported")
	}
	name := fe.interner.Resolve(ident.Name)
	if mangled, ok := fe.db.CallSiteTarget(e.Span()); ok {
		name = mangled
		declared := false
		for _, f := range fe.module.Funcs {
			if f.Name() == mangled {
				declared = true
				break
			}
		}
		if !declared && fe.monomorph != nil {
			if _, err := fe.monomorph.EnsureMonomorphization(fe, mangled); err != nil {
				return err
			}
		}
	}

	args := make([]value.Value, 0, len(e.Args)+1)
	for _, a := range e.Args {
		v, _, _, err := fe.lowerExpr(a)
		if err != nil {
			return err
		}
		args = append(args, v)
	}
	args = append(args, fe.workerID)

	call, err := fe.emitCallByName(name, args)
	if err != nil {
		return err
	}
	fe.setResult(call)
	return nil
}

// emitCallByName resolves name against the module's already-declared
// functions (the driver declares every function's signature in a
// first pass before generating any body, per the teacher's
// declareFunction/generateFunction split) and emits a call, then runs
// the throws-probe sequence of §4.5.3 when the callee is marked as
// throwing.
func (fe *FunctionEmitter) emitCallByName(name string, args []value.Value) (value.Value, error) {
	var target *ir.Func
	for _, f := range fe.module.Funcs {
		if f.Name() == name {
			target = f
			break
		}
	}
	if target == nil {
		return nil, errors.Errorf("codegen: call to unresolved function %q", name)
	}
	call := fe.block.NewCall(target, args...)
	if fe.funcThrowsByName(name) {
		fe.emitThrowsProbe()
	}
	return call, nil
}

// funcThrowsByName reports whether name was declared with a non-empty
// Throws list; codegen keeps this as a side table populated by the
// top-level driver rather than re-deriving it from the IR function
// (§4.5.3).
func (fe *FunctionEmitter) funcThrowsByName(name string) bool {
	return fe.throwingFuncs != nil && fe.throwingFuncs[name]
}

// emitThrowsProbe checks the thread-local exception slot right after a
// throwing call returns and either jumps to the enclosing catch
// dispatch block or re-propagates by returning early, per §4.5.3's
// catch-probe vs. propagate-probe distinction.
func (fe *FunctionEmitter) emitThrowsProbe() {
	checked := fe.block.NewCall(fe.symbols.ExceptionCheck)
	isSet := fe.block.NewICmp(enum.IPredNE, checked, constant.NewInt(wordI8, 0))

	contBlock := fe.fn.NewBlock(fe.freshName("noexc"))

	if tf, ok := fe.currentTry(); ok {
		fe.block.NewCondBr(isSet, tf.dispatch, contBlock)
	} else {
		unwind := fe.fn.NewBlock(fe.freshName("unwind"))
		fe.block.NewCondBr(isSet, unwind, contBlock)

		fe.setBlock(unwind)
		fe.decrefAllOwned()
		fe.emitExceptionalReturn()
		fe.blockTerminated = true
	}

	fe.setBlock(contBlock)
}

// emitExceptionalReturn returns the function's zero value, leaving the
// exception slot set for the caller's own probe to observe (§4.7).
func (fe *FunctionEmitter) emitExceptionalReturn() {
	if fe.funcReturnType == nil || fe.funcReturnType.Equal(types.Void) {
		fe.block.NewRet(nil)
		return
	}
	fe.block.NewRet(zeroValue(fe.funcReturnType))
}

func zeroValue(t types.Type) value.Value {
	switch tt := t.(type) {
	case *types.IntType:
		return constant.NewInt(tt, 0)
	case *types.FloatType:
		return constant.NewFloat(tt, 0)
	case *types.PointerType:
		return constant.NewNull(tt)
	default:
		return constant.NewInt(wordI64, 0)
	}
}

// VisitMethodCallExpr dispatches `receiver.method(args)` with the
// priority order of §4.5.1: a user-defined `TypeName_method` function
// first, then a builtin intrinsic for the receiver's HeapClass.
func (fe *FunctionEmitter) VisitMethodCallExpr(e *naml.MethodCallExpr) error {
	recvInfo, err := fe.typeInfo(e.Receiver)
	if err != nil {
		return err
	}
	recv, _, _, err := fe.lowerExpr(e.Receiver)
	if err != nil {
		return err
	}
	args := make([]value.Value, 0, len(e.Args)+1)
	args = append(args, recv)
	for _, a := range e.Args {
		v, _, _, err := fe.lowerExpr(a)
		if err != nil {
			return err
		}
		args = append(args, v)
	}

	methodName := fe.interner.Resolve(e.Method)
	if recvInfo.Type != nil && recvInfo.Type.Name != naml.InvalidSymbol {
		mangled := fe.interner.Resolve(recvInfo.Type.Name) + "_" + methodName
		for _, f := range fe.module.Funcs {
			if f.Name() == mangled {
				args = append(args, fe.workerID)
				fe.setResult(fe.block.NewCall(f, args...))
				return nil
			}
		}
	}

	builtin, err := fe.builtinMethod(recvInfo, methodName, args)
	if err != nil {
		return err
	}
	fe.setResult(builtin)
	return nil
}

// builtinMethod dispatches a runtime-intrinsic method by the
// receiver's HeapClass — array push/get/set/len, map get/contains/set,
// string/bytes len, channel send/close/len, and mutex lock/unlock
// (§4.5.1, §6.1). Channel receive is not a builtin method here.
func (fe *FunctionEmitter) builtinMethod(recvInfo naml.ExprTypeInfo, method string, args []value.Value) (value.Value, error) {
	class, ok := naml.ClassifyType(recvInfo.Type)
	if !ok {
		return nil, errors.Errorf("codegen: no builtin method %q on non-heap receiver", method)
	}
	switch class.Kind {
	case naml.HeapClassArray:
		switch method {
		case "push":
			return fe.block.NewCall(fe.symbols.ArrayPush, args...), nil
		case "get":
			return fe.block.NewCall(fe.symbols.ArrayGet, args...), nil
		case "set":
			return fe.block.NewCall(fe.symbols.ArraySet, args...), nil
		case "len":
			return fe.block.NewCall(fe.symbols.ArrayLen, args...), nil
		}
	case naml.HeapClassMap:
		switch method {
		case "get":
			return fe.block.NewCall(fe.symbols.MapGet, args...), nil
		case "contains":
			return fe.block.NewCall(fe.symbols.MapContains, args...), nil
		case "set":
			return fe.block.NewCall(fe.symbols.MapSet, args...), nil
		}
	case naml.HeapClassString, naml.HeapClassBytes:
		if method == "len" {
			if class.Kind == naml.HeapClassString {
				return fe.block.NewCall(fe.symbols.BytesLen, args...), nil
			}
			return fe.block.NewCall(fe.symbols.BytesLen, args...), nil
		}
	case naml.HeapClassChannel:
		switch method {
		case "send":
			return fe.block.NewCall(fe.symbols.ChannelSend, args...), nil
		case "close":
			return fe.block.NewCall(fe.symbols.ChannelClose, args...), nil
		case "len":
			return fe.block.NewCall(fe.symbols.ChannelLen, args...), nil
		}
	case naml.HeapClassMutex:
		switch method {
		case "lock":
			return fe.block.NewCall(fe.symbols.MutexLock, args...), nil
		case "unlock":
			return fe.block.NewCall(fe.symbols.MutexUnlock, args...), nil
		}
	}
	return nil, errors.Errorf("codegen: no builtin method %q for heap class %v", method, class.Kind)
}

// VisitFieldAccessExpr lowers `receiver.field` to a struct_get_field
// call against the field's resolved offset (§4.5.1 "Field access").
func (fe *FunctionEmitter) VisitFieldAccessExpr(e *naml.FieldAccessExpr) error {
	recvInfo, err := fe.typeInfo(e.Receiver)
	if err != nil {
		return err
	}
	recv, _, _, err := fe.lowerExpr(e.Receiver)
	if err != nil {
		return err
	}
	if recvInfo.Type == nil || recvInfo.Type.Struct == nil {
		return errors.New("codegen: field access on a receiver with no struct descriptor")
	}
	idx := -1
	var field naml.StructFieldDescriptor
	for i, f := range recvInfo.Type.Struct.Fields {
		if f.Name == e.Field {
			idx = i
			field = f
			break
		}
	}
	if idx < 0 {
		return errors.Errorf("codegen: unknown field %q", fe.interner.Resolve(e.Field))
	}
	call := fe.block.NewCall(fe.symbols.StructGetField, recv, constant.NewInt(wordI64, int64(idx)))
	if class, ok := naml.ClassifyType(field.Type); ok {
		fe.setResultHeap(call, class)
	} else {
		fe.setResult(call)
	}
	return nil
}

// VisitIndexExpr lowers `receiver[index]`, including the forced-unwrap
// form `receiver[index]!` that panics through panic_unwrap on a
// missing map key (§4.5.1 "Index").
func (fe *FunctionEmitter) VisitIndexExpr(e *naml.IndexExpr) error {
	recvInfo, err := fe.typeInfo(e.Receiver)
	if err != nil {
		return err
	}
	recv, _, _, err := fe.lowerExpr(e.Receiver)
	if err != nil {
		return err
	}
	index, _, _, err := fe.lowerExpr(e.Index)
	if err != nil {
		return err
	}

	class, ok := naml.ClassifyType(recvInfo.Type)
	if !ok {
		return errors.New("codegen: index on a non-indexable receiver")
	}

	switch class.Kind {
	case naml.HeapClassArray:
		call := fe.block.NewCall(fe.symbols.ArrayGet, recv, index)
		if class.Element != nil {
			fe.setResultHeap(call, *class.Element)
		} else {
			fe.setResult(call)
		}
		return nil
	case naml.HeapClassMap:
		call := fe.block.NewCall(fe.symbols.MapGet, recv, index)
		if e.Forced {
			contains := fe.block.NewCall(fe.symbols.MapContains, recv, index)
			missing := fe.block.NewICmp(enum.IPredEQ, contains, constant.NewInt(wordI8, 0))
			panicBlock := fe.fn.NewBlock(fe.freshName("unwrap.panic"))
			okBlock := fe.fn.NewBlock(fe.freshName("unwrap.ok"))
			fe.block.NewCondBr(missing, panicBlock, okBlock)

			fe.setBlock(panicBlock)
			fe.block.NewCall(fe.symbols.PanicUnwrap(), call)
			fe.block.NewUnreachable()

			fe.setBlock(okBlock)
		}
		if class.Value != nil {
			fe.setResultHeap(call, *class.Value)
		} else {
			fe.setResult(call)
		}
		return nil
	default:
		return errors.Errorf("codegen: unsupported index receiver heap class %v", class.Kind)
	}
}

// VisitLambdaExpr builds a closure: a trampoline function taking a
// packed-capture pointer, the lambda's declared parameters and a
// trailing worker_id, and an
// allocation of that capture block at the call site (§4.5.1 "Closure").
func (fe *FunctionEmitter) VisitLambdaExpr(e *naml.LambdaExpr) error {
	return fe.lowerClosure(e)
}

// VisitSpawnExpr schedules its body on the scheduler via spawn_closure,
// packing the same capture-block representation a lambda would use
// (§4.5.1 "Spawn block").
func (fe *FunctionEmitter) VisitSpawnExpr(e *naml.SpawnExpr) error {
	return fe.lowerSpawn(e)
}

// VisitAwaitExpr blocks on a previously spawned task handle. Task
// handles are represented as a channel(T) under the hood, so awaiting
// reduces to a channel_receive call (§4.5.1 "Await").
func (fe *FunctionEmitter) VisitAwaitExpr(e *naml.AwaitExpr) error {
	handle, _, _, err := fe.lowerExpr(e.Operand)
	if err != nil {
		return err
	}
	outPtr := fe.block.NewAlloca(wordI64)
	fe.block.NewCall(fe.symbols.ChannelReceive, handle, outPtr)
	loaded := fe.block.NewLoad(wordI64, outPtr)
	fe.setResult(loaded)
	return nil
}

// VisitCastExpr lowers a checked numeric cast or an option forced
// unwrap (`opt as T`, §4.5.1's CastOptionUnwrap), panicking through
// panic_unwrap when the option is none.
func (fe *FunctionEmitter) VisitCastExpr(e *naml.CastExpr) error {
	operand, class, hasHeap, err := fe.lowerExpr(e.Operand)
	if err != nil {
		return err
	}
	switch e.Kind {
	case naml.CastOptionUnwrap:
		isNone := fe.block.NewICmp(enum.IPredEQ, operand, constant.NewInt(wordI64, 0))
		panicBlock := fe.fn.NewBlock(fe.freshName("opt.panic"))
		okBlock := fe.fn.NewBlock(fe.freshName("opt.ok"))
		fe.block.NewCondBr(isNone, panicBlock, okBlock)

		fe.setBlock(panicBlock)
		fe.block.NewCall(fe.symbols.PanicUnwrap(), operand)
		fe.block.NewUnreachable()

		fe.setBlock(okBlock)
		if hasHeap && class.Inner != nil {
			fe.setResultHeap(operand, *class.Inner)
		} else {
			fe.setResult(operand)
		}
		return nil
	case naml.CastNumeric:
		fe.setResult(fe.lowerNumericCast(e, operand))
		return nil
	default:
		return errors.Errorf("codegen: unhandled cast kind %v", e.Kind)
	}
}

func (fe *FunctionEmitter) lowerNumericCast(e *naml.CastExpr, operand value.Value) value.Value {
	targetIsFloat := false
	if named, ok := e.Target.(*naml.PrimitiveTypeExpr); ok {
		targetIsFloat = named.Kind == naml.PrimitiveFloat
	}
	srcIsFloat := operand.Type().Equal(wordF64)
	switch {
	case targetIsFloat && !srcIsFloat:
		return fe.block.NewSIToFP(operand, wordF64)
	case !targetIsFloat && srcIsFloat:
		return fe.block.NewFPToSI(operand, wordI64)
	default:
		return operand
	}
}

// VisitStructConstructExpr allocates a new struct of the named type
// and sets each listed field, in declaration order (§4.5.1 "Struct
// construct").
func (fe *FunctionEmitter) VisitStructConstructExpr(e *naml.StructConstructExpr) error {
	desc, ok := fe.structDescriptors[e.TypeName]
	if !ok {
		return errors.Errorf("codegen: no resolved struct descriptor for %q", fe.interner.Resolve(e.TypeName))
	}

	handle := fe.block.NewCall(fe.symbols.StructNew, constant.NewInt(wordI64, int64(desc.TypeID)), constant.NewInt(wordI64, int64(len(desc.Fields))))

	for _, fld := range e.Fields {
		idx, ok := fieldIndex(fe, e.TypeName, fld.Name)
		if !ok {
			return errors.Errorf("codegen: unknown field %q on struct construct", fe.interner.Resolve(fld.Name))
		}
		v, _, _, err := fe.lowerExpr(fld.Value)
		if err != nil {
			return err
		}
		fe.block.NewCall(fe.symbols.StructSetField, handle, constant.NewInt(wordI64, int64(idx)), v)
	}

	fe.setResultHeap(handle, naml.HeapClass{Kind: naml.HeapClassStruct})
	return nil
}

func fieldIndex(fe *FunctionEmitter, typeName, fieldName naml.Symbol) (int, bool) {
	desc, ok := fe.structDescriptors[typeName]
	if !ok {
		return 0, false
	}
	for i, f := range desc.Fields {
		if f.Name == fieldName {
			return i, true
		}
	}
	return 0, false
}

// VisitArrayLiteralExpr allocates an array sized to its element count
// and pushes each lowered element in order (§4.5.1 "Array literal").
func (fe *FunctionEmitter) VisitArrayLiteralExpr(e *naml.ArrayLiteralExpr) error {
	handle := fe.block.NewCall(fe.symbols.ArrayNew, constant.NewInt(wordI64, int64(len(e.Elements))))
	for _, elemExpr := range e.Elements {
		v, _, _, err := fe.lowerExpr(elemExpr)
		if err != nil {
			return err
		}
		fe.block.NewCall(fe.symbols.ArrayPush, handle, v)
	}
	fe.setResultHeap(handle, naml.HeapClass{Kind: naml.HeapClassArray})
	return nil
}

// VisitMapLiteralExpr allocates a map with the fixed initial capacity
// §4.5.1 specifies (16) and sets each entry in source order.
func (fe *FunctionEmitter) VisitMapLiteralExpr(e *naml.MapLiteralExpr) error {
	handle := fe.block.NewCall(fe.symbols.MapNew, constant.NewInt(wordI64, 16))
	for _, entry := range e.Entries {
		k, _, _, err := fe.lowerExpr(entry.Key)
		if err != nil {
			return err
		}
		v, _, _, err := fe.lowerExpr(entry.Value)
		if err != nil {
			return err
		}
		fe.block.NewCall(fe.symbols.MapSet, handle, k, v)
	}
	fe.setResultHeap(handle, naml.HeapClass{Kind: naml.HeapClassMap})
	return nil
}

// VisitBlockExpr lowers a brace-delimited sequence with an optional
// tail value, pushing and popping its own owned-variable scope
// (§4.5.2, §4.9).
func (fe *FunctionEmitter) VisitBlockExpr(e *naml.BlockExpr) error {
	fe.pushScope()
	for _, s := range e.Stmts {
		if fe.blockTerminated {
			break
		}
		if err := s.Accept(fe); err != nil {
			fe.popScope()
			return err
		}
	}
	if e.Tail != nil && !fe.blockTerminated {
		v, class, hasHeap, err := fe.lowerExpr(e.Tail)
		if err != nil {
			fe.popScope()
			return err
		}
		fe.popScope()
		if hasHeap {
			fe.setResultHeap(v, class)
		} else {
			fe.setResult(v)
		}
		return nil
	}
	fe.popScope()
	fe.setResult(constant.NewInt(wordI64, 0))
	return nil
}
