package codegen

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	naml "github.com/kahflane/naml-sub003"
)

// VisitVarStmt declares a mutable local and, if the declared type is
// heap-allocated, registers it as owned in the innermost scope so
// popScope decrefs it on the way out (§4.5.2 "Var", §4.4, §4.9).
func (fe *FunctionEmitter) VisitVarStmt(s *naml.VarStmt) error {
	return fe.declareLocal(s.Name, s.Init, false)
}

// VisitConstStmt is identical to VisitVarStmt for codegen purposes —
// the mutability distinction is enforced by the checker, not the
// emitter (§4.5.2 "Const").
func (fe *FunctionEmitter) VisitConstStmt(s *naml.ConstStmt) error {
	return fe.declareLocal(s.Name, s.Init, false)
}

func (fe *FunctionEmitter) declareLocal(name naml.Symbol, init naml.Expr, borrowed bool) error {
	v, class, hasHeap, err := fe.lowerExpr(init)
	if err != nil {
		return err
	}
	nameStr := fe.interner.Resolve(name)
	alloca := fe.declareVar(nameStr, v.Type(), class, hasHeap, borrowed)
	fe.block.NewStore(v, alloca)
	if init != nil {
		if ident, ok := init.(*naml.IdentExpr); ok {
			fe.markMoved(fe.interner.Resolve(ident.Name))
		}
	}
	return nil
}

// VisitAssignStmt lowers `target op= value` (§4.5.2 "Assign"),
// desugaring compound operators into a read-modify-write and routing
// the store through the target's shape (identifier, field, or index).
func (fe *FunctionEmitter) VisitAssignStmt(s *naml.AssignStmt) error {
	rhs, _, rhsHasHeap, err := fe.lowerExpr(s.Value)
	if err != nil {
		return err
	}

	switch target := s.Target.(type) {
	case *naml.IdentExpr:
		name := fe.interner.Resolve(target.Name)
		alloca, ok := fe.lookupVar(name)
		if !ok {
			return errors.Errorf("codegen: assignment to undeclared local %q", name)
		}
		newVal := rhs
		if s.Op != naml.AssignPlain {
			cur := fe.block.NewLoad(fe.varLLType[name], alloca)
			newVal, err = fe.applyAssignOp(s.Op, target, cur, rhs)
			if err != nil {
				return err
			}
		}
		if fe.varHasHeap[name] {
			fe.emitDecref(name, fe.varHeapType[name])
		}
		fe.block.NewStore(newVal, alloca)
		if rhsHasHeap {
			if ident, ok := s.Value.(*naml.IdentExpr); ok {
				fe.markMoved(fe.interner.Resolve(ident.Name))
			}
		}
		return nil

	case *naml.FieldAccessExpr:
		recvInfo, err := fe.typeInfo(target.Receiver)
		if err != nil {
			return err
		}
		recv, _, _, err := fe.lowerExpr(target.Receiver)
		if err != nil {
			return err
		}
		idx, ok := fieldIndex(fe, recvInfo.Type.Name, target.Field)
		if !ok {
			return errors.Errorf("codegen: unknown field %q in assignment", fe.interner.Resolve(target.Field))
		}
		newVal := rhs
		if s.Op != naml.AssignPlain {
			cur := fe.block.NewCall(fe.symbols.StructGetField, recv, constant.NewInt(wordI64, int64(idx)))
			newVal, err = fe.applyAssignOp(s.Op, target, cur, rhs)
			if err != nil {
				return err
			}
		}
		fe.block.NewCall(fe.symbols.StructSetField, recv, constant.NewInt(wordI64, int64(idx)), newVal)
		return nil

	case *naml.IndexExpr:
		recvInfo, err := fe.typeInfo(target.Receiver)
		if err != nil {
			return err
		}
		recv, _, _, err := fe.lowerExpr(target.Receiver)
		if err != nil {
			return err
		}
		index, _, _, err := fe.lowerExpr(target.Index)
		if err != nil {
			return err
		}
		class, ok := naml.ClassifyType(recvInfo.Type)
		if !ok {
			return errors.New("codegen: indexed assignment on a non-indexable receiver")
		}
		newVal := rhs
		if s.Op != naml.AssignPlain {
			var cur value.Value
			if class.Kind == naml.HeapClassArray {
				cur = fe.block.NewCall(fe.symbols.ArrayGet, recv, index)
			} else {
				cur = fe.block.NewCall(fe.symbols.MapGet, recv, index)
			}
			newVal, err = fe.applyAssignOp(s.Op, target, cur, rhs)
			if err != nil {
				return err
			}
		}
		switch class.Kind {
		case naml.HeapClassArray:
			fe.block.NewCall(fe.symbols.ArraySet, recv, index, newVal)
		case naml.HeapClassMap:
			fe.block.NewCall(fe.symbols.MapSet, recv, index, newVal)
		default:
			return errors.Errorf("codegen: unsupported indexed-assignment receiver heap class %v", class.Kind)
		}
		return nil

	default:
		return errors.Errorf("codegen: unsupported assignment target %T", target)
	}
}

// applyAssignOp folds cur and rhs via the binary operator the compound
// assignment op desugars to, using the target expression's resolved
// type to choose integer or float arithmetic (§4.5.2).
func (fe *FunctionEmitter) applyAssignOp(op naml.AssignOp, target naml.Expr, cur, rhs value.Value) (value.Value, error) {
	binOp, err := assignOpToBinaryOp(op)
	if err != nil {
		return nil, err
	}
	info, err := fe.typeInfo(target)
	if err != nil {
		return nil, err
	}
	isFloat := info.Type != nil && info.Type.Kind == naml.TypeKindPrimitive && info.Type.Primitive == naml.PrimitiveFloat
	if isFloat {
		return fe.emitFloatBinary(binOp, cur, rhs), nil
	}
	return fe.emitIntBinary(binOp, cur, rhs), nil
}

func assignOpToBinaryOp(op naml.AssignOp) (naml.BinaryOp, error) {
	switch op {
	case naml.AssignAdd:
		return naml.BinAdd, nil
	case naml.AssignSub:
		return naml.BinSub, nil
	case naml.AssignMul:
		return naml.BinMul, nil
	case naml.AssignDiv:
		return naml.BinDiv, nil
	case naml.AssignMod:
		return naml.BinMod, nil
	default:
		return 0, errors.Errorf("codegen: not a compound assignment operator: %v", op)
	}
}

// VisitExprStmt lowers an expression evaluated for its side effects;
// a heap-classified result with no binding is discarded immediately
// via decref, per §4.2's ownership discipline for unused temporaries.
func (fe *FunctionEmitter) VisitExprStmt(s *naml.ExprStmt) error {
	v, class, hasHeap, err := fe.lowerExpr(s.Expr)
	if err != nil {
		return err
	}
	if hasHeap {
		fe.emitDecrefValue(v, class)
	}
	return nil
}

// emitDecrefValue decrefs an already-loaded value directly, as opposed
// to emitDecref which re-loads it from a named local's slot.
func (fe *FunctionEmitter) emitDecrefValue(v value.Value, class naml.HeapClass) {
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
	fe.block.NewCall(fn, v)
}

// VisitReturnStmt lowers `return expr?`, decreffing every owned local
// across all open scopes before emitting the function's ret, per
// §4.4's "scope exits must decref all owned locals" — the returned
// value itself is exempted by marking it moved when it is a bare
// identifier (§4.9).
func (fe *FunctionEmitter) VisitReturnStmt(s *naml.ReturnStmt) error {
	if s.Value == nil {
		fe.decrefAllOwned()
		fe.block.NewRet(nil)
		fe.blockTerminated = true
		return nil
	}
	if ident, ok := s.Value.(*naml.IdentExpr); ok {
		fe.markMoved(fe.interner.Resolve(ident.Name))
	}
	v, _, _, err := fe.lowerExpr(s.Value)
	if err != nil {
		return err
	}
	fe.decrefAllOwned()
	fe.block.NewRet(v)
	fe.blockTerminated = true
	return nil
}

// VisitThrowStmt sets both halves of the thread-local exception slot
// (the thrown struct and its type_id) and either jumps
// straight to the enclosing try's dispatch block or decrefs and
// returns the function's zero value, mirroring emitThrowsProbe's
// catch-probe/propagate-probe split but taken unconditionally since a
// throw always raises (§4.5.3).
func (fe *FunctionEmitter) VisitThrowStmt(s *naml.ThrowStmt) error {
	v, _, _, err := fe.lowerExpr(s.Value)
	if err != nil {
		return err
	}
	info, err := fe.typeInfo(s.Value)
	if err != nil {
		return err
	}
	if info.Type == nil {
		return errors.New("codegen: thrown value has no resolved type")
	}
	typeID, err := fe.exceptionTypeID(&naml.NamedTypeExpr{Name: info.Type.Name})
	if err != nil {
		return err
	}
	fe.block.NewCall(fe.symbols.ExceptionSetTyped, v, constant.NewInt(wordI64, typeID))
	if tf, ok := fe.currentTry(); ok {
		fe.block.NewBr(tf.dispatch)
	} else {
		fe.decrefAllOwned()
		fe.emitExceptionalReturn()
	}
	fe.blockTerminated = true
	return nil
}

// VisitIfStmt lowers `if cond { then } else { else_ }?` with a merge
// block joined from whichever arms fall through (§4.5.2 "If").
func (fe *FunctionEmitter) VisitIfStmt(s *naml.IfStmt) error {
	cond, _, _, err := fe.lowerExpr(s.Cond)
	if err != nil {
		return err
	}
	condBool := fe.block.NewICmp(enum.IPredNE, cond, constant.NewInt(wordI64, 0))

	thenBlock := fe.fn.NewBlock(fe.freshName("if.then"))
	mergeBlock := fe.fn.NewBlock(fe.freshName("if.merge"))
	elseBlock := mergeBlock
	if s.Else != nil {
		elseBlock = fe.fn.NewBlock(fe.freshName("if.else"))
	}
	fe.block.NewCondBr(condBool, thenBlock, elseBlock)

	fe.setBlock(thenBlock)
	if err := s.Then.Accept(fe); err != nil {
		return err
	}
	if !fe.blockTerminated {
		fe.block.NewBr(mergeBlock)
	}

	if s.Else != nil {
		fe.setBlock(elseBlock)
		if err := s.Else.Accept(fe); err != nil {
			return err
		}
		if !fe.blockTerminated {
			fe.block.NewBr(mergeBlock)
		}
	}

	fe.setBlock(mergeBlock)
	return nil
}

// VisitWhileStmt lowers `while cond { body }` as header/body/exit
// blocks, registering the loop frame so break/continue resolve
// (§4.5.2 "While", §4.9).
func (fe *FunctionEmitter) VisitWhileStmt(s *naml.WhileStmt) error {
	header := fe.fn.NewBlock(fe.freshName("while.header"))
	body := fe.fn.NewBlock(fe.freshName("while.body"))
	exit := fe.fn.NewBlock(fe.freshName("while.exit"))

	fe.block.NewBr(header)
	fe.setBlock(header)
	cond, _, _, err := fe.lowerExpr(s.Cond)
	if err != nil {
		return err
	}
	condBool := fe.block.NewICmp(enum.IPredNE, cond, constant.NewInt(wordI64, 0))
	fe.block.NewCondBr(condBool, body, exit)

	fe.setBlock(body)
	fe.pushLoop(header, exit)
	err = s.Body.Accept(fe)
	fe.popLoop()
	if err != nil {
		return err
	}
	if !fe.blockTerminated {
		fe.block.NewBr(header)
	}

	fe.setBlock(exit)
	return nil
}

// VisitForStmt lowers `for name in iterable { body }` over an array
// value, tracking a running index alloca and binding it when HasIndex
// is set (§3.3, §4.5.2 "For").
func (fe *FunctionEmitter) VisitForStmt(s *naml.ForStmt) error {
	arr, _, _, err := fe.lowerExpr(s.Iterable)
	if err != nil {
		return err
	}
	iterInfo, err := fe.typeInfo(s.Iterable)
	if err != nil {
		return err
	}
	var elemClass naml.HeapClass
	elemHasHeap := false
	if iterInfo.Type != nil && iterInfo.Type.Elem != nil {
		if c, ok := naml.ClassifyType(iterInfo.Type.Elem); ok {
			elemClass, elemHasHeap = c, true
		}
	}

	idxAlloca := fe.declareVar(fe.freshName("for.idx"), wordI64, naml.HeapClass{}, false, true)
	fe.block.NewStore(constant.NewInt(wordI64, 0), idxAlloca)

	header := fe.fn.NewBlock(fe.freshName("for.header"))
	body := fe.fn.NewBlock(fe.freshName("for.body"))
	exit := fe.fn.NewBlock(fe.freshName("for.exit"))

	fe.block.NewBr(header)
	fe.setBlock(header)
	idx := fe.block.NewLoad(wordI64, idxAlloca)
	length := fe.block.NewCall(fe.symbols.ArrayLen, arr)
	inBounds := fe.block.NewICmp(enum.IPredSLT, idx, length)
	fe.block.NewCondBr(inBounds, body, exit)

	fe.setBlock(body)
	fe.pushScope()
	elem := fe.block.NewCall(fe.symbols.ArrayGet, arr, idx)
	bindingName := fe.interner.Resolve(s.Binding)
	bindAlloca := fe.declareVar(bindingName, wordI64, elemClass, elemHasHeap, false)
	fe.block.NewStore(elem, bindAlloca)
	if s.HasIndex {
		idxBindAlloca := fe.declareVar(fe.interner.Resolve(s.IndexBinding), wordI64, naml.HeapClass{}, false, true)
		fe.block.NewStore(idx, idxBindAlloca)
	}

	fe.pushLoop(header, exit)
	err = s.Body.Accept(fe)
	fe.popLoop()
	if err != nil {
		fe.popScope()
		return err
	}
	if !fe.blockTerminated {
		fe.popScope()
		next := fe.block.NewAdd(idx, constant.NewInt(wordI64, 1))
		fe.block.NewStore(next, idxAlloca)
		fe.block.NewBr(header)
	}

	fe.setBlock(exit)
	return nil
}

// VisitLoopStmt lowers `loop { body }`, an unconditional loop exited
// only via break/return/throw (§4.5.2 "Loop").
func (fe *FunctionEmitter) VisitLoopStmt(s *naml.LoopStmt) error {
	header := fe.fn.NewBlock(fe.freshName("loop.header"))
	exit := fe.fn.NewBlock(fe.freshName("loop.exit"))

	fe.block.NewBr(header)
	fe.setBlock(header)

	fe.pushLoop(header, exit)
	err := s.Body.Accept(fe)
	fe.popLoop()
	if err != nil {
		return err
	}
	if !fe.blockTerminated {
		fe.block.NewBr(header)
	}

	fe.setBlock(exit)
	return nil
}

// VisitSwitchStmt lowers a pattern-matching switch as a chain of
// test/body block pairs tried in source order, per §4.5.1's
// literal/bare-identifier/qualified-variant/wildcard pattern dispatch.
func (fe *FunctionEmitter) VisitSwitchStmt(s *naml.SwitchStmt) error {
	scrutineeInfo, err := fe.typeInfo(s.Scrutinee)
	if err != nil {
		return err
	}
	scrutinee, _, _, err := fe.lowerExpr(s.Scrutinee)
	if err != nil {
		return err
	}

	mergeBlock := fe.fn.NewBlock(fe.freshName("switch.merge"))

	for _, cs := range s.Cases {
		bodyBlock := fe.fn.NewBlock(fe.freshName("switch.case"))
		nextBlock := mergeBlock
		isLast := cs.Pattern == nil
		if !isLast {
			nextBlock = fe.fn.NewBlock(fe.freshName("switch.next"))
		}

		matched, err := fe.lowerPatternTest(cs.Pattern, scrutineeInfo, scrutinee)
		if err != nil {
			return err
		}
		if matched == nil {
			fe.block.NewBr(bodyBlock)
		} else {
			fe.block.NewCondBr(matched, bodyBlock, nextBlock)
		}

		fe.setBlock(bodyBlock)
		if err := fe.bindPattern(cs.Pattern, scrutineeInfo, scrutinee); err != nil {
			return err
		}
		fe.pushScope()
		if cs.Guard != nil {
			guard, _, _, err := fe.lowerExpr(cs.Guard)
			if err != nil {
				fe.popScope()
				return err
			}
			guardBool := fe.block.NewICmp(enum.IPredNE, guard, constant.NewInt(wordI64, 0))
			guardBody := fe.fn.NewBlock(fe.freshName("switch.guard.body"))
			fe.block.NewCondBr(guardBool, guardBody, nextBlock)
			fe.setBlock(guardBody)
		}
		if err := cs.Body.Accept(fe); err != nil {
			fe.popScope()
			return err
		}
		fe.popScope()
		if !fe.blockTerminated {
			fe.block.NewBr(mergeBlock)
		}

		fe.setBlock(nextBlock)
	}

	fe.setBlock(mergeBlock)
	return nil
}

// lowerPatternTest emits the i1 "does this case match" probe for a
// pattern. A nil pattern (the default arm) and a wildcard always
// match, represented by a nil return so the caller emits an
// unconditional branch instead of a pointless condbr.
func (fe *FunctionEmitter) lowerPatternTest(pat naml.Pattern, scrutineeInfo naml.ExprTypeInfo, scrutinee value.Value) (value.Value, error) {
	switch p := pat.(type) {
	case nil:
		return nil, nil
	case *naml.WildcardPattern:
		return nil, nil
	case *naml.LiteralPattern:
		lit, _, _, err := fe.lowerLiteralValue(p.Value)
		if err != nil {
			return nil, err
		}
		return fe.block.NewICmp(enum.IPredEQ, scrutinee, lit), nil
	case *naml.IdentPattern:
		if scrutineeInfo.Type != nil && scrutineeInfo.Type.Kind == naml.TypeKindEnum {
			variant, ok := fe.findVariant(scrutineeInfo.Type, p.Name)
			if !ok {
				return nil, nil
			}
			tag := fe.block.NewCall(fe.symbols.StructGetField, scrutinee, constant.NewInt(wordI64, 0))
			return fe.block.NewICmp(enum.IPredEQ, tag, constant.NewInt(wordI64, int64(variant.Tag))), nil
		}
		return nil, nil
	case *naml.VariantPattern:
		variant, ok := fe.findVariant(scrutineeInfo.Type, p.VariantName)
		if !ok {
			return nil, errors.Errorf("codegen: unknown enum variant %q in pattern", fe.interner.Resolve(p.VariantName))
		}
		tag := fe.block.NewCall(fe.symbols.StructGetField, scrutinee, constant.NewInt(wordI64, 0))
		return fe.block.NewICmp(enum.IPredEQ, tag, constant.NewInt(wordI64, int64(variant.Tag))), nil
	default:
		return nil, errors.Errorf("codegen: unhandled pattern kind %T", p)
	}
}

// bindPattern emits the local declarations a matched pattern
// introduces: an IdentPattern that doesn't name an enum variant binds
// the whole scrutinee, and a VariantPattern binds each payload field
// in order, read back via struct_get_field starting at slot 1 (slot 0
// is the tag).
func (fe *FunctionEmitter) bindPattern(pat naml.Pattern, scrutineeInfo naml.ExprTypeInfo, scrutinee value.Value) error {
	switch p := pat.(type) {
	case *naml.IdentPattern:
		if scrutineeInfo.Type != nil && scrutineeInfo.Type.Kind == naml.TypeKindEnum {
			if _, ok := fe.findVariant(scrutineeInfo.Type, p.Name); ok {
				return nil
			}
		}
		name := fe.interner.Resolve(p.Name)
		class, hasHeap := naml.ClassifyType(scrutineeInfo.Type)
		alloca := fe.declareVar(name, wordI64, class, hasHeap, false)
		fe.block.NewStore(scrutinee, alloca)
		return nil
	case *naml.VariantPattern:
		variant, ok := fe.findVariant(scrutineeInfo.Type, p.VariantName)
		if !ok {
			return errors.Errorf("codegen: unknown enum variant %q in pattern binding", fe.interner.Resolve(p.VariantName))
		}
		for i, bind := range p.Bindings {
			slot := i + 1
			v := fe.block.NewCall(fe.symbols.StructGetField, scrutinee, constant.NewInt(wordI64, int64(slot)))
			var class naml.HeapClass
			hasHeap := false
			if i < len(variant.Payload) {
				if c, ok := naml.ClassifyType(variant.Payload[i].Type); ok {
					class, hasHeap = c, true
				}
			}
			name := fe.interner.Resolve(bind.Name)
			alloca := fe.declareVar(name, wordI64, class, hasHeap, false)
			fe.block.NewStore(v, alloca)
		}
		return nil
	default:
		return nil
	}
}

func (fe *FunctionEmitter) findVariant(enumType *naml.Type, name naml.Symbol) (naml.EnumVariantDescriptor, bool) {
	if enumType == nil || enumType.Enum == nil {
		return naml.EnumVariantDescriptor{}, false
	}
	for _, v := range enumType.Enum.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return naml.EnumVariantDescriptor{}, false
}

// lowerLiteralValue lowers a Literal (the small closed family used in
// patterns) the same way VisitLiteralExpr lowers a LiteralExpr, without
// requiring a synthetic *LiteralExpr wrapper.
func (fe *FunctionEmitter) lowerLiteralValue(lit naml.Literal) (value.Value, naml.HeapClass, bool, error) {
	switch l := lit.(type) {
	case *naml.IntLiteral:
		return constant.NewInt(wordI64, l.Value), naml.HeapClass{}, false, nil
	case *naml.UintLiteral:
		return constant.NewInt(wordI64, int64(l.Value)), naml.HeapClass{}, false, nil
	case *naml.FloatLiteral:
		return constant.NewFloat(wordF64, l.Value), naml.HeapClass{}, false, nil
	case *naml.BoolLiteral:
		v := int64(0)
		if l.Value {
			v = 1
		}
		return constant.NewInt(wordI64, v), naml.HeapClass{}, false, nil
	case *naml.NoneLiteral:
		return constant.NewInt(wordI64, 0), naml.HeapClass{}, false, nil
	default:
		return nil, naml.HeapClass{}, false, errors.Errorf("codegen: unsupported literal pattern kind %T", l)
	}
}

// VisitBreakStmt exits the nearest enclosing loop, decreffing every
// owned local first (§4.5.2 "Break", §4.9).
func (fe *FunctionEmitter) VisitBreakStmt(*naml.BreakStmt) error {
	_, exit, ok := fe.currentLoop()
	if !ok {
		return errors.New("codegen: break outside a loop")
	}
	fe.decrefAllOwned()
	fe.block.NewBr(exit)
	fe.blockTerminated = true
	return nil
}

// VisitContinueStmt jumps to the nearest enclosing loop's header,
// decreffing every owned local first (§4.5.2 "Continue", §4.9).
func (fe *FunctionEmitter) VisitContinueStmt(*naml.ContinueStmt) error {
	header, _, ok := fe.currentLoop()
	if !ok {
		return errors.New("codegen: continue outside a loop")
	}
	fe.decrefAllOwned()
	fe.block.NewBr(header)
	fe.blockTerminated = true
	return nil
}

// VisitBlockStmt lowers a brace-delimited statement sequence with its
// own owned-variable scope (§4.5.2, §4.9).
func (fe *FunctionEmitter) VisitBlockStmt(s *naml.BlockStmt) error {
	fe.pushScope()
	for _, st := range s.Stmts {
		if fe.blockTerminated {
			break
		}
		if err := st.Accept(fe); err != nil {
			fe.popScope()
			return err
		}
	}
	fe.popScope()
	return nil
}
