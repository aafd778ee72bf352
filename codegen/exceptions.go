package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/pkg/errors"

	naml "github.com/kahflane/naml-sub003"
)

// builtinExceptionTypeIDs maps the builtin exception struct names
// (§3.6) to their reserved type_id, mirroring rtype.go's
// BuiltinTypeID* constants without exporting a name->id lookup from
// the root package.
var builtinExceptionTypeIDs = map[string]uint32{
	"IOError":         naml.BuiltinTypeIDIOError,
	"DecodeError":     naml.BuiltinTypeIDDecodeError,
	"EncodeError":     naml.BuiltinTypeIDEncodeError,
	"PathError":       naml.BuiltinTypeIDPathError,
	"NetworkError":    naml.BuiltinTypeIDNetworkError,
	"TimeoutError":    naml.BuiltinTypeIDTimeoutError,
	"PermissionError": naml.BuiltinTypeIDPermissionError,
	"EnvError":        naml.BuiltinTypeIDEnvError,
	"OSError":         naml.BuiltinTypeIDOSError,
	"ProcessError":    naml.BuiltinTypeIDProcessError,
	"DBError":         naml.BuiltinTypeIDDBError,
	"ScheduleError":   naml.BuiltinTypeIDScheduleError,
	"TlsError":        naml.BuiltinTypeIDTlsError,
}

// exceptionTypeID resolves a catch clause's named exception type to
// the type_id its instances carry in their struct header, checking the
// builtin table first and falling back to a user-declared exception
// struct's own descriptor.
func (fe *FunctionEmitter) exceptionTypeID(t naml.TypeExpr) (int64, error) {
	named, ok := t.(*naml.NamedTypeExpr)
	if !ok {
		return 0, errors.Errorf("codegen: catch clause type must be a named exception type, got %T", t)
	}
	name := fe.interner.Resolve(named.Name)
	if id, ok := builtinExceptionTypeIDs[name]; ok {
		return int64(id), nil
	}
	if desc, ok := fe.structDescriptors[named.Name]; ok {
		return int64(desc.TypeID), nil
	}
	return 0, errors.Errorf("codegen: unresolved exception type %q in catch clause", name)
}

// VisitTryStmt lowers `try { body } catch (E1 e1) { ... } ...` per
// §4.5.3/§4.9: a dispatch block compares the pending exception's
// type_id against each catch clause in order, falling through to
// re-propagation if nothing in this try matches. Every throws-call
// inside Body consults this frame (via currentTry) instead of the bare
// propagate-probe emitThrowsProbe otherwise falls back to.
func (fe *FunctionEmitter) VisitTryStmt(s *naml.TryStmt) error {
	dispatch := fe.fn.NewBlock(fe.freshName("try.dispatch"))
	mergeBlock := fe.fn.NewBlock(fe.freshName("try.merge"))

	catchClauses := make([]catchClause, 0, len(s.Catches))
	for _, cc := range s.Catches {
		typeID, err := fe.exceptionTypeID(cc.ExceptionType)
		if err != nil {
			return err
		}
		catchClauses = append(catchClauses, catchClause{
			typeID:  typeID,
			handler: fe.fn.NewBlock(fe.freshName("catch")),
			binding: fe.interner.Resolve(cc.Binding),
		})
	}

	fe.pushTry(dispatch, catchClauses)
	fe.pushScope()
	if err := s.Body.Accept(fe); err != nil {
		fe.popScope()
		fe.popTry()
		return err
	}
	fe.popScope()
	if !fe.blockTerminated {
		fe.block.NewBr(mergeBlock)
	}
	fe.popTry()

	// Dispatch block: compare the pending exception's type_id against
	// each clause in source order, falling through to the next
	// comparison on a miss and re-propagating if none match.
	fe.setBlock(dispatch)
	excValue := fe.block.NewCall(fe.symbols.ExceptionGet)
	typeIDVal := fe.block.NewCall(fe.symbols.ExceptionGetTypeID)
	for i, cl := range catchClauses {
		isMatch := fe.block.NewICmp(enum.IPredEQ, typeIDVal, constant.NewInt(wordI64, cl.typeID))
		var missBlock *ir.Block
		if i == len(catchClauses)-1 {
			missBlock = fe.fn.NewBlock(fe.freshName("try.repropagate"))
		} else {
			missBlock = fe.fn.NewBlock(fe.freshName("try.next_clause"))
		}
		fe.block.NewCondBr(isMatch, cl.handler, missBlock)
		fe.setBlock(missBlock)
	}
	// fe.block is now either the last clause's miss block (no catch
	// matched) or dispatch itself when there were zero catch clauses.
	fe.decrefAllOwned()
	fe.emitExceptionalReturn()
	fe.blockTerminated = true

	// Each handler binds the caught exception (incref'd), clears the
	// pointer half of the exception slot (leaving the type id readable
	// by `is`-checks per §4.5.3), runs its body, and clears the type id
	// too on normal handler exit.
	for i, cc := range s.Catches {
		fe.setBlock(catchClauses[i].handler)
		fe.emitIncrefValue(excValue, naml.HeapClass{Kind: naml.HeapClassStruct})
		alloca := fe.declareVar(catchClauses[i].binding, wordI64, naml.HeapClass{Kind: naml.HeapClassStruct}, true, false)
		fe.block.NewStore(excValue, alloca)
		fe.block.NewCall(fe.symbols.ExceptionSet, constant.NewInt(wordI64, 0))

		fe.pushScope()
		if err := cc.Body.Accept(fe); err != nil {
			fe.popScope()
			return err
		}
		fe.popScope()
		if !fe.blockTerminated {
			fe.block.NewCall(fe.symbols.ExceptionSetTyped, constant.NewInt(wordI64, 0), constant.NewInt(wordI64, 0))
			fe.block.NewBr(mergeBlock)
		}
	}

	fe.setBlock(mergeBlock)
	return nil
}
