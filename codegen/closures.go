package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	naml "github.com/kahflane/naml-sub003"
)

// captureCollector walks a lambda or spawn body recording every
// identifier it references, the same free-variable analysis §4.5.1's
// "Closure" packs into a capture data buffer. It implements both
// visitor interfaces the way the rest of codegen reuses Accept
// dispatch, rather than hand-rolling a parallel type switch over the
// open Expr/Stmt families.
type captureCollector struct {
	refs  map[naml.Symbol]bool
	bound map[naml.Symbol]bool
}

func newCaptureCollector(bound []naml.Symbol) *captureCollector {
	c := &captureCollector{refs: make(map[naml.Symbol]bool), bound: make(map[naml.Symbol]bool, len(bound))}
	for _, b := range bound {
		c.bound[b] = true
	}
	return c
}

func (c *captureCollector) VisitLiteralExpr(*naml.LiteralExpr) error { return nil }

func (c *captureCollector) VisitIdentExpr(e *naml.IdentExpr) error {
	c.refs[e.Name] = true
	return nil
}

func (c *captureCollector) VisitBinaryExpr(e *naml.BinaryExpr) error {
	return firstErr(e.Lhs.Accept(c), e.Rhs.Accept(c))
}
func (c *captureCollector) VisitUnaryExpr(e *naml.UnaryExpr) error { return e.Operand.Accept(c) }
func (c *captureCollector) VisitCallExpr(e *naml.CallExpr) error {
	if err := e.Callee.Accept(c); err != nil {
		return err
	}
	return acceptAllExpr(c, e.Args)
}
func (c *captureCollector) VisitMethodCallExpr(e *naml.MethodCallExpr) error {
	if err := e.Receiver.Accept(c); err != nil {
		return err
	}
	return acceptAllExpr(c, e.Args)
}
func (c *captureCollector) VisitFieldAccessExpr(e *naml.FieldAccessExpr) error {
	return e.Receiver.Accept(c)
}
func (c *captureCollector) VisitIndexExpr(e *naml.IndexExpr) error {
	return firstErr(e.Receiver.Accept(c), e.Index.Accept(c))
}
func (c *captureCollector) VisitLambdaExpr(e *naml.LambdaExpr) error {
	var bound []naml.Symbol
	for _, p := range e.Params {
		bound = append(bound, p.Name)
	}
	inner := newCaptureCollector(bound)
	if err := e.Body.Accept(inner); err != nil {
		return err
	}
	for sym := range inner.refs {
		if !inner.bound[sym] {
			c.refs[sym] = true
		}
	}
	return nil
}
func (c *captureCollector) VisitSpawnExpr(e *naml.SpawnExpr) error { return e.Body.Accept(c) }
func (c *captureCollector) VisitAwaitExpr(e *naml.AwaitExpr) error { return e.Operand.Accept(c) }
func (c *captureCollector) VisitCastExpr(e *naml.CastExpr) error  { return e.Operand.Accept(c) }
func (c *captureCollector) VisitStructConstructExpr(e *naml.StructConstructExpr) error {
	for _, f := range e.Fields {
		if err := f.Value.Accept(c); err != nil {
			return err
		}
	}
	return nil
}
func (c *captureCollector) VisitArrayLiteralExpr(e *naml.ArrayLiteralExpr) error {
	return acceptAllExpr(c, e.Elements)
}
func (c *captureCollector) VisitMapLiteralExpr(e *naml.MapLiteralExpr) error {
	for _, ent := range e.Entries {
		if err := firstErr(ent.Key.Accept(c), ent.Value.Accept(c)); err != nil {
			return err
		}
	}
	return nil
}
func (c *captureCollector) VisitBlockExpr(e *naml.BlockExpr) error {
	for _, s := range e.Stmts {
		if err := s.Accept(c); err != nil {
			return err
		}
	}
	if e.Tail != nil {
		return e.Tail.Accept(c)
	}
	return nil
}

func (c *captureCollector) VisitVarStmt(s *naml.VarStmt) error {
	if s.Init != nil {
		if err := s.Init.Accept(c); err != nil {
			return err
		}
	}
	c.bound[s.Name] = true
	return nil
}
func (c *captureCollector) VisitConstStmt(s *naml.ConstStmt) error {
	if err := s.Init.Accept(c); err != nil {
		return err
	}
	c.bound[s.Name] = true
	return nil
}
func (c *captureCollector) VisitAssignStmt(s *naml.AssignStmt) error {
	return firstErr(s.Target.Accept(c), s.Value.Accept(c))
}
func (c *captureCollector) VisitExprStmt(s *naml.ExprStmt) error { return s.Expr.Accept(c) }
func (c *captureCollector) VisitReturnStmt(s *naml.ReturnStmt) error {
	if s.Value == nil {
		return nil
	}
	return s.Value.Accept(c)
}
func (c *captureCollector) VisitThrowStmt(s *naml.ThrowStmt) error { return s.Value.Accept(c) }
func (c *captureCollector) VisitTryStmt(s *naml.TryStmt) error {
	if err := s.Body.Accept(c); err != nil {
		return err
	}
	for _, cc := range s.Catches {
		inner := newCaptureCollector([]naml.Symbol{cc.Binding})
		if err := cc.Body.Accept(inner); err != nil {
			return err
		}
		for sym := range inner.refs {
			if !inner.bound[sym] {
				c.refs[sym] = true
			}
		}
	}
	return nil
}
func (c *captureCollector) VisitIfStmt(s *naml.IfStmt) error {
	if err := s.Cond.Accept(c); err != nil {
		return err
	}
	if err := s.Then.Accept(c); err != nil {
		return err
	}
	if s.Else != nil {
		return s.Else.Accept(c)
	}
	return nil
}
func (c *captureCollector) VisitWhileStmt(s *naml.WhileStmt) error {
	return firstErr(s.Cond.Accept(c), s.Body.Accept(c))
}
func (c *captureCollector) VisitForStmt(s *naml.ForStmt) error {
	if err := s.Iterable.Accept(c); err != nil {
		return err
	}
	c.bound[s.Binding] = true
	if s.HasIndex {
		c.bound[s.IndexBinding] = true
	}
	return s.Body.Accept(c)
}
func (c *captureCollector) VisitLoopStmt(s *naml.LoopStmt) error { return s.Body.Accept(c) }
func (c *captureCollector) VisitSwitchStmt(s *naml.SwitchStmt) error {
	if err := s.Scrutinee.Accept(c); err != nil {
		return err
	}
	for _, cs := range s.Cases {
		if cs.Guard != nil {
			if err := cs.Guard.Accept(c); err != nil {
				return err
			}
		}
		if err := cs.Body.Accept(c); err != nil {
			return err
		}
	}
	return nil
}
func (c *captureCollector) VisitBreakStmt(*naml.BreakStmt) error       { return nil }
func (c *captureCollector) VisitContinueStmt(*naml.ContinueStmt) error { return nil }
func (c *captureCollector) VisitBlockStmt(s *naml.BlockStmt) error {
	for _, st := range s.Stmts {
		if err := st.Accept(c); err != nil {
			return err
		}
	}
	return nil
}

func acceptAllExpr(v naml.ExprVisitor, exprs []naml.Expr) error {
	for _, e := range exprs {
		if err := e.Accept(v); err != nil {
			return err
		}
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// lowerClosure implements §4.5.1's "Closure": pack every captured
// outer variable into a fresh data buffer, emit a standalone function
// with signature (data_ptr, params..., worker_id) -> result, and return a handle
// a caller can invoke later. Since every naml value is one machine
// word, the handle is itself a 2-field heap struct — {fn_ptr_as_i64,
// data_ptr_as_i64} — built with the same struct_new/struct_set_field
// pair user struct literals use rather than widening the ABI with a
// dedicated closure-object kind.
func (fe *FunctionEmitter) lowerClosure(e *naml.LambdaExpr) error {
	paramNames := make([]naml.Symbol, len(e.Params))
	for i, p := range e.Params {
		paramNames[i] = p.Name
	}
	captured, err := fe.collectCaptures(e.Body, paramNames)
	if err != nil {
		return err
	}

	trampoline, dataPtr, err := fe.emitTrampoline(fe.freshName("lambda"), e.Params, e.Body, captured, false)
	if err != nil {
		return err
	}

	handle := fe.packClosureHandle(trampoline, dataPtr)
	fe.setResultHeap(handle, naml.HeapClass{Kind: naml.HeapClassStruct})
	return nil
}

// lowerSpawn implements §4.5.1's "Spawn block": identical capture
// packing to a closure, but the generated function takes only
// (data_ptr), returns nothing, and is handed to spawn_closure instead
// of returned as a callable value. A capacity-1 completion channel is
// folded into the capture set so `await` has something to block on —
// the scheduler itself is fire-and-forget (§4.7), so the handshake
// needed for await-on-a-spawn is modeled at the codegen level instead
// of the runtime's task queue.
func (fe *FunctionEmitter) lowerSpawn(e *naml.SpawnExpr) error {
	captured, err := fe.collectCaptures(e.Body, nil)
	if err != nil {
		return err
	}

	doneChannel := fe.block.NewCall(fe.symbols.ChannelNew, constant.NewInt(wordI64, 1))

	trampoline, dataPtr, err := fe.emitTrampolineWithDone(fe.freshName("spawn"), nil, e.Body, captured, true, doneChannel)
	if err != nil {
		return err
	}

	fnPtr := fe.block.NewPtrToInt(trampoline, wordI64)
	fe.block.NewCall(fe.symbols.SpawnClosure, fe.block.NewIntToPtr(fnPtr, wordPtr), dataPtr, constant.NewInt(wordI64, int64(8*(len(captured)+1))))

	fe.setResultHeap(doneChannel, naml.HeapClass{Kind: naml.HeapClassChannel})
	return nil
}

type capturedVar struct {
	name  string
	value value.Value
	llT   types.Type
}

// collectCaptures runs the free-variable walk and resolves each free
// name against this function's currently live locals — a name the
// walk found that is not a live local is a global/function reference
// and needs no capture slot.
func (fe *FunctionEmitter) collectCaptures(body *naml.BlockExpr, excludeParams []naml.Symbol) ([]capturedVar, error) {
	collector := newCaptureCollector(excludeParams)
	if err := body.Accept(collector); err != nil {
		return nil, err
	}
	var out []capturedVar
	for sym := range collector.refs {
		if collector.bound[sym] {
			continue
		}
		name := fe.interner.Resolve(sym)
		alloca, ok := fe.variables[name]
		if !ok {
			continue
		}
		out = append(out, capturedVar{name: name, value: fe.block.NewLoad(fe.varLLType[name], alloca), llT: fe.varLLType[name]})
	}
	return out, nil
}

// emitTrampoline allocates a capture buffer sized to len(captured)
// words, plus one extra slot for the spawn completion channel handle
// when isSpawn is true, stores each captured value, and
// declares+defines the lowered function body in a fresh
// FunctionEmitter sharing this one's module-level tables.
func (fe *FunctionEmitter) emitTrampoline(name string, params []naml.LambdaParam, body *naml.BlockExpr, captured []capturedVar, isSpawn bool) (*ir.Func, value.Value, error) {
	return fe.emitTrampolineWithDone(name, params, body, captured, isSpawn, nil)
}

// emitTrampolineWithDone is emitTrampoline's real body; a spawn passes
// its completion channel through doneChannel so the entry in
// trampolineDoneChannels exists before the body is lowered (the body's
// own channel_send lookup happens mid-lowering, not after this
// function returns).
func (fe *FunctionEmitter) emitTrampolineWithDone(name string, params []naml.LambdaParam, body *naml.BlockExpr, captured []capturedVar, isSpawn bool, doneChannel value.Value) (*ir.Func, value.Value, error) {
	slots := len(captured)
	if isSpawn {
		slots++
	}
	dataPtr := fe.block.NewCall(fe.symbols.AllocClosureData, constant.NewInt(wordI64, int64(8*slots)))
	base := types.NewPointer(wordI64)
	for i, cv := range captured {
		slot := fe.block.NewGetElementPtr(wordI64, fe.block.NewBitCast(dataPtr, base), constant.NewInt(wordI64, int64(i)))
		fe.block.NewStore(cv.value, slot)
	}
	if doneChannel != nil {
		slot := fe.block.NewGetElementPtr(wordI64, fe.block.NewBitCast(dataPtr, base), constant.NewInt(wordI64, int64(len(captured))))
		fe.block.NewStore(doneChannel, slot)
	}

	var retType types.Type = wordI64
	if isSpawn {
		retType = types.Void
	}
	irParams := []*ir.Param{ir.NewParam("data", wordPtr)}
	for _, p := range params {
		irParams = append(irParams, ir.NewParam(fe.interner.Resolve(p.Name), wordI64))
	}
	if !isSpawn {
		irParams = append(irParams, ir.NewParam("worker_id", wordI64))
	}
	fn := fe.module.NewFunc(name, retType, irParams...)

	sub := NewFunctionEmitter(fe.module, fe.symbols, fe.db, fe.interner, fe.structDescriptors, fe.throwingFuncs)
	sub.trampolineDoneChannels = fe.trampolineDoneChannels
	sub.monomorph = fe.monomorph
	sub.fn = fn
	entry := fn.NewBlock("entry")
	sub.setBlock(entry)
	sub.workerID = fn.Params[len(fn.Params)-1]
	if isSpawn {
		sub.workerID = nil
	}

	dataParam := fn.Params[0]
	typedBase := sub.block.NewBitCast(dataParam, base)
	sub.pushScope()
	for i, cv := range captured {
		slot := sub.block.NewGetElementPtr(wordI64, typedBase, constant.NewInt(wordI64, int64(i)))
		loaded := sub.block.NewLoad(wordI64, slot)
		sub.declareVar(cv.name, wordI64, naml.HeapClass{}, false, true)
		sub.block.NewStore(loaded, sub.variables[cv.name])
	}
	if doneChannel != nil {
		slot := sub.block.NewGetElementPtr(wordI64, typedBase, constant.NewInt(wordI64, int64(len(captured))))
		sub.trampolineDoneChannels[fn] = sub.block.NewLoad(wordI64, slot)
	}
	for i, p := range params {
		pname := fe.interner.Resolve(p.Name)
		sub.declareVar(pname, wordI64, naml.HeapClass{}, false, false)
		sub.block.NewStore(fn.Params[i+1], sub.variables[pname])
	}

	if err := body.Accept(sub); err != nil {
		return nil, nil, errors.Wrapf(err, "codegen: lowering trampoline %q", name)
	}

	if isSpawn {
		if done, ok := sub.trampolineDoneChannels[fn]; ok {
			sub.block.NewCall(sub.symbols.ChannelSend, done, constant.NewInt(wordI64, 1))
		}
		sub.decrefAllOwned()
		sub.popScope()
		if !sub.blockTerminated {
			sub.block.NewRet(nil)
		}
	} else {
		result := sub.result
		sub.popScope()
		if !sub.blockTerminated {
			sub.block.NewRet(result)
		}
	}

	return fn, dataPtr, nil
}

// packClosureHandle builds the {fn_ptr, data_ptr} struct handle a
// lambda value reduces to, using the same struct_new/struct_set_field
// pair as an ordinary struct literal with a reserved synthetic type ID.
const closureStructTypeID = 0xFFFE_0001

func (fe *FunctionEmitter) packClosureHandle(fn *ir.Func, dataPtr value.Value) value.Value {
	handle := fe.block.NewCall(fe.symbols.StructNew, constant.NewInt(wordI64, closureStructTypeID), constant.NewInt(wordI64, 2))
	fnAsInt := fe.block.NewPtrToInt(fn, wordI64)
	dataAsInt := fe.block.NewPtrToInt(dataPtr, wordI64)
	fe.block.NewCall(fe.symbols.StructSetField, handle, constant.NewInt(wordI64, 0), fnAsInt)
	fe.block.NewCall(fe.symbols.StructSetField, handle, constant.NewInt(wordI64, 1), dataAsInt)
	return handle
}
