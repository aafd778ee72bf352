package codegen

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	naml "github.com/kahflane/naml-sub003"
)

// outputWriter is an indenting string builder, adapted line-for-line
// from the teacher's gen.go: a small enough helper that every one of
// the teacher's text-emitting backends (gen_go.go, genc.go, ...)
// reused the identical type rather than each rolling its own.
type outputWriter struct {
	buffer      *strings.Builder
	indentLevel int
	space       string
}

func newOutputWriter(space string) *outputWriter {
	return &outputWriter{buffer: &strings.Builder{}, space: space}
}

func (o *outputWriter) indent()   { o.indentLevel++ }
func (o *outputWriter) unindent() { o.indentLevel-- }

func (o *outputWriter) writeIndent() {
	for i := 0; i < o.indentLevel; i++ {
		o.buffer.WriteString(o.space)
	}
}

func (o *outputWriter) writei(s string) { o.writeIndent(); o.write(s) }
func (o *outputWriter) writeil(s string) {
	o.writeIndent()
	o.write(s)
	o.write("\n")
}
func (o *outputWriter) writel(s string) { o.write(s); o.buffer.WriteString("\n") }
func (o *outputWriter) write(s string)  { o.buffer.WriteString(s) }

// TranspileOptions configures the C transpiler, the "External codegen
// (transpiler)" row of §2's component table — naml's one alternative
// backend to the SSA/JIT path, emitting textual C against the same
// runtime ABI names codegen/symbols.go declares as LLVM externs, per
// genc.go's prelude/runtime/body emission ordering.
type TranspileOptions struct {
	// RuntimeHeader is the #include naming the runtime library's C
	// header (declaring string_new, channel_send, and so on); left
	// empty it defaults to "naml_runtime.h".
	RuntimeHeader string
}

// TranspileToC walks items and emits a single C translation unit: a
// prelude of #include lines (no forward declarations), then one C
// function per naml function item, in source order. Struct and enum
// items become a one-line C comment and interface/exception items emit
// nothing; no C type is declared for any of them — their field layout is
// the runtime's concern (struct_get_field/struct_set_field), not
// something the transpiled C needs to know, matching §3.6's "Struct:
// opaque to codegen" design already used by the JIT path.
func TranspileToC(items []naml.Item, interner *naml.Interner, opt TranspileOptions) (string, error) {
	if opt.RuntimeHeader == "" {
		opt.RuntimeHeader = "naml_runtime.h"
	}
	t := &transpiler{out: newOutputWriter("    "), interner: interner}
	t.writePrelude(opt)
	for _, item := range items {
		if err := item.Accept(t); err != nil {
			return "", err
		}
	}
	return t.out.buffer.String(), nil
}

type transpiler struct {
	out      *outputWriter
	interner *naml.Interner
}

func (t *transpiler) writePrelude(opt TranspileOptions) {
	t.out.writel("/* generated by naml's C transpiler backend */")
	t.out.writel("#include <stdint.h>")
	t.out.writel("#include \"" + opt.RuntimeHeader + "\"")
	t.out.writel("")
}

// cType widens a syntactic type to the §6.2 lowered C representation:
// every naml value is one machine word.
func cType(t naml.TypeExpr) string {
	prim, ok := t.(*naml.PrimitiveTypeExpr)
	if !ok {
		return "int64_t" // heap handle or unresolved — treated as an opaque word
	}
	switch prim.Kind {
	case naml.PrimitiveBool:
		return "int8_t"
	case naml.PrimitiveFloat:
		return "double"
	case naml.PrimitiveUnit:
		return "void"
	default:
		return "int64_t"
	}
}

func (t *transpiler) VisitFunctionItem(i *naml.FunctionItem) error {
	if i.IsExternal {
		return nil
	}
	name := t.interner.Resolve(i.Name)
	if i.Receiver != nil {
		if named, ok := i.Receiver.(*naml.NamedTypeExpr); ok {
			name = t.interner.Resolve(named.Name) + "_" + name
		}
	}

	params := make([]string, 0, len(i.Params)+2)
	if i.Receiver != nil {
		params = append(params, "int64_t self")
	}
	for _, p := range i.Params {
		params = append(params, cType(p.Type)+" "+t.interner.Resolve(p.Name))
	}
	params = append(params, "int64_t worker_id")

	t.out.writeil(cType(i.Return) + " " + name + "(" + strings.Join(params, ", ") + ") {")
	t.out.indent()
	if i.Body != nil {
		if err := t.writeBlockBody(i.Body); err != nil {
			return err
		}
	} else {
		t.out.writeil("return 0;")
	}
	t.out.unindent()
	t.out.writeil("}")
	t.out.writel("")
	return nil
}

// writeBlockBody emits a function body's statements followed by a
// return of the tail expression, if any. Full expression/statement
// lowering mirrors the SSA path's structure (§4.5.1/§4.5.2) but in C
// text instead of IR instructions; only the fragment needed to prove
// the transpiler's wiring against the runtime ABI is implemented here,
// the same scope genc.go's own emitter covers for its grammar VM.
func (t *transpiler) writeBlockBody(body *naml.BlockExpr) error {
	for _, s := range body.Stmts {
		if err := t.writeStmt(s); err != nil {
			return err
		}
	}
	if body.Tail != nil {
		expr, err := t.writeExpr(body.Tail)
		if err != nil {
			return err
		}
		t.out.writeil("return " + expr + ";")
	}
	return nil
}

// writeStmts emits a plain statement sequence (a *BlockStmt's body),
// which unlike *BlockExpr never carries a trailing value.
func (t *transpiler) writeStmts(stmts []naml.Stmt) error {
	for _, s := range stmts {
		if err := t.writeStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (t *transpiler) writeStmt(s naml.Stmt) error {
	switch st := s.(type) {
	case *naml.ExprStmt:
		expr, err := t.writeExpr(st.Expr)
		if err != nil {
			return err
		}
		t.out.writeil(expr + ";")
		return nil
	case *naml.VarStmt:
		expr, err := t.writeExpr(st.Init)
		if err != nil {
			return err
		}
		t.out.writeil("int64_t " + t.interner.Resolve(st.Name) + " = " + expr + ";")
		return nil
	case *naml.ConstStmt:
		expr, err := t.writeExpr(st.Init)
		if err != nil {
			return err
		}
		t.out.writeil("const int64_t " + t.interner.Resolve(st.Name) + " = " + expr + ";")
		return nil
	case *naml.ReturnStmt:
		if st.Value == nil {
			t.out.writeil("return;")
			return nil
		}
		expr, err := t.writeExpr(st.Value)
		if err != nil {
			return err
		}
		t.out.writeil("return " + expr + ";")
		return nil
	case *naml.IfStmt:
		cond, err := t.writeExpr(st.Cond)
		if err != nil {
			return err
		}
		t.out.writeil("if (" + cond + ") {")
		t.out.indent()
		if err := t.writeStmts(st.Then.Stmts); err != nil {
			return err
		}
		t.out.unindent()
		if st.Else != nil {
			t.out.writeil("} else {")
			t.out.indent()
			if err := t.writeStmts(st.Else.Stmts); err != nil {
				return err
			}
			t.out.unindent()
		}
		t.out.writeil("}")
		return nil
	case *naml.WhileStmt:
		cond, err := t.writeExpr(st.Cond)
		if err != nil {
			return err
		}
		t.out.writeil("while (" + cond + ") {")
		t.out.indent()
		if err := t.writeStmts(st.Body.Stmts); err != nil {
			return err
		}
		t.out.unindent()
		t.out.writeil("}")
		return nil
	case *naml.LoopStmt:
		t.out.writeil("while (1) {")
		t.out.indent()
		if err := t.writeStmts(st.Body.Stmts); err != nil {
			return err
		}
		t.out.unindent()
		t.out.writeil("}")
		return nil
	case *naml.AssignStmt:
		target, err := t.writeExpr(st.Target)
		if err != nil {
			return err
		}
		value, err := t.writeExpr(st.Value)
		if err != nil {
			return err
		}
		t.out.writeil(target + " " + cAssignOp(st.Op) + " " + value + ";")
		return nil
	case *naml.BreakStmt:
		t.out.writeil("break;")
		return nil
	case *naml.ContinueStmt:
		t.out.writeil("continue;")
		return nil
	case *naml.BlockStmt:
		t.out.writeil("{")
		t.out.indent()
		if err := t.writeStmts(st.Stmts); err != nil {
			return err
		}
		t.out.unindent()
		t.out.writeil("}")
		return nil
	default:
		return errors.Errorf("codegen: transpiler does not yet support statement kind %T", st)
	}
}

func cAssignOp(op naml.AssignOp) string {
	switch op {
	case naml.AssignAdd:
		return "+="
	case naml.AssignSub:
		return "-="
	case naml.AssignMul:
		return "*="
	case naml.AssignDiv:
		return "/="
	case naml.AssignMod:
		return "%="
	default:
		return "="
	}
}

func (t *transpiler) writeExpr(e naml.Expr) (string, error) {
	switch ex := e.(type) {
	case *naml.LiteralExpr:
		return t.writeLiteral(ex.Value)
	case *naml.IdentExpr:
		return t.interner.Resolve(ex.Name), nil
	case *naml.BinaryExpr:
		lhs, err := t.writeExpr(ex.Lhs)
		if err != nil {
			return "", err
		}
		rhs, err := t.writeExpr(ex.Rhs)
		if err != nil {
			return "", err
		}
		return "(" + lhs + " " + cBinaryOp(ex.Op) + " " + rhs + ")", nil
	case *naml.UnaryExpr:
		operand, err := t.writeExpr(ex.Operand)
		if err != nil {
			return "", err
		}
		return "(" + cUnaryOp(ex.Op) + operand + ")", nil
	case *naml.CallExpr:
		ident, ok := ex.Callee.(*naml.IdentExpr)
		if !ok {
			return "", errors.New("codegen: transpiler only supports direct calls")
		}
		args := make([]string, 0, len(ex.Args)+1)
		for _, a := range ex.Args {
			v, err := t.writeExpr(a)
			if err != nil {
				return "", err
			}
			args = append(args, v)
		}
		args = append(args, "worker_id")
		return t.interner.Resolve(ident.Name) + "(" + strings.Join(args, ", ") + ")", nil
	case *naml.FieldAccessExpr:
		recv, err := t.writeExpr(ex.Receiver)
		if err != nil {
			return "", err
		}
		return "struct_get_field(" + recv + ", /* " + t.interner.Resolve(ex.Field) + " */)", nil
	default:
		return "", errors.Errorf("codegen: transpiler does not yet support expression kind %T", ex)
	}
}

func (t *transpiler) writeLiteral(lit naml.Literal) (string, error) {
	switch v := lit.(type) {
	case *naml.IntLiteral:
		return strconv.FormatInt(v.Value, 10), nil
	case *naml.UintLiteral:
		return strconv.FormatUint(v.Value, 10), nil
	case *naml.FloatLiteral:
		return strconv.FormatFloat(v.Value, 'g', -1, 64), nil
	case *naml.BoolLiteral:
		if v.Value {
			return "1", nil
		}
		return "0", nil
	case *naml.StringLiteral:
		return "string_from_cstr(\"" + escapeC(t.interner.Resolve(v.Value)) + "\")", nil
	case *naml.NoneLiteral:
		return "0", nil
	default:
		return "", errors.Errorf("codegen: transpiler does not yet support literal kind %T", v)
	}
}

func cBinaryOp(op naml.BinaryOp) string {
	switch op {
	case naml.BinAdd:
		return "+"
	case naml.BinSub:
		return "-"
	case naml.BinMul:
		return "*"
	case naml.BinDiv:
		return "/"
	case naml.BinMod:
		return "%"
	case naml.BinEq:
		return "=="
	case naml.BinNeq:
		return "!="
	case naml.BinLt:
		return "<"
	case naml.BinLte:
		return "<="
	case naml.BinGt:
		return ">"
	case naml.BinGte:
		return ">="
	case naml.BinAnd:
		return "&&"
	case naml.BinOr:
		return "||"
	case naml.BinBitAnd:
		return "&"
	case naml.BinBitOr:
		return "|"
	case naml.BinBitXor:
		return "^"
	case naml.BinShl:
		return "<<"
	case naml.BinShr:
		return ">>"
	default:
		return "?"
	}
}

func cUnaryOp(op naml.UnaryOp) string {
	switch op {
	case naml.UnaryNeg:
		return "-"
	case naml.UnaryNot:
		return "!"
	case naml.UnaryBNot:
		return "~"
	default:
		return ""
	}
}

func escapeC(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (t *transpiler) VisitStructItem(i *naml.StructItem) error {
	t.out.writeil("/* struct " + t.interner.Resolve(i.Name) + " — opaque to the transpiler, see runtime Struct */")
	return nil
}
func (t *transpiler) VisitInterfaceItem(*naml.InterfaceItem) error { return nil }
func (t *transpiler) VisitEnumItem(i *naml.EnumItem) error {
	t.out.writeil("/* enum " + t.interner.Resolve(i.Name) + " — opaque to the transpiler, see runtime Struct */")
	return nil
}
func (t *transpiler) VisitExceptionItem(*naml.ExceptionItem) error { return nil }
func (t *transpiler) VisitUseItem(*naml.UseItem) error             { return nil }
func (t *transpiler) VisitExternItem(*naml.ExternItem) error       { return nil }
func (t *transpiler) VisitPlatformGatedItem(i *naml.PlatformGatedItem) error {
	return i.Inner.Accept(t)
}
