package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"

	"github.com/kahflane/naml-sub003/ascii"
)

// JITLinker resolves a compiled Program's IR module against the
// runtime library symbols the module's externs declare, so the JIT
// execution engine on the other side of the (out of scope) LLVM
// binding can map every call to `string_new`, `channel_send`, and so
// on back to the runtime package's actual Go functions loaded into the
// process (§4.1's "JIT linker: declares functions, defines their
// bodies, resolves calls to runtime symbols").
//
// This package targets github.com/llir/llvm rather than linking against
// a native JIT execution engine (no such Go binding exists in the
// example corpus), so "resolving a call" here means binding a runtime
// symbol name to the Go function pointer compiled code would reach for
// via cgo at its call sites — the registry below is the authoritative
// name->implementation table a JIT execution shim would consult.
type JITLinker struct {
	module  *ir.Module
	symbols *RuntimeSymbols

	// resolved maps a runtime symbol name to the Go function value
	// backing it; populated by RegisterSymbol, consulted by Resolve.
	resolved map[string]any

	// theme is used only by Disassemble's pretty-printer; kept on the
	// linker so a caller configuring one color theme gets it reused
	// across every Disassemble call, the way the teacher's
	// disassembler threads a single ascii.Theme through a whole
	// bytecode dump rather than re-resolving it per instruction.
	theme ascii.Theme
}

// NewJITLinker wraps a Program's module and symbol table for
// resolution. Call RegisterSymbol once per runtime entry point before
// Resolve; DeclareRuntimeSymbols already declared every extern the
// module can call, so linking never needs to touch the IR itself,
// only the side table this type owns.
func NewJITLinker(module *ir.Module, symbols *RuntimeSymbols) *JITLinker {
	return &JITLinker{
		module:   module,
		symbols:  symbols,
		resolved: make(map[string]any),
		theme:    ascii.DefaultTheme,
	}
}

// RegisterSymbol binds name (a §6.1 runtime ABI name) to impl, the Go
// function the JIT execution engine should invoke whenever compiled
// code calls that extern.
func (l *JITLinker) RegisterSymbol(name string, impl any) {
	l.resolved[name] = impl
}

// RegisterRuntimeLibrary binds every entry of lib (typically
// runtime.ABITable(), see runtime/abi.go) in one call, failing closed
// if lib names a symbol this module never declared as an extern —
// that would indicate the runtime and codegen's symbols.go have
// drifted out of sync with §6.1.
func (l *JITLinker) RegisterRuntimeLibrary(lib map[string]any) error {
	declared := make(map[string]bool, len(l.module.Funcs))
	for _, f := range l.module.Funcs {
		declared[f.Name()] = true
	}
	for name, impl := range lib {
		if !declared[name] {
			return errors.Errorf("codegen: runtime library names symbol %q that the module never declared", name)
		}
		l.resolved[name] = impl
	}
	return nil
}

// Resolve reports whether every extern function declared in the
// module (i.e. one with no basic blocks of its own — a function this
// compilation unit's own generatePass never defined a body for) has a
// matching registered runtime symbol. It is the JIT-mode analogue of a
// native linker's undefined-symbol check.
func (l *JITLinker) Resolve() error {
	var missing []string
	for _, f := range l.module.Funcs {
		if len(f.Blocks) > 0 {
			continue // defined in this module, nothing to resolve
		}
		if _, ok := l.resolved[f.Name()]; !ok {
			missing = append(missing, f.Name())
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("codegen: unresolved runtime symbols: %v", missing)
	}
	return nil
}

// Symbol returns the registered Go implementation for name, if any.
func (l *JITLinker) Symbol(name string) (any, bool) {
	impl, ok := l.resolved[name]
	return impl, ok
}

// String renders the module's textual LLVM IR, the form a real JIT
// (e.g. via cgo binding to LLVM's ORC engine, out of scope here) would
// feed to its compiler.
func (l *JITLinker) String() string {
	return l.module.String()
}

// Disassemble pretty-prints the module's function names and block
// counts using the shared ascii.Theme, mirroring the teacher's
// bytecode disassembler texture (one colored line per unit) rather
// than dumping raw IR text.
func (l *JITLinker) Disassemble() string {
	out := ""
	for _, f := range l.module.Funcs {
		kind := "defined"
		color := l.theme.Success
		if len(f.Blocks) == 0 {
			kind = "extern"
			color = l.theme.Muted
		}
		out += fmt.Sprintf("%s%s%s %s (%d blocks)\n", color, kind, ascii.Reset, f.Name(), len(f.Blocks))
	}
	return out
}
