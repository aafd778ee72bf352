package codegen

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJITLinkerResolveFailsWhenExternUnbound(t *testing.T) {
	module := ir.NewModule()
	symbols := DeclareRuntimeSymbols(module)
	linker := NewJITLinker(module, symbols)

	err := linker.Resolve()
	assert.Error(t, err, "every declared extern must have a registered runtime symbol")
}

func TestJITLinkerRegisterSymbolSatisfiesResolve(t *testing.T) {
	module := ir.NewModule()
	symbols := DeclareRuntimeSymbols(module)
	linker := NewJITLinker(module, symbols)

	for _, f := range module.Funcs {
		linker.RegisterSymbol(f.Name(), func() {})
	}
	assert.NoError(t, linker.Resolve())
}

func TestJITLinkerRegisterRuntimeLibraryRejectsUnknownSymbol(t *testing.T) {
	module := ir.NewModule()
	symbols := DeclareRuntimeSymbols(module)
	linker := NewJITLinker(module, symbols)

	err := linker.RegisterRuntimeLibrary(map[string]any{"not_a_real_symbol": func() {}})
	require.Error(t, err)
}

func TestJITLinkerSymbolLookup(t *testing.T) {
	module := ir.NewModule()
	symbols := DeclareRuntimeSymbols(module)
	linker := NewJITLinker(module, symbols)

	impl := func() {}
	linker.RegisterSymbol("string_new", impl)

	_, ok := linker.Symbol("does_not_exist")
	assert.False(t, ok)
	got, ok := linker.Symbol("string_new")
	assert.True(t, ok)
	assert.NotNil(t, got)
}

func TestJITLinkerDisassembleMarksExternsVsDefined(t *testing.T) {
	module := ir.NewModule()
	symbols := DeclareRuntimeSymbols(module)
	linker := NewJITLinker(module, symbols)

	out := linker.Disassemble()
	assert.Contains(t, out, "extern")
}
