package codegen

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	naml "github.com/kahflane/naml-sub003"
)

// identityGeneric builds `fn identity<T>(x: T) -> T { x }`.
func identityGeneric(interner *naml.Interner) *naml.FunctionItem {
	return &naml.FunctionItem{
		Name:     interner.Intern("identity"),
		Generics: []naml.Symbol{interner.Intern("T")},
		Params:   []naml.Param{{Name: interner.Intern("x"), Type: &naml.PrimitiveTypeExpr{Kind: naml.PrimitiveInt}}},
		Return:   &naml.PrimitiveTypeExpr{Kind: naml.PrimitiveInt},
		Body:     &naml.BlockExpr{Tail: &naml.IdentExpr{Name: interner.Intern("x")}},
	}
}

func newTestFunctionEmitter(module *ir.Module, symbols *RuntimeSymbols, db *naml.TypeDatabase, interner *naml.Interner) *FunctionEmitter {
	return NewFunctionEmitter(module, symbols, db, interner, make(map[naml.Symbol]*naml.StructDescriptor), make(map[string]bool))
}

func TestMonomorphCacheInstantiatesOncePerMangledName(t *testing.T) {
	interner := naml.NewInterner()
	db := naml.NewTypeDatabase()
	generic := identityGeneric(interner)

	generics := map[naml.Symbol]*naml.FunctionItem{generic.Name: generic}
	db.RecordMonomorphization("identity__int", naml.Monomorphization{GenericName: generic.Name})

	module := ir.NewModule()
	symbols := DeclareRuntimeSymbols(module)
	cache := NewMonomorphCache(generics)
	fe := newTestFunctionEmitter(module, symbols, db, interner)
	fe.monomorph = cache

	fn1, err := cache.EnsureMonomorphization(fe, "identity__int")
	require.NoError(t, err)
	require.NotNil(t, fn1)

	fn2, err := cache.EnsureMonomorphization(fe, "identity__int")
	require.NoError(t, err)
	assert.Same(t, fn1, fn2, "a second request for the same mangled name must reuse the cached function")
}

func TestMonomorphCacheMissingLedgerEntryFails(t *testing.T) {
	interner := naml.NewInterner()
	db := naml.NewTypeDatabase()
	module := ir.NewModule()
	symbols := DeclareRuntimeSymbols(module)
	cache := NewMonomorphCache(map[naml.Symbol]*naml.FunctionItem{})
	fe := newTestFunctionEmitter(module, symbols, db, interner)
	fe.monomorph = cache

	_, err := cache.EnsureMonomorphization(fe, "no_such_specialization")
	assert.Error(t, err)
}

func TestMonomorphCacheUnknownGenericFails(t *testing.T) {
	interner := naml.NewInterner()
	db := naml.NewTypeDatabase()
	db.RecordMonomorphization("ghost__int", naml.Monomorphization{GenericName: interner.Intern("ghost")})

	module := ir.NewModule()
	symbols := DeclareRuntimeSymbols(module)
	cache := NewMonomorphCache(map[naml.Symbol]*naml.FunctionItem{})
	fe := newTestFunctionEmitter(module, symbols, db, interner)
	fe.monomorph = cache

	_, err := cache.EnsureMonomorphization(fe, "ghost__int")
	assert.Error(t, err)
}
