package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	naml "github.com/kahflane/naml-sub003"
)

func intLit(v int64) naml.Expr {
	return &naml.LiteralExpr{Value: &naml.IntLiteral{Value: v}}
}

func intType() naml.TypeExpr {
	return &naml.PrimitiveTypeExpr{Kind: naml.PrimitiveInt}
}

// answerFunction builds `fn answer() -> int { 40 + 2 }` directly as AST
// nodes, bypassing surface syntax entirely (lexing/parsing naml source is
// out of scope; see ast_json.go for the interchange format cmd/naml uses
// instead).
func answerFunction(interner *naml.Interner) *naml.FunctionItem {
	body := &naml.BlockExpr{
		Tail: &naml.BinaryExpr{Op: naml.BinAdd, Lhs: intLit(40), Rhs: intLit(2)},
	}
	return &naml.FunctionItem{
		Name:   interner.Intern("answer"),
		Return: intType(),
		Body:   body,
	}
}

func TestLowerProgramDeclaresAndGeneratesFunction(t *testing.T) {
	interner := naml.NewInterner()
	db := naml.NewTypeDatabase()
	items := []naml.Item{answerFunction(interner)}

	program, err := LowerProgram(items, db, interner)
	require.NoError(t, err)
	require.NotNil(t, program.Module)

	ir := program.Module.String()
	assert.Contains(t, ir, "define")
	assert.Contains(t, ir, "answer")
}

func TestLowerProgramFindsMainAsEntryPoint(t *testing.T) {
	interner := naml.NewInterner()
	db := naml.NewTypeDatabase()
	main := &naml.FunctionItem{
		Name:   interner.Intern("main"),
		Return: &naml.PrimitiveTypeExpr{Kind: naml.PrimitiveUnit},
		Body:   &naml.BlockExpr{},
	}

	program, err := LowerProgram([]naml.Item{main}, db, interner)
	require.NoError(t, err)
	require.NotNil(t, program.EntryPoint)
	assert.Equal(t, "main", program.EntryPoint.Name())
}

func TestLowerProgramNoMainLeavesEntryPointNil(t *testing.T) {
	interner := naml.NewInterner()
	db := naml.NewTypeDatabase()
	program, err := LowerProgram([]naml.Item{answerFunction(interner)}, db, interner)
	require.NoError(t, err)
	assert.Nil(t, program.EntryPoint)
}

func TestLowerProgramCollectsStructDescriptor(t *testing.T) {
	interner := naml.NewInterner()
	db := naml.NewTypeDatabase()
	structItem := &naml.StructItem{
		Name: interner.Intern("Point"),
		Fields: []naml.StructField{
			{Name: interner.Intern("x"), Type: intType()},
			{Name: interner.Intern("y"), Type: intType()},
		},
	}

	program, err := LowerProgram([]naml.Item{structItem}, db, interner)
	require.NoError(t, err)
	desc, ok := program.StructDescriptors[interner.Intern("Point")]
	require.True(t, ok)
	assert.Equal(t, interner.Intern("Point"), desc.Name)
}

func TestLowerProgramRejectsUndeclaredFunctionOnlyThroughExternalGuard(t *testing.T) {
	// external (body-less) functions are skipped by both declarePass and
	// generatePass: never declared, never added to d.declared, so this
	// must not error.
	interner := naml.NewInterner()
	db := naml.NewTypeDatabase()
	extern := &naml.FunctionItem{
		Name:       interner.Intern("no_body"),
		Return:     intType(),
		IsExternal: true,
	}
	_, err := LowerProgram([]naml.Item{extern}, db, interner)
	require.NoError(t, err)
}

func TestTranspileToCEmitsFunctionSignature(t *testing.T) {
	interner := naml.NewInterner()
	out, err := TranspileToC([]naml.Item{answerFunction(interner)}, interner, TranspileOptions{})
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "answer"))
}
