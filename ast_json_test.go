package naml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeItemsFunctionWithBody(t *testing.T) {
	doc := []byte(`[
		{
			"kind": "function",
			"name": "add",
			"params": [
				{"name": "a", "type": {"kind": "int"}},
				{"name": "b", "type": {"kind": "int"}}
			],
			"return": {"kind": "int"},
			"body": {
				"stmts": [],
				"tail": {
					"kind": "binary",
					"op": "+",
					"lhs": {"kind": "ident", "name": "a"},
					"rhs": {"kind": "ident", "name": "b"}
				}
			}
		}
	]`)

	in := NewInterner()
	items, err := DecodeItems(doc, in)
	require.NoError(t, err)
	require.Len(t, items, 1)

	fn, ok := items[0].(*FunctionItem)
	require.True(t, ok)
	assert.Equal(t, "add", in.Resolve(fn.Name))
	require.Len(t, fn.Params, 2)
	require.NotNil(t, fn.Body)
	bin, ok := fn.Body.Tail.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, BinAdd, bin.Op)
}

func TestDecodeItemsStructFields(t *testing.T) {
	doc := []byte(`[
		{
			"kind": "struct",
			"name": "Point",
			"fields": [
				{"name": "x", "type": {"kind": "int"}},
				{"name": "y", "type": {"kind": "int"}}
			]
		}
	]`)

	in := NewInterner()
	items, err := DecodeItems(doc, in)
	require.NoError(t, err)
	require.Len(t, items, 1)
	st, ok := items[0].(*StructItem)
	require.True(t, ok)
	assert.Equal(t, "Point", in.Resolve(st.Name))
	require.Len(t, st.Fields, 2)
}

func TestDecodeItemsExternWithABIName(t *testing.T) {
	doc := []byte(`[
		{
			"kind": "extern",
			"name": "raw_alloc",
			"abi_name": "string_new",
			"params": [{"name": "n", "type": {"kind": "int"}}],
			"return": {"kind": "int"}
		}
	]`)

	in := NewInterner()
	items, err := DecodeItems(doc, in)
	require.NoError(t, err)
	ext, ok := items[0].(*ExternItem)
	require.True(t, ok)
	assert.Equal(t, "string_new", ext.ABIName)
}

func TestDecodeItemsUnknownItemKindFails(t *testing.T) {
	in := NewInterner()
	_, err := DecodeItems([]byte(`[{"kind": "trait"}]`), in)
	assert.Error(t, err)
}

func TestDecodeItemsUnknownExpressionKindFails(t *testing.T) {
	doc := []byte(`[
		{
			"kind": "function",
			"name": "f",
			"return": {"kind": "unit"},
			"body": {"stmts": [], "tail": {"kind": "lambda"}}
		}
	]`)
	in := NewInterner()
	_, err := DecodeItems(doc, in)
	assert.Error(t, err)
}

func TestDecodeItemsIfWhileLoopStatements(t *testing.T) {
	doc := []byte(`[
		{
			"kind": "function",
			"name": "f",
			"return": {"kind": "unit"},
			"body": {
				"stmts": [
					{
						"kind": "if",
						"cond": {"kind": "literal", "literal": {"kind": "bool", "value_bool": true}},
						"then": {"stmts": []},
						"else": {"stmts": []}
					},
					{
						"kind": "while",
						"cond": {"kind": "literal", "literal": {"kind": "bool", "value_bool": false}},
						"body": {"stmts": [{"kind": "break"}]}
					},
					{
						"kind": "loop",
						"body": {"stmts": [{"kind": "continue"}]}
					}
				]
			}
		}
	]`)
	in := NewInterner()
	items, err := DecodeItems(doc, in)
	require.NoError(t, err)
	fn := items[0].(*FunctionItem)
	require.Len(t, fn.Body.Stmts, 3)
	assert.IsType(t, &IfStmt{}, fn.Body.Stmts[0])
	assert.IsType(t, &WhileStmt{}, fn.Body.Stmts[1])
	assert.IsType(t, &LoopStmt{}, fn.Body.Stmts[2])
}

func TestDecodeItemsArrayTypeAndOptionType(t *testing.T) {
	doc := []byte(`[
		{
			"kind": "function",
			"name": "f",
			"params": [
				{"name": "xs", "type": {"kind": "array", "element": {"kind": "int"}}},
				{"name": "maybe", "type": {"kind": "option", "inner": {"kind": "string"}}}
			],
			"return": {"kind": "unit"},
			"body": {"stmts": []}
		}
	]`)
	in := NewInterner()
	items, err := DecodeItems(doc, in)
	require.NoError(t, err)
	fn := items[0].(*FunctionItem)
	assert.IsType(t, &ArrayTypeExpr{}, fn.Params[0].Type)
	assert.IsType(t, &OptionTypeExpr{}, fn.Params[1].Type)
}

func TestDecodeItemsAssignStatementWithCompoundOp(t *testing.T) {
	doc := []byte(`[
		{
			"kind": "function",
			"name": "f",
			"return": {"kind": "unit"},
			"body": {
				"stmts": [
					{
						"kind": "assign",
						"target": {"kind": "ident", "name": "total"},
						"op": "+=",
						"value": {"kind": "literal", "literal": {"kind": "int", "value_int": 1}}
					}
				]
			}
		}
	]`)
	in := NewInterner()
	items, err := DecodeItems(doc, in)
	require.NoError(t, err)
	fn := items[0].(*FunctionItem)
	assign, ok := fn.Body.Stmts[0].(*AssignStmt)
	require.True(t, ok)
	assert.Equal(t, AssignAdd, assign.Op)
}
