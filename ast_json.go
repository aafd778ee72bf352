package naml

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Real surface-syntax lexing and parsing are out of scope (§1); this
// file gives the compiler driver a concrete, honest way to receive an
// AST anyway — a JSON encoding of the same node kinds ast_*.go already
// defines, with a "kind" discriminator per node the way the teacher's
// own wire format (query_api.go's LSP JSON-RPC payloads, read for shape
// before that file was deleted) tags every message by method name.
// Coverage is a subset of what the SSA emitter lowers: for, switch and
// try statements, patterns, and lambda, spawn, await, cast and
// map-literal expressions are not decoded, even though codegen/stmt.go,
// codegen/exceptions.go and codegen/expr.go lower them. Any node kind
// outside the decoded set fails at decode time rather than silently later.

type jsonNode struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"-"`
}

// DecodeItems parses a JSON array of top-level items into the AST node
// types ast_item.go defines, interning every identifier against in as
// it goes.
func DecodeItems(data []byte, in *Interner) ([]Item, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "naml: decoding item array")
	}
	d := &jsonDecoder{in: in}
	items := make([]Item, 0, len(raw))
	for i, r := range raw {
		item, err := d.item(r)
		if err != nil {
			return nil, errors.Wrapf(err, "naml: decoding item %d", i)
		}
		items = append(items, item)
	}
	return items, nil
}

type jsonDecoder struct{ in *Interner }

func (d *jsonDecoder) sym(s string) Symbol {
	if s == "" {
		return InvalidSymbol
	}
	return d.in.Intern(s)
}

func kindOf(raw json.RawMessage) (string, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", err
	}
	if probe.Kind == "" {
		return "", errors.New("missing \"kind\" field")
	}
	return probe.Kind, nil
}

func (d *jsonDecoder) item(raw json.RawMessage) (Item, error) {
	kind, err := kindOf(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "function":
		var body struct {
			Name       string          `json:"name"`
			Params     []jsonParam     `json:"params"`
			Return     json.RawMessage `json:"return"`
			Body       json.RawMessage `json:"body"`
			IsExternal bool            `json:"is_external"`
			IsAsync    bool            `json:"is_async"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, err
		}
		params, err := d.params(body.Params)
		if err != nil {
			return nil, err
		}
		ret, err := d.typeExprOrUnit(body.Return)
		if err != nil {
			return nil, err
		}
		fn := &FunctionItem{Name: d.sym(body.Name), Params: params, Return: ret, IsExternal: body.IsExternal, IsAsync: body.IsAsync}
		if !body.IsExternal && len(body.Body) > 0 {
			blk, err := d.blockExpr(body.Body)
			if err != nil {
				return nil, err
			}
			fn.Body = blk
		}
		return fn, nil
	case "struct":
		var body struct {
			Name   string      `json:"name"`
			Fields []jsonField `json:"fields"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, err
		}
		fields, err := d.fields(body.Fields)
		if err != nil {
			return nil, err
		}
		return &StructItem{Name: d.sym(body.Name), Fields: fields}, nil
	case "extern":
		var body struct {
			Name    string          `json:"name"`
			Params  []jsonParam     `json:"params"`
			Return  json.RawMessage `json:"return"`
			ABIName string          `json:"abi_name"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, err
		}
		params, err := d.params(body.Params)
		if err != nil {
			return nil, err
		}
		ret, err := d.typeExprOrUnit(body.Return)
		if err != nil {
			return nil, err
		}
		return &ExternItem{Name: d.sym(body.Name), Params: params, Return: ret, ABIName: body.ABIName}, nil
	default:
		return nil, errors.Errorf("naml: unsupported item kind %q", kind)
	}
}

type jsonParam struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type jsonField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

func (d *jsonDecoder) params(in []jsonParam) ([]Param, error) {
	out := make([]Param, 0, len(in))
	for _, p := range in {
		t, err := d.typeExpr(p.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, Param{Name: d.sym(p.Name), Type: t})
	}
	return out, nil
}

func (d *jsonDecoder) fields(in []jsonField) ([]StructField, error) {
	out := make([]StructField, 0, len(in))
	for _, f := range in {
		t, err := d.typeExpr(f.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, StructField{Name: d.sym(f.Name), Type: t})
	}
	return out, nil
}

func (d *jsonDecoder) typeExprOrUnit(raw json.RawMessage) (TypeExpr, error) {
	if len(raw) == 0 {
		return &PrimitiveTypeExpr{Kind: PrimitiveUnit}, nil
	}
	return d.typeExpr(raw)
}

func (d *jsonDecoder) typeExpr(raw json.RawMessage) (TypeExpr, error) {
	kind, err := kindOf(raw)
	if err != nil {
		return nil, err
	}
	var body struct {
		Kind    string          `json:"kind"`
		Name    string          `json:"name"`
		Element json.RawMessage `json:"element"`
		Inner   json.RawMessage `json:"inner"`
		Key     json.RawMessage `json:"key"`
		Value   json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	switch kind {
	case "int":
		return &PrimitiveTypeExpr{Kind: PrimitiveInt}, nil
	case "uint":
		return &PrimitiveTypeExpr{Kind: PrimitiveUint}, nil
	case "float":
		return &PrimitiveTypeExpr{Kind: PrimitiveFloat}, nil
	case "bool":
		return &PrimitiveTypeExpr{Kind: PrimitiveBool}, nil
	case "string":
		return &PrimitiveTypeExpr{Kind: PrimitiveString}, nil
	case "bytes":
		return &PrimitiveTypeExpr{Kind: PrimitiveBytes}, nil
	case "unit":
		return &PrimitiveTypeExpr{Kind: PrimitiveUnit}, nil
	case "named":
		return &NamedTypeExpr{Name: d.sym(body.Name)}, nil
	case "array":
		elem, err := d.typeExpr(body.Element)
		if err != nil {
			return nil, err
		}
		return &ArrayTypeExpr{Element: elem}, nil
	case "option":
		inner, err := d.typeExpr(body.Inner)
		if err != nil {
			return nil, err
		}
		return &OptionTypeExpr{Inner: inner}, nil
	case "map":
		key, err := d.typeExpr(body.Key)
		if err != nil {
			return nil, err
		}
		val, err := d.typeExpr(body.Value)
		if err != nil {
			return nil, err
		}
		return &MapTypeExpr{Key: key, Value: val}, nil
	case "inferred":
		return &InferredTypeExpr{}, nil
	default:
		return nil, errors.Errorf("naml: unsupported type kind %q", kind)
	}
}

func (d *jsonDecoder) blockExpr(raw json.RawMessage) (*BlockExpr, error) {
	var body struct {
		Stmts []json.RawMessage `json:"stmts"`
		Tail  json.RawMessage   `json:"tail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	stmts := make([]Stmt, 0, len(body.Stmts))
	for _, r := range body.Stmts {
		s, err := d.stmt(r)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	blk := &BlockExpr{Stmts: stmts}
	if len(body.Tail) > 0 {
		tail, err := d.expr(body.Tail)
		if err != nil {
			return nil, err
		}
		blk.Tail = tail
	}
	return blk, nil
}

func (d *jsonDecoder) blockStmt(raw json.RawMessage) (*BlockStmt, error) {
	var body struct {
		Stmts []json.RawMessage `json:"stmts"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	stmts := make([]Stmt, 0, len(body.Stmts))
	for _, r := range body.Stmts {
		s, err := d.stmt(r)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return &BlockStmt{Stmts: stmts}, nil
}

func (d *jsonDecoder) stmt(raw json.RawMessage) (Stmt, error) {
	kind, err := kindOf(raw)
	if err != nil {
		return nil, err
	}
	var body struct {
		Name  string          `json:"name"`
		Type  json.RawMessage `json:"type"`
		Init  json.RawMessage `json:"init"`
		Value json.RawMessage `json:"value"`
		Op    string          `json:"op"`
		Target json.RawMessage `json:"target"`
		Expr  json.RawMessage `json:"expr"`
		Cond  json.RawMessage `json:"cond"`
		Then  json.RawMessage `json:"then"`
		Else  json.RawMessage `json:"else"`
		Body  json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	switch kind {
	case "var", "const":
		t, err := d.typeExprOrInferred(body.Type)
		if err != nil {
			return nil, err
		}
		init, err := d.expr(body.Init)
		if err != nil {
			return nil, err
		}
		if kind == "var" {
			return &VarStmt{Name: d.sym(body.Name), Type: t, Init: init}, nil
		}
		return &ConstStmt{Name: d.sym(body.Name), Type: t, Init: init}, nil
	case "assign":
		target, err := d.expr(body.Target)
		if err != nil {
			return nil, err
		}
		value, err := d.expr(body.Value)
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Target: target, Op: assignOpOf(body.Op), Value: value}, nil
	case "expr":
		e, err := d.expr(body.Expr)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Expr: e}, nil
	case "return":
		if len(body.Value) == 0 {
			return &ReturnStmt{}, nil
		}
		v, err := d.expr(body.Value)
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{Value: v}, nil
	case "throw":
		v, err := d.expr(body.Value)
		if err != nil {
			return nil, err
		}
		return &ThrowStmt{Value: v}, nil
	case "if":
		cond, err := d.expr(body.Cond)
		if err != nil {
			return nil, err
		}
		then, err := d.blockStmt(body.Then)
		if err != nil {
			return nil, err
		}
		var els *BlockStmt
		if len(body.Else) > 0 {
			els, err = d.blockStmt(body.Else)
			if err != nil {
				return nil, err
			}
		}
		return &IfStmt{Cond: cond, Then: then, Else: els}, nil
	case "while":
		cond, err := d.expr(body.Cond)
		if err != nil {
			return nil, err
		}
		blk, err := d.blockStmt(body.Body)
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Cond: cond, Body: blk}, nil
	case "loop":
		blk, err := d.blockStmt(body.Body)
		if err != nil {
			return nil, err
		}
		return &LoopStmt{Body: blk}, nil
	case "break":
		return &BreakStmt{}, nil
	case "continue":
		return &ContinueStmt{}, nil
	case "block":
		blk, err := d.blockStmt(raw)
		if err != nil {
			return nil, err
		}
		return blk, nil
	default:
		return nil, errors.Errorf("naml: unsupported statement kind %q", kind)
	}
}

func (d *jsonDecoder) typeExprOrInferred(raw json.RawMessage) (TypeExpr, error) {
	if len(raw) == 0 {
		return &InferredTypeExpr{}, nil
	}
	return d.typeExpr(raw)
}

func assignOpOf(s string) AssignOp {
	switch s {
	case "+=":
		return AssignAdd
	case "-=":
		return AssignSub
	case "*=":
		return AssignMul
	case "/=":
		return AssignDiv
	case "%=":
		return AssignMod
	default:
		return AssignPlain
	}
}

func (d *jsonDecoder) expr(raw json.RawMessage) (Expr, error) {
	kind, err := kindOf(raw)
	if err != nil {
		return nil, err
	}
	var body struct {
		Name     string            `json:"name"`
		Op       string            `json:"op"`
		Lhs      json.RawMessage   `json:"lhs"`
		Rhs      json.RawMessage   `json:"rhs"`
		Operand  json.RawMessage   `json:"operand"`
		Callee   json.RawMessage   `json:"callee"`
		Args     []json.RawMessage `json:"args"`
		Receiver json.RawMessage   `json:"receiver"`
		Field    string            `json:"field"`
		Index    json.RawMessage   `json:"index"`
		Forced   bool              `json:"forced"`
		Elements []json.RawMessage `json:"elements"`
		Literal  json.RawMessage   `json:"literal"`
		TypeName string            `json:"type_name"`
		Fields   []jsonExprField   `json:"fields"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	switch kind {
	case "literal":
		lit, err := d.literal(body.Literal)
		if err != nil {
			return nil, err
		}
		return &LiteralExpr{Value: lit}, nil
	case "ident":
		return &IdentExpr{Name: d.sym(body.Name)}, nil
	case "binary":
		lhs, err := d.expr(body.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := d.expr(body.Rhs)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: binaryOpOf(body.Op), Lhs: lhs, Rhs: rhs}, nil
	case "unary":
		operand, err := d.expr(body.Operand)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: unaryOpOf(body.Op), Operand: operand}, nil
	case "call":
		callee, err := d.expr(body.Callee)
		if err != nil {
			return nil, err
		}
		args, err := d.exprList(body.Args)
		if err != nil {
			return nil, err
		}
		return &CallExpr{Callee: callee, Args: args}, nil
	case "method_call":
		recv, err := d.expr(body.Receiver)
		if err != nil {
			return nil, err
		}
		args, err := d.exprList(body.Args)
		if err != nil {
			return nil, err
		}
		return &MethodCallExpr{Receiver: recv, Method: d.sym(body.Field), Args: args}, nil
	case "field_access":
		recv, err := d.expr(body.Receiver)
		if err != nil {
			return nil, err
		}
		return &FieldAccessExpr{Receiver: recv, Field: d.sym(body.Field)}, nil
	case "index":
		recv, err := d.expr(body.Receiver)
		if err != nil {
			return nil, err
		}
		idx, err := d.expr(body.Index)
		if err != nil {
			return nil, err
		}
		return &IndexExpr{Receiver: recv, Index: idx, Forced: body.Forced}, nil
	case "array_literal":
		elems, err := d.exprList(body.Elements)
		if err != nil {
			return nil, err
		}
		return &ArrayLiteralExpr{Elements: elems}, nil
	case "struct_construct":
		fields := make([]StructConstructField, 0, len(body.Fields))
		for _, f := range body.Fields {
			v, err := d.expr(f.Value)
			if err != nil {
				return nil, err
			}
			fields = append(fields, StructConstructField{Name: d.sym(f.Name), Value: v})
		}
		return &StructConstructExpr{TypeName: d.sym(body.TypeName), Fields: fields}, nil
	case "block":
		return d.blockExpr(raw)
	default:
		return nil, errors.Errorf("naml: unsupported expression kind %q", kind)
	}
}

type jsonExprField struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

func (d *jsonDecoder) exprList(in []json.RawMessage) ([]Expr, error) {
	out := make([]Expr, 0, len(in))
	for _, r := range in {
		e, err := d.expr(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *jsonDecoder) literal(raw json.RawMessage) (Literal, error) {
	kind, err := kindOf(raw)
	if err != nil {
		return nil, err
	}
	var body struct {
		Int    int64   `json:"value_int"`
		Uint   uint64  `json:"value_uint"`
		Float  float64 `json:"value_float"`
		Bool   bool    `json:"value_bool"`
		String string  `json:"value_string"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	switch kind {
	case "int":
		return &IntLiteral{Value: body.Int}, nil
	case "uint":
		return &UintLiteral{Value: body.Uint}, nil
	case "float":
		return &FloatLiteral{Value: body.Float}, nil
	case "bool":
		return &BoolLiteral{Value: body.Bool}, nil
	case "string":
		return &StringLiteral{Value: d.sym(body.String)}, nil
	case "none":
		return &NoneLiteral{}, nil
	default:
		return nil, errors.Errorf("naml: unsupported literal kind %q", kind)
	}
}

func binaryOpOf(s string) BinaryOp {
	switch s {
	case "+":
		return BinAdd
	case "-":
		return BinSub
	case "*":
		return BinMul
	case "/":
		return BinDiv
	case "%":
		return BinMod
	case "==":
		return BinEq
	case "!=":
		return BinNeq
	case "<":
		return BinLt
	case "<=":
		return BinLte
	case ">":
		return BinGt
	case ">=":
		return BinGte
	case "&&":
		return BinAnd
	case "||":
		return BinOr
	case "&":
		return BinBitAnd
	case "|":
		return BinBitOr
	case "^":
		return BinBitXor
	case "<<":
		return BinShl
	case ">>":
		return BinShr
	default:
		return BinAdd
	}
}

func unaryOpOf(s string) UnaryOp {
	switch s {
	case "!":
		return UnaryNot
	case "~":
		return UnaryBNot
	default:
		return UnaryNeg
	}
}
