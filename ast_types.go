package naml

// PrimitiveKind enumerates naml's built-in scalar types (§3.3).
type PrimitiveKind int

const (
	PrimitiveInt PrimitiveKind = iota
	PrimitiveUint
	PrimitiveFloat
	PrimitiveBool
	PrimitiveString
	PrimitiveBytes
	PrimitiveUnit
	PrimitiveDecimal
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimitiveInt:
		return "int"
	case PrimitiveUint:
		return "uint"
	case PrimitiveFloat:
		return "float"
	case PrimitiveBool:
		return "bool"
	case PrimitiveString:
		return "string"
	case PrimitiveBytes:
		return "bytes"
	case PrimitiveUnit:
		return "unit"
	case PrimitiveDecimal:
		return "decimal"
	default:
		return "unknown"
	}
}

// PrimitiveTypeExpr is a syntactic primitive type such as `int` or
// `decimal(p, s)`.
type PrimitiveTypeExpr struct {
	baseNode
	Kind      PrimitiveKind
	Precision int // only meaningful for PrimitiveDecimal
	Scale     int // only meaningful for PrimitiveDecimal
}

func (*PrimitiveTypeExpr) typeExprNode() {}

// ArrayTypeExpr is `array(T)`.
type ArrayTypeExpr struct {
	baseNode
	Element TypeExpr
}

func (*ArrayTypeExpr) typeExprNode() {}

// FixedArrayTypeExpr is `fixed_array(T, n)`.
type FixedArrayTypeExpr struct {
	baseNode
	Element TypeExpr
	Size    int
}

func (*FixedArrayTypeExpr) typeExprNode() {}

// OptionTypeExpr is `option(T)`.
type OptionTypeExpr struct {
	baseNode
	Inner TypeExpr
}

func (*OptionTypeExpr) typeExprNode() {}

// MapTypeExpr is `map(K, V)`.
type MapTypeExpr struct {
	baseNode
	Key   TypeExpr
	Value TypeExpr
}

func (*MapTypeExpr) typeExprNode() {}

// ChannelTypeExpr is `channel(T)`.
type ChannelTypeExpr struct {
	baseNode
	Element TypeExpr
}

func (*ChannelTypeExpr) typeExprNode() {}

// MutexTypeExpr is `mutex(T)`.
type MutexTypeExpr struct {
	baseNode
	Inner TypeExpr
}

func (*MutexTypeExpr) typeExprNode() {}

// RWLockTypeExpr is `rwlock(T)`.
type RWLockTypeExpr struct {
	baseNode
	Inner TypeExpr
}

func (*RWLockTypeExpr) typeExprNode() {}

// NamedTypeExpr refers to a struct/enum/interface/exception by name.
type NamedTypeExpr struct {
	baseNode
	Name Symbol
}

func (*NamedTypeExpr) typeExprNode() {}

// GenericTypeExpr is `ident<T, ...>`.
type GenericTypeExpr struct {
	baseNode
	Name Symbol
	Args []TypeExpr
}

func (*GenericTypeExpr) typeExprNode() {}

// FunctionTypeExpr is `(params...) -> ret`.
type FunctionTypeExpr struct {
	baseNode
	Params []TypeExpr
	Return TypeExpr
}

func (*FunctionTypeExpr) typeExprNode() {}

// InferredTypeExpr marks a type left for inference to fill in.
type InferredTypeExpr struct{ baseNode }

func (*InferredTypeExpr) typeExprNode() {}
