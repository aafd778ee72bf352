package naml

// IntLiteral is a signed integer literal.
type IntLiteral struct {
	baseNode
	Value int64
}

func (*IntLiteral) literalNode() {}

// UintLiteral is an unsigned integer literal.
type UintLiteral struct {
	baseNode
	Value uint64
}

func (*UintLiteral) literalNode() {}

// FloatLiteral is a floating point literal.
type FloatLiteral struct {
	baseNode
	Value float64
}

func (*FloatLiteral) literalNode() {}

// BoolLiteral is `true` or `false`.
type BoolLiteral struct {
	baseNode
	Value bool
}

func (*BoolLiteral) literalNode() {}

// StringLiteral is an interned string literal.
type StringLiteral struct {
	baseNode
	Value Symbol
}

func (*StringLiteral) literalNode() {}

// BytesLiteral is a byte-string literal.
type BytesLiteral struct {
	baseNode
	Value []byte
}

func (*BytesLiteral) literalNode() {}

// NoneLiteral is the `none` literal of an option(T) type.
type NoneLiteral struct{ baseNode }

func (*NoneLiteral) literalNode() {}
