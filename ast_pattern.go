package naml

// LiteralPattern matches a literal value exactly (§4.5.1: "For Literal,
// emit icmp eq").
type LiteralPattern struct {
	baseNode
	Value Literal
}

func (*LiteralPattern) patternNode() {}

// IdentPattern is a bare identifier pattern. It is ambiguous between a
// fresh binding and an enum-variant probe until resolved against the
// scrutinee's type; §4.5.1 describes this exact case ("For bare
// identifier matching an enum variant, load tag at offset 0 and compare
// to the variant's tag integer").
type IdentPattern struct {
	baseNode
	Name Symbol
}

func (*IdentPattern) patternNode() {}

// VariantPatternBinding is one payload binding within a qualified
// variant pattern, e.g. the `r` in `Suspended(r)`.
type VariantPatternBinding struct {
	Name Symbol
}

// VariantPattern matches a specific enum variant by name and binds its
// payload fields, e.g. `Suspended(r)`.
type VariantPattern struct {
	baseNode
	EnumName    Symbol
	VariantName Symbol
	Bindings    []VariantPatternBinding
}

func (*VariantPattern) patternNode() {}

// WildcardPattern (`_`) always matches.
type WildcardPattern struct{ baseNode }

func (*WildcardPattern) patternNode() {}
