package naml

// Param is one formal parameter of a function, method, or lambda
// declared at item scope.
type Param struct {
	Name Symbol
	Type TypeExpr
}

// Visibility distinguishes a module-private item from one exported to
// importers of its package (§3.3).
type Visibility int

const (
	VisibilityPrivate Visibility = iota
	VisibilityPublic
)

// FunctionItem declares a free function or, when Receiver is not nil,
// a method attached to a struct (§4.5.1's `TypeName_method` dispatch
// convention is applied at codegen, not captured here).
type FunctionItem struct {
	baseNode
	Name          Symbol
	Receiver      TypeExpr // nil for free functions
	ReceiverMut   bool     // true for `fn (mut self: T) ...`
	Generics      []Symbol
	Params        []Param
	Return        TypeExpr
	Throws        []Symbol // declared exception types this function may propagate (§4.5.3)
	Body          *BlockExpr
	IsAsync       bool // true if the body may spawn/await
	IsExternal    bool // true for a declaration with no body (extern binding, abstract method)
	Visibility    Visibility
	Platform      Symbol // InvalidSymbol if unconditional; otherwise this function's own platform gate
}

func (*FunctionItem) itemNode() {}
func (i *FunctionItem) Accept(v ItemVisitor) error { return v.VisitFunctionItem(i) }

// StructField is one field declaration within a struct item.
type StructField struct {
	Name Symbol
	Type TypeExpr
}

// StructItem declares a struct type (§3.2's struct descriptor is
// derived from this by the type checker).
type StructItem struct {
	baseNode
	Name     Symbol
	Generics []Symbol
	Fields   []StructField
}

func (*StructItem) itemNode() {}
func (i *StructItem) Accept(v ItemVisitor) error { return v.VisitStructItem(i) }

// InterfaceMethod is one method signature required by an interface.
type InterfaceMethod struct {
	Name   Symbol
	Params []Param
	Return TypeExpr
}

// InterfaceItem declares a structural interface type.
type InterfaceItem struct {
	baseNode
	Name    Symbol
	Methods []InterfaceMethod
}

func (*InterfaceItem) itemNode() {}
func (i *InterfaceItem) Accept(v ItemVisitor) error { return v.VisitInterfaceItem(i) }

// EnumVariant is one variant of an enum item, with an optional payload
// field list (a unit variant has none).
type EnumVariant struct {
	Name    Symbol
	Payload []StructField
}

// EnumItem declares a tagged-union enum type.
type EnumItem struct {
	baseNode
	Name     Symbol
	Generics []Symbol
	Variants []EnumVariant
}

func (*EnumItem) itemNode() {}
func (i *EnumItem) Accept(v ItemVisitor) error { return v.VisitEnumItem(i) }

// ExceptionItem declares a user-defined exception type, distinct from
// the built-in runtime exception family (§7.2).
type ExceptionItem struct {
	baseNode
	Name   Symbol
	Fields []StructField
}

func (*ExceptionItem) itemNode() {}
func (i *ExceptionItem) Accept(v ItemVisitor) error { return v.VisitExceptionItem(i) }

// UseItem imports a package per the manifest dependency it was
// resolved against (pkgmanifest.Manifest); Path is the dotted import
// path, Alias is empty unless the source used `use x as y`.
type UseItem struct {
	baseNode
	Path  []Symbol
	Alias Symbol
}

func (*UseItem) itemNode() {}
func (i *UseItem) Accept(v ItemVisitor) error { return v.VisitUseItem(i) }

// ExternItem declares a foreign binding resolved by the linker rather
// than defined in naml source (§6.1's JIT/AOT linker external-symbol
// path).
type ExternItem struct {
	baseNode
	Name    Symbol
	Params  []Param
	Return  TypeExpr
	ABIName string // symbol name the linker resolves against, if different from Name
}

func (*ExternItem) itemNode() {}
func (i *ExternItem) Accept(v ItemVisitor) error { return v.VisitExternItem(i) }

// PlatformGatedItem wraps another item so it is only compiled when
// Platform matches the active target (§6's platform-gated compilation
// unit).
type PlatformGatedItem struct {
	baseNode
	Platform Symbol
	Inner    Item
}

func (*PlatformGatedItem) itemNode() {}
func (i *PlatformGatedItem) Accept(v ItemVisitor) error { return v.VisitPlatformGatedItem(i) }
