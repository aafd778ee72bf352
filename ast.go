package naml

// Node is the common behavior every AST node exposes, regardless of
// family (type, literal, expression, pattern, statement, item). All
// nodes are allocated from an Arena for the lifetime of one
// parse+check+codegen cycle (§4.1) and always carry the Span they were
// parsed from; synthetic nodes use DummySpan.
type Node interface {
	Span() Span
}

// baseNode is embedded by every concrete node to provide the Span()
// accessor without repeating it on each type.
type baseNode struct{ span Span }

func (b baseNode) Span() Span { return b.span }

// Expr is any expression node. Every variant implements Accept so a
// code generator (or any other tree walker) can dispatch without a type
// switch, mirroring the teacher's grammar_ast.go AstNode/AstNodeVisitor
// pair.
type Expr interface {
	Node
	exprNode()
	Accept(ExprVisitor) error
}

// ExprVisitor is implemented by anything that walks expressions — the
// codegen's expression lowering (§4.5.1) is the primary client.
type ExprVisitor interface {
	VisitLiteralExpr(*LiteralExpr) error
	VisitIdentExpr(*IdentExpr) error
	VisitBinaryExpr(*BinaryExpr) error
	VisitUnaryExpr(*UnaryExpr) error
	VisitCallExpr(*CallExpr) error
	VisitMethodCallExpr(*MethodCallExpr) error
	VisitFieldAccessExpr(*FieldAccessExpr) error
	VisitIndexExpr(*IndexExpr) error
	VisitLambdaExpr(*LambdaExpr) error
	VisitSpawnExpr(*SpawnExpr) error
	VisitAwaitExpr(*AwaitExpr) error
	VisitCastExpr(*CastExpr) error
	VisitStructConstructExpr(*StructConstructExpr) error
	VisitArrayLiteralExpr(*ArrayLiteralExpr) error
	VisitMapLiteralExpr(*MapLiteralExpr) error
	VisitBlockExpr(*BlockExpr) error
}

// Stmt is any statement node.
type Stmt interface {
	Node
	stmtNode()
	Accept(StmtVisitor) error
}

// StmtVisitor is implemented by anything that walks statements — the
// codegen's control-flow lowering (§4.5.2) is the primary client.
type StmtVisitor interface {
	VisitVarStmt(*VarStmt) error
	VisitConstStmt(*ConstStmt) error
	VisitAssignStmt(*AssignStmt) error
	VisitExprStmt(*ExprStmt) error
	VisitReturnStmt(*ReturnStmt) error
	VisitThrowStmt(*ThrowStmt) error
	VisitTryStmt(*TryStmt) error
	VisitIfStmt(*IfStmt) error
	VisitWhileStmt(*WhileStmt) error
	VisitForStmt(*ForStmt) error
	VisitLoopStmt(*LoopStmt) error
	VisitSwitchStmt(*SwitchStmt) error
	VisitBreakStmt(*BreakStmt) error
	VisitContinueStmt(*ContinueStmt) error
	VisitBlockStmt(*BlockStmt) error
}

// Item is any top-level (or platform-gated top-level) declaration.
type Item interface {
	Node
	itemNode()
	Accept(ItemVisitor) error
}

// ItemVisitor is implemented by anything that walks items — the
// top-level codegen driver (§4.5) is the primary client.
type ItemVisitor interface {
	VisitFunctionItem(*FunctionItem) error
	VisitStructItem(*StructItem) error
	VisitInterfaceItem(*InterfaceItem) error
	VisitEnumItem(*EnumItem) error
	VisitExceptionItem(*ExceptionItem) error
	VisitUseItem(*UseItem) error
	VisitExternItem(*ExternItem) error
	VisitPlatformGatedItem(*PlatformGatedItem) error
}

// TypeExpr is a syntactic type as written in source, before type
// checking resolves it to a Type (rtype.go). Unlike Expr/Stmt/Item this
// family is small and closed, so codegen dispatches on it with a type
// switch — the same choice the teacher's gen_go.go makes for its (also
// small and closed) grammar AST node kinds.
type TypeExpr interface {
	Node
	typeExprNode()
}

// Pattern is a match-arm pattern. Dispatched by type switch for the same
// reason as TypeExpr; §4.5.1 describes pattern-match lowering itself as
// a per-kind dispatch ("For Literal, emit icmp eq. For bare identifier
// ..."), which is naturally a type switch rather than a visitor.
type Pattern interface {
	Node
	patternNode()
}

// Literal is a literal value as written in source.
type Literal interface {
	Node
	literalNode()
}
