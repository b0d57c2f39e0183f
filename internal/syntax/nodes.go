package syntax

// Typed views over red nodes. Each wrapper exposes the fixed child slots
// documented next to its kind in kinds.go. Constructing a view with a node
// of the wrong kind is a programming error.

// nodeElems returns the node children of a list node in order, skipping
// separator tokens and absent slots.
func nodeElems(n *Node) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for i := 0; i < n.NumChildren(); i++ {
		if c := n.ChildNode(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func childToken(n *Node, i int) Token {
	tok, _ := n.ChildToken(i)
	return tok
}

// ----------------------------------------------------------------------------
// Root and declarations

// CompilationUnit views a KindCompilationUnit node.
type CompilationUnit struct{ *Node }

func (u CompilationUnit) Decls() []*Node  { return nodeElems(u.ChildNode(0)) }
func (u CompilationUnit) EndToken() Token { return childToken(u.Node, 1) }

// ImportDecl views a KindImportDecl node.
type ImportDecl struct{ *Node }

func (d ImportDecl) ImportToken() Token { return childToken(d.Node, 0) }
func (d ImportDecl) Path() *Node        { return d.ChildNode(1) }

// FuncDecl views a KindFuncDecl node.
type FuncDecl struct{ *Node }

func (d FuncDecl) VisibilityToken() Token { return childToken(d.Node, 0) }
func (d FuncDecl) Name() Token            { return childToken(d.Node, 2) }
func (d FuncDecl) GenericParams() []*Node { return nodeElems(d.ChildNode(3)) }
func (d FuncDecl) Params() []*Node        { return nodeElems(d.ChildNode(5)) }
func (d FuncDecl) ReturnType() *Node      { return typeOfSpecifier(d.ChildNode(7)) }
func (d FuncDecl) Body() *Node            { return d.ChildNode(8) }

// GenericParam views a KindGenericParam node.
type GenericParam struct{ *Node }

func (p GenericParam) Name() Token { return childToken(p.Node, 0) }

// Param views a KindParam node.
type Param struct{ *Node }

func (p Param) EllipsisToken() Token { return childToken(p.Node, 0) }
func (p Param) IsVariadic() bool     { return p.EllipsisToken().Exists() }
func (p Param) Name() Token          { return childToken(p.Node, 1) }
func (p Param) Type() *Node          { return p.ChildNode(3) }

// typeOfSpecifier unwraps a KindTypeSpecifier node, tolerating absence.
func typeOfSpecifier(spec *Node) *Node {
	if spec == nil {
		return nil
	}
	return spec.ChildNode(1)
}

// ModuleDecl views a KindModuleDecl node.
type ModuleDecl struct{ *Node }

func (d ModuleDecl) Name() Token    { return childToken(d.Node, 2) }
func (d ModuleDecl) Decls() []*Node { return nodeElems(d.ChildNode(4)) }

// VariableDecl views a KindVariableDecl node.
type VariableDecl struct{ *Node }

func (d VariableDecl) VisibilityToken() Token { return childToken(d.Node, 0) }
func (d VariableDecl) KeywordToken() Token    { return childToken(d.Node, 1) }
func (d VariableDecl) IsMutable() bool        { return d.KeywordToken().Kind() == KeywordVar }
func (d VariableDecl) Name() Token            { return childToken(d.Node, 2) }
func (d VariableDecl) Type() *Node            { return typeOfSpecifier(d.ChildNode(3)) }
func (d VariableDecl) Value() *Node {
	spec := d.ChildNode(4)
	if spec == nil {
		return nil
	}
	return spec.ChildNode(1)
}

// LabelDecl views a KindLabelDecl node.
type LabelDecl struct{ *Node }

func (d LabelDecl) Name() Token { return childToken(d.Node, 0) }

// ----------------------------------------------------------------------------
// Statements

// DeclStmt views a KindDeclStmt node.
type DeclStmt struct{ *Node }

func (s DeclStmt) Decl() *Node { return s.ChildNode(0) }

// ExprStmt views a KindExprStmt node.
type ExprStmt struct{ *Node }

func (s ExprStmt) Expr() *Node { return s.ChildNode(0) }

// ----------------------------------------------------------------------------
// Expressions

// LiteralExpr views a KindLiteralExpr node.
type LiteralExpr struct{ *Node }

func (e LiteralExpr) Literal() Token { return childToken(e.Node, 0) }

// NameExpr views a KindNameExpr node.
type NameExpr struct{ *Node }

func (e NameExpr) Name() Token { return childToken(e.Node, 0) }

// MemberExpr views a KindMemberExpr node.
type MemberExpr struct{ *Node }

func (e MemberExpr) Receiver() *Node { return e.ChildNode(0) }
func (e MemberExpr) Name() Token     { return childToken(e.Node, 2) }

// CallExpr views a KindCallExpr node.
type CallExpr struct{ *Node }

func (e CallExpr) Callee() *Node { return e.ChildNode(0) }
func (e CallExpr) Args() []*Node { return nodeElems(e.ChildNode(2)) }

// IndexExpr views a KindIndexExpr node.
type IndexExpr struct{ *Node }

func (e IndexExpr) Receiver() *Node { return e.ChildNode(0) }
func (e IndexExpr) Args() []*Node   { return nodeElems(e.ChildNode(2)) }

// GenericExpr views a KindGenericExpr node.
type GenericExpr struct{ *Node }

func (e GenericExpr) Instantiated() *Node { return e.ChildNode(0) }
func (e GenericExpr) TypeArgs() []*Node   { return nodeElems(e.ChildNode(2)) }

// UnaryExpr views a KindUnaryExpr node.
type UnaryExpr struct{ *Node }

func (e UnaryExpr) Op() Token      { return childToken(e.Node, 0) }
func (e UnaryExpr) Operand() *Node { return e.ChildNode(1) }

// BinaryExpr views a KindBinaryExpr node.
type BinaryExpr struct{ *Node }

func (e BinaryExpr) Left() *Node  { return e.ChildNode(0) }
func (e BinaryExpr) Op() Token    { return childToken(e.Node, 1) }
func (e BinaryExpr) Right() *Node { return e.ChildNode(2) }

// AssignExpr views a KindAssignExpr node.
type AssignExpr struct{ *Node }

func (e AssignExpr) Target() *Node { return e.ChildNode(0) }
func (e AssignExpr) Op() Token     { return childToken(e.Node, 1) }
func (e AssignExpr) Value() *Node  { return e.ChildNode(2) }

// RelationalExpr views a KindRelationalExpr node.
type RelationalExpr struct{ *Node }

func (e RelationalExpr) Left() *Node { return e.ChildNode(0) }
func (e RelationalExpr) Comparisons() []Comparison {
	var out []Comparison
	for _, c := range nodeElems(e.ChildNode(1)) {
		out = append(out, Comparison{c})
	}
	return out
}

// Comparison views a KindComparison node: one (operator, operand) link of
// a relational chain.
type Comparison struct{ *Node }

func (c Comparison) Op() Token    { return childToken(c.Node, 0) }
func (c Comparison) Right() *Node { return c.ChildNode(1) }

// GroupingExpr views a KindGroupingExpr node.
type GroupingExpr struct{ *Node }

func (e GroupingExpr) Inner() *Node { return e.ChildNode(1) }

// IfExpr views a KindIfExpr node.
type IfExpr struct{ *Node }

func (e IfExpr) Cond() *Node { return e.ChildNode(2) }
func (e IfExpr) Then() *Node { return e.ChildNode(4) }
func (e IfExpr) Else() *Node {
	clause := e.ChildNode(5)
	if clause == nil {
		return nil
	}
	return clause.ChildNode(1)
}

// WhileExpr views a KindWhileExpr node.
type WhileExpr struct{ *Node }

func (e WhileExpr) Cond() *Node { return e.ChildNode(2) }
func (e WhileExpr) Body() *Node { return e.ChildNode(4) }

// BlockExpr views a KindBlockExpr node.
type BlockExpr struct{ *Node }

func (e BlockExpr) Stmts() []*Node { return nodeElems(e.ChildNode(1)) }
func (e BlockExpr) Value() *Node   { return e.ChildNode(2) }

// BlockFuncBody views a KindBlockFuncBody node.
type BlockFuncBody struct{ *Node }

func (b BlockFuncBody) Block() *Node { return b.ChildNode(0) }
func (b BlockFuncBody) Stmts() []*Node {
	if block := b.Block(); block != nil {
		return BlockExpr{Node: block}.Stmts()
	}
	return nil
}

// InlineFuncBody views a KindInlineFuncBody node.
type InlineFuncBody struct{ *Node }

func (b InlineFuncBody) Value() *Node { return b.ChildNode(1) }

// ReturnExpr views a KindReturnExpr node.
type ReturnExpr struct{ *Node }

func (e ReturnExpr) Value() *Node { return e.ChildNode(1) }

// GotoExpr views a KindGotoExpr node.
type GotoExpr struct{ *Node }

func (e GotoExpr) Target() *Node { return e.ChildNode(1) }

// NameLabel views a KindNameLabel node.
type NameLabel struct{ *Node }

func (l NameLabel) Name() Token { return childToken(l.Node, 0) }

// StringExpr views a KindStringExpr node.
type StringExpr struct{ *Node }

func (e StringExpr) OpenToken() Token  { return childToken(e.Node, 0) }
func (e StringExpr) Parts() []*Node    { return nodeElems(e.ChildNode(1)) }
func (e StringExpr) CloseToken() Token { return childToken(e.Node, 2) }

// IsMultiLine reports whether the string uses multi-line delimiters.
func (e StringExpr) IsMultiLine() bool {
	return e.OpenToken().Kind() == MultiLineStringStart
}

// TextStringPart views a KindTextStringPart node.
type TextStringPart struct{ *Node }

func (p TextStringPart) Content() Token { return childToken(p.Node, 0) }

// InterpolationStringPart views a KindInterpolationStringPart node.
type InterpolationStringPart struct{ *Node }

func (p InterpolationStringPart) Expr() *Node { return p.ChildNode(1) }

// ----------------------------------------------------------------------------
// Types

// NameType views a KindNameType node.
type NameType struct{ *Node }

func (t NameType) Name() Token { return childToken(t.Node, 0) }

// MemberType views a KindMemberType node.
type MemberType struct{ *Node }

func (t MemberType) Receiver() *Node { return t.ChildNode(0) }
func (t MemberType) Name() Token     { return childToken(t.Node, 2) }

// GenericType views a KindGenericType node.
type GenericType struct{ *Node }

func (t GenericType) Instantiated() *Node { return t.ChildNode(0) }
func (t GenericType) TypeArgs() []*Node   { return nodeElems(t.ChildNode(2)) }
