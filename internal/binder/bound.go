package binder

import (
	"github.com/lucyelle/DracoCompiler/internal/symbols"
	"github.com/lucyelle/DracoCompiler/internal/syntax"
)

// BoundNode is implemented by all bound tree nodes. The bound tree is the
// untyped tree with every promise resolved to a single symbol and every
// expression carrying a concrete type.
type BoundNode interface {
	Syntax() *syntax.Node
	aBound()
}

// BoundExpr is a fully typed expression.
type BoundExpr interface {
	BoundNode
	Type() symbols.Type
}

// BoundStmt is a statement in the bound tree.
type BoundStmt interface {
	BoundNode
	aBoundStmt()
}

type boundNode struct {
	syntax *syntax.Node
}

func (n *boundNode) Syntax() *syntax.Node { return n.syntax }
func (*boundNode) aBound()                {}

type boundStmt struct{ boundNode }

func (*boundStmt) aBoundStmt() {}

type boundExpr struct {
	boundNode
	typ symbols.Type
}

func (e *boundExpr) Type() symbols.Type { return e.typ }

// ----------------------------------------------------------------------------
// Statements

// BoundLocalDecl declares and optionally initializes a local.
type BoundLocalDecl struct {
	boundStmt
	Local *symbols.LocalSymbol
	Value BoundExpr // nil when uninitialized
}

// BoundLabelStmt marks a jump target.
type BoundLabelStmt struct {
	boundStmt
	Label *symbols.LabelSymbol
}

// BoundExprStmt evaluates an expression for effect.
type BoundExprStmt struct {
	boundStmt
	Expr BoundExpr
}

// ----------------------------------------------------------------------------
// Expressions

// BoundLiteral is a typed literal constant.
type BoundLiteral struct {
	boundExpr
	Value interface{}
}

// BoundLocalRef reads a local variable.
type BoundLocalRef struct {
	boundExpr
	Local *symbols.LocalSymbol
}

// BoundGlobalRef reads a global variable.
type BoundGlobalRef struct {
	boundExpr
	Global *symbols.GlobalSymbol
}

// BoundParamRef reads a parameter.
type BoundParamRef struct {
	boundExpr
	Param *symbols.ParamSymbol
}

// BoundFieldRef reads a field of a receiver.
type BoundFieldRef struct {
	boundExpr
	Receiver BoundExpr // nil for static fields
	Field    *symbols.FieldSymbol
}

// BoundPropertyRef reads a property of a receiver.
type BoundPropertyRef struct {
	boundExpr
	Receiver BoundExpr // nil for static properties
	Prop     *symbols.PropertySymbol
}

// BoundCall calls a resolved function directly.
type BoundCall struct {
	boundExpr
	Func *symbols.FuncSymbol
	Args []BoundExpr
}

// BoundMemberCall calls a resolved method on a receiver.
type BoundMemberCall struct {
	boundExpr
	Receiver BoundExpr
	Func     *symbols.FuncSymbol
	Args     []BoundExpr
}

// BoundIndirectCall calls through a function-typed value.
type BoundIndirectCall struct {
	boundExpr
	Callee BoundExpr
	Args   []BoundExpr
}

// BoundFunctionRef references a function as a first-class value.
type BoundFunctionRef struct {
	boundExpr
	Func *symbols.FuncSymbol
}

// BoundLogical is a short-circuiting and/or.
type BoundLogical struct {
	boundExpr
	IsAnd bool
	Left  BoundExpr
	Right BoundExpr
}

// BoundIndex reads an array element.
type BoundIndex struct {
	boundExpr
	Receiver BoundExpr
	Args     []BoundExpr
}

// BoundRelationalLink is one resolved comparison of a relational chain.
type BoundRelationalLink struct {
	Func  *symbols.FuncSymbol
	Right BoundExpr
}

// BoundRelational is a chained comparison. Each middle operand is
// evaluated once even though it participates in two comparisons.
type BoundRelational struct {
	boundExpr
	First BoundExpr
	Links []BoundRelationalLink
}

// BoundIf is a conditional expression.
type BoundIf struct {
	boundExpr
	Cond BoundExpr
	Then BoundExpr
	Else BoundExpr // nil for unit-valued else
}

// BoundWhile is a loop expression of type unit.
type BoundWhile struct {
	boundExpr
	Cond BoundExpr
	Body BoundExpr
}

// BoundBlock is a block expression with its declared locals.
type BoundBlock struct {
	boundExpr
	Locals []*symbols.LocalSymbol
	Stmts  []BoundStmt
	Value  BoundExpr // nil means unit
}

// BoundReturn returns from the enclosing function.
type BoundReturn struct {
	boundExpr
	Value BoundExpr // nil returns unit
}

// BoundGoto jumps to a label.
type BoundGoto struct {
	boundExpr
	Target *symbols.LabelSymbol
}

// BoundAssign writes through an lvalue; Compound holds the resolved
// operator for compound assignments, nil otherwise.
type BoundAssign struct {
	boundExpr
	Target   BoundExpr
	Compound *symbols.FuncSymbol
	Value    BoundExpr
}

// BoundStringPart is literal text or a stringified expression.
type BoundStringPart struct {
	Text  string
	Value BoundExpr // nil for literal text parts
}

// BoundString is a string expression assembled from parts.
type BoundString struct {
	boundExpr
	Parts []BoundStringPart
}

// BoundError is the poison expression standing in for failed binding.
type BoundError struct {
	boundExpr
}

// ----------------------------------------------------------------------------
// Top-level results

// BoundFunc pairs a function symbol with its bound body.
type BoundFunc struct {
	Sym  *symbols.FuncSymbol
	Body BoundExpr
}

// BoundGlobal pairs a global symbol with its bound initializer (nil when
// uninitialized).
type BoundGlobal struct {
	Sym   *symbols.GlobalSymbol
	Value BoundExpr
}

// BoundModule is the fully bound compilation result.
type BoundModule struct {
	Root    *symbols.Module
	Funcs   []*BoundFunc
	Globals []*BoundGlobal
}
