// Package binder turns syntax into symbols and types. Binding happens in
// two steps: the binder produces an untyped tree in which names are
// resolved but overload choices are deferred behind promises, and the
// constraint solver resolves every promise, yielding a bound tree where
// each expression carries a concrete type.
package binder

import (
	"github.com/lucyelle/DracoCompiler/internal/diag"
	"github.com/lucyelle/DracoCompiler/internal/symbols"
	"github.com/lucyelle/DracoCompiler/internal/syntax"
)

// UntypedNode is implemented by all untyped tree nodes.
type UntypedNode interface {
	Syntax() *syntax.Node
	aUntyped()
}

// UntypedExpr is an expression whose type may still contain type
// variables while constraints are being solved.
type UntypedExpr interface {
	UntypedNode

	// TypeHint returns the expression's (possibly variable) type.
	TypeHint() symbols.Type
}

// UntypedStmt is a statement in the untyped tree.
type UntypedStmt interface {
	UntypedNode
	aUntypedStmt()
}

// untypedNode is the base struct embedded in all untyped nodes.
type untypedNode struct {
	syntax *syntax.Node
}

func (n *untypedNode) Syntax() *syntax.Node { return n.syntax }
func (*untypedNode) aUntyped()              {}

// span returns the node's source span for diagnostics.
func (n *untypedNode) span() diag.Span {
	if n.syntax == nil {
		return diag.Span{}
	}
	return n.syntax.Span()
}

type untypedStmt struct{ untypedNode }

func (*untypedStmt) aUntypedStmt() {}

// ----------------------------------------------------------------------------
// Statements

// UntypedLocalDecl declares a local variable, optionally initialized.
type UntypedLocalDecl struct {
	untypedStmt
	Local *symbols.LocalSymbol
	Value UntypedExpr // nil when uninitialized
}

// UntypedLabelStmt marks a jump target.
type UntypedLabelStmt struct {
	untypedStmt
	Label *symbols.LabelSymbol
}

// UntypedExprStmt evaluates an expression for effect.
type UntypedExprStmt struct {
	untypedStmt
	Expr UntypedExpr
}

// ----------------------------------------------------------------------------
// Expressions

type untypedExpr struct {
	untypedNode
	typ symbols.Type
}

func (e *untypedExpr) TypeHint() symbols.Type { return e.typ }

// UntypedLiteral is a literal constant.
type UntypedLiteral struct {
	untypedExpr
	Value interface{}
}

// UntypedLocalRef reads a local variable.
type UntypedLocalRef struct {
	untypedExpr
	Local *symbols.LocalSymbol
}

// UntypedGlobalRef reads a module-level variable.
type UntypedGlobalRef struct {
	untypedExpr
	Global *symbols.GlobalSymbol
}

// UntypedParamRef reads a parameter.
type UntypedParamRef struct {
	untypedExpr
	Param *symbols.ParamSymbol
}

// UntypedFieldRef reads a field of a receiver expression.
type UntypedFieldRef struct {
	untypedExpr
	Receiver UntypedExpr // nil for static fields
	Field    *symbols.FieldSymbol
}

// UntypedModuleRef names a module; valid only as a member-access receiver.
type UntypedModuleRef struct {
	untypedExpr
	Module *symbols.Module
}

// UntypedTypeRef names a type; valid only as a member-access receiver for
// static members. A bare type name in value or callee position is
// diagnosed.
type UntypedTypeRef struct {
	untypedExpr
	Ref symbols.Type
}

// UntypedPropertyRef reads a property of a receiver.
type UntypedPropertyRef struct {
	untypedExpr
	Receiver UntypedExpr // nil for static properties
	Prop     *symbols.PropertySymbol
}

// UntypedFuncGroup is an unresolved overload set; valid only as a callee.
// The promise is resolved by an Overload constraint.
type UntypedFuncGroup struct {
	untypedExpr
	Name      string
	Functions []*symbols.FuncSymbol
	TypeArgs  []symbols.Type // explicit generic arguments, nil if inferred
	Promise   *OverloadPromise
}

// UntypedCall calls a callee with arguments. Direct calls route through
// an Overload constraint whose promise is recorded here; indirect calls
// leave the promise nil and route through a Call constraint.
type UntypedCall struct {
	untypedExpr
	Callee   UntypedExpr
	Args     []UntypedExpr
	Overload *OverloadPromise
}

// UntypedMember accesses a member on a receiver whose type is not yet
// known; a Member constraint resolves it.
type UntypedMember struct {
	untypedExpr
	Receiver UntypedExpr
	Name     string
	Promise  *MemberPromise
}

// UntypedFunctionRef references a single function as a first-class value.
type UntypedFunctionRef struct {
	untypedExpr
	Func *symbols.FuncSymbol
}

// UntypedLogical is a short-circuiting and/or; both operands are bool.
type UntypedLogical struct {
	untypedExpr
	IsAnd bool
	Left  UntypedExpr
	Right UntypedExpr
}

// UntypedIndex reads an array element.
type UntypedIndex struct {
	untypedExpr
	Receiver UntypedExpr
	Args     []UntypedExpr
}

// UntypedRelationalLink is one (operator, operand) link of a relational
// chain; the operator is an overload promise over the comparison
// intrinsics.
type UntypedRelationalLink struct {
	Promise *OverloadPromise
	Right   UntypedExpr
}

// UntypedRelational is a chained comparison; its type is bool.
type UntypedRelational struct {
	untypedExpr
	First UntypedExpr
	Links []UntypedRelationalLink
}

// UntypedIf is a two-armed conditional expression.
type UntypedIf struct {
	untypedExpr
	Cond UntypedExpr
	Then UntypedExpr
	Else UntypedExpr // nil means a unit-valued else arm
}

// UntypedWhile is a loop expression of type unit.
type UntypedWhile struct {
	untypedExpr
	Cond UntypedExpr
	Body UntypedExpr
}

// UntypedBlock is a block expression: statements plus an optional value.
type UntypedBlock struct {
	untypedExpr
	Stmts []UntypedStmt
	Value UntypedExpr // nil means the block evaluates to unit
}

// UntypedReturn returns from the enclosing function; its type is never.
type UntypedReturn struct {
	untypedExpr
	Value UntypedExpr // nil returns unit
}

// UntypedGoto jumps to a label; its type is never.
type UntypedGoto struct {
	untypedExpr
	Target *symbols.LabelSymbol
}

// UntypedAssign writes a value through an lvalue. Compound assignments
// carry an operator promise over the arithmetic intrinsics.
type UntypedAssign struct {
	untypedExpr
	Target   UntypedExpr
	Compound *OverloadPromise // nil for plain assignment
	Value    UntypedExpr
}

// UntypedStringPart is a piece of an interpolated string: either literal
// text or an expression converted to string.
type UntypedStringPart struct {
	Text string      // literal content, used when Value is nil
	Value UntypedExpr // interpolated expression, already wrapped in toString
}

// UntypedString is a (possibly interpolated) string expression.
type UntypedString struct {
	untypedExpr
	Parts []UntypedStringPart
}

// UntypedError is the poison expression produced wherever binding failed;
// its type is the error type.
type UntypedError struct {
	untypedExpr
}
