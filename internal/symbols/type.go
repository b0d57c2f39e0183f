// Package symbols implements the Draco symbol model: a DAG of modules,
// functions, variables, and types, populated lazily from syntax and from
// external metadata.
package symbols

import (
	"fmt"
	"strings"
)

// Type is the interface implemented by all type symbols.
type Type interface {
	Symbol

	// String returns a human-readable representation of the type.
	String() string

	aType() // marker method to restrict implementations to this package
}

// typ is the base struct embedded in all type implementations.
type typ struct{ symbol }

func (typ) aType() {}

// ----------------------------------------------------------------------------
// Primitive types

// Primitive is a built-in scalar type such as int32 or bool.
type Primitive struct {
	typ
}

// NewPrimitive creates a primitive type with the given name.
func NewPrimitive(name string) *Primitive {
	p := &Primitive{}
	p.name = name
	return p
}

func (p *Primitive) String() string { return p.name }

// ----------------------------------------------------------------------------
// Composite types

// Array is a rank-N array type.
type Array struct {
	typ
	Elem Type
	Rank int
}

// NewArray creates an array type.
func NewArray(elem Type, rank int) *Array {
	return &Array{Elem: elem, Rank: rank}
}

func (a *Array) String() string {
	return fmt.Sprintf("Array<%s, %d>", a.Elem, a.Rank)
}

// Function is a function type: parameter types and a return type.
type Function struct {
	typ
	Params []Type
	Return Type
}

// NewFunctionType creates a function type.
func NewFunctionType(params []Type, ret Type) *Function {
	return &Function{Params: params, Return: ret}
}

func (f *Function) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), f.Return)
}

// TypeParameter is a declared generic parameter, e.g. T in func f<T>.
type TypeParameter struct {
	typ
}

// NewTypeParameter creates a type parameter.
func NewTypeParameter(name string, container Symbol) *TypeParameter {
	t := &TypeParameter{}
	t.name = name
	t.container = container
	return t
}

func (t *TypeParameter) String() string { return t.name }

// GenericInstance is a generic type applied to arguments.
type GenericInstance struct {
	typ
	Def  Type
	Args []Type
}

// NewGenericInstance instantiates a generic definition with arguments.
func NewGenericInstance(def Type, args []Type) *GenericInstance {
	return &GenericInstance{Def: def, Args: args}
}

func (g *GenericInstance) String() string {
	parts := make([]string, len(g.Args))
	for i, a := range g.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", g.Def, strings.Join(parts, ", "))
}

// ----------------------------------------------------------------------------
// Special types

// Never is the bottom type inhabiting unreachable expressions such as
// return and goto.
type Never struct{ typ }

func (Never) String() string { return "<never>" }

// Error is the poison type absorbed by unification so a single root cause
// does not cascade into dependent diagnostics.
type Error struct{ typ }

func (Error) String() string { return "<error>" }

// NeverType and ErrorType are the canonical instances; both types are
// stateless so sharing them is safe.
var (
	NeverType = &Never{}
	ErrorType = &Error{}
)

// IsError reports whether t (after pruning) is the error type.
func IsError(t Type) bool {
	_, ok := Prune(t).(*Error)
	return ok
}

// IsNever reports whether t (after pruning) is the never type.
func IsNever(t Type) bool {
	_, ok := Prune(t).(*Never)
	return ok
}

// ----------------------------------------------------------------------------
// Type variables

// TypeVariable is a unification variable with a single substitution slot.
type TypeVariable struct {
	typ
	sub Type
}

// NewTypeVariable creates an unsubstituted type variable.
func NewTypeVariable() *TypeVariable {
	return &TypeVariable{}
}

// Substitution returns the variable's direct substitution, or nil.
func (v *TypeVariable) Substitution() Type { return v.sub }

// Substitute sets the variable's substitution slot.
func (v *TypeVariable) Substitute(t Type) { v.sub = t }

func (v *TypeVariable) String() string {
	if v.sub != nil {
		return v.sub.String()
	}
	return "?"
}

// Prune returns the transitive substitution of t, path-compressing chains
// of type variables along the way. Non-variables are returned unchanged.
func Prune(t Type) Type {
	v, ok := t.(*TypeVariable)
	if !ok || v.sub == nil {
		return t
	}
	end := Prune(v.sub)
	v.sub = end
	return end
}
