package symbols

import "fmt"

// Visibility controls where a symbol may be referenced from.
type Visibility int

const (
	Private Visibility = iota
	Internal
	Public
)

// visibilityNames maps visibilities to their string representation.
var visibilityNames = [...]string{
	Private:  "private",
	Internal: "internal",
	Public:   "public",
}

// String returns the string representation of the visibility.
func (v Visibility) String() string {
	if int(v) < len(visibilityNames) {
		return visibilityNames[v]
	}
	return fmt.Sprintf("visibility(%d)", int(v))
}

// Symbol is the interface implemented by every declared entity. Symbols
// form a DAG rooted at a compilation's root module; the container link is
// a back reference only.
type Symbol interface {
	Name() string
	Container() Symbol
	Visibility() Visibility

	aSymbol() // marker method to restrict implementations to this package
}

// symbol is the base struct embedded in all symbol implementations.
type symbol struct {
	name      string
	container Symbol
	vis       Visibility
}

func (s *symbol) Name() string           { return s.name }
func (s *symbol) Container() Symbol      { return s.container }
func (s *symbol) Visibility() Visibility { return s.vis }
func (*symbol) aSymbol()                 {}

// SetContainer records the containing symbol; called once when the
// container adopts the symbol.
func (s *symbol) SetContainer(c Symbol) { s.container = c }

// QualifiedName returns the dotted path from the root module to s. The
// unnamed root contributes nothing.
func QualifiedName(s Symbol) string {
	if s == nil {
		return ""
	}
	prefix := QualifiedName(s.Container())
	if prefix == "" {
		return s.Name()
	}
	if s.Name() == "" {
		return prefix
	}
	return prefix + "." + s.Name()
}

// ----------------------------------------------------------------------------
// Modules

// Module is a namespace symbol. Members are populated lazily: source
// modules accumulate members as the binder declares them, metadata
// modules produce members on first request.
type Module struct {
	symbol
	members Lazy[[]Symbol]
	added   []Symbol
}

// NewModule creates a module symbol whose lazy members are produced on
// first request by fill (nil for pure source modules).
func NewModule(name string, vis Visibility, fill func() []Symbol) *Module {
	m := &Module{}
	m.name = name
	m.vis = vis
	m.members.fill = fill
	return m
}

// AddMember appends a binder-declared member.
func (m *Module) AddMember(sym Symbol) {
	m.added = append(m.added, sym)
}

// Members returns the module's member symbols: the lazily produced set
// (computed at most once) followed by binder-declared members.
func (m *Module) Members() []Symbol {
	lazy := m.members.Get()
	if len(m.added) == 0 {
		return lazy
	}
	out := make([]Symbol, 0, len(lazy)+len(m.added))
	out = append(out, lazy...)
	return append(out, m.added...)
}

// ----------------------------------------------------------------------------
// Functions

// Intrinsic tags compiler-known functions so lowering can map calls to
// dedicated instructions.
type Intrinsic int

const (
	NotIntrinsic Intrinsic = iota
	IntrinsicAdd
	IntrinsicSub
	IntrinsicMul
	IntrinsicDiv
	IntrinsicRem
	IntrinsicMod
	IntrinsicLess
	IntrinsicLessEqual
	IntrinsicGreater
	IntrinsicGreaterEqual
	IntrinsicEqual
	IntrinsicNotEqual
	IntrinsicNeg
	IntrinsicPlus
	IntrinsicNot
	IntrinsicToString
	IntrinsicStringConcat
)

// FuncSymbol is a declared, intrinsic, or synthesized function.
type FuncSymbol struct {
	symbol
	TypeParams []*TypeParameter
	Params     []*ParamSymbol
	Return     Type
	Intrinsic  Intrinsic

	// Origin points at the generic definition this symbol was
	// instantiated from, nil for non-instantiated functions.
	Origin *FuncSymbol
}

// Instantiate returns a copy of f with type parameters substituted
// according to the mapping. The copy records f as its origin.
func (f *FuncSymbol) Instantiate(mapping map[*TypeParameter]Type) *FuncSymbol {
	inst := NewFunc(f.name, f.vis)
	inst.container = f.container
	inst.Intrinsic = f.Intrinsic
	inst.Origin = f
	inst.Return = Substitute(f.Return, mapping)
	inst.Params = make([]*ParamSymbol, len(f.Params))
	for i, p := range f.Params {
		inst.Params[i] = NewParam(p.Name(), Substitute(p.Type, mapping), p.Variadic)
	}
	return inst
}

// NewFunc creates a function symbol.
func NewFunc(name string, vis Visibility) *FuncSymbol {
	f := &FuncSymbol{}
	f.name = name
	f.vis = vis
	return f
}

// Type returns the symbol's function type.
func (f *FuncSymbol) Type() *Function {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type
	}
	return NewFunctionType(params, f.Return)
}

// IsVariadic reports whether the final parameter is variadic.
func (f *FuncSymbol) IsVariadic() bool {
	return len(f.Params) > 0 && f.Params[len(f.Params)-1].Variadic
}

// VariadicElem returns the element type of the trailing variadic
// parameter; the parameter type must be a rank-1 array.
func (f *FuncSymbol) VariadicElem() (Type, bool) {
	if !f.IsVariadic() {
		return nil, false
	}
	arr, ok := Prune(f.Params[len(f.Params)-1].Type).(*Array)
	if !ok || arr.Rank != 1 {
		return nil, false
	}
	return arr.Elem, true
}

// ParamSymbol is a function parameter.
type ParamSymbol struct {
	symbol
	Type     Type
	Variadic bool
}

// NewParam creates a parameter symbol.
func NewParam(name string, t Type, variadic bool) *ParamSymbol {
	p := &ParamSymbol{Type: t, Variadic: variadic}
	p.name = name
	return p
}

// ----------------------------------------------------------------------------
// Variables

// LocalSymbol is a function-local variable.
type LocalSymbol struct {
	symbol
	Type    Type
	Mutable bool
}

// NewLocal creates a local variable symbol.
func NewLocal(name string, t Type, mutable bool) *LocalSymbol {
	l := &LocalSymbol{Type: t, Mutable: mutable}
	l.name = name
	return l
}

// GlobalSymbol is a module-level variable.
type GlobalSymbol struct {
	symbol
	Type    Type
	Mutable bool
}

// NewGlobal creates a global variable symbol.
func NewGlobal(name string, vis Visibility, t Type, mutable bool) *GlobalSymbol {
	g := &GlobalSymbol{Type: t, Mutable: mutable}
	g.name = name
	g.vis = vis
	return g
}

// FieldSymbol is a member field of an external type.
type FieldSymbol struct {
	symbol
	Type    Type
	Mutable bool
}

// NewField creates a field symbol.
func NewField(name string, vis Visibility, t Type, mutable bool) *FieldSymbol {
	f := &FieldSymbol{Type: t, Mutable: mutable}
	f.name = name
	f.vis = vis
	return f
}

// PropertySymbol is a computed member of an external type.
type PropertySymbol struct {
	symbol
	Type   Type
	Getter *FuncSymbol
	Setter *FuncSymbol
}

// NewProperty creates a property symbol.
func NewProperty(name string, vis Visibility, t Type) *PropertySymbol {
	p := &PropertySymbol{Type: t}
	p.name = name
	p.vis = vis
	return p
}

// LabelSymbol names a jump target inside a function body.
type LabelSymbol struct {
	symbol
}

// NewLabel creates a label symbol.
func NewLabel(name string) *LabelSymbol {
	l := &LabelSymbol{}
	l.name = name
	return l
}
