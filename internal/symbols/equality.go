package symbols

// EqualityMode selects the comparison rules for type equality.
type EqualityMode int

const (
	// Default compares types structurally; distinct type parameters are
	// distinct types.
	Default EqualityMode = iota

	// SignatureMatch additionally treats all type parameters as equal to
	// each other, which is the rule for comparing overload signatures.
	SignatureMatch
)

// TypesEqual reports whether two types are equal under the given mode.
// Type variables are pruned first; an unsubstituted variable is equal
// only to itself.
func TypesEqual(a, b Type, mode EqualityMode) bool {
	a, b = Prune(a), Prune(b)
	if a == b {
		return true
	}

	switch a := a.(type) {
	case *Array:
		bArr, ok := b.(*Array)
		return ok && a.Rank == bArr.Rank && TypesEqual(a.Elem, bArr.Elem, mode)

	case *Function:
		bFn, ok := b.(*Function)
		if !ok || len(a.Params) != len(bFn.Params) {
			return false
		}
		for i := range a.Params {
			if !TypesEqual(a.Params[i], bFn.Params[i], mode) {
				return false
			}
		}
		return TypesEqual(a.Return, bFn.Return, mode)

	case *GenericInstance:
		bGen, ok := b.(*GenericInstance)
		if !ok || !TypesEqual(a.Def, bGen.Def, mode) || len(a.Args) != len(bGen.Args) {
			return false
		}
		for i := range a.Args {
			if !TypesEqual(a.Args[i], bGen.Args[i], mode) {
				return false
			}
		}
		return true

	case *TypeParameter:
		if mode == SignatureMatch {
			_, ok := b.(*TypeParameter)
			return ok
		}
		return false
	}

	return false
}

// SignaturesMatch reports whether two functions have indistinguishable
// signatures: same arity and SignatureMatch-equal parameter types.
func SignaturesMatch(a, b *FuncSymbol) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if a.Params[i].Variadic != b.Params[i].Variadic {
			return false
		}
		if !TypesEqual(a.Params[i].Type, b.Params[i].Type, SignatureMatch) {
			return false
		}
	}
	return true
}

// Substitute replaces type parameters in t according to the mapping,
// rebuilding composite types as needed. Types without substituted parts
// are returned unchanged.
func Substitute(t Type, mapping map[*TypeParameter]Type) Type {
	switch t := Prune(t).(type) {
	case *TypeParameter:
		if r, ok := mapping[t]; ok {
			return r
		}
		return t

	case *Array:
		elem := Substitute(t.Elem, mapping)
		if elem == t.Elem {
			return t
		}
		return NewArray(elem, t.Rank)

	case *Function:
		changed := false
		params := make([]Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = Substitute(p, mapping)
			changed = changed || params[i] != p
		}
		ret := Substitute(t.Return, mapping)
		if !changed && ret == t.Return {
			return t
		}
		return NewFunctionType(params, ret)

	case *GenericInstance:
		changed := false
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = Substitute(a, mapping)
			changed = changed || args[i] != a
		}
		if !changed {
			return t
		}
		return NewGenericInstance(t.Def, args)

	default:
		return t
	}
}
