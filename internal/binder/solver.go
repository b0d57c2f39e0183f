package binder

import (
	"context"

	"github.com/lucyelle/DracoCompiler/internal/diag"
	"github.com/lucyelle/DracoCompiler/internal/symbols"
)

// Solver is a fixpoint engine over constraints and type variables. It
// runs passes until every constraint is solved or a full pass makes no
// progress; residual stale constraints then fail with their configured
// diagnostics.
type Solver struct {
	ctx *symbols.Context
	bag *diag.Bag

	constraints []Constraint
	solved      []bool

	arrayLengths map[*symbols.Array]*symbols.FieldSymbol
}

// NewSolver creates a solver reporting into the given bag.
func NewSolver(ctx *symbols.Context, bag *diag.Bag) *Solver {
	return &Solver{
		ctx:          ctx,
		bag:          bag,
		arrayLengths: make(map[*symbols.Array]*symbols.FieldSymbol),
	}
}

// Add queues a constraint. Constraints may be added while solving.
func (s *Solver) Add(c Constraint) {
	s.constraints = append(s.constraints, c)
	s.solved = append(s.solved, false)
}

// Run drives the solver to a fixpoint. Cancellation is consulted between
// iterations; on cancellation the solver returns early with whatever has
// been decided so far still valid.
func (s *Solver) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		progress := false
		remaining := 0
		for i := 0; i < len(s.constraints); i++ {
			if s.solved[i] {
				continue
			}
			switch s.constraints[i].Solve(s) {
			case StateSolved:
				s.solved[i] = true
				progress = true
			case StateAdvanced:
				progress = true
				remaining++
			default:
				remaining++
			}
		}
		if remaining == 0 {
			return
		}
		if !progress {
			break
		}
	}

	// Fixpoint with residue: report each stale constraint's configured
	// diagnostic.
	for i, c := range s.constraints {
		if !s.solved[i] {
			c.Fail(s)
		}
	}
}

// arrayLength returns the synthesized Length member of an array type,
// created once per type.
func (s *Solver) arrayLength(arr *symbols.Array) *symbols.FieldSymbol {
	if f, ok := s.arrayLengths[arr]; ok {
		return f
	}
	f := symbols.NewField("Length", symbols.Public, s.ctx.Int32, false)
	s.arrayLengths[arr] = f
	return f
}

// ----------------------------------------------------------------------------
// Unification

// Unify makes two types equal: variables are substituted (variables on
// both sides union), concrete types are compared structurally, and never
// unifies with anything. A mismatch records a TypeMismatch diagnostic
// and substitutes variable ends with the error type; error absorbs
// everything so one root cause does not cascade.
func (s *Solver) Unify(a, b symbols.Type, span diag.Span) bool {
	origA, origB := a, b
	a, b = symbols.Prune(a), symbols.Prune(b)
	if a == b {
		return true
	}

	if av, ok := a.(*symbols.TypeVariable); ok {
		av.Substitute(b)
		return true
	}
	if bv, ok := b.(*symbols.TypeVariable); ok {
		bv.Substitute(a)
		return true
	}

	// Error absorbs; never inhabits everything.
	if symbols.IsError(a) || symbols.IsError(b) {
		return true
	}
	if symbols.IsNever(a) || symbols.IsNever(b) {
		return true
	}

	if s.unifyStructural(a, b, span) {
		return true
	}
	s.bag.AddNew(diag.TypeMismatch, span, a, b)
	for _, end := range []symbols.Type{origA, origB} {
		if v, ok := end.(*symbols.TypeVariable); ok {
			v.Substitute(symbols.ErrorType)
		}
	}
	return false
}

// unifyStructural compares two concrete types, unifying matching parts.
func (s *Solver) unifyStructural(a, b symbols.Type, span diag.Span) bool {
	switch a := a.(type) {
	case *symbols.Array:
		bArr, ok := b.(*symbols.Array)
		return ok && a.Rank == bArr.Rank && s.unifyQuiet(a.Elem, bArr.Elem, span)

	case *symbols.Function:
		bFn, ok := b.(*symbols.Function)
		if !ok || len(a.Params) != len(bFn.Params) {
			return false
		}
		for i := range a.Params {
			if !s.unifyQuiet(a.Params[i], bFn.Params[i], span) {
				return false
			}
		}
		return s.unifyQuiet(a.Return, bFn.Return, span)

	case *symbols.GenericInstance:
		bGen, ok := b.(*symbols.GenericInstance)
		if !ok || len(a.Args) != len(bGen.Args) || !s.unifyQuiet(a.Def, bGen.Def, span) {
			return false
		}
		for i := range a.Args {
			if !s.unifyQuiet(a.Args[i], bGen.Args[i], span) {
				return false
			}
		}
		return true
	}
	return false
}

// unifyQuiet unifies without reporting: the caller reports one diagnostic
// for the outermost mismatch.
func (s *Solver) unifyQuiet(a, b symbols.Type, span diag.Span) bool {
	a, b = symbols.Prune(a), symbols.Prune(b)
	if a == b {
		return true
	}
	if av, ok := a.(*symbols.TypeVariable); ok {
		av.Substitute(b)
		return true
	}
	if bv, ok := b.(*symbols.TypeVariable); ok {
		bv.Substitute(a)
		return true
	}
	if symbols.IsError(a) || symbols.IsError(b) {
		return true
	}
	if symbols.IsNever(a) || symbols.IsNever(b) {
		return true
	}
	return s.unifyStructural(a, b, span)
}
