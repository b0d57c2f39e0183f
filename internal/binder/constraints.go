package binder

import (
	"fmt"
	"strings"

	"github.com/lucyelle/DracoCompiler/internal/diag"
	"github.com/lucyelle/DracoCompiler/internal/symbols"
)

// SolveState is the result of one constraint tick.
type SolveState int

const (
	// StateStale means the constraint is awaiting more information.
	StateStale SolveState = iota

	// StateAdvanced means progress was made; the solver should run
	// another pass.
	StateAdvanced

	// StateSolved means the constraint is discharged.
	StateSolved
)

// OverloadPromise defers an overload choice to the solver. Failing a
// promise suppresses diagnostics in dependents so only the root cause is
// reported.
type OverloadPromise struct {
	Result *symbols.FuncSymbol
	failed bool
	done   bool
}

// Resolve fulfills the promise with the chosen function.
func (p *OverloadPromise) Resolve(f *symbols.FuncSymbol) {
	p.Result = f
	p.done = true
}

// Fail marks the promise failed, poisoning dependents silently.
func (p *OverloadPromise) Fail() {
	p.failed = true
	p.done = true
}

// Done reports whether the promise has been decided.
func (p *OverloadPromise) Done() bool { return p.done }

// Failed reports whether the promise failed.
func (p *OverloadPromise) Failed() bool { return p.failed }

// MemberPromise defers a member lookup until the receiver type is known.
type MemberPromise struct {
	Members []symbols.Symbol
	failed  bool
	done    bool
}

// Resolve fulfills the promise with the found members.
func (p *MemberPromise) Resolve(members []symbols.Symbol) {
	p.Members = members
	p.done = true
}

// Fail marks the promise failed.
func (p *MemberPromise) Fail() {
	p.failed = true
	p.done = true
}

// Done reports whether the promise has been decided.
func (p *MemberPromise) Done() bool { return p.done }

// Failed reports whether the promise failed.
func (p *MemberPromise) Failed() bool { return p.failed }

// ArgRef is an argument's type and source span as seen by a constraint.
type ArgRef struct {
	Type symbols.Type
	Span diag.Span
}

// Constraint is one solver work item. Solve runs a tick; Fail reports the
// constraint's configured diagnostic when it is still stale after the
// solver reached a fixpoint.
type Constraint interface {
	Solve(s *Solver) SolveState
	Fail(s *Solver)
}

// ----------------------------------------------------------------------------
// Assignable

// AssignableConstraint unifies a source type into a target type after
// implicit conversions (currently identity).
type AssignableConstraint struct {
	Target symbols.Type
	Source symbols.Type
	Span   diag.Span
}

func (c *AssignableConstraint) Solve(s *Solver) SolveState {
	s.Unify(c.Target, c.Source, c.Span)
	return StateSolved
}

func (c *AssignableConstraint) Fail(*Solver) {}

// ----------------------------------------------------------------------------
// Call (indirect)

// CallConstraint types an indirect call once the callee type is known.
type CallConstraint struct {
	Callee symbols.Type
	Desc   string // callee description for diagnostics
	Args   []ArgRef
	Ret    symbols.Type
	Span   diag.Span
}

func (c *CallConstraint) Solve(s *Solver) SolveState {
	callee := symbols.Prune(c.Callee)
	if v, ok := callee.(*symbols.TypeVariable); ok && v.Substitution() == nil {
		return StateStale
	}

	switch callee := callee.(type) {
	case *symbols.Error:
		s.Unify(c.Ret, symbols.ErrorType, c.Span)
		return StateSolved

	case *symbols.Function:
		args := make([]symbols.Type, len(c.Args))
		for i, a := range c.Args {
			args[i] = a.Type
		}
		s.Unify(callee, symbols.NewFunctionType(args, c.Ret), c.Span)
		return StateSolved

	default:
		s.bag.AddNew(diag.CallNonFunction, c.Span, c.Desc)
		s.Unify(c.Ret, symbols.ErrorType, c.Span)
		return StateSolved
	}
}

func (c *CallConstraint) Fail(s *Solver) {
	s.bag.AddNew(diag.CallNonFunction, c.Span, c.Desc)
	s.Unify(c.Ret, symbols.ErrorType, c.Span)
}

// ----------------------------------------------------------------------------
// Member

// MemberConstraint resolves receiver.name once the receiver type is
// known.
type MemberConstraint struct {
	Receiver symbols.Type
	Name     string
	Result   symbols.Type
	Promise  *MemberPromise
	Span     diag.Span
}

func (c *MemberConstraint) Solve(s *Solver) SolveState {
	recv := symbols.Prune(c.Receiver)
	if v, ok := recv.(*symbols.TypeVariable); ok && v.Substitution() == nil {
		return StateStale
	}
	if c.Promise.Done() {
		return StateSolved
	}

	if symbols.IsError(recv) {
		c.poison(s)
		return StateSolved
	}

	members := lookupMembers(s, recv, c.Name)
	if len(members) == 0 {
		s.bag.AddNew(diag.UndefinedReference, c.Span, c.Name)
		c.poison(s)
		return StateSolved
	}

	c.Promise.Resolve(members)
	switch m := members[0].(type) {
	case *symbols.FieldSymbol:
		s.Unify(c.Result, m.Type, c.Span)
	case *symbols.PropertySymbol:
		s.Unify(c.Result, m.Type, c.Span)
	case *symbols.FuncSymbol:
		// A method group has no type of its own; an Overload constraint
		// sharing the promise picks the winner and types the call.
	}
	return StateAdvanced
}

func (c *MemberConstraint) poison(s *Solver) {
	c.Promise.Fail()
	s.Unify(c.Result, symbols.ErrorType, c.Span)
}

func (c *MemberConstraint) Fail(s *Solver) {
	s.bag.AddNew(diag.UndefinedReference, c.Span, c.Name)
	c.poison(s)
}

// lookupMembers finds the members of a type with the given name.
func lookupMembers(s *Solver, t symbols.Type, name string) []symbols.Symbol {
	switch t := t.(type) {
	case *symbols.ExternalRef:
		var out []symbols.Symbol
		for _, m := range t.Members() {
			if m.Name() == name {
				out = append(out, m)
			}
		}
		return out

	case *symbols.Array:
		if name == "Length" {
			return []symbols.Symbol{s.arrayLength(t)}
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Overload

// OverloadConstraint scores a function group against call arguments and
// resolves the group's promise to the unique best candidate.
type OverloadConstraint struct {
	Name       string
	Candidates []*symbols.FuncSymbol
	FromMember *MemberPromise // fills Candidates when set
	TypeArgs   []symbols.Type // explicit generic arguments
	Args       []ArgRef
	Ret        symbols.Type
	Promise    *OverloadPromise
	Span       diag.Span

	instantiated bool
}

func (c *OverloadConstraint) Solve(s *Solver) SolveState {
	if c.FromMember != nil {
		if !c.FromMember.Done() {
			return StateStale
		}
		if c.FromMember.Failed() {
			c.poison(s)
			return StateSolved
		}
		c.takeMemberCandidates(s)
		c.FromMember = nil
		if c.Promise.Done() {
			return StateSolved
		}
	}

	if !c.instantiated && len(c.TypeArgs) > 0 {
		c.applyTypeArgs(s)
		if c.Promise.Done() {
			return StateSolved
		}
	}

	// Defer while any argument type is still unknown.
	anyError := false
	for _, a := range c.Args {
		t := symbols.Prune(a.Type)
		if v, ok := t.(*symbols.TypeVariable); ok && v.Substitution() == nil {
			return StateStale
		}
		anyError = anyError || symbols.IsError(t)
	}
	if anyError {
		c.poison(s)
		return StateSolved
	}

	type scored struct {
		fn       *symbols.FuncSymbol
		score    int
		bindings map[*symbols.TypeParameter]symbols.Type
	}
	var best []scored
	bestScore := -1
	for _, fn := range c.Candidates {
		score, bindings, ok := scoreCandidate(fn, c.Args)
		if !ok {
			continue
		}
		switch {
		case score > bestScore:
			bestScore = score
			best = best[:0]
			best = append(best, scored{fn, score, bindings})
		case score == bestScore:
			best = append(best, scored{fn, score, bindings})
		}
	}

	switch len(best) {
	case 0:
		s.bag.AddNew(diag.NoMatchingOverload, c.Span, c.Name, formatArgTypes(c.Args))
		c.poison(s)
		return StateSolved

	case 1:
		winner := c.instantiate(best[0].fn)
		c.Promise.Resolve(winner)
		c.unifySignature(s, winner)
		return StateSolved

	default:
		names := make([]string, len(best))
		for i, b := range best {
			names[i] = b.fn.Type().String()
		}
		s.bag.AddNew(diag.AmbiguousOverload, c.Span, c.Name, strings.Join(names, " and "))
		c.poison(s)
		return StateSolved
	}
}

// takeMemberCandidates extracts the function overloads from a resolved
// member promise. Non-function members cannot be called.
func (c *OverloadConstraint) takeMemberCandidates(s *Solver) {
	for _, m := range c.FromMember.Members {
		if fn, ok := m.(*symbols.FuncSymbol); ok {
			c.Candidates = append(c.Candidates, fn)
		}
	}
	if len(c.Candidates) == 0 {
		s.bag.AddNew(diag.CallNonFunction, c.Span, c.Name)
		c.poison(s)
	}
}

// applyTypeArgs substitutes explicit generic arguments into every
// candidate of matching generic arity, dropping the rest.
func (c *OverloadConstraint) applyTypeArgs(s *Solver) {
	c.instantiated = true
	var inst []*symbols.FuncSymbol
	genericSeen := 0
	for _, fn := range c.Candidates {
		if len(fn.TypeParams) == 0 {
			continue
		}
		genericSeen = len(fn.TypeParams)
		if len(fn.TypeParams) != len(c.TypeArgs) {
			continue
		}
		mapping := make(map[*symbols.TypeParameter]symbols.Type, len(fn.TypeParams))
		for i, tp := range fn.TypeParams {
			mapping[tp] = c.TypeArgs[i]
		}
		inst = append(inst, fn.Instantiate(mapping))
	}
	if len(inst) == 0 {
		s.bag.AddNew(diag.GenericArityMismatch, c.Span, c.Name, genericSeen, len(c.TypeArgs))
		c.poison(s)
		return
	}
	c.Candidates = inst
}

// instantiate replaces the type parameters of a generic winner with fresh
// type variables so unification can infer them from the arguments.
func (c *OverloadConstraint) instantiate(fn *symbols.FuncSymbol) *symbols.FuncSymbol {
	if len(fn.TypeParams) == 0 {
		return fn
	}
	mapping := make(map[*symbols.TypeParameter]symbols.Type, len(fn.TypeParams))
	for _, tp := range fn.TypeParams {
		mapping[tp] = symbols.NewTypeVariable()
	}
	return fn.Instantiate(mapping)
}

// unifySignature unifies the winner's parameter types with the argument
// types and its return type with the call's result.
func (c *OverloadConstraint) unifySignature(s *Solver, fn *symbols.FuncSymbol) {
	fixed := len(fn.Params)
	var elem symbols.Type
	if e, ok := fn.VariadicElem(); ok {
		fixed--
		elem = e
	}
	for i, a := range c.Args {
		switch {
		case i < fixed:
			s.Unify(fn.Params[i].Type, a.Type, a.Span)
		case elem != nil:
			s.Unify(elem, a.Type, a.Span)
		}
	}
	s.Unify(c.Ret, fn.Return, c.Span)
}

func (c *OverloadConstraint) poison(s *Solver) {
	c.Promise.Fail()
	s.Unify(c.Ret, symbols.ErrorType, c.Span)
}

func (c *OverloadConstraint) Fail(s *Solver) {
	s.bag.AddNew(diag.NoMatchingOverload, c.Span, c.Name, formatArgTypes(c.Args))
	c.poison(s)
}

// scoreCandidate scores one candidate against the arguments: +2 per
// exactly matching argument, +1 per argument matching via generic
// unification, eliminated on any incompatibility or arity mismatch.
func scoreCandidate(fn *symbols.FuncSymbol, args []ArgRef) (int, map[*symbols.TypeParameter]symbols.Type, bool) {
	fixed := len(fn.Params)
	var elem symbols.Type
	if e, ok := fn.VariadicElem(); ok {
		fixed--
		elem = e
	} else if fn.IsVariadic() {
		// A variadic parameter whose type is not a rank-1 array can never
		// match; the binder has already diagnosed the declaration.
		return 0, nil, false
	}

	if elem == nil && len(args) != fixed {
		return 0, nil, false
	}
	if elem != nil && len(args) < fixed {
		return 0, nil, false
	}

	bindings := make(map[*symbols.TypeParameter]symbols.Type)
	score := 0
	for i, a := range args {
		param := elem
		if i < fixed {
			param = fn.Params[i].Type
		}
		argType := symbols.Prune(a.Type)
		switch {
		case symbols.TypesEqual(param, argType, symbols.Default):
			score += 2
		case canBind(param, argType, bindings):
			score++
		default:
			return 0, nil, false
		}
	}
	return score, bindings, true
}

// canBind reports whether param can structurally match arg, binding type
// parameters consistently along the way.
func canBind(param, arg symbols.Type, bindings map[*symbols.TypeParameter]symbols.Type) bool {
	param, arg = symbols.Prune(param), symbols.Prune(arg)

	if tp, ok := param.(*symbols.TypeParameter); ok {
		if bound, ok := bindings[tp]; ok {
			return symbols.TypesEqual(bound, arg, symbols.Default)
		}
		bindings[tp] = arg
		return true
	}
	if v, ok := arg.(*symbols.TypeVariable); ok && v.Substitution() == nil {
		return true
	}

	switch param := param.(type) {
	case *symbols.Array:
		argArr, ok := arg.(*symbols.Array)
		return ok && param.Rank == argArr.Rank && canBind(param.Elem, argArr.Elem, bindings)

	case *symbols.Function:
		argFn, ok := arg.(*symbols.Function)
		if !ok || len(param.Params) != len(argFn.Params) {
			return false
		}
		for i := range param.Params {
			if !canBind(param.Params[i], argFn.Params[i], bindings) {
				return false
			}
		}
		return canBind(param.Return, argFn.Return, bindings)

	case *symbols.GenericInstance:
		argGen, ok := arg.(*symbols.GenericInstance)
		if !ok || !symbols.TypesEqual(param.Def, argGen.Def, symbols.Default) ||
			len(param.Args) != len(argGen.Args) {
			return false
		}
		for i := range param.Args {
			if !canBind(param.Args[i], argGen.Args[i], bindings) {
				return false
			}
		}
		return true

	default:
		return symbols.TypesEqual(param, arg, symbols.Default)
	}
}

// formatArgTypes renders argument types for a diagnostic.
func formatArgTypes(args []ArgRef) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%s", symbols.Prune(a.Type))
	}
	return strings.Join(parts, ", ")
}
