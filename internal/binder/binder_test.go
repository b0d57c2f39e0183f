package binder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucyelle/DracoCompiler/internal/diag"
	"github.com/lucyelle/DracoCompiler/internal/symbols"
	"github.com/lucyelle/DracoCompiler/internal/syntax"
)

// bindSource parses and binds a source string with a fresh context.
func bindSource(t *testing.T, src string) (*BoundModule, []*diag.Diagnostic) {
	t.Helper()
	tree := syntax.Parse(src)
	require.Empty(t, tree.Diagnostics(), "source must parse clean")
	bag := diag.NewBag()
	mod := Bind(context.Background(), symbols.NewContext(), tree, nil, bag)
	return mod, bag.Diagnostics()
}

func codes(ds []*diag.Diagnostic) []string {
	var out []string
	for _, d := range ds {
		out = append(out, d.Code())
	}
	return out
}

func TestBindSimpleFunction(t *testing.T) {
	mod, ds := bindSource(t, "func main() { var x: int32 = 1 + 2 * 3; }")
	require.Empty(t, ds)
	require.Len(t, mod.Funcs, 1)

	body, ok := mod.Funcs[0].Body.(*BoundBlock)
	require.True(t, ok)
	require.Len(t, body.Locals, 1)
	assert.Equal(t, "x", body.Locals[0].Name())
	assert.Equal(t, "int32", body.Locals[0].Type.String())
}

func TestBindArithmeticResolvesIntrinsics(t *testing.T) {
	mod, ds := bindSource(t, "func f(a: int32, b: int32): int32 = a + b;")
	require.Empty(t, ds)

	// The inline body materializes as a block returning the call.
	block := mod.Funcs[0].Body.(*BoundBlock)
	ret := block.Stmts[0].(*BoundExprStmt).Expr.(*BoundReturn)
	call, ok := ret.Value.(*BoundCall)
	require.True(t, ok)
	assert.Equal(t, symbols.IntrinsicAdd, call.Func.Intrinsic)
	assert.Equal(t, "int32", call.Type().String())
}

func TestBindGenericCall(t *testing.T) {
	mod, ds := bindSource(t, "func f<T>(x: T): T = x; func main() { f<int32>(5); }")
	require.Empty(t, ds)
	require.Len(t, mod.Funcs, 2)

	block := mod.Funcs[1].Body.(*BoundBlock)
	call := block.Stmts[0].(*BoundExprStmt).Expr.(*BoundCall)
	assert.Equal(t, "int32", call.Type().String())
	require.NotNil(t, call.Func.Origin)
	assert.Equal(t, "f", call.Func.Origin.Name())
}

func TestBindGenericInference(t *testing.T) {
	// Without explicit type arguments the solver infers T from the
	// argument.
	mod, ds := bindSource(t, "func id<T>(x: T): T = x; func main() { var y: int32 = id(7); }")
	require.Empty(t, ds)

	block := mod.Funcs[1].Body.(*BoundBlock)
	decl := block.Stmts[0].(*BoundLocalDecl)
	assert.Equal(t, "int32", decl.Local.Type.String())
}

func TestBindNoMatchingOverload(t *testing.T) {
	// One diagnostic only: the error type absorbs the failed + so the
	// return check does not cascade.
	_, ds := bindSource(t, `func main() { return 1 + "x"; }`)
	require.Len(t, ds, 1)
	assert.Equal(t, "DR0204", ds[0].Code())
}

func TestBindAmbiguousOverload(t *testing.T) {
	src := `
func f(x: int32): int32 = x;
func f(y: int32): int32 = y;
func main() { f(1); }`
	_, ds := bindSource(t, src)
	require.NotEmpty(t, ds)
	assert.Contains(t, codes(ds), "DR0203")
}

func TestBindOverloadPrefersExactMatch(t *testing.T) {
	src := `
func g(x: int32): int32 = x;
func g(x: float64): float64 = x;
func main() { var r: int32 = g(1); }`
	_, ds := bindSource(t, src)
	assert.Empty(t, ds)
}

func TestBindUndefinedReference(t *testing.T) {
	_, ds := bindSource(t, "func main() { missing; }")
	require.NotEmpty(t, ds)
	assert.Equal(t, "DR0101", ds[0].Code())
}

func TestBindShadowing(t *testing.T) {
	src := `
func main() {
	var x: int32 = 1;
	{
		var x: string = "s";
		x = "t";
	};
	x = 2;
}`
	_, ds := bindSource(t, src)
	assert.Empty(t, ds)
}

func TestBindValIsImmutable(t *testing.T) {
	_, ds := bindSource(t, "func main() { val x: int32 = 1; x = 2; }")
	require.NotEmpty(t, ds)
	assert.Contains(t, codes(ds), "DR0103")
}

func TestBindTypeAsValue(t *testing.T) {
	_, ds := bindSource(t, "func main() { int32; }")
	require.NotEmpty(t, ds)
	assert.Contains(t, codes(ds), "DR0103")
}

func TestBindCallNonFunction(t *testing.T) {
	_, ds := bindSource(t, "func main() { var x: int32 = 1; x(2); }")
	require.NotEmpty(t, ds)
	assert.Contains(t, codes(ds), "DR0202")
}

func TestBindTypeMismatch(t *testing.T) {
	_, ds := bindSource(t, `func main() { var x: int32 = "s"; }`)
	require.NotEmpty(t, ds)
	assert.Contains(t, codes(ds), "DR0201")
}

func TestBindGenericArityMismatch(t *testing.T) {
	_, ds := bindSource(t, "func f<T>(x: T): T = x; func main() { f<int32, string>(1); }")
	require.NotEmpty(t, ds)
	assert.Contains(t, codes(ds), "DR0205")
}

func TestBindIfBranchesUnify(t *testing.T) {
	mod, ds := bindSource(t, "func pick(c: bool): int32 = if (c) 1 else 2;")
	require.Empty(t, ds)

	block := mod.Funcs[0].Body.(*BoundBlock)
	ret := block.Stmts[0].(*BoundExprStmt).Expr.(*BoundReturn)
	assert.Equal(t, "int32", ret.Value.Type().String())
}

func TestBindReturnHasNeverType(t *testing.T) {
	// A return in one branch unifies with the other branch's value.
	mod, ds := bindSource(t, "func f(c: bool): int32 { var r: int32 = if (c) return 1 else 2; return r; }")
	require.Empty(t, ds)
	require.Len(t, mod.Funcs, 1)
}

func TestBindModuleMemberAccess(t *testing.T) {
	src := `
module Math {
	public func square(x: int32): int32 = x * x;
}
func main() { var n: int32 = Math.square(4); }`
	_, ds := bindSource(t, src)
	assert.Empty(t, ds)
}

func TestBindStringInterpolation(t *testing.T) {
	mod, ds := bindSource(t, `func greet(name: string): string = "Hello, \{name}!";`)
	require.Empty(t, ds)

	block := mod.Funcs[0].Body.(*BoundBlock)
	ret := block.Stmts[0].(*BoundExprStmt).Expr.(*BoundReturn)
	str, ok := ret.Value.(*BoundString)
	require.True(t, ok)
	require.Len(t, str.Parts, 3)
	assert.Equal(t, "Hello, ", str.Parts[0].Text)
	require.NotNil(t, str.Parts[1].Value)
	assert.Equal(t, "string", str.Parts[1].Value.Type().String())
	assert.Equal(t, "!", str.Parts[2].Text)
}

func TestBindVariadicCall(t *testing.T) {
	src := `
func first(...xs: Array<int32>): int32 = xs[0];
func main() { first(1, 2, 3); first(); }`
	_, ds := bindSource(t, src)
	assert.Empty(t, ds)
}

func TestBindVariadicRequiresArray(t *testing.T) {
	_, ds := bindSource(t, "func f(...x: int32) {}")
	require.NotEmpty(t, ds)
	assert.Contains(t, codes(ds), "DR0201")
}

func TestBindGotoUndefinedLabel(t *testing.T) {
	_, ds := bindSource(t, "func main() { goto nowhere; }")
	require.NotEmpty(t, ds)
	assert.Equal(t, "DR0101", ds[0].Code())
}

func TestBindCancellationReturnsPartialResult(t *testing.T) {
	tree := syntax.Parse("func main() { 1 + 2; }")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mod := Bind(ctx, symbols.NewContext(), tree, nil, diag.NewBag())
	require.NotNil(t, mod)
	assert.NotNil(t, mod.Root)
}

// ----------------------------------------------------------------------------
// Solver properties

func TestUnifySymmetric(t *testing.T) {
	ctx := symbols.NewContext()
	s := NewSolver(ctx, diag.NewBag())

	a := symbols.NewTypeVariable()
	require.True(t, s.Unify(a, ctx.Int32, diag.Span{}))
	assert.Equal(t, symbols.Type(ctx.Int32), symbols.Prune(a))

	b := symbols.NewTypeVariable()
	require.True(t, s.Unify(ctx.Int32, b, diag.Span{}))
	assert.Equal(t, symbols.Type(ctx.Int32), symbols.Prune(b))
}

func TestUnifyTransitive(t *testing.T) {
	ctx := symbols.NewContext()
	s := NewSolver(ctx, diag.NewBag())

	a := symbols.NewTypeVariable()
	b := symbols.NewTypeVariable()
	c := symbols.NewTypeVariable()
	require.True(t, s.Unify(a, b, diag.Span{}))
	require.True(t, s.Unify(b, c, diag.Span{}))
	require.True(t, s.Unify(c, ctx.Bool, diag.Span{}))

	assert.Equal(t, symbols.Type(ctx.Bool), symbols.Prune(a))
	assert.Equal(t, symbols.Type(ctx.Bool), symbols.Prune(b))
}

func TestUnifyMismatchReportsAndPoisons(t *testing.T) {
	ctx := symbols.NewContext()
	bag := diag.NewBag()
	s := NewSolver(ctx, bag)

	assert.False(t, s.Unify(ctx.Int32, ctx.String, diag.Span{}))
	require.Equal(t, 1, bag.Len())
	assert.Equal(t, "DR0201", bag.Diagnostics()[0].Code())

	// Error absorbs silently.
	require.True(t, s.Unify(ctx.Int32, symbols.ErrorType, diag.Span{}))
	assert.Equal(t, 1, bag.Len())
}

func TestUnifyNeverInhabitsEverything(t *testing.T) {
	ctx := symbols.NewContext()
	s := NewSolver(ctx, diag.NewBag())
	assert.True(t, s.Unify(symbols.NeverType, ctx.Int32, diag.Span{}))
}

func TestScoreCandidate(t *testing.T) {
	ctx := symbols.NewContext()

	intFn := symbols.NewFunc("f", symbols.Public)
	intFn.Params = []*symbols.ParamSymbol{symbols.NewParam("x", ctx.Int32, false)}
	intFn.Return = ctx.Int32

	genFn := symbols.NewFunc("f", symbols.Public)
	tp := symbols.NewTypeParameter("T", genFn)
	genFn.TypeParams = []*symbols.TypeParameter{tp}
	genFn.Params = []*symbols.ParamSymbol{symbols.NewParam("x", tp, false)}
	genFn.Return = tp

	args := []ArgRef{{Type: ctx.Int32}}

	exact, _, ok := scoreCandidate(intFn, args)
	require.True(t, ok)
	generic, _, ok2 := scoreCandidate(genFn, args)
	require.True(t, ok2)

	// Exact match beats generic unification.
	assert.Equal(t, 2, exact)
	assert.Equal(t, 1, generic)

	// Incompatible argument eliminates.
	_, _, ok3 := scoreCandidate(intFn, []ArgRef{{Type: ctx.String}})
	assert.False(t, ok3)

	// Arity mismatch eliminates.
	_, _, ok4 := scoreCandidate(intFn, nil)
	assert.False(t, ok4)
}

func TestScoreVariadicCandidate(t *testing.T) {
	ctx := symbols.NewContext()
	fn := symbols.NewFunc("sum", symbols.Public)
	fn.Params = []*symbols.ParamSymbol{symbols.NewParam("xs", symbols.NewArray(ctx.Int32, 1), true)}
	fn.Return = ctx.Int32

	// Zero or more arguments each scored against the element type.
	_, _, ok := scoreCandidate(fn, nil)
	assert.True(t, ok)

	score, _, ok := scoreCandidate(fn, []ArgRef{{Type: ctx.Int32}, {Type: ctx.Int32}})
	require.True(t, ok)
	assert.Equal(t, 4, score)

	_, _, ok = scoreCandidate(fn, []ArgRef{{Type: ctx.String}})
	assert.False(t, ok)
}
