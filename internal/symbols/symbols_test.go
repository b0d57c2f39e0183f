package symbols

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneCompressesPaths(t *testing.T) {
	ctx := NewContext()
	a := NewTypeVariable()
	b := NewTypeVariable()
	a.Substitute(b)
	b.Substitute(ctx.Int32)

	require.Equal(t, Type(ctx.Int32), Prune(a))
	// After pruning, a points directly at the end of the chain.
	assert.Equal(t, Type(ctx.Int32), a.Substitution())
}

func TestTypesEqualStructural(t *testing.T) {
	ctx := NewContext()
	tests := []struct {
		name string
		a, b Type
		mode EqualityMode
		want bool
	}{
		{"same_primitive", ctx.Int32, ctx.Int32, Default, true},
		{"different_primitive", ctx.Int32, ctx.Float64, Default, false},
		{"arrays_equal", NewArray(ctx.Int32, 1), NewArray(ctx.Int32, 1), Default, true},
		{"arrays_rank_differ", NewArray(ctx.Int32, 1), NewArray(ctx.Int32, 2), Default, false},
		{"functions_equal",
			NewFunctionType([]Type{ctx.Int32}, ctx.Bool),
			NewFunctionType([]Type{ctx.Int32}, ctx.Bool), Default, true},
		{"functions_differ",
			NewFunctionType([]Type{ctx.Int32}, ctx.Bool),
			NewFunctionType([]Type{ctx.String}, ctx.Bool), Default, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypesEqual(tt.a, tt.b, tt.mode))
		})
	}
}

func TestTypesEqualThroughVariables(t *testing.T) {
	ctx := NewContext()
	v := NewTypeVariable()
	v.Substitute(ctx.Int32)
	assert.True(t, TypesEqual(v, ctx.Int32, Default))
	assert.True(t, TypesEqual(ctx.Int32, v, Default))
}

func TestSignatureMatchTreatsTypeParamsEqual(t *testing.T) {
	f := NewFunc("f", Public)
	tpF := NewTypeParameter("T", f)
	f.TypeParams = []*TypeParameter{tpF}
	f.Params = []*ParamSymbol{NewParam("x", tpF, false)}
	f.Return = tpF

	g := NewFunc("g", Public)
	tpG := NewTypeParameter("U", g)
	g.TypeParams = []*TypeParameter{tpG}
	g.Params = []*ParamSymbol{NewParam("y", tpG, false)}
	g.Return = tpG

	// Distinct under Default, indistinguishable under SignatureMatch.
	assert.False(t, TypesEqual(tpF, tpG, Default))
	assert.True(t, SignaturesMatch(f, g))
}

func TestSubstitute(t *testing.T) {
	ctx := NewContext()
	f := NewFunc("f", Public)
	tp := NewTypeParameter("T", f)

	fnType := NewFunctionType([]Type{tp, NewArray(tp, 1)}, tp)
	sub := Substitute(fnType, map[*TypeParameter]Type{tp: ctx.Int32})

	got, ok := sub.(*Function)
	require.True(t, ok)
	assert.True(t, TypesEqual(got.Params[0], ctx.Int32, Default))
	arr, ok := got.Params[1].(*Array)
	require.True(t, ok)
	assert.True(t, TypesEqual(arr.Elem, ctx.Int32, Default))
	assert.True(t, TypesEqual(got.Return, ctx.Int32, Default))
}

func TestInstantiateRecordsOrigin(t *testing.T) {
	ctx := NewContext()
	f := NewFunc("id", Public)
	tp := NewTypeParameter("T", f)
	f.TypeParams = []*TypeParameter{tp}
	f.Params = []*ParamSymbol{NewParam("x", tp, false)}
	f.Return = tp

	inst := f.Instantiate(map[*TypeParameter]Type{tp: ctx.Int32})
	assert.Same(t, f, inst.Origin)
	assert.True(t, TypesEqual(inst.Params[0].Type, ctx.Int32, Default))
	assert.True(t, TypesEqual(inst.Return, ctx.Int32, Default))
}

func TestVariadicElem(t *testing.T) {
	ctx := NewContext()
	f := NewFunc("sum", Public)
	f.Params = []*ParamSymbol{NewParam("xs", NewArray(ctx.Int32, 1), true)}
	f.Return = ctx.Int32

	elem, ok := f.VariadicElem()
	require.True(t, ok)
	assert.Equal(t, Type(ctx.Int32), elem)

	// A non-array variadic parameter extracts nothing.
	g := NewFunc("bad", Public)
	g.Params = []*ParamSymbol{NewParam("x", ctx.Int32, true)}
	_, ok = g.VariadicElem()
	assert.False(t, ok)
}

func TestScopeShadowingAndOverloads(t *testing.T) {
	ctx := NewContext()
	outer := NewScope(nil)
	inner := NewScope(outer)

	outerVar := NewLocal("x", ctx.Int32, true)
	innerVar := NewLocal("x", ctx.String, true)
	require.Nil(t, outer.Insert(outerVar))
	require.Nil(t, inner.Insert(innerVar))

	syms, scope := inner.LookupParent("x")
	require.Len(t, syms, 1)
	assert.Equal(t, Symbol(innerVar), syms[0])
	assert.Equal(t, inner, scope)

	// Functions overload; other kinds collide.
	require.Nil(t, outer.Insert(NewFunc("f", Public)))
	require.Nil(t, outer.Insert(NewFunc("f", Public)))
	assert.Len(t, outer.Lookup("f"), 2)
	assert.NotNil(t, outer.Insert(NewLocal("x", ctx.Bool, true)))
}

func TestLazyComputesOnce(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	lazy := NewLazy(func() []Symbol {
		mu.Lock()
		calls++
		mu.Unlock()
		return []Symbol{NewLabel("only")}
	})

	const workers = 16
	results := make([][]Symbol, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = lazy.Get()
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.Len(t, r, 1)
		// Every reader observes the same published slice.
		assert.Equal(t, results[0][0], r[0])
	}
}

func TestQualifiedName(t *testing.T) {
	root := NewModule("", Public, nil)
	sys := NewModule("System", Public, nil)
	sys.SetContainer(root)
	fn := NewFunc("Print", Public)
	fn.SetContainer(sys)

	assert.Equal(t, "System.Print", QualifiedName(fn))
}

func TestAssemblyCacheResolvesOnce(t *testing.T) {
	p := &countingProvider{}
	cache := NewAssemblyCache(p)

	a1, err := cache.Get("System.Runtime", "")
	require.NoError(t, err)
	a2, err := cache.Get("System.Runtime", "")
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, 1, p.calls)
}

type countingProvider struct{ calls int }

func (p *countingProvider) GetAssembly(name, token string) (Assembly, error) {
	p.calls++
	return stubAssembly{name: name}, nil
}

type stubAssembly struct{ name string }

func (a stubAssembly) Name() string { return a.name }
func (a stubAssembly) LookupType(ns []string, name string) ExternalType {
	return nil
}
