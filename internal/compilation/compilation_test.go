package compilation

import (
	"context"
	"strings"
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lucyelle/DracoCompiler/internal/diag"
	"github.com/lucyelle/DracoCompiler/internal/ir"
	"github.com/lucyelle/DracoCompiler/internal/symbols"
)

func TestCompileEndToEnd(t *testing.T) {
	src := "func main() { var x: int32 = 1 + 2 * 3; }"
	c := New(Config{Logger: zap.NewNop()})
	result := c.Compile(context.Background(), src)

	assert.False(t, result.HasErrors())
	assert.Equal(t, src, result.Tree.Text())
	require.NotNil(t, result.Bound)
	require.NotNil(t, result.IR)

	out := ir.Print(result.IR)
	assert.Contains(t, out, "proc main():")
}

func TestCompileWithErrorsStillProducesTrees(t *testing.T) {
	// Diagnostics are never fatal: the pipeline always runs to
	// completion, with error types standing in for failures.
	result := New(Config{}).Compile(context.Background(), `func main() { return 1 + "x"; }`)

	assert.True(t, result.HasErrors())
	require.NotNil(t, result.Tree)
	require.NotNil(t, result.Bound)
	require.NotNil(t, result.IR)

	var overload int
	for _, d := range result.Diagnostics {
		if d.Code() == "DR0204" {
			overload++
		}
	}
	assert.Equal(t, 1, overload, "one root cause, no cascade")
}

func TestCompileCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(Config{}).Compile(ctx, "func main() { 1 + 2; }")
	require.NotNil(t, result.Tree)
	assert.Nil(t, result.IR, "cancellation stops before lowering")
}

func TestCompilationsAreIndependent(t *testing.T) {
	// No process-wide state: two compilations have distinct contexts.
	a := New(Config{})
	b := New(Config{})
	assert.NotSame(t, a.Context(), b.Context())
	assert.NotSame(t, a.Context().Int32, b.Context().Int32)
}

func TestCompileDeterministicDiagnostics(t *testing.T) {
	src := strings.TrimPrefix(dedent.Dedent(`
		func main() {
			missing;
			return 1 + "x";
		}`), "\n")

	first := New(Config{}).Compile(context.Background(), src)
	second := New(Config{}).Compile(context.Background(), src)

	require.Equal(t, len(first.Diagnostics), len(second.Diagnostics))
	for i := range first.Diagnostics {
		assert.Equal(t, first.Diagnostics[i].Code(), second.Diagnostics[i].Code())
		assert.Equal(t, first.Diagnostics[i].Span, second.Diagnostics[i].Span)
	}
}

// ----------------------------------------------------------------------------
// Metadata provider

// fakeProvider serves one assembly with a System.Console type.
type fakeProvider struct {
	asm *fakeAssembly
}

func (p *fakeProvider) GetAssembly(name, token string) (symbols.Assembly, error) {
	return p.asm, nil
}

type fakeAssembly struct {
	console *fakeType
}

func (a *fakeAssembly) Name() string { return "System.Runtime" }

func (a *fakeAssembly) LookupType(ns []string, name string) symbols.ExternalType {
	if len(ns) == 1 && ns[0] == "System" && name == "Console" {
		return a.console
	}
	return nil
}

type fakeType struct {
	members func() []symbols.Symbol
}

func (t *fakeType) Name() string                                 { return "Console" }
func (t *fakeType) Members() []symbols.Symbol                    { return t.members() }
func (t *fakeType) GenericParameters() []*symbols.TypeParameter  { return nil }
func (t *fakeType) IsValueType() bool                            { return false }
func (t *fakeType) Visibility() symbols.Visibility               { return symbols.Public }

func TestCompileWithMetadataProvider(t *testing.T) {
	provider := &fakeProvider{asm: &fakeAssembly{console: &fakeType{}}}
	c := New(Config{
		Provider:   provider,
		References: []AssemblyRef{{Name: "System.Runtime"}},
	})

	// Members are produced against the compilation's own context.
	sctx := c.Context()
	provider.asm.console.members = func() []symbols.Symbol {
		writeLine := symbols.NewFunc("WriteLine", symbols.Public)
		writeLine.Params = []*symbols.ParamSymbol{symbols.NewParam("value", sctx.String, false)}
		writeLine.Return = sctx.Unit
		return []symbols.Symbol{writeLine}
	}

	src := "import System.Console;\n\nfunc main() { Console.WriteLine(\"hi\"); }"
	result := c.Compile(context.Background(), src)

	require.Empty(t, diagStrings(result.Diagnostics))
	out := ir.Print(result.IR)
	assert.Contains(t, out, "WriteLine")
}

func diagStrings(ds []*diag.Diagnostic) []string {
	var out []string
	for _, d := range ds {
		out = append(out, d.String())
	}
	return out
}
