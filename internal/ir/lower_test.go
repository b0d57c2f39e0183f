package ir

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucyelle/DracoCompiler/internal/binder"
	"github.com/lucyelle/DracoCompiler/internal/diag"
	"github.com/lucyelle/DracoCompiler/internal/symbols"
	"github.com/lucyelle/DracoCompiler/internal/syntax"
)

// lowerSource runs the whole pipeline over a source string.
func lowerSource(t *testing.T, src string) (*Module, []*diag.Diagnostic) {
	t.Helper()
	tree := syntax.Parse(src)
	require.Empty(t, tree.Diagnostics(), "source must parse clean")
	bag := diag.NewBag()
	sctx := symbols.NewContext()
	bound := binder.Bind(context.Background(), sctx, tree, nil, bag)
	mod := Lower(context.Background(), sctx, bound, bag)
	return mod, bag.Diagnostics()
}

func findProc(t *testing.T, m *Module, name string) *Procedure {
	t.Helper()
	for _, p := range m.Procedures {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("procedure %s not found", name)
	return nil
}

// opcodes flattens a procedure's instruction opcodes in block order.
func opcodes(p *Procedure) []Opcode {
	var out []Opcode
	for _, b := range p.Blocks {
		for _, i := range b.Instrs {
			out = append(out, i.Op)
		}
	}
	return out
}

func indexOf(ops []Opcode, op Opcode) int {
	for i, o := range ops {
		if o == op {
			return i
		}
	}
	return -1
}

func TestLowerMulBeforeAdd(t *testing.T) {
	mod, ds := lowerSource(t, "func main() { var x: int32 = 1 + 2 * 3; }")
	require.Empty(t, ds)

	ops := opcodes(findProc(t, mod, "main"))
	mul := indexOf(ops, OpMul)
	add := indexOf(ops, OpAdd)
	require.NotEqual(t, -1, mul)
	require.NotEqual(t, -1, add)
	assert.Less(t, mul, add, "2 * 3 computes before the addition")
}

func TestLowerModIsEuclidean(t *testing.T) {
	// mod lowers to (a rem b + b) rem b.
	mod, ds := lowerSource(t, "func f(a: int32, b: int32): int32 = a mod b;")
	require.Empty(t, ds)

	ops := opcodes(findProc(t, mod, "f"))
	var seq []Opcode
	for _, op := range ops {
		if op == OpRem || op == OpAdd {
			seq = append(seq, op)
		}
	}
	assert.Equal(t, []Opcode{OpRem, OpAdd, OpRem}, seq)
}

func TestLowerComparisonRewrites(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []Opcode // comparison-relevant opcode sequence
	}{
		{"less", "a < b", []Opcode{OpLess}},
		{"greater", "a > b", []Opcode{OpLess}},
		{"less_equal", "a <= b", []Opcode{OpLess, OpEqual}},
		{"greater_equal", "a >= b", []Opcode{OpLess, OpEqual}},
		{"equal", "a == b", []Opcode{OpEqual}},
		{"not_equal", "a != b", []Opcode{OpEqual, OpEqual}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, ds := lowerSource(t, "func f(a: int32, b: int32): bool = "+tt.expr+";")
			require.Empty(t, ds)
			var got []Opcode
			for _, op := range opcodes(findProc(t, mod, "f")) {
				if op == OpLess || op == OpEqual {
					got = append(got, op)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLowerGreaterSwapsOperands(t *testing.T) {
	mod, ds := lowerSource(t, "func f(a: int32, b: int32): bool = a > b;")
	require.Empty(t, ds)

	proc := findProc(t, mod, "f")
	var less *Instruction
	for _, b := range proc.Blocks {
		for _, i := range b.Instrs {
			if i.Op == OpLess {
				less = i
			}
		}
	}
	require.NotNil(t, less)
	// a > b computes b < a: the b load feeds the first operand.
	loads := map[Operand]Operand{}
	for _, b := range proc.Blocks {
		for _, i := range b.Instrs {
			if i.Op == OpLoad {
				loads[Operand(i.Target)] = i.Operands[0]
			}
		}
	}
	first, ok := loads[less.Operands[0]]
	require.True(t, ok)
	param, ok := first.(*Param)
	require.True(t, ok)
	assert.Equal(t, "b", param.Sym.Name())
}

func TestLowerUnaryRewrites(t *testing.T) {
	mod, ds := lowerSource(t, "func f(x: int32): int32 = -x;")
	require.Empty(t, ds)
	ops := opcodes(findProc(t, mod, "f"))
	assert.NotEqual(t, -1, indexOf(ops, OpMul), "-x lowers to x * -1")

	mod, ds = lowerSource(t, "func g(b: bool): bool = not b;")
	require.Empty(t, ds)
	ops = opcodes(findProc(t, mod, "g"))
	assert.NotEqual(t, -1, indexOf(ops, OpEqual), "not b lowers to b == false")
}

// checkBlockInvariants asserts that every block ends in exactly one
// branch and every non-entry block keeps a predecessor after dead-code
// removal.
func checkBlockInvariants(t *testing.T, p *Procedure) {
	t.Helper()
	preds := make(map[*BasicBlock]int)
	for _, b := range p.Blocks {
		require.True(t, b.Terminated(), "%s: block %s must end in a branch", p.Name, b)
		for i, instr := range b.Instrs {
			if i < len(b.Instrs)-1 {
				require.False(t, instr.IsBranch(),
					"%s: block %s has a branch before its end", p.Name, b)
			}
		}
		for _, s := range b.Succs() {
			preds[s]++
		}
	}
	for _, b := range p.Blocks {
		if b != p.Entry {
			assert.Greater(t, preds[b], 0, "%s: block %s has no predecessor", p.Name, b)
		}
	}
}

func TestLowerBlockInvariants(t *testing.T) {
	sources := []string{
		"func main() { var x: int32 = 1 + 2 * 3; }",
		"func main() { var i: int32 = 0; while (i < 10) { i = i + 1; } }",
		"func f(c: bool): int32 = if (c) 1 else 2;",
		"func main() { loop: goto loop; }",
		"func main() { var a: bool = true and false or true; }",
		"func f(a: int32, b: int32, c: int32): bool = a < b > c;",
		"func main() { return; }",
	}
	for _, src := range sources {
		mod, _ := lowerSource(t, src)
		for _, p := range mod.Procedures {
			checkBlockInvariants(t, p)
		}
	}
}

func TestLowerWhileShape(t *testing.T) {
	mod, ds := lowerSource(t, "func main() { var i: int32 = 0; while (i < 10) { i = i + 1; } }")
	require.Empty(t, ds)

	proc := findProc(t, mod, "main")
	require.GreaterOrEqual(t, len(proc.Blocks), 4)
	assert.NotEqual(t, -1, indexOf(opcodes(proc), OpBranch))
}

func TestLowerGotoLabel(t *testing.T) {
	mod, ds := lowerSource(t, "func main() { loop: goto loop; }")
	require.Empty(t, ds)

	proc := findProc(t, mod, "main")
	var selfJump bool
	for _, b := range proc.Blocks {
		if term := b.Terminator(); term != nil && term.Op == OpJump && term.Then == b {
			selfJump = true
		}
	}
	assert.True(t, selfJump, "goto to the enclosing label forms a self loop")
}

func TestLowerRelationalChainEvaluatesMiddleOnce(t *testing.T) {
	mod, ds := lowerSource(t, "func f(a: int32, b: int32, c: int32): bool = a < b > c;")
	require.Empty(t, ds)

	// b feeds both comparisons but is loaded exactly once.
	proc := findProc(t, mod, "f")
	loadsOfB := 0
	for _, blk := range proc.Blocks {
		for _, i := range blk.Instrs {
			if i.Op == OpLoad {
				if p, ok := i.Operands[0].(*Param); ok && p.Sym.Name() == "b" {
					loadsOfB++
				}
			}
		}
	}
	assert.Equal(t, 1, loadsOfB)
}

func TestLowerUnreachableCodeDiagnostic(t *testing.T) {
	_, ds := lowerSource(t, "func main() { return; 1 + 2; }")
	var found bool
	for _, d := range ds {
		if d.Code() == "DR0301" {
			found = true
			assert.Equal(t, diag.Warning, d.Severity())
		}
	}
	assert.True(t, found, "expected an unreachable code warning")
}

func TestLowerNotAllPathsReturn(t *testing.T) {
	_, ds := lowerSource(t, "func f(c: bool): int32 { if (c) { return 1; }; }")
	var found bool
	for _, d := range ds {
		if d.Code() == "DR0302" {
			found = true
		}
	}
	assert.True(t, found)

	_, ds = lowerSource(t, "func g(): int32 { return 1; }")
	for _, d := range ds {
		assert.NotEqual(t, "DR0302", d.Code())
	}
}

func TestLowerCompoundAssignmentSingleEvaluation(t *testing.T) {
	src := `
func pick(xs: Array<int32>, i: int32) {
	xs[i] += 1;
}`
	mod, ds := lowerSource(t, src)
	require.Empty(t, ds)

	// The receiver and index load once; the element loads and stores.
	proc := findProc(t, mod, "pick")
	ops := opcodes(proc)
	assert.Equal(t, 1, countOps(ops, OpLoadElement))
	assert.Equal(t, 1, countOps(ops, OpStoreElement))
	loadsOfXs := 0
	for _, blk := range proc.Blocks {
		for _, i := range blk.Instrs {
			if i.Op == OpLoad {
				if p, ok := i.Operands[0].(*Param); ok && p.Sym.Name() == "xs" {
					loadsOfXs++
				}
			}
		}
	}
	assert.Equal(t, 1, loadsOfXs)
}

func countOps(ops []Opcode, op Opcode) int {
	n := 0
	for _, o := range ops {
		if o == op {
			n++
		}
	}
	return n
}

func TestLowerStringInterpolationSynthesizesOnce(t *testing.T) {
	src := `func f(a: string, b: string): string = "x\{a}y\{b}z";`
	mod, ds := lowerSource(t, src)
	require.Empty(t, ds)

	// Both holes are strings, so exactly one toString procedure is
	// synthesized; concatenation synthesizes once too.
	toStrings := 0
	concats := 0
	for _, p := range mod.Procedures {
		switch p.Name {
		case "toString":
			toStrings++
		case "concat":
			concats++
		}
	}
	assert.Equal(t, 1, toStrings)
	assert.Equal(t, 1, concats)
}

func TestLowerGlobalInitializer(t *testing.T) {
	mod, ds := lowerSource(t, "var answer: int32 = 42;")
	require.Empty(t, ds)
	require.Len(t, mod.Globals, 1)

	init := findProc(t, mod, "<init>")
	assert.NotEqual(t, -1, indexOf(opcodes(init), OpStore))
}

func TestLowerScopesBracketBlocks(t *testing.T) {
	mod, ds := lowerSource(t, "func main() { var x: int32 = 1; }")
	require.Empty(t, ds)
	ops := opcodes(findProc(t, mod, "main"))
	start := indexOf(ops, OpStartScope)
	end := indexOf(ops, OpEndScope)
	require.NotEqual(t, -1, start)
	require.NotEqual(t, -1, end)
	assert.Less(t, start, end)
}

func TestLowerSequencePointsPerStatement(t *testing.T) {
	mod, ds := lowerSource(t, "func main() { var x: int32 = 1; x = 2; }")
	require.Empty(t, ds)
	ops := opcodes(findProc(t, mod, "main"))
	assert.Equal(t, 2, countOps(ops, OpSequencePoint))
}

func TestInstructionClone(t *testing.T) {
	sctx := symbols.NewContext()
	r := &Register{ID: 0, Type: sctx.Int32}
	orig := &Instruction{
		Op:       OpAdd,
		Target:   r,
		Operands: []Operand{&Const{Value: int64(1), Type: sctx.Int32}, r},
	}
	clone := orig.Clone()
	clone.Operands[0] = &Const{Value: int64(9), Type: sctx.Int32}

	assert.Equal(t, int64(1), orig.Operands[0].(*Const).Value)
	assert.Equal(t, orig.Op, clone.Op)
	assert.Same(t, orig.Target, clone.Target)
}

func TestPrintFormat(t *testing.T) {
	mod, ds := lowerSource(t, "func f(a: int32, b: int32): int32 = a + b;")
	require.Empty(t, ds)

	out := Print(mod)
	assert.Contains(t, out, "proc f(param0, param1):")
	assert.Contains(t, out, "bb0:")
	assert.Contains(t, out, ":= add")
	assert.Contains(t, out, "ret ")
}

func TestLowerSkipsBodylessProcedures(t *testing.T) {
	// A call with unresolved overloads poisons the expression, but the
	// pipeline still produces a module.
	tree := syntax.Parse(`func main() { return 1 + "x"; }`)
	bag := diag.NewBag()
	sctx := symbols.NewContext()
	bound := binder.Bind(context.Background(), sctx, tree, nil, bag)
	mod := Lower(context.Background(), sctx, bound, bag)
	require.NotNil(t, mod)
	for _, p := range mod.Procedures {
		checkBlockInvariants(t, p)
	}
}
