package syntax

import (
	"strings"
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diagCodes collects the codes of all diagnostics in a tree.
func diagCodes(tree *Tree) []string {
	var out []string
	for _, d := range tree.Diagnostics() {
		out = append(out, d.Code())
	}
	return out
}

// firstFuncBodyStmts navigates to the statements of the first declared
// function's block body.
func firstFuncBodyStmts(t *testing.T, tree *Tree) []*Node {
	t.Helper()
	unit := CompilationUnit{Node: tree.Root()}
	require.NotEmpty(t, unit.Decls())
	decl := FuncDecl{Node: unit.Decls()[0]}
	body := decl.Body()
	require.NotNil(t, body)
	require.Equal(t, KindBlockFuncBody, body.Kind())
	return BlockFuncBody{Node: body}.Stmts()
}

func TestParseSimpleFunction(t *testing.T) {
	tree := Parse("func main() { var x: int32 = 1 + 2 * 3; }")
	require.Empty(t, diagCodes(tree))

	stmts := firstFuncBodyStmts(t, tree)
	require.Len(t, stmts, 1)
	require.Equal(t, KindDeclStmt, stmts[0].Kind())

	v := VariableDecl{Node: DeclStmt{Node: stmts[0]}.Decl()}
	assert.Equal(t, "x", v.Name().Text())
	assert.True(t, v.IsMutable())
	require.NotNil(t, v.Type())
	assert.Equal(t, "int32", NameType{Node: v.Type()}.Name().Text())

	// 1 + 2 * 3 groups as 1 + (2 * 3).
	value := v.Value()
	require.Equal(t, KindBinaryExpr, value.Kind())
	add := BinaryExpr{Node: value}
	assert.Equal(t, Plus, add.Op().Kind())
	assert.Equal(t, KindBinaryExpr, add.Right().Kind())
	assert.Equal(t, Star, BinaryExpr{Node: add.Right()}.Op().Kind())
}

func TestParseGenericCall(t *testing.T) {
	// The token after > is ( so < disambiguates to generics.
	tree := Parse("func f<T>(x: T): T = x; func main() { f<int32>(5); }")
	require.Empty(t, diagCodes(tree))

	unit := CompilationUnit{Node: tree.Root()}
	require.Len(t, unit.Decls(), 2)

	body := FuncDecl{Node: unit.Decls()[1]}.Body()
	stmts := BlockFuncBody{Node: body}.Stmts()
	require.Len(t, stmts, 1)

	expr := ExprStmt{Node: stmts[0]}.Expr()
	require.Equal(t, KindCallExpr, expr.Kind())
	callee := CallExpr{Node: expr}.Callee()
	require.Equal(t, KindGenericExpr, callee.Kind())
	args := GenericExpr{Node: callee}.TypeArgs()
	require.Len(t, args, 1)
	assert.Equal(t, "int32", NameType{Node: args[0]}.Name().Text())
}

func TestParseChainedRelational(t *testing.T) {
	// No generic interpretation: 1 is not a name, and 3 starts an
	// expression after >.
	tree := Parse("func main() { 1 < 2 > 3; }")
	require.Empty(t, diagCodes(tree))

	stmts := firstFuncBodyStmts(t, tree)
	expr := ExprStmt{Node: stmts[0]}.Expr()
	require.Equal(t, KindRelationalExpr, expr.Kind())

	rel := RelationalExpr{Node: expr}
	cmps := rel.Comparisons()
	require.Len(t, cmps, 2)
	assert.Equal(t, Less, cmps[0].Op().Kind())
	assert.Equal(t, Greater, cmps[1].Op().Kind())
}

func TestAngleDisambiguation(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		kind NodeKind // kind of the statement expression
	}{
		{"call_after_close", "f<int32>(5);", KindCallExpr},
		{"expr_starter_after_close", "a < b > c;", KindRelationalExpr},
		{"minus_after_close", "a<b>-c;", KindRelationalExpr},
		{"terminator_after_close", "a<b>;", KindGenericExpr},
		{"nested_generics", "f<Array<int32>>(xs);", KindCallExpr},
		{"non_name_left", "1 < b;", KindRelationalExpr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Parse("func main() { " + tt.stmt + " }")
			stmts := firstFuncBodyStmts(t, tree)
			require.NotEmpty(t, stmts)
			expr := ExprStmt{Node: stmts[0]}.Expr()
			require.NotNil(t, expr)
			assert.Equal(t, tt.kind, expr.Kind())
		})
	}
}

func TestParseRecoveryMissingName(t *testing.T) {
	// The missing identifier materializes as a zero-width token and the
	// block still closes.
	tree := Parse("func main() { var = 1; }")
	codes := diagCodes(tree)
	require.Contains(t, codes, "DR0002")

	stmts := firstFuncBodyStmts(t, tree)
	require.Len(t, stmts, 1)
	v := VariableDecl{Node: DeclStmt{Node: stmts[0]}.Decl()}
	assert.True(t, v.Name().IsMissing())
	require.NotNil(t, v.Value())
	assert.Equal(t, KindLiteralExpr, v.Value().Kind())
}

func TestParseModuleInLocalContext(t *testing.T) {
	tree := Parse("func main() { module M { } }")
	assert.Contains(t, diagCodes(tree), "DR0003")
}

func TestParseLabelAtTopLevel(t *testing.T) {
	tree := Parse("here: func main() { }")
	assert.Contains(t, diagCodes(tree), "DR0003")
}

func TestParseLabelAndGoto(t *testing.T) {
	tree := Parse("func main() { loop: goto loop; }")
	require.Empty(t, diagCodes(tree))

	stmts := firstFuncBodyStmts(t, tree)
	require.Len(t, stmts, 2)
	assert.Equal(t, KindLabelDecl, DeclStmt{Node: stmts[0]}.Decl().Kind())
	expr := ExprStmt{Node: stmts[1]}.Expr()
	require.Equal(t, KindGotoExpr, expr.Kind())
	target := NameLabel{Node: GotoExpr{Node: expr}.Target()}
	assert.Equal(t, "loop", target.Name().Text())
}

func TestParseIfWhileExpressions(t *testing.T) {
	tree := Parse(strings.TrimPrefix(dedent.Dedent(`
		func main() {
			var i: int32 = 0;
			while (i < 10) {
				i = if (true) i + 1 else i;
			}
		}`), "\n"))
	require.Empty(t, diagCodes(tree))

	// The while directly precedes the closing brace, so it is the block's
	// value rather than a second statement.
	stmts := firstFuncBodyStmts(t, tree)
	require.Len(t, stmts, 1)
	unit := CompilationUnit{Node: tree.Root()}
	block := BlockFuncBody{Node: FuncDecl{Node: unit.Decls()[0]}.Body()}.Block()
	expr := BlockExpr{Node: block}.Value()
	require.NotNil(t, expr)
	require.Equal(t, KindWhileExpr, expr.Kind())
	body := WhileExpr{Node: expr}.Body()
	require.Equal(t, KindBlockExpr, body.Kind())
}

func TestParseBlockValue(t *testing.T) {
	tree := Parse("func f(): int32 { var x: int32 = 1; x + 1 }")
	require.Empty(t, diagCodes(tree))

	unit := CompilationUnit{Node: tree.Root()}
	body := FuncDecl{Node: unit.Decls()[0]}.Body()
	stmts := BlockFuncBody{Node: body}.Stmts()
	require.Len(t, stmts, 1) // the trailing expression is not a statement
}

func TestParseInlineFuncBody(t *testing.T) {
	tree := Parse("func double(x: int32): int32 = x * 2;")
	require.Empty(t, diagCodes(tree))

	unit := CompilationUnit{Node: tree.Root()}
	body := FuncDecl{Node: unit.Decls()[0]}.Body()
	require.Equal(t, KindInlineFuncBody, body.Kind())
	assert.Equal(t, KindBinaryExpr, InlineFuncBody{Node: body}.Value().Kind())
}

func TestParseVariadicParam(t *testing.T) {
	tree := Parse("func sum(...xs: Array<int32>): int32 { return 0; }")
	require.Empty(t, diagCodes(tree))

	unit := CompilationUnit{Node: tree.Root()}
	params := FuncDecl{Node: unit.Decls()[0]}.Params()
	require.Len(t, params, 1)
	assert.True(t, Param{Node: params[0]}.IsVariadic())
}

// ----------------------------------------------------------------------------
// Multi-line strings

func TestMultiLineStringWellFormed(t *testing.T) {
	src := "val s = \"\"\"\n  foo\n     bar\n  \"\"\";"
	tree := Parse(src)
	// A longer prefix is fine since it starts with the required one.
	assert.Empty(t, diagCodes(tree))
}

func TestMultiLineStringInsufficientIndentation(t *testing.T) {
	src := "val s = \"\"\"\n foo\n  \"\"\";"
	tree := Parse(src)
	assert.Contains(t, diagCodes(tree), "DR0006")
}

func TestMultiLineStringEmptyLineExempt(t *testing.T) {
	src := "val s = \"\"\"\n  foo\n\n  bar\n  \"\"\";"
	tree := Parse(src)
	assert.Empty(t, diagCodes(tree))
}

func TestMultiLineStringCloseNotOnNewLine(t *testing.T) {
	src := "val s = \"\"\"\n  foo\"\"\";"
	tree := Parse(src)
	assert.Contains(t, diagCodes(tree), "DR0007")
}

func TestMultiLineStringExtraTokensAfterOpen(t *testing.T) {
	src := "val s = \"\"\"foo\n\"\"\";"
	tree := Parse(src)
	assert.Contains(t, diagCodes(tree), "DR0008")
}

func TestMultiLineStringInterpolationIgnoredByIndent(t *testing.T) {
	src := "val s = \"\"\"\n  a\n\\{1}\n  \"\"\";"
	tree := Parse(src)
	// The interpolation line is exempt from the indentation check.
	assert.Empty(t, diagCodes(tree))
}
