package syntax

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTripSources exercises the byte-for-byte reconstruction property,
// including malformed inputs that go through error recovery.
var roundTripSources = []string{
	"",
	"func main() {}",
	"func main() { var x: int32 = 1 + 2 * 3; }",
	"func f<T>(x: T): T = x; func main() { f<int32>(5); }",
	"func main() { 1 < 2 > 3; }",
	"import System.Console;\n\nfunc main() { Console.WriteLine(\"hi\"); }",
	"public func visible() {}\ninternal module M { var g: int32 = 0; }",
	"func main() { loop: goto loop; }",
	"func main() { var s = \"a\\{1 + 2}b\"; }",
	"val s = \"\"\"\n  foo\n     bar\n  \"\"\";",
	"val s = \"\"\"\n foo\n  \"\"\";",
	"func main() { var = 1; }",
	"func main() { while (true) {} }",
	"a @ b # $",
	"func broken( { ]]",
	"\"unterminated\nfunc main() {}",
	"// just a comment\n/// and a doc comment\n",
}

func TestTreeTextRoundTrip(t *testing.T) {
	for _, src := range roundTripSources {
		tree := Parse(src)
		if diff := cmp.Diff(src, tree.Text()); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestRedPositionsConsistent(t *testing.T) {
	for _, src := range roundTripSources {
		tree := Parse(src)
		var check func(n *Node)
		check = func(n *Node) {
			offset := n.FullPosition()
			for i := 0; i < n.NumChildren(); i++ {
				if tok, ok := n.ChildToken(i); ok {
					assert.Equal(t, offset, tok.FullPosition(), "src %q", src)
					offset += tok.Green().FullWidth()
					continue
				}
				if c := n.ChildNode(i); c != nil {
					assert.Equal(t, offset, c.FullPosition(), "src %q", src)
					assert.Equal(t, n, c.Parent())
					check(c)
					offset += c.FullWidth()
				}
			}
			assert.Equal(t, n.FullPosition()+n.FullWidth(), offset, "src %q", src)
		}
		check(tree.Root())
	}
}

func TestTokenSpansMatchSource(t *testing.T) {
	src := "func main() { var x: int32 = 7; }"
	tree := Parse(src)
	for _, tok := range tree.Root().Tokens() {
		span := tok.Span()
		require.LessOrEqual(t, span.End, len(src))
		assert.Equal(t, tok.Text(), src[span.Start:span.End])
	}
}

func TestWalkToRootTerminates(t *testing.T) {
	tree := Parse("func main() { if (true) { 1; } else { 2; } }")
	tree.Root().Preorder(func(n *Node) {
		steps := 0
		for p := n; p != nil; p = p.Parent() {
			steps++
			require.Less(t, steps, 64, "parent chain must terminate")
		}
	})
}

func TestChildMaterializedAtMostOnce(t *testing.T) {
	tree := Parse("func main() { var x: int32 = 1; }")
	root := tree.Root()

	const workers = 32
	results := make([]*Node, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = root.ChildNode(0)
		}(i)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	for _, r := range results {
		assert.Same(t, results[0], r, "all readers must observe one child instance")
	}
}

func TestGreenSharingAcrossRedNodes(t *testing.T) {
	tree := Parse("func main() { 1; }")
	a := tree.Root().ChildNode(0)
	b := tree.Root().ChildNode(0)
	require.Same(t, a, b)
	assert.Same(t, a.Green(), b.Green())
}

func TestMissingTokenIsZeroWidth(t *testing.T) {
	tree := Parse("func main() { var = 1; }")
	var missing []Token
	tree.Root().Preorder(func(n *Node) {
		for i := 0; i < n.NumChildren(); i++ {
			if tok, ok := n.ChildToken(i); ok && tok.IsMissing() {
				missing = append(missing, tok)
			}
		}
	})
	require.NotEmpty(t, missing)
	for _, tok := range missing {
		assert.Equal(t, 0, tok.Span().Len())
	}
}

func TestTreeDiagnosticSpansAreAbsolute(t *testing.T) {
	src := "func main() { var = 1; }"
	tree := Parse(src)
	ds := tree.Diagnostics()
	require.NotEmpty(t, ds)
	for _, d := range ds {
		assert.GreaterOrEqual(t, d.Span.Start, 0)
		assert.LessOrEqual(t, d.Span.End, len(src))
	}
}

func TestDumpShowsKinds(t *testing.T) {
	tree := Parse("func main() {}")
	dump := Dump(tree)
	assert.Contains(t, dump, "CompilationUnit")
	assert.Contains(t, dump, "FuncDecl")
}
