package syntax

import (
	"sync/atomic"

	"github.com/lucyelle/DracoCompiler/internal/diag"
)

// Tree is a parsed syntax tree: a green backbone plus its lazily
// materialized red façade.
type Tree struct {
	root *Node
}

// NewTree wraps a green root into a red tree.
func NewTree(green *GreenNode) *Tree {
	t := &Tree{}
	t.root = newNode(t, green, nil, 0)
	return t
}

// Root returns the root red node.
func (t *Tree) Root() *Node { return t.root }

// Text reconstructs the source text byte-for-byte from the green tree.
func (t *Tree) Text() string { return Text(t.root.green) }

// Diagnostics returns all diagnostics attached anywhere in the tree, with
// spans realized to absolute positions.
func (t *Tree) Diagnostics() []*diag.Diagnostic {
	var out []*diag.Diagnostic
	collectDiagnostics(t.root.green, 0, &out)
	return out
}

// collectDiagnostics walks a green element realizing relative diagnostic
// spans against the element's absolute full position.
func collectDiagnostics(g Green, fullPos int, out *[]*diag.Diagnostic) {
	for _, d := range g.Diagnostics() {
		*out = append(*out, d.WithOffset(fullPos))
	}
	if n, ok := g.(*GreenNode); ok {
		off := fullPos
		for i := 0; i < n.NumChildren(); i++ {
			if c := n.Child(i); c != nil {
				collectDiagnostics(c, off, out)
				off += c.FullWidth()
			}
		}
	}
}

// ----------------------------------------------------------------------------
// Red nodes

// Node is a red node: a green node plus its tree, parent, and absolute
// position. Node children are materialized lazily, at most once; concurrent
// requests for the same child observe the identical *Node.
type Node struct {
	tree    *Tree
	green   *GreenNode
	parent  *Node
	fullPos int
	slots   []atomic.Pointer[Node]
}

func newNode(tree *Tree, green *GreenNode, parent *Node, fullPos int) *Node {
	return &Node{
		tree:    tree,
		green:   green,
		parent:  parent,
		fullPos: fullPos,
		slots:   make([]atomic.Pointer[Node], green.NumChildren()),
	}
}

// Kind returns the node kind.
func (n *Node) Kind() NodeKind { return n.green.Kind() }

// Green returns the underlying green node.
func (n *Node) Green() *GreenNode { return n.green }

// Tree returns the containing tree.
func (n *Node) Tree() *Tree { return n.tree }

// Parent returns the parent red node, or nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// FullPosition returns the absolute position of the node including its
// leading trivia.
func (n *Node) FullPosition() int { return n.fullPos }

// FullWidth returns the node's total width including trivia.
func (n *Node) FullWidth() int { return n.green.FullWidth() }

// FullSpan returns the node's span including trivia.
func (n *Node) FullSpan() diag.Span {
	return diag.Span{Start: n.fullPos, End: n.fullPos + n.green.FullWidth()}
}

// Span returns the node's span with the first token's leading trivia and
// the last token's trailing trivia trimmed off.
func (n *Node) Span() diag.Span {
	full := n.FullSpan()
	if first := firstToken(n.green); first != nil {
		full.Start += first.LeadingWidth()
	}
	if last := lastToken(n.green); last != nil {
		full.End -= triviaWidth(last.TrailingTrivia())
	}
	if full.End < full.Start {
		full.End = full.Start
	}
	return full
}

// NumChildren returns the number of child slots.
func (n *Node) NumChildren() int { return n.green.NumChildren() }

// ChildNode returns the i-th child as a red node, or nil when the slot is
// absent or holds a token. The red child is created at most once.
func (n *Node) ChildNode(i int) *Node {
	g, ok := n.green.Child(i).(*GreenNode)
	if !ok {
		return nil
	}
	if c := n.slots[i].Load(); c != nil {
		return c
	}
	fresh := newNode(n.tree, g, n, n.fullPos+n.green.childOffset(i))
	if n.slots[i].CompareAndSwap(nil, fresh) {
		return fresh
	}
	// A concurrent materializer won; drop our allocation.
	return n.slots[i].Load()
}

// ChildToken returns the i-th child as a token. The second result is false
// when the slot is absent or holds a node.
func (n *Node) ChildToken(i int) (Token, bool) {
	g, ok := n.green.Child(i).(*GreenToken)
	if !ok {
		return Token{}, false
	}
	return Token{green: g, fullPos: n.fullPos + n.green.childOffset(i)}, true
}

// Preorder visits n and every descendant node in source order.
func (n *Node) Preorder(visit func(*Node)) {
	visit(n)
	for i := 0; i < n.NumChildren(); i++ {
		if c := n.ChildNode(i); c != nil {
			c.Preorder(visit)
		}
	}
}

// Tokens returns all tokens under n in source order.
func (n *Node) Tokens() []Token {
	var out []Token
	var walk func(m *Node)
	walk = func(m *Node) {
		for i := 0; i < m.NumChildren(); i++ {
			if tok, ok := m.ChildToken(i); ok {
				out = append(out, tok)
			} else if c := m.ChildNode(i); c != nil {
				walk(c)
			}
		}
	}
	walk(n)
	return out
}

// firstToken returns the first token in a green subtree, or nil.
func firstToken(g Green) *GreenToken {
	switch g := g.(type) {
	case *GreenToken:
		return g
	case *GreenNode:
		for i := 0; i < g.NumChildren(); i++ {
			if c := g.Child(i); c != nil {
				if t := firstToken(c); t != nil {
					return t
				}
			}
		}
	}
	return nil
}

// lastToken returns the last token in a green subtree, or nil.
func lastToken(g Green) *GreenToken {
	switch g := g.(type) {
	case *GreenToken:
		return g
	case *GreenNode:
		for i := g.NumChildren() - 1; i >= 0; i-- {
			if c := g.Child(i); c != nil {
				if t := lastToken(c); t != nil {
					return t
				}
			}
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Red tokens

// Token is a red token: a green token realized at an absolute position.
// Tokens are cheap values and are not cached.
type Token struct {
	green   *GreenToken
	fullPos int
}

// Exists reports whether the token is present (optional slots yield the
// zero Token when absent).
func (t Token) Exists() bool { return t.green != nil }

// Kind returns the token kind.
func (t Token) Kind() TokenKind { return t.green.Kind() }

// Text returns the token text without trivia.
func (t Token) Text() string { return t.green.Text() }

// Value returns the decoded literal value, or nil.
func (t Token) Value() interface{} { return t.green.Value() }

// Green returns the underlying green token.
func (t Token) Green() *GreenToken { return t.green }

// FullPosition returns the absolute position including leading trivia.
func (t Token) FullPosition() int { return t.fullPos }

// Position returns the absolute position of the token text.
func (t Token) Position() int { return t.fullPos + t.green.LeadingWidth() }

// Span returns the absolute span of the token text.
func (t Token) Span() diag.Span {
	start := t.Position()
	return diag.Span{Start: start, End: start + t.green.Width()}
}

// FullSpan returns the absolute span including trivia.
func (t Token) FullSpan() diag.Span {
	return diag.Span{Start: t.fullPos, End: t.fullPos + t.green.FullWidth()}
}

// IsMissing reports whether the token was synthesized by error recovery.
func (t Token) IsMissing() bool { return t.green.IsMissing() }
