package syntax

import (
	"strings"

	"github.com/lucyelle/DracoCompiler/internal/diag"
)

// Green is the immutable, position-free backbone of the syntax tree.
// A green element is either a *GreenToken or a *GreenNode. Green elements
// carry no parent pointers and no absolute positions, so identical
// sub-trees can be shared across re-parses.
type Green interface {
	// FullWidth returns the total source width including trivia.
	FullWidth() int

	// Diagnostics returns diagnostics attached to this element. Spans are
	// relative to the element's full start.
	Diagnostics() []*diag.Diagnostic

	// writeTo reconstructs the covered source text.
	writeTo(sb *strings.Builder)

	aGreen() // marker method to restrict implementations to this package
}

// ----------------------------------------------------------------------------
// Tokens

// GreenToken is the atomic unit of the green tree: a token kind, its exact
// text, an optional decoded value, and leading/trailing trivia.
type GreenToken struct {
	kind      TokenKind
	text      string
	value     interface{} // decoded value: int64, float64, rune, or string
	leading   []Trivia
	trailing  []Trivia
	fullWidth int
	diags     []*diag.Diagnostic
}

// NewGreenToken creates a green token. The full width is the sum of the
// trivia widths and the token text width.
func NewGreenToken(kind TokenKind, text string, value interface{}, leading, trailing []Trivia) *GreenToken {
	return &GreenToken{
		kind:      kind,
		text:      text,
		value:     value,
		leading:   leading,
		trailing:  trailing,
		fullWidth: triviaWidth(leading) + len(text) + triviaWidth(trailing),
	}
}

// NewMissingToken creates a zero-width token of the given kind, used by the
// parser to materialize expected-but-absent tokens.
func NewMissingToken(kind TokenKind) *GreenToken {
	return &GreenToken{kind: kind}
}

// Kind returns the token kind.
func (t *GreenToken) Kind() TokenKind { return t.kind }

// Text returns the token text without trivia.
func (t *GreenToken) Text() string { return t.text }

// Value returns the decoded literal value, or nil.
func (t *GreenToken) Value() interface{} { return t.value }

// LeadingTrivia returns the leading trivia list.
func (t *GreenToken) LeadingTrivia() []Trivia { return t.leading }

// TrailingTrivia returns the trailing trivia list.
func (t *GreenToken) TrailingTrivia() []Trivia { return t.trailing }

// Width returns the width of the token text alone.
func (t *GreenToken) Width() int { return len(t.text) }

// LeadingWidth returns the width of the leading trivia.
func (t *GreenToken) LeadingWidth() int { return triviaWidth(t.leading) }

// FullWidth returns the total width including trivia.
func (t *GreenToken) FullWidth() int { return t.fullWidth }

// Diagnostics returns the attached diagnostics (spans relative to the
// token's full start).
func (t *GreenToken) Diagnostics() []*diag.Diagnostic { return t.diags }

// IsMissing reports whether this token was synthesized by error recovery.
func (t *GreenToken) IsMissing() bool { return t.text == "" && t.kind != EndOfInput }

// WithDiagnostics returns a copy of the token with diagnostics attached.
func (t *GreenToken) WithDiagnostics(ds ...*diag.Diagnostic) *GreenToken {
	c := *t
	c.diags = append(append([]*diag.Diagnostic{}, t.diags...), ds...)
	return &c
}

func (t *GreenToken) writeTo(sb *strings.Builder) {
	for _, tr := range t.leading {
		sb.WriteString(tr.Text)
	}
	sb.WriteString(t.text)
	for _, tr := range t.trailing {
		sb.WriteString(tr.Text)
	}
}

func (*GreenToken) aGreen() {}

// ----------------------------------------------------------------------------
// Nodes

// GreenNode is an interior green element: a kind plus ordered children.
// A nil child marks an absent optional slot and contributes zero width.
type GreenNode struct {
	kind      NodeKind
	children  []Green
	fullWidth int
	diags     []*diag.Diagnostic
}

// NewGreenNode creates a green node over the given children.
func NewGreenNode(kind NodeKind, children ...Green) *GreenNode {
	w := 0
	for _, c := range children {
		if c != nil {
			w += c.FullWidth()
		}
	}
	return &GreenNode{kind: kind, children: children, fullWidth: w}
}

// Kind returns the node kind.
func (n *GreenNode) Kind() NodeKind { return n.kind }

// NumChildren returns the number of child slots (including absent ones).
func (n *GreenNode) NumChildren() int { return len(n.children) }

// Child returns the i-th child, or nil for an absent slot.
func (n *GreenNode) Child(i int) Green { return n.children[i] }

// FullWidth returns the total width including trivia.
func (n *GreenNode) FullWidth() int { return n.fullWidth }

// Diagnostics returns the attached diagnostics (spans relative to the
// node's full start).
func (n *GreenNode) Diagnostics() []*diag.Diagnostic { return n.diags }

// WithDiagnostics returns a copy of the node with diagnostics attached.
func (n *GreenNode) WithDiagnostics(ds ...*diag.Diagnostic) *GreenNode {
	c := *n
	c.diags = append(append([]*diag.Diagnostic{}, n.diags...), ds...)
	return &c
}

// childOffset returns the width of all children preceding slot i.
func (n *GreenNode) childOffset(i int) int {
	w := 0
	for j := 0; j < i; j++ {
		if c := n.children[j]; c != nil {
			w += c.FullWidth()
		}
	}
	return w
}

func (n *GreenNode) writeTo(sb *strings.Builder) {
	for _, c := range n.children {
		if c != nil {
			c.writeTo(sb)
		}
	}
}

func (*GreenNode) aGreen() {}

// Text reconstructs the exact source text covered by the green element.
func Text(g Green) string {
	var sb strings.Builder
	g.writeTo(&sb)
	return sb.String()
}
