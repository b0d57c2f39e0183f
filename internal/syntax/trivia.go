package syntax

import "fmt"

// TriviaKind represents the type of a trivium.
type TriviaKind uint8

const (
	TriviaWhitespace TriviaKind = iota
	TriviaNewline
	TriviaLineComment          // // ...
	TriviaDocumentationComment // /// ...
	TriviaSkipped              // input skipped during recovery
)

// triviaKindNames maps trivia kinds to their string representation.
var triviaKindNames = [...]string{
	TriviaWhitespace:           "whitespace",
	TriviaNewline:              "newline",
	TriviaLineComment:          "line comment",
	TriviaDocumentationComment: "doc comment",
	TriviaSkipped:              "skipped",
}

// String returns the string representation of the trivia kind.
func (k TriviaKind) String() string {
	if int(k) < len(triviaKindNames) {
		return triviaKindNames[k]
	}
	return fmt.Sprintf("TriviaKind(%d)", uint8(k))
}

// Trivia is whitespace, a comment, or skipped input attached to a
// neighboring token. Trivia carry the exact source text so the tree
// round-trips byte-for-byte.
type Trivia struct {
	Kind TriviaKind
	Text string
}

// Width returns the number of source bytes the trivium covers.
func (t Trivia) Width() int { return len(t.Text) }

// triviaWidth sums the widths of a trivia list.
func triviaWidth(ts []Trivia) int {
	w := 0
	for _, t := range ts {
		w += len(t.Text)
	}
	return w
}
