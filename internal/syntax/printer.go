package syntax

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Fdump writes an indented structural dump of the tree to w, one element
// per line. Tokens show their kind and text; missing tokens are marked.
func Fdump(w io.Writer, t *Tree) {
	fdumpGreen(w, t.Root().Green(), 0)
}

// Dump returns the structural dump of the tree as a string.
func Dump(t *Tree) string {
	var sb strings.Builder
	Fdump(&sb, t)
	return sb.String()
}

func fdumpGreen(w io.Writer, g Green, depth int) {
	indent := strings.Repeat("  ", depth)
	switch g := g.(type) {
	case *GreenToken:
		if g.IsMissing() {
			fmt.Fprintf(w, "%s%s (missing)\n", indent, g.Kind())
			return
		}
		fmt.Fprintf(w, "%s%s %q\n", indent, g.Kind(), g.Text())
	case *GreenNode:
		fmt.Fprintf(w, "%s%s\n", indent, g.Kind())
		for i := 0; i < g.NumChildren(); i++ {
			if c := g.Child(i); c != nil {
				fdumpGreen(w, c, depth+1)
			}
		}
	}
}

// jsonToken is the serialized form of a token.
type jsonToken struct {
	Token string `json:"token"`
	Text  string `json:"text,omitempty"`
}

// jsonNode is the serialized form of a node.
type jsonNode struct {
	Kind     string        `json:"kind"`
	Width    int           `json:"width"`
	Children []interface{} `json:"children,omitempty"`
}

// MarshalJSON serializes the tree for tooling consumption.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(greenToJSON(t.Root().Green()))
}

func greenToJSON(g Green) interface{} {
	switch g := g.(type) {
	case *GreenToken:
		return jsonToken{Token: g.Kind().String(), Text: g.Text()}
	case *GreenNode:
		n := jsonNode{Kind: g.Kind().String(), Width: g.FullWidth()}
		for i := 0; i < g.NumChildren(); i++ {
			if c := g.Child(i); c != nil {
				n.Children = append(n.Children, greenToJSON(c))
			}
		}
		return n
	}
	return nil
}
