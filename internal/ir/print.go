package ir

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes the printable form of a module to w:
//
//	proc main(param0):
//	bb0:
//	  r0 := mul 2, 3
//	  r1 := add 1, r0
//	  ret r1
func Fprint(w io.Writer, m *Module) {
	for i, p := range m.Procedures {
		if i > 0 {
			fmt.Fprintln(w)
		}
		FprintProcedure(w, p)
	}
}

// FprintProcedure writes one procedure.
func FprintProcedure(w io.Writer, p *Procedure) {
	params := make([]string, len(p.Params))
	for i, param := range p.Params {
		params[i] = param.String()
	}
	fmt.Fprintf(w, "proc %s(%s):\n", p.Name, strings.Join(params, ", "))
	for _, b := range p.Blocks {
		fmt.Fprintf(w, "%s:\n", b)
		for _, instr := range b.Instrs {
			fmt.Fprintf(w, "  %s\n", instr)
		}
	}
}

// Print returns the printable form of a module as a string.
func Print(m *Module) string {
	var sb strings.Builder
	Fprint(&sb, m)
	return sb.String()
}
