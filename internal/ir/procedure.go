package ir

import "github.com/lucyelle/DracoCompiler/internal/symbols"

// Module owns procedures and globals.
type Module struct {
	Name       string
	Procedures []*Procedure
	Globals    []*Global

	// synthesized caches lazily compiled procedures keyed by symbol
	// identity, ensuring at-most-once synthesis.
	synthesized map[*symbols.FuncSymbol]*Procedure
}

// NewModule creates an empty IR module.
func NewModule(name string) *Module {
	return &Module{
		Name:        name,
		synthesized: make(map[*symbols.FuncSymbol]*Procedure),
	}
}

// NewGlobal registers a global slot.
func (m *Module) NewGlobal(sym *symbols.GlobalSymbol) *Global {
	g := &Global{ID: len(m.Globals), Sym: sym}
	m.Globals = append(m.Globals, g)
	return g
}

// NewProcedure creates a procedure and adds it to the module. The entry
// block is created immediately.
func (m *Module) NewProcedure(name string, sym *symbols.FuncSymbol) *Procedure {
	p := &Procedure{Name: name, Sym: sym, Module: m}
	p.Entry = p.NewBlock()
	m.Procedures = append(m.Procedures, p)
	return p
}

// Synthesized returns the cached procedure for a compiler-generated
// function, creating it via build on first reference.
func (m *Module) Synthesized(sym *symbols.FuncSymbol, build func() *Procedure) *Procedure {
	if p, ok := m.synthesized[sym]; ok {
		return p
	}
	p := build()
	m.synthesized[sym] = p
	return p
}

// Procedure is a function lowered to a CFG of basic blocks. Blocks[0] is
// the designated entry block.
type Procedure struct {
	Name   string
	Sym    *symbols.FuncSymbol
	Module *Module

	Blocks []*BasicBlock
	Entry  *BasicBlock

	Params    []*Param
	Locals    []*Local
	Registers []*Register
}

// NewBlock creates a basic block and appends it to the procedure.
func (p *Procedure) NewBlock() *BasicBlock {
	b := &BasicBlock{ID: len(p.Blocks), Proc: p}
	p.Blocks = append(p.Blocks, b)
	return b
}

// NewRegister allocates a fresh register of the given type.
func (p *Procedure) NewRegister(t symbols.Type) *Register {
	r := &Register{ID: len(p.Registers), Type: t}
	p.Registers = append(p.Registers, r)
	return r
}

// NewParam registers a parameter slot.
func (p *Procedure) NewParam(sym *symbols.ParamSymbol) *Param {
	param := &Param{ID: len(p.Params), Sym: sym}
	p.Params = append(p.Params, param)
	return param
}

// NewLocal registers a local slot.
func (p *Procedure) NewLocal(sym *symbols.LocalSymbol) *Local {
	l := &Local{ID: len(p.Locals), Sym: sym}
	p.Locals = append(p.Locals, l)
	return l
}

// RemoveDeadBlocks drops blocks unreachable from the entry; every
// surviving non-entry block keeps at least one predecessor.
func (p *Procedure) RemoveDeadBlocks() {
	reachable := map[*BasicBlock]bool{p.Entry: true}
	work := []*BasicBlock{p.Entry}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		for _, s := range b.Succs() {
			if !reachable[s] {
				reachable[s] = true
				work = append(work, s)
			}
		}
	}
	var kept []*BasicBlock
	for _, b := range p.Blocks {
		if reachable[b] {
			b.ID = len(kept)
			kept = append(kept, b)
		}
	}
	p.Blocks = kept
}
