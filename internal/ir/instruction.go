// Package ir implements the register-based three-address intermediate
// representation: a Module of Procedures, each a control-flow graph of
// BasicBlocks holding instructions, ending in exactly one branch.
package ir

import (
	"fmt"
	"strings"

	"github.com/lucyelle/DracoCompiler/internal/diag"
	"github.com/lucyelle/DracoCompiler/internal/symbols"
)

// Opcode identifies an instruction variant.
type Opcode int

const (
	OpInvalid Opcode = iota

	// Branches
	OpJump   // jump Then
	OpBranch // branch Operands[0] Then Else
	OpRet    // ret Operands[0]

	// Arithmetic
	OpAdd // Target := Operands[0] + Operands[1]
	OpSub
	OpMul
	OpDiv
	OpRem

	// Comparison
	OpLess  // Target := Operands[0] < Operands[1]
	OpEqual // Target := Operands[0] == Operands[1]

	// Memory
	OpLoad         // Target := load Operands[0] (local/global/param)
	OpStore        // store Operands[0] := Operands[1]
	OpLoadField    // Target := loadfield Operands[0], Member
	OpStoreField   // storefield Operands[0], Member := Operands[1]
	OpLoadElement  // Target := loadelement Operands[0], Operands[1:]
	OpStoreElement // storeelement Operands[0], Operands[1:n] := Operands[n]

	// Calls and allocation
	OpCall        // Target := call Operands[0] (callee), Operands[1:]
	OpMemberCall  // Target := membercall Operands[0] (receiver) . Member, Operands[1:]
	OpNewObject   // Target := newobject Member, Operands (constructor args)
	OpNewArray    // Target := newarray Member (element type), Operands (dimensions)
	OpArrayLength // Target := arraylength Operands[0]

	// Pseudo instructions
	OpSequencePoint // anchors a source range for debuggers
	OpStartScope    // opens a lexical scope over Scope locals
	OpEndScope      // closes the innermost scope
	OpNop

	opcodeCount // sentinel; must be last
)

// OpInfo holds metadata about an instruction variant.
type OpInfo struct {
	Name string

	// IsBranch marks block terminators; every basic block ends in exactly
	// one branch instruction.
	IsBranch bool

	// ValidInUnreachable marks pseudo instructions that may appear in
	// detached (unreachable) positions without being a codegen error.
	ValidInUnreachable bool
}

// opInfoTable maps each Opcode to its OpInfo.
var opInfoTable = [opcodeCount]OpInfo{
	OpInvalid: {Name: "invalid"},

	OpJump:   {Name: "jump", IsBranch: true},
	OpBranch: {Name: "branch", IsBranch: true},
	OpRet:    {Name: "ret", IsBranch: true},

	OpAdd: {Name: "add"},
	OpSub: {Name: "sub"},
	OpMul: {Name: "mul"},
	OpDiv: {Name: "div"},
	OpRem: {Name: "rem"},

	OpLess:  {Name: "less"},
	OpEqual: {Name: "equal"},

	OpLoad:         {Name: "load"},
	OpStore:        {Name: "store"},
	OpLoadField:    {Name: "loadfield"},
	OpStoreField:   {Name: "storefield"},
	OpLoadElement:  {Name: "loadelement"},
	OpStoreElement: {Name: "storeelement"},

	OpCall:        {Name: "call"},
	OpMemberCall:  {Name: "membercall"},
	OpNewObject:   {Name: "newobject"},
	OpNewArray:    {Name: "newarray"},
	OpArrayLength: {Name: "arraylength"},

	OpSequencePoint: {Name: "sequencepoint", ValidInUnreachable: true},
	OpStartScope:    {Name: "startscope", ValidInUnreachable: true},
	OpEndScope:      {Name: "endscope", ValidInUnreachable: true},
	OpNop:           {Name: "nop", ValidInUnreachable: true},
}

// String returns the opcode's mnemonic.
func (o Opcode) String() string {
	if o >= 0 && int(o) < len(opInfoTable) {
		return opInfoTable[o].Name
	}
	return "unknown"
}

// Info returns the opcode's metadata.
func (o Opcode) Info() OpInfo {
	if o >= 0 && int(o) < len(opInfoTable) {
		return opInfoTable[o]
	}
	return OpInfo{Name: "unknown"}
}

// IsBranch reports whether the opcode terminates a block.
func (o Opcode) IsBranch() bool { return o.Info().IsBranch }

// ----------------------------------------------------------------------------
// Operands

// Operand is a value an instruction reads: a register, a storage slot, a
// constant, or a symbolic reference.
type Operand interface {
	fmt.Stringer
	aOperand() // marker method to restrict implementations to this package
}

// Register is an SSA-ish temporary, typed at definition.
type Register struct {
	ID   int
	Type symbols.Type
}

func (r *Register) String() string { return fmt.Sprintf("r%d", r.ID) }
func (*Register) aOperand()        {}

// Local is a procedure-local variable slot.
type Local struct {
	ID  int
	Sym *symbols.LocalSymbol
}

func (l *Local) String() string { return fmt.Sprintf("loc%d", l.ID) }
func (*Local) aOperand()        {}

// Global is a module-level variable slot.
type Global struct {
	ID  int
	Sym *symbols.GlobalSymbol
}

func (g *Global) String() string { return fmt.Sprintf("glob%d", g.ID) }
func (*Global) aOperand()        {}

// Param is a procedure parameter slot.
type Param struct {
	ID  int
	Sym *symbols.ParamSymbol
}

func (p *Param) String() string { return fmt.Sprintf("param%d", p.ID) }
func (*Param) aOperand()        {}

// Const is a literal constant operand.
type Const struct {
	Value interface{}
	Type  symbols.Type
}

func (c *Const) String() string {
	switch v := c.Value.(type) {
	case nil:
		return "unit"
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
func (*Const) aOperand() {}

// SymbolRef references a function or other symbol by qualified name.
type SymbolRef struct {
	Sym symbols.Symbol
}

func (s *SymbolRef) String() string {
	if name := symbols.QualifiedName(s.Sym); name != "" {
		return name
	}
	return "<unnamed>"
}
func (*SymbolRef) aOperand() {}

// ----------------------------------------------------------------------------
// Instructions

// Instruction is one three-address instruction.
type Instruction struct {
	Op       Opcode
	Target   *Register // destination; nil for void and branch instructions
	Operands []Operand

	// Branch targets: Jump uses Then; Branch uses Then and Else.
	Then *BasicBlock
	Else *BasicBlock

	// Member names LoadField/StoreField/MemberCall targets.
	Member symbols.Symbol

	// Scope lists the locals opened by StartScope.
	Scope []*symbols.LocalSymbol

	// Span anchors SequencePoint instructions to source.
	Span diag.Span
}

// IsBranch reports whether the instruction terminates its block.
func (i *Instruction) IsBranch() bool { return i.Op.IsBranch() }

// ValidInUnreachable reports whether the instruction may stand in
// unreachable positions.
func (i *Instruction) ValidInUnreachable() bool { return i.Op.Info().ValidInUnreachable }

// Clone returns a copy of the instruction with its own operand and scope
// slices; optimization passes mutate clones, never originals.
func (i *Instruction) Clone() *Instruction {
	c := *i
	c.Operands = append([]Operand(nil), i.Operands...)
	c.Scope = append([]*symbols.LocalSymbol(nil), i.Scope...)
	return &c
}

// String renders the instruction in its printable form.
func (i *Instruction) String() string {
	switch i.Op {
	case OpJump:
		return fmt.Sprintf("jump %s", i.Then)
	case OpBranch:
		return fmt.Sprintf("branch %s %s %s", i.Operands[0], i.Then, i.Else)
	case OpRet:
		return fmt.Sprintf("ret %s", i.Operands[0])
	case OpStore:
		return fmt.Sprintf("store %s := %s", i.Operands[0], i.Operands[1])
	case OpStoreField:
		return fmt.Sprintf("storefield %s.%s := %s", i.Operands[0], i.Member.Name(), i.Operands[1])
	case OpStoreElement:
		n := len(i.Operands)
		return fmt.Sprintf("storeelement %s[%s] := %s",
			i.Operands[0], joinOperands(i.Operands[1:n-1]), i.Operands[n-1])
	case OpSequencePoint:
		return fmt.Sprintf("sequencepoint %s", i.Span)
	case OpStartScope:
		names := make([]string, len(i.Scope))
		for j, l := range i.Scope {
			names[j] = l.Name()
		}
		return fmt.Sprintf("startscope [%s]", strings.Join(names, ", "))
	case OpEndScope:
		return "endscope"
	case OpNop:
		return "nop"
	case OpLoadField:
		return fmt.Sprintf("%s := loadfield %s.%s", i.Target, i.Operands[0], i.Member.Name())
	case OpMemberCall:
		return fmt.Sprintf("%s := membercall %s.%s %s",
			i.Target, i.Operands[0], i.Member.Name(), joinOperands(i.Operands[1:]))
	default:
		var sb strings.Builder
		if i.Target != nil {
			fmt.Fprintf(&sb, "%s := ", i.Target)
		}
		sb.WriteString(i.Op.String())
		if len(i.Operands) > 0 {
			sb.WriteByte(' ')
			sb.WriteString(joinOperands(i.Operands))
		}
		return sb.String()
	}
}

func joinOperands(ops []Operand) string {
	parts := make([]string, len(ops))
	for i, o := range ops {
		parts[i] = o.String()
	}
	return strings.Join(parts, ", ")
}
