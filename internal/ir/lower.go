package ir

import (
	"context"
	"fmt"

	"github.com/lucyelle/DracoCompiler/internal/binder"
	"github.com/lucyelle/DracoCompiler/internal/diag"
	"github.com/lucyelle/DracoCompiler/internal/symbols"
)

// Lower compiles a bound module into an IR module with a depth-first
// visitor over the bound tree. Cancellation is consulted between
// procedures.
func Lower(ctx context.Context, sctx *symbols.Context, bm *binder.BoundModule, bag *diag.Bag) *Module {
	mod := NewModule(moduleName(bm))
	l := &lowerer{
		ctx:     sctx,
		bag:     bag,
		mod:     mod,
		globals: make(map[*symbols.GlobalSymbol]*Global),
	}

	for _, g := range bm.Globals {
		l.globals[g.Sym] = mod.NewGlobal(g.Sym)
	}
	l.lowerGlobalInit(bm)

	for _, fn := range bm.Funcs {
		if ctx.Err() != nil {
			return mod
		}
		if fn.Body == nil {
			continue
		}
		l.lowerFunc(fn)
	}
	return mod
}

func moduleName(bm *binder.BoundModule) string {
	if bm.Root != nil && bm.Root.Name() != "" {
		return bm.Root.Name()
	}
	return "main"
}

// lowerer holds per-procedure lowering state. A nil current block means
// the cursor is detached: control cannot reach this point, and emitted
// instructions are dropped unless valid in unreachable positions.
type lowerer struct {
	ctx *symbols.Context
	bag *diag.Bag
	mod *Module

	proc *Procedure
	cur  *BasicBlock

	locals  map[*symbols.LocalSymbol]*Local
	params  map[*symbols.ParamSymbol]*Param
	globals map[*symbols.GlobalSymbol]*Global
	labels  map[*symbols.LabelSymbol]*BasicBlock

	tempCount           int
	unreachableReported bool
}

// lowerGlobalInit synthesizes the module initializer procedure when any
// global carries an initializer.
func (l *lowerer) lowerGlobalInit(bm *binder.BoundModule) {
	any := false
	for _, g := range bm.Globals {
		if g.Value != nil {
			any = true
			break
		}
	}
	if !any {
		return
	}

	l.beginProc(l.mod.NewProcedure("<init>", nil))
	for _, g := range bm.Globals {
		if g.Value == nil {
			continue
		}
		v := l.lowerExpr(g.Value)
		l.emit(&Instruction{Op: OpStore, Operands: []Operand{l.globals[g.Sym], v}})
	}
	l.ret(l.unitConst())
	l.finishProc()
}

func (l *lowerer) beginProc(p *Procedure) {
	l.proc = p
	l.cur = p.Entry
	l.locals = make(map[*symbols.LocalSymbol]*Local)
	l.params = make(map[*symbols.ParamSymbol]*Param)
	l.labels = make(map[*symbols.LabelSymbol]*BasicBlock)
	l.tempCount = 0
	l.unreachableReported = false
}

func (l *lowerer) finishProc() {
	// Defensive: the block invariant requires a terminator everywhere.
	for _, b := range l.proc.Blocks {
		if !b.Terminated() {
			b.Append(&Instruction{Op: OpRet, Operands: []Operand{l.unitConst()}})
		}
	}
	l.proc.RemoveDeadBlocks()
	l.proc = nil
	l.cur = nil
}

func (l *lowerer) lowerFunc(fn *binder.BoundFunc) {
	l.beginProc(l.mod.NewProcedure(fn.Sym.Name(), fn.Sym))
	for _, p := range fn.Sym.Params {
		l.params[p] = l.proc.NewParam(p)
	}

	value := l.lowerExpr(fn.Body)

	if l.cur != nil {
		ret := symbols.Prune(fn.Sym.Return)
		switch {
		case ret == symbols.Type(l.ctx.Unit) || symbols.IsError(ret):
			l.ret(l.unitConst())
		case fn.Body.Type() == symbols.Type(l.ctx.Unit) || value == nil:
			span := diag.Span{}
			if fn.Body.Syntax() != nil {
				span = fn.Body.Syntax().Span()
			}
			l.bag.AddNew(diag.NotAllPathsReturn, span, fn.Sym.Name())
			l.ret(l.errConst())
		default:
			l.ret(value)
		}
	}
	l.finishProc()
}

// ----------------------------------------------------------------------------
// Emission helpers

func (l *lowerer) emit(i *Instruction) {
	if l.cur == nil {
		// Dropped: unreachable, and only pseudo instructions are valid
		// there (they are dropped too, just not an error).
		return
	}
	l.cur.Append(i)
}

func (l *lowerer) jump(to *BasicBlock) {
	l.emit(&Instruction{Op: OpJump, Then: to})
}

func (l *lowerer) branch(cond Operand, then, els *BasicBlock) {
	l.emit(&Instruction{Op: OpBranch, Operands: []Operand{cond}, Then: then, Else: els})
}

func (l *lowerer) ret(v Operand) {
	l.emit(&Instruction{Op: OpRet, Operands: []Operand{v}})
	l.cur = nil
}

func (l *lowerer) compute(op Opcode, t symbols.Type, operands ...Operand) *Register {
	r := l.proc.NewRegister(t)
	l.emit(&Instruction{Op: op, Target: r, Operands: operands})
	return r
}

func (l *lowerer) unitConst() Operand { return &Const{Value: nil, Type: l.ctx.Unit} }
func (l *lowerer) errConst() Operand  { return &Const{Value: nil, Type: symbols.ErrorType} }

func (l *lowerer) boolConst(v bool) Operand { return &Const{Value: v, Type: l.ctx.Bool} }

// tempLocal creates a synthesized mutable local used to join values
// across control-flow edges.
func (l *lowerer) tempLocal(t symbols.Type) *Local {
	sym := symbols.NewLocal(fmt.Sprintf("<t%d>", l.tempCount), t, true)
	l.tempCount++
	loc := l.proc.NewLocal(sym)
	l.locals[sym] = loc
	return loc
}

func (l *lowerer) labelBlock(sym *symbols.LabelSymbol) *BasicBlock {
	if b, ok := l.labels[sym]; ok {
		return b
	}
	b := l.proc.NewBlock()
	l.labels[sym] = b
	return b
}

// ----------------------------------------------------------------------------
// Statements

func (l *lowerer) lowerStmt(s binder.BoundStmt) {
	if _, isLabel := s.(*binder.BoundLabelStmt); !isLabel && l.cur == nil && !l.unreachableReported {
		if s.Syntax() != nil {
			l.bag.AddNew(diag.UnreachableCode, s.Syntax().Span())
		}
		l.unreachableReported = true
	}

	switch s := s.(type) {
	case *binder.BoundLocalDecl:
		l.sequencePoint(s)
		if s.Value != nil {
			v := l.lowerExpr(s.Value)
			l.emit(&Instruction{Op: OpStore, Operands: []Operand{l.localSlot(s.Local), v}})
		}

	case *binder.BoundLabelStmt:
		// A label starts a new basic block; the previous block falls
		// through with an implicit jump.
		b := l.labelBlock(s.Label)
		if l.cur != nil {
			l.jump(b)
		}
		l.cur = b
		l.unreachableReported = false

	case *binder.BoundExprStmt:
		l.sequencePoint(s)
		l.lowerExpr(s.Expr)
	}
}

func (l *lowerer) sequencePoint(s binder.BoundStmt) {
	if s.Syntax() == nil {
		return
	}
	l.emit(&Instruction{Op: OpSequencePoint, Span: s.Syntax().Span()})
}

func (l *lowerer) localSlot(sym *symbols.LocalSymbol) *Local {
	if loc, ok := l.locals[sym]; ok {
		return loc
	}
	loc := l.proc.NewLocal(sym)
	l.locals[sym] = loc
	return loc
}

// ----------------------------------------------------------------------------
// Expressions

func (l *lowerer) lowerExpr(e binder.BoundExpr) Operand {
	if e == nil {
		return l.unitConst()
	}

	switch e := e.(type) {
	case *binder.BoundLiteral:
		return &Const{Value: e.Value, Type: e.Type()}

	case *binder.BoundLocalRef:
		return l.compute(OpLoad, e.Type(), l.localSlot(e.Local))

	case *binder.BoundGlobalRef:
		return l.compute(OpLoad, e.Type(), l.globals[e.Global])

	case *binder.BoundParamRef:
		return l.compute(OpLoad, e.Type(), l.params[e.Param])

	case *binder.BoundFunctionRef:
		return &SymbolRef{Sym: e.Func}

	case *binder.BoundFieldRef:
		return l.lowerFieldLoad(e)

	case *binder.BoundPropertyRef:
		if e.Prop.Getter != nil {
			recv := l.lowerExpr(e.Receiver)
			r := l.proc.NewRegister(e.Type())
			l.emit(&Instruction{Op: OpMemberCall, Target: r, Member: e.Prop.Getter,
				Operands: []Operand{recv}})
			return r
		}
		recv := l.lowerExpr(e.Receiver)
		r := l.proc.NewRegister(e.Type())
		l.emit(&Instruction{Op: OpLoadField, Target: r, Member: e.Prop, Operands: []Operand{recv}})
		return r

	case *binder.BoundCall:
		args := make([]Operand, len(e.Args))
		for i, a := range e.Args {
			args[i] = l.lowerExpr(a)
		}
		return l.lowerCall(e.Func, args, e.Type())

	case *binder.BoundMemberCall:
		recv := l.lowerExpr(e.Receiver)
		operands := []Operand{recv}
		for _, a := range e.Args {
			operands = append(operands, l.lowerExpr(a))
		}
		r := l.proc.NewRegister(e.Type())
		l.emit(&Instruction{Op: OpMemberCall, Target: r, Member: e.Func, Operands: operands})
		return r

	case *binder.BoundIndirectCall:
		operands := []Operand{l.lowerExpr(e.Callee)}
		for _, a := range e.Args {
			operands = append(operands, l.lowerExpr(a))
		}
		r := l.proc.NewRegister(e.Type())
		l.emit(&Instruction{Op: OpCall, Target: r, Operands: operands})
		return r

	case *binder.BoundIndex:
		operands := []Operand{l.lowerExpr(e.Receiver)}
		for _, a := range e.Args {
			operands = append(operands, l.lowerExpr(a))
		}
		r := l.proc.NewRegister(e.Type())
		l.emit(&Instruction{Op: OpLoadElement, Target: r, Operands: operands})
		return r

	case *binder.BoundLogical:
		return l.lowerLogical(e)

	case *binder.BoundRelational:
		return l.lowerRelational(e)

	case *binder.BoundIf:
		return l.lowerIf(e)

	case *binder.BoundWhile:
		return l.lowerWhile(e)

	case *binder.BoundBlock:
		return l.lowerBlock(e)

	case *binder.BoundReturn:
		v := l.lowerExpr(e.Value)
		if e.Value == nil {
			v = l.unitConst()
		}
		l.ret(v)
		return l.unitConst()

	case *binder.BoundGoto:
		// Jump then detach: whatever follows is unreachable.
		l.jump(l.labelBlock(e.Target))
		l.cur = nil
		return l.unitConst()

	case *binder.BoundAssign:
		return l.lowerAssign(e)

	case *binder.BoundString:
		return l.lowerString(e)

	case *binder.BoundError:
		return l.errConst()
	}
	return l.errConst()
}

func (l *lowerer) lowerFieldLoad(e *binder.BoundFieldRef) Operand {
	var operands []Operand
	if e.Receiver != nil {
		recv := l.lowerExpr(e.Receiver)
		if _, isArr := symbols.Prune(e.Receiver.Type()).(*symbols.Array); isArr && e.Field.Name() == "Length" {
			return l.compute(OpArrayLength, e.Type(), recv)
		}
		operands = append(operands, recv)
	}
	r := l.proc.NewRegister(e.Type())
	l.emit(&Instruction{Op: OpLoadField, Target: r, Member: e.Field, Operands: operands})
	return r
}

// lowerCall dispatches a direct call: intrinsics map to dedicated
// instruction sequences, everything else becomes a call by symbol.
func (l *lowerer) lowerCall(fn *symbols.FuncSymbol, args []Operand, result symbols.Type) Operand {
	switch fn.Intrinsic {
	case symbols.IntrinsicAdd:
		return l.compute(OpAdd, result, args[0], args[1])
	case symbols.IntrinsicSub:
		return l.compute(OpSub, result, args[0], args[1])
	case symbols.IntrinsicMul:
		return l.compute(OpMul, result, args[0], args[1])
	case symbols.IntrinsicDiv:
		return l.compute(OpDiv, result, args[0], args[1])
	case symbols.IntrinsicRem:
		return l.compute(OpRem, result, args[0], args[1])

	case symbols.IntrinsicMod:
		// mod is euclidean: (a rem b + b) rem b.
		t1 := l.compute(OpRem, result, args[0], args[1])
		t2 := l.compute(OpAdd, result, t1, args[1])
		return l.compute(OpRem, result, t2, args[1])

	case symbols.IntrinsicLess:
		return l.compute(OpLess, l.ctx.Bool, args[0], args[1])
	case symbols.IntrinsicGreater:
		return l.compute(OpLess, l.ctx.Bool, args[1], args[0])
	case symbols.IntrinsicLessEqual:
		// a <= b  ==>  !(b < a)
		t := l.compute(OpLess, l.ctx.Bool, args[1], args[0])
		return l.negate(t)
	case symbols.IntrinsicGreaterEqual:
		// a >= b  ==>  !(a < b)
		t := l.compute(OpLess, l.ctx.Bool, args[0], args[1])
		return l.negate(t)
	case symbols.IntrinsicEqual:
		return l.compute(OpEqual, l.ctx.Bool, args[0], args[1])
	case symbols.IntrinsicNotEqual:
		t := l.compute(OpEqual, l.ctx.Bool, args[0], args[1])
		return l.negate(t)

	case symbols.IntrinsicPlus:
		return args[0]
	case symbols.IntrinsicNeg:
		// -x  ==>  x * -1
		return l.compute(OpMul, result, args[0], l.minusOne(result))
	case symbols.IntrinsicNot:
		// !x  ==>  x == false
		return l.negate(args[0])

	case symbols.IntrinsicToString, symbols.IntrinsicStringConcat:
		l.ensureRuntimeProc(fn)
		operands := append([]Operand{&SymbolRef{Sym: fn}}, args...)
		r := l.proc.NewRegister(result)
		l.emit(&Instruction{Op: OpCall, Target: r, Operands: operands})
		return r

	default:
		operands := append([]Operand{&SymbolRef{Sym: fn}}, args...)
		r := l.proc.NewRegister(result)
		l.emit(&Instruction{Op: OpCall, Target: r, Operands: operands})
		return r
	}
}

// negate computes x == false.
func (l *lowerer) negate(x Operand) Operand {
	return l.compute(OpEqual, l.ctx.Bool, x, l.boolConst(false))
}

func (l *lowerer) minusOne(t symbols.Type) Operand {
	switch symbols.Prune(t) {
	case symbols.Type(l.ctx.Float32), symbols.Type(l.ctx.Float64):
		return &Const{Value: float64(-1), Type: t}
	}
	return &Const{Value: int64(-1), Type: t}
}

// ensureRuntimeProc synthesizes the body of a compiler-provided function
// on first reference, at most once per module.
func (l *lowerer) ensureRuntimeProc(fn *symbols.FuncSymbol) {
	l.mod.Synthesized(fn, func() *Procedure {
		p := &Procedure{Name: fn.Name(), Sym: fn, Module: l.mod}
		p.Entry = p.NewBlock()
		l.mod.Procedures = append(l.mod.Procedures, p)

		operands := []Operand{&SymbolRef{Sym: runtimeSymbol(fn)}}
		for _, ps := range fn.Params {
			operands = append(operands, p.NewParam(ps))
		}
		r := p.NewRegister(fn.Return)
		p.Entry.Append(&Instruction{Op: OpCall, Target: r, Operands: operands})
		p.Entry.Append(&Instruction{Op: OpRet, Operands: []Operand{r}})
		return p
	})
}

// runtimeSymbol names the runtime entry backing a synthesized function.
func runtimeSymbol(fn *symbols.FuncSymbol) symbols.Symbol {
	rt := symbols.NewModule("runtime", symbols.Public, nil)
	entry := symbols.NewFunc(fn.Name(), symbols.Public)
	entry.SetContainer(rt)
	return entry
}

func (l *lowerer) lowerLogical(e *binder.BoundLogical) Operand {
	tmp := l.tempLocal(l.ctx.Bool)
	rightB := l.proc.NewBlock()
	join := l.proc.NewBlock()

	left := l.lowerExpr(e.Left)
	l.emit(&Instruction{Op: OpStore, Operands: []Operand{tmp, left}})
	if e.IsAnd {
		l.branch(left, rightB, join)
	} else {
		l.branch(left, join, rightB)
	}

	l.cur = rightB
	right := l.lowerExpr(e.Right)
	l.emit(&Instruction{Op: OpStore, Operands: []Operand{tmp, right}})
	l.jump(join)

	l.cur = join
	return l.compute(OpLoad, l.ctx.Bool, tmp)
}

// lowerRelational compiles a chain a < b > c as a < b and b > c with each
// middle operand evaluated exactly once.
func (l *lowerer) lowerRelational(e *binder.BoundRelational) Operand {
	prev := l.lowerExpr(e.First)

	if len(e.Links) == 1 {
		link := e.Links[0]
		right := l.lowerExpr(link.Right)
		return l.compareLink(link.Func, prev, right)
	}

	tmp := l.tempLocal(l.ctx.Bool)
	join := l.proc.NewBlock()

	for i, link := range e.Links {
		right := l.lowerExpr(link.Right)
		c := l.compareLink(link.Func, prev, right)
		l.emit(&Instruction{Op: OpStore, Operands: []Operand{tmp, c}})
		if i < len(e.Links)-1 {
			next := l.proc.NewBlock()
			l.branch(c, next, join)
			l.cur = next
		} else {
			l.jump(join)
		}
		prev = right
	}

	l.cur = join
	return l.compute(OpLoad, l.ctx.Bool, tmp)
}

func (l *lowerer) compareLink(fn *symbols.FuncSymbol, left, right Operand) Operand {
	if fn == nil {
		return l.errConst()
	}
	return l.lowerCall(fn, []Operand{left, right}, l.ctx.Bool)
}

func (l *lowerer) lowerIf(e *binder.BoundIf) Operand {
	cond := l.lowerExpr(e.Cond)
	thenB := l.proc.NewBlock()
	elseB := l.proc.NewBlock()
	join := l.proc.NewBlock()

	needValue := !isUnitLike(l.ctx, e.Type())
	var tmp *Local
	if needValue {
		tmp = l.tempLocal(e.Type())
	}

	// A conditional branches and continues lowering in the else block.
	l.branch(cond, thenB, elseB)

	l.cur = thenB
	thenV := l.lowerExpr(e.Then)
	if tmp != nil {
		l.emit(&Instruction{Op: OpStore, Operands: []Operand{tmp, thenV}})
	}
	l.jump(join)

	l.cur = elseB
	if e.Else != nil {
		elseV := l.lowerExpr(e.Else)
		if tmp != nil {
			l.emit(&Instruction{Op: OpStore, Operands: []Operand{tmp, elseV}})
		}
	}
	l.jump(join)

	l.cur = join
	if tmp != nil {
		return l.compute(OpLoad, e.Type(), tmp)
	}
	return l.unitConst()
}

func isUnitLike(ctx *symbols.Context, t symbols.Type) bool {
	t = symbols.Prune(t)
	return t == symbols.Type(ctx.Unit) || symbols.IsNever(t) || symbols.IsError(t)
}

func (l *lowerer) lowerWhile(e *binder.BoundWhile) Operand {
	header := l.proc.NewBlock()
	body := l.proc.NewBlock()
	exit := l.proc.NewBlock()

	l.jump(header)
	l.cur = header
	cond := l.lowerExpr(e.Cond)
	l.branch(cond, body, exit)

	l.cur = body
	l.lowerExpr(e.Body)
	l.jump(header)

	l.cur = exit
	return l.unitConst()
}

func (l *lowerer) lowerBlock(e *binder.BoundBlock) Operand {
	for _, sym := range e.Locals {
		l.localSlot(sym)
	}
	l.emit(&Instruction{Op: OpStartScope, Scope: e.Locals})

	for _, s := range e.Stmts {
		l.lowerStmt(s)
	}

	var value Operand = l.unitConst()
	if e.Value != nil {
		value = l.lowerExpr(e.Value)
	}
	l.emit(&Instruction{Op: OpEndScope})
	return value
}

// lvalue is a compiled assignment target: load and store templates over
// receiver operands that were evaluated exactly once.
type lvalue struct {
	load  func() Operand
	store func(Operand)
}

func (l *lowerer) lowerLValue(e binder.BoundExpr) lvalue {
	switch e := e.(type) {
	case *binder.BoundLocalRef:
		slot := l.localSlot(e.Local)
		return l.slotLValue(slot, e.Type())

	case *binder.BoundGlobalRef:
		slot := l.globals[e.Global]
		return l.slotLValue(slot, e.Type())

	case *binder.BoundParamRef:
		slot := l.params[e.Param]
		return l.slotLValue(slot, e.Type())

	case *binder.BoundIndex:
		recv := l.lowerExpr(e.Receiver)
		idx := make([]Operand, len(e.Args))
		for i, a := range e.Args {
			idx[i] = l.lowerExpr(a)
		}
		return lvalue{
			load: func() Operand {
				r := l.proc.NewRegister(e.Type())
				l.emit(&Instruction{Op: OpLoadElement, Target: r,
					Operands: append([]Operand{recv}, idx...)})
				return r
			},
			store: func(v Operand) {
				l.emit(&Instruction{Op: OpStoreElement,
					Operands: append(append([]Operand{recv}, idx...), v)})
			},
		}

	case *binder.BoundFieldRef:
		recv := l.lowerExpr(e.Receiver)
		return lvalue{
			load: func() Operand {
				r := l.proc.NewRegister(e.Type())
				l.emit(&Instruction{Op: OpLoadField, Target: r, Member: e.Field,
					Operands: []Operand{recv}})
				return r
			},
			store: func(v Operand) {
				l.emit(&Instruction{Op: OpStoreField, Member: e.Field,
					Operands: []Operand{recv, v}})
			},
		}

	case *binder.BoundPropertyRef:
		recv := l.lowerExpr(e.Receiver)
		return lvalue{
			load: func() Operand {
				r := l.proc.NewRegister(e.Type())
				if e.Prop.Getter != nil {
					l.emit(&Instruction{Op: OpMemberCall, Target: r, Member: e.Prop.Getter,
						Operands: []Operand{recv}})
				} else {
					l.emit(&Instruction{Op: OpLoadField, Target: r, Member: e.Prop,
						Operands: []Operand{recv}})
				}
				return r
			},
			store: func(v Operand) {
				if e.Prop.Setter != nil {
					r := l.proc.NewRegister(l.ctx.Unit)
					l.emit(&Instruction{Op: OpMemberCall, Target: r, Member: e.Prop.Setter,
						Operands: []Operand{recv, v}})
					return
				}
				l.emit(&Instruction{Op: OpStoreField, Member: e.Prop,
					Operands: []Operand{recv, v}})
			},
		}
	}

	// Poisoned target: both templates are no-ops.
	return lvalue{
		load:  func() Operand { return l.errConst() },
		store: func(Operand) {},
	}
}

func (l *lowerer) slotLValue(slot Operand, t symbols.Type) lvalue {
	return lvalue{
		load:  func() Operand { return l.compute(OpLoad, t, slot) },
		store: func(v Operand) { l.emit(&Instruction{Op: OpStore, Operands: []Operand{slot, v}}) },
	}
}

// lowerAssign compiles the right-hand side first, then the lvalue as a
// load/store template pair so receiver side effects run exactly once.
func (l *lowerer) lowerAssign(e *binder.BoundAssign) Operand {
	value := l.lowerExpr(e.Value)
	lv := l.lowerLValue(e.Target)

	if e.Compound != nil {
		current := lv.load()
		value = l.lowerCall(e.Compound, []Operand{current, value}, e.Target.Type())
	}
	lv.store(value)
	return l.unitConst()
}

func (l *lowerer) lowerString(e *binder.BoundString) Operand {
	if len(e.Parts) == 0 {
		return &Const{Value: "", Type: l.ctx.String}
	}

	var acc Operand
	for _, part := range e.Parts {
		var piece Operand
		if part.Value != nil {
			piece = l.lowerExpr(part.Value)
		} else {
			piece = &Const{Value: part.Text, Type: l.ctx.String}
		}
		if acc == nil {
			acc = piece
			continue
		}
		acc = l.lowerCall(l.ctx.Concat(), []Operand{acc, piece}, l.ctx.String)
	}
	return acc
}
