package binder

import (
	"github.com/lucyelle/DracoCompiler/internal/diag"
	"github.com/lucyelle/DracoCompiler/internal/symbols"
)

// Materialization converts the untyped tree into the bound tree after the
// solver has run: promises are read, type variables pruned, and failures
// become poison nodes without further diagnostics.

func (b *Binder) materializeModule() *BoundModule {
	out := &BoundModule{Root: b.root}
	for _, w := range b.funcs {
		body := b.materializeExpr(w.body)
		if w.inline && body != nil {
			// An inline body is sugar for a block returning the value.
			ret := &BoundReturn{Value: body}
			ret.syntax = w.body.Syntax()
			ret.typ = symbols.NeverType
			wrapped := &BoundBlock{Stmts: []BoundStmt{&BoundExprStmt{Expr: ret}}}
			wrapped.syntax = w.body.Syntax()
			wrapped.typ = b.ctx.Unit
			body = wrapped
		}
		out.Funcs = append(out.Funcs, &BoundFunc{Sym: w.sym, Body: body})
	}
	for _, g := range b.globals {
		g.sym.Type = b.materializeType(g.sym.Type)
		bound := &BoundGlobal{Sym: g.sym}
		if g.value != nil {
			bound.Value = b.materializeExpr(g.value)
		}
		out.Globals = append(out.Globals, bound)
	}
	return out
}

// materializeType prunes a type; a variable that never got substituted
// collapses to the error type.
func (b *Binder) materializeType(t symbols.Type) symbols.Type {
	if t == nil {
		return symbols.ErrorType
	}
	t = symbols.Prune(t)
	if v, ok := t.(*symbols.TypeVariable); ok && v.Substitution() == nil {
		return symbols.ErrorType
	}
	return t
}

func (b *Binder) materializeStmt(s UntypedStmt) BoundStmt {
	switch s := s.(type) {
	case *UntypedLocalDecl:
		s.Local.Type = b.materializeType(s.Local.Type)
		out := &BoundLocalDecl{Local: s.Local}
		out.syntax = s.Syntax()
		if s.Value != nil {
			out.Value = b.materializeExpr(s.Value)
		}
		return out

	case *UntypedLabelStmt:
		out := &BoundLabelStmt{Label: s.Label}
		out.syntax = s.Syntax()
		return out

	case *UntypedExprStmt:
		out := &BoundExprStmt{Expr: b.materializeExpr(s.Expr)}
		out.syntax = s.Syntax()
		return out
	}
	return nil
}

func (b *Binder) boundError(e UntypedExpr) BoundExpr {
	out := &BoundError{}
	out.syntax = e.Syntax()
	out.typ = symbols.ErrorType
	return out
}

func (b *Binder) materializeExpr(e UntypedExpr) BoundExpr {
	if e == nil {
		return nil
	}
	typ := b.materializeType(e.TypeHint())

	switch e := e.(type) {
	case *UntypedLiteral:
		out := &BoundLiteral{Value: e.Value}
		out.syntax = e.Syntax()
		out.typ = typ
		return out

	case *UntypedLocalRef:
		e.Local.Type = b.materializeType(e.Local.Type)
		out := &BoundLocalRef{Local: e.Local}
		out.syntax = e.Syntax()
		out.typ = e.Local.Type
		return out

	case *UntypedGlobalRef:
		out := &BoundGlobalRef{Global: e.Global}
		out.syntax = e.Syntax()
		out.typ = b.materializeType(e.Global.Type)
		return out

	case *UntypedParamRef:
		out := &BoundParamRef{Param: e.Param}
		out.syntax = e.Syntax()
		out.typ = b.materializeType(e.Param.Type)
		return out

	case *UntypedFunctionRef:
		out := &BoundFunctionRef{Func: e.Func}
		out.syntax = e.Syntax()
		out.typ = e.Func.Type()
		return out

	case *UntypedFuncGroup:
		// A group surviving to value position must be a single function.
		if e.Promise.Done() && !e.Promise.Failed() {
			out := &BoundFunctionRef{Func: e.Promise.Result}
			out.syntax = e.Syntax()
			out.typ = e.Promise.Result.Type()
			return out
		}
		if len(e.Functions) == 1 {
			out := &BoundFunctionRef{Func: e.Functions[0]}
			out.syntax = e.Syntax()
			out.typ = e.Functions[0].Type()
			return out
		}
		if !e.Promise.Failed() {
			b.bag.AddNew(diag.AmbiguousReference, e.span(), e.Name)
		}
		return b.boundError(e)

	case *UntypedModuleRef:
		b.bag.AddNew(diag.IllegalReferenceContext, e.span(), e.Module.Name(), "value")
		return b.boundError(e)

	case *UntypedTypeRef:
		b.bag.AddNew(diag.IllegalReferenceContext, e.span(), e.Ref.String(), "value")
		return b.boundError(e)

	case *UntypedFieldRef:
		out := &BoundFieldRef{Field: e.Field}
		out.syntax = e.Syntax()
		out.typ = b.materializeType(e.Field.Type)
		if e.Receiver != nil {
			out.Receiver = b.materializeExpr(e.Receiver)
		}
		return out

	case *UntypedPropertyRef:
		out := &BoundPropertyRef{Prop: e.Prop}
		out.syntax = e.Syntax()
		out.typ = b.materializeType(e.Prop.Type)
		if e.Receiver != nil {
			out.Receiver = b.materializeExpr(e.Receiver)
		}
		return out

	case *UntypedMember:
		return b.materializeMember(e, typ)

	case *UntypedCall:
		return b.materializeCall(e, typ)

	case *UntypedIndex:
		out := &BoundIndex{Receiver: b.materializeExpr(e.Receiver)}
		out.syntax = e.Syntax()
		out.typ = typ
		for _, a := range e.Args {
			out.Args = append(out.Args, b.materializeExpr(a))
		}
		return out

	case *UntypedLogical:
		out := &BoundLogical{
			IsAnd: e.IsAnd,
			Left:  b.materializeExpr(e.Left),
			Right: b.materializeExpr(e.Right),
		}
		out.syntax = e.Syntax()
		out.typ = b.ctx.Bool
		return out

	case *UntypedRelational:
		out := &BoundRelational{First: b.materializeExpr(e.First)}
		out.syntax = e.Syntax()
		out.typ = b.ctx.Bool
		for _, link := range e.Links {
			bound := BoundRelationalLink{Right: b.materializeExpr(link.Right)}
			if link.Promise.Done() && !link.Promise.Failed() {
				bound.Func = link.Promise.Result
			}
			out.Links = append(out.Links, bound)
		}
		return out

	case *UntypedIf:
		out := &BoundIf{
			Cond: b.materializeExpr(e.Cond),
			Then: b.materializeExpr(e.Then),
			Else: b.materializeExpr(e.Else),
		}
		out.syntax = e.Syntax()
		out.typ = typ
		return out

	case *UntypedWhile:
		out := &BoundWhile{
			Cond: b.materializeExpr(e.Cond),
			Body: b.materializeExpr(e.Body),
		}
		out.syntax = e.Syntax()
		out.typ = b.ctx.Unit
		return out

	case *UntypedBlock:
		out := &BoundBlock{}
		out.syntax = e.Syntax()
		out.typ = typ
		for _, s := range e.Stmts {
			bound := b.materializeStmt(s)
			if bound == nil {
				continue
			}
			out.Stmts = append(out.Stmts, bound)
			if decl, ok := bound.(*BoundLocalDecl); ok {
				out.Locals = append(out.Locals, decl.Local)
			}
		}
		out.Value = b.materializeExpr(e.Value)
		return out

	case *UntypedReturn:
		out := &BoundReturn{Value: b.materializeExpr(e.Value)}
		out.syntax = e.Syntax()
		out.typ = symbols.NeverType
		return out

	case *UntypedGoto:
		out := &BoundGoto{Target: e.Target}
		out.syntax = e.Syntax()
		out.typ = symbols.NeverType
		return out

	case *UntypedAssign:
		out := &BoundAssign{
			Target: b.materializeExpr(e.Target),
			Value:  b.materializeExpr(e.Value),
		}
		out.syntax = e.Syntax()
		out.typ = b.ctx.Unit
		if e.Compound != nil && e.Compound.Done() && !e.Compound.Failed() {
			out.Compound = e.Compound.Result
		}
		return out

	case *UntypedString:
		out := &BoundString{}
		out.syntax = e.Syntax()
		out.typ = b.ctx.String
		for _, part := range e.Parts {
			if part.Value != nil {
				out.Parts = append(out.Parts, BoundStringPart{Value: b.materializeExpr(part.Value)})
			} else {
				out.Parts = append(out.Parts, BoundStringPart{Text: part.Text})
			}
		}
		return out

	case *UntypedError:
		return b.boundError(e)
	}
	return b.boundError(e)
}

// materializeMember converts a member access in value position.
func (b *Binder) materializeMember(e *UntypedMember, typ symbols.Type) BoundExpr {
	if !e.Promise.Done() || e.Promise.Failed() {
		return b.boundError(e)
	}
	recv := b.materializeExpr(e.Receiver)
	switch m := e.Promise.Members[0].(type) {
	case *symbols.FieldSymbol:
		out := &BoundFieldRef{Receiver: recv, Field: m}
		out.syntax = e.Syntax()
		out.typ = typ
		return out

	case *symbols.PropertySymbol:
		out := &BoundPropertyRef{Receiver: recv, Prop: m}
		out.syntax = e.Syntax()
		out.typ = typ
		return out

	default:
		// A bare method group is not a value.
		b.bag.AddNew(diag.IllegalReferenceContext, e.span(), e.Name, "value")
		return b.boundError(e)
	}
}

// materializeCall converts a call, choosing between direct, member, and
// indirect forms.
func (b *Binder) materializeCall(e *UntypedCall, typ symbols.Type) BoundExpr {
	args := make([]BoundExpr, 0, len(e.Args))
	for _, a := range e.Args {
		args = append(args, b.materializeExpr(a))
	}

	if e.Overload != nil {
		if !e.Overload.Done() || e.Overload.Failed() {
			return b.boundError(e)
		}
		fn := e.Overload.Result
		if member, ok := e.Callee.(*UntypedMember); ok {
			out := &BoundMemberCall{
				Receiver: b.materializeExpr(member.Receiver),
				Func:     fn,
				Args:     args,
			}
			out.syntax = e.Syntax()
			out.typ = typ
			return out
		}
		out := &BoundCall{Func: fn, Args: args}
		out.syntax = e.Syntax()
		out.typ = typ
		return out
	}

	callee := b.materializeExpr(e.Callee)
	if _, ok := callee.(*BoundError); ok {
		return b.boundError(e)
	}
	out := &BoundIndirectCall{Callee: callee, Args: args}
	out.syntax = e.Syntax()
	out.typ = typ
	return out
}
