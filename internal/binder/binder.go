package binder

import (
	"context"
	"strings"

	"github.com/lucyelle/DracoCompiler/internal/diag"
	"github.com/lucyelle/DracoCompiler/internal/symbols"
	"github.com/lucyelle/DracoCompiler/internal/syntax"
)

// Binder walks syntax, creates the scope tree lazily, resolves names with
// lexical rules, and produces the untyped tree. Overload sets become
// function-group promises deferred to the solver.
type Binder struct {
	ctx        *symbols.Context
	bag        *diag.Bag
	solver     *Solver
	assemblies []symbols.Assembly

	scope      *symbols.Scope
	root       *symbols.Module
	returnType symbols.Type

	funcs   []*funcWork
	globals []*globalWork
}

// funcWork pairs a declared function with everything needed to bind its
// body after collection.
type funcWork struct {
	sym    *symbols.FuncSymbol
	decl   syntax.FuncDecl
	scope  *symbols.Scope
	body   UntypedExpr
	inline bool
}

type globalWork struct {
	sym   *symbols.GlobalSymbol
	decl  syntax.VariableDecl
	value UntypedExpr
}

// Bind binds a syntax tree into a bound module. Diagnostics go into bag;
// cancellation is consulted between the bind and solve phases.
func Bind(ctx context.Context, sctx *symbols.Context, tree *syntax.Tree,
	assemblies []symbols.Assembly, bag *diag.Bag) *BoundModule {

	b := &Binder{
		ctx:        sctx,
		bag:        bag,
		solver:     NewSolver(sctx, bag),
		assemblies: assemblies,
	}

	// Compilation-unit scope: primitives at the root.
	b.scope = symbols.NewScope(nil)
	for _, p := range sctx.Primitives() {
		b.scope.Insert(p)
	}

	unit := syntax.CompilationUnit{Node: tree.Root()}
	b.root = symbols.NewModule("", symbols.Public, nil)
	b.collectDecls(unit.Decls())

	if ctx.Err() != nil {
		return &BoundModule{Root: b.root}
	}

	// Bind global initializers and function bodies.
	for _, g := range b.globals {
		if value := g.decl.Value(); value != nil {
			g.value = b.bindExpr(value)
			b.addConstraint(&AssignableConstraint{
				Target: g.sym.Type,
				Source: g.value.TypeHint(),
				Span:   value.Span(),
			})
		}
	}
	for i := 0; i < len(b.funcs); i++ {
		b.bindFuncBody(b.funcs[i])
	}

	if ctx.Err() != nil {
		return &BoundModule{Root: b.root}
	}

	b.solver.Run(ctx)

	return b.materializeModule()
}

func (b *Binder) addConstraint(c Constraint) { b.solver.Add(c) }

func (b *Binder) freshVar() *symbols.TypeVariable { return symbols.NewTypeVariable() }

// ----------------------------------------------------------------------------
// Declaration collection

// visibilityOf maps a modifier token to a visibility; no modifier means
// private.
func visibilityOf(tok syntax.Token) symbols.Visibility {
	switch {
	case !tok.Exists():
		return symbols.Private
	case tok.Kind() == syntax.KeywordPublic:
		return symbols.Public
	default:
		return symbols.Internal
	}
}

// collectDecls declares the symbols of a declaration list in the current
// scope. Function bodies are queued for later binding.
func (b *Binder) collectDecls(decls []*syntax.Node) {
	for _, d := range decls {
		b.collectDecl(d)
	}
}

func (b *Binder) collectDecl(d *syntax.Node) {
	switch d.Kind() {
	case syntax.KindImportDecl:
		b.bindImport(syntax.ImportDecl{Node: d})

	case syntax.KindFuncDecl:
		b.collectFunc(syntax.FuncDecl{Node: d})

	case syntax.KindModuleDecl:
		b.collectModule(syntax.ModuleDecl{Node: d})

	case syntax.KindVariableDecl:
		b.collectGlobal(syntax.VariableDecl{Node: d})

	case syntax.KindLabelDecl, syntax.KindUnexpected:
		// Misplaced or unparsable input; the parser already diagnosed it.
	}
}

func (b *Binder) collectFunc(decl syntax.FuncDecl) {
	name := decl.Name()
	fn := symbols.NewFunc(name.Text(), visibilityOf(decl.VisibilityToken()))
	fn.SetContainer(b.root)

	// Function scope holds type parameters and parameters.
	fnScope := symbols.NewScope(b.scope)

	for _, gp := range decl.GenericParams() {
		param := syntax.GenericParam{Node: gp}
		tp := symbols.NewTypeParameter(param.Name().Text(), fn)
		fn.TypeParams = append(fn.TypeParams, tp)
		if existing := fnScope.Insert(tp); existing != nil {
			b.bag.AddNew(diag.AmbiguousReference, param.Name().Span(), tp.Name())
		}
	}

	outer := b.scope
	b.scope = fnScope
	for i, pn := range decl.Params() {
		param := syntax.Param{Node: pn}
		pt := b.bindType(param.Type())
		variadic := param.IsVariadic()
		if variadic {
			if arr, ok := symbols.Prune(pt).(*symbols.Array); !ok || arr.Rank != 1 {
				b.bag.AddNew(diag.TypeMismatch, param.Type().Span(), "a rank-1 array", pt)
				pt = symbols.ErrorType
			}
			if i != len(decl.Params())-1 {
				b.bag.AddNew(diag.IllegalElementInContext, param.Name().Span(),
					"variadic parameter before the last position")
			}
		}
		ps := symbols.NewParam(param.Name().Text(), pt, variadic)
		ps.SetContainer(fn)
		fn.Params = append(fn.Params, ps)
		if existing := fnScope.Insert(ps); existing != nil {
			b.bag.AddNew(diag.AmbiguousReference, param.Name().Span(), ps.Name())
		}
	}
	if ret := decl.ReturnType(); ret != nil {
		fn.Return = b.bindType(ret)
	} else {
		fn.Return = b.ctx.Unit
	}
	b.scope = outer

	if existing := b.scope.Insert(fn); existing != nil {
		if _, ok := existing.(*symbols.FuncSymbol); !ok {
			b.bag.AddNew(diag.AmbiguousReference, name.Span(), fn.Name())
			return
		}
	}
	b.root.AddMember(fn)
	b.funcs = append(b.funcs, &funcWork{sym: fn, decl: decl, scope: fnScope})
}

func (b *Binder) collectModule(decl syntax.ModuleDecl) {
	name := decl.Name()
	outerRoot := b.root
	outerScope := b.scope

	mod := symbols.NewModule(name.Text(), visibilityOf(childVisibility(decl)), nil)
	mod.SetContainer(outerRoot)
	if existing := outerScope.Insert(mod); existing != nil {
		b.bag.AddNew(diag.AmbiguousReference, name.Span(), mod.Name())
		return
	}
	outerRoot.AddMember(mod)

	// Module scope nests inside the enclosing scope.
	b.root = mod
	b.scope = symbols.NewScope(outerScope)
	b.collectDecls(decl.Decls())
	b.root = outerRoot
	b.scope = outerScope
}

func childVisibility(decl syntax.ModuleDecl) syntax.Token {
	tok, _ := decl.ChildToken(0)
	return tok
}

func (b *Binder) collectGlobal(decl syntax.VariableDecl) {
	name := decl.Name()
	var t symbols.Type
	if typeNode := decl.Type(); typeNode != nil {
		t = b.bindType(typeNode)
	} else {
		t = b.freshVar()
	}
	g := symbols.NewGlobal(name.Text(), visibilityOf(decl.VisibilityToken()), t, decl.IsMutable())
	g.SetContainer(b.root)
	if existing := b.scope.Insert(g); existing != nil {
		b.bag.AddNew(diag.AmbiguousReference, name.Span(), g.Name())
		return
	}
	b.root.AddMember(g)
	b.globals = append(b.globals, &globalWork{sym: g, decl: decl})
}

// bindImport resolves an import path and brings the resolved symbol into
// scope under its final name.
func (b *Binder) bindImport(decl syntax.ImportDecl) {
	path := importPathSegments(decl.Path())
	if len(path) == 0 {
		return
	}

	if sym := b.resolveImport(path); sym != nil {
		b.scope.Insert(sym)
		return
	}
	b.bag.AddNew(diag.UndefinedReference, decl.Path().Span(), strings.Join(path, "."))
}

// importPathSegments flattens the dotted path of an import declaration.
func importPathSegments(path *syntax.Node) []string {
	if path == nil {
		return nil
	}
	switch path.Kind() {
	case syntax.KindNameExpr:
		return []string{syntax.NameExpr{Node: path}.Name().Text()}
	case syntax.KindMemberExpr:
		m := syntax.MemberExpr{Node: path}
		return append(importPathSegments(m.Receiver()), m.Name().Text())
	}
	return nil
}

// resolveImport searches the source module tree first, then every
// referenced assembly.
func (b *Binder) resolveImport(path []string) symbols.Symbol {
	if sym := resolveInModule(b.root, path); sym != nil {
		return sym
	}
	for _, asm := range b.assemblies {
		if ext := asm.LookupType(path[:len(path)-1], path[len(path)-1]); ext != nil {
			return symbols.NewExternalRef(ext, b.root)
		}
	}
	return nil
}

func resolveInModule(mod *symbols.Module, path []string) symbols.Symbol {
	var current symbols.Symbol = mod
	for _, seg := range path {
		m, ok := current.(*symbols.Module)
		if !ok {
			return nil
		}
		var next symbols.Symbol
		for _, member := range m.Members() {
			if member.Name() == seg {
				next = member
				break
			}
		}
		if next == nil {
			return nil
		}
		current = next
	}
	return current
}

// ----------------------------------------------------------------------------
// Function bodies

func (b *Binder) bindFuncBody(w *funcWork) {
	outerScope, outerRet := b.scope, b.returnType
	b.scope = w.scope
	b.returnType = w.sym.Return

	body := w.decl.Body()
	switch body.Kind() {
	case syntax.KindInlineFuncBody:
		value := syntax.InlineFuncBody{Node: body}.Value()
		w.body = b.bindExpr(value)
		w.inline = true
		b.addConstraint(&AssignableConstraint{
			Target: w.sym.Return,
			Source: w.body.TypeHint(),
			Span:   value.Span(),
		})

	case syntax.KindBlockFuncBody:
		block := syntax.BlockFuncBody{Node: body}.Block()
		if block == nil {
			break
		}
		w.body = b.bindExpr(block)
		// A trailing block value is an implicit return.
		if blk, ok := w.body.(*UntypedBlock); ok && blk.Value != nil {
			b.addConstraint(&AssignableConstraint{
				Target: w.sym.Return,
				Source: blk.TypeHint(),
				Span:   blk.Value.Syntax().Span(),
			})
		}
	}

	b.scope = outerScope
	b.returnType = outerRet
}

// ----------------------------------------------------------------------------
// Statements

func (b *Binder) bindStmt(n *syntax.Node) UntypedStmt {
	switch n.Kind() {
	case syntax.KindDeclStmt:
		return b.bindDeclStmt(syntax.DeclStmt{Node: n})

	case syntax.KindExprStmt:
		expr := syntax.ExprStmt{Node: n}.Expr()
		if expr == nil {
			return nil
		}
		s := &UntypedExprStmt{Expr: b.bindExpr(expr)}
		s.syntax = n
		return s

	case syntax.KindNoOpStmt:
		return nil
	}
	return nil
}

func (b *Binder) bindDeclStmt(stmt syntax.DeclStmt) UntypedStmt {
	d := stmt.Decl()
	if d == nil {
		return nil
	}
	switch d.Kind() {
	case syntax.KindVariableDecl:
		return b.bindLocalDecl(syntax.VariableDecl{Node: d})

	case syntax.KindLabelDecl:
		// Declared by the enclosing block's label pre-pass.
		name := syntax.LabelDecl{Node: d}.Name().Text()
		if syms, _ := b.scope.LookupParent(name); len(syms) > 0 {
			if label, ok := syms[0].(*symbols.LabelSymbol); ok {
				s := &UntypedLabelStmt{Label: label}
				s.syntax = d
				return s
			}
		}
		return nil

	case syntax.KindFuncDecl:
		// Local function: declared here; its body is queued and bound
		// together with the other function bodies.
		b.collectFunc(syntax.FuncDecl{Node: d})
		return nil

	case syntax.KindImportDecl:
		b.bag.AddNew(diag.IllegalElementInContext,
			d.Span(), "import declaration")
		return nil
	}
	return nil
}

func (b *Binder) bindLocalDecl(decl syntax.VariableDecl) UntypedStmt {
	name := decl.Name()
	var t symbols.Type
	if typeNode := decl.Type(); typeNode != nil {
		t = b.bindType(typeNode)
	} else {
		t = b.freshVar()
	}
	local := symbols.NewLocal(name.Text(), t, decl.IsMutable())
	if existing := b.scope.Insert(local); existing != nil {
		b.bag.AddNew(diag.AmbiguousReference, name.Span(), local.Name())
	}

	s := &UntypedLocalDecl{Local: local}
	s.syntax = decl.Node
	if value := decl.Value(); value != nil {
		s.Value = b.bindExpr(value)
		b.addConstraint(&AssignableConstraint{
			Target: t,
			Source: s.Value.TypeHint(),
			Span:   value.Span(),
		})
	}
	return s
}

// ----------------------------------------------------------------------------
// Expressions

func (b *Binder) errorExpr(n *syntax.Node) UntypedExpr {
	e := &UntypedError{}
	e.syntax = n
	e.typ = symbols.ErrorType
	return e
}

func (b *Binder) bindExpr(n *syntax.Node) UntypedExpr {
	switch n.Kind() {
	case syntax.KindLiteralExpr:
		return b.bindLiteral(syntax.LiteralExpr{Node: n})

	case syntax.KindStringExpr:
		return b.bindString(syntax.StringExpr{Node: n})

	case syntax.KindNameExpr:
		return b.bindName(syntax.NameExpr{Node: n})

	case syntax.KindMemberExpr:
		return b.bindMember(syntax.MemberExpr{Node: n})

	case syntax.KindGroupingExpr:
		return b.bindExpr(syntax.GroupingExpr{Node: n}.Inner())

	case syntax.KindCallExpr:
		return b.bindCall(syntax.CallExpr{Node: n})

	case syntax.KindGenericExpr:
		return b.bindGenericValue(syntax.GenericExpr{Node: n})

	case syntax.KindIndexExpr:
		return b.bindIndex(syntax.IndexExpr{Node: n})

	case syntax.KindUnaryExpr:
		return b.bindUnary(syntax.UnaryExpr{Node: n})

	case syntax.KindBinaryExpr:
		return b.bindBinary(syntax.BinaryExpr{Node: n})

	case syntax.KindRelationalExpr:
		return b.bindRelational(syntax.RelationalExpr{Node: n})

	case syntax.KindAssignExpr:
		return b.bindAssign(syntax.AssignExpr{Node: n})

	case syntax.KindIfExpr:
		return b.bindIf(syntax.IfExpr{Node: n})

	case syntax.KindWhileExpr:
		return b.bindWhile(syntax.WhileExpr{Node: n})

	case syntax.KindBlockExpr:
		block := syntax.BlockExpr{Node: n}
		return b.bindBlockParts(n, block.Stmts(), block.Value())

	case syntax.KindReturnExpr:
		return b.bindReturn(syntax.ReturnExpr{Node: n})

	case syntax.KindGotoExpr:
		return b.bindGoto(syntax.GotoExpr{Node: n})
	}
	return b.errorExpr(n)
}

func (b *Binder) bindLiteral(e syntax.LiteralExpr) UntypedExpr {
	tok := e.Literal()
	lit := &UntypedLiteral{Value: tok.Value()}
	lit.syntax = e.Node
	switch tok.Kind() {
	case syntax.LiteralInteger:
		lit.typ = b.ctx.Int32
	case syntax.LiteralFloat:
		lit.typ = b.ctx.Float64
	case syntax.LiteralCharacter:
		lit.typ = b.ctx.Char
	case syntax.KeywordTrue, syntax.KeywordFalse:
		lit.typ = b.ctx.Bool
	default:
		lit.typ = symbols.ErrorType
	}
	return lit
}

// bindString binds a string expression. Interpolation holes are wrapped
// in calls to the intrinsic string conversion group; multi-line content
// is dedented by the closing delimiter's indentation prefix.
func (b *Binder) bindString(e syntax.StringExpr) UntypedExpr {
	str := &UntypedString{}
	str.syntax = e.Node
	str.typ = b.ctx.String

	prefix := ""
	if e.IsMultiLine() {
		for _, tr := range e.CloseToken().Green().LeadingTrivia() {
			if tr.Kind == syntax.TriviaWhitespace {
				prefix += tr.Text
			}
		}
	}

	parts := e.Parts()
	atLineStart := e.IsMultiLine()
	for i, part := range parts {
		switch part.Kind() {
		case syntax.KindTextStringPart:
			tok := syntax.TextStringPart{Node: part}.Content()
			if tok.Kind() == syntax.StringNewline {
				atLineStart = true
				// The break before the closing quotes is not content.
				if i < len(parts)-1 {
					str.Parts = append(str.Parts, UntypedStringPart{Text: "\n"})
				}
				continue
			}
			text, _ := tok.Value().(string)
			if atLineStart {
				text = strings.TrimPrefix(text, prefix)
				atLineStart = false
			}
			str.Parts = append(str.Parts, UntypedStringPart{Text: text})

		case syntax.KindInterpolationStringPart:
			atLineStart = false
			inner := b.bindExpr(syntax.InterpolationStringPart{Node: part}.Expr())
			ret := b.freshVar()
			promise := &OverloadPromise{}
			call := &UntypedCall{
				Callee:   b.groupExpr(part, "toString", b.ctx.ToStringGroup(), promise),
				Args:     []UntypedExpr{inner},
				Overload: promise,
			}
			call.syntax = part
			call.typ = ret
			b.addConstraint(&OverloadConstraint{
				Name:       "toString",
				Candidates: b.ctx.ToStringGroup(),
				Args:       []ArgRef{{Type: inner.TypeHint(), Span: part.Span()}},
				Ret:        ret,
				Promise:    promise,
				Span:       part.Span(),
			})
			str.Parts = append(str.Parts, UntypedStringPart{Value: call})
		}
	}
	return str
}

func (b *Binder) groupExpr(n *syntax.Node, name string, funcs []*symbols.FuncSymbol, promise *OverloadPromise) *UntypedFuncGroup {
	g := &UntypedFuncGroup{Name: name, Functions: funcs, Promise: promise}
	g.syntax = n
	g.typ = b.freshVar()
	return g
}

// bindName resolves a name in value context.
func (b *Binder) bindName(e syntax.NameExpr) UntypedExpr {
	name := e.Name()
	if name.IsMissing() {
		return b.errorExpr(e.Node)
	}
	syms, _ := b.scope.LookupParent(name.Text())
	if len(syms) == 0 {
		b.bag.AddNew(diag.UndefinedReference, name.Span(), name.Text())
		return b.errorExpr(e.Node)
	}
	return b.refExpr(e.Node, name.Text(), name.Span(), syms)
}

// refExpr classifies resolved symbols in value context.
func (b *Binder) refExpr(n *syntax.Node, name string, span diag.Span, syms []symbols.Symbol) UntypedExpr {
	switch sym := syms[0].(type) {
	case *symbols.LocalSymbol:
		r := &UntypedLocalRef{Local: sym}
		r.syntax = n
		r.typ = sym.Type
		return r

	case *symbols.GlobalSymbol:
		r := &UntypedGlobalRef{Global: sym}
		r.syntax = n
		r.typ = sym.Type
		return r

	case *symbols.ParamSymbol:
		r := &UntypedParamRef{Param: sym}
		r.syntax = n
		r.typ = sym.Type
		return r

	case *symbols.FuncSymbol:
		funcs := make([]*symbols.FuncSymbol, 0, len(syms))
		for _, s := range syms {
			if fn, ok := s.(*symbols.FuncSymbol); ok {
				funcs = append(funcs, fn)
			}
		}
		return b.groupExpr(n, name, funcs, &OverloadPromise{})

	case *symbols.Module:
		r := &UntypedModuleRef{Module: sym}
		r.syntax = n
		r.typ = symbols.ErrorType
		return r

	case *symbols.FieldSymbol:
		r := &UntypedFieldRef{Field: sym}
		r.syntax = n
		r.typ = sym.Type
		return r

	case *symbols.PropertySymbol:
		r := &UntypedPropertyRef{Prop: sym}
		r.syntax = n
		r.typ = sym.Type
		return r

	case *symbols.LabelSymbol:
		b.bag.AddNew(diag.IllegalReferenceContext, span, name, "value")
		return b.errorExpr(n)

	default:
		if t, isType := sym.(symbols.Type); isType {
			// Valid only as a static member receiver; other uses are
			// diagnosed where the reference is consumed.
			r := &UntypedTypeRef{Ref: t}
			r.syntax = n
			r.typ = symbols.ErrorType
			return r
		}
		b.bag.AddNew(diag.IllegalReferenceContext, span, name, "value")
		return b.errorExpr(n)
	}
}

// bindMember resolves receiver.name. Module receivers resolve statically;
// expression receivers defer to a Member constraint.
func (b *Binder) bindMember(e syntax.MemberExpr) UntypedExpr {
	recv := b.bindExpr(e.Receiver())
	name := e.Name()

	if mod, ok := recv.(*UntypedModuleRef); ok {
		var found []symbols.Symbol
		for _, m := range mod.Module.Members() {
			if m.Name() == name.Text() {
				found = append(found, m)
			}
		}
		if len(found) == 0 {
			b.bag.AddNew(diag.UndefinedReference, name.Span(), name.Text())
			return b.errorExpr(e.Node)
		}
		return b.refExpr(e.Node, name.Text(), name.Span(), found)
	}

	// Static member access: Type.name.
	if tr, ok := recv.(*UntypedTypeRef); ok {
		var found []symbols.Symbol
		if ext, ok := symbols.Prune(tr.Ref).(*symbols.ExternalRef); ok {
			for _, m := range ext.Members() {
				if m.Name() == name.Text() {
					found = append(found, m)
				}
			}
		}
		if len(found) == 0 {
			b.bag.AddNew(diag.UndefinedReference, name.Span(), name.Text())
			return b.errorExpr(e.Node)
		}
		return b.refExpr(e.Node, name.Text(), name.Span(), found)
	}

	m := &UntypedMember{Receiver: recv, Name: name.Text(), Promise: &MemberPromise{}}
	m.syntax = e.Node
	m.typ = b.freshVar()
	b.addConstraint(&MemberConstraint{
		Receiver: recv.TypeHint(),
		Name:     name.Text(),
		Result:   m.typ,
		Promise:  m.Promise,
		Span:     name.Span(),
	})
	return m
}

// bindCall binds a call. Function groups and deferred members go through
// Overload constraints; any other callee goes through a Call constraint.
func (b *Binder) bindCall(e syntax.CallExpr) UntypedExpr {
	callee := b.bindExpr(e.Callee())

	args := make([]UntypedExpr, 0, len(e.Args()))
	argRefs := make([]ArgRef, 0, len(e.Args()))
	for _, a := range e.Args() {
		arg := b.bindExpr(a)
		args = append(args, arg)
		argRefs = append(argRefs, ArgRef{Type: arg.TypeHint(), Span: a.Span()})
	}

	call := &UntypedCall{Callee: callee, Args: args}
	call.syntax = e.Node
	ret := b.freshVar()
	call.typ = ret

	switch callee := callee.(type) {
	case *UntypedFuncGroup:
		call.Overload = callee.Promise
		b.addConstraint(&OverloadConstraint{
			Name:       callee.Name,
			Candidates: callee.Functions,
			TypeArgs:   callee.TypeArgs,
			Args:       argRefs,
			Ret:        ret,
			Promise:    callee.Promise,
			Span:       e.Callee().Span(),
		})

	case *UntypedMember:
		call.Overload = &OverloadPromise{}
		b.addConstraint(&OverloadConstraint{
			Name:       callee.Name,
			FromMember: callee.Promise,
			Args:       argRefs,
			Ret:        ret,
			Promise:    call.Overload,
			Span:       e.Callee().Span(),
		})

	case *UntypedTypeRef:
		// A call's callee must not be a bare type name.
		b.bag.AddNew(diag.IllegalReferenceContext, e.Callee().Span(),
			describeCallee(e.Callee()), "callee")
		call.typ = symbols.ErrorType

	case *UntypedError:
		call.typ = symbols.ErrorType

	default:
		b.addConstraint(&CallConstraint{
			Callee: callee.TypeHint(),
			Desc:   describeCallee(e.Callee()),
			Args:   argRefs,
			Ret:    ret,
			Span:   e.Callee().Span(),
		})
	}
	return call
}

func describeCallee(n *syntax.Node) string {
	return strings.TrimSpace(syntax.Text(n.Green()))
}

// bindGenericValue binds an explicit generic instantiation in value
// position: the instantiated expression must name a function group.
func (b *Binder) bindGenericValue(e syntax.GenericExpr) UntypedExpr {
	inner := b.bindExpr(e.Instantiated())
	group, ok := inner.(*UntypedFuncGroup)
	if !ok {
		if _, isErr := inner.(*UntypedError); !isErr {
			b.bag.AddNew(diag.IllegalReferenceContext, e.Instantiated().Span(),
				describeCallee(e.Instantiated()), "generic instantiation")
		}
		return b.errorExpr(e.Node)
	}
	for _, arg := range e.TypeArgs() {
		group.TypeArgs = append(group.TypeArgs, b.bindType(arg))
	}
	group.syntax = e.Node
	return group
}

func (b *Binder) bindIndex(e syntax.IndexExpr) UntypedExpr {
	recv := b.bindExpr(e.Receiver())
	idx := &UntypedIndex{Receiver: recv}
	idx.syntax = e.Node

	for _, a := range e.Args() {
		arg := b.bindExpr(a)
		idx.Args = append(idx.Args, arg)
		b.addConstraint(&AssignableConstraint{
			Target: b.ctx.Int32,
			Source: arg.TypeHint(),
			Span:   a.Span(),
		})
	}

	elem := b.freshVar()
	idx.typ = elem
	b.addConstraint(&AssignableConstraint{
		Target: recv.TypeHint(),
		Source: symbols.NewArray(elem, maxInt(len(idx.Args), 1)),
		Span:   e.Receiver().Span(),
	})
	return idx
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (b *Binder) bindUnary(e syntax.UnaryExpr) UntypedExpr {
	var name string
	switch e.Op().Kind() {
	case syntax.Plus:
		name = "unary+"
	case syntax.Minus:
		name = "unary-"
	case syntax.KeywordNot:
		name = "not"
	default:
		return b.errorExpr(e.Node)
	}
	operand := b.bindExpr(e.Operand())
	return b.operatorCall(e.Node, name, e.Op().Span(), operand)
}

func (b *Binder) bindBinary(e syntax.BinaryExpr) UntypedExpr {
	op := e.Op()
	if op.Kind() == syntax.KeywordAnd || op.Kind() == syntax.KeywordOr {
		left := b.bindExpr(e.Left())
		right := b.bindExpr(e.Right())
		b.addConstraint(&AssignableConstraint{Target: b.ctx.Bool, Source: left.TypeHint(), Span: e.Left().Span()})
		b.addConstraint(&AssignableConstraint{Target: b.ctx.Bool, Source: right.TypeHint(), Span: e.Right().Span()})
		l := &UntypedLogical{IsAnd: op.Kind() == syntax.KeywordAnd, Left: left, Right: right}
		l.syntax = e.Node
		l.typ = b.ctx.Bool
		return l
	}

	left := b.bindExpr(e.Left())
	right := b.bindExpr(e.Right())
	return b.operatorCall(e.Node, op.Text(), op.Span(), left, right)
}

// operatorCall builds an intrinsic operator invocation deferred through
// an Overload constraint.
func (b *Binder) operatorCall(n *syntax.Node, name string, span diag.Span, operands ...UntypedExpr) UntypedExpr {
	candidates := b.ctx.Operators(name)
	promise := &OverloadPromise{}

	call := &UntypedCall{Callee: b.groupExpr(n, name, candidates, promise), Args: operands, Overload: promise}
	call.syntax = n
	ret := b.freshVar()
	call.typ = ret

	argRefs := make([]ArgRef, len(operands))
	for i, o := range operands {
		argRefs[i] = ArgRef{Type: o.TypeHint(), Span: o.Syntax().Span()}
	}
	b.addConstraint(&OverloadConstraint{
		Name:       name,
		Candidates: candidates,
		Args:       argRefs,
		Ret:        ret,
		Promise:    promise,
		Span:       span,
	})
	return call
}

func (b *Binder) bindRelational(e syntax.RelationalExpr) UntypedExpr {
	rel := &UntypedRelational{First: b.bindExpr(e.Left())}
	rel.syntax = e.Node
	rel.typ = b.ctx.Bool

	prev := rel.First
	for _, cmp := range e.Comparisons() {
		right := b.bindExpr(cmp.Right())
		promise := &OverloadPromise{}
		ret := b.freshVar()
		b.addConstraint(&OverloadConstraint{
			Name:       cmp.Op().Text(),
			Candidates: b.ctx.Operators(cmp.Op().Text()),
			Args: []ArgRef{
				{Type: prev.TypeHint(), Span: prev.Syntax().Span()},
				{Type: right.TypeHint(), Span: cmp.Right().Span()},
			},
			Ret:     ret,
			Promise: promise,
			Span:    cmp.Op().Span(),
		})
		rel.Links = append(rel.Links, UntypedRelationalLink{Promise: promise, Right: right})
		prev = right
	}
	return rel
}

// bindAssign binds an assignment. The target must be an lvalue; writes to
// immutable bindings are diagnosed.
func (b *Binder) bindAssign(e syntax.AssignExpr) UntypedExpr {
	target := b.bindExpr(e.Target())
	value := b.bindExpr(e.Value())
	b.checkAssignable(e.Target(), target)

	a := &UntypedAssign{Target: target, Value: value}
	a.syntax = e.Node
	a.typ = b.ctx.Unit

	var opName string
	switch e.Op().Kind() {
	case syntax.PlusAssign:
		opName = "+"
	case syntax.MinusAssign:
		opName = "-"
	case syntax.StarAssign:
		opName = "*"
	case syntax.SlashAssign:
		opName = "/"
	}

	if opName == "" {
		b.addConstraint(&AssignableConstraint{
			Target: target.TypeHint(),
			Source: value.TypeHint(),
			Span:   e.Value().Span(),
		})
		return a
	}

	promise := &OverloadPromise{}
	ret := b.freshVar()
	b.addConstraint(&OverloadConstraint{
		Name:       opName,
		Candidates: b.ctx.Operators(opName),
		Args: []ArgRef{
			{Type: target.TypeHint(), Span: e.Target().Span()},
			{Type: value.TypeHint(), Span: e.Value().Span()},
		},
		Ret:     ret,
		Promise: promise,
		Span:    e.Op().Span(),
	})
	b.addConstraint(&AssignableConstraint{
		Target: target.TypeHint(),
		Source: ret,
		Span:   e.Op().Span(),
	})
	a.Compound = promise
	return a
}

// checkAssignable validates that an expression is a writable location.
func (b *Binder) checkAssignable(n *syntax.Node, target UntypedExpr) {
	switch target := target.(type) {
	case *UntypedLocalRef:
		if !target.Local.Mutable {
			b.bag.AddNew(diag.IllegalReferenceContext, n.Span(), target.Local.Name(), "assignment target")
		}
	case *UntypedGlobalRef:
		if !target.Global.Mutable {
			b.bag.AddNew(diag.IllegalReferenceContext, n.Span(), target.Global.Name(), "assignment target")
		}
	case *UntypedParamRef, *UntypedIndex, *UntypedMember, *UntypedFieldRef, *UntypedError:
		// Writable (or already poisoned).
	default:
		b.bag.AddNew(diag.IllegalReferenceContext, n.Span(), "expression", "assignment target")
	}
}

func (b *Binder) bindIf(e syntax.IfExpr) UntypedExpr {
	cond := b.bindExpr(e.Cond())
	b.addConstraint(&AssignableConstraint{
		Target: b.ctx.Bool,
		Source: cond.TypeHint(),
		Span:   e.Cond().Span(),
	})

	out := &UntypedIf{Cond: cond}
	out.syntax = e.Node
	out.Then = b.bindExpr(e.Then())

	if elseNode := e.Else(); elseNode != nil {
		out.Else = b.bindExpr(elseNode)
		result := b.freshVar()
		b.addConstraint(&AssignableConstraint{Target: result, Source: out.Then.TypeHint(), Span: e.Then().Span()})
		b.addConstraint(&AssignableConstraint{Target: result, Source: out.Else.TypeHint(), Span: elseNode.Span()})
		out.typ = result
	} else {
		out.typ = b.ctx.Unit
	}
	return out
}

func (b *Binder) bindWhile(e syntax.WhileExpr) UntypedExpr {
	cond := b.bindExpr(e.Cond())
	b.addConstraint(&AssignableConstraint{
		Target: b.ctx.Bool,
		Source: cond.TypeHint(),
		Span:   e.Cond().Span(),
	})

	// While introduces its own scope boundary.
	outer := b.scope
	b.scope = symbols.NewScope(outer)
	body := b.bindExpr(e.Body())
	b.scope = outer

	out := &UntypedWhile{Cond: cond, Body: body}
	out.syntax = e.Node
	out.typ = b.ctx.Unit
	return out
}

// bindBlockParts binds a block: labels are pre-declared so gotos may jump
// forward, then statements bind in order.
func (b *Binder) bindBlockParts(n *syntax.Node, stmts []*syntax.Node, value *syntax.Node) UntypedExpr {
	outer := b.scope
	b.scope = symbols.NewScope(outer)

	// Label pre-pass.
	for _, s := range stmts {
		if s.Kind() != syntax.KindDeclStmt {
			continue
		}
		d := syntax.DeclStmt{Node: s}.Decl()
		if d == nil || d.Kind() != syntax.KindLabelDecl {
			continue
		}
		name := syntax.LabelDecl{Node: d}.Name()
		label := symbols.NewLabel(name.Text())
		if existing := b.scope.Insert(label); existing != nil {
			b.bag.AddNew(diag.AmbiguousReference, name.Span(), label.Name())
		}
	}

	block := &UntypedBlock{}
	block.syntax = n
	for _, s := range stmts {
		if bound := b.bindStmt(s); bound != nil {
			block.Stmts = append(block.Stmts, bound)
		}
	}
	if value != nil {
		block.Value = b.bindExpr(value)
		block.typ = block.Value.TypeHint()
	} else {
		block.typ = b.ctx.Unit
	}

	b.scope = outer
	return block
}

func (b *Binder) bindReturn(e syntax.ReturnExpr) UntypedExpr {
	out := &UntypedReturn{}
	out.syntax = e.Node
	out.typ = symbols.NeverType

	expected := b.returnType
	if expected == nil {
		expected = symbols.ErrorType
	}
	if value := e.Value(); value != nil {
		out.Value = b.bindExpr(value)
		b.addConstraint(&AssignableConstraint{
			Target: expected,
			Source: out.Value.TypeHint(),
			Span:   value.Span(),
		})
	} else {
		b.addConstraint(&AssignableConstraint{
			Target: expected,
			Source: b.ctx.Unit,
			Span:   e.Span(),
		})
	}
	return out
}

func (b *Binder) bindGoto(e syntax.GotoExpr) UntypedExpr {
	target := syntax.NameLabel{Node: e.Target()}
	name := target.Name()

	syms, _ := b.scope.LookupParent(name.Text())
	var label *symbols.LabelSymbol
	for _, s := range syms {
		if l, ok := s.(*symbols.LabelSymbol); ok {
			label = l
			break
		}
	}
	if label == nil {
		if !name.IsMissing() {
			b.bag.AddNew(diag.UndefinedReference, name.Span(), name.Text())
		}
		return b.errorExpr(e.Node)
	}

	out := &UntypedGoto{Target: label}
	out.syntax = e.Node
	out.typ = symbols.NeverType
	return out
}

// ----------------------------------------------------------------------------
// Types

// bindType resolves a type expression to a type symbol.
func (b *Binder) bindType(n *syntax.Node) symbols.Type {
	if n == nil {
		return symbols.ErrorType
	}
	switch n.Kind() {
	case syntax.KindNameType:
		name := syntax.NameType{Node: n}.Name()
		if name.IsMissing() {
			return symbols.ErrorType
		}
		return b.resolveTypeName(name.Text(), name.Span())

	case syntax.KindMemberType:
		t := syntax.MemberType{Node: n}
		return b.bindMemberType(t)

	case syntax.KindGenericType:
		return b.bindGenericType(syntax.GenericType{Node: n})
	}
	return symbols.ErrorType
}

func (b *Binder) resolveTypeName(name string, span diag.Span) symbols.Type {
	syms, _ := b.scope.LookupParent(name)
	if len(syms) == 0 {
		b.bag.AddNew(diag.UndefinedReference, span, name)
		return symbols.ErrorType
	}
	if t, ok := syms[0].(symbols.Type); ok {
		return t
	}
	b.bag.AddNew(diag.IllegalReferenceContext, span, name, "type")
	return symbols.ErrorType
}

// bindMemberType resolves Path.To.Type through modules and metadata.
func (b *Binder) bindMemberType(t syntax.MemberType) symbols.Type {
	segments := typePathSegments(t.Node)
	if segments == nil {
		return symbols.ErrorType
	}

	// Head resolves in scope; the rest must be module members.
	syms, _ := b.scope.LookupParent(segments[0])
	if len(syms) == 0 {
		b.bag.AddNew(diag.UndefinedReference, t.Span(), segments[0])
		return symbols.ErrorType
	}
	current := syms[0]
	for _, seg := range segments[1:] {
		next := memberByName(current, seg)
		if next == nil {
			b.bag.AddNew(diag.UndefinedReference, t.Name().Span(), seg)
			return symbols.ErrorType
		}
		current = next
	}
	if typ, ok := current.(symbols.Type); ok {
		return typ
	}
	b.bag.AddNew(diag.IllegalReferenceContext, t.Name().Span(), segments[len(segments)-1], "type")
	return symbols.ErrorType
}

func memberByName(sym symbols.Symbol, name string) symbols.Symbol {
	switch sym := sym.(type) {
	case *symbols.Module:
		for _, m := range sym.Members() {
			if m.Name() == name {
				return m
			}
		}
	case *symbols.ExternalRef:
		for _, m := range sym.Members() {
			if m.Name() == name {
				return m
			}
		}
	}
	return nil
}

func typePathSegments(n *syntax.Node) []string {
	switch n.Kind() {
	case syntax.KindNameType:
		return []string{syntax.NameType{Node: n}.Name().Text()}
	case syntax.KindMemberType:
		t := syntax.MemberType{Node: n}
		head := typePathSegments(t.Receiver())
		if head == nil {
			return nil
		}
		return append(head, t.Name().Text())
	}
	return nil
}

// bindGenericType instantiates a generic type. Array<T> is the built-in
// rank-1 array; external generic types become generic instances.
func (b *Binder) bindGenericType(t syntax.GenericType) symbols.Type {
	args := make([]symbols.Type, 0, len(t.TypeArgs()))
	for _, a := range t.TypeArgs() {
		args = append(args, b.bindType(a))
	}

	inner := t.Instantiated()
	if inner.Kind() == syntax.KindNameType {
		if name := (syntax.NameType{Node: inner}).Name(); name.Text() == "Array" {
			if len(args) != 1 {
				b.bag.AddNew(diag.GenericArityMismatch, t.Span(), "Array", 1, len(args))
				return symbols.ErrorType
			}
			return symbols.NewArray(args[0], 1)
		}
	}

	def := b.bindType(inner)
	if symbols.IsError(def) {
		return symbols.ErrorType
	}
	if ext, ok := def.(*symbols.ExternalRef); ok {
		want := len(ext.External().GenericParameters())
		if want != len(args) {
			b.bag.AddNew(diag.GenericArityMismatch, t.Span(), ext.Name(), want, len(args))
			return symbols.ErrorType
		}
	}
	return symbols.NewGenericInstance(def, args)
}
