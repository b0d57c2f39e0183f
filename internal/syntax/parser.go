package syntax

import (
	"strings"

	"github.com/lucyelle/DracoCompiler/internal/diag"
)

// Parser builds a green syntax tree from the token stream. It keeps a
// single token of lookahead in the common case and peeks further only for
// `<` disambiguation and label detection. On unexpected input it recovers
// in panic mode: expected tokens are materialized as zero-width missing
// tokens, and skipped input is preserved inside Unexpected nodes so the
// tree still reconstructs the source byte-for-byte.
type Parser struct {
	lexer *Lexer
	buf   []*GreenToken
}

// Parse parses source text into a syntax tree.
func Parse(src string) *Tree {
	p := &Parser{lexer: NewLexer(src)}
	return NewTree(p.parseCompilationUnit())
}

// ----------------------------------------------------------------------------
// Token navigation

// peek returns the token n positions ahead without consuming.
func (p *Parser) peek(n int) *GreenToken {
	for len(p.buf) <= n {
		p.buf = append(p.buf, p.lexer.Next())
	}
	return p.buf[n]
}

// at reports whether the next token has the given kind.
func (p *Parser) at(kind TokenKind) bool { return p.peek(0).Kind() == kind }

// take consumes and returns the next token.
func (p *Parser) take() *GreenToken {
	tok := p.peek(0)
	if tok.Kind() != EndOfInput {
		p.buf = p.buf[1:]
	}
	return tok
}

// expect consumes a token of the given kind, or materializes a zero-width
// missing token carrying an ExpectedToken diagnostic.
func (p *Parser) expect(kind TokenKind) *GreenToken {
	if p.at(kind) {
		return p.take()
	}
	return NewMissingToken(kind).WithDiagnostics(
		diag.New(diag.ExpectedToken, diag.Span{}, kind.String()))
}

// opt consumes a token of the given kind if present; otherwise the slot
// stays absent.
func (p *Parser) opt(kind TokenKind) Green {
	if p.at(kind) {
		return p.take()
	}
	return nil
}

// ----------------------------------------------------------------------------
// Error recovery

// isSyncKind reports whether a token kind is a synchronization point:
// declaration and expression starters, closing brackets, and end of input.
func isSyncKind(kind TokenKind) bool {
	switch kind {
	case Semicolon, ParenClose, CurlyClose, BracketClose, EndOfInput,
		InterpolationEnd, LineStringEnd, MultiLineStringEnd:
		return true
	}
	return isDeclStart(kind) || isExprStart(kind)
}

// isDeclStart reports whether a token kind can begin a declaration.
func isDeclStart(kind TokenKind) bool {
	switch kind {
	case KeywordImport, KeywordFunc, KeywordModule, KeywordVar, KeywordVal,
		KeywordInternal, KeywordPublic:
		return true
	}
	return false
}

// isExprStart reports whether a token kind can begin an expression.
func isExprStart(kind TokenKind) bool {
	switch kind {
	case Identifier, LiteralInteger, LiteralFloat, LiteralCharacter,
		KeywordTrue, KeywordFalse, LineStringStart, MultiLineStringStart,
		ParenOpen, CurlyOpen, KeywordIf, KeywordWhile, KeywordNot,
		KeywordReturn, KeywordGoto, Plus, Minus:
		return true
	}
	return false
}

// unexpected consumes input until a synchronization point and wraps it in
// an Unexpected node with the given diagnostic. At least one token is
// consumed when the cursor itself sits on a sync point, so callers always
// make progress.
func (p *Parser) unexpected(what string) *GreenNode {
	var children []Green
	for !p.at(EndOfInput) && !isSyncKind(p.peek(0).Kind()) {
		children = append(children, p.take())
	}
	if len(children) == 0 && !p.at(EndOfInput) {
		children = append(children, p.take())
	}
	n := NewGreenNode(KindUnexpected, children...)
	return n.WithDiagnostics(diag.New(diag.UnexpectedInput,
		diag.Span{Start: 0, End: n.FullWidth()}, what))
}

// ----------------------------------------------------------------------------
// Compilation unit and declarations

func (p *Parser) parseCompilationUnit() *GreenNode {
	var decls []Green
	for !p.at(EndOfInput) {
		decls = append(decls, p.parseDecl(true))
	}
	return NewGreenNode(KindCompilationUnit,
		NewGreenNode(KindDeclList, decls...),
		p.take())
}

// parseDecl parses one declaration. global selects the compilation-unit /
// module context; labels are local-only and modules are global-only, and
// the misplaced form is wrapped in an Unexpected node.
func (p *Parser) parseDecl(global bool) Green {
	vis := p.parseVisibility()

	switch p.peek(0).Kind() {
	case KeywordImport:
		return p.parseImportDecl()

	case KeywordFunc:
		return p.parseFuncDecl(vis)

	case KeywordModule:
		if !global {
			mod := p.parseModuleDecl(vis)
			return wrapIllegal(mod, "module declaration")
		}
		return p.parseModuleDecl(vis)

	case KeywordVar, KeywordVal:
		return p.parseVariableDecl(vis)

	case Identifier:
		if p.peek(1).Kind() == Colon {
			label := NewGreenNode(KindLabelDecl, p.take(), p.take())
			if global {
				return wrapIllegal(label, "label declaration")
			}
			return label
		}
		fallthrough

	default:
		if vis != nil {
			n := NewGreenNode(KindUnexpected, vis, p.unexpected("declaration"))
			return n
		}
		return p.unexpected("declaration")
	}
}

// parseVisibility consumes an optional visibility modifier.
func (p *Parser) parseVisibility() Green {
	if p.peek(0).Kind().IsVisibility() {
		return p.take()
	}
	return nil
}

// wrapIllegal wraps a well-formed but misplaced declaration in an
// Unexpected node carrying an IllegalElementInContext diagnostic.
func wrapIllegal(decl *GreenNode, what string) *GreenNode {
	n := NewGreenNode(KindUnexpected, decl)
	return n.WithDiagnostics(diag.New(diag.IllegalElementInContext,
		diag.Span{Start: 0, End: n.FullWidth()}, what))
}

// parseImportDecl parses: import Path.To.Module;
func (p *Parser) parseImportDecl() *GreenNode {
	kw := p.take()
	path := p.parseImportPath()
	return NewGreenNode(KindImportDecl, kw, path, p.expect(Semicolon))
}

// parseImportPath parses a dotted module path as name/member expressions.
func (p *Parser) parseImportPath() Green {
	var path Green = NewGreenNode(KindNameExpr, p.expect(Identifier))
	for p.at(Dot) {
		path = NewGreenNode(KindMemberExpr, path, p.take(), p.expect(Identifier))
	}
	return path
}

// parseFuncDecl parses:
//
//	func name<T...>(params): Type { ... }
//	func name(params): Type = expr;
func (p *Parser) parseFuncDecl(vis Green) *GreenNode {
	kw := p.take()
	name := p.expect(Identifier)

	var generics Green
	if p.at(Less) {
		generics = p.parseGenericParamList()
	}

	open := p.expect(ParenOpen)
	params := p.parseParamList()
	closing := p.expect(ParenClose)

	var ret Green
	if p.at(Colon) {
		ret = NewGreenNode(KindTypeSpecifier, p.take(), p.parseType())
	}

	var body Green
	if p.at(Assign) {
		body = NewGreenNode(KindInlineFuncBody, p.take(), p.parseExpr(), p.expect(Semicolon))
	} else if p.at(CurlyOpen) {
		body = NewGreenNode(KindBlockFuncBody, p.parseBlockExpr())
	} else {
		// Recover with an empty block.
		body = NewGreenNode(KindBlockFuncBody,
			NewGreenNode(KindBlockExpr, p.expect(CurlyOpen),
				NewGreenNode(KindStmtList), nil, NewMissingToken(CurlyClose)))
	}

	return NewGreenNode(KindFuncDecl, vis, kw, name, generics, open, params, closing, ret, body)
}

func (p *Parser) parseGenericParamList() *GreenNode {
	var children []Green
	children = append(children, p.take()) // <
	for {
		children = append(children, NewGreenNode(KindGenericParam, p.expect(Identifier)))
		if !p.at(Comma) {
			break
		}
		children = append(children, p.take())
	}
	children = append(children, p.expect(Greater))
	return NewGreenNode(KindGenericParamList, children...)
}

func (p *Parser) parseParamList() *GreenNode {
	var children []Green
	for !p.at(ParenClose) && !p.at(EndOfInput) {
		children = append(children, p.parseParam())
		if !p.at(Comma) {
			break
		}
		children = append(children, p.take())
	}
	return NewGreenNode(KindParamList, children...)
}

func (p *Parser) parseParam() *GreenNode {
	return NewGreenNode(KindParam,
		p.opt(Ellipsis),
		p.expect(Identifier),
		p.expect(Colon),
		p.parseType())
}

// parseModuleDecl parses: module Name { decls... }
func (p *Parser) parseModuleDecl(vis Green) *GreenNode {
	kw := p.take()
	name := p.expect(Identifier)
	open := p.expect(CurlyOpen)

	var decls []Green
	for !p.at(CurlyClose) && !p.at(EndOfInput) {
		decls = append(decls, p.parseDecl(true))
	}

	return NewGreenNode(KindModuleDecl, vis, kw, name, open,
		NewGreenNode(KindDeclList, decls...), p.expect(CurlyClose))
}

// parseVariableDecl parses: var|val name: Type = value;
func (p *Parser) parseVariableDecl(vis Green) *GreenNode {
	kw := p.take()
	name := p.expect(Identifier)

	var typ Green
	if p.at(Colon) {
		typ = NewGreenNode(KindTypeSpecifier, p.take(), p.parseType())
	}

	var value Green
	if p.at(Assign) {
		value = NewGreenNode(KindValueSpecifier, p.take(), p.parseExpr())
	}

	return NewGreenNode(KindVariableDecl, vis, kw, name, typ, value, p.expect(Semicolon))
}

// ----------------------------------------------------------------------------
// Statements

// isControlFlowKind reports whether an expression kind carries its own
// block structure, making the trailing semicolon optional.
func isControlFlowKind(g Green) bool {
	n, ok := g.(*GreenNode)
	if !ok {
		return false
	}
	switch n.Kind() {
	case KindBlockExpr, KindIfExpr, KindWhileExpr:
		return true
	}
	return false
}

func (p *Parser) parseStmt() Green {
	switch kind := p.peek(0).Kind(); {
	case kind == Semicolon:
		return NewGreenNode(KindNoOpStmt, p.take())

	case isDeclStart(kind),
		kind == Identifier && p.peek(1).Kind() == Colon:
		return NewGreenNode(KindDeclStmt, p.parseDecl(false))

	default:
		expr := p.parseExpr()
		if isControlFlowKind(expr) {
			return NewGreenNode(KindExprStmt, expr, p.opt(Semicolon))
		}
		return NewGreenNode(KindExprStmt, expr, p.expect(Semicolon))
	}
}

// ----------------------------------------------------------------------------
// Expressions
//
// Precedence, loosest first:
//
//	0  return expr?, goto label
//	1  = += -= *= /=     right
//	2  or                left
//	3  and               left
//	4  not               prefix
//	5  relational        chained
//	6  + -               left
//	7  * / mod rem       left
//	8  + -               prefix
//	9  call, index, generic, member
//	10 atoms

func (p *Parser) parseExpr() Green {
	switch p.peek(0).Kind() {
	case KeywordReturn:
		kw := p.take()
		var value Green
		if isExprStart(p.peek(0).Kind()) {
			value = p.parseAssign()
		}
		return NewGreenNode(KindReturnExpr, kw, value)

	case KeywordGoto:
		kw := p.take()
		target := NewGreenNode(KindNameLabel, p.expect(Identifier))
		return NewGreenNode(KindGotoExpr, kw, target)

	default:
		return p.parseAssign()
	}
}

func (p *Parser) parseAssign() Green {
	left := p.parseOr()
	if p.peek(0).Kind().IsAssignment() {
		op := p.take()
		right := p.parseAssign() // right-associative
		return NewGreenNode(KindAssignExpr, left, op, right)
	}
	return left
}

func (p *Parser) parseOr() Green {
	left := p.parseAnd()
	for p.at(KeywordOr) {
		op := p.take()
		left = NewGreenNode(KindBinaryExpr, left, op, p.parseAnd())
	}
	return left
}

func (p *Parser) parseAnd() Green {
	left := p.parseNot()
	for p.at(KeywordAnd) {
		op := p.take()
		left = NewGreenNode(KindBinaryExpr, left, op, p.parseNot())
	}
	return left
}

func (p *Parser) parseNot() Green {
	if p.at(KeywordNot) {
		op := p.take()
		return NewGreenNode(KindUnaryExpr, op, p.parseNot())
	}
	return p.parseRelational()
}

// parseRelational parses a chained relational expression:
// a < b > c becomes Relational(a, [(<, b), (>, c)]).
func (p *Parser) parseRelational() Green {
	left := p.parseAdditive()
	if !p.peek(0).Kind().IsRelational() {
		return left
	}
	var comparisons []Green
	for p.peek(0).Kind().IsRelational() {
		op := p.take()
		comparisons = append(comparisons, NewGreenNode(KindComparison, op, p.parseAdditive()))
	}
	return NewGreenNode(KindRelationalExpr, left,
		NewGreenNode(KindComparisonList, comparisons...))
}

func (p *Parser) parseAdditive() Green {
	left := p.parseMultiplicative()
	for p.at(Plus) || p.at(Minus) {
		op := p.take()
		left = NewGreenNode(KindBinaryExpr, left, op, p.parseMultiplicative())
	}
	return left
}

func (p *Parser) parseMultiplicative() Green {
	left := p.parsePrefix()
	for p.at(Star) || p.at(Slash) || p.at(KeywordMod) || p.at(KeywordRem) {
		op := p.take()
		left = NewGreenNode(KindBinaryExpr, left, op, p.parsePrefix())
	}
	return left
}

func (p *Parser) parsePrefix() Green {
	if p.at(Plus) || p.at(Minus) {
		op := p.take()
		return NewGreenNode(KindUnaryExpr, op, p.parsePrefix())
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Green {
	expr := p.parseAtom()
	for {
		switch p.peek(0).Kind() {
		case ParenOpen:
			open := p.take()
			args := p.parseArgList(ParenClose)
			expr = NewGreenNode(KindCallExpr, expr, open, args, p.expect(ParenClose))

		case BracketOpen:
			open := p.take()
			args := p.parseArgList(BracketClose)
			expr = NewGreenNode(KindIndexExpr, expr, open, args, p.expect(BracketClose))

		case Dot:
			dot := p.take()
			expr = NewGreenNode(KindMemberExpr, expr, dot, p.expect(Identifier))

		case Less:
			if !canInstantiate(expr) || !p.scanGenericClose() {
				return expr
			}
			lt := p.take()
			args := p.parseTypeArgList()
			expr = NewGreenNode(KindGenericExpr, expr, lt, args, p.expect(Greater))

		default:
			return expr
		}
	}
}

// canInstantiate reports whether an expression can syntactically take
// generic arguments: only names and member accesses qualify.
func canInstantiate(g Green) bool {
	n, ok := g.(*GreenNode)
	if !ok {
		return false
	}
	return n.Kind() == KindNameExpr || n.Kind() == KindMemberExpr
}

// scanGenericClose disambiguates `<` after a name or member access. It
// peeks over identifiers, commas, dots, and balanced nested angle pairs;
// reaching the matching `>` it inspects the follower: `(` means generics,
// an expression starter means comparison, anything else means generics.
// Any other token inside the scanned region means comparison. The scan
// never consumes from the token stream.
func (p *Parser) scanGenericClose() bool {
	depth := 1
	i := 1
	for depth > 0 {
		switch p.peek(i).Kind() {
		case Identifier, Comma, Dot:
			i++
		case Less:
			depth++
			i++
		case Greater:
			depth--
			i++
		default:
			return false
		}
	}
	switch follower := p.peek(i).Kind(); {
	case follower == ParenOpen:
		return true
	case isExprStart(follower):
		return false
	default:
		return true
	}
}

// parseArgList parses a comma-separated expression list up to the given
// closing token.
func (p *Parser) parseArgList(closing TokenKind) *GreenNode {
	var children []Green
	for !p.at(closing) && !p.at(EndOfInput) {
		children = append(children, p.parseExpr())
		if !p.at(Comma) {
			break
		}
		children = append(children, p.take())
	}
	return NewGreenNode(KindArgList, children...)
}

func (p *Parser) parseAtom() Green {
	switch p.peek(0).Kind() {
	case LiteralInteger, LiteralFloat, LiteralCharacter, KeywordTrue, KeywordFalse:
		return NewGreenNode(KindLiteralExpr, p.take())

	case Identifier:
		return NewGreenNode(KindNameExpr, p.take())

	case LineStringStart, MultiLineStringStart:
		return p.parseStringExpr()

	case ParenOpen:
		open := p.take()
		inner := p.parseExpr()
		return NewGreenNode(KindGroupingExpr, open, inner, p.expect(ParenClose))

	case CurlyOpen:
		return p.parseBlockExpr()

	case KeywordIf:
		return p.parseIfExpr()

	case KeywordWhile:
		return p.parseWhileExpr()

	case KeywordReturn, KeywordGoto:
		// Permitted here so they can appear as operands, as in `x = return 1`.
		return p.parseExpr()

	default:
		return p.unexpected("expression")
	}
}

func (p *Parser) parseIfExpr() *GreenNode {
	kw := p.take()
	open := p.expect(ParenOpen)
	cond := p.parseExpr()
	closing := p.expect(ParenClose)
	then := p.parseExpr()

	var elseClause Green
	if p.at(KeywordElse) {
		elseKw := p.take()
		elseClause = NewGreenNode(KindElseClause, elseKw, p.parseExpr())
	}
	return NewGreenNode(KindIfExpr, kw, open, cond, closing, then, elseClause)
}

func (p *Parser) parseWhileExpr() *GreenNode {
	kw := p.take()
	open := p.expect(ParenOpen)
	cond := p.parseExpr()
	closing := p.expect(ParenClose)
	body := p.parseExpr()
	return NewGreenNode(KindWhileExpr, kw, open, cond, closing, body)
}

// parseBlockExpr parses { stmts... value? }. A trailing expression with no
// semicolon before the closing brace becomes the block's value.
func (p *Parser) parseBlockExpr() *GreenNode {
	open := p.take()
	var stmts []Green
	var value Green

	for !p.at(CurlyClose) && !p.at(EndOfInput) {
		if p.at(Semicolon) {
			stmts = append(stmts, NewGreenNode(KindNoOpStmt, p.take()))
			continue
		}
		if kind := p.peek(0).Kind(); isDeclStart(kind) ||
			(kind == Identifier && p.peek(1).Kind() == Colon) {
			stmts = append(stmts, NewGreenNode(KindDeclStmt, p.parseDecl(false)))
			continue
		}

		expr := p.parseExpr()
		switch {
		case p.at(Semicolon):
			stmts = append(stmts, NewGreenNode(KindExprStmt, expr, p.take()))
		case p.at(CurlyClose) || p.at(EndOfInput):
			value = expr
		case isControlFlowKind(expr):
			stmts = append(stmts, NewGreenNode(KindExprStmt, expr, nil))
		default:
			stmts = append(stmts, NewGreenNode(KindExprStmt, expr, p.expect(Semicolon)))
		}
	}

	return NewGreenNode(KindBlockExpr, open,
		NewGreenNode(KindStmtList, stmts...), value, p.expect(CurlyClose))
}

// ----------------------------------------------------------------------------
// Types

func (p *Parser) parseType() Green {
	var typ Green = NewGreenNode(KindNameType, p.expect(Identifier))
	for {
		switch p.peek(0).Kind() {
		case Dot:
			dot := p.take()
			typ = NewGreenNode(KindMemberType, typ, dot, p.expect(Identifier))
		case Less:
			lt := p.take()
			args := p.parseTypeArgList()
			typ = NewGreenNode(KindGenericType, typ, lt, args, p.expect(Greater))
		default:
			return typ
		}
	}
}

func (p *Parser) parseTypeArgList() *GreenNode {
	var children []Green
	for !p.at(Greater) && !p.at(EndOfInput) {
		children = append(children, p.parseType())
		if !p.at(Comma) {
			break
		}
		children = append(children, p.take())
	}
	return NewGreenNode(KindTypeArgList, children...)
}

// ----------------------------------------------------------------------------
// Strings

func (p *Parser) parseStringExpr() Green {
	open := p.take()
	endKind := LineStringEnd
	if open.Kind() == MultiLineStringStart {
		endKind = MultiLineStringEnd
	}

	var parts []Green
	for {
		switch p.peek(0).Kind() {
		case StringContent, StringNewline:
			parts = append(parts, NewGreenNode(KindTextStringPart, p.take()))
			continue
		case InterpolationStart:
			istart := p.take()
			inner := p.parseExpr()
			parts = append(parts, NewGreenNode(KindInterpolationStringPart,
				istart, inner, p.expect(InterpolationEnd)))
			continue
		}
		break
	}

	node := NewGreenNode(KindStringExpr, open,
		NewGreenNode(KindStringPartList, parts...), p.expect(endKind))
	if endKind == MultiLineStringEnd {
		if ds := checkMultiLineString(node); len(ds) > 0 {
			node = node.WithDiagnostics(ds...)
		}
	}
	return node
}

// checkMultiLineString validates the layout rules of a multi-line string:
// the opening quotes end their line, the closing quotes stand on their own
// line, and every content line starts with the closing quotes' indentation
// prefix. Diagnostic spans are relative to the string node.
func checkMultiLineString(node *GreenNode) []*diag.Diagnostic {
	var ds []*diag.Diagnostic

	open := node.Child(0).(*GreenToken)
	partList := node.Child(1).(*GreenNode)
	closing := node.Child(2).(*GreenToken)

	openHasNewline := false
	for _, tr := range open.TrailingTrivia() {
		if tr.Kind == TriviaNewline {
			openHasNewline = true
		}
	}
	if !openHasNewline {
		ds = append(ds, diag.New(diag.ExtraTokensInlineWithOpenQuotesOfMultiLineString,
			diag.Span{Start: 0, End: open.FullWidth()}))
		return ds
	}

	// The closing delimiter must directly follow a line break (its leading
	// whitespace aside).
	if n := partList.NumChildren(); n > 0 {
		last := partList.Child(n - 1).(*GreenNode)
		if !isStringNewlinePart(last) {
			width := node.FullWidth() - closing.FullWidth()
			ds = append(ds, diag.New(diag.ClosingQuotesOfMultiLineStringNotOnNewLine,
				diag.Span{Start: width, End: node.FullWidth()}))
			return ds
		}
	}

	// Indentation: the whitespace before the closing quotes is the required
	// prefix of every content line.
	prefix := ""
	for _, tr := range closing.LeadingTrivia() {
		if tr.Kind == TriviaWhitespace {
			prefix += tr.Text
		}
	}
	if prefix == "" {
		return ds
	}

	offset := open.FullWidth()
	atLineStart := true
	for i := 0; i < partList.NumChildren(); i++ {
		part := partList.Child(i).(*GreenNode)
		if isStringNewlinePart(part) {
			atLineStart = true
			offset += part.FullWidth()
			continue
		}
		if atLineStart {
			atLineStart = false
			if part.Kind() == KindTextStringPart {
				text := part.Child(0).(*GreenToken).Text()
				blank := strings.TrimRight(text, " \t") == "" && isFollowedByNewline(partList, i)
				if !blank && !strings.HasPrefix(text, prefix) {
					indent := len(text) - len(strings.TrimLeft(text, " \t"))
					ds = append(ds, diag.New(diag.InsufficientIndentationInMultiLineString,
						diag.Span{Start: offset, End: offset + indent}))
				}
			}
			// Interpolation parts are exempt from the indentation check.
		}
		offset += part.FullWidth()
	}
	return ds
}

// isStringNewlinePart reports whether a string part is a line break.
func isStringNewlinePart(part *GreenNode) bool {
	if part.Kind() != KindTextStringPart {
		return false
	}
	tok, ok := part.Child(0).(*GreenToken)
	return ok && tok.Kind() == StringNewline
}

// isFollowedByNewline reports whether the part after index i is a line
// break (or the list ends there), marking line i as blank-exempt.
func isFollowedByNewline(list *GreenNode, i int) bool {
	if i+1 >= list.NumChildren() {
		return true
	}
	next, ok := list.Child(i + 1).(*GreenNode)
	return ok && isStringNewlinePart(next)
}
