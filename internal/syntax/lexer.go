package syntax

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lucyelle/DracoCompiler/internal/diag"
)

// modeKind identifies a lexer mode.
type modeKind uint8

const (
	modeNormal modeKind = iota
	modeLineString
	modeMultiLineString
	modeInterpolation
)

// lexMode is one frame of the lexer's mode stack. String modes remember
// their hash count; interpolation frames count open braces so that `}`
// closing a block is not confused with the interpolation terminator.
type lexMode struct {
	kind   modeKind
	hashes int
	braces int
}

// Lexer turns source text into a finite stream of green tokens, the last
// of kind EndOfInput. The lexer never fails: unrecognized input becomes
// skipped trivia with an attached diagnostic.
type Lexer struct {
	src string
	off int

	modes []lexMode

	// Pending leading trivia and diagnostics for the token being built.
	leading []Trivia
	diags   []*diag.Diagnostic
}

// NewLexer creates a lexer over the given source text.
func NewLexer(src string) *Lexer {
	return &Lexer{
		src:   src,
		modes: []lexMode{{kind: modeNormal}},
	}
}

// Lex runs the lexer to completion and returns the full token stream.
func Lex(src string) []*GreenToken {
	lx := NewLexer(src)
	var toks []*GreenToken
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Kind() == EndOfInput {
			return toks
		}
	}
}

// mode returns the current mode frame.
func (l *Lexer) mode() *lexMode { return &l.modes[len(l.modes)-1] }

func (l *Lexer) push(m lexMode) { l.modes = append(l.modes, m) }
func (l *Lexer) pop()           { l.modes = l.modes[:len(l.modes)-1] }

// eof reports whether the lexer has consumed all input.
func (l *Lexer) eof() bool { return l.off >= len(l.src) }

// peek returns the byte at offset delta from the cursor, or 0 past the end.
func (l *Lexer) peek(delta int) byte {
	if l.off+delta >= len(l.src) {
		return 0
	}
	return l.src[l.off+delta]
}

func (l *Lexer) ch() byte { return l.peek(0) }

// Next produces the next token. After EndOfInput has been returned the
// lexer keeps returning EndOfInput.
func (l *Lexer) Next() *GreenToken {
	switch l.mode().kind {
	case modeLineString:
		return l.nextLineString()
	case modeMultiLineString:
		return l.nextMultiLineString()
	default:
		return l.nextNormal()
	}
}

// ----------------------------------------------------------------------------
// Normal and interpolation modes

func (l *Lexer) nextNormal() *GreenToken {
	l.scanLeadingTrivia()

	start := l.off
	c := l.ch()

	switch {
	case l.eof():
		return l.token(EndOfInput, "", nil)

	case isIdentStart(c):
		return l.scanIdentifier()

	case isDigit(c):
		return l.scanNumber()

	case c == '\'':
		return l.scanCharacter()

	case c == '"' || c == '#':
		if tok, ok := l.scanStringStart(); ok {
			return tok
		}
		// A '#' that does not begin a string delimiter is illegal input.
		l.off++
		l.skipIllegal(start)
		return l.Next()

	case c == '}' && l.mode().kind == modeInterpolation && l.mode().braces == 0:
		l.off++
		l.pop() // back to the enclosing string mode
		// No trailing trivia: what follows is string content again.
		leading := l.leading
		diags := l.diags
		l.leading = nil
		l.diags = nil
		tok := NewGreenToken(InterpolationEnd, "}", nil, leading, nil)
		if len(diags) > 0 {
			tok = tok.WithDiagnostics(diags...)
		}
		return tok

	default:
		if tok, ok := l.scanOperator(); ok {
			return tok
		}
		l.off++
		l.skipIllegal(start)
		return l.Next()
	}
}

// skipIllegal turns the bytes [start, l.off) into a Skipped trivium with an
// IllegalCharacter diagnostic; the trivium attaches to the next token.
func (l *Lexer) skipIllegal(start int) {
	text := l.src[start:l.off]
	rel := triviaWidth(l.leading)
	l.leading = append(l.leading, Trivia{Kind: TriviaSkipped, Text: text})
	l.diags = append(l.diags, diag.New(diag.IllegalCharacter,
		diag.Span{Start: rel, End: rel + len(text)}, text))
}

// scanLeadingTrivia accumulates whitespace, newlines, and comments into the
// pending leading trivia list.
func (l *Lexer) scanLeadingTrivia() {
	for {
		start := l.off
		switch {
		case l.ch() == ' ' || l.ch() == '\t':
			for l.ch() == ' ' || l.ch() == '\t' {
				l.off++
			}
			l.leading = append(l.leading, Trivia{Kind: TriviaWhitespace, Text: l.src[start:l.off]})

		case l.atNewline():
			l.consumeNewline()
			l.leading = append(l.leading, Trivia{Kind: TriviaNewline, Text: l.src[start:l.off]})

		case l.ch() == '/' && l.peek(1) == '/':
			kind := TriviaLineComment
			if l.peek(2) == '/' {
				kind = TriviaDocumentationComment
			}
			for !l.eof() && !l.atNewline() {
				l.off++
			}
			l.leading = append(l.leading, Trivia{Kind: kind, Text: l.src[start:l.off]})

		default:
			return
		}
	}
}

// scanTrailingTrivia consumes horizontal whitespace after a token, plus the
// newline that ends the line. Anything else belongs to the next token.
func (l *Lexer) scanTrailingTrivia() []Trivia {
	var out []Trivia
	start := l.off
	for l.ch() == ' ' || l.ch() == '\t' {
		l.off++
	}
	if l.off > start {
		out = append(out, Trivia{Kind: TriviaWhitespace, Text: l.src[start:l.off]})
	}
	if l.atNewline() {
		start = l.off
		l.consumeNewline()
		out = append(out, Trivia{Kind: TriviaNewline, Text: l.src[start:l.off]})
	}
	return out
}

// atNewline reports whether the cursor is at a \n, \r\n, or \r line break.
func (l *Lexer) atNewline() bool {
	return l.ch() == '\n' || l.ch() == '\r'
}

// consumeNewline consumes one line break; \r\n counts as a single newline.
func (l *Lexer) consumeNewline() {
	if l.ch() == '\r' && l.peek(1) == '\n' {
		l.off += 2
		return
	}
	l.off++
}

// token finalizes a token in normal mode, taking the pending leading trivia
// and diagnostics and scanning trailing trivia.
func (l *Lexer) token(kind TokenKind, text string, value interface{}) *GreenToken {
	leading := l.leading
	diags := l.diags
	l.leading = nil
	l.diags = nil

	var trailing []Trivia
	if kind != EndOfInput {
		trailing = l.scanTrailingTrivia()
	}
	tok := NewGreenToken(kind, text, value, leading, trailing)
	if len(diags) > 0 {
		tok = tok.WithDiagnostics(diags...)
	}
	return tok
}

// rawToken finalizes a token inside a string mode: no trivia attachment.
func (l *Lexer) rawToken(kind TokenKind, text string, value interface{}) *GreenToken {
	tok := NewGreenToken(kind, text, value, nil, nil)
	if len(l.diags) > 0 {
		tok = tok.WithDiagnostics(l.diags...)
		l.diags = nil
	}
	return tok
}

func (l *Lexer) scanIdentifier() *GreenToken {
	start := l.off
	for isIdentPart(l.ch()) {
		l.off++
	}
	text := l.src[start:l.off]
	kind := LookupKeyword(text)
	var value interface{}
	switch kind {
	case KeywordTrue:
		value = true
	case KeywordFalse:
		value = false
	}
	// Opening a brace inside an interpolation hole must be balanced before
	// `}` can terminate the hole; brace bookkeeping happens in scanOperator.
	return l.token(kind, text, value)
}

func (l *Lexer) scanNumber() *GreenToken {
	start := l.off

	// Hexadecimal and binary integers.
	if l.ch() == '0' && (lower(l.peek(1)) == 'x' || lower(l.peek(1)) == 'b') {
		base := 16
		digits := isHexDigit
		if lower(l.peek(1)) == 'b' {
			base = 2
			digits = isBinaryDigit
		}
		l.off += 2
		digitStart := l.off
		for digits(l.ch()) {
			l.off++
		}
		text := l.src[start:l.off]
		v, _ := strconv.ParseInt(l.src[digitStart:l.off], base, 64)
		return l.token(LiteralInteger, text, v)
	}

	for isDigit(l.ch()) {
		l.off++
	}

	isFloat := false
	if l.ch() == '.' && isDigit(l.peek(1)) {
		isFloat = true
		l.off++
		for isDigit(l.ch()) {
			l.off++
		}
	}
	if lower(l.ch()) == 'e' && (isDigit(l.peek(1)) || ((l.peek(1) == '+' || l.peek(1) == '-') && isDigit(l.peek(2)))) {
		isFloat = true
		l.off++
		if l.ch() == '+' || l.ch() == '-' {
			l.off++
		}
		for isDigit(l.ch()) {
			l.off++
		}
	}

	text := l.src[start:l.off]
	if isFloat {
		v, _ := strconv.ParseFloat(text, 64)
		return l.token(LiteralFloat, text, v)
	}
	v, _ := strconv.ParseInt(text, 10, 64)
	return l.token(LiteralInteger, text, v)
}

func (l *Lexer) scanCharacter() *GreenToken {
	start := l.off
	l.off++ // opening quote

	var value rune
	switch {
	case l.eof() || l.atNewline():
		l.diags = append(l.diags, diag.New(diag.UnterminatedString,
			diag.Span{Start: 0, End: l.off - start}))
		return l.token(LiteralCharacter, l.src[start:l.off], rune(0))

	case l.ch() == '\\':
		decoded, _ := l.scanEscape(0)
		if r := []rune(decoded); len(r) > 0 {
			value = r[0]
		}

	default:
		r, size := utf8.DecodeRuneInString(l.src[l.off:])
		value = r
		l.off += size
	}

	if l.ch() == '\'' {
		l.off++
	} else {
		l.diags = append(l.diags, diag.New(diag.UnterminatedString,
			diag.Span{Start: 0, End: l.off - start}))
	}
	return l.token(LiteralCharacter, l.src[start:l.off], value)
}

func (l *Lexer) scanOperator() (*GreenToken, bool) {
	two := func(kind TokenKind, text string) *GreenToken {
		l.off += 2
		return l.token(kind, text, nil)
	}
	one := func(kind TokenKind, text string) *GreenToken {
		l.off++
		return l.token(kind, text, nil)
	}

	switch l.ch() {
	case '(':
		return one(ParenOpen, "("), true
	case ')':
		return one(ParenClose, ")"), true
	case '{':
		if l.mode().kind == modeInterpolation {
			l.mode().braces++
		}
		return one(CurlyOpen, "{"), true
	case '}':
		// Interpolation-terminating `}` is handled before this point.
		if l.mode().kind == modeInterpolation {
			l.mode().braces--
		}
		return one(CurlyClose, "}"), true
	case '[':
		return one(BracketOpen, "["), true
	case ']':
		return one(BracketClose, "]"), true
	case ',':
		return one(Comma, ","), true
	case ':':
		return one(Colon, ":"), true
	case ';':
		return one(Semicolon, ";"), true
	case '.':
		if l.peek(1) == '.' && l.peek(2) == '.' {
			l.off += 3
			return l.token(Ellipsis, "...", nil), true
		}
		return one(Dot, "."), true
	case '+':
		if l.peek(1) == '=' {
			return two(PlusAssign, "+="), true
		}
		return one(Plus, "+"), true
	case '-':
		if l.peek(1) == '=' {
			return two(MinusAssign, "-="), true
		}
		return one(Minus, "-"), true
	case '*':
		if l.peek(1) == '=' {
			return two(StarAssign, "*="), true
		}
		return one(Star, "*"), true
	case '/':
		if l.peek(1) == '=' {
			return two(SlashAssign, "/="), true
		}
		return one(Slash, "/"), true
	case '=':
		if l.peek(1) == '=' {
			return two(Equal, "=="), true
		}
		return one(Assign, "="), true
	case '!':
		if l.peek(1) == '=' {
			return two(NotEqual, "!="), true
		}
		return nil, false
	case '<':
		if l.peek(1) == '=' {
			return two(LessEqual, "<="), true
		}
		return one(Less, "<"), true
	case '>':
		if l.peek(1) == '=' {
			return two(GreaterEqual, ">="), true
		}
		return one(Greater, ">"), true
	}
	return nil, false
}

// ----------------------------------------------------------------------------
// String lexing

// scanStringStart recognizes a string opening delimiter: n hashes followed
// by `"` (line string) or `"""` (multi-line string).
func (l *Lexer) scanStringStart() (*GreenToken, bool) {
	hashes := 0
	for l.peek(hashes) == '#' {
		hashes++
	}
	if l.peek(hashes) != '"' {
		return nil, false
	}
	start := l.off
	l.off += hashes

	if l.peek(0) == '"' && l.peek(1) == '"' && l.peek(2) == '"' {
		l.off += 3
		l.push(lexMode{kind: modeMultiLineString, hashes: hashes})
		// The rest of the opening line, when blank, is the open token's
		// trailing trivia; it defines where content lines begin.
		leading := l.leading
		diags := l.diags
		l.leading = nil
		l.diags = nil
		trailing := l.scanMultiLineOpenTrailing()
		tok := NewGreenToken(MultiLineStringStart, l.src[start:l.off-len(triviaText(trailing))], nil, leading, trailing)
		if len(diags) > 0 {
			tok = tok.WithDiagnostics(diags...)
		}
		return tok, true
	}

	l.off++
	l.push(lexMode{kind: modeLineString, hashes: hashes})
	// No trailing trivia: everything after the quote is string content.
	leading := l.leading
	diags := l.diags
	l.leading = nil
	l.diags = nil
	tok := NewGreenToken(LineStringStart, l.src[start:l.off], nil, leading, nil)
	if len(diags) > 0 {
		tok = tok.WithDiagnostics(diags...)
	}
	return tok, true
}

// scanMultiLineOpenTrailing attaches the blank remainder of the opening
// line (plus its newline) to the opening token. If non-blank characters
// follow the open quotes, nothing is consumed; the parser diagnoses them.
func (l *Lexer) scanMultiLineOpenTrailing() []Trivia {
	probe := 0
	for l.peek(probe) == ' ' || l.peek(probe) == '\t' {
		probe++
	}
	if c := l.peek(probe); c != '\n' && c != '\r' && l.off+probe < len(l.src) {
		return nil
	}
	return l.scanTrailingTrivia()
}

func triviaText(ts []Trivia) string {
	var sb strings.Builder
	for _, t := range ts {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// atStringClose reports whether the cursor is at the closing delimiter of
// the current string mode.
func (l *Lexer) atStringClose() bool {
	m := l.mode()
	quotes := 1
	if m.kind == modeMultiLineString {
		quotes = 3
	}
	for i := 0; i < quotes; i++ {
		if l.peek(i) != '"' {
			return false
		}
	}
	for i := 0; i < m.hashes; i++ {
		if l.peek(quotes+i) != '#' {
			return false
		}
	}
	return true
}

// atEscape reports whether the cursor is at `\` followed by the mode's
// hash count.
func (l *Lexer) atEscape() bool {
	if l.ch() != '\\' {
		return false
	}
	for i := 0; i < l.mode().hashes; i++ {
		if l.peek(1+i) != '#' {
			return false
		}
	}
	return true
}

func (l *Lexer) nextLineString() *GreenToken {
	m := l.mode()

	switch {
	case l.eof() || l.atNewline():
		// Unterminated: recover with a zero-width end token.
		l.pop()
		l.diags = append(l.diags, diag.New(diag.UnterminatedString, diag.Span{}))
		return l.token(LineStringEnd, "", nil)

	case l.atStringClose():
		start := l.off
		l.off += 1 + m.hashes
		l.pop()
		return l.token(LineStringEnd, l.src[start:l.off], nil)

	case l.atEscape() && l.peek(1+m.hashes) == '{':
		start := l.off
		l.off += 2 + m.hashes
		l.push(lexMode{kind: modeInterpolation})
		return l.rawToken(InterpolationStart, l.src[start:l.off], nil)

	default:
		return l.scanStringContent(false)
	}
}

func (l *Lexer) nextMultiLineString() *GreenToken {
	m := l.mode()

	switch {
	case l.eof():
		l.pop()
		l.diags = append(l.diags, diag.New(diag.UnterminatedString, diag.Span{}))
		return l.token(MultiLineStringEnd, "", nil)

	case l.atNewline():
		start := l.off
		l.consumeNewline()
		return l.rawToken(StringNewline, l.src[start:l.off], "\n")

	case l.atEscape() && l.peek(1+m.hashes) == '{':
		start := l.off
		l.off += 2 + m.hashes
		l.push(lexMode{kind: modeInterpolation})
		return l.rawToken(InterpolationStart, l.src[start:l.off], nil)

	default:
		// Blank run directly before the closing delimiter becomes the
		// closing token's leading trivia; it defines the required indent.
		probe := 0
		for l.peek(probe) == ' ' || l.peek(probe) == '\t' {
			probe++
		}
		if l.probeStringClose(probe) {
			var leading []Trivia
			if probe > 0 {
				leading = append(leading, Trivia{Kind: TriviaWhitespace, Text: l.src[l.off : l.off+probe]})
				l.off += probe
			}
			start := l.off
			l.off += 3 + m.hashes
			l.pop()
			l.leading = leading
			return l.token(MultiLineStringEnd, l.src[start:l.off], nil)
		}
		if l.atStringClose() {
			start := l.off
			l.off += 3 + m.hashes
			l.pop()
			return l.token(MultiLineStringEnd, l.src[start:l.off], nil)
		}
		return l.scanStringContent(true)
	}
}

// probeStringClose reports whether the closing delimiter starts at the
// given lookahead offset.
func (l *Lexer) probeStringClose(delta int) bool {
	m := l.mode()
	quotes := 1
	if m.kind == modeMultiLineString {
		quotes = 3
	}
	for i := 0; i < quotes; i++ {
		if l.peek(delta+i) != '"' {
			return false
		}
	}
	for i := 0; i < m.hashes; i++ {
		if l.peek(delta+quotes+i) != '#' {
			return false
		}
	}
	return true
}

// scanStringContent accumulates a run of string text up to the next
// structural boundary (delimiter, escape, interpolation, newline, EOF).
func (l *Lexer) scanStringContent(multiLine bool) *GreenToken {
	start := l.off
	var value strings.Builder

	for !l.eof() {
		if l.atStringClose() || (l.atEscape() && l.peek(1+l.mode().hashes) == '{') {
			break
		}
		if l.atNewline() {
			// The caller handles the line break (content for multi-line
			// strings, unterminated recovery for line strings).
			break
		}
		if multiLine && (l.ch() == ' ' || l.ch() == '\t') {
			// Stop before a blank run that precedes the closing delimiter;
			// that run belongs to the closing token's leading trivia.
			probe := 0
			for l.peek(probe) == ' ' || l.peek(probe) == '\t' {
				probe++
			}
			if l.probeStringClose(probe) {
				break
			}
		}
		if l.atEscape() {
			decoded, _ := l.scanEscape(l.mode().hashes)
			value.WriteString(decoded)
			continue
		}
		value.WriteByte(l.ch())
		l.off++
	}

	return l.rawToken(StringContent, l.src[start:l.off], value.String())
}

// scanEscape decodes one escape sequence: `\` + hashes + specifier. The
// cursor is advanced past the sequence. Unknown escapes keep their raw
// text and report a diagnostic.
func (l *Lexer) scanEscape(hashes int) (string, bool) {
	start := l.off
	l.off += 1 + hashes

	switch c := l.ch(); c {
	case 'n':
		l.off++
		return "\n", true
	case 't':
		l.off++
		return "\t", true
	case 'r':
		l.off++
		return "\r", true
	case '0':
		l.off++
		return "\x00", true
	case '\\':
		l.off++
		return "\\", true
	case '\'':
		l.off++
		return "'", true
	case '"':
		l.off++
		return "\"", true
	case 'u':
		if l.peek(1) == '{' {
			l.off += 2
			digitStart := l.off
			for isHexDigit(l.ch()) {
				l.off++
			}
			code, _ := strconv.ParseUint(l.src[digitStart:l.off], 16, 32)
			if l.ch() == '}' {
				l.off++
			}
			return string(rune(code)), true
		}
		fallthrough
	default:
		if !l.eof() {
			l.off++
		}
		rel := l.off - start
		l.diags = append(l.diags, diag.New(diag.IllegalCharacter,
			diag.Span{Start: 0, End: rel}, l.src[start:l.off]))
		return l.src[start:l.off], false
	}
}

// ----------------------------------------------------------------------------
// Character classes

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || ('a' <= lower(c) && lower(c) <= 'f')
}

func isBinaryDigit(c byte) bool { return c == '0' || c == '1' }

func lower(c byte) byte { return c | ('a' - 'A') }
