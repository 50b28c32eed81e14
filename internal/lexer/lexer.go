// Package lexer tokenises TermsLang source text into a token stream.
//
// The state-machine shape is grounded in lang/lex/lexer.go: a lexState
// is a function of the lexer's state that performs one bit of scanning
// and returns the next lexState to run, and the machine halts when a
// lexState returns nil. Source text is NFC-normalized before scanning,
// exactly as lang/lex.Norm does.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/Owen-Dechow/TermsLang-sub000/internal/token"
)

// Norm is the form to which source text is normalized before lexing.
const Norm = norm.NFC

// Error is returned when the source text cannot be lexed.
type Error struct {
	Loc token.Location
	Msg string
}

func (e *Error) Error() string { return e.Msg }

// lexState encodes one state of the machine described in §4.1. It mutates
// the lexer and returns the next state, or nil to halt.
type lexState func(*lexer) lexState

type lexer struct {
	runes []rune
	i     int // index of the next unread rune

	line, col int // 1-based position of runes[i]

	file          string
	idPrefix      string
	prefixExclude map[string]bool
	lexComments   bool

	buf        strings.Builder
	startLine  int
	startCol   int
	quoteRune  rune
	out        []token.Token
	err        *Error
}

// Lex tokenises text per §4.1. idPrefix is applied to every plain
// identifier except those in prefixExclude or the reserved built-in set;
// this is how imported modules get their "<path>::" namespace prefix
// (§4.2). lexComments controls whether Comment tokens are emitted.
func Lex(text, file, idPrefix string, prefixExclude map[string]bool, lexComments bool) ([]token.Token, error) {
	normalized := Norm.String(text)
	if prefixExclude == nil {
		prefixExclude = map[string]bool{}
	}

	l := &lexer{
		runes:         []rune(normalized),
		line:          1,
		col:           1,
		file:          file,
		idPrefix:      idPrefix,
		prefixExclude: prefixExclude,
		lexComments:   lexComments,
	}

	state := lexState(lexNone)
	for state != nil && l.err == nil {
		state = state(l)
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.out, nil
}

// peek returns the rune at offset k ahead (k=0 is the next unread rune)
// without consuming it. Returns 0 past end of input.
func (l *lexer) peek(k int) rune {
	idx := l.i + k
	if idx < 0 || idx >= len(l.runes) {
		return 0
	}
	return l.runes[idx]
}

// pos returns the current (line, col).
func (l *lexer) pos() (int, int) { return l.line, l.col }

// advance consumes and returns the next rune, updating line/col.
func (l *lexer) advance() rune {
	r := l.peek(0)
	if r == 0 {
		return 0
	}
	l.i++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// startToken begins buffering a new token at the current position.
func (l *lexer) startToken() {
	l.buf.Reset()
	l.startLine, l.startCol = l.pos()
}

// errorf fails the lexer with a LexerError at the given position.
func (l *lexer) errorf(line, col int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	loc := token.NewRange(l.file, line, line, col, col+1)
	l.err = &Error{Loc: loc, Msg: msg}
}

func (l *lexer) loc() token.Location {
	endLine, endCol := l.pos()
	return token.NewRange(l.file, l.startLine, endLine, l.startCol, endCol)
}

func (l *lexer) emit(tok token.Token) {
	tok.Loc = l.loc()
	l.out = append(l.out, tok)
}

// lastSubtractAdjacent reports whether the most recently emitted token is an
// Operator(Subtract) whose end position equals (line, col) — the
// condition under which the lexer reattaches the minus as a numeric sign
// (§4.1, §9 "Negative-number tokenisation").
func (l *lexer) lastSubtractAdjacent(line, col int) bool {
	if len(l.out) == 0 {
		return false
	}
	last := l.out[len(l.out)-1]
	if last.Kind != token.Operator || last.OpVal != token.OpSub {
		return false
	}
	_, endLine, _, endCol := last.Loc.Span()
	return endLine == line && endCol == col
}

// popLast removes the most recently emitted token.
func (l *lexer) popLast() {
	l.out = l.out[:len(l.out)-1]
}

// None state
// --------------------------------------------------

func lexNone(l *lexer) lexState {
	r := l.peek(0)
	line, col := l.pos()

	switch {
	case r == 0:
		return nil

	case r == ' ' || r == '\t' || r == '\r' || r == '\n':
		l.advance()
		return lexNone

	case r == '#':
		return lexComment

	case r == '~':
		l.startToken()
		l.advance()
		l.emit(token.Token{Kind: token.Terminate})
		return lexNone

	case r == '"' || r == '\'' || r == '`':
		return lexString

	case unicode.IsDigit(r):
		l.startToken()
		// Negative-literal reattachment (§4.1, §9): if the immediately
		// preceding emitted token is Operator(Subtract) ending exactly
		// where this digit starts, the minus was sign, not subtraction.
		if l.lastSubtractAdjacent(line, col) {
			last := l.out[len(l.out)-1]
			l.popLast()
			sl, _, sc, _ := last.Loc.Span()
			l.startLine, l.startCol = sl, sc
			l.buf.WriteRune('-')
		}
		return lexInt

	case unicode.IsLetter(r) || r == '@' || r == '_':
		return lexWord

	case isOperatorRune(r):
		return lexOperator

	default:
		l.errorf(line, col, "unexpected character %q", r)
		return nil
	}
}

func isOperatorRune(r rune) bool {
	for _, o := range token.Operators {
		if strings.ContainsRune(o.Text, r) {
			return true
		}
	}
	return false
}

// Comment state
// --------------------------------------------------

func lexComment(l *lexer) lexState {
	l.startToken()
	l.advance() // consume '#'
	for {
		r := l.peek(0)
		if r == 0 || r == '\n' {
			break
		}
		l.buf.WriteRune(l.advance())
	}
	if l.lexComments {
		l.emit(token.Token{Kind: token.Comment, StringVal: l.buf.String()})
	}
	return lexNone
}

// String state
// --------------------------------------------------

func lexString(l *lexer) lexState {
	l.startToken()
	quote := l.advance() // consume opening quote
	l.quoteRune = quote
	for {
		r := l.peek(0)
		if r == 0 {
			line, col := l.pos()
			l.errorf(line, col, "unterminated string literal")
			return nil
		}
		if r == quote {
			l.advance() // consume closing quote; extends range by one column
			break
		}
		l.buf.WriteRune(l.advance())
	}
	l.emit(token.Token{Kind: token.String, StringVal: l.buf.String()})
	return lexNone
}

// Word state
// --------------------------------------------------

func lexWord(l *lexer) lexState {
	l.startToken()
	l.buf.WriteRune(l.advance())
	for {
		r := l.peek(0)
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			l.buf.WriteRune(l.advance())
			continue
		}
		break
	}

	word := l.buf.String()
	switch {
	case word == "true":
		l.emit(token.Token{Kind: token.Bool, BoolVal: true})
	case word == "false":
		l.emit(token.Token{Kind: token.Bool, BoolVal: false})
	default:
		if kw, ok := token.Keywords[word]; ok {
			l.emit(token.Token{Kind: token.KeyWord, KwVal: kw})
			return lexNone
		}
		name := word
		if !l.prefixExclude[word] && !token.ReservedIdents[word] {
			name = l.idPrefix + word
		}
		l.emit(token.Token{Kind: token.Identity, Ident: name})
	}
	return lexNone
}

// Int / Float states
// --------------------------------------------------

func lexInt(l *lexer) lexState {
	if l.buf.Len() == 0 {
		l.startToken()
	}
	consumeDigitsIgnoringUnderscore(l)

	if l.peek(0) == '.' && unicode.IsDigit(l.peek(1)) {
		l.buf.WriteRune(l.advance()) // consume '.'
		consumeDigitsIgnoringUnderscore(l)
		return emitFloat(l)
	}

	return emitInt(l)
}

func consumeDigitsIgnoringUnderscore(l *lexer) {
	for {
		r := l.peek(0)
		if unicode.IsDigit(r) {
			l.buf.WriteRune(l.advance())
			continue
		}
		if r == '_' && unicode.IsDigit(l.peek(1)) {
			l.advance() // underscores inside numeric literals are ignored
			continue
		}
		break
	}
}

func emitInt(l *lexer) lexState {
	text := l.buf.String()
	v, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		line, col := l.pos()
		l.errorf(line, col, "invalid integer literal %q", text)
		return nil
	}
	l.emit(token.Token{Kind: token.Int, IntVal: int32(v)})
	return lexNone
}

func emitFloat(l *lexer) lexState {
	text := l.buf.String()
	v, err := strconv.ParseFloat(text, 32)
	if err != nil {
		line, col := l.pos()
		l.errorf(line, col, "invalid float literal %q", text)
		return nil
	}
	l.emit(token.Token{Kind: token.Float, FloatVal: float32(v)})
	return lexNone
}

// Operator state
// --------------------------------------------------

// lexOperator implements the greedy partial-fit matcher of §4.1: the
// accumulating operator string stays in this state as long as it is a
// substring of some registered operator; on rejection, the accumulated
// string (minus the rejecting char) must itself be a registered operator,
// or a LexerError is raised at the start position of the accumulator.
func lexOperator(l *lexer) lexState {
	l.startToken()
	for {
		next := l.buf.String() + string(l.peek(0))
		if !anyOperatorContains(next) {
			break
		}
		l.buf.WriteRune(l.advance())
	}

	acc := l.buf.String()
	op, ok := lookupOperator(acc)
	if !ok {
		l.errorf(l.startLine, l.startCol, "invalid operator %q", acc)
		return nil
	}
	l.emit(token.Token{Kind: token.Operator, OpVal: op})
	return lexNone
}

func anyOperatorContains(s string) bool {
	for _, o := range token.Operators {
		if strings.Contains(o.Text, s) {
			return true
		}
	}
	return false
}

func lookupOperator(s string) (token.Op, bool) {
	for _, o := range token.Operators {
		if o.Text == s {
			return o.Op, true
		}
	}
	return 0, false
}
