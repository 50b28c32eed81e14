// Package token defines the lexical tokens and source locations shared by
// every later stage of the TermsLang pipeline.
package token

import "fmt"

// A Location pins a token, AST node, or runtime error to a place in source.
// It is one of a Range, an EOF marker bound to a file, or None — mirroring
// the three location shapes spec.md requires every stage to carry forward.
type Location struct {
	kind locKind
	file string

	startLine int
	endLine   int
	startCol  int
	endCol    int
}

type locKind uint8

const (
	locNone locKind = iota
	locRange
	locEOF
)

// NoLoc is the "none" location, used for synthetic nodes (built-in structs,
// the fixed special-method table) that carry no source position.
var NoLoc = Location{kind: locNone}

// NewRange builds a range location. Lines and columns are 1-based, matching
// the lexer's line/col bookkeeping.
func NewRange(file string, startLine, endLine, startCol, endCol int) Location {
	return Location{
		kind:      locRange,
		file:      file,
		startLine: startLine,
		endLine:   endLine,
		startCol:  startCol,
		endCol:    endCol,
	}
}

// NewEOF builds the end-of-file marker location for a file.
func NewEOF(file string, line, col int) Location {
	return Location{kind: locEOF, file: file, startLine: line, startCol: col}
}

// IsEOF reports whether l is the end-of-file marker.
func (l Location) IsEOF() bool { return l.kind == locEOF }

// IsNone reports whether l carries no position at all.
func (l Location) IsNone() bool { return l.kind == locNone }

// File returns the source file path, or "" for a None location.
func (l Location) File() string { return l.file }

// Span returns the 1-based start/end line and column of a range location.
// For an EOF location, start and end coincide at the EOF position.
func (l Location) Span() (startLine, endLine, startCol, endCol int) {
	if l.kind == locEOF {
		return l.startLine, l.startLine, l.startCol, l.startCol
	}
	return l.startLine, l.endLine, l.startCol, l.endCol
}

// Merge produces the smallest range location spanning both l and r. Used by
// the parser to build a location for a composite node from its parts.
func (l Location) Merge(r Location) Location {
	if l.IsNone() {
		return r
	}
	if r.IsNone() {
		return l
	}
	ls, le, lsc, lec := l.Span()
	rs, re, rsc, rec := r.Span()
	out := Location{kind: locRange, file: l.file}
	if ls < rs || (ls == rs && lsc <= rsc) {
		out.startLine, out.startCol = ls, lsc
	} else {
		out.startLine, out.startCol = rs, rsc
	}
	if le > re || (le == re && lec >= rec) {
		out.endLine, out.endCol = le, lec
	} else {
		out.endLine, out.endCol = re, rec
	}
	return out
}

func (l Location) String() string {
	switch l.kind {
	case locNone:
		return "<none>"
	case locEOF:
		return fmt.Sprintf("%s:%d:%d:eof", l.file, l.startLine, l.startCol)
	default:
		return fmt.Sprintf("%s:%d:%d-%d:%d", l.file, l.startLine, l.startCol, l.endLine, l.endCol)
	}
}

// Kind classifies the lexeme produced by the lexer state machine.
type Kind int

const (
	Invalid Kind = iota
	Int
	Float
	String
	Bool
	Identity
	Operator
	KeyWord
	Terminate
	Comment
	EOF
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "Int"
	case Float:
		return "Float"
	case String:
		return "String"
	case Bool:
		return "Bool"
	case Identity:
		return "Identity"
	case Operator:
		return "Operator"
	case KeyWord:
		return "KeyWord"
	case Terminate:
		return "Terminate"
	case Comment:
		return "Comment"
	case EOF:
		return "EOF"
	default:
		return "Invalid"
	}
}

// Op enumerates the fixed operator set of §6.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpLParen
	OpRParen
	OpLBrace
	OpRBrace
	OpLBracket
	OpRBracket
	OpAssign
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
	OpModAssign
	OpPowAssign
	OpEq
	OpGt
	OpLt
	OpGtEq
	OpLtEq
	OpNotEq
	OpAnd
	OpOr
	OpDot
	OpColon
	OpComma
	OpNew
	OpNot
)

// Operators is the fixed table of operator spellings, two-character ones
// first. Greedy partial-fit lexing (§4.1) matches by substring containment
// and then by exact spelling, so the order of entries does not affect
// which operator is produced.
var Operators = []struct {
	Text string
	Op   Op
}{
	{"+=", OpAddAssign},
	{"-=", OpSubAssign},
	{"*=", OpMulAssign},
	{"/=", OpDivAssign},
	{"%=", OpModAssign},
	{"^=", OpPowAssign},
	{"==", OpEq},
	{">=", OpGtEq},
	{"<=", OpLtEq},
	{"!=", OpNotEq},
	{"&&", OpAnd},
	{"||", OpOr},
	{"+", OpAdd},
	{"-", OpSub},
	{"*", OpMul},
	{"/", OpDiv},
	{"%", OpMod},
	{"^", OpPow},
	{"(", OpLParen},
	{")", OpRParen},
	{"{", OpLBrace},
	{"}", OpRBrace},
	{"[", OpLBracket},
	{"]", OpRBracket},
	{"=", OpAssign},
	{">", OpGt},
	{"<", OpLt},
	{"!", OpNot},
	{".", OpDot},
	{":", OpColon},
	{",", OpComma},
	{"$", OpNew},
}

func (o Op) String() string {
	for _, e := range Operators {
		if e.Op == o {
			return e.Text
		}
	}
	return "?"
}

// Kw enumerates the fixed keyword set of §6.
type Kw int

const (
	KwPrint Kw = iota
	KwPrintln
	KwStruct
	KwIf
	KwElse
	KwFunc
	KwLet
	KwUpdt
	KwCll
	KwLoop
	KwBreak
	KwContinue
	KwReturn
	KwImport
	KwOf
)

// Keywords maps source spelling to Kw.
var Keywords = map[string]Kw{
	"print":    KwPrint,
	"println":  KwPrintln,
	"struct":   KwStruct,
	"if":       KwIf,
	"else":     KwElse,
	"func":     KwFunc,
	"let":      KwLet,
	"updt":     KwUpdt,
	"cll":      KwCll,
	"loop":     KwLoop,
	"break":    KwBreak,
	"continue": KwContinue,
	"return":   KwReturn,
	"import":   KwImport,
	"of":       KwOf,
}

func (k Kw) String() string {
	for text, kw := range Keywords {
		if kw == k {
			return text
		}
	}
	return "?"
}

// ReservedIdents are names no user struct, function, or variable may use;
// see §6 "Reserved identifiers".
var ReservedIdents = map[string]bool{
	"int": true, "float": true, "bool": true, "str": true, "null": true,
	"@main": true, "@this": true, "@new": true,
	"@add": true, "@sub": true, "@mult": true, "@div": true, "@mod": true,
	"@exp": true, "@eq": true, "@gt": true, "@gteq": true, "@lt": true,
	"@lteq": true, "@not": true, "@and": true, "@or": true,
	"@len": true, "@idx": true, "@append": true, "@remove": true,
	"@readln": true, "@str": true, "@int": true, "@float": true, "@bool": true,
}

// Token is a single lexeme: a (kind, location) pair plus its payload.
type Token struct {
	Kind Kind
	Loc  Location

	IntVal    int32
	FloatVal  float32
	StringVal string
	BoolVal   bool
	Ident     string
	OpVal     Op
	KwVal     Kw
}

func (t Token) String() string {
	switch t.Kind {
	case Int:
		return fmt.Sprintf("Int(%d)", t.IntVal)
	case Float:
		return fmt.Sprintf("Float(%v)", t.FloatVal)
	case String:
		return fmt.Sprintf("String(%q)", t.StringVal)
	case Bool:
		return fmt.Sprintf("Bool(%v)", t.BoolVal)
	case Identity:
		return fmt.Sprintf("Identity(%s)", t.Ident)
	case Operator:
		return fmt.Sprintf("Operator(%s)", t.OpVal)
	case KeyWord:
		return fmt.Sprintf("KeyWord(%s)", t.KwVal)
	case Terminate:
		return "Terminate"
	case Comment:
		return fmt.Sprintf("Comment(%q)", t.StringVal)
	case EOF:
		return "EOF"
	default:
		return "Invalid"
	}
}
