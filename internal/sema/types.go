// Package sema implements the active parser: a multi-pass semantic
// analyser that turns a parsed ast.Program into an annotated AProgram
// with every name resolved and every expression typed.
//
// The annotated tree shape is grounded in how lang/scope/namespace.go
// handles forward-declared predicates (a Namespace interns symbols
// behind stable keys so a predicate referenced before its clauses are
// seen still resolves once the whole file has been read) — the
// NotYetDefined placeholder and fix-up pass here play the same
// forward-reference role, generalized from predicate names to
// statically typed struct/function names.
package sema

import (
	"github.com/Owen-Dechow/TermsLang-sub000/internal/ast"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/token"
)

// AKind discriminates the annotated type tree (§3 "AType variants").
type AKind int

const (
	AArray AKind = iota
	AStructObject
	AStructDefRef
	AFuncDefRef
	ANotYetDefined
)

// AType is the resolved type of an annotated node. Only the field(s)
// relevant to Kind are populated.
type AType struct {
	Kind AKind

	Elem *AType // AArray: element type

	Struct *AStruct // AStructObject / AStructDefRef

	Func *AFunc // AFuncDefRef

	Pending *ast.Type // ANotYetDefined: the unresolved source type, patched in pass 2
}

// sameStruct reports whether two struct-typed AType values name the same
// struct, per §3's invariant that StructObject identity is by struct
// identity, not by structural shape.
func sameStruct(a, b *AType) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Kind != AStructObject || b.Kind != AStructObject {
		return false
	}
	return a.Struct == b.Struct
}

// AStruct is a struct definition: a built-in root type or a user struct.
type AStruct struct {
	Name    string
	System  bool // built-in (int/float/bool/str/null)
	Root    bool // may be used as a bare root type name
	UID     int
	Fields  []*AField
	Methods map[string]*AFunc
	Loc     token.Location
}

// AField is one resolved struct field.
type AField struct {
	Name string
	Type *AType
}

// AFunc is a resolved function or method.
type AFunc struct {
	Name       string
	ReturnType *AType
	Args       []*AArg
	Body       *ATermBlock
	Internal      bool // built-in routine, e.g. a special method on int
	InternalArray bool // built-in array operation (@len/@idx/@append/@remove)
	UID        int
	IsMethod   bool
	Owner      *AStruct // non-nil for methods
	Loc        token.Location
}

// AArg is one resolved function parameter.
type AArg struct {
	Name string
	Type *AType
}

// ATermBlock is a fully annotated statement sequence.
type ATermBlock struct {
	Terms []*ATerm
	Loc   token.Location
}

// ATerm mirrors ast.Term's tagged union, with types resolved and
// compound assignment desugared to a plain '=' whose Value already
// encodes the `@add`/`@sub`/... special-method application (§4.3
// "UpdateVar").
type ATerm struct {
	Kind ast.TermKind
	Loc  token.Location

	Expr *AOperandExpression // Print / Println / Call

	VarName string // DeclareVar
	VarType *AType
	Value   *AOperandExpression // DeclareVar / UpdateVar

	UpdateTarget *AObject // UpdateVar

	Cond *AOperandExpression // If / Loop
	Then *ATermBlock
	Else *ATermBlock

	Counter string // Loop
	Body    *ATermBlock
}

// AObjectKind discriminates one step of a resolved access path.
type AObjectKind int

const (
	AObjVar   AObjectKind = iota // a local/global variable read
	AObjField                    // a struct field read
	AObjCall                     // invoking a resolved function/method
	AObjIndex                    // array indexing
)

// AObject is one resolved step of a dotted access path (§3 "Object"),
// carrying the type of the value produced after this step so the
// flattener and a future debugger can report types without re-deriving
// them.
type AObject struct {
	Kind AObjectKind
	Loc  token.Location
	Type *AType

	Name string // AObjVar / AObjField

	Call *ACall // AObjCall

	Index *AOperandExpression // AObjIndex

	Sub *AObject
}

// ACall is a resolved call: the function/method being invoked and its
// already-typechecked argument expressions.
type ACall struct {
	Func *AFunc
	Args []*AOperandExpression
	Loc  token.Location
}

// AOperandExprKind discriminates the annotated expression tree. Binary
// and unary operators are kept as first-class variants (rather than
// eagerly rewritten into Call-shaped Objects as §3's prose summary
// implies) because the analyser needs to remember exactly which special
// method resolved the operator to report a precise "no such method"
// AParserError and to give the flattener the operator's name directly,
// matching §4.4.1's InternalOp command which takes a bare operator name
// rather than a synthesized call expression.
type AOperandExprKind int

const (
	AExprLiteral AOperandExprKind = iota
	AExprObject
	AExprCreate
	AExprUnary
	AExprBinary
	AExprDot
)

// AOperandExpression is one typed expression node.
type AOperandExpression struct {
	Kind AOperandExprKind
	Loc  token.Location
	Type *AType

	Literal *token.Token

	Object *AObject

	CreateStruct *AStruct
	CreateArgs   []*AOperandExpression

	UnaryOp    token.Op
	UnaryInner *AOperandExpression
	UnaryMethod *AFunc

	BinaryOp    token.Op
	BinaryLeft  *AOperandExpression
	BinaryRight *AOperandExpression
	BinaryMethod *AFunc

	DotLeft  *AOperandExpression
	DotRight *AObject
}

// AProgram is the root of the annotated tree (§3 "Annotated program").
type AProgram struct {
	Structs   []*AStruct
	Functions []*AFunc
	Main      *AFunc
}

// specialMethodForOp maps a binary/unary operator to the special method
// name that implements it on the left (or sole) operand, per §4.3
// "Binary/unary operator application dispatches to a special method".
func specialMethodForOp(op token.Op) (string, bool) {
	switch op {
	case token.OpAdd:
		return "@add", true
	case token.OpSub:
		return "@sub", true
	case token.OpMul:
		return "@mult", true
	case token.OpDiv:
		return "@div", true
	case token.OpMod:
		return "@mod", true
	case token.OpPow:
		return "@exp", true
	case token.OpEq:
		return "@eq", true
	case token.OpGt:
		return "@gt", true
	case token.OpGtEq:
		return "@gteq", true
	case token.OpLt:
		return "@lt", true
	case token.OpLtEq:
		return "@lteq", true
	case token.OpNotEq:
		return "@eq", true // desugared by the caller into !(@eq)
	case token.OpAnd:
		return "@and", true
	case token.OpOr:
		return "@or", true
	case token.OpNot:
		return "@not", true
	default:
		return "", false
	}
}

// compoundBaseOp strips the "=" suffix off a compound-assignment operator,
// e.g. OpAddAssign -> OpAdd, for desugaring (§4.3 "UpdateVar").
func compoundBaseOp(op token.Op) (token.Op, bool) {
	switch op {
	case token.OpAddAssign:
		return token.OpAdd, true
	case token.OpSubAssign:
		return token.OpSub, true
	case token.OpMulAssign:
		return token.OpMul, true
	case token.OpDivAssign:
		return token.OpDiv, true
	case token.OpModAssign:
		return token.OpMod, true
	case token.OpPowAssign:
		return token.OpPow, true
	default:
		return 0, false
	}
}
