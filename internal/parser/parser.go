// Package parser implements a recursive-descent, precedence-driven
// parser: token stream in, typed AST (ast.Program) out.
//
// The overall shape — a parser struct holding a position into the token
// slice, a reportf-style error helper, and mutually recursive read*
// methods for operator precedence — is grounded in lang/parser.go,
// whose Parser.read/readOp pair climbs a dynamic operator-precedence
// table. TermsLang's precedence table is fixed by the grammar, so the
// climb is unrolled into one method per precedence level instead of a
// table lookup, but the mutual-recursion technique and the "peel stray
// enclosing parens" parenthesization handling are the same.
package parser

import (
	"github.com/Owen-Dechow/TermsLang-sub000/internal/ast"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/langerr"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/lexer"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/token"
)

// FileLoader fetches the text of an imported file by path. Source-file I/O
// is an external collaborator (spec.md §1); the parser only needs the
// contract that it may be reinvoked on imported text (§4.2).
type FileLoader func(path string) (string, error)

// Parse implements the Contract of §4.2.
func Parse(tokens []token.Token, file string, prefixExclude map[string]bool, load FileLoader) (*ast.Program, error) {
	p := &parser{toks: tokens, file: file, prefixExclude: prefixExclude, load: load}
	return p.parseProgram()
}

type parser struct {
	toks          []token.Token
	pos           int
	file          string
	prefixExclude map[string]bool
	load          FileLoader
}

func (p *parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF, Loc: p.eofLoc()}
	}
	return p.toks[p.pos]
}

func (p *parser) eofLoc() token.Location {
	if len(p.toks) == 0 {
		return token.NewEOF(p.file, 1, 1)
	}
	last := p.toks[len(p.toks)-1]
	_, endLine, _, endCol := last.Loc.Span()
	return token.NewEOF(p.file, endLine, endCol)
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) errorf(loc token.Location, format string, args ...interface{}) error {
	return langerr.New(langerr.Parser, loc, format, args...)
}

func (p *parser) expectOp(op token.Op) (token.Token, error) {
	t := p.cur()
	if t.Kind != token.Operator || t.OpVal != op {
		return t, p.errorf(t.Loc, "expected %q, found %v", op, t)
	}
	return p.advance(), nil
}

func (p *parser) expectKw(kw token.Kw) (token.Token, error) {
	t := p.cur()
	if t.Kind != token.KeyWord || t.KwVal != kw {
		return t, p.errorf(t.Loc, "expected %q, found %v", kw, t)
	}
	return p.advance(), nil
}

func (p *parser) expectIdent() (token.Token, error) {
	t := p.cur()
	if t.Kind != token.Identity {
		return t, p.errorf(t.Loc, "expected identifier, found %v", t)
	}
	return p.advance(), nil
}

func (p *parser) expectTerminate() error {
	t := p.cur()
	if t.Kind != token.Terminate {
		return p.errorf(t.Loc, "expected '~', found %v", t)
	}
	p.advance()
	return nil
}

func (p *parser) isOp(op token.Op) bool {
	t := p.cur()
	return t.Kind == token.Operator && t.OpVal == op
}

func (p *parser) isKw(kw token.Kw) bool {
	t := p.cur()
	return t.Kind == token.KeyWord && t.KwVal == kw
}

// parseProgram consumes the mandatory docstring prelude (§6 "Source file
// prelude") then top-level struct/function/import declarations.
func (p *parser) parseProgram() (*ast.Program, error) {
	if p.cur().Kind != token.String {
		return nil, p.errorf(p.cur().Loc, "expected module docstring, found %v", p.cur())
	}
	p.advance()
	if err := p.expectTerminate(); err != nil {
		return nil, err
	}

	prog := &ast.Program{}

	for p.cur().Kind != token.EOF {
		switch {
		case p.isKw(token.KwStruct):
			s, err := p.parseStruct()
			if err != nil {
				return nil, err
			}
			prog.Structs = append(prog.Structs, s)

		case p.isKw(token.KwImport):
			imported, err := p.parseImport()
			if err != nil {
				return nil, err
			}
			prog.Structs = append(prog.Structs, imported.Structs...)
			prog.Functions = append(prog.Functions, imported.Functions...)

		default:
			f, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			prog.Functions = append(prog.Functions, f)
		}
	}

	return prog, nil
}

// parseImport implements `import NAME1, NAME2, ... of "path"~` (§4.2):
// the referenced file is re-lexed and re-parsed with the given names as
// the new prefix_exclude set and a "<path>::" identifier prefix, then its
// structs and functions are merged into the caller's program.
func (p *parser) parseImport() (*ast.Program, error) {
	start := p.cur().Loc
	if _, err := p.expectKw(token.KwImport); err != nil {
		return nil, err
	}

	names := map[string]bool{}
	for {
		id, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		names[id.Ident] = true
		if p.isOp(token.OpComma) {
			p.advance()
			continue
		}
		break
	}

	if _, err := p.expectKw(token.KwOf); err != nil {
		return nil, err
	}
	pathTok := p.cur()
	if pathTok.Kind != token.String {
		return nil, p.errorf(pathTok.Loc, "expected import path string, found %v", pathTok)
	}
	p.advance()
	if err := p.expectTerminate(); err != nil {
		return nil, err
	}

	if p.load == nil {
		return nil, p.errorf(start, "imports are not supported in this context")
	}
	text, err := p.load(pathTok.StringVal)
	if err != nil {
		return nil, langerr.Wrap(langerr.Manager, start, err, "failed to load import %q", pathTok.StringVal)
	}

	prefix := pathTok.StringVal + "::"
	subToks, err := lexer.Lex(text, pathTok.StringVal, prefix, names, false)
	if err != nil {
		return nil, err
	}
	return Parse(subToks, pathTok.StringVal, names, p.load)
}

func (p *parser) parseStruct() (*ast.Struct, error) {
	start := p.cur().Loc
	if _, err := p.expectKw(token.KwStruct); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectOp(token.OpLBrace); err != nil {
		return nil, err
	}

	s := &ast.Struct{Name: name.Ident}
	for !p.isOp(token.OpRBrace) {
		switch {
		case p.isKw(token.KwLet):
			field, err := p.parseFieldDecl()
			if err != nil {
				return nil, err
			}
			s.Properties = append(s.Properties, field)
		case p.isKw(token.KwFunc):
			m, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			s.Methods = append(s.Methods, m)
		default:
			t := p.cur()
			return nil, p.errorf(t.Loc, "expected field or method declaration, found %v", t)
		}
	}
	end := p.cur().Loc
	p.advance() // '}'
	if err := p.expectTerminate(); err != nil {
		return nil, err
	}
	s.Loc = start.Merge(end)
	return s, nil
}

func (p *parser) parseFieldDecl() (*ast.VarSig, error) {
	start := p.cur().Loc
	p.advance() // 'let'
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectTerminate(); err != nil {
		return nil, err
	}
	return &ast.VarSig{Identity: name.Ident, ArgType: typ, Loc: start.Merge(name.Loc)}, nil
}

// parseFunction parses `func <ReturnType> <name>: <type> <name>, ... <block>`.
func (p *parser) parseFunction() (*ast.Function, error) {
	start := p.cur().Loc
	if _, err := p.expectKw(token.KwFunc); err != nil {
		return nil, err
	}
	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	fn := &ast.Function{Name: name.Ident, ReturnType: retType}

	if p.isOp(token.OpColon) {
		p.advance()
		for {
			argType, err := p.parseType()
			if err != nil {
				return nil, err
			}
			argName, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			fn.Args = append(fn.Args, &ast.VarSig{
				Identity: argName.Ident,
				ArgType:  argType,
				Loc:      argType.Loc.Merge(argName.Loc),
			})
			if p.isOp(token.OpComma) {
				p.advance()
				continue
			}
			break
		}
	}

	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn.Block = block

	if err := p.expectTerminate(); err != nil {
		return nil, err
	}
	fn.Loc = start.Merge(block.Loc)
	return fn, nil
}

// parseType parses Array(Type) | Object(Object) (§3 "Type").
func (p *parser) parseType() (*ast.Type, error) {
	start := p.cur().Loc
	obj, err := p.parseTypeName()
	if err != nil {
		return nil, err
	}
	typ := &ast.Type{Obj: obj, Loc: start.Merge(obj.Loc)}
	for p.isOp(token.OpLBracket) {
		p.advance()
		close, err := p.expectOp(token.OpRBracket)
		if err != nil {
			return nil, err
		}
		typ = &ast.Type{Array: typ, Loc: typ.Loc.Merge(close.Loc)}
	}
	return typ, nil
}

// parseTypeName parses a dotted type name such as `path::Name`.
func (p *parser) parseTypeName() (*ast.Object, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	ident := name.Ident
	obj := &ast.Object{Ident: &ident, Loc: name.Loc}
	head := obj
	for p.isOp(token.OpDot) {
		p.advance()
		next, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		nextIdent := next.Ident
		sub := &ast.Object{Ident: &nextIdent, Loc: next.Loc}
		head.Sub = sub
		head = sub
	}
	return obj, nil
}

func (p *parser) parseBlock() (*ast.TermBlock, error) {
	start, err := p.expectOp(token.OpLBrace)
	if err != nil {
		return nil, err
	}
	block := &ast.TermBlock{}
	for !p.isOp(token.OpRBrace) {
		if p.cur().Kind == token.EOF {
			return nil, p.errorf(p.cur().Loc, "unexpected end of file inside block")
		}
		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		block.Terms = append(block.Terms, term)
	}
	end := p.cur().Loc
	p.advance() // '}'
	block.Loc = start.Loc.Merge(end)
	return block, nil
}

func (p *parser) parseTerm() (*ast.Term, error) {
	t := p.cur()
	switch {
	case t.Kind == token.KeyWord && t.KwVal == token.KwPrint:
		return p.parsePrint(false)
	case t.Kind == token.KeyWord && t.KwVal == token.KwPrintln:
		return p.parsePrint(true)
	case t.Kind == token.KeyWord && t.KwVal == token.KwLet:
		return p.parseDeclareVar()
	case t.Kind == token.KeyWord && t.KwVal == token.KwReturn:
		return p.parseReturn()
	case t.Kind == token.KeyWord && t.KwVal == token.KwUpdt:
		return p.parseUpdateVar()
	case t.Kind == token.KeyWord && t.KwVal == token.KwIf:
		return p.parseIf()
	case t.Kind == token.KeyWord && t.KwVal == token.KwLoop:
		return p.parseLoop()
	case t.Kind == token.KeyWord && t.KwVal == token.KwBreak:
		p.advance()
		if err := p.expectTerminate(); err != nil {
			return nil, err
		}
		return &ast.Term{Kind: ast.TermBreak, Loc: t.Loc}, nil
	case t.Kind == token.KeyWord && t.KwVal == token.KwContinue:
		p.advance()
		if err := p.expectTerminate(); err != nil {
			return nil, err
		}
		return &ast.Term{Kind: ast.TermContinue, Loc: t.Loc}, nil
	case t.Kind == token.KeyWord && t.KwVal == token.KwCll:
		return p.parseCall()
	default:
		return nil, p.errorf(t.Loc, "expected statement, found %v", t)
	}
}

func (p *parser) parsePrint(ln bool) (*ast.Term, error) {
	start := p.advance().Loc // 'print' / 'println'
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectTerminate(); err != nil {
		return nil, err
	}
	kind := ast.TermPrint
	if ln {
		kind = ast.TermPrintln
	}
	return &ast.Term{Kind: kind, Expr: expr, Loc: start.Merge(expr.Loc)}, nil
}

func (p *parser) parseDeclareVar() (*ast.Term, error) {
	start := p.advance().Loc // 'let'
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectOp(token.OpAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectTerminate(); err != nil {
		return nil, err
	}
	return &ast.Term{
		Kind:    ast.TermDeclareVar,
		VarName: name.Ident,
		VarType: typ,
		Value:   value,
		Loc:     start.Merge(value.Loc),
	}, nil
}

func (p *parser) parseReturn() (*ast.Term, error) {
	start := p.advance().Loc // 'return'
	if p.cur().Kind == token.Terminate {
		p.advance()
		return &ast.Term{Kind: ast.TermReturn, Loc: start}, nil
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectTerminate(); err != nil {
		return nil, err
	}
	return &ast.Term{Kind: ast.TermReturn, Value: value, Loc: start.Merge(value.Loc)}, nil
}

var compoundAssignOps = map[token.Op]bool{
	token.OpAssign: true, token.OpAddAssign: true, token.OpSubAssign: true,
	token.OpMulAssign: true, token.OpDivAssign: true, token.OpModAssign: true,
	token.OpPowAssign: true,
}

func (p *parser) parseUpdateVar() (*ast.Term, error) {
	start := p.advance().Loc // 'updt'
	target, err := p.parseObject(false)
	if err != nil {
		return nil, err
	}
	opTok := p.cur()
	if opTok.Kind != token.Operator || !compoundAssignOps[opTok.OpVal] {
		return nil, p.errorf(opTok.Loc, "expected assignment operator, found %v", opTok)
	}
	p.advance()
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectTerminate(); err != nil {
		return nil, err
	}
	return &ast.Term{
		Kind:         ast.TermUpdateVar,
		UpdateTarget: target,
		SetOp:        opTok.OpVal,
		Value:        value,
		Loc:          start.Merge(value.Loc),
	}, nil
}

func (p *parser) parseIf() (*ast.Term, error) {
	start := p.advance().Loc // 'if'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	term := &ast.Term{Kind: ast.TermIf, Cond: cond, Then: then, Loc: start.Merge(then.Loc)}
	if p.isKw(token.KwElse) {
		p.advance()
		if p.isKw(token.KwIf) {
			elseIf, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			term.Else = &ast.TermBlock{Terms: []*ast.Term{elseIf}, Loc: elseIf.Loc}
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			term.Else = elseBlock
		}
		term.Loc = term.Loc.Merge(term.Else.Loc)
	}
	return term, nil
}

func (p *parser) parseLoop() (*ast.Term, error) {
	start := p.advance().Loc // 'loop'
	counter, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectOp(token.OpColon); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Term{
		Kind:    ast.TermLoop,
		Counter: counter.Ident,
		Cond:    cond,
		Body:    body,
		Loc:     start.Merge(body.Loc),
	}, nil
}

func (p *parser) parseCall() (*ast.Term, error) {
	start := p.advance().Loc // 'cll'
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectTerminate(); err != nil {
		return nil, err
	}
	return &ast.Term{Kind: ast.TermCall, CallExpr: expr, Loc: start.Merge(expr.Loc)}, nil
}

// Operand expressions
// --------------------------------------------------
//
// parseExpr climbs a fixed precedence table, from loosest (&&/||) to
// tightest (unary '!', then '.' member access). Each level is its own
// method rather than a table lookup, because unlike the Prolog operator
// table in lang/op/op.go (a dynamic, re-orderable OpTable) TermsLang's
// precedence levels are fixed by the language.

func (p *parser) parseExpr() (*ast.OperandExpression, error) {
	return p.parseLogical()
}

func (p *parser) parseLogical() (*ast.OperandExpression, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.isOp(token.OpAnd) || p.isOp(token.OpOr) {
		opTok := p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.OperandExpression{
			Kind: ast.ExprBinary, BinaryOp: opTok.OpVal,
			BinaryLeft: left, BinaryRight: right,
			Loc: left.Loc.Merge(right.Loc),
		}
	}
	return left, nil
}

func (p *parser) parseComparison() (*ast.OperandExpression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.isOp(token.OpEq) || p.isOp(token.OpNotEq) || p.isOp(token.OpGt) ||
		p.isOp(token.OpLt) || p.isOp(token.OpGtEq) || p.isOp(token.OpLtEq) {
		opTok := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.OperandExpression{
			Kind: ast.ExprBinary, BinaryOp: opTok.OpVal,
			BinaryLeft: left, BinaryRight: right,
			Loc: left.Loc.Merge(right.Loc),
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (*ast.OperandExpression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isOp(token.OpAdd) || p.isOp(token.OpSub) {
		opTok := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.OperandExpression{
			Kind: ast.ExprBinary, BinaryOp: opTok.OpVal,
			BinaryLeft: left, BinaryRight: right,
			Loc: left.Loc.Merge(right.Loc),
		}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (*ast.OperandExpression, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.isOp(token.OpMul) || p.isOp(token.OpDiv) || p.isOp(token.OpMod) {
		opTok := p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &ast.OperandExpression{
			Kind: ast.ExprBinary, BinaryOp: opTok.OpVal,
			BinaryLeft: left, BinaryRight: right,
			Loc: left.Loc.Merge(right.Loc),
		}
	}
	return left, nil
}

func (p *parser) parsePower() (*ast.OperandExpression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp(token.OpPow) {
		opTok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.OperandExpression{
			Kind: ast.ExprBinary, BinaryOp: opTok.OpVal,
			BinaryLeft: left, BinaryRight: right,
			Loc: left.Loc.Merge(right.Loc),
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (*ast.OperandExpression, error) {
	if p.isOp(token.OpNot) {
		opTok := p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.OperandExpression{
			Kind: ast.ExprUnary, UnaryOp: opTok.OpVal, UnaryInner: inner,
			Loc: opTok.Loc.Merge(inner.Loc),
		}, nil
	}
	return p.parseDotChain()
}

// parseDotChain parses a primary expression, then — if the primary was
// not itself an object path (e.g. a parenthesized group or a `$T(...)`
// creation) — joins any following `.member` access onto it as ExprDot,
// the member-access level of §4.2's precedence table.
func (p *parser) parseDotChain() (*ast.OperandExpression, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.isOp(token.OpDot) && left.Kind != ast.ExprObject {
		p.advance()
		obj, err := p.parseObjectFrom(true)
		if err != nil {
			return nil, err
		}
		left = &ast.OperandExpression{
			Kind: ast.ExprDot, DotLeft: left, DotRight: obj,
			Loc: left.Loc.Merge(obj.Loc),
		}
	}
	return left, nil
}

func (p *parser) parsePrimary() (*ast.OperandExpression, error) {
	t := p.cur()
	switch {
	case t.Kind == token.Int || t.Kind == token.Float || t.Kind == token.String || t.Kind == token.Bool:
		p.advance()
		return &ast.OperandExpression{Kind: ast.ExprLiteral, Literal: &t, Loc: t.Loc}, nil

	case t.Kind == token.Operator && t.OpVal == token.OpLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		close, err := p.expectOp(token.OpRParen)
		if err != nil {
			return nil, err
		}
		inner.Loc = t.Loc.Merge(close.Loc)
		return inner, nil

	case t.Kind == token.Operator && t.OpVal == token.OpNew:
		return p.parseObjectCreate()

	case t.Kind == token.Identity:
		obj, err := p.parseObject(true)
		if err != nil {
			return nil, err
		}
		return &ast.OperandExpression{Kind: ast.ExprObject, Object: obj, Loc: obj.Loc}, nil

	default:
		return nil, p.errorf(t.Loc, "expected expression, found %v", t)
	}
}

// parseObjectCreate parses `$Type(args)` (§4.2 "object-creation operator").
func (p *parser) parseObjectCreate() (*ast.OperandExpression, error) {
	start := p.advance().Loc // '$'
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectOp(token.OpLParen); err != nil {
		return nil, err
	}
	call, err := p.parseCallArgs()
	if err != nil {
		return nil, err
	}
	create := &ast.ObjectCreate{Kind: typ, Args: call, Loc: start.Merge(call.Loc)}
	return &ast.OperandExpression{Kind: ast.ExprCreate, Create: create, Loc: create.Loc}, nil
}

// parseCallArgs parses a comma-separated argument list up to and including
// the closing ')'. The opening '(' has already been consumed.
func (p *parser) parseCallArgs() (*ast.Call, error) {
	start := p.eofLoc()
	if p.pos > 0 {
		start = p.toks[p.pos-1].Loc
	}
	call := &ast.Call{}
	if p.isOp(token.OpRParen) {
		end := p.advance().Loc
		call.Loc = start.Merge(end)
		return call, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.isOp(token.OpComma) {
			p.advance()
			continue
		}
		break
	}
	end, err := p.expectOp(token.OpRParen)
	if err != nil {
		return nil, err
	}
	call.Loc = start.Merge(end.Loc)
	return call, nil
}

// parseObject parses a dotted object/call/index path starting at an
// identifier (§4.2's "non-peekable" entry point: a fresh path, not a
// continuation after '.'). allowCall controls whether '(' anywhere in the
// chain is consumed as a call step; it is false for updt's assignment
// target, which may read through member and index access but can never
// assign into the result of a call.
func (p *parser) parseObject(allowCall bool) (*ast.Object, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	ident := name.Ident
	head := &ast.Object{Ident: &ident, Loc: name.Loc}
	return p.continueObject(head, allowCall)
}

// parseObjectFrom parses the continuation after a '.' has already been
// consumed (§4.2's "peekable" variants): the next segment must be a plain
// identifier, which may then itself be called or indexed.
func (p *parser) parseObjectFrom(allowCall bool) (*ast.Object, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	ident := name.Ident
	head := &ast.Object{Ident: &ident, Loc: name.Loc}
	return p.continueObject(head, allowCall)
}

// continueObject repeatedly attaches '(' call, '[' index, and '.' member
// steps onto the tail of the chain rooted at head, returning head with its
// Sub pointers filled in.
func (p *parser) continueObject(head *ast.Object, allowCall bool) (*ast.Object, error) {
	tail := head
	for {
		switch {
		case allowCall && p.isOp(token.OpLParen):
			p.advance()
			call, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			next := &ast.Object{Call: call, Loc: call.Loc}
			tail.Sub = next
			tail = next

		case p.isOp(token.OpLBracket):
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			close, err := p.expectOp(token.OpRBracket)
			if err != nil {
				return nil, err
			}
			next := &ast.Object{Index: idx, Loc: idx.Loc.Merge(close.Loc)}
			tail.Sub = next
			tail = next

		case p.isOp(token.OpDot):
			p.advance()
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			ident := name.Ident
			next := &ast.Object{Ident: &ident, Loc: name.Loc}
			tail.Sub = next
			tail = next

		default:
			head.Loc = head.Loc.Merge(tail.Loc)
			return head, nil
		}
	}
}
