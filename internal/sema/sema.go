package sema

import (
	"github.com/Owen-Dechow/TermsLang-sub000/internal/ast"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/langerr"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/token"
)

// Analyze turns a parsed program into an annotated one: aparse(program)
// -> AProgram | Error.
//
// It runs three passes: declare (register every struct/function name
// before resolving any type that names one, so order of declaration in
// source never matters), resolve forward references (the one retry pass
// over names that did not resolve on first lookup — in this
// declare-everything-up-front design that only ever fires for genuinely
// undefined names), and annotate bodies (full type checking of every
// function and method).
func Analyze(prog *ast.Program) (*AProgram, error) {
	a := newAnalyzer()

	if err := a.declare(prog); err != nil {
		return nil, err
	}
	if err := a.resolveSignatures(prog); err != nil {
		return nil, err
	}
	if err := a.fixPending(); err != nil {
		return nil, err
	}
	a.synthesizeConstructors()
	if err := a.annotateBodies(); err != nil {
		return nil, err
	}

	main, ok := a.funcs["@main"]
	if !ok || main.IsMethod {
		return nil, langerr.New(langerr.ActiveParser, token.NoLoc, "no @main function declared")
	}

	out := &AProgram{Main: main}
	for _, s := range a.order {
		out.Structs = append(out.Structs, s)
	}
	for _, f := range a.funcOrder {
		out.Functions = append(out.Functions, f)
	}
	return out, nil
}

type pendingFix struct {
	target *AType
	name   string
	loc    token.Location
}

type analyzer struct {
	structs map[string]*AStruct
	funcs   map[string]*AFunc

	structAst map[*AStruct]*ast.Struct
	funcAst   map[*AFunc]*ast.Function

	order     []*AStruct // user structs, declaration order
	funcOrder []*AFunc   // user functions, declaration order

	pending []pendingFix

	uid int

	intT, floatT, boolT, strT, nullT *AType
	intS, floatS, boolS, strS, nullS *AStruct
}

func newAnalyzer() *analyzer {
	a := &analyzer{
		structs:   map[string]*AStruct{},
		funcs:     map[string]*AFunc{},
		structAst: map[*AStruct]*ast.Struct{},
		funcAst:   map[*AFunc]*ast.Function{},
	}
	roots, freeBuiltins := newRootStructs()
	for name, s := range roots {
		a.structs[name] = s
		if s.UID == 0 {
			a.uid++
			s.UID = a.uid
		}
	}
	for _, f := range freeBuiltins {
		a.funcs[f.Name] = f
	}
	a.intS, a.floatS, a.boolS, a.strS, a.nullS = roots["int"], roots["float"], roots["bool"], roots["str"], roots["null"]
	a.intT = &AType{Kind: AStructObject, Struct: a.intS}
	a.floatT = &AType{Kind: AStructObject, Struct: a.floatS}
	a.boolT = &AType{Kind: AStructObject, Struct: a.boolS}
	a.strT = &AType{Kind: AStructObject, Struct: a.strS}
	a.nullT = &AType{Kind: AStructObject, Struct: a.nullS}
	return a
}

func (a *analyzer) nextUID() int {
	a.uid++
	return a.uid
}

// declare is pass 1: register every struct, function, and method name
// into the global tables before resolving any type (§4.3 "Declare").
func (a *analyzer) declare(prog *ast.Program) error {
	for _, s := range prog.Structs {
		if token.ReservedIdents[s.Name] {
			return langerr.New(langerr.ActiveParser, s.Loc, "%q is a reserved name", s.Name)
		}
		if _, exists := a.structs[s.Name]; exists {
			return langerr.New(langerr.ActiveParser, s.Loc, "struct %q already declared", s.Name)
		}
		as := &AStruct{Name: s.Name, UID: a.nextUID(), Loc: s.Loc, Methods: map[string]*AFunc{}}
		a.structs[s.Name] = as
		a.structAst[as] = s
		a.order = append(a.order, as)
	}

	for _, f := range prog.Functions {
		if token.ReservedIdents[f.Name] && f.Name != "@main" {
			return langerr.New(langerr.ActiveParser, f.Loc, "%q is a reserved name", f.Name)
		}
		if _, exists := a.funcs[f.Name]; exists {
			return langerr.New(langerr.ActiveParser, f.Loc, "function %q already declared", f.Name)
		}
		af := &AFunc{Name: f.Name, UID: a.nextUID(), Loc: f.Loc}
		a.funcs[f.Name] = af
		a.funcAst[af] = f
		a.funcOrder = append(a.funcOrder, af)
	}

	for _, s := range prog.Structs {
		as := a.structs[s.Name]
		for _, m := range s.Methods {
			if _, exists := as.Methods[m.Name]; exists {
				return langerr.New(langerr.ActiveParser, m.Loc, "method %q already declared on %q", m.Name, s.Name)
			}
			am := &AFunc{Name: m.Name, UID: a.nextUID(), IsMethod: true, Owner: as, Loc: m.Loc}
			as.Methods[m.Name] = am
			a.funcAst[am] = m
		}
	}
	return nil
}

// resolveSignatures is the first half of pass 2: struct fields and
// function/method argument & return types are resolved against the
// (now-complete) name tables.
func (a *analyzer) resolveSignatures(prog *ast.Program) error {
	for _, s := range prog.Structs {
		as := a.structs[s.Name]
		for _, p := range s.Properties {
			as.Fields = append(as.Fields, &AField{Name: p.Identity, Type: a.resolveType(p.ArgType)})
		}
	}

	resolveFunc := func(af *AFunc, fn *ast.Function) {
		af.ReturnType = a.resolveType(fn.ReturnType)
		for _, arg := range fn.Args {
			af.Args = append(af.Args, &AArg{Name: arg.Identity, Type: a.resolveType(arg.ArgType)})
		}
	}

	for af, fn := range a.funcAst {
		resolveFunc(af, fn)
	}
	return nil
}

// resolveType resolves an ast.Type against the current struct table,
// per §3's AType variants. A name not yet found becomes a NotYetDefined
// placeholder recorded for the fix-up pass (§4.3 "Resolve forward
// references"). A call made while annotating bodies comes after
// fixPending has run, so its placeholder is never patched; annotateTerm
// and annotateCreate reject such a type.
func (a *analyzer) resolveType(t *ast.Type) *AType {
	if t.Array != nil {
		return &AType{Kind: AArray, Elem: a.resolveType(t.Array)}
	}
	name := flattenObjectName(t.Obj)
	if s, ok := a.structs[name]; ok {
		return &AType{Kind: AStructObject, Struct: s}
	}
	target := &AType{Kind: ANotYetDefined, Pending: t}
	a.pending = append(a.pending, pendingFix{target: target, name: name, loc: t.Loc})
	return target
}

func flattenObjectName(o *ast.Object) string {
	if o == nil {
		return ""
	}
	name := ""
	if o.Ident != nil {
		name = *o.Ident
	}
	if o.Sub != nil {
		sub := flattenObjectName(o.Sub)
		if sub != "" {
			name += "." + sub
		}
	}
	return name
}

// fixPending is pass 2's resolution retry: every NotYetDefined
// placeholder is re-resolved now that every struct is known; a name
// that still fails to resolve is an AParserError (§4.3 "if any remain
// unresolved, error").
func (a *analyzer) fixPending() error {
	for _, p := range a.pending {
		s, ok := a.structs[p.name]
		if !ok {
			return langerr.New(langerr.ActiveParser, p.loc, "No type of name %s exists.", p.name)
		}
		p.target.Kind = AStructObject
		p.target.Struct = s
		p.target.Pending = nil
	}
	return nil
}

// synthesizeConstructors gives every user struct that does not declare
// its own `@new` a default one that leaves each field null; the
// flattener/VM treat an Internal, non-array special method named "@new"
// on a user struct as "allocate a PushObj skeleton", §4.4.1 "PushObj".
func (a *analyzer) synthesizeConstructors() {
	for _, as := range a.order {
		if _, ok := as.Methods["@new"]; ok {
			continue
		}
		as.Methods["@new"] = &AFunc{
			Name:       "@new",
			ReturnType: &AType{Kind: AStructObject, Struct: as},
			Internal:   true,
			IsMethod:   true,
			Owner:      as,
			UID:        a.nextUID(),
		}
	}
}

// annotateBodies is pass 3: every user function and method body is
// lowered to an ATermBlock with full type checking (§4.3 "Annotate
// bodies").
func (a *analyzer) annotateBodies() error {
	for af, fn := range a.funcAst {
		sc := newScope(nil)
		for _, arg := range af.Args {
			sc.define(arg.Name, arg.Type)
		}
		if af.IsMethod {
			sc.define("@this", &AType{Kind: AStructObject, Struct: af.Owner})
		}
		body, err := a.annotateBlock(fn.Block, sc, af)
		if err != nil {
			return err
		}
		af.Body = body
	}
	return nil
}

// scope is a lexical name table; lookup walks outward to the enclosing
// scope and, failing that, the caller falls back to the global
// struct/function tables (§4.3 "Name resolution").
type scope struct {
	parent *scope
	vars   map[string]*AType
}

func newScope(parent *scope) *scope { return &scope{parent: parent, vars: map[string]*AType{}} }

func (s *scope) define(name string, t *AType) { s.vars[name] = t }

func (s *scope) lookup(name string) (*AType, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}

func (a *analyzer) annotateBlock(block *ast.TermBlock, sc *scope, fn *AFunc) (*ATermBlock, error) {
	out := &ATermBlock{Loc: block.Loc}
	for _, t := range block.Terms {
		at, err := a.annotateTerm(t, sc, fn)
		if err != nil {
			return nil, err
		}
		out.Terms = append(out.Terms, at)
	}
	return out, nil
}

func (a *analyzer) annotateTerm(t *ast.Term, sc *scope, fn *AFunc) (*ATerm, error) {
	switch t.Kind {
	case ast.TermPrint, ast.TermPrintln:
		expr, err := a.annotateExpr(t.Expr, sc)
		if err != nil {
			return nil, err
		}
		return &ATerm{Kind: t.Kind, Loc: t.Loc, Expr: expr}, nil

	case ast.TermDeclareVar:
		declared := a.resolveType(t.VarType)
		value, err := a.annotateExpr(t.Value, sc)
		if err != nil {
			return nil, err
		}
		if !sameStruct(declared, value.Type) && !(declared.Kind == AArray && value.Type.Kind == AArray) {
			return nil, langerr.New(langerr.ActiveParser, t.Loc, "Missmatched types")
		}
		sc.define(t.VarName, declared)
		return &ATerm{Kind: ast.TermDeclareVar, Loc: t.Loc, VarName: t.VarName, VarType: declared, Value: value}, nil

	case ast.TermReturn:
		if t.Value == nil {
			if !sameStruct(fn.ReturnType, a.nullT) {
				return nil, langerr.New(langerr.ActiveParser, t.Loc, "Missmatched types")
			}
			return &ATerm{Kind: ast.TermReturn, Loc: t.Loc}, nil
		}
		value, err := a.annotateExpr(t.Value, sc)
		if err != nil {
			return nil, err
		}
		if !sameStruct(fn.ReturnType, a.nullT) && !sameStruct(fn.ReturnType, value.Type) {
			return nil, langerr.New(langerr.ActiveParser, t.Loc, "Missmatched types")
		}
		return &ATerm{Kind: ast.TermReturn, Loc: t.Loc, Value: value}, nil

	case ast.TermUpdateVar:
		return a.annotateUpdate(t, sc)

	case ast.TermIf:
		cond, err := a.annotateExpr(t.Cond, sc)
		if err != nil {
			return nil, err
		}
		if !sameStruct(cond.Type, a.boolT) {
			return nil, langerr.New(langerr.ActiveParser, t.Cond.Loc, "Missmatched types")
		}
		then, err := a.annotateBlock(t.Then, newScope(sc), fn)
		if err != nil {
			return nil, err
		}
		out := &ATerm{Kind: ast.TermIf, Loc: t.Loc, Cond: cond, Then: then}
		if t.Else != nil {
			els, err := a.annotateBlock(t.Else, newScope(sc), fn)
			if err != nil {
				return nil, err
			}
			out.Else = els
		}
		return out, nil

	case ast.TermLoop:
		loopScope := newScope(sc)
		loopScope.define(t.Counter, a.intT)
		cond, err := a.annotateExpr(t.Cond, loopScope)
		if err != nil {
			return nil, err
		}
		if !sameStruct(cond.Type, a.boolT) {
			return nil, langerr.New(langerr.ActiveParser, t.Cond.Loc, "Missmatched types")
		}
		body, err := a.annotateBlock(t.Body, loopScope, fn)
		if err != nil {
			return nil, err
		}
		return &ATerm{Kind: ast.TermLoop, Loc: t.Loc, Counter: t.Counter, Cond: cond, Body: body}, nil

	case ast.TermBreak, ast.TermContinue:
		return &ATerm{Kind: t.Kind, Loc: t.Loc}, nil

	case ast.TermCall:
		expr, err := a.annotateExpr(t.CallExpr, sc)
		if err != nil {
			return nil, err
		}
		return &ATerm{Kind: ast.TermCall, Loc: t.Loc, Expr: expr}, nil

	default:
		return nil, langerr.New(langerr.ActiveParser, t.Loc, "unsupported statement")
	}
}

// annotateUpdate implements §4.3's compound-assignment desugaring:
// `updt v OP= e` is rewritten to `updt v = v OP e` via the left operand's
// resolved special method, before the final '=' form's assignability
// check runs.
func (a *analyzer) annotateUpdate(t *ast.Term, sc *scope) (*ATerm, error) {
	target, err := a.annotateObject(t.UpdateTarget, sc, false)
	if err != nil {
		return nil, err
	}

	value, err := a.annotateExpr(t.Value, sc)
	if err != nil {
		return nil, err
	}

	if base, ok := compoundBaseOp(t.SetOp); ok {
		method, err := a.resolveSpecialMethod(target.Type, base, t.Loc)
		if err != nil {
			return nil, err
		}
		value = &AOperandExpression{
			Kind: AExprBinary, Loc: t.Loc, Type: method.ReturnType,
			BinaryOp:   base,
			BinaryLeft: &AOperandExpression{Kind: AExprObject, Loc: target.Loc, Type: target.Type, Object: target},
			BinaryRight: value, BinaryMethod: method,
		}
	}

	if !sameStruct(target.Type, value.Type) && !(target.Type.Kind == AArray && value.Type.Kind == AArray) {
		return nil, langerr.New(langerr.ActiveParser, t.Loc, "Missmatched types")
	}

	return &ATerm{Kind: ast.TermUpdateVar, Loc: t.Loc, UpdateTarget: target, Value: value}, nil
}

// annotateExpr type-checks one OperandExpression node (§4.3's general
// type-checking rules plus §4.2's grammar).
func (a *analyzer) annotateExpr(e *ast.OperandExpression, sc *scope) (*AOperandExpression, error) {
	switch e.Kind {
	case ast.ExprLiteral:
		return &AOperandExpression{Kind: AExprLiteral, Loc: e.Loc, Type: a.literalType(e.Literal), Literal: e.Literal}, nil

	case ast.ExprObject:
		obj, err := a.annotateObject(e.Object, sc, true)
		if err != nil {
			return nil, err
		}
		return &AOperandExpression{Kind: AExprObject, Loc: e.Loc, Type: obj.Type, Object: obj}, nil

	case ast.ExprCreate:
		return a.annotateCreate(e, sc)

	case ast.ExprUnary:
		inner, err := a.annotateExpr(e.UnaryInner, sc)
		if err != nil {
			return nil, err
		}
		method, err := a.resolveSpecialMethod(inner.Type, e.UnaryOp, e.Loc)
		if err != nil {
			return nil, err
		}
		return &AOperandExpression{
			Kind: AExprUnary, Loc: e.Loc, Type: method.ReturnType,
			UnaryOp: e.UnaryOp, UnaryInner: inner, UnaryMethod: method,
		}, nil

	case ast.ExprBinary:
		left, err := a.annotateExpr(e.BinaryLeft, sc)
		if err != nil {
			return nil, err
		}
		right, err := a.annotateExpr(e.BinaryRight, sc)
		if err != nil {
			return nil, err
		}
		method, err := a.resolveSpecialMethod(left.Type, e.BinaryOp, e.Loc)
		if err != nil {
			return nil, err
		}
		if len(method.Args) > 0 && !sameStruct(method.Args[0].Type, right.Type) {
			return nil, langerr.New(langerr.ActiveParser, e.Loc, "Missmatched types")
		}
		return &AOperandExpression{
			Kind: AExprBinary, Loc: e.Loc, Type: method.ReturnType,
			BinaryOp: e.BinaryOp, BinaryLeft: left, BinaryRight: right, BinaryMethod: method,
		}, nil

	case ast.ExprDot:
		left, err := a.annotateExpr(e.DotLeft, sc)
		if err != nil {
			return nil, err
		}
		right, err := a.annotateObjectStep(e.DotRight, left.Type, sc)
		if err != nil {
			return nil, err
		}
		return &AOperandExpression{Kind: AExprDot, Loc: e.Loc, Type: right.Type, DotLeft: left, DotRight: right}, nil

	default:
		return nil, langerr.New(langerr.ActiveParser, e.Loc, "unsupported expression")
	}
}

func (a *analyzer) literalType(tok *token.Token) *AType {
	switch tok.Kind {
	case token.Int:
		return a.intT
	case token.Float:
		return a.floatT
	case token.Bool:
		return a.boolT
	case token.String:
		return a.strT
	default:
		return a.nullT
	}
}

// annotateCreate implements `$Type(args)` (§4.2 "New-operator"): an
// array creation requires empty args, a struct creation invokes the
// resolved `@new` special method with arity/type checking.
func (a *analyzer) annotateCreate(e *ast.OperandExpression, sc *scope) (*AOperandExpression, error) {
	typ := a.resolveType(e.Create.Kind)
	if typ.Kind == ANotYetDefined {
		return nil, langerr.New(langerr.ActiveParser, e.Loc, "No type of name %s exists.", flattenObjectName(e.Create.Kind.Obj))
	}

	var args []*AOperandExpression
	for _, arg := range e.Create.Args.Args {
		av, err := a.annotateExpr(arg, sc)
		if err != nil {
			return nil, err
		}
		args = append(args, av)
	}

	if typ.Kind == AArray {
		if len(args) != 0 {
			return nil, langerr.New(langerr.ActiveParser, e.Loc, "array creation takes no arguments")
		}
		return &AOperandExpression{Kind: AExprCreate, Loc: e.Loc, Type: typ, CreateArgs: nil}, nil
	}

	ctor, ok := typ.Struct.Methods["@new"]
	if !ok {
		return nil, langerr.New(langerr.ActiveParser, e.Loc, "struct %q has no constructor", typ.Struct.Name)
	}
	if err := a.checkArgs(ctor, args, e.Loc); err != nil {
		return nil, err
	}
	return &AOperandExpression{
		Kind: AExprCreate, Loc: e.Loc, Type: &AType{Kind: AStructObject, Struct: typ.Struct},
		CreateStruct: typ.Struct, CreateArgs: args,
	}, nil
}

func (a *analyzer) checkArgs(fn *AFunc, args []*AOperandExpression, loc token.Location) error {
	if len(fn.Args) != len(args) {
		return langerr.New(langerr.ActiveParser, loc, "expected %d arguments, found %d", len(fn.Args), len(args))
	}
	for i, arg := range args {
		want := fn.Args[i].Type
		if want.Kind == AArray && arg.Type.Kind == AArray {
			continue
		}
		if !sameStruct(want, arg.Type) {
			return langerr.New(langerr.ActiveParser, loc, "Missmatched types")
		}
	}
	return nil
}

// resolveSpecialMethod looks up the fixed (root-type, operator) special
// method, or a user struct's own override of that operator name
// (§9 "Special-method dispatch": user structs may only override the
// table for their own type).
func (a *analyzer) resolveSpecialMethod(t *AType, op token.Op, loc token.Location) (*AFunc, error) {
	name, ok := specialMethodForOp(op)
	if !ok {
		return nil, langerr.New(langerr.ActiveParser, loc, "operator %v has no special method", op)
	}
	if t == nil || t.Kind != AStructObject {
		return nil, langerr.New(langerr.ActiveParser, loc, "operator %v is not defined for this type", op)
	}
	m, ok := t.Struct.Methods[name]
	if !ok {
		return nil, langerr.New(langerr.ActiveParser, loc, "%s has no method %s", t.Struct.Name, name)
	}
	return m, nil
}

// annotateObject resolves a fresh dotted access path starting from a
// variable name (§4.3 "Name resolution"): scopes first, then the global
// struct/function tables. allowCall mirrors the parser's
// peekable/callable distinction: an updt target may read through member
// and index steps but never end in a call.
func (a *analyzer) annotateObject(o *ast.Object, sc *scope, allowCall bool) (*AObject, error) {
	if o.Ident == nil {
		return nil, langerr.New(langerr.ActiveParser, o.Loc, "expected a name")
	}
	name := *o.Ident

	if t, ok := sc.lookup(name); ok {
		head := &AObject{Kind: AObjVar, Loc: o.Loc, Type: t, Name: name}
		return a.continueObject(head, o.Sub, sc, allowCall)
	}
	if fn, ok := a.funcs[name]; ok {
		head := &AObject{Kind: AObjVar, Loc: o.Loc, Type: &AType{Kind: AFuncDefRef, Func: fn}, Name: name}
		return a.continueObject(head, o.Sub, sc, allowCall)
	}
	if s, ok := a.structs[name]; ok {
		head := &AObject{Kind: AObjVar, Loc: o.Loc, Type: &AType{Kind: AStructDefRef, Struct: s}, Name: name}
		return a.continueObject(head, o.Sub, sc, allowCall)
	}
	return nil, langerr.New(langerr.ActiveParser, o.Loc, "No object of name %s exists.", name)
}

// annotateObjectStep resolves a `.member` continuation whose base type
// is already known (used by ExprDot, where the left side is not itself
// an object path, e.g. `(e).field`).
func (a *analyzer) annotateObjectStep(o *ast.Object, baseType *AType, sc *scope) (*AObject, error) {
	if o.Ident == nil {
		return nil, langerr.New(langerr.ActiveParser, o.Loc, "expected a member name")
	}
	step, err := a.memberStep(baseType, *o.Ident, o.Loc)
	if err != nil {
		return nil, err
	}
	return a.continueObject(step, o.Sub, sc, true)
}

// memberStep resolves one field-or-method name against a struct type
// (§4.3 "Member access on a struct resolves to a field ... or a
// method").
func (a *analyzer) memberStep(baseType *AType, name string, loc token.Location) (*AObject, error) {
	if baseType != nil && baseType.Kind == AArray {
		methods := arrayMethods(baseType.Elem, a.intT)
		if m, ok := methods[name]; ok {
			return &AObject{Kind: AObjField, Loc: loc, Type: &AType{Kind: AFuncDefRef, Func: m}, Name: name}, nil
		}
		return nil, langerr.New(langerr.ActiveParser, loc, "No object of name %s exists.", name)
	}
	if baseType == nil || baseType.Kind != AStructObject {
		return nil, langerr.New(langerr.ActiveParser, loc, "cannot access member %q on this type", name)
	}
	for _, f := range baseType.Struct.Fields {
		if f.Name == name {
			return &AObject{Kind: AObjField, Loc: loc, Type: f.Type, Name: name}, nil
		}
	}
	if m, ok := baseType.Struct.Methods[name]; ok {
		return &AObject{Kind: AObjField, Loc: loc, Type: &AType{Kind: AFuncDefRef, Func: m}, Name: name}, nil
	}
	return nil, langerr.New(langerr.ActiveParser, loc, "No object of name %s exists.", name)
}

// continueObject walks the remaining Sub chain of a parsed path,
// resolving each step's type: a Call step invokes whatever FuncDefRef
// the preceding step produced, an Index step requires an array, and a
// following member name resolves through memberStep against the
// preceding step's struct type.
func (a *analyzer) continueObject(head *AObject, sub *ast.Object, sc *scope, allowCall bool) (*AObject, error) {
	tail := head
	for sub != nil {
		switch {
		case sub.Call != nil:
			if !allowCall {
				return nil, langerr.New(langerr.ActiveParser, sub.Loc, "call not permitted here")
			}
			if tail.Type == nil || tail.Type.Kind != AFuncDefRef {
				return nil, langerr.New(langerr.ActiveParser, sub.Loc, "cannot call a non-function")
			}
			fn := tail.Type.Func
			var args []*AOperandExpression
			for _, argExpr := range sub.Call.Args {
				av, err := a.annotateExpr(argExpr, sc)
				if err != nil {
					return nil, err
				}
				args = append(args, av)
			}
			if err := a.checkArgs(fn, args, sub.Loc); err != nil {
				return nil, err
			}
			next := &AObject{Kind: AObjCall, Loc: sub.Loc, Type: fn.ReturnType, Call: &ACall{Func: fn, Args: args, Loc: sub.Loc}}
			tail.Sub = next
			tail = next

		case sub.Index != nil:
			if tail.Type == nil || tail.Type.Kind != AArray {
				return nil, langerr.New(langerr.ActiveParser, sub.Loc, "indexing is only defined on arrays")
			}
			idx, err := a.annotateExpr(sub.Index, sc)
			if err != nil {
				return nil, err
			}
			if !sameStruct(idx.Type, a.intT) {
				return nil, langerr.New(langerr.ActiveParser, sub.Loc, "Missmatched types")
			}
			next := &AObject{Kind: AObjIndex, Loc: sub.Loc, Type: tail.Type.Elem, Index: idx}
			tail.Sub = next
			tail = next

		case sub.Ident != nil:
			step, err := a.memberStep(tail.Type, *sub.Ident, sub.Loc)
			if err != nil {
				return nil, err
			}
			tail.Sub = step
			tail = step

		default:
			return nil, langerr.New(langerr.ActiveParser, sub.Loc, "malformed access path")
		}
		sub = sub.Sub
	}
	return head, nil
}
