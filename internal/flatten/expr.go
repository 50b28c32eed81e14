package flatten

import (
	"github.com/Owen-Dechow/TermsLang-sub000/internal/sema"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/token"
)

// genExpr emits the command sequence that leaves exactly one value on
// top of the stack: the result of evaluating e.
func (f *flattener) genExpr(e *sema.AOperandExpression) {
	switch e.Kind {
	case sema.AExprLiteral:
		f.emit(CMD{Op: PushLit, Lit: litFromToken(e.Literal)})

	case sema.AExprObject:
		f.genObjectPath(e.Object)

	case sema.AExprCreate:
		f.genCreate(e)

	case sema.AExprUnary:
		f.genExpr(e.UnaryInner)
		f.genCallTarget(e.UnaryMethod, 0, e.Loc)

	case sema.AExprBinary:
		f.genExpr(e.BinaryLeft)
		f.genExpr(e.BinaryRight)
		f.genCallTarget(e.BinaryMethod, 1, e.Loc)
		if e.BinaryOp == token.OpNotEq {
			f.emit(CMD{Op: InternalOp, Name: "@not", Loc: e.Loc})
		}

	case sema.AExprDot:
		f.genExpr(e.DotLeft)
		f.genChain(e.DotRight)
	}
}

func litFromToken(tok *token.Token) Literal {
	switch tok.Kind {
	case token.Int:
		return Literal{Kind: LitInt, Int: tok.IntVal}
	case token.Float:
		return Literal{Kind: LitFloat, Float: tok.FloatVal}
	case token.Bool:
		return Literal{Kind: LitBool, Bool: tok.BoolVal}
	case token.String:
		return Literal{Kind: LitStr, Str: tok.StringVal}
	default:
		return Literal{Kind: LitNull}
	}
}

// genObjectPath evaluates a fresh access path: a bare reference to a
// function/struct name pushes nothing (it is not a runtime value), a
// variable reference pushes its cell via Push(slot), then genChain walks
// the remaining steps.
func (f *flattener) genObjectPath(obj *sema.AObject) {
	if obj.Type != nil && (obj.Type.Kind == sema.AFuncDefRef || obj.Type.Kind == sema.AStructDefRef) {
		f.genChain(obj.Sub)
		return
	}
	f.emit(CMD{Op: Push, Slot: f.slot(obj.Name)})
	f.genChain(obj.Sub)
}

// genChain walks a (possibly nil) chain of Field/Call/Index steps,
// leaving one value on the stack: the receiver flowing in from whatever
// is already on top of the stack (or, for a free-function call, nothing
// flowing in at all).
func (f *flattener) genChain(step *sema.AObject) {
	for step != nil {
		switch step.Kind {
		case sema.AObjField:
			if step.Type != nil && step.Type.Kind == sema.AFuncDefRef {
				// A method name resolves to a pending call target; the
				// receiver already on the stack is left untouched for
				// the following AObjCall step.
				break
			}
			f.emit(CMD{Op: Field, Slot: f.slot(step.Name)})

		case sema.AObjCall:
			for _, arg := range step.Call.Args {
				f.genExpr(arg)
			}
			f.genCallTarget(step.Call.Func, len(step.Call.Args), step.Loc)

		case sema.AObjIndex:
			f.genExpr(step.Index)
			f.emit(CMD{Op: Index, Loc: step.Loc})
		}
		step = step.Sub
	}
}

// genCallTarget emits either a Refer to a user function/method or an
// InternalOp for a built-in special method / array operation / @readln.
func (f *flattener) genCallTarget(fn *sema.AFunc, argc int, loc token.Location) {
	if fn.Internal {
		f.emit(CMD{Op: InternalOp, Name: fn.Name, Argc: argc, Loc: loc})
		return
	}
	idx := f.emit(CMD{Op: Refer})
	f.referFixups = append(f.referFixups, referFixup{idx: idx, fn: fn})
}

// genCreate lowers `$Type(args)` (§4.2 "New-operator"): an array
// creation pushes a fresh empty array; a user struct creation pushes a
// PushObj field skeleton, which is the result itself when @new is the
// synthesized default and otherwise becomes @this of a call to the
// declared @new; a root-type creation is lowered inline (see below).
func (f *flattener) genCreate(e *sema.AOperandExpression) {
	if e.CreateStruct == nil {
		f.emit(CMD{Op: PushVec})
		return
	}
	ctor := e.CreateStruct.Methods["@new"]

	// A non-system struct always allocates its field skeleton first,
	// whether or not it declares its own @new: a custom constructor runs
	// as an ordinary method call against that skeleton as @this (the
	// "return_this=true" rule of §4.4.1), so the skeleton must already be
	// on the stack before the receiver/args are pushed for the call.
	if ctor.Owner != nil && !ctor.Owner.System {
		var fieldSlots []int
		for _, field := range ctor.Owner.Fields {
			fieldSlots = append(fieldSlots, f.slot(field.Name))
		}
		f.emit(CMD{Op: PushObj, Slots: fieldSlots})

		if ctor.Internal {
			// Synthesized default constructor: the skeleton above, with
			// every field null, already is the instance; no call into it
			// is needed.
			return
		}
	}

	if ctor.Owner != nil && ctor.Owner.System {
		// Root-type creation (`$int(x)`, `$float(x)`, ...): @new on a
		// primitive is a copy constructor (§4.2's `@new(int)->int`
		// example) that simply hands its argument back; `$null()` alone
		// takes no argument and yields the null literal. Every root
		// @new shares the bare name "@new", so InternalOp's name alone
		// cannot tell which root type is being constructed, so the
		// flattener handles this directly rather than dispatching
		// through a call.
		if len(e.CreateArgs) == 0 {
			f.emit(CMD{Op: PushLit, Lit: Literal{Kind: LitNull}})
			return
		}
		f.genExpr(e.CreateArgs[0])
		return
	}

	// User-declared constructor: run through the normal call path.
	for _, arg := range e.CreateArgs {
		f.genExpr(arg)
	}
	f.genCallTarget(ctor, len(e.CreateArgs), e.Loc)
}
