// Package flatten linearises an annotated program (internal/sema) into a
// single tape of commands over a stack machine.
//
// The tape-of-opcodes shape is grounded in wam/codegen.go and
// wam/program.go: a Program there is a flat []instruct slice compiled
// from a term tree via a small set of opcodes (get_struct, unify_var,
// unify_val, ...), exactly the "linearise a tree into one flat command
// sequence" move this package makes for TermsLang's annotated tree.
package flatten

import (
	"fmt"

	"github.com/Owen-Dechow/TermsLang-sub000/internal/ast"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/sema"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/token"
)

// Kind enumerates the tape command set of §4.4.1.
type Kind int

const (
	SplitScope Kind = iota
	Release
	TRelease
	Defer
	Jump
	Refer
	XIf
	Burn
	Update
	IndexAssign
	Push
	PushLit
	PushVec
	PushObj
	Let
	Print
	PrintLn
	InternalOp
	Field
	Index
)

// kindNames is used by Kind.String(), grounded in the same
// disassembly-by-name convention a wam-style instruction dump uses.
var kindNames = map[Kind]string{
	SplitScope: "SplitScope", Release: "Release", TRelease: "TRelease",
	Defer: "Defer", Jump: "Jump", Refer: "Refer", XIf: "XIf", Burn: "Burn",
	Update: "Update", IndexAssign: "IndexAssign", Push: "Push",
	PushLit: "PushLit", PushVec: "PushVec", PushObj: "PushObj", Let: "Let",
	Print: "Print", PrintLn: "PrintLn", InternalOp: "InternalOp",
	Field: "Field", Index: "Index",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "?"
}

// String renders one tape position for debugger display (§6).
func (c CMD) String() string {
	switch c.Op {
	case Jump, Refer:
		return fmt.Sprintf("%s(%d)", c.Op, c.Target)
	case Push, Let, Field:
		return fmt.Sprintf("%s(%d)", c.Op, c.Slot)
	case Release, TRelease, PushObj:
		return fmt.Sprintf("%s(%v)", c.Op, c.Slots)
	case Update, IndexAssign:
		return fmt.Sprintf("%s(%v)", c.Op, c.Path)
	case PushLit:
		return fmt.Sprintf("PushLit(%v)", c.Lit)
	case InternalOp:
		return fmt.Sprintf("InternalOp(%s)", c.Name)
	default:
		return c.Op.String()
	}
}

// LitKind discriminates a PushLit literal payload.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitStr
	LitBool
	LitNull
)

// Literal is the value carried by a PushLit command.
type Literal struct {
	Kind  LitKind
	Int   int32
	Float float32
	Str   string
	Bool  bool
}

// CMD is one tape position.
type CMD struct {
	Op Kind

	Target int // Jump / Refer: tape index
	Slot   int // Push / Let / Field: slot id

	Path  []int // Update / IndexAssign: [base slot, field slot, ...]
	Slots []int // Release / TRelease / PushObj: slot list

	Lit Literal // PushLit

	Name string          // InternalOp: special-method or array-op name
	Argc int             // InternalOp: operand count beyond the receiver
	Loc  token.Location  // InternalOp / Update / Index: runtime error location
}

// Program is the flattener's output (§3 "Flat IR").
type Program struct {
	Tape       []CMD
	StartPoint int
	NScopes    int
	FuncAddr   map[*sema.AFunc]int
}

// Flatten implements §4.4.1's contract.
func Flatten(prog *sema.AProgram) (*Program, error) {
	f := &flattener{
		slots:    map[string]int{},
		funcAddr: map[*sema.AFunc]int{},
	}

	// §4.4.1 "post-pass": every Refer emitted for a user function is a
	// placeholder patched once every function body has an address.
	var allFuncs []*sema.AFunc
	for _, s := range prog.Structs {
		for _, m := range s.Methods {
			if !m.Internal {
				allFuncs = append(allFuncs, m)
			}
		}
	}
	allFuncs = append(allFuncs, prog.Functions...)

	// Entry trampoline: call @main, then halt via Defer with an empty
	// reference stack.
	f.emit(CMD{Op: Refer, Target: 0}) // patched below once @main's address is known
	mainReferIdx := len(f.tape) - 1
	f.emit(CMD{Op: Defer})

	for _, fn := range allFuncs {
		addr := len(f.tape)
		f.funcAddr[fn] = addr
		f.genFunction(fn)
	}

	f.tape[mainReferIdx].Target = f.funcAddr[prog.Main]

	for _, r := range f.referFixups {
		f.tape[r.idx].Target = f.funcAddr[r.fn]
	}

	return &Program{Tape: f.tape, StartPoint: 0, NScopes: f.nextSlot, FuncAddr: f.funcAddr}, nil
}

type referFixup struct {
	idx int
	fn  *sema.AFunc
}

type scopeFrame struct {
	slots []int
}

type flattener struct {
	tape []CMD

	slots    map[string]int
	nextSlot int

	funcAddr    map[*sema.AFunc]int
	referFixups []referFixup

	scopes []*scopeFrame

	// per-loop bookkeeping for break/continue patching
	loopScopeBase []int // len(f.scopes) at loop entry
	breakJumps    [][]int
	continueJumps [][]int
}

func (f *flattener) slot(name string) int {
	if id, ok := f.slots[name]; ok {
		return id
	}
	id := f.nextSlot
	f.nextSlot++
	f.slots[name] = id
	return id
}

func (f *flattener) emit(c CMD) int {
	f.tape = append(f.tape, c)
	return len(f.tape) - 1
}

func (f *flattener) pushScope() {
	f.scopes = append(f.scopes, &scopeFrame{})
	f.emit(CMD{Op: SplitScope})
}

func (f *flattener) bind(name string) {
	id := f.slot(name)
	top := f.scopes[len(f.scopes)-1]
	top.slots = append(top.slots, id)
	f.emit(CMD{Op: Let, Slot: id})
}

func (f *flattener) popScope() {
	top := f.scopes[len(f.scopes)-1]
	f.scopes = f.scopes[:len(f.scopes)-1]
	f.emit(CMD{Op: Release, Slots: top.slots})
}

// releaseDownTo emits Release commands for every open scope above
// baseDepth, innermost first, without actually popping them from
// f.scopes — used by break/continue/return to unwind scopes that remain
// logically open for the surrounding normal control flow (§5 "the
// flattener's placement of releases guarantees every cell ... is
// released exactly once ... regardless of the exit path").
func (f *flattener) releaseDownTo(baseDepth int) {
	for i := len(f.scopes) - 1; i >= baseDepth; i-- {
		f.emit(CMD{Op: Release, Slots: f.scopes[i].slots})
	}
}

// genFunction lowers one function/method body per §4.4.1's rule:
// SplitScope; Let(arg_n); ...; Let(arg_0); [if method, Let(@this)];
// <body>; [if return null, PushLit(Null)]; Defer.
func (f *flattener) genFunction(fn *sema.AFunc) {
	f.scopes = nil
	f.pushScope()

	for i := len(fn.Args) - 1; i >= 0; i-- {
		f.bind(fn.Args[i].Name)
	}
	if fn.IsMethod {
		f.bind("@this")
	}

	if fn.Internal {
		f.genInternalBody(fn)
	} else {
		f.genBlock(fn.Body)
		switch {
		case fn.Name == "@new" && fn.IsMethod:
			// return_this=true (§4.4.1): the constructor hands back the
			// freshly allocated receiver rather than a literal.
			f.emit(CMD{Op: Push, Slot: f.slot("@this")})
		case fn.ReturnType != nil && fn.ReturnType.Kind == sema.AStructObject && fn.ReturnType.Struct.Name == "null":
			f.emit(CMD{Op: PushLit, Lit: Literal{Kind: LitNull}})
		}
	}

	// No explicit Release precedes this Defer: per §4.4.1, Defer itself
	// releases every scope frame back to the call's own SplitScope,
	// including this function's entry frame — codegen must not release
	// it again here or the entry frame's cells would be double-decremented.
	f.emit(CMD{Op: Defer})
}

// genInternalBody lowers the handful of Internal functions that are not
// root-type special methods handled inline by InternalOp at the call
// site: the synthesized default `@new` for a user struct, and @readln.
func (f *flattener) genInternalBody(fn *sema.AFunc) {
	switch {
	case fn.Name == "@new" && fn.IsMethod && fn.Owner != nil && !fn.Owner.System:
		var fieldSlots []int
		for _, field := range fn.Owner.Fields {
			fieldSlots = append(fieldSlots, f.slot(field.Name))
		}
		f.emit(CMD{Op: PushObj, Slots: fieldSlots})
	case fn.Name == "@readln":
		f.emit(CMD{Op: InternalOp, Name: "@readln"})
	default:
		// Root-type special methods are handled inline at their call
		// site (genCallTarget) rather than by a lowered body; a stray
		// Internal function reaching here is a synthesized @new on a
		// root type invoked indirectly, which behaves like @readln's
		// bodyless dispatch.
		f.emit(CMD{Op: InternalOp, Name: fn.Name})
	}
}

func (f *flattener) genBlock(block *sema.ATermBlock) {
	for _, t := range block.Terms {
		f.genTerm(t)
	}
}

func (f *flattener) genTerm(t *sema.ATerm) {
	switch t.Kind {
	case ast.TermPrint:
		f.genExpr(t.Expr)
		f.emit(CMD{Op: Print})

	case ast.TermPrintln:
		f.genExpr(t.Expr)
		f.emit(CMD{Op: PrintLn})

	case ast.TermDeclareVar:
		f.genExpr(t.Value)
		f.bind(t.VarName)

	case ast.TermReturn:
		if t.Value != nil {
			f.genExpr(t.Value)
		} else {
			f.emit(CMD{Op: PushLit, Lit: Literal{Kind: LitNull}})
		}
		// Defer releases every scope back to the call boundary itself
		// (§4.4.1); no explicit Release is emitted here.
		f.emit(CMD{Op: Defer})

	case ast.TermUpdateVar:
		f.genUpdate(t)

	case ast.TermIf:
		f.genExpr(t.Cond)
		xif := f.emit(CMD{Op: XIf})
		elseJump := f.emit(CMD{Op: Jump})
		f.pushScope()
		f.genBlock(t.Then)
		f.popScope()
		endJump := f.emit(CMD{Op: Jump})
		f.tape[elseJump].Target = len(f.tape)
		f.tape[xif].Target = 0 // XIf just skips the following instruction; Target unused
		if t.Else != nil {
			f.pushScope()
			f.genBlock(t.Else)
			f.popScope()
		}
		f.tape[endJump].Target = len(f.tape)

	case ast.TermLoop:
		f.genLoop(t)

	case ast.TermBreak:
		base := f.loopScopeBase[len(f.loopScopeBase)-1]
		f.releaseDownTo(base)
		idx := f.emit(CMD{Op: Jump})
		top := len(f.breakJumps) - 1
		f.breakJumps[top] = append(f.breakJumps[top], idx)

	case ast.TermContinue:
		base := f.loopScopeBase[len(f.loopScopeBase)-1]
		f.releaseDownTo(base)
		idx := f.emit(CMD{Op: Jump})
		top := len(f.continueJumps) - 1
		f.continueJumps[top] = append(f.continueJumps[top], idx)

	case ast.TermCall:
		f.genExpr(t.Expr)
		f.emit(CMD{Op: Burn})
	}
}

// genLoop lowers `loop i: cond { body }` per §4.4.1: the counter starts
// at -1 and is incremented via @add before each condition test.
func (f *flattener) genLoop(t *sema.ATerm) {
	f.pushScope()
	f.bindCounter(t.Counter)

	start := len(f.tape)
	f.loopScopeBase = append(f.loopScopeBase, len(f.scopes))
	f.breakJumps = append(f.breakJumps, nil)
	f.continueJumps = append(f.continueJumps, nil)

	f.emit(CMD{Op: Push, Slot: f.slot(t.Counter)})
	f.emit(CMD{Op: PushLit, Lit: Literal{Kind: LitInt, Int: 1}})
	f.emit(CMD{Op: InternalOp, Name: "@add"})
	f.emit(CMD{Op: Update, Path: []int{f.slot(t.Counter)}})

	f.genExpr(t.Cond)
	xif := f.emit(CMD{Op: XIf})
	endJump := f.emit(CMD{Op: Jump})
	_ = xif

	f.pushScope()
	f.genBlock(t.Body)
	f.popScope()

	continueTarget := len(f.tape)
	f.emit(CMD{Op: Jump, Target: start})
	f.tape[endJump].Target = len(f.tape)

	continues := f.continueJumps[len(f.continueJumps)-1]
	for _, idx := range continues {
		f.tape[idx].Target = continueTarget
	}
	breaks := f.breakJumps[len(f.breakJumps)-1]
	for _, idx := range breaks {
		f.tape[idx].Target = len(f.tape)
	}

	f.loopScopeBase = f.loopScopeBase[:len(f.loopScopeBase)-1]
	f.breakJumps = f.breakJumps[:len(f.breakJumps)-1]
	f.continueJumps = f.continueJumps[:len(f.continueJumps)-1]

	f.popScope()
}

func (f *flattener) bindCounter(name string) {
	f.emit(CMD{Op: PushLit, Lit: Literal{Kind: LitInt, Int: -1}})
	f.bind(name)
}

// genUpdate lowers `updt <object> = <expr>` (compound forms already
// desugared by sema) to a value push followed by a single Update/
// IndexAssign command, per §4.4.1's "Update(path)" rule. A target whose
// final step is a computed array index cannot be folded into a static
// slot path, so it pushes the index expression ahead of the value and
// uses the IndexAssign variant instead, a command added beyond the
// §4.4.1 set.
func (f *flattener) genUpdate(t *sema.ATerm) {
	path, lastIndex := f.targetPath(t.UpdateTarget)

	if lastIndex != nil {
		f.genExpr(lastIndex)
		f.genExpr(t.Value)
		f.emit(CMD{Op: IndexAssign, Path: path, Loc: t.Loc})
		return
	}

	f.genExpr(t.Value)
	f.emit(CMD{Op: Update, Path: path, Loc: t.Loc})
}

// targetPath walks an assignment-target object chain (no Call steps,
// guaranteed by sema) into a flat slot path. If the final step is an
// Index, its expression is returned separately since it is not a static
// slot.
func (f *flattener) targetPath(obj *sema.AObject) ([]int, *sema.AOperandExpression) {
	var path []int
	cur := obj
	for cur != nil {
		switch cur.Kind {
		case sema.AObjVar, sema.AObjField:
			path = append(path, f.slot(cur.Name))
		case sema.AObjIndex:
			if cur.Sub == nil {
				return path, cur.Index
			}
			// An index in the middle of the path is not supported for
			// write targets: it is recorded as slot -1, which the VM
			// rejects with a runtime error.
			path = append(path, -1)
		}
		cur = cur.Sub
	}
	return path, nil
}
