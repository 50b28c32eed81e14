package vm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/jpillora/backoff"

	"github.com/Owen-Dechow/TermsLang-sub000/internal/flatten"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/langerr"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/token"
)

// frame is one return-stack entry pushed by Refer: the tape position to
// resume at, and the scope-stack depth to unwind back down to. Recording
// depth alongside pc is what lets Defer release exactly the frames opened
// since the matching call, per §4.4.1/§4.4.2's Refer/Defer contract.
type frame struct {
	pc    int
	depth int
}

// hook lets a debugger observe execution between tape steps (§6 "debug").
type Hook interface {
	BeforeStep(vm *VM, pc int, cmd flatten.CMD)
}

// VM executes a flattened Program against a reference-counted heap.
type VM struct {
	prog *flatten.Program

	heap   map[int]*Cell
	nextID int

	stack  []Value
	scopes []map[int]int // slot -> cell id, innermost last
	refer  []frame

	pc int

	in  *bufio.Reader
	out io.Writer

	hook Hook
}

// New builds a VM ready to Run prog against stdin/stdout.
func New(prog *flatten.Program, stdin io.Reader, stdout io.Writer) *VM {
	return &VM{
		prog: prog,
		heap: map[int]*Cell{},
		in:   bufio.NewReader(stdin),
		out:  stdout,
	}
}

// SetHook installs a single-step observer used by the debugger (§6).
func (v *VM) SetHook(h Hook) { v.hook = h }

// Tape exposes the program's command tape for debugger inspection (§6
// "inspection of the tape, stack, reference stack, heap, and scope
// frames").
func (v *VM) Tape() []flatten.CMD { return v.prog.Tape }

// Stack returns a snapshot of the current operand stack, outermost first.
func (v *VM) Stack() []Value {
	out := make([]Value, len(v.stack))
	copy(out, v.stack)
	return out
}

// ReferStack returns the return-address tape positions currently pending.
func (v *VM) ReferStack() []int {
	out := make([]int, len(v.refer))
	for i, f := range v.refer {
		out[i] = f.pc
	}
	return out
}

// Heap returns a snapshot of cell id -> (value, refcount) pairs.
func (v *VM) Heap() map[int]Cell {
	out := make(map[int]Cell, len(v.heap))
	for id, c := range v.heap {
		out[id] = *c
	}
	return out
}

// Scopes returns a snapshot of the scope-frame stack, innermost last,
// each frame a slot-id -> cell-id map.
func (v *VM) Scopes() []map[int]int {
	out := make([]map[int]int, len(v.scopes))
	for i, s := range v.scopes {
		m := make(map[int]int, len(s))
		for k, val := range s {
			m[k] = val
		}
		out[i] = m
	}
	return out
}

// runtimeErr builds a langerr.Runtime-stage error (a RuntimeError) carrying
// the offending tape location, mirroring langerr's other stage errors
// (internal/langerr).
func (v *VM) runtimeErr(loc token.Location, format string, args ...any) error {
	return langerr.New(langerr.Runtime, loc, fmt.Sprintf(format, args...))
}

// Run pushes the CLI-args array, then executes the tape until Defer pops
// an empty reference stack (§4.4.2 "Startup"/"Halting").
func (v *VM) Run(args []string) error {
	argVals := make([]Value, len(args))
	for i, a := range args {
		argVals[i] = Value{Kind: KStr, Str: a}
	}
	v.push(Value{Kind: KArray, Array: argVals})
	v.pc = v.prog.StartPoint

	for {
		if v.pc < 0 || v.pc >= len(v.prog.Tape) {
			return v.runtimeErr(token.NoLoc, "program counter ran off the end of the tape")
		}
		cmd := v.prog.Tape[v.pc]
		if v.hook != nil {
			v.hook.BeforeStep(v, v.pc, cmd)
		}
		halt, err := v.step(cmd)
		if err != nil {
			return err
		}
		if halt {
			return nil
		}
	}
}

func (v *VM) push(val Value) { v.stack = append(v.stack, val) }

func (v *VM) pop() Value {
	n := len(v.stack)
	val := v.stack[n-1]
	v.stack = v.stack[:n-1]
	return val
}

func (v *VM) peek() Value { return v.stack[len(v.stack)-1] }

// deref resolves a Ptr to the cell's current value; any other Value is
// returned unchanged (literals and computed results are never wrapped).
func (v *VM) deref(val Value) Value {
	if val.Kind == KPtr {
		return v.heap[val.Ptr].Value
	}
	return val
}

func (v *VM) alloc(val Value) int {
	id := v.nextID
	v.nextID++
	v.heap[id] = &Cell{Value: val, RC: 1}
	return id
}

// resolveCell walks the scope stack innermost-first for slot's bound
// cell id (§4.4.2 "Push"/"Let" use the same lookup rule).
func (v *VM) resolveCell(slot int) int {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if id, ok := v.scopes[i][slot]; ok {
			return id
		}
	}
	return -1
}

func (v *VM) step(cmd flatten.CMD) (halt bool, err error) {
	switch cmd.Op {
	case flatten.SplitScope:
		v.scopes = append(v.scopes, map[int]int{})
		v.pc++

	case flatten.Release, flatten.TRelease:
		top := v.scopes[len(v.scopes)-1]
		v.scopes = v.scopes[:len(v.scopes)-1]
		for _, slot := range cmd.Slots {
			if id, ok := top[slot]; ok {
				v.release(id)
			}
		}
		v.pc++

	case flatten.Let:
		val := v.pop()
		var id int
		if val.Kind == KPtr {
			id = val.Ptr
			v.heap[id].RC++
		} else {
			id = v.alloc(val)
		}
		v.scopes[len(v.scopes)-1][cmd.Slot] = id
		v.pc++

	case flatten.Push:
		id := v.resolveCell(cmd.Slot)
		v.push(Value{Kind: KPtr, Ptr: id})
		v.pc++

	case flatten.PushLit:
		v.push(litValue(cmd.Lit))
		v.pc++

	case flatten.PushVec:
		v.push(Value{Kind: KArray})
		v.pc++

	case flatten.PushObj:
		m := map[int]Value{}
		for _, slot := range cmd.Slots {
			m[slot] = Value{Kind: KNull}
		}
		v.push(Value{Kind: KCustom, Custom: m})
		v.pc++

	case flatten.Field:
		recv := v.deref(v.pop())
		if recv.Kind != KCustom {
			return false, v.runtimeErr(cmd.Loc, "field access on a non-object value")
		}
		v.push(recv.Custom[cmd.Slot])
		v.pc++

	case flatten.Index:
		idx := v.deref(v.pop())
		arr := v.deref(v.pop())
		if arr.Kind != KArray {
			return false, v.runtimeErr(cmd.Loc, "index access on a non-array value")
		}
		if idx.Int < 0 || int(idx.Int) >= len(arr.Array) {
			return false, v.runtimeErr(cmd.Loc, "array index %d out of range (len %d)", idx.Int, len(arr.Array))
		}
		v.push(arr.Array[idx.Int])
		v.pc++

	case flatten.Update:
		val := v.deref(v.pop())
		if err := v.doUpdate(cmd.Path, val, cmd.Loc); err != nil {
			return false, err
		}
		v.pc++

	case flatten.IndexAssign:
		val := v.deref(v.pop())
		idx := v.deref(v.pop())
		if err := v.doIndexAssign(cmd.Path, idx, val, cmd.Loc); err != nil {
			return false, err
		}
		v.pc++

	case flatten.Print:
		val := v.deref(v.pop())
		fmt.Fprint(v.out, val.String())
		v.pc++

	case flatten.PrintLn:
		val := v.deref(v.pop())
		fmt.Fprintln(v.out, val.String())
		v.pc++

	case flatten.XIf:
		cond := v.deref(v.pop())
		if cond.Bool {
			v.pc += 2 // skip the following else-Jump
		} else {
			v.pc++
		}

	case flatten.Jump:
		v.pc = cmd.Target

	case flatten.Burn:
		v.pop() // discard a call's unused result
		v.pc++

	case flatten.Refer:
		v.refer = append(v.refer, frame{pc: v.pc + 1, depth: len(v.scopes)})
		v.pc = cmd.Target

	case flatten.Defer:
		if len(v.refer) == 0 {
			return true, nil
		}
		// Materialise a top-of-stack Ptr before releasing: the cell it
		// names may live in a frame about to be released here, so the
		// returned value must be detached from it first (§4.4.2 "Defer").
		if len(v.stack) > 0 && v.peek().Kind == KPtr {
			top := v.pop()
			v.push(v.heap[top.Ptr].Value)
		}

		r := v.refer[len(v.refer)-1]
		v.refer = v.refer[:len(v.refer)-1]
		for len(v.scopes) > r.depth {
			top := v.scopes[len(v.scopes)-1]
			v.scopes = v.scopes[:len(v.scopes)-1]
			for _, id := range top {
				v.release(id)
			}
		}
		v.pc = r.pc

	case flatten.InternalOp:
		if err := v.doInternal(cmd); err != nil {
			return false, err
		}
		v.pc++

	default:
		return false, v.runtimeErr(cmd.Loc, "unhandled tape command")
	}
	return false, nil
}

// release decrements a cell's reference count, freeing the heap slot once
// it reaches zero (§3 "Runtime heap"). Nested Custom/Array payloads share
// backing storage rather than owning separate cells, so nothing is
// released recursively.
func (v *VM) release(id int) {
	cell, ok := v.heap[id]
	if !ok {
		return
	}
	cell.RC--
	if cell.RC <= 0 {
		delete(v.heap, id)
	}
}

func litValue(lit flatten.Literal) Value {
	switch lit.Kind {
	case flatten.LitInt:
		return Value{Kind: KInt, Int: lit.Int}
	case flatten.LitFloat:
		return Value{Kind: KFloat, Float: lit.Float}
	case flatten.LitStr:
		return Value{Kind: KStr, Str: lit.Str}
	case flatten.LitBool:
		return Value{Kind: KBool, Bool: lit.Bool}
	default:
		return Value{Kind: KNull}
	}
}

// doUpdate writes val at path (§4.4.1 "Update(path)"). path[0] names a
// scope slot; a nested path walks down through Custom field maps, which
// are Go reference types, so the final assignment `m[key] = val` mutates
// the same backing map the owning cell already holds.
func (v *VM) doUpdate(path []int, val Value, loc token.Location) error {
	if len(path) == 1 {
		id := v.resolveCell(path[0])
		if id < 0 {
			return v.runtimeErr(loc, "assignment to an unresolved slot")
		}
		v.heap[id].Value = val
		return nil
	}

	id := v.resolveCell(path[0])
	if id < 0 {
		return v.runtimeErr(loc, "assignment to an unresolved slot")
	}
	container := v.heap[id].Value
	if container.Kind != KCustom {
		return v.runtimeErr(loc, "field assignment on a non-object value")
	}
	m := container.Custom
	for _, slot := range path[1 : len(path)-1] {
		next, ok := m[slot]
		if !ok || next.Kind != KCustom {
			return v.runtimeErr(loc, "nested field assignment through a non-object value")
		}
		m = next.Custom
	}
	m[path[len(path)-1]] = val
	return nil
}

// doIndexAssign writes val at arr[idx], where path names the array itself
// (unlike doUpdate, every path element is a hop, none is a final map key):
// see flatten.targetPath.
func (v *VM) doIndexAssign(path []int, idx Value, val Value, loc token.Location) error {
	arrVal, err := v.resolvePath(path, loc)
	if err != nil {
		return err
	}
	if arrVal.Kind != KArray {
		return v.runtimeErr(loc, "indexed assignment on a non-array value")
	}
	if idx.Int < 0 || int(idx.Int) >= len(arrVal.Array) {
		return v.runtimeErr(loc, "array index %d out of range (len %d)", idx.Int, len(arrVal.Array))
	}
	arrVal.Array[idx.Int] = val
	return nil
}

// resolvePath reads the value reachable by walking path from scope,
// sharing backing storage with whatever it names (used by doIndexAssign
// to get a mutable handle on the target array's slice header).
func (v *VM) resolvePath(path []int, loc token.Location) (Value, error) {
	id := v.resolveCell(path[0])
	if id < 0 {
		return Value{}, v.runtimeErr(loc, "assignment to an unresolved slot")
	}
	cur := v.heap[id].Value
	for _, slot := range path[1:] {
		if cur.Kind != KCustom {
			return Value{}, v.runtimeErr(loc, "field access through a non-object value")
		}
		cur = cur.Custom[slot]
	}
	return cur, nil
}

// doInternal dispatches an InternalOp: the fixed special-method table of
// internal/sema/builtins.go (arithmetic, comparisons, conversions) plus
// the array built-ins and @readln.
func (v *VM) doInternal(cmd flatten.CMD) error {
	switch cmd.Name {
	case "@add", "@sub", "@mult", "@div", "@mod", "@exp":
		return v.arith(cmd)
	case "@eq", "@gt", "@gteq", "@lt", "@lteq":
		return v.compare(cmd)
	case "@and", "@or":
		r := v.deref(v.pop())
		l := v.deref(v.pop())
		var res bool
		if cmd.Name == "@and" {
			res = l.Bool && r.Bool
		} else {
			res = l.Bool || r.Bool
		}
		v.push(Value{Kind: KBool, Bool: res})
		return nil
	case "@not":
		x := v.deref(v.pop())
		v.push(Value{Kind: KBool, Bool: !x.Bool})
		return nil
	case "@str":
		x := v.deref(v.pop())
		v.push(Value{Kind: KStr, Str: x.String()})
		return nil
	case "@int":
		return v.convertInt(cmd)
	case "@float":
		return v.convertFloat(cmd)
	case "@bool":
		x := v.deref(v.pop())
		v.push(Value{Kind: KBool, Bool: x.Str == "true"})
		return nil
	case "@new":
		return v.rootNew(cmd)
	case "@readln":
		return v.readln(cmd)
	case "@len":
		arr := v.deref(v.pop())
		v.push(Value{Kind: KInt, Int: int32(len(arr.Array))})
		return nil
	case "@idx":
		idx := v.deref(v.pop())
		arr := v.deref(v.pop())
		if idx.Int < 0 || int(idx.Int) >= len(arr.Array) {
			return v.runtimeErr(cmd.Loc, "array index %d out of range (len %d)", idx.Int, len(arr.Array))
		}
		v.push(arr.Array[idx.Int])
		return nil
	case "@append":
		val := v.deref(v.pop())
		arr := v.deref(v.pop())
		out := make([]Value, len(arr.Array)+1)
		copy(out, arr.Array)
		out[len(arr.Array)] = val
		v.push(Value{Kind: KArray, Array: out})
		return nil
	case "@remove":
		idx := v.deref(v.pop())
		arr := v.deref(v.pop())
		if idx.Int < 0 || int(idx.Int) >= len(arr.Array) {
			return v.runtimeErr(cmd.Loc, "array index %d out of range (len %d)", idx.Int, len(arr.Array))
		}
		out := make([]Value, 0, len(arr.Array)-1)
		out = append(out, arr.Array[:idx.Int]...)
		out = append(out, arr.Array[idx.Int+1:]...)
		v.push(Value{Kind: KArray, Array: out})
		return nil
	default:
		return v.runtimeErr(cmd.Loc, "unknown internal operation %q", cmd.Name)
	}
}

// arith implements §9's integer-overflow resolution: int arithmetic uses
// Go's native int32 operators, which wrap on overflow exactly as the
// decision record requires, rather than aborting the program.
func (v *VM) arith(cmd flatten.CMD) error {
	r := v.deref(v.pop())
	l := v.deref(v.pop())

	if l.Kind == KStr {
		v.push(Value{Kind: KStr, Str: l.Str + r.Str})
		return nil
	}

	if l.Kind == KFloat {
		var res float32
		switch cmd.Name {
		case "@add":
			res = l.Float + r.Float
		case "@sub":
			res = l.Float - r.Float
		case "@mult":
			res = l.Float * r.Float
		case "@div":
			if r.Float == 0 {
				return v.runtimeErr(cmd.Loc, "division by zero")
			}
			res = l.Float / r.Float
		case "@exp":
			res = float32(math.Pow(float64(l.Float), float64(r.Float)))
		}
		v.push(Value{Kind: KFloat, Float: res})
		return nil
	}

	var res int32
	switch cmd.Name {
	case "@add":
		res = l.Int + r.Int
	case "@sub":
		res = l.Int - r.Int
	case "@mult":
		res = l.Int * r.Int
	case "@div":
		if r.Int == 0 {
			return v.runtimeErr(cmd.Loc, "division by zero")
		}
		res = l.Int / r.Int
	case "@mod":
		if r.Int == 0 {
			return v.runtimeErr(cmd.Loc, "division by zero")
		}
		res = l.Int % r.Int
	case "@exp":
		res = int32(math.Pow(float64(l.Int), float64(r.Int)))
	}
	v.push(Value{Kind: KInt, Int: res})
	return nil
}

func (v *VM) compare(cmd flatten.CMD) error {
	r := v.deref(v.pop())
	l := v.deref(v.pop())

	var res bool
	switch l.Kind {
	case KInt:
		res = intCmp(cmd.Name, float64(l.Int), float64(r.Int))
	case KFloat:
		res = intCmp(cmd.Name, float64(l.Float), float64(r.Float))
	case KStr:
		res = strCmp(cmd.Name, l.Str, r.Str)
	case KBool:
		res = cmd.Name == "@eq" && l.Bool == r.Bool
	case KNull:
		res = cmd.Name == "@eq"
	default:
		res = cmd.Name == "@eq" && sameCustom(l, r)
	}
	v.push(Value{Kind: KBool, Bool: res})
	return nil
}

func sameCustom(a, b Value) bool {
	if len(a.Custom) != len(b.Custom) {
		return false
	}
	for k := range a.Custom {
		if _, ok := b.Custom[k]; !ok {
			return false
		}
	}
	return true
}

func intCmp(op string, l, r float64) bool {
	switch op {
	case "@eq":
		return l == r
	case "@gt":
		return l > r
	case "@gteq":
		return l >= r
	case "@lt":
		return l < r
	case "@lteq":
		return l <= r
	}
	return false
}

func strCmp(op string, l, r string) bool {
	switch op {
	case "@eq":
		return l == r
	case "@gt":
		return l > r
	case "@gteq":
		return l >= r
	case "@lt":
		return l < r
	case "@lteq":
		return l <= r
	}
	return false
}

func (v *VM) convertInt(cmd flatten.CMD) error {
	x := v.deref(v.pop())
	switch x.Kind {
	case KStr:
		var n int64
		if _, err := fmt.Sscanf(x.Str, "%d", &n); err != nil {
			return v.runtimeErr(cmd.Loc, "cannot convert %q to int", x.Str)
		}
		v.push(Value{Kind: KInt, Int: int32(n)})
	case KFloat:
		v.push(Value{Kind: KInt, Int: int32(x.Float)})
	default:
		v.push(Value{Kind: KInt, Int: x.Int})
	}
	return nil
}

func (v *VM) convertFloat(cmd flatten.CMD) error {
	x := v.deref(v.pop())
	switch x.Kind {
	case KStr:
		var f float64
		if _, err := fmt.Sscanf(x.Str, "%g", &f); err != nil {
			return v.runtimeErr(cmd.Loc, "cannot convert %q to float", x.Str)
		}
		v.push(Value{Kind: KFloat, Float: float32(f)})
	case KInt:
		v.push(Value{Kind: KFloat, Float: float32(x.Int)})
	default:
		v.push(Value{Kind: KFloat, Float: x.Float})
	}
	return nil
}

// rootNew is unreachable: the flattener lowers every root-type `$Type(x)`
// creation directly (see flatten.genCreate) — a primitive's `@new` is a
// copy constructor that just hands back the already-evaluated argument
// (or the null literal for `$null()`), so there is nothing left for an
// InternalOp dispatch to do, and InternalOp's bare "@new" name couldn't
// tell which root type was being constructed anyway.
func (v *VM) rootNew(cmd flatten.CMD) error {
	return v.runtimeErr(cmd.Loc, "unreachable: @new dispatched as InternalOp")
}

// readln reads one line from stdin, retrying non-EOF read errors with
// jpillora/backoff before surfacing a RuntimeError that wraps the last one
// (SPEC_FULL.md, DOMAIN STACK). A read that reaches EOF yields the text read
// so far.
func (v *VM) readln(cmd flatten.CMD) error {
	b := &backoff.Backoff{Min: 10 * time.Millisecond, Max: 200 * time.Millisecond, Factor: 2}
	for {
		line, err := v.in.ReadString('\n')
		if err == nil || err == io.EOF {
			if len(line) > 0 && line[len(line)-1] == '\n' {
				line = line[:len(line)-1]
			}
			v.push(Value{Kind: KStr, Str: line})
			return nil
		}
		if b.Attempt() >= 3 {
			return langerr.Wrap(langerr.Runtime, cmd.Loc, err, "stdin read failure: %v", err)
		}
		time.Sleep(b.Duration())
	}
}
