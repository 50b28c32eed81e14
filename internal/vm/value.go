// Package vm implements the stack machine: a tape of flatten.CMD
// executed against a reference-counted heap, lexical scope frames, and
// a call/return stack.
//
// The heap-of-refcounted-cells design is original here (WAM has no heap
// at all — Prolog unification works over an in-place term graph, see
// wam/program.go), but the "tape position is an opcode, a dispatch loop
// walks pc forward/backward" execution shape is grounded in wam/asm.go's
// instruction dispatch.
package vm

import (
	"fmt"
	"strconv"
)

// Kind discriminates a runtime Value.
type Kind int

const (
	KInt Kind = iota
	KFloat
	KStr
	KBool
	KNull
	KArray
	KCustom
	KPtr
)

// Value is the runtime representation of §3's "Value variants". Array
// and Custom carry Go slices/maps, which are themselves reference types:
// copying a Value that holds one of these shares the same backing
// storage, which is exactly the by-reference aliasing §9 mandates for
// nested writes.
type Value struct {
	Kind Kind

	Int   int32
	Float float32
	Str   string
	Bool  bool

	Array  []Value
	Custom map[int]Value

	Ptr int // cell id, valid when Kind == KPtr
}

func (v Value) String() string {
	switch v.Kind {
	case KInt:
		return strconv.FormatInt(int64(v.Int), 10)
	case KFloat:
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
	case KStr:
		return v.Str
	case KBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KNull:
		return "null"
	case KArray:
		s := "["
		for i, e := range v.Array {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + "]"
	case KCustom:
		return fmt.Sprintf("<object %d fields>", len(v.Custom))
	default:
		return "<ptr>"
	}
}

// Cell is one heap-resident, reference-counted value (§3 "Runtime heap").
type Cell struct {
	Value Value
	RC    int
}
