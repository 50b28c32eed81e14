// Package debug implements the single-step debugger hook §6 specifies as
// the VM's contract with an interactive debugger UI: "single-step
// ability, inspection of the tape, stack, reference stack, heap, and
// scope frames". The debugger UI itself is out of scope (spec.md §1); this
// is the minimal text-rendered stand-in that satisfies the contract from
// the CLI's "debug" subcommand.
//
// Section layout (tape / stack / refer stack / heap / scopes) is grounded
// on original_source/src/finterpretor/debugger.rs's boxed-panel dump,
// simplified to plain text since the pack carries no terminal-rendering
// library comparable to that source's termion dependency.
package debug

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Owen-Dechow/TermsLang-sub000/internal/flatten"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/vm"
)

// Stepper is the single-step observer installed on a vm.VM (vm.Hook).
// Each call renders the machine's state to Out and blocks on In for a
// keypress: Enter continues, "x" (case-insensitive) exits the program.
type Stepper struct {
	Session string // a fresh google/uuid per invocation, for transcript correlation
	In      *bufio.Reader
	Out     io.Writer

	steps int
}

// New builds a Stepper with a fresh session id (SPEC_FULL.md "Structured
// run identifiers").
func New(in io.Reader, out io.Writer) *Stepper {
	return &Stepper{Session: uuid.NewString(), In: bufio.NewReader(in), Out: out}
}

// BeforeStep implements vm.Hook.
func (s *Stepper) BeforeStep(m *vm.VM, pc int, cmd flatten.CMD) {
	s.steps++
	fmt.Fprintf(s.Out, "--- session %s step %d ---\n", s.Session, s.steps)
	fmt.Fprintln(s.Out, renderTape(m, pc))
	fmt.Fprintln(s.Out, renderStack("Stack", valueStrings(m.Stack())))
	fmt.Fprintln(s.Out, renderStack("Refer Stack", intStrings(m.ReferStack())))
	fmt.Fprintln(s.Out, renderHeap(m.Heap()))
	fmt.Fprintln(s.Out, renderScopes(m.Scopes()))
	fmt.Fprint(s.Out, "[enter] to step, [x] to exit: ")

	line, _ := s.In.ReadString('\n')
	if strings.EqualFold(strings.TrimSpace(line), "x") {
		panic(exitSignal{})
	}
}

// exitSignal unwinds BeforeStep on a user-requested quit; RunWithExit
// recovers it at the top level so a debugger quit is not mistaken for a
// program crash.
type exitSignal struct{}

// RunWithExit runs fn, translating an exitSignal panic raised by a
// Stepper's BeforeStep into a clean (nil-error, quit=true) return instead
// of propagating a panic to the CLI layer.
func RunWithExit(fn func() error) (quit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(exitSignal); ok {
				quit = true
				return
			}
			panic(r)
		}
	}()
	err = fn()
	return false, err
}

const tapeWindow = 10

func renderTape(m *vm.VM, pc int) string {
	tape := m.Tape()
	lo := pc - tapeWindow/2
	if lo < 0 {
		lo = 0
	}
	hi := lo + tapeWindow
	if hi > len(tape) {
		hi = len(tape)
		lo = hi - tapeWindow
		if lo < 0 {
			lo = 0
		}
	}

	var b strings.Builder
	b.WriteString("Program Tape:\n")
	for i := lo; i < hi; i++ {
		marker := "  "
		if i == pc {
			marker = ">>"
		}
		fmt.Fprintf(&b, "%s %4d: %s\n", marker, i, tape[i])
	}
	return b.String()
}

func renderStack(title string, items []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(&b, "  %s\n", it)
	}
	return b.String()
}

func renderHeap(heap map[int]vm.Cell) string {
	ids := make([]int, 0, len(heap))
	for id := range heap {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var b strings.Builder
	b.WriteString("Heap Data:\n")
	for _, id := range ids {
		c := heap[id]
		fmt.Fprintf(&b, "  %d (rc=%d): %s\n", id, c.RC, c.Value.String())
	}
	return b.String()
}

func renderScopes(scopes []map[int]int) string {
	var b strings.Builder
	b.WriteString("Scope Pointers:\n")
	for depth, frame := range scopes {
		slots := make([]int, 0, len(frame))
		for slot := range frame {
			slots = append(slots, slot)
		}
		sort.Ints(slots)
		fmt.Fprintf(&b, "  frame %d:", depth)
		for _, slot := range slots {
			fmt.Fprintf(&b, " %d->%d", slot, frame[slot])
		}
		b.WriteString("\n")
	}
	return b.String()
}

func valueStrings(vs []vm.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

func intStrings(is []int) []string {
	out := make([]string, len(is))
	for i, x := range is {
		out[i] = fmt.Sprintf("%d", x)
	}
	return out
}
