package flatten_test

import (
	"testing"

	"github.com/Owen-Dechow/TermsLang-sub000/internal/flatten"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/lexer"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/parser"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/sema"
)

func mustFlatten(t *testing.T, src string) *flatten.Program {
	t.Helper()
	toks, err := lexer.Lex(src, "t.tl", "", nil, false)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks, "t.tl", nil, nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	aprog, err := sema.Analyze(prog)
	if err != nil {
		t.Fatalf("analyze error: %v", err)
	}
	flat, err := flatten.Flatten(aprog)
	if err != nil {
		t.Fatalf("flatten error: %v", err)
	}
	return flat
}

func countOp(tape []flatten.CMD, op flatten.Kind) int {
	n := 0
	for _, c := range tape {
		if c.Op == op {
			n++
		}
	}
	return n
}

func TestFlattenEntryTrampoline(t *testing.T) {
	src := `"p"~
func null @main: str[] args { println "hello"~ }~`
	prog := mustFlatten(t, src)

	if len(prog.Tape) < 2 {
		t.Fatalf("expected at least the Refer/Defer trampoline, got %v", prog.Tape)
	}
	if prog.Tape[0].Op != flatten.Refer {
		t.Fatalf("expected tape[0] to be a Refer into @main, got %v", prog.Tape[0])
	}
	if prog.Tape[1].Op != flatten.Defer {
		t.Fatalf("expected tape[1] to be the halting Defer, got %v", prog.Tape[1])
	}
	mainAddr := prog.Tape[0].Target
	if mainAddr < 2 || mainAddr >= len(prog.Tape) {
		t.Fatalf("expected the trampoline Refer to target a valid function address, got %d", mainAddr)
	}
	if prog.Tape[mainAddr].Op != flatten.SplitScope {
		t.Fatalf("expected @main's body to start with SplitScope, got %v", prog.Tape[mainAddr])
	}
}

func TestFlattenPrintlnEmitsExpressionThenPrintLn(t *testing.T) {
	src := `"p"~
func null @main: str[] args { println "hello"~ }~`
	prog := mustFlatten(t, src)

	found := false
	for i, c := range prog.Tape {
		if c.Op == flatten.PrintLn {
			found = true
			if i == 0 || prog.Tape[i-1].Op != flatten.PushLit {
				t.Fatalf("expected PrintLn to be preceded by a PushLit of its argument, got %v before %v", prog.Tape[i-1], c)
			}
		}
	}
	if !found {
		t.Fatal("expected a PrintLn command on the tape")
	}
}

func TestFlattenLoopStructure(t *testing.T) {
	src := `"p"~
func null @main: str[] args {
  loop i: i < 3 { println i~ }
}~`
	prog := mustFlatten(t, src)

	// §4.4.1: the counter starts at -1 and is incremented via @add before
	// the condition test on every iteration.
	sawNegOneInit := false
	for _, c := range prog.Tape {
		if c.Op == flatten.PushLit && c.Lit.Kind == flatten.LitInt && c.Lit.Int == -1 {
			sawNegOneInit = true
		}
	}
	if !sawNegOneInit {
		t.Error("expected the loop counter to be initialized to -1")
	}

	addOps := 0
	for _, c := range prog.Tape {
		if c.Op == flatten.InternalOp && c.Name == "@add" {
			addOps++
		}
	}
	if addOps == 0 {
		t.Error("expected at least one @add InternalOp for the loop counter increment")
	}

	if countOp(prog.Tape, flatten.XIf) == 0 {
		t.Error("expected an XIf for the loop condition test")
	}
}

func TestFlattenIfElseBranching(t *testing.T) {
	src := `"p"~
func null @main: str[] args {
  let bool b = true~
  if b { println "yes"~ } else { println "no"~ }
}~`
	prog := mustFlatten(t, src)

	if countOp(prog.Tape, flatten.XIf) == 0 {
		t.Error("expected an XIf for the if-condition test")
	}
	if countOp(prog.Tape, flatten.PrintLn) != 2 {
		t.Errorf("expected a PrintLn in both branches, got %d", countOp(prog.Tape, flatten.PrintLn))
	}
}

func TestFlattenStructCreateAllocatesSkeleton(t *testing.T) {
	src := `"p"~
struct Box { let int v~ }~
func null @main: str[] args { let Box b = $Box()~ }~`
	prog := mustFlatten(t, src)

	if countOp(prog.Tape, flatten.PushObj) == 0 {
		t.Error("expected a PushObj allocating Box's field skeleton")
	}
}

func TestFlattenRootNewPushesItsArgumentNotAZero(t *testing.T) {
	src := `"p"~
func null @main: str[] args { let int x = $int(5)~ }~`
	prog := mustFlatten(t, src)

	var lit *flatten.CMD
	for i, c := range prog.Tape {
		if c.Op == flatten.PushLit {
			lit = &prog.Tape[i]
			break
		}
	}
	if lit == nil {
		t.Fatalf("expected a PushLit in the tape, got %v", prog.Tape)
	}
	if lit.Lit.Kind != flatten.LitInt || lit.Lit.Int != 5 {
		t.Errorf("expected $int(5) to push the literal 5, got %v", lit.Lit)
	}
	if countOp(prog.Tape, flatten.InternalOp) != 0 {
		t.Errorf("expected $int(5) to be lowered without an InternalOp @new dispatch, got %v", prog.Tape)
	}
}

func TestFlattenUpdateFieldEmitsUpdateWithPath(t *testing.T) {
	src := `"p"~
struct Box { let int v~ func null set: int x { updt @this.v = x~ }~ }~
func null @main: str[] args { let Box b = $Box()~ cll b.set(7)~ }~`
	prog := mustFlatten(t, src)

	found := false
	for _, c := range prog.Tape {
		if c.Op == flatten.Update {
			found = true
			if len(c.Path) != 2 {
				t.Errorf("expected updt @this.v to produce a 2-element slot path, got %v", c.Path)
			}
		}
	}
	if !found {
		t.Error("expected an Update command for 'updt @this.v = x'")
	}
}

func TestFlattenCompoundAssignDesugarsToAddThenUpdate(t *testing.T) {
	src := `"p"~
func null @main: str[] args { let int x = 1~ updt x += 2~ }~`
	prog := mustFlatten(t, src)

	addIdx := -1
	for i, c := range prog.Tape {
		if c.Op == flatten.InternalOp && c.Name == "@add" {
			addIdx = i
		}
	}
	if addIdx == -1 {
		t.Fatal("expected an @add InternalOp for 'updt x += 2'")
	}
	if addIdx+1 >= len(prog.Tape) || prog.Tape[addIdx+1].Op != flatten.Update {
		t.Errorf("expected the @add to be immediately followed by Update, got %v", prog.Tape[addIdx+1])
	}
}

func TestFlattenFunctionBodyEndsWithDeferNoExplicitRelease(t *testing.T) {
	// §4.4.1: Defer itself releases every scope frame back to the call's
	// own SplitScope, so codegen must not emit an explicit Release right
	// before a function body's trailing Defer.
	src := `"p"~
func null @main: str[] args { println "hi"~ }~`
	prog := mustFlatten(t, src)

	for i, c := range prog.Tape {
		if c.Op == flatten.Defer && i > 0 {
			if prog.Tape[i-1].Op == flatten.Release {
				t.Errorf("did not expect an explicit Release immediately before Defer at %d", i)
			}
		}
	}
}

func TestCMDStringRendersOperands(t *testing.T) {
	c := flatten.CMD{Op: flatten.PushLit, Lit: flatten.Literal{Kind: flatten.LitInt, Int: 5}}
	s := c.String()
	if s == "" {
		t.Fatal("expected a non-empty rendering of a PushLit command")
	}
}
