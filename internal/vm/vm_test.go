package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Owen-Dechow/TermsLang-sub000/internal/flatten"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/lexer"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/parser"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/sema"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/vm"
)

func run(t *testing.T, src string, args []string) string {
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
	var out bytes.Buffer
	m := vm.New(flat, strings.NewReader(""), &out)
	if err := m.Run(args); err != nil {
		t.Fatalf("run error: %v", err)
	}
	return out.String()
}

func TestHelloWorld(t *testing.T) {
	src := `"prelude"~
func null @main: str[] args { println "hello"~ }~`
	got := run(t, src, nil)
	if got != "hello\n" {
		t.Fatalf("expected %q, got %q", "hello\n", got)
	}
}

func TestArithmeticAndLoop(t *testing.T) {
	src := `"p"~
func null @main: str[] args {
  let int n = 0~
  loop i: i < 5 { updt n += i~ }
  println n~
}~`
	got := run(t, src, nil)
	if got != "10\n" {
		t.Fatalf("expected %q, got %q", "10\n", got)
	}
}

func TestPrimitiveNewIsACopyConstructor(t *testing.T) {
	src := `"p"~
func null @main: str[] args {
  let int n = $int(5)~
  let str s = $str("hi")~
  println n~
  println s~
}~`
	got := run(t, src, nil)
	if got != "5\nhi\n" {
		t.Fatalf("expected %q, got %q", "5\nhi\n", got)
	}
}

func TestStructAndMethod(t *testing.T) {
	src := `"p"~
struct Box { let int v~ func null set: int x { updt @this.v = x~ }~ }~
func null @main: str[] args { let Box b = $Box()~ cll b.set(7)~ println b.v~ }~`
	got := run(t, src, nil)
	if got != "7\n" {
		t.Fatalf("expected %q, got %q", "7\n", got)
	}
}

func TestIntOverflowWrapsAroundInsteadOfAborting(t *testing.T) {
	// §9's integer-overflow resolution: int arithmetic wraps via Go's
	// native int32 addition rather than aborting the program.
	src := `"p"~
func null @main: str[] args {
  let int x = 2147483647~
  updt x += 1~
  println x~
}~`
	got := run(t, src, nil)
	if got != "-2147483648\n" {
		t.Fatalf("expected int32 wraparound to -2147483648, got %q", got)
	}
}

func TestNestedFieldUpdateIsByReference(t *testing.T) {
	// §9: nested `updt x.y.z = ...` writes mutate the shared backing
	// object rather than a copy, so an alias observes the write.
	src := `"p"~
struct Box { let int v~ }~
struct Holder { let Box b~ }~
func null @main: str[] args {
  let Box box = $Box()~
  let Holder h = $Holder()~
  updt h.b = box~
  updt h.b.v = 9~
  println box.v~
}~`
	got := run(t, src, nil)
	if got != "9\n" {
		t.Fatalf("expected the write through h.b.v to be visible via the box alias, got %q", got)
	}
}

func TestCLIArgsArrayPassedToMain(t *testing.T) {
	src := `"p"~
func null @main: str[] args { println args[0]~ }~`
	got := run(t, src, []string{"hi"})
	if got != "hi\n" {
		t.Fatalf("expected the CLI args array's first element, got %q", got)
	}
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	toks, err := lexer.Lex(`"p"~
func null @main: str[] args { let int x = 1 / 0~ }~`, "t.tl", "", nil, false)
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
	var out bytes.Buffer
	m := vm.New(flat, strings.NewReader(""), &out)
	if err := m.Run(nil); err == nil {
		t.Fatal("expected a runtime error for division by zero")
	}
}

func TestArrayIndexOutOfRangeIsRuntimeError(t *testing.T) {
	src := `"p"~
func null @main: str[] args { let int[] xs = $int[]()~ println xs[0]~ }~`
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
	var out bytes.Buffer
	m := vm.New(flat, strings.NewReader(""), &out)
	if err := m.Run(nil); err == nil {
		t.Fatal("expected a runtime error indexing an empty array")
	}
}
