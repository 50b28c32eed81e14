package sema_test

import (
	"strings"
	"testing"

	"github.com/Owen-Dechow/TermsLang-sub000/internal/ast"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/lexer"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/parser"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/sema"
)

func mustAnalyze(t *testing.T, src string) *sema.AProgram {
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
	return aprog
}

func analyzeErr(t *testing.T, src string) error {
	t.Helper()
	toks, err := lexer.Lex(src, "t.tl", "", nil, false)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks, "t.tl", nil, nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, err = sema.Analyze(prog)
	return err
}

func TestAnalyzeHelloWorld(t *testing.T) {
	src := `"p"~
func null @main: str[] args { println "hello"~ }~`
	aprog := mustAnalyze(t, src)
	if aprog.Main == nil || aprog.Main.Name != "@main" {
		t.Fatalf("expected Main to resolve to @main, got %v", aprog.Main)
	}
}

func TestAnalyzeForwardReferencedStruct(t *testing.T) {
	// A function declared before the struct it names must still resolve,
	// since declare() registers every name up front before any type is
	// resolved (§4.3 "Declare").
	src := `"p"~
func null useBox: Box b { println b.v~ }~
struct Box { let int v~ }~
func null @main: str[] args {}~`
	aprog := mustAnalyze(t, src)
	if len(aprog.Structs) != 1 || aprog.Structs[0].Name != "Box" {
		t.Fatalf("expected struct Box to resolve, got %v", aprog.Structs)
	}
}

func TestAnalyzeMissingMainError(t *testing.T) {
	src := `"p"~
func null notMain: str[] args {}~`
	err := analyzeErr(t, src)
	if err == nil {
		t.Fatal("expected an error when no @main function is declared")
	}
}

func TestAnalyzeTypeMismatchOnDeclare(t *testing.T) {
	src := `"p"~
func null @main: str[] args { let int x = "hi"~ }~`
	err := analyzeErr(t, src)
	if err == nil || !strings.Contains(err.Error(), "Missmatched types") {
		t.Fatalf("expected a 'Missmatched types' error, got %v", err)
	}
}

func TestAnalyzeUnknownIdentifierError(t *testing.T) {
	src := `"p"~
func null @main: str[] args { println zzz~ }~`
	err := analyzeErr(t, src)
	if err == nil || !strings.Contains(err.Error(), "No object of name zzz exists.") {
		t.Fatalf("expected 'No object of name zzz exists.', got %v", err)
	}
}

func TestAnalyzeDuplicateStructError(t *testing.T) {
	src := `"p"~
struct Box { let int v~ }~
struct Box { let int w~ }~
func null @main: str[] args {}~`
	err := analyzeErr(t, src)
	if err == nil {
		t.Fatal("expected a duplicate-declaration error for struct Box")
	}
}

func TestAnalyzeReservedNameRejectedForStruct(t *testing.T) {
	src := `"p"~
struct int { let int v~ }~
func null @main: str[] args {}~`
	err := analyzeErr(t, src)
	if err == nil {
		t.Fatal("expected an error declaring a struct named the reserved 'int'")
	}
}

func TestAnalyzeCompoundAssignmentDesugarsToBinary(t *testing.T) {
	src := `"p"~
func null @main: str[] args { let int x = 1~ updt x += 2~ }~`
	aprog := mustAnalyze(t, src)
	updt := aprog.Main.Body.Terms[1]
	if updt.Kind != ast.TermUpdateVar {
		t.Fatalf("expected an update term, got %v", updt.Kind)
	}
	if updt.Value.Kind != sema.AExprBinary || updt.Value.BinaryOp.String() != "+" {
		t.Fatalf("expected updt += to desugar into a '+' binary expression, got %v", updt.Value)
	}
	if updt.Value.BinaryMethod == nil || updt.Value.BinaryMethod.Name != "@add" {
		t.Fatalf("expected the desugared binary to resolve to @add, got %v", updt.Value.BinaryMethod)
	}
}

func TestAnalyzeDefaultConstructorSynthesized(t *testing.T) {
	src := `"p"~
struct Box { let int v~ }~
func null @main: str[] args { let Box b = $Box()~ }~`
	aprog := mustAnalyze(t, src)
	box := aprog.Structs[0]
	ctor, ok := box.Methods["@new"]
	if !ok {
		t.Fatal("expected a synthesized @new constructor on Box")
	}
	if !ctor.Internal {
		t.Errorf("expected the synthesized constructor to be Internal")
	}
}

func TestAnalyzeStructMethodCallTypeChecked(t *testing.T) {
	src := `"p"~
struct Box { let int v~ func null set: int x { updt @this.v = x~ }~ }~
func null @main: str[] args { let Box b = $Box()~ cll b.set("nope")~ }~`
	err := analyzeErr(t, src)
	if err == nil || !strings.Contains(err.Error(), "Missmatched types") {
		t.Fatalf("expected a 'Missmatched types' error for a string argument to an int parameter, got %v", err)
	}
}

func TestAnalyzeArrayIndexRequiresIntType(t *testing.T) {
	src := `"p"~
func null @main: str[] args { let int[] xs = $int[]()~ println xs["bad"]~ }~`
	err := analyzeErr(t, src)
	if err == nil || !strings.Contains(err.Error(), "Missmatched types") {
		t.Fatalf("expected a 'Missmatched types' error indexing with a string, got %v", err)
	}
}
