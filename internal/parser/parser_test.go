package parser_test

import (
	"testing"

	"github.com/Owen-Dechow/TermsLang-sub000/internal/ast"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/lexer"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/parser"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/token"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks, err := lexer.Lex(src, "t.tl", "", nil, false)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks, "t.tl", nil, nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

func TestParseHelloWorld(t *testing.T) {
	src := `"p"~
func null @main: str[] args { println "hello"~ }~`
	prog := mustParse(t, src)

	if len(prog.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if fn.Name != "@main" {
		t.Errorf("expected @main, got %q", fn.Name)
	}
	if len(fn.Args) != 1 || fn.Args[0].Identity != "args" {
		t.Fatalf("expected one arg named 'args', got %v", fn.Args)
	}
	if len(fn.Block.Terms) != 1 || fn.Block.Terms[0].Kind != ast.TermPrintln {
		t.Fatalf("expected a single println term, got %v", fn.Block.Terms)
	}
}

func TestParseStructWithMethod(t *testing.T) {
	src := `"p"~
struct Box { let int v~ func null set: int x { updt @this.v = x~ }~ }~
func null @main: str[] args { let Box b = $Box()~ cll b.set(7)~ println b.v~ }~`
	prog := mustParse(t, src)

	if len(prog.Structs) != 1 {
		t.Fatalf("expected 1 struct, got %d", len(prog.Structs))
	}
	box := prog.Structs[0]
	if box.Name != "Box" {
		t.Errorf("expected struct Box, got %q", box.Name)
	}
	if len(box.Properties) != 1 || box.Properties[0].Identity != "v" {
		t.Fatalf("expected one property 'v', got %v", box.Properties)
	}
	if len(box.Methods) != 1 || box.Methods[0].Name != "set" {
		t.Fatalf("expected one method 'set', got %v", box.Methods)
	}

	setMethod := box.Methods[0]
	if len(setMethod.Block.Terms) != 1 || setMethod.Block.Terms[0].Kind != ast.TermUpdateVar {
		t.Fatalf("expected a single updt term in set, got %v", setMethod.Block.Terms)
	}
	updt := setMethod.Block.Terms[0]
	if updt.SetOp != token.OpAssign {
		t.Errorf("expected plain '=' updt, got %v", updt.SetOp)
	}
	if updt.UpdateTarget.Ident == nil || *updt.UpdateTarget.Ident != "@this" {
		t.Fatalf("expected updt target root '@this', got %v", updt.UpdateTarget)
	}
	if updt.UpdateTarget.Sub == nil || updt.UpdateTarget.Sub.Ident == nil || *updt.UpdateTarget.Sub.Ident != "v" {
		t.Fatalf("expected updt target '@this.v', got %v", updt.UpdateTarget)
	}
}

func TestParseObjectCreateAndCall(t *testing.T) {
	src := `"p"~
func null @main: str[] args { let Box b = $Box()~ cll b.set(7)~ }~`
	prog := mustParse(t, src)
	decl := prog.Functions[0].Block.Terms[0]
	if decl.Kind != ast.TermDeclareVar {
		t.Fatalf("expected declare-var term, got %v", decl.Kind)
	}
	if decl.Value.Kind != ast.ExprCreate {
		t.Fatalf("expected a $Box() creation expression, got %v", decl.Value.Kind)
	}

	call := prog.Functions[0].Block.Terms[1]
	if call.Kind != ast.TermCall {
		t.Fatalf("expected a cll term, got %v", call.Kind)
	}
}

func TestParsePrecedenceMultiplicationBeforeAddition(t *testing.T) {
	src := `"p"~
func null @main: str[] args { let int x = 1 + 2 * 3~ }~`
	prog := mustParse(t, src)
	decl := prog.Functions[0].Block.Terms[0]
	expr := decl.Value
	if expr.Kind != ast.ExprBinary || expr.BinaryOp != token.OpAdd {
		t.Fatalf("expected top-level '+', got %v", expr)
	}
	if expr.BinaryLeft.Kind != ast.ExprLiteral {
		t.Fatalf("expected left operand to be the literal 1, got %v", expr.BinaryLeft)
	}
	right := expr.BinaryRight
	if right.Kind != ast.ExprBinary || right.BinaryOp != token.OpMul {
		t.Fatalf("expected right operand to be a '*' group (tighter precedence), got %v", right)
	}
}

func TestParseDotChainOntoNonObjectPrimary(t *testing.T) {
	// A dotted identifier path (a.b) is consumed entirely inside a single
	// ExprObject by continueObject; ExprDot only arises when '.' follows a
	// primary that is not itself an object path, such as a $T(...) creation.
	src := `"p"~
func null @main: str[] args { let bool x = !$Box().v~ }~`
	prog := mustParse(t, src)
	decl := prog.Functions[0].Block.Terms[0]
	if decl.Value.Kind != ast.ExprUnary || decl.Value.UnaryOp != token.OpNot {
		t.Fatalf("expected top-level unary '!', got %v", decl.Value)
	}
	inner := decl.Value.UnaryInner
	if inner.Kind != ast.ExprDot {
		t.Fatalf("expected the '!' to wrap a dot-access expression, got %v", inner)
	}
	if inner.DotLeft.Kind != ast.ExprCreate {
		t.Fatalf("expected the dot's left side to be the $Box() creation, got %v", inner.DotLeft)
	}
	if inner.DotRight.Ident == nil || *inner.DotRight.Ident != "v" {
		t.Fatalf("expected the dot's right side to be 'v', got %v", inner.DotRight)
	}
}

func TestParseDottedObjectPathIsSingleObject(t *testing.T) {
	src := `"p"~
func null @main: str[] args { let bool x = a.b~ }~`
	prog := mustParse(t, src)
	decl := prog.Functions[0].Block.Terms[0]
	if decl.Value.Kind != ast.ExprObject {
		t.Fatalf("expected a single ExprObject for 'a.b', got %v", decl.Value.Kind)
	}
	if decl.Value.Object.Sub == nil || decl.Value.Object.Sub.Ident == nil || *decl.Value.Object.Sub.Ident != "b" {
		t.Fatalf("expected object path a -> Sub(b), got %v", decl.Value.Object)
	}
}

func TestParseLoopAndIfElse(t *testing.T) {
	src := `"p"~
func null @main: str[] args {
  loop i: i < 10 {
    if i == 0 { continue~ } else { break~ }
  }
}~`
	prog := mustParse(t, src)
	loop := prog.Functions[0].Block.Terms[0]
	if loop.Kind != ast.TermLoop || loop.Counter != "i" {
		t.Fatalf("expected a loop term with counter 'i', got %v", loop)
	}
	ifTerm := loop.Body.Terms[0]
	if ifTerm.Kind != ast.TermIf {
		t.Fatalf("expected an if term, got %v", ifTerm)
	}
	if ifTerm.Then.Terms[0].Kind != ast.TermContinue {
		t.Errorf("expected continue in the then-branch, got %v", ifTerm.Then.Terms[0])
	}
	if ifTerm.Else == nil || ifTerm.Else.Terms[0].Kind != ast.TermBreak {
		t.Errorf("expected break in the else-branch, got %v", ifTerm.Else)
	}
}

func TestParseArrayType(t *testing.T) {
	src := `"p"~
func null @main: str[] args { let int[] xs = $int[]()~ }~`
	prog := mustParse(t, src)
	decl := prog.Functions[0].Block.Terms[0]
	if decl.VarType.Array == nil {
		t.Fatalf("expected an array type for 'xs', got %v", decl.VarType)
	}
}

func TestParseMissingDocstringError(t *testing.T) {
	toks, err := lexer.Lex(`func null @main: str[] args { println "hi"~ }~`, "t.tl", "", nil, false)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	if _, err := parser.Parse(toks, "t.tl", nil, nil); err == nil {
		t.Fatal("expected a parse error for a missing module docstring")
	}
}

func TestParseImportWithoutLoaderErrors(t *testing.T) {
	toks, err := lexer.Lex(`"p"~ import Foo of "foo.tl"~ func null @main: str[] args {}~`, "t.tl", "", nil, false)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	if _, err := parser.Parse(toks, "t.tl", nil, nil); err == nil {
		t.Fatal("expected an error when import has no FileLoader")
	}
}

func TestParseImportMergesStructsAndFunctions(t *testing.T) {
	loader := func(path string) (string, error) {
		return `"lib"~ func null helper: int x { println x~ }~`, nil
	}
	toks, err := lexer.Lex(`"p"~ import helper of "lib.tl"~ func null @main: str[] args { cll helper(1)~ }~`, "t.tl", "", nil, false)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks, "t.tl", nil, loader)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Functions) != 2 {
		t.Fatalf("expected main + imported helper, got %d functions", len(prog.Functions))
	}

	var names []string
	for _, fn := range prog.Functions {
		names = append(names, fn.Name)
	}
	found := false
	for _, n := range names {
		if n == "helper" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an unprefixed 'helper' import name (exported via import-names list), got %v", names)
	}
}
