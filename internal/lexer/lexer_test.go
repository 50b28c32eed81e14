package lexer_test

import (
	"testing"

	"github.com/Owen-Dechow/TermsLang-sub000/internal/lexer"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/token"
)

func TestLexHelloWorld(t *testing.T) {
	// func null @main: str[] args { println "hello"~ }~
	toks, err := lexer.Lex(`func null @main: str[] args { println "hello"~ }~`, "t.tl", "", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []token.Kind{
		token.KeyWord,  // func
		token.Identity, // null
		token.Identity, // @main
		token.Operator, // :
		token.Identity, // str
		token.Operator, // [
		token.Operator, // ]
		token.Identity, // args
		token.Operator, // {
		token.KeyWord,  // println
		token.String,   // "hello"
		token.Terminate,
		token.Operator, // }
		token.Terminate,
	}
	if len(toks) != len(want) {
		t.Fatalf("token count mismatch: got %d %v, want %d", len(toks), toks, len(want))
	}
	for i := range want {
		if toks[i].Kind != want[i] {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Kind, want[i])
		}
	}
	if toks[2].Ident != "@main" {
		t.Errorf("expected @main identity, got %q", toks[2].Ident)
	}
	if toks[10].StringVal != "hello" {
		t.Errorf("expected string literal %q, got %q", "hello", toks[10].StringVal)
	}
}

func TestNegativeLiteralReattachment(t *testing.T) {
	// A leading minus adjacent to a digit, with no operand before it to
	// make it a subtraction, reattaches as the literal's sign (§4.1, §9
	// "Negative-number tokenisation"): a single Int(-5) token, not a
	// separate Operator(Sub) followed by Int(5).
	toks, err := lexer.Lex(`-5~`, "t.tl", "", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens (Int(-5), Terminate), got %d (%v)", len(toks), toks)
	}
	if toks[0].Kind != token.Int || toks[0].IntVal != -5 {
		t.Fatalf("expected Int(-5), got %v", toks[0])
	}
}

func TestSubtractionNotReattachedAcrossSpace(t *testing.T) {
	// `a - 5` : the operator and the digit are not column-adjacent (a
	// space sits between them), so no reattachment occurs and `-` stays a
	// binary operator.
	toks, err := lexer.Lex(`a - 5~`, "t.tl", "", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != 4 {
		t.Fatalf("expected 4 tokens, got %d (%v)", len(toks), toks)
	}
	if toks[1].Kind != token.Operator || toks[1].OpVal != token.OpSub {
		t.Fatalf("expected token 1 to be Operator(Sub), got %v", toks[1])
	}
	if toks[2].Kind != token.Int || toks[2].IntVal != 5 {
		t.Fatalf("expected token 2 to be Int(5), got %v", toks[2])
	}
}

func TestSignReattachmentAdjacent(t *testing.T) {
	// `a-5` : operator end and digit start are column-adjacent, so the
	// minus is consumed as the literal's sign, producing Int(-5) directly
	// after the identifier with no intervening Operator(Sub) token.
	toks, err := lexer.Lex(`a-5~`, "t.tl", "", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != 3 {
		t.Fatalf("expected 3 tokens (Identity, Int(-5), Terminate), got %d (%v)", len(toks), toks)
	}
	if toks[1].Kind != token.Int || toks[1].IntVal != -5 {
		t.Fatalf("expected Int(-5), got %v", toks[1])
	}
}

func TestNumericUnderscoresIgnored(t *testing.T) {
	toks, err := lexer.Lex(`1_000_000~`, "t.tl", "", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != token.Int || toks[0].IntVal != 1000000 {
		t.Fatalf("expected Int(1000000), got %v", toks[0])
	}
}

func TestIdentifierPrefixing(t *testing.T) {
	toks, err := lexer.Lex(`foo bar~`, "t.tl", "mod::", map[string]bool{"bar": true}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Ident != "mod::foo" {
		t.Errorf("expected prefixed identifier, got %q", toks[0].Ident)
	}
	if toks[1].Ident != "bar" {
		t.Errorf("expected prefix_exclude name to stay bare, got %q", toks[1].Ident)
	}
}

func TestReservedNamesNeverPrefixed(t *testing.T) {
	toks, err := lexer.Lex(`int @main~`, "t.tl", "mod::", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Ident != "int" {
		t.Errorf("expected reserved name 'int' to stay unprefixed, got %q", toks[0].Ident)
	}
	if toks[1].Ident != "@main" {
		t.Errorf("expected reserved name '@main' to stay unprefixed, got %q", toks[1].Ident)
	}
}

func TestCommentsSkippedByDefault(t *testing.T) {
	toks, err := lexer.Lex("# a comment\nlet int x = 1~", "t.tl", "", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tk := range toks {
		if tk.Kind == token.Comment {
			t.Fatalf("did not expect a Comment token when lexComments is false")
		}
	}
}

func TestCommentsEmittedWhenRequested(t *testing.T) {
	toks, err := lexer.Lex("# a comment\n~", "t.tl", "", nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) == 0 || toks[0].Kind != token.Comment {
		t.Fatalf("expected a leading Comment token, got %v", toks)
	}
	if toks[0].StringVal != " a comment" {
		t.Errorf("unexpected comment text %q", toks[0].StringVal)
	}
}

func TestInvalidOperatorError(t *testing.T) {
	_, err := lexer.Lex("a ? b~", "t.tl", "", nil, false)
	if err == nil {
		t.Fatal("expected a lex error for an unregistered operator character")
	}
}

func TestUnterminatedStringError(t *testing.T) {
	_, err := lexer.Lex(`"unterminated`, "t.tl", "", nil, false)
	if err == nil {
		t.Fatal("expected a lex error for an unterminated string literal")
	}
}
