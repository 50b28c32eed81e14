// Package driver wires the four pipeline stages together and owns the
// external-collaborator concerns placed outside the core: source-file
// I/O, import resolution's FileLoader, and CLI-facing error rendering.
//
// The "load source, run the stage chain, pretty-print the first error"
// shape generalizes the root lang.go's own main-entry pattern (which
// wires only a lexer and a parser together ad hoc) across four stages
// instead of two, giving that wiring a stable, reusable home.
package driver

import (
	"fmt"
	"io"
	"os"

	"github.com/Owen-Dechow/TermsLang-sub000/internal/flatten"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/langerr"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/lexer"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/parser"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/sema"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/token"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/vm"
)

// Compiled is the output of every stage short of execution: the flattened
// tape plus the source text each stage's errors are rendered against.
type Compiled struct {
	Program *flatten.Program
	Source  string
	File    string
}

// osLoad reads an imported file from disk, relative to the importing
// file's own directory is left to the caller's path convention; §4.2
// only requires that the parser may be reinvoked on the loaded text.
func osLoad(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compile runs lex -> parse -> sema -> flatten over the file at path.
func Compile(path string) (*Compiled, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, langerr.Wrap(langerr.Manager, token.NoLoc, err, "failed to read %q", path)
	}
	source := string(b)

	toks, err := lexer.Lex(source, path, "", nil, false)
	if err != nil {
		return nil, lexErrToLangErr(err)
	}

	prog, err := parser.Parse(toks, path, nil, osLoad)
	if err != nil {
		return nil, err
	}

	aprog, err := sema.Analyze(prog)
	if err != nil {
		return nil, err
	}

	flat, err := flatten.Flatten(aprog)
	if err != nil {
		return nil, err
	}

	return &Compiled{Program: flat, Source: source, File: path}, nil
}

// lexErrToLangErr adapts a *lexer.Error (the lexer's own concrete error
// type, since internal/lexer predates internal/langerr's Stage enum) to
// the shared *langerr.Error taxonomy the rest of the driver renders.
func lexErrToLangErr(err error) error {
	if le, ok := err.(*lexer.Error); ok {
		return langerr.New(langerr.Lexer, le.Loc, "%s", le.Msg)
	}
	return err
}

// Run implements the CLI "run" subcommand (§6): compile, then execute the
// tape against stdin/stdout with the given CLI args.
func Run(path string, args []string, stdin io.Reader, stdout io.Writer) error {
	c, err := Compile(path)
	if err != nil {
		return err
	}
	m := vm.New(c.Program, stdin, stdout)
	return m.Run(args)
}

// RunCompiled executes an already-compiled program, installing hook as a
// single-step observer if non-nil. Used by the debug subcommand; Run builds
// its own hookless VM.
func RunCompiled(c *Compiled, args []string, stdin io.Reader, stdout io.Writer, hook vm.Hook) error {
	m := vm.New(c.Program, stdin, stdout)
	if hook != nil {
		m.SetHook(hook)
	}
	return m.Run(args)
}

// Pretty renders err (if it is a *langerr.Error) against the compiled
// unit's own source text, falling back to a bare message for anything
// else (e.g. a plain os.ReadFile failure with no source to show).
func Pretty(err error, source string) string {
	if le, ok := err.(*langerr.Error); ok {
		return langerr.Pretty(le, source)
	}
	return fmt.Sprintf("%s\n", err)
}
