package driver_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Owen-Dechow/TermsLang-sub000/internal/driver"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.tl")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("failed writing test source: %v", err)
	}
	return path
}

func TestRunHelloWorld(t *testing.T) {
	path := writeSource(t, `"p"~
func null @main: str[] args { println "hello"~ }~`)

	var out bytes.Buffer
	if err := driver.Run(path, nil, strings.NewReader(""), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "hello\n" {
		t.Fatalf("expected %q, got %q", "hello\n", out.String())
	}
}

func TestCompileRejectsTypeMismatch(t *testing.T) {
	path := writeSource(t, `"p"~
func null @main: str[] args { let int x = "hi"~ }~`)

	_, err := driver.Compile(path)
	if err == nil || !strings.Contains(err.Error(), "Missmatched types") {
		t.Fatalf("expected a 'Missmatched types' compile error, got %v", err)
	}
}

func TestCompileRejectsUnknownIdentifier(t *testing.T) {
	path := writeSource(t, `"p"~
func null @main: str[] args { println zzz~ }~`)

	_, err := driver.Compile(path)
	if err == nil || !strings.Contains(err.Error(), "No object of name zzz exists.") {
		t.Fatalf("expected an unknown-identifier compile error, got %v", err)
	}
}

func TestCompileErrorNeverReachesTheVM(t *testing.T) {
	// A type error must stop the pipeline at sema and never produce a
	// runnable program: Run should surface the same compile error rather
	// than attempting to execute anything.
	path := writeSource(t, `"p"~
func null @main: str[] args { let int x = "hi"~ }~`)

	var out bytes.Buffer
	err := driver.Run(path, nil, strings.NewReader(""), &out)
	if err == nil {
		t.Fatal("expected the type error to propagate out of Run")
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output to have been produced, got %q", out.String())
	}
}

func TestRunMissingFileError(t *testing.T) {
	var out bytes.Buffer
	err := driver.Run(filepath.Join(t.TempDir(), "does-not-exist.tl"), nil, strings.NewReader(""), &out)
	if err == nil {
		t.Fatal("expected an error reading a nonexistent file")
	}
}

func TestPrettyRendersLangErrAgainstSource(t *testing.T) {
	src := `"p"~
func null @main: str[] args { println zzz~ }~`
	path := writeSource(t, src)

	_, err := driver.Compile(path)
	if err == nil {
		t.Fatal("expected a compile error")
	}
	msg := driver.Pretty(err, src)
	if msg == "" {
		t.Fatal("expected a non-empty rendered error message")
	}
}
