// Package langerr implements the pipeline's error taxonomy: every error
// produced by a stage carries a source location and a stage tag, and
// renders in a "pretty" form — header, position, message, the offending
// source lines with a caret underline.
//
// The shape follows lang/parse/syntax_error.go (a flat struct wrapping a
// message and the offending token's position); causes are wrapped with
// github.com/pkg/errors so a RuntimeError raised from a failed builtin
// keeps its originating I/O error without losing the location-prefixed
// rendering.
package langerr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/Owen-Dechow/TermsLang-sub000/internal/token"
)

// Stage identifies which pipeline stage raised the error.
type Stage int

const (
	Lexer Stage = iota
	Parser
	ActiveParser
	Runtime
	Manager
)

func (s Stage) String() string {
	switch s {
	case Lexer:
		return "LexerError"
	case Parser:
		return "ParserError"
	case ActiveParser:
		return "AParserError"
	case Runtime:
		return "RuntimeError"
	case Manager:
		return "ManagerError"
	default:
		return "Error"
	}
}

// Error is the single error type returned by every pipeline stage. The
// outer driver is the only thing that renders it; stages simply propagate
// the first one produced, matching §7's no-recovery policy.
type Error struct {
	Stage Stage
	Loc   token.Location
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.Loc.IsNone() {
		return fmt.Sprintf("%s: %s", e.Stage, e.Msg)
	}
	return fmt.Sprintf("%s: [pos: %s] %s", e.Stage, e.Loc, e.Msg)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New builds a plain error at the given location.
func New(stage Stage, loc token.Location, format string, args ...interface{}) *Error {
	return &Error{Stage: stage, Loc: loc, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an error at the given location around an underlying cause,
// e.g. a stdin read failure surfaced as a RuntimeError.
func Wrap(stage Stage, loc token.Location, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Stage: stage,
		Loc:   loc,
		Msg:   fmt.Sprintf(format, args...),
		cause: errors.WithStack(cause),
	}
}

// Pretty renders the error against the given source text, underlining the
// offending range with carets as described in §6. A final-position (EOF)
// error underlines with three carets after the last source line.
func Pretty(err *Error, source string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", err.Stage)

	if err.Loc.IsNone() {
		fmt.Fprintf(&b, "%s\n", err.Msg)
		return b.String()
	}

	fmt.Fprintf(&b, "[pos: %s]\n", err.Loc)
	fmt.Fprintf(&b, "%s\n", err.Msg)

	lines := strings.Split(source, "\n")

	if err.Loc.IsEOF() {
		sl, _, _, _ := err.Loc.Span()
		if sl >= 1 && sl <= len(lines) {
			last := lines[sl-1]
			fmt.Fprintln(&b, last)
			fmt.Fprintln(&b, strings.Repeat(" ", len(last))+"^^^")
		} else {
			fmt.Fprintln(&b, "^^^")
		}
		return b.String()
	}

	sl, el, sc, ec := err.Loc.Span()
	for ln := sl; ln <= el && ln >= 1 && ln <= len(lines); ln++ {
		text := lines[ln-1]
		fmt.Fprintln(&b, text)

		underlineStart := 0
		underlineEnd := len(text)
		if ln == sl {
			underlineStart = sc - 1
		}
		if ln == el {
			underlineEnd = ec - 1
		}
		if underlineStart < 0 {
			underlineStart = 0
		}
		if underlineEnd > len(text) {
			underlineEnd = len(text)
		}
		if underlineEnd < underlineStart {
			underlineEnd = underlineStart
		}
		fmt.Fprintln(&b, strings.Repeat(" ", underlineStart)+strings.Repeat("^", max(1, underlineEnd-underlineStart)))
	}
	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
