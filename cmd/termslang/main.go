// Command termslang is the CLI entry point: subcommand dispatch for
// run/debug/format/update, built on github.com/urfave/cli/v2.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Owen-Dechow/TermsLang-sub000/internal/debug"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/driver"
	"github.com/Owen-Dechow/TermsLang-sub000/internal/format"
)

func main() {
	app := &cli.App{
		Name:  "termslang",
		Usage: "the TermsLang compiler and stack machine",
		Commands: []*cli.Command{
			runCommand(),
			debugCommand(),
			formatCommand(),
			updateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "lex, parse, analyse, flatten, and execute a file",
		ArgsUsage: "<file> [args...]",
		Action: func(c *cli.Context) error {
			file, rest, err := fileAndArgs(c)
			if err != nil {
				return err
			}
			if err := driver.Run(file, rest, os.Stdin, os.Stdout); err != nil {
				return reportAndExit(err, file)
			}
			return nil
		},
	}
}

func debugCommand() *cli.Command {
	return &cli.Command{
		Name:      "debug",
		Usage:     "run a file under the single-step debugger",
		ArgsUsage: "<file> [args...]",
		Action: func(c *cli.Context) error {
			file, rest, err := fileAndArgs(c)
			if err != nil {
				return err
			}
			compiled, err := driver.Compile(file)
			if err != nil {
				return reportAndExit(err, file)
			}
			stepper := debug.New(os.Stdin, os.Stdout)
			_, err = debug.RunWithExit(func() error {
				return driver.RunCompiled(compiled, rest, os.Stdin, os.Stdout, stepper)
			})
			if err != nil {
				return reportAndExit(err, compiled.File)
			}
			return nil
		},
	}
}

func formatCommand() *cli.Command {
	return &cli.Command{
		Name:      "format",
		Usage:     "reformat a file with valid syntax",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return cli.Exit("format expects exactly one file argument", 1)
			}
			path := c.Args().Get(0)
			b, err := os.ReadFile(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("ManagerError: failed to read %q: %v", path, err), 1)
			}
			fmt.Print(format.Format(string(b), 4))
			return nil
		},
	}
}

// updateCommand is implementation-defined self-update (§6, explicitly
// out of scope): it reports that no update channel is configured rather
// than silently no-op'ing.
func updateCommand() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "self-update (not implemented)",
		Action: func(c *cli.Context) error {
			return cli.Exit("update: no release channel configured for this build", 1)
		},
	}
}

func fileAndArgs(c *cli.Context) (file string, args []string, err error) {
	if c.Args().Len() < 1 {
		return "", nil, cli.Exit("expected a file argument", 1)
	}
	return c.Args().Get(0), c.Args().Slice()[1:], nil
}

// reportAndExit pretty-prints a pipeline error against the named file's
// source text and converts it to a non-zero-exit cli error (§6 "Exit code
// 0 on success; 1 on any user-facing lexer/parser/analyser/runtime
// error").
func reportAndExit(err error, file string) error {
	source := ""
	if b, readErr := os.ReadFile(file); readErr == nil {
		source = string(b)
	}
	return cli.Exit(driver.Pretty(err, source), 1)
}
