// Command lego is the Lego formula evaluator CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/thomasrohde/lego/pkg/config"
	"github.com/thomasrohde/lego/pkg/diagnostics"
)

// Exit codes.
const (
	exitOK     = 0
	exitUsage  = 1
	exitDiag   = 2
	exitFault  = 4
	exitAssert = 5
)

// cli carries the process streams so commands can be driven from tests.
// Relative paths and the project settings file are resolved against dir.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	dir    string
}

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	c := &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr, dir: cwd}
	os.Exit(c.run(os.Args[1:]))
}

func (c *cli) run(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(c.stderr, "usage: lego <command> [options]")
		fmt.Fprintln(c.stderr, "commands: eval, check, fmt, trace, repl, config, help")
		return exitUsage
	}

	switch args[0] {
	case "eval":
		return c.cmdEval(args[1:])
	case "check":
		return c.cmdCheck(args[1:])
	case "fmt":
		return c.cmdFmt(args[1:])
	case "trace":
		return c.cmdTrace(args[1:])
	case "repl":
		return c.cmdRepl(args[1:])
	case "config":
		return c.cmdConfig(args[1:])
	case "help", "--help", "-h":
		return c.cmdHelp(args[1:])
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n", args[0])
		return exitUsage
	}
}

// resolve makes path relative to the CLI's working directory.
func (c *cli) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.dir, path)
}

// readSource reads a formula from file, or from stdin when file is "-".
func (c *cli) readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			c.report(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read stdin: %s", err), nil, ""), pretty)
			return "", "", exitUsage
		}
		return string(data), "<stdin>", exitOK
	}

	source, err := os.ReadFile(c.resolve(file))
	if err != nil {
		c.report(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, ""), pretty)
		return "", "", exitUsage
	}
	return string(source), file, exitOK
}

func (c *cli) report(d diagnostics.Diagnostic, pretty bool) {
	c.reportAll([]diagnostics.Diagnostic{d}, pretty)
}

func (c *cli) reportAll(diags []diagnostics.Diagnostic, pretty bool) {
	fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diags, pretty))
}

// configDiagnostic turns a settings failure into an E_CONFIG diagnostic.
func configDiagnostic(err error) diagnostics.Diagnostic {
	var ce *config.Error
	if errors.As(err, &ce) {
		return ce.Diagnostic()
	}
	return diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, "")
}

// positional reports whether args[i] is an operand rather than a flag.
// A lone "-" names stdin.
func positional(args []string, i int) bool {
	return !strings.HasPrefix(args[i], "-") || args[i] == "-"
}

func parseLimit(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit '%s'", s)
	}
	return n, nil
}

func newRunID() string {
	return "run-" + strconv.FormatInt(time.Now().UnixNano(), 36)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
