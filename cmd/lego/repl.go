package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/samber/do"

	"github.com/thomasrohde/lego/pkg/config"
	"github.com/thomasrohde/lego/pkg/diagnostics"
	"github.com/thomasrohde/lego/pkg/formatter"
	"github.com/thomasrohde/lego/pkg/help"
	"github.com/thomasrohde/lego/pkg/parser"
	"github.com/thomasrohde/lego/pkg/runtime"
)

const (
	historyFile = ".lego_history"
	promptMain  = "lego> "
	promptCont  = "  ... "
)

const replHelp = `Enter a closed formula to evaluate it. Unfinished input continues on the next line.
  :fmt <formula>     print the canonical form
  :check <formula>   report diagnostics without evaluating
  :help              show this text
  :quit              leave the REPL (also :q, :exit, Ctrl-D)
`

// replSession evaluates one input at a time. It holds no formula state:
// every input is evaluated from an empty environment.
type replSession struct {
	rt     *runtime.Runtime
	out    io.Writer
	errOut io.Writer
}

func (c *cli) cmdRepl(_ []string) int {
	injector := newContainer(c.dir)
	if _, err := do.Invoke[config.Settings](injector); err != nil {
		c.report(configDiagnostic(err), true)
		return exitUsage
	}
	provideRuntime(injector, runtime.WithRunID("repl"))
	session := &replSession{
		rt:     do.MustInvoke[*runtime.Runtime](injector),
		out:    c.stdout,
		errOut: c.stderr,
	}

	fmt.Fprintf(c.stdout, "Lego %s. Type :help for commands, :quit to exit.\n", help.Version)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		src, ok := readByParseProbe(ln)
		if !ok {
			fmt.Fprintln(c.stdout)
			return exitOK
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		if session.handle(context.Background(), src) {
			return exitOK
		}
	}
}

// readByParseProbe reads lines until they form input that is not cut short.
// It reports false at end of input.
func readByParseProbe(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl-C drops the pending input.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		trimmed := strings.TrimSpace(src)
		if trimmed == "" || strings.HasPrefix(trimmed, ":") {
			return src, true
		}
		if _, diags := parser.Parse(src, "<repl>"); parser.IsIncomplete(diags) {
			continue
		}
		return src, true
	}
}

// handle runs one REPL input and reports whether the session should end.
func (s *replSession) handle(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	if strings.HasPrefix(input, ":") {
		cmd, rest, _ := strings.Cut(input, " ")
		rest = strings.TrimSpace(rest)
		switch strings.ToLower(cmd) {
		case ":quit", ":q", ":exit":
			return true
		case ":help":
			fmt.Fprint(s.out, replHelp)
		case ":fmt":
			s.format(rest)
		case ":check":
			s.check(rest)
		default:
			fmt.Fprintf(s.errOut, "unknown command %s. Type :help for commands.\n", cmd)
		}
		return false
	}

	res, err := s.rt.Run(ctx, input, "<repl>")
	if err != nil {
		fmt.Fprintln(s.errOut, diagnostics.FormatDiagnostics(runtime.Diagnostics(err), true))
		return false
	}
	fmt.Fprintln(s.out, res.Value)
	return false
}

func (s *replSession) format(src string) {
	if src == "" {
		fmt.Fprintln(s.errOut, "usage: :fmt <formula>")
		return
	}
	out, err := s.rt.Format(src, "<repl>")
	if err != nil {
		fmt.Fprintln(s.errOut, diagnostics.FormatDiagnostics(runtime.Diagnostics(err), true))
		return
	}
	if formatter.HasComments(src) {
		fmt.Fprintln(s.errOut, "warning: comments are not preserved by the formatter")
	}
	fmt.Fprint(s.out, out)
}

func (s *replSession) check(src string) {
	if src == "" {
		fmt.Fprintln(s.errOut, "usage: :check <formula>")
		return
	}
	diags := s.rt.Check(src, "<repl>")
	if len(diags) == 0 {
		fmt.Fprintln(s.out, "No errors found.")
		return
	}
	fmt.Fprintln(s.errOut, diagnostics.FormatDiagnostics(diags, true))
}
