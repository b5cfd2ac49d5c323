package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/samber/do"

	"github.com/thomasrohde/lego/pkg/config"
	"github.com/thomasrohde/lego/pkg/diagnostics"
	"github.com/thomasrohde/lego/pkg/evaluator"
	"github.com/thomasrohde/lego/pkg/formatter"
	"github.com/thomasrohde/lego/pkg/help"
	"github.com/thomasrohde/lego/pkg/runtime"
)

func (c *cli) cmdEval(args []string) int {
	var file, tracePath string
	var maxIterations, timeoutMs *int64
	pretty := false
	assert := false
	stats := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--assert":
			assert = true
		case "--stats":
			stats = true
		case "--trace":
			if i+1 >= len(args) {
				fmt.Fprintln(c.stderr, "error: --trace requires a path")
				return exitUsage
			}
			i++
			tracePath = args[i]
		case "--max-iterations":
			if i+1 >= len(args) {
				fmt.Fprintln(c.stderr, "error: --max-iterations requires a value")
				return exitUsage
			}
			i++
			n, err := parseLimit(args[i])
			if err != nil {
				fmt.Fprintf(c.stderr, "error: %s\n", err)
				return exitUsage
			}
			maxIterations = &n
		case "--timeout-ms":
			if i+1 >= len(args) {
				fmt.Fprintln(c.stderr, "error: --timeout-ms requires a value")
				return exitUsage
			}
			i++
			n, err := parseLimit(args[i])
			if err != nil {
				fmt.Fprintf(c.stderr, "error: %s\n", err)
				return exitUsage
			}
			timeoutMs = &n
		default:
			if positional(args, i) {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: lego eval <file|-> [--pretty] [--trace <path>] [--max-iterations N] [--timeout-ms N] [--assert] [--stats]")
		return exitUsage
	}

	injector := newContainer(c.dir)
	settings, err := do.Invoke[config.Settings](injector)
	if err != nil {
		c.report(configDiagnostic(err), pretty)
		return exitUsage
	}
	pretty = pretty || settings.Pretty
	if tracePath == "" {
		tracePath = settings.TraceFile
	}

	source, filename, code := c.readSource(file, pretty)
	if code != exitOK {
		return code
	}

	opts := []runtime.Option{runtime.WithRunID(newRunID())}
	if maxIterations != nil {
		opts = append(opts, runtime.WithMaxIterations(*maxIterations))
	}
	if timeoutMs != nil {
		opts = append(opts, runtime.WithTimeout(*timeoutMs))
	}
	if tracePath != "" {
		tw, err := openTraceWriter(c.resolve(tracePath))
		if err != nil {
			c.report(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot open trace file: %s", tracePath), nil, ""), pretty)
			return exitUsage
		}
		defer func() {
			if err := tw.Close(); err != nil {
				fmt.Fprintf(c.stderr, "warning: trace file incomplete: %s\n", err)
			}
		}()
		opts = append(opts, runtime.WithTrace(tw.write))
	}
	provideRuntime(injector, opts...)
	rt := do.MustInvoke[*runtime.Runtime](injector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, execErr := rt.Run(ctx, source, filename)
	if execErr != nil {
		c.reportAll(runtime.Diagnostics(execErr), pretty)
		var de *runtime.DiagnosticError
		if errors.As(execErr, &de) {
			return exitDiag
		}
		return exitFault
	}

	if pretty {
		fmt.Fprintln(c.stdout, result.Value)
		if stats {
			fmt.Fprintf(c.stdout, "iterations: %d, max depth: %d\n", result.Stats.Iterations, result.Stats.MaxDepth)
		}
	} else {
		b, err := evaluator.ResultToJSON(&evaluator.ExecResult{Value: result.Value, Stats: result.Stats}, stats)
		if err != nil {
			fmt.Fprintf(c.stderr, "error serializing result: %s\n", err)
			return exitFault
		}
		fmt.Fprintln(c.stdout, string(b))
	}

	if assert && !result.Value {
		return exitAssert
	}
	return exitOK
}

func (c *cli) cmdCheck(args []string) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if positional(args, i) {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: lego check <file> [--pretty]")
		return exitUsage
	}

	source, filename, code := c.readSource(file, pretty)
	if code != exitOK {
		return code
	}

	diags := runtime.New().Check(source, filename)
	if len(diags) > 0 {
		c.reportAll(diags, pretty)
	}
	if diagnostics.HasErrors(diags) {
		return exitDiag
	}

	if pretty {
		fmt.Fprintln(c.stdout, "No errors found.")
	} else {
		fmt.Fprintln(c.stdout, "[]")
	}
	return exitOK
}

func (c *cli) cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if positional(args, i) {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: lego fmt <file> [--write]")
		return exitUsage
	}
	if write && file == "-" {
		fmt.Fprintln(c.stderr, "error: --write cannot be used with stdin")
		return exitUsage
	}

	source, filename, code := c.readSource(file, false)
	if code != exitOK {
		return code
	}

	formatted, err := runtime.New().Format(source, filename)
	if err != nil {
		c.reportAll(runtime.Diagnostics(err), false)
		return exitDiag
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(c.stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(c.resolve(file), []byte(formatted), 0644); err != nil {
			fmt.Fprintf(c.stderr, "error writing file: %s\n", err)
			return exitUsage
		}
		return exitOK
	}
	fmt.Fprint(c.stdout, formatted)
	return exitOK
}

func (c *cli) cmdConfig(args []string) int {
	injector := newContainer(c.dir)
	settings, err := do.Invoke[config.Settings](injector)
	if err != nil {
		c.report(configDiagnostic(err), true)
		return exitUsage
	}

	data, err := config.Encode(settings)
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %s\n", err)
		return exitUsage
	}
	if settings.Source != "" {
		fmt.Fprintf(c.stdout, "# from %s\n", settings.Source)
	} else {
		fmt.Fprintln(c.stdout, "# defaults (no settings file found)")
	}
	fmt.Fprint(c.stdout, string(data))
	return exitOK
}

func (c *cli) cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for i, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if positional(args, i) {
			topic = arg
		}
	}

	if showIndex {
		if topic == "" {
			fmt.Fprintln(c.stderr, "error: --index requires a topic (e.g., lego help syntax --index)")
			return exitUsage
		}
		if name, _, err := help.MatchTopic(topic); err != nil || name != "syntax" {
			fmt.Fprintln(c.stderr, "error: --index is only supported for the syntax topic")
			return exitUsage
		}
		fmt.Fprint(c.stdout, help.OperatorIndex())
		return exitOK
	}

	if topic == "" {
		fmt.Fprint(c.stdout, help.QUICKREF)
		return exitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return exitUsage
	}
	fmt.Fprint(c.stdout, content)
	return exitOK
}

// traceWriter appends trace events to a file as NDJSON, in batches of
// traceBatch events. The first error is kept and reported by Close.
type traceWriter struct {
	f       *os.File
	pending []evaluator.TraceEvent
	err     error
}

const traceBatch = 256

func openTraceWriter(path string) (*traceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &traceWriter{f: f}, nil
}

func (t *traceWriter) write(ev evaluator.TraceEvent) {
	if t.err != nil {
		return
	}
	t.pending = append(t.pending, ev)
	if len(t.pending) >= traceBatch {
		t.flush()
	}
}

func (t *traceWriter) flush() {
	if t.err != nil || len(t.pending) == 0 {
		return
	}
	data, err := evaluator.TraceToJSONL(t.pending)
	t.pending = t.pending[:0]
	if err != nil {
		t.err = err
		return
	}
	if _, err := t.f.Write(data); err != nil {
		t.err = err
	}
}

func (t *traceWriter) Close() error {
	t.flush()
	if err := t.f.Close(); err != nil && t.err == nil {
		t.err = err
	}
	return t.err
}
