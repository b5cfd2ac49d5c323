// Package runtime provides the top-level Lego runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thomasrohde/lego/pkg/ast"
	"github.com/thomasrohde/lego/pkg/config"
	"github.com/thomasrohde/lego/pkg/diagnostics"
	"github.com/thomasrohde/lego/pkg/evaluator"
	"github.com/thomasrohde/lego/pkg/formatter"
	"github.com/thomasrohde/lego/pkg/parser"
	"github.com/thomasrohde/lego/pkg/validator"
)

// Result holds the outcome of a formula evaluation.
type Result struct {
	Value bool
	Stats evaluator.Stats
}

// Runtime wires together all Lego components for formula evaluation.
type Runtime struct {
	runID         string
	trace         func(event evaluator.TraceEvent)
	maxIterations int64
	timeMs        int64
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithMaxIterations caps the total number of quantifier iterations per run.
// Zero means unlimited.
func WithMaxIterations(n int64) Option {
	return func(rt *Runtime) {
		rt.maxIterations = n
	}
}

// WithTimeout caps the wall-clock time of each run in milliseconds.
// Zero means unlimited.
func WithTimeout(ms int64) Option {
	return func(rt *Runtime) {
		rt.timeMs = ms
	}
}

// WithSettings applies loaded settings. Options given after it override it.
func WithSettings(s config.Settings) Option {
	return func(rt *Runtime) {
		rt.maxIterations = s.MaxIterations
		rt.timeMs = s.TimeoutMs
	}
}

// New creates a new Runtime with the given options.
// By default runs are unlimited and untraced.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		runID: "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Run parses and evaluates a formula. Parse failures are returned as a
// *DiagnosticError; evaluation faults as *evaluator.EvalError.
//
// Run does not validate: a variable that is never reached, such as one under
// an empty domain, does not fault.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	f, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	return rt.Evaluate(ctx, f)
}

// Evaluate executes an already-built formula.
func (rt *Runtime) Evaluate(ctx context.Context, f ast.Formula) (*Result, error) {
	res, err := evaluator.Execute(ctx, f, rt.buildExecOptions())
	if err != nil {
		return nil, err
	}
	return &Result{Value: res.Value, Stats: res.Stats}, nil
}

// Check parses and validates a formula without evaluating it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	f, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	return validator.Validate(f)
}

// Format parses and formats a formula.
func (rt *Runtime) Format(source, filename string) (string, error) {
	f, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(f), nil
}

// buildExecOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) buildExecOptions() evaluator.ExecOptions {
	var budget evaluator.Budget
	if rt.maxIterations > 0 {
		n := rt.maxIterations
		budget.MaxIterations = &n
	}
	if rt.timeMs > 0 {
		ms := rt.timeMs
		budget.TimeMs = &ms
	}
	return evaluator.ExecOptions{
		Trace:  rt.trace,
		RunID:  rt.runID,
		Budget: budget,
	}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Diagnostics extracts reportable diagnostics from any error returned by the
// runtime. Unknown errors become a single E_IO diagnostic.
func Diagnostics(err error) []diagnostics.Diagnostic {
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Diagnostics
	}
	var ee *evaluator.EvalError
	if errors.As(err, &ee) {
		return []diagnostics.Diagnostic{ee.Diagnostic()}
	}
	var ce *config.Error
	if errors.As(err, &ce) {
		return []diagnostics.Diagnostic{ce.Diagnostic()}
	}
	return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")}
}
