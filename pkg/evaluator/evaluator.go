// Package evaluator implements the Lego formula evaluator.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thomasrohde/lego/pkg/ast"
	"github.com/thomasrohde/lego/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart   TraceEventType = "run_start"
	TraceRunEnd     TraceEventType = "run_end"
	TraceQuantStart TraceEventType = "quant_start"
	TraceQuantEnd   TraceEventType = "quant_end"
	TraceFault      TraceEventType = "fault"
)

// TraceEvent represents a single trace event emitted during evaluation.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ExecOptions configures formula evaluation.
type ExecOptions struct {
	Trace  func(event TraceEvent)
	RunID  string
	Budget Budget
}

// ExecResult holds the result of a successful evaluation.
type ExecResult struct {
	Value bool  `json:"value"`
	Stats Stats `json:"stats"`
}

type evaluator struct {
	ctx        context.Context
	opts       ExecOptions
	env        *Env
	stats      Stats
	startClock int64
}

// Evaluate evaluates a closed formula with a fresh environment.
func Evaluate(f ast.Formula) (bool, error) {
	res, err := Execute(context.Background(), f, ExecOptions{})
	if err != nil {
		return false, err
	}
	return res.Value, nil
}

// Execute evaluates a closed formula under opts. On a fault the result is nil.
func Execute(ctx context.Context, f ast.Formula, opts ExecOptions) (*ExecResult, error) {
	ev := &evaluator{
		ctx:        ctx,
		opts:       opts,
		env:        NewEnv(),
		startClock: clockNow(),
	}

	if opts.Budget.TimeMs != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*opts.Budget.TimeMs)*time.Millisecond)
		defer cancel()
		ev.ctx = ctx
	}

	var span *ast.Span
	if !ast.IsNil(f) {
		s := f.NodeSpan()
		span = &s
	}
	ev.emit(TraceRunStart, span, nil)

	val, err := ev.eval(f)
	ev.stats.DurationUs = clockSinceUs(ev.startClock)

	if err != nil {
		data := map[string]any{"message": err.Error()}
		var ee *EvalError
		if errors.As(err, &ee) {
			data["code"] = ee.Code
			if errors.Is(err, ErrUnboundVariable) {
				data["bound"] = ee.Bound
			}
			ev.emit(TraceFault, ee.Span, data)
		} else {
			ev.emit(TraceFault, nil, data)
		}
		ev.emit(TraceRunEnd, span, nil)
		return nil, err
	}

	ev.emit(TraceRunEnd, span, map[string]any{
		"result":     val,
		"iterations": ev.stats.Iterations,
	})
	return &ExecResult{Value: val, Stats: ev.stats}, nil
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span, data map[string]any) {
	if ev.opts.Trace == nil {
		return
	}
	ev.opts.Trace(TraceEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RunID:     ev.opts.RunID,
		Event:     event,
		Span:      span,
		Data:      data,
	})
}

// step accounts for one quantifier iteration and enforces the budget.
func (ev *evaluator) step(span ast.Span) error {
	if err := ev.ctx.Err(); err != nil {
		code, sentinel, msg := diagnostics.ECancelled, ErrCancelled, "evaluation cancelled"
		if errors.Is(err, context.DeadlineExceeded) && ev.opts.Budget.TimeMs != nil {
			code, sentinel = diagnostics.EBudget, ErrBudget
			msg = fmt.Sprintf("time budget exceeded (%dms)", *ev.opts.Budget.TimeMs)
		}
		return &EvalError{
			Code:    code,
			Message: msg,
			Span:    &span,
			Err:     fmt.Errorf("%w: %w", sentinel, err),
		}
	}
	if limit := ev.opts.Budget.MaxIterations; limit != nil && ev.stats.Iterations >= *limit {
		return &EvalError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("iteration budget exceeded (max %d)", *limit),
			Span:    &span,
			Err:     ErrBudget,
		}
	}
	ev.stats.Iterations++
	return nil
}

func (ev *evaluator) eval(f ast.Formula) (bool, error) {
	if ast.IsNil(f) {
		return false, &EvalError{
			Code:    diagnostics.EInvalidOp,
			Message: "missing formula",
			Err:     ErrInvalidOperator,
		}
	}
	switch n := f.(type) {
	case *ast.Atomic:
		return ev.evalAtomic(n)
	case *ast.Unary:
		return ev.evalUnary(n)
	case *ast.Binary:
		return ev.evalBinary(n)
	case *ast.Quantified:
		return ev.evalQuantified(n)
	}
	return false, invalidOperator("formula", f.Kind(), f.NodeSpan())
}

func (ev *evaluator) evalAtomic(a *ast.Atomic) (bool, error) {
	ev.stats.Atomics++
	left, err := Simplify(a.Left, ev.env)
	if err != nil {
		return false, err
	}
	right, err := Simplify(a.Right, ev.env)
	if err != nil {
		return false, err
	}

	switch a.Op {
	case ast.OpGt:
		return left > right, nil
	case ast.OpGtEq:
		return left >= right, nil
	case ast.OpEq:
		return left == right, nil
	}
	return false, invalidOperator("relational operator", string(a.Op), a.Span)
}

func (ev *evaluator) evalUnary(u *ast.Unary) (bool, error) {
	if u.Conn != ast.ConnNot {
		return false, invalidOperator("connective", string(u.Conn), u.Span)
	}
	v, err := ev.eval(u.Operand)
	if err != nil {
		return false, err
	}
	return !v, nil
}

// evalBinary evaluates both operands before combining them. Connectives never
// short-circuit, so a fault in either operand always aborts the evaluation.
func (ev *evaluator) evalBinary(b *ast.Binary) (bool, error) {
	left, err := ev.eval(b.Left)
	if err != nil {
		return false, err
	}
	right, err := ev.eval(b.Right)
	if err != nil {
		return false, err
	}

	switch b.Conn {
	case ast.ConnAnd:
		return left && right, nil
	case ast.ConnOr:
		return left || right, nil
	case ast.ConnImplies:
		return !left || right, nil
	case ast.ConnIff:
		return left == right, nil
	}
	return false, invalidOperator("connective", string(b.Conn), b.Span)
}

func (ev *evaluator) evalQuantified(q *ast.Quantified) (bool, error) {
	binding := &Binding{Name: q.Var, Value: q.Domain.From}
	ev.env.Push(binding)
	defer ev.env.Pop()

	if d := ev.env.Depth(); d > ev.stats.MaxDepth {
		ev.stats.MaxDepth = d
	}

	// result is the answer when the whole domain is exhausted; the first
	// body value that differs from it decides the quantifier.
	var result bool
	switch q.Quant {
	case ast.QuantForall:
		result = true
	case ast.QuantExists:
		result = false
	default:
		return false, invalidOperator("quantifier", string(q.Quant), q.Span)
	}

	span := q.Span
	ev.emit(TraceQuantStart, &span, map[string]any{
		"quant": string(q.Quant),
		"var":   q.Var,
		"from":  q.Domain.From,
		"to":    q.Domain.To,
	})

	var iterations int64
	if !q.Domain.Empty() {
		for i := q.Domain.From; ; i++ {
			if err := ev.step(q.Span); err != nil {
				return false, err
			}
			iterations++
			binding.Value = i
			v, err := ev.eval(q.Body)
			if err != nil {
				return false, err
			}
			if v != result {
				result = v
				break
			}
			// Compare before incrementing so To == MaxInt64 terminates.
			if i == q.Domain.To {
				break
			}
		}
	}

	ev.emit(TraceQuantEnd, &span, map[string]any{
		"quant":      string(q.Quant),
		"var":        q.Var,
		"result":     result,
		"iterations": iterations,
	})
	return result, nil
}
