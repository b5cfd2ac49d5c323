package evaluator

import (
	"errors"
	"strings"

	"github.com/thomasrohde/lego/pkg/ast"
	"github.com/thomasrohde/lego/pkg/diagnostics"
)

// Sentinel faults. Every EvalError unwraps to exactly one of these.
var (
	ErrUnboundVariable = errors.New("unbound variable")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrInvalidOperator = errors.New("invalid operator")
	ErrBudget          = errors.New("budget exceeded")
	ErrCancelled       = errors.New("evaluation cancelled")
)

// EvalError is a fault raised during evaluation. It is terminal for the
// evaluation that raised it. For unbound variables, Bound lists the names in
// scope at the failed lookup, outermost first.
type EvalError struct {
	Code    string
	Message string
	Span    *ast.Span
	Err     error
	Bound   []string
}

func (e *EvalError) Error() string {
	return e.Message
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// Diagnostic converts the fault into a diagnostic for reporting.
func (e *EvalError) Diagnostic() diagnostics.Diagnostic {
	hint := ""
	if errors.Is(e.Err, ErrUnboundVariable) {
		if len(e.Bound) == 0 {
			hint = "no variables are bound here"
		} else {
			hint = "bound here: " + strings.Join(e.Bound, ", ")
		}
	}
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, hint)
}

// withSpan attaches span to err if it is an EvalError without a location yet.
func withSpan(err error, span ast.Span) error {
	var ee *EvalError
	if errors.As(err, &ee) && ee.Span == nil {
		s := span
		ee.Span = &s
	}
	return err
}

func invalidOperator(kind, tag string, span ast.Span) *EvalError {
	return &EvalError{
		Code:    diagnostics.EInvalidOp,
		Message: "invalid " + kind + " '" + tag + "'",
		Span:    &span,
		Err:     ErrInvalidOperator,
	}
}
