package evaluator

import "github.com/thomasrohde/lego/pkg/diagnostics"

// Binding is one active quantified variable and its current value.
type Binding struct {
	Name  string
	Value int64
}

// Env is the stack of active quantifier bindings, innermost on top.
// An Env belongs to a single evaluation and must not be shared.
type Env struct {
	stack []*Binding
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{}
}

// Push adds b to the top of the stack.
func (e *Env) Push(b *Binding) {
	e.stack = append(e.stack, b)
}

// Pop removes and returns the top binding, or nil if the stack is empty.
func (e *Env) Pop() *Binding {
	n := len(e.stack)
	if n == 0 {
		return nil
	}
	b := e.stack[n-1]
	e.stack[n-1] = nil
	e.stack = e.stack[:n-1]
	return b
}

// Lookup returns the value of the innermost binding named name.
func (e *Env) Lookup(name string) (int64, error) {
	for i := len(e.stack) - 1; i >= 0; i-- {
		if e.stack[i].Name == name {
			return e.stack[i].Value, nil
		}
	}
	return 0, &EvalError{
		Code:    diagnostics.EUnbound,
		Message: "variable '" + name + "' is not bound",
		Err:     ErrUnboundVariable,
		Bound:   e.Names(),
	}
}

// Depth returns the number of active bindings.
func (e *Env) Depth() int {
	return len(e.stack)
}

// Names returns the bound variable names from outermost to innermost.
func (e *Env) Names() []string {
	names := make([]string, len(e.stack))
	for i, b := range e.stack {
		names[i] = b.Name
	}
	return names
}
