// Package validator implements static checks of Lego formulas.
package validator

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/thomasrohde/lego/pkg/ast"
	"github.com/thomasrohde/lego/pkg/diagnostics"
)

// scope is the stack of variables bound by enclosing quantifiers,
// outermost first.
type scope struct {
	names []string
}

func (s *scope) has(name string) bool {
	return slices.Contains(s.names, name)
}

func (s *scope) push(name string) {
	s.names = append(s.names, name)
}

func (s *scope) pop() {
	s.names = s.names[:len(s.names)-1]
}

type validator struct {
	diags []diagnostics.Diagnostic
	scope *scope
	free  []string
}

// Validate checks f without evaluating it. Errors mark formulas that would
// fault if the offending node were reached; warnings flag suspicious but
// well-defined constructs.
func Validate(f ast.Formula) []diagnostics.Diagnostic {
	v := &validator{scope: &scope{}}
	v.validateFormula(f)
	return v.diags
}

// FreeVariables returns the sorted, de-duplicated names that f references
// outside any quantifier binding them.
func FreeVariables(f ast.Formula) []string {
	v := &validator{scope: &scope{}}
	v.validateFormula(f)
	free := slices.Clone(v.free)
	slices.Sort(free)
	return slices.Compact(free)
}

// IsClosed reports whether f has no free variables.
func IsClosed(f ast.Formula) bool {
	return len(FreeVariables(f)) == 0
}

func (v *validator) addDiag(code, msg string, span *ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, span, hint))
}

func (v *validator) addWarning(code, msg string, span *ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeWarning(code, msg, span, hint))
}

func (v *validator) validateFormula(f ast.Formula) {
	if ast.IsNil(f) {
		v.addDiag(diagnostics.EAst, "missing formula", nil, "")
		return
	}
	switch n := f.(type) {
	case *ast.Atomic:
		if !n.Op.Valid() {
			span := n.Span
			v.addDiag(diagnostics.EInvalidOp, fmt.Sprintf("invalid relational operator '%s'", n.Op), &span, "")
		}
		v.validateExp(n.Left)
		v.validateExp(n.Right)

	case *ast.Unary:
		if !n.Conn.Valid() {
			span := n.Span
			v.addDiag(diagnostics.EInvalidOp, fmt.Sprintf("invalid unary connective '%s'", n.Conn), &span, "")
		}
		v.validateFormula(n.Operand)

	case *ast.Binary:
		if !n.Conn.Valid() {
			span := n.Span
			v.addDiag(diagnostics.EInvalidOp, fmt.Sprintf("invalid binary connective '%s'", n.Conn), &span, "")
		}
		v.validateFormula(n.Left)
		v.validateFormula(n.Right)

	case *ast.Quantified:
		v.validateQuantified(n)

	default:
		span := f.NodeSpan()
		v.addDiag(diagnostics.EAst, fmt.Sprintf("unknown formula node %s", f.Kind()), &span, "")
	}
}

func (v *validator) validateQuantified(q *ast.Quantified) {
	span := q.Span
	if !q.Quant.Valid() {
		v.addDiag(diagnostics.EInvalidOp, fmt.Sprintf("invalid quantifier '%s'", q.Quant), &span, "")
	}
	if q.Var == "" {
		v.addDiag(diagnostics.EAst, "quantifier binds an empty variable name", &span, "")
	}
	if v.scope.has(q.Var) {
		v.addWarning(diagnostics.WShadow,
			fmt.Sprintf("'%s' shadows an enclosing binding", q.Var), &span,
			"the inner binding hides the outer one until the quantifier ends")
	}
	if q.Domain.Empty() {
		dspan := q.Domain.Span
		if dspan == (ast.Span{}) {
			dspan = span
		}
		outcome := "true"
		if q.Quant == ast.QuantExists {
			outcome = "false"
		}
		v.addWarning(diagnostics.WEmptyDomain,
			fmt.Sprintf("domain [%d, %d] is empty; %s is %s without evaluating its body",
				q.Domain.From, q.Domain.To, q.Quant, outcome),
			&dspan, "")
	}

	v.scope.push(q.Var)
	v.validateFormula(q.Body)
	v.scope.pop()
}

func (v *validator) validateExp(e ast.Exp) {
	if ast.IsNil(e) {
		v.addDiag(diagnostics.EAst, "missing expression", nil, "")
		return
	}
	switch n := e.(type) {
	case *ast.IntLiteral:
		// always valid

	case *ast.VarRef:
		if !v.scope.has(n.Name) {
			span := n.Span
			v.addDiag(diagnostics.EUnbound, fmt.Sprintf("variable '%s' is not bound", n.Name), &span,
				fmt.Sprintf("bind it with a quantifier, e.g. forall %s in [0, 10]. ...", n.Name))
			v.free = append(v.free, n.Name)
		}

	case *ast.BinExp:
		if !n.Op.Valid() {
			span := n.Span
			v.addDiag(diagnostics.EInvalidOp, fmt.Sprintf("invalid arithmetic operator '%s'", n.Op), &span, "")
		}
		if n.Op == ast.OpDiv || n.Op == ast.OpMod {
			if lit, ok := n.Right.(*ast.IntLiteral); ok && lit.Value == 0 {
				span := n.Span
				v.addWarning(diagnostics.WDivZero,
					fmt.Sprintf("'%s' by literal zero always faults when evaluated", n.Op), &span, "")
			}
		}
		v.validateExp(n.Left)
		v.validateExp(n.Right)

	default:
		span := e.NodeSpan()
		v.addDiag(diagnostics.EAst, fmt.Sprintf("unknown expression node %s", e.Kind()), &span, "")
	}
}
