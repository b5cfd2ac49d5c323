package evaluator

import (
	"github.com/thomasrohde/lego/pkg/ast"
	"github.com/thomasrohde/lego/pkg/diagnostics"
)

// Simplify reduces exp to an integer, resolving variables against env.
func Simplify(exp ast.Exp, env *Env) (int64, error) {
	if ast.IsNil(exp) {
		return 0, &EvalError{
			Code:    diagnostics.EInvalidOp,
			Message: "missing expression",
			Err:     ErrInvalidOperator,
		}
	}
	switch e := exp.(type) {
	case *ast.IntLiteral:
		return e.Value, nil

	case *ast.VarRef:
		v, err := env.Lookup(e.Name)
		if err != nil {
			return 0, withSpan(err, e.Span)
		}
		return v, nil

	case *ast.BinExp:
		return simplifyBinExp(e, env)
	}
	return 0, invalidOperator("expression", exp.Kind(), exp.NodeSpan())
}

func simplifyBinExp(e *ast.BinExp, env *Env) (int64, error) {
	left, err := Simplify(e.Left, env)
	if err != nil {
		return 0, err
	}
	right, err := Simplify(e.Right, env)
	if err != nil {
		return 0, err
	}

	switch e.Op {
	case ast.OpAdd:
		return left + right, nil
	case ast.OpSub:
		return left - right, nil
	case ast.OpMul:
		return left * right, nil
	case ast.OpDiv, ast.OpMod:
		if right == 0 {
			span := e.Span
			verb := "division"
			if e.Op == ast.OpMod {
				verb = "modulo"
			}
			return 0, &EvalError{
				Code:    diagnostics.EDivZero,
				Message: verb + " by zero",
				Span:    &span,
				Err:     ErrDivisionByZero,
			}
		}
		// Go's / and % truncate toward zero.
		if e.Op == ast.OpDiv {
			return left / right, nil
		}
		return left % right, nil
	}
	return 0, invalidOperator("arithmetic operator", string(e.Op), e.Span)
}
