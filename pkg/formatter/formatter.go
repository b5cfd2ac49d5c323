// Package formatter implements the Lego canonical formula printer.
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/lego/pkg/ast"
)

// Precedence of connectives and quantifiers (higher = tighter binding).
var connPrecedence = map[ast.BinaryConn]int{
	ast.ConnIff:     1,
	ast.ConnImplies: 2,
	ast.ConnOr:      3,
	ast.ConnAnd:     4,
}

const (
	precUnary  = 5
	precAtomic = 6
)

// Precedence table for arithmetic operators (higher = tighter binding)
var opPrecedence = map[ast.ArithOp]int{
	ast.OpAdd: 1, ast.OpSub: 1,
	ast.OpMul: 2, ast.OpDiv: 2, ast.OpMod: 2,
}

const precFactor = 3

// Format prints f in canonical form. The output parses back to the same tree.
func Format(f ast.Formula) string {
	return formatFormula(f, true) + "\n"
}

// FormatExp prints an arithmetic expression in canonical form.
func FormatExp(e ast.Exp) string {
	return formatExp(e)
}

// HasComments checks if a source string contains Lego comments (# prefix).
// Formatting drops comments, so callers warn before rewriting such files.
func HasComments(source string) bool {
	return strings.Contains(source, "#")
}

func formulaPrec(f ast.Formula) int {
	switch n := f.(type) {
	case *ast.Binary:
		if p, ok := connPrecedence[n.Conn]; ok {
			return p
		}
		return 0
	case *ast.Unary, *ast.Quantified:
		return precUnary
	default:
		return precAtomic
	}
}

// formatFormula renders f. trailing is true when nothing follows f in the
// output, which is the only place a quantifier may appear unparenthesised
// because its body extends as far right as possible.
func formatFormula(f ast.Formula, trailing bool) string {
	switch n := f.(type) {
	case nil:
		return "<missing>"

	case *ast.Atomic:
		return fmt.Sprintf("%s %s %s", formatExp(n.Left), n.Op, formatExp(n.Right))

	case *ast.Unary:
		operand := formatOperand(n.Operand, formulaPrec(n.Operand) < precUnary, trailing)
		return string(n.Conn) + operand

	case *ast.Binary:
		p := formulaPrec(n)
		lp, rp := formulaPrec(n.Left), formulaPrec(n.Right)
		// -> groups to the right, every other connective to the left.
		leftParens := lp < p || (lp == p && n.Conn == ast.ConnImplies)
		rightParens := rp < p || (rp == p && n.Conn != ast.ConnImplies)
		left := formatOperand(n.Left, leftParens, false)
		right := formatOperand(n.Right, rightParens, trailing)
		return fmt.Sprintf("%s %s %s", left, n.Conn, right)

	case *ast.Quantified:
		return fmt.Sprintf("%s %s in [%d, %d]. %s",
			n.Quant, n.Var, n.Domain.From, n.Domain.To, formatFormula(n.Body, true))
	}
	return "<" + f.Kind() + ">"
}

func formatOperand(f ast.Formula, parens, trailing bool) string {
	if _, ok := f.(*ast.Quantified); ok && !trailing {
		parens = true
	}
	if parens {
		return "(" + formatFormula(f, true) + ")"
	}
	return formatFormula(f, trailing)
}

func expPrec(e ast.Exp) int {
	if bin, ok := e.(*ast.BinExp); ok {
		return opPrecedence[bin.Op]
	}
	return precFactor
}

func formatExp(e ast.Exp) string {
	switch n := e.(type) {
	case nil:
		return "<missing>"
	case *ast.IntLiteral:
		return strconv.FormatInt(n.Value, 10)
	case *ast.VarRef:
		return n.Name
	case *ast.BinExp:
		p := expPrec(n)
		left := formatExp(n.Left)
		if expPrec(n.Left) < p {
			left = "(" + left + ")"
		}
		right := formatExp(n.Right)
		if expPrec(n.Right) <= p {
			right = "(" + right + ")"
		}
		return fmt.Sprintf("%s %s %s", left, n.Op, right)
	}
	return "<" + e.Kind() + ">"
}
