package formatter_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/thomasrohde/lego/pkg/ast"
	"github.com/thomasrohde/lego/pkg/formatter"
	"github.com/thomasrohde/lego/pkg/parser"
)

func mustParse(t *testing.T, source string) ast.Formula {
	t.Helper()
	f, diags := parser.Parse(source, "test.lego")
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics for %q: %v", source, diags)
	}
	return f
}

// shape renders a tree without spans so trees can be compared structurally.
func shape(n ast.Node) string {
	switch n := n.(type) {
	case *ast.IntLiteral:
		return fmt.Sprintf("%d", n.Value)
	case *ast.VarRef:
		return n.Name
	case *ast.BinExp:
		return fmt.Sprintf("(%s %s %s)", n.Op, shape(n.Left), shape(n.Right))
	case *ast.Atomic:
		return fmt.Sprintf("(%s %s %s)", n.Op, shape(n.Left), shape(n.Right))
	case *ast.Unary:
		return fmt.Sprintf("(%s %s)", n.Conn, shape(n.Operand))
	case *ast.Binary:
		return fmt.Sprintf("(%s %s %s)", n.Conn, shape(n.Left), shape(n.Right))
	case *ast.Quantified:
		return fmt.Sprintf("(%s %s [%d,%d] %s)", n.Quant, n.Var, n.Domain.From, n.Domain.To, shape(n.Body))
	}
	return "?"
}

func TestFormatCanonical(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"1>0", "1 > 0"},
		{"x+1>=y*2", "x + 1 >= y * 2"},
		{"(x + 1) * 2 > 3", "(x + 1) * 2 > 3"},
		{"((x)) = (1 + 2) + 3", "x = 1 + 2 + 3"},
		{"x = 1 + (2 + 3)", "x = 1 + (2 + 3)"},
		{"x = 1 - (2 - 3)", "x = 1 - (2 - 3)"},
		{"x = 8 / 2 mod 3", "x = 8 / 2 mod 3"},
		{"-5 / 2 = -2", "-5 / 2 = -2"},
		{"-x = 0", "0 - x = 0"},
		{"x - -1 = 0", "x - -1 = 0"},
		{"!(a = 1)", "!a = 1"},
		{"!(a = 1 && b = 2)", "!(a = 1 && b = 2)"},
		{"(a = 1 && b = 2) || c = 3", "a = 1 && b = 2 || c = 3"},
		{"a = 1 && (b = 2 || c = 3)", "a = 1 && (b = 2 || c = 3)"},
		{"a = 1 -> (b = 2 -> c = 3)", "a = 1 -> b = 2 -> c = 3"},
		{"(a = 1 -> b = 2) -> c = 3", "(a = 1 -> b = 2) -> c = 3"},
		{"(a = 1 <-> b = 2) <-> c = 3", "a = 1 <-> b = 2 <-> c = 3"},
		{"forall   x in [1,3] .x>0", "forall x in [1, 3]. x > 0"},
		{"exists y in [ -3 , -1 ]. y = -2", "exists y in [-3, -1]. y = -2"},
		{
			"forall x in [1, 3]. exists y in [1, 3]. x + y = 4",
			"forall x in [1, 3]. exists y in [1, 3]. x + y = 4",
		},
		{
			"forall x in [0, 0]. (forall x in [1, 1]. x = 1) && x = 0",
			"forall x in [0, 0]. (forall x in [1, 1]. x = 1) && x = 0",
		},
		{"a = 1 && (forall x in [1, 2]. x > 0)", "a = 1 && forall x in [1, 2]. x > 0"},
		{"!(forall x in [1, 2]. x > 0) && a = 1", "!(forall x in [1, 2]. x > 0) && a = 1"},
		{"# comment\n1 = 1 # trailing", "1 = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := formatter.Format(mustParse(t, tt.source))
			if got != tt.want+"\n" {
				t.Errorf("got %q, want %q", got, tt.want+"\n")
			}
		})
	}
}

func TestFormatConstructedTrees(t *testing.T) {
	q := ast.Forall("x", 1, 2, ast.Rel(ast.OpGt, ast.Var("x"), ast.Int(0)))
	a := ast.Rel(ast.OpEq, ast.Var("a"), ast.Int(1))
	b := ast.Rel(ast.OpEq, ast.Var("b"), ast.Int(2))

	tests := []struct {
		name string
		f    ast.Formula
		want string
	}{
		{"quantifier on the left", ast.Conn(ast.ConnAnd, q, a), "(forall x in [1, 2]. x > 0) && a = 1"},
		{"quantifier on the right", ast.Conn(ast.ConnAnd, a, q), "a = 1 && forall x in [1, 2]. x > 0"},
		{"right-nested and", ast.Conn(ast.ConnAnd, a, ast.Conn(ast.ConnAnd, b, a)), "a = 1 && (b = 2 && a = 1)"},
		{"negated quantifier inside", ast.Conn(ast.ConnOr, ast.Not(q), a), "!(forall x in [1, 2]. x > 0) || a = 1"},
		{"nested trailing", ast.Conn(ast.ConnOr, a, ast.Conn(ast.ConnAnd, b, q)), "a = 1 || b = 2 && forall x in [1, 2]. x > 0"},
		{"non-trailing nested", ast.Conn(ast.ConnOr, ast.Conn(ast.ConnAnd, b, q), a), "b = 2 && (forall x in [1, 2]. x > 0) || a = 1"},
		{"min literal", ast.Rel(ast.OpEq, ast.Int(math.MinInt64), ast.Var("x")), "-9223372036854775808 = x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatter.Format(tt.f)
			if got != tt.want+"\n" {
				t.Fatalf("got %q, want %q", got, tt.want+"\n")
			}
			// The canonical text must parse back to the same tree.
			if reparsed := mustParse(t, got); shape(reparsed) != shape(tt.f) {
				t.Errorf("round trip changed the tree:\n got  %s\n want %s", shape(reparsed), shape(tt.f))
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	sources := []string{
		"1 > 0",
		"5 mod 3 = 2 && -5 / 2 = -2",
		"0 > 1 && 1 / 0 > 0",
		"forall x in [1, 3]. exists y in [1, 3]. x + y = 4",
		"exists x in [1, 3]. forall y in [1, 3]. x + y = 4",
		"forall x in [5, 4]. x = 0 || exists y in [3, 2]. y = 0",
		"!(x > 0 -> y > 0) <-> (z = 0 || !(w >= 1))",
		"((a = 1 -> b = 2) -> c = 3) <-> (d = 4 <-> e = 5)",
		"(forall x in [1, 2]. x > 0) -> (exists y in [1, 2]. y > 1) -> a = 0",
		"x * (y - z) mod (2 + w) = -(3 * x)",
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			first := mustParse(t, src)
			text := formatter.Format(first)
			second := mustParse(t, text)
			if shape(first) != shape(second) {
				t.Errorf("tree changed:\n before %s\n after  %s", shape(first), shape(second))
			}
			if again := formatter.Format(second); again != text {
				t.Errorf("format not idempotent:\n first  %q\n second %q", text, again)
			}
		})
	}
}

func TestFormatExp(t *testing.T) {
	e := ast.Bin(ast.OpMul, ast.Bin(ast.OpAdd, ast.Var("x"), ast.Int(1)), ast.Int(-2))
	if got := formatter.FormatExp(e); got != "(x + 1) * -2" {
		t.Errorf("got %q", got)
	}
}

func TestHasComments(t *testing.T) {
	if !formatter.HasComments("# c\n1 = 1") {
		t.Error("expected comment")
	}
	if !formatter.HasComments("1 = 1 # trailing") {
		t.Error("expected trailing comment")
	}
	if formatter.HasComments("forall x in [1, 2]. x > 0") {
		t.Error("unexpected comment")
	}
}
