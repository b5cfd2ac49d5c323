package parser_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/thomasrohde/lego/pkg/ast"
	"github.com/thomasrohde/lego/pkg/diagnostics"
	"github.com/thomasrohde/lego/pkg/parser"
)

// helper: parse source and assert no diagnostics
func mustParse(t *testing.T, source string) ast.Formula {
	t.Helper()
	f, diags := parser.Parse(source, "test.lego")
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics for %q: %v", source, diags)
	}
	if f == nil {
		t.Fatal("expected non-nil formula")
	}
	return f
}

// helper: parse source and assert a diagnostic with the given code and message fragment
func mustFail(t *testing.T, source string, code, msg string) diagnostics.Diagnostic {
	t.Helper()
	f, diags := parser.Parse(source, "test.lego")
	if len(diags) == 0 {
		t.Fatalf("expected %q to fail, got %s", source, sexp(f))
	}
	if f != nil {
		t.Errorf("expected nil formula alongside diagnostics")
	}
	d := diags[0]
	if d.Code != code {
		t.Errorf("expected code %s, got %s (%s)", code, d.Code, d.Message)
	}
	if !strings.Contains(d.Message, msg) {
		t.Errorf("expected message containing %q, got %q", msg, d.Message)
	}
	return d
}

// sexp renders a tree in prefix form so whole shapes can be compared at once.
func sexp(n ast.Node) string {
	switch n := n.(type) {
	case *ast.IntLiteral:
		return fmt.Sprintf("%d", n.Value)
	case *ast.VarRef:
		return n.Name
	case *ast.BinExp:
		return fmt.Sprintf("(%s %s %s)", n.Op, sexp(n.Left), sexp(n.Right))
	case *ast.Atomic:
		return fmt.Sprintf("(%s %s %s)", n.Op, sexp(n.Left), sexp(n.Right))
	case *ast.Unary:
		return fmt.Sprintf("(%s %s)", n.Conn, sexp(n.Operand))
	case *ast.Binary:
		return fmt.Sprintf("(%s %s %s)", n.Conn, sexp(n.Left), sexp(n.Right))
	case *ast.Quantified:
		return fmt.Sprintf("(%s %s [%d,%d] %s)", n.Quant, n.Var, n.Domain.From, n.Domain.To, sexp(n.Body))
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("<%T>", n)
}

func expectTree(t *testing.T, source, want string) {
	t.Helper()
	if got := sexp(mustParse(t, source)); got != want {
		t.Errorf("%q:\n got  %s\n want %s", source, got, want)
	}
}

// ---- Arithmetic and atomic formulas ----

func TestAtomicFormulas(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"1 > 0", "(> 1 0)"},
		{"x >= y", "(>= x y)"},
		{"x = 0", "(= x 0)"},
		{"x + 1 >= y * 2", "(>= (+ x 1) (* y 2))"},
		{"1 - 2 - 3 = 0", "(= (- (- 1 2) 3) 0)"},
		{"1 + 2 * 3 = 7", "(= (+ 1 (* 2 3)) 7)"},
		{"x mod 2 = 0", "(= (mod x 2) 0)"},
		{"8 / 2 / 2 = 2", "(= (/ (/ 8 2) 2) 2)"},
		{"(x + 1) * 2 > 3", "(> (* (+ x 1) 2) 3)"},
		{"(x) = (((1)))", "(= x 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			expectTree(t, tt.source, tt.want)
		})
	}
}

func TestNegation(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"-5 / 2 = -2", "(= (/ -5 2) -2)"},
		{"-x = 0", "(= (- 0 x) 0)"},
		{"--1 = 1", "(= (- 0 -1) 1)"},
		{"-(1 + 2) = -3", "(= (- 0 (+ 1 2)) -3)"},
		{"x-1 = 0", "(= (- x 1) 0)"},
		{"x - -1 = 0", "(= (- x -1) 0)"},
		{"-9223372036854775808 = x", "(= -9223372036854775808 x)"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			expectTree(t, tt.source, tt.want)
		})
	}
}

// ---- Connectives ----

func TestConnectivePrecedence(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"a = 1 && b = 2 || c = 3", "(|| (&& (= a 1) (= b 2)) (= c 3))"},
		{"a = 1 || b = 2 && c = 3", "(|| (= a 1) (&& (= b 2) (= c 3)))"},
		{"a = 1 || b = 2 -> c = 3", "(-> (|| (= a 1) (= b 2)) (= c 3))"},
		{"a = 1 -> b = 2 <-> c = 3", "(<-> (-> (= a 1) (= b 2)) (= c 3))"},
		{"a = 1 <-> b = 2 -> c = 3", "(<-> (= a 1) (-> (= b 2) (= c 3)))"},
		{"!a = 1 && b = 2", "(&& (! (= a 1)) (= b 2))"},
		{"!!a = 1", "(! (! (= a 1)))"},
		{"!(a = 1 && b = 2)", "(! (&& (= a 1) (= b 2)))"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			expectTree(t, tt.source, tt.want)
		})
	}
}

func TestConnectiveAssociativity(t *testing.T) {
	expectTree(t, "a = 1 -> b = 2 -> c = 3", "(-> (= a 1) (-> (= b 2) (= c 3)))")
	expectTree(t, "a = 1 <-> b = 2 <-> c = 3", "(<-> (<-> (= a 1) (= b 2)) (= c 3))")
	expectTree(t, "a = 1 && b = 2 && c = 3", "(&& (&& (= a 1) (= b 2)) (= c 3))")
	expectTree(t, "a = 1 || b = 2 || c = 3", "(|| (|| (= a 1) (= b 2)) (= c 3))")
}

func TestParenthesisedFormulas(t *testing.T) {
	expectTree(t, "((x > 1))", "(> x 1)")
	expectTree(t, "(x > 1) && (y + 1 > 2)", "(&& (> x 1) (> (+ y 1) 2))")
	expectTree(t, "(a = 1 || b = 2) && c = 3", "(&& (|| (= a 1) (= b 2)) (= c 3))")
	expectTree(t, "(x + 1 > 2)", "(> (+ x 1) 2)")
}

// ---- Quantifiers ----

func TestQuantifiers(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"forall x in [1, 3]. x > 0", "(forall x [1,3] (> x 0))"},
		{"exists y in [-3, -1]. y = -2", "(exists y [-3,-1] (= y -2))"},
		{"forall x in [5, 1]. x = x", "(forall x [5,1] (= x x))"},
		{
			"forall x in [1, 3]. exists y in [1, 3]. x + y = 4",
			"(forall x [1,3] (exists y [1,3] (= (+ x y) 4)))",
		},
		{
			"exists x in [-9223372036854775808, 9223372036854775807]. x = 0",
			"(exists x [-9223372036854775808,9223372036854775807] (= x 0))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			expectTree(t, tt.source, tt.want)
		})
	}
}

func TestQuantifierBodyIsGreedy(t *testing.T) {
	expectTree(t, "forall x in [1, 3]. x > 0 && x > 1",
		"(forall x [1,3] (&& (> x 0) (> x 1)))")
	expectTree(t, "forall x in [1, 3]. x > 0 -> x > 1 <-> x = 2",
		"(forall x [1,3] (<-> (-> (> x 0) (> x 1)) (= x 2)))")
	expectTree(t, "a = 1 && forall x in [1, 2]. x > 0 || x = 0",
		"(&& (= a 1) (forall x [1,2] (|| (> x 0) (= x 0))))")
	expectTree(t, "!forall x in [1, 2]. x > 1 && x > 0",
		"(! (forall x [1,2] (&& (> x 1) (> x 0))))")
}

func TestParenthesisedQuantifier(t *testing.T) {
	expectTree(t, "(forall x in [1, 2]. x > 0) && a = 1",
		"(&& (forall x [1,2] (> x 0)) (= a 1))")
	expectTree(t, "forall x in [0, 0]. (forall x in [1, 1]. x = 1) && x = 0",
		"(forall x [0,0] (&& (forall x [1,1] (= x 1)) (= x 0)))")
}

func TestComments(t *testing.T) {
	expectTree(t, "# header\nforall x in [1, 2]. # bind x\n  x > 0 # body\n",
		"(forall x [1,2] (> x 0))")
}

// ---- Spans ----

func TestSpans(t *testing.T) {
	f := mustParse(t, "forall x in [1, 2]. x > 0")
	q, ok := f.(*ast.Quantified)
	if !ok {
		t.Fatalf("expected Quantified, got %T", f)
	}
	if q.Span.File != "test.lego" {
		t.Errorf("expected file test.lego, got %q", q.Span.File)
	}
	if q.Span.StartCol != 1 || q.Span.EndCol != 26 {
		t.Errorf("quantifier span: got cols %d-%d, want 1-26", q.Span.StartCol, q.Span.EndCol)
	}
	if q.Domain.Span.StartCol != 13 || q.Domain.Span.EndCol != 19 {
		t.Errorf("domain span: got cols %d-%d, want 13-19", q.Domain.Span.StartCol, q.Domain.Span.EndCol)
	}

	f = mustParse(t, "1 > 0 &&\n  x = 2")
	b := f.(*ast.Binary)
	if b.Span.StartLine != 1 || b.Span.StartCol != 1 || b.Span.EndLine != 2 || b.Span.EndCol != 8 {
		t.Errorf("binary span: got %d:%d-%d:%d, want 1:1-2:8",
			b.Span.StartLine, b.Span.StartCol, b.Span.EndLine, b.Span.EndCol)
	}

	f = mustParse(t, "-5 = x")
	lit := f.(*ast.Atomic).Left.(*ast.IntLiteral)
	if lit.Span.StartCol != 1 || lit.Span.EndCol != 3 {
		t.Errorf("negative literal span: got cols %d-%d, want 1-3", lit.Span.StartCol, lit.Span.EndCol)
	}
}

// ---- Errors ----

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   string
		msg    string
	}{
		{"empty", "", diagnostics.EParse, "expected formula"},
		{"comment only", "# nothing", diagnostics.EParse, "expected formula"},
		{"missing rhs", "1 > ", diagnostics.EParse, "unexpected end of input"},
		{"trailing token", "1 > 2 3", diagnostics.EParse, "after formula"},
		{"two formulas", "1 > 2 2 > 1", diagnostics.EParse, "after formula"},
		{"bare expression", "x + 1", diagnostics.EParse, "expected relational operator"},
		{"missing in", "forall x [1, 2]. x = 1", diagnostics.EParse, "expected 'in'"},
		{"keyword var", "forall in in [1, 2]. 1 = 1", diagnostics.EParse, "keyword"},
		{"missing var", "forall [1, 2]. 1 = 1", diagnostics.EParse, "expected identifier"},
		{"expression bound", "forall x in [a, 2]. 1 = 1", diagnostics.EParse, "expected integer bound"},
		{"missing comma", "forall x in [1 2]. 1 = 1", diagnostics.EParse, "expected ','"},
		{"missing bracket", "forall x in [1, 2. 1 = 1", diagnostics.EParse, "expected ']'"},
		{"missing dot", "forall x in [1, 2] x = 1", diagnostics.EParse, "expected '.'"},
		{"missing body", "forall x in [1, 2].", diagnostics.EParse, "unexpected end of input"},
		{"unclosed paren", "(1 > 0", diagnostics.EParse, "expected ')'"},
		{"stray close", "1 > 0)", diagnostics.EParse, "after formula"},
		{"dangling and", "1 > 0 &&", diagnostics.EParse, "unexpected end of input"},
		{"literal too large", "99999999999999999999 = 0", diagnostics.EParse, "out of range"},
		{"bound too small", "forall x in [-9223372036854775809, 0]. x = 0", diagnostics.EParse, "out of range"},
		{"less than", "1 < 2", diagnostics.ELex, "'<'"},
		{"bad char", "x @ 2", diagnostics.ELex, "'@'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := mustFail(t, tt.source, tt.code, tt.msg)
			if d.Span == nil {
				t.Error("expected diagnostic span")
			}
			if !d.IsError() {
				t.Error("expected error severity")
			}
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	d := mustFail(t, "forall x in [1, 2].\n  x >", diagnostics.EParse, "unexpected end of input")
	if d.Span.StartLine != 2 {
		t.Errorf("expected error on line 2, got %d", d.Span.StartLine)
	}

	d = mustFail(t, "1 = 1 && y", diagnostics.EParse, "expected relational operator")
	if d.Span.StartCol != 11 {
		t.Errorf("expected error at col 11, got %d", d.Span.StartCol)
	}
}

func TestBacktrackingKeepsOnlyFinalDiagnostics(t *testing.T) {
	// The arithmetic attempt on '(' fails before the formula attempt
	// succeeds; none of its diagnostics may leak.
	f, diags := parser.Parse("(x > 1) && (forall y in [1, 2]. y > 0)", "test.lego")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if f == nil {
		t.Fatal("expected formula")
	}

	_, diags = parser.Parse("(x > ", "test.lego")
	if len(diags) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %v", diags)
	}
}

// ---- ParseExp ----

func TestParseExp(t *testing.T) {
	e, diags := parser.ParseExp("1 + 2 * -3", "test.lego")
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if got := sexp(e); got != "(+ 1 (* 2 -3))" {
		t.Errorf("got %s", got)
	}

	for _, src := range []string{"", "1 +", "1 2", "1 > 0"} {
		if _, diags := parser.ParseExp(src, "test.lego"); len(diags) == 0 {
			t.Errorf("%q: expected diagnostics", src)
		}
	}
}

// ---- Programmatic trees agree with parsed ones ----

func TestParsedMatchesConstructed(t *testing.T) {
	built := ast.Forall("x", 1, 3,
		ast.Exists("y", 1, 3,
			ast.Rel(ast.OpEq, ast.Bin(ast.OpAdd, ast.Var("x"), ast.Var("y")), ast.Int(4))))
	parsed := mustParse(t, "forall x in [1, 3]. exists y in [1, 3]. x + y = 4")
	if sexp(built) != sexp(parsed) {
		t.Errorf("built %s, parsed %s", sexp(built), sexp(parsed))
	}
}

func TestIsIncomplete(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"forall x in [1, 3].", true},
		{"1 > 0 &&", true},
		{"(1 > 0", true},
		{"", true},
		{"1 > 0", false},
		{"1 > 0)", false},
		{"1 < 0", false},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			_, diags := parser.Parse(tt.source, "test.lego")
			if got := parser.IsIncomplete(diags); got != tt.want {
				t.Errorf("got %v, want %v (%v)", got, tt.want, diags)
			}
		})
	}
}
