// Package help holds the built-in Lego reference text.
package help

import (
	"fmt"
	"strings"
)

// Version is reported by the quick reference and the CLI.
const Version = "v0.3"

// QUICKREF is printed by `lego help` with no topic.
const QUICKREF = `Lego ` + Version + ` - bounded first-order formula evaluator

USAGE
  lego eval <file|-> [--pretty] [--trace <path>] [--max-iterations N] [--timeout-ms N]
            [--assert] [--stats]
  lego check <file> [--pretty]
  lego fmt <file> [--write]
  lego trace <file.jsonl> [--json|--text]
  lego repl
  lego config
  lego help [topic]

FORMULA AT A GLANCE
  forall x in [1, 3]. exists y in [1, 3]. x + y = 4

TOPICS
  syntax       tokens, grammar and precedence
  semantics    how formulas are evaluated
  diagnostics  error and warning codes, exit codes
  config       lego.toml settings
  examples     worked formulas and their values

Run 'lego help <topic>' for details; unique prefixes work (e.g. 'lego help diag').
`

// TopicList is the display order of help topics.
var TopicList = []string{"syntax", "semantics", "diagnostics", "config", "examples"}

// Topics maps topic names to their text.
var Topics = map[string]string{
	"syntax": `SYNTAX

Integers are signed 64-bit decimals. Identifiers match [A-Za-z_][A-Za-z0-9_]*.
Keywords: forall exists in mod. Comments run from # to end of line.

Expressions (tightest first):
  -e            negation (-5 is a literal, -x means 0 - x)
  *  /  mod     multiplication, truncating division, remainder
  +  -          addition, subtraction

Atomic formulas compare two expressions:  e > e   e >= e   e = e
There is no < or <=; write b > a for a < b.

Formulas (tightest first):
  !f                                negation
  forall x in [a, b]. f             universal, body extends to the right
  exists x in [a, b]. f             existential, body extends to the right
  f && f                            conjunction
  f || f                            disjunction
  f -> f                            implication (right-associative)
  f <-> f                           equivalence

Domain bounds are integer literals. Parentheses group both expressions
and formulas.
`,
	"semantics": `SEMANTICS

Arithmetic is 64-bit two's complement and wraps on overflow. Division and
mod truncate toward zero: -5 / 2 = -2, -5 mod 2 = -1.

Connectives always evaluate both operands, so a fault on either side
aborts the whole evaluation even when the other side decides the result:
  0 > 1 && 1 / 0 > 0     faults with E_DIV_ZERO

Quantifiers iterate their domain in ascending order and stop early:
forall stops at the first false body, exists at the first true one.
An empty domain ([a, b] with a > b) makes forall true and exists false
without evaluating the body.

An inner quantifier over the same name shadows the outer binding until
it finishes.
`,
	"diagnostics": `DIAGNOSTICS

Errors:
  E_LEX          invalid character or malformed integer
  E_PARSE        syntax error or integer literal out of range
  E_AST          malformed tree (missing node)
  E_UNBOUND      variable not bound by an enclosing quantifier
  E_DIV_ZERO     division or mod by zero
  E_INVALID_OP   unknown operator, connective or quantifier tag
  E_BUDGET       iteration or time budget exceeded
  E_CANCELLED    evaluation cancelled
  E_IO           file could not be read or written
  E_CONFIG       settings file malformed

Warnings (lego check only):
  W_SHADOW       quantifier rebinds an enclosing variable
  W_EMPTY_DOMAIN domain is empty
  W_DIV_ZERO     division or mod by a literal zero

Exit codes:
  0  success            1  usage, I/O or config error
  2  parse/check errors 4  evaluation fault
  5  --assert and the formula was false
`,
	"config": `CONFIG

Settings are read from the first file found:
  ./lego.toml
  ~/.lego/config.toml

  [output]
  pretty = true              # human-readable output

  [eval]
  max_iterations = 1000000   # 0 means unlimited
  timeout_ms = 2000          # wall-clock limit per run, 0 means unlimited
  trace_file = "trace.jsonl" # write NDJSON trace events

Command-line flags override file settings. 'lego config' prints the
effective settings.
`,
	"examples": `EXAMPLES

  5 mod 3 = 2                                            true
  -5 / 2 = -2                                            true
  forall x in [1, 3]. exists y in [1, 3]. x + y = 4      true
  exists x in [1, 3]. forall y in [1, 3]. x + y = 4      false
  forall x in [5, 4]. x = 0                              true (empty)
  exists x in [5, 4]. x = x                              false (empty)
  forall x in [0, 0]. (forall x in [1, 1]. x = 1) && x = 0
                                                         true (shadowing)
  x = 0                                                  E_UNBOUND
  0 > 1 && 1 / 0 > 0                                     E_DIV_ZERO
`,
}

// MatchTopic resolves an exact topic name or a unique prefix of one.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}
	var matches []string
	if q != "" {
		for _, name := range TopicList {
			if strings.HasPrefix(name, q) {
				matches = append(matches, name)
			}
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic '%s'", query)
	default:
		return "", "", fmt.Errorf("ambiguous help topic '%s' (matches %s)", query, strings.Join(matches, ", "))
	}
}

type operatorEntry struct {
	symbol string
	kind   string
	desc   string
}

var operators = []operatorEntry{
	{"+", "arith", "addition"},
	{"-", "arith", "subtraction, negation"},
	{"*", "arith", "multiplication"},
	{"/", "arith", "truncating division"},
	{"mod", "arith", "truncating remainder"},
	{">", "relation", "greater than"},
	{">=", "relation", "greater than or equal"},
	{"=", "relation", "equal"},
	{"!", "connective", "not"},
	{"&&", "connective", "and"},
	{"||", "connective", "or"},
	{"->", "connective", "implies"},
	{"<->", "connective", "if and only if"},
	{"forall", "quantifier", "every value in the domain"},
	{"exists", "quantifier", "some value in the domain"},
}

// OperatorIndex lists every operator, connective and quantifier.
func OperatorIndex() string {
	var b strings.Builder
	for _, op := range operators {
		fmt.Fprintf(&b, "  %-7s %-11s %s\n", op.symbol, op.kind, op.desc)
	}
	fmt.Fprintf(&b, "\nTotal: %d operators\n", len(operators))
	return b.String()
}
