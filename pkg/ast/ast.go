// Package ast defines the Lego formula AST node types.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// ArithOp represents an arithmetic operator.
type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
	OpDiv ArithOp = "/"
	OpMod ArithOp = "mod"
)

// Valid reports whether op is one of the recognized arithmetic operators.
func (op ArithOp) Valid() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// RelOp represents a relational operator of an atomic formula.
type RelOp string

const (
	OpGt   RelOp = ">"
	OpGtEq RelOp = ">="
	OpEq   RelOp = "="
)

func (op RelOp) Valid() bool {
	return op == OpGt || op == OpGtEq || op == OpEq
}

// UnaryConn represents a unary logical connective.
type UnaryConn string

const (
	ConnNot UnaryConn = "!"
)

func (c UnaryConn) Valid() bool {
	return c == ConnNot
}

// BinaryConn represents a binary logical connective.
type BinaryConn string

const (
	ConnAnd     BinaryConn = "&&"
	ConnOr      BinaryConn = "||"
	ConnImplies BinaryConn = "->"
	ConnIff     BinaryConn = "<->"
)

func (c BinaryConn) Valid() bool {
	switch c {
	case ConnAnd, ConnOr, ConnImplies, ConnIff:
		return true
	}
	return false
}

// Quantifier represents a quantifier keyword.
type Quantifier string

const (
	QuantForall Quantifier = "forall"
	QuantExists Quantifier = "exists"
)

func (q Quantifier) Valid() bool {
	return q == QuantForall || q == QuantExists
}

// --- Exp is the interface for all integer expression nodes ---

type Exp interface {
	Node
	expNode() // sealed marker
}

// --- Formula is the interface for all boolean formula nodes ---

type Formula interface {
	Node
	formulaNode() // sealed marker
}

// --- Expressions ---

type IntLiteral struct {
	Span  Span
	Value int64
}

func (n *IntLiteral) Kind() string   { return "IntLiteral" }
func (n *IntLiteral) NodeSpan() Span { return n.Span }
func (n *IntLiteral) expNode()       {}

// VarRef refers to a variable bound by an enclosing quantifier.
type VarRef struct {
	Span Span
	Name string
}

func (n *VarRef) Kind() string   { return "VarRef" }
func (n *VarRef) NodeSpan() Span { return n.Span }
func (n *VarRef) expNode()       {}

type BinExp struct {
	Span  Span
	Op    ArithOp
	Left  Exp
	Right Exp
}

func (n *BinExp) Kind() string   { return "BinExp" }
func (n *BinExp) NodeSpan() Span { return n.Span }
func (n *BinExp) expNode()       {}

// --- Formulas ---

// Atomic compares two integer expressions.
type Atomic struct {
	Span  Span
	Op    RelOp
	Left  Exp
	Right Exp
}

func (n *Atomic) Kind() string   { return "Atomic" }
func (n *Atomic) NodeSpan() Span { return n.Span }
func (n *Atomic) formulaNode()   {}

type Unary struct {
	Span    Span
	Conn    UnaryConn
	Operand Formula
}

func (n *Unary) Kind() string   { return "Unary" }
func (n *Unary) NodeSpan() Span { return n.Span }
func (n *Unary) formulaNode()   {}

type Binary struct {
	Span  Span
	Conn  BinaryConn
	Left  Formula
	Right Formula
}

func (n *Binary) Kind() string   { return "Binary" }
func (n *Binary) NodeSpan() Span { return n.Span }
func (n *Binary) formulaNode()   {}

// Domain is an inclusive integer range. From > To denotes the empty range.
type Domain struct {
	Span Span
	From int64
	To   int64
}

// Empty reports whether the domain contains no values.
func (d Domain) Empty() bool {
	return d.From > d.To
}

// Quantified binds Var over every value of Domain while evaluating Body.
type Quantified struct {
	Span   Span
	Quant  Quantifier
	Var    string
	Domain Domain
	Body   Formula
}

func (n *Quantified) Kind() string   { return "Quantified" }
func (n *Quantified) NodeSpan() Span { return n.Span }
func (n *Quantified) formulaNode()   {}

// --- Constructors ---
//
// The constructors below build span-less nodes and are meant for programmatic
// AST construction (tests, embedding callers without a parser).

// Int returns an integer literal expression.
func Int(v int64) *IntLiteral {
	return &IntLiteral{Value: v}
}

// Var returns a variable reference expression.
func Var(name string) *VarRef {
	return &VarRef{Name: name}
}

// Bin returns an arithmetic expression.
func Bin(op ArithOp, left, right Exp) *BinExp {
	return &BinExp{Op: op, Left: left, Right: right}
}

// Rel returns an atomic comparison.
func Rel(op RelOp, left, right Exp) *Atomic {
	return &Atomic{Op: op, Left: left, Right: right}
}

// Not returns the negation of f.
func Not(f Formula) *Unary {
	return &Unary{Conn: ConnNot, Operand: f}
}

// Conn returns a binary connective formula.
func Conn(c BinaryConn, left, right Formula) *Binary {
	return &Binary{Conn: c, Left: left, Right: right}
}

// Forall returns a universally quantified formula over [from, to].
func Forall(name string, from, to int64, body Formula) *Quantified {
	return &Quantified{Quant: QuantForall, Var: name, Domain: Domain{From: from, To: to}, Body: body}
}

// Exists returns an existentially quantified formula over [from, to].
func Exists(name string, from, to int64, body Formula) *Quantified {
	return &Quantified{Quant: QuantExists, Var: name, Domain: Domain{From: from, To: to}, Body: body}
}

// IsNil reports whether n is absent, either a nil interface or a nil node
// pointer stored in one.
func IsNil(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *IntLiteral:
		return v == nil
	case *VarRef:
		return v == nil
	case *BinExp:
		return v == nil
	case *Atomic:
		return v == nil
	case *Unary:
		return v == nil
	case *Binary:
		return v == nil
	case *Quantified:
		return v == nil
	}
	return false
}
