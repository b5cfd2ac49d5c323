// Package parser implements the Lego formula parser.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/lego/pkg/ast"
	"github.com/thomasrohde/lego/pkg/diagnostics"
	"github.com/thomasrohde/lego/pkg/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it into a single closed or open formula.
// Syntax errors are returned as diagnostics and the formula is nil.
func Parse(source, filename string) (ast.Formula, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}

	p := &parser{tokens: tokens, pos: 0}
	f := p.parseTop()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return f, nil
}

// ParseExp parses a standalone arithmetic expression.
func ParseExp(source, filename string) (ast.Exp, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}

	p := &parser{tokens: tokens, pos: 0}
	e := p.parseExp()
	if e != nil && p.peek() != lexer.TokEOF {
		tok := p.current()
		p.addError(fmt.Sprintf("unexpected token '%s' after expression", tok.Value), &tok.Span)
	}
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return e, nil
}

// IsIncomplete reports whether diags only say that input ended early, so more
// text could still complete the formula.
func IsIncomplete(diags []diagnostics.Diagnostic) bool {
	if len(diags) == 0 {
		return false
	}
	for _, d := range diags {
		if d.Code != diagnostics.EParse || !strings.Contains(d.Message, "end of input") {
			return false
		}
	}
	return true
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.addError(fmt.Sprintf("expected %s, got %s", tokenName(typ), describe(tok)), &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) addError(msg string, span *ast.Span) {
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, ""))
}

func (p *parser) addErrorHint(msg string, span *ast.Span, hint string) {
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, hint))
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// mark and reset support the one place the grammar needs backtracking: a
// leading '(' may open either an arithmetic group or a nested formula.
type mark struct {
	pos   int
	diags int
}

func (p *parser) mark() mark {
	return mark{pos: p.pos, diags: len(p.diags)}
}

func (p *parser) reset(m mark) {
	p.pos = m.pos
	p.diags = p.diags[:m.diags]
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokLBracket:
		return "'['"
	case lexer.TokRBracket:
		return "']'"
	case lexer.TokLParen:
		return "'('"
	case lexer.TokRParen:
		return "')'"
	case lexer.TokComma:
		return "','"
	case lexer.TokDot:
		return "'.'"
	case lexer.TokIn:
		return "'in'"
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokIntLit:
		return "integer"
	case lexer.TokEOF:
		return "end of input"
	default:
		return fmt.Sprintf("token(%d)", t)
	}
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.TokEOF {
		return "end of input"
	}
	return fmt.Sprintf("'%s'", tok.Value)
}

func (p *parser) parseTop() ast.Formula {
	if p.peek() == lexer.TokEOF {
		tok := p.current()
		p.addError("expected formula, got end of input", &tok.Span)
		return nil
	}
	f := p.parseFormula()
	if f == nil {
		return nil
	}
	if p.peek() != lexer.TokEOF {
		tok := p.current()
		p.addErrorHint(fmt.Sprintf("unexpected token '%s' after formula", tok.Value), &tok.Span,
			"a source file holds exactly one formula; combine formulas with && or ||")
		return nil
	}
	return f
}

func (p *parser) parseFormula() ast.Formula {
	return p.parseIff()
}

func (p *parser) parseIff() ast.Formula {
	left := p.parseImplies()
	if left == nil {
		return nil
	}
	for p.peek() == lexer.TokIff {
		p.advance()
		right := p.parseImplies()
		if right == nil {
			return nil
		}
		left = p.binary(ast.ConnIff, left, right)
	}
	return left
}

// parseImplies is right-associative: a -> b -> c is a -> (b -> c).
func (p *parser) parseImplies() ast.Formula {
	left := p.parseOr()
	if left == nil {
		return nil
	}
	if p.peek() != lexer.TokArrow {
		return left
	}
	p.advance()
	right := p.parseImplies()
	if right == nil {
		return nil
	}
	return p.binary(ast.ConnImplies, left, right)
}

func (p *parser) parseOr() ast.Formula {
	left := p.parseAnd()
	if left == nil {
		return nil
	}
	for p.peek() == lexer.TokOrOr {
		p.advance()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = p.binary(ast.ConnOr, left, right)
	}
	return left
}

func (p *parser) parseAnd() ast.Formula {
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for p.peek() == lexer.TokAndAnd {
		p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = p.binary(ast.ConnAnd, left, right)
	}
	return left
}

func (p *parser) binary(conn ast.BinaryConn, left, right ast.Formula) *ast.Binary {
	return &ast.Binary{
		Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
		Conn:  conn,
		Left:  left,
		Right: right,
	}
}

func (p *parser) parseUnary() ast.Formula {
	switch p.peek() {
	case lexer.TokBang:
		start := p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.Unary{
			Span:    p.spanFromTo(start.Span, operand.NodeSpan()),
			Conn:    ast.ConnNot,
			Operand: operand,
		}
	case lexer.TokForall, lexer.TokExists:
		return p.parseQuantified()
	}
	return p.parsePrimary()
}

// parseQuantified parses `forall x in [a, b]. body`. The body extends as far
// right as possible.
func (p *parser) parseQuantified() ast.Formula {
	start := p.advance()
	quant := ast.QuantForall
	if start.Type == lexer.TokExists {
		quant = ast.QuantExists
	}

	name, ok := p.expectVarName()
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokIn); !ok {
		return nil
	}
	dom, ok := p.parseDomain()
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokDot); !ok {
		return nil
	}
	body := p.parseFormula()
	if body == nil {
		return nil
	}

	return &ast.Quantified{
		Span:   p.spanFromTo(start.Span, body.NodeSpan()),
		Quant:  quant,
		Var:    name.Value,
		Domain: dom,
		Body:   body,
	}
}

func (p *parser) expectVarName() (lexer.Token, bool) {
	tok := p.current()
	if lexer.IsKeyword(tok.Value) {
		p.addErrorHint(fmt.Sprintf("'%s' is a keyword and cannot be bound", tok.Value), &tok.Span,
			"choose a different variable name")
		return tok, false
	}
	return p.expect(lexer.TokIdent)
}

func (p *parser) parseDomain() (ast.Domain, bool) {
	open, ok := p.expect(lexer.TokLBracket)
	if !ok {
		return ast.Domain{}, false
	}
	from, ok := p.parseSigned()
	if !ok {
		return ast.Domain{}, false
	}
	if _, ok := p.expect(lexer.TokComma); !ok {
		return ast.Domain{}, false
	}
	to, ok := p.parseSigned()
	if !ok {
		return ast.Domain{}, false
	}
	closeTok, ok := p.expect(lexer.TokRBracket)
	if !ok {
		return ast.Domain{}, false
	}
	return ast.Domain{
		Span: p.spanFromTo(open.Span, closeTok.Span),
		From: from,
		To:   to,
	}, true
}

// parseSigned parses an optionally negated integer literal. Domain bounds are
// constants, never expressions.
func (p *parser) parseSigned() (int64, bool) {
	neg := false
	var start lexer.Token
	if p.peek() == lexer.TokMinus {
		start = p.advance()
		neg = true
	}
	tok := p.current()
	if tok.Type != lexer.TokIntLit {
		p.addErrorHint(fmt.Sprintf("expected integer bound, got %s", describe(tok)), &tok.Span,
			"domain bounds are integer literals, e.g. [1, 10] or [-5, 5]")
		return 0, false
	}
	p.advance()
	span := tok.Span
	if neg {
		span = p.spanFromTo(start.Span, tok.Span)
	}
	return p.parseIntText(tok.Value, neg, span)
}

func (p *parser) parseIntText(text string, neg bool, span ast.Span) (int64, bool) {
	if neg {
		text = "-" + text
	}
	val, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		p.addErrorHint(fmt.Sprintf("integer literal '%s' out of range", text), &span,
			"integers are signed 64-bit")
		return 0, false
	}
	return val, true
}

// parsePrimary parses an atomic comparison or a parenthesized formula. A
// leading '(' is first tried as the start of an arithmetic operand, as in
// (x + 1) > 2, and otherwise as a grouped formula.
func (p *parser) parsePrimary() ast.Formula {
	if p.peek() == lexer.TokLParen {
		m := p.mark()
		if a := p.parseAtomic(); a != nil {
			return a
		}
		p.reset(m)

		p.advance()
		f := p.parseFormula()
		if f == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return f
	}
	a := p.parseAtomic()
	if a == nil {
		return nil
	}
	return a
}

func (p *parser) parseAtomic() *ast.Atomic {
	left := p.parseExp()
	if left == nil {
		return nil
	}

	var op ast.RelOp
	switch p.peek() {
	case lexer.TokGt:
		op = ast.OpGt
	case lexer.TokGtEq:
		op = ast.OpGtEq
	case lexer.TokEq:
		op = ast.OpEq
	default:
		tok := p.current()
		p.addErrorHint(fmt.Sprintf("expected relational operator, got %s", describe(tok)), &tok.Span,
			"an atomic formula compares two expressions with >, >= or =")
		return nil
	}
	p.advance()

	right := p.parseExp()
	if right == nil {
		return nil
	}
	return &ast.Atomic{
		Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
		Op:    op,
		Left:  left,
		Right: right,
	}
}

func (p *parser) parseExp() ast.Exp {
	left := p.parseTerm()
	if left == nil {
		return nil
	}

	for {
		var op ast.ArithOp
		switch p.peek() {
		case lexer.TokPlus:
			op = ast.OpAdd
		case lexer.TokMinus:
			op = ast.OpSub
		default:
			return left
		}
		p.advance()
		right := p.parseTerm()
		if right == nil {
			return nil
		}
		left = &ast.BinExp{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseTerm() ast.Exp {
	left := p.parseFactor()
	if left == nil {
		return nil
	}

	for {
		var op ast.ArithOp
		switch p.peek() {
		case lexer.TokStar:
			op = ast.OpMul
		case lexer.TokSlash:
			op = ast.OpDiv
		case lexer.TokMod:
			op = ast.OpMod
		default:
			return left
		}
		p.advance()
		right := p.parseFactor()
		if right == nil {
			return nil
		}
		left = &ast.BinExp{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseFactor() ast.Exp {
	switch p.peek() {
	case lexer.TokMinus:
		start := p.advance()
		// -5 is a literal; -x and -(e) become 0 - e.
		if p.peek() == lexer.TokIntLit {
			tok := p.advance()
			span := p.spanFromTo(start.Span, tok.Span)
			val, ok := p.parseIntText(tok.Value, true, span)
			if !ok {
				return nil
			}
			return &ast.IntLiteral{Span: span, Value: val}
		}
		operand := p.parseFactor()
		if operand == nil {
			return nil
		}
		return &ast.BinExp{
			Span:  p.spanFromTo(start.Span, operand.NodeSpan()),
			Op:    ast.OpSub,
			Left:  &ast.IntLiteral{Span: start.Span, Value: 0},
			Right: operand,
		}

	case lexer.TokIntLit:
		tok := p.advance()
		val, ok := p.parseIntText(tok.Value, false, tok.Span)
		if !ok {
			return nil
		}
		return &ast.IntLiteral{Span: tok.Span, Value: val}

	case lexer.TokIdent:
		tok := p.advance()
		return &ast.VarRef{Span: tok.Span, Name: tok.Value}

	case lexer.TokLParen:
		p.advance()
		e := p.parseExp()
		if e == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return e

	default:
		tok := p.current()
		if tok.Type == lexer.TokEOF {
			p.addError("unexpected end of input, expected expression", &tok.Span)
		} else {
			p.addError(fmt.Sprintf("unexpected token '%s', expected expression", tok.Value), &tok.Span)
		}
		return nil
	}
}
