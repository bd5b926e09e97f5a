// Package parser implements ferro's source-text-to-AST stage: a
// single-pass, hand-written recursive-descent parser over a character
// buffer with an index cursor. There is no separate lexer; tokens are
// recognized inline by prefix match and character class, following the
// teacher corpus's preference for one lean pass over a program's
// surface rather than a token-stream intermediate.
package parser

import (
	"fmt"
	"strings"

	"github.com/ferrolang/ferro/pkg/ast"
)

var keywords = map[string]bool{
	"fn": true, "let": true, "mut": true, "if": true, "else": true,
	"while": true, "true": true, "false": true,
	"i32": true, "bool": true, "str": true, "return": true,
}

var syncKeywords = map[string]bool{
	"fn": true, "let": true, "if": true, "else": true, "while": true,
}

// Parser holds the cursor state for one parse.
type Parser struct {
	src    string
	pos    int
	line   int
	col    int
	errors ErrorList
}

// New constructs a parser over source text.
func New(src string) *Parser {
	return &Parser{src: src, pos: 0, line: 1, col: 1}
}

// Parse runs the parser to completion. It always terminates: malformed
// constructs are recorded and skipped via synchronize rather than
// looped on. A non-nil error is an ErrorList.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}

	p.skipTrivia()
	for !p.atEnd() {
		fn := p.parseFunction()
		if fn != nil {
			prog.Functions = append(prog.Functions, fn)
		}
		p.skipTrivia()
	}

	if len(p.errors) > 0 {
		return nil, p.errors
	}
	return prog, nil
}

// ===== cursor primitives =====

func (p *Parser) atEnd() bool { return p.pos >= len(p.src) }

func (p *Parser) peek() byte {
	if p.atEnd() {
		return 0
	}
	return p.src[p.pos]
}

func (p *Parser) peekAt(offset int) byte {
	i := p.pos + offset
	if i < 0 || i >= len(p.src) {
		return 0
	}
	return p.src[i]
}

func (p *Parser) advance() byte {
	ch := p.src[p.pos]
	p.pos++
	if ch == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return ch
}

// skipTrivia skips whitespace and `//` line comments.
func (p *Parser) skipTrivia() {
	for !p.atEnd() {
		ch := p.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			p.advance()
		case ch == '/' && p.peekAt(1) == '/':
			for !p.atEnd() && p.peek() != '\n' {
				p.advance()
			}
		default:
			return
		}
	}
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentCont(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }

// matchOp consumes and returns true if the upcoming characters are
// exactly op (not immediately continued in a way that would make a
// longer operator, e.g. matching "=" must not consume "==").
func (p *Parser) matchOp(op string) bool {
	if !strings.HasPrefix(p.src[p.pos:], op) {
		return false
	}
	// Guard the punctuation ops that are prefixes of longer ones so
	// "=" doesn't fire inside "==", and "&" doesn't fire inside "&&".
	// "&mut" is matched as "&" followed by the "mut" keyword.
	switch op {
	case "=":
		if p.peekAt(1) == '=' {
			return false
		}
	case "&":
		if p.peekAt(1) == '&' {
			return false
		}
	case "<":
		if p.peekAt(1) == '=' {
			return false
		}
	case ">":
		if p.peekAt(1) == '=' {
			return false
		}
	case "!":
		if p.peekAt(1) == '=' {
			return false
		}
	}
	for range op {
		p.advance()
	}
	p.skipTrivia()
	return true
}

func isBoundaryAfter(src string, idx int) bool {
	if idx >= len(src) {
		return true
	}
	return !isIdentCont(src[idx])
}

// matchKeyword consumes a keyword if it appears next as a whole word.
func (p *Parser) matchKeyword(kw string) bool {
	if !strings.HasPrefix(p.src[p.pos:], kw) {
		return false
	}
	if !isBoundaryAfter(p.src, p.pos+len(kw)) {
		return false
	}
	for range kw {
		p.advance()
	}
	p.skipTrivia()
	return true
}

func (p *Parser) checkKeyword(kw string) bool {
	if !strings.HasPrefix(p.src[p.pos:], kw) {
		return false
	}
	return isBoundaryAfter(p.src, p.pos+len(kw))
}

func (p *Parser) checkOp(op string) bool {
	return strings.HasPrefix(p.src[p.pos:], op)
}

// scanIdent reads an identifier (already known to start at pos). The
// caller must check isIdentStart(p.peek()) first.
func (p *Parser) scanIdent() string {
	start := p.pos
	for !p.atEnd() && isIdentCont(p.peek()) {
		p.advance()
	}
	name := p.src[start:p.pos]
	p.skipTrivia()
	return name
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, &ParseError{
		Line:    p.line,
		Col:     p.col,
		Message: fmt.Sprintf(format, args...),
	})
}

// synchronize skips characters until the next `;` (consuming it) or a
// statement-starting keyword (leaving it unconsumed so the caller can
// resume parsing from it), or EOF. It always advances the cursor by at
// least one character first, even if the cursor already sits on a
// sync point — otherwise a construct that fails before consuming
// anything (e.g. a bare top-level statement where a function was
// expected) would resynchronize to the exact position it started
// from and Parse would loop forever on it.
func (p *Parser) synchronize() {
	if !p.atEnd() {
		if p.peek() == ';' {
			p.advance()
			p.skipTrivia()
			return
		}
		p.advance()
	}
	for !p.atEnd() {
		if p.peek() == ';' {
			p.advance()
			p.skipTrivia()
			return
		}
		if isIdentStart(p.peek()) {
			save := p.pos
			word := p.scanIdent()
			if syncKeywords[word] {
				p.pos = save
				return
			}
			continue
		}
		p.advance()
	}
}

// ===== top-level structure =====

func (p *Parser) parseFunction() *ast.FunctionDecl {
	if !p.matchKeyword("fn") {
		p.errorf("expected 'fn'")
		p.synchronize()
		return nil
	}
	if !isIdentStart(p.peek()) {
		p.errorf("expected function name")
		p.synchronize()
		return nil
	}
	name := p.scanIdent()

	if !p.matchOp("(") {
		p.errorf("expected '(' after function name")
		p.synchronize()
		return nil
	}
	var params []ast.Param
	if !p.checkOp(")") {
		for {
			param, ok := p.parseParam()
			if !ok {
				p.synchronize()
				return nil
			}
			params = append(params, param)
			if !p.matchOp(",") {
				break
			}
		}
	}
	if !p.matchOp(")") {
		p.errorf("expected ')' after parameter list")
		p.synchronize()
		return nil
	}

	var retType ast.Type
	if p.matchOp("->") {
		retType = p.parseType()
		if retType == nil {
			p.synchronize()
			return nil
		}
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}

	return &ast.FunctionDecl{Name: name, Params: params, ReturnType: retType, Body: body}
}

func (p *Parser) parseParam() (ast.Param, bool) {
	isMut := p.matchKeyword("mut")
	if !isIdentStart(p.peek()) {
		p.errorf("expected parameter name")
		return ast.Param{}, false
	}
	name := p.scanIdent()
	if !p.matchOp(":") {
		p.errorf("expected ':' after parameter name")
		return ast.Param{}, false
	}
	typ := p.parseType()
	if typ == nil {
		return ast.Param{}, false
	}
	return ast.Param{IsMut: isMut, Name: name, Type: typ}, true
}

// parseType implements `type := "&" "mut"? type | "i32" | "bool" | "str"`.
func (p *Parser) parseType() ast.Type {
	if p.matchOp("&") {
		mutable := p.matchKeyword("mut")
		inner := p.parseType()
		if inner == nil {
			return nil
		}
		return &ast.RefType{Inner: inner, Mutable: mutable}
	}
	switch {
	case p.matchKeyword("i32"):
		return &ast.I32Type{}
	case p.matchKeyword("bool"):
		return &ast.BoolType{}
	case p.matchKeyword("str"):
		return &ast.StrType{}
	default:
		p.errorf("expected a type")
		return nil
	}
}

func (p *Parser) parseBlock() *ast.Block {
	if !p.matchOp("{") {
		p.errorf("expected '{'")
		p.synchronize()
		return nil
	}
	block := &ast.Block{}
	for !p.atEnd() && !p.checkOp("}") {
		stmt := p.parseStmt()
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	if !p.matchOp("}") {
		p.errorf("expected '}' to close block")
		p.synchronize()
		return block
	}
	return block
}

func (p *Parser) parseStmt() ast.Stmt {
	switch {
	case p.checkKeyword("let"):
		return p.parseLet()
	case p.checkKeyword("if"):
		return p.parseIf()
	case p.checkKeyword("while"):
		return p.parseWhile()
	case p.checkKeyword("return"):
		return p.parseReturn()
	case p.checkOp("{"):
		return p.parseBlock()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseLet() ast.Stmt {
	p.matchKeyword("let")
	isMut := p.matchKeyword("mut")
	if !isIdentStart(p.peek()) {
		p.errorf("expected a binding name after 'let'")
		p.synchronize()
		return nil
	}
	name := p.scanIdent()
	if !p.matchOp(":") {
		p.errorf("expected ':' after binding name")
		p.synchronize()
		return nil
	}
	typ := p.parseType()
	if typ == nil {
		p.synchronize()
		return nil
	}
	if !p.matchOp("=") {
		p.errorf("expected '=' in let binding")
		p.synchronize()
		return nil
	}
	init := p.parseExpr()
	if init == nil {
		p.synchronize()
		return nil
	}
	if !p.matchOp(";") {
		p.errorf("expected ';' after let binding")
		p.synchronize()
		return nil
	}
	return &ast.LetStmt{IsMut: isMut, Name: name, Type: typ, Init: init}
}

func (p *Parser) parseIf() ast.Stmt {
	p.matchKeyword("if")
	cond := p.parseExpr()
	if cond == nil {
		p.synchronize()
		return nil
	}
	then := p.parseBlock()
	if then == nil {
		return nil
	}
	stmt := &ast.IfStmt{Cond: cond, Then: then}
	if p.matchKeyword("else") {
		if p.checkKeyword("if") {
			stmt.Else = p.parseIf()
		} else {
			stmt.Else = p.parseBlock()
		}
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Stmt {
	p.matchKeyword("while")
	cond := p.parseExpr()
	if cond == nil {
		p.synchronize()
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.WhileStmt{Cond: cond, Body: body}
}

func (p *Parser) parseReturn() ast.Stmt {
	p.matchKeyword("return")
	if p.matchOp(";") {
		return &ast.ReturnStmt{}
	}
	value := p.parseExpr()
	if value == nil {
		p.synchronize()
		return nil
	}
	if !p.matchOp(";") {
		p.errorf("expected ';' after return value")
		p.synchronize()
		return nil
	}
	return &ast.ReturnStmt{Value: value}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	expr := p.parseExpr()
	if expr == nil {
		p.synchronize()
		return nil
	}
	if !p.matchOp(";") {
		p.errorf("expected ';' after expression")
		p.synchronize()
		return nil
	}
	return &ast.ExprStmt{Expr: expr}
}
