package parser

import (
	"strconv"
	"strings"

	"github.com/ferrolang/ferro/pkg/ast"
)

// parseExpr is the entry point into the precedence-climbing ladder.
// Assignment sits below logical-or: it is right-associative and valid
// with either an identifier target (`x = v`) or a dereferenced
// reference target (`*r = v`), so it is checked for explicitly rather
// than folded into the binary-operator table the rest of the ladder
// shares. Whether a deref target's referent is actually mutable is a
// typing concern, left to the checker.
func (p *Parser) parseExpr() ast.Expr {
	left := p.parseLogicalOr()
	if left == nil {
		return nil
	}
	if p.matchOp("=") {
		if !isAssignable(left) {
			p.errorf("assignment target must be an identifier or a dereferenced reference")
			return nil
		}
		right := p.parseExpr()
		if right == nil {
			return nil
		}
		return &ast.BinaryExpr{Left: left, Op: ast.OpAssign, Right: right}
	}
	return left
}

func isAssignable(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.Ident:
		return true
	case *ast.UnaryExpr:
		return v.Op == ast.OpDeref
	default:
		return false
	}
}

func (p *Parser) parseLogicalOr() ast.Expr {
	left := p.parseLogicalAnd()
	for left != nil && p.matchOp("||") {
		right := p.parseLogicalAnd()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Left: left, Op: ast.OpOr, Right: right}
	}
	return left
}

func (p *Parser) parseLogicalAnd() ast.Expr {
	left := p.parseEquality()
	for left != nil && p.matchOp("&&") {
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Left: left, Op: ast.OpAnd, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseComparison()
	for left != nil {
		var op ast.BinOp
		switch {
		case p.matchOp("=="):
			op = ast.OpEq
		case p.matchOp("!="):
			op = ast.OpNe
		default:
			return left
		}
		right := p.parseComparison()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseTerm()
	for left != nil {
		var op ast.BinOp
		switch {
		case p.matchOp("<="):
			op = ast.OpLe
		case p.matchOp(">="):
			op = ast.OpGe
		case p.matchOp("<"):
			op = ast.OpLt
		case p.matchOp(">"):
			op = ast.OpGt
		default:
			return left
		}
		right := p.parseTerm()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseTerm() ast.Expr {
	left := p.parseFactor()
	for left != nil {
		var op ast.BinOp
		switch {
		case p.matchOp("+"):
			op = ast.OpAdd
		case p.matchOp("-"):
			op = ast.OpSub
		default:
			return left
		}
		right := p.parseFactor()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseFactor() ast.Expr {
	left := p.parseUnary()
	for left != nil {
		var op ast.BinOp
		switch {
		case p.matchOp("*"):
			op = ast.OpMul
		case p.matchOp("/"):
			op = ast.OpDiv
		default:
			return left
		}
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left
}

// parseUnary handles the prefix operators `- ! & &mut *`. `&mut`
// tokenizes greedily before plain `&`: consuming "&" and then checking
// for a following "mut" keyword achieves that without a separate
// lookahead rule.
func (p *Parser) parseUnary() ast.Expr {
	switch {
	case p.matchOp("-"):
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{Op: ast.OpNeg, Operand: operand}
	case p.matchOp("!"):
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{Op: ast.OpNot, Operand: operand}
	case p.matchOp("&"):
		op := ast.OpBorrow
		if p.matchKeyword("mut") {
			op = ast.OpBorrowMut
		}
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{Op: op, Operand: operand}
	case p.matchOp("*"):
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{Op: ast.OpDeref, Operand: operand}
	default:
		return p.parseCall()
	}
}

// parseCall handles the call/postfix precedence level: a primary
// followed optionally by a parenthesized argument list. Only bare
// identifiers are callable per the grammar.
func (p *Parser) parseCall() ast.Expr {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}
	if p.checkOp("(") {
		ident, ok := expr.(*ast.Ident)
		if !ok {
			p.errorf("only a plain identifier may be called")
			return nil
		}
		p.matchOp("(")
		var args []ast.Expr
		if !p.checkOp(")") {
			for {
				arg := p.parseExpr()
				if arg == nil {
					return nil
				}
				args = append(args, arg)
				if !p.matchOp(",") {
					break
				}
			}
		}
		if !p.matchOp(")") {
			p.errorf("expected ')' after call arguments")
			return nil
		}
		return &ast.CallExpr{Callee: ident.Name, Args: args}
	}
	return expr
}

func (p *Parser) parsePrimary() ast.Expr {
	switch {
	case p.matchKeyword("true"):
		return &ast.BoolLit{Value: true}
	case p.matchKeyword("false"):
		return &ast.BoolLit{Value: false}
	case isDigit(p.peek()):
		return p.scanNumber()
	case p.peek() == '"':
		return p.scanString()
	case p.matchOp("("):
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if !p.matchOp(")") {
			p.errorf("expected ')' to close parenthesized expression")
			return nil
		}
		return expr
	case isIdentStart(p.peek()):
		name := p.scanIdent()
		if keywords[name] {
			p.errorf("unexpected keyword %q in expression", name)
			return nil
		}
		return &ast.Ident{Name: name}
	default:
		p.errorf("unexpected character %q in expression", string(p.peek()))
		return nil
	}
}

func (p *Parser) scanNumber() ast.Expr {
	start := p.pos
	for !p.atEnd() && isDigit(p.peek()) {
		p.advance()
	}
	text := p.src[start:p.pos]
	p.skipTrivia()
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		p.errorf("integer literal %q out of i32 range", text)
		return nil
	}
	return &ast.IntLit{Value: int32(n)}
}

// scanString handles `\`-prefixed escapes that consume the next
// character verbatim; an unterminated string is a parse error.
func (p *Parser) scanString() ast.Expr {
	startLine, startCol := p.line, p.col
	p.advance() // opening quote
	var sb strings.Builder
	for {
		if p.atEnd() {
			p.errors = append(p.errors, &ParseError{Line: startLine, Col: startCol, Message: "unterminated string literal"})
			return nil
		}
		ch := p.peek()
		if ch == '"' {
			p.advance()
			break
		}
		if ch == '\\' {
			p.advance()
			if p.atEnd() {
				p.errors = append(p.errors, &ParseError{Line: startLine, Col: startCol, Message: "unterminated string literal"})
				return nil
			}
			sb.WriteByte(decodeEscape(p.advance()))
			continue
		}
		sb.WriteByte(p.advance())
	}
	p.skipTrivia()
	return &ast.StrLit{Value: sb.String()}
}

func decodeEscape(ch byte) byte {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return ch
	}
}
