// Package expr implements the restricted condition language authors use to
// gate effects, choices, events and arc stages. The grammar is a closed set:
// comparisons, and/or/not, membership, dotted state paths and a whitelist of
// builtin functions. There is no general evaluation mechanism to escape from;
// malformed input degrades to false, never to an error.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenOp     // == != < <= > >=
	tokenLParen // (
	tokenRParen // )
	tokenLBrack // [
	tokenRBrack // ]
	tokenComma
	tokenDot
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tokenEOF, pos: l.pos}, nil
	}
	start := l.pos
	c := l.input[l.pos]

	switch {
	case c == '(':
		l.pos++
		return token{kind: tokenLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokenRParen, text: ")", pos: start}, nil
	case c == '[':
		l.pos++
		return token{kind: tokenLBrack, text: "[", pos: start}, nil
	case c == ']':
		l.pos++
		return token{kind: tokenRBrack, text: "]", pos: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokenComma, text: ",", pos: start}, nil
	case c == '.':
		l.pos++
		return token{kind: tokenDot, text: ".", pos: start}, nil
	case c == '\'' || c == '"':
		quote := c
		l.pos++
		var sb strings.Builder
		for l.pos < len(l.input) && l.input[l.pos] != quote {
			sb.WriteByte(l.input[l.pos])
			l.pos++
		}
		if l.pos >= len(l.input) {
			return token{}, fmt.Errorf("unterminated string at %d", start)
		}
		l.pos++
		return token{kind: tokenString, text: sb.String(), pos: start}, nil
	case strings.ContainsRune("=!<>", rune(c)):
		op := string(c)
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			op += "="
			l.pos++
		}
		switch op {
		case "==", "!=", "<", "<=", ">", ">=":
			return token{kind: tokenOp, text: op, pos: start}, nil
		}
		return token{}, fmt.Errorf("unknown operator %q at %d", op, start)
	case c == '-' || unicode.IsDigit(rune(c)):
		l.pos++
		for l.pos < len(l.input) && (unicode.IsDigit(rune(l.input[l.pos])) || l.input[l.pos] == '.') {
			l.pos++
		}
		return token{kind: tokenNumber, text: l.input[start:l.pos], pos: start}, nil
	case unicode.IsLetter(rune(c)) || c == '_':
		l.pos++
		for l.pos < len(l.input) {
			r := rune(l.input[l.pos])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				break
			}
			l.pos++
		}
		return token{kind: tokenIdent, text: l.input[start:l.pos], pos: start}, nil
	default:
		return token{}, fmt.Errorf("unexpected character %q at %d", c, start)
	}
}

// AST node kinds. The parser only ever produces these; anything outside the
// whitelist is a parse error.
type node interface{}

type litNode struct{ value any }
type pathNode struct{ parts []string }
type callNode struct {
	name string
	args []node
}
type listNode struct{ elems []node }
type binNode struct {
	op          string // comparison op, "in", "not in", "and", "or"
	left, right node
}
type notNode struct{ operand node }

type parser struct {
	tokens []token
	pos    int
}

// parse compiles an expression string into an AST.
func parse(input string) (node, error) {
	lex := &lexer{input: input}
	var tokens []token
	for {
		tok, err := lex.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokenEOF {
			break
		}
	}
	p := &parser{tokens: tokens}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokenEOF {
		return nil, fmt.Errorf("unexpected trailing input at %d", p.peek().pos)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) acceptIdent(word string) bool {
	if p.peek().kind == tokenIdent && p.peek().text == word {
		p.advance()
		return true
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptIdent("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binNode{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.acceptIdent("and") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binNode{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	// "not in" is handled by parseComparison; bare "not" negates.
	if p.peek().kind == tokenIdent && p.peek().text == "not" {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	switch {
	case p.peek().kind == tokenOp:
		op := p.advance().text
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return binNode{op: op, left: left, right: right}, nil
	case p.peek().kind == tokenIdent && p.peek().text == "in":
		p.advance()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return binNode{op: "in", left: left, right: right}, nil
	case p.peek().kind == tokenIdent && p.peek().text == "not":
		p.advance()
		if !p.acceptIdent("in") {
			return nil, fmt.Errorf("expected 'in' after 'not' at %d", p.peek().pos)
		}
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return binNode{op: "not in", left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseOperand() (node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokenNumber:
		p.advance()
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q at %d", tok.text, tok.pos)
		}
		return litNode{value: f}, nil
	case tokenString:
		p.advance()
		return litNode{value: tok.text}, nil
	case tokenLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokenRParen {
			return nil, fmt.Errorf("expected ')' at %d", p.peek().pos)
		}
		p.advance()
		return inner, nil
	case tokenLBrack:
		return p.parseList()
	case tokenIdent:
		switch tok.text {
		case "true", "True":
			p.advance()
			return litNode{value: true}, nil
		case "false", "False":
			p.advance()
			return litNode{value: false}, nil
		case "none", "None", "null":
			p.advance()
			return litNode{value: nil}, nil
		}
		return p.parsePathOrCall()
	default:
		return nil, fmt.Errorf("unexpected token %q at %d", tok.text, tok.pos)
	}
}

func (p *parser) parseList() (node, error) {
	p.advance() // consume '['
	var elems []node
	if p.peek().kind == tokenRBrack {
		p.advance()
		return listNode{}, nil
	}
	for {
		elem, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		if p.peek().kind == tokenComma {
			p.advance()
			continue
		}
		break
	}
	if p.peek().kind != tokenRBrack {
		return nil, fmt.Errorf("expected ']' at %d", p.peek().pos)
	}
	p.advance()
	return listNode{elems: elems}, nil
}

func (p *parser) parsePathOrCall() (node, error) {
	first := p.advance().text

	if p.peek().kind == tokenLParen {
		p.advance()
		var args []node
		if p.peek().kind != tokenRParen {
			for {
				arg, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.peek().kind == tokenComma {
					p.advance()
					continue
				}
				break
			}
		}
		if p.peek().kind != tokenRParen {
			return nil, fmt.Errorf("expected ')' at %d", p.peek().pos)
		}
		p.advance()
		return callNode{name: first, args: args}, nil
	}

	parts := []string{first}
	for p.peek().kind == tokenDot {
		p.advance()
		next := p.peek()
		if next.kind != tokenIdent && next.kind != tokenNumber {
			return nil, fmt.Errorf("expected path segment at %d", next.pos)
		}
		p.advance()
		parts = append(parts, next.text)
	}
	return pathNode{parts: parts}, nil
}
