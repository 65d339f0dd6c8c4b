package condition

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/aretw0/waypoint/pkg/domain"
)

// expr is a node of the compiled expression tree.
type expr interface {
	eval(env map[string]any) (any, error)
}

type literal struct {
	value any
}

type identifier struct {
	name string
	pos  int
}

type listExpr struct {
	items []expr
}

type attribute struct {
	target expr
	name   string
	pos    int
}

type unary struct {
	op      tokenType
	operand expr
	pos     int
}

type logical struct {
	op          tokenType
	left, right expr
}

type comparison struct {
	op          tokenType
	left, right expr
	pos         int
}

type membership struct {
	negate      bool
	left, right expr
	pos         int
}

type match struct {
	negate  bool
	left    expr
	pattern expr
	// re is set when the pattern is a string literal and was compiled up front.
	re  *regexp.Regexp
	pos int
}

var attributes = map[string]bool{
	"length":   true,
	"is_empty": true,
	"as_lower": true,
	"as_upper": true,
}

// syntaxError is a failure attributed to a position in the source text.
type syntaxError struct {
	kind   error
	detail string
	pos    int
}

func (e *syntaxError) Error() string { return e.detail }

func invalidAt(pos int, format string, args ...any) error {
	return &syntaxError{kind: domain.ErrInvalidExpression, detail: fmt.Sprintf(format, args...), pos: pos}
}

func failAt(pos int, format string, args ...any) error {
	return &syntaxError{kind: domain.ErrEvaluation, detail: fmt.Sprintf(format, args...), pos: pos}
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) current() token {
	return p.tokens[p.pos]
}

func (p *parser) peek() token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.typ != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ tokenType, what string) error {
	tok := p.current()
	if tok.typ != typ {
		return invalidAt(tok.pos, "expected %s, got %s", what, tok)
	}
	p.advance()
	return nil
}

// parse builds the tree for a whole expression and rejects trailing input.
func parse(src string) (expr, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, invalidAt(0, "%s", err.Error())
	}
	if len(tokens) == 1 {
		return nil, invalidAt(0, "empty expression")
	}

	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.typ != tokenEOF {
		return nil, invalidAt(tok.pos, "unexpected %s", tok)
	}
	return root, nil
}

func (p *parser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().typ == tokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &logical{op: tokenOr, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.current().typ == tokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &logical{op: tokenAnd, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (expr, error) {
	if tok := p.current(); tok.typ == tokenNot {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unary{op: tokenNot, operand: operand, pos: tok.pos}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (expr, error) {
	left, err := p.parseMember()
	if err != nil {
		return nil, err
	}

	tok := p.current()
	switch tok.typ {
	case tokenEQ, tokenNE, tokenLT, tokenLE, tokenGT, tokenGE:
		p.advance()
		right, err := p.parseMember()
		if err != nil {
			return nil, err
		}
		return &comparison{op: tok.typ, left: left, right: right, pos: tok.pos}, nil

	case tokenMatch, tokenNotMatch:
		p.advance()
		pattern, err := p.parseMember()
		if err != nil {
			return nil, err
		}
		m := &match{negate: tok.typ == tokenNotMatch, left: left, pattern: pattern, pos: tok.pos}
		if lit, ok := pattern.(*literal); ok {
			s, ok := lit.value.(string)
			if !ok {
				return nil, invalidAt(tok.pos, "regular expression must be a string")
			}
			re, err := compilePattern(s)
			if err != nil {
				return nil, invalidAt(tok.pos, "bad regular expression %q: %v", s, err)
			}
			m.re = re
		}
		return m, nil
	}
	return left, nil
}

func (p *parser) parseMember() (expr, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}

	tok := p.current()
	negate := false
	switch {
	case tok.typ == tokenIn:
		p.advance()
	case tok.typ == tokenNot && p.peek().typ == tokenIn:
		p.advance()
		p.advance()
		negate = true
	default:
		return left, nil
	}

	right, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	return &membership{negate: negate, left: left, right: right, pos: tok.pos}, nil
}

func (p *parser) parsePostfix() (expr, error) {
	if tok := p.current(); tok.typ == tokenMinus {
		p.advance()
		operand, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		return &unary{op: tokenMinus, operand: operand, pos: tok.pos}, nil
	}

	target, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.current().typ == tokenDot {
		p.advance()
		tok := p.current()
		if tok.typ != tokenIdent {
			return nil, invalidAt(tok.pos, "expected attribute name, got %s", tok)
		}
		if !attributes[tok.value] {
			return nil, invalidAt(tok.pos, "unknown attribute %q", tok.value)
		}
		p.advance()
		target = &attribute{target: target, name: tok.value, pos: tok.pos}
	}
	return target, nil
}

func (p *parser) parsePrimary() (expr, error) {
	tok := p.current()
	switch tok.typ {
	case tokenString:
		p.advance()
		return &literal{value: tok.value}, nil
	case tokenNumber:
		p.advance()
		n, err := strconv.ParseFloat(tok.value, 64)
		if err != nil {
			return nil, invalidAt(tok.pos, "bad number %q", tok.value)
		}
		return &literal{value: n}, nil
	case tokenTrue:
		p.advance()
		return &literal{value: true}, nil
	case tokenFalse:
		p.advance()
		return &literal{value: false}, nil
	case tokenNull:
		p.advance()
		return &literal{value: nil}, nil
	case tokenIdent:
		p.advance()
		return &identifier{name: tok.value, pos: tok.pos}, nil
	case tokenLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokenRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokenLBracket:
		p.advance()
		return p.parseList()
	}
	return nil, invalidAt(tok.pos, "unexpected %s", tok)
}

func (p *parser) parseList() (expr, error) {
	list := &listExpr{}
	if p.current().typ == tokenRBracket {
		p.advance()
		return list, nil
	}
	for {
		item, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		list.items = append(list.items, item)

		if p.current().typ == tokenComma {
			p.advance()
			// trailing comma
			if p.current().typ == tokenRBracket {
				p.advance()
				return list, nil
			}
			continue
		}
		if err := p.expect(tokenRBracket, "',' or ']'"); err != nil {
			return nil, err
		}
		return list, nil
	}
}

// compilePattern anchors the pattern at the start of the subject.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")")
}
