package condition

import (
	"fmt"
	"strings"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenString
	tokenNumber
	tokenTrue
	tokenFalse
	tokenNull
	tokenDot
	tokenComma
	tokenMinus
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenEQ
	tokenNE
	tokenLT
	tokenLE
	tokenGT
	tokenGE
	tokenMatch
	tokenNotMatch
	tokenAnd
	tokenOr
	tokenNot
	tokenIn
)

var keywords = map[string]tokenType{
	"and":   tokenAnd,
	"or":    tokenOr,
	"not":   tokenNot,
	"in":    tokenIn,
	"true":  tokenTrue,
	"false": tokenFalse,
	"null":  tokenNull,
}

var singleTokens = map[byte]tokenType{
	'.': tokenDot,
	',': tokenComma,
	'-': tokenMinus,
	'(': tokenLParen,
	')': tokenRParen,
	'[': tokenLBracket,
	']': tokenRBracket,
}

type token struct {
	typ   tokenType
	value string
	pos   int
}

func (t token) String() string {
	if t.typ == tokenEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q at %d", t.value, t.pos)
}

// tokenize converts an expression string into a slice of tokens ending in tokenEOF.
func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0

	for i < len(expr) {
		c := expr[i]

		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i++
			continue
		}

		if typ, ok := singleTokens[c]; ok {
			tokens = append(tokens, token{typ: typ, value: string(c), pos: i})
			i++
			continue
		}

		// Operators
		two := ""
		if i+1 < len(expr) {
			two = expr[i : i+2]
		}
		switch two {
		case "==":
			tokens = append(tokens, token{typ: tokenEQ, value: two, pos: i})
			i += 2
			continue
		case "!=":
			tokens = append(tokens, token{typ: tokenNE, value: two, pos: i})
			i += 2
			continue
		case "<=":
			tokens = append(tokens, token{typ: tokenLE, value: two, pos: i})
			i += 2
			continue
		case ">=":
			tokens = append(tokens, token{typ: tokenGE, value: two, pos: i})
			i += 2
			continue
		case "=~":
			tokens = append(tokens, token{typ: tokenMatch, value: two, pos: i})
			i += 2
			continue
		case "!~":
			tokens = append(tokens, token{typ: tokenNotMatch, value: two, pos: i})
			i += 2
			continue
		case "&&":
			tokens = append(tokens, token{typ: tokenAnd, value: two, pos: i})
			i += 2
			continue
		case "||":
			tokens = append(tokens, token{typ: tokenOr, value: two, pos: i})
			i += 2
			continue
		}

		switch c {
		case '<':
			tokens = append(tokens, token{typ: tokenLT, value: "<", pos: i})
			i++
			continue
		case '>':
			tokens = append(tokens, token{typ: tokenGT, value: ">", pos: i})
			i++
			continue
		case '!':
			tokens = append(tokens, token{typ: tokenNot, value: "!", pos: i})
			i++
			continue
		case '"', '\'':
			s, next, err := scanString(expr, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{typ: tokenString, value: s, pos: i})
			i = next
			continue
		}

		if isDigit(c) {
			start := i
			seenDot := false
			for i < len(expr) && (isDigit(expr[i]) || (expr[i] == '.' && !seenDot && i+1 < len(expr) && isDigit(expr[i+1]))) {
				if expr[i] == '.' {
					seenDot = true
				}
				i++
			}
			tokens = append(tokens, token{typ: tokenNumber, value: expr[start:i], pos: start})
			continue
		}

		if isIdentStart(c) {
			start := i
			for i < len(expr) && isIdentPart(expr[i]) {
				i++
			}
			word := expr[start:i]
			typ := tokenIdent
			if kw, ok := keywords[word]; ok {
				typ = kw
			}
			tokens = append(tokens, token{typ: typ, value: word, pos: start})
			continue
		}

		return nil, fmt.Errorf("unexpected character %q at %d", c, i)
	}

	tokens = append(tokens, token{typ: tokenEOF, pos: len(expr)})
	return tokens, nil
}

// scanString reads a quoted literal starting at expr[start] and returns its value
// and the index just past the closing quote.
func scanString(expr string, start int) (string, int, error) {
	quote := expr[start]
	var sb strings.Builder
	i := start + 1
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == '\\':
			if i+1 >= len(expr) {
				return "", 0, fmt.Errorf("unterminated escape at %d", i)
			}
			switch next := expr[i+1]; next {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(next)
			}
			i += 2
		case c == quote:
			return sb.String(), i + 1, nil
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string starting at %d", start)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
