// internal/expr/lexer.go
package expr

import (
	"strconv"
	"strings"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokName // [bracketed name]
	tokString
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

var twoCharOps = []string{"==", "!=", "<=", ">=", "&&", "||"}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) || c == '.' }

// lex splits a formula into tokens. The returned slice always ends with tokEOF.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0

	for i < len(src) {
		c := src[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i < len(src) && src[i] == '.' {
				i++
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			// exponent only when digits follow, so "2*e" keeps its constant
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					i = j
					for i < len(src) && isDigit(src[i]) {
						i++
					}
				}
			}
			text := src[start:i]
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, errAt(ErrMalformedExpression, start, "bad number %q", text)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: v, pos: start})

		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})

		case c == '[':
			end := strings.IndexByte(src[i+1:], ']')
			if end < 0 {
				return nil, errAt(ErrMalformedExpression, i, "unterminated name")
			}
			name := strings.TrimSpace(src[i+1 : i+1+end])
			if name == "" {
				return nil, errAt(ErrMalformedExpression, i, "empty name")
			}
			toks = append(toks, token{kind: tokName, text: name, pos: i})
			i += end + 2

		case c == '"' || c == '\'':
			end := strings.IndexByte(src[i+1:], c)
			if end < 0 {
				return nil, errAt(ErrMalformedExpression, i, "unterminated string")
			}
			toks = append(toks, token{kind: tokString, text: src[i+1 : i+1+end], pos: i})
			i += end + 2

		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++

		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++

		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++

		default:
			matched := false
			for _, op := range twoCharOps {
				if strings.HasPrefix(src[i:], op) {
					toks = append(toks, token{kind: tokOp, text: op, pos: i})
					i += 2
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			switch c {
			case '+', '-', '*', '/', '^', '<', '>', '!':
				toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
				i++
			default:
				return nil, errAt(ErrMalformedExpression, i, "unexpected character %q", c)
			}
		}
	}

	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}
