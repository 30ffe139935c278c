// internal/expr/parser.go
package expr

import (
	"strings"
)

// Precedence, lowest first:
//
//	||
//	&&
//	== != < > <= >=
//	+ -
//	* /
//	unary - + !
//	^ (right-associative)
//	literals, names, calls, parentheses
type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) acceptOp(ops ...string) (token, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return t, false
	}
	for _, op := range ops {
		if t.text == op {
			p.i++
			return t, true
		}
	}
	return t, false
}

func parse(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 {
		return nil, errAt(ErrMalformedExpression, 0, "empty formula")
	}

	p := &parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	switch t := p.peek(); t.kind {
	case tokEOF:
		return n, nil
	case tokRParen:
		return nil, errAt(ErrUnmatchedParenthesis, t.pos, "unexpected ')'")
	default:
		return nil, errAt(ErrMalformedExpression, t.pos, "unexpected %q", t.text)
	}
}

func (p *parser) binaryLevel(next func() (node, error), ops ...string) (node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.acceptOp(ops...)
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{pos: t.pos, op: t.text, x: left, y: right}
	}
}

func (p *parser) parseOr() (node, error) { return p.binaryLevel(p.parseAnd, "||") }

func (p *parser) parseAnd() (node, error) { return p.binaryLevel(p.parseCompare, "&&") }

func (p *parser) parseCompare() (node, error) {
	return p.binaryLevel(p.parseAdditive, "==", "!=", "<=", ">=", "<", ">")
}

func (p *parser) parseAdditive() (node, error) {
	return p.binaryLevel(p.parseMultiplicative, "+", "-")
}

func (p *parser) parseMultiplicative() (node, error) {
	return p.binaryLevel(p.parseUnary, "*", "/")
}

func (p *parser) parseUnary() (node, error) {
	if t, ok := p.acceptOp("-", "+", "!"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{pos: t.pos, op: t.text, x: x}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	t, ok := p.acceptOp("^")
	if !ok {
		return base, nil
	}
	// right operand goes back through unary so 2^-1 and 2^3^2 both work
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &binaryExpr{pos: t.pos, op: "^", x: base, y: exp}, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()

	switch t.kind {
	case tokNumber:
		if len(t.text) == 5 && strings.Trim(t.text, "0123456789") == "" {
			return &addressRef{pos: t.pos, addr: int(t.num), val: t.num}, nil
		}
		return &numberLit{pos: t.pos, val: t.num}, nil

	case tokString:
		return &stringLit{pos: t.pos, val: t.text}, nil

	case tokName:
		return &varRef{pos: t.pos, name: t.text}, nil

	case tokIdent:
		if p.peek().kind == tokLParen {
			p.next()
			return p.parseCall(t)
		}
		return &varRef{pos: t.pos, name: t.text}, nil

	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, errAt(ErrUnmatchedParenthesis, t.pos, "missing ')'")
		}
		p.next()
		return inner, nil

	case tokRParen:
		return nil, errAt(ErrUnmatchedParenthesis, t.pos, "unexpected ')'")

	case tokEOF:
		return nil, errAt(ErrMalformedExpression, t.pos, "unexpected end of formula")

	default:
		return nil, errAt(ErrMalformedExpression, t.pos, "unexpected %q", t.text)
	}
}

// parseCall is entered after "name(" has been consumed.
func (p *parser) parseCall(name token) (node, error) {
	call := &callExpr{pos: name.pos, name: strings.ToLower(name.text)}

	if p.peek().kind == tokRParen {
		p.next()
		return call, nil
	}

	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)

		switch t := p.next(); t.kind {
		case tokComma:
			continue
		case tokRParen:
			return call, nil
		case tokEOF:
			return nil, errAt(ErrUnmatchedParenthesis, name.pos, "missing ')' after arguments of %s", name.text)
		default:
			return nil, errAt(ErrMalformedExpression, t.pos, "unexpected %q in arguments of %s", t.text, name.text)
		}
	}
}
