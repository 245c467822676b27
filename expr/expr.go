// Package expr evaluates the small arithmetic expressions interface
// definition documents use for counts, sizes and range limits. The grammar
// covers decimal literals, named constants, parentheses, unary minus and the
// four basic operators with the usual precedence. Nothing else.
package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// LookupFunc resolves a constant name (possibly dotted, pointing into
// another declaration set) to its literal text.
type LookupFunc func(name string) (string, error)

// Error describes why an expression could not be evaluated.
type Error struct {
	Input string
	Pos   int
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("expression %q at %d: %s: %v", e.Input, e.Pos, e.Msg, e.Err)
	}
	return fmt.Sprintf("expression %q at %d: %s", e.Input, e.Pos, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Int evaluates input as an integer. Expressions yielding fractions are
// truncated toward zero, matching integer conversion semantics of the
// documents these values come from.
func Int(input string, lookup LookupFunc) (int64, error) {
	if v, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64); err == nil {
		return v, nil
	}
	f, err := Float(input, lookup)
	if err != nil {
		return 0, err
	}
	t := math.Trunc(f)
	if math.IsNaN(t) || t >= 1<<63 || t < -(1<<63) {
		return 0, &Error{Input: input, Msg: "integer result out of range"}
	}
	return int64(t), nil
}

// Float evaluates input as a floating point number.
func Float(input string, lookup LookupFunc) (float64, error) {
	if v, err := strconv.ParseFloat(strings.TrimSpace(input), 64); err == nil {
		return v, nil
	}

	toks, err := scan(input)
	if err != nil {
		return 0, err
	}
	p := &parser{input: input, toks: toks, lookup: lookup}
	v, err := p.expression()
	if err != nil {
		return 0, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return 0, &Error{Input: input, Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
	return v, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokName
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
	val  float64
}

func scan(input string) ([]token, error) {
	var toks []token
	rs := []rune(input)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '+':
			toks = append(toks, token{kind: tokPlus, text: "+", pos: i})
			i++
		case r == '-':
			toks = append(toks, token{kind: tokMinus, text: "-", pos: i})
			i++
		case r == '*':
			toks = append(toks, token{kind: tokStar, text: "*", pos: i})
			i++
		case r == '/':
			toks = append(toks, token{kind: tokSlash, text: "/", pos: i})
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			i = scanNumber(rs, i)
			text := string(rs[start:i])
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &Error{Input: input, Pos: start, Msg: fmt.Sprintf("malformed number %q", text)}
			}
			toks = append(toks, token{kind: tokNumber, text: text, pos: start, val: v})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(rs) && isNameRune(rs[i]) {
				i++
			}
			toks = append(toks, token{kind: tokName, text: string(rs[start:i]), pos: start})
		default:
			return nil, &Error{Input: input, Pos: i, Msg: fmt.Sprintf("unexpected character %q", string(r))}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(rs)})
	return toks, nil
}

func scanNumber(rs []rune, i int) int {
	for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.') {
		i++
	}
	// optional exponent
	if i < len(rs) && (rs[i] == 'e' || rs[i] == 'E') {
		j := i + 1
		if j < len(rs) && (rs[j] == '+' || rs[j] == '-') {
			j++
		}
		if j < len(rs) && unicode.IsDigit(rs[j]) {
			i = j
			for i < len(rs) && unicode.IsDigit(rs[i]) {
				i++
			}
		}
	}
	return i
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

type parser struct {
	input  string
	toks   []token
	next   int
	lookup LookupFunc
}

func (p *parser) peek() token {
	return p.toks[p.next]
}

func (p *parser) advance() token {
	t := p.toks[p.next]
	if t.kind != tokEOF {
		p.next++
	}
	return t
}

// expression := term { ("+" | "-") term }
func (p *parser) expression() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().kind {
		case tokPlus:
			p.advance()
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v += r
		case tokMinus:
			p.advance()
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

// term := unary { ("*" | "/") unary }
func (p *parser) term() (float64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().kind {
		case tokStar:
			p.advance()
			r, err := p.unary()
			if err != nil {
				return 0, err
			}
			v *= r
		case tokSlash:
			t := p.advance()
			r, err := p.unary()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, &Error{Input: p.input, Pos: t.pos, Msg: "division by zero"}
			}
			v /= r
		default:
			return v, nil
		}
	}
}

// unary := ("-" | "+") unary | primary
func (p *parser) unary() (float64, error) {
	switch p.peek().kind {
	case tokMinus:
		p.advance()
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	case tokPlus:
		p.advance()
		return p.unary()
	}
	return p.primary()
}

// primary := number | name | "(" expression ")"
func (p *parser) primary() (float64, error) {
	t := p.advance()
	switch t.kind {
	case tokNumber:
		return t.val, nil
	case tokName:
		return p.constant(t)
	case tokLParen:
		v, err := p.expression()
		if err != nil {
			return 0, err
		}
		if c := p.advance(); c.kind != tokRParen {
			return 0, &Error{Input: p.input, Pos: c.pos, Msg: "missing closing parenthesis"}
		}
		return v, nil
	case tokEOF:
		return 0, &Error{Input: p.input, Pos: t.pos, Msg: "unexpected end of expression"}
	}
	return 0, &Error{Input: p.input, Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
}

func (p *parser) constant(t token) (float64, error) {
	if p.lookup == nil {
		return 0, &Error{Input: p.input, Pos: t.pos, Msg: fmt.Sprintf("unknown constant %q", t.text)}
	}
	text, err := p.lookup(t.text)
	if err != nil {
		return 0, &Error{Input: p.input, Pos: t.pos, Msg: fmt.Sprintf("constant %q", t.text), Err: err}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, &Error{Input: p.input, Pos: t.pos, Msg: fmt.Sprintf("constant %q is not numeric (%q)", t.text, text)}
	}
	return v, nil
}
