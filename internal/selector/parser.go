package selector

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports malformed selector input.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid selector %q at offset %d: %s", e.Input, e.Pos, e.Msg)
}

// Parse parses a selector string. Blank input yields an empty Or, which
// matches nothing. Any malformed input returns a *ParseError and no AST.
func Parse(input string) (Selector, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{input: input, tokens: tokens}
	return p.parseList()
}

// MustParse is like Parse but panics on malformed input. For tests and
// package-level selector constants.
func MustParse(input string) Selector {
	sel, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return sel
}

type parser struct {
	input  string
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) skipSpace() bool {
	skipped := false
	for p.peek().kind == tokSpace {
		p.pos++
		skipped = true
	}
	return skipped
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &ParseError{Input: p.input, Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.errorf(t, "expected %s, found %s", kind, t.kind)
	}
	return t, nil
}

func (p *parser) parseList() (Selector, error) {
	p.skipSpace()
	if p.peek().kind == tokEOF {
		return Or{}, nil
	}

	var alts []Selector
	for {
		chain, err := p.parseChain()
		if err != nil {
			return nil, err
		}
		alts = append(alts, chain)

		p.skipSpace()
		t := p.next()
		switch t.kind {
		case tokEOF:
			if len(alts) == 1 {
				return alts[0], nil
			}
			return Or{Alternatives: alts}, nil
		case tokComma:
			p.skipSpace()
			if k := p.peek().kind; k == tokEOF || k == tokComma {
				return nil, p.errorf(p.peek(), "empty alternative after \",\"")
			}
		default:
			return nil, p.errorf(t, "unexpected %s", t.kind)
		}
	}
}

func startsCompound(k tokenKind) bool {
	switch k {
	case tokIdent, tokHash, tokLBracket, tokColon:
		return true
	}
	return false
}

// parseChain parses compounds joined by combinators, left-associative.
func (p *parser) parseChain() (Selector, error) {
	left, err := p.parseCompound()
	if err != nil {
		return nil, err
	}
	for {
		spaced := p.skipSpace()
		switch k := p.peek().kind; {
		case k == tokGT:
			gt := p.next()
			p.skipSpace()
			if !startsCompound(p.peek().kind) {
				return nil, p.errorf(gt, "\">\" must be followed by a selector")
			}
			right, err := p.parseCompound()
			if err != nil {
				return nil, err
			}
			left = Child{Parent: left, Child: right}
		case spaced && startsCompound(k):
			right, err := p.parseCompound()
			if err != nil {
				return nil, err
			}
			left = Descendant{Ancestor: left, Descendant: right}
		default:
			return left, nil
		}
	}
}

// parseCompound parses an optional type name followed by modifiers.
func (p *parser) parseCompound() (Selector, error) {
	var parts []Selector
	if t := p.peek(); t.kind == tokIdent {
		p.next()
		parts = append(parts, TypeMatch{Name: t.value})
	}

loop:
	for {
		t := p.peek()
		switch t.kind {
		case tokHash:
			p.next()
			parts = append(parts, IDMatch{ID: t.value})
		case tokLBracket:
			attr, err := p.parseAttr()
			if err != nil {
				return nil, err
			}
			parts = append(parts, attr)
		case tokColon:
			pseudo, err := p.parsePseudo()
			if err != nil {
				return nil, err
			}
			parts = append(parts, pseudo)
		default:
			break loop
		}
	}

	switch len(parts) {
	case 0:
		t := p.peek()
		return nil, p.errorf(t, "expected selector, found %s", t.kind)
	case 1:
		return parts[0], nil
	}
	return Compound{Parts: parts}, nil
}

func (p *parser) parseAttr() (Selector, error) {
	p.next() // [
	p.skipSpace()
	key, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if _, err := p.expect(tokEquals); err != nil {
		return nil, err
	}
	p.skipSpace()
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if _, err := p.expect(tokRBracket); err != nil {
		return nil, err
	}
	return AttrMatch{Key: key.value, Value: value}, nil
}

// parseValue accepts a quoted string or a bare word.
func (p *parser) parseValue() (string, error) {
	t := p.next()
	switch t.kind {
	case tokString, tokIdent:
		return t.value, nil
	}
	return "", p.errorf(t, "expected value, found %s", t.kind)
}

func (p *parser) parsePseudo() (Selector, error) {
	colon := p.next()
	name, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(name.value) {
	case "first":
		return First{}, nil
	case "last":
		return Last{}, nil
	case "has-press":
		return HasPress{}, nil
	case "has-scroll":
		return HasScroll{}, nil
	case "text":
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		return TextMatch{Substring: arg.value}, nil
	case "display-name":
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		return DisplayNameMatch{Name: arg.value}, nil
	case "nth":
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		n, convErr := strconv.Atoi(arg.value)
		if convErr != nil || n < 0 {
			return nil, p.errorf(arg, "invalid :nth index %q", arg.value)
		}
		return Nth{Index: n}, nil
	}
	return nil, p.errorf(colon, "unknown pseudo-class :%s", name.value)
}

// parseArg parses "(" value ")".
func (p *parser) parseArg() (token, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return token{}, err
	}
	p.skipSpace()
	arg := p.peek()
	value, err := p.parseValue()
	if err != nil {
		return token{}, err
	}
	arg.value = value
	p.skipSpace()
	if _, err := p.expect(tokRParen); err != nil {
		return token{}, err
	}
	return arg, nil
}
