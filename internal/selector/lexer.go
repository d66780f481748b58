package selector

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokSpace
	tokIdent  // type names, pseudo names, bare attribute values, numbers
	tokHash   // #id, value holds the id
	tokString // quoted string, value is unescaped
	tokGT
	tokComma
	tokLBracket
	tokRBracket
	tokEquals
	tokColon
	tokLParen
	tokRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of selector"
	case tokSpace:
		return "whitespace"
	case tokIdent:
		return "identifier"
	case tokHash:
		return "#id"
	case tokString:
		return "string"
	case tokGT:
		return `">"`
	case tokComma:
		return `","`
	case tokLBracket:
		return `"["`
	case tokRBracket:
		return `"]"`
	case tokEquals:
		return `"="`
	case tokColon:
		return `":"`
	case tokLParen:
		return `"("`
	case tokRParen:
		return `")"`
	}
	return "unknown token"
}

type token struct {
	kind  tokenKind
	value string
	pos   int // byte offset in the input
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' || r == '$'
}

// tokenize splits input into tokens. Runs of whitespace collapse into a
// single tokSpace. The only lexical failures are an unterminated quote and
// an unexpected character.
func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])
		start := i

		switch {
		case unicode.IsSpace(r):
			for i < len(input) {
				r, size = utf8.DecodeRuneInString(input[i:])
				if !unicode.IsSpace(r) {
					break
				}
				i += size
			}
			tokens = append(tokens, token{kind: tokSpace, pos: start})
			continue

		case r == '"' || r == '\'':
			s, n, err := scanString(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, value: s, pos: start})
			i += n
			continue

		case r == '#':
			i += size
			j := scanIdent(input, i)
			if j == i {
				return nil, &ParseError{Input: input, Pos: start, Msg: "expected identifier after #"}
			}
			tokens = append(tokens, token{kind: tokHash, value: input[i:j], pos: start})
			i = j
			continue

		case isIdentRune(r):
			j := scanIdent(input, i)
			tokens = append(tokens, token{kind: tokIdent, value: input[i:j], pos: start})
			i = j
			continue
		}

		var kind tokenKind
		switch r {
		case '>':
			kind = tokGT
		case ',':
			kind = tokComma
		case '[':
			kind = tokLBracket
		case ']':
			kind = tokRBracket
		case '=':
			kind = tokEquals
		case ':':
			kind = tokColon
		case '(':
			kind = tokLParen
		case ')':
			kind = tokRParen
		default:
			return nil, &ParseError{Input: input, Pos: start, Msg: "unexpected character " + string(r)}
		}
		tokens = append(tokens, token{kind: kind, pos: start})
		i += size
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(input)})
	return tokens, nil
}

func scanIdent(input string, i int) int {
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])
		if !isIdentRune(r) {
			break
		}
		i += size
	}
	return i
}

// scanString reads a quoted string starting at input[start]. It returns the
// unescaped value and the number of bytes consumed including both quotes.
func scanString(input string, start int) (string, int, error) {
	quote := input[start]
	var b strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		switch {
		case c == quote:
			return b.String(), i + 1 - start, nil
		case c == '\\' && i+1 < len(input):
			i++
			switch input[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(input[i])
			}
		default:
			b.WriteByte(c)
		}
		i++
	}
	return "", 0, &ParseError{Input: input, Pos: start, Msg: "unterminated quote"}
}
