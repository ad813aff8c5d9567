package internal

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// A token is a single lexical element of Self source.
type token struct {
	Kind  tokenKind
	Value string
	Err   error

	Line, Col int
}

type tokenKind int

const (
	badToken tokenKind = iota

	identToken      // identifier, possibly with a trailing * (parent slot name)
	keywordToken    // identifier with a trailing colon
	argToken        // :identifier, a block argument declaration
	operatorToken   // run of operator characters, including = and <-
	integerToken    // integer literal
	floatToken      // floating-point literal
	stringToken     // 'string'
	openToken       // (
	closeToken      // )
	openBlockToken  // [
	closeBlockToken // ]
	barToken        // |
	dotToken        // .
	caretToken      // ^
	eofToken
)

// lexFn is a lexer state function. Each lexFn lexes a token, sends it on
// the supplied channel, and returns the next lexFn to use.
type lexFn func(src *bufio.Reader, tokens chan<- token, line, col int) (lexFn, int, int)

// lex converts a source into a stream of tokens.
func lex(src *bufio.Reader, tokens chan<- token) {
	state := eatSpace
	line, col := 1, 1
	for state != nil {
		state, line, col = state(src, tokens, line, col)
	}
	close(tokens)
}

// operator characters. * and | are not among them: * binds to identifiers
// as the parent suffix, and | delimits slot lists.
const opChars = "+-/%<>=&!?,~"

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// accept appends the next run of characters in src which satisfy the
// predicate to b. Returns b after appending, the first rune which did not
// satisfy the predicate, and any error that occurred. If there was no such
// error, the last rune is unread.
func accept(src *bufio.Reader, predicate func(rune) bool, b []byte) ([]byte, rune, error) {
	r, _, err := src.ReadRune()
	for {
		if err != nil {
			return b, r, err
		}
		if !predicate(r) {
			break
		}
		b = append(b, string(r)...)
		r, _, err = src.ReadRune()
	}
	src.UnreadRune()
	return b, r, nil
}

// lexsend is a shortcut for sending a token with error checking. It returns
// eatSpace as the default lexing function.
func lexsend(err error, tokens chan<- token, good token) lexFn {
	if err != nil && err != io.EOF {
		good.Kind = badToken
		good.Err = err
	}
	tokens <- good
	if err != nil {
		return nil
	}
	return eatSpace
}

// eatSpace consumes space and comments and decides the next lexFn to use.
func eatSpace(src *bufio.Reader, tokens chan<- token, line, col int) (lexFn, int, int) {
	for {
		r, _, err := src.ReadRune()
		if err != nil {
			tokens <- token{Kind: eofToken, Line: line, Col: col}
			return nil, line, col
		}
		switch {
		case r == '\n':
			line++
			col = 1
			continue
		case strings.ContainsRune(" \r\f\t\v", r):
			col++
			continue
		case r == '"':
			// Comments are double-quoted in Self.
			col++
			for {
				c, _, err := src.ReadRune()
				if err != nil {
					tokens <- token{Kind: badToken, Err: fmt.Errorf("unterminated comment"), Line: line, Col: col}
					return nil, line, col
				}
				if c == '\n' {
					line++
					col = 1
					continue
				}
				col++
				if c == '"' {
					break
				}
			}
			continue
		}
		src.UnreadRune()
		switch {
		case isIdentStart(r):
			return lexIdent, line, col
		case unicode.IsDigit(r):
			return lexNumber, line, col
		case r == '\'':
			return lexString, line, col
		case r == ':':
			return lexArg, line, col
		case strings.ContainsRune(opChars, r):
			return lexOperator, line, col
		default:
			return lexPunct, line, col
		}
	}
}

// lexIdent lexes an identifier, a keyword (trailing colon), or a parent
// slot name (trailing asterisk).
func lexIdent(src *bufio.Reader, tokens chan<- token, line, col int) (lexFn, int, int) {
	b, r, err := accept(src, isIdentRune, nil)
	tok := token{Kind: identToken, Line: line, Col: col}
	col += len(b)
	if err == nil {
		switch r {
		case ':':
			src.ReadRune()
			col++
			b = append(b, ':')
			tok.Kind = keywordToken
		case '*':
			src.ReadRune()
			col++
			b = append(b, '*')
		}
	}
	tok.Value = string(b)
	return lexsend(err, tokens, tok), line, col
}

// lexNumber lexes an integer or float literal.
func lexNumber(src *bufio.Reader, tokens chan<- token, line, col int) (lexFn, int, int) {
	b, r, err := accept(src, unicode.IsDigit, nil)
	tok := token{Kind: integerToken, Line: line, Col: col}
	if err == nil && r == '.' {
		// A dot is a statement separator unless a digit follows.
		src.ReadRune()
		c, _, err2 := src.ReadRune()
		if err2 == nil && unicode.IsDigit(c) {
			src.UnreadRune()
			b = append(b, '.')
			b, _, err = accept(src, unicode.IsDigit, b)
			tok.Kind = floatToken
		} else {
			if err2 == nil {
				src.UnreadRune()
			}
			tok.Value = string(b)
			col += len(b)
			tokens <- tok
			tokens <- token{Kind: dotToken, Value: ".", Line: line, Col: col}
			return eatSpace, line, col + 1
		}
	}
	tok.Value = string(b)
	col += len(b)
	return lexsend(err, tokens, tok), line, col
}

// lexString lexes a 'single-quoted' string with backslash escapes.
func lexString(src *bufio.Reader, tokens chan<- token, line, col int) (lexFn, int, int) {
	src.ReadRune() // opening quote
	start := col
	col++
	var b []byte
	for {
		r, _, err := src.ReadRune()
		if err != nil {
			tokens <- token{Kind: badToken, Err: fmt.Errorf("unterminated string"), Line: line, Col: start}
			return nil, line, col
		}
		col++
		switch r {
		case '\'':
			tokens <- token{Kind: stringToken, Value: string(b), Line: line, Col: start}
			return eatSpace, line, col
		case '\\':
			c, _, err := src.ReadRune()
			if err != nil {
				tokens <- token{Kind: badToken, Err: fmt.Errorf("unterminated escape"), Line: line, Col: col}
				return nil, line, col
			}
			col++
			switch c {
			case 'n':
				b = append(b, '\n')
			case 't':
				b = append(b, '\t')
			case 'r':
				b = append(b, '\r')
			case '0':
				b = append(b, 0)
			default:
				b = append(b, string(c)...)
			}
		case '\n':
			line++
			col = 1
			b = append(b, '\n')
		default:
			b = append(b, string(r)...)
		}
	}
}

// lexArg lexes a block argument declaration, :name.
func lexArg(src *bufio.Reader, tokens chan<- token, line, col int) (lexFn, int, int) {
	src.ReadRune() // colon
	b, _, err := accept(src, isIdentRune, nil)
	tok := token{Kind: argToken, Value: string(b), Line: line, Col: col}
	if len(b) == 0 {
		tok.Kind = badToken
		tok.Err = fmt.Errorf("expected identifier after :")
	}
	col += len(b) + 1
	return lexsend(err, tokens, tok), line, col
}

// lexOperator lexes a run of operator characters.
func lexOperator(src *bufio.Reader, tokens chan<- token, line, col int) (lexFn, int, int) {
	b, _, err := accept(src, func(r rune) bool { return strings.ContainsRune(opChars, r) }, nil)
	tok := token{Kind: operatorToken, Value: string(b), Line: line, Col: col}
	col += len(b)
	return lexsend(err, tokens, tok), line, col
}

// lexPunct lexes single-character punctuation.
func lexPunct(src *bufio.Reader, tokens chan<- token, line, col int) (lexFn, int, int) {
	r, _, _ := src.ReadRune()
	tok := token{Value: string(r), Line: line, Col: col}
	switch r {
	case '(':
		tok.Kind = openToken
	case ')':
		tok.Kind = closeToken
	case '[':
		tok.Kind = openBlockToken
	case ']':
		tok.Kind = closeBlockToken
	case '|':
		tok.Kind = barToken
	case '.':
		tok.Kind = dotToken
	case '^':
		tok.Kind = caretToken
	case '*':
		tok.Kind = operatorToken
	default:
		tok.Kind = badToken
		tok.Err = fmt.Errorf("unexpected character %q", r)
	}
	tokens <- tok
	if tok.Kind == badToken {
		return nil, line, col + 1
	}
	return eatSpace, line, col + 1
}
