package condition

import (
	"strings"

	"github.com/pkg/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokEq
	tokNe
	tokLt
	tokLe
	tokGt
	tokGe
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokNumber
	tokString
	tokVariable
	tokTrue
	tokFalse
)

type token struct {
	kind tokenKind
	text string // raw identifier/number/string payload
	pos  int
}

// lexer scans the surface syntax `&& || ! == <> < <= > >= + - * / ( ) ${VAR}`
// plus quoted string and decimal number literals (spec §4.1 / §9).
type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src)}
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n' || l.src[l.pos] == '\r') {
		l.pos++
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokLParen, pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, pos: start}, nil
	case c == '+':
		l.pos++
		return token{kind: tokPlus, pos: start}, nil
	case c == '-':
		l.pos++
		return token{kind: tokMinus, pos: start}, nil
	case c == '*':
		l.pos++
		return token{kind: tokStar, pos: start}, nil
	case c == '/':
		l.pos++
		return token{kind: tokSlash, pos: start}, nil
	case c == '&' && l.peekAt(1) == '&':
		l.pos += 2
		return token{kind: tokAnd, pos: start}, nil
	case c == '|' && l.peekAt(1) == '|':
		l.pos += 2
		return token{kind: tokOr, pos: start}, nil
	case c == '!' && l.peekAt(1) == '=':
		return token{}, errors.Wrapf(ErrParse, "unexpected '!=' at %d (use '<>')", start)
	case c == '!':
		l.pos++
		return token{kind: tokNot, pos: start}, nil
	case c == '=' && l.peekAt(1) == '=':
		l.pos += 2
		return token{kind: tokEq, pos: start}, nil
	case c == '<' && l.peekAt(1) == '>':
		l.pos += 2
		return token{kind: tokNe, pos: start}, nil
	case c == '<' && l.peekAt(1) == '=':
		l.pos += 2
		return token{kind: tokLe, pos: start}, nil
	case c == '<':
		l.pos++
		return token{kind: tokLt, pos: start}, nil
	case c == '>' && l.peekAt(1) == '=':
		l.pos += 2
		return token{kind: tokGe, pos: start}, nil
	case c == '>':
		l.pos++
		return token{kind: tokGt, pos: start}, nil
	case c == '$' && l.peekAt(1) == '{':
		return l.scanVariable()
	case c == '"':
		return l.scanString()
	case c >= '0' && c <= '9':
		return l.scanNumber()
	case isIdentStart(c):
		return l.scanIdent()
	default:
		return token{}, errors.Wrapf(ErrParse, "unexpected character %q at %d", c, start)
	}
}

func (l *lexer) scanVariable() (token, error) {
	start := l.pos
	l.pos += 2 // consume "${"
	nameStart := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != '}' {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{}, errors.Wrapf(ErrParse, "unterminated ${...} starting at %d", start)
	}
	name := string(l.src[nameStart:l.pos])
	l.pos++ // consume "}"
	if name == "" {
		return token{}, errors.Wrapf(ErrParse, "empty variable name at %d", start)
	}
	return token{kind: tokVariable, text: name, pos: start}, nil
}

func (l *lexer) scanString() (token, error) {
	start := l.pos
	l.pos++ // consume opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, errors.Wrapf(ErrParse, "unterminated string starting at %d", start)
		}
		c := l.src[l.pos]
		if c == '"' {
			l.pos++
			break
		}
		if c == '\\' && l.peekAt(1) == '"' {
			sb.WriteRune('"')
			l.pos += 2
			continue
		}
		sb.WriteRune(c)
		l.pos++
	}
	return token{kind: tokString, text: sb.String(), pos: start}, nil
}

func (l *lexer) scanNumber() (token, error) {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		save := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
				l.pos++
			}
		} else {
			l.pos = save
		}
	}
	return token{kind: tokNumber, text: string(l.src[start:l.pos]), pos: start}, nil
}

func (l *lexer) scanIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	switch text {
	case "true":
		return token{kind: tokTrue, text: text, pos: start}, nil
	case "false":
		return token{kind: tokFalse, text: text, pos: start}, nil
	default:
		return token{}, errors.Wrapf(ErrParse, "unexpected identifier %q at %d", text, start)
	}
}

func isIdentStart(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentPart(c rune) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
