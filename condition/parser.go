package condition

import (
	"strconv"

	"github.com/pkg/errors"
)

// parser is a recursive-descent parser over the surface grammar of spec
// §4.1/§9, lowered directly onto the AST node types in ast.go:
//
//	orExpr   := andExpr ( '||' andExpr )*
//	andExpr  := notExpr ( '&&' notExpr )*
//	notExpr  := '!' notExpr | equality
//	equality := additive ( ('==' | '<>' | '<' | '<=' | '>' | '>=') additive )?
//	additive := multiplicative ( ('+' | '-') multiplicative )*
//	multiplicative := primary ( ('*' | '/') primary )*
//	primary  := NUMBER | STRING | 'true' | 'false' | '${' NAME '}' | '(' orExpr ')'
type parser struct {
	lex *lexer
	cur token
}

func newParser(src string) (*parser, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) expect(kind tokenKind, what string) error {
	if p.cur.kind != kind {
		return errors.Wrapf(ErrParse, "expected %s at position %d", what, p.cur.pos)
	}
	return p.advance()
}

// parse parses expr and requires the whole string to be consumed.
func parse(expr string) (node, error) {
	p, err := newParser(expr)
	if err != nil {
		return nil, err
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, errors.Wrapf(ErrParse, "unexpected trailing input at position %d", p.cur.pos)
	}
	return n, nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = andExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.cur.kind == tokNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notExpr{operand: operand}, nil
	}
	return p.parseEquality()
}

func (p *parser) parseEquality() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	switch p.cur.kind {
	case tokEq, tokNe, tokLt, tokLe, tokGt, tokGe:
		op := p.cur.kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		switch op {
		case tokEq:
			return newEqExpr(eqEqual, left, right), nil
		case tokNe:
			return newEqExpr(eqNotEqual, left, right), nil
		case tokLt:
			return relExpr{op: relLt, left: left, right: right}, nil
		case tokLe:
			return relExpr{op: relLe, left: left, right: right}, nil
		case tokGt:
			return relExpr{op: relGt, left: left, right: right}, nil
		case tokGe:
			return relExpr{op: relGe, left: left, right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokPlus || p.cur.kind == tokMinus {
		op := p.cur.kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		if op == tokPlus {
			left = newAddExpr(left, right)
		} else {
			left = arithExpr{op: arithSub, left: left, right: right}
		}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokStar || p.cur.kind == tokSlash {
		op := p.cur.kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		if op == tokStar {
			left = arithExpr{op: arithMul, left: left, right: right}
		} else {
			left = arithExpr{op: arithDiv, left: left, right: right}
		}
	}
	return left, nil
}

func (p *parser) parsePrimary() (node, error) {
	switch p.cur.kind {
	case tokNumber:
		n, err := parseFloatToken(p.cur.text, p.cur.pos)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return numberLit{v: n}, nil
	case tokString:
		s := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return stringLit{v: s}, nil
	case tokTrue:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return boolLit{v: true}, nil
	case tokFalse:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return boolLit{v: false}, nil
	case tokVariable:
		name := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return variableRef{name: name}, nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, errors.Wrapf(ErrParse, "unexpected token at position %d", p.cur.pos)
	}
}

func parseFloatToken(text string, pos int) (float64, error) {
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrParse, "invalid number %q at position %d", text, pos)
	}
	return n, nil
}
