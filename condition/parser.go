package condition

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxDepth bounds parenthesis/negation nesting so adversarial expressions
// cannot exhaust the stack.
const MaxDepth = 64

// Parse parses an expression into a condition tree. An empty or
// whitespace-only input yields a nil tree, which matches everything.
func Parse(input string) (*Condition, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	p := &parser{lex: newLexer(input)}
	p.advance()

	cond, err := p.parseOr(0)
	if err != nil {
		return nil, err
	}
	if p.tok.typ != tokenEOF {
		return nil, p.errorf("unexpected %q", p.tok.lit)
	}
	return cond, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() { p.tok = p.lex.next() }

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: p.tok.pos, Message: fmt.Sprintf(format, args...)}
}

// parseOr := parseAnd (|| parseAnd)*
func (p *parser) parseOr(depth int) (*Condition, error) {
	left, err := p.parseAnd(depth)
	if err != nil {
		return nil, err
	}
	for p.tok.typ == tokenOr {
		p.advance()
		right, err := p.parseAnd(depth)
		if err != nil {
			return nil, err
		}
		left = &Condition{Op: OpOr, First: CondChild(left), Second: CondChild(right)}
	}
	return left, nil
}

// parseAnd := parseUnary (&& parseUnary)*
func (p *parser) parseAnd(depth int) (*Condition, error) {
	left, err := p.parseUnary(depth)
	if err != nil {
		return nil, err
	}
	for p.tok.typ == tokenAnd {
		p.advance()
		right, err := p.parseUnary(depth)
		if err != nil {
			return nil, err
		}
		left = &Condition{Op: OpAnd, First: CondChild(left), Second: CondChild(right)}
	}
	return left, nil
}

// parseUnary := '!' parseUnary | '(' parseOr ')' | comparison
func (p *parser) parseUnary(depth int) (*Condition, error) {
	if depth >= MaxDepth {
		return nil, p.errorf("expression nested deeper than %d", MaxDepth)
	}
	switch p.tok.typ {
	case tokenNot:
		p.advance()
		inner, err := p.parseUnary(depth + 1)
		if err != nil {
			return nil, err
		}
		return &Condition{Op: OpNot, First: CondChild(inner)}, nil
	case tokenLParen:
		p.advance()
		inner, err := p.parseOr(depth + 1)
		if err != nil {
			return nil, err
		}
		if p.tok.typ != tokenRParen {
			return nil, p.errorf("expected ')', got %q", p.tok.lit)
		}
		p.advance()
		return inner, nil
	default:
		return p.parseComparison()
	}
}

// parseComparison := column cmpop literal
func (p *parser) parseComparison() (*Condition, error) {
	if p.tok.typ != tokenIdent {
		return nil, p.errorf("expected column reference, got %q", p.tok.lit)
	}
	col, err := parseColumnRef(p.tok.lit)
	if err != nil {
		return nil, p.errorf("bad column reference %q", p.tok.lit)
	}
	p.advance()

	var op Op
	switch p.tok.typ {
	case tokenEq:
		op = OpEq
	case tokenLt:
		op = OpLt
	case tokenLte:
		op = OpLte
	case tokenGt:
		op = OpGt
	case tokenGte:
		op = OpGte
	default:
		return nil, p.errorf("expected comparison operator, got %q", p.tok.lit)
	}
	p.advance()

	var value Child
	switch p.tok.typ {
	case tokenInt:
		v, err := strconv.ParseInt(p.tok.lit, 10, 64)
		if err != nil {
			return nil, p.errorf("bad integer literal %q", p.tok.lit)
		}
		value = IntChild(v)
	case tokenString:
		value = TextChild(p.tok.lit)
	default:
		return nil, p.errorf("expected literal, got %q", p.tok.lit)
	}
	p.advance()

	return &Condition{Op: op, First: IntChild(col), Second: value}, nil
}

// parseColumnRef extracts N from a "colN" identifier.
func parseColumnRef(ident string) (int64, error) {
	num, ok := strings.CutPrefix(ident, "col")
	if !ok || num == "" {
		return 0, ErrInvalidSyntax
	}
	return strconv.ParseInt(num, 10, 64)
}
