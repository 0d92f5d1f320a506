package condition

// tokenType identifies a lexical token.
type tokenType uint8

const (
	tokenEOF tokenType = iota
	tokenIllegal
	tokenIdent  // colN column reference
	tokenInt    // integer literal
	tokenString // single-quoted string literal
	tokenAnd    // &&
	tokenOr     // ||
	tokenNot    // !
	tokenEq     // ==
	tokenLt     // <
	tokenLte    // <=
	tokenGt     // >
	tokenGte    // >=
	tokenLParen // (
	tokenRParen // )
)

type token struct {
	typ tokenType
	lit string
	pos int
}

// lexer walks the input byte-wise. Expressions are ASCII; any multibyte rune
// surfaces as an illegal token.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) next() token {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, pos: start}
	}

	ch := l.input[l.pos]
	switch {
	case ch == '(':
		l.pos++
		return token{typ: tokenLParen, lit: "(", pos: start}
	case ch == ')':
		l.pos++
		return token{typ: tokenRParen, lit: ")", pos: start}
	case ch == '&':
		if l.peekAt(l.pos+1) == '&' {
			l.pos += 2
			return token{typ: tokenAnd, lit: "&&", pos: start}
		}
	case ch == '|':
		if l.peekAt(l.pos+1) == '|' {
			l.pos += 2
			return token{typ: tokenOr, lit: "||", pos: start}
		}
	case ch == '!':
		l.pos++
		return token{typ: tokenNot, lit: "!", pos: start}
	case ch == '=':
		if l.peekAt(l.pos+1) == '=' {
			l.pos += 2
			return token{typ: tokenEq, lit: "==", pos: start}
		}
	case ch == '<':
		if l.peekAt(l.pos+1) == '=' {
			l.pos += 2
			return token{typ: tokenLte, lit: "<=", pos: start}
		}
		l.pos++
		return token{typ: tokenLt, lit: "<", pos: start}
	case ch == '>':
		if l.peekAt(l.pos+1) == '=' {
			l.pos += 2
			return token{typ: tokenGte, lit: ">=", pos: start}
		}
		l.pos++
		return token{typ: tokenGt, lit: ">", pos: start}
	case ch == '\'':
		return l.lexString()
	case isDigit(ch) || ch == '-':
		return l.lexInt()
	case isLetter(ch):
		return l.lexIdent()
	}

	l.pos++
	return token{typ: tokenIllegal, lit: string(ch), pos: start}
}

func (l *lexer) lexString() token {
	start := l.pos
	l.pos++ // opening quote
	for l.pos < len(l.input) && l.input[l.pos] != '\'' {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{typ: tokenIllegal, lit: l.input[start:], pos: start}
	}
	lit := l.input[start+1 : l.pos]
	l.pos++ // closing quote
	return token{typ: tokenString, lit: lit, pos: start}
}

func (l *lexer) lexInt() token {
	start := l.pos
	if l.input[l.pos] == '-' {
		l.pos++
		if l.pos >= len(l.input) || !isDigit(l.input[l.pos]) {
			return token{typ: tokenIllegal, lit: "-", pos: start}
		}
	}
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	return token{typ: tokenInt, lit: l.input[start:l.pos], pos: start}
}

func (l *lexer) lexIdent() token {
	start := l.pos
	for l.pos < len(l.input) && (isLetter(l.input[l.pos]) || isDigit(l.input[l.pos])) {
		l.pos++
	}
	return token{typ: tokenIdent, lit: l.input[start:l.pos], pos: start}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) peekAt(i int) byte {
	if i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

func isDigit(ch byte) bool  { return ch >= '0' && ch <= '9' }
func isLetter(ch byte) bool { return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_' }
