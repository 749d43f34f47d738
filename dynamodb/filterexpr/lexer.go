package filterexpr

import (
	"strconv"
	"strings"
	"unicode"
)

// Option configures the lexer and parser.
type Option func(*options)

type options struct {
	placeholders bool
}

// WithPlaceholders makes the lexer accept expression attribute placeholders:
// "#name" lexes as an identifier (keeping the '#') and ":value" as a value
// reference. Rendered key conditions and filters are written this way.
func WithPlaceholders() Option {
	return func(o *options) {
		o.placeholders = true
	}
}

// Lexer turns filter text into tokens. It holds no state between tokens
// other than its cursor.
type Lexer struct {
	input []rune
	pos   int
	opts  options
}

func NewLexer(input string, opts ...Option) *Lexer {
	l := &Lexer{input: []rune(input)}
	for _, opt := range opts {
		opt(&l.opts)
	}
	return l
}

// Position returns the cursor as a rune offset.
func (l *Lexer) Position() int {
	return l.pos
}

func (l *Lexer) save() int {
	return l.pos
}

func (l *Lexer) restore(pos int) {
	l.pos = pos
}

func (l *Lexer) current() (rune, bool) {
	if l.pos >= len(l.input) {
		return 0, false
	}
	return l.input[l.pos], true
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

// PeekToken returns the next token without consuming it.
func (l *Lexer) PeekToken() (Token, error) {
	saved := l.save()
	tok, err := l.NextToken()
	l.restore(saved)
	return tok, err
}

// NextToken consumes and returns the next token.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	start := l.pos
	ch, ok := l.current()
	if !ok {
		return Token{Type: TokenEOF, Pos: start}, nil
	}

	single := func(typ TokenType) (Token, error) {
		l.pos++
		return Token{Type: typ, Text: string(ch), Pos: start}, nil
	}

	switch {
	case ch == '(':
		return single(TokenLeftParen)
	case ch == ')':
		return single(TokenRightParen)
	case ch == ',':
		return single(TokenComma)
	case ch == '=':
		return single(TokenEqual)
	case ch == '!':
		l.pos++
		if next, ok := l.current(); ok && next == '=' {
			l.pos++
			return Token{Type: TokenNotEqual, Text: "!=", Pos: start}, nil
		}
		return Token{}, &ParseError{Kind: ErrUnexpectedToken, Token: "!", Position: start}
	case ch == '<':
		l.pos++
		next, _ := l.current()
		switch next {
		case '=':
			l.pos++
			return Token{Type: TokenLessOrEqual, Text: "<=", Pos: start}, nil
		case '>':
			l.pos++
			return Token{Type: TokenNotEqual, Text: "<>", Pos: start}, nil
		}
		return Token{Type: TokenLess, Text: "<", Pos: start}, nil
	case ch == '>':
		l.pos++
		if next, ok := l.current(); ok && next == '=' {
			l.pos++
			return Token{Type: TokenGreaterOrEqual, Text: ">=", Pos: start}, nil
		}
		return Token{Type: TokenGreater, Text: ">", Pos: start}, nil
	case ch == '"' || ch == '\'':
		s, err := l.readQuoted(ch)
		if err != nil {
			return Token{}, err
		}
		return Token{Type: TokenString, Text: s, Pos: start}, nil
	case ch == '`':
		s, err := l.readQuoted(ch)
		if err != nil {
			return Token{}, err
		}
		if s == "" {
			return Token{}, invalidSyntax("empty attribute name", start)
		}
		return Token{Type: TokenIdentifier, Text: s, Pos: start}, nil
	case isIdentStart(ch):
		return l.classify(l.readIdentifier(), start), nil
	case isDigit(ch):
		return l.readNumber()
	case l.opts.placeholders && (ch == '#' || ch == ':'):
		l.pos++
		next, ok := l.current()
		if !ok || !isIdentChar(next) {
			return Token{}, &ParseError{Kind: ErrUnexpectedToken, Token: string(ch), Position: start}
		}
		name := string(ch) + l.readIdentifier()
		if ch == '#' {
			return Token{Type: TokenIdentifier, Text: name, Pos: start}, nil
		}
		return Token{Type: TokenValueRef, Text: name, Pos: start}, nil
	}

	return Token{}, &ParseError{Kind: ErrUnexpectedToken, Token: string(ch), Position: start}
}

// readQuoted reads a quoted run starting at the opening quote.
func (l *Lexer) readQuoted(quote rune) (string, error) {
	start := l.pos
	l.pos++

	var sb strings.Builder
	for {
		ch, ok := l.current()
		if !ok {
			return "", &ParseError{Kind: ErrUnterminatedQuote, Quote: quote, Position: start}
		}
		switch ch {
		case quote:
			l.pos++
			return sb.String(), nil
		case '\\':
			l.pos++
			escaped, ok := l.current()
			if !ok {
				return "", &ParseError{Kind: ErrInvalidEscapeSequence, Position: l.pos}
			}
			switch escaped {
			case 'n':
				sb.WriteRune('\n')
			case 'r':
				sb.WriteRune('\r')
			case 't':
				sb.WriteRune('\t')
			default:
				// \\, \", \' and anything unknown are taken literally.
				sb.WriteRune(escaped)
			}
			l.pos++
		default:
			sb.WriteRune(ch)
			l.pos++
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
	return string(l.input[start:l.pos])
}

func (l *Lexer) classify(word string, start int) Token {
	upper := strings.ToUpper(word)
	typ, ok := keywords[upper]
	if !ok {
		return Token{Type: TokenIdentifier, Text: word, Pos: start}
	}
	tok := Token{Type: typ, Text: word, Pos: start}
	if typ == TokenBoolean {
		tok.Bool = upper == "TRUE"
	}
	return tok
}

func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '.') {
		l.pos++
	}
	text := string(l.input[start:l.pos])
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, invalidSyntax("invalid number '"+text+"'", start)
	}
	return Token{Type: TokenNumber, Text: text, Number: n, Pos: start}, nil
}

func isIdentStart(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
