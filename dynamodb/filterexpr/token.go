package filterexpr

import "fmt"

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdentifier
	TokenString
	TokenNumber
	TokenBoolean
	TokenNull
	TokenValueRef

	TokenEqual
	TokenNotEqual
	TokenLess
	TokenLessOrEqual
	TokenGreater
	TokenGreaterOrEqual

	TokenAnd
	TokenOr
	TokenNot
	TokenBetween
	TokenIn

	TokenLeftParen
	TokenRightParen
	TokenComma
)

var tokenNames = map[TokenType]string{
	TokenEOF:            "EOF",
	TokenIdentifier:     "IDENTIFIER",
	TokenString:         "STRING",
	TokenNumber:         "NUMBER",
	TokenBoolean:        "BOOLEAN",
	TokenNull:           "NULL",
	TokenValueRef:       "VALUE_REF",
	TokenEqual:          "=",
	TokenNotEqual:       "<>",
	TokenLess:           "<",
	TokenLessOrEqual:    "<=",
	TokenGreater:        ">",
	TokenGreaterOrEqual: ">=",
	TokenAnd:            "AND",
	TokenOr:             "OR",
	TokenNot:            "NOT",
	TokenBetween:        "BETWEEN",
	TokenIn:             "IN",
	TokenLeftParen:      "(",
	TokenRightParen:     ")",
	TokenComma:          ",",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var keywords = map[string]TokenType{
	"AND":     TokenAnd,
	"OR":      TokenOr,
	"NOT":     TokenNot,
	"BETWEEN": TokenBetween,
	"IN":      TokenIn,
	"TRUE":    TokenBoolean,
	"FALSE":   TokenBoolean,
	"NULL":    TokenNull,
}

// Token is a single lexeme. Pos is the rune offset of its first character.
type Token struct {
	Type TokenType
	// Text holds the identifier name, the unescaped string contents, or the
	// raw lexeme for everything else.
	Text   string
	Number float64
	Bool   bool
	Pos    int
}

// display renders the token the way it appears in error messages.
func (t Token) display() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenString:
		return fmt.Sprintf("%q", t.Text)
	case TokenIdentifier, TokenNumber, TokenBoolean, TokenNull, TokenValueRef:
		return t.Text
	default:
		if t.Text != "" {
			return t.Text
		}
		return t.Type.String()
	}
}
