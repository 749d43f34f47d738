package filterexpr

import "fmt"

type ErrorKind int

const (
	ErrUnterminatedQuote ErrorKind = iota + 1
	ErrInvalidEscapeSequence
	ErrMissingValue
	ErrInvalidSyntax
	ErrUnexpectedToken
	ErrUnexpectedEndOfInput
	ErrInvalidFunction
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnterminatedQuote:
		return "UnterminatedQuote"
	case ErrInvalidEscapeSequence:
		return "InvalidEscapeSequence"
	case ErrMissingValue:
		return "MissingValue"
	case ErrInvalidSyntax:
		return "InvalidSyntax"
	case ErrUnexpectedToken:
		return "UnexpectedToken"
	case ErrUnexpectedEndOfInput:
		return "UnexpectedEndOfInput"
	case ErrInvalidFunction:
		return "InvalidFunction"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ParseError is returned for any lexing or parsing failure. Only the fields
// relevant to Kind are populated.
type ParseError struct {
	Kind     ErrorKind
	Position int

	Token   string // ErrUnexpectedToken
	Quote   rune   // ErrUnterminatedQuote
	Key     string // ErrMissingValue
	Message string // ErrInvalidSyntax
	Name    string // ErrInvalidFunction
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrUnterminatedQuote:
		return fmt.Sprintf("Unterminated quote '%c' at position %d", e.Quote, e.Position)
	case ErrInvalidEscapeSequence:
		return fmt.Sprintf("Invalid escape sequence at position %d", e.Position)
	case ErrMissingValue:
		return fmt.Sprintf("Missing value for key '%s' at position %d", e.Key, e.Position)
	case ErrInvalidSyntax:
		return fmt.Sprintf("Invalid syntax: %s at position %d", e.Message, e.Position)
	case ErrUnexpectedToken:
		return fmt.Sprintf("Unexpected token '%s' at position %d", e.Token, e.Position)
	case ErrUnexpectedEndOfInput:
		return fmt.Sprintf("Unexpected end of input at position %d", e.Position)
	case ErrInvalidFunction:
		return fmt.Sprintf("Invalid function '%s' at position %d", e.Name, e.Position)
	default:
		return fmt.Sprintf("parse error at position %d", e.Position)
	}
}

func unexpected(tok Token) *ParseError {
	if tok.Type == TokenEOF {
		return &ParseError{Kind: ErrUnexpectedEndOfInput, Position: tok.Pos}
	}
	return &ParseError{Kind: ErrUnexpectedToken, Token: tok.display(), Position: tok.Pos}
}

func invalidSyntax(msg string, pos int) *ParseError {
	return &ParseError{Kind: ErrInvalidSyntax, Message: msg, Position: pos}
}
