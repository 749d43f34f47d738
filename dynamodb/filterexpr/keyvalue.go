package filterexpr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Assignment is a single key=value pair. Value is one of Value, Number,
// Boolean or Null.
type Assignment struct {
	Key   string
	Value Operand
}

type Assignments []Assignment

// ParseAssignments parses whitespace separated key=value pairs, as used for
// item keys and quick puts:
//
//	pk="user#1" sk=007 age=42 active=true note=null
//
// Unquoted values are inferred: true/false/null (any case), then integers and
// floats, then plain strings. Quoted values are always strings.
func ParseAssignments(input string) (Assignments, error) {
	s := &kvScanner{input: []rune(input)}
	var out Assignments
	for {
		s.skipWhitespace()
		if s.done() {
			return out, nil
		}
		a, err := s.assignment()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
}

// Map returns the assignments keyed by name. Later keys win.
func (as Assignments) Map() map[string]Operand {
	m := make(map[string]Operand, len(as))
	for _, a := range as {
		m[a.Key] = a.Value
	}
	return m
}

// Item converts the assignments to a store item.
func (as Assignments) Item() (map[string]types.AttributeValue, error) {
	plain := make(map[string]any, len(as))
	for _, a := range as {
		switch v := a.Value.(type) {
		case Value:
			plain[a.Key] = v.Text
		case Number:
			plain[a.Key] = attributevalue.Number(FormatNumber(v.Value))
		case Boolean:
			plain[a.Key] = v.Value
		case Null:
			plain[a.Key] = nil
		default:
			return nil, fmt.Errorf("unsupported value %T for key %q", a.Value, a.Key)
		}
	}
	item, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return nil, fmt.Errorf("marshal assignments: %w", err)
	}
	return item, nil
}

type kvScanner struct {
	input []rune
	pos   int
}

func (s *kvScanner) done() bool {
	return s.pos >= len(s.input)
}

func (s *kvScanner) skipWhitespace() {
	for !s.done() && unicode.IsSpace(s.input[s.pos]) {
		s.pos++
	}
}

func (s *kvScanner) assignment() (Assignment, error) {
	if s.done() {
		return Assignment{}, invalidSyntax("Unexpected end of input", s.pos)
	}
	key, _, err := s.token()
	if err != nil {
		return Assignment{}, err
	}
	if s.done() || s.input[s.pos] != '=' {
		return Assignment{}, &ParseError{Kind: ErrMissingValue, Key: key, Position: s.pos}
	}
	s.pos++

	s.skipWhitespace()
	if s.done() {
		return Assignment{}, invalidSyntax("Expected value after '='", s.pos)
	}
	text, quoted, err := s.token()
	if err != nil {
		return Assignment{}, err
	}
	if quoted {
		return Assignment{Key: key, Value: Value{Text: text}}, nil
	}
	return Assignment{Key: key, Value: inferValue(text)}, nil
}

// token reads a quoted string or a bare run up to whitespace or '='.
func (s *kvScanner) token() (string, bool, error) {
	if ch := s.input[s.pos]; ch == '"' || ch == '\'' {
		lex := &Lexer{input: s.input, pos: s.pos}
		text, err := lex.readQuoted(ch)
		if err != nil {
			return "", false, err
		}
		s.pos = lex.pos
		return text, true, nil
	}

	start := s.pos
	for !s.done() && !unicode.IsSpace(s.input[s.pos]) && s.input[s.pos] != '=' {
		s.pos++
	}
	if s.pos == start {
		return "", false, invalidSyntax("Empty token", start)
	}
	return string(s.input[start:s.pos]), false, nil
}

func inferValue(text string) Operand {
	switch strings.ToLower(text) {
	case "true":
		return Boolean{Value: true}
	case "false":
		return Boolean{Value: false}
	case "null":
		return Null{}
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Number{Value: float64(i)}
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Number{Value: f}
	}
	return Value{Text: text}
}
