package filterexpr

// Parse parses a complete filter expression. The whole input must be
// consumed; trailing tokens are an error.
func Parse(input string, opts ...Option) (Expression, error) {
	p := &parser{lex: NewLexer(input, opts...)}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	tok, err := p.lex.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenEOF {
		return nil, unexpected(tok)
	}
	return expr, nil
}

type parser struct {
	lex *Lexer
}

func (p *parser) peekIs(typ TokenType) (bool, error) {
	tok, err := p.lex.PeekToken()
	if err != nil {
		return false, err
	}
	return tok.Type == typ, nil
}

// expect consumes the next token and fails unless it has the given type.
func (p *parser) expect(typ TokenType) error {
	tok, err := p.lex.NextToken()
	if err != nil {
		return err
	}
	if tok.Type != typ {
		return unexpected(tok)
	}
	return nil
}

func (p *parser) parseOr() (Expression, error) {
	expr, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		ok, err := p.peekIs(TokenOr)
		if err != nil {
			return nil, err
		}
		if !ok {
			return expr, nil
		}
		p.lex.NextToken()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		expr = &Or{Left: expr, Right: right}
	}
}

func (p *parser) parseAnd() (Expression, error) {
	expr, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		ok, err := p.peekIs(TokenAnd)
		if err != nil {
			return nil, err
		}
		if !ok {
			return expr, nil
		}
		p.lex.NextToken()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		expr = &And{Left: expr, Right: right}
	}
}

func (p *parser) parseNot() (Expression, error) {
	ok, err := p.peekIs(TokenNot)
	if err != nil {
		return nil, err
	}
	if !ok {
		return p.parsePrimary()
	}
	p.lex.NextToken()
	inner, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return &Not{Inner: inner}, nil
}

func (p *parser) parsePrimary() (Expression, error) {
	tok, err := p.lex.PeekToken()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case TokenLeftParen:
		p.lex.NextToken()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen); err != nil {
			return nil, err
		}
		return &Parentheses{Inner: inner}, nil
	case TokenIdentifier:
		if p.isFunctionStart() {
			return p.parseFunction()
		}
	}
	return p.parseOperandExpression()
}

// isFunctionStart reports whether the cursor sits on a known function name
// followed by '('. The cursor is always restored.
func (p *parser) isFunctionStart() bool {
	saved := p.lex.save()
	defer p.lex.restore(saved)

	tok, err := p.lex.NextToken()
	if err != nil || tok.Type != TokenIdentifier {
		return false
	}
	if _, ok := LookupFunction(tok.Text); !ok {
		return false
	}
	next, err := p.lex.NextToken()
	return err == nil && next.Type == TokenLeftParen
}

func (p *parser) parseFunction() (Expression, error) {
	tok, err := p.lex.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenIdentifier {
		return nil, invalidSyntax("Expected function name", tok.Pos)
	}
	name, ok := LookupFunction(tok.Text)
	if !ok {
		return nil, &ParseError{Kind: ErrInvalidFunction, Name: tok.Text, Position: tok.Pos}
	}
	if err := p.expect(TokenLeftParen); err != nil {
		return nil, err
	}
	args, err := p.parseOperandList()
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, invalidSyntax(string(name)+" requires at least one argument", tok.Pos)
	}
	return &Function{Name: name, Args: args}, nil
}

// parseOperandList parses "a, b, c)" after an opening parenthesis has been
// consumed. An immediately closing parenthesis yields no operands; a
// trailing comma is an error.
func (p *parser) parseOperandList() ([]Operand, error) {
	closed, err := p.peekIs(TokenRightParen)
	if err != nil {
		return nil, err
	}
	if closed {
		p.lex.NextToken()
		return nil, nil
	}

	var ops []Operand
	for {
		op, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)

		tok, err := p.lex.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenComma:
		case TokenRightParen:
			return ops, nil
		default:
			return nil, unexpected(tok)
		}
	}
}

var comparators = map[TokenType]Comparator{
	TokenEqual:          Equal,
	TokenNotEqual:       NotEqual,
	TokenLess:           Less,
	TokenLessOrEqual:    LessOrEqual,
	TokenGreater:        Greater,
	TokenGreaterOrEqual: GreaterOrEqual,
}

func (p *parser) parseOperandExpression() (Expression, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	tok, err := p.lex.PeekToken()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenBetween:
		p.lex.NextToken()
		lower, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenAnd); err != nil {
			return nil, err
		}
		upper, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &Between{Operand: left, Lower: lower, Upper: upper}, nil

	case TokenIn:
		p.lex.NextToken()
		if err := p.expect(TokenLeftParen); err != nil {
			return nil, err
		}
		values, err := p.parseOperandList()
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, invalidSyntax("IN requires at least one value", tok.Pos)
		}
		return &In{Operand: left, Values: values}, nil
	}

	if cmp, ok := comparators[tok.Type]; ok {
		p.lex.NextToken()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &Comparison{Left: left, Operator: cmp, Right: right}, nil
	}

	if tok.Type == TokenEOF {
		return nil, unexpected(tok)
	}
	return nil, invalidSyntax("Expected comparison operator, BETWEEN, or IN", tok.Pos)
}

func (p *parser) parseOperand() (Operand, error) {
	tok, err := p.lex.NextToken()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case TokenIdentifier:
		return Path{Name: tok.Text}, nil
	case TokenString:
		return Value{Text: tok.Text}, nil
	case TokenNumber:
		return Number{Value: tok.Number}, nil
	case TokenBoolean:
		return Boolean{Value: tok.Bool}, nil
	case TokenNull:
		return Null{}, nil
	case TokenValueRef:
		return ValueRef{Name: tok.Text}, nil
	default:
		return nil, unexpected(tok)
	}
}
