package filterexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression is the root interface for all filter AST nodes. The set of
// implementations is closed: Comparison, Between, In, Function, And, Or, Not
// and Parentheses. Consumers switch over them and panic on anything else.
type Expression interface {
	expression()
	String() string
}

// Operand is a leaf value: Path, Value, Number, Boolean, Null or ValueRef.
type Operand interface {
	operand()
	String() string
}

type Comparator int

const (
	Equal Comparator = iota
	NotEqual
	Less
	LessOrEqual
	Greater
	GreaterOrEqual
)

// Symbol returns the store syntax for the comparator.
func (c Comparator) Symbol() string {
	switch c {
	case Equal:
		return "="
	case NotEqual:
		return "<>"
	case Less:
		return "<"
	case LessOrEqual:
		return "<="
	case Greater:
		return ">"
	case GreaterOrEqual:
		return ">="
	default:
		panic(fmt.Sprintf("unknown comparator %d", int(c)))
	}
}

func (c Comparator) String() string {
	switch c {
	case Equal:
		return "Equal"
	case NotEqual:
		return "NotEqual"
	case Less:
		return "Less"
	case LessOrEqual:
		return "LessOrEqual"
	case Greater:
		return "Greater"
	case GreaterOrEqual:
		return "GreaterOrEqual"
	default:
		return fmt.Sprintf("Comparator(%d)", int(c))
	}
}

type FunctionName string

const (
	FuncAttributeExists    FunctionName = "attribute_exists"
	FuncAttributeNotExists FunctionName = "attribute_not_exists"
	FuncAttributeType      FunctionName = "attribute_type"
	FuncBeginsWith         FunctionName = "begins_with"
	FuncContains           FunctionName = "contains"
	FuncSize               FunctionName = "size"
)

var functionNames = map[string]FunctionName{
	string(FuncAttributeExists):    FuncAttributeExists,
	string(FuncAttributeNotExists): FuncAttributeNotExists,
	string(FuncAttributeType):      FuncAttributeType,
	string(FuncBeginsWith):         FuncBeginsWith,
	string(FuncContains):           FuncContains,
	string(FuncSize):               FuncSize,
}

// LookupFunction resolves a function name case-insensitively.
func LookupFunction(name string) (FunctionName, bool) {
	fn, ok := functionNames[strings.ToLower(name)]
	return fn, ok
}

// Operands

// Path references an attribute by name.
type Path struct {
	Name string
}

// Value is a string literal.
type Value struct {
	Text string
}

type Number struct {
	Value float64
}

type Boolean struct {
	Value bool
}

type Null struct{}

// ValueRef is an expression attribute value placeholder such as ":v0". It is
// only produced when parsing WithPlaceholders.
type ValueRef struct {
	Name string
}

func (Path) operand()     {}
func (Value) operand()    {}
func (Number) operand()   {}
func (Boolean) operand()  {}
func (Null) operand()     {}
func (ValueRef) operand() {}

func (p Path) String() string     { return p.Name }
func (v Value) String() string    { return strconv.Quote(v.Text) }
func (n Number) String() string   { return FormatNumber(n.Value) }
func (b Boolean) String() string  { return strconv.FormatBool(b.Value) }
func (Null) String() string       { return "null" }
func (r ValueRef) String() string { return r.Name }

// FormatNumber formats a number literal as its shortest decimal form,
// which is also the wire format for N values.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Expressions

type Comparison struct {
	Left     Operand
	Operator Comparator
	Right    Operand
}

type Between struct {
	Operand Operand
	Lower   Operand
	Upper   Operand
}

type In struct {
	Operand Operand
	Values  []Operand
}

type Function struct {
	Name FunctionName
	Args []Operand
}

type And struct {
	Left  Expression
	Right Expression
}

type Or struct {
	Left  Expression
	Right Expression
}

type Not struct {
	Inner Expression
}

type Parentheses struct {
	Inner Expression
}

func (*Comparison) expression()  {}
func (*Between) expression()     {}
func (*In) expression()          {}
func (*Function) expression()    {}
func (*And) expression()         {}
func (*Or) expression()          {}
func (*Not) expression()         {}
func (*Parentheses) expression() {}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Operator.Symbol(), c.Right)
}

func (b *Between) String() string {
	return fmt.Sprintf("%s BETWEEN %s AND %s", b.Operand, b.Lower, b.Upper)
}

func (in *In) String() string {
	return fmt.Sprintf("%s IN (%s)", in.Operand, joinOperands(in.Values))
}

func (f *Function) String() string {
	return fmt.Sprintf("%s(%s)", f.Name, joinOperands(f.Args))
}

func (a *And) String() string {
	return fmt.Sprintf("%s AND %s", a.Left, a.Right)
}

func (o *Or) String() string {
	return fmt.Sprintf("%s OR %s", o.Left, o.Right)
}

func (n *Not) String() string {
	return "NOT " + n.Inner.String()
}

func (p *Parentheses) String() string {
	return "(" + p.Inner.String() + ")"
}

func joinOperands(ops []Operand) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, ", ")
}
