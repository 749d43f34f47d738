// Package render turns access plans and filter trees into DynamoDB
// expression strings. Attribute names are always replaced by #nameN
// placeholders and literals by :valN placeholders, numbered from zero for
// every new Renderer.
package render

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/acksell/dynamate/dynamodb/filterexpr"
	"github.com/acksell/dynamate/dynamodb/planner"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Expression is a rendered expression with the placeholders it uses.
type Expression struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

// Renderer allocates placeholders for one request. Key condition and filter
// passes on the same Renderer never reuse a placeholder.
type Renderer struct {
	nextName  int
	nextValue int
	names     map[string]string
	values    map[string]types.AttributeValue
}

func NewRenderer() *Renderer {
	return &Renderer{
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
	}
}

func (r *Renderer) name(attr string) string {
	placeholder := "#name" + strconv.Itoa(r.nextName)
	r.nextName++
	r.names[placeholder] = attr
	return placeholder
}

func (r *Renderer) value(av types.AttributeValue) string {
	placeholder := ":val" + strconv.Itoa(r.nextValue)
	r.nextValue++
	r.values[placeholder] = av
	return placeholder
}

// Names returns a copy of the name placeholders allocated so far.
func (r *Renderer) Names() map[string]string {
	return maps.Clone(r.names)
}

// Values returns a copy of the value placeholders allocated so far.
func (r *Renderer) Values() map[string]types.AttributeValue {
	return maps.Clone(r.values)
}

// KeyCondition renders the key conditions of the plan, hash first, joined
// with AND. A FullScan plan has no key condition and reports false.
func (r *Renderer) KeyCondition(plan planner.AccessPlan) (string, bool) {
	conds := plan.KeyConditions()
	if len(conds) == 0 {
		return "", false
	}
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = r.keyCondition(c)
	}
	return strings.Join(parts, " AND "), true
}

func (r *Renderer) keyCondition(c planner.KeyCondition) string {
	name := r.name(c.AttributeName)
	switch c.Kind {
	case planner.KeyBetween:
		lo := r.value(c.Value)
		hi := r.value(c.Upper)
		return fmt.Sprintf("%s BETWEEN %s AND %s", name, lo, hi)
	case planner.KeyBeginsWith:
		return fmt.Sprintf("begins_with(%s, %s)", name, r.value(c.Value))
	default:
		op, ok := c.Kind.Symbol()
		if !ok {
			panic(fmt.Sprintf("unhandled key condition kind %s", c.Kind))
		}
		return fmt.Sprintf("%s %s %s", name, op, r.value(c.Value))
	}
}

// Residual would render the parts of expr not consumed by the plan's key
// conditions as a filter. It currently never produces one, so conditions
// beyond the key conditions are not applied on indexed paths.
//
// TODO: render expr minus the consumed key conditions once dropping them is
// confirmed to be unintended.
func (r *Renderer) Residual(plan planner.AccessPlan, expr filterexpr.Expression) (string, bool) {
	return "", false
}

// Filter renders the whole expression tree as a filter expression. A nil
// expression renders as the empty string.
func (r *Renderer) Filter(expr filterexpr.Expression) string {
	if expr == nil {
		return ""
	}
	switch e := expr.(type) {
	case *filterexpr.Comparison:
		return fmt.Sprintf("%s %s %s", r.operand(e.Left), e.Operator.Symbol(), r.operand(e.Right))
	case *filterexpr.Between:
		o := r.operand(e.Operand)
		lo := r.operand(e.Lower)
		hi := r.operand(e.Upper)
		return fmt.Sprintf("%s BETWEEN %s AND %s", o, lo, hi)
	case *filterexpr.In:
		o := r.operand(e.Operand)
		return fmt.Sprintf("%s IN (%s)", o, r.operands(e.Values))
	case *filterexpr.Function:
		return fmt.Sprintf("%s(%s)", e.Name, r.operands(e.Args))
	case *filterexpr.And:
		left := r.Filter(e.Left)
		return fmt.Sprintf("(%s) AND (%s)", left, r.Filter(e.Right))
	case *filterexpr.Or:
		left := r.Filter(e.Left)
		return fmt.Sprintf("(%s) OR (%s)", left, r.Filter(e.Right))
	case *filterexpr.Not:
		return fmt.Sprintf("NOT (%s)", r.Filter(e.Inner))
	case *filterexpr.Parentheses:
		return fmt.Sprintf("(%s)", r.Filter(e.Inner))
	default:
		panic(fmt.Sprintf("unknown expression %T", expr))
	}
}

func (r *Renderer) operands(ops []filterexpr.Operand) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = r.operand(op)
	}
	return strings.Join(parts, ", ")
}

func (r *Renderer) operand(op filterexpr.Operand) string {
	switch o := op.(type) {
	case filterexpr.Path:
		return r.name(o.Name)
	case filterexpr.ValueRef:
		return o.Name
	default:
		av, ok := filterexpr.AttributeValue(op)
		if !ok {
			panic(fmt.Sprintf("operand %T has no value", op))
		}
		return r.value(av)
	}
}

// result copies the placeholders allocated so far into an Expression.
func (r *Renderer) result(expr string) Expression {
	return Expression{Expression: expr, Names: r.Names(), Values: r.Values()}
}

// KeyCondition renders the plan's key condition with fresh placeholders. It
// returns nil for a FullScan plan.
func KeyCondition(plan planner.AccessPlan) *Expression {
	r := NewRenderer()
	expr, ok := r.KeyCondition(plan)
	if !ok {
		return nil
	}
	out := r.result(expr)
	return &out
}

// Filter renders expr as a filter with fresh placeholders.
func Filter(expr filterexpr.Expression) Expression {
	r := NewRenderer()
	return r.result(r.Filter(expr))
}

// QueryExpressions is everything a Query or Scan request needs. Empty
// strings mean the expression is absent.
type QueryExpressions struct {
	KeyCondition string
	Filter       string
	Names        map[string]string
	Values       map[string]types.AttributeValue
}

// Query renders a complete request for plan. Scans get the whole expression
// as their filter; indexed paths get the key condition and the residual
// filter, which share one set of placeholders.
func Query(plan planner.AccessPlan, expr filterexpr.Expression) QueryExpressions {
	r := NewRenderer()
	var out QueryExpressions
	if key, ok := r.KeyCondition(plan); ok {
		out.KeyCondition = key
		if residual, ok := r.Residual(plan, expr); ok {
			out.Filter = residual
		}
	} else {
		out.Filter = r.Filter(expr)
	}
	out.Names = r.Names()
	out.Values = r.Values()
	return out
}
