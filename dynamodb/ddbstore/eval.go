package ddbstore

import (
	"fmt"
	"strings"

	"github.com/acksell/dynamate/dynamodb/filterexpr"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// condition is a parsed filter or condition expression bound to the
// request's placeholder maps.
type condition struct {
	expr   filterexpr.Expression
	names  map[string]string
	values map[string]types.AttributeValue
}

// parseCondition parses a request expression. A nil or empty expression
// yields a nil condition, which matches everything.
func parseCondition(raw *string, names map[string]string, values map[string]types.AttributeValue) (*condition, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	expr, err := filterexpr.Parse(*raw, filterexpr.WithPlaceholders())
	if err != nil {
		return nil, validationErrorf("Invalid expression: %s", err)
	}
	return &condition{expr: expr, names: names, values: values}, nil
}

func (c *condition) matches(item map[string]types.AttributeValue) (bool, error) {
	if c == nil {
		return true, nil
	}
	return c.eval(c.expr, item)
}

func (c *condition) eval(expr filterexpr.Expression, item map[string]types.AttributeValue) (bool, error) {
	switch e := expr.(type) {
	case *filterexpr.And:
		left, err := c.eval(e.Left, item)
		if err != nil || !left {
			return false, err
		}
		return c.eval(e.Right, item)
	case *filterexpr.Or:
		left, err := c.eval(e.Left, item)
		if err != nil || left {
			return left, err
		}
		return c.eval(e.Right, item)
	case *filterexpr.Not:
		inner, err := c.eval(e.Inner, item)
		if err != nil {
			return false, err
		}
		return !inner, nil
	case *filterexpr.Parentheses:
		return c.eval(e.Inner, item)
	case *filterexpr.Comparison:
		return c.evalComparison(e, item)
	case *filterexpr.Between:
		v, ok, err := c.operand(e.Operand, item)
		if err != nil || !ok {
			return false, err
		}
		lo, lok, err := c.operand(e.Lower, item)
		if err != nil {
			return false, err
		}
		hi, hok, err := c.operand(e.Upper, item)
		if err != nil || !lok || !hok {
			return false, err
		}
		return compareBy(v, lo, filterexpr.GreaterOrEqual) && compareBy(v, hi, filterexpr.LessOrEqual), nil
	case *filterexpr.In:
		v, ok, err := c.operand(e.Operand, item)
		if err != nil || !ok {
			return false, err
		}
		for _, candidate := range e.Values {
			cv, cok, err := c.operand(candidate, item)
			if err != nil {
				return false, err
			}
			if cok && attributeValuesEqual(v, cv) {
				return true, nil
			}
		}
		return false, nil
	case *filterexpr.Function:
		return c.evalFunction(e, item)
	default:
		panic(fmt.Sprintf("unknown expression %T", expr))
	}
}

func (c *condition) evalComparison(e *filterexpr.Comparison, item map[string]types.AttributeValue) (bool, error) {
	left, lok, err := c.operand(e.Left, item)
	if err != nil {
		return false, err
	}
	right, rok, err := c.operand(e.Right, item)
	if err != nil {
		return false, err
	}
	if !lok || !rok {
		// A missing attribute is unequal to everything.
		return e.Operator == filterexpr.NotEqual, nil
	}
	return compareBy(left, right, e.Operator), nil
}

func (c *condition) evalFunction(f *filterexpr.Function, item map[string]types.AttributeValue) (bool, error) {
	switch f.Name {
	case filterexpr.FuncAttributeExists, filterexpr.FuncAttributeNotExists:
		if err := c.arity(f, 1); err != nil {
			return false, err
		}
		name, err := c.pathName(f, f.Args[0])
		if err != nil {
			return false, err
		}
		_, exists := item[name]
		return exists == (f.Name == filterexpr.FuncAttributeExists), nil

	case filterexpr.FuncAttributeType:
		if err := c.arity(f, 2); err != nil {
			return false, err
		}
		name, err := c.pathName(f, f.Args[0])
		if err != nil {
			return false, err
		}
		want, ok, err := c.operand(f.Args[1], item)
		if err != nil {
			return false, err
		}
		typ, isString := want.(*types.AttributeValueMemberS)
		if !ok || !isString {
			return false, validationErrorf("attribute_type requires a string type argument")
		}
		v, exists := item[name]
		return exists && typeName(v) == typ.Value, nil

	case filterexpr.FuncBeginsWith:
		if err := c.arity(f, 2); err != nil {
			return false, err
		}
		v, ok, err := c.operand(f.Args[0], item)
		if err != nil || !ok {
			return false, err
		}
		prefix, pok, err := c.operand(f.Args[1], item)
		if err != nil || !pok {
			return false, err
		}
		return beginsWith(v, prefix), nil

	case filterexpr.FuncContains:
		if err := c.arity(f, 2); err != nil {
			return false, err
		}
		v, ok, err := c.operand(f.Args[0], item)
		if err != nil || !ok {
			return false, err
		}
		needle, nok, err := c.operand(f.Args[1], item)
		if err != nil || !nok {
			return false, err
		}
		return contains(v, needle), nil

	case filterexpr.FuncSize:
		return false, validationErrorf("size() must be used in a comparison")

	default:
		return false, validationErrorf("Invalid function name: %s", f.Name)
	}
}

func (c *condition) arity(f *filterexpr.Function, n int) error {
	if len(f.Args) != n {
		return validationErrorf("Incorrect number of operands for %s: expected %d, got %d", f.Name, n, len(f.Args))
	}
	return nil
}

func (c *condition) pathName(f *filterexpr.Function, op filterexpr.Operand) (string, error) {
	path, ok := op.(filterexpr.Path)
	if !ok {
		return "", validationErrorf("%s requires an attribute path, got %s", f.Name, op)
	}
	return c.resolveName(path.Name)
}

// resolveName maps a #placeholder to its attribute name. Plain names are
// used as they are.
func (c *condition) resolveName(name string) (string, error) {
	if !strings.HasPrefix(name, "#") {
		return name, nil
	}
	resolved, ok := c.names[name]
	if !ok {
		return "", validationErrorf("An expression attribute name used in the document path is not defined; attribute name: %s", name)
	}
	return resolved, nil
}

// operand resolves an operand against the item. ok is false when a path
// names an attribute the item does not have.
func (c *condition) operand(op filterexpr.Operand, item map[string]types.AttributeValue) (types.AttributeValue, bool, error) {
	switch o := op.(type) {
	case filterexpr.Path:
		name, err := c.resolveName(o.Name)
		if err != nil {
			return nil, false, err
		}
		v, ok := item[name]
		return v, ok, nil
	case filterexpr.ValueRef:
		v, ok := c.values[o.Name]
		if !ok {
			return nil, false, validationErrorf("An expression attribute value used in expression is not defined; attribute value: %s", o.Name)
		}
		return v, true, nil
	default:
		v, ok := filterexpr.AttributeValue(op)
		if !ok {
			panic(fmt.Sprintf("operand %T has no value", op))
		}
		return v, true, nil
	}
}

func typeName(av types.AttributeValue) string {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		return "S"
	case *types.AttributeValueMemberN:
		return "N"
	case *types.AttributeValueMemberB:
		return "B"
	case *types.AttributeValueMemberBOOL:
		return "BOOL"
	case *types.AttributeValueMemberNULL:
		return "NULL"
	case *types.AttributeValueMemberSS:
		return "SS"
	case *types.AttributeValueMemberNS:
		return "NS"
	case *types.AttributeValueMemberBS:
		return "BS"
	case *types.AttributeValueMemberL:
		return "L"
	case *types.AttributeValueMemberM:
		return "M"
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%T", av)
	}
}
