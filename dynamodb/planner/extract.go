package planner

import (
	"fmt"

	"github.com/acksell/dynamate/dynamodb/filterexpr"
)

// ConditionSource records which construct produced a ConditionInfo.
type ConditionSource int

const (
	FromComparison ConditionSource = iota
	FromBetween
	FromBeginsWith
)

// ConditionInfo is the condition recorded for one attribute. BETWEEN is
// stored as GreaterOrEqual(lower) with UpperBound set, begins_with as
// GreaterOrEqual(prefix).
type ConditionInfo struct {
	Comparator filterexpr.Comparator
	Operand    filterexpr.Operand
	UpperBound filterexpr.Operand
	Source     ConditionSource
}

// AttributeCondition is one condition of a conjunction, in source order.
type AttributeCondition struct {
	Name string
	ConditionInfo
}

// ExtractConditions collects per-attribute conditions from a conjunction of
// comparisons, BETWEENs and two-argument begins_with calls. It reports false
// when the expression contains anything else (OR, NOT, IN, parentheses,
// other functions) or yields no conditions at all; such filters can only be
// evaluated by a scan.
//
// A later condition on the same attribute replaces an earlier one.
func ExtractConditions(expr filterexpr.Expression) (map[string]ConditionInfo, bool) {
	list, ok := CollectConditions(expr)
	if !ok {
		return nil, false
	}
	conds := make(map[string]ConditionInfo, len(list))
	for _, c := range list {
		conds[c.Name] = c.ConditionInfo
	}
	return conds, true
}

// CollectConditions is ExtractConditions without the merge: every condition
// is kept, in the order it appears, including repeats of one attribute.
func CollectConditions(expr filterexpr.Expression) ([]AttributeCondition, bool) {
	var conds []AttributeCondition
	if !collect(expr, &conds) || len(conds) == 0 {
		return nil, false
	}
	return conds, true
}

func collect(expr filterexpr.Expression, conds *[]AttributeCondition) bool {
	add := func(name string, info ConditionInfo) {
		*conds = append(*conds, AttributeCondition{Name: name, ConditionInfo: info})
	}
	switch e := expr.(type) {
	case *filterexpr.Comparison:
		if path, ok := e.Left.(filterexpr.Path); ok {
			add(path.Name, ConditionInfo{
				Comparator: e.Operator,
				Operand:    e.Right,
				Source:     FromComparison,
			})
		}
		return true

	case *filterexpr.Between:
		if path, ok := e.Operand.(filterexpr.Path); ok {
			add(path.Name, ConditionInfo{
				Comparator: filterexpr.GreaterOrEqual,
				Operand:    e.Lower,
				UpperBound: e.Upper,
				Source:     FromBetween,
			})
		}
		return true

	case *filterexpr.Function:
		if e.Name != filterexpr.FuncBeginsWith || len(e.Args) != 2 {
			return false
		}
		if path, ok := e.Args[0].(filterexpr.Path); ok {
			add(path.Name, ConditionInfo{
				Comparator: filterexpr.GreaterOrEqual,
				Operand:    e.Args[1],
				Source:     FromBeginsWith,
			})
		}
		return true

	case *filterexpr.And:
		return collect(e.Left, conds) && collect(e.Right, conds)

	case *filterexpr.Or, *filterexpr.Not, *filterexpr.In, *filterexpr.Parentheses:
		return false

	default:
		panic(fmt.Sprintf("unknown expression %T", expr))
	}
}
