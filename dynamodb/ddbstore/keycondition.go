package ddbstore

import (
	"github.com/acksell/dynamate/dynamodb/filterexpr"
	"github.com/acksell/dynamate/dynamodb/planner"
	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// keyCondition is a resolved KeyConditionExpression: an equality on the
// partition key and an optional condition on the sort key.
type keyCondition struct {
	partition types.AttributeValue
	sort      *sortCondition
}

type sortCondition struct {
	name   string
	source planner.ConditionSource
	op     filterexpr.Comparator
	value  types.AttributeValue
	upper  types.AttributeValue
}

func (c *sortCondition) matches(item map[string]types.AttributeValue) bool {
	v, ok := item[c.name]
	if !ok {
		return false
	}
	switch c.source {
	case planner.FromBetween:
		return compareBy(v, c.value, filterexpr.GreaterOrEqual) && compareBy(v, c.upper, filterexpr.LessOrEqual)
	case planner.FromBeginsWith:
		return beginsWith(v, c.value)
	default:
		return compareBy(v, c.value, c.op)
	}
}

// parseKeyCondition reuses the planner's condition collection: a key
// condition is exactly the conjunction the planner knows how to turn into
// a Query. Each key attribute may appear once, after name resolution.
func parseKeyCondition(raw *string, keys table.PrimaryKeyDefinition, names map[string]string, values map[string]types.AttributeValue) (*keyCondition, error) {
	cond, err := parseCondition(raw, names, values)
	if err != nil {
		return nil, err
	}
	if cond == nil {
		return nil, validationErrorf("KeyConditionExpression is required")
	}
	infos, ok := planner.CollectConditions(cond.expr)
	if !ok {
		return nil, validationErrorf("Invalid KeyConditionExpression: %s", cond.expr)
	}

	out := &keyCondition{}
	seen := make(map[string]bool, len(infos))
	for _, info := range infos {
		name, err := cond.resolveName(info.Name)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, validationErrorf("KeyConditionExpressions must only contain one condition per key: %s", name)
		}
		seen[name] = true
		value, ok, err := cond.operand(info.Operand, nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, validationErrorf("Invalid KeyConditionExpression: %s must be compared to a value", name)
		}

		switch {
		case name == keys.PartitionKey.Name:
			if info.Source != planner.FromComparison || info.Comparator != filterexpr.Equal {
				return nil, validationErrorf("Query key condition not supported: partition key %s must use =", name)
			}
			out.partition = value
		case keys.HasSortKey() && name == keys.SortKey.Name:
			if info.Source == planner.FromComparison && info.Comparator == filterexpr.NotEqual {
				return nil, validationErrorf("Query key condition not supported: <> on sort key %s", name)
			}
			sc := &sortCondition{name: name, source: info.Source, op: info.Comparator, value: value}
			if info.Source == planner.FromBetween {
				if sc.upper, _, err = cond.operand(info.UpperBound, nil); err != nil {
					return nil, err
				}
			}
			out.sort = sc
		default:
			return nil, validationErrorf("Query condition missed key schema element: %s", name)
		}
	}
	if out.partition == nil {
		return nil, validationErrorf("Query condition missed key schema element: %s", keys.PartitionKey.Name)
	}
	return out, nil
}
