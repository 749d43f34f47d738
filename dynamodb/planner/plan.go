// Package planner chooses how a parsed filter is executed: as a Query on the
// table's primary key, as a Query on a secondary index, or as a full Scan.
//
// Selection is first-match-wins. The primary key is tried first, then every
// global index in declared order, then every local index in declared order.
// There is no cost model.
package planner

import (
	"fmt"
	"strings"

	"github.com/acksell/dynamate/dynamodb/filterexpr"
	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type PlanKind int

const (
	FullScan PlanKind = iota
	TablePrimaryKey
	GlobalIndex
	LocalIndex
)

func (k PlanKind) String() string {
	switch k {
	case FullScan:
		return "FullScan"
	case TablePrimaryKey:
		return "TablePrimaryKey"
	case GlobalIndex:
		return "GlobalIndex"
	case LocalIndex:
		return "LocalIndex"
	default:
		return fmt.Sprintf("PlanKind(%d)", int(k))
	}
}

type KeyConditionKind int

const (
	KeyEqual KeyConditionKind = iota
	KeyBetween
	KeyLessThan
	KeyLessOrEqual
	KeyGreaterThan
	KeyGreaterOrEqual
	KeyBeginsWith
)

func (k KeyConditionKind) String() string {
	switch k {
	case KeyEqual:
		return "Equal"
	case KeyBetween:
		return "Between"
	case KeyLessThan:
		return "LessThan"
	case KeyLessOrEqual:
		return "LessOrEqual"
	case KeyGreaterThan:
		return "GreaterThan"
	case KeyGreaterOrEqual:
		return "GreaterOrEqual"
	case KeyBeginsWith:
		return "BeginsWith"
	default:
		return fmt.Sprintf("KeyConditionKind(%d)", int(k))
	}
}

// KeyCondition is a condition on one key attribute of the chosen access
// path. Upper is only set for KeyBetween.
type KeyCondition struct {
	AttributeName string
	Kind          KeyConditionKind
	Value         types.AttributeValue
	Upper         types.AttributeValue
}

func (c KeyCondition) String() string {
	switch c.Kind {
	case KeyBetween:
		return fmt.Sprintf("%s BETWEEN %s AND %s", c.AttributeName, formatValue(c.Value), formatValue(c.Upper))
	case KeyBeginsWith:
		return fmt.Sprintf("begins_with(%s, %s)", c.AttributeName, formatValue(c.Value))
	default:
		return fmt.Sprintf("%s %s %s", c.AttributeName, c.Kind.symbol(), formatValue(c.Value))
	}
}

func (k KeyConditionKind) symbol() string {
	switch k {
	case KeyEqual:
		return "="
	case KeyLessThan:
		return "<"
	case KeyLessOrEqual:
		return "<="
	case KeyGreaterThan:
		return ">"
	case KeyGreaterOrEqual:
		return ">="
	default:
		panic(fmt.Sprintf("key condition %s has no operator symbol", k))
	}
}

// Symbol returns the comparison operator for the simple kinds. Between and
// BeginsWith have no single operator and report false.
func (k KeyConditionKind) Symbol() (string, bool) {
	if k == KeyBetween || k == KeyBeginsWith {
		return "", false
	}
	return k.symbol(), true
}

// AccessPlan is the chosen access path. Hash is only meaningful when Kind
// is not FullScan, and IndexName only for the two index kinds.
type AccessPlan struct {
	Kind      PlanKind
	IndexName string
	Hash      KeyCondition
	Range     *KeyCondition
}

func (p AccessPlan) IsScan() bool {
	return p.Kind == FullScan
}

// KeyConditions returns the hash condition followed by the range condition,
// if any.
func (p AccessPlan) KeyConditions() []KeyCondition {
	if p.IsScan() {
		return nil
	}
	if p.Range == nil {
		return []KeyCondition{p.Hash}
	}
	return []KeyCondition{p.Hash, *p.Range}
}

func (p AccessPlan) String() string {
	if p.IsScan() {
		return p.Kind.String()
	}
	var sb strings.Builder
	sb.WriteString(p.Kind.String())
	sb.WriteString("{")
	if p.IndexName != "" {
		fmt.Fprintf(&sb, "name: %s, ", p.IndexName)
	}
	fmt.Fprintf(&sb, "hash: %s", p.Hash)
	if p.Range != nil {
		fmt.Fprintf(&sb, ", range: %s", *p.Range)
	}
	sb.WriteString("}")
	return sb.String()
}

// PlanAccess picks the access path for expr against the schema snapshot. A
// nil expression is a plain scan.
func PlanAccess(schema table.Schema, expr filterexpr.Expression) AccessPlan {
	if expr == nil {
		return AccessPlan{Kind: FullScan}
	}
	conds, ok := ExtractConditions(expr)
	if !ok {
		return AccessPlan{Kind: FullScan}
	}

	if hash, rng, ok := matchKeys(conds, schema.PrimaryKey); ok {
		return AccessPlan{Kind: TablePrimaryKey, Hash: hash, Range: rng}
	}
	for _, gsi := range schema.GlobalIndexes {
		if hash, rng, ok := matchKeys(conds, gsi.KeyAttributes); ok {
			return AccessPlan{Kind: GlobalIndex, IndexName: gsi.Name, Hash: hash, Range: rng}
		}
	}
	for _, lsi := range schema.LocalIndexes {
		keys := table.KeyAttributes{HashAttr: schema.PrimaryKey.HashAttr, RangeAttr: lsi.RangeAttr}
		if hash, rng, ok := matchKeys(conds, keys); ok {
			return AccessPlan{Kind: LocalIndex, IndexName: lsi.Name, Hash: hash, Range: rng}
		}
	}
	return AccessPlan{Kind: FullScan}
}

// matchKeys requires a convertible condition on the hash attribute. The
// range condition is optional and dropped when it does not convert.
func matchKeys(conds map[string]ConditionInfo, keys table.KeyAttributes) (KeyCondition, *KeyCondition, bool) {
	if keys.HashAttr == "" {
		return KeyCondition{}, nil, false
	}
	info, ok := conds[keys.HashAttr]
	if !ok {
		return KeyCondition{}, nil, false
	}
	hash, ok := toKeyCondition(keys.HashAttr, info)
	if !ok {
		return KeyCondition{}, nil, false
	}
	if keys.RangeAttr == "" {
		return hash, nil, true
	}
	info, ok = conds[keys.RangeAttr]
	if !ok {
		return hash, nil, true
	}
	rng, ok := toKeyCondition(keys.RangeAttr, info)
	if !ok {
		return hash, nil, true
	}
	return hash, &rng, true
}

var keyKinds = map[filterexpr.Comparator]KeyConditionKind{
	filterexpr.Equal:          KeyEqual,
	filterexpr.Less:           KeyLessThan,
	filterexpr.LessOrEqual:    KeyLessOrEqual,
	filterexpr.Greater:        KeyGreaterThan,
	filterexpr.GreaterOrEqual: KeyGreaterOrEqual,
}

func toKeyCondition(name string, info ConditionInfo) (KeyCondition, bool) {
	value, ok := filterexpr.AttributeValue(info.Operand)
	if !ok {
		return KeyCondition{}, false
	}
	cond := KeyCondition{AttributeName: name, Value: value}

	switch info.Source {
	case FromBetween:
		upper, ok := filterexpr.AttributeValue(info.UpperBound)
		if !ok {
			return KeyCondition{}, false
		}
		cond.Kind = KeyBetween
		cond.Upper = upper
	case FromBeginsWith:
		cond.Kind = KeyBeginsWith
	default:
		kind, ok := keyKinds[info.Comparator]
		if !ok {
			// NotEqual never narrows a key range.
			return KeyCondition{}, false
		}
		cond.Kind = kind
	}
	return cond, true
}

func formatValue(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return fmt.Sprintf("%q", v.Value)
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("%t", v.Value)
	case *types.AttributeValueMemberNULL:
		return "null"
	default:
		return fmt.Sprintf("%T", av)
	}
}
