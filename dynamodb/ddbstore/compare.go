package ddbstore

import (
	"bytes"
	"math/big"
	"strings"

	"github.com/acksell/dynamate/dynamodb/filterexpr"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/exp/constraints"
)

func compareOrdered[T constraints.Ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func parseNumber(s string) (*big.Float, bool) {
	f, _, err := big.ParseFloat(strings.TrimSpace(s), 10, 256, big.ToNearestEven)
	if err != nil {
		return nil, false
	}
	return f, true
}

// compareValues orders two scalars of the same type. Only S, N and B are
// ordered; anything else reports false.
func compareValues(a, b types.AttributeValue) (int, bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		return compareOrdered(av.Value, bv.Value), true
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		x, xok := parseNumber(av.Value)
		y, yok := parseNumber(bv.Value)
		if !xok || !yok {
			return compareOrdered(av.Value, bv.Value), xok == yok
		}
		return x.Cmp(y), true
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		if !ok {
			return 0, false
		}
		return bytes.Compare(av.Value, bv.Value), true
	default:
		return 0, false
	}
}

// compareBy applies a comparator. Values of different types are never
// equal and never ordered.
func compareBy(a, b types.AttributeValue, op filterexpr.Comparator) bool {
	switch op {
	case filterexpr.Equal:
		return attributeValuesEqual(a, b)
	case filterexpr.NotEqual:
		return !attributeValuesEqual(a, b)
	}
	cmp, ok := compareValues(a, b)
	if !ok {
		return false
	}
	switch op {
	case filterexpr.Less:
		return cmp < 0
	case filterexpr.LessOrEqual:
		return cmp <= 0
	case filterexpr.Greater:
		return cmp > 0
	case filterexpr.GreaterOrEqual:
		return cmp >= 0
	default:
		return false
	}
}

func attributeValuesEqual(a, b types.AttributeValue) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case *types.AttributeValueMemberS, *types.AttributeValueMemberN, *types.AttributeValueMemberB:
		cmp, ok := compareValues(a, b)
		return ok && cmp == 0
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberNULL:
		_, ok := b.(*types.AttributeValueMemberNULL)
		return ok
	case *types.AttributeValueMemberSS:
		bv, ok := b.(*types.AttributeValueMemberSS)
		return ok && sameSet(av.Value, bv.Value, func(x, y string) bool { return x == y })
	case *types.AttributeValueMemberNS:
		bv, ok := b.(*types.AttributeValueMemberNS)
		return ok && sameSet(av.Value, bv.Value, numbersEqual)
	case *types.AttributeValueMemberBS:
		bv, ok := b.(*types.AttributeValueMemberBS)
		return ok && sameSet(av.Value, bv.Value, bytes.Equal)
	case *types.AttributeValueMemberL:
		bv, ok := b.(*types.AttributeValueMemberL)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for i := range av.Value {
			if !attributeValuesEqual(av.Value[i], bv.Value[i]) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberM:
		bv, ok := b.(*types.AttributeValueMemberM)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for k, v := range av.Value {
			if !attributeValuesEqual(v, bv.Value[k]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func numbersEqual(a, b string) bool {
	cmp, ok := compareValues(&types.AttributeValueMemberN{Value: a}, &types.AttributeValueMemberN{Value: b})
	return ok && cmp == 0
}

// sameSet compares sets, which hold no duplicates, ignoring order.
func sameSet[T any](a, b []T, eq func(T, T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		if !setHas(b, x, eq) {
			return false
		}
	}
	return true
}

func setHas[T any](set []T, x T, eq func(T, T) bool) bool {
	for _, y := range set {
		if eq(x, y) {
			return true
		}
	}
	return false
}

func beginsWith(v, prefix types.AttributeValue) bool {
	switch av := v.(type) {
	case *types.AttributeValueMemberS:
		p, ok := prefix.(*types.AttributeValueMemberS)
		return ok && strings.HasPrefix(av.Value, p.Value)
	case *types.AttributeValueMemberB:
		p, ok := prefix.(*types.AttributeValueMemberB)
		return ok && bytes.HasPrefix(av.Value, p.Value)
	default:
		return false
	}
}

// contains checks substrings of S, members of sets and elements of lists.
func contains(v, needle types.AttributeValue) bool {
	switch av := v.(type) {
	case *types.AttributeValueMemberS:
		n, ok := needle.(*types.AttributeValueMemberS)
		return ok && strings.Contains(av.Value, n.Value)
	case *types.AttributeValueMemberB:
		n, ok := needle.(*types.AttributeValueMemberB)
		return ok && bytes.Contains(av.Value, n.Value)
	case *types.AttributeValueMemberSS:
		n, ok := needle.(*types.AttributeValueMemberS)
		return ok && setHas(av.Value, n.Value, func(x, y string) bool { return x == y })
	case *types.AttributeValueMemberNS:
		n, ok := needle.(*types.AttributeValueMemberN)
		return ok && setHas(av.Value, n.Value, numbersEqual)
	case *types.AttributeValueMemberBS:
		n, ok := needle.(*types.AttributeValueMemberB)
		return ok && setHas(av.Value, n.Value, bytes.Equal)
	case *types.AttributeValueMemberL:
		for _, elem := range av.Value {
			if attributeValuesEqual(elem, needle) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
