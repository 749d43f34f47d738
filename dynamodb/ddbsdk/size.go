package ddbsdk

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EstimateItemSize estimates the stored size of an item in bytes using
// DynamoDB's sizing rules. Sets are sized like lists.
func EstimateItemSize(item Item) int {
	size := 0
	for name, v := range item {
		size += len(name) + valueSize(v)
	}
	return size
}

func valueSize(av types.AttributeValue) int {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return len(v.Value)
	case *types.AttributeValueMemberN:
		return numberSize(v.Value)
	case *types.AttributeValueMemberB:
		return len(v.Value)
	case *types.AttributeValueMemberBOOL, *types.AttributeValueMemberNULL:
		return 1
	case *types.AttributeValueMemberL:
		size := 3 + len(v.Value)
		for _, elem := range v.Value {
			size += valueSize(elem)
		}
		return size
	case *types.AttributeValueMemberM:
		size := 3 + len(v.Value)
		for name, elem := range v.Value {
			size += len(name) + valueSize(elem)
		}
		return size
	case *types.AttributeValueMemberSS:
		size := 3 + len(v.Value)
		for _, s := range v.Value {
			size += len(s)
		}
		return size
	case *types.AttributeValueMemberNS:
		size := 3 + len(v.Value)
		for _, n := range v.Value {
			size += numberSize(n)
		}
		return size
	case *types.AttributeValueMemberBS:
		size := 3 + len(v.Value)
		for _, b := range v.Value {
			size += len(b)
		}
		return size
	default:
		return 0
	}
}

// numberSize is one byte per two significant digits plus one.
func numberSize(num string) int {
	s := strings.TrimSpace(num)
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "+")
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		s = s[:i]
	}
	hasDecimal := strings.Contains(s, ".")
	digits := strings.TrimLeft(strings.ReplaceAll(s, ".", ""), "0")
	if hasDecimal {
		digits = strings.TrimRight(digits, "0")
	}
	count := len(digits)
	if count == 0 {
		count = 1
	}
	return (count+1)/2 + 1
}
