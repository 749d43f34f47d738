package filterexpr

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// AttributeValue converts a literal operand to its store value. Paths and
// value references have no value of their own and report false.
func AttributeValue(op Operand) (types.AttributeValue, bool) {
	switch v := op.(type) {
	case Value:
		return &types.AttributeValueMemberS{Value: v.Text}, true
	case Number:
		return &types.AttributeValueMemberN{Value: FormatNumber(v.Value)}, true
	case Boolean:
		return &types.AttributeValueMemberBOOL{Value: v.Value}, true
	case Null:
		return &types.AttributeValueMemberNULL{Value: true}, true
	case Path, ValueRef:
		return nil, false
	default:
		panic(fmt.Sprintf("unknown operand %T", op))
	}
}
