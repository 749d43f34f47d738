package planner

import (
	"testing"

	"github.com/acksell/dynamate/dynamodb/filterexpr"
	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = table.Schema{
	Name:       "demo",
	PrimaryKey: table.KeyAttributes{HashAttr: "PK", RangeAttr: "SK"},
	GlobalIndexes: []table.IndexDescriptor{
		{Name: "GSI1", KeyAttributes: table.KeyAttributes{HashAttr: "email"}},
		{Name: "GSI2", KeyAttributes: table.KeyAttributes{HashAttr: "status", RangeAttr: "createdAt"}},
		{Name: "GSI3", KeyAttributes: table.KeyAttributes{HashAttr: "status"}},
	},
	LocalIndexes: []table.IndexDescriptor{
		{Name: "LSI1", KeyAttributes: table.KeyAttributes{HashAttr: "PK", RangeAttr: "total"}},
	},
}

func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }
func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func plan(t *testing.T, filter string) AccessPlan {
	t.Helper()
	expr, err := filterexpr.Parse(filter)
	require.NoError(t, err)
	return PlanAccess(testSchema, expr)
}

func TestPlanAccess(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   AccessPlan
	}{
		{
			name:   "hash only",
			filter: "PK = 1",
			want: AccessPlan{
				Kind: TablePrimaryKey,
				Hash: KeyCondition{AttributeName: "PK", Kind: KeyEqual, Value: n("1")},
			},
		},
		{
			name:   "hash and between range",
			filter: "PK = 1 AND SK BETWEEN 2 AND 9",
			want: AccessPlan{
				Kind:  TablePrimaryKey,
				Hash:  KeyCondition{AttributeName: "PK", Kind: KeyEqual, Value: n("1")},
				Range: &KeyCondition{AttributeName: "SK", Kind: KeyBetween, Value: n("2"), Upper: n("9")},
			},
		},
		{
			name:   "hash and begins_with range",
			filter: `begins_with(SK, "order#") AND PK = "user#1"`,
			want: AccessPlan{
				Kind:  TablePrimaryKey,
				Hash:  KeyCondition{AttributeName: "PK", Kind: KeyEqual, Value: s("user#1")},
				Range: &KeyCondition{AttributeName: "SK", Kind: KeyBeginsWith, Value: s("order#")},
			},
		},
		{
			name:   "range comparators",
			filter: `PK = "a" AND SK >= "m"`,
			want: AccessPlan{
				Kind:  TablePrimaryKey,
				Hash:  KeyCondition{AttributeName: "PK", Kind: KeyEqual, Value: s("a")},
				Range: &KeyCondition{AttributeName: "SK", Kind: KeyGreaterOrEqual, Value: s("m")},
			},
		},
		{
			name:   "not equal range is dropped",
			filter: `PK = "a" AND SK <> "m"`,
			want: AccessPlan{
				Kind: TablePrimaryKey,
				Hash: KeyCondition{AttributeName: "PK", Kind: KeyEqual, Value: s("a")},
			},
		},
		{
			name:   "hash accepts range comparator",
			filter: "PK > 5",
			want: AccessPlan{
				Kind: TablePrimaryKey,
				Hash: KeyCondition{AttributeName: "PK", Kind: KeyGreaterThan, Value: n("5")},
			},
		},
		{
			name:   "gsi",
			filter: `email = "a@b.c" AND age > 3`,
			want: AccessPlan{
				Kind:      GlobalIndex,
				IndexName: "GSI1",
				Hash:      KeyCondition{AttributeName: "email", Kind: KeyEqual, Value: s("a@b.c")},
			},
		},
		{
			name:   "first declared gsi wins",
			filter: `status = "open"`,
			want: AccessPlan{
				Kind:      GlobalIndex,
				IndexName: "GSI2",
				Hash:      KeyCondition{AttributeName: "status", Kind: KeyEqual, Value: s("open")},
			},
		},
		{
			name:   "gsi with range",
			filter: `status = "open" AND createdAt < 100`,
			want: AccessPlan{
				Kind:      GlobalIndex,
				IndexName: "GSI2",
				Hash:      KeyCondition{AttributeName: "status", Kind: KeyEqual, Value: s("open")},
				Range:     &KeyCondition{AttributeName: "createdAt", Kind: KeyLessThan, Value: n("100")},
			},
		},
		{
			name:   "table key beats gsi",
			filter: `status = "open" AND PK = "a"`,
			want: AccessPlan{
				Kind: TablePrimaryKey,
				Hash: KeyCondition{AttributeName: "PK", Kind: KeyEqual, Value: s("a")},
			},
		},
		{
			name:   "literal types",
			filter: `PK = true AND SK = null`,
			want: AccessPlan{
				Kind:  TablePrimaryKey,
				Hash:  KeyCondition{AttributeName: "PK", Kind: KeyEqual, Value: &types.AttributeValueMemberBOOL{Value: true}},
				Range: &KeyCondition{AttributeName: "SK", Kind: KeyEqual, Value: &types.AttributeValueMemberNULL{Value: true}},
			},
		},
		{
			name:   "last condition on an attribute wins",
			filter: "PK = 1 AND PK = 2",
			want: AccessPlan{
				Kind: TablePrimaryKey,
				Hash: KeyCondition{AttributeName: "PK", Kind: KeyEqual, Value: n("2")},
			},
		},
		{name: "or forces scan", filter: `PK = 1 OR PK = 2`, want: AccessPlan{Kind: FullScan}},
		{name: "in forces scan", filter: `PK = 1 AND SK IN (1, 2)`, want: AccessPlan{Kind: FullScan}},
		{name: "not forces scan", filter: `PK = 1 AND NOT SK = 2`, want: AccessPlan{Kind: FullScan}},
		{name: "parentheses force scan", filter: `(PK = 1)`, want: AccessPlan{Kind: FullScan}},
		{name: "other function forces scan", filter: `PK = 1 AND attribute_exists(x)`, want: AccessPlan{Kind: FullScan}},
		{name: "not equal hash", filter: `PK <> 1`, want: AccessPlan{Kind: FullScan}},
		{name: "path operand", filter: `PK = SK`, want: AccessPlan{Kind: FullScan}},
		{name: "no key attribute", filter: `age > 18`, want: AccessPlan{Kind: FullScan}},
		{name: "value on the left", filter: `1 = PK`, want: AccessPlan{Kind: FullScan}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, plan(t, tt.filter))
		})
	}
}

// Local indexes share the table hash key, so whenever an LSI would match the
// primary key has already matched on the same condition.
func TestPlanAccess_LocalIndexShadowedByTable(t *testing.T) {
	got := plan(t, "PK = 1 AND total >= 10")
	assert.Equal(t, AccessPlan{
		Kind: TablePrimaryKey,
		Hash: KeyCondition{AttributeName: "PK", Kind: KeyEqual, Value: n("1")},
	}, got)
}

func TestPlanAccess_NilExpression(t *testing.T) {
	assert.Equal(t, AccessPlan{Kind: FullScan}, PlanAccess(testSchema, nil))
}

func TestAccessPlan_String(t *testing.T) {
	assert.Equal(t, "FullScan", AccessPlan{Kind: FullScan}.String())
	assert.Equal(t,
		`GlobalIndex{name: GSI2, hash: status = "open", range: createdAt BETWEEN 1 AND 2}`,
		plan(t, `status = "open" AND createdAt BETWEEN 1 AND 2`).String())
	assert.Equal(t,
		`TablePrimaryKey{hash: PK = "a", range: begins_with(SK, "x")}`,
		plan(t, `PK = "a" AND begins_with(SK, "x")`).String())
}
