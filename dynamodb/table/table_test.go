package table

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pkOnlyTable = TableDefinition{
	Name: "pkonly",
	KeyDefinitions: PrimaryKeyDefinition{
		PartitionKey: KeyDef{Name: "pk", Kind: KeyKindS},
	},
}

var ordersTable = TableDefinition{
	Name: "orders",
	KeyDefinitions: PrimaryKeyDefinition{
		PartitionKey: KeyDef{Name: "pk", Kind: KeyKindS},
		SortKey:      KeyDef{Name: "sk", Kind: KeyKindS},
	},
	GSIs: []IndexDefinition{
		{
			Name: "byStatus",
			KeyDefinitions: PrimaryKeyDefinition{
				PartitionKey: KeyDef{Name: "status", Kind: KeyKindS},
				SortKey:      KeyDef{Name: "createdAt", Kind: KeyKindN},
			},
			Projection: ProjectKeysOnly(),
		},
	},
	LSIs: []IndexDefinition{
		{
			Name: "byTotal",
			KeyDefinitions: PrimaryKeyDefinition{
				PartitionKey: KeyDef{Name: "pk", Kind: KeyKindS},
				SortKey:      KeyDef{Name: "total", Kind: KeyKindN},
			},
			Projection: ProjectInclude("status"),
		},
	},
}

func TestExtractPrimaryKey(t *testing.T) {
	t.Run("pk and sk", func(t *testing.T) {
		doc := map[string]types.AttributeValue{
			"pk":    &types.AttributeValueMemberS{Value: "user#1"},
			"sk":    &types.AttributeValueMemberS{Value: "order#1"},
			"other": &types.AttributeValueMemberS{Value: "x"},
		}
		key, err := ordersTable.ExtractPrimaryKey(doc)
		require.NoError(t, err)
		assert.Equal(t, "user#1", key.Values.PartitionKey)
		assert.Equal(t, "order#1", key.Values.SortKey)

		ddb, err := key.DDB()
		require.NoError(t, err)
		assert.Equal(t, map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: "user#1"},
			"sk": &types.AttributeValueMemberS{Value: "order#1"},
		}, ddb)
	})

	t.Run("numeric index key round trips as N", func(t *testing.T) {
		gsi := ordersTable.GSIs[0]
		doc := map[string]types.AttributeValue{
			"status":    &types.AttributeValueMemberS{Value: "open"},
			"createdAt": &types.AttributeValueMemberN{Value: "1700000000"},
		}
		key, err := gsi.ExtractPrimaryKey(doc)
		require.NoError(t, err)
		assert.Equal(t, attributevalue.Number("1700000000"), key.Values.SortKey)

		ddb, err := key.DDB()
		require.NoError(t, err)
		assert.Equal(t, &types.AttributeValueMemberN{Value: "1700000000"}, ddb["createdAt"])
	})

	t.Run("missing sort key", func(t *testing.T) {
		_, err := ordersTable.ExtractPrimaryKey(map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: "user#1"},
		})
		require.ErrorContains(t, err, `sort key "sk" not found`)
	})

	t.Run("wrong kind", func(t *testing.T) {
		_, err := pkOnlyTable.ExtractPrimaryKey(map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberN{Value: "1"},
		})
		require.Error(t, err)
	})

	t.Run("DDB requires sort key value", func(t *testing.T) {
		_, err := PrimaryKey{Definition: ordersTable.KeyDefinitions, Values: PrimaryKeyValues{PartitionKey: "a"}}.DDB()
		require.ErrorContains(t, err, "sort key")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		def     TableDefinition
		wantErr string
	}{
		{name: "valid", def: ordersTable},
		{name: "valid pk only", def: pkOnlyTable},
		{
			name:    "missing name",
			def:     TableDefinition{KeyDefinitions: pkOnlyTable.KeyDefinitions},
			wantErr: "table name is required",
		},
		{
			name:    "missing partition key",
			def:     TableDefinition{Name: "t"},
			wantErr: "partition key is required",
		},
		{
			name: "lsi without table sort key",
			def: TableDefinition{
				Name:           "t",
				KeyDefinitions: pkOnlyTable.KeyDefinitions,
				LSIs:           ordersTable.LSIs,
			},
			wantErr: "LSI requires a table sort key",
		},
		{
			name: "duplicate index name",
			def: TableDefinition{
				Name:           "t",
				KeyDefinitions: ordersTable.KeyDefinitions,
				GSIs:           ordersTable.GSIs,
				LSIs: []IndexDefinition{{
					Name:           "byStatus",
					KeyDefinitions: ordersTable.LSIs[0].KeyDefinitions,
				}},
			},
			wantErr: "duplicate index name: byStatus",
		},
		{
			name: "include without attributes",
			def: TableDefinition{
				Name:           "t",
				KeyDefinitions: ordersTable.KeyDefinitions,
				GSIs: []IndexDefinition{{
					Name:           "g",
					KeyDefinitions: ordersTable.GSIs[0].KeyDefinitions,
					Projection:     ProjectInclude(),
				}},
			},
			wantErr: "include projection requires attributes",
		},
		{
			name: "conflicting attribute types",
			def: TableDefinition{
				Name:           "t",
				KeyDefinitions: ordersTable.KeyDefinitions,
				GSIs: []IndexDefinition{{
					Name: "g",
					KeyDefinitions: PrimaryKeyDefinition{
						PartitionKey: KeyDef{Name: "pk", Kind: KeyKindN},
					},
				}},
			},
			wantErr: "conflicting types",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCreateTableInputRoundTrip(t *testing.T) {
	in, err := ordersTable.CreateTableInput()
	require.NoError(t, err)
	assert.Equal(t, types.BillingModePayPerRequest, in.BillingMode)
	assert.Equal(t, []types.AttributeDefinition{
		{AttributeName: aws.String("createdAt"), AttributeType: types.ScalarAttributeTypeN},
		{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String("status"), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String("total"), AttributeType: types.ScalarAttributeTypeN},
	}, in.AttributeDefinitions)

	def, err := DefinitionFromCreateInput(in)
	require.NoError(t, err)
	assert.Equal(t, ordersTable, def)

	fromDesc, err := DefinitionFromDescription(ordersTable.Description())
	require.NoError(t, err)
	assert.Equal(t, ordersTable, fromDesc)
}

func TestDefinitionFromCreateInput_Invalid(t *testing.T) {
	_, err := DefinitionFromCreateInput(&dynamodb.CreateTableInput{
		TableName: aws.String("t"),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
		},
	})
	require.ErrorContains(t, err, "no attribute definition")
}

func TestSchema(t *testing.T) {
	want := Schema{
		Name:       "orders",
		PrimaryKey: KeyAttributes{HashAttr: "pk", RangeAttr: "sk"},
		GlobalIndexes: []IndexDescriptor{
			{Name: "byStatus", KeyAttributes: KeyAttributes{HashAttr: "status", RangeAttr: "createdAt"}},
		},
		LocalIndexes: []IndexDescriptor{
			{Name: "byTotal", KeyAttributes: KeyAttributes{HashAttr: "pk", RangeAttr: "total"}},
		},
	}
	assert.Equal(t, want, ordersTable.Schema())
	assert.Equal(t, want, SchemaFromDescription(ordersTable.Description()))

	clone := want.Clone()
	clone.GlobalIndexes[0].Name = "changed"
	assert.Equal(t, "byStatus", want.GlobalIndexes[0].Name)
}

func TestProjection_Project(t *testing.T) {
	doc := map[string]types.AttributeValue{
		"pk":     &types.AttributeValueMemberS{Value: "a"},
		"sk":     &types.AttributeValueMemberS{Value: "b"},
		"total":  &types.AttributeValueMemberN{Value: "3"},
		"status": &types.AttributeValueMemberS{Value: "open"},
		"note":   &types.AttributeValueMemberS{Value: "hi"},
	}
	keys := []string{"pk", "sk", "total"}

	assert.Equal(t, doc, ProjectAll().Project(doc, keys))
	assert.Len(t, ProjectKeysOnly().Project(doc, keys), 3)

	included := ProjectInclude("status", "missing").Project(doc, keys)
	assert.Len(t, included, 4)
	assert.Contains(t, included, "status")
	assert.NotContains(t, included, "note")
}
