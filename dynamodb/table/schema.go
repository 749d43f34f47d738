package table

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Schema is the key layout of a table as seen by the access-path planner.
// It only names attributes; kinds and projections live on TableDefinition.
type Schema struct {
	Name          string
	PrimaryKey    KeyAttributes
	GlobalIndexes []IndexDescriptor
	LocalIndexes  []IndexDescriptor
}

type KeyAttributes struct {
	HashAttr  string
	RangeAttr string // empty when there is no range key
}

type IndexDescriptor struct {
	Name string
	KeyAttributes
}

// Clone returns a copy that shares no slices with s.
func (s Schema) Clone() Schema {
	out := s
	out.GlobalIndexes = append([]IndexDescriptor(nil), s.GlobalIndexes...)
	out.LocalIndexes = append([]IndexDescriptor(nil), s.LocalIndexes...)
	return out
}

func (t TableDefinition) Schema() Schema {
	s := Schema{
		Name:       t.Name,
		PrimaryKey: keyAttributes(t.KeyDefinitions),
	}
	for _, gsi := range t.GSIs {
		s.GlobalIndexes = append(s.GlobalIndexes, IndexDescriptor{Name: gsi.Name, KeyAttributes: keyAttributes(gsi.KeyDefinitions)})
	}
	for _, lsi := range t.LSIs {
		s.LocalIndexes = append(s.LocalIndexes, IndexDescriptor{
			Name: lsi.Name,
			KeyAttributes: KeyAttributes{
				HashAttr:  t.KeyDefinitions.PartitionKey.Name,
				RangeAttr: lsi.KeyDefinitions.SortKey.Name,
			},
		})
	}
	return s
}

// SchemaFromDescription reads the key layout straight from DescribeTable
// output. Unlike DefinitionFromDescription it needs no attribute
// definitions. Local indexes always use the table hash key.
func SchemaFromDescription(desc *types.TableDescription) Schema {
	if desc == nil {
		return Schema{}
	}
	s := Schema{
		Name:       aws.ToString(desc.TableName),
		PrimaryKey: keyAttributesFromSchema(desc.KeySchema),
	}
	for _, gsi := range desc.GlobalSecondaryIndexes {
		s.GlobalIndexes = append(s.GlobalIndexes, IndexDescriptor{
			Name:          aws.ToString(gsi.IndexName),
			KeyAttributes: keyAttributesFromSchema(gsi.KeySchema),
		})
	}
	for _, lsi := range desc.LocalSecondaryIndexes {
		s.LocalIndexes = append(s.LocalIndexes, IndexDescriptor{
			Name: aws.ToString(lsi.IndexName),
			KeyAttributes: KeyAttributes{
				HashAttr:  s.PrimaryKey.HashAttr,
				RangeAttr: keyAttributesFromSchema(lsi.KeySchema).RangeAttr,
			},
		})
	}
	return s
}

func keyAttributes(k PrimaryKeyDefinition) KeyAttributes {
	return KeyAttributes{HashAttr: k.PartitionKey.Name, RangeAttr: k.SortKey.Name}
}

func keyAttributesFromSchema(elems []types.KeySchemaElement) KeyAttributes {
	var out KeyAttributes
	for _, el := range elems {
		switch el.KeyType {
		case types.KeyTypeHash:
			out.HashAttr = aws.ToString(el.AttributeName)
		case types.KeyTypeRange:
			out.RangeAttr = aws.ToString(el.AttributeName)
		}
	}
	return out
}
