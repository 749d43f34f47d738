package table

import (
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CreateTableInput builds an on-demand CreateTable request for the
// definition. Attribute definitions are sorted by name.
func (t TableDefinition) CreateTableInput() (*dynamodb.CreateTableInput, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	kinds, err := t.attributeKinds()
	if err != nil {
		return nil, err
	}

	in := &dynamodb.CreateTableInput{
		TableName:            aws.String(t.Name),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: attributeDefinitions(kinds),
		KeySchema:            keySchema(t.KeyDefinitions),
	}
	for _, gsi := range t.GSIs {
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:  aws.String(gsi.Name),
			KeySchema:  keySchema(gsi.KeyDefinitions),
			Projection: gsi.Projection.sdk(),
		})
	}
	for _, lsi := range t.LSIs {
		in.LocalSecondaryIndexes = append(in.LocalSecondaryIndexes, types.LocalSecondaryIndex{
			IndexName:  aws.String(lsi.Name),
			KeySchema:  keySchema(lsi.KeyDefinitions),
			Projection: lsi.Projection.sdk(),
		})
	}
	return in, nil
}

// Description renders the definition as an ACTIVE table description. Item
// counts, sizes and timestamps are left for the caller.
func (t TableDefinition) Description() *types.TableDescription {
	kinds, _ := t.attributeKinds()
	desc := &types.TableDescription{
		TableName:            aws.String(t.Name),
		TableStatus:          types.TableStatusActive,
		AttributeDefinitions: attributeDefinitions(kinds),
		KeySchema:            keySchema(t.KeyDefinitions),
		BillingModeSummary: &types.BillingModeSummary{
			BillingMode: types.BillingModePayPerRequest,
		},
	}
	for _, gsi := range t.GSIs {
		desc.GlobalSecondaryIndexes = append(desc.GlobalSecondaryIndexes, types.GlobalSecondaryIndexDescription{
			IndexName:   aws.String(gsi.Name),
			IndexStatus: types.IndexStatusActive,
			KeySchema:   keySchema(gsi.KeyDefinitions),
			Projection:  gsi.Projection.sdk(),
		})
	}
	for _, lsi := range t.LSIs {
		desc.LocalSecondaryIndexes = append(desc.LocalSecondaryIndexes, types.LocalSecondaryIndexDescription{
			IndexName:  aws.String(lsi.Name),
			KeySchema:  keySchema(lsi.KeyDefinitions),
			Projection: lsi.Projection.sdk(),
		})
	}
	return desc
}

// DefinitionFromDescription converts a DescribeTable result.
func DefinitionFromDescription(desc *types.TableDescription) (TableDefinition, error) {
	if desc == nil {
		return TableDefinition{}, fmt.Errorf("nil table description")
	}
	kinds := attributeKindMap(desc.AttributeDefinitions)
	def := TableDefinition{Name: aws.ToString(desc.TableName)}

	var err error
	if def.KeyDefinitions, err = keysFromSchema(desc.KeySchema, kinds); err != nil {
		return TableDefinition{}, fmt.Errorf("table %s: %w", def.Name, err)
	}
	for _, gsi := range desc.GlobalSecondaryIndexes {
		idx, err := indexFromSchema(aws.ToString(gsi.IndexName), gsi.KeySchema, gsi.Projection, kinds)
		if err != nil {
			return TableDefinition{}, err
		}
		def.GSIs = append(def.GSIs, idx)
	}
	for _, lsi := range desc.LocalSecondaryIndexes {
		idx, err := indexFromSchema(aws.ToString(lsi.IndexName), lsi.KeySchema, lsi.Projection, kinds)
		if err != nil {
			return TableDefinition{}, err
		}
		def.LSIs = append(def.LSIs, idx)
	}
	return def, nil
}

// DefinitionFromCreateInput converts a CreateTable request and validates it.
func DefinitionFromCreateInput(in *dynamodb.CreateTableInput) (TableDefinition, error) {
	if in == nil {
		return TableDefinition{}, fmt.Errorf("nil create table input")
	}
	kinds := attributeKindMap(in.AttributeDefinitions)
	def := TableDefinition{Name: aws.ToString(in.TableName)}

	var err error
	if def.KeyDefinitions, err = keysFromSchema(in.KeySchema, kinds); err != nil {
		return TableDefinition{}, fmt.Errorf("table %s: %w", def.Name, err)
	}
	for _, gsi := range in.GlobalSecondaryIndexes {
		idx, err := indexFromSchema(aws.ToString(gsi.IndexName), gsi.KeySchema, gsi.Projection, kinds)
		if err != nil {
			return TableDefinition{}, err
		}
		def.GSIs = append(def.GSIs, idx)
	}
	for _, lsi := range in.LocalSecondaryIndexes {
		idx, err := indexFromSchema(aws.ToString(lsi.IndexName), lsi.KeySchema, lsi.Projection, kinds)
		if err != nil {
			return TableDefinition{}, err
		}
		def.LSIs = append(def.LSIs, idx)
	}
	if err := def.Validate(); err != nil {
		return TableDefinition{}, err
	}
	return def, nil
}

func indexFromSchema(name string, elems []types.KeySchemaElement, p *types.Projection, kinds map[string]KeyKind) (IndexDefinition, error) {
	keys, err := keysFromSchema(elems, kinds)
	if err != nil {
		return IndexDefinition{}, fmt.Errorf("index %s: %w", name, err)
	}
	return IndexDefinition{Name: name, KeyDefinitions: keys, Projection: projectionFromSDK(p)}, nil
}

func keysFromSchema(elems []types.KeySchemaElement, kinds map[string]KeyKind) (PrimaryKeyDefinition, error) {
	var keys PrimaryKeyDefinition
	for _, el := range elems {
		name := aws.ToString(el.AttributeName)
		kind, ok := kinds[name]
		if !ok {
			return PrimaryKeyDefinition{}, fmt.Errorf("no attribute definition for key %q", name)
		}
		switch el.KeyType {
		case types.KeyTypeHash:
			keys.PartitionKey = KeyDef{Name: name, Kind: kind}
		case types.KeyTypeRange:
			keys.SortKey = KeyDef{Name: name, Kind: kind}
		default:
			return PrimaryKeyDefinition{}, fmt.Errorf("unknown key type %q for %q", el.KeyType, name)
		}
	}
	if keys.PartitionKey.Name == "" {
		return PrimaryKeyDefinition{}, fmt.Errorf("key schema has no HASH key")
	}
	return keys, nil
}

func keySchema(k PrimaryKeyDefinition) []types.KeySchemaElement {
	out := []types.KeySchemaElement{{
		AttributeName: aws.String(k.PartitionKey.Name),
		KeyType:       types.KeyTypeHash,
	}}
	if k.HasSortKey() {
		out = append(out, types.KeySchemaElement{
			AttributeName: aws.String(k.SortKey.Name),
			KeyType:       types.KeyTypeRange,
		})
	}
	return out
}

func attributeKindMap(defs []types.AttributeDefinition) map[string]KeyKind {
	kinds := make(map[string]KeyKind, len(defs))
	for _, d := range defs {
		kinds[aws.ToString(d.AttributeName)] = KeyKind(d.AttributeType)
	}
	return kinds
}

func attributeDefinitions(kinds map[string]KeyKind) []types.AttributeDefinition {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]types.AttributeDefinition, 0, len(names))
	for _, name := range names {
		out = append(out, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: kinds[name].Scalar(),
		})
	}
	return out
}
