package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// GetItem retrieves a single item by its primary key. A missing item is not
// an error: the output has a nil Item.
func (s *Store) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if params == nil {
		return nil, validationErrorf("params is required")
	}
	if params.Key == nil {
		return nil, validationErrorf("key is required")
	}

	t, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}

	key, err := exactKey(t, params.Key)
	if err != nil {
		return nil, err
	}
	attrs, err := projectionNames(params.ProjectionExpression, params.ExpressionAttributeNames)
	if err != nil {
		return nil, err
	}

	var item map[string]types.AttributeValue
	err = s.db.View(func(txn *badger.Txn) error {
		var err error
		item, err = getStored(txn, key)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &dynamodb.GetItemOutput{Item: project(item, attrs)}, nil
}

// exactKey encodes a request Key, which must hold exactly the table's key
// attributes.
func exactKey(t *tableSchema, key map[string]types.AttributeValue) ([]byte, error) {
	names := t.definition.KeyDefinitions.Names()
	if len(key) != len(names) {
		return nil, validationErrorf("The provided key element does not match the schema")
	}
	encoded, err := t.encoder().encodeKey(key)
	if err != nil {
		return nil, validationErrorf("The provided key element does not match the schema: %s", err)
	}
	return encoded, nil
}
