package ddbstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// DeleteItem removes an item by its primary key.
func (s *Store) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if params == nil {
		return nil, validationErrorf("params is required")
	}
	if params.Key == nil {
		return nil, validationErrorf("key is required")
	}

	tabl, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}

	cond, err := parseCondition(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	var oldItem map[string]types.AttributeValue
	err = s.db.Update(func(txn *badger.Txn) error {
		var err error
		oldItem, err = s.deleteItem(txn, tabl, params.Key, cond)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.DeleteItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld && oldItem != nil {
		out.Attributes = oldItem
	}
	return out, nil
}

func (s *Store) deleteItem(txn *badger.Txn, tabl *tableSchema, keyAttrs map[string]types.AttributeValue, cond *condition) (map[string]types.AttributeValue, error) {
	key, err := exactKey(tabl, keyAttrs)
	if err != nil {
		return nil, err
	}

	oldItem, err := getStored(txn, key)
	if err != nil {
		return nil, err
	}

	ok, err := cond.matches(oldItem)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conditionFailed()
	}
	if oldItem == nil {
		return nil, nil
	}

	if err := txn.Delete(key); err != nil {
		return nil, err
	}
	for _, idx := range tabl.definition.Indexes() {
		if err := s.updateIndex(txn, tabl, idx, nil, oldItem); err != nil {
			return nil, fmt.Errorf("update index %s: %w", idx.Name, err)
		}
	}
	return oldItem, nil
}
