package ddbstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// PutItem creates or replaces an item.
func (s *Store) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if params == nil {
		return nil, validationErrorf("params is required")
	}
	if params.Item == nil {
		return nil, validationErrorf("item is required")
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
		oldItem, err = s.putItem(txn, tabl, params.Item, cond)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.PutItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld && oldItem != nil {
		out.Attributes = oldItem
	}
	return out, nil
}

// putItem writes item and its index entries inside txn and returns the
// item it replaced.
func (s *Store) putItem(txn *badger.Txn, tabl *tableSchema, item map[string]types.AttributeValue, cond *condition) (map[string]types.AttributeValue, error) {
	enc := tabl.encoder()
	key, err := enc.encodeKey(item)
	if err != nil {
		return nil, validationErrorf("One or more parameter values were invalid: %s", err)
	}
	if err := validateIndexKeys(tabl.definition, item); err != nil {
		return nil, err
	}

	itemBytes, err := SerializeItem(item)
	if err != nil {
		return nil, validationErrorf("%s", err)
	}

	oldItem, err := getStored(txn, key)
	if err != nil {
		return nil, err
	}

	// A missing item is evaluated as an empty document.
	ok, err := cond.matches(oldItem)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conditionFailed()
	}

	if err := txn.Set(key, itemBytes); err != nil {
		return nil, err
	}

	for _, idx := range tabl.definition.Indexes() {
		if err := s.updateIndex(txn, tabl, idx, item, oldItem); err != nil {
			return nil, fmt.Errorf("update index %s: %w", idx.Name, err)
		}
	}
	return oldItem, nil
}

// getStored loads the item stored under key, or nil when there is none.
func getStored(txn *badger.Txn, key []byte) (map[string]types.AttributeValue, error) {
	stored, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var item map[string]types.AttributeValue
	err = stored.Value(func(val []byte) error {
		var err error
		item, err = DeserializeItem(val)
		return err
	})
	return item, err
}

// validateIndexKeys rejects items whose index key attributes have the wrong
// type. Items without an index's key attributes are simply not indexed.
func validateIndexKeys(def table.TableDefinition, item map[string]types.AttributeValue) error {
	for _, idx := range def.Indexes() {
		for _, kd := range []table.KeyDef{idx.KeyDefinitions.PartitionKey, idx.KeyDefinitions.SortKey} {
			if kd.Name == "" {
				continue
			}
			v, ok := item[kd.Name]
			if !ok {
				continue
			}
			if _, err := encodeKeyValue(v, kd.Kind); err != nil {
				return validationErrorf("One or more parameter values were invalid: Type mismatch for Index Key %s Expected: %s Actual: %s IndexName: %s",
					kd.Name, kd.Kind, typeName(v), idx.Name)
			}
		}
	}
	return nil
}

// indexed reports whether item carries every key attribute of idx.
func indexed(idx table.IndexDefinition, item map[string]types.AttributeValue) bool {
	if item == nil {
		return false
	}
	for _, name := range idx.KeyDefinitions.Names() {
		if _, ok := item[name]; !ok {
			return false
		}
	}
	return true
}

// updateIndex replaces the index entry of oldItem with the entry of
// newItem. Either may be nil.
func (s *Store) updateIndex(txn *badger.Txn, tabl *tableSchema, idx table.IndexDefinition, newItem, oldItem map[string]types.AttributeValue) error {
	enc := tabl.indexes[idx.Name]

	if indexed(idx, oldItem) {
		oldKey, err := enc.encodeKey(oldItem)
		if err != nil {
			return fmt.Errorf("encode old index key: %w", err)
		}
		if err := txn.Delete(oldKey); err != nil {
			return err
		}
	}

	if !indexed(idx, newItem) {
		return nil
	}
	newKey, err := enc.encodeKey(newItem)
	if err != nil {
		return fmt.Errorf("encode index key: %w", err)
	}
	projected := idx.Projection.Project(newItem, enc.keyAttributes())
	itemBytes, err := SerializeItem(projected)
	if err != nil {
		return fmt.Errorf("serialize item for index: %w", err)
	}
	return txn.Set(newKey, itemBytes)
}
