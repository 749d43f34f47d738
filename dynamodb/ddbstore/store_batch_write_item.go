package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// MaxBatchWriteItems is the number of write requests one BatchWriteItem
// call accepts.
const MaxBatchWriteItems = 25

// BatchWriteItem performs multiple put/delete operations in a single
// transaction. Any invalid request fails the whole batch, so nothing is ever
// left unprocessed.
func (s *Store) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if params == nil {
		return nil, validationErrorf("params is required")
	}
	if len(params.RequestItems) == 0 {
		return nil, validationErrorf("request items is required")
	}

	total := 0
	tables := make(map[string]*tableSchema, len(params.RequestItems))
	for tableName, writeRequests := range params.RequestItems {
		tabl, err := s.getTable(&tableName)
		if err != nil {
			return nil, err
		}
		tables[tableName] = tabl
		for _, req := range writeRequests {
			if (req.PutRequest == nil) == (req.DeleteRequest == nil) {
				return nil, validationErrorf("write request must contain exactly one of PutRequest or DeleteRequest")
			}
		}
		total += len(writeRequests)
	}
	if total > MaxBatchWriteItems {
		return nil, validationErrorf("Too many items requested for the BatchWriteItem call: %d > %d", total, MaxBatchWriteItems)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for tableName, writeRequests := range params.RequestItems {
			tabl := tables[tableName]
			for _, req := range writeRequests {
				var err error
				if req.PutRequest != nil {
					_, err = s.putItem(txn, tabl, req.PutRequest.Item, nil)
				} else {
					_, err = s.deleteItem(txn, tabl, req.DeleteRequest.Key, nil)
				}
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dynamodb.BatchWriteItemOutput{
		UnprocessedItems: map[string][]types.WriteRequest{},
	}, nil
}
