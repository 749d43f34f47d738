package ddbstore

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// Query retrieves items matching a key condition expression.
func (s *Store) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if params == nil {
		return nil, validationErrorf("params is required")
	}

	_, enc, err := s.getBadgerKeyEncoder(params.TableName, params.IndexName)
	if err != nil {
		return nil, err
	}

	keyCond, err := parseKeyCondition(params.KeyConditionExpression, enc.keyDefs, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	filter, err := parseCondition(params.FilterExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	attrs, err := projectionNames(params.ProjectionExpression, params.ExpressionAttributeNames)
	if err != nil {
		return nil, err
	}

	prefix, err := enc.encodePartitionPrefix(keyCond.partition)
	if err != nil {
		return nil, validationErrorf("One or more parameter values were invalid: %s", err)
	}
	start, err := startKey(enc, params.ExclusiveStartKey)
	if err != nil {
		return nil, err
	}

	res, err := s.iterate(ctx, iteration{
		prefix:   prefix,
		start:    start,
		reverse:  params.ScanIndexForward != nil && !*params.ScanIndexForward,
		limit:    limitOf(params.Limit),
		include:  keyCond.matches,
		filter:   filter,
		keyNames: enc.keyAttributes(),
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.QueryOutput{
		Count:            int32(len(res.items)),
		ScannedCount:     int32(res.scanned),
		LastEvaluatedKey: res.lastKey,
	}
	if params.Select != types.SelectCount {
		out.Items = projectAll(res.items, attrs)
	}
	return out, nil
}

func (k *keyCondition) matches(item map[string]types.AttributeValue) bool {
	return k.sort == nil || k.sort.matches(item)
}

func startKey(enc *badgerKeyEncoder, exclusiveStart map[string]types.AttributeValue) ([]byte, error) {
	if exclusiveStart == nil {
		return nil, nil
	}
	key, err := enc.encodeKey(exclusiveStart)
	if err != nil {
		return nil, validationErrorf("The provided starting key is invalid: %s", err)
	}
	return key, nil
}

func limitOf(limit *int32) int {
	if limit == nil || *limit <= 0 {
		return 0
	}
	return int(*limit)
}

func projectAll(items []map[string]types.AttributeValue, attrs []string) []map[string]types.AttributeValue {
	out := make([]map[string]types.AttributeValue, len(items))
	for i, item := range items {
		out[i] = project(item, attrs)
	}
	return out
}

// iteration describes one Query or Scan page.
type iteration struct {
	prefix []byte
	// start is the exclusive start key, nil to begin at the edge of prefix.
	start   []byte
	reverse bool
	// limit caps the number of evaluated items; zero means no limit.
	limit int
	// include rejects items before they count as evaluated, as key
	// conditions and scan segments do.
	include  func(map[string]types.AttributeValue) bool
	filter   *condition
	keyNames []string
}

type iterationResult struct {
	items   []map[string]types.AttributeValue
	scanned int
	lastKey map[string]types.AttributeValue
}

func (s *Store) iterate(ctx context.Context, in iteration) (iterationResult, error) {
	var res iterationResult
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = in.reverse
		opts.Prefix = in.prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		// Determine start position
		switch {
		case in.start != nil:
			it.Seek(in.start)
			if it.Valid() && bytes.Equal(it.Item().Key(), in.start) {
				it.Next()
			}
		case in.reverse:
			it.Seek(incrementBytes(in.prefix))
		default:
			it.Seek(in.prefix)
		}

		for ; it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !bytes.HasPrefix(it.Item().Key(), in.prefix) {
				break
			}

			var item map[string]types.AttributeValue
			if err := it.Item().Value(func(val []byte) error {
				var err error
				item, err = DeserializeItem(val)
				return err
			}); err != nil {
				return err
			}

			if in.include != nil && !in.include(item) {
				continue
			}
			res.scanned++

			ok, err := in.filter.matches(item)
			if err != nil {
				return err
			}
			if ok {
				res.items = append(res.items, item)
			}

			if in.limit > 0 && res.scanned >= in.limit {
				res.lastKey = keyOf(item, in.keyNames)
				break
			}
		}
		return nil
	})
	return res, err
}
