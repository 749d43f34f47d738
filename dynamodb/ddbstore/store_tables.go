package ddbstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// CreateTable registers and persists a new table. The table is ACTIVE as
// soon as the call returns.
func (s *Store) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	def, err := table.DefinitionFromCreateInput(params)
	if err != nil {
		return nil, validationErrorf("%s", err)
	}

	s.mu.RLock()
	_, exists := s.tables[def.Name]
	s.mu.RUnlock()
	if exists {
		return nil, &types.ResourceInUseException{
			Message: aws.String(fmt.Sprintf("Table already exists: %s", def.Name)),
		}
	}

	if err := s.register(def); err != nil {
		return nil, err
	}
	desc := def.Description()
	desc.CreationDateTime = aws.Time(time.Now())
	desc.ItemCount = aws.Int64(0)
	return &dynamodb.CreateTableOutput{TableDescription: desc}, nil
}

// DescribeTable returns the table's key schema and indexes together with
// its current item count.
func (s *Store) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if params == nil {
		return nil, validationErrorf("params is required")
	}
	tabl, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}

	count, err := s.countKeys(tabl.encoder().tablePrefix())
	if err != nil {
		return nil, err
	}
	desc := tabl.definition.Description()
	desc.ItemCount = aws.Int64(count)
	return &dynamodb.DescribeTableOutput{Table: desc}, nil
}

func (s *Store) countKeys(prefix []byte) (int64, error) {
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// ListTables lists table names in sorted order.
func (s *Store) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	if params == nil {
		params = &dynamodb.ListTablesInput{}
	}
	names := s.tableNames()

	if params.ExclusiveStartTableName != nil {
		start := *params.ExclusiveStartTableName
		idx := sort.Search(len(names), func(i int) bool { return names[i] > start })
		names = names[idx:]
	}

	out := &dynamodb.ListTablesOutput{}
	if limit := limitOf(params.Limit); limit > 0 && len(names) > limit {
		names = names[:limit]
		out.LastEvaluatedTableName = aws.String(names[limit-1])
	}
	out.TableNames = names
	return out, nil
}
