package ddbsdk

import (
	"context"
	"fmt"
	"time"

	"github.com/acksell/dynamate/dynamodb/ddbiface"
	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ListAllTables follows LastEvaluatedTableName until every table is listed.
func ListAllTables(ctx context.Context, client ddbiface.Client) ([]string, error) {
	var names []string
	var start *string
	for {
		out, err := client.ListTables(ctx, &dynamodb.ListTablesInput{ExclusiveStartTableName: start})
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		names = append(names, out.TableNames...)
		if out.LastEvaluatedTableName == nil {
			return names, nil
		}
		start = out.LastEvaluatedTableName
	}
}

const (
	DefaultSchemaCacheSize = 64
	DefaultSchemaCacheTTL  = 5 * time.Minute
)

// SchemaCache remembers DescribeTable results for a while, so the REPL and
// the HTTP API do not describe the table on every filter.
type SchemaCache struct {
	client ddbiface.Client
	cache  *expirable.LRU[string, *types.TableDescription]
}

// NewSchemaCache caches up to size descriptions for ttl each. Zero values
// use the defaults.
func NewSchemaCache(client ddbiface.Client, size int, ttl time.Duration) *SchemaCache {
	if size <= 0 {
		size = DefaultSchemaCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultSchemaCacheTTL
	}
	return &SchemaCache{
		client: client,
		cache:  expirable.NewLRU[string, *types.TableDescription](size, nil, ttl),
	}
}

// Describe returns a copy of the table's description.
func (c *SchemaCache) Describe(ctx context.Context, tableName string) (*types.TableDescription, error) {
	if desc, ok := c.cache.Get(tableName); ok {
		snapshot := *desc
		return &snapshot, nil
	}
	out, err := c.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: &tableName})
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", tableName, err)
	}
	if out.Table == nil {
		return nil, fmt.Errorf("describe table %s: empty description", tableName)
	}
	c.cache.Add(tableName, out.Table)
	snapshot := *out.Table
	return &snapshot, nil
}

// Schema returns the planner's view of the table.
func (c *SchemaCache) Schema(ctx context.Context, tableName string) (table.Schema, error) {
	desc, err := c.Describe(ctx, tableName)
	if err != nil {
		return table.Schema{}, err
	}
	return table.SchemaFromDescription(desc).Clone(), nil
}

func (c *SchemaCache) Invalidate(tableName string) {
	c.cache.Remove(tableName)
}
