package ddbsdk

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PutItemAction is implemented by Put.
type PutItemAction interface {
	ToPutItem() (*dynamodb.PutItemInput, error)
}

// DeleteItemAction is implemented by Delete.
type DeleteItemAction interface {
	ToDeleteItem() (*dynamodb.DeleteItemInput, error)
}

var (
	_ PutItemAction    = &Put{}
	_ DeleteItemAction = &Delete{}
)

// Put writes a whole item, replacing any item with the same key.
type Put struct {
	Table string
	Item  Item

	c expression.ConditionBuilder
}

func NewPut(tableName string, item Item) *Put {
	return &Put{Table: tableName, Item: item}
}

// NewCreate is a Put that fails with a ConditionalCheckFailedException when
// an item with the same key already exists.
func NewCreate(tableName, partitionKey string, item Item) *Put {
	return NewPut(tableName, item).WithCondition(
		expression.AttributeNotExists(expression.Name(partitionKey)))
}

// WithCondition adds a condition expression, ANDed with any existing one.
func (p *Put) WithCondition(c expression.ConditionBuilder) *Put {
	if p.c.IsSet() {
		p.c = p.c.And(c)
		return p
	}
	p.c = c
	return p
}

func (p *Put) ToPutItem() (*dynamodb.PutItemInput, error) {
	in := &dynamodb.PutItemInput{
		TableName: aws.String(p.Table),
		Item:      p.Item,
	}
	if p.c.IsSet() {
		e, err := expression.NewBuilder().WithCondition(p.c).Build()
		if err != nil {
			return nil, fmt.Errorf("build put condition: %w", err)
		}
		in.ConditionExpression = e.Condition()
		in.ExpressionAttributeNames = e.Names()
		in.ExpressionAttributeValues = e.Values()
	}
	return in, nil
}

// Delete removes the item with Key. The removed item is always requested
// back so callers can tell whether anything was deleted.
type Delete struct {
	Table string
	Key   Item

	c expression.ConditionBuilder
}

func NewDelete(tableName string, key Item) *Delete {
	return &Delete{Table: tableName, Key: key}
}

func (d *Delete) WithCondition(c expression.ConditionBuilder) *Delete {
	if d.c.IsSet() {
		d.c = d.c.And(c)
		return d
	}
	d.c = c
	return d
}

func (d *Delete) ToDeleteItem() (*dynamodb.DeleteItemInput, error) {
	in := &dynamodb.DeleteItemInput{
		TableName:    aws.String(d.Table),
		Key:          d.Key,
		ReturnValues: types.ReturnValueAllOld,
	}
	if d.c.IsSet() {
		e, err := expression.NewBuilder().WithCondition(d.c).Build()
		if err != nil {
			return nil, fmt.Errorf("build delete condition: %w", err)
		}
		in.ConditionExpression = e.Condition()
		in.ExpressionAttributeNames = e.Names()
		in.ExpressionAttributeValues = e.Values()
	}
	return in, nil
}

// GetItemRequest identifies an item to retrieve with optional projection.
type GetItemRequest struct {
	Table          string
	Key            Item
	Projection     []string
	ConsistentRead bool
}

func (r GetItemRequest) toGetItem() (*dynamodb.GetItemInput, error) {
	in := &dynamodb.GetItemInput{
		TableName:      aws.String(r.Table),
		Key:            r.Key,
		ConsistentRead: aws.Bool(r.ConsistentRead),
	}
	if len(r.Projection) > 0 {
		names := make([]expression.NameBuilder, len(r.Projection))
		for i, attr := range r.Projection {
			names[i] = expression.Name(attr)
		}
		e, err := expression.NewBuilder().
			WithProjection(expression.NamesList(names[0], names[1:]...)).
			Build()
		if err != nil {
			return nil, fmt.Errorf("build projection: %w", err)
		}
		in.ProjectionExpression = e.Projection()
		in.ExpressionAttributeNames = e.Names()
	}
	return in, nil
}

// PutItem writes one item.
func (e *Executor) PutItem(ctx context.Context, p PutItemAction) error {
	in, err := p.ToPutItem()
	if err != nil {
		return fmt.Errorf("failed to convert put to put item: %w", err)
	}
	err = e.itemCall(ctx, "PutItem", aws.ToString(in.TableName), func() (int, error) {
		_, err := e.client.PutItem(ctx, in)
		return 0, err
	})
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// GetItem returns the item, or nil when there is none.
func (e *Executor) GetItem(ctx context.Context, r GetItemRequest) (Item, error) {
	in, err := r.toGetItem()
	if err != nil {
		return nil, err
	}
	var item Item
	err = e.itemCall(ctx, "GetItem", r.Table, func() (int, error) {
		out, err := e.client.GetItem(ctx, in)
		if err != nil {
			return 0, err
		}
		item = out.Item
		if len(item) == 0 {
			return 0, nil
		}
		return 1, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get item failed: %w", err)
	}
	if len(item) == 0 {
		return nil, nil
	}
	return item, nil
}

// DeleteItem removes one item and returns it, or nil when nothing was
// stored under the key.
func (e *Executor) DeleteItem(ctx context.Context, d DeleteItemAction) (Item, error) {
	in, err := d.ToDeleteItem()
	if err != nil {
		return nil, fmt.Errorf("failed to convert delete to delete item: %w", err)
	}
	var old Item
	err = e.itemCall(ctx, "DeleteItem", aws.ToString(in.TableName), func() (int, error) {
		out, err := e.client.DeleteItem(ctx, in)
		if err != nil {
			return 0, err
		}
		old = out.Attributes
		return 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete item: %w", err)
	}
	if len(old) == 0 {
		return nil, nil
	}
	return old, nil
}

// itemCall runs a single-item request with the debug delay, logging and
// metrics that page requests get. send returns the number of items read.
func (e *Executor) itemCall(ctx context.Context, operation, tableName string, send func() (int, error)) error {
	if err := e.wait(ctx); err != nil {
		return err
	}
	start := time.Now()
	items, err := send()
	took := time.Since(start)
	e.metrics.observe(operation, took, items, err)

	attrs := []any{"operation", operation, "table", tableName, "duration_ms", took.Milliseconds()}
	if err != nil {
		e.log.Warn("dynamo request failed", append(attrs, "error", err)...)
		return err
	}
	e.log.Debug("dynamo request", attrs...)
	return nil
}
