package ddbsdk

import (
	"fmt"
	"maps"
	"strings"

	"github.com/acksell/dynamate/dynamodb/filterexpr"
	"github.com/acksell/dynamate/dynamodb/planner"
	"github.com/acksell/dynamate/dynamodb/render"
	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type RequestOptions struct {
	// Projection limits the returned attributes. Empty returns everything.
	Projection []string
	Descending bool
	// ConsistentRead is ignored for GSI queries, which DynamoDB rejects.
	ConsistentRead bool
}

// Request is a planned Query or Scan with its rendered expressions. Empty
// strings mean the expression is absent.
type Request struct {
	Table     string
	Plan      planner.AccessPlan
	Kind      planner.PlanKind
	IndexName string

	KeyCondition string
	Filter       string
	Projection   string
	Names        map[string]string
	Values       map[string]types.AttributeValue

	// Dropped counts conditions of an indexed request that are neither key
	// conditions nor rendered as a filter.
	Dropped int

	opts RequestOptions
}

// ParseRequest parses filter text and builds the request for it. Blank text
// is a plain scan.
func ParseRequest(schema table.Schema, text string, opts RequestOptions) (Request, error) {
	var expr filterexpr.Expression
	if strings.TrimSpace(text) != "" {
		var err error
		expr, err = filterexpr.Parse(text)
		if err != nil {
			return Request{}, err
		}
	}
	return BuildRequest(schema, expr, opts)
}

// BuildRequest plans expr against the schema and renders the request. A
// nil expression is a plain scan.
func BuildRequest(schema table.Schema, expr filterexpr.Expression, opts RequestOptions) (Request, error) {
	plan := planner.PlanAccess(schema, expr)
	rendered := render.Query(plan, expr)

	req := Request{
		Table:        schema.Name,
		Plan:         plan,
		Kind:         plan.Kind,
		IndexName:    plan.IndexName,
		KeyCondition: rendered.KeyCondition,
		Filter:       rendered.Filter,
		Names:        rendered.Names,
		Values:       rendered.Values,
		opts:         opts,
	}
	if !plan.IsScan() && rendered.Filter == "" {
		if conds, ok := planner.ExtractConditions(expr); ok {
			req.Dropped = max(len(conds)-len(plan.KeyConditions()), 0)
		}
	}

	if len(opts.Projection) > 0 {
		names := make([]expression.NameBuilder, len(opts.Projection))
		for i, attr := range opts.Projection {
			names[i] = expression.Name(attr)
		}
		proj := expression.NamesList(names[0], names[1:]...)
		built, err := expression.NewBuilder().WithProjection(proj).Build()
		if err != nil {
			return Request{}, fmt.Errorf("failed to build projection expression: %w", err)
		}
		req.Projection = aws.ToString(built.Projection())
		if req.Names == nil {
			req.Names = make(map[string]string)
		}
		maps.Copy(req.Names, built.Names())
	}
	return req, nil
}

// Operation is the human label of the request, as shown next to results.
func (r Request) Operation() string {
	switch r.Kind {
	case planner.TablePrimaryKey:
		return "Query (Table)"
	case planner.GlobalIndex:
		return fmt.Sprintf("Query (GSI: %s)", r.IndexName)
	case planner.LocalIndex:
		return fmt.Sprintf("Query (LSI: %s)", r.IndexName)
	default:
		return "Scan"
	}
}

func (r Request) IsScan() bool {
	return r.Kind == planner.FullScan
}

func (r Request) QueryInput(startKey Item, limit int32) *dynamodb.QueryInput {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(r.Table),
		KeyConditionExpression:    optional(r.KeyCondition),
		FilterExpression:          optional(r.Filter),
		ProjectionExpression:      optional(r.Projection),
		ExpressionAttributeNames:  nonEmpty(r.Names),
		ExpressionAttributeValues: nonEmpty(r.Values),
		ExclusiveStartKey:         startKey,
		ReturnConsumedCapacity:    types.ReturnConsumedCapacityTotal,
	}
	if r.IndexName != "" {
		in.IndexName = aws.String(r.IndexName)
	}
	if limit > 0 {
		in.Limit = aws.Int32(limit)
	}
	if r.opts.Descending {
		in.ScanIndexForward = aws.Bool(false)
	}
	if r.opts.ConsistentRead && r.Kind != planner.GlobalIndex {
		in.ConsistentRead = aws.Bool(true)
	}
	return in
}

// Segment selects one part of a parallel scan.
type Segment struct {
	Index int32
	Total int32
}

func (r Request) ScanInput(startKey Item, limit int32, segment *Segment) *dynamodb.ScanInput {
	in := &dynamodb.ScanInput{
		TableName:                 aws.String(r.Table),
		FilterExpression:          optional(r.Filter),
		ProjectionExpression:      optional(r.Projection),
		ExpressionAttributeNames:  nonEmpty(r.Names),
		ExpressionAttributeValues: nonEmpty(r.Values),
		ExclusiveStartKey:         startKey,
		ReturnConsumedCapacity:    types.ReturnConsumedCapacityTotal,
	}
	if limit > 0 {
		in.Limit = aws.Int32(limit)
	}
	if segment != nil {
		in.Segment = aws.Int32(segment.Index)
		in.TotalSegments = aws.Int32(segment.Total)
	}
	if r.opts.ConsistentRead {
		in.ConsistentRead = aws.Bool(true)
	}
	return in
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// nonEmpty drops empty placeholder maps, which DynamoDB rejects.
func nonEmpty[V any](m map[string]V) map[string]V {
	if len(m) == 0 {
		return nil
	}
	return m
}
