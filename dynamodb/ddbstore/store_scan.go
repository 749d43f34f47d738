package ddbstore

import (
	"context"
	"hash/fnv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Scan retrieves all items in a table or index, optionally with a filter.
// Limit counts evaluated items, so ScannedCount may exceed Count.
func (s *Store) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if params == nil {
		return nil, validationErrorf("params is required")
	}

	_, enc, err := s.getBadgerKeyEncoder(params.TableName, params.IndexName)
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
	inSegment, err := segmentFilter(enc, params.Segment, params.TotalSegments)
	if err != nil {
		return nil, err
	}
	start, err := startKey(enc, params.ExclusiveStartKey)
	if err != nil {
		return nil, err
	}

	res, err := s.iterate(ctx, iteration{
		prefix:   enc.tablePrefix(),
		start:    start,
		limit:    limitOf(params.Limit),
		include:  inSegment,
		filter:   filter,
		keyNames: enc.keyAttributes(),
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.ScanOutput{
		Count:            int32(len(res.items)),
		ScannedCount:     int32(res.scanned),
		LastEvaluatedKey: res.lastKey,
	}
	if params.Select != types.SelectCount {
		out.Items = projectAll(res.items, attrs)
	}
	return out, nil
}

// segmentFilter assigns every partition to one segment by hashing its
// encoded partition key.
func segmentFilter(enc *badgerKeyEncoder, segment, total *int32) (func(map[string]types.AttributeValue) bool, error) {
	if segment == nil && total == nil {
		return nil, nil
	}
	if segment == nil || total == nil {
		return nil, validationErrorf("Segment and TotalSegments must be specified together")
	}
	if *total < 1 || *segment < 0 || *segment >= *total {
		return nil, validationErrorf("Invalid segment %d of %d", *segment, *total)
	}
	pk := enc.keyDefs.PartitionKey
	return func(item map[string]types.AttributeValue) bool {
		b, err := encodeKeyValue(item[pk.Name], pk.Kind)
		if err != nil {
			return false
		}
		h := fnv.New32a()
		h.Write(b)
		return h.Sum32()%uint32(*total) == uint32(*segment)
	}, nil
}
