package ddbsdk

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/acksell/dynamate/dynamodb/ddbiface"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MaxBatchSize is the number of write requests DynamoDB accepts per
// BatchWriteItem call.
const MaxBatchSize = 25

type batchOpts struct {
	maxRetries int
	backoff    BackoffFunc
}

type BatchOption func(*batchOpts)

// BackoffFunc returns the duration to wait before retry attempt n.
type BackoffFunc func(attempt int) time.Duration

// WithMaxRetries sets how often unprocessed items are resent.
func WithMaxRetries(n int) BatchOption {
	return func(o *batchOpts) {
		o.maxRetries = n
	}
}

func WithCustomBackoff(fn BackoffFunc) BatchOption {
	return func(o *batchOpts) {
		o.backoff = fn
	}
}

// DefaultBackoff is 50ms doubling up to 5s, with full jitter.
var DefaultBackoff = ExponentialBackoff(50*time.Millisecond, 2, 5*time.Second)

// ExponentialBackoff returns a capped exponential backoff with full jitter.
// Wait time is: rand(0, min(cap, base * multiplier^attempt))
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter/
func ExponentialBackoff(base time.Duration, multiplier float64, cap time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		factor := 1.0
		for i := 0; i < attempt; i++ {
			factor *= multiplier
		}
		backoff := time.Duration(float64(base) * factor)
		if backoff > cap {
			backoff = cap
		}
		if backoff <= 0 {
			return 0
		}
		return time.Duration(rand.Int64N(int64(backoff)))
	}
}

// BatchPut writes items to tableName in chunks of MaxBatchSize, resending
// unprocessed items with backoff. It returns the number of items written.
func BatchPut(ctx context.Context, client ddbiface.Client, tableName string, items []Item, opts ...BatchOption) (int, error) {
	o := batchOpts{maxRetries: 5, backoff: DefaultBackoff}
	for _, opt := range opts {
		opt(&o)
	}

	written := 0
	for start := 0; start < len(items); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(items))
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}
		if err := writeChunk(ctx, client, tableName, reqs, o); err != nil {
			return written, err
		}
		written += len(reqs)
	}
	return written, nil
}

func writeChunk(ctx context.Context, client ddbiface.Client, tableName string, reqs []types.WriteRequest, o batchOpts) error {
	pending := map[string][]types.WriteRequest{tableName: reqs}
	for retries := 0; ; retries++ {
		res, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("batch write failed: %w", err)
		}
		pending = res.UnprocessedItems
		if countRequests(pending) == 0 {
			return nil
		}
		if retries >= o.maxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %d items unprocessed", o.maxRetries, countRequests(pending))
		}
		if o.backoff != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.backoff(retries)):
			}
		}
	}
}

func countRequests(m map[string][]types.WriteRequest) int {
	var n int
	for _, reqs := range m {
		n += len(reqs)
	}
	return n
}
