package ddbsdk

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
)

// ParallelScan splits a scan request into concurrent segment scans on an
// ants pool and returns the items in segment order. A positive maxItems
// stops all segments once that many items are collected and truncates to it.
func (e *Executor) ParallelScan(ctx context.Context, req Request, segments int, pageSize int32, maxItems int) ([]Item, error) {
	if !req.IsScan() {
		return nil, fmt.Errorf("parallel scan needs a scan request, got %s", req.Operation())
	}
	if segments < 1 {
		return nil, fmt.Errorf("segments must be at least 1, got %d", segments)
	}
	if segments == 1 {
		return e.NewPager(req, pageSize).All(ctx, maxItems)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		total    atomic.Int64
		results  = make([][]Item, segments)
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	pool, err := ants.NewPool(segments, ants.WithPanicHandler(func(v any) {
		fail(fmt.Errorf("scan segment panicked: %v", v))
	}))
	if err != nil {
		return nil, fmt.Errorf("create scan pool: %w", err)
	}
	defer pool.Release()

	for i := 0; i < segments; i++ {
		segment := Segment{Index: int32(i), Total: int32(segments)}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			items, err := e.scanSegment(ctx, req, pageSize, segment, maxItems, &total)
			if err != nil {
				fail(fmt.Errorf("segment %d: %w", segment.Index, err))
				return
			}
			results[segment.Index] = items
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit segment %d: %w", i, err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	var allItems []Item
	for _, items := range results {
		allItems = append(allItems, items...)
	}
	if maxItems > 0 && len(allItems) > maxItems {
		allItems = allItems[:maxItems]
	}
	return allItems, nil
}

func (e *Executor) scanSegment(ctx context.Context, req Request, pageSize int32, segment Segment, maxItems int, total *atomic.Int64) ([]Item, error) {
	var items []Item
	var cursor Item
	for {
		if maxItems > 0 && total.Load() >= int64(maxItems) {
			return items, nil
		}
		page, err := e.ExecuteSegment(ctx, req, cursor, pageSize, segment)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		total.Add(int64(len(page.Items)))
		if page.LastEvaluatedKey == nil {
			return items, nil
		}
		cursor = page.LastEvaluatedKey
	}
}
