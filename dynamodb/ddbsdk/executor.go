package ddbsdk

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/acksell/dynamate/dynamodb/ddbiface"
	"github.com/acksell/dynamate/dynamodb/logger"
	"github.com/acksell/dynamate/dynamodb/planner"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DebugDelayEnv names the variable that adds an artificial delay, in
// milliseconds, before every request.
const DebugDelayEnv = "DYNAMATE_DEBUG_DYNAMO_DELAY_MS"

// Page is one page of Query or Scan results.
type Page struct {
	Items            []Item
	Count            int32
	ScannedCount     int32
	LastEvaluatedKey Item
	ConsumedCapacity *types.ConsumedCapacity
	Kind             planner.PlanKind
}

// Executor runs requests against a client, one page per call.
type Executor struct {
	client  ddbiface.Client
	metrics *Metrics
	log     *slog.Logger
	delay   time.Duration
}

type ExecutorOption func(*Executor)

func WithMetrics(m *Metrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.log = l
	}
}

// WithDelay overrides the delay read from DebugDelayEnv.
func WithDelay(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.delay = d
	}
}

func NewExecutor(client ddbiface.Client, opts ...ExecutorOption) *Executor {
	e := &Executor{
		client: client,
		delay:  -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get()
	}
	if e.delay < 0 {
		e.delay = DebugDelayFromEnv(e.log)
	}
	return e
}

func (e *Executor) Client() ddbiface.Client {
	return e.client
}

// DebugDelayFromEnv reads DebugDelayEnv. Invalid values are logged and
// ignored.
func DebugDelayFromEnv(log *slog.Logger) time.Duration {
	raw := os.Getenv(DebugDelayEnv)
	if raw == "" {
		return 0
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 0 {
		log.Warn("ignoring invalid debug delay", "env", DebugDelayEnv, "value", raw)
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// ExecutePage runs one page of req starting after startKey. A limit of zero
// leaves the page size to the server.
func (e *Executor) ExecutePage(ctx context.Context, req Request, startKey Item, limit int32) (*Page, error) {
	return e.execute(ctx, req, startKey, limit, nil)
}

// ExecuteSegment runs one page of one scan segment.
func (e *Executor) ExecuteSegment(ctx context.Context, req Request, startKey Item, limit int32, segment Segment) (*Page, error) {
	if !req.IsScan() {
		return nil, fmt.Errorf("segments only apply to scans, got %s", req.Operation())
	}
	return e.execute(ctx, req, startKey, limit, &segment)
}

func (e *Executor) execute(ctx context.Context, req Request, startKey Item, limit int32, segment *Segment) (*Page, error) {
	if err := e.wait(ctx); err != nil {
		return nil, err
	}

	operation := req.Operation()
	if req.Dropped > 0 && startKey == nil {
		e.log.Warn("conditions not applied to indexed request",
			"operation", operation, "table", req.Table, "dropped", req.Dropped)
	}
	start := time.Now()
	page, err := e.send(ctx, req, startKey, limit, segment)
	took := time.Since(start)

	items := 0
	if page != nil {
		items = len(page.Items)
	}
	e.metrics.observe(operation, took, items, err)

	attrs := []any{
		"operation", operation,
		"table", req.Table,
		"index", req.IndexName,
		"duration_ms", took.Milliseconds(),
	}
	if err != nil {
		e.log.Warn("dynamo request failed", append(attrs, "error", err)...)
		return nil, err
	}
	e.log.Debug("dynamo request", append(attrs,
		"count", page.Count,
		"scanned_count", page.ScannedCount,
		"has_more", page.LastEvaluatedKey != nil,
	)...)
	return page, nil
}

func (e *Executor) send(ctx context.Context, req Request, startKey Item, limit int32, segment *Segment) (*Page, error) {
	if req.IsScan() {
		out, err := e.client.Scan(ctx, req.ScanInput(startKey, limit, segment))
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		return &Page{
			Items:            out.Items,
			Count:            out.Count,
			ScannedCount:     out.ScannedCount,
			LastEvaluatedKey: out.LastEvaluatedKey,
			ConsumedCapacity: out.ConsumedCapacity,
			Kind:             req.Kind,
		}, nil
	}

	out, err := e.client.Query(ctx, req.QueryInput(startKey, limit))
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &Page{
		Items:            out.Items,
		Count:            out.Count,
		ScannedCount:     out.ScannedCount,
		LastEvaluatedKey: out.LastEvaluatedKey,
		ConsumedCapacity: out.ConsumedCapacity,
		Kind:             req.Kind,
	}, nil
}

func (e *Executor) wait(ctx context.Context) error {
	if e.delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.delay):
		return nil
	}
}
