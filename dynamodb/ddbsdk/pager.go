package ddbsdk

import (
	"context"
	"errors"
)

var ErrNoMorePages = errors.New("no more pages")

// Pager walks the pages of one request.
type Pager struct {
	exec     *Executor
	req      Request
	pageSize int32

	cursor  Item
	started bool
}

// NewPager pages through req. A pageSize of zero leaves the page size to
// the server.
func (e *Executor) NewPager(req Request, pageSize int32) *Pager {
	return &Pager{
		exec:     e,
		req:      req,
		pageSize: pageSize,
	}
}

// Resume continues after cursor, a LastEvaluatedKey from an earlier page.
func (p *Pager) Resume(cursor Item) *Pager {
	p.cursor = cursor
	p.started = cursor != nil
	return p
}

func (p *Pager) Request() Request {
	return p.req
}

// Cursor is the LastEvaluatedKey of the last page, nil when done.
func (p *Pager) Cursor() Item {
	return p.cursor
}

func (p *Pager) HasMore() bool {
	return !p.started || p.cursor != nil
}

func (p *Pager) Next(ctx context.Context) (*Page, error) {
	if !p.HasMore() {
		return nil, ErrNoMorePages
	}
	page, err := p.exec.ExecutePage(ctx, p.req, p.cursor, p.pageSize)
	if err != nil {
		return nil, err
	}
	p.started = true
	p.cursor = page.LastEvaluatedKey
	return page, nil
}

// All collects items from the remaining pages. A positive maxItems stops
// once that many items are collected and truncates to it.
func (p *Pager) All(ctx context.Context, maxItems int) ([]Item, error) {
	var allItems []Item
	for p.HasMore() {
		page, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		allItems = append(allItems, page.Items...)
		if maxItems > 0 && len(allItems) >= maxItems {
			return allItems[:maxItems], nil
		}
	}
	return allItems, nil
}
