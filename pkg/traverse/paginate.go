// Package traverse implements the discovery engine for workspaces whose
// storage is an implicit tree exposed only through flat, cursor-paginated
// list endpoints: a generic pagination primitive, a concurrent subtree
// fetcher that assembles a page's content tree, and a root-inference
// engine that reconstructs entry points from the flat search listing.
//
// The engine owns no persistent state. Every structure is created,
// consumed, and discarded within a single call, and every failure is
// propagated fail-fast: no operation ever returns partial results.
package traverse

import (
	"context"
	"fmt"
)

// Cursor is an opaque continuation token. The empty cursor requests the
// first page; cursors are only valid for the exact query that produced
// them.
type Cursor string

// Page is one fetch result from a cursor-paginated endpoint.
type Page[T any] struct {
	Items   []T
	HasMore bool

	// NextCursor must be non-empty exactly when HasMore is true.
	NextCursor Cursor
}

// PageFunc fetches one page of a listing. Implementations adapt a façade
// endpoint plus its fixed query parameters; only the cursor varies
// between calls.
type PageFunc[T any] func(ctx context.Context, cursor Cursor) (Page[T], error)

// FetchAll drives fetch in a cursor loop until exhaustion and returns
// every item in response order. Page N+1 is never requested before page
// N's cursor is known. Each item is yielded exactly once provided the
// remote collection's ordering is stable for the duration of the call;
// the remote store may mutate mid-iteration and that assumption is
// documented, not enforced.
//
// Any page failing aborts the whole fetch with the underlying error and
// no partial results.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var (
		items  []T
		cursor Cursor
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)

		if !page.HasMore {
			return items, nil
		}
		if page.NextCursor == "" {
			return nil, fmt.Errorf("paginated response reported more results but carried no cursor")
		}
		cursor = page.NextCursor
	}
}
