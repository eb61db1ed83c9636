package traverse

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/postmanlabs/postman-code-examples/pkg/notion"
)

// ChildLister is the façade surface the subtree fetcher needs: one page
// of a block's direct children. *notion.Client satisfies it.
type ChildLister interface {
	ListBlockChildren(ctx context.Context, blockID string, opts notion.PageOptions) (*notion.List[notion.Block], error)
}

// KindSet is an enumerable set of block kinds, used to declare the
// opaque traversal boundaries. It is injected configuration, not
// hard-coded logic, so the walker can serve hierarchies with different
// boundary rules.
type KindSet map[notion.BlockType]struct{}

// NewKindSet builds a set from the given kinds.
func NewKindSet(kinds ...notion.BlockType) KindSet {
	s := make(KindSet, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

// Contains reports set membership.
func (s KindSet) Contains(k notion.BlockType) bool {
	_, ok := s[k]
	return ok
}

// DefaultBoundaryKinds returns the standard opaque boundaries: child
// pages and child databases are surfaced as leaves carrying their own ID
// and never expanded automatically.
func DefaultBoundaryKinds() KindSet {
	return NewKindSet(notion.BlockTypeChildPage, notion.BlockTypeChildDatabase)
}

// Entry is one node of an assembled tree, tagged with its depth. Direct
// children of the requested root sit at depth 0; a direct child of an
// entry at depth d appears at d+1, after its parent, in pre-order.
type Entry struct {
	Block notion.Block `json:"block"`
	Depth int          `json:"depth"`
}

// TraversalResult is the ordered, depth-tagged pre-order sequence
// produced by FetchTree. It is plain data; rendering belongs to the
// caller.
type TraversalResult []Entry

// WalkerConfig configures a Walker.
type WalkerConfig struct {
	// Client lists block children. Required.
	Client ChildLister

	// Boundaries is the opaque-boundary kind set. Nil selects
	// DefaultBoundaryKinds.
	Boundaries KindSet

	// PageSize is the page_size requested per children listing. Zero
	// lets the server choose.
	PageSize int

	// MaxConcurrent caps the number of sibling subtrees fetched
	// concurrently at each level. Zero means no cap. The cap is per
	// level, so it can never deadlock the recursion.
	MaxConcurrent int

	// Logger is optional.
	Logger hclog.Logger
}

// Walker assembles a page's content tree by recursively expanding block
// children, fanning sibling subtree fetches out concurrently and merging
// them back in source order.
type Walker struct {
	client        ChildLister
	boundaries    KindSet
	pageSize      int
	maxConcurrent int
	logger        hclog.Logger
}

// NewWalker validates the config and returns a ready walker.
func NewWalker(cfg WalkerConfig) (*Walker, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("walker requires a client")
	}
	if cfg.PageSize < 0 || cfg.PageSize > notion.MaxPageSize {
		return nil, fmt.Errorf("page size must be between 0 and %d, got %d", notion.MaxPageSize, cfg.PageSize)
	}
	if cfg.MaxConcurrent < 0 {
		return nil, fmt.Errorf("max concurrent fetches cannot be negative, got %d", cfg.MaxConcurrent)
	}
	boundaries := cfg.Boundaries
	if boundaries == nil {
		boundaries = DefaultBoundaryKinds()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Walker{
		client:        cfg.Client,
		boundaries:    boundaries,
		pageSize:      cfg.PageSize,
		maxConcurrent: cfg.MaxConcurrent,
		logger:        logger.Named("walker"),
	}, nil
}

// FetchTree expands the content tree under rootID (a page or block ID)
// and returns it as a deterministic pre-order sequence. Nodes whose kind
// is in the boundary set are reported but never expanded, so one call is
// bounded to one page's worth of content; the caller issues a new
// FetchTree with the reported ID to descend into a child page.
//
// If any fetch in the tree fails, the whole call fails with that error
// and no partial result. A caller wanting a timeout wraps ctx.
func (w *Walker) FetchTree(ctx context.Context, rootID string) (TraversalResult, error) {
	id, err := notion.NormalizeID(rootID)
	if err != nil {
		return nil, err
	}
	return w.fetchLevel(ctx, id, 0)
}

// children returns the complete direct child list of one node, driving
// the pagination primitive over the children endpoint.
func (w *Walker) children(ctx context.Context, id string) ([]notion.Block, error) {
	return FetchAll(ctx, func(ctx context.Context, cursor Cursor) (Page[notion.Block], error) {
		list, err := w.client.ListBlockChildren(ctx, id, notion.PageOptions{
			StartCursor: string(cursor),
			PageSize:    w.pageSize,
		})
		if err != nil {
			return Page[notion.Block]{}, err
		}
		page := Page[notion.Block]{Items: list.Results, HasMore: list.HasMore}
		if list.NextCursor != nil {
			page.NextCursor = Cursor(*list.NextCursor)
		}
		return page, nil
	})
}

// fetchLevel lists the children of one node and expands the recursable
// ones concurrently. Each recursive call returns its own ordered
// sequence; nothing is appended from inside a goroutine. Subtrees land
// in a per-child slot and are merged after the join, which makes the
// output order a pure function of the input structure no matter which
// fetch resolves first.
func (w *Walker) fetchLevel(ctx context.Context, id string, depth int) (TraversalResult, error) {
	children, err := w.children(ctx, id)
	if err != nil {
		return nil, err
	}

	w.logger.Debug("expanded node", "id", id, "depth", depth, "children", len(children))

	subtrees := make([]TraversalResult, len(children))
	g, gctx := errgroup.WithContext(ctx)
	if w.maxConcurrent > 0 {
		g.SetLimit(w.maxConcurrent)
	}

	for i, child := range children {
		if !w.shouldRecurse(child) {
			continue
		}
		i, child := i, child
		g.Go(func() error {
			sub, err := w.fetchLevel(gctx, child.ID, depth+1)
			if err != nil {
				return err
			}
			subtrees[i] = sub
			return nil
		})
	}

	// Join the full sibling set; the first failure cancels the rest and
	// fails this level, so no partial tree escapes.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(TraversalResult, 0, len(children))
	for i, child := range children {
		result = append(result, Entry{Block: child, Depth: depth})
		result = append(result, subtrees[i]...)
	}
	return result, nil
}

// shouldRecurse applies the expansion rule: descend iff the node claims
// children and its kind is not an opaque boundary.
func (w *Walker) shouldRecurse(b notion.Block) bool {
	return b.HasChildren && !w.boundaries.Contains(b.Type)
}
