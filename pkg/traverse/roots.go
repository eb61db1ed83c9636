package traverse

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/postmanlabs/postman-code-examples/pkg/notion"
)

// SearchLister is the façade surface root inference needs: one page of
// the flat, permission-filtered listing of everything the integration
// can see. *notion.Client satisfies it.
type SearchLister interface {
	Search(ctx context.Context, q notion.SearchQuery, opts notion.PageOptions) (*notion.List[notion.Entity], error)
}

// RootReason records which clause of the root predicate admitted a node.
type RootReason string

const (
	// RootReasonTopLevel marks a true top-level node: its parent is the
	// workspace sentinel.
	RootReasonTopLevel RootReason = "top_level"

	// RootReasonHiddenParent marks a node whose nominal parent page is
	// absent from the visible set: the node is visible but its ancestor
	// is outside the caller's grant, making the node an effective entry
	// point.
	RootReasonHiddenParent RootReason = "hidden_parent"
)

// Root is one entry point of the workspace tree for this caller.
type Root struct {
	Entity notion.Entity `json:"entity"`
	Reason RootReason    `json:"reason"`
}

// RootSet is the set of roots derived from one inference run, in the
// order the flat listing returned them. Always a subset of the visible
// index; computed fresh every invocation and never cached, since the
// workspace can change between runs.
type RootSet []Root

// VisibleIndex is the set of canonical node IDs observed while
// exhausting the flat listing. Scratch state for one inference run.
type VisibleIndex map[string]struct{}

// Contains reports whether the given ID (in any accepted form) was
// observed.
func (v VisibleIndex) Contains(id string) bool {
	canonical, err := notion.NormalizeID(id)
	if err != nil {
		return false
	}
	_, ok := v[canonical]
	return ok
}

func (v VisibleIndex) add(id string) error {
	canonical, err := notion.NormalizeID(id)
	if err != nil {
		return err
	}
	v[canonical] = struct{}{}
	return nil
}

// RootInferenceConfig configures a RootInference.
type RootInferenceConfig struct {
	// Client performs the flat listing. Required.
	Client SearchLister

	// PageSize per listing page. Zero lets the server choose.
	PageSize int

	// Logger is optional.
	Logger hclog.Logger
}

// RootInference derives the set of tree roots reachable by this caller
// from the flat listing. The API offers no ancestor-visibility query, so
// the predicate is a set-membership heuristic: a parent ID absent from
// the visible set is treated as an ancestor the caller cannot see,
// which is indistinguishable from an ancestor that does not exist.
type RootInference struct {
	client   SearchLister
	pageSize int
	logger   hclog.Logger
}

// NewRootInference validates the config and returns a ready engine.
func NewRootInference(cfg RootInferenceConfig) (*RootInference, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("root inference requires a client")
	}
	if cfg.PageSize < 0 || cfg.PageSize > notion.MaxPageSize {
		return nil, fmt.Errorf("page size must be between 0 and %d, got %d", notion.MaxPageSize, cfg.PageSize)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &RootInference{
		client:   cfg.Client,
		pageSize: cfg.PageSize,
		logger:   logger.Named("root-inference"),
	}, nil
}

// InferRoots exhausts the flat listing under the given query (passed
// through verbatim) and returns the nodes satisfying the root predicate:
//
//   - the parent is the workspace sentinel, or
//   - the parent is a page reference whose ID is absent from the
//     visible set.
//
// A node parented by a database is never a root, even when that database
// is not itself visible: databases are addressed separately by their own
// ID, not treated as ordinary ancestors. Likewise a node parented by a
// block is nested content, not an entry point.
//
// If the listing fails partway through, the whole call fails: a partial
// visible index would silently corrupt the predicate.
func (r *RootInference) InferRoots(ctx context.Context, q notion.SearchQuery) (RootSet, error) {
	entities, err := FetchAll(ctx, func(ctx context.Context, cursor Cursor) (Page[notion.Entity], error) {
		list, err := r.client.Search(ctx, q, notion.PageOptions{
			StartCursor: string(cursor),
			PageSize:    r.pageSize,
		})
		if err != nil {
			return Page[notion.Entity]{}, err
		}
		page := Page[notion.Entity]{Items: list.Results, HasMore: list.HasMore}
		if list.NextCursor != nil {
			page.NextCursor = Cursor(*list.NextCursor)
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}

	visible := make(VisibleIndex, len(entities))
	for _, e := range entities {
		if err := visible.add(e.ID); err != nil {
			return nil, fmt.Errorf("flat listing returned malformed ID: %w", err)
		}
	}

	var roots RootSet
	for _, e := range entities {
		switch e.Parent.Type {
		case notion.ParentTypeWorkspace:
			roots = append(roots, Root{Entity: e, Reason: RootReasonTopLevel})
		case notion.ParentTypePage:
			if !visible.Contains(e.Parent.PageID) {
				roots = append(roots, Root{Entity: e, Reason: RootReasonHiddenParent})
			}
		case notion.ParentTypeDatabase, notion.ParentTypeBlock:
			// Never roots.
		}
	}

	r.logger.Debug("inferred roots", "visible", len(visible), "roots", len(roots))
	return roots, nil
}
