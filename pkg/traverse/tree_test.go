package traverse

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postmanlabs/postman-code-examples/pkg/notion"
)

// testID produces a stable canonical UUID from a small index.
func testID(n int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}

// fakeChildLister serves an in-memory tree with optional per-node
// latency, per-node failures, and cursor pagination of child lists.
type fakeChildLister struct {
	mu       sync.Mutex
	children map[string][]notion.Block
	delays   map[string]time.Duration
	failures map[string]error
	calls    map[string]int
	pageSize int // server-side cap; zero serves everything at once

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func newFakeChildLister() *fakeChildLister {
	return &fakeChildLister{
		children: make(map[string][]notion.Block),
		delays:   make(map[string]time.Duration),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// addChildren registers the child list of parent. Boundary kinds keep
// their children registered so tests can prove they are never fetched.
func (f *fakeChildLister) addChildren(parent string, blocks ...notion.Block) {
	f.children[parent] = append(f.children[parent], blocks...)
}

func (f *fakeChildLister) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeChildLister) ListBlockChildren(ctx context.Context, blockID string, opts notion.PageOptions) (*notion.List[notion.Block], error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if cur <= peak || f.maxInFlight.CompareAndSwap(peak, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls[blockID]++
	delay := f.delays[blockID]
	failure := f.failures[blockID]
	all := f.children[blockID]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if failure != nil {
		return nil, failure
	}

	start := 0
	if opts.StartCursor != "" {
		if _, err := fmt.Sscanf(opts.StartCursor, "idx:%d", &start); err != nil {
			return nil, fmt.Errorf("bad cursor %q", opts.StartCursor)
		}
	}

	limit := len(all)
	if opts.PageSize > 0 && opts.PageSize < limit {
		limit = opts.PageSize
	}
	if f.pageSize > 0 && f.pageSize < limit {
		limit = f.pageSize
	}

	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	list := &notion.List[notion.Block]{
		Object:  "list",
		Results: all[start:end],
		HasMore: end < len(all),
	}
	if list.HasMore {
		cursor := fmt.Sprintf("idx:%d", end)
		list.NextCursor = &cursor
	}
	return list, nil
}

func leafBlock(id string, kind notion.BlockType) notion.Block {
	return notion.Block{ID: id, Type: kind}
}

func branchBlock(id string, kind notion.BlockType) notion.Block {
	return notion.Block{ID: id, Type: kind, HasChildren: true}
}

func newTestWalker(t *testing.T, f *fakeChildLister, opts ...func(*WalkerConfig)) *Walker {
	t.Helper()
	cfg := WalkerConfig{Client: f}
	for _, opt := range opts {
		opt(&cfg)
	}
	w, err := NewWalker(cfg)
	require.NoError(t, err)
	return w
}

// buildNestedTree wires up:
//
//	root
//	├── a (toggle)          ├── a1, a2
//	├── b (paragraph)
//	└── c (toggle)          └── c1 (toggle) └── c1x
//
// and returns the lister plus the expected pre-order (id, depth) pairs.
func buildNestedTree(f *fakeChildLister) (root string, want TraversalResult) {
	root = testID(0)
	a, b, c := testID(1), testID(2), testID(3)
	a1, a2 := testID(11), testID(12)
	c1, c1x := testID(31), testID(311)

	blkA := branchBlock(a, notion.BlockTypeToggle)
	blkB := leafBlock(b, notion.BlockTypeParagraph)
	blkC := branchBlock(c, notion.BlockTypeToggle)
	blkA1 := leafBlock(a1, notion.BlockTypeBulletedListItem)
	blkA2 := leafBlock(a2, notion.BlockTypeBulletedListItem)
	blkC1 := branchBlock(c1, notion.BlockTypeToggle)
	blkC1x := leafBlock(c1x, notion.BlockTypeParagraph)

	f.addChildren(root, blkA, blkB, blkC)
	f.addChildren(a, blkA1, blkA2)
	f.addChildren(c, blkC1)
	f.addChildren(c1, blkC1x)

	want = TraversalResult{
		{Block: blkA, Depth: 0},
		{Block: blkA1, Depth: 1},
		{Block: blkA2, Depth: 1},
		{Block: blkB, Depth: 0},
		{Block: blkC, Depth: 0},
		{Block: blkC1, Depth: 1},
		{Block: blkC1x, Depth: 2},
	}
	return root, want
}

func TestWalker_FetchTreePreOrder(t *testing.T) {
	f := newFakeChildLister()
	root, want := buildNestedTree(f)

	w := newTestWalker(t, f)
	got, err := w.FetchTree(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestWalker_DepthInvariant(t *testing.T) {
	f := newFakeChildLister()
	root, _ := buildNestedTree(f)

	w := newTestWalker(t, f)
	got, err := w.FetchTree(context.Background(), root)
	require.NoError(t, err)

	// Every entry's depth is one more than the nearest preceding entry
	// that is its parent, and top-level entries sit at depth 0.
	depthOf := map[string]int{}
	for _, e := range got {
		depthOf[e.Block.ID] = e.Depth
	}
	parents := map[string]string{
		testID(11):  testID(1),
		testID(12):  testID(1),
		testID(31):  testID(3),
		testID(311): testID(31),
	}
	for child, parent := range parents {
		assert.Equal(t, depthOf[parent]+1, depthOf[child],
			"child %s must sit one level below parent %s", child, parent)
	}
	assert.Equal(t, 0, depthOf[testID(1)])
	assert.Equal(t, 0, depthOf[testID(2)])
	assert.Equal(t, 0, depthOf[testID(3)])
}

func TestWalker_DeterministicOrderUnderConcurrency(t *testing.T) {
	f := newFakeChildLister()
	root, want := buildNestedTree(f)

	// Invert natural completion order: the first sibling subtree is the
	// slowest, the last is the fastest.
	f.delays[testID(1)] = 30 * time.Millisecond
	f.delays[testID(3)] = 1 * time.Millisecond
	f.delays[testID(31)] = 20 * time.Millisecond

	w := newTestWalker(t, f)
	for run := 0; run < 10; run++ {
		got, err := w.FetchTree(context.Background(), root)
		require.NoError(t, err)
		require.Equal(t, want, got, "run %d produced a different order", run)
	}
}

func TestWalker_BoundaryKindsNeverExpanded(t *testing.T) {
	f := newFakeChildLister()
	root := testID(0)
	childPage := testID(5)
	childDB := testID(6)

	pageBlock := branchBlock(childPage, notion.BlockTypeChildPage)
	dbBlock := branchBlock(childDB, notion.BlockTypeChildDatabase)
	f.addChildren(root, pageBlock, dbBlock)

	// Children exist behind the boundary; they must never be requested.
	f.addChildren(childPage, leafBlock(testID(51), notion.BlockTypeParagraph))
	f.addChildren(childDB, leafBlock(testID(61), notion.BlockTypeParagraph))

	w := newTestWalker(t, f)
	got, err := w.FetchTree(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, TraversalResult{
		{Block: pageBlock, Depth: 0},
		{Block: dbBlock, Depth: 0},
	}, got)
	assert.Zero(t, f.callCount(childPage), "child page must not be expanded")
	assert.Zero(t, f.callCount(childDB), "child database must not be expanded")
}

func TestWalker_CustomBoundarySet(t *testing.T) {
	f := newFakeChildLister()
	root := testID(0)
	toggle := testID(1)
	f.addChildren(root, branchBlock(toggle, notion.BlockTypeToggle))
	f.addChildren(toggle, leafBlock(testID(11), notion.BlockTypeParagraph))

	w := newTestWalker(t, f, func(cfg *WalkerConfig) {
		cfg.Boundaries = NewKindSet(notion.BlockTypeToggle)
	})
	got, err := w.FetchTree(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Zero(t, f.callCount(toggle), "injected boundary kind must not be expanded")
}

func TestWalker_FailFastOnSubtreeError(t *testing.T) {
	f := newFakeChildLister()
	root := testID(0)
	a, b, c := testID(1), testID(2), testID(3)
	f.addChildren(root,
		branchBlock(a, notion.BlockTypeToggle),
		branchBlock(b, notion.BlockTypeToggle),
		branchBlock(c, notion.BlockTypeToggle),
	)
	f.addChildren(a, leafBlock(testID(11), notion.BlockTypeParagraph))
	f.addChildren(c, leafBlock(testID(31), notion.BlockTypeParagraph))

	f.delays[a] = 20 * time.Millisecond
	f.delays[c] = 20 * time.Millisecond
	f.failures[b] = &notion.Error{Kind: notion.KindNotFound, StatusCode: 404, Message: "not shared"}

	w := newTestWalker(t, f)
	got, err := w.FetchTree(context.Background(), root)

	require.Error(t, err)
	assert.True(t, notion.IsNotFound(err), "original typed error must surface unwrapped")
	assert.Nil(t, got, "no partial tree on failure")
}

func TestWalker_PaginatesChildLists(t *testing.T) {
	f := newFakeChildLister()
	f.pageSize = 100

	root := testID(0)
	for i := 0; i < 250; i++ {
		f.addChildren(root, leafBlock(testID(1000+i), notion.BlockTypeParagraph))
	}

	w := newTestWalker(t, f)
	got, err := w.FetchTree(context.Background(), root)
	require.NoError(t, err)

	assert.Len(t, got, 250)
	assert.Equal(t, 3, f.callCount(root), "250 children at page size 100 take 3 calls")
	for i, e := range got {
		assert.Equal(t, testID(1000+i), e.Block.ID, "page order preserved across cursor calls")
	}
}

func TestWalker_MaxConcurrentLimitsFanOut(t *testing.T) {
	f := newFakeChildLister()
	root := testID(0)
	for i := 1; i <= 8; i++ {
		branch := testID(i)
		f.addChildren(root, branchBlock(branch, notion.BlockTypeToggle))
		f.addChildren(branch, leafBlock(testID(100+i), notion.BlockTypeParagraph))
		f.delays[branch] = 5 * time.Millisecond
	}

	w := newTestWalker(t, f, func(cfg *WalkerConfig) {
		cfg.MaxConcurrent = 2
	})
	_, err := w.FetchTree(context.Background(), root)
	require.NoError(t, err)

	assert.LessOrEqual(t, f.maxInFlight.Load(), int64(2+1),
		"at most the limit plus the coordinating level may be in flight")
}

func TestNewWalker_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     WalkerConfig
		wantErr string
	}{
		{"missing client", WalkerConfig{}, "requires a client"},
		{"negative page size", WalkerConfig{Client: newFakeChildLister(), PageSize: -1}, "page size"},
		{"oversized page size", WalkerConfig{Client: newFakeChildLister(), PageSize: 500}, "page size"},
		{"negative concurrency", WalkerConfig{Client: newFakeChildLister(), MaxConcurrent: -2}, "max concurrent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWalker(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWalker_RejectsMalformedRootID(t *testing.T) {
	w := newTestWalker(t, newFakeChildLister())
	_, err := w.FetchTree(context.Background(), "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid object ID")
}
