package taxonomy

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// DefaultMaxDepth is the deepest level a category may sit at unless the
// store is configured otherwise
const DefaultMaxDepth = 5

// Store owns the category hierarchy. Reads go through immutable snapshots;
// inserts are serialized and publish a new snapshot atomically, so a reader
// never sees a node whose parent, depth and path disagree.
type Store struct {
	mu       sync.Mutex
	maxDepth int
	current  atomic.Pointer[Snapshot]
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithMaxDepth bounds the depth of inserted categories. Zero disables the bound.
func WithMaxDepth(depth int) StoreOption {
	return func(s *Store) {
		s.maxDepth = depth
	}
}

// NewStore creates an empty store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(emptySnapshot())
	return s
}

// MaxDepth returns the configured depth bound (0 means unbounded)
func (s *Store) MaxDepth() int {
	return s.maxDepth
}

// Snapshot returns the current consistent view of the hierarchy
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Insert adds a category under node.ParentID (or as a root when nil). Depth
// and path are computed from the parent; whatever the caller set is ignored.
// On error the store is left unchanged.
func (s *Store) Insert(node Category) (Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := newBuilder(s.current.Load(), s.maxDepth)
	inserted, err := b.add(node)
	if err != nil {
		return Category{}, err
	}
	s.current.Store(b.snapshot())
	return inserted, nil
}

// InsertAll inserts a batch of categories, parents before children. Either
// every category is inserted or none is.
func (s *Store) InsertAll(nodes []Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := newBuilder(s.current.Load(), s.maxDepth)
	for _, node := range nodes {
		if _, err := b.add(node); err != nil {
			return fmt.Errorf("category %d: %w", node.ID, err)
		}
	}
	s.current.Store(b.snapshot())
	return nil
}

// Replace swaps the whole hierarchy for nodes, parents before children.
// On error the store is left unchanged.
func (s *Store) Replace(nodes []Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := newBuilder(emptySnapshot(), s.maxDepth)
	for _, node := range nodes {
		if _, err := b.add(node); err != nil {
			return fmt.Errorf("category %d: %w", node.ID, err)
		}
	}
	s.current.Store(b.snapshot())
	return nil
}

// Validate runs the insert checks for node without changing the store and
// returns the category as it would be stored
func (s *Store) Validate(node Category) (Category, error) {
	snap := s.current.Load()
	return snap.plan(node, s.maxDepth)
}

// Get returns a category by id
func (s *Store) Get(id int64) (Category, error) {
	return s.Snapshot().Get(id)
}

// Children returns the children of a category ordered by (DisplayOrder, ID)
func (s *Store) Children(id int64) []Category {
	return s.Snapshot().Children(id)
}

// Roots returns the top-level categories ordered by (DisplayOrder, ID)
func (s *Store) Roots() []Category {
	return s.Snapshot().Roots()
}

// Len returns the number of categories
func (s *Store) Len() int {
	return s.Snapshot().Len()
}

// Snapshot is an immutable view of the hierarchy. Category values held by a
// snapshot are never modified after it is published.
type Snapshot struct {
	nodes    map[int64]*Category
	children map[int64][]int64
	roots    []int64
	paths    map[string]int64
	maxID    int64
	version  uint64
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		nodes:    make(map[int64]*Category),
		children: make(map[int64][]int64),
		paths:    make(map[string]int64),
	}
}

// Len returns the number of categories in the snapshot
func (s *Snapshot) Len() int {
	return len(s.nodes)
}

// NextID returns an id greater than every id in the snapshot
func (s *Snapshot) NextID() int64 {
	return s.maxID + 1
}

// Version identifies the content of the snapshot. Snapshots holding the same
// categories have the same version, whichever store or process built them.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Get returns a category by id
func (s *Snapshot) Get(id int64) (Category, error) {
	node, ok := s.nodes[id]
	if !ok {
		return Category{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return *node, nil
}

// Children returns the children of id ordered by (DisplayOrder, ID)
func (s *Snapshot) Children(id int64) []Category {
	return s.collect(s.children[id])
}

// Roots returns the root categories ordered by (DisplayOrder, ID)
func (s *Snapshot) Roots() []Category {
	return s.collect(s.roots)
}

// All returns every category ordered by depth, then display order, then id
func (s *Snapshot) All() []Category {
	all := make([]Category, 0, len(s.nodes))
	for _, node := range s.nodes {
		all = append(all, *node)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Depth != all[j].Depth {
			return all[i].Depth < all[j].Depth
		}
		return siblingLess(&all[i], &all[j])
	})
	return all
}

func (s *Snapshot) collect(ids []int64) []Category {
	out := make([]Category, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.nodes[id])
	}
	return out
}

// Forest materializes the whole hierarchy as a fresh tree view. Every edge
// is checked against the depth and path invariants on the way down.
func (s *Snapshot) Forest() ([]*TreeNode, error) {
	visited := make(map[int64]bool, len(s.nodes))
	roots := make([]*TreeNode, 0, len(s.roots))
	for _, id := range s.roots {
		node := s.nodes[id]
		if node.Depth != 1 || node.Path != strconv.FormatInt(id, 10) {
			return nil, &InvariantError{NodeID: id, Reason: fmt.Sprintf("root has depth %d and path %q", node.Depth, node.Path)}
		}
		tree, err := s.materialize(node, visited)
		if err != nil {
			return nil, err
		}
		roots = append(roots, tree)
	}
	if len(visited) != len(s.nodes) {
		for id := range s.nodes {
			if !visited[id] {
				return nil, &InvariantError{NodeID: id, Reason: "category is not reachable from any root"}
			}
		}
	}
	return roots, nil
}

// Subtree materializes the tree view rooted at id
func (s *Snapshot) Subtree(id int64) (*TreeNode, error) {
	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return s.materialize(node, make(map[int64]bool))
}

func (s *Snapshot) materialize(node *Category, visited map[int64]bool) (*TreeNode, error) {
	if visited[node.ID] {
		return nil, &InvariantError{NodeID: node.ID, Reason: "category reached twice"}
	}
	visited[node.ID] = true

	tree := &TreeNode{Category: *node}
	childIDs := s.children[node.ID]
	if len(childIDs) > 0 {
		tree.Children = make([]*TreeNode, 0, len(childIDs))
	}
	for _, childID := range childIDs {
		child, ok := s.nodes[childID]
		if !ok {
			return nil, &InvariantError{NodeID: childID, Reason: fmt.Sprintf("dangling child of %d", node.ID)}
		}
		if child.ParentID == nil || *child.ParentID != node.ID {
			return nil, &InvariantError{NodeID: childID, Reason: fmt.Sprintf("indexed under %d but parent differs", node.ID)}
		}
		if child.Depth != node.Depth+1 {
			return nil, &InvariantError{NodeID: childID, Reason: fmt.Sprintf("depth %d under parent depth %d", child.Depth, node.Depth)}
		}
		if child.Path != childPath(node.Path, childID) {
			return nil, &InvariantError{NodeID: childID, Reason: fmt.Sprintf("path %q under parent path %q", child.Path, node.Path)}
		}
		sub, err := s.materialize(child, visited)
		if err != nil {
			return nil, err
		}
		tree.Children = append(tree.Children, sub)
	}
	return tree, nil
}

// plan computes depth and path for node and checks every insert rule
func (s *Snapshot) plan(node Category, maxDepth int) (Category, error) {
	if node.ID <= 0 {
		return Category{}, fmt.Errorf("%w: invalid id %d", ErrInvalidPath, node.ID)
	}
	if _, exists := s.nodes[node.ID]; exists {
		return Category{}, fmt.Errorf("%w: %d", ErrDuplicateID, node.ID)
	}

	if node.ParentID == nil {
		path, err := EncodePath(nil, node.ID)
		if err != nil {
			return Category{}, err
		}
		node.Depth = 1
		node.Path = path
	} else {
		parentID := *node.ParentID
		if parentID == node.ID {
			return Category{}, fmt.Errorf("%w: %d cannot be its own parent", ErrUnknownParent, node.ID)
		}
		parent, ok := s.nodes[parentID]
		if !ok {
			return Category{}, fmt.Errorf("%w: %d", ErrUnknownParent, parentID)
		}
		node.ParentID = &parentID
		node.Depth = parent.Depth + 1
		node.Path = childPath(parent.Path, node.ID)
	}

	if maxDepth > 0 && node.Depth > maxDepth {
		return Category{}, fmt.Errorf("%w: depth %d exceeds %d", ErrDepthExceeded, node.Depth, maxDepth)
	}
	if owner, taken := s.paths[node.Path]; taken {
		return Category{}, fmt.Errorf("%w: %q already used by %d", ErrPathCollision, node.Path, owner)
	}
	return node, nil
}

// digest hashes the fields a payload is rendered from. Versions combine
// digests with xor so they do not depend on insert order.
func digest(c *Category) uint64 {
	buf := make([]byte, 0, 64+len(c.Name))
	buf = strconv.AppendInt(buf, c.ID, 10)
	buf = append(buf, 0)
	buf = append(buf, c.Path...)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, int64(c.DisplayOrder), 10)
	buf = append(buf, 0)
	buf = strconv.AppendBool(buf, c.Active)
	buf = append(buf, 0)
	buf = append(buf, c.Name...)
	return xxhash.Sum64(buf)
}

func siblingLess(a, b *Category) bool {
	if a.DisplayOrder != b.DisplayOrder {
		return a.DisplayOrder < b.DisplayOrder
	}
	return a.ID < b.ID
}

// builder accumulates inserts on a private copy of a snapshot
type builder struct {
	snap     *Snapshot
	maxDepth int
	// slices already copied away from the base snapshot
	ownedChildren map[int64]bool
	ownedRoots    bool
}

func newBuilder(base *Snapshot, maxDepth int) *builder {
	next := &Snapshot{
		nodes:    make(map[int64]*Category, len(base.nodes)+1),
		children: make(map[int64][]int64, len(base.children)+1),
		roots:    base.roots,
		paths:    make(map[string]int64, len(base.paths)+1),
		maxID:    base.maxID,
		version:  base.version,
	}
	for id, node := range base.nodes {
		next.nodes[id] = node
	}
	for id, ids := range base.children {
		next.children[id] = ids
	}
	for path, id := range base.paths {
		next.paths[path] = id
	}
	return &builder{snap: next, maxDepth: maxDepth, ownedChildren: make(map[int64]bool)}
}

func (b *builder) add(node Category) (Category, error) {
	planned, err := b.snap.plan(node, b.maxDepth)
	if err != nil {
		return Category{}, err
	}

	stored := planned
	b.snap.nodes[stored.ID] = &stored
	b.snap.paths[stored.Path] = stored.ID
	if stored.ID > b.snap.maxID {
		b.snap.maxID = stored.ID
	}
	b.snap.version ^= digest(&stored)

	if stored.ParentID == nil {
		if !b.ownedRoots {
			b.snap.roots = append([]int64(nil), b.snap.roots...)
			b.ownedRoots = true
		}
		b.snap.roots = b.insertSorted(b.snap.roots, &stored)
	} else {
		parentID := *stored.ParentID
		ids := b.snap.children[parentID]
		if !b.ownedChildren[parentID] {
			ids = append([]int64(nil), ids...)
			b.ownedChildren[parentID] = true
		}
		b.snap.children[parentID] = b.insertSorted(ids, &stored)
	}
	return stored, nil
}

func (b *builder) insertSorted(ids []int64, node *Category) []int64 {
	i := sort.Search(len(ids), func(i int) bool {
		return siblingLess(node, b.snap.nodes[ids[i]])
	})
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = node.ID
	return ids
}

func (b *builder) snapshot() *Snapshot {
	return b.snap
}
