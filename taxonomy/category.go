// Package taxonomy implements the genre hierarchy of the knowledge base:
// materialized paths, the category store, visibility filtering, subtree
// document counts and graph projection.
package taxonomy

import (
	"errors"
	"fmt"
	"time"
)

// Category is a single genre in the taxonomy
type Category struct {
	ID           int64
	Name         string
	ParentID     *int64
	Depth        int
	Path         string
	DisplayOrder int
	Active       bool
	CreatedAt    time.Time
}

// IsRoot reports whether the category has no parent
func (c Category) IsRoot() bool {
	return c.ParentID == nil
}

// Document is a leaf record attached to exactly one category
type Document struct {
	ID           int64
	CategoryID   int64
	Title        string
	Visible      bool
	ViewCount    int
	HelpfulCount int
}

// LeafPredicate selects documents for counting or projection
type LeafPredicate func(Document) bool

// AllDocuments matches every document
func AllDocuments(Document) bool { return true }

// VisibleDocuments matches published documents only
func VisibleDocuments(d Document) bool { return d.Visible }

// DocumentsFor returns the leaf predicate that pairs with the given
// visibility mode: hidden documents only show up when inactive content is
// requested.
func DocumentsFor(includeInactive bool) LeafPredicate {
	if includeInactive {
		return AllDocuments
	}
	return VisibleDocuments
}

// TreeNode is a request-scoped view of a category and its children
type TreeNode struct {
	Category
	LeafCount int
	Children  []*TreeNode
}

// Walk visits the node and its descendants depth-first, parents first
func (n *TreeNode) Walk(fn func(node *TreeNode, parent *TreeNode)) {
	walk(n, nil, fn)
}

func walk(n, parent *TreeNode, fn func(*TreeNode, *TreeNode)) {
	fn(n, parent)
	for _, child := range n.Children {
		walk(child, n, fn)
	}
}

// Structural errors raised by the store
var (
	// ErrNotFound is returned when a requested category does not exist
	ErrNotFound = errors.New("category not found")
	// ErrUnknownParent is returned when inserting under a missing parent
	ErrUnknownParent = errors.New("unknown parent category")
	// ErrDuplicateID is returned when inserting an id that already exists
	ErrDuplicateID = errors.New("duplicate category id")
	// ErrPathCollision is returned when a computed path is already taken
	ErrPathCollision = errors.New("category path collision")
	// ErrInvalidPath is returned for ids that cannot form a path
	ErrInvalidPath = errors.New("invalid category path")
	// ErrDepthExceeded is returned when an insert would exceed the depth bound
	ErrDepthExceeded = errors.New("category depth exceeded")
)

// InvariantError reports a broken structural invariant found while reading
// the store. It is never expected at request time.
type InvariantError struct {
	NodeID int64
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("taxonomy invariant violated at category %d: %s", e.NodeID, e.Reason)
}
