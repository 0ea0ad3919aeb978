package taxonomy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(id int64) *int64 {
	return &id
}

// buildScenarioStore builds 1 -> 1/6 -> 1/6/27 plus a sibling 12 whose id
// shares a digit prefix with 1
func buildScenarioStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	require.NoError(t, s.InsertAll([]Category{
		{ID: 1, Name: "Applications", Active: true, DisplayOrder: 1},
		{ID: 6, Name: "Leave", ParentID: ptr(1), Active: true, DisplayOrder: 2},
		{ID: 27, Name: "Paid leave", ParentID: ptr(6), Active: true, DisplayOrder: 1},
		{ID: 12, Name: "Operations", Active: true, DisplayOrder: 2},
	}))
	return s
}

// randomStore grows a random forest and returns it with its parent links
func randomStore(t *testing.T, rng *rand.Rand, size int) (*Store, map[int64]*int64) {
	t.Helper()
	s := NewStore(WithMaxDepth(0))
	parents := make(map[int64]*int64, size)
	ids := make([]int64, 0, size)
	for i := 0; i < size; i++ {
		id := int64(i + 1)
		var parent *int64
		if len(ids) > 0 && rng.Intn(5) != 0 {
			parent = ptr(ids[rng.Intn(len(ids))])
		}
		_, err := s.Insert(Category{
			ID:           id,
			Name:         "c",
			ParentID:     parent,
			DisplayOrder: rng.Intn(4),
			Active:       rng.Intn(4) != 0,
		})
		require.NoError(t, err)
		parents[id] = parent
		ids = append(ids, id)
	}
	return s, parents
}

func randomDocuments(rng *rand.Rand, categories, count int) []Document {
	docs := make([]Document, 0, count)
	for i := 0; i < count; i++ {
		docs = append(docs, Document{
			ID:         int64(i + 1),
			CategoryID: int64(rng.Intn(categories) + 1),
			Title:      "doc",
			Visible:    rng.Intn(3) != 0,
		})
	}
	return docs
}

// isAncestorByChain walks parent links from b looking for a
func isAncestorByChain(parents map[int64]*int64, a, b int64) bool {
	for cur := &b; cur != nil; cur = parents[*cur] {
		if *cur == a {
			return true
		}
	}
	return false
}

func countNodes(roots []*TreeNode) int {
	n := 0
	for _, root := range roots {
		root.Walk(func(*TreeNode, *TreeNode) { n++ })
	}
	return n
}

func findNode(roots []*TreeNode, id int64) *TreeNode {
	var found *TreeNode
	for _, root := range roots {
		root.Walk(func(n, _ *TreeNode) {
			if n.ID == id {
				found = n
			}
		})
	}
	return found
}
