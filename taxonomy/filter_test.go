package taxonomy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterTreeIncludeInactiveIsIdentity(t *testing.T) {
	s := buildScenarioStore(t)
	_, err := s.Insert(Category{ID: 30, ParentID: ptr(6), Active: false})
	require.NoError(t, err)

	forest, err := s.Snapshot().Forest()
	require.NoError(t, err)

	filtered := FilterTree(forest, true)
	assert.Equal(t, forest, filtered)
	assert.Equal(t, 5, countNodes(filtered))
}

func TestFilterTreePrunesInactiveSubtree(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.InsertAll([]Category{
		{ID: 1, Name: "Applications", Active: true},
		{ID: 6, Name: "Leave", ParentID: ptr(1), Active: false},
		{ID: 27, Name: "Paid leave", ParentID: ptr(6), Active: true},
		{ID: 2, Name: "Expenses", ParentID: ptr(1), Active: true},
	}))

	forest, err := s.Snapshot().Forest()
	require.NoError(t, err)

	filtered := FilterTree(forest, false)
	require.Len(t, filtered, 1)
	root := filtered[0]
	require.Len(t, root.Children, 1)
	assert.Equal(t, int64(2), root.Children[0].ID)
	assert.Nil(t, findNode(filtered, 6))
	assert.Nil(t, findNode(filtered, 27), "active node under an inactive parent must be pruned")

	// the source view is untouched
	assert.Len(t, forest[0].Children, 2)
	assert.NotNil(t, findNode(forest, 27))
}

func TestFilterTreeDropsInactiveRoot(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.InsertAll([]Category{
		{ID: 1, Active: false},
		{ID: 2, ParentID: ptr(1), Active: true},
		{ID: 3, Active: true},
	}))
	forest, err := s.Snapshot().Forest()
	require.NoError(t, err)

	filtered := FilterTree(forest, false)
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(3), filtered[0].ID)

	_, ok := FilterNode(forest[0], false)
	assert.False(t, ok)
	_, ok = FilterNode(nil, true)
	assert.False(t, ok)
}

func TestFilterTreeHasNoDepthLimit(t *testing.T) {
	s := NewStore(WithMaxDepth(0))
	var parent *int64
	for id := int64(1); id <= 10; id++ {
		_, err := s.Insert(Category{ID: id, ParentID: parent, Active: id != 9})
		require.NoError(t, err)
		parent = ptr(id)
	}
	forest, err := s.Snapshot().Forest()
	require.NoError(t, err)

	filtered := FilterTree(forest, false)
	assert.Equal(t, 8, countNodes(filtered))
	assert.NotNil(t, findNode(filtered, 8))
	assert.Nil(t, findNode(filtered, 9))
	assert.Nil(t, findNode(filtered, 10))
}

func TestFilterTreeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 25; round++ {
		store, parents := randomStore(t, rng, 80)
		snap := store.Snapshot()
		forest, err := snap.Forest()
		require.NoError(t, err)

		filtered := FilterTree(forest, false)
		kept := make(map[int64]bool)
		for _, root := range filtered {
			root.Walk(func(n, _ *TreeNode) { kept[n.ID] = true })
		}

		for _, c := range snap.All() {
			chainActive := true
			for cur := &c.ID; cur != nil; cur = parents[*cur] {
				node, err := snap.Get(*cur)
				require.NoError(t, err)
				if !node.Active {
					chainActive = false
				}
			}
			assert.Equal(t, chainActive, kept[c.ID], "category %s", c.Path)
		}
	}
}
