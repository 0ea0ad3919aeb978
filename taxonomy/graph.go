package taxonomy

import (
	"sort"
	"strconv"
)

// GraphNodeKind tags a projected node
type GraphNodeKind string

// EdgeKind tags a projected edge
type EdgeKind string

const (
	KindCategory GraphNodeKind = "category"
	KindLeaf     GraphNodeKind = "leaf"

	EdgeHierarchy  EdgeKind = "hierarchy"
	EdgeMembership EdgeKind = "membership"
)

// GraphNode is a category or document in the projected graph
type GraphNode struct {
	ID           string
	Kind         GraphNodeKind
	Label        string
	CategoryID   int64
	DocumentID   int64
	Depth        int
	LeafCount    int
	ViewCount    int
	HelpfulCount int
}

// GraphEdge links two projected nodes
type GraphEdge struct {
	Source string
	Target string
	Kind   EdgeKind
}

// Graph is the flat node/edge form of a tree view and its documents
type Graph struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// CategoryNodeID returns the graph id of a category
func CategoryNodeID(id int64) string {
	return string(KindCategory) + ":" + strconv.FormatInt(id, 10)
}

// LeafNodeID returns the graph id of a document
func LeafNodeID(id int64) string {
	return string(KindLeaf) + ":" + strconv.FormatInt(id, 10)
}

// Project flattens a (usually filtered and accumulated) tree view into a
// graph. Categories are emitted depth-first in view order with a hierarchy
// edge from their parent. Documents passing leafFilter are attached to their
// category with a membership edge, but only when that category is part of
// the view; documents of pruned categories are dropped.
func Project(roots []*TreeNode, leaves []Document, leafFilter LeafPredicate) *Graph {
	g := &Graph{
		Nodes: make([]GraphNode, 0),
		Edges: make([]GraphEdge, 0),
	}

	// visit order of each category, used to group documents deterministically
	order := make(map[int64]int)
	for _, root := range roots {
		root.Walk(func(n, parent *TreeNode) {
			if _, seen := order[n.ID]; seen {
				return
			}
			order[n.ID] = len(order)
			g.Nodes = append(g.Nodes, GraphNode{
				ID:         CategoryNodeID(n.ID),
				Kind:       KindCategory,
				Label:      n.Name,
				CategoryID: n.ID,
				Depth:      n.Depth,
				LeafCount:  n.LeafCount,
			})
			if parent != nil {
				g.Edges = append(g.Edges, GraphEdge{
					Source: CategoryNodeID(parent.ID),
					Target: CategoryNodeID(n.ID),
					Kind:   EdgeHierarchy,
				})
			}
		})
	}

	attached := make([]Document, 0, len(leaves))
	seen := make(map[int64]bool, len(leaves))
	for _, leaf := range leaves {
		if _, visited := order[leaf.CategoryID]; !visited {
			continue
		}
		if leafFilter != nil && !leafFilter(leaf) {
			continue
		}
		if seen[leaf.ID] {
			continue
		}
		seen[leaf.ID] = true
		attached = append(attached, leaf)
	}
	sort.SliceStable(attached, func(i, j int) bool {
		oi, oj := order[attached[i].CategoryID], order[attached[j].CategoryID]
		if oi != oj {
			return oi < oj
		}
		return attached[i].ID < attached[j].ID
	})

	for _, leaf := range attached {
		g.Nodes = append(g.Nodes, GraphNode{
			ID:           LeafNodeID(leaf.ID),
			Kind:         KindLeaf,
			Label:        leaf.Title,
			DocumentID:   leaf.ID,
			CategoryID:   leaf.CategoryID,
			ViewCount:    leaf.ViewCount,
			HelpfulCount: leaf.HelpfulCount,
		})
		g.Edges = append(g.Edges, GraphEdge{
			Source: CategoryNodeID(leaf.CategoryID),
			Target: LeafNodeID(leaf.ID),
			Kind:   EdgeMembership,
		})
	}
	return g
}
