package taxonomy

// CountMatching counts the documents in the subtree of node that satisfy
// pred, testing membership with IsDescendantOrSelf against every document.
// When includeInactive is false, documents are skipped if their category or
// any ancestor up to node is inactive.
//
// This costs O(L) path comparisons per node; full-tree counts use Accumulate.
func CountMatching(snap *Snapshot, node Category, leaves []Document, pred LeafPredicate, includeInactive bool) int {
	count := 0
	for _, leaf := range leaves {
		owner, ok := snap.nodes[leaf.CategoryID]
		if !ok {
			continue
		}
		if !IsDescendantOrSelf(owner.Path, node.Path) {
			continue
		}
		if pred != nil && !pred(leaf) {
			continue
		}
		if !includeInactive && !activeUpTo(snap, owner, node.ID) {
			continue
		}
		count++
	}
	return count
}

// activeUpTo walks from c to the ancestor with id top, reporting whether
// every category on the way (both ends included) is active
func activeUpTo(snap *Snapshot, c *Category, top int64) bool {
	for steps := c.Depth; steps > 0; steps-- {
		if !c.Active {
			return false
		}
		if c.ID == top || c.ParentID == nil {
			return true
		}
		parent, ok := snap.nodes[*c.ParentID]
		if !ok {
			return false
		}
		c = parent
	}
	return false
}

// Accumulate computes, for every category in the view, the number of
// documents matching pred anywhere in its subtree. Each document is
// attributed to its own category once and the totals are summed bottom-up in
// a single post-order pass, O(N + L). Totals are written to LeafCount and
// returned keyed by category id. Documents whose category is not part of the
// view are ignored.
func Accumulate(roots []*TreeNode, leaves []Document, pred LeafPredicate) map[int64]int {
	direct := make(map[int64]int)
	for _, leaf := range leaves {
		if pred != nil && !pred(leaf) {
			continue
		}
		direct[leaf.CategoryID]++
	}

	totals := make(map[int64]int)
	for _, root := range roots {
		accumulate(root, direct, totals)
	}
	return totals
}

func accumulate(n *TreeNode, direct, totals map[int64]int) int {
	total := direct[n.ID]
	for _, child := range n.Children {
		total += accumulate(child, direct, totals)
	}
	n.LeafCount = total
	totals[n.ID] = total
	return total
}
