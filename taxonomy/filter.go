package taxonomy

// FilterTree prunes inactive categories from a tree view. With
// includeInactive the roots are returned as they are. Otherwise a new view is
// built in which every inactive category is dropped together with its whole
// subtree, at any depth; the input is never modified.
func FilterTree(roots []*TreeNode, includeInactive bool) []*TreeNode {
	if includeInactive {
		return roots
	}

	filtered := make([]*TreeNode, 0, len(roots))
	for _, root := range roots {
		if kept, ok := FilterNode(root, false); ok {
			filtered = append(filtered, kept)
		}
	}
	return filtered
}

// FilterNode filters a single subtree. The boolean is false when the root
// itself is pruned.
func FilterNode(root *TreeNode, includeInactive bool) (*TreeNode, bool) {
	if root == nil {
		return nil, false
	}
	if includeInactive {
		return root, true
	}
	if !root.Active {
		return nil, false
	}

	kept := &TreeNode{Category: root.Category, LeafCount: root.LeafCount}
	for _, child := range root.Children {
		if sub, ok := FilterNode(child, false); ok {
			kept.Children = append(kept.Children, sub)
		}
	}
	return kept, true
}
