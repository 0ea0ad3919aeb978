package models

import "github.com/ammiranda/taxonomy_service/taxonomy"

// Wire names of graph node and link types
const (
	NodeTypeGenre    = "genre"
	NodeTypeDocument = "document"

	LinkTypeHierarchy = "genre_hierarchy"
	LinkTypeDocument  = "genre_document"
)

// NetworkNode is a genre or document in the network graph
type NetworkNode struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	Type          string `json:"type"`
	GenreID       *int64 `json:"genre_id,omitempty"`
	DocumentID    *int64 `json:"document_id,omitempty"`
	Level         *int   `json:"level,omitempty"`
	DocumentCount *int   `json:"document_count,omitempty"`
	ViewCount     *int   `json:"view_count,omitempty"`
	HelpfulCount  *int   `json:"helpful_count,omitempty"`
}

// NetworkLink connects two network nodes
type NetworkLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// NetworkGraph is the response of the network graph endpoint
type NetworkGraph struct {
	Nodes []NetworkNode `json:"nodes"`
	Links []NetworkLink `json:"links"`
}

// NewNetworkGraph converts a projected graph to its wire form. Genre-only
// fields are set on genre nodes and document-only fields on document nodes.
func NewNetworkGraph(g *taxonomy.Graph) *NetworkGraph {
	out := &NetworkGraph{
		Nodes: make([]NetworkNode, 0, len(g.Nodes)),
		Links: make([]NetworkLink, 0, len(g.Edges)),
	}

	for _, n := range g.Nodes {
		node := NetworkNode{ID: n.ID, Label: n.Label}
		switch n.Kind {
		case taxonomy.KindCategory:
			genreID, level, count := n.CategoryID, n.Depth, n.LeafCount
			node.Type = NodeTypeGenre
			node.GenreID = &genreID
			node.Level = &level
			node.DocumentCount = &count
		case taxonomy.KindLeaf:
			docID, views, helpful := n.DocumentID, n.ViewCount, n.HelpfulCount
			node.Type = NodeTypeDocument
			node.DocumentID = &docID
			node.ViewCount = &views
			node.HelpfulCount = &helpful
		}
		out.Nodes = append(out.Nodes, node)
	}

	for _, e := range g.Edges {
		link := NetworkLink{Source: e.Source, Target: e.Target, Type: LinkTypeHierarchy}
		if e.Kind == taxonomy.EdgeMembership {
			link.Type = LinkTypeDocument
		}
		out.Links = append(out.Links, link)
	}
	return out
}
