package graph

import (
	"github.com/brunobiangulo/healthmap/entity"
)

// Node is one vertex in the force-directed graph. ID is the company name and
// doubles as the display label; the rendering surface reads Type, Color and
// Size for label text, fill and radius. Revenue and Parent are carried
// through only for nodes backed by a full entity record.
type Node struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Color   string  `json:"color"`
	Size    float64 `json:"size"`
	Revenue string  `json:"revenue,omitempty"`
	Parent  string  `json:"parent,omitempty"`
}

// Link is a directed, typed edge between two node IDs.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Graph is the payload handed to the force-directed rendering surface.
// Nodes and Links are never nil so they serialize as JSON arrays.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Build converts a batch of entity records into a renderable graph. It is a
// pure function: records are not mutated, repeated calls on the same input
// produce identical output, and no input can make it fail. Records with an
// empty name are skipped entirely. Unresolvable references degrade by
// omission rather than erroring.
//
// Nodes are deduplicated by name. The first occurrence of a name wins its
// node definition, whether that occurrence is a full entity record or a bare
// reference from another record's subsidiaries or relationships. Links are
// only emitted when both endpoints have nodes, and they are not deduplicated:
// a pair described both by an explicit relationship and an implicit
// parent/subsidiary entry gets both edges.
func Build(records []*entity.Record) *Graph {
	g := &Graph{Nodes: []Node{}, Links: []Link{}}

	// The seen set is scoped to this one invocation and serves as the node
	// lookup table for the link pass.
	seen := make(map[string]bool)

	bare := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		g.Nodes = append(g.Nodes, Node{
			ID:    name,
			Type:  TypeUnknown,
			Color: ColorFor(TypeUnknown),
			Size:  SizeDefault,
		})
	}

	// Node pass. A record whose name was already claimed contributes no
	// nodes at all, not even for its subsidiaries or relationship targets.
	for _, r := range records {
		if r == nil || r.Name == "" || seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		typ := ClassifyType(r.Type)
		g.Nodes = append(g.Nodes, Node{
			ID:      r.Name,
			Type:    typ,
			Color:   ColorFor(typ),
			Size:    SizeFor(r.Revenue),
			Revenue: r.Revenue,
			Parent:  r.Parent,
		})
		for _, sub := range r.Subsidiaries {
			bare(sub)
		}
		for _, rel := range r.Relationships {
			bare(rel.Target)
		}
	}

	// Link pass. Every record participates, including ones whose name lost
	// the node pass to an earlier occurrence, so duplicate records still
	// emit their edges. Parents never get bare nodes, so a parent link only
	// appears when the parent has its own record somewhere in the batch.
	for _, r := range records {
		if r == nil || r.Name == "" {
			continue
		}
		if r.Parent != "" && seen[r.Parent] {
			g.Links = append(g.Links, Link{Source: r.Name, Target: r.Parent, Type: entity.LinkOwnedBy})
		}
		for _, sub := range r.Subsidiaries {
			if seen[sub] {
				g.Links = append(g.Links, Link{Source: r.Name, Target: sub, Type: entity.LinkOwns})
			}
		}
		for _, rel := range r.Relationships {
			if rel.Type != "" && seen[rel.Target] {
				g.Links = append(g.Links, Link{Source: r.Name, Target: rel.Target, Type: rel.Type})
			}
		}
	}

	return g
}
