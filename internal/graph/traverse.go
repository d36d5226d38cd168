// Package graph walks the relationship graph around an entity.
package graph

import (
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

// Source is the read access traversal needs. *storage.Reader satisfies it.
type Source interface {
	Entity(id string) (*models.Entity, error)
	Entities(ids []string) (map[string]models.Entity, error)
	Edges(ids []string, types []string) ([]models.Relationship, error)
	ObservationsFor(ids []string, types []string) (map[string][]models.Observation, error)
}

// Request parameterizes Traverse.
type Request struct {
	RootID string
	// MaxDepth bounds the number of hops from the root. Zero returns the root alone.
	MaxDepth int
	// RelationshipTypes restricts which edges are followed. Empty follows all.
	RelationshipTypes []string
	// ObservationTypes restricts which observations are attached. Empty attaches all.
	ObservationTypes []string
}

type node struct {
	entity models.Entity
	depth  int
}

// Traverse runs a breadth-first walk from the root, following relationships
// in both directions. Each entity appears once, at the depth it was first
// reached. An edge leading to an entity that is no longer live fails the
// walk with ErrDanglingReference.
func Traverse(src Source, req Request) (*models.Context, error) {
	if req.RootID == "" {
		return nil, errors.Validationf("root id is required")
	}
	if req.MaxDepth < 0 {
		return nil, errors.Validationf("max depth must be at least 0, got %d", req.MaxDepth)
	}
	root, err := src.Entity(req.RootID)
	if err != nil {
		return nil, err
	}

	nodes := []node{{entity: *root, depth: 0}}
	index := map[string]int{root.ID: 0}
	var edges []models.Relationship
	frontier := []string{root.ID}

	for depth := 1; depth <= req.MaxDepth && len(frontier) > 0; depth++ {
		level, err := src.Edges(frontier, req.RelationshipTypes)
		if err != nil {
			return nil, err
		}
		adjacent := make(map[string][]int, len(frontier))
		for i, rel := range level {
			adjacent[rel.SourceID] = append(adjacent[rel.SourceID], i)
			if rel.TargetID != rel.SourceID {
				adjacent[rel.TargetID] = append(adjacent[rel.TargetID], i)
			}
		}

		// Candidates in discovery order, each with the edge that found it.
		var (
			candidates []string
			viaEdge    = map[string]int{}
		)
		for _, id := range frontier {
			for _, i := range adjacent[id] {
				other := level[i].Other(id)
				if _, seen := index[other]; seen {
					continue
				}
				if _, queued := viaEdge[other]; queued {
					continue
				}
				viaEdge[other] = i
				candidates = append(candidates, other)
			}
		}
		if len(candidates) == 0 {
			break
		}

		live, err := src.Entities(candidates)
		if err != nil {
			return nil, err
		}
		next := make([]string, 0, len(candidates))
		for _, id := range candidates {
			e, ok := live[id]
			if !ok {
				rel := level[viaEdge[id]]
				return nil, errors.Danglingf("relationship %s (%s) points to missing entity %s", rel.ID, rel.Type, id)
			}
			edges = append(edges, level[viaEdge[id]])
			index[id] = len(nodes)
			nodes = append(nodes, node{entity: e, depth: depth})
			next = append(next, id)
		}
		frontier = next
	}

	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.entity.ID
	}
	observations, err := src.ObservationsFor(ids, req.ObservationTypes)
	if err != nil {
		return nil, err
	}

	ctx := &models.Context{
		RootID: root.ID,
		Nodes:  make([]models.ContextNode, len(nodes)),
		Edges:  edges,
	}
	if ctx.Edges == nil {
		ctx.Edges = []models.Relationship{}
	}
	for i, n := range nodes {
		obs := observations[n.entity.ID]
		if obs == nil {
			obs = []models.Observation{}
		}
		ctx.Nodes[i] = models.ContextNode{Entity: n.entity, Depth: n.depth, Observations: obs}
	}
	return ctx, nil
}
