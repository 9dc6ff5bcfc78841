package gen

import (
	"slices"
)

// RelationGraph indexes the resolved relations of a graph by entity.
type RelationGraph struct {
	all []*Relation
	out map[string][]*Relation
	in  map[string][]*Relation
	via map[string][]*Relation
}

func newRelationGraph(entities []*Entity) *RelationGraph {
	g := &RelationGraph{
		out: make(map[string][]*Relation),
		in:  make(map[string][]*Relation),
		via: make(map[string][]*Relation),
	}
	for _, e := range entities {
		for _, r := range e.Relations {
			g.all = append(g.all, r)
			g.out[r.Owner.Ident()] = append(g.out[r.Owner.Ident()], r)
			g.in[r.Target.Ident()] = append(g.in[r.Target.Ident()], r)
			if r.Through != nil {
				g.via[r.Through.Ident()] = append(g.via[r.Through.Ident()], r)
			}
		}
	}
	return g
}

// Out returns the relations owned by the entity.
func (g *RelationGraph) Out(ident string) []*Relation { return g.out[ident] }

// In returns the relations targeting the entity.
func (g *RelationGraph) In(ident string) []*Relation { return g.in[ident] }

// Via returns the many-to-many relations joined through the entity.
func (g *RelationGraph) Via(ident string) []*Relation { return g.via[ident] }

// Relations returns all relations in entity declaration order.
func (g *RelationGraph) Relations() []*Relation { return g.all }

// Len returns the number of relations.
func (g *RelationGraph) Len() int { return len(g.all) }

// Edges returns the canonical, sorted descriptions of all relations. Two
// graphs with equal edges describe the same relations.
func (g *RelationGraph) Edges() []string {
	edges := make([]string, 0, len(g.all))
	for _, r := range g.all {
		edges = append(edges, r.String())
	}
	slices.Sort(edges)
	return edges
}
