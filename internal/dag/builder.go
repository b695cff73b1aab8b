package dag

import (
	"fmt"

	"github.com/gyaneshwarpardhi/reciperunner/internal/recipe"
)

// Build constructs a Graph from a validated Recipe.
func Build(r *recipe.Recipe) (*Graph, error) {
	g := NewGraph()
	for _, def := range r.Nodes {
		n := &Node{
			ID:   def.ID,
			Name: def.Name,
			Data: cloneMap(def.Data),
		}
		if len(def.Inputs) > 0 {
			n.Inputs = make(map[string][]Connection, len(def.Inputs))
			for socket, conns := range def.Inputs {
				cs := make([]Connection, 0, len(conns))
				for _, c := range conns {
					cs = append(cs, Connection{Node: c.Node, Output: c.Output})
				}
				n.Inputs[socket] = cs
			}
		}
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("recipe %s: %w", r.ID, err)
		}
	}
	for _, n := range g.order {
		for _, dep := range n.Dependencies() {
			if g.Node(dep) == nil {
				return nil, fmt.Errorf("recipe %s: node %d: unknown upstream node %d", r.ID, n.ID, dep)
			}
		}
	}
	return g, nil
}
