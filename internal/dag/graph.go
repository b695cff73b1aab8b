package dag

import "fmt"

// Graph holds the nodes of one job in insertion order.
// A Graph built from a recipe is a template; each job runs on its own Clone.
type Graph struct {
	order []*Node
	nodes map[int]*Node // id → Node
}

// NewGraph allocates an empty Graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[int]*Node)}
}

// AddNode registers a node by its ID.
func (g *Graph) AddNode(n *Node) error {
	if _, dup := g.nodes[n.ID]; dup {
		return fmt.Errorf("duplicate node id %d", n.ID)
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n)
	return nil
}

// Node returns a node by ID (nil if not found).
func (g *Graph) Node(id int) *Node {
	return g.nodes[id]
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	return g.order
}

// NodeCount returns the total number of registered nodes.
func (g *Graph) NodeCount() int {
	return len(g.order)
}

// Clone returns a deep copy so that run-state and outputs stay job-local.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		order: make([]*Node, 0, len(g.order)),
		nodes: make(map[int]*Node, len(g.nodes)),
	}
	for _, n := range g.order {
		cn := n.clone()
		c.order = append(c.order, cn)
		c.nodes[cn.ID] = cn
	}
	return c
}
