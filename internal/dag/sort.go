package dag

import "slices"

// SortResult is the outcome of Sort.
type SortResult struct {
	// SearchOrder lists node ids dependencies-first (DFS postorder).
	SearchOrder []int
	// Computable is false when at least one cycle was found.
	Computable bool
}

// Sort orders the graph dependencies-first and flags cycles.
//
// A depth-first search runs from every unvisited node in insertion order,
// following input connections upstream. When the search reaches a node that is
// still on the current DFS stack, that node closes a cycle: it is marked
// StateDeadLock (if it has not been scheduled yet) and the result is not
// computable. Only the closing node is marked; the scheduler's restart after a
// deadlock skip surfaces the rest of the cycle on later passes.
func Sort(g *Graph) SortResult {
	s := &sorter{
		g:          g,
		visited:    make(map[int]bool, g.NodeCount()),
		order:      make([]int, 0, g.NodeCount()),
		computable: true,
	}
	for _, n := range g.order {
		if !s.visited[n.ID] {
			s.visit(n)
		}
	}
	return SortResult{SearchOrder: s.order, Computable: s.computable}
}

type sorter struct {
	g          *Graph
	visited    map[int]bool
	stack      []int // ids on the current DFS path; searched linearly
	order      []int
	computable bool
}

func (s *sorter) visit(n *Node) {
	s.visited[n.ID] = true
	s.stack = append(s.stack, n.ID)

	for _, dep := range n.Dependencies() {
		up := s.g.Node(dep)
		if up == nil {
			continue
		}
		if slices.Contains(s.stack, dep) {
			s.computable = false
			if up.RunState == StatePending {
				up.RunState = StateDeadLock
			}
			continue
		}
		if s.visited[dep] {
			continue
		}
		s.visit(up)
	}

	s.stack = s.stack[:len(s.stack)-1]
	s.order = append(s.order, n.ID)
}
