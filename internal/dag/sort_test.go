package dag_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/reciperunner/internal/dag"
	"github.com/gyaneshwarpardhi/reciperunner/internal/recipe"
)

// edge describes "to consumes from".
type edge struct{ from, to int }

func buildGraph(t *testing.T, ids []int, edges []edge) *dag.Graph {
	t.Helper()
	r := &recipe.Recipe{ID: "test"}
	for _, id := range ids {
		def := recipe.NodeDef{ID: id, Name: "join"}
		for _, e := range edges {
			if e.to != id {
				continue
			}
			if def.Inputs == nil {
				def.Inputs = map[string][]recipe.Connection{}
			}
			def.Inputs["in"] = append(def.Inputs["in"], recipe.Connection{Node: e.from, Output: "out"})
		}
		r.Nodes = append(r.Nodes, def)
	}
	g, err := dag.Build(r)
	require.NoError(t, err)
	return g
}

func position(order []int) map[int]int {
	pos := make(map[int]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	return pos
}

func TestSort_AcyclicOrder(t *testing.T) {
	cases := []struct {
		name  string
		ids   []int
		edges []edge
	}{
		{name: "chain", ids: []int{3, 2, 1}, edges: []edge{{1, 2}, {2, 3}}},
		{name: "diamond", ids: []int{4, 3, 2, 1}, edges: []edge{{1, 2}, {1, 3}, {2, 4}, {3, 4}}},
		{name: "fan-in", ids: []int{1, 2, 3, 4}, edges: []edge{{1, 4}, {2, 4}, {3, 4}}},
		{name: "wide", ids: []int{5, 1, 4, 2, 3}, edges: []edge{{1, 5}, {2, 5}, {4, 3}, {3, 2}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := buildGraph(t, tc.ids, tc.edges)
			res := dag.Sort(g)
			require.True(t, res.Computable)
			require.Len(t, res.SearchOrder, len(tc.ids))

			pos := position(res.SearchOrder)
			for _, e := range tc.edges {
				require.Less(t, pos[e.from], pos[e.to], "%d must precede %d in %v", e.from, e.to, res.SearchOrder)
			}
			for _, n := range g.Nodes() {
				require.Equal(t, dag.StatePending, n.RunState)
			}
		})
	}
}

func TestSort_DisconnectedInsertionOrder(t *testing.T) {
	g := buildGraph(t, []int{7, 3, 5}, nil)
	res := dag.Sort(g)
	if diff := cmp.Diff([]int{7, 3, 5}, res.SearchOrder); diff != "" {
		t.Errorf("search order mismatch (-want +got):\n%s", diff)
	}
}

func TestSort_TwoNodeCycle(t *testing.T) {
	g := buildGraph(t, []int{1, 2}, []edge{{1, 2}, {2, 1}})
	res := dag.Sort(g)

	require.False(t, res.Computable)
	require.Equal(t, dag.StateDeadLock, g.Node(1).RunState, "cycle-closing node must be marked")
	require.ElementsMatch(t, []int{1, 2}, res.SearchOrder)
}

func TestSort_SelfLoop(t *testing.T) {
	g := buildGraph(t, []int{1, 2}, []edge{{1, 1}, {1, 2}})
	res := dag.Sort(g)

	require.False(t, res.Computable)
	require.Equal(t, dag.StateDeadLock, g.Node(1).RunState)
	require.Equal(t, dag.StatePending, g.Node(2).RunState)
}

func TestSort_DoesNotOverwriteTerminalState(t *testing.T) {
	g := buildGraph(t, []int{1, 2}, []edge{{1, 2}, {2, 1}})
	g.Node(1).RunState = dag.StateSkipped

	res := dag.Sort(g)
	require.False(t, res.Computable)
	require.Equal(t, dag.StateSkipped, g.Node(1).RunState)
}

func TestSort_CycleBesideDAG(t *testing.T) {
	// 1 → 2 is clean; 3 ↔ 4 is a cycle; 5 consumes 4.
	g := buildGraph(t, []int{1, 2, 3, 4, 5}, []edge{{1, 2}, {3, 4}, {4, 3}, {4, 5}})
	res := dag.Sort(g)

	require.False(t, res.Computable)
	require.Equal(t, dag.StatePending, g.Node(1).RunState)
	require.Equal(t, dag.StatePending, g.Node(2).RunState)
	require.Equal(t, dag.StateDeadLock, g.Node(3).RunState)

	pos := position(res.SearchOrder)
	require.Less(t, pos[1], pos[2])
	require.Less(t, pos[4], pos[5])
}
