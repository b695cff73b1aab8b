package dag_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/reciperunner/internal/dag"
	"github.com/gyaneshwarpardhi/reciperunner/internal/recipe"
)

func TestBuild_UnknownUpstream(t *testing.T) {
	r := &recipe.Recipe{ID: "broken", Nodes: []recipe.NodeDef{
		{ID: 1, Name: "join", Inputs: map[string][]recipe.Connection{"in": {{Node: 42, Output: "out"}}}},
	}}
	_, err := dag.Build(r)
	require.ErrorContains(t, err, "unknown upstream node 42")
}

func TestBuild_DuplicateNode(t *testing.T) {
	r := &recipe.Recipe{ID: "dup", Nodes: []recipe.NodeDef{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}}}
	_, err := dag.Build(r)
	require.ErrorContains(t, err, "duplicate node id 1")
}

func TestClone_IsDeep(t *testing.T) {
	r := &recipe.Recipe{ID: "c", Nodes: []recipe.NodeDef{
		{ID: 1, Name: "constant", Data: map[string]interface{}{
			"value": map[string]interface{}{"nested": []interface{}{1, 2}},
		}},
		{ID: 2, Name: "join", Inputs: map[string][]recipe.Connection{"in": {{Node: 1, Output: "out"}}}},
	}}
	tmpl, err := dag.Build(r)
	require.NoError(t, err)

	c := tmpl.Clone()
	c.Node(1).RunState = dag.StateFinished
	c.Node(1).Output = map[string]interface{}{"out": 1}
	c.Node(1).Data["value"].(map[string]interface{})["nested"].([]interface{})[0] = 99
	c.Node(2).Inputs["in"][0].Node = 7

	require.Equal(t, dag.StatePending, tmpl.Node(1).RunState)
	require.Nil(t, tmpl.Node(1).Output)
	require.Equal(t, 1, tmpl.Node(1).Data["value"].(map[string]interface{})["nested"].([]interface{})[0])
	require.Equal(t, 1, tmpl.Node(2).Inputs["in"][0].Node)
	require.Equal(t, []int{1, 2}, []int{c.Nodes()[0].ID, c.Nodes()[1].ID})
}

func TestNode_Enabled(t *testing.T) {
	require.True(t, (&dag.Node{}).Enabled())
	require.True(t, (&dag.Node{Data: map[string]interface{}{"enabled": true}}).Enabled())
	require.True(t, (&dag.Node{Data: map[string]interface{}{"enabled": "no"}}).Enabled())
	require.False(t, (&dag.Node{Data: map[string]interface{}{"enabled": false}}).Enabled())
}

func TestNode_Ready(t *testing.T) {
	n := &dag.Node{}
	require.False(t, n.Ready())

	n.RunState = dag.StateError
	n.Output = map[string]interface{}{"error": "boom"}
	require.False(t, n.Ready(), "errored output must not unblock downstream")

	n.RunState = dag.StateSkipped
	n.Output = map[string]interface{}{}
	require.True(t, n.Ready())
}

func TestRunState_JSON(t *testing.T) {
	b, err := json.Marshal(map[string]dag.RunState{"a": dag.StateDeadLock})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":"deadLock"}`, string(b))
	require.True(t, dag.StateDeadLock.Terminal())
	require.False(t, dag.StateRunning.Terminal())
}
