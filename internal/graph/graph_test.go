package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDiamond(t *testing.T) *Graph {
	t.Helper()
	g := New()
	require.NoError(t, g.AddNode("base", nil))
	require.NoError(t, g.AddNode("left", []string{"base"}))
	require.NoError(t, g.AddNode("right", []string{"base"}))
	require.NoError(t, g.AddNode("app", []string{"left", "right"}))
	return g
}

func TestTopologicalSort_DependenciesPrecedeDependents(t *testing.T) {
	g := buildDiamond(t)
	order, err := g.TopologicalSort()
	require.NoError(t, err)
	require.Len(t, order, 4)

	pos := map[string]int{}
	for i, n := range order {
		pos[n.Name] = i
	}
	assert.Less(t, pos["base"], pos["left"])
	assert.Less(t, pos["base"], pos["right"])
	assert.Less(t, pos["left"], pos["app"])
	assert.Less(t, pos["right"], pos["app"])
}

func TestTopologicalSort_Deterministic(t *testing.T) {
	g1 := buildDiamond(t)
	g2 := buildDiamond(t)
	o1, err1 := g1.TopologicalSort()
	o2, err2 := g2.TopologicalSort()
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, o1, o2)
}

func TestTopologicalSort_CycleIsError(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode("a", []string{"b"}))
	require.NoError(t, g.AddNode("b", []string{"a"}))

	_, err := g.TopologicalSort()
	require.Error(t, err)
	var cycleErr *CycleError
	assert.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.Nodes)
}

func TestReady_OnlyUnblockedNodes(t *testing.T) {
	g := buildDiamond(t)
	assert.Equal(t, []string{"base"}, g.Ready(map[string]bool{}))
	assert.Equal(t, []string{"left", "right"}, g.Ready(map[string]bool{"base": true}))
	assert.Equal(t, []string{"app"}, g.Ready(map[string]bool{"base": true, "left": true, "right": true}))
}

func TestAddNode_DuplicateIsError(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode("a", nil))
	err := g.AddNode("a", nil)
	require.Error(t, err)
}
