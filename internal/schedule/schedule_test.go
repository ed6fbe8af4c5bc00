package schedule

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalet-org/chalet-go/internal/diagnostic"
	"github.com/chalet-org/chalet-go/internal/fsutil"
	"github.com/chalet-org/chalet-go/internal/graph"
)

func buildChain(t *testing.T) (*graph.Graph, map[string]NodeBuild) {
	t.Helper()
	g := graph.New()
	require.NoError(t, g.AddNode("base", nil))
	require.NoError(t, g.AddNode("mid", []string{"base"}))
	require.NoError(t, g.AddNode("top", []string{"mid"}))

	builds := map[string]NodeBuild{
		"base": {Name: "base", Argv: []string{"true"}},
		"mid":  {Name: "mid", Argv: []string{"true"}},
		"top":  {Name: "top", Argv: []string{"true"}},
	}
	return g, builds
}

func TestScheduler_RunsAllNodesToSuccess(t *testing.T) {
	g, builds := buildChain(t)
	sched := New(g, builds, Config{MaxJobs: 2}, func(ctx context.Context, nb NodeBuild) (fsutil.Result, error) {
		return fsutil.Result{}, nil
	}, diagnostic.New())

	res, err := sched.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Worst)
	for _, name := range []string{"base", "mid", "top"} {
		assert.Equal(t, StatusSuccess, res.Statuses[name])
	}
}

func TestScheduler_CascadesSkipOnFailure(t *testing.T) {
	g, builds := buildChain(t)
	sched := New(g, builds, Config{MaxJobs: 2, KeepGoing: true}, func(ctx context.Context, nb NodeBuild) (fsutil.Result, error) {
		if nb.Name == "base" {
			return fsutil.Result{}, fmt.Errorf("compile failed")
		}
		return fsutil.Result{}, nil
	}, diagnostic.New())

	res, err := sched.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Worst)
	assert.Equal(t, StatusFailed, res.Statuses["base"])
	assert.Equal(t, StatusSkipped, res.Statuses["mid"])
	assert.Equal(t, StatusSkipped, res.Statuses["top"])
}

func TestScheduler_IndependentBranchSurvivesFailure(t *testing.T) {
	g := graph.New()
	require.NoError(t, g.AddNode("a", nil))
	require.NoError(t, g.AddNode("b", nil))
	builds := map[string]NodeBuild{
		"a": {Name: "a", Argv: []string{"true"}},
		"b": {Name: "b", Argv: []string{"true"}},
	}
	sched := New(g, builds, Config{MaxJobs: 2, KeepGoing: true}, func(ctx context.Context, nb NodeBuild) (fsutil.Result, error) {
		if nb.Name == "a" {
			return fsutil.Result{}, fmt.Errorf("boom")
		}
		return fsutil.Result{}, nil
	}, diagnostic.New())

	res, err := sched.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Statuses["a"])
	assert.Equal(t, StatusSuccess, res.Statuses["b"])
}
