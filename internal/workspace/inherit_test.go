package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExtends_DeepMergeAndDedup(t *testing.T) {
	abstracts := map[string]SourceTarget{
		"*": {IncludeDirs: []string{"include"}},
		"base": {
			Defines:     []string{"COMMON"},
			IncludeDirs: []string{"include"},
			CppStandard: "c++17",
		},
	}
	target := SourceTarget{
		Name:        "app",
		Extends:     "base",
		Defines:     []string{"APP_SPECIFIC"},
		IncludeDirs: []string{"src"},
	}

	merged, err := ResolveExtends(abstracts, target)
	require.NoError(t, err)
	assert.Equal(t, "app", merged.Name)
	assert.Equal(t, "c++17", merged.CppStandard)
	assert.Equal(t, []string{"COMMON", "APP_SPECIFIC"}, merged.Defines)
	assert.Equal(t, []string{"include", "src"}, merged.IncludeDirs)
}

func TestResolveExtends_CycleDetected(t *testing.T) {
	abstracts := map[string]SourceTarget{
		"a": {Extends: "b"},
		"b": {Extends: "a"},
	}
	target := SourceTarget{Name: "app", Extends: "a"}

	_, err := ResolveExtends(abstracts, target)
	require.Error(t, err)
	var cycleErr *ExtendsCycleError
	assert.ErrorAs(t, err, &cycleErr)
}

func TestResolveExtends_UndefinedAbstractIsError(t *testing.T) {
	target := SourceTarget{Name: "app", Extends: "missing"}
	_, err := ResolveExtends(map[string]SourceTarget{}, target)
	require.Error(t, err)
}
