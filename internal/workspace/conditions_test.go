package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKeys_MostSpecificWins(t *testing.T) {
	ctx := NewContext("windows", "Debug", "msvc", true, nil)
	winners, err := ResolveKeys(ctx, []string{"files", "files.windows", "files.windows.debug", "files.macos"})
	require.NoError(t, err)
	assert.Equal(t, "files.windows.debug", winners["files"])
}

func TestResolveKeys_NegationExcludesMatch(t *testing.T) {
	ctx := NewContext("linux", "Release", "gcc", false, nil)
	winners, err := ResolveKeys(ctx, []string{"links", "links.!windows"})
	require.NoError(t, err)
	assert.Equal(t, "links.!windows", winners["links"])
}

func TestResolveKeys_AmbiguousIsError(t *testing.T) {
	ctx := NewContext("linux", "Release", "gcc", false, []string{"extra"})
	_, err := ResolveKeys(ctx, []string{"defines.linux", "defines.extra"})
	require.Error(t, err)
	var ambiguous *AmbiguousConditionError
	assert.ErrorAs(t, err, &ambiguous)
}

func TestResolveKeys_UnmatchedVariantDiscarded(t *testing.T) {
	ctx := NewContext("linux", "Release", "gcc", false, nil)
	winners, err := ResolveKeys(ctx, []string{"links.windows"})
	require.NoError(t, err)
	_, ok := winners["links"]
	assert.False(t, ok)
}
