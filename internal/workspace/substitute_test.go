package workspace

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_Builtin(t *testing.T) {
	out, err := Expand("${buildDir}/obj", nil, Builtins{BuildDir: "build/gcc_x64_Release"})
	require.NoError(t, err)
	assert.Equal(t, "build/gcc_x64_Release/obj", out)
}

func TestExpand_Var(t *testing.T) {
	out, err := Expand("${var:VERSION}", map[string]string{"VERSION": "1.2.3"}, Builtins{})
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", out)
}

func TestExpand_UndefinedVarIsError(t *testing.T) {
	_, err := Expand("${var:MISSING}", map[string]string{}, Builtins{})
	require.Error(t, err)
	var undef *UndefinedVarError
	assert.ErrorAs(t, err, &undef)
}

func TestExpand_Env(t *testing.T) {
	t.Setenv("CHALET_TEST_VAR", "hello")
	out, err := Expand("${env:CHALET_TEST_VAR}", nil, Builtins{})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestExpand_UndefinedEnvIsEmpty(t *testing.T) {
	os.Unsetenv("CHALET_TEST_ABSENT")
	out, err := Expand("[${env:CHALET_TEST_ABSENT}]", nil, Builtins{})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestExpand_NestedExpansion(t *testing.T) {
	vars := map[string]string{
		"base": "${var:inner}",
		"inner": "leaf",
	}
	out, err := Expand("${var:base}", vars, Builtins{})
	require.NoError(t, err)
	assert.Equal(t, "leaf", out)
}

func TestExpand_CycleDetected(t *testing.T) {
	vars := map[string]string{
		"a": "${var:b}",
		"b": "${var:a}",
	}
	_, err := Expand("${var:a}", vars, Builtins{})
	require.Error(t, err)
	var cycle *CycleError
	assert.ErrorAs(t, err, &cycle)
}

func TestExpandAll_ExpandsEachElement(t *testing.T) {
	out, err := ExpandAll([]string{"${configuration}", "plain"}, nil, Builtins{Configuration: "Debug"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Debug", "plain"}, out)
}
