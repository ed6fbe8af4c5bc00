package configfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_JSONC_StripsCommentsAndTrailingCommas(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chalet.json")
	body := `{
  // a line comment
  "name": "demo",
  /* block
     comment */
  "targets": {
    "demo": { "kind": "executable", "files": ["src/*.cpp"], },
  },
}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	raw, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", raw["name"])
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chalet.yaml")
	body := "name: demo\ntargets:\n  demo:\n    kind: executable\n    files:\n      - src/main.cpp\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	raw, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", raw["name"])
}

func TestValidate_RejectsUnknownTopLevelKey(t *testing.T) {
	err := Validate(Raw{"bogus": true, "targets": map[string]any{}})
	assert.Error(t, err)
}

func TestValidate_AcceptsConditionSuffixedKey(t *testing.T) {
	err := Validate(Raw{
		"name":                "demo",
		"targets":             map[string]any{"demo": map[string]any{}},
		"externalDir.windows": "C:/ext",
	})
	assert.NoError(t, err)
}

func TestValidate_RejectsNonObjectTarget(t *testing.T) {
	err := Validate(Raw{"targets": map[string]any{"demo": "not-an-object"}})
	assert.Error(t, err)
}
