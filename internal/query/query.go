// Package query implements the read-only introspection surfaces behind
// `chalet query`: the generated JSON schema, the command tree, and the
// resolved build description as JSON.
package query

import (
	"encoding/json"
	"sort"

	"github.com/chalet-org/chalet-go/internal/configfile"
	"github.com/chalet-org/chalet-go/internal/workspace"
)

// Schema returns the Draft-7 schema document as indented JSON.
func Schema() ([]byte, error) {
	return json.MarshalIndent(configfile.Schema(), "", "  ")
}

// Commands lists the top-level route names, sorted, for `query commands`.
func Commands() []string {
	cmds := []string{
		"configure", "build", "rebuild", "clean", "run", "build-run",
		"bundle", "export", "init", "settings", "validate", "query", "convert",
	}
	sort.Strings(cmds)
	return cmds
}

// ChaletJSON returns the resolved workspace as indented JSON, letting a
// caller inspect the effect of condition resolution, inheritance and
// variable substitution on the raw build description.
func ChaletJSON(ws *workspace.Workspace) ([]byte, error) {
	return json.MarshalIndent(ws, "", "  ")
}
