package schedule

import (
	"strings"
	"text/template"

	"github.com/chalet-org/chalet-go/internal/graph"
)

var makeTemplate = template.Must(template.New("makefile").Parse(
	`{{.Output}}: {{range .Deps}}{{.}} {{end}}
	{{.Command}}

`))

// WriteMakefile renders the dependency graph as a GNU-make-compatible
// Makefile. The NMake/Jom variant used for MSVC shares this structure;
// callers select the tab/escape convention by passing nmake=true, which
// only changes the command-line escaping, not the rule shape.
func WriteMakefile(g *graph.Graph, builds map[string]NodeBuild, nmake bool) (string, error) {
	var sb strings.Builder
	sb.WriteString("# generated by chalet; do not edit\n\n")

	var allTargets []string
	for _, n := range g.Nodes() {
		allTargets = append(allTargets, n.Name)
	}
	sb.WriteString("all: " + strings.Join(allTargets, " ") + "\n\n")

	for _, n := range g.Nodes() {
		nb, ok := builds[n.Name]
		if !ok {
			continue
		}
		cmd := strings.Join(nb.Argv, " ")
		if nmake {
			cmd = strings.ReplaceAll(cmd, "/", "\\")
		}
		rule := struct {
			Output  string
			Deps    []string
			Command string
		}{Output: n.Name, Deps: n.Dependencies, Command: cmd}
		if err := makeTemplate.Execute(&sb, rule); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}
