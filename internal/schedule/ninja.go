package schedule

import (
	"strings"
	"text/template"

	"github.com/chalet-org/chalet-go/internal/graph"
)

var ninjaTemplate = template.Must(template.New("ninja").Parse(
	`rule build_{{.Index}}
  command = {{.Command}}
  description = {{.Name}}

build {{.Output}}: build_{{.Index}} {{range .Deps}}{{.}} {{end}}
`))

type ninjaRule struct {
	Index   int
	Name    string
	Output  string
	Command string
	Deps    []string
}

// WriteNinja renders the dependency graph and its per-node commands as a
// build.ninja file honoring the same edges the native scheduler walks.
func WriteNinja(g *graph.Graph, builds map[string]NodeBuild) (string, error) {
	var sb strings.Builder
	sb.WriteString("# generated by chalet; do not edit\n\n")

	nodes := g.Nodes()
	for i, n := range nodes {
		nb, ok := builds[n.Name]
		if !ok {
			continue
		}
		rule := ninjaRule{
			Index:   i,
			Name:    n.Name,
			Output:  n.Name,
			Command: strings.Join(quoteArgv(nb.Argv), " "),
			Deps:    n.Dependencies,
		}
		if err := ninjaTemplate.Execute(&sb, rule); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func quoteArgv(argv []string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		if strings.ContainsAny(a, " \t$") {
			a = strings.ReplaceAll(a, "$", "$$")
			out[i] = "\"" + a + "\""
		} else {
			out[i] = a
		}
	}
	return out
}
