package workspace

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

const maxExpansionDepth = 8

// CycleError is returned when a variable's expansion references itself,
// directly or transitively, within the fixed recursion depth.
type CycleError struct {
	Name string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("variable expansion cycle detected for %q", e.Name)
}

// UndefinedVarError is returned when a ${var:NAME} reference has no
// corresponding entry.
type UndefinedVarError struct {
	Name string
}

func (e *UndefinedVarError) Error() string {
	return fmt.Sprintf("undefined variable reference ${var:%s}", e.Name)
}

// Builtins is the set of path/config/arch tokens the resolver makes
// available to ${name} and ${externalDir|buildDir|...} references.
type Builtins struct {
	ExternalDir   string
	BuildDir      string
	OutputDir     string
	Configuration string
	Architecture  string
	TargetTriple  string
	ToolchainName string
}

func (b Builtins) asMap() map[string]string {
	return map[string]string{
		"externalDir":   b.ExternalDir,
		"buildDir":      b.BuildDir,
		"outputDir":     b.OutputDir,
		"configuration": b.Configuration,
		"architecture":  b.Architecture,
		"targetTriple":  b.TargetTriple,
		"toolchainName": b.ToolchainName,
	}
}

var varRef = regexp.MustCompile(`\$\{(?:(env|var):)?([^}]*)\}`)

// Expand substitutes every ${name}, ${env:NAME}, ${var:NAME} and
// ${externalDir|buildDir|...} reference in s, exactly once per occurrence,
// left to right, recursively expanding nested references up to
// maxExpansionDepth. Undefined ${env:...} references substitute empty;
// undefined ${var:...} references are an error.
func Expand(s string, vars map[string]string, builtins Builtins) (string, error) {
	return expandDepth(s, vars, builtins, 0, "")
}

func expandDepth(s string, vars map[string]string, builtins Builtins, depth int, origin string) (string, error) {
	if depth > maxExpansionDepth {
		return "", &CycleError{Name: origin}
	}

	builtinMap := builtins.asMap()

	var expandErr error
	out := varRef.ReplaceAllStringFunc(s, func(match string) string {
		if expandErr != nil {
			return match
		}
		sub := varRef.FindStringSubmatch(match)
		kind, name := sub[1], sub[2]

		var raw string
		var ok bool
		switch kind {
		case "env":
			raw, ok = os.LookupEnv(name)
			if !ok {
				raw = ""
			}
		case "var":
			raw, ok = vars[name]
			if !ok {
				expandErr = &UndefinedVarError{Name: name}
				return match
			}
		default:
			if v, exists := builtinMap[name]; exists {
				raw, ok = v, true
			} else if v, exists := vars[name]; exists {
				raw, ok = v, true
			} else {
				// Bare ${name} with no builtin or var match: leave literal,
				// mirroring undefined-env's empty-substitution leniency for
				// names that are neither builtins nor declared variables.
				return match
			}
			_ = ok
		}

		if strings.Contains(raw, "${") {
			nested, err := expandDepth(raw, vars, builtins, depth+1, name)
			if err != nil {
				expandErr = err
				return match
			}
			raw = nested
		}
		return raw
	})

	if expandErr != nil {
		return "", expandErr
	}
	return out, nil
}

// ExpandAll expands every string in a slice, returning a new slice.
func ExpandAll(in []string, vars map[string]string, builtins Builtins) ([]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		v, err := Expand(s, vars, builtins)
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}
