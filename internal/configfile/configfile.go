// Package configfile loads the JSON/YAML build description from disk,
// strips JSONC-style comments, and runs Draft-7-shaped structural validation
// before handing the raw document to internal/workspace for resolution.
package configfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// Raw is the decoded build description, keyed exactly as written (including
// condition-suffixed keys like "files.windows" which internal/workspace
// resolves later).
type Raw = map[string]any

// Load reads path (JSON, JSONC, or YAML, chosen by extension; ".json" and
// ".chalet" are treated as JSONC) and returns the decoded document.
func Load(path string) (Raw, error) {
	data, err := os.ReadFile(path) // #nosec G304 - user-specified build description
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var raw Raw
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		stripped := stripJSONComments(data)
		if err := json.Unmarshal(stripped, &raw); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := Validate(raw); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return raw, nil
}

var (
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// stripJSONComments removes // and /* */ comments and trailing commas so a
// JSONC build description parses with encoding/json. It is line-naive
// (comment markers inside string literals are not special-cased), matching
// the lenient JSONC handling most build tools apply to config files rather
// than a full tokenizing parser.
func stripJSONComments(data []byte) []byte {
	out := blockComment.ReplaceAll(data, nil)
	out = lineComment.ReplaceAll(out, nil)
	out = trailingComma.ReplaceAll(out, []byte("$1"))
	return out
}

// patternConditionedKey matches "base.tok1.tok2"-style keys so the
// pre-validation pass can recognize them as variants of "base" rather than
// unknown properties.
var patternConditionedKey = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(\.[A-Za-z0-9!_-]+)+$`)

// knownTopLevelKeys are the base (unsuffixed) top-level keys a build
// description may declare. Validate also accepts any condition-suffixed key
// ("vars.windows", "searchPaths.linux"), whether or not its base is listed
// here.
var knownTopLevelKeys = map[string]bool{
	"name": true, "version": true, "workspace": true,
	"defaultConfigurations": true, "configurations": true,
	"abstracts": true, "targets": true, "distribution": true,
	"externalDependencies": true, "searchPaths": true, "vars": true,
	"allowedArchitectures": true, "env": true,
}

// Validate runs the pattern-conditioned-properties rewrite pass (recognizing
// "key.tok1.tok2" as a variant of "key" rather than an unknown property) and
// then a structural check against the declared shape. There is no Draft-7
// validator in the dependency set this project draws from, so this check is
// a hand-rolled structural pass rather than a schema-engine Validate call;
// the generated schema (Schema below) still documents the full shape for
// the "chalet-schema" query surface and for editor tooling.
func Validate(raw Raw) error {
	for key := range raw {
		base := key
		if idx := strings.IndexByte(key, '.'); idx >= 0 {
			base = key[:idx]
		}
		if !knownTopLevelKeys[base] {
			if patternConditionedKey.MatchString(key) {
				continue
			}
			return fmt.Errorf("unknown top-level key %q", key)
		}
	}
	if v, ok := raw["targets"]; ok {
		targets, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("\"targets\" must be an object")
		}
		for name, t := range targets {
			if _, ok := t.(map[string]any); !ok {
				return fmt.Errorf("target %q must be an object", name)
			}
		}
	}
	return nil
}

// Schema returns the Draft-7 JSON Schema document describing a build
// description, generated by reflection for the "chalet-schema" query
// surface (and for editor autocompletion when exported to disk).
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: false,
	}
	s := r.Reflect(&Document{})
	return s
}

// Document is the reflection target for Schema: it mirrors the top-level
// shape of a build description for documentation purposes. The actual
// loader works against the untyped Raw map so that condition-suffixed keys
// ("files.windows") don't need one field per platform variant.
type Document struct {
	Name                  string              `json:"name" jsonschema:"required"`
	Version               string              `json:"version,omitempty"`
	DefaultConfigurations []string            `json:"defaultConfigurations,omitempty"`
	Configurations        map[string]any      `json:"configurations,omitempty"`
	Abstracts             map[string]any      `json:"abstracts,omitempty"`
	Targets               map[string]any      `json:"targets" jsonschema:"required"`
	Distribution          map[string]any      `json:"distribution,omitempty"`
	ExternalDependencies  map[string]any      `json:"externalDependencies,omitempty"`
	SearchPaths           []string            `json:"searchPaths,omitempty"`
	Vars                  map[string]string   `json:"vars,omitempty"`
	AllowedArchitectures  []string            `json:"allowedArchitectures,omitempty"`
}

// WriteSchema writes Schema as indented JSON to the file at path.
func WriteSchema(path string) error {
	s := Schema()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SortedKeys returns m's keys sorted, used wherever map iteration needs to
// be deterministic (diagnostics, generated output).
func SortedKeys(m Raw) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
