package workspace

import (
	"fmt"
	"sort"

	"github.com/chalet-org/chalet-go/internal/configfile"
)

// ResolveOptions carries the CLI/environment context a raw document is
// resolved against.
type ResolveOptions struct {
	Platform      string // runtime.GOOS
	Configuration string
	ExternalDir   string
	BuildDir      string
	OutputDir     string
	Architecture  string
	ToolchainName string
	ExtraTokens   []string
	Debug         bool
}

// Resolve expands condition tokens, applies abstract-target inheritance and
// variable substitution over raw, producing an immutable Workspace.
func Resolve(raw configfile.Raw, opts ResolveOptions) (*Workspace, error) {
	ctx := NewContext(opts.Platform, opts.Configuration, opts.ToolchainName, opts.Debug, opts.ExtraTokens)

	ws := &Workspace{
		Name:    stringField(raw, "name"),
		Version: stringField(raw, "version"),
	}

	vars, err := resolveVars(raw, ctx)
	if err != nil {
		return nil, err
	}
	ws.Variables = vars

	builtins := Builtins{
		ExternalDir:   opts.ExternalDir,
		BuildDir:      opts.BuildDir,
		OutputDir:     opts.OutputDir,
		Configuration: opts.Configuration,
		Architecture:  opts.Architecture,
		ToolchainName: opts.ToolchainName,
	}

	configs, err := resolveConfigurations(raw, ctx)
	if err != nil {
		return nil, err
	}
	ws.Configurations = configs

	abstracts, err := resolveAbstracts(raw, ctx, vars, builtins)
	if err != nil {
		return nil, err
	}
	ws.Abstracts = abstracts

	targets, err := resolveTargets(raw, ctx, abstracts, vars, builtins)
	if err != nil {
		return nil, err
	}
	ws.Targets = targets

	externals, err := resolveExternals(raw, ctx, vars, builtins)
	if err != nil {
		return nil, err
	}
	ws.Externals = externals

	if sp, ok := raw["searchPaths"].([]any); ok {
		paths, err := ExpandAll(toStringSlice(sp), vars, builtins)
		if err != nil {
			return nil, fmt.Errorf("searchPaths: %w", err)
		}
		ws.SearchPaths = paths
	}

	if arch, ok := raw["allowedArchitectures"].([]any); ok {
		ws.AllowedArchitectures = toStringSlice(arch)
	}

	return ws, nil
}

func resolveVars(raw configfile.Raw, ctx Context) (map[string]string, error) {
	v, ok := raw["vars"].(map[string]any)
	if !ok {
		return map[string]string{}, nil
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	winners, err := ResolveKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("resolving vars: %w", err)
	}
	out := map[string]string{}
	for base, raw := range winners {
		out[base] = fmt.Sprint(v[raw])
	}
	return out, nil
}

func resolveConfigurations(raw configfile.Raw, ctx Context) ([]BuildConfiguration, error) {
	defaults := DefaultConfigurations()
	overrides, ok := raw["configurations"].(map[string]any)
	if !ok {
		return defaults, nil
	}

	byName := map[string]BuildConfiguration{}
	for _, c := range defaults {
		byName[c.Name] = c
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		body, ok := overrides[name].(map[string]any)
		if !ok {
			continue
		}
		cfg := byName[name]
		cfg.Name = name
		if v, ok := body["debugSymbols"].(bool); ok {
			cfg.DebugSymbols = v
		}
		if v, ok := body["enableProfiling"].(bool); ok {
			cfg.EnableProfiling = v
		}
		if v, ok := body["interproceduralOptimization"].(bool); ok {
			cfg.InterproceduralOptimization = v
		}
		if v, ok := body["optimizationLevel"].(string); ok {
			cfg.OptimizationLevel = OptimizationLevel(v)
		}
		if v, ok := body["sanitizers"].([]any); ok {
			for _, s := range v {
				cfg.Sanitizers = append(cfg.Sanitizers, Sanitizer(fmt.Sprint(s)))
			}
		}
		byName[name] = cfg
	}

	out := make([]BuildConfiguration, 0, len(byName))
	seen := map[string]bool{}
	for _, c := range defaults {
		out = append(out, byName[c.Name])
		seen[c.Name] = true
	}
	for _, name := range names {
		if !seen[name] {
			out = append(out, byName[name])
			seen[name] = true
		}
	}
	return out, nil
}

func resolveAbstracts(raw configfile.Raw, ctx Context, vars map[string]string, builtins Builtins) (map[string]SourceTarget, error) {
	body, ok := raw["abstracts"].(map[string]any)
	if !ok {
		return map[string]SourceTarget{}, nil
	}
	names := make([]string, 0, len(body))
	for name := range body {
		names = append(names, name)
	}
	sort.Strings(names)

	out := map[string]SourceTarget{}
	for _, name := range names {
		t, err := decodeTarget(name, body[name], ctx, vars, builtins)
		if err != nil {
			return nil, fmt.Errorf("abstract %q: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

func resolveTargets(raw configfile.Raw, ctx Context, abstracts map[string]SourceTarget, vars map[string]string, builtins Builtins) ([]SourceTarget, error) {
	body, ok := raw["targets"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("no \"targets\" declared")
	}
	names := make([]string, 0, len(body))
	for name := range body {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]SourceTarget, 0, len(names))
	for _, name := range names {
		t, err := decodeTarget(name, body[name], ctx, vars, builtins)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", name, err)
		}
		merged, err := ResolveExtends(abstracts, t)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", name, err)
		}
		if merged.If != "" && !ctx.satisfies(splitChain(merged.If)) {
			continue
		}
		out = append(out, merged)
	}
	return out, nil
}

func decodeTarget(name string, v any, ctx Context, vars map[string]string, builtins Builtins) (SourceTarget, error) {
	body, ok := v.(map[string]any)
	if !ok {
		return SourceTarget{}, fmt.Errorf("must be an object")
	}
	keys := configfile.SortedKeys(body)
	winners, err := ResolveKeys(ctx, keys)
	if err != nil {
		return SourceTarget{}, err
	}

	get := func(base string) (any, bool) {
		raw, ok := winners[base]
		if !ok {
			return nil, false
		}
		return body[raw], true
	}
	getStrings := func(base string) ([]string, error) {
		v, ok := get(base)
		if !ok {
			return nil, nil
		}
		arr, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%q must be an array", base)
		}
		return ExpandAll(toStringSlice(arr), vars, builtins)
	}

	t := SourceTarget{Name: name}
	if v, ok := get("kind"); ok {
		t.Kind = TargetKind(fmt.Sprint(v))
	}
	if v, ok := get("language"); ok {
		t.Language = Language(fmt.Sprint(v))
	}
	if v, ok := get("if"); ok {
		t.If = fmt.Sprint(v)
	}
	if v, ok := get("extends"); ok {
		t.Extends = fmt.Sprint(v)
	}
	var err2 error
	if t.Files, err2 = getStrings("files"); err2 != nil {
		return t, err2
	}
	if t.FileExcludes, err2 = getStrings("fileExcludes"); err2 != nil {
		return t, err2
	}
	if t.IncludeDirs, err2 = getStrings("includeDirs"); err2 != nil {
		return t, err2
	}
	if t.LibDirs, err2 = getStrings("libDirs"); err2 != nil {
		return t, err2
	}
	if t.Links, err2 = getStrings("links"); err2 != nil {
		return t, err2
	}
	if t.StaticLinks, err2 = getStrings("staticLinks"); err2 != nil {
		return t, err2
	}
	if t.Defines, err2 = getStrings("defines"); err2 != nil {
		return t, err2
	}
	if t.ProjectDependencies, err2 = getStrings("projectDependencies"); err2 != nil {
		return t, err2
	}
	if t.Frameworks, err2 = getStrings("frameworks"); err2 != nil {
		return t, err2
	}
	if t.FrameworkDirs, err2 = getStrings("frameworkDirs"); err2 != nil {
		return t, err2
	}
	if t.WarningExtras, err2 = getStrings("warningExtras"); err2 != nil {
		return t, err2
	}
	if v, ok := get("warnings"); ok {
		t.Warnings = WarningPreset(fmt.Sprint(v))
	}
	if v, ok := get("cppStandard"); ok {
		t.CppStandard = fmt.Sprint(v)
	}
	if v, ok := get("cStandard"); ok {
		t.CStandard = fmt.Sprint(v)
	}
	if v, ok := get("precompiledHeader"); ok {
		t.PrecompiledHeader = fmt.Sprint(v)
	}
	if v, ok := get("windowsResource"); ok {
		t.WindowsResource = fmt.Sprint(v)
	}
	if v, ok := get("windowsManifest"); ok {
		t.WindowsManifest = fmt.Sprint(v)
	}
	if v, ok := get("windowsIcon"); ok {
		t.WindowsIcon = fmt.Sprint(v)
	}
	if v, ok := get("threads"); ok {
		t.Threads, _ = v.(bool)
	}
	if v, ok := get("rtti"); ok {
		t.RTTI, _ = v.(bool)
	}
	if v, ok := get("exceptions"); ok {
		t.Exceptions, _ = v.(bool)
	}
	if v, ok := get("fastMath"); ok {
		t.FastMath, _ = v.(bool)
	}
	if v, ok := get("positionIndependent"); ok {
		t.PositionIndependent, _ = v.(bool)
	}
	if v, ok := get("unityBuild"); ok {
		t.UnityBuild, _ = v.(bool)
	}

	if v, ok := get("compileOptions"); ok {
		t.CompileOptions, err2 = decodeStringArrayMap(v, vars, builtins)
		if err2 != nil {
			return t, fmt.Errorf("compileOptions: %w", err2)
		}
	}
	if v, ok := get("linkerOptions"); ok {
		t.LinkerOptions, err2 = decodeStringArrayMap(v, vars, builtins)
		if err2 != nil {
			return t, fmt.Errorf("linkerOptions: %w", err2)
		}
	}

	return t, nil
}

func decodeStringArrayMap(v any, vars map[string]string, builtins Builtins) (map[string][]string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("must be an object")
	}
	out := map[string][]string{}
	for k, raw := range m {
		arr, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%q must be an array", k)
		}
		expanded, err := ExpandAll(toStringSlice(arr), vars, builtins)
		if err != nil {
			return nil, err
		}
		out[k] = expanded
	}
	return out, nil
}

func resolveExternals(raw configfile.Raw, ctx Context, vars map[string]string, builtins Builtins) ([]ExternalDependency, error) {
	body, ok := raw["externalDependencies"].(map[string]any)
	if !ok {
		return nil, nil
	}
	names := make([]string, 0, len(body))
	for name := range body {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ExternalDependency, 0, len(names))
	for _, name := range names {
		m, ok := body[name].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("externalDependencies.%s: must be an object", name)
		}
		dep := ExternalDependency{Name: name}
		if v, ok := m["kind"]; ok {
			dep.Kind = ExternalKind(fmt.Sprint(v))
		}
		dep.Repository = expandString(m, "repository", vars, builtins)
		dep.Branch = expandString(m, "branch", vars, builtins)
		dep.Tag = expandString(m, "tag", vars, builtins)
		dep.Commit = expandString(m, "commit", vars, builtins)
		dep.URL = expandString(m, "url", vars, builtins)
		dep.Hash = expandString(m, "hash", vars, builtins)
		dep.Subdirectory = expandString(m, "subdirectory", vars, builtins)
		dep.Path = expandString(m, "path", vars, builtins)
		dep.Script = expandString(m, "script", vars, builtins)
		dep.Destination = expandString(m, "destination", vars, builtins)
		if dep.Destination == "" {
			dep.Destination = name
		}
		if v, ok := m["submodules"].(bool); ok {
			dep.Submodules = v
		}
		if v, ok := m["timeoutSeconds"].(float64); ok {
			dep.TimeoutSeconds = int(v)
		}
		out = append(out, dep)
	}
	return out, nil
}

func expandString(m map[string]any, key string, vars map[string]string, builtins Builtins) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	s, err := Expand(fmt.Sprint(v), vars, builtins)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

func stringField(raw configfile.Raw, key string) string {
	if v, ok := raw[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

func toStringSlice(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func splitChain(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == '.' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	out = append(out, cur)
	return out
}
