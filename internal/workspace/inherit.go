package workspace

import (
	"fmt"

	"dario.cat/mergo"
)

// ExtendsCycleError reports a cycle in a target's "extends" chain.
type ExtendsCycleError struct {
	Chain []string
}

func (e *ExtendsCycleError) Error() string {
	return fmt.Sprintf("abstract inheritance cycle: %v", e.Chain)
}

// ResolveExtends deep-merges target against its "extends" chain, with the
// implicit "*" abstract always applied first, and returns the fully merged
// target. Lists are concatenated (mergo.WithAppendSlice) and then
// deduplicated for the fields that require set semantics (links, defines,
// includeDirs); every other list concatenates with duplicates preserved in
// first-occurrence order, matching append-only merge semantics elsewhere in
// the resolver.
func ResolveExtends(abstracts map[string]SourceTarget, target SourceTarget) (SourceTarget, error) {
	chain, err := extendsChain(abstracts, target.Name, target.Extends)
	if err != nil {
		return SourceTarget{}, err
	}

	merged := SourceTarget{}
	if star, ok := abstracts["*"]; ok {
		merged = star
	}

	for _, name := range chain {
		abstract := abstracts[name]
		if err := mergo.Merge(&merged, abstract, mergo.WithAppendSlice, mergo.WithOverride); err != nil {
			return SourceTarget{}, fmt.Errorf("merging abstract %q: %w", name, err)
		}
	}

	if err := mergo.Merge(&merged, target, mergo.WithAppendSlice, mergo.WithOverride); err != nil {
		return SourceTarget{}, fmt.Errorf("merging target %q: %w", target.Name, err)
	}

	merged.Name = target.Name
	merged.Links = dedupPreserveOrder(merged.Links)
	merged.Defines = dedupPreserveOrder(merged.Defines)
	merged.IncludeDirs = dedupPreserveOrder(merged.IncludeDirs)

	return merged, nil
}

// extendsChain walks the "extends" pointer from name to its root abstract,
// returning the chain in base-to-derived order (excluding the implicit "*",
// which callers apply separately).
func extendsChain(abstracts map[string]SourceTarget, targetName, extends string) ([]string, error) {
	var chain []string
	seen := map[string]bool{}
	cur := extends
	path := []string{targetName}
	for cur != "" && cur != "*" {
		if seen[cur] {
			return nil, &ExtendsCycleError{Chain: append(path, cur)}
		}
		seen[cur] = true
		path = append(path, cur)

		abstract, ok := abstracts[cur]
		if !ok {
			return nil, fmt.Errorf("target %q extends undefined abstract %q", targetName, cur)
		}
		chain = append([]string{cur}, chain...)
		cur = abstract.Extends
	}
	return chain, nil
}

func dedupPreserveOrder(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
