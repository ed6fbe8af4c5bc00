package workspace

import (
	"fmt"
	"sort"
	"strings"
)

// Context is the set of condition tokens true for the current resolution
// (platform, "debug", configuration name, toolchain family, user tokens).
type Context struct {
	Tokens map[string]bool
}

// NewContext builds a Context from the platform, configuration, toolchain
// family and any CLI-supplied tokens.
func NewContext(platform, configuration, toolchainFamily string, debug bool, extra []string) Context {
	tokens := map[string]bool{
		platform:        true,
		configuration:   true,
		toolchainFamily: true,
	}
	if debug {
		tokens["debug"] = true
	}
	for _, t := range extra {
		tokens[t] = true
	}
	return Context{Tokens: tokens}
}

// satisfies reports whether every token in chain evaluates true against ctx,
// honoring "!" negation.
func (ctx Context) satisfies(chain []string) bool {
	for _, tok := range chain {
		negate := strings.HasPrefix(tok, "!")
		tok = strings.TrimPrefix(tok, "!")
		if ctx.Tokens[tok] == negate {
			return false
		}
	}
	return true
}

// AmbiguousConditionError is returned when two equally specific condition
// variants of the same base key both match the current context.
type AmbiguousConditionError struct {
	BaseKey string
	First   string
	Second  string
}

func (e *AmbiguousConditionError) Error() string {
	return fmt.Sprintf("ambiguous condition resolution for key %q: both %q and %q match", e.BaseKey, e.First, e.Second)
}

// ResolveKeys picks, for each base key, the most specific matching variant
// among a set of raw object keys of the form "base", "base.tok1", or
// "base.tok1.tok2". It returns a map from base key to the winning raw key.
// Equally-specific matches are an error; unmatched variants are discarded.
func ResolveKeys(ctx Context, rawKeys []string) (map[string]string, error) {
	type variant struct {
		raw   string
		chain []string
	}
	byBase := map[string][]variant{}

	// Deterministic iteration: sort input so map-derived callers don't
	// introduce nondeterminism upstream of this function.
	sorted := append([]string(nil), rawKeys...)
	sort.Strings(sorted)

	for _, raw := range sorted {
		parts := strings.Split(raw, ".")
		base := parts[0]
		chain := parts[1:]
		byBase[base] = append(byBase[base], variant{raw: raw, chain: chain})
	}

	result := map[string]string{}
	for base, variants := range byBase {
		var best *variant
		var bestSpecificity = -1
		for i := range variants {
			v := &variants[i]
			if !ctx.satisfies(v.chain) {
				continue
			}
			specificity := len(v.chain)
			switch {
			case specificity > bestSpecificity:
				best = v
				bestSpecificity = specificity
			case specificity == bestSpecificity && best != nil && best.raw != v.raw:
				return nil, &AmbiguousConditionError{BaseKey: base, First: best.raw, Second: v.raw}
			}
		}
		if best != nil {
			result[base] = best.raw
		}
	}
	return result, nil
}
