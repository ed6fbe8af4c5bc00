package compiler

import "github.com/chalet-org/chalet-go/internal/workspace"

// gnuWarningFlags maps each warning preset to its GNU/LLVM-family flag
// list. "custom" is handled by the caller, which passes WarningExtras
// through unchanged instead of consulting this table.
var gnuWarningFlags = map[workspace.WarningPreset][]string{
	workspace.WarnNone:           {"-w"},
	workspace.WarnMinimal:        {"-Wall"},
	workspace.WarnExtra:          {"-Wall", "-Wextra"},
	workspace.WarnPedantic:       {"-Wall", "-Wextra", "-Wpedantic"},
	workspace.WarnStrict:         {"-Wall", "-Wextra", "-Wshadow", "-Wnon-virtual-dtor"},
	workspace.WarnStrictPedantic: {"-Wall", "-Wextra", "-Wpedantic", "-Wshadow", "-Wnon-virtual-dtor"},
	workspace.WarnVeryStrict:     {"-Wall", "-Wextra", "-Wpedantic", "-Wshadow", "-Wnon-virtual-dtor", "-Wold-style-cast", "-Wconversion", "-Wsign-conversion"},
}

var msvcWarningFlags = map[workspace.WarningPreset][]string{
	workspace.WarnNone:           {"/w"},
	workspace.WarnMinimal:        {"/W1"},
	workspace.WarnExtra:          {"/W3"},
	workspace.WarnPedantic:       {"/W4"},
	workspace.WarnStrict:         {"/W4"},
	workspace.WarnStrictPedantic: {"/W4", "/permissive-"},
	workspace.WarnVeryStrict:     {"/Wall"},
}

// warningArgs resolves a target's warning configuration to concrete flags
// for the given table, falling through to WarningExtras verbatim for the
// "custom" preset.
func warningArgs(t workspace.SourceTarget, table map[workspace.WarningPreset][]string) []string {
	if t.Warnings == workspace.WarnCustom || t.Warnings == "" {
		return append([]string(nil), t.WarningExtras...)
	}
	flags := append([]string(nil), table[t.Warnings]...)
	return append(flags, t.WarningExtras...)
}

// groupStaticLinks wraps a circular group of static-link names in
// --start-group/--end-group for GNU/LLVM link lines; MSVC instead repeats
// the group (handled by the MSVC family directly).
func groupStaticLinks(links []string, cyclic bool) []string {
	if !cyclic || len(links) == 0 {
		return links
	}
	out := make([]string, 0, len(links)+2)
	out = append(out, "-Wl,--start-group")
	out = append(out, links...)
	out = append(out, "-Wl,--end-group")
	return out
}
