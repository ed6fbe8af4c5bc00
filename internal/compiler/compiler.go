// Package compiler translates a resolved source target into concrete
// compiler/linker/archiver argument vectors, one CompilerFamily
// implementation per toolchain family rather than a class hierarchy: shared
// policy (warning presets, link ordering, optimization/debug interaction)
// lives in free functions over a common CompileUnit input.
package compiler

import (
	"path/filepath"
	"strings"

	"github.com/chalet-org/chalet-go/internal/diagnostic"
	"github.com/chalet-org/chalet-go/internal/toolchain"
	"github.com/chalet-org/chalet-go/internal/workspace"
)

// DepGenMode selects how a compile step records header dependencies.
type DepGenMode string

const (
	DepGenNone      DepGenMode = "none"
	DepGenGNU       DepGenMode = "gnu"       // -MMD -MF
	DepGenMSVCShow  DepGenMode = "msvc-show" // /showIncludes, parsed from stderr
)

// CompileUnit is the common input every family's command builders consume.
type CompileUnit struct {
	Target       workspace.SourceTarget
	Config       workspace.BuildConfiguration
	Source       string
	Object       string
	DependencyFile string
	Language     workspace.Language
}

// Command is the argv of one tool invocation.
type Command struct {
	Argv []string
}

// CompilerFamily is the per-family command-building trait. Concrete
// implementations are chosen by Toolchain.Family at toolchain-detection
// time; there is no inheritance between them.
type CompilerFamily interface {
	ObjectFile(src string) string
	DependencyFile(src string) string
	PCHObject(pch string) string
	DepGenMode() DepGenMode

	Compile(u CompileUnit, tc *toolchain.Toolchain, diags *diagnostic.Collector) Command
	PCHCompile(u CompileUnit, tc *toolchain.Toolchain, diags *diagnostic.Collector) Command
	ResourceCompile(src, obj string, tc *toolchain.Toolchain) Command
	LinkExecutable(outputs string, objects []string, u CompileUnit, tc *toolchain.Toolchain, diags *diagnostic.Collector) Command
	LinkShared(outputs string, objects []string, u CompileUnit, tc *toolchain.Toolchain, diags *diagnostic.Collector) Command
	LinkStatic(outputs string, objects []string, tc *toolchain.Toolchain) Command
	DumpAssembly(obj, asm string, tc *toolchain.Toolchain) Command
}

// For resolves the CompilerFamily implementation for tc.Family.
func For(family toolchain.Family) CompilerFamily {
	switch family {
	case toolchain.MSVC:
		return msvcFamily{}
	default:
		// GNU, LLVM, AppleLLVM, IntelClassic, IntelLLVM, MingwGNU, MingwLLVM
		// and Emscripten all share the GNU-style driver command line; the
		// differences (archiver name, -dumpmachine availability) are
		// resolved through the Toolchain's already-detected paths rather
		// than branching here.
		return gnuFamily{}
	}
}

func replaceExt(path, ext string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + ext
}

// dedupFirstOccurrence removes duplicates from in, keeping first occurrence
// order, matching the include/lib-path emission rule in the spec.
func dedupFirstOccurrence(in []string) []string {
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

// resolveOptimization applies the rule that debug-symbols=true forces -O0
// for any non-debug/non-zero optimization level, recording a diagnostic.
func resolveOptimization(cfg workspace.BuildConfiguration, diags *diagnostic.Collector, targetName string) workspace.OptimizationLevel {
	level := cfg.OptimizationLevel
	if cfg.DebugSymbols && level != workspace.Opt0 && level != workspace.OptDebug {
		if diags != nil {
			diags.Warn(targetName, "compiler", "debug-symbols forces optimization level 0")
		}
		return workspace.Opt0
	}
	return level
}

// requireFlag returns flag if tc supports it, otherwise records a
// diagnostic and returns "".
func requireFlag(tc *toolchain.Toolchain, flag string, diags *diagnostic.Collector, targetName string) string {
	if tc.SupportedFlags == nil || len(tc.SupportedFlags) == 0 {
		// No enumerated flag set (probe failed, or family-default canned
		// list is empty): permissive, emit the flag unchanged.
		return flag
	}
	if tc.SupportedFlags[flag] {
		return flag
	}
	if diags != nil {
		diags.Warn(targetName, "compiler", "flag "+flag+" is not supported by this toolchain, omitting")
	}
	return ""
}

func appendNonEmpty(argv []string, vals ...string) []string {
	for _, v := range vals {
		if v != "" {
			argv = append(argv, v)
		}
	}
	return argv
}
