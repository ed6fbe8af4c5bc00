package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chalet-org/chalet-go/internal/toolchain"
	"github.com/chalet-org/chalet-go/internal/workspace"
)

func testToolchain() *toolchain.Toolchain {
	return &toolchain.Toolchain{
		Name:   "gcc",
		Family: toolchain.GNU,
		Paths: toolchain.Paths{
			CompilerCPP: "g++",
			CompilerC:   "gcc",
			Archiver:    "ar",
		},
		TargetArch: "x86_64",
	}
}

func TestGNUFamily_Compile_BasicArgs(t *testing.T) {
	f := gnuFamily{}
	tc := testToolchain()
	unit := CompileUnit{
		Target: workspace.SourceTarget{
			Name:        "app",
			CppStandard: "c++20",
			Defines:     []string{"FOO"},
			IncludeDirs: []string{"include"},
		},
		Config:   workspace.BuildConfiguration{OptimizationLevel: workspace.Opt2},
		Source:   "src/main.cpp",
		Object:   "build/obj/src/main.o",
		Language: workspace.LangCPP,
	}

	cmd := f.Compile(unit, tc, nil)
	assert.Contains(t, cmd.Argv, "g++")
	assert.Contains(t, cmd.Argv, "-std=c++20")
	assert.Contains(t, cmd.Argv, "-O2")
	assert.Contains(t, cmd.Argv, "-DFOO")
	assert.Contains(t, cmd.Argv, "-Iinclude")
	assert.Contains(t, cmd.Argv, "-c")
	assert.Contains(t, cmd.Argv, "src/main.cpp")
}

func TestGNUFamily_DebugSymbolsForcesO0(t *testing.T) {
	f := gnuFamily{}
	tc := testToolchain()
	unit := CompileUnit{
		Target: workspace.SourceTarget{Name: "app"},
		Config: workspace.BuildConfiguration{
			OptimizationLevel: workspace.Opt3,
			DebugSymbols:      true,
		},
		Source:   "main.cpp",
		Object:   "main.o",
		Language: workspace.LangCPP,
	}
	cmd := f.Compile(unit, tc, nil)
	assert.Contains(t, cmd.Argv, "-O0")
	assert.NotContains(t, cmd.Argv, "-O3")
	assert.Contains(t, cmd.Argv, "-g")
}

func TestGNUFamily_LinkExecutable_StaticBeforeDynamic(t *testing.T) {
	f := gnuFamily{}
	tc := testToolchain()
	unit := CompileUnit{
		Target: workspace.SourceTarget{
			Name:        "app",
			StaticLinks: []string{"mystatic"},
			Links:       []string{"mydynamic"},
		},
		Language: workspace.LangCPP,
	}
	cmd := f.LinkExecutable("build/app", []string{"a.o", "b.o"}, unit, tc, nil)

	staticIdx := indexOf(cmd.Argv, "-lmystatic")
	dynamicIdx := indexOf(cmd.Argv, "-lmydynamic")
	assert.GreaterOrEqual(t, staticIdx, 0)
	assert.GreaterOrEqual(t, dynamicIdx, 0)
	assert.Less(t, staticIdx, dynamicIdx)
}

func TestGNUFamily_LinkStatic_UsesArchiver(t *testing.T) {
	f := gnuFamily{}
	tc := testToolchain()
	cmd := f.LinkStatic("libfoo.a", []string{"a.o", "b.o"}, tc)
	assert.Equal(t, []string{"ar", "rcs", "libfoo.a", "a.o", "b.o"}, cmd.Argv)
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
