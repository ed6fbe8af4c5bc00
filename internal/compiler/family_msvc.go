package compiler

import (
	"github.com/chalet-org/chalet-go/internal/diagnostic"
	"github.com/chalet-org/chalet-go/internal/toolchain"
	"github.com/chalet-org/chalet-go/internal/workspace"
)

// msvcFamily implements CompilerFamily for cl.exe/link.exe/lib.exe/rc.exe.
type msvcFamily struct{}

func (msvcFamily) ObjectFile(src string) string     { return replaceExt(src, ".obj") }
func (msvcFamily) DependencyFile(src string) string { return replaceExt(src, ".d") }
func (msvcFamily) PCHObject(pch string) string      { return pch + ".pch" }
func (msvcFamily) DepGenMode() DepGenMode            { return DepGenMSVCShow }

func (f msvcFamily) Compile(u CompileUnit, tc *toolchain.Toolchain, diags *diagnostic.Collector) Command {
	argv := []string{tc.Paths.CompilerCPP, "/c", u.Source, "/Fo" + u.Object, "/nologo"}
	if u.DependencyFile != "" {
		argv = append(argv, "/showIncludes")
	}
	if u.Target.CppStandard != "" {
		argv = append(argv, "/std:"+u.Target.CppStandard)
	}
	argv = append(argv, f.optimizationFlags(u.Config, diags, u.Target.Name)...)
	argv = append(argv, warningArgs(u.Target, msvcWarningFlags)...)
	argv = append(argv, f.toggleFlags(u.Target)...)

	for _, d := range dedupFirstOccurrence(u.Target.Defines) {
		argv = append(argv, "/D"+d)
	}
	for _, inc := range dedupFirstOccurrence(u.Target.IncludeDirs) {
		argv = append(argv, "/I"+inc)
	}
	if opts, ok := u.Target.CompileOptions["msvc"]; ok {
		argv = append(argv, opts...)
	}
	return Command{Argv: argv}
}

func (f msvcFamily) PCHCompile(u CompileUnit, tc *toolchain.Toolchain, diags *diagnostic.Collector) Command {
	cmd := f.Compile(u, tc, diags)
	cmd.Argv = append(cmd.Argv, "/Yc")
	return cmd
}

func (msvcFamily) ResourceCompile(src, obj string, tc *toolchain.Toolchain) Command {
	return Command{Argv: []string{tc.Paths.CompilerRC, "/fo", obj, src}}
}

func (f msvcFamily) LinkExecutable(output string, objects []string, u CompileUnit, tc *toolchain.Toolchain, diags *diagnostic.Collector) Command {
	argv := []string{tc.Paths.Linker, "/nologo", "/OUT:" + output}
	argv = append(argv, objects...)
	argv = append(argv, f.linkFlags(u)...)
	return Command{Argv: argv}
}

func (f msvcFamily) LinkShared(output string, objects []string, u CompileUnit, tc *toolchain.Toolchain, diags *diagnostic.Collector) Command {
	argv := []string{tc.Paths.Linker, "/nologo", "/DLL", "/OUT:" + output}
	argv = append(argv, objects...)
	argv = append(argv, f.linkFlags(u)...)
	return Command{Argv: argv}
}

func (msvcFamily) LinkStatic(output string, objects []string, tc *toolchain.Toolchain) Command {
	argv := []string{tc.Paths.Archiver, "/nologo", "/OUT:" + output}
	argv = append(argv, objects...)
	return Command{Argv: argv}
}

func (msvcFamily) DumpAssembly(obj, asm string, tc *toolchain.Toolchain) Command {
	return Command{Argv: []string{tc.Paths.Disassembler, "/nologo", "/FAsc", obj}}
}

func (msvcFamily) linkFlags(u CompileUnit) []string {
	var argv []string
	for _, dir := range dedupFirstOccurrence(u.Target.LibDirs) {
		argv = append(argv, "/LIBPATH:"+dir)
	}
	// MSVC has no --start-group equivalent: circular static-link groups are
	// satisfied by repeating the group on the link line instead.
	group := dedupFirstOccurrence(u.Target.StaticLinks)
	links := append(append([]string{}, group...), group...)
	for _, s := range links {
		argv = append(argv, s+".lib")
	}
	for _, l := range dedupFirstOccurrence(u.Target.Links) {
		argv = append(argv, l+".lib")
	}
	if opts, ok := u.Target.LinkerOptions["msvc"]; ok {
		argv = append(argv, opts...)
	}
	return argv
}

func (msvcFamily) optimizationFlags(cfg workspace.BuildConfiguration, diags *diagnostic.Collector, targetName string) []string {
	level := resolveOptimization(cfg, diags, targetName)
	var flags []string
	switch level {
	case workspace.Opt0, workspace.OptDebug:
		flags = append(flags, "/Od")
	case workspace.Opt1, workspace.Opt2:
		flags = append(flags, "/O2")
	case workspace.Opt3, workspace.OptFast:
		flags = append(flags, "/Ox")
	case workspace.OptSize:
		flags = append(flags, "/O1")
	}
	if cfg.DebugSymbols {
		flags = append(flags, "/Zi")
	}
	if cfg.InterproceduralOptimization {
		flags = append(flags, "/GL")
	}
	return flags
}

func (msvcFamily) toggleFlags(t workspace.SourceTarget) []string {
	var flags []string
	if t.RTTI {
		flags = append(flags, "/GR")
	} else {
		flags = append(flags, "/GR-")
	}
	if t.Exceptions {
		flags = append(flags, "/EHsc")
	}
	return flags
}
