// Package toolchain resolves a named toolchain preference into a fully
// populated Toolchain: compiler family, tool paths, version/triple, and the
// set of flags the compiler actually supports.
package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"github.com/chalet-org/chalet-go/internal/clog"
	"github.com/chalet-org/chalet-go/internal/envsnap"
	"github.com/chalet-org/chalet-go/internal/fsutil"
)

// Family identifies a compiler family.
type Family string

const (
	GNU         Family = "gnu"
	LLVM        Family = "llvm"
	AppleLLVM   Family = "apple-llvm"
	MSVC        Family = "msvc"
	IntelClassic Family = "intel-classic"
	IntelLLVM   Family = "intel-llvm"
	MingwGNU    Family = "mingw-gnu"
	MingwLLVM   Family = "mingw-llvm"
	Emscripten  Family = "emscripten"
)

// Strategy is the build-execution back-end.
type Strategy string

const (
	StrategyNative   Strategy = "native"
	StrategyNinja    Strategy = "ninja"
	StrategyMakefile Strategy = "makefile"
	StrategyMSBuild  Strategy = "msbuild"
	StrategyXcode    Strategy = "xcodebuild"
)

// BuildPathStyle controls the output directory naming scheme.
type BuildPathStyle string

const (
	PathStyleTargetTriple   BuildPathStyle = "target-triple"
	PathStyleToolchainName  BuildPathStyle = "toolchain-name"
	PathStyleArchitecture   BuildPathStyle = "architecture"
	PathStyleConfiguration  BuildPathStyle = "configuration"
)

// Paths holds the resolved location of every tool slot.
type Paths struct {
	CompilerCPP  string
	CompilerC    string
	CompilerRC   string
	Archiver     string
	Linker       string
	Profiler     string
	Disassembler string
	CMake        string
	Make         string
	Ninja        string
}

// Toolchain is a fully detected and probed compiler toolchain.
type Toolchain struct {
	Name              string
	Version           string
	Strategy          Strategy
	BuildPathStyle    BuildPathStyle
	Paths             Paths
	Family            Family
	HostArch          string
	TargetArch        string
	SupportedFlags    map[string]bool
	SystemSearchPaths []string
}

// CompilerNotFoundError is returned when a required tool could not be
// located in the toolchain tree or on PATH.
type CompilerNotFoundError struct {
	Slot       string
	Candidates []string
}

func (e *CompilerNotFoundError) Error() string {
	return fmt.Sprintf("toolchain: could not locate %s (tried: %s)", e.Slot, strings.Join(e.Candidates, ", "))
}

// ProbeFailedError wraps a failed version/macro probe.
type ProbeFailedError struct {
	Tool string
	Err  error
}

func (e *ProbeFailedError) Error() string { return fmt.Sprintf("toolchain: probing %s: %v", e.Tool, e.Err) }
func (e *ProbeFailedError) Unwrap() error { return e.Err }

// UnsupportedArchitectureError is returned when a family cannot target the
// requested architecture.
type UnsupportedArchitectureError struct {
	Family Family
	Arch   string
}

func (e *UnsupportedArchitectureError) Error() string {
	return fmt.Sprintf("toolchain: family %s does not support architecture %q", e.Family, e.Arch)
}

// candidateTable lists, per family, the PATH search order for the C++ and C
// compiler slots. Archiver/linker/disassembler candidates follow the same
// family convention and come from archiverCandidates, linkerCandidates and
// disassemblerCandidates in resolvePaths.
var candidateTable = map[Family][2][]string{
	GNU:        {{"g++", "c++"}, {"gcc", "cc"}},
	LLVM:       {{"clang++"}, {"clang"}},
	AppleLLVM:  {{"clang++"}, {"clang"}},
	IntelClassic: {{"icpc"}, {"icc"}},
	IntelLLVM:  {{"icpx"}, {"icx"}},
	Emscripten: {{"em++"}, {"emcc"}},
	MingwGNU:   {{"x86_64-w64-mingw32-g++", "i686-w64-mingw32-g++"}, {"x86_64-w64-mingw32-gcc", "i686-w64-mingw32-gcc"}},
	MingwLLVM:  {{"clang++"}, {"clang"}},
}

// Detector resolves toolchain preferences into populated Toolchains.
type Detector struct {
	Runner *fsutil.Runner
	Envs   *envsnap.Store
	// LookPath is overridden in tests.
	LookPath func(string) (string, error)
}

// NewDetector returns a Detector using the real PATH and subprocess runner.
func NewDetector(envs *envsnap.Store) *Detector {
	return &Detector{Runner: fsutil.NewRunner(), Envs: envs, LookPath: exec.LookPath}
}

// InferFamily matches a user preference string against the known presets.
// Unknown names are the caller's responsibility to resolve against a
// settings-file custom-toolchain table; InferFamily returns ("", false) for
// them.
func InferFamily(preference string) (Family, bool) {
	switch {
	case preference == "llvm":
		return LLVM, true
	case preference == "apple-llvm":
		return AppleLLVM, true
	case preference == "gcc":
		return GNU, true
	case preference == "mingw":
		return MingwGNU, true
	case preference == "emscripten":
		return Emscripten, true
	case preference == "intel-classic":
		return IntelClassic, true
	case preference == "intel-llvm":
		return IntelLLVM, true
	case strings.HasPrefix(preference, "vs-") || strings.HasPrefix(preference, "llvm-vs-"):
		if strings.HasPrefix(preference, "llvm-vs-") {
			return LLVM, true
		}
		return MSVC, true
	case strings.HasPrefix(preference, "intel-llvm-vs-"):
		return IntelLLVM, true
	default:
		return "", false
	}
}

// Detect resolves preference into a fully populated Toolchain, following
// the five-step protocol: family inference, path resolution, version/triple
// probe, supported-flag enumeration, architecture validation.
func (d *Detector) Detect(ctx context.Context, preference, hostArch, targetArch string, explicit Paths) (*Toolchain, error) {
	log := clog.FromContext(ctx)

	family, ok := InferFamily(preference)
	if !ok {
		family = GNU
		log.Warnf("toolchain: unrecognized preference %q, falling back to family %s", preference, family)
	}

	hostArch, targetArch = normalizeArch(hostArch), normalizeArch(targetArch)
	if err := validateArch(family, targetArch); err != nil {
		return nil, err
	}

	tc := &Toolchain{
		Name:           preference,
		Family:         family,
		Strategy:       defaultStrategy(family),
		BuildPathStyle: PathStyleTargetTriple,
		HostArch:       hostArch,
		TargetArch:     targetArch,
		SupportedFlags: map[string]bool{},
	}

	if family == MSVC {
		delta, err := d.Envs.Apply(ctx, envsnap.Spec{Vendor: envsnap.MsvcVcvars, HostArch: hostArch, TargetArch: targetArch})
		if err != nil {
			return nil, err
		}
		// Apply the vendor delta to this process's environment so the
		// remaining resolution steps see the activated PATH.
		for _, kv := range envsnap.ApplyToEnviron(os.Environ(), delta) {
			if i := strings.IndexByte(kv, '='); i > 0 {
				os.Setenv(kv[:i], kv[i+1:])
			}
		}
	}

	if err := d.resolvePaths(tc, explicit); err != nil {
		return nil, err
	}

	if err := d.probe(ctx, tc); err != nil {
		return nil, err
	}

	if err := d.enumerateSupportedFlags(ctx, tc); err != nil {
		log.Warnf("toolchain: supported-flag enumeration failed, continuing without filtering: %v", err)
	}

	return tc, nil
}

func defaultStrategy(f Family) Strategy {
	if f == MSVC {
		return StrategyNinja
	}
	return StrategyNinja
}

func (d *Detector) resolvePaths(tc *Toolchain, explicit Paths) error {
	cands, ok := candidateTable[tc.Family]
	if !ok && tc.Family != MSVC {
		cands = [2][]string{{"c++"}, {"cc"}}
	}

	resolve := func(explicitPath string, slot string, candidates []string) (string, error) {
		if explicitPath != "" {
			return explicitPath, nil
		}
		if tc.Family == MSVC {
			switch slot {
			case "cpp", "c":
				candidates = []string{"cl.exe"}
			case "linker":
				candidates = []string{"link.exe"}
			case "archiver":
				candidates = []string{"lib.exe"}
			case "rc":
				candidates = []string{"rc.exe"}
			}
		}
		for _, c := range candidates {
			if p, err := d.LookPath(c); err == nil {
				return p, nil
			}
		}
		return "", &CompilerNotFoundError{Slot: slot, Candidates: candidates}
	}

	var err error
	if tc.Paths.CompilerCPP, err = resolve(explicit.CompilerCPP, "cpp", cands[0]); err != nil {
		return err
	}
	if tc.Paths.CompilerC, err = resolve(explicit.CompilerC, "c", cands[1]); err != nil {
		return err
	}
	if tc.Paths.Archiver, err = resolve(explicit.Archiver, "archiver", archiverCandidates(tc.Family)); err != nil {
		return err
	}
	if tc.Paths.Linker, err = resolve(explicit.Linker, "linker", linkerCandidates(tc.Family)); err != nil {
		return err
	}
	// Resource compiler, profiler and disassembler are optional: failures
	// here are not fatal, they simply leave the slot empty.
	tc.Paths.CompilerRC, _ = resolve(explicit.CompilerRC, "rc", []string{"rc"})
	tc.Paths.Disassembler, _ = resolve(explicit.Disassembler, "disassembler", disassemblerCandidates(tc.Family))
	tc.Paths.CMake, _ = resolve(explicit.CMake, "cmake", []string{"cmake"})
	tc.Paths.Make, _ = resolve(explicit.Make, "make", []string{"make", "mingw32-make"})
	tc.Paths.Ninja, _ = resolve(explicit.Ninja, "ninja", []string{"ninja"})
	return nil
}

func archiverCandidates(f Family) []string {
	switch f {
	case LLVM, AppleLLVM, MingwLLVM:
		return []string{"llvm-ar", "ar"}
	default:
		return []string{"ar"}
	}
}

func linkerCandidates(f Family) []string {
	switch f {
	case LLVM, AppleLLVM, MingwLLVM:
		return []string{"lld", "ld"}
	default:
		return []string{"ld"}
	}
}

func disassemblerCandidates(f Family) []string {
	switch f {
	case LLVM, AppleLLVM, MingwLLVM:
		return []string{"llvm-objdump"}
	default:
		return []string{"objdump"}
	}
}

var macroFamily = []struct {
	macro  string
	family Family
}{
	{"__EMSCRIPTEN__", Emscripten},
	{"__INTEL_LLVM_COMPILER", IntelLLVM},
	{"__INTEL_COMPILER", IntelClassic},
	{"__MINGW64__", MingwGNU},
	{"__APPLE_CC__", AppleLLVM},
	{"__clang__", LLVM},
	{"_MSC_FULL_VER", MSVC},
}

var versionRegexes = map[Family]*regexp.Regexp{
	GNU:       regexp.MustCompile(`(\d+\.\d+\.\d+)`),
	LLVM:      regexp.MustCompile(`clang version (\d+\.\d+\.\d+)`),
	AppleLLVM: regexp.MustCompile(`version (\d+\.\d+\.\d+)`),
}

// probe runs the compiler with --version and -E -dM - to confirm the family
// from its predefined macros, and extracts the version string and target
// triple.
func (d *Detector) probe(ctx context.Context, tc *Toolchain) error {
	verRes, err := d.Runner.Run(ctx, "", nil, tc.Paths.CompilerCPP, "--version")
	if err != nil {
		if tc.Family != MSVC {
			return &ProbeFailedError{Tool: tc.Paths.CompilerCPP, Err: err}
		}
	}

	macroRes, err := d.Runner.Run(ctx, "", nil, tc.Paths.CompilerCPP, "-E", "-dM", "-x", "c++", "-")
	if err == nil {
		for _, mf := range macroFamily {
			if strings.Contains(macroRes.Stdout, mf.macro) {
				tc.Family = mf.family
				break
			}
		}
	}

	if re, ok := versionRegexes[tc.Family]; ok {
		if m := re.FindStringSubmatch(verRes.Stdout); len(m) > 1 {
			tc.Version = m[1]
		}
	}

	if tc.Family == GNU || tc.Family == LLVM || tc.Family == MingwGNU || tc.Family == MingwLLVM {
		triRes, err := d.Runner.Run(ctx, "", nil, tc.Paths.CompilerCPP, "-dumpmachine")
		if err == nil {
			tc.SystemSearchPaths = append(tc.SystemSearchPaths, strings.TrimSpace(triRes.Stdout))
		}
	} else if tc.Family == MSVC {
		tc.SystemSearchPaths = append(tc.SystemSearchPaths, fmt.Sprintf("%s-pc-windows-msvc%s", tc.TargetArch, tc.Version))
	}

	return nil
}

// enumerateSupportedFlags populates SupportedFlags by parsing --help output
// for GNU/LLVM families, or a canned list for MSVC.
func (d *Detector) enumerateSupportedFlags(ctx context.Context, tc *Toolchain) error {
	switch tc.Family {
	case MSVC:
		for _, f := range cannedMSVCFlags {
			tc.SupportedFlags[f] = true
		}
		return nil
	default:
		res, err := d.Runner.Run(ctx, "", nil, tc.Paths.CompilerCPP, "--help")
		if err != nil {
			return err
		}
		flagRe := regexp.MustCompile(`(-[a-zA-Z][\w-]*)`)
		for _, m := range flagRe.FindAllStringSubmatch(res.Stdout, -1) {
			tc.SupportedFlags[m[1]] = true
		}
		return nil
	}
}

var cannedMSVCFlags = []string{"/O2", "/Od", "/Zi", "/EHsc", "/GR", "/MT", "/MD", "/std:c++17", "/std:c++20"}

var archAliases = map[string]string{
	"x64": "x86_64", "x86_64": "x86_64",
	"x86": "i686", "i686": "i686",
	"arm64": "aarch64", "aarch64": "aarch64",
}

func normalizeArch(a string) string {
	if a == "" {
		a = runtime.GOARCH
		if a == "amd64" {
			a = "x86_64"
		} else if a == "arm64" {
			a = "aarch64"
		}
	}
	if canon, ok := archAliases[a]; ok {
		return canon
	}
	return a
}

func validateArch(f Family, arch string) error {
	unsupported := map[Family]map[string]bool{
		Emscripten: {"x86_64": true, "i686": true, "aarch64": true},
	}
	if set, ok := unsupported[f]; ok && set[arch] {
		return &UnsupportedArchitectureError{Family: f, Arch: arch}
	}
	return nil
}
