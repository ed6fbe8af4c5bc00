// Package workspace implements the configuration resolver: it takes the
// validated JSON/YAML build description and produces an immutable Workspace
// by expanding condition tokens, applying abstract-target inheritance,
// substituting variables, and materializing external dependencies.
package workspace

// OptimizationLevel is one of the recognized optimization settings.
type OptimizationLevel string

const (
	Opt0              OptimizationLevel = "0"
	Opt1              OptimizationLevel = "1"
	Opt2              OptimizationLevel = "2"
	Opt3              OptimizationLevel = "3"
	OptDebug          OptimizationLevel = "debug"
	OptSize           OptimizationLevel = "size"
	OptFast           OptimizationLevel = "fast"
	OptCompilerDefault OptimizationLevel = "compiler-default"
)

// Sanitizer is one of the sanitizer kinds a BuildConfiguration may enable.
type Sanitizer string

const (
	SanitizeAddress   Sanitizer = "address"
	SanitizeThread    Sanitizer = "thread"
	SanitizeMemory    Sanitizer = "memory"
	SanitizeLeak      Sanitizer = "leak"
	SanitizeUndefined Sanitizer = "undefined"
	SanitizeHWAddress Sanitizer = "hwaddress"
)

// BuildConfiguration is a named preset of optimization/debug/sanitizer
// settings.
type BuildConfiguration struct {
	Name                       string
	DebugSymbols               bool
	EnableProfiling            bool
	InterproceduralOptimization bool
	OptimizationLevel          OptimizationLevel
	Sanitizers                 []Sanitizer
}

// DefaultConfigurations returns the five presets every workspace carries
// unless the build file overrides them.
func DefaultConfigurations() []BuildConfiguration {
	return []BuildConfiguration{
		{Name: "Release", OptimizationLevel: Opt2},
		{Name: "Debug", DebugSymbols: true, OptimizationLevel: OptDebug},
		{Name: "RelWithDebInfo", DebugSymbols: true, OptimizationLevel: Opt2},
		{Name: "MinSizeRel", OptimizationLevel: OptSize},
		{Name: "Profile", EnableProfiling: true, OptimizationLevel: Opt2},
	}
}

// TargetKind discriminates a SourceTarget.
type TargetKind string

const (
	KindExecutable    TargetKind = "executable"
	KindStaticLibrary TargetKind = "staticLibrary"
	KindSharedLibrary TargetKind = "sharedLibrary"
	KindScript        TargetKind = "script"
	KindProcess       TargetKind = "process"
	KindCMakeProject  TargetKind = "cmakeProject"
	KindMesonProject  TargetKind = "mesonProject"
	KindChaletProject TargetKind = "chaletProject"
	KindValidation    TargetKind = "validation"
)

// Language is the source language of a compiled target.
type Language string

const (
	LangC             Language = "C"
	LangCPP           Language = "C++"
	LangObjC          Language = "Objective-C"
	LangObjCPP        Language = "Objective-C++"
)

// WarningPreset names a compiler warning bundle.
type WarningPreset string

const (
	WarnNone           WarningPreset = "none"
	WarnMinimal        WarningPreset = "minimal"
	WarnExtra          WarningPreset = "extra"
	WarnPedantic       WarningPreset = "pedantic"
	WarnStrict         WarningPreset = "strict"
	WarnStrictPedantic WarningPreset = "strictPedantic"
	WarnVeryStrict     WarningPreset = "veryStrict"
	WarnCustom         WarningPreset = "custom"
)

// SourceTarget is one compilation/linking unit, or a non-compiled side
// effect target.
type SourceTarget struct {
	Name     string
	Kind     TargetKind
	Language Language
	If       string

	Files        []string
	FileExcludes []string

	IncludeDirs []string
	LibDirs     []string
	Links       []string
	StaticLinks []string
	Defines     []string

	CompileOptions map[string][]string // per compiler-family
	LinkerOptions  map[string][]string

	Warnings      WarningPreset
	WarningExtras []string

	CppStandard string
	CStandard   string

	PrecompiledHeader string

	// Windows
	WindowsResource string
	WindowsManifest string
	WindowsIcon     string

	// Apple
	Frameworks    []string
	FrameworkDirs []string

	Threads              bool
	RTTI                 bool
	Exceptions           bool
	FastMath             bool
	PositionIndependent  bool
	UnityBuild           bool

	ProjectDependencies []string
	Extends             string
}

// ExternalKind discriminates an ExternalDependency.
type ExternalKind string

const (
	ExternalGit     ExternalKind = "git"
	ExternalLocal   ExternalKind = "local"
	ExternalArchive ExternalKind = "archive"
	ExternalScript  ExternalKind = "script"
)

// ExternalDependency describes one materializable dependency.
type ExternalDependency struct {
	Name          string
	Kind          ExternalKind
	Destination   string // subdirectory under the external dir

	// git
	Repository string
	Branch     string
	Tag        string
	Commit     string
	Submodules bool

	// archive
	URL          string
	Hash         string
	Subdirectory string

	// local
	Path string

	// script
	Script string

	TimeoutSeconds int
}

// Workspace is the top-level, immutable build description.
type Workspace struct {
	Name    string
	Version string

	DefaultConfigurations []string
	Configurations        []BuildConfiguration
	AllowedArchitectures  []string

	Targets             []SourceTarget
	DistributionEntries []DistributionEntry
	Externals           []ExternalDependency
	Abstracts           map[string]SourceTarget
	SearchPaths         []string
	Variables           map[string]string
}

// DistributionEntry is one entry under the top-level "distribution" key.
type DistributionEntry struct {
	Name    string
	Kind    string // "archive" | "bundle" | ...
	Include []string
}
