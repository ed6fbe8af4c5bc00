// Package driver implements the top-level route dispatch: it sequences the
// filesystem/process primitives, loader, environment snapshot, toolchain
// detector, configuration resolver, source cache, command generator and
// scheduler into the Configure/Build/Rebuild/Clean/Run/BuildRun/Bundle/
// Export routes.
package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chalet-org/chalet-go/internal/clog"
	"github.com/chalet-org/chalet-go/internal/compiler"
	"github.com/chalet-org/chalet-go/internal/configfile"
	"github.com/chalet-org/chalet-go/internal/diagnostic"
	"github.com/chalet-org/chalet-go/internal/envsnap"
	"github.com/chalet-org/chalet-go/internal/fsutil"
	"github.com/chalet-org/chalet-go/internal/graph"
	"github.com/chalet-org/chalet-go/internal/schedule"
	"github.com/chalet-org/chalet-go/internal/sourcecache"
	"github.com/chalet-org/chalet-go/internal/toolchain"
	"github.com/chalet-org/chalet-go/internal/workspace"
)

// Route is one of the dispatchable top-level commands.
type Route string

const (
	RouteBuildRun  Route = "build-run"
	RouteRun       Route = "run"
	RouteBuild     Route = "build"
	RouteRebuild   Route = "rebuild"
	RouteClean     Route = "clean"
	RouteBundle    Route = "bundle"
	RouteConfigure Route = "configure"
	RouteExport    Route = "export"
)

// coreRoutes are the routes that traverse C→D→E→F→G→H; every other route
// (Init, SettingsGet/Set/..., Validate, Query, Convert, TerminalTest) is an
// external collaborator dispatched directly by internal/cli without going
// through Driver.
var coreRoutes = map[Route]bool{
	RouteConfigure: true, RouteBuild: true, RouteRebuild: true,
	RouteClean: true, RouteRun: true, RouteBuildRun: true,
	RouteBundle: true, RouteExport: true,
}

// ExitCode maps a Driver outcome to the process exit code contract.
type ExitCode int

const (
	ExitSuccess         ExitCode = 0
	ExitBuildFailure    ExitCode = 1
	ExitConfigError     ExitCode = 2
	ExitInvocationError ExitCode = 3
	ExitCancelled       ExitCode = 130
)

// Options configures one driver invocation, corresponding to the CLI's
// global flags (§6).
type Options struct {
	InputFile       string
	SettingsFile    string
	RootDir         string
	OutputDir       string
	ExternalDir     string
	DistributionDir string
	Configuration   string
	ToolchainName   string
	Arch            string
	Strategy        string
	BuildPathStyle  string
	MaxJobs         int
	EnvFile         string
	ShowCommands    bool
	DumpAssembly    bool
	KeepGoing       bool
	RunArgs         []string
	Debug           bool
}

// Driver sequences a single route.
type Driver struct {
	opts  Options
	diags *diagnostic.Collector
}

// New returns a Driver for opts.
func New(opts Options) *Driver {
	if opts.RootDir == "" {
		opts.RootDir = "."
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "build"
	}
	if opts.ExternalDir == "" {
		opts.ExternalDir = filepath.Join(opts.RootDir, "chalet_external")
	}
	if opts.Configuration == "" {
		opts.Configuration = "Release"
	}
	if opts.MaxJobs == 0 {
		opts.MaxJobs = runtime.NumCPU()
	}
	return &Driver{opts: opts, diags: diagnostic.New()}
}

// Diagnostics returns the collector accumulated by the last Run call.
func (d *Driver) Diagnostics() *diagnostic.Collector { return d.diags }

// Run dispatches route and returns the exit code to use.
func (d *Driver) Run(ctx context.Context, route Route) ExitCode {
	log := clog.FromContext(ctx)

	if !coreRoutes[route] && route != RouteRebuild {
		log.Errorf("route %s is not a core route", route)
		return ExitInvocationError
	}

	switch route {
	case RouteRebuild:
		if code := d.Run(ctx, RouteClean); code != ExitSuccess {
			return code
		}
		return d.Run(ctx, RouteBuild)
	case RouteBuildRun:
		if code := d.Run(ctx, RouteBuild); code != ExitSuccess {
			return code
		}
		return d.runRunTarget(ctx)
	case RouteRun:
		return d.runRunTarget(ctx)
	case RouteClean:
		return d.clean(ctx)
	case RouteConfigure:
		if _, _, _, err := d.configure(ctx); err != nil {
			return d.reportConfigError(ctx, err)
		}
		return ExitSuccess
	case RouteBuild:
		return d.build(ctx)
	case RouteBundle:
		return d.build(ctx) // builds only; internal/bundle is not invoked
	case RouteExport:
		return ExitSuccess // no configure and no export; internal/ideexport is not invoked
	default:
		return ExitInvocationError
	}
}

func (d *Driver) reportConfigError(ctx context.Context, err error) ExitCode {
	log := clog.FromContext(ctx)
	log.Errorf("configuration error: %v", err)
	d.diags.Error(d.opts.InputFile, "configure", "configuration is invalid", err)
	return ExitConfigError
}

// configure runs C (env snapshot store) → D (toolchain) → E (workspace).
func (d *Driver) configure(ctx context.Context) (*workspace.Workspace, *toolchain.Toolchain, compiler.CompilerFamily, error) {
	raw, err := configfile.Load(filepath.Join(d.opts.RootDir, d.opts.InputFile))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading build description: %w", err)
	}

	ws, err := workspace.Resolve(raw, workspace.ResolveOptions{
		Platform:      runtime.GOOS,
		Configuration: d.opts.Configuration,
		ExternalDir:   d.opts.ExternalDir,
		BuildDir:      d.buildDir("", ""),
		OutputDir:     d.opts.OutputDir,
		Architecture:  d.opts.Arch,
		ToolchainName: d.opts.ToolchainName,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	envs := envsnap.NewStore(filepath.Join(d.opts.OutputDir, "intermediate"))
	det := toolchain.NewDetector(envs)
	tc, err := det.Detect(ctx, d.opts.ToolchainName, "", d.opts.Arch, toolchain.Paths{})
	if err != nil {
		return nil, nil, nil, err
	}

	mat := workspace.NewMaterializer(d.opts.ExternalDir, d.opts.MaxJobs)
	if err := mat.MaterializeAll(ctx, ws.Externals); err != nil {
		return nil, nil, nil, fmt.Errorf("materializing external dependencies: %w", err)
	}

	return ws, tc, compiler.For(tc.Family), nil
}

func (d *Driver) buildDir(toolchainName, arch string) string {
	return filepath.Join(d.opts.OutputDir, fmt.Sprintf("%s_%s_%s", toolchainName, arch, d.opts.Configuration))
}

// build runs the full C→D→E→F→G→H sequence for the Build route.
func (d *Driver) build(ctx context.Context) ExitCode {
	log := clog.FromContext(ctx)

	ws, tc, family, err := d.configure(ctx)
	if err != nil {
		return d.reportConfigError(ctx, err)
	}

	outDir := d.buildDir(tc.Name, tc.TargetArch)
	cachePath := filepath.Join(outDir, "cache.json")
	cache, err := sourcecache.Load(cachePath)
	if err != nil {
		log.Warnf("source cache: %v, continuing with an empty cache", err)
	}

	g, builds, err := d.buildGraph(ws, tc, family, cache, outDir)
	if err != nil {
		return d.reportConfigError(ctx, err)
	}

	runner := fsutil.NewRunner()
	sched := schedule.New(g, builds, schedule.Config{
		MaxJobs:      d.opts.MaxJobs,
		KeepGoing:    d.opts.KeepGoing,
		ShowCommands: d.opts.ShowCommands,
	}, func(ctx context.Context, nb schedule.NodeBuild) (fsutil.Result, error) {
		if len(nb.Argv) == 0 {
			return fsutil.Result{}, nil
		}
		return runner.Run(ctx, nb.Dir, nb.Env, nb.Argv[0], nb.Argv[1:]...)
	}, d.diags)

	res, err := sched.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			log.Warnf("Build cancelled.")
			return ExitCancelled
		}
		return ExitBuildFailure
	}

	if res.Worst == schedule.StatusFailed {
		return ExitBuildFailure
	}

	if err := cache.Flush(); err != nil {
		log.Warnf("failed to flush source cache: %v", err)
	}

	_, warnings := d.diags.Counts()
	log.Infof("build succeeded (%d warnings)", warnings)
	return ExitSuccess
}

// compileNodeName, pchNodeName and resourceNodeName namespace a target's
// per-file micro-DAG nodes under the target's own name so they can never
// collide with another target's link-node name (the name other targets'
// staticLinks/projectDependencies edges reference).
func compileNodeName(target, src string) string { return target + "~compile~" + src }
func pchNodeName(target string) string          { return target + "~pch~" }
func resourceNodeName(target string) string      { return target + "~rc~" }

// buildGraph constructs the full micro-DAG: one link node per target,
// fed by that target's own resource/PCH/compile nodes (spec.md §4.H's
// resource→PCH→compile→link ordering), plus the target-to-target edges
// from staticLinks/projectDependencies. Each leaf node's command is
// omitted when the source cache reports it clean, so the scheduler treats
// it as an instant no-op without re-running it.
func (d *Driver) buildGraph(ws *workspace.Workspace, tc *toolchain.Toolchain, family compiler.CompilerFamily, cache *sourcecache.Cache, outDir string) (*graph.Graph, map[string]schedule.NodeBuild, error) {
	g := graph.New()
	builds := map[string]schedule.NodeBuild{}

	for _, t := range ws.Targets {
		unit := compiler.CompileUnit{Target: t, Config: d.configurationFor(ws), Language: t.Language}

		var linkDeps []string
		var objects []string

		if t.PrecompiledHeader != "" {
			name := pchNodeName(t.Name)
			pchSrc := filepath.Join(d.opts.RootDir, t.PrecompiledHeader)
			if err := g.AddNode(name, nil); err != nil {
				return nil, nil, err
			}
			if cache == nil || cache.DirtyWithDep(pchSrc, "") {
				pchUnit := unit
				pchUnit.Source = pchSrc
				pchUnit.Object = filepath.Join(outDir, "obj", family.PCHObject(t.PrecompiledHeader))
				cmd := family.PCHCompile(pchUnit, tc, d.diags)
				builds[name] = schedule.NodeBuild{Name: name, Argv: cmd.Argv, Dir: d.opts.RootDir}
				if cache != nil {
					cache.Touch(pchSrc, ws.Version, tc.TargetArch, "")
				}
			}
			linkDeps = append(linkDeps, name)
		}

		if t.WindowsResource != "" {
			name := resourceNodeName(t.Name)
			rcSrc := filepath.Join(d.opts.RootDir, t.WindowsResource)
			obj := filepath.Join(outDir, "obj", family.ObjectFile(t.WindowsResource))
			if err := g.AddNode(name, nil); err != nil {
				return nil, nil, err
			}
			if cache == nil || cache.DirtyWithDep(rcSrc, "") {
				cmd := family.ResourceCompile(rcSrc, obj, tc)
				builds[name] = schedule.NodeBuild{Name: name, Argv: cmd.Argv, Dir: d.opts.RootDir}
				if cache != nil {
					cache.Touch(rcSrc, ws.Version, tc.TargetArch, "")
				}
			}
			linkDeps = append(linkDeps, name)
			objects = append(objects, obj)
		}

		pchDep := pchNodeName(t.Name)
		hasPCH := t.PrecompiledHeader != ""
		files, err := fsutil.GlobAll(d.opts.RootDir, t.Files)
		if err != nil {
			return nil, nil, fmt.Errorf("target %q: expanding files: %w", t.Name, err)
		}
		for _, src := range files {
			name := compileNodeName(t.Name, src)
			obj := filepath.Join(outDir, "obj", family.ObjectFile(src))

			var deps []string
			if hasPCH {
				deps = append(deps, pchDep)
			}
			if err := g.AddNode(name, deps); err != nil {
				return nil, nil, err
			}

			srcPath := filepath.Join(d.opts.RootDir, src)
			if cache == nil || cache.DirtyWithDep(srcPath, "") {
				unit.Source = srcPath
				unit.Object = obj
				cmd := family.Compile(unit, tc, d.diags)
				builds[name] = schedule.NodeBuild{Name: name, Argv: cmd.Argv, Dir: d.opts.RootDir}
				if cache != nil {
					cache.Touch(srcPath, ws.Version, tc.TargetArch, "")
				}
			}
			linkDeps = append(linkDeps, name)
			objects = append(objects, obj)
		}

		linkDeps = append(linkDeps, t.StaticLinks...)
		linkDeps = append(linkDeps, t.ProjectDependencies...)
		if err := g.AddNode(t.Name, linkDeps); err != nil {
			return nil, nil, err
		}

		output := filepath.Join(outDir, t.Name)
		var linkCmd compiler.Command
		switch t.Kind {
		case workspace.KindStaticLibrary:
			linkCmd = family.LinkStatic(output, objects, tc)
		case workspace.KindSharedLibrary:
			linkCmd = family.LinkShared(output, objects, unit, tc, d.diags)
		case workspace.KindExecutable:
			linkCmd = family.LinkExecutable(output, objects, unit, tc, d.diags)
		default:
			continue
		}
		builds[t.Name] = schedule.NodeBuild{Name: t.Name, Argv: linkCmd.Argv, Dir: d.opts.RootDir}
	}

	if _, err := g.TopologicalSort(); err != nil {
		return nil, nil, err
	}
	return g, builds, nil
}

func (d *Driver) configurationFor(ws *workspace.Workspace) workspace.BuildConfiguration {
	for _, c := range ws.Configurations {
		if c.Name == d.opts.Configuration {
			return c
		}
	}
	return workspace.BuildConfiguration{Name: d.opts.Configuration}
}

func (d *Driver) clean(ctx context.Context) ExitCode {
	log := clog.FromContext(ctx)
	if err := os.RemoveAll(d.opts.OutputDir); err != nil {
		log.Errorf("clean: %v", err)
		return ExitBuildFailure
	}
	return ExitSuccess
}

func (d *Driver) runRunTarget(ctx context.Context) ExitCode {
	log := clog.FromContext(ctx)
	ws, tc, _, err := d.configure(ctx)
	if err != nil {
		return d.reportConfigError(ctx, err)
	}
	var runTarget *workspace.SourceTarget
	for i := range ws.Targets {
		if ws.Targets[i].Kind == workspace.KindExecutable {
			runTarget = &ws.Targets[i]
			break
		}
	}
	if runTarget == nil {
		log.Errorf("run: no executable target to run")
		return ExitInvocationError
	}

	outDir := d.buildDir(tc.Name, tc.TargetArch)
	runner := fsutil.NewRunner()
	res, err := runner.Run(ctx, d.opts.RootDir, nil, filepath.Join(outDir, runTarget.Name), d.opts.RunArgs...)
	if err != nil {
		fsutil.TeeStderr(os.Stderr, res)
		return ExitBuildFailure
	}
	fmt.Fprint(os.Stdout, res.Stdout)
	return ExitSuccess
}
