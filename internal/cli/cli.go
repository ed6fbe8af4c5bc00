// Package cli wires the cobra command tree: one subcommand per top-level
// route, global flags shared by every build-affecting command, and fatih/color
// output for the terminal-facing summary line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chalet-org/chalet-go/internal/clog"
	"github.com/chalet-org/chalet-go/internal/driver"
)

// GlobalFlags holds the options shared by every build-affecting subcommand
// (§6). Each subcommand registers the same flag set via addGlobalFlags so
// that `chalet build -c Debug` and `chalet run -c Debug` behave identically.
type GlobalFlags struct {
	InputFile       string
	SettingsFile    string
	RootDir         string
	OutputDir       string
	ExternalDir     string
	DistributionDir string
	Configuration   string
	Toolchain       string
	Arch            string
	Strategy        string
	BuildPathStyle  string
	MaxJobs         int
	EnvFile         string
	ShowCommands    bool
	DumpAssembly    bool
	KeepGoing       bool
	Quiet           bool
	Verbose         bool
	Debug           bool
}

// addGlobalFlags registers the shared flag set on fs, writing into flags.
func addGlobalFlags(fs *pflag.FlagSet, flags *GlobalFlags) {
	fs.StringVarP(&flags.InputFile, "input-file", "i", "chalet.json", "path to the build description")
	fs.StringVarP(&flags.SettingsFile, "settings-file", "s", "", "path to a project-local settings file")
	fs.StringVarP(&flags.RootDir, "root-dir", "", ".", "project root directory")
	fs.StringVarP(&flags.OutputDir, "output-dir", "o", "build", "directory for build outputs")
	fs.StringVar(&flags.ExternalDir, "external-dir", "", "directory for fetched external dependencies")
	fs.StringVar(&flags.DistributionDir, "distribution-dir", "dist", "directory for bundled distribution archives (no route reads it)")
	fs.StringVarP(&flags.Configuration, "configuration", "c", "Release", "build configuration to use")
	fs.StringVarP(&flags.Toolchain, "toolchain", "t", "", "toolchain preference (llvm, gcc, msvc, ...)")
	fs.StringVarP(&flags.Arch, "arch", "a", "", "target architecture")
	fs.StringVar(&flags.Strategy, "strategy", "native", "execution strategy: native, ninja, makefile (build routes always use the native scheduler)")
	fs.StringVar(&flags.BuildPathStyle, "build-path-style", "", "build directory naming style (build routes always use <toolchain>_<arch>_<configuration>)")
	fs.IntVarP(&flags.MaxJobs, "jobs", "j", 0, "maximum concurrent build jobs (default: number of CPUs)")
	fs.StringVar(&flags.EnvFile, "env-file", "", "path to a .env file of additional environment variables (not loaded by any route)")
	fs.BoolVar(&flags.ShowCommands, "show-commands", false, "print each compiler/linker command line before running it")
	fs.BoolVar(&flags.DumpAssembly, "dump-assembly", false, "also emit a disassembly listing per translation unit (not acted on by the build routes)")
	fs.BoolVarP(&flags.KeepGoing, "keep-going", "k", false, "continue building independent targets after a failure")
	fs.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-error output")
	fs.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose logging")
	fs.BoolVar(&flags.Debug, "debug", false, "set the \"debug\" condition token for query chalet-json (build routes ignore it)")
}

func (f GlobalFlags) toDriverOptions(runArgs []string) driver.Options {
	return driver.Options{
		InputFile:       f.InputFile,
		SettingsFile:    f.SettingsFile,
		RootDir:         f.RootDir,
		OutputDir:       f.OutputDir,
		ExternalDir:     f.ExternalDir,
		DistributionDir: f.DistributionDir,
		Configuration:   f.Configuration,
		ToolchainName:   f.Toolchain,
		Arch:            f.Arch,
		Strategy:        f.Strategy,
		BuildPathStyle:  f.BuildPathStyle,
		MaxJobs:         f.MaxJobs,
		EnvFile:         f.EnvFile,
		ShowCommands:    f.ShowCommands,
		DumpAssembly:    f.DumpAssembly,
		KeepGoing:       f.KeepGoing,
		RunArgs:         runArgs,
		Debug:           f.Debug,
	}
}

// Execute builds the root command and runs it against args.
func Execute(ctx context.Context, args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if exitCode != 0 {
			return exitCode
		}
		return 1
	}
	return exitCode
}

// exitCode is set by runRoute from the driver's ExitCode so Execute's own
// return (which cobra otherwise collapses to 0/1) can carry it out.
var exitCode int

func newRootCmd() *cobra.Command {
	flags := &GlobalFlags{}
	root := &cobra.Command{
		Use:           "chalet",
		Short:         "JSON-driven build orchestrator for native C/C++/Objective-C projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(clog.WithLogger(cmd.Context(), clog.NewCLI(flags.Verbose, flags.Quiet)))
			return nil
		},
	}
	addGlobalFlags(root.PersistentFlags(), flags)

	root.AddCommand(
		configureCmd(flags),
		buildCmd(flags),
		rebuildCmd(flags),
		cleanCmd(flags),
		runCmd(flags),
		buildRunCmd(flags),
		bundleCmd(flags),
		exportCmd(flags),
		initCmd(flags),
		settingsCmd(flags),
		validateCmd(flags),
		queryCmd(flags),
		convertCmd(flags),
	)
	return root
}

func runRoute(cmd *cobra.Command, flags *GlobalFlags, route driver.Route, runArgs []string) error {
	d := driver.New(flags.toDriverOptions(runArgs))
	code := d.Run(cmd.Context(), route)
	exitCode = int(code)
	if code != driver.ExitSuccess {
		return fmt.Errorf("%s failed (exit %d)", route, code)
	}
	return nil
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stdout, color.GreenString(format, args...))
}

func printFailure(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.RedString(format, args...))
}
