package cli

import (
	"github.com/spf13/cobra"

	"github.com/chalet-org/chalet-go/internal/driver"
)

func configureCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "resolve the build description and materialize external dependencies without compiling",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, flags, driver.RouteConfigure, nil)
		},
	}
}

func buildCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "build the project for the active configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, flags, driver.RouteBuild, nil)
		},
	}
}

func rebuildCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "clean then build",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, flags, driver.RouteRebuild, nil)
		},
	}
}

func cleanCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "remove the active configuration's build output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, flags, driver.RouteClean, nil)
		},
	}
}

func runCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:                "run [-- args...]",
		Short:              "run the project's executable target",
		DisableFlagParsing: false,
		Args:               cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, flags, driver.RouteRun, args)
		},
	}
}

func buildRunCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build-run [-- args...]",
		Short: "build, then run the project's executable target",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, flags, driver.RouteBuildRun, args)
		},
	}
}

func bundleCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "bundle",
		Short: "build (the distribution entries are not assembled)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, flags, driver.RouteBundle, nil)
		},
	}
}

func exportCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "exit successfully; does not configure or write compile_commands.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, flags, driver.RouteExport, nil)
		},
	}
}
