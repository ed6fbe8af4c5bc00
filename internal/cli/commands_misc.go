package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chalet-org/chalet-go/internal/configfile"
	"github.com/chalet-org/chalet-go/internal/query"
	"github.com/chalet-org/chalet-go/internal/scaffold"
	"github.com/chalet-org/chalet-go/internal/workspace"
)

func initCmd(flags *GlobalFlags) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "scaffold a new chalet.json and starter source file in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := scaffold.New(flags.RootDir, name); err != nil {
				return err
			}
			printSuccess("scaffolded a new project in %s", flags.RootDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name (default: the directory name)")
	return cmd
}

func validateCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "validate the build description without configuring or building",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(flags.RootDir, flags.InputFile)
			if _, err := configfile.Load(path); err != nil {
				printFailure("%s is invalid: %v", path, err)
				return err
			}
			printSuccess("%s is valid", path)
			return nil
		},
	}
}

func queryCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "print schema, command-tree, or resolved-configuration introspection data",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "chalet-schema",
			Short: "print the Draft-7 JSON schema for chalet.json",
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := query.Schema()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			},
		},
		&cobra.Command{
			Use:   "commands",
			Short: "list every top-level command",
			RunE: func(cmd *cobra.Command, args []string) error {
				for _, c := range query.Commands() {
					fmt.Fprintln(cmd.OutOrStdout(), c)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "chalet-json",
			Short: "print the fully resolved build description as JSON",
			RunE: func(cmd *cobra.Command, args []string) error {
				raw, err := configfile.Load(filepath.Join(flags.RootDir, flags.InputFile))
				if err != nil {
					return err
				}
				ws, err := workspace.Resolve(raw, workspace.ResolveOptions{
					Platform:      runtime.GOOS,
					Configuration: flags.Configuration,
					ExternalDir:   flags.ExternalDir,
					OutputDir:     flags.OutputDir,
					Architecture:  flags.Arch,
					ToolchainName: flags.Toolchain,
					Debug:         flags.Debug,
				})
				if err != nil {
					return err
				}
				b, err := query.ChaletJSON(ws)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			},
		},
	)
	return cmd
}

func convertCmd(flags *GlobalFlags) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "convert the build description between JSON and YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(flags.RootDir, flags.InputFile)
			raw, err := configfile.Load(path)
			if err != nil {
				return err
			}
			var out []byte
			switch to {
			case "yaml":
				out, err = yamlMarshal(raw)
			default:
				out, err = json.MarshalIndent(raw, "", "  ")
			}
			if err != nil {
				return err
			}
			dest := filepath.Join(flags.RootDir, "chalet."+to)
			if to != "yaml" {
				dest = filepath.Join(flags.RootDir, "chalet.json")
			}
			if err := os.WriteFile(dest, out, 0o644); err != nil {
				return err
			}
			printSuccess("converted %s to %s", path, dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "json", "target format: json or yaml")
	return cmd
}

func yamlMarshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}
