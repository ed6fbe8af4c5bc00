package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chalet-org/chalet-go/internal/settings"
)

func settingsCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "get, set, unset, or list keys in the global/project settings store",
	}
	cmd.AddCommand(
		settingsGetCmd(flags),
		settingsSetCmd(flags),
		settingsUnsetCmd(flags),
		settingsGetKeysCmd(flags),
	)
	return cmd
}

func openSettings(flags *GlobalFlags) (*settings.Store, error) {
	return settings.Merged(flags.SettingsFile)
}

func settingsGetCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "print the value at a dot-path settings key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSettings(flags)
			if err != nil {
				return err
			}
			v, ok := s.Get(args[0])
			if !ok {
				return fmt.Errorf("no value set for %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func settingsSetCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "set a dot-path settings key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSettings(flags)
			if err != nil {
				return err
			}
			s.Set(args[0], args[1])
			return s.Save()
		},
	}
}

func settingsUnsetCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "remove a dot-path settings key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSettings(flags)
			if err != nil {
				return err
			}
			s.Unset(args[0])
			return s.Save()
		},
	}
}

func settingsGetKeysCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get-keys",
		Short: "list every key currently set",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSettings(flags)
			if err != nil {
				return err
			}
			for _, k := range s.Keys() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}
