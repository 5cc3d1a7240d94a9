package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/normanking/puppyavatar/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	// An existing file may be invalid; init must not load it.
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}
			path = p
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		if err := config.Save(config.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowFormat string

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		source := loader.ConfigFile()
		if source == "" {
			source = "defaults"
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "# source: %s\n", source)
		return writeOutput(cmd.OutOrStdout(), cfg.Settings(), configShowFormat)
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configShowCmd.Flags().StringVarP(&configShowFormat, "format", "f", formatYAML, "output format: yaml or json")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
