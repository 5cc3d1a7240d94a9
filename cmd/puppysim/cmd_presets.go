package main

import (
	"github.com/spf13/cobra"

	"github.com/normanking/puppyavatar/internal/breathing"
)

var presetsFormat string

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Print the breathing presets with config overrides applied",
	RunE: func(cmd *cobra.Command, _ []string) error {
		table := cfg.PresetTable()
		out := make(map[breathing.PresetName]breathing.Params, table.Len())
		for _, name := range table.Names() {
			out[name] = table.MustGet(name)
		}
		return writeOutput(cmd.OutOrStdout(), out, presetsFormat)
	},
}

func init() {
	presetsCmd.Flags().StringVarP(&presetsFormat, "format", "f", formatYAML, "output format: yaml or json")
}
