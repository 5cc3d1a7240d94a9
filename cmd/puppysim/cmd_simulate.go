package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/normanking/puppyavatar/internal/script"
)

var simulateFormat string

var simulateCmd = &cobra.Command{
	Use:   "simulate [script.yaml]",
	Short: "Run a scripted conversation headlessly and print sampled frames",
	Long: `Reads a YAML script of timed chat signal events (from the file argument,
or stdin when it is omitted or "-") and drives the avatar at a fixed step.
The same script always produces the same output.

  duration: 10s
  fps: 60
  sample_every: 6
  intensity: subtle
  events:
    - at: 1s
      speaking: true
      message: 180
    - at: 6s
      speaking: false`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&simulateFormat, "format", "f", formatYAML, "output format: yaml or json")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		in = f
	}

	s, err := script.Parse(in)
	if err != nil {
		return err
	}

	log := logger.Component("simulate")
	log.Debug().Dur("duration", s.Duration).Int("fps", s.FPS).Int("events", len(s.Events)).Msg("Running script")

	res, err := script.Run(cmd.Context(), s, cfg.AvatarConfig(), log)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	return writeOutput(cmd.OutOrStdout(), res, simulateFormat)
}
