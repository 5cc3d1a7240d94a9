package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/normanking/puppyavatar/internal/config"
	"github.com/normanking/puppyavatar/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	loader *config.Loader
	logger = logging.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "puppysim",
	Short: "Procedural animation core for the puppy avatar",
	Long: "puppysim drives the puppy avatar's breathing, idle motion and chat\n" +
		"reactions, either in real time behind a frame stream or headlessly\n" +
		"from a scripted conversation.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		logger.Close()
		logger = logging.Nop()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.puppyavatar/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
}

// setup loads configuration and opens the logger for every subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	loader = config.NewLoader(configPath)
	loaded, err := loader.Load()
	if err != nil {
		return err
	}
	cfg = loaded
	if verbose {
		cfg.Log.Level = logging.LevelDebug
	}

	l, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logger = l
	log := logger.Component("cli")
	log.Debug().
		Str("command", cmd.Name()).
		Str("config", loader.ConfigFile()).
		Msg("Configuration loaded")
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "puppysim %s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
