// Command orrery runs the talking solar system: an HTTP relay server, a
// terminal viewer and a few one-shot helpers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solar-system-ai/internal/config"
	"solar-system-ai/internal/logging"
)

var (
	// Global flags
	verbose     bool
	configPath  string
	logFile     string
	metricsAddr string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "orrery",
	Short: "A solar system you can talk to",
	Long: `orrery animates the eight planets around the sun and lets you chat with
whichever one you pick.

"orrery serve" exposes POST /ask-planet on port 3000 together with a live
snapshot stream; "orrery view" renders the system in the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		// the terminal viewer owns stdout and stderr
		var outputs []string
		if cmd.Name() == viewCmd.Name() {
			outputs = []string{logFile}
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format, verbose, outputs...)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	viewCmd.Flags().StringVar(&logFile, "log-file", "orrery.log", "Log destination while the viewer is running")
	viewCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve viewer metrics on this address (e.g. :9090)")
	askCmd.Flags().StringVarP(&askPlanet, "planet", "p", "Earth", "Body to ask")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(bodiesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
