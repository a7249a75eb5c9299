// Command mood-tunes detects the mood of audio clips and recommends
// matching songs from the Spotify catalog.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justestif/go-mood-tunes/internal/config"
	"github.com/justestif/go-mood-tunes/internal/logger"
)

// app carries what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "mood-tunes",
		Short:         "Detect the mood of a clip and find songs that match it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			debug, _ := cmd.Flags().GetBool("debug")

			cfg, err := config.Load(envFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if debug {
				cfg.LogLevel = "debug"
			}

			log, err := logger.New(cfg.LogLevel, debug)
			if err != nil {
				return err
			}

			a.cfg = cfg
			a.logger = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().String("env-file", ".env", "Path to a .env file")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging with console output")

	cmd.AddCommand(
		cmdServe(a),
		cmdAnalyze(a),
		cmdRecommend(a),
		cmdCache(a),
		cmdAuth(a),
	)
	return cmd
}
