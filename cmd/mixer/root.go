package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vmorsell/app-mixer/internal/config"
	"github.com/vmorsell/app-mixer/internal/logging"
	"github.com/vmorsell/app-mixer/internal/volume"
	"go.uber.org/zap"
)

var (
	cfg     *config.Config
	cfgFile string
	verbose bool

	logger     *zap.Logger
	controller *volume.Controller
)

var rootCmd = &cobra.Command{
	Use:   "mixer",
	Short: "Control per-application audio volume",
	Long: `mixer lists the audio sessions of the running system (output devices and
application streams) and changes their volume and mute state.

Device ids look like "system-0"; application streams use a bare number.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, true)
		if err != nil {
			return err
		}

		controller = volume.New(logger, volume.Options{
			Timeout:     cfg.OperationTimeout,
			PulseServer: cfg.PulseServer,
			ClientName:  cfg.ClientName,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is mixer.yaml in the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(muteCmd)
	rootCmd.AddCommand(unmuteCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
