package cli

import (
	"os"

	"github.com/spf13/cobra"

	"permguard-lab/internal/config"
	"permguard-lab/pkg/logger"
)

// Version is set at build time
var Version = "dev"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "permscan",
	Short:        "Score installed-app permissions and build privacy reports",
	Long:         "Scores the dangerous Android permissions requested by installed apps, assembles a privacy report and optionally delivers it to a lab endpoint.",
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logger level (debug, info, warn, error)")
	cobra.CheckErr(rootCmd.MarkPersistentFlagFilename("config", "yaml", "yml", "json"))
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and builds a stderr logger, keeping
// stdout free for report output.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Logger.Level
	if logLevel != "" {
		level = logLevel
	}

	log := logger.New(logger.Config{
		Level:      level,
		Format:     "console",
		TimeFormat: cfg.Logger.TimeFormat,
		Output:     cmd.ErrOrStderr(),
	})
	return cfg, log, nil
}
