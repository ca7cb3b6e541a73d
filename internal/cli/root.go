package cli

import (
	"os"

	"weighbridge-backend/internal/config"
	"weighbridge-backend/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "weighbridge",
	Short: "Weighbridge backend server and tools",
	Long: `Weighbridge backend: records two-step and final weighings, prints slips,
tracks expenses and reports revenue. Running without a subcommand starts the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to load before reading the environment (default .env)")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and installs the global logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(log)
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}
	return cfg, log, nil
}
