package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MdSium003/AgamiOps/internal/config"
	"github.com/MdSium003/AgamiOps/internal/logger"
)

var (
	configPath string

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bizpilot",
	Short: "BizPilot backend: business model, inventory and launch checklist generation",
	Long: `bizpilot serves the BizPilot HTTP API and runs its generation
pipelines from the command line.

Configuration comes from an optional YAML file (--config) overlaid by
environment variables such as PORT, DATABASE_URL and GEMINI_API_KEY.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		log, err = logger.New(cfg.Log.Mode, cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, analyzeInventoryCmd, businessModelsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
