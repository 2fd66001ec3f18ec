// Command intentflow serves the intent classification and tool orchestration engine over
// HTTP and offers offline classification and analytics maintenance.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-intentflow/internal/config"
	"go-intentflow/pkg/logger"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "intentflow",
		Short:         "Tiered intent classification and tool orchestration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	load := func() (config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, err
		}
		if err := logger.NewGlobal(cfg.Log.Level, cfg.Log.Pretty); err != nil {
			return config.Config{}, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return cfg, nil
	}

	rootCmd.AddCommand(newServeCmd(load))
	rootCmd.AddCommand(newClassifyCmd(load))
	rootCmd.AddCommand(newAnalyticsCmd(load))
	rootCmd.AddCommand(newConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
