package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/rentdesk/internal/config"
	"github.com/aretw0/rentdesk/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rentdesk",
	Short: "Rental back-office wizards for contracts and fleet vehicles",
	Long: `rentdesk runs the multi-step contract and vehicle wizards of a rental
back-office. Sessions can be driven from the terminal, over HTTP or by an
MCP-capable agent.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("backend", "", "Record backend: memory or rest")
	rootCmd.PersistentFlags().String("api", "", "Base URL of the back-office REST API")
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"log-level": "log_level",
	"backend":   "backend",
	"api":       "api_base_url",
	"addr":      "listen_addr",
	"metrics":   "metrics_addr",
}

// loadConfig reads the config file and the environment and applies the
// flags the user actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")

	overrides := map[string]any{}
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}

	cfg, err := config.Load(path, overrides)
	if err != nil {
		return nil, nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
