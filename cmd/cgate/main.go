package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/wahlandcase/commitgate/internal/config"
)

// errRejected signals a non-zero exit after the report was already printed
var errRejected = errors.New("rejected")

var (
	configPath string
	logLevel   string
	noColor    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "cgate",
		Short:         "Commit policy gate for git pushes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/cgate.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newCheckCmd(), newValidateConfigCmd(), newInitConfigCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errRejected) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// loadConfig reads the config with load and builds the stderr logger it asks for
func loadConfig(load func(string) (*config.Config, error)) (*config.Config, *slog.Logger, error) {
	cfg, err := load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger := config.NewLogger(level, os.Stderr)
	slog.SetDefault(logger)

	return cfg, logger, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
