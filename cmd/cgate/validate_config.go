package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wahlandcase/commitgate/internal/config"
	"github.com/wahlandcase/commitgate/internal/jira"
	"github.com/wahlandcase/commitgate/internal/policy"
	"github.com/wahlandcase/commitgate/internal/ui"
)

func newValidateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Check regexes, backends and the JQL matcher of the config",
		Args:  cobra.NoArgs,
		RunE:  runValidateConfig,
	}
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
	// Struct constraints are reported along with the other problems
	cfg, logger, err := loadConfig(config.Read)
	if err != nil {
		return err
	}

	aggregator := jira.NewAggregator(jira.BackendsFromConfig(cfg.Backends), jira.WithLogger(logger))
	errs := policy.ValidateConfig(cmd.Context(), cfg, aggregator)

	ui.NewPrinter(cmd.OutOrStdout(), noColor).FieldErrors(displayPath(), errs)

	if len(errs) > 0 {
		return errRejected
	}
	return nil
}

func newInitConfigCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolvedPath()
			if err != nil {
				return err
			}
			if !force && fileExists(path) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	return cmd
}

func resolvedPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

func displayPath() string {
	path, err := resolvedPath()
	if err != nil {
		return "config"
	}
	return path
}
