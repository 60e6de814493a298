package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wahlandcase/commitgate/internal/config"
	"github.com/wahlandcase/commitgate/internal/git"
	"github.com/wahlandcase/commitgate/internal/jira"
	"github.com/wahlandcase/commitgate/internal/models"
	"github.com/wahlandcase/commitgate/internal/policy"
	"github.com/wahlandcase/commitgate/internal/ui"
)

const (
	envActorName  = "CGATE_ACTOR_NAME"
	envActorEmail = "CGATE_ACTOR_EMAIL"
	envActorKind  = "CGATE_ACTOR_KIND"
)

type checkOptions struct {
	repoPath    string
	metricsFile string
	actorName   string
	actorEmail  string
	actorKind   string
}

func newCheckCmd() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check pushed ref updates read from stdin (pre-receive hook)",
		Long: `Reads "<old> <new> <ref>" lines from stdin, as git passes them to a
pre-receive hook, and checks every new commit against the configured policy.
Exits non-zero when the push is rejected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.repoPath, "repo", "", "Repository path (default: $GIT_DIR or current directory)")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write lookup metrics to this node-exporter textfile")
	cmd.Flags().StringVar(&opts.actorName, "actor-name", "", "Display name of the pushing user (env "+envActorName+")")
	cmd.Flags().StringVar(&opts.actorEmail, "actor-email", "", "Email of the pushing user (env "+envActorEmail+")")
	cmd.Flags().StringVar(&opts.actorKind, "actor-kind", "", "Account kind: normal, service or other (env "+envActorKind+")")

	return cmd
}

func runCheck(cmd *cobra.Command, opts *checkOptions) error {
	cfg, logger, err := loadConfig(config.Load)
	if err != nil {
		return err
	}

	changes, err := parseRefUpdates(cmd.InOrStdin())
	if err != nil {
		return err
	}

	repo, err := git.OpenRepo(opts.repoPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	aggregator := jira.NewAggregator(
		jira.BackendsFromConfig(cfg.Backends),
		jira.WithLogger(logger),
		jira.WithMetrics(jira.NewMetrics(reg)),
	)

	evaluator := policy.NewEvaluator(aggregator, git.NewChangeSetSource(repo),
		policy.WithLogger(logger),
		policy.WithMatchTimeout(cfg.MatchTimeout()),
	)

	actor := opts.actor()
	logger.Debug("Checking push", "refChanges", len(changes), "actorName", actorName(actor))

	result := evaluator.Check(cmd.Context(), cfg.Policy, actor, changes)
	ui.NewPrinter(cmd.OutOrStdout(), noColor).Result(result)

	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, reg); err != nil {
			logger.Warn("Failed to write metrics", "path", opts.metricsFile, "error", err)
		}
	}

	if policy.IsRejected(result) {
		return errRejected
	}
	return nil
}

// parseRefUpdates reads the "<old> <new> <ref>" lines of the pre-receive protocol
func parseRefUpdates(r io.Reader) ([]models.RefChange, error) {
	var changes []models.RefChange

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid ref update on line %d: %q", lineNo, line)
		}
		changes = append(changes, models.NewRefChange(fields[2], fields[0], fields[1]))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ref updates: %w", err)
	}

	return changes, nil
}

// actor resolves the pushing account from flags, then the environment.
// Without a name the push is treated as unauthenticated.
func (o *checkOptions) actor() *models.Actor {
	name := firstNonEmpty(o.actorName, os.Getenv(envActorName))
	if name == "" {
		return nil
	}
	email := firstNonEmpty(o.actorEmail, os.Getenv(envActorEmail))
	kind := models.ParseActorKind(strings.ToLower(firstNonEmpty(o.actorKind, os.Getenv(envActorKind))))
	return models.NewActor(kind, name, email)
}

func actorName(a *models.Actor) string {
	if a == nil {
		return ""
	}
	return a.DisplayName
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
