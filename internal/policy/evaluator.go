package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wahlandcase/commitgate/internal/config"
	"github.com/wahlandcase/commitgate/internal/jira"
	"github.com/wahlandcase/commitgate/internal/models"
)

const (
	// RejectedSummary heads the report of a push with policy violations
	RejectedSummary = "Push rejected. Commits do not comply with repository requirements."

	regexTimeoutSummary = "Regex timeout exceeded"
	regexTimeoutMessage = "The timeout for evaluating regular expression has been exceeded"
	invalidRegexSummary = "Invalid regex in configuration"

	noIssueFound     = "No JIRA Issue found in commit message."
	noBackendMessage = "Unable to verify JIRA issue because no JIRA link is configured"
)

// IssueLookups answers issue tracker questions for the issue checks
type IssueLookups interface {
	HasBackends() bool
	IssueExists(ctx context.Context, key models.IssueKey) (bool, error)
	IssueMatchesQuery(ctx context.Context, query string, key models.IssueKey) (bool, error)
	ProjectExists(ctx context.Context, projectKey string) (bool, error)
}

// ChangeSetSource lists the commits a ref update introduces to the repository
type ChangeSetSource interface {
	NewCommits(ctx context.Context, change models.RefChange) ([]models.CommitRecord, error)
}

// Evaluator runs the commit policy against ref updates
type Evaluator struct {
	lookups      IssueLookups
	source       ChangeSetSource
	logger       *slog.Logger
	matchTimeout time.Duration
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithMatchTimeout bounds every regex match, zero meaning no limit
func WithMatchTimeout(timeout time.Duration) Option {
	return func(e *Evaluator) {
		e.matchTimeout = timeout
	}
}

// NewEvaluator creates an Evaluator
func NewEvaluator(lookups IssueLookups, source ChangeSetSource, opts ...Option) *Evaluator {
	e := &Evaluator{
		lookups: lookups,
		source:  source,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check evaluates every ref update of a push.
// actor is nil for unauthenticated pushes.
func (e *Evaluator) Check(ctx context.Context, settings config.PolicySettings, actor *models.Actor, changes []models.RefChange) Result {
	p := newPatternSet(e.matchTimeout)

	var messages []string
	for _, change := range changes {
		violations, err := e.checkRefChange(ctx, p, settings, actor, change)
		if err != nil {
			return e.abort(change, err)
		}
		messages = append(messages, violations...)
	}

	if len(messages) == 0 {
		return Accepted
	}
	return Rejected(RejectedSummary, messages)
}

// CheckRefChange evaluates a single ref update, returning its violations in order.
// The error is a *RegexTimeoutError or *InvalidRegexError, which abort the evaluation.
func (e *Evaluator) CheckRefChange(ctx context.Context, settings config.PolicySettings, actor *models.Actor, change models.RefChange) ([]string, error) {
	return e.checkRefChange(ctx, newPatternSet(e.matchTimeout), settings, actor, change)
}

func (e *Evaluator) abort(change models.RefChange, err error) Result {
	var timeoutErr *RegexTimeoutError
	if errors.As(err, &timeoutErr) {
		e.logger.Error("Regex timeout exceeded", "refId", change.RefID, "pattern", timeoutErr.Pattern)
		return Rejected(regexTimeoutSummary, []string{regexTimeoutMessage})
	}

	var invalidErr *InvalidRegexError
	if errors.As(err, &invalidErr) {
		e.logger.Error("Invalid regex in configuration", "refId", change.RefID, "pattern", invalidErr.Pattern, "error", invalidErr.Cause)
		return Rejected(invalidRegexSummary, []string{"Invalid Regex: " + invalidErr.Cause.Error()})
	}

	e.logger.Error("Evaluation failed", "refId", change.RefID, "error", err)
	return Rejected(RejectedSummary, []string{fmt.Sprintf("%s: %v", change.RefID, err)})
}

func (e *Evaluator) checkRefChange(ctx context.Context, p *patternSet, settings config.PolicySettings, actor *models.Actor, change models.RefChange) ([]string, error) {
	e.logger.Debug("Checking ref change",
		"refId", change.RefID, "fromHash", change.FromHash, "toHash", change.ToHash, "type", change.Type)

	if change.Type == models.RefDelete {
		return nil, nil
	}

	var messages []string

	branchViolations, err := checkBranchName(p, settings, change)
	if err != nil {
		return nil, err
	}
	for _, v := range branchViolations {
		messages = append(messages, fmt.Sprintf("%s: %s", change.RefID, v))
	}

	excluded, err := isBranchExcluded(p, settings, change)
	if err != nil {
		return nil, err
	}
	if excluded {
		e.logger.Debug("Skipping commit checks for excluded branch", "refId", change.RefID)
		return messages, nil
	}

	commits, err := e.source.NewCommits(ctx, change)
	if err != nil {
		e.logger.Error("Failed to list new commits", "refId", change.RefID, "error", err)
		return append(messages, fmt.Sprintf("%s: unable to list new commits: %v", change.RefID, err)), nil
	}

	checkMessages := !change.IsTag()
	for _, commit := range commits {
		violations, err := e.checkCommit(ctx, p, settings, actor, commit, checkMessages)
		if err != nil {
			return nil, err
		}
		for _, v := range violations {
			messages = append(messages, fmt.Sprintf("%s: %s: %s", change.RefID, commit.ID, v))
		}
	}

	return messages, nil
}

func (e *Evaluator) checkCommit(ctx context.Context, p *patternSet, settings config.PolicySettings, actor *models.Actor, commit models.CommitRecord, checkMessages bool) ([]string, error) {
	e.logger.Debug("Checking commit",
		"commit", commit.ID, "name", commit.CommitterName, "email", commit.CommitterEmail)

	var violations []string

	switch {
	case actor == nil:
		e.logger.Warn("Unauthenticated push, skipping committer checks", "commit", commit.ID)
	case actor.IsNormal():
		// Service accounts have no stable name or email to compare against
		violations = append(violations, checkCommitterEmail(settings, commit, actor)...)
		violations = append(violations, checkCommitterName(settings, commit, actor)...)
	}

	emailViolations, err := checkCommitterEmailRegex(p, settings, commit)
	if err != nil {
		return nil, err
	}
	violations = append(violations, emailViolations...)

	if !checkMessages {
		return violations, nil
	}

	excluded, err := isExcluded(p, settings, commit, actor)
	if err != nil {
		return nil, err
	}
	if excluded {
		e.logger.Debug("Commit excluded from message checks", "commit", commit.ID)
		return violations, nil
	}

	messageViolations, err := checkMessageRegex(p, settings, commit)
	if err != nil {
		return nil, err
	}
	violations = append(violations, messageViolations...)

	// Issue keys may come from a capture group of the message regex
	if len(messageViolations) > 0 {
		return violations, nil
	}

	issueViolations, err := e.checkIssues(ctx, p, settings, commit)
	if err != nil {
		return nil, err
	}
	return append(violations, issueViolations...), nil
}

func (e *Evaluator) checkIssues(ctx context.Context, p *patternSet, settings config.PolicySettings, commit models.CommitRecord) ([]string, error) {
	if !settings.RequireJiraIssue {
		return nil, nil
	}
	if e.lookups == nil || !e.lookups.HasBackends() {
		return []string{noBackendMessage}, nil
	}

	text, err := issueSearchText(p, settings, commit)
	if err != nil {
		return nil, err
	}
	keys := models.ParseIssueKeys(text)
	e.logger.Debug("Found issue keys", "commit", commit.ID, "issueKeys", keys)

	var violations []string

	if settings.IgnoreUnknownIssueProjectKeys {
		known := make([]models.IssueKey, 0, len(keys))
		for _, key := range keys {
			exists, err := e.lookups.ProjectExists(ctx, key.ProjectKey)
			if err != nil {
				violations = append(violations, lookupFailureMessages(err)...)
				continue
			}
			if exists {
				known = append(known, key)
			}
		}
		keys = known
	}

	if len(keys) == 0 {
		return append(violations, noIssueFound), nil
	}

	for _, key := range keys {
		violations = append(violations, e.checkIssue(ctx, settings, key)...)
	}
	return violations, nil
}

func (e *Evaluator) checkIssue(ctx context.Context, settings config.PolicySettings, key models.IssueKey) []string {
	exists, err := e.lookups.IssueExists(ctx, key)
	if err != nil {
		return lookupFailureMessages(err)
	}
	if !exists {
		return []string{key.FullyQualified() + ": JIRA Issue does not exist"}
	}

	query := settings.IssueJqlMatcher
	if query == "" {
		return nil
	}

	matches, err := e.lookups.IssueMatchesQuery(ctx, query, key)
	if err != nil {
		return lookupFailureMessages(err)
	}
	if !matches {
		return []string{fmt.Sprintf("%s: JIRA Issue does not match JQL Query: %s", key.FullyQualified(), query)}
	}
	return nil
}

// lookupFailureMessages renders a lookup failure as violation text
func lookupFailureMessages(err error) []string {
	var aggErr *jira.AggregatedLookupError
	if errors.As(err, &aggErr) {
		return aggErr.PrintableErrors()
	}
	return []string{err.Error()}
}
