package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/wahlandcase/commitgate/internal/models"
)

// ErrNoBackends is returned when a lookup runs without any configured backend
var ErrNoBackends = errors.New("no JIRA backend is configured")

const (
	opIssueExists  = "issue_exists"
	opProjectExist = "project_exists"
	opQueryMatch   = "query_match"
	opQueryCheck   = "query_check"
)

// Aggregator answers issue-tracker questions across an ordered list of backends.
//
// Backends are queried one at a time in order. The first affirmative answer
// wins and later backends are not contacted. A negative answer falls through
// to the next backend. Errors are collected, and reported together only when
// no backend answered affirmatively.
type Aggregator struct {
	backends []*Backend
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithMetrics records every backend call in m.
func WithMetrics(m *Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// NewAggregator creates an Aggregator over backends, preserving their order
func NewAggregator(backends []*Backend, opts ...Option) *Aggregator {
	a := &Aggregator{
		backends: backends,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HasBackends returns true if at least one backend is configured
func (a *Aggregator) HasBackends() bool {
	return len(a.backends) > 0
}

// IssueExists reports whether any backend knows the issue
func (a *Aggregator) IssueExists(ctx context.Context, key models.IssueKey) (bool, error) {
	path := "/issue/" + key.FullyQualified() + "?fields=summary"
	mismatch := key.FullyQualified() + ": JIRA issue does not exist"

	return a.lookup(ctx, opIssueExists, mismatch, func(ctx context.Context, b *Backend) (bool, error) {
		if _, err := b.Transport.Get(ctx, path); err != nil {
			return false, err
		}
		// No error, so it must exist
		return true, nil
	})
}

type projectResponse struct {
	Key string `json:"key"`
}

// ProjectExists reports whether any backend knows the project
func (a *Aggregator) ProjectExists(ctx context.Context, projectKey string) (bool, error) {
	path := "/project/" + projectKey
	mismatch := projectKey + ": JIRA project does not exist"

	return a.lookup(ctx, opProjectExist, mismatch, func(ctx context.Context, b *Backend) (bool, error) {
		body, err := b.Transport.Get(ctx, path)
		if err != nil {
			return false, err
		}

		var project projectResponse
		if err := json.Unmarshal(body, &project); err != nil {
			return false, &UnknownError{Cause: fmt.Errorf("failed to parse project response: %w", err)}
		}
		return project.Key == projectKey, nil
	})
}

type searchRequest struct {
	JQL string `json:"jql"`
}

type searchResponse struct {
	Issues []json.RawMessage `json:"issues"`
}

// IssueMatchesQuery reports whether the issue matches the JQL query on any backend.
//
// The query is conjoined with an exact issueKey predicate, so at most one
// issue can come back and no paging is needed.
func (a *Aggregator) IssueMatchesQuery(ctx context.Context, query string, key models.IssueKey) (bool, error) {
	jql := fmt.Sprintf("issueKey=%s and (%s)", key.FullyQualified(), query)
	mismatch := fmt.Sprintf("%s: JIRA issue does not match JQL query: %s", key.FullyQualified(), query)

	return a.lookup(ctx, opQueryMatch, mismatch, func(ctx context.Context, b *Backend) (bool, error) {
		body, err := a.search(ctx, b, jql)
		if err != nil {
			if isMissingIssueDiagnostic(err, key) {
				return false, nil
			}
			return false, err
		}

		var resp searchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return false, &UnknownError{Cause: fmt.Errorf("failed to parse search response: %w", err)}
		}
		return len(resp.Issues) > 0, nil
	})
}

// isMissingIssueDiagnostic reports whether err is a search failure whose only
// diagnostic mentions the issue key. Backends without validateQuery support
// reject "issueKey=X" that way when X is unknown to them.
// TODO: replace with a server version check once backends expose one.
func isMissingIssueDiagnostic(err error, key models.IssueKey) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return len(statusErr.Diagnostics) == 1 &&
		strings.Contains(statusErr.Diagnostics[0], key.FullyQualified())
}

// CheckQuery validates JQL syntax, returning printable diagnostics.
// Nil means at least one backend accepted the query.
func (a *Aggregator) CheckQuery(ctx context.Context, query string) []string {
	if !a.HasBackends() {
		return []string{ErrNoBackends.Error()}
	}

	// A query using a custom field may only be valid on some backends,
	// so every backend is tried until one accepts it.
	var errs []BackendError
	for _, b := range a.backends {
		start := time.Now()
		_, err := a.search(ctx, b, query)
		if err == nil {
			a.metrics.observe(opQueryCheck, b.Name, outcomeFound, time.Since(start))
			return nil
		}

		lookupErr := Classify(err)
		a.metrics.observe(opQueryCheck, b.Name, outcomeError, time.Since(start))
		a.logFailure(opQueryCheck, b, lookupErr)
		errs = append(errs, BackendError{Backend: b, Err: lookupErr})
	}

	return newAggregatedLookupError(errs).PrintableErrors()
}

func (a *Aggregator) search(ctx context.Context, b *Backend, jql string) ([]byte, error) {
	a.logger.Debug("Running JQL query", "backend", b.Name, "jql", jql)
	body, err := b.Transport.Post(ctx, "/search?fields=summary&validateQuery=false", searchRequest{JQL: jql})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("JQL response", "backend", b.Name, "bytes", len(body))
	return body, nil
}

// lookup runs call against each backend in order.
// mismatch is reported for backends that answered negatively when some
// other backend failed, so the caller sees every backend's outcome.
func (a *Aggregator) lookup(ctx context.Context, op, mismatch string, call func(context.Context, *Backend) (bool, error)) (bool, error) {
	if !a.HasBackends() {
		return false, ErrNoBackends
	}

	// Err is nil for backends that answered negatively
	results := make([]BackendError, 0, len(a.backends))
	failed := false

	for _, b := range a.backends {
		start := time.Now()
		found, err := call(ctx, b)
		elapsed := time.Since(start)

		if err != nil {
			lookupErr := Classify(err)
			if isNotFound(lookupErr) {
				a.metrics.observe(op, b.Name, outcomeNotFound, elapsed)
				results = append(results, BackendError{Backend: b})
				continue
			}

			a.metrics.observe(op, b.Name, outcomeError, elapsed)
			a.logFailure(op, b, lookupErr)
			results = append(results, BackendError{Backend: b, Err: lookupErr})
			failed = true
			continue
		}

		if found {
			a.metrics.observe(op, b.Name, outcomeFound, elapsed)
			return true, nil
		}

		a.metrics.observe(op, b.Name, outcomeNotFound, elapsed)
		results = append(results, BackendError{Backend: b})
	}

	if !failed {
		return false, nil
	}

	for i := range results {
		if results[i].Err == nil {
			results[i].Err = &StatusError{Code: http.StatusNotFound, Text: mismatch}
		}
	}
	return false, newAggregatedLookupError(results)
}

func (a *Aggregator) logFailure(op string, b *Backend, err LookupError) {
	if _, ok := err.(*UnknownError); ok {
		a.logger.Error("Unknown error during JIRA lookup", "op", op, "backend", b.Name, "error", err)
		return
	}
	// Connection timeouts and the like are clear from the message alone
	a.logger.Debug("JIRA lookup failed", "op", op, "backend", b.Name, "error", err)
}
