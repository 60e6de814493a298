package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/dlclark/regexp2"
	"github.com/go-playground/validator/v10"

	"github.com/wahlandcase/commitgate/internal/config"
)

// FieldError is a configuration problem tied to one setting
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// QueryChecker validates JQL against the configured backends
type QueryChecker interface {
	HasBackends() bool
	CheckQuery(ctx context.Context, query string) []string
}

// ValidateConfig reports every problem with cfg, in setting order
func ValidateConfig(ctx context.Context, cfg *config.Config, checker QueryChecker) []FieldError {
	var errs []FieldError

	if err := cfg.Validate(); err != nil {
		errs = append(errs, structErrors(err)...)
	}

	// Full-match settings are anchored, and the message pattern also runs
	// without multiline flags to pick out its capture group
	patterns := newPatternSet(0)
	regexSettings := []struct {
		field    string
		pattern  string
		anchored bool
		options  []regexp2.RegexOptions
	}{
		{"commit_message_regex", cfg.Policy.CommitMessageRegex, true, []regexp2.RegexOptions{messageOptions, plainOptions}},
		{"committer_email_regex", cfg.Policy.CommitterEmailRegex, true, []regexp2.RegexOptions{plainOptions}},
		{"exclude_by_regex", cfg.Policy.ExcludeByRegex, false, []regexp2.RegexOptions{plainOptions}},
		{"exclude_branch_regex", cfg.Policy.ExcludeBranchRegex, false, []regexp2.RegexOptions{plainOptions}},
		{"branch_name_regex", cfg.Policy.BranchNameRegex, true, []regexp2.RegexOptions{plainOptions}},
	}
	for _, s := range regexSettings {
		if s.pattern == "" {
			continue
		}
		for _, options := range s.options {
			if err := patterns.checkPattern(s.pattern, s.anchored, options); err != nil {
				errs = append(errs, FieldError{Field: s.field, Message: "Invalid Regex: " + err.Error()})
				break
			}
		}
	}

	if cfg.Policy.RequireJiraIssue && !checker.HasBackends() {
		errs = append(errs, FieldError{
			Field:   "require_jira_issue",
			Message: "Can't be enabled because no JIRA backend is configured.",
		})
	}

	if query := cfg.Policy.IssueJqlMatcher; query != "" {
		for _, msg := range checker.CheckQuery(ctx, query) {
			errs = append(errs, FieldError{Field: "issue_jql_matcher", Message: msg})
		}
	}

	return errs
}

func structErrors(err error) []FieldError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []FieldError{{Field: "config", Message: err.Error()}}
	}

	errs := make([]FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		msg := fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed on the '%s=%s' rule", fe.Tag(), fe.Param())
		}
		errs = append(errs, FieldError{Field: fe.Namespace(), Message: msg})
	}
	return errs
}
