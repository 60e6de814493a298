package policy

import (
	"fmt"
	"strings"

	"github.com/wahlandcase/commitgate/internal/config"
	"github.com/wahlandcase/commitgate/internal/models"
)

const (
	nameCrud     = `\.,:;"'`
	nameStripped = "<>\n\r"
)

// normalizeName mirrors how git cleans up ident names: angle brackets and
// line breaks are dropped, then crud characters are trimmed from both ends
func normalizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(nameStripped, r) {
			return -1
		}
		return r
	}, name)
	return strings.Trim(name, nameCrud)
}

// checkCommitterEmail compares the committer email with the actor's
func checkCommitterEmail(settings config.PolicySettings, commit models.CommitRecord, actor *models.Actor) []string {
	if !settings.RequireMatchingAuthorEmail || actor.Email == "" {
		return nil
	}
	if strings.EqualFold(commit.CommitterEmail, actor.Email) {
		return nil
	}
	return []string{fmt.Sprintf("expected committer email '%s' but found '%s'", actor.Email, commit.CommitterEmail)}
}

// checkCommitterName compares the committer name with the actor's normalized display name
func checkCommitterName(settings config.PolicySettings, commit models.CommitRecord, actor *models.Actor) []string {
	if !settings.RequireMatchingAuthorName {
		return nil
	}
	expected := normalizeName(actor.DisplayName)
	if strings.EqualFold(commit.CommitterName, expected) {
		return nil
	}
	return []string{fmt.Sprintf("expected committer name '%s' but found '%s'", expected, commit.CommitterName)}
}

// checkCommitterEmailRegex requires the committer email to match the configured pattern
func checkCommitterEmailRegex(p *patternSet, settings config.PolicySettings, commit models.CommitRecord) ([]string, error) {
	regex := settings.CommitterEmailRegex
	if regex == "" {
		return nil, nil
	}
	ok, err := p.fullMatch(regex, commit.CommitterEmail, plainOptions)
	if err != nil || ok {
		return nil, err
	}
	return []string{fmt.Sprintf("committer email regex '%s' does not match user email '%s'", regex, commit.CommitterEmail)}, nil
}

// isExcluded reports whether the commit skips the message and issue checks
func isExcluded(p *patternSet, settings config.PolicySettings, commit models.CommitRecord, actor *models.Actor) (bool, error) {
	if settings.ExcludeMergeCommits && commit.IsMerge() {
		return true, nil
	}
	if settings.ExcludeServiceUserCommits && actor.IsService() {
		return true, nil
	}
	if settings.ExcludeByRegex != "" {
		return p.find(settings.ExcludeByRegex, commit.Message)
	}
	return false, nil
}

// checkMessageRegex requires the whole message to match the commit message pattern
func checkMessageRegex(p *patternSet, settings config.PolicySettings, commit models.CommitRecord) ([]string, error) {
	regex := settings.CommitMessageRegex
	if regex == "" {
		return nil, nil
	}
	ok, err := p.fullMatch(regex, commit.Message, messageOptions)
	if err != nil || ok {
		return nil, err
	}
	return []string{"commit message doesn't match regex: " + regex}, nil
}

// issueSearchText returns the part of the message to search for issue keys.
// That is capture group 1 of the commit message pattern when it has one, else the whole message.
func issueSearchText(p *patternSet, settings config.PolicySettings, commit models.CommitRecord) (string, error) {
	if settings.CommitMessageRegex == "" {
		return commit.Message, nil
	}
	group, ok, err := p.firstGroup(settings.CommitMessageRegex, commit.Message)
	if err != nil {
		return "", err
	}
	if ok {
		return group, nil
	}
	return commit.Message, nil
}

// checkBranchName requires the short name of a new branch to match the branch name pattern
func checkBranchName(p *patternSet, settings config.PolicySettings, change models.RefChange) ([]string, error) {
	regex := settings.BranchNameRegex
	if regex == "" || !change.IsBranch() || change.Type != models.RefAdd {
		return nil, nil
	}
	ok, err := p.fullMatch(regex, change.DisplayID(), plainOptions)
	if err != nil || ok {
		return nil, err
	}
	return []string{fmt.Sprintf("Invalid branch name. %s does not match regex %s", change.DisplayID(), regex)}, nil
}

// isBranchExcluded reports whether commits pushed to the branch skip all checks
func isBranchExcluded(p *patternSet, settings config.PolicySettings, change models.RefChange) (bool, error) {
	if settings.ExcludeBranchRegex == "" || !change.IsBranch() {
		return false, nil
	}
	return p.find(settings.ExcludeBranchRegex, change.DisplayID())
}
