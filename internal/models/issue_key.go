package models

import (
	"regexp"
	"sort"
)

// issuePattern matches issue keys such as ABC-123 or XY_1-0
var issuePattern = regexp.MustCompile(`([A-Z][A-Z0-9_]+)-([0-9]+)`)

// IssueKey identifies an issue by project key and project-relative number
type IssueKey struct {
	// ProjectKey (e.g., "ABC")
	ProjectKey string
	// IssueID is the numeric part (e.g., "123")
	IssueID string
}

// NewIssueKey creates an IssueKey from its two parts
func NewIssueKey(projectKey, issueID string) IssueKey {
	return IssueKey{
		ProjectKey: projectKey,
		IssueID:    issueID,
	}
}

// ParseIssueKey parses a fully-qualified key like "ABC-123"
func ParseIssueKey(s string) (IssueKey, error) {
	match := issuePattern.FindStringSubmatch(s)
	if match == nil {
		return IssueKey{}, &InvalidIssueKeyError{Input: s}
	}
	return NewIssueKey(match[1], match[2]), nil
}

// FullyQualified returns the "PROJECT-123" form
func (k IssueKey) FullyQualified() string {
	return k.ProjectKey + "-" + k.IssueID
}

func (k IssueKey) String() string {
	return k.FullyQualified()
}

// ParseIssueKeys extracts every issue key found in text.
// The result is deduplicated and sorted by fully-qualified key.
func ParseIssueKeys(text string) []IssueKey {
	matches := issuePattern.FindAllStringSubmatch(text, -1)

	keySet := make(map[IssueKey]bool)
	for _, match := range matches {
		keySet[NewIssueKey(match[1], match[2])] = true
	}

	keys := make([]IssueKey, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].FullyQualified() < keys[j].FullyQualified()
	})

	return keys
}

// InvalidIssueKeyError is returned when a string is not a valid issue key
type InvalidIssueKeyError struct {
	Input string
}

func (e *InvalidIssueKeyError) Error() string {
	return "invalid issue key: " + e.Input
}
