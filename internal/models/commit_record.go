package models

import "strings"

// CommitRecord contains the commit metadata needed to verify a commit
type CommitRecord struct {
	// ID is the full commit hash
	ID string
	// CommitterName as recorded in the commit
	CommitterName string
	// CommitterEmail as recorded in the commit
	CommitterEmail string
	// Message with a single trailing line terminator removed
	Message string
	// ParentCount is greater than 1 for merge commits
	ParentCount int
}

// NewCommitRecord creates a new CommitRecord.
// One trailing line terminator is stripped from message, nothing else.
func NewCommitRecord(id, committerName, committerEmail, message string, parentCount int) CommitRecord {
	return CommitRecord{
		ID:             id,
		CommitterName:  committerName,
		CommitterEmail: committerEmail,
		Message:        trimTrailingNewline(message),
		ParentCount:    parentCount,
	}
}

// IsMerge returns true if the commit has more than one parent
func (c CommitRecord) IsMerge() bool {
	return c.ParentCount > 1
}

func trimTrailingNewline(s string) string {
	switch {
	case strings.HasSuffix(s, "\r\n"):
		return s[:len(s)-2]
	case strings.HasSuffix(s, "\n"), strings.HasSuffix(s, "\r"):
		return s[:len(s)-1]
	}
	return s
}

// UniqueCommits drops records whose ID was already seen, keeping order
func UniqueCommits(commits []CommitRecord) []CommitRecord {
	seen := make(map[string]bool, len(commits))
	unique := make([]CommitRecord, 0, len(commits))
	for _, c := range commits {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		unique = append(unique, c)
	}
	return unique
}
