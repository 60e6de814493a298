package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCommitRecord_TrailingNewline(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"hello\n", "hello"},
		{"hello\n\n", "hello\n"},
		{"hello", "hello"},
		{"hello\r\n", "hello"},
		{"", ""},
		{"\n", ""},
		{"line one\nline two\n", "line one\nline two"},
	}

	for _, tt := range tests {
		c := NewCommitRecord("abc", "name", "email", tt.message, 1)
		assert.Equal(t, tt.want, c.Message, "message %q", tt.message)
	}
}

func TestCommitRecord_IsMerge(t *testing.T) {
	assert.False(t, NewCommitRecord("a", "", "", "", 0).IsMerge())
	assert.False(t, NewCommitRecord("a", "", "", "", 1).IsMerge())
	assert.True(t, NewCommitRecord("a", "", "", "", 2).IsMerge())
}

func TestUniqueCommits(t *testing.T) {
	commits := []CommitRecord{
		NewCommitRecord("a", "one", "", "", 1),
		NewCommitRecord("b", "", "", "", 1),
		NewCommitRecord("a", "two", "", "", 1),
	}

	unique := UniqueCommits(commits)
	assert.Len(t, unique, 2)
	assert.Equal(t, "a", unique[0].ID)
	assert.Equal(t, "one", unique[0].CommitterName)
	assert.Equal(t, "b", unique[1].ID)
}
