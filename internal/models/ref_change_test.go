package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRefChange_Type(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want RefChangeType
	}{
		{"create", ZeroHash, "1111111111111111111111111111111111111111", RefAdd},
		{"delete", "1111111111111111111111111111111111111111", ZeroHash, RefDelete},
		{"update", "1111111111111111111111111111111111111111", "2222222222222222222222222222222222222222", RefUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change := NewRefChange("refs/heads/main", tt.from, tt.to)
			assert.Equal(t, tt.want, change.Type)
		})
	}
}

func TestRefChange_Names(t *testing.T) {
	branch := NewRefChange("refs/heads/feature/ABC-1", ZeroHash, "1")
	assert.True(t, branch.IsBranch())
	assert.False(t, branch.IsTag())
	assert.Equal(t, "feature/ABC-1", branch.DisplayID())

	tag := NewRefChange("refs/tags/v1.0", ZeroHash, "1")
	assert.True(t, tag.IsTag())
	assert.False(t, tag.IsBranch())
	assert.Equal(t, "v1.0", tag.DisplayID())
}

func TestParseActorKind(t *testing.T) {
	assert.Equal(t, ActorNormal, ParseActorKind("normal"))
	assert.Equal(t, ActorService, ParseActorKind("service"))
	assert.Equal(t, ActorOther, ParseActorKind("bot"))

	var none *Actor
	assert.False(t, none.IsNormal())
	assert.False(t, none.IsService())
	assert.True(t, NewActor(ActorService, "deploy key", "").IsService())
}
