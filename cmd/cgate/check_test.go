package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wahlandcase/commitgate/internal/models"
)

func TestParseRefUpdates(t *testing.T) {
	input := strings.Join([]string{
		models.ZeroHash + " 1111111111111111111111111111111111111111 refs/heads/feature",
		"",
		"1111111111111111111111111111111111111111 2222222222222222222222222222222222222222 refs/heads/main",
		"2222222222222222222222222222222222222222 " + models.ZeroHash + " refs/tags/old",
	}, "\n")

	changes, err := parseRefUpdates(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, changes, 3)

	assert.Equal(t, "refs/heads/feature", changes[0].RefID)
	assert.Equal(t, models.RefAdd, changes[0].Type)
	assert.Equal(t, models.RefUpdate, changes[1].Type)
	assert.Equal(t, "2222222222222222222222222222222222222222", changes[1].ToHash)
	assert.Equal(t, models.RefDelete, changes[2].Type)
}

func TestParseRefUpdates_Malformed(t *testing.T) {
	_, err := parseRefUpdates(strings.NewReader("abc refs/heads/main\n"))
	assert.ErrorContains(t, err, "line 1")
}

func TestCheckOptions_Actor(t *testing.T) {
	t.Run("flags win over environment", func(t *testing.T) {
		t.Setenv(envActorName, "Env User")
		t.Setenv(envActorEmail, "env@example.com")
		t.Setenv(envActorKind, "service")

		opts := &checkOptions{actorName: "Flag User", actorKind: "Normal"}
		assert.Equal(t, models.NewActor(models.ActorNormal, "Flag User", "env@example.com"), opts.actor())
	})

	t.Run("environment only", func(t *testing.T) {
		t.Setenv(envActorName, "Deploy Key")
		t.Setenv(envActorEmail, "")
		t.Setenv(envActorKind, "service")

		assert.Equal(t, models.NewActor(models.ActorService, "Deploy Key", ""), (&checkOptions{}).actor())
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Setenv(envActorName, "Bot")
		t.Setenv(envActorKind, "robot")

		assert.Equal(t, models.ActorOther, (&checkOptions{}).actor().Kind)
	})

	t.Run("no name is unauthenticated", func(t *testing.T) {
		t.Setenv(envActorName, "")
		assert.Nil(t, (&checkOptions{}).actor())
	})
}
