package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convo-chat/convo/internal/auth"
	"github.com/convo-chat/convo/internal/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "--secret", "cli-secret", "--user-id", "user-1", "--username", "alice")
	require.NoError(t, err)

	p, err := auth.NewVerifier("cli-secret").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "alice", p.Username)
}

func TestTokenCommandNeedsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := run(t, "token", "--user-id", "user-1", "--username", "alice")
	assert.Error(t, err)
}

func TestRoomsAndMessages(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "convo.db")
	base := []string{"--driver", "sqlite", "--dsn", dsn, "--migrate"}

	out, err := run(t, append(base, "rooms", "create", "user-1", "alice")...)
	require.NoError(t, err)
	var room models.Room
	require.NoError(t, json.Unmarshal([]byte(out), &room))
	assert.Equal(t, "alice", room.Username)

	_, err = run(t, append(base, "rooms", "create", "user-1", "alice")...)
	assert.EqualError(t, err, "room already exists for this user")

	out, err = run(t, append(base, "rooms", "show", room.ID)...)
	require.NoError(t, err)
	assert.Contains(t, out, room.ID)

	out, err = run(t, append(base, "messages", "list", room.ID, "--items-per-page", "5")...)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}
