package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mael-bomane/earn-bot/internal/build"
	"github.com/mael-bomane/earn-bot/internal/config"
	"github.com/mael-bomane/earn-bot/internal/listing"
	"github.com/mael-bomane/earn-bot/internal/storage"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		Env:          "test",
		DataDir:      t.TempDir(),
		Port:         3000,
		LogLevel:     "info",
		ListingHost:  "earn.superteam.fun",
		UTMSource:    "telegrambot",
		SweepCron:    "0 0 * * *",
		Retention:    168 * time.Hour,
		SendInterval: 50 * time.Millisecond,
	}
}

func execute(t *testing.T, cfg *config.AppConfig, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(cfg)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, testConfig(t), "version")
	require.NoError(t, err)
	assert.Equal(t, "earn-bot "+build.String()+"\n", out)
}

func TestSubscriberLifecycle(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, cfg, "subscriber", "upsert", "1234", "--username", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "GLOBAL")

	_, err = execute(t, cfg, "subscriber", "set", "1234",
		"--region", "india", "--skills", "backend, design", "--type", "both",
		"--min-reward", "250", "--setup")
	require.NoError(t, err)

	out, err = execute(t, cfg, "subscriber", "show", "1234", "--json")
	require.NoError(t, err)

	var sub storage.Subscriber
	require.NoError(t, json.Unmarshal([]byte(out), &sub))
	assert.Equal(t, int64(1234), sub.ID)
	assert.Equal(t, "alice", sub.Username)
	assert.Equal(t, listing.Region("INDIA"), sub.Region)
	assert.Equal(t, []listing.Skill{"BACKEND", "DESIGN"}, sub.Skills)
	assert.Equal(t, storage.PreferenceBoth, sub.NotificationType)
	assert.InDelta(t, 250.0, sub.MinReward, 0.001)
	assert.True(t, sub.Setup)

	out, err = execute(t, cfg, "subscriber", "delete", "1234")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted subscriber 1234")

	_, err = execute(t, cfg, "subscriber", "show", "1234")
	require.ErrorIs(t, err, storage.ErrSubscriberNotFound)
}

func TestSubscriberSetRejectsBadInput(t *testing.T) {
	cfg := testConfig(t)
	_, err := execute(t, cfg, "subscriber", "upsert", "7")
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no flags", nil, "nothing to update"},
		{"unknown region", []string{"--region", "atlantis"}, `unknown region "atlantis"`},
		{"unknown skill", []string{"--skills", "juggling"}, `unknown skill "JUGGLING"`},
		{"unknown type", []string{"--type", "hackathon"}, "unknown notification preference"},
		{"negative reward", []string{"--min-reward", "-5"}, "must not be negative"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"subscriber", "set", "7"}, tc.args...)
			_, err := execute(t, cfg, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSubscriberSetMissingSubscriber(t *testing.T) {
	_, err := execute(t, testConfig(t), "subscriber", "set", "99", "--setup")
	require.ErrorIs(t, err, storage.ErrSubscriberNotFound)
}

func TestSubscriberInvalidChatID(t *testing.T) {
	_, err := execute(t, testConfig(t), "subscriber", "show", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid chat id "abc"`)
}

func TestRunSweepOnEmptyDatabase(t *testing.T) {
	out, err := execute(t, testConfig(t), "run", "sweep")
	require.NoError(t, err)
	assert.Equal(t, "purged 0 sent notification(s)\n", out)
}

func TestRunRequiresCollaboratorConfig(t *testing.T) {
	cfg := testConfig(t)

	_, err := execute(t, cfg, "run", "detect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")

	_, err = execute(t, cfg, "run", "deliver")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN is required")
}
