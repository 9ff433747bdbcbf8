package listing

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinker_Link(t *testing.T) {
	l := Linker{Host: "earn.superteam.fun", UTMSource: "telegrambot"}
	assert.Equal(t, "https://earn.superteam.fun/listing/write-a-thread?utm_source=telegrambot", l.Link("write-a-thread"))

	bare := Linker{Host: "example.com"}
	assert.Equal(t, "https://example.com/listing/x", bare.Link("x"))
}

func TestParseSkills(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Skill
	}{
		{"strings", `["Frontend","backend"]`, []Skill{"FRONTEND", "BACKEND"}},
		{"objects", `[{"skills":"Design","subskills":["Figma"]},{"skills":"Content"}]`, []Skill{"DESIGN", "CONTENT"}},
		{"mixed", `["Growth",{"skills":"growth"}]`, []Skill{"GROWTH"}},
		{"null", `null`, []Skill{}},
		{"empty", ``, []Skill{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSkills([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseSkills_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Skill
	}{
		{"object", `{"skills":"Frontend"}`, []Skill{}},
		{"bare string", `"Frontend"`, []Skill{}},
		{"number", `42`, []Skill{}},
		{"not json", `{oops`, []Skill{}},
		{"number entry", `[1,"Frontend"]`, []Skill{"FRONTEND"}},
		{"object without skills", `[{"name":"Design"},"backend"]`, []Skill{"BACKEND"}},
		{"non-string skills field", `[{"skills":["Design"]},{"skills":"Content"}]`, []Skill{"CONTENT"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSkills([]byte(tt.in))
			assert.Error(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawListing_ToListing(t *testing.T) {
	deadline := time.Date(2026, 11, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	raw := rawListing{
		ID:               "b-1",
		Title:            "Build a dashboard",
		Slug:             "build-a-dashboard",
		RewardAmount:     ptr(1500.0),
		Token:            ptr("USDC"),
		CompensationType: "fixed",
		Deadline:         &deadline,
		Skills:           []byte(`["frontend","Design"]`),
		Region:           "india",
		Type:             "bounty",
		SponsorName:      "Acme",
	}

	got, err := raw.toListing(Linker{Host: "earn.superteam.fun", UTMSource: "telegrambot"}, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "b-1", got.ID)
	assert.Equal(t, "Build a dashboard", got.Name)
	assert.Equal(t, "https://earn.superteam.fun/listing/build-a-dashboard?utm_source=telegrambot", got.Link)
	assert.Equal(t, "USDC", got.Token)
	assert.Equal(t, CompensationFixed, got.CompensationType)
	assert.Equal(t, []Skill{"FRONTEND", "DESIGN"}, got.Skills)
	assert.Equal(t, Region("INDIA"), got.Region)
	assert.Equal(t, TypeBounty, got.Type)
	require.NotNil(t, got.Deadline)
	assert.Equal(t, time.UTC, got.Deadline.Location())
	assert.True(t, got.Deadline.Equal(deadline))
}

func TestRawListing_ToListing_RejectsHackathon(t *testing.T) {
	_, err := rawListing{ID: "h-1", Type: "hackathon"}.toListing(Linker{}, discardLogger())
	assert.Error(t, err)
}

func TestRawListing_ToListing_MalformedSkillsKeepListing(t *testing.T) {
	for _, skills := range []string{`[1,"Frontend"]`, `{"skills":"Frontend"}`, `"Frontend"`} {
		t.Run(skills, func(t *testing.T) {
			var logs bytes.Buffer
			raw := rawListing{ID: "x", Slug: "x", Type: "bounty", Skills: []byte(skills)}

			got, err := raw.toListing(Linker{Host: "earn.superteam.fun"}, slog.New(slog.NewJSONHandler(&logs, nil)))
			require.NoError(t, err)
			assert.Equal(t, "x", got.ID)
			assert.Equal(t, TypeBounty, got.Type)
			assert.Contains(t, logs.String(), "ignoring malformed skills")
		})
	}
}

func TestPostgresRepository_ConvertSkipsBadRows(t *testing.T) {
	var logs bytes.Buffer
	repo := &PostgresRepository{
		linker: Linker{Host: "earn.superteam.fun"},
		logger: slog.New(slog.NewJSONHandler(&logs, nil)),
	}

	got := repo.convert([]rawListing{
		{ID: "a", Slug: "a", Type: "bounty", Skills: []byte(`["Design"]`)},
		{ID: "h", Slug: "h", Type: "hackathon"},
		{ID: "b", Slug: "b", Type: "project", Skills: []byte(`"Frontend"`)},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, []Skill{"DESIGN"}, got[0].Skills)
	assert.Equal(t, "b", got[1].ID)
	assert.Empty(t, got[1].Skills)
	assert.Contains(t, logs.String(), `"listing_id":"h"`)
	assert.Contains(t, logs.String(), "skipping listing")
}
