package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dutycal/internal/model"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Groups, again.Groups)
	assert.Equal(t, cfg.Holidays.Company, again.Holidays.Company)
	assert.Equal(t, cfg.WorkLocations, again.WorkLocations)
	assert.Equal(t, cfg.Templates, again.Templates)
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Normalize()
	require.NoError(t, cfg.Validate())

	loc, err := cfg.Location()
	require.NoError(t, err)

	ranges, err := cfg.GroupRanges(loc)
	require.NoError(t, err)
	require.Len(t, ranges, 4)
	assert.Equal(t, model.GroupID("B"), ranges[1].Group)
	assert.Equal(t, time.Date(2025, 5, 15, 0, 0, 0, 0, loc), ranges[1].Range.From)
	assert.Equal(t, time.Date(2025, 6, 14, 0, 0, 0, 0, loc), ranges[1].Range.To)

	assert.Equal(t, []string{"Dave", "Eve", "Frank"}, cfg.Members()["B"])

	company, err := cfg.CompanyHolidays(loc)
	require.NoError(t, err)
	assert.Len(t, company, 2)

	assert.Equal(t, "在宅", cfg.Schedule()["2025-05-20"])
	assert.Len(t, cfg.TaskTemplates()["銀座"], 2)
}

func TestLoadPartialFileNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
groups:
  - id: X
    from: "2025-01-01"
    to: "2025-12-31"
templates:
  office:
    - id: 1
      label: open up
locations: [office]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, defaultRollover, cfg.Rollover)
	assert.Equal(t, defaultCacheDir, cfg.Holidays.CacheDir)
	assert.Equal(t, model.SessionMorning, cfg.Templates["office"][0].Session)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	cfg.Rollover = "every midnight"
	cfg.FallbackGroup = "Z"
	cfg.Groups = append(cfg.Groups,
		GroupConfig{ID: "A", From: "2025-08-01", To: "2025-08-31"},
		GroupConfig{ID: "E", From: "2025-09-30", To: "2025-09-01"},
		GroupConfig{ID: "F", From: "2025/10/01", To: "2025-10-31"},
	)
	cfg.Holidays.Builtin = "us"
	cfg.Holidays.Company = append(cfg.Holidays.Company, "tomorrow")
	cfg.WorkLocations["2025-05-23"] = "大阪"
	cfg.Templates["新宿"] = append(cfg.Templates["新宿"],
		model.Task{ID: 1, Label: " ", Session: "night"})

	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	joined := verr.Error()
	for _, want := range []string{
		"timezone", "rollover", "fallback_group", `duplicate id "A"`,
		"E: from 2025-09-30 is after to 2025-09-01", "F: from",
		"holidays.builtin", "holidays.company[2]", `unknown location "大阪"`,
		"duplicate id 1", "label is empty", `unknown session "night"`,
	} {
		assert.Contains(t, joined, want)
	}
}

func TestValidateSnapshotAndAuth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Snapshot = &SnapshotConfig{Cron: "*/5 * * * *"}
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot.url")
	assert.Contains(t, err.Error(), "basic_auth")

	cfg.Snapshot.URL = "http://127.0.0.1:3000/board"
	cfg.BasicAuth.Password = "secret"
	cfg.Normalize()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1280, cfg.Snapshot.Width)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("groups: []\n"), 0o600))

	_, err := Load(path)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 1)
}

func TestTaskTemplatesAreDeepCopies(t *testing.T) {
	cfg := DefaultConfig()
	tpl := cfg.TaskTemplates()
	tpl["銀座"][1].Steps[0] = "changed"

	assert.Equal(t, "スクリーンを下ろす", cfg.Templates["銀座"][1].Steps[0])
}
