package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLevelThreshold(t *testing.T) {
	buf := captureLogs(t, LevelWarn)

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn", "year", 2025)
	Error("shown error", errors.New("boom"), "id", "jp")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown warn year=2025")
	assert.Contains(t, out, "[ERROR] shown error err=boom id=jp")
}

func TestKeyValueFormatting(t *testing.T) {
	buf := captureLogs(t, LevelDebug)

	Info("board loaded", "location", "銀座", "label", "two words", 3, "skipped", "dangling")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "location=銀座")
	assert.Contains(t, line, `label="two words"`)
	assert.NotContains(t, line, "skipped")
	assert.NotContains(t, line, "dangling")
}
