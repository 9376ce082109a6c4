package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prayer-alerts/config"
)

func TestNewWithWriter_JSONLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("component", "test").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "test", entry["component"])
}

func TestNewWithWriter_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LogConfig{Level: "loud", Format: "json"}, &buf)

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	l := CronLogger{Log: NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, &buf)}

	l.Info("schedule", "entry", 1)
	l.Error(errors.New("boom"), "panic", "job", "dispatch")

	out := buf.String()
	assert.Contains(t, out, `"entry":1`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"job":"dispatch"`)
}
