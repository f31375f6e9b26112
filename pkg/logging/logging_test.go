package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"off":     zerolog.Disabled,
	}
	for raw, want := range tests {
		got, ok := ParseLevel(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := ParseLevel("")
	assert.False(t, ok)
	_, ok = ParseLevel("loud")
	assert.False(t, ok)
}

func TestProfileDefaults(t *testing.T) {
	runtime := defaultConfig(ProfileRuntime)
	assert.Equal(t, zerolog.InfoLevel, runtime.Level)
	assert.True(t, runtime.Timestamp)
	assert.False(t, runtime.NoColor)

	test := defaultConfig(ProfileTest)
	assert.Equal(t, zerolog.DebugLevel, test.Level)
	assert.False(t, test.Timestamp)
	assert.True(t, test.NoColor)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogJSON, "true")
	t.Setenv(EnvLogNoColor, "nope")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)

	assert.Equal(t, zerolog.ErrorLevel, cfg.Level)
	assert.True(t, cfg.JSON)
	assert.False(t, cfg.NoColor)
}

func TestApplyJSON(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	var buf bytes.Buffer
	Apply(Config{Level: zerolog.InfoLevel, JSON: true, Out: &buf})

	log.Debug().Msg("hidden")
	log.Info().Str("tile_set", "00001").Msg("merged")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"tile_set":"00001"`)
}
