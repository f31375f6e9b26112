package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Merge.tif", cfg.Decode.ReferenceSuffix)
	assert.Equal(t, "clamp", cfg.Encode.Overflow)
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("merge:\n  channelA: CH3\n  channelB: CH1\nencode:\n  overflow: wrap\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "CH3", cfg.Merge.ChannelA)
	assert.Equal(t, "CH1", cfg.Merge.ChannelB)
	assert.Equal(t, "wrap", cfg.Encode.Overflow)
	// untouched sections keep defaults
	assert.Equal(t, "test_input", cfg.Paths.ChannelTextDir)
}

func TestLoadConfigTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := []byte("[encode]\noverflow = \"error\"\nfallback_width = 4\nfallback_height = 2\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Encode.Overflow)
	assert.Equal(t, 4, cfg.Encode.FallbackWidth)
	assert.Equal(t, 2, cfg.Encode.FallbackHeight)
}

func TestValidateRejectsLoadedConfig(t *testing.T) {
	tests := map[string]string{
		"same channels":    "merge:\n  channelA: CH1\n  channelB: CH1\n",
		"unknown overflow": "encode:\n  overflow: saturate\n",
		"half fallback":    "encode:\n  fallbackWidth: 3\n",
		"empty dir":        "paths:\n  rawDir: \"\"\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))

			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigLeavesValidationToCaller(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("merge:\n  channelA: CH1\n  channelB: CH1\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Error(t, cfg.Validate())

	cfg.Merge.ChannelB = "CH3"
	assert.NoError(t, cfg.Validate())
}

func TestSaveConfigRoundTrip(t *testing.T) {
	for _, name := range []string{"nested/config.yaml", "nested/config.toml"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, CreateDefaultConfigFile(path))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg, name)
	}
}
