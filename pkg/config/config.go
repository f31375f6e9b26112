// Package config provides configuration loading and management for tiffmerge.
// It handles loading configuration from YAML or TOML files and provides default values.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"tiffmerge/pkg/pixelcodec"
)

// Config represents the application configuration
type Config struct {
	// Directory layout of one batch
	Paths struct {
		// RawDir holds the source TIFF tiles
		RawDir string `yaml:"rawDir" toml:"raw_dir"`

		// ChannelTextDir receives per-channel pixel-text files
		ChannelTextDir string `yaml:"channelTextDir" toml:"channel_text_dir"`

		// ReferenceTextDir receives pixel-text of reference images
		ReferenceTextDir string `yaml:"referenceTextDir" toml:"reference_text_dir"`

		// MergedTextDir receives merged pixel-text files
		MergedTextDir string `yaml:"mergedTextDir" toml:"merged_text_dir"`

		// MergedImageDir receives re-encoded merged TIFFs
		MergedImageDir string `yaml:"mergedImageDir" toml:"merged_image_dir"`
	} `yaml:"paths" toml:"paths"`

	// Decode stage parameters
	Decode struct {
		// ReferenceSuffix marks raw files routed to ReferenceTextDir
		ReferenceSuffix string `yaml:"referenceSuffix" toml:"reference_suffix"`

		// TextSuffix is appended to the raw base name of each pixel-text file
		TextSuffix string `yaml:"textSuffix" toml:"text_suffix"`
	} `yaml:"decode" toml:"decode"`

	// Merge stage parameters
	Merge struct {
		ChannelA string `yaml:"channelA" toml:"channel_a"`
		ChannelB string `yaml:"channelB" toml:"channel_b"`
	} `yaml:"merge" toml:"merge"`

	// Encode stage parameters
	Encode struct {
		// Overflow is applied to merged values above 255: clamp, wrap, or error
		Overflow string `yaml:"overflow" toml:"overflow"`

		// FallbackWidth and FallbackHeight are used for merged files
		// without recorded dimensions; zero disables the fallback
		FallbackWidth  int `yaml:"fallbackWidth" toml:"fallback_width"`
		FallbackHeight int `yaml:"fallbackHeight" toml:"fallback_height"`
	} `yaml:"encode" toml:"encode"`

	// Output parameters
	Output struct {
		// LogLevel is one of trace, debug, info, warn, error
		LogLevel string `yaml:"logLevel" toml:"log_level"`

		// MetricsTextfile, when set, receives Prometheus metrics after each run
		MetricsTextfile string `yaml:"metricsTextfile" toml:"metrics_textfile"`
	} `yaml:"output" toml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Paths.RawDir = filepath.Join("data", "raw_tif_files")
	cfg.Paths.ChannelTextDir = "test_input"
	cfg.Paths.ReferenceTextDir = "test_output"
	cfg.Paths.MergedTextDir = "merged_text"
	cfg.Paths.MergedImageDir = "merged_images"

	cfg.Decode.ReferenceSuffix = "Merge.tif"
	cfg.Decode.TextSuffix = "_pixels"

	cfg.Merge.ChannelA = "CH1"
	cfg.Merge.ChannelB = "CH2"

	cfg.Encode.Overflow = string(pixelcodec.OverflowClamp)

	cfg.Output.LogLevel = "info"

	return cfg
}

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	if c.Merge.ChannelA == "" || c.Merge.ChannelB == "" {
		return fmt.Errorf("both merge channels must be set")
	}
	if c.Merge.ChannelA == c.Merge.ChannelB {
		return fmt.Errorf("merge channels must differ, got %s twice", c.Merge.ChannelA)
	}
	if _, err := pixelcodec.ParseOverflowPolicy(c.Encode.Overflow); err != nil {
		return err
	}
	if c.Encode.FallbackWidth < 0 || c.Encode.FallbackHeight < 0 {
		return fmt.Errorf("fallback dimensions must be non-negative")
	}
	if (c.Encode.FallbackWidth == 0) != (c.Encode.FallbackHeight == 0) {
		return fmt.Errorf("fallback width and height must be set together")
	}
	for name, dir := range map[string]string{
		"rawDir":           c.Paths.RawDir,
		"channelTextDir":   c.Paths.ChannelTextDir,
		"referenceTextDir": c.Paths.ReferenceTextDir,
		"mergedTextDir":    c.Paths.MergedTextDir,
		"mergedImageDir":   c.Paths.MergedImageDir,
	} {
		if dir == "" {
			return fmt.Errorf("paths.%s must be set", name)
		}
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a YAML or TOML file
// If the file doesn't exist, it returns the default configuration.
// The result is not validated; callers apply their overrides first and
// then call Validate.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isTOML(configPath) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML or TOML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
