// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment variables that override the profile defaults
const (
	// EnvLogLevel names a level understood by ParseLevel
	EnvLogLevel   = "TIFFMERGE_LOG_LEVEL"
	// EnvLogNoColor disables ANSI colors in console output
	EnvLogNoColor = "TIFFMERGE_LOG_NOCOLOR"
	// EnvLogJSON switches to one JSON object per line
	EnvLogJSON    = "TIFFMERGE_LOG_JSON"
)

// Profile selects a set of logger defaults
type Profile int

const (
	// ProfileRuntime logs at info with timestamps
	ProfileRuntime Profile = iota
	// ProfileTest logs at debug without color or timestamps
	ProfileTest
)

// Config controls logger output
type Config struct {
	Level     zerolog.Level
	NoColor   bool
	JSON      bool
	Timestamp bool
	Out       io.Writer
}

var configureOnce sync.Once

// ConfigureRuntime installs the runtime profile
func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

// ConfigureTests installs the test profile
func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure installs the global logger once per process
func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := defaultConfig(profile)
		applyEnvOverrides(&cfg)
		Apply(cfg)
	})
}

// Apply replaces the global logger unconditionally
func Apply(cfg Config) {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.TimeOnly,
		}
	}

	// levels are enforced per logger
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	ctx := zerolog.New(out).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	log.Logger = ctx.Logger()
}

// SetLevel adjusts the level of the global logger
func SetLevel(raw string) bool {
	lvl, ok := ParseLevel(raw)
	if ok {
		log.Logger = log.Logger.Level(lvl)
	}
	return ok
}

func defaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, NoColor: true}
	default:
		return Config{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogJSON)); ok {
		cfg.JSON = v
	}
}

// ParseLevel maps a level name to a zerolog level
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
