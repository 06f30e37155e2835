// Package logging builds the process's zerolog loggers: console
// output, profile defaults, and environment overrides.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel     = "CHATWIRE_LOG_LEVEL"
	EnvLogTimestamp = "CHATWIRE_LOG_TIMESTAMP"
	EnvLogNoColor   = "CHATWIRE_LOG_NOCOLOR"
)

// Profile selects the defaults a logger starts from; the environment
// can override either profile.
type Profile int

const (
	// ProfileRuntime logs info and above with timestamps.
	ProfileRuntime Profile = iota
	// ProfileTest logs debug and above without timestamps.
	ProfileTest
)

// Config holds the resolved logger settings.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
}

// New builds a console logger writing to out, tagged with the app
// name.
func New(out io.Writer, app string, profile Profile) zerolog.Logger {
	cfg := defaultConfig(profile)
	applyEnvOverrides(&cfg)

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.NoColor,
	}
	ctx := zerolog.New(output).Level(cfg.Level).With().Str("app", app)
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// Init builds the process logger on stdout and installs it as the
// zerolog global.
func Init(app string, profile Profile) zerolog.Logger {
	logger := New(os.Stdout, app, profile)
	log.Logger = logger
	return logger
}

func defaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, Timestamp: false}
	default:
		return Config{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

// ParseLevel maps a level name to a zerolog level. It accepts the
// same names as the CHATWIRE_LOG_LEVEL variable, including the
// "warning" and "off" aliases. ok is false when the name is empty or
// unknown.
func ParseLevel(raw string) (level zerolog.Level, ok bool) {
	return parseLevel(raw)
}

func parseLevel(raw string) (zerolog.Level, bool) {
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
	case "disabled", "disable", "off", "none":
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
