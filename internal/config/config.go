// Package config loads the optional TOML file behind `chatwire serve`.
// Only keys present in the file override the defaults, so a partial
// file composes with flag and built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// ServeConfig is the resolved configuration for the serve command.
type ServeConfig struct {
	// ListenAddr is the relay's TCP listen address.
	ListenAddr string
	// OpsAddr serves the HTTP ops surface; empty disables it.
	OpsAddr string
	// GatewayAddr serves the WebSocket gateway; empty disables it.
	GatewayAddr string

	MaxPayload      int
	OutboxDepth     int
	RegisterTimeout time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	LogLevel string
}

// DefaultServeConfig returns the serve command's built-in defaults.
func DefaultServeConfig() ServeConfig {
	return ServeConfig{
		ListenAddr:      ":4040",
		MaxPayload:      protocol.DefaultMaxPayload,
		OutboxDepth:     256,
		RegisterTimeout: 30 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

// fileConfig is the raw TOML shape. Durations are strings in
// time.ParseDuration syntax, or "off" to disable a timeout.
type fileConfig struct {
	Listen          string `toml:"listen"`
	OpsListen       string `toml:"ops_listen"`
	GatewayListen   string `toml:"gateway_listen"`
	MaxPayload      int    `toml:"max_payload"`
	OutboxDepth     int    `toml:"outbox_depth"`
	RegisterTimeout string `toml:"register_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
	LogLevel        string `toml:"log_level"`
}

// LoadServeConfig reads path and overlays its defined keys onto the
// defaults.
func LoadServeConfig(path string) (ServeConfig, error) {
	cfg := DefaultServeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ServeConfig{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("listen") {
		if addr := strings.TrimSpace(raw.Listen); addr != "" {
			cfg.ListenAddr = addr
		}
	}
	if meta.IsDefined("ops_listen") {
		cfg.OpsAddr = strings.TrimSpace(raw.OpsListen)
	}
	if meta.IsDefined("gateway_listen") {
		cfg.GatewayAddr = strings.TrimSpace(raw.GatewayListen)
	}
	if meta.IsDefined("max_payload") {
		if raw.MaxPayload <= 0 {
			return ServeConfig{}, fmt.Errorf("max_payload must be positive, got %d", raw.MaxPayload)
		}
		cfg.MaxPayload = raw.MaxPayload
	}
	if meta.IsDefined("outbox_depth") {
		if raw.OutboxDepth <= 0 {
			return ServeConfig{}, fmt.Errorf("outbox_depth must be positive, got %d", raw.OutboxDepth)
		}
		cfg.OutboxDepth = raw.OutboxDepth
	}
	if meta.IsDefined("register_timeout") {
		d, err := parseDuration(raw.RegisterTimeout)
		if err != nil {
			return ServeConfig{}, fmt.Errorf("parse register_timeout: %w", err)
		}
		cfg.RegisterTimeout = d
	}
	if meta.IsDefined("write_timeout") {
		d, err := parseDuration(raw.WriteTimeout)
		if err != nil {
			return ServeConfig{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.WriteTimeout = d
	}
	if meta.IsDefined("shutdown_timeout") {
		d, err := parseDuration(raw.ShutdownTimeout)
		if err != nil {
			return ServeConfig{}, fmt.Errorf("parse shutdown_timeout: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if meta.IsDefined("log_level") {
		if lvl := strings.TrimSpace(raw.LogLevel); lvl != "" {
			cfg.LogLevel = lvl
		}
	}

	return cfg, nil
}

// parseDuration parses a duration, with "off" disabling the timeout.
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "off") {
		return -1, nil
	}
	return time.ParseDuration(raw)
}
