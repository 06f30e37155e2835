package client

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// Config controls a client session. The zero value is usable except for
// Handle, which must be set; Dial fills the remaining fields from
// DefaultConfig.
type Config struct {
	// Addr is the relay address to dial.
	// Default: "127.0.0.1:4040".
	Addr string

	// Handle is the name registered with the relay. Required, 1 to 100
	// bytes.
	Handle string

	// ClientID is an optional caller-chosen identifier carried in log
	// lines. The relay never sees it.
	ClientID string

	// DialTimeout bounds the TCP connect. Negative disables it.
	// Default: 5s.
	DialTimeout time.Duration

	// HandshakeTimeout bounds the wait for the registration verdict.
	// Negative disables it.
	// Default: 10s.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each outgoing frame write. Negative disables
	// it.
	// Default: 10s.
	WriteTimeout time.Duration

	// MaxPayload is the largest frame payload accepted from the relay,
	// in bytes. Values above the wire maximum are clamped.
	// Default: protocol.DefaultMaxPayload.
	MaxPayload int

	// EventBuffer is the capacity of the Events channel.
	// Default: 32.
	EventBuffer int

	// Logger receives session logs. The zero Logger is silent.
	Logger zerolog.Logger
}

// DefaultConfig returns the configuration Dial falls back on for unset
// fields.
func DefaultConfig() *Config {
	return &Config{
		Addr:             "127.0.0.1:4040",
		DialTimeout:      5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxPayload:       protocol.DefaultMaxPayload,
		EventBuffer:      32,
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// WithAddr sets the relay address and returns the config for chaining.
func (c *Config) WithAddr(addr string) *Config {
	c.Addr = addr
	return c
}

// WithHandle sets the handle and returns the config for chaining.
func (c *Config) WithHandle(handle string) *Config {
	c.Handle = handle
	return c
}

// WithLogger sets the logger and returns the config for chaining.
func (c *Config) WithLogger(logger zerolog.Logger) *Config {
	c.Logger = logger
	return c
}
