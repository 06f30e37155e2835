package server

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// Config holds configuration for the relay server.
type Config struct {
	// Addr is the TCP address to listen on (e.g., ":4040" or "localhost:4040").
	// Default: ":4040".
	Addr string

	// Limits

	// MaxPayload is the largest frame payload accepted from a client, in
	// bytes. Frames declaring more are a framing error and close the
	// connection. Values above the wire maximum are clamped.
	// Default: protocol.DefaultMaxPayload (1400).
	MaxPayload int

	// OutboxDepth is the per-session outbox buffer, counted in bursts.
	// A sender enqueueing to a full outbox blocks until the receiver's
	// write loop drains it or the receiver closes.
	// Default: 256.
	OutboxDepth int

	// Timeouts

	// RegisterTimeout is how long a connection may stay unregistered
	// before it is dropped. Negative disables the timeout.
	// Default: 30 seconds.
	RegisterTimeout time.Duration

	// WriteTimeout is the maximum time for a single burst write to a
	// client. A write that exceeds it closes that connection. Negative
	// disables the deadline.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds Shutdown's wait for sessions to finish.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration

	// Observability

	// Logger receives server events. The zero Logger is silent; pass
	// zerolog.Nop() explicitly when that is the intent.
	Logger zerolog.Logger

	// Metrics receives counters and gauges. nil disables recording.
	Metrics *Metrics

	// TracerName names the OpenTelemetry tracer used for dispatch spans.
	// Default: "chatwire".
	TracerName string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":4040",
		MaxPayload:      protocol.DefaultMaxPayload,
		OutboxDepth:     256,
		RegisterTimeout: 30 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Logger:          zerolog.Nop(),
		TracerName:      "chatwire",
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// WithAddr sets the listen address and returns the config for chaining.
func (c *Config) WithAddr(addr string) *Config {
	c.Addr = addr
	return c
}

// WithLogger sets the logger and returns the config for chaining.
func (c *Config) WithLogger(logger zerolog.Logger) *Config {
	c.Logger = logger
	return c
}

// WithMetrics sets the metrics sink and returns the config for chaining.
func (c *Config) WithMetrics(m *Metrics) *Config {
	c.Metrics = m
	return c
}
