package gateway

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// Config controls the gateway. New fills unset fields from
// DefaultConfig.
type Config struct {
	// Addr is the HTTP listen address for WebSocket upgrades.
	// Default: ":8080".
	Addr string

	// Path is the upgrade endpoint.
	// Default: "/ws".
	Path string

	// RelayAddr is the TCP relay every WebSocket client is bridged to.
	// Default: "127.0.0.1:4040".
	RelayAddr string

	// DialTimeout bounds the relay dial done for each accepted
	// WebSocket connection. Negative disables it.
	// Default: 5s.
	DialTimeout time.Duration

	// WriteTimeout bounds each write on either side of a bridge.
	// Negative disables it.
	// Default: 10s.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds Shutdown when its context has no
	// deadline.
	// Default: 10s.
	ShutdownTimeout time.Duration

	// MaxPayload is the largest packet payload bridged in either
	// direction, in bytes. It should match the relay's limit. Values
	// above the wire maximum are clamped.
	// Default: protocol.DefaultMaxPayload.
	MaxPayload int

	// ReadBufferSize and WriteBufferSize size the WebSocket upgrader's
	// buffers.
	// Default: 1024 each.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin decides whether an upgrade request's origin is
	// acceptable.
	// Default: allow all origins.
	CheckOrigin func(r *http.Request) bool

	// Logger receives gateway and bridge logs. The zero Logger is
	// silent.
	Logger zerolog.Logger
}

// DefaultConfig returns the configuration New falls back on for unset
// fields.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		Path:            "/ws",
		RelayAddr:       "127.0.0.1:4040",
		DialTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxPayload:      protocol.DefaultMaxPayload,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// WithAddr sets the listen address and returns the config for
// chaining.
func (c *Config) WithAddr(addr string) *Config {
	c.Addr = addr
	return c
}

// WithRelayAddr sets the relay address and returns the config for
// chaining.
func (c *Config) WithRelayAddr(addr string) *Config {
	c.RelayAddr = addr
	return c
}

// WithLogger sets the logger and returns the config for chaining.
func (c *Config) WithLogger(logger zerolog.Logger) *Config {
	c.Logger = logger
	return c
}
