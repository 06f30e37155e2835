package wiretest

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatwire/chatwire/pkg/client"
	"github.com/chatwire/chatwire/pkg/server"
)

// DefaultWait bounds every blocking helper in this package.
const DefaultWait = 2 * time.Second

// RelayBuilder allows fluent construction of test relays.
type RelayBuilder struct {
	config *server.Config
}

// NewRelay creates a relay builder with the server defaults.
//
// Example:
//
//	relay := wiretest.NewRelay().WithMaxPayload(64).Start(t)
func NewRelay() *RelayBuilder {
	return &RelayBuilder{config: server.DefaultConfig()}
}

// WithConfig replaces the whole server configuration.
func (b *RelayBuilder) WithConfig(config *server.Config) *RelayBuilder {
	b.config = config
	return b
}

// WithMaxPayload sets the relay's frame payload limit.
func (b *RelayBuilder) WithMaxPayload(n int) *RelayBuilder {
	b.config.MaxPayload = n
	return b
}

// WithRegisterTimeout sets the registration window.
func (b *RelayBuilder) WithRegisterTimeout(d time.Duration) *RelayBuilder {
	b.config.RegisterTimeout = d
	return b
}

// WithLogger sets the relay's logger, silent by default.
func (b *RelayBuilder) WithLogger(logger zerolog.Logger) *RelayBuilder {
	b.config.Logger = logger
	return b
}

// Start launches the relay on a loopback port and registers cleanup
// with the test.
func (b *RelayBuilder) Start(tb testing.TB) *Relay {
	tb.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("wiretest: listen: %v", err)
	}
	srv := server.New(b.config)
	go srv.Serve(lis)
	tb.Cleanup(func() { srv.Close() })
	return &Relay{
		tb:     tb,
		Server: srv,
		Addr:   lis.Addr().String(),
	}
}

// StartRelay is a shorthand for NewRelay().Start(tb).
func StartRelay(tb testing.TB) *Relay {
	tb.Helper()
	return NewRelay().Start(tb)
}

// Relay is an in-process relay listening on a loopback port.
type Relay struct {
	tb     testing.TB
	Server *server.Server
	Addr   string
}

// DialPeer connects a raw scripted peer.
func (r *Relay) DialPeer() *Peer {
	r.tb.Helper()
	conn, err := net.DialTimeout("tcp", r.Addr, DefaultWait)
	if err != nil {
		r.tb.Fatalf("wiretest: dial peer: %v", err)
	}
	r.tb.Cleanup(func() { conn.Close() })
	return &Peer{tb: r.tb, conn: conn}
}

// Client dials and registers a real client session.
func (r *Relay) Client(handle string) *client.Client {
	r.tb.Helper()
	c, err := client.Dial(&client.Config{Addr: r.Addr, Handle: handle})
	if err != nil {
		r.tb.Fatalf("wiretest: client %q: %v", handle, err)
	}
	r.tb.Cleanup(func() { c.Close() })
	return c
}

// Handles returns the relay's current roster.
func (r *Relay) Handles() []string {
	return r.Server.Directory().Snapshot()
}

// WaitForHandles blocks until exactly n handles are registered.
func (r *Relay) WaitForHandles(n int) {
	r.tb.Helper()
	deadline := time.Now().Add(DefaultWait)
	for time.Now().Before(deadline) {
		if r.Server.Directory().Count() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	r.tb.Fatalf("wiretest: directory has %d handles, want %d",
		r.Server.Directory().Count(), n)
}
