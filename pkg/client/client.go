package client

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// Client is a registered chat session. Send methods may be called from
// any goroutine; events arrive on the Events channel.
type Client struct {
	config *Config
	conn   net.Conn
	logger zerolog.Logger

	handle string

	events chan Event
	done   chan struct{}
	closed atomic.Bool

	// wmu serializes frame writes so concurrent sends cannot
	// interleave on the wire.
	wmu sync.Mutex

	framesIn  atomic.Uint64
	framesOut atomic.Uint64
}

// Dial connects to the relay, registers config.Handle, and waits for
// the verdict. It returns ErrRegistrationRejected when the relay turns
// the handle down; the connection is gone in that case.
func Dial(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.Clone()
	}
	defaults := DefaultConfig()
	if config.Addr == "" {
		config.Addr = defaults.Addr
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = defaults.DialTimeout
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.MaxPayload <= 0 {
		config.MaxPayload = defaults.MaxPayload
	}
	if config.MaxPayload > protocol.MaxWirePayload {
		config.MaxPayload = protocol.MaxWirePayload
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaults.EventBuffer
	}

	// Encoding the Register validates the handle before any network
	// traffic happens.
	hello, err := protocol.Encode(&protocol.Register{Handle: config.Handle})
	if err != nil {
		return nil, fmt.Errorf("client: handle %q: %w", config.Handle, err)
	}

	dialTimeout := config.DialTimeout
	if dialTimeout < 0 {
		dialTimeout = 0
	}
	conn, err := net.DialTimeout("tcp", config.Addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", config.Addr, err)
	}

	logger := config.Logger.With().
		Str("component", "client").
		Str("handle", config.Handle).
		Logger()
	if config.ClientID != "" {
		logger = logger.With().Str("client_id", config.ClientID).Logger()
	}

	c := &Client{
		config: config,
		conn:   conn,
		logger: logger,
		handle: config.Handle,
		events: make(chan Event, config.EventBuffer),
		done:   make(chan struct{}),
	}
	if err := c.handshake(hello); err != nil {
		conn.Close()
		return nil, err
	}

	c.logger.Info().Str("addr", config.Addr).Msg("registered")
	go c.readLoop()
	return c, nil
}

// handshake sends the Register and waits for the relay's verdict. The
// relay sends nothing before the verdict, so the first frame settles
// it.
func (c *Client) handshake(hello []byte) error {
	if t := c.config.HandshakeTimeout; t > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(t)); err != nil {
			return fmt.Errorf("client: handshake: %w", err)
		}
	}
	if err := protocol.WriteFrame(c.conn, hello); err != nil {
		return fmt.Errorf("client: handshake: %w", err)
	}
	payload, err := protocol.ReadFrame(c.conn, c.config.MaxPayload)
	if err != nil {
		return fmt.Errorf("client: handshake: %w", err)
	}
	pkt, err := protocol.Decode(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	switch pkt.(type) {
	case *protocol.RegisterOk:
	case *protocol.RegisterRejected:
		return ErrRegistrationRejected
	default:
		return fmt.Errorf("%w: got %s", ErrHandshake, pkt.Type())
	}
	if err := c.conn.SetDeadline(time.Time{}); err != nil {
		return fmt.Errorf("client: handshake: %w", err)
	}
	return nil
}

// Handle returns the handle this session registered.
func (c *Client) Handle() string {
	return c.handle
}

// RemoteAddr returns the relay's address.
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Broadcast sends text to every other registered session.
func (c *Client) Broadcast(text string) error {
	return c.send(&protocol.Broadcast{Sender: c.handle, Text: text})
}

// Unicast sends text to one session by handle. An unknown destination
// comes back asynchronously as a DestinationUnknown event.
func (c *Client) Unicast(dest, text string) error {
	return c.send(&protocol.Unicast{Sender: c.handle, Dest: dest, Text: text})
}

// Multicast sends text to between 2 and 9 sessions by handle. Each
// unknown destination comes back as its own DestinationUnknown event.
func (c *Client) Multicast(dests []string, text string) error {
	return c.send(&protocol.Multicast{Sender: c.handle, Dests: dests, Text: text})
}

// RequestList asks the relay for the roster. The reply arrives as a
// single Roster event.
func (c *Client) RequestList() error {
	return c.send(&protocol.ListRequest{})
}

// Send transmits an already-parsed command.
func (c *Client) Send(cmd *Command) error {
	switch cmd.Kind {
	case CommandBroadcast:
		return c.Broadcast(cmd.Text)
	case CommandUnicast:
		return c.Unicast(cmd.Dests[0], cmd.Text)
	case CommandMulticast:
		return c.Multicast(cmd.Dests, cmd.Text)
	case CommandList:
		return c.RequestList()
	default:
		return fmt.Errorf("%w: kind %d", ErrUnknownCommand, cmd.Kind)
	}
}

// send encodes, frames, and writes one packet. Encoding errors leave
// the session open; write errors close it.
func (c *Client) send(pkt protocol.Packet) error {
	if c.closed.Load() {
		return ErrClosed
	}
	payload, err := protocol.Encode(pkt)
	if err != nil {
		return fmt.Errorf("client: %s: %w", pkt.Type(), err)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed.Load() {
		return ErrClosed
	}
	if t := c.config.WriteTimeout; t > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(t)); err != nil {
			return fmt.Errorf("client: %s: %w", pkt.Type(), err)
		}
	}
	if err := protocol.WriteFrame(c.conn, payload); err != nil {
		c.logger.Warn().Err(err).Str("type", pkt.Type().String()).Msg("write failed")
		c.close()
		return fmt.Errorf("client: %s: %w", pkt.Type(), err)
	}
	c.framesOut.Add(1)
	return nil
}

// Close tears the session down. It is safe to call more than once and
// concurrently with sends and event consumption.
func (c *Client) Close() error {
	c.close()
	return nil
}

func (c *Client) close() {
	if c.closed.Swap(true) {
		return
	}
	close(c.done)
	c.conn.Close()
	c.logger.Info().
		Uint64("frames_in", c.framesIn.Load()).
		Uint64("frames_out", c.framesOut.Load()).
		Msg("session closed")
}
