package server

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// ConnState tracks where a connection is in its lifecycle.
type ConnState uint8

const (
	// StateUnregistered is the initial state. The only packet accepted
	// is Register.
	StateUnregistered ConnState = iota

	// StateRegistered means the session holds a handle in the directory
	// and may route messages.
	StateRegistered

	// StateClosed is terminal.
	StateClosed
)

// String returns a human-readable state name.
func (cs ConnState) String() string {
	switch cs {
	case StateUnregistered:
		return "unregistered"
	case StateRegistered:
		return "registered"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one client connection: two goroutines around a net.Conn.
// The read loop decodes frames and dispatches packets in arrival order;
// the write loop drains the outbox, one Write call per burst.
type Session struct {
	// ID identifies the connection in logs and traces.
	ID string

	// CreatedAt is when the connection was accepted.
	CreatedAt time.Time

	conn net.Conn
	srv  *Server

	// outbox carries pre-framed bursts. A burst is one or more complete
	// frames written back to back, so frames from different bursts never
	// interleave on the wire.
	outbox chan []byte
	done   chan struct{}
	closed atomic.Bool

	mu     sync.Mutex // guards state and handle
	state  ConnState
	handle string

	wmu sync.Mutex // serializes connection writes

	framesIn  atomic.Uint64
	burstsOut atomic.Uint64
	bytesIn   atomic.Uint64
	bytesOut  atomic.Uint64

	logger zerolog.Logger
}

func newSession(srv *Server, conn net.Conn) *Session {
	id := uuid.NewString()
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		conn:      conn,
		srv:       srv,
		outbox:    make(chan []byte, srv.config.OutboxDepth),
		done:      make(chan struct{}),
		logger: srv.logger.With().
			Str("session_id", id).
			Str("remote_addr", conn.RemoteAddr().String()).
			Logger(),
	}
}

// start launches the read and write loops.
func (s *Session) start() {
	s.srv.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()
}

// State returns the session's lifecycle state.
func (s *Session) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle returns the registered handle, if any.
func (s *Session) Handle() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle, s.state == StateRegistered
}

func (s *Session) setRegistered(handle string) {
	s.mu.Lock()
	s.state = StateRegistered
	s.handle = handle
	s.mu.Unlock()
}

// enqueue queues a burst for delivery. A full outbox blocks the caller,
// applying backpressure to fast senders; the block is released either by
// the write loop draining or by the session closing.
func (s *Session) enqueue(burst []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	case s.outbox <- burst:
		return nil
	}
}

// writeConn writes one burst under the write mutex. The dispatcher uses
// it directly for RegisterRejected, which must reach the wire before the
// connection closes.
func (s *Session) writeConn(burst []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if t := s.srv.config.WriteTimeout; t > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(t))
	}
	n, err := s.conn.Write(burst)
	s.bytesOut.Add(uint64(n))
	if err == nil {
		s.burstsOut.Add(1)
		s.srv.metrics.WroteBytes(n)
	}
	return err
}

func (s *Session) writeLoop() {
	defer s.srv.wg.Done()

	for {
		select {
		case burst := <-s.outbox:
			if err := s.writeConn(burst); err != nil {
				if !s.closed.Load() {
					s.logger.Debug().Err(err).Msg("burst write failed")
				}
				s.close("write error")
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) readLoop() {
	defer s.srv.wg.Done()

	deadlineArmed := false
	for {
		if s.State() == StateUnregistered {
			if t := s.srv.config.RegisterTimeout; t > 0 {
				s.conn.SetReadDeadline(time.Now().Add(t))
				deadlineArmed = true
			}
		} else if deadlineArmed {
			s.conn.SetReadDeadline(time.Time{})
			deadlineArmed = false
		}

		payload, err := protocol.ReadFrame(s.conn, s.srv.config.MaxPayload)
		if err != nil {
			s.finishRead(err)
			return
		}
		s.framesIn.Add(1)
		s.bytesIn.Add(uint64(len(payload) + protocol.FrameHeaderLen))
		s.srv.metrics.ReadBytes(len(payload) + protocol.FrameHeaderLen)

		pkt, err := protocol.Decode(payload)
		if err != nil {
			// Malformed packets poison only themselves. The frame layer
			// already delimited the stream, so keep reading.
			s.srv.metrics.Dropped(DropMalformed)
			s.logger.Debug().Err(err).Msg("malformed packet dropped")
			continue
		}
		s.srv.dispatch(s, pkt)
	}
}

// finishRead classifies the read loop's exit cause and closes the
// session. A peer disconnect is normal traffic, not an error.
func (s *Session) finishRead(err error) {
	switch {
	case s.closed.Load():
		// Close already in progress; the read error is a side effect.
	case errors.Is(err, io.EOF):
		s.logger.Debug().Msg("peer closed connection")
		s.close("peer closed")
	case protocol.IsFramingError(err):
		s.srv.metrics.Dropped(DropFraming)
		s.logger.Warn().Err(err).Msg("framing error, closing connection")
		s.close("framing error")
	case isTimeout(err) && s.State() == StateUnregistered:
		s.logger.Info().Msg("registration window expired")
		s.close("registration timeout")
	case errors.Is(err, net.ErrClosed):
		s.close("connection closed")
	default:
		s.logger.Debug().Err(err).Msg("read failed")
		s.close("read error")
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Close tears the session down. Safe to call from any goroutine and
// more than once.
func (s *Session) Close() {
	s.close("closed")
}

func (s *Session) close(reason string) {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)
	s.conn.Close()

	s.mu.Lock()
	handle := s.handle
	registered := s.state == StateRegistered
	s.state = StateClosed
	s.mu.Unlock()

	if registered {
		s.srv.directory.Unregister(handle, s)
		s.srv.metrics.HandleCount(s.srv.directory.Count())
	}
	s.srv.removeSession(s)
	s.srv.metrics.ConnClosed()

	s.logger.Info().
		Str("reason", reason).
		Str("handle", handle).
		Uint64("frames_in", s.framesIn.Load()).
		Uint64("bursts_out", s.burstsOut.Load()).
		Uint64("bytes_in", s.bytesIn.Load()).
		Uint64("bytes_out", s.bytesOut.Load()).
		Msg("session closed")
}
