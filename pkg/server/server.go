package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// Server is the chat relay: a TCP listener, the handle directory, and
// the set of live sessions.
type Server struct {
	config    *Config
	directory *Directory
	logger    zerolog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	baseCtx   context.Context

	mu       sync.Mutex
	listener net.Listener
	sessions map[string]*Session
	closed   bool

	ready atomic.Bool
	wg    sync.WaitGroup
}

// New creates a Server. A nil config uses DefaultConfig; unset fields
// fall back to their defaults. The caller's config is not modified.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.Clone()
		defaults := DefaultConfig()
		if config.Addr == "" {
			config.Addr = defaults.Addr
		}
		if config.MaxPayload == 0 {
			config.MaxPayload = defaults.MaxPayload
		}
		if config.MaxPayload > protocol.MaxWirePayload {
			config.MaxPayload = protocol.MaxWirePayload
		}
		if config.OutboxDepth == 0 {
			config.OutboxDepth = defaults.OutboxDepth
		}
		if config.RegisterTimeout == 0 {
			config.RegisterTimeout = defaults.RegisterTimeout
		}
		if config.WriteTimeout == 0 {
			config.WriteTimeout = defaults.WriteTimeout
		}
		if config.ShutdownTimeout == 0 {
			config.ShutdownTimeout = defaults.ShutdownTimeout
		}
		if config.TracerName == "" {
			config.TracerName = defaults.TracerName
		}
	}

	return &Server{
		config:    config,
		directory: NewDirectory(),
		logger:    config.Logger.With().Str("component", "server").Logger(),
		metrics:   config.Metrics,
		tracer:    newTracer(config.TracerName),
		baseCtx:   context.Background(),
		sessions:  make(map[string]*Session),
	}
}

// ListenAndServe listens on the configured address and serves until
// Shutdown or Close.
func (srv *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", srv.config.Addr)
	if err != nil {
		return err
	}
	return srv.Serve(lis)
}

// Serve accepts connections on lis until Shutdown or Close. It always
// returns a non-nil error; after a clean shutdown that error is
// ErrServerClosed.
func (srv *Server) Serve(lis net.Listener) error {
	srv.mu.Lock()
	if srv.closed {
		srv.mu.Unlock()
		lis.Close()
		return ErrServerClosed
	}
	srv.listener = lis
	srv.mu.Unlock()

	srv.ready.Store(true)
	srv.logger.Info().Str("addr", lis.Addr().String()).Msg("relay listening")

	for {
		conn, err := lis.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			return err
		}
		s := newSession(srv, conn)
		if !srv.trackSession(s) {
			conn.Close()
			continue
		}
		srv.metrics.ConnOpened()
		s.logger.Debug().Msg("connection accepted")
		s.start()
	}
}

// Addr returns the listener address, or nil before Serve. With a ":0"
// listen address this is how callers learn the bound port.
func (srv *Server) Addr() net.Addr {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Addr()
}

// Directory returns the handle directory.
func (srv *Server) Directory() *Directory {
	return srv.directory
}

// Config returns the server configuration.
func (srv *Server) Config() *Config {
	return srv.config
}

// Shutdown stops accepting connections, closes every session, and waits
// for their goroutines to finish, bounded by ctx and ShutdownTimeout.
func (srv *Server) Shutdown(ctx context.Context) error {
	if t := srv.config.ShutdownTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	srv.stop()

	finished := make(chan struct{})
	go func() {
		srv.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		srv.logger.Info().Msg("relay shutdown complete")
		return nil
	case <-ctx.Done():
		srv.logger.Warn().Msg("relay shutdown timed out")
		return ctx.Err()
	}
}

// Close shuts down immediately without waiting for session goroutines.
func (srv *Server) Close() error {
	srv.stop()
	return nil
}

// stop marks the server closed, closes the listener, and closes every
// session. Idempotent.
func (srv *Server) stop() {
	srv.ready.Store(false)

	srv.mu.Lock()
	if srv.closed {
		srv.mu.Unlock()
		return
	}
	srv.closed = true
	lis := srv.listener
	active := make([]*Session, 0, len(srv.sessions))
	for _, s := range srv.sessions {
		active = append(active, s)
	}
	srv.mu.Unlock()

	if lis != nil {
		lis.Close()
	}
	for _, s := range active {
		s.close("server shutdown")
	}
}

func (srv *Server) trackSession(s *Session) bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.closed {
		return false
	}
	srv.sessions[s.ID] = s
	return true
}

func (srv *Server) removeSession(s *Session) {
	srv.mu.Lock()
	delete(srv.sessions, s.ID)
	srv.mu.Unlock()
}
