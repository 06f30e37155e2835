package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// Gateway accepts WebSocket clients and bridges each one onto its own
// TCP connection to the relay.
type Gateway struct {
	config   *Config
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	httpSrv *http.Server
	bridges map[*bridge]struct{}
	closed  bool

	wg sync.WaitGroup
}

// New creates a gateway from config, filling unset fields from
// DefaultConfig. The caller's config is not modified.
func New(config *Config) *Gateway {
	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.Clone()
	}
	defaults := DefaultConfig()
	if config.Addr == "" {
		config.Addr = defaults.Addr
	}
	if config.Path == "" {
		config.Path = defaults.Path
	}
	if config.RelayAddr == "" {
		config.RelayAddr = defaults.RelayAddr
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = defaults.DialTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if config.MaxPayload <= 0 {
		config.MaxPayload = defaults.MaxPayload
	}
	if config.MaxPayload > protocol.MaxWirePayload {
		config.MaxPayload = protocol.MaxWirePayload
	}
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = defaults.ReadBufferSize
	}
	if config.WriteBufferSize <= 0 {
		config.WriteBufferSize = defaults.WriteBufferSize
	}
	if config.CheckOrigin == nil {
		config.CheckOrigin = defaults.CheckOrigin
	}

	return &Gateway{
		config: config,
		logger: config.Logger.With().Str("component", "gateway").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		bridges: make(map[*bridge]struct{}),
	}
}

// Handler returns the HTTP handler serving the upgrade endpoint. It is
// exposed so the gateway can be mounted into an existing server or an
// httptest one.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get(g.config.Path, g.handleWS)
	return r
}

// ListenAndServe serves upgrades on the configured address until
// Shutdown or Close, then returns ErrGatewayClosed.
func (g *Gateway) ListenAndServe() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrGatewayClosed
	}
	srv := &http.Server{
		Addr:              g.config.Addr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.httpSrv = srv
	g.mu.Unlock()

	g.logger.Info().
		Str("addr", g.config.Addr).
		Str("path", g.config.Path).
		Str("relay", g.config.RelayAddr).
		Msg("gateway listening")

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return ErrGatewayClosed
	}
	return err
}

// Shutdown stops accepting upgrades, closes every bridge, and waits
// for the bridge goroutines, bounded by ctx or the configured
// ShutdownTimeout.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok && g.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.ShutdownTimeout)
		defer cancel()
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	srv := g.httpSrv
	open := make([]*bridge, 0, len(g.bridges))
	for b := range g.bridges {
		open = append(open, b)
	}
	g.mu.Unlock()

	if srv != nil {
		// Upgraded connections are hijacked, so this only flushes
		// plain HTTP traffic and stops the listener.
		_ = srv.Shutdown(ctx)
	}
	for _, b := range open {
		b.shutdown(websocket.CloseGoingAway, "gateway shutdown")
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		g.logger.Info().Msg("gateway stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the gateway down without waiting for bridges to drain.
func (g *Gateway) Close() error {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Shutdown(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handleWS upgrades one request and starts its bridge. The relay is
// dialed before the upgrade so a dead relay surfaces as a plain HTTP
// error instead of an immediately closed WebSocket.
func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		http.Error(w, "gateway is shutting down", http.StatusServiceUnavailable)
		return
	}

	dialTimeout := g.config.DialTimeout
	if dialTimeout < 0 {
		dialTimeout = 0
	}
	tcp, err := net.DialTimeout("tcp", g.config.RelayAddr, dialTimeout)
	if err != nil {
		g.logger.Error().Err(err).Str("relay", g.config.RelayAddr).Msg("relay dial failed")
		http.Error(w, "relay unavailable", http.StatusBadGateway)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		g.logger.Warn().Err(err).Msg("upgrade failed")
		tcp.Close()
		return
	}

	b := newBridge(g, ws, tcp)
	if !g.trackBridge(b) {
		b.shutdown(websocket.CloseGoingAway, "gateway shutdown")
		return
	}
	b.start()
}

// trackBridge records a live bridge, refusing when the gateway is
// closed.
func (g *Gateway) trackBridge(b *bridge) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.bridges[b] = struct{}{}
	return true
}

func (g *Gateway) removeBridge(b *bridge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.bridges, b)
}
