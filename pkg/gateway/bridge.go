package gateway

import (
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// bridge ties one WebSocket client to one relay connection. Two
// goroutines copy payloads, one per direction; whichever hits an error
// first tears both sides down.
type bridge struct {
	id     string
	gw     *Gateway
	ws     *websocket.Conn
	tcp    net.Conn
	logger zerolog.Logger

	closed atomic.Bool

	framesUp   atomic.Uint64
	framesDown atomic.Uint64
}

func newBridge(g *Gateway, ws *websocket.Conn, tcp net.Conn) *bridge {
	id := uuid.NewString()
	return &bridge{
		id:  id,
		gw:  g,
		ws:  ws,
		tcp: tcp,
		logger: g.logger.With().
			Str("bridge_id", id).
			Str("remote_addr", ws.RemoteAddr().String()).
			Logger(),
	}
}

func (b *bridge) start() {
	// The read limit has gorilla reject oversize messages itself,
	// answering with a 1009 close frame.
	b.ws.SetReadLimit(int64(b.gw.config.MaxPayload))
	b.logger.Info().Msg("bridge opened")
	b.gw.wg.Add(2)
	go b.clientToRelay()
	go b.relayToClient()
}

// clientToRelay frames each binary WebSocket message onto the relay
// connection.
func (b *bridge) clientToRelay() {
	defer b.gw.wg.Done()
	for {
		kind, msg, err := b.ws.ReadMessage()
		if err != nil {
			b.finishClientRead(err)
			return
		}
		if kind != websocket.BinaryMessage {
			b.logger.Debug().Int("kind", kind).Msg("dropping non-binary message")
			continue
		}
		if t := b.gw.config.WriteTimeout; t > 0 {
			b.tcp.SetWriteDeadline(time.Now().Add(t))
		}
		if err := protocol.WriteFrame(b.tcp, msg); err != nil {
			if !b.closed.Load() {
				b.logger.Warn().Err(err).Msg("relay write failed")
			}
			b.shutdown(websocket.CloseInternalServerErr, "relay write failed")
			return
		}
		b.framesUp.Add(1)
	}
}

// relayToClient forwards each relay frame payload as one binary
// WebSocket message.
func (b *bridge) relayToClient() {
	defer b.gw.wg.Done()
	for {
		payload, err := protocol.ReadFrame(b.tcp, b.gw.config.MaxPayload)
		if err != nil {
			b.finishRelayRead(err)
			return
		}
		if t := b.gw.config.WriteTimeout; t > 0 {
			b.ws.SetWriteDeadline(time.Now().Add(t))
		}
		if err := b.ws.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			if !b.closed.Load() {
				b.logger.Warn().Err(err).Msg("client write failed")
			}
			b.shutdown(websocket.CloseNormalClosure, "")
			return
		}
		b.framesDown.Add(1)
	}
}

func (b *bridge) finishClientRead(err error) {
	if b.closed.Load() {
		return
	}
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		b.logger.Debug().Msg("client closed")
	case errors.Is(err, websocket.ErrReadLimit):
		b.logger.Warn().Msg("client message over payload limit")
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		b.logger.Warn().Err(err).Msg("client read failed")
	default:
		b.logger.Debug().Err(err).Msg("client read ended")
	}
	b.shutdown(websocket.CloseNormalClosure, "")
}

func (b *bridge) finishRelayRead(err error) {
	if b.closed.Load() {
		return
	}
	switch {
	case errors.Is(err, io.EOF):
		b.logger.Debug().Msg("relay closed")
		b.shutdown(websocket.CloseNormalClosure, "relay closed")
	case protocol.IsFramingError(err):
		b.logger.Warn().Err(err).Msg("relay framing error")
		b.shutdown(websocket.CloseInternalServerErr, "relay framing error")
	default:
		b.logger.Debug().Err(err).Msg("relay read ended")
		b.shutdown(websocket.CloseNormalClosure, "")
	}
}

// shutdown closes both sides once, sending the client a best-effort
// close frame first.
func (b *bridge) shutdown(code int, reason string) {
	if b.closed.Swap(true) {
		return
	}
	deadline := time.Now().Add(time.Second)
	_ = b.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	b.ws.Close()
	b.tcp.Close()
	b.gw.removeBridge(b)
	b.logger.Info().
		Uint64("frames_up", b.framesUp.Load()).
		Uint64("frames_down", b.framesDown.Load()).
		Msg("bridge closed")
}
