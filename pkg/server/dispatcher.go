package server

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// Drop reasons recorded on the packets_dropped_total counter.
const (
	DropMalformed    = "malformed"
	DropFraming      = "framing"
	DropUnregistered = "unregistered"
	DropBadDest      = "bad_dest"
	DropDestCount    = "dest_count"
	DropServerOnly   = "server_only"
	DropUnknownTag   = "unknown_tag"
	DropClosed       = "session_closed"
)

// dispatch applies the connection state machine to one decoded packet.
// It runs on the session's read loop, so packets from one connection are
// handled strictly in arrival order.
func (srv *Server) dispatch(s *Session, pkt protocol.Packet) {
	start := time.Now()
	span := srv.startDispatch(s, pkt)
	defer span.End()

	switch p := pkt.(type) {
	case *protocol.Register:
		srv.handleRegister(s, p, span)
	case *protocol.Broadcast:
		srv.routeBroadcast(s, p, span)
	case *protocol.Unicast:
		srv.routeUnicast(s, p, span)
	case *protocol.Multicast:
		srv.routeMulticast(s, p, span)
	case *protocol.ListRequest:
		srv.serveList(s, span)
	case *protocol.Unknown:
		// Unknown tags pass through decode for forward compatibility
		// and are ignored here.
		srv.metrics.Dropped(DropUnknownTag)
		s.logger.Debug().Uint8("tag", p.Tag).Msg("unknown packet tag ignored")
	default:
		// Server-to-client types sent by a client carry no meaning.
		srv.metrics.Dropped(DropServerOnly)
		s.logger.Debug().Str("type", pkt.Type().String()).Msg("server-only packet ignored")
	}

	srv.metrics.Dispatch(pkt.Type().String(), time.Since(start))
}

// handleRegister runs the registration handshake. Exactly one of
// RegisterOk or RegisterRejected is sent; rejection closes the
// connection.
func (srv *Server) handleRegister(s *Session, p *protocol.Register, span trace.Span) {
	if s.State() != StateUnregistered {
		srv.metrics.Registration("rejected_state")
		span.SetStatus(codes.Error, "register on a registered connection")
		s.logger.Warn().Str("handle", p.Handle).Msg("register on registered connection")
		srv.reject(s)
		return
	}
	if p.Handle == "" || len(p.Handle) > protocol.MaxHandleLen {
		srv.metrics.Registration("rejected_invalid")
		span.SetStatus(codes.Error, "invalid handle")
		s.logger.Warn().Int("handle_len", len(p.Handle)).Msg("invalid handle rejected")
		srv.reject(s)
		return
	}

	welcome, err := frameFor(&protocol.RegisterOk{})
	if err != nil {
		span.SetStatus(codes.Error, "encode failed")
		s.close("internal encode error")
		return
	}

	err = srv.directory.Register(p.Handle, s, func() {
		s.setRegistered(p.Handle)
		// The outbox is empty before registration, so this cannot block
		// while the directory lock is held. Enqueueing under the lock
		// orders RegisterOk ahead of anything routed to the new handle.
		_ = s.enqueue(welcome)
	})
	if err != nil {
		srv.metrics.Registration("rejected_duplicate")
		span.SetStatus(codes.Error, "duplicate handle")
		s.logger.Info().Str("handle", p.Handle).Msg("duplicate handle rejected")
		srv.reject(s)
		return
	}

	// The connection can die mid-registration. close() only clears the
	// directory entry when it observed the registered state, so whichever
	// side runs last removes it.
	if s.closed.Load() {
		srv.directory.Unregister(p.Handle, s)
		return
	}

	srv.metrics.Registration("ok")
	srv.metrics.HandleCount(srv.directory.Count())
	span.SetStatus(codes.Ok, "")
	s.logger.Info().Str("handle", p.Handle).Msg("handle registered")
}

// reject answers RegisterRejected and closes the connection. The write
// is synchronous so the reply reaches the wire before the close.
func (srv *Server) reject(s *Session) {
	if burst, err := frameFor(&protocol.RegisterRejected{}); err == nil {
		_ = s.writeConn(burst)
	}
	s.close("registration rejected")
}

// sender returns the routing identity of s. Routing before registration
// is a protocol violation: the packet is dropped and the connection
// closed.
func (srv *Server) sender(s *Session, typ protocol.PacketType, span trace.Span) (string, bool) {
	handle, ok := s.Handle()
	if !ok {
		srv.metrics.Dropped(DropUnregistered)
		span.SetStatus(codes.Error, "routing before registration")
		s.logger.Warn().Err(ErrNotRegistered).Str("type", typ.String()).Msg("closing connection")
		s.close("unregistered routing")
		return "", false
	}
	return handle, true
}

// checkSender logs a client that stamped a different handle on its
// packet. The directory identity wins either way.
func (s *Session) checkSender(claimed, actual string) {
	if claimed != actual {
		s.srv.metrics.SenderMismatch()
		s.logger.Warn().Str("claimed", claimed).Str("handle", actual).Msg("sender field mismatch, overriding")
	}
}

func (srv *Server) routeBroadcast(s *Session, p *protocol.Broadcast, span trace.Span) {
	handle, ok := srv.sender(s, p.Type(), span)
	if !ok {
		return
	}
	s.checkSender(p.Sender, handle)

	burst, err := frameFor(&protocol.Broadcast{Sender: handle, Text: p.Text})
	if err != nil {
		srv.dropUnroutable(s, span, err)
		return
	}

	delivered := 0
	for _, target := range srv.directory.Others(s) {
		if target.enqueue(burst) != nil {
			srv.metrics.Dropped(DropClosed)
			continue
		}
		delivered++
	}
	srv.metrics.Routed("broadcast", delivered)
	span.SetAttributes(attribute.Int("chatwire.deliveries", delivered))
	span.SetStatus(codes.Ok, "")
}

func (srv *Server) routeUnicast(s *Session, p *protocol.Unicast, span trace.Span) {
	handle, ok := srv.sender(s, p.Type(), span)
	if !ok {
		return
	}
	s.checkSender(p.Sender, handle)

	if len(p.Dest) > protocol.MaxHandleLen {
		srv.dropUnroutable(s, span, protocol.ErrHandleTooLong)
		return
	}
	dest, err := srv.directory.Resolve(p.Dest)
	if err != nil {
		srv.replyDestUnknown(s, p.Dest)
		srv.metrics.DestUnknown()
		span.SetAttributes(attribute.String("chatwire.unknown_dest", p.Dest))
		span.SetStatus(codes.Ok, "")
		return
	}

	burst, err := frameFor(&protocol.Unicast{Sender: handle, Dest: p.Dest, Text: p.Text})
	if err != nil {
		srv.dropUnroutable(s, span, err)
		return
	}
	if dest.enqueue(burst) != nil {
		srv.metrics.Dropped(DropClosed)
		span.SetStatus(codes.Ok, "")
		return
	}
	srv.metrics.Routed("unicast", 1)
	span.SetAttributes(attribute.Int("chatwire.deliveries", 1))
	span.SetStatus(codes.Ok, "")
}

func (srv *Server) routeMulticast(s *Session, p *protocol.Multicast, span trace.Span) {
	handle, ok := srv.sender(s, p.Type(), span)
	if !ok {
		return
	}
	s.checkSender(p.Sender, handle)

	if len(p.Dests) < protocol.MinMulticastDests || len(p.Dests) > protocol.MaxMulticastDests {
		srv.metrics.Dropped(DropDestCount)
		span.SetStatus(codes.Error, "destination count out of range")
		s.logger.Debug().Int("dests", len(p.Dests)).Msg("multicast destination count out of range")
		return
	}
	for _, dest := range p.Dests {
		// The forwarded copy embeds the full destination list, so every
		// destination must be encodable even if it never registered.
		// Unicast misses never face this: the dest is not re-encoded.
		if dest == "" {
			srv.dropUnroutable(s, span, protocol.ErrHandleEmpty)
			return
		}
		if len(dest) > protocol.MaxHandleLen {
			srv.dropUnroutable(s, span, protocol.ErrHandleTooLong)
			return
		}
	}

	burst, err := frameFor(&protocol.Multicast{Sender: handle, Dests: p.Dests, Text: p.Text})
	if err != nil {
		srv.dropUnroutable(s, span, err)
		return
	}

	delivered, misses := 0, 0
	for _, destHandle := range p.Dests {
		dest, err := srv.directory.Resolve(destHandle)
		if err != nil {
			srv.replyDestUnknown(s, destHandle)
			srv.metrics.DestUnknown()
			misses++
			continue
		}
		if dest.enqueue(burst) != nil {
			srv.metrics.Dropped(DropClosed)
			continue
		}
		delivered++
	}
	srv.metrics.Routed("multicast", delivered)
	span.SetAttributes(
		attribute.Int("chatwire.deliveries", delivered),
		attribute.Int("chatwire.unknown_dests", misses),
	)
	span.SetStatus(codes.Ok, "")
}

// serveList answers with the full roster as one burst: ListCount, one
// ListEntry per handle, ListEnd. A single directory snapshot feeds the
// burst and its frames are written back to back, so the reply is atomic
// from the client's point of view.
func (srv *Server) serveList(s *Session, span trace.Span) {
	if _, ok := srv.sender(s, protocol.TypeListRequest, span); !ok {
		return
	}

	handles := srv.directory.Snapshot()
	burst, err := listBurst(handles)
	if err != nil {
		srv.dropUnroutable(s, span, err)
		return
	}
	if s.enqueue(burst) != nil {
		srv.metrics.Dropped(DropClosed)
		return
	}
	srv.metrics.ListServed()
	span.SetAttributes(attribute.Int("chatwire.roster_size", len(handles)))
	span.SetStatus(codes.Ok, "")
}

// replyDestUnknown tells the sender that dest is not registered. The
// reply rides the outbox like any routed packet.
func (srv *Server) replyDestUnknown(s *Session, dest string) {
	burst, err := frameFor(&protocol.DestUnknown{Handle: dest})
	if err != nil {
		return
	}
	if s.enqueue(burst) != nil {
		srv.metrics.Dropped(DropClosed)
	}
}

// dropUnroutable records a packet whose routing fields parse but cannot
// be forwarded. It degrades to a dropped packet, never a closed
// connection.
func (srv *Server) dropUnroutable(s *Session, span trace.Span, err error) {
	srv.metrics.Dropped(DropBadDest)
	span.SetStatus(codes.Error, "unroutable packet")
	s.logger.Debug().Err(err).Msg("unroutable packet dropped")
}

// frameFor encodes a packet and wraps it in a single frame.
func frameFor(p protocol.Packet) ([]byte, error) {
	payload, err := protocol.Encode(p)
	if err != nil {
		return nil, err
	}
	return protocol.EncodeFrame(payload)
}

// listBurst builds the list reply frames into one contiguous burst.
func listBurst(handles []string) ([]byte, error) {
	payload, err := protocol.Encode(&protocol.ListCount{Count: uint32(len(handles))})
	if err != nil {
		return nil, err
	}
	burst, err := protocol.AppendFrame(nil, payload)
	if err != nil {
		return nil, err
	}
	for _, h := range handles {
		if payload, err = protocol.Encode(&protocol.ListEntry{Handle: h}); err != nil {
			return nil, err
		}
		if burst, err = protocol.AppendFrame(burst, payload); err != nil {
			return nil, err
		}
	}
	if payload, err = protocol.Encode(&protocol.ListEnd{}); err != nil {
		return nil, err
	}
	return protocol.AppendFrame(burst, payload)
}
