package server

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// newTracer resolves a tracer from the global provider. Unless the host
// process installs a provider the returned tracer is a no-op, so
// dispatch is instrumented unconditionally.
func newTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// startDispatch opens the server-side span for one dispatched packet.
// The caller ends it.
func (srv *Server) startDispatch(s *Session, pkt protocol.Packet) trace.Span {
	_, span := srv.tracer.Start(srv.baseCtx, "relay.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("chatwire.packet_type", pkt.Type().String()),
			attribute.String("chatwire.session_id", s.ID),
		))
	return span
}
