// Package server implements the chatwire relay: a TCP server that accepts
// framed protocol packets, tracks registered handles, and routes messages
// between connected clients.
//
// # Architecture
//
// Each accepted connection becomes a Session with two goroutines: a read
// loop that decodes frames and dispatches packets strictly in arrival
// order, and a write loop that drains an outbox of pre-framed byte bursts.
// Routing never writes to a peer's connection directly; it enqueues encoded
// bursts onto the peer's outbox, and the peer's own write loop performs the
// single Write call. A burst holds one or more complete frames, so packets
// and multi-frame responses (the list reply) are never interleaved with
// other traffic.
//
//	         ┌──────────────────────────────────────────────────┐
//	         │                     Server                       │
//	         │                                                  │
//	conn ───▶│  Session A ── read loop ──▶ dispatch ──┐         │
//	         │      ▲                                 │         │
//	         │      └── write loop ◀── outbox ◀───────┤         │
//	         │                                        │         │
//	conn ───▶│  Session B ── read loop ──▶ dispatch ──┤         │
//	         │      ▲                                 ▼         │
//	         │      └── write loop ◀── outbox ◀── Directory     │
//	         │                                 (handle ▶ session)│
//	         └──────────────────────────────────────────────────┘
//
// # Connection Lifecycle
//
// A connection starts Unregistered. The first packet must be a Register;
// anything else is a protocol violation and the connection is closed. A
// valid unused handle moves the session to Registered and enters it into
// the Directory; a duplicate, empty, or oversize handle is answered with
// RegisterRejected and the connection is closed. Registered sessions may
// broadcast, unicast, multicast, and request the handle list. Closing a
// session removes its handle from the Directory.
//
// # Trust Boundary
//
// The sender field of every routed packet is derived from the sending
// connection's directory entry, never from the bytes the client supplied.
// Outbound packets are re-encoded with the true handle; for conformant
// clients the re-encoded bytes match the received bytes. Malformed packets
// are dropped and logged without disturbing the connection. Framing errors
// (oversize or truncated frames) close only the offending connection.
//
// # Observability
//
// Metrics (Prometheus) and tracing (OpenTelemetry) are optional: a nil
// *Metrics records nothing, and tracing uses the global tracer provider,
// which is a no-op unless the host process installs one. OpsHandler serves
// /healthz, /readyz, /metrics, and /v1/handles for a sidecar HTTP listener.
//
// # Usage
//
//	srv := server.New(&server.Config{Addr: ":4040"})
//	if err := srv.ListenAndServe(); err != nil {
//	    log.Fatal().Err(err).Msg("relay failed")
//	}
//
// # File Structure
//
//	config.go      Config defaults and cloning
//	errors.go      sentinel errors
//	directory.go   handle registry with atomic claim
//	session.go     per-connection state and I/O loops
//	dispatcher.go  packet routing rules
//	server.go      listener, accept loop, shutdown
//	metrics.go     Prometheus collectors
//	trace.go       OpenTelemetry dispatch spans
//	ops.go         HTTP ops endpoints
package server
