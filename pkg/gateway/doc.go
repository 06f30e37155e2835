// Package gateway bridges WebSocket clients onto the TCP relay.
//
// Each accepted WebSocket connection gets its own TCP connection to
// the relay, and the bridge copies packet payloads in both directions
// until either side closes. WebSocket does its own message framing, so
// the 2-byte length prefix of the TCP wire format is not carried over:
// one binary WebSocket message holds exactly one packet payload.
//
// The bridge is a dumb pipe. Registration, routing, and the malformed
// packet taxonomy all stay on the relay; the gateway only enforces the
// payload size limit, since an oversize message could not be framed
// for the TCP side anyway.
//
// # Usage
//
//	gw := gateway.New(&gateway.Config{
//	    Addr:      ":8080",
//	    RelayAddr: "127.0.0.1:4040",
//	})
//	if err := gw.ListenAndServe(); err != nil && !errors.Is(err, gateway.ErrGatewayClosed) {
//	    log.Fatal(err)
//	}
package gateway
