package client

import (
	"net"
	"testing"
	"time"

	"github.com/chatwire/chatwire/pkg/protocol"
)

const testWait = 2 * time.Second

// relayConn is the server end of one client connection, driven by a
// test script. Read helpers are silent on connection errors so client
// teardown cannot fail the script goroutine; expectations are asserted
// on the test goroutine via events or packet channels.
type relayConn struct {
	t    *testing.T
	conn net.Conn
}

// recv reads and decodes one packet, or returns nil once the
// connection is gone.
func (rc *relayConn) recv() protocol.Packet {
	rc.conn.SetReadDeadline(time.Now().Add(testWait))
	payload, err := protocol.ReadFrame(rc.conn, protocol.DefaultMaxPayload)
	if err != nil {
		return nil
	}
	pkt, err := protocol.Decode(payload)
	if err != nil {
		rc.t.Errorf("relay: decode: %v", err)
		return nil
	}
	return pkt
}

func (rc *relayConn) send(pkt protocol.Packet) {
	payload, err := protocol.Encode(pkt)
	if err != nil {
		rc.t.Errorf("relay: encode %s: %v", pkt.Type(), err)
		return
	}
	rc.sendPayload(payload)
}

// sendPayload frames an arbitrary payload, bypassing packet encoding.
func (rc *relayConn) sendPayload(payload []byte) {
	rc.conn.SetWriteDeadline(time.Now().Add(testWait))
	_ = protocol.WriteFrame(rc.conn, payload)
}

// sendRaw writes bytes with no framing at all.
func (rc *relayConn) sendRaw(raw []byte) {
	rc.conn.SetWriteDeadline(time.Now().Add(testWait))
	_, _ = rc.conn.Write(raw)
}

// acceptRegister consumes the Register and grants it.
func (rc *relayConn) acceptRegister() string {
	pkt := rc.recv()
	reg, ok := pkt.(*protocol.Register)
	if !ok {
		rc.t.Errorf("relay: want Register, got %T", pkt)
		return ""
	}
	rc.send(&protocol.RegisterOk{})
	return reg.Handle
}

// startRelay listens on a loopback port and runs handler for every
// accepted connection. It returns the address to dial.
func startRelay(t *testing.T, handler func(rc *relayConn)) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { lis.Close() })
	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			go handler(&relayConn{t: t, conn: conn})
		}
	}()
	return lis.Addr().String()
}

// dialTest connects a client to the scripted relay and registers it as
// "alice".
func dialTest(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := Dial(&Config{Addr: addr, Handle: "alice"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// nextEvent waits for the next event from the session.
func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		if !ok {
			t.Fatalf("event channel closed while waiting for an event")
		}
		return ev
	case <-time.After(testWait):
		t.Fatalf("timed out waiting for an event")
	}
	return nil
}

// expectEventsClosed asserts that the event channel closes without
// delivering anything further.
func expectEventsClosed(t *testing.T, c *Client) {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		if ok {
			t.Fatalf("unexpected event %#v, want closed channel", ev)
		}
	case <-time.After(testWait):
		t.Fatalf("event channel still open")
	}
}
