package server

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatwire/chatwire/pkg/protocol"
)

const testWait = 2 * time.Second

// startServer runs a relay on an ephemeral port and returns it with the
// dialable address.
func startServer(t *testing.T, cfg *Config) (*Server, string) {
	t.Helper()

	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Logger = zerolog.Nop()
	srv := New(cfg)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(lis)
	t.Cleanup(func() { srv.Close() })

	return srv, lis.Addr().String()
}

// testPeer is a raw protocol client for driving the relay in tests.
type testPeer struct {
	t    *testing.T
	conn net.Conn
}

func dialPeer(t *testing.T, addr string) *testPeer {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testPeer{t: t, conn: conn}
}

func (p *testPeer) send(pkt protocol.Packet) {
	p.t.Helper()

	payload, err := protocol.Encode(pkt)
	if err != nil {
		p.t.Fatalf("encode %v: %v", pkt.Type(), err)
	}
	if err := protocol.WriteFrame(p.conn, payload); err != nil {
		p.t.Fatalf("write frame: %v", err)
	}
}

// sendPayload frames and sends a hand-built packet payload, bypassing
// encode validation.
func (p *testPeer) sendPayload(payload []byte) {
	p.t.Helper()

	frame, err := protocol.EncodeFrame(payload)
	if err != nil {
		p.t.Fatalf("frame payload: %v", err)
	}
	if _, err := p.conn.Write(frame); err != nil {
		p.t.Fatalf("write: %v", err)
	}
}

func (p *testPeer) sendRaw(raw []byte) {
	p.t.Helper()

	if _, err := p.conn.Write(raw); err != nil {
		p.t.Fatalf("write raw: %v", err)
	}
}

func (p *testPeer) recv() protocol.Packet {
	p.t.Helper()

	p.conn.SetReadDeadline(time.Now().Add(testWait))
	payload, err := protocol.ReadFrame(p.conn, protocol.MaxWirePayload)
	if err != nil {
		p.t.Fatalf("read frame: %v", err)
	}
	pkt, err := protocol.Decode(payload)
	if err != nil {
		p.t.Fatalf("decode: %v", err)
	}
	return pkt
}

func (p *testPeer) register(handle string) {
	p.t.Helper()

	p.send(&protocol.Register{Handle: handle})
	if pkt := p.recv(); pkt.Type() != protocol.TypeRegisterOk {
		p.t.Fatalf("register %q: got %v, want RegisterOk", handle, pkt.Type())
	}
}

// expectSilentClose asserts the server closes the connection without
// sending anything first.
func (p *testPeer) expectSilentClose() {
	p.t.Helper()

	p.conn.SetReadDeadline(time.Now().Add(testWait))
	payload, err := protocol.ReadFrame(p.conn, protocol.MaxWirePayload)
	if err == nil {
		pkt, _ := protocol.Decode(payload)
		p.t.Fatalf("got %v, want closed connection", pkt)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		p.t.Fatal("connection still open, want closed")
	}
}

// expectClosed asserts the connection dies, tolerating packets already
// in flight.
func (p *testPeer) expectClosed() {
	p.t.Helper()

	p.conn.SetReadDeadline(time.Now().Add(testWait))
	for {
		if _, err := protocol.ReadFrame(p.conn, protocol.MaxWirePayload); err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				p.t.Fatal("connection still open, want closed")
			}
			return
		}
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(testWait)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}
