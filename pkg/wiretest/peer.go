package wiretest

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// Peer is a scripted raw connection to the relay. Its helpers fail the
// test on anything unexpected, so scripts read as straight-line
// scenarios.
type Peer struct {
	tb   testing.TB
	conn net.Conn
}

// Conn exposes the underlying connection for tests that need to
// misbehave below the packet layer.
func (p *Peer) Conn() net.Conn {
	return p.conn
}

// Close closes the peer's connection.
func (p *Peer) Close() {
	p.conn.Close()
}

// Send encodes and frames one packet.
func (p *Peer) Send(pkt protocol.Packet) {
	p.tb.Helper()
	payload, err := protocol.Encode(pkt)
	if err != nil {
		p.tb.Fatalf("wiretest: encode %s: %v", pkt.Type(), err)
	}
	p.SendPayload(payload)
}

// SendPayload frames an arbitrary payload, bypassing packet encoding
// and its validation.
func (p *Peer) SendPayload(payload []byte) {
	p.tb.Helper()
	p.conn.SetWriteDeadline(time.Now().Add(DefaultWait))
	if err := protocol.WriteFrame(p.conn, payload); err != nil {
		p.tb.Fatalf("wiretest: write frame: %v", err)
	}
}

// SendRaw writes bytes with no framing at all.
func (p *Peer) SendRaw(raw []byte) {
	p.tb.Helper()
	p.conn.SetWriteDeadline(time.Now().Add(DefaultWait))
	if _, err := p.conn.Write(raw); err != nil {
		p.tb.Fatalf("wiretest: raw write: %v", err)
	}
}

// Recv reads and decodes the next packet.
func (p *Peer) Recv() protocol.Packet {
	p.tb.Helper()
	p.conn.SetReadDeadline(time.Now().Add(DefaultWait))
	payload, err := protocol.ReadFrame(p.conn, protocol.MaxWirePayload)
	if err != nil {
		p.tb.Fatalf("wiretest: read frame: %v", err)
	}
	pkt, err := protocol.Decode(payload)
	if err != nil {
		p.tb.Fatalf("wiretest: decode: %v", err)
	}
	return pkt
}

// Register sends a Register and requires a RegisterOk.
func (p *Peer) Register(handle string) {
	p.tb.Helper()
	p.Send(&protocol.Register{Handle: handle})
	if pkt := p.Recv(); pkt.Type() != protocol.TypeRegisterOk {
		p.tb.Fatalf("wiretest: registration of %q answered with %s", handle, pkt.Type())
	}
}

// ExpectBroadcast requires the next packet to be a broadcast with the
// given sender and text.
func (p *Peer) ExpectBroadcast(sender, text string) {
	p.tb.Helper()
	pkt := p.Recv()
	msg, ok := pkt.(*protocol.Broadcast)
	if !ok {
		p.tb.Fatalf("wiretest: got %s, want a broadcast", pkt.Type())
	}
	if msg.Sender != sender || msg.Text != text {
		p.tb.Fatalf("wiretest: broadcast = %q from %q, want %q from %q",
			msg.Text, msg.Sender, text, sender)
	}
}

// ExpectUnicast requires the next packet to be a unicast with the
// given sender and text.
func (p *Peer) ExpectUnicast(sender, text string) {
	p.tb.Helper()
	pkt := p.Recv()
	msg, ok := pkt.(*protocol.Unicast)
	if !ok {
		p.tb.Fatalf("wiretest: got %s, want a unicast", pkt.Type())
	}
	if msg.Sender != sender || msg.Text != text {
		p.tb.Fatalf("wiretest: unicast = %q from %q, want %q from %q",
			msg.Text, msg.Sender, text, sender)
	}
}

// ExpectDestUnknown requires the next packet to report handle as
// unknown.
func (p *Peer) ExpectDestUnknown(handle string) {
	p.tb.Helper()
	pkt := p.Recv()
	du, ok := pkt.(*protocol.DestUnknown)
	if !ok {
		p.tb.Fatalf("wiretest: got %s, want dest unknown", pkt.Type())
	}
	if du.Handle != handle {
		p.tb.Fatalf("wiretest: dest unknown for %q, want %q", du.Handle, handle)
	}
}

// ExpectRoster requires a complete list reply naming exactly handles,
// in order.
func (p *Peer) ExpectRoster(handles ...string) {
	p.tb.Helper()
	pkt := p.Recv()
	count, ok := pkt.(*protocol.ListCount)
	if !ok {
		p.tb.Fatalf("wiretest: got %s, want a list count", pkt.Type())
	}
	if int(count.Count) != len(handles) {
		p.tb.Fatalf("wiretest: roster count = %d, want %d", count.Count, len(handles))
	}
	for i, want := range handles {
		pkt := p.Recv()
		entry, ok := pkt.(*protocol.ListEntry)
		if !ok {
			p.tb.Fatalf("wiretest: roster entry %d is %s", i, pkt.Type())
		}
		if entry.Handle != want {
			p.tb.Fatalf("wiretest: roster entry %d = %q, want %q", i, entry.Handle, want)
		}
	}
	if pkt := p.Recv(); pkt.Type() != protocol.TypeListEnd {
		p.tb.Fatalf("wiretest: roster terminated with %s", pkt.Type())
	}
}

// ExpectSilence requires that nothing arrives for the given window and
// that the connection stays open.
func (p *Peer) ExpectSilence(d time.Duration) {
	p.tb.Helper()
	p.conn.SetReadDeadline(time.Now().Add(d))
	payload, err := protocol.ReadFrame(p.conn, protocol.MaxWirePayload)
	if err == nil {
		pkt, decodeErr := protocol.Decode(payload)
		if decodeErr != nil {
			p.tb.Fatalf("wiretest: got an undecodable frame during expected silence")
		}
		p.tb.Fatalf("wiretest: got %s during expected silence", pkt.Type())
	}
	var nerr net.Error
	if !errors.As(err, &nerr) || !nerr.Timeout() {
		p.tb.Fatalf("wiretest: connection died during expected silence: %v", err)
	}
}

// ExpectClosed drains remaining traffic and requires the relay to have
// closed the connection.
func (p *Peer) ExpectClosed() {
	p.tb.Helper()
	p.conn.SetReadDeadline(time.Now().Add(DefaultWait))
	for {
		_, err := protocol.ReadFrame(p.conn, protocol.MaxWirePayload)
		if err == nil {
			continue
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			p.tb.Fatalf("wiretest: connection still open, want closed")
		}
		return
	}
}
