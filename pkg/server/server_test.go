package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatwire/chatwire/pkg/protocol"
)

func TestServeAndShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logger = zerolog.Nop()
	srv := New(cfg)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()

	peer := dialPeer(t, lis.Addr().String())
	peer.register("alice")

	if srv.Addr() == nil {
		t.Fatal("Addr() = nil while serving")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	peer.expectClosed()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrServerClosed) {
			t.Fatalf("Serve returned %v, want ErrServerClosed", err)
		}
	case <-time.After(testWait):
		t.Fatal("Serve did not return after shutdown")
	}

	// Shutdown is idempotent.
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}

func TestServeAfterClose(t *testing.T) {
	srv := New(nil)
	srv.Close()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if err := srv.Serve(lis); !errors.Is(err, ErrServerClosed) {
		t.Fatalf("Serve on closed server: got %v, want ErrServerClosed", err)
	}
}

func TestRegistrationTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RegisterTimeout = 75 * time.Millisecond
	_, addr := startServer(t, cfg)

	t.Run("idle_connection_dropped", func(t *testing.T) {
		peer := dialPeer(t, addr)
		peer.expectSilentClose()
	})

	t.Run("registered_connection_survives", func(t *testing.T) {
		peer := dialPeer(t, addr)
		peer.register("alice")
		time.Sleep(150 * time.Millisecond)

		peer.send(&protocol.ListRequest{})
		if got := peer.recv(); got.Type() != protocol.TypeListCount {
			t.Fatalf("got %v, want ListCount after the registration window", got.Type())
		}
	})
}

func TestOversizeFrameClosesOnlyOffender(t *testing.T) {
	_, addr := startServer(t, nil)

	alice := dialPeer(t, addr)
	bob := dialPeer(t, addr)
	alice.register("alice")
	bob.register("bob")

	// Header declares 1403 bytes total, 1401 of payload, one over the
	// default cap.
	bob.sendRaw([]byte{0x05, 0x7B})
	bob.expectSilentClose()

	// Only the offending connection dies.
	carol := dialPeer(t, addr)
	carol.register("carol")
	alice.send(&protocol.Broadcast{Sender: "alice", Text: "still here"})
	got := carol.recv()
	if b, ok := got.(*protocol.Broadcast); !ok || b.Text != "still here" {
		t.Fatalf("got %#v, want alice's broadcast", got)
	}
}

func TestPeerDisconnectUnregisters(t *testing.T) {
	srv, addr := startServer(t, nil)

	peer := dialPeer(t, addr)
	peer.register("fleeting")
	waitFor(t, func() bool { return srv.Directory().Count() == 1 }, "registration")

	peer.conn.Close()
	waitFor(t, func() bool { return srv.Directory().Count() == 0 }, "handle release")
}

func TestBroadcastFanOutOrdering(t *testing.T) {
	_, addr := startServer(t, nil)

	const peerCount = 5
	const perSender = 20

	peers := make([]*testPeer, peerCount)
	for i := range peers {
		peers[i] = dialPeer(t, addr)
		peers[i].register(fmt.Sprintf("peer%d", i))
	}

	for i, p := range peers {
		for n := 0; n < perSender; n++ {
			p.send(&protocol.Broadcast{
				Sender: fmt.Sprintf("peer%d", i),
				Text:   fmt.Sprintf("%d", n),
			})
		}
	}

	// Every peer receives every other peer's messages, in per-sender
	// order.
	want := (peerCount - 1) * perSender
	for i, p := range peers {
		next := make(map[string]int)
		for n := 0; n < want; n++ {
			got := p.recv()
			b, ok := got.(*protocol.Broadcast)
			if !ok {
				t.Fatalf("peer%d: got %#v, want a broadcast", i, got)
			}
			if b.Sender == fmt.Sprintf("peer%d", i) {
				t.Fatalf("peer%d received its own broadcast", i)
			}
			if seq := fmt.Sprintf("%d", next[b.Sender]); b.Text != seq {
				t.Fatalf("peer%d: from %s got seq %s, want %s", i, b.Sender, b.Text, seq)
			}
			next[b.Sender]++
		}
	}
}
