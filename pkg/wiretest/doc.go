// Package wiretest provides testing helpers for the chat relay.
//
// The wiretest package reduces boilerplate in protocol-level tests by
// starting in-process relays on loopback ports and handing out
// scripted peers with packet assertions built in.
//
// # Quick Start
//
//	func TestBroadcast(t *testing.T) {
//	    relay := wiretest.StartRelay(t)
//
//	    alice := relay.DialPeer()
//	    alice.Register("alice")
//	    bob := relay.DialPeer()
//	    bob.Register("bob")
//
//	    alice.Send(&protocol.Broadcast{Sender: "alice", Text: "hi"})
//	    bob.ExpectBroadcast("alice", "hi")
//	}
//
// # Fluent Relay Builder
//
// The builder allows tuning the relay before starting it:
//
//	relay := wiretest.NewRelay().
//	    WithMaxPayload(64).
//	    WithRegisterTimeout(50 * time.Millisecond).
//	    Start(t)
//
// # Raw Peers and Real Clients
//
// DialPeer returns a scripted peer speaking raw frames, useful for
// driving malformed or hand-built traffic. Client returns a fully
// registered pkg/client session for tests that care about the event
// stream instead of the wire:
//
//	c := relay.Client("carol")
//	c.Broadcast("hello from a real client")
//
// Everything registers cleanup with the test, so nothing needs manual
// teardown.
package wiretest
