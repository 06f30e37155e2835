// Package client implements the chatwire client session: dialing a
// relay, registering a handle, sending messages, and consuming the
// server's event stream.
//
// # Lifecycle
//
// Dial connects, sends Register, and waits synchronously for the
// server's verdict. A RegisterOk yields a live *Client; a
// RegisterRejected yields ErrRegistrationRejected (the relay closes the
// connection in that case). After the handshake a single read loop
// turns incoming packets into Events on the Events channel until the
// connection ends, at which point a Disconnected event is emitted and
// the channel is closed.
//
// # Roster Assembly
//
// The list reply arrives as a ListCount frame, one ListEntry per
// handle, and a ListEnd. The read loop holds "awaiting roster" state
// across those frames and emits a single Roster event when ListEnd
// arrives, so consumers never see the sub-protocol.
//
// # Commands
//
// ParseCommand understands the interactive command language:
//
//	%M <handle> <text>              unicast
//	%B <text>                       broadcast
//	%C <n> <h1> ... <hn> <text>     multicast, n in [2,9]
//	%L                              roster request
//
// The command letter is case-insensitive.
//
// # Usage
//
//	c, err := client.Dial(&client.Config{Addr: "localhost:4040", Handle: "alice"})
//	if err != nil { ... }
//	defer c.Close()
//
//	go func() {
//	    for ev := range c.Events() {
//	        switch e := ev.(type) {
//	        case *client.Message:
//	            fmt.Printf("%s: %s\n", e.Sender, e.Text)
//	        case *client.Disconnected:
//	            return
//	        }
//	    }
//	}()
//	c.Broadcast("hello")
package client
