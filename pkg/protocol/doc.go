// Package protocol implements the binary wire protocol spoken between
// chatwire clients and the relay server.
//
// The protocol is a classic length-prefixed TCP framing with a small set
// of tagged packets for registration, message routing, and directory
// listing. It is byte-compatible with the original chat relay wire format,
// so any conforming client can talk to this server and vice versa.
//
// # Design Goals
//
//   - Deterministic framing: Every frame is self-delimiting on a byte stream
//   - Fast encoding/decoding: No reflection, direct byte manipulation
//   - Canonical form: Decoding then re-encoding a conformant packet yields
//     identical bytes, so the relay can forward packets verbatim
//   - Strict on structure, silent on semantics: Structurally broken input
//     fails decoding; semantically invalid input is the caller's problem
//
// # Wire Format
//
// Every frame starts with a 2-byte big-endian length that counts itself:
//
//	┌───────────────────────┬─────────────────────────────────────┐
//	│ Frame Length          │ Payload                             │
//	│ (2 bytes, big-endian, │ (Frame Length - 2 bytes)            │
//	│  includes the prefix) │                                     │
//	└───────────────────────┴─────────────────────────────────────┘
//
// The payload is one packet: a 1-byte tag followed by tag-specific fields.
//
// # Packet Tags
//
//   - Register (1): Client claims a handle
//   - RegisterOk (2): Server accepts the registration
//   - RegisterRejected (3): Handle taken or unusable, connection closes
//   - Broadcast (4): Message to every other registered client
//   - Unicast (5): Message to exactly one destination handle
//   - Multicast (6): Message to 2..9 destination handles
//   - DestUnknown (7): Routing failure notice naming the missing handle
//   - ListRequest (10): Client asks for the handle directory
//   - ListCount (11): First list reply, total entries as uint32
//   - ListEntry (12): One handle per packet, repeated Count times
//   - ListEnd (13): Terminates the list reply
//
// # Field Encodings
//
// Handles are length-prefixed with a single byte:
//
//	[len: uint8][bytes]
//
// A handle is at most 100 bytes. Message text is the remainder of the
// payload terminated by a NUL byte:
//
//	[bytes][0x00]
//
// Text carries no length prefix; decoding takes everything up to the first
// NUL. Counts (unicast and multicast destination counts) are single bytes;
// the list count is a 4-byte big-endian uint32.
//
// # Message Layouts
//
//	Broadcast:  [4][sender handle][text]
//	Unicast:    [5][sender handle][1: uint8][dest handle][text]
//	Multicast:  [6][sender handle][n: uint8][n × dest handle][text]
//
// The destination count byte in a unicast is always 1. Multicast carries
// between 2 and 9 destinations.
//
// # Errors
//
// Frame-level failures (oversize length, invalid header, stream cut
// mid-frame) are fatal for the connection carrying them. Packet-level
// failures (stated lengths exceeding the payload, missing text terminator)
// make only that packet undecodable. The two families are distinguished
// with IsFramingError and errors.Is(err, ErrMalformedPacket).
//
// # Usage Example
//
//	// Encode a broadcast and frame it onto a connection.
//	payload, err := protocol.Encode(&protocol.Broadcast{Sender: "ada", Text: "hello"})
//	if err != nil {
//	    // Handle error
//	}
//	if err := protocol.WriteFrame(conn, payload); err != nil {
//	    // Handle error
//	}
//
//	// Read and decode the next packet from a connection.
//	payload, err := protocol.ReadFrame(conn, protocol.DefaultMaxPayload)
//	if err != nil {
//	    // io.EOF, framing error, or transport error
//	}
//	pkt, err := protocol.Decode(payload)
//
// # File Structure
//
// The package is organized as follows:
//
//   - limits.go: Size limits and protocol constants
//   - errors.go: Sentinel errors and classification helpers
//   - encoder.go: Binary encoder
//   - decoder.go: Binary decoder
//   - frame.go: Length-prefixed framing over io.Reader/io.Writer
//   - packet.go: Packet interface, tags, Encode/Decode dispatch
//   - register.go: Registration packets
//   - message.go: Broadcast, unicast, multicast, routing errors
//   - list.go: Directory listing packets
package protocol
