package protocol

import (
	"fmt"
	"strings"
)

// PacketType identifies the kind of packet carried in a frame payload.
// The numeric values are the on-wire tag bytes.
type PacketType uint8

const (
	TypeRegister         PacketType = 1  // Client claims a handle
	TypeRegisterOk       PacketType = 2  // Registration accepted
	TypeRegisterRejected PacketType = 3  // Handle taken or unusable
	TypeBroadcast        PacketType = 4  // Message to all other clients
	TypeUnicast          PacketType = 5  // Message to one handle
	TypeMulticast        PacketType = 6  // Message to 2..9 handles
	TypeDestUnknown      PacketType = 7  // Destination handle not registered
	TypeListRequest      PacketType = 10 // Ask for the handle directory
	TypeListCount        PacketType = 11 // Directory size, starts the reply
	TypeListEntry        PacketType = 12 // One directory handle
	TypeListEnd          PacketType = 13 // Terminates the reply
)

// String returns the string representation of the packet type.
func (pt PacketType) String() string {
	switch pt {
	case TypeRegister:
		return "Register"
	case TypeRegisterOk:
		return "RegisterOk"
	case TypeRegisterRejected:
		return "RegisterRejected"
	case TypeBroadcast:
		return "Broadcast"
	case TypeUnicast:
		return "Unicast"
	case TypeMulticast:
		return "Multicast"
	case TypeDestUnknown:
		return "DestUnknown"
	case TypeListRequest:
		return "ListRequest"
	case TypeListCount:
		return "ListCount"
	case TypeListEntry:
		return "ListEntry"
	case TypeListEnd:
		return "ListEnd"
	default:
		return "Unknown"
	}
}

// Packet is one decoded protocol message. Implementations are value
// carriers only; nothing mutates a packet after construction, so a packet
// may be shared across goroutines freely.
//
// The packet set is closed: encodeTo is unexported so that every type the
// relay can route is known to this package.
type Packet interface {
	// Type returns the wire tag of the packet.
	Type() PacketType

	// encodeTo validates the packet's fields and appends tag plus payload.
	encodeTo(e *Encoder) error
}

// Encode validates p and returns its payload bytes: the tag byte followed
// by the tag-specific fields, ready for framing.
func Encode(p Packet) ([]byte, error) {
	e := NewEncoder()
	if err := p.encodeTo(e); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Decode decodes one packet from a frame payload.
//
// Tags this package does not know decode to *Unknown so that future packet
// types pass through without breaking older peers. Structure not matching
// a known tag's layout returns an error wrapping ErrMalformedPacket.
func Decode(payload []byte) (Packet, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedPacket)
	}
	d := NewDecoder(payload[1:])
	switch PacketType(payload[0]) {
	case TypeRegister:
		return decodeRegisterFrom(d)
	case TypeRegisterOk:
		return decodeBare(d, &RegisterOk{})
	case TypeRegisterRejected:
		return decodeBare(d, &RegisterRejected{})
	case TypeBroadcast:
		return decodeBroadcastFrom(d)
	case TypeUnicast:
		return decodeUnicastFrom(d)
	case TypeMulticast:
		return decodeMulticastFrom(d)
	case TypeDestUnknown:
		return decodeDestUnknownFrom(d)
	case TypeListRequest:
		return decodeBare(d, &ListRequest{})
	case TypeListCount:
		return decodeListCountFrom(d)
	case TypeListEntry:
		return decodeListEntryFrom(d)
	case TypeListEnd:
		return decodeBare(d, &ListEnd{})
	default:
		pl := make([]byte, len(payload)-1)
		copy(pl, payload[1:])
		return &Unknown{Tag: payload[0], Payload: pl}, nil
	}
}

// decodeBare finishes decoding a packet that carries nothing but its tag.
func decodeBare(d *Decoder, p Packet) (Packet, error) {
	if err := d.ExpectEOF(); err != nil {
		return nil, err
	}
	return p, nil
}

// Unknown holds a packet with an unrecognized tag. The payload is kept
// verbatim so the packet re-encodes to the exact bytes it arrived as.
type Unknown struct {
	Tag     byte
	Payload []byte
}

// Type returns the wire tag of the packet.
func (u *Unknown) Type() PacketType { return PacketType(u.Tag) }

func (u *Unknown) encodeTo(e *Encoder) error {
	e.WriteByte(u.Tag)
	e.WriteBytes(u.Payload)
	return nil
}

// validateHandle checks a handle field before encoding.
func validateHandle(h string) error {
	if h == "" {
		return ErrHandleEmpty
	}
	if len(h) > MaxHandleLen {
		return fmt.Errorf("%w: %d bytes", ErrHandleTooLong, len(h))
	}
	return nil
}

// validateText checks a text field before encoding.
func validateText(s string) error {
	if strings.IndexByte(s, 0x00) >= 0 {
		return ErrInvalidText
	}
	return nil
}
