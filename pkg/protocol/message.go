package protocol

import "fmt"

// Broadcast carries message text for every registered client except the
// sender.
//
// Layout: [4][sender handle][text]
type Broadcast struct {
	Sender string
	Text   string
}

// Type returns the wire tag of the packet.
func (b *Broadcast) Type() PacketType { return TypeBroadcast }

func (b *Broadcast) encodeTo(e *Encoder) error {
	if err := validateHandle(b.Sender); err != nil {
		return err
	}
	if err := validateText(b.Text); err != nil {
		return err
	}
	e.WriteByte(byte(TypeBroadcast))
	e.WriteHandle(b.Sender)
	e.WriteText(b.Text)
	return nil
}

func decodeBroadcastFrom(d *Decoder) (Packet, error) {
	sender, err := d.ReadHandle()
	if err != nil {
		return nil, err
	}
	text, err := d.ReadText()
	if err != nil {
		return nil, err
	}
	return &Broadcast{Sender: sender, Text: text}, nil
}

// Unicast carries message text for exactly one destination handle. The
// destination count byte on the wire is always 1.
//
// Layout: [5][sender handle][1: uint8][dest handle][text]
type Unicast struct {
	Sender string
	Dest   string
	Text   string
}

// Type returns the wire tag of the packet.
func (u *Unicast) Type() PacketType { return TypeUnicast }

func (u *Unicast) encodeTo(e *Encoder) error {
	if err := validateHandle(u.Sender); err != nil {
		return err
	}
	if err := validateHandle(u.Dest); err != nil {
		return err
	}
	if err := validateText(u.Text); err != nil {
		return err
	}
	e.WriteByte(byte(TypeUnicast))
	e.WriteHandle(u.Sender)
	e.WriteByte(1)
	e.WriteHandle(u.Dest)
	e.WriteText(u.Text)
	return nil
}

func decodeUnicastFrom(d *Decoder) (Packet, error) {
	sender, err := d.ReadHandle()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if count != 1 {
		return nil, fmt.Errorf("%w: unicast dest count %d", ErrMalformedPacket, count)
	}
	dest, err := d.ReadHandle()
	if err != nil {
		return nil, err
	}
	text, err := d.ReadText()
	if err != nil {
		return nil, err
	}
	return &Unicast{Sender: sender, Dest: dest, Text: text}, nil
}

// Multicast carries message text for 2 to 9 destination handles. Each
// destination resolves independently on the server; one unknown handle
// does not stop delivery to the others.
//
// Layout: [6][sender handle][n: uint8][n × dest handle][text]
type Multicast struct {
	Sender string
	Dests  []string
	Text   string
}

// Type returns the wire tag of the packet.
func (m *Multicast) Type() PacketType { return TypeMulticast }

func (m *Multicast) encodeTo(e *Encoder) error {
	if err := validateHandle(m.Sender); err != nil {
		return err
	}
	if len(m.Dests) < MinMulticastDests || len(m.Dests) > MaxMulticastDests {
		return fmt.Errorf("%w: %d destinations", ErrDestCount, len(m.Dests))
	}
	for _, dest := range m.Dests {
		if err := validateHandle(dest); err != nil {
			return err
		}
	}
	if err := validateText(m.Text); err != nil {
		return err
	}
	e.WriteByte(byte(TypeMulticast))
	e.WriteHandle(m.Sender)
	e.WriteByte(byte(len(m.Dests)))
	for _, dest := range m.Dests {
		e.WriteHandle(dest)
	}
	e.WriteText(m.Text)
	return nil
}

func decodeMulticastFrom(d *Decoder) (Packet, error) {
	sender, err := d.ReadHandle()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	dests := make([]string, count)
	for i := range dests {
		dests[i], err = d.ReadHandle()
		if err != nil {
			return nil, err
		}
	}
	text, err := d.ReadText()
	if err != nil {
		return nil, err
	}
	return &Multicast{Sender: sender, Dests: dests, Text: text}, nil
}

// DestUnknown tells a sender that a destination handle is not registered.
// A multicast with several unknown destinations produces one DestUnknown
// per miss.
//
// Layout: [7][handle]
type DestUnknown struct {
	Handle string
}

// Type returns the wire tag of the packet.
func (du *DestUnknown) Type() PacketType { return TypeDestUnknown }

func (du *DestUnknown) encodeTo(e *Encoder) error {
	if len(du.Handle) > MaxHandleLen {
		return fmt.Errorf("%w: %d bytes", ErrHandleTooLong, len(du.Handle))
	}
	e.WriteByte(byte(TypeDestUnknown))
	e.WriteHandle(du.Handle)
	return nil
}

func decodeDestUnknownFrom(d *Decoder) (Packet, error) {
	h, err := d.ReadHandle()
	if err != nil {
		return nil, err
	}
	if err := d.ExpectEOF(); err != nil {
		return nil, err
	}
	return &DestUnknown{Handle: h}, nil
}
