package protocol

// ListRequest asks the server for the current handle directory. The reply
// is one ListCount, Count ListEntry packets, then one ListEnd, delivered
// as an unbroken burst.
type ListRequest struct{}

// Type returns the wire tag of the packet.
func (l *ListRequest) Type() PacketType { return TypeListRequest }

func (l *ListRequest) encodeTo(e *Encoder) error {
	e.WriteByte(byte(TypeListRequest))
	return nil
}

// ListCount opens a directory reply with the number of entries to follow.
//
// Layout: [11][count: uint32 big-endian]
type ListCount struct {
	Count uint32
}

// Type returns the wire tag of the packet.
func (l *ListCount) Type() PacketType { return TypeListCount }

func (l *ListCount) encodeTo(e *Encoder) error {
	e.WriteByte(byte(TypeListCount))
	e.WriteUint32(l.Count)
	return nil
}

func decodeListCountFrom(d *Decoder) (Packet, error) {
	count, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	if err := d.ExpectEOF(); err != nil {
		return nil, err
	}
	return &ListCount{Count: count}, nil
}

// ListEntry carries one registered handle of a directory reply.
//
// Layout: [12][handle]
type ListEntry struct {
	Handle string
}

// Type returns the wire tag of the packet.
func (l *ListEntry) Type() PacketType { return TypeListEntry }

func (l *ListEntry) encodeTo(e *Encoder) error {
	if err := validateHandle(l.Handle); err != nil {
		return err
	}
	e.WriteByte(byte(TypeListEntry))
	e.WriteHandle(l.Handle)
	return nil
}

func decodeListEntryFrom(d *Decoder) (Packet, error) {
	h, err := d.ReadHandle()
	if err != nil {
		return nil, err
	}
	if err := d.ExpectEOF(); err != nil {
		return nil, err
	}
	return &ListEntry{Handle: h}, nil
}

// ListEnd closes a directory reply. It carries no fields.
type ListEnd struct{}

// Type returns the wire tag of the packet.
func (l *ListEnd) Type() PacketType { return TypeListEnd }

func (l *ListEnd) encodeTo(e *Encoder) error {
	e.WriteByte(byte(TypeListEnd))
	return nil
}
