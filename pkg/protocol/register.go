package protocol

// Register is the first packet a client sends: a claim on a handle.
// The server answers with RegisterOk or RegisterRejected.
type Register struct {
	Handle string
}

// Type returns the wire tag of the packet.
func (r *Register) Type() PacketType { return TypeRegister }

func (r *Register) encodeTo(e *Encoder) error {
	if err := validateHandle(r.Handle); err != nil {
		return err
	}
	e.WriteByte(byte(TypeRegister))
	e.WriteHandle(r.Handle)
	return nil
}

func decodeRegisterFrom(d *Decoder) (Packet, error) {
	h, err := d.ReadHandle()
	if err != nil {
		return nil, err
	}
	if err := d.ExpectEOF(); err != nil {
		return nil, err
	}
	return &Register{Handle: h}, nil
}

// RegisterOk confirms a registration. It carries no fields.
type RegisterOk struct{}

// Type returns the wire tag of the packet.
func (r *RegisterOk) Type() PacketType { return TypeRegisterOk }

func (r *RegisterOk) encodeTo(e *Encoder) error {
	e.WriteByte(byte(TypeRegisterOk))
	return nil
}

// RegisterRejected refuses a registration. The server closes the
// connection after sending it.
type RegisterRejected struct{}

// Type returns the wire tag of the packet.
func (r *RegisterRejected) Type() PacketType { return TypeRegisterRejected }

func (r *RegisterRejected) encodeTo(e *Encoder) error {
	e.WriteByte(byte(TypeRegisterRejected))
	return nil
}
