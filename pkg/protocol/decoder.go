package protocol

import (
	"bytes"
	"fmt"
	"io"
)

// Decoder is a binary decoder that reads from a byte buffer.
//
// Structural failures (a stated length exceeding the remaining buffer, a
// missing text terminator) return errors wrapping ErrMalformedPacket.
// The decoder does not enforce semantic limits such as MaxHandleLen;
// those belong to the layer that knows what the field means.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new decoder from the given byte slice.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF returns true if all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// Position returns the current read position.
func (d *Decoder) Position() int {
	return d.pos
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, fmt.Errorf("%w: %v", ErrMalformedPacket, io.ErrUnexpectedEOF)
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes and returns them.
// The returned slice references the decoder's buffer; do not modify.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPacket, io.ErrUnexpectedEOF)
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadUint32 reads a uint32 in big-endian byte order.
func (d *Decoder) ReadUint32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, fmt.Errorf("%w: %v", ErrMalformedPacket, io.ErrUnexpectedEOF)
	}
	v := uint32(d.buf[d.pos])<<24 | uint32(d.buf[d.pos+1])<<16 |
		uint32(d.buf[d.pos+2])<<8 | uint32(d.buf[d.pos+3])
	d.pos += 4
	return v, nil
}

// ReadHandle reads a handle with its single-byte length prefix.
// Only structure is checked: the stated length must fit the remaining
// buffer. Zero-length and over-limit handles decode successfully and are
// judged by the caller.
func (d *Decoder) ReadHandle() (string, error) {
	if d.pos >= len(d.buf) {
		return "", fmt.Errorf("%w: missing handle length", ErrMalformedPacket)
	}
	n := int(d.buf[d.pos])
	if d.pos+1+n > len(d.buf) {
		return "", fmt.Errorf("%w: handle length %d exceeds remaining %d bytes",
			ErrMalformedPacket, n, len(d.buf)-d.pos-1)
	}
	h := string(d.buf[d.pos+1 : d.pos+1+n])
	d.pos += 1 + n
	return h, nil
}

// ReadText reads NUL-terminated message text and consumes the rest of the
// buffer. Bytes between the terminator and the end of the buffer are
// discarded; the original relay ignored them the same way. A payload with
// no terminator is malformed.
func (d *Decoder) ReadText() (string, error) {
	i := bytes.IndexByte(d.buf[d.pos:], 0x00)
	if i < 0 {
		return "", fmt.Errorf("%w: unterminated text", ErrMalformedPacket)
	}
	s := string(d.buf[d.pos : d.pos+i])
	d.pos = len(d.buf)
	return s, nil
}

// ExpectEOF returns an error if unread bytes remain. Packet decoders call
// this last so that trailing garbage after a known layout is rejected
// rather than silently carried along.
func (d *Decoder) ExpectEOF() error {
	if !d.EOF() {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedPacket, d.Remaining())
	}
	return nil
}
