package protocol

import (
	"errors"
	"fmt"
	"io"
)

// Frame layout (2-byte header + variable payload):
//
//	┌───────────────────────┬─────────────────────────────────────┐
//	│ Frame Length          │ Payload                             │
//	│ (2 bytes, big-endian) │ (Frame Length - 2 bytes)            │
//	└───────────────────────┴─────────────────────────────────────┘
//
// The length counts the prefix itself, a quirk inherited from the original
// relay. A frame carrying an empty payload has length 2.

// AppendFrame appends one framed payload to dst and returns the extended
// slice. Multiple frames appended to the same buffer form a burst that can
// be written with a single Write call.
func AppendFrame(dst, payload []byte) ([]byte, error) {
	total := FrameHeaderLen + len(payload)
	if total > MaxFrameLen {
		return dst, fmt.Errorf("%w: payload %d bytes", ErrFrameTooLarge, len(payload))
	}
	dst = append(dst, byte(total>>8), byte(total))
	return append(dst, payload...), nil
}

// EncodeFrame returns the full wire bytes for one framed payload.
func EncodeFrame(payload []byte) ([]byte, error) {
	buf := make([]byte, 0, FrameHeaderLen+len(payload))
	return AppendFrame(buf, payload)
}

// WriteFrame frames payload and writes it to w with a single Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	data, err := EncodeFrame(payload)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadFrame reads one frame from r and returns its payload.
//
// maxPayload bounds the accepted payload size; zero or negative falls back
// to DefaultMaxPayload and anything above MaxWirePayload is clamped. A
// clean stream close before the first header byte returns io.EOF. A close
// inside a frame returns ErrFrameTruncated. A header length below 2
// returns ErrFrameHeader and a payload over the limit returns
// ErrFrameTooLarge; after either the stream position is unrecoverable and
// the connection must be closed.
func ReadFrame(r io.Reader, maxPayload int) ([]byte, error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	} else if maxPayload > MaxWirePayload {
		maxPayload = MaxWirePayload
	}

	var header [FrameHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: inside header", ErrFrameTruncated)
		}
		return nil, err
	}

	total := int(header[0])<<8 | int(header[1])
	if total < FrameHeaderLen {
		return nil, fmt.Errorf("%w: length %d", ErrFrameHeader, total)
	}
	length := total - FrameHeaderLen
	if length > maxPayload {
		return nil, fmt.Errorf("%w: payload %d bytes, limit %d", ErrFrameTooLarge, length, maxPayload)
	}

	payload := make([]byte, length)
	if length > 0 {
		if n, err := io.ReadFull(r, payload); err != nil {
			if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: %d of %d payload bytes", ErrFrameTruncated, n, length)
			}
			return nil, err
		}
	}
	return payload, nil
}
