package protocol

import "errors"

// Framing errors. Any of these on a connection means the byte stream can
// no longer be trusted and the connection must be closed.
var (
	// ErrFrameTooLarge reports a frame whose declared payload exceeds the
	// reader's configured limit.
	ErrFrameTooLarge = errors.New("protocol: frame exceeds payload limit")

	// ErrFrameHeader reports a length prefix below the minimum of 2.
	ErrFrameHeader = errors.New("protocol: invalid frame header")

	// ErrFrameTruncated reports a stream that ended mid-frame.
	ErrFrameTruncated = errors.New("protocol: stream closed mid-frame")
)

// Packet errors. A malformed packet poisons only itself; the framing layer
// has already delimited it, so the connection remains usable.
var (
	// ErrMalformedPacket reports a payload whose structure does not match
	// its tag. Wrapped errors carry the specific field that failed.
	ErrMalformedPacket = errors.New("protocol: malformed packet")
)

// Validation errors returned when encoding packets with out-of-range fields.
var (
	// ErrHandleEmpty reports an empty handle field.
	ErrHandleEmpty = errors.New("protocol: empty handle")

	// ErrHandleTooLong reports a handle over MaxHandleLen bytes.
	ErrHandleTooLong = errors.New("protocol: handle exceeds 100 bytes")

	// ErrInvalidText reports message text containing a NUL byte, which the
	// wire format cannot represent.
	ErrInvalidText = errors.New("protocol: text contains NUL byte")

	// ErrDestCount reports a destination list outside the legal range for
	// its packet type.
	ErrDestCount = errors.New("protocol: destination count out of range")
)

// IsFramingError reports whether err is a frame-level failure that requires
// closing the connection it occurred on.
func IsFramingError(err error) bool {
	return errors.Is(err, ErrFrameTooLarge) ||
		errors.Is(err, ErrFrameHeader) ||
		errors.Is(err, ErrFrameTruncated)
}
