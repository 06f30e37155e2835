package protocol

// Size limits fixed by the wire format.
const (
	// FrameHeaderLen is the size of the length prefix in bytes. The prefix
	// counts itself, so the smallest legal frame length value is 2.
	FrameHeaderLen = 2

	// MaxFrameLen is the largest total frame the 2-byte length prefix can
	// describe (2^16 - 1 bytes, header included).
	MaxFrameLen = 65535

	// MaxWirePayload is the largest payload any frame can carry regardless
	// of configuration.
	MaxWirePayload = MaxFrameLen - FrameHeaderLen

	// DefaultMaxPayload is the payload cap applied when the caller does not
	// configure one. Matches the buffer size of the original relay, so the
	// default refuses anything a legacy peer could not have produced.
	DefaultMaxPayload = 1400

	// MaxHandleLen is the maximum handle length in bytes.
	MaxHandleLen = 100

	// MinMulticastDests and MaxMulticastDests bound the destination count
	// of a multicast packet.
	MinMulticastDests = 2
	MaxMulticastDests = 9
)
