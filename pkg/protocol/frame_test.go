package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		wantLen int // expected total length including header
	}{
		{
			name:    "empty_payload",
			payload: []byte{},
			wantLen: FrameHeaderLen,
		},
		{
			name:    "single_byte",
			payload: []byte{0x02},
			wantLen: FrameHeaderLen + 1,
		},
		{
			name:    "register",
			payload: []byte{0x01, 0x03, 'a', 'd', 'a'},
			wantLen: FrameHeaderLen + 5,
		},
		{
			name:    "default_limit_payload",
			payload: bytes.Repeat([]byte{0xAB}, DefaultMaxPayload),
			wantLen: FrameHeaderLen + DefaultMaxPayload,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := EncodeFrame(tc.payload)
			if err != nil {
				t.Fatalf("EncodeFrame() error = %v", err)
			}
			if len(encoded) != tc.wantLen {
				t.Errorf("EncodeFrame() length = %d, want %d", len(encoded), tc.wantLen)
			}

			// The prefix counts itself.
			gotLen := int(encoded[0])<<8 | int(encoded[1])
			if gotLen != tc.wantLen {
				t.Errorf("header length = %d, want %d", gotLen, tc.wantLen)
			}

			payload, err := ReadFrame(bytes.NewReader(encoded), 0)
			if err != nil {
				t.Fatalf("ReadFrame() error = %v", err)
			}
			if !bytes.Equal(payload, tc.payload) {
				t.Errorf("ReadFrame() payload = %v, want %v", payload, tc.payload)
			}
		})
	}
}

func TestEncodeFrameLayout(t *testing.T) {
	// Register "ada": total length 7, counted prefix included.
	encoded, err := EncodeFrame([]byte{0x01, 0x03, 'a', 'd', 'a'})
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	want := []byte{0x00, 0x07, 0x01, 0x03, 'a', 'd', 'a'}
	if !bytes.Equal(encoded, want) {
		t.Errorf("EncodeFrame() = %v, want %v", encoded, want)
	}
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte("hello")); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	payload, err := ReadFrame(&buf, 0)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if string(payload) != "hello" {
		t.Errorf("payload = %q, want %q", payload, "hello")
	}
}

func TestAppendFrameBurst(t *testing.T) {
	var burst []byte
	var err error
	payloads := [][]byte{
		{0x0B, 0x00, 0x00, 0x00, 0x02},
		{0x0C, 0x03, 'a', 'd', 'a'},
		{0x0C, 0x03, 'b', 'o', 'b'},
		{0x0D},
	}
	for _, p := range payloads {
		burst, err = AppendFrame(burst, p)
		if err != nil {
			t.Fatalf("AppendFrame() error = %v", err)
		}
	}

	// The burst reads back as consecutive frames in order.
	r := bytes.NewReader(burst)
	for i, want := range payloads {
		got, err := ReadFrame(r, 0)
		if err != nil {
			t.Fatalf("ReadFrame(%d) error = %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d payload = %v, want %v", i, got, want)
		}
	}
	if _, err := ReadFrame(r, 0); err != io.EOF {
		t.Errorf("after burst: got %v, want io.EOF", err)
	}
}

func TestReadFrameEOF(t *testing.T) {
	// A clean close before any header byte is a plain EOF.
	_, err := ReadFrame(bytes.NewReader(nil), 0)
	if err != io.EOF {
		t.Errorf("empty reader: got %v, want io.EOF", err)
	}
}

func TestReadFrameErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		max     int
		wantErr error
	}{
		{
			name:    "header_cut_short",
			data:    []byte{0x00},
			wantErr: ErrFrameTruncated,
		},
		{
			name:    "payload_cut_short",
			data:    []byte{0x00, 0x0A, 0x04, 0x03},
			wantErr: ErrFrameTruncated,
		},
		{
			name:    "zero_length_header",
			data:    []byte{0x00, 0x00},
			wantErr: ErrFrameHeader,
		},
		{
			name:    "length_below_prefix",
			data:    []byte{0x00, 0x01},
			wantErr: ErrFrameHeader,
		},
		{
			name:    "payload_over_default_limit",
			data:    []byte{0x05, 0x7B}, // 1403 total, 1401 payload bytes
			wantErr: ErrFrameTooLarge,
		},
		{
			name:    "payload_over_custom_limit",
			data:    []byte{0x00, 0x0D, 0x04},
			max:     10,
			wantErr: ErrFrameTooLarge,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tc.data), tc.max)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ReadFrame() = %v, want %v", err, tc.wantErr)
			}
			if !IsFramingError(err) {
				t.Errorf("IsFramingError(%v) = false, want true", err)
			}
		})
	}
}

func TestReadFrameLimitClamp(t *testing.T) {
	// A limit above the wire maximum clamps instead of rejecting
	// everything; the biggest representable frame still reads.
	payload := make([]byte, MaxWirePayload)
	encoded, err := EncodeFrame(payload)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}

	got, err := ReadFrame(bytes.NewReader(encoded), MaxFrameLen*2)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if len(got) != MaxWirePayload {
		t.Errorf("payload length = %d, want %d", len(got), MaxWirePayload)
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, MaxWirePayload+1))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("WriteFrame() = %v, want ErrFrameTooLarge", err)
	}
	if buf.Len() != 0 {
		t.Errorf("rejected frame wrote %d bytes", buf.Len())
	}
}

func TestMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	payloads := [][]byte{
		[]byte("frame1"),
		[]byte("frame2"),
		[]byte("frame3"),
	}
	for _, p := range payloads {
		if err := WriteFrame(&buf, p); err != nil {
			t.Fatalf("WriteFrame() error = %v", err)
		}
	}

	reader := bytes.NewReader(buf.Bytes())
	for i, want := range payloads {
		got, err := ReadFrame(reader, 0)
		if err != nil {
			t.Fatalf("ReadFrame(%d) error = %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d: payload = %q, want %q", i, got, want)
		}
	}
}

func BenchmarkEncodeFrame(b *testing.B) {
	payload := make([]byte, 100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = EncodeFrame(payload)
	}
}

func BenchmarkReadFrame(b *testing.B) {
	encoded, _ := EncodeFrame(make([]byte, 100))
	r := bytes.NewReader(encoded)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Reset(encoded)
		_, _ = ReadFrame(r, 0)
	}
}
