package protocol

import (
	"bytes"
	"testing"
)

// FuzzDecode tests that decoding arbitrary payloads doesn't panic, and
// that anything decodable and re-encodable settles into a canonical form.
func FuzzDecode(f *testing.F) {
	// Seed with one valid encoding of every packet type.
	seeds := []Packet{
		&Register{Handle: "ada"},
		&RegisterOk{},
		&RegisterRejected{},
		&Broadcast{Sender: "ada", Text: "hello"},
		&Unicast{Sender: "ada", Dest: "bob", Text: "psst"},
		&Multicast{Sender: "ada", Dests: []string{"bob", "cleo"}, Text: "hi"},
		&DestUnknown{Handle: "ghost"},
		&ListRequest{},
		&ListCount{Count: 3},
		&ListEntry{Handle: "ada"},
		&ListEnd{},
	}
	for _, p := range seeds {
		payload, err := Encode(p)
		if err != nil {
			f.Fatalf("seed Encode() error = %v", err)
		}
		f.Add(payload)
	}
	f.Add([]byte{0x63, 0xDE, 0xAD}) // unknown tag

	f.Fuzz(func(t *testing.T, data []byte) {
		pkt, err := Decode(data)
		if err != nil {
			return // Structurally invalid input, that's fine
		}

		// Decoded packets with in-range fields re-encode, and the
		// re-encoding is a fixed point: encode(decode(encode(p))) is
		// byte-identical to encode(p).
		first, err := Encode(pkt)
		if err != nil {
			return // Out-of-range field, encode correctly refuses
		}
		again, err := Decode(first)
		if err != nil {
			t.Fatalf("Decode(re-encoded) error = %v", err)
		}
		second, err := Encode(again)
		if err != nil {
			t.Fatalf("Encode(re-decoded) error = %v", err)
		}
		if !bytes.Equal(first, second) {
			t.Errorf("canonical form unstable: %v then %v", first, second)
		}
	})
}

// FuzzReadFrame tests that framing arbitrary streams doesn't panic.
func FuzzReadFrame(f *testing.F) {
	frame, _ := EncodeFrame([]byte{0x01, 0x03, 'a', 'd', 'a'})
	f.Add(frame)
	f.Add([]byte{0x00, 0x02})
	f.Add([]byte{0x00, 0x00})
	f.Add([]byte{0xFF, 0xFF, 0x01})

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic
		_, _ = ReadFrame(bytes.NewReader(data), 0)
	})
}

// FuzzHandleTextRoundTrip tests field-level encoding symmetry.
func FuzzHandleTextRoundTrip(f *testing.F) {
	f.Add("ada", "hello world")
	f.Add("", "")
	f.Add("bob", "line with spaces and, punctuation!")

	f.Fuzz(func(t *testing.T, handle, text string) {
		if len(handle) > 255 || bytes.IndexByte([]byte(text), 0x00) >= 0 {
			return // Not representable on the wire
		}

		e := NewEncoder()
		e.WriteHandle(handle)
		e.WriteText(text)

		d := NewDecoder(e.Bytes())
		gotHandle, err := d.ReadHandle()
		if err != nil {
			t.Fatalf("ReadHandle() error = %v", err)
		}
		gotText, err := d.ReadText()
		if err != nil {
			t.Fatalf("ReadText() error = %v", err)
		}

		if gotHandle != handle {
			t.Errorf("handle: got %q, want %q", gotHandle, handle)
		}
		if gotText != text {
			t.Errorf("text: got %q, want %q", gotText, text)
		}
		if !d.EOF() {
			t.Errorf("decoder has %d bytes left", d.Remaining())
		}
	})
}
