package encoder

import (
	"encoding/binary"
	"testing"
)

func TestWavEncoderHeader(t *testing.T) {
	enc := NewWav()

	block := make([]int16, BlockSize)
	for i := range block {
		block[i] = int16(i % 2000)
	}
	if err := enc.EncodeBlock(block); err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := enc.Bytes()
	if len(out) != wavHeaderSize+len(block)*2 {
		t.Fatalf("len = %d, want %d", len(out), wavHeaderSize+len(block)*2)
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != SampleRate {
		t.Errorf("sample rate = %d, want %d", got, SampleRate)
	}
	if got := binary.LittleEndian.Uint16(out[22:24]); got != Channels {
		t.Errorf("channels = %d, want %d", got, Channels)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != uint32(len(block)*2) {
		t.Errorf("data size = %d, want %d", got, len(block)*2)
	}
	// First sample survives the round trip.
	if got := int16(binary.LittleEndian.Uint16(out[wavHeaderSize+2:])); got != block[1] {
		t.Errorf("sample[1] = %d, want %d", got, block[1])
	}
	if enc.TotalFrames() != uint64(len(block)) {
		t.Errorf("TotalFrames = %d, want %d", enc.TotalFrames(), len(block))
	}
	if enc.MIME() != "audio/wav" {
		t.Errorf("MIME = %q", enc.MIME())
	}
}

func TestWavEncoderCloseIdempotent(t *testing.T) {
	enc := NewWav()
	enc.EncodeBlock([]int16{1, 2, 3})
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	size := len(enc.Bytes())
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if len(enc.Bytes()) != size {
		t.Error("second Close changed the output")
	}
}

func TestNewByFormat(t *testing.T) {
	for _, format := range []string{"wav", "flac"} {
		t.Run(format, func(t *testing.T) {
			enc, err := New(format)
			if err != nil {
				t.Fatalf("New(%q): %v", format, err)
			}
			if enc == nil {
				t.Fatalf("New(%q) returned nil", format)
			}
		})
	}
	t.Run("unknown", func(t *testing.T) {
		if _, err := New("ogg"); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}
