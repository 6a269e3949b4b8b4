package main

import (
	"math"
	"testing"

	"toneprint/audio"
	"toneprint/encoder"
)

func sinePCM(seconds float64, amplitude float64) []byte {
	n := int(float64(encoder.SampleRate) * seconds)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		s := int16(math.Sin(2*math.Pi*440*float64(i)/float64(encoder.SampleRate)) * amplitude * 32767)
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

func TestRecorderEncodesClip(t *testing.T) {
	ctx := audio.NewFakeContextPCM(sinePCM(1.0, 0.5))

	rec, err := startRecorder(ctx, nil, "wav", nil)
	if err != nil {
		t.Fatalf("startRecorder: %v", err)
	}
	defer rec.release()

	data, mimeType, frames := rec.stop()
	if mimeType != "audio/wav" {
		t.Errorf("mime = %q, want audio/wav", mimeType)
	}
	if frames < uint64(encoder.SampleRate)*9/10 {
		t.Errorf("frames = %d, want about %d", frames, encoder.SampleRate)
	}
	if len(data) <= audio.WAVHeaderSize {
		t.Fatalf("encoded clip too small: %d bytes", len(data))
	}
	if string(data[:4]) != "RIFF" {
		t.Errorf("missing RIFF header, got %q", data[:4])
	}
}

func TestRecorderDropsTinyClip(t *testing.T) {
	ctx := audio.NewFakeContextPCM(sinePCM(0.05, 0.5))

	rec, err := startRecorder(ctx, nil, "wav", nil)
	if err != nil {
		t.Fatalf("startRecorder: %v", err)
	}
	defer rec.release()

	data, _, frames := rec.stop()
	if frames >= uint64(encoder.SampleRate/10) {
		t.Fatalf("frames = %d, expected a sub-0.1s clip", frames)
	}
	if data != nil {
		t.Errorf("expected nil data for a tiny clip, got %d bytes", len(data))
	}
}

func TestRecorderSpeechTick(t *testing.T) {
	ctx := audio.NewFakeContextPCM(sinePCM(0.5, 0.5))

	rec, err := startRecorder(ctx, nil, "wav", nil)
	if err != nil {
		t.Fatalf("startRecorder: %v", err)
	}
	defer rec.release()

	if !rec.speechTick() {
		t.Error("loud clip should register as speech")
	}
	if rec.speechTick() {
		t.Error("second tick should be clear, flag was not reset")
	}
}

func TestRecorderReleaseOnce(t *testing.T) {
	ctx := audio.NewFakeContextPCM(sinePCM(0.2, 0.3))

	rec, err := startRecorder(ctx, nil, "wav", nil)
	if err != nil {
		t.Fatalf("startRecorder: %v", err)
	}

	rec.release()
	rec.release()

	fake := rec.capture.(*audio.FakeCapture)
	if got := fake.CloseCount(); got != 1 {
		t.Errorf("CloseCount = %d, want 1", got)
	}
}

func TestRecorderLevelCallback(t *testing.T) {
	var levels int
	ctx := audio.NewFakeContextPCM(sinePCM(0.3, 0.5))

	rec, err := startRecorder(ctx, nil, "wav", func(rms float64) {
		if rms > 0 {
			levels++
		}
	})
	if err != nil {
		t.Fatalf("startRecorder: %v", err)
	}
	rec.release()

	if levels == 0 {
		t.Error("expected level callbacks during delivery")
	}
}
