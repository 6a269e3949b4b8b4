package main

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"toneprint/audio"
	"toneprint/encoder"
	"toneprint/machine"
)

// recorder owns one microphone capture session: it buffers incoming
// PCM, encodes full blocks as they fill, and tracks per-tick voice
// activity for the silence monitor. release is safe to call from any
// path and runs exactly once.
type recorder struct {
	capture audio.CaptureDevice
	enc     encoder.Encoder
	start   time.Time

	mu      sync.Mutex
	pending []int16
	stopped bool
	speech  bool

	releaseOnce sync.Once
}

func startRecorder(ctx audio.Context, device *audio.DeviceInfo, format string, onLevel func(rms float64)) (*recorder, error) {
	enc, err := encoder.New(format)
	if err != nil {
		return nil, err
	}

	capture, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, err
	}

	r := &recorder{capture: capture, enc: enc, start: time.Now()}

	capture.SetCallback(func(data []byte, frameCount uint32) {
		if len(data) < 2 {
			return
		}

		var sumSquares float64
		samples := make([]int16, 0, len(data)/2)
		for i := 0; i+1 < len(data); i += 2 {
			s := int16(binary.LittleEndian.Uint16(data[i:]))
			samples = append(samples, s)
			normalized := float64(s) / 32768.0
			sumSquares += normalized * normalized
		}
		rms := math.Sqrt(sumSquares / float64(len(samples)))

		r.mu.Lock()
		if r.stopped {
			r.mu.Unlock()
			return
		}
		r.pending = append(r.pending, samples...)
		for len(r.pending) >= encoder.BlockSize {
			block := r.pending[:encoder.BlockSize]
			if err := r.enc.EncodeBlock(block); err != nil {
				break
			}
			r.pending = r.pending[encoder.BlockSize:]
		}
		if machine.HasSpeech(rms) {
			r.speech = true
		}
		r.mu.Unlock()

		if onLevel != nil {
			onLevel(rms)
		}
	})

	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return nil, err
	}
	return r, nil
}

// stop finalizes the encoding and returns the clip. The capture device
// is not touched here; release handles it.
func (r *recorder) stop() (data []byte, mime string, frames uint64) {
	r.mu.Lock()
	r.stopped = true
	if len(r.pending) > 0 {
		r.enc.EncodeBlock(r.pending)
		r.pending = nil
	}
	r.enc.Close()
	data = r.enc.Bytes()
	mime = r.enc.MIME()
	frames = r.enc.TotalFrames()
	r.mu.Unlock()

	// Below a tenth of a second there is nothing worth analyzing.
	if frames < uint64(encoder.SampleRate/10) {
		return nil, mime, frames
	}
	return data, mime, frames
}

// release stops and closes the capture device exactly once.
func (r *recorder) release() {
	r.releaseOnce.Do(func() {
		r.capture.Stop()
		r.capture.ClearCallback()
		r.capture.Close()
	})
}

func (r *recorder) elapsed() float64 {
	return time.Since(r.start).Seconds()
}

// speechTick reports whether any chunk since the previous call counted
// as voice, then clears the flag.
func (r *recorder) speechTick() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.speech
	r.speech = false
	return s
}

func (r *recorder) deviceName() string {
	return r.capture.DeviceName()
}
