// Package cue emits the two audible feedback tones: a rising sine sweep
// for success and a falling square-wave buzz for errors. The playback
// backend is created lazily on first use; if no audio output is
// available, Play degrades to a silent no-op.
package cue

import (
	"math"
	"sync"
)

type Kind int

const (
	Success Kind = iota
	Error
)

const sampleRate = 44100

const (
	successFromHz = 600
	successToHz   = 1200
	successDur    = 0.18
	successVolume = 0.45

	errorFromHz = 420
	errorToHz   = 240
	errorDur    = 0.25
	errorVolume = 0.5
)

var (
	disabled bool

	genOnce        sync.Once
	successSamples []int16
	errorSamples   []int16
)

// Disable turns every Play into a no-op. Used by tests and the headless
// mode; the per-preference gate lives with the caller.
func Disable() { disabled = true }

func initSamples() {
	successSamples = generateSweep(successFromHz, successToHz, successDur, successVolume, sine)
	errorSamples = generateSweep(errorFromHz, errorToHz, errorDur, errorVolume, square)
}

func sine(phase float64) float64 { return math.Sin(phase) }

func square(phase float64) float64 {
	if math.Sin(phase) >= 0 {
		return 1
	}
	return -1
}

// generateSweep renders a mono tone whose frequency moves linearly from
// fromHz to toHz, with a short attack and an exponential tail so the cue
// never clicks.
func generateSweep(fromHz, toHz, duration, volume float64, wave func(float64) float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	phase := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		progress := float64(i) / float64(n)
		freq := fromHz + (toHz-fromHz)*progress
		phase += 2 * math.Pi * freq / sampleRate

		envelope := math.Exp(-t * 12)
		if attack := t / 0.005; attack < 1 {
			envelope *= attack
		}
		samples[i] = int16(wave(phase) * 32767 * volume * envelope)
	}
	return samples
}

// Play fires a cue asynchronously. Missing or broken audio output is
// swallowed; feedback tones are never worth an error dialog.
func Play(k Kind) {
	if disabled {
		return
	}
	genOnce.Do(initSamples)
	switch k {
	case Success:
		go playSamples(successSamples)
	case Error:
		go playSamples(errorSamples)
	}
}
