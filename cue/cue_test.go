package cue

import "testing"

func zeroCrossings(samples []int16) int {
	n := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			n++
		}
	}
	return n
}

func maxAbs(samples []int16) int {
	m := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}

func TestSuccessSweepRises(t *testing.T) {
	samples := generateSweep(successFromHz, successToHz, successDur, successVolume, sine)
	if len(samples) == 0 {
		t.Fatal("no samples generated")
	}
	half := len(samples) / 2
	first := zeroCrossings(samples[:half])
	second := zeroCrossings(samples[half:])
	if second <= first {
		t.Errorf("expected rising pitch, crossings first=%d second=%d", first, second)
	}
}

func TestErrorBuzzFalls(t *testing.T) {
	samples := generateSweep(errorFromHz, errorToHz, errorDur, errorVolume, square)
	half := len(samples) / 2
	first := zeroCrossings(samples[:half])
	second := zeroCrossings(samples[half:])
	if second >= first {
		t.Errorf("expected falling pitch, crossings first=%d second=%d", first, second)
	}
}

func TestEnvelopeDecays(t *testing.T) {
	samples := generateSweep(successFromHz, successToHz, successDur, successVolume, sine)
	tenth := len(samples) / 10
	head := maxAbs(samples[:tenth])
	tail := maxAbs(samples[len(samples)-tenth:])
	if tail >= head {
		t.Errorf("expected decaying envelope, head=%d tail=%d", head, tail)
	}
	if head == 0 {
		t.Error("cue is silent")
	}
}

func TestDisabledPlayIsNoop(t *testing.T) {
	Disable()
	Play(Success)
	Play(Error)
	if successSamples != nil {
		t.Error("disabled Play should not synthesize samples")
	}
}
