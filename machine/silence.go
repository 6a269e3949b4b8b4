package machine

import "time"

const (
	TickInterval     = 100 * time.Millisecond
	silenceWarnEvery = 6 * time.Second
	speechMinRatio   = 0.10
	speechClearRatio = 0.25 // higher threshold to clear warning (hysteresis)

	// RMS of a normalized chunk above which it counts as voice.
	speechRMSThreshold = 0.015
)

type SilenceEvent int

const (
	SilenceNone      SilenceEvent = iota
	SilenceWarn                   // no voice detected
	SilenceWarnClear              // speech resumed after warning
	SilenceRepeat                 // repeat warning while silence continues
)

// HasSpeech reports whether a chunk's RMS level counts as voice.
func HasSpeech(rms float64) bool {
	return rms >= speechRMSThreshold
}

// SilenceMonitor watches per-tick voice activity during a recording and
// raises a warning when the window stays quiet, clearing it once speech
// resumes.
type SilenceMonitor struct {
	warnAt int

	ticks    int
	window   []bool
	warned   bool
	lastWarn int
}

func NewSilenceMonitor() *SilenceMonitor {
	warnAt := int(silenceWarnEvery / TickInterval)
	return &SilenceMonitor{
		warnAt: warnAt,
		window: make([]bool, warnAt),
	}
}

func (m *SilenceMonitor) ratio() float64 {
	n := m.warnAt
	if m.ticks < n {
		n = m.ticks
	}
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.warnAt)%m.warnAt] {
			count++
		}
	}
	return float64(count) / float64(n)
}

func (m *SilenceMonitor) Tick(hasSpeech bool) SilenceEvent {
	m.window[m.ticks%m.warnAt] = hasSpeech
	m.ticks++

	r := m.ratio()

	if m.ticks >= m.warnAt && r < speechMinRatio && !m.warned {
		m.warned = true
		m.lastWarn = m.ticks
		return SilenceWarn
	}
	if m.warned && r >= speechClearRatio {
		m.warned = false
		return SilenceWarnClear
	}
	if m.warned && m.ticks-m.lastWarn >= m.warnAt {
		m.lastWarn = m.ticks
		return SilenceRepeat
	}
	return SilenceNone
}
