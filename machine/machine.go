// Package machine holds the input-acquisition state machine: which audio
// source is selected (an uploaded file or a finished recording, never
// both), which phase the app is in, and the result or error being shown.
//
// Transitions are pure: they take a State and return the next State plus
// a list of side effects for the caller to perform (start the capture
// device, release it, play a cue, run an analysis). This keeps the whole
// machine testable without a terminal, a microphone or a network.
package machine

type Tab int

const (
	TabUpload Tab = iota
	TabRecord
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRecording
	PhaseAnalyzing
)

// Source is the single active audio input. nil means none; the one-field
// encoding is what enforces the file-XOR-recording invariant.
type Source interface {
	isSource()
	Bytes() []byte
	ContentType() string
}

// FileSource is an audio file the user picked from disk.
type FileSource struct {
	Name string
	Data []byte
	MIME string
}

// RecordingSource is a finished microphone recording, already encoded.
type RecordingSource struct {
	Data []byte
	MIME string
}

func (FileSource) isSource()      {}
func (RecordingSource) isSource() {}

func (f FileSource) Bytes() []byte           { return f.Data }
func (f FileSource) ContentType() string     { return f.MIME }
func (r RecordingSource) Bytes() []byte      { return r.Data }
func (r RecordingSource) ContentType() string { return r.MIME }

type CueKind int

const (
	CueSuccess CueKind = iota
	CueError
)

// Effect is a side effect the caller must perform after a transition.
type Effect interface{ isEffect() }

type EffectStartCapture struct{}

type EffectReleaseMic struct{}

type EffectPlayCue struct{ Kind CueKind }

type EffectAnalyze struct {
	Data []byte
	MIME string
}

func (EffectStartCapture) isEffect() {}
func (EffectReleaseMic) isEffect()   {}
func (EffectPlayCue) isEffect()      {}
func (EffectAnalyze) isEffect()      {}

// CaptureFailure classifies why a capture start failed. The driver maps
// backend errors to one of these; the machine maps them to user messages.
type CaptureFailure int

const (
	FailurePermission CaptureFailure = iota
	FailureUnsupported
	FailureDevice
)

// Fixed user-facing messages. The technical cause behind any of them goes
// to the diagnostics log, never the screen.
const (
	MsgPermissionDenied = "Microphone access was denied. Check your input device permissions and try again."
	MsgUnsupported      = "No audio capture backend is available on this system."
	MsgDeviceFailed     = "The microphone could not be started. Try another input device."
	MsgMissingInput     = "Pick an audio file or record a clip first."
	MsgMissingKey       = "No API key available. Set GEMINI_API_KEY or save a key with 'k'."
)

type State struct {
	Tab    Tab
	Phase  Phase
	Source Source

	// Result and Err are mutually exclusive; transitions write them only
	// through setResult/setError.
	Result string
	Err    string
}

func New() State {
	return State{Tab: TabUpload}
}

func (s State) setResult(text string) State {
	s.Result = text
	s.Err = ""
	return s
}

func (s State) setError(msg string) State {
	s.Err = msg
	s.Result = ""
	return s
}

// FileSelected reports whether the active source is an uploaded file.
func (s State) FileSelected() bool {
	_, ok := s.Source.(FileSource)
	return ok
}

// RecordingHeld reports whether the active source is a finished recording.
func (s State) RecordingHeld() bool {
	_, ok := s.Source.(RecordingSource)
	return ok
}

// SelectFile installs an uploaded file as the active source. Valid in any
// phase: an in-progress recording is stopped and its stream released
// before the file takes over, and any prior result or error is cleared.
// An empty file is a silent no-op.
func (s State) SelectFile(name string, data []byte, mime string) (State, []Effect) {
	if len(data) == 0 {
		return s, nil
	}
	if s.Phase == PhaseAnalyzing {
		// One in-flight analysis at a time; the file picker is disabled
		// while it runs, so this is a belt for the UI's suspenders.
		return s, nil
	}
	var fx []Effect
	if s.Phase == PhaseRecording {
		fx = append(fx, EffectReleaseMic{})
	}
	s.Phase = PhaseIdle
	s.Source = FileSource{Name: name, Data: data, MIME: mime}
	return s.setResult(""), fx
}

// StartRecording begins a capture. The phase flips to Recording
// immediately; if the backend refuses (permission denied, no backend),
// the driver reports it via CaptureFailed and the phase reverts.
func (s State) StartRecording() (State, []Effect) {
	if s.Phase != PhaseIdle {
		return s, nil
	}
	s.Phase = PhaseRecording
	s.Source = nil
	return s.setResult(""), []Effect{EffectStartCapture{}}
}

// CaptureFailed reverts a failed StartRecording. No recording session
// exists on this path; the mic was never acquired.
func (s State) CaptureFailed(why CaptureFailure) (State, []Effect) {
	if s.Phase != PhaseRecording {
		return s, nil
	}
	s.Phase = PhaseIdle
	msg := MsgDeviceFailed
	switch why {
	case FailurePermission:
		msg = MsgPermissionDenied
	case FailureUnsupported:
		msg = MsgUnsupported
	}
	return s.setError(msg), []Effect{EffectPlayCue{Kind: CueError}}
}

// StopRecording finalizes the capture into a RecordingSource. An empty
// clip (stopped before any audio arrived) returns to a clean Idle.
func (s State) StopRecording(data []byte, mime string) (State, []Effect) {
	if s.Phase != PhaseRecording {
		return s, nil
	}
	s.Phase = PhaseIdle
	if len(data) == 0 {
		s.Source = nil
	} else {
		s.Source = RecordingSource{Data: data, MIME: mime}
	}
	return s, []Effect{EffectReleaseMic{}}
}

// Clear discards the active source and any result or error.
func (s State) Clear() (State, []Effect) {
	if s.Phase == PhaseAnalyzing {
		return s, nil
	}
	var fx []Effect
	if s.Phase == PhaseRecording {
		fx = append(fx, EffectReleaseMic{})
		s.Phase = PhaseIdle
	}
	s.Source = nil
	return s.setResult(""), fx
}

// SwitchTab moves between the upload and record tabs. The two input modes
// are mutually exclusive: entering the record tab drops a selected file,
// entering the upload tab stops any active capture and drops a held
// recording.
func (s State) SwitchTab(t Tab) (State, []Effect) {
	if t == s.Tab || s.Phase == PhaseAnalyzing {
		return s, nil
	}
	var fx []Effect
	s.Tab = t
	switch t {
	case TabRecord:
		if s.FileSelected() {
			s.Source = nil
		}
	case TabUpload:
		if s.Phase == PhaseRecording {
			fx = append(fx, EffectReleaseMic{})
			s.Phase = PhaseIdle
		}
		if s.RecordingHeld() {
			s.Source = nil
		}
	}
	return s, fx
}

// Analyze kicks off a tone analysis of the active source. While one is
// already running the call is a no-op; the completion arrives through
// AnalysisDone.
func (s State) Analyze(apiKey string) (State, []Effect) {
	if s.Phase != PhaseIdle {
		return s, nil
	}
	if s.Source == nil {
		return s.setError(MsgMissingInput), []Effect{EffectPlayCue{Kind: CueError}}
	}
	if apiKey == "" {
		return s.setError(MsgMissingKey), []Effect{EffectPlayCue{Kind: CueError}}
	}
	data, mime := s.Source.Bytes(), s.Source.ContentType()
	s.Phase = PhaseAnalyzing
	return s.setResult(""), []Effect{EffectAnalyze{Data: data, MIME: mime}}
}

// AnalysisDone applies the outcome of the in-flight analysis. Stale
// completions (after the phase changed some other way) are dropped.
func (s State) AnalysisDone(text, errMsg string) (State, []Effect) {
	if s.Phase != PhaseAnalyzing {
		return s, nil
	}
	s.Phase = PhaseIdle
	if errMsg != "" {
		return s.setError(errMsg), []Effect{EffectPlayCue{Kind: CueError}}
	}
	return s.setResult(text), []Effect{EffectPlayCue{Kind: CueSuccess}}
}

// ShowExample displays a canned tone description without touching the
// analyzer or the selected source.
func (s State) ShowExample(text string) (State, []Effect) {
	if s.Phase != PhaseIdle {
		return s, nil
	}
	return s.setResult(text), []Effect{EffectPlayCue{Kind: CueSuccess}}
}
