package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind buckets a failed analysis into one of the fixed user-facing
// messages. The original technical error stays wrapped inside *Error for
// the diagnostics log and is never shown.
type Kind int

const (
	KindMissingKey Kind = iota
	KindInvalidInput
	KindInvalidKey
	KindQuota
	KindBadRequest
	KindUnknown
)

var userMessages = map[Kind]string{
	KindMissingKey:   "No API key available for the analysis request.",
	KindInvalidInput: "That file does not look like audio. Pick an audio file such as MP3, WAV or FLAC.",
	KindInvalidKey:   "The API key was rejected. Double-check the saved key.",
	KindQuota:        "The API quota has been exhausted. Try again in a little while.",
	KindBadRequest:   "The model could not process this clip. Try a shorter or different clip.",
	KindUnknown:      "Something went wrong while analyzing the clip. Try again.",
}

type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string { return userMessages[e.Kind] }

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// Detail formats an analysis error for the diagnostics log, keeping the
// wrapped technical cause that Error() hides from the user.
func Detail(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.cause != nil {
		return fmt.Sprintf("%s: %v", ae.Error(), ae.cause)
	}
	return err.Error()
}

type NetworkMetrics struct {
	ConnWait   time.Duration
	DNS        time.Duration
	TCP        time.Duration
	TLS        time.Duration
	TTFB       time.Duration
	Download   time.Duration
	Total      time.Duration
	ConnReused bool
}

type Request struct {
	Data   []byte
	MIME   string
	APIKey string
}

type Result struct {
	Description string
	Metrics     *NetworkMetrics
	Lines       []string // pre-formatted metric lines for the result panel
}

// Analyzer turns an audio clip into a textual tone description. One
// remote call per invocation, no retries; the caller re-triggers.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, req Request) (*Result, error)
}
