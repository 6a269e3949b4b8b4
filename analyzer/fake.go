package analyzer

import (
	"context"
	"sync"
)

// Fake is an Analyzer for tests and the headless test mode.
type Fake struct {
	Description string
	Err         error

	mu      sync.Mutex
	calls   int
	lastReq Request
}

func NewFake(description string, err error) *Fake {
	return &Fake{Description: description, Err: err}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Analyze(_ context.Context, req Request) (*Result, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	return &Result{
		Description: f.Description,
		Lines:       []string{"total:    10ms (fake)"},
	}, nil
}

func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Fake) LastRequest() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}
