// Package mock provides a test double for the wakeword.Engine interface.
package mock

import (
	"context"
	"sync"

	"github.com/voxrun/assistant/pkg/provider/wakeword"
)

// DetectCall records a single invocation of Engine.Detect.
type DetectCall struct {
	PCM        []byte
	SampleRate int
}

// Engine is a mock implementation of wakeword.Engine.
type Engine struct {
	mu sync.Mutex

	// Result is returned by every Detect call unless Err is set.
	Result wakeword.Result

	// Err, if non-nil, is returned as the error from Detect.
	Err error

	// Calls records every invocation of Detect.
	Calls []DetectCall
}

// Detect records the call and returns Result, Err.
func (e *Engine) Detect(ctx context.Context, pcm []byte, sampleRate int) (wakeword.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	e.Calls = append(e.Calls, DetectCall{PCM: cp, SampleRate: sampleRate})
	if e.Err != nil {
		return wakeword.Result{}, e.Err
	}
	return e.Result, nil
}

// Ensure Engine implements wakeword.Engine at compile time.
var _ wakeword.Engine = (*Engine)(nil)
