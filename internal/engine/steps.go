package engine

import (
	"sync"

	"github.com/cscx-ai/toolgate/internal/tool"
)

// stepCounter tracks executed actions per agent run so a user's MaxSteps
// ceiling can degrade further auto-executions to needs-approval. Runs are
// keyed by user + session; state is process-local, like the rate limiter.
type stepCounter struct {
	mu   sync.Mutex
	runs map[string]int
}

func newStepCounter() *stepCounter {
	return &stepCounter{runs: make(map[string]int)}
}

func runKey(ic tool.Context) string {
	return ic.UserID + "\x00" + ic.SessionID
}

func (s *stepCounter) count(ic tool.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[runKey(ic)]
}

func (s *stepCounter) increment(ic tool.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[runKey(ic)]++
}

// ResetRun clears the step count for one agent run, for callers that
// start a fresh run under an existing session id.
func (e *Engine) ResetRun(ic tool.Context) {
	e.steps.mu.Lock()
	defer e.steps.mu.Unlock()
	delete(e.steps.runs, runKey(ic))
}
