// Package control is the in-process signaling path for pause/cancel. Running
// jobs register an abort token keyed by job id; backends poll the token at
// dispatch points and stop within about a second of a signal.
package control

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrAborted marks a transfer stopped by pause/cancel. It is not a failure:
// the orchestrator maps it to the Paused state with progress intact.
var ErrAborted = errors.New("job aborted by user")

// Token is the cooperative abort flag for one running job.
type Token struct {
	aborted atomic.Bool
}

func (t *Token) Abort() {
	t.aborted.Store(true)
}

func (t *Token) Aborted() bool {
	return t != nil && t.aborted.Load()
}

// Registry maps running job ids to their abort tokens.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Token
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Token)}
}

// Register creates the abort token for a starting job. Call Unregister when
// the job finishes, whatever the outcome.
func (r *Registry) Register(jobID string) *Token {
	token := &Token{}
	r.mu.Lock()
	r.jobs[jobID] = token
	r.mu.Unlock()
	return token
}

func (r *Registry) Unregister(jobID string) {
	r.mu.Lock()
	delete(r.jobs, jobID)
	r.mu.Unlock()
}

// RequestAbort sets the abort flag for a job. Returns false when the job is
// not currently running under this registry.
func (r *Registry) RequestAbort(jobID string) bool {
	r.mu.RLock()
	token, ok := r.jobs[jobID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	token.Abort()
	return true
}
