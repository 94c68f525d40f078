package jobs

import (
	"fmt"
	"sync"

	"github.com/hydrusband/fetchd/internal/engine"
	"github.com/hydrusband/fetchd/internal/shared"
)

// entry is the registry's view of one in-flight job.
type entry struct {
	token *Token
	// done closes when the worker has terminated and the completion
	// bookkeeping has run.
	done chan struct{}
	// handle is set for swarm jobs only, so status queries can read the
	// engine's cached snapshot.
	handle engine.Handle
}

// Registry tracks in-flight jobs keyed by job id and enforces at most one
// live job per id. All mutations are atomic with respect to each other:
// concurrent registers for the same id resolve to exactly one winner.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*entry)}
}

// register claims id for e. A second register while id is held fails with
// [shared.ErrAlreadyRunning] and leaves the existing job untouched.
func (r *Registry) register(id string, e *entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; ok {
		return fmt.Errorf("%w: %s", shared.ErrAlreadyRunning, id)
	}
	r.jobs[id] = e
	return nil
}

// token returns the cancellation token for id, if registered.
func (r *Registry) token(id string) (*Token, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok {
		return nil, false
	}
	return e.token, true
}

// handle returns the engine handle for id, if registered with one.
func (r *Registry) handle(id string) (engine.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok || e.handle == nil {
		return nil, false
	}
	return e.handle, true
}

// setHandle attaches an engine handle to an already-registered job, making
// it visible to status queries. A no-op when id was unregistered in the
// meantime.
func (r *Registry) setHandle(id string, h engine.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.jobs[id]; ok {
		e.handle = h
	}
}

// unregister removes id unconditionally. Removing an absent id is a no-op.
func (r *Registry) unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// Running is a pure membership query for id.
func (r *Registry) Running(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[id]
	return ok
}
