package loader

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// State is the lifecycle state of a Request.
type State int

const (
	// Pending requests wait for at least one module to arrive.
	Pending State = iota
	// Ready requests have every module loaded and wait for dispatch.
	Ready
	// Dispatched requests ran their factories and callback.
	Dispatched
	// Failed requests stopped because of a timeout, a fetch error, a
	// factory panic or Close.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Dispatched:
		return "dispatched"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Request is one entry of the load queue, created by Loader.Use.
type Request struct {
	id      string
	modules []string
	cb      Callback
	created time.Time

	mu    sync.Mutex
	state State
	ns    *Namespace
	err   error
	timer *time.Timer
	done  chan struct{}
}

func newRequest(id string, modules []string, cb Callback) *Request {
	return &Request{
		id:      id,
		modules: modules,
		cb:      cb,
		created: time.Now(),
		done:    make(chan struct{}),
	}
}

// ID returns the request's unique identifier.
func (r *Request) ID() string { return r.id }

// Modules returns the expanded module list in factory order: every module
// appears after its requirements.
func (r *Request) Modules() []string { return slices.Clone(r.modules) }

// State returns the current state.
func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Done is closed once the request is Dispatched or Failed.
func (r *Request) Done() <-chan struct{} { return r.done }

// Err returns the failure cause of a Failed request.
func (r *Request) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Namespace returns the populated namespace of a Dispatched request.
func (r *Request) Namespace() *Namespace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ns
}

// Wait blocks until the request finishes or ctx is done. On dispatch it
// returns the namespace the callback received.
func (r *Request) Wait(ctx context.Context) (*Namespace, error) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.ns, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// transition moves the request from one of the allowed states to next.
func (r *Request) transition(next State, from ...State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(from, r.state) {
		return false
	}
	r.state = next
	return true
}

// finish records the outcome and releases waiters. It must be called exactly
// once, after a successful transition to Dispatched or Failed.
func (r *Request) finish(ns *Namespace, err error) {
	r.mu.Lock()
	r.ns, r.err = ns, err
	if r.timer != nil {
		r.timer.Stop()
	}
	r.mu.Unlock()
	close(r.done)
}
