// Package fetch runs a cancellable request on behalf of a long-lived
// consumer and keeps its loading, data and error state.
//
// A Fetcher starts a request on the first Update and again whenever the
// dependencies passed to Update change. Starting a request cancels the one
// in flight, and only the most recent request may change the state.
// There is no caching, deduplication or retry.
package fetch

import (
	"context"
	"sync"

	"github.com/google/go-cmp/cmp"
)

// Func performs one request. It should return promptly once ctx is done.
type Func[T any] func(ctx context.Context) (T, error)

// State is a snapshot of a Fetcher.
type State[T any] struct {
	Data    T
	HasData bool
	Loading bool
	Err     error
}

type request struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (r *request) finish() {
	r.once.Do(func() { close(r.done) })
}

// Fetcher tracks the requests made by one consumer.
type Fetcher[T any] struct {
	fn       Func[T]
	onChange func(State[T])

	mu      sync.Mutex
	state   State[T]
	deps    []any
	started bool
	closed  bool
	current *request

	// Each state change takes a ticket under mu; callbacks run one at a
	// time in ticket order, without mu held.
	issued    uint64
	cbMu      sync.Mutex
	cbTurn    *sync.Cond
	delivered uint64
}

// Option configures a Fetcher.
type Option[T any] func(*Fetcher[T])

// WithOnChange calls fn with every new state, in order. fn runs
// synchronously; it may call State but must not call Update, Wait or Close.
func WithOnChange[T any](fn func(State[T])) Option[T] {
	return func(f *Fetcher[T]) { f.onChange = fn }
}

// New returns an idle Fetcher. Nothing is requested until Update.
func New[T any](fn Func[T], opts ...Option[T]) *Fetcher[T] {
	f := &Fetcher[T]{fn: fn}
	f.cbTurn = sync.NewCond(&f.cbMu)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Update starts a request if this is the first call or deps differ from the
// previous call. Any request still in flight is cancelled and its result
// discarded. Calling Update after Close does nothing.
//
// Dependencies are compared with cmp.Equal, so they should be plain values:
// strings, numbers, or structs with exported fields.
func (f *Fetcher[T]) Update(deps ...any) {
	f.mu.Lock()
	if f.closed || (f.started && cmp.Equal(f.deps, deps)) {
		f.mu.Unlock()
		return
	}
	f.started = true
	f.deps = append([]any(nil), deps...)
	if f.current != nil {
		f.current.cancel()
		f.current.finish()
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := &request{cancel: cancel, done: make(chan struct{})}
	f.current = req
	f.state.Loading = true
	f.state.Err = nil
	f.publishLocked()

	go f.run(ctx, req)
}

func (f *Fetcher[T]) run(ctx context.Context, req *request) {
	data, err := f.fn(ctx)
	req.cancel()

	f.mu.Lock()
	if f.closed || f.current != req {
		f.mu.Unlock()
		return
	}
	if err != nil {
		f.state.Err = err
	} else {
		f.state.Data = data
		f.state.HasData = true
		f.state.Err = nil
	}
	f.state.Loading = false
	f.publishLocked()
	req.finish()
}

// publishLocked releases f.mu and reports the state to onChange.
func (f *Fetcher[T]) publishLocked() {
	if f.onChange == nil {
		f.mu.Unlock()
		return
	}
	snapshot := f.state
	ticket := f.issued
	f.issued++
	f.mu.Unlock()

	f.cbMu.Lock()
	defer f.cbMu.Unlock()
	for f.delivered != ticket {
		f.cbTurn.Wait()
	}
	f.onChange(snapshot)
	f.delivered++
	f.cbTurn.Broadcast()
}

// State returns the current state.
func (f *Fetcher[T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Wait blocks until the most recent request has settled, following any
// requests started while waiting, and returns the resulting state.
func (f *Fetcher[T]) Wait(ctx context.Context) (State[T], error) {
	for {
		f.mu.Lock()
		req := f.current
		f.mu.Unlock()
		if req == nil {
			return f.State(), nil
		}

		select {
		case <-req.done:
		case <-ctx.Done():
			return f.State(), ctx.Err()
		}

		f.mu.Lock()
		latest := f.current == req || f.closed
		state := f.state
		f.mu.Unlock()
		if latest {
			return state, nil
		}
	}
}

// Close cancels the request in flight. The Fetcher ignores it and every
// later Update.
func (f *Fetcher[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	if f.current != nil {
		f.current.cancel()
		f.current.finish()
	}
}
