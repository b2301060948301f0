package fetch

import (
	"context"
	"sync"
)

// FulfilledFunc transforms a value on the success path. For request
// interceptors V is RequestOptions; for response interceptors it is *Response.
//
// Use cases:
//   - Add or rewrite headers, method, or URL before dispatch
//   - Replace or annotate a decoded response
//
// Returning an error sends the call down the failure path. A response
// handler that returns a nil *Response without an error leaves the response
// unchanged.
type FulfilledFunc[V any] func(ctx context.Context, v V) (V, error)

// RejectedFunc observes or handles a failure.
//
//   - (nil, nil) leaves the error unchanged and moves on to the next handler.
//   - (nil, err) replaces the error.
//   - (resp, nil) suppresses the error; resp is returned to the caller.
type RejectedFunc func(ctx context.Context, err error) (*Response, error)

// Handler is the capability interface behind every registration.
type Handler[V any] interface {
	Fulfill(ctx context.Context, v V) (V, error)
	Reject(ctx context.Context, err error) (*Response, error)
}

// Handle identifies a registration. Handles are never reused.
type Handle int

// Entry is one registered handler as seen by Handlers.
type Entry[V any] struct {
	ID      Handle
	Handler Handler[V]
}

type funcHandler[V any] struct {
	fulfilled FulfilledFunc[V]
	rejected  RejectedFunc
}

func (h funcHandler[V]) Fulfill(ctx context.Context, v V) (V, error) {
	if h.fulfilled == nil {
		return v, nil
	}
	return h.fulfilled(ctx, v)
}

func (h funcHandler[V]) Reject(ctx context.Context, err error) (*Response, error) {
	if h.rejected == nil {
		return nil, nil
	}
	return h.rejected(ctx, err)
}

// Registry is an ordered set of interceptors. It is safe for concurrent use;
// each call dispatches over a snapshot taken when its chain starts, so Use,
// Eject and Clear never affect a chain that is already running.
type Registry[V any] struct {
	mu      sync.RWMutex
	nextID  Handle
	entries []Entry[V]
}

// NewRegistry returns an empty registry.
func NewRegistry[V any]() *Registry[V] {
	return &Registry[V]{}
}

// Use registers a fulfilled/rejected pair. Either may be nil.
func (r *Registry[V]) Use(fulfilled FulfilledFunc[V], rejected RejectedFunc) Handle {
	return r.UseHandler(funcHandler[V]{fulfilled: fulfilled, rejected: rejected})
}

// UseHandler registers h and returns its handle.
func (r *Registry[V]) UseHandler(h Handler[V]) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.entries = append(r.entries, Entry[V]{ID: id, Handler: h})
	return id
}

// Eject removes the registration with the given handle. Unknown handles are ignored.
func (r *Registry[V]) Eject(id Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.ID != id {
			continue
		}
		entries := make([]Entry[V], 0, len(r.entries)-1)
		entries = append(entries, r.entries[:i]...)
		r.entries = append(entries, r.entries[i+1:]...)
		return
	}
}

// Clear removes every registration. Handles keep counting from where they were.
func (r *Registry[V]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// Handlers returns the current registrations in registration order.
func (r *Registry[V]) Handlers() []Entry[V] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Entry[V](nil), r.entries...)
}

// Len returns the number of registrations.
func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// fulfill runs the fulfilled halves in order. On error it returns the index
// of the failing handler so the caller can continue with the rejected halves
// of the handlers after it. A nil *Response result keeps the previous value.
func fulfill[V any](ctx context.Context, entries []Entry[V], v V) (V, int, error) {
	for i, e := range entries {
		next, err := e.Handler.Fulfill(ctx, v)
		if err != nil {
			return v, i, err
		}
		if isNilResponse(next) {
			continue
		}
		v = next
	}
	return v, len(entries), nil
}

// reject runs the rejected halves in order. A non-nil response suppresses
// the error and ends the chain.
func reject[V any](ctx context.Context, entries []Entry[V], err error) (*Response, error) {
	for _, e := range entries {
		resp, herr := e.Handler.Reject(ctx, err)
		if herr != nil {
			err = herr
			continue
		}
		if resp != nil {
			return resp, nil
		}
	}
	return nil, err
}

func isNilResponse[V any](v V) bool {
	p, ok := any(v).(*Response)
	return ok && p == nil
}
