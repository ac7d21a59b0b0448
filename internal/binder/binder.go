// Package binder implements the actor fabric of spec.md §4.5: a typed
// request/response channel pair that lets one stateful owner (a "service")
// be called concurrently by many clients ("binders") without exposing its
// interior state across goroutines.
//
// The original decouples a single worker from many clients with a signal
// channel: every client posts a wake token after sending, and the worker
// multiplexes by awaiting that one channel instead of a dynamic select over
// many per-client channels. Go's channels already provide that fan-in for
// free — any number of goroutines may send on the same channel, and one
// receiver drains them in arrival order — so the signal-channel indirection
// has no work left to do here; a shared, buffered request channel is both
// the idiomatic Go shape and spec.md's REDESIGN FLAGS's explicitly
// sanctioned alternative ("a proper dynamic select ... acceptable").
package binder

import "errors"

// ErrNotAlive is returned by Call when the binder has been unbound or its
// service has shut down.
var ErrNotAlive = errors.New("binder: channel is not alive")

type request[Q any, R any] struct {
	query Q
	reply chan R
}

// Handler is the owner-held function a Service wraps, the (Q) -> R shape
// spec.md §4.5 describes.
type Handler[Q any, R any] func(Q) R

// Service owns a handler and the single worker goroutine that serializes
// every call into it. Binds are cheap; the worker is shared across all of
// them.
type Service[Q any, R any] struct {
	handler Handler[Q, R]
	queue   chan request[Q, R]
	done    chan struct{}
}

// NewService spawns the worker and returns the service. backlog bounds how
// many in-flight calls may queue before Call blocks its caller — the
// "bounded duplex" spec.md §4.5 requires.
func NewService[Q any, R any](handler Handler[Q, R], backlog int) *Service[Q, R] {
	s := &Service[Q, R]{
		handler: handler,
		queue:   make(chan request[Q, R], backlog),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Service[Q, R]) run() {
	for {
		select {
		case req := <-s.queue:
			req.reply <- s.handler(req.query)
		case <-s.done:
			return
		}
	}
}

// Bind returns a fresh client view over the service, per spec.md §4.5's
// bind().
func (s *Service[Q, R]) Bind() *Binder[Q, R] {
	return &Binder[Q, R]{svc: s}
}

// Shutdown stops the worker. Every bound client's subsequent Call returns
// ErrNotAlive and IsAlive reports false, mirroring "a service shutdown
// drops the worker ... clients then observe is_alive == false".
func (s *Service[Q, R]) Shutdown() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *Service[Q, R]) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Binder is the RPC client view of spec.md §4.5: Call sends a query and
// blocks for its response. Ordering within one Binder is strict FIFO since
// a single goroutine issues calls one at a time; there is no ordering
// guarantee across different Binders of the same Service.
type Binder[Q any, R any] struct {
	svc     *Service[Q, R]
	unbound bool
}

// Call sends query to the service and blocks for its response. It returns
// ErrNotAlive if the binder was unbound or the service has shut down,
// including races where shutdown happens while the call is in flight.
func (b *Binder[Q, R]) Call(query Q) (R, error) {
	var zero R
	if b.unbound || b.svc.isClosed() {
		return zero, ErrNotAlive
	}

	reply := make(chan R, 1)
	select {
	case b.svc.queue <- request[Q, R]{query: query, reply: reply}:
	case <-b.svc.done:
		return zero, ErrNotAlive
	}

	select {
	case r := <-reply:
		return r, nil
	case <-b.svc.done:
		return zero, ErrNotAlive
	}
}

// Unbind releases this client's binding, per spec.md §4.5's unbind. The
// service and other clients are unaffected.
func (b *Binder[Q, R]) Unbind() {
	b.unbound = true
}

// IsAlive reports whether this binder can still make calls: neither
// unbound locally nor orphaned by a service shutdown.
func (b *Binder[Q, R]) IsAlive() bool {
	return !b.unbound && !b.svc.isClosed()
}
