// Package abort provides the cancellation primitive of the effect runtime:
// a controller that can be aborted exactly once, and a signal that exposes
// the aborted flag and a listener registry.
//
// The semantics follow the web-style abort controller, with one deliberate
// divergence: subscribing to an already-aborted signal invokes the listener
// immediately. Callers run on many goroutines, so a check-then-subscribe
// sequence has a window in which the abort would be lost; the immediate
// invocation closes that window.
package abort

import (
	"context"
	"sync"
)

// Controller owns an abort signal. Abort is idempotent: the first call flips
// the signal and notifies listeners, later calls are no-ops.
type Controller struct {
	mu        sync.Mutex
	aborted   bool
	nextID    uint64
	listeners []listenerEntry
	signal    *Signal
}

type listenerEntry struct {
	id uint64
	fn func()
}

// NewController returns a controller whose signal has not been aborted.
func NewController() *Controller {
	c := &Controller{}
	c.signal = &Signal{controller: c}
	return c
}

// Signal returns the signal owned by this controller.
func (c *Controller) Signal() *Signal {
	return c.signal
}

// Abort flips the signal and notifies all subscribed listeners in
// subscription order. Listeners run outside the controller lock, so they may
// subscribe to or abort other controllers freely.
func (c *Controller) Abort() {
	c.mu.Lock()
	if c.aborted {
		c.mu.Unlock()
		return
	}
	c.aborted = true
	pending := c.listeners
	c.listeners = nil
	c.mu.Unlock()

	for _, entry := range pending {
		entry.fn()
	}
}

// Signal reports and observes the aborted state of its controller.
type Signal struct {
	controller *Controller
}

// Aborted reports whether the controller has been aborted.
func (s *Signal) Aborted() bool {
	c := s.controller
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

// Subscribe registers fn to run when the controller aborts and returns a
// cancel function that removes the registration. If the signal is already
// aborted, fn runs synchronously before Subscribe returns and the returned
// cancel is a no-op.
func (s *Signal) Subscribe(fn func()) (cancel func()) {
	c := s.controller
	c.mu.Lock()
	if c.aborted {
		c.mu.Unlock()
		fn()
		return func() {}
	}
	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, entry := range c.listeners {
			if entry.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Link derives a child controller that aborts when parent aborts. The
// returned unlink removes the parent subscription; call it once the child's
// work has completed to avoid accumulating dead listeners on long-lived
// parents.
func Link(parent *Signal) (child *Controller, unlink func()) {
	child = NewController()
	unlink = parent.Subscribe(child.Abort)
	return child, unlink
}

// AsContext bridges a signal into a context.Context, for handing work to
// APIs that follow the standard cancellation convention. The returned stop
// releases the subscription and cancels the context.
func AsContext(s *Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	unsubscribe := s.Subscribe(cancel)
	return ctx, func() {
		unsubscribe()
		cancel()
	}
}
