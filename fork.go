package effect

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rickb777/date/v2/timespan"

	"github.com/LuxXx/effect/abort"
)

// TimeSpan is the interval between a handle's start and completion.
type TimeSpan = timespan.TimeSpan

// Handle observes a running, possibly forked computation. Its result is
// single-assignment; observers are notified exactly once and then cleared;
// the handle's controller is aborted on completion, win or lose.
type Handle[A any] struct {
	id          string
	controller  *abort.Controller
	isRoot      bool
	unlink      func()
	done        chan struct{}
	startedAt   time.Time
	completedAt time.Time

	mu        sync.Mutex
	result    *Result[A]
	nextObsID uint64
	observers []handleObserver[A]
}

type handleObserver[A any] struct {
	id uint64
	fn func(Result[A])
}

// newHandle wires a handle's controller: linked to parent when one is given,
// root otherwise.
func newHandle[A any](parent *abort.Signal) *Handle[A] {
	h := &Handle[A]{
		id:        uuid.NewString(),
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}
	if parent == nil {
		h.isRoot = true
		h.controller = abort.NewController()
	} else {
		h.controller, h.unlink = abort.Link(parent)
	}
	return h
}

// start executes self on the handle's controller, delivering into emit.
func (h *Handle[A]) start(self Effect[A], base *Env) {
	defer func() {
		if p := recover(); p != nil {
			h.emit(Err[A](Unexpected(p)))
		}
	}()
	self.run(base.withController(h.controller), h.emit)
}

// emit records the result. The first emission wins; any further one is
// silently ignored.
func (h *Handle[A]) emit(r Result[A]) {
	h.mu.Lock()
	if h.result != nil {
		h.mu.Unlock()
		return
	}
	res := r
	h.result = &res
	h.completedAt = time.Now()
	observers := h.observers
	h.observers = nil
	h.mu.Unlock()

	h.controller.Abort()
	for _, obs := range observers {
		obs.fn(r)
	}
	if h.unlink != nil {
		h.unlink()
	}
	close(h.done)
}

// addObserver registers fn for the eventual result, invoking it immediately
// when the result is already in.
func (h *Handle[A]) addObserver(fn func(Result[A])) (remove func()) {
	h.mu.Lock()
	if h.result != nil {
		r := *h.result
		h.mu.Unlock()
		fn(r)
		return func() {}
	}
	id := h.nextObsID
	h.nextObsID++
	h.observers = append(h.observers, handleObserver[A]{id: id, fn: fn})
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, obs := range h.observers {
			if obs.id == id {
				h.observers = append(h.observers[:i], h.observers[i+1:]...)
				return
			}
		}
	}
}

// ID returns the handle's identity, for logs.
func (h *Handle[A]) ID() string { return h.id }

// IsRoot reports whether the handle's controller has no parent linkage.
func (h *Handle[A]) IsRoot() bool { return h.isRoot }

func (h *Handle[A]) String() string {
	return fmt.Sprintf("handle(%s)", h.id)
}

// Await delivers the handle's reified result, registering an observer while
// the computation is still running; cancellation of the awaiting region
// de-registers it.
func (h *Handle[A]) Await() Effect[Result[A]] {
	return Async(func(resume func(Effect[Result[A]]), _ *abort.Signal) Effect[Void] {
		remove := h.addObserver(func(r Result[A]) {
			resume(Succeed(r))
		})
		return Sync(func() Void {
			remove()
			return Void{}
		})
	})
}

// Join is Await with the result unwrapped back into effect form.
func (h *Handle[A]) Join() Effect[A] {
	return FlatMap(h.Await(), FromResult[A])
}

// Abort cancels the handle and waits for the computation to report.
func (h *Handle[A]) Abort() Effect[Void] {
	return AndThen(
		Sync(func() Void {
			h.UnsafeAbort()
			return Void{}
		}),
		AsVoid(h.Await()),
	)
}

// UnsafeAbort cancels the handle's controller without waiting. Aborting a
// completed handle is a no-op.
func (h *Handle[A]) UnsafeAbort() {
	h.controller.Abort()
}

// UnsafePoll returns the result when the computation has completed.
func (h *Handle[A]) UnsafePoll() (Result[A], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.result == nil {
		return Result[A]{}, false
	}
	return *h.result, true
}

// Wait blocks the calling goroutine until the result is in. This is a host
// boundary, not an effect; inside effect code use Await.
func (h *Handle[A]) Wait() Result[A] {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return *h.result
}

// Span returns the interval the computation has been running: up to its
// completion, or up to now while it still runs.
func (h *Handle[A]) Span() TimeSpan {
	h.mu.Lock()
	end := h.completedAt
	h.mu.Unlock()
	if end.IsZero() {
		end = time.Now()
	}
	return timespan.BetweenTimes(h.startedAt, end)
}

// Fork starts self on its own goroutine under a child controller linked to
// the in-force signal, and delivers its handle synchronously. The forked
// computation outlives the forking scope; it stops early only when the
// parent signal aborts.
func Fork[A any](self Effect[A]) Effect[*Handle[A]] {
	return makeEffect(func(env *Env, resume func(Result[*Handle[A]])) {
		h := newHandle[A](env.signal)
		go h.start(self, env)
		resume(Ok(h))
	})
}

// ForkDaemon is Fork with a root controller: the child ignores the parent's
// cancellation entirely.
func ForkDaemon[A any](self Effect[A]) Effect[*Handle[A]] {
	return makeEffect(func(env *Env, resume func(Result[*Handle[A]])) {
		h := newHandle[A](nil)
		go h.start(self, env)
		resume(Ok(h))
	})
}
