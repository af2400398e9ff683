package effect

import (
	"sync"

	"github.com/LuxXx/effect/servicemap"
)

// Finalizer is cleanup registered on a scope. It receives the result the
// scope was closed with and may itself be effectful; it has no expected
// failure channel, though it can still die or be aborted.
type Finalizer func(result Result[any]) Effect[Void]

// ScopeTag is the service key under which Scoped provides the ambient scope.
var ScopeTag = servicemap.NewTag[*Scope]("effect.scope")

// Scope is a lifetime bracket carrying an ordered finalizer set. It is open
// until the first Close, which runs the finalizers in reverse registration
// order; finalizers registered afterwards run immediately.
type Scope struct {
	mu         sync.Mutex
	closed     bool
	result     Result[any]
	nextID     uint64
	order      []uint64
	finalizers map[uint64]Finalizer
}

// NewScope returns an open scope with no finalizers.
func NewScope() *Scope {
	return &Scope{finalizers: make(map[uint64]Finalizer)}
}

// register inserts fin while the scope is open and returns a removal
// function. On a closed scope it returns the close result instead; the
// caller decides whether to run fin against it.
func (s *Scope) register(fin Finalizer) (remove func(), closedWith *Result[any]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		res := s.result
		return nil, &res
	}
	id := s.nextID
	s.nextID++
	s.order = append(s.order, id)
	s.finalizers[id] = fin
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		delete(s.finalizers, id)
		for i, other := range s.order {
			if other == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				return
			}
		}
	}, nil
}

// AddFinalizer registers fin to run when the scope closes. On an already
// closed scope, fin runs immediately with the close result.
func (s *Scope) AddFinalizer(fin Finalizer) Effect[Void] {
	return Suspend(func() Effect[Void] {
		_, closedWith := s.register(fin)
		if closedWith != nil {
			return fin(*closedWith)
		}
		return Succeed(Void{})
	})
}

// Close transitions the scope to closed and runs its finalizers in reverse
// registration order, sequentially, each reified with AsResult so that every
// finalizer runs regardless of earlier ones failing. The close succeeds iff
// all finalizers succeeded; otherwise the first failure encountered is
// delivered. Closing a closed scope is a no-op.
func (s *Scope) Close(result Result[any]) Effect[Void] {
	return Suspend(func() Effect[Void] {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return Succeed(Void{})
		}
		s.closed = true
		s.result = result
		reversed := make([]Finalizer, 0, len(s.order))
		for i := len(s.order) - 1; i >= 0; i-- {
			if fin, ok := s.finalizers[s.order[i]]; ok {
				reversed = append(reversed, fin)
			}
		}
		s.order, s.finalizers = nil, nil
		s.mu.Unlock()

		if len(reversed) == 0 {
			return Succeed(Void{})
		}
		ran := ForEach(reversed, func(fin Finalizer) Effect[Result[Void]] {
			return AsResult(Suspend(func() Effect[Void] { return fin(result) }))
		}, ForEachOptions{Concurrency: 1})
		return FlatMap(ran, func(outcomes []Result[Void]) Effect[Void] {
			for _, r := range outcomes {
				if !r.ok {
					return FromResult(r)
				}
			}
			return Succeed(Void{})
		})
	})
}

// Fork creates a child scope tied to this one: closing the parent closes the
// child, and a child that closes first de-registers itself so the parent
// does not hold on to it. A child forked from a closed scope starts closed
// with the parent's result.
func (s *Scope) Fork() *Scope {
	child := NewScope()
	remove, closedWith := s.register(func(r Result[any]) Effect[Void] {
		return child.Close(r)
	})
	if closedWith != nil {
		child.closed = true
		child.result = *closedWith
		return child
	}
	child.register(func(Result[any]) Effect[Void] {
		return Sync(func() Void {
			remove()
			return Void{}
		})
	})
	return child
}

// Scoped runs self with a fresh scope provided as a service, and closes the
// scope with self's final result — success or failure — before delivering.
// The close runs masked, so cancellation of self cannot skip finalization; a
// failing close replaces the result.
func Scoped[A any](self Effect[A]) Effect[A] {
	return UninterruptibleMask(func(restore Restore) Effect[A] {
		return FlatMap(Sync(NewScope), func(scope *Scope) Effect[A] {
			body := ProvideService(Restored(restore, self), ScopeTag, scope)
			return FlatMap(AsResult(body), func(r Result[A]) Effect[A] {
				return AndThen(scope.Close(eraseResult(r)), FromResult(r))
			})
		})
	})
}

// AcquireRelease acquires a resource uninterruptibly and registers its
// release on the ambient scope, keyed to the scope's close result. Requires
// Scoped upstream; running it unscoped is a defect.
func AcquireRelease[A any](acquire Effect[A], release func(a A, result Result[any]) Effect[Void]) Effect[A] {
	return Uninterruptible(
		FlatMap(Service(ScopeTag), func(scope *Scope) Effect[A] {
			return FlatMap(acquire, func(a A) Effect[A] {
				return As(scope.AddFinalizer(func(r Result[any]) Effect[Void] {
					return release(a, r)
				}), a)
			})
		}),
	)
}

// AcquireUseRelease brackets a resource without a scope: acquire runs
// masked, use runs restored to the caller's interruptibility, and release
// runs masked for every outcome of use — success, expected failure, defect
// or abort — exactly once. Only use is cancellable by the caller. If acquire
// fails, release does not run.
func AcquireUseRelease[A, B any](
	acquire Effect[A],
	use func(a A) Effect[B],
	release func(a A, result Result[B]) Effect[Void],
) Effect[B] {
	return UninterruptibleMask(func(restore Restore) Effect[B] {
		return FlatMap(acquire, func(a A) Effect[B] {
			used := AsResult(Restored(restore, Suspend(func() Effect[B] { return use(a) })))
			return FlatMap(used, func(r Result[B]) Effect[B] {
				released := Suspend(func() Effect[Void] { return release(a, r) })
				return AndThen(released, FromResult(r))
			})
		})
	})
}

// OnResult runs f on every exit of self with the reified result, masked
// against cancellation. Self's outcome is delivered unchanged unless self
// succeeded and f failed, in which case f's failure takes its place.
func OnResult[A any](self Effect[A], f func(result Result[A]) Effect[Void]) Effect[A] {
	return UninterruptibleMask(func(restore Restore) Effect[A] {
		return FlatMap(AsResult(Restored(restore, self)), func(r Result[A]) Effect[A] {
			cleaned := AsResult(Suspend(func() Effect[Void] { return f(r) }))
			return FlatMap(cleaned, func(cr Result[Void]) Effect[A] {
				if !cr.ok && r.ok {
					return FromResult(retype[Void, A](cr))
				}
				return FromResult(r)
			})
		})
	})
}

// OnInterrupt runs f only when self exits by cancellation.
func OnInterrupt[A any](self Effect[A], f func() Effect[Void]) Effect[A] {
	return OnResult(self, func(r Result[A]) Effect[Void] {
		if failure, ok := r.GetFailure(); ok && failure.IsAborted() {
			return f()
		}
		return Succeed(Void{})
	})
}
