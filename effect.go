package effect

import (
	"fmt"

	"github.com/LuxXx/effect/pure"
	"github.com/LuxXx/effect/servicemap"
)

// Effect is an inert description of a computation producing an A. Nothing
// happens until one of the run functions executes it; running delivers
// exactly one Result to the continuation (Never and its derivatives deliver
// none). Effects are values: they can be stored, passed around, and run any
// number of times, each run independent of the others.
type Effect[A any] struct {
	run func(env *Env, resume func(Result[A]))
}

// makeEffect wraps body with the universal cancellation checkpoint: when the
// region is interruptible and the in-force signal has already been aborted,
// the effect delivers Aborted without invoking body. Every constructor in
// the package goes through here, which makes every combinator boundary a
// deterministic cancellation point.
func makeEffect[A any](body func(env *Env, resume func(Result[A]))) Effect[A] {
	return Effect[A]{run: func(env *Env, resume func(Result[A])) {
		if env.interruptible && env.signal.Aborted() {
			resume(Err[A](Aborted()))
			return
		}
		body(env, resume)
	}}
}

// protect runs fn, converting a panic into an unexpected defect.
func protect[T any](fn func() T) (out T, failure Failure, panicked bool) {
	defer func() {
		if p := recover(); p != nil {
			failure = Unexpected(p)
			panicked = true
		}
	}()
	out = fn()
	return
}

// Succeed delivers a.
func Succeed[A any](a A) Effect[A] {
	return makeEffect(func(_ *Env, resume func(Result[A])) {
		resume(Ok(a))
	})
}

// Fail delivers err as an expected failure.
func Fail[A any](err error) Effect[A] {
	return makeEffect(func(_ *Env, resume func(Result[A])) {
		resume(Err[A](Expected(err)))
	})
}

// Die delivers defect as an unexpected failure.
func Die[A any](defect any) Effect[A] {
	return makeEffect(func(_ *Env, resume func(Result[A])) {
		resume(Err[A](Unexpected(defect)))
	})
}

// Sync runs thunk at execution time. A panic in thunk becomes a defect.
func Sync[A any](thunk func() A) Effect[A] {
	return makeEffect(func(_ *Env, resume func(Result[A])) {
		a, failure, panicked := protect(thunk)
		if panicked {
			resume(Err[A](failure))
			return
		}
		resume(Ok(a))
	})
}

// Suspend defers construction of an effect to execution time, then runs it
// in place. A panic in f becomes a defect.
func Suspend[A any](f func() Effect[A]) Effect[A] {
	return makeEffect(func(env *Env, resume func(Result[A])) {
		next, failure, panicked := protect(f)
		if panicked {
			resume(Err[A](failure))
			return
		}
		next.run(env, resume)
	})
}

// FromResult delivers a previously reified result.
func FromResult[A any](r Result[A]) Effect[A] {
	return makeEffect(func(_ *Env, resume func(Result[A])) {
		resume(r)
	})
}

// FromOption lifts an Option: present values succeed, absence fails
// expectedly with pure.ErrNoValue.
func FromOption[A any](o pure.Option[A]) Effect[A] {
	return makeEffect(func(_ *Env, resume func(Result[A])) {
		if a, ok := o.Get(); ok {
			resume(Ok(a))
			return
		}
		resume(Err[A](Expected(pure.ErrNoValue)))
	})
}

// FromEither lifts an Either: Right succeeds, Left fails expectedly.
func FromEither[E error, A any](e pure.Either[E, A]) Effect[A] {
	return makeEffect(func(_ *Env, resume func(Result[A])) {
		if a, ok := e.GetRight(); ok {
			resume(Ok(a))
			return
		}
		l, _ := e.GetLeft()
		resume(Err[A](Expected(l)))
	})
}

// Service reads the service bound under tag. A missing or mis-typed binding
// is a programmer error and surfaces as a defect.
func Service[S any](tag *servicemap.Tag[S]) Effect[S] {
	return makeEffect(func(env *Env, resume func(Result[S])) {
		svc, ok := servicemap.Get(env.services, tag)
		if !ok {
			resume(Err[S](Unexpected(fmt.Errorf("service not found: %s", tag))))
			return
		}
		resume(Ok(svc))
	})
}

// ServiceOrElse reads the service bound under tag, falling back to fallback
// when the binding is absent.
func ServiceOrElse[S any](tag *servicemap.Tag[S], fallback func() S) Effect[S] {
	return makeEffect(func(env *Env, resume func(Result[S])) {
		if svc, ok := servicemap.Get(env.services, tag); ok {
			resume(Ok(svc))
			return
		}
		svc, failure, panicked := protect(fallback)
		if panicked {
			resume(Err[S](failure))
			return
		}
		resume(Ok(svc))
	})
}

// ProvideService runs self with svc bound under tag in the service map.
func ProvideService[A, S any](self Effect[A], tag *servicemap.Tag[S], svc S) Effect[A] {
	return makeEffect(func(env *Env, resume func(Result[A])) {
		self.run(env.withServices(servicemap.Add(env.services, tag, svc)), resume)
	})
}

// WithConcurrency runs self with c as the inherited concurrency policy.
func WithConcurrency[A any](self Effect[A], c Concurrency) Effect[A] {
	return makeEffect(func(env *Env, resume func(Result[A])) {
		self.run(env.withConcurrency(c), resume)
	})
}
