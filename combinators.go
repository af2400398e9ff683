package effect

import (
	"errors"
	"fmt"
	"sync"
)

// Map applies f to the success value. A panic in f becomes a defect;
// failures pass through untouched.
func Map[A, B any](self Effect[A], f func(A) B) Effect[B] {
	return makeEffect(func(env *Env, resume func(Result[B])) {
		self.run(env, func(r Result[A]) {
			if !r.ok {
				resume(retype[A, B](r))
				return
			}
			b, failure, panicked := protect(func() B { return f(r.value) })
			if panicked {
				resume(Err[B](failure))
				return
			}
			resume(Ok(b))
		})
	})
}

// FlatMap sequences self with the effect produced by f from its success
// value. Failures short-circuit f.
func FlatMap[A, B any](self Effect[A], f func(A) Effect[B]) Effect[B] {
	return makeEffect(func(env *Env, resume func(Result[B])) {
		self.run(env, func(r Result[A]) {
			if !r.ok {
				resume(retype[A, B](r))
				return
			}
			next, failure, panicked := protect(func() Effect[B] { return f(r.value) })
			if panicked {
				resume(Err[B](failure))
				return
			}
			next.run(env, resume)
		})
	})
}

// AndThen runs self, discards its value, then runs that.
func AndThen[A, B any](self Effect[A], that Effect[B]) Effect[B] {
	return FlatMap(self, func(A) Effect[B] { return that })
}

// As replaces the success value with a constant.
func As[A, B any](self Effect[A], value B) Effect[B] {
	return Map(self, func(A) B { return value })
}

// AsVoid discards the success value.
func AsVoid[A any](self Effect[A]) Effect[Void] {
	return As(self, Void{})
}

// Tap runs f on the success value for its effects, then restores self's
// value. A failing tap replaces the success with its own failure.
func Tap[A, B any](self Effect[A], f func(A) Effect[B]) Effect[A] {
	return FlatMap(self, func(a A) Effect[A] {
		return As(f(a), a)
	})
}

// AsResult reifies the outcome: the returned effect always succeeds,
// carrying the full Result including aborts and defects.
func AsResult[A any](self Effect[A]) Effect[Result[A]] {
	return makeEffect(func(env *Env, resume func(Result[Result[A]])) {
		self.run(env, func(r Result[A]) {
			resume(Ok(r))
		})
	})
}

// MatchFailure dispatches on the full failure, including aborts and
// defects. Panics inside the handlers become defects. The effect a handler
// returns runs in the same environment, so in an interruptible region whose
// signal has aborted it meets the cancellation checkpoint and delivers
// Aborted.
func MatchFailure[A, B any](self Effect[A], onFailure func(Failure) Effect[B], onSuccess func(A) Effect[B]) Effect[B] {
	return makeEffect(func(env *Env, resume func(Result[B])) {
		self.run(env, func(r Result[A]) {
			var next Effect[B]
			var failure Failure
			var panicked bool
			if r.ok {
				next, failure, panicked = protect(func() Effect[B] { return onSuccess(r.value) })
			} else {
				next, failure, panicked = protect(func() Effect[B] { return onFailure(r.failure) })
			}
			if panicked {
				resume(Err[B](failure))
				return
			}
			next.run(env, resume)
		})
	})
}

// Match dispatches on success or expected failure. Defects and aborts
// propagate untouched; use MatchFailure to intercept them.
func Match[A, B any](self Effect[A], onError func(error) Effect[B], onSuccess func(A) Effect[B]) Effect[B] {
	return MatchFailure(self,
		func(f Failure) Effect[B] {
			if err, ok := f.GetExpected(); ok {
				return onError(err)
			}
			return FromResult(Err[B](f))
		},
		onSuccess,
	)
}

// CatchAllFailure intercepts every failure, including aborts and defects.
func CatchAllFailure[A any](self Effect[A], f func(Failure) Effect[A]) Effect[A] {
	return MatchFailure(self, f, Succeed[A])
}

// CatchAll intercepts expected failures only.
func CatchAll[A any](self Effect[A], f func(error) Effect[A]) Effect[A] {
	return Match(self, f, Succeed[A])
}

// OrDie converts expected failures into defects.
func OrDie[A any](self Effect[A]) Effect[A] {
	return CatchAll(self, func(err error) Effect[A] {
		return Die[A](err)
	})
}

// OrElseSucceed replaces any expected failure with the thunk's value.
func OrElseSucceed[A any](self Effect[A], thunk func() A) Effect[A] {
	return CatchAll(self, func(error) Effect[A] {
		return Sync(thunk)
	})
}

// Ignore discards the outcome of self: successes and expected failures both
// become Ok(void). Defects stay fatal and aborts propagate, so a defect
// hidden under Ignore still takes the scope down.
func Ignore[A any](self Effect[A]) Effect[Void] {
	return MatchFailure(self,
		func(f Failure) Effect[Void] {
			if f.IsExpected() {
				return Succeed(Void{})
			}
			return FromResult(Err[Void](f))
		},
		func(A) Effect[Void] { return Succeed(Void{}) },
	)
}

// Repeat runs self once, then times more times, delivering the last value.
// The driver is iterative: synchronous repetitions continue the loop instead
// of recursing, so deep repetition does not grow the stack.
func Repeat[A any](self Effect[A], times int) Effect[A] {
	return makeEffect(func(env *Env, resume func(Result[A])) {
		remaining := times
		var advance func()
		advance = func() {
			for {
				var mu sync.Mutex
				var (
					completed   bool
					outcome     Result[A]
					synchronous = true
				)
				self.run(env, func(r Result[A]) {
					mu.Lock()
					outcome = r
					completed = true
					wasSync := synchronous
					mu.Unlock()
					if wasSync {
						return
					}
					if !r.ok || remaining == 0 {
						resume(r)
						return
					}
					remaining--
					advance()
				})
				mu.Lock()
				synchronous = false
				done, r := completed, outcome
				mu.Unlock()
				if !done {
					return
				}
				if !r.ok || remaining == 0 {
					resume(r)
					return
				}
				remaining--
			}
		}
		advance()
	})
}

// ErrRetryExhausted wraps the last expected failure once Retry gives up.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// Retry re-runs self on expected failure, up to attempts runs in total.
// Defects and aborts are not retried. Once the budget is spent, the last
// failure is delivered wrapped in ErrRetryExhausted.
func Retry[A any](self Effect[A], attempts int) Effect[A] {
	if attempts < 1 {
		attempts = 1
	}
	var attempt func(n int) Effect[A]
	attempt = func(n int) Effect[A] {
		return CatchAll(self, func(err error) Effect[A] {
			if n+1 >= attempts {
				return Fail[A](fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, err))
			}
			return Suspend(func() Effect[A] { return attempt(n + 1) })
		})
	}
	return attempt(0)
}
