package effect

import (
	"context"
	"sync"
	"time"

	"github.com/LuxXx/effect/abort"
)

// Async builds an effect from a callback registration. register receives a
// resume function and the abort signal in force; it may call resume at most
// once, from any goroutine — later calls are ignored. The effect register
// hands to resume continues in the caller's environment.
//
// register may return a cleanup effect (the zero Effect means none). When
// the signal aborts before resume has been called, the cleanup runs
// uninterruptibly and the effect then delivers Aborted.
func Async[A any](register func(resume func(Effect[A]), signal *abort.Signal) Effect[Void]) Effect[A] {
	return makeEffect(func(env *Env, deliver func(Result[A])) {
		signal := env.signal

		var mu sync.Mutex
		claimed := false
		claim := func() bool {
			mu.Lock()
			defer mu.Unlock()
			if claimed {
				return false
			}
			claimed = true
			return true
		}

		var cleanup Effect[Void]

		resume := func(next Effect[A]) {
			if !claim() {
				return
			}
			next.run(env, deliver)
		}

		returned, failure, panicked := protect(func() Effect[Void] {
			return register(resume, signal)
		})
		if panicked {
			if claim() {
				deliver(Err[A](failure))
			}
			return
		}
		cleanup = returned

		mu.Lock()
		already := claimed
		mu.Unlock()
		if already {
			return
		}

		unsubscribe := signal.Subscribe(func() {
			if !claim() {
				return
			}
			if cleanup.run == nil {
				deliver(Err[A](Aborted()))
				return
			}
			masked := env.withSignal(abort.NewController().Signal()).withInterruptible(false)
			cleanup.run(masked, func(Result[Void]) {
				deliver(Err[A](Aborted()))
			})
		})

		// resume may have raced the subscription from another goroutine;
		// drop the listener once it can no longer fire.
		mu.Lock()
		already = claimed
		mu.Unlock()
		if already {
			unsubscribe()
		}
	})
}

// YieldNow hops to a fresh goroutine before delivering, giving other ready
// work a chance to run.
func YieldNow() Effect[Void] {
	return makeEffect(func(_ *Env, resume func(Result[Void])) {
		go resume(Ok(Void{}))
	})
}

// Never is the effect that never delivers. It completes only through
// cancellation.
func Never[A any]() Effect[A] {
	return Async(func(func(Effect[A]), *abort.Signal) Effect[Void] {
		return Effect[Void]{}
	})
}

// Sleep delivers after d has elapsed. Cancellation stops the timer.
func Sleep(d time.Duration) Effect[Void] {
	return Async(func(resume func(Effect[Void]), _ *abort.Signal) Effect[Void] {
		timer := time.AfterFunc(d, func() {
			resume(Succeed(Void{}))
		})
		return Sync(func() Void {
			timer.Stop()
			return Void{}
		})
	})
}

// Delay runs self after d has elapsed.
func Delay[A any](self Effect[A], d time.Duration) Effect[A] {
	return AndThen(Sleep(d), self)
}

// Task runs fn on its own goroutine with a context cancelled by the in-force
// signal. A non-nil error from fn is treated as a defect; use TryTask for
// errors that belong to the expected channel. A panic in fn is a defect.
func Task[A any](fn func(ctx context.Context) (A, error)) Effect[A] {
	return asTask(fn, func(err error) Failure { return Unexpected(err) })
}

// TryTask is Task with failures routed to the expected channel: a non-nil
// error from fn fails the effect expectedly.
func TryTask[A any](fn func(ctx context.Context) (A, error)) Effect[A] {
	return asTask(fn, Expected)
}

func asTask[A any](fn func(ctx context.Context) (A, error), onError func(error) Failure) Effect[A] {
	return Async(func(resume func(Effect[A]), signal *abort.Signal) Effect[Void] {
		ctx, cancel := abort.AsContext(signal)
		go func() {
			defer cancel()
			a, err, panicked := protectTask(fn, ctx)
			switch {
			case panicked != nil:
				resume(FromResult(Err[A](*panicked)))
			case err != nil:
				resume(FromResult(Err[A](onError(err))))
			default:
				resume(Succeed(a))
			}
		}()
		return Sync(func() Void {
			cancel()
			return Void{}
		})
	})
}

func protectTask[A any](fn func(ctx context.Context) (A, error), ctx context.Context) (a A, err error, panicked *Failure) {
	defer func() {
		if p := recover(); p != nil {
			f := Unexpected(p)
			panicked = &f
		}
	}()
	a, err = fn(ctx)
	return
}
