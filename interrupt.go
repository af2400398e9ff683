package effect

import "github.com/LuxXx/effect/abort"

// Uninterruptible runs self in a region where pending cancellation is not
// observed: the interruptibility flag drops and the in-force signal is
// replaced with one that never fires. The parent's controller stays in the
// environment, so Interruptible can restore its signal further down.
//
// External cancellation is then handled at the next checkpoint after the
// region, with whatever result the region produced.
func Uninterruptible[A any](self Effect[A]) Effect[A] {
	return makeEffect(func(env *Env, resume func(Result[A])) {
		masked := env.withSignal(abort.NewController().Signal()).withInterruptible(false)
		self.run(masked, resume)
	})
}

// Interruptible re-enables cancellation: the flag rises and the controller's
// own signal is reinstalled, so an abort issued while the surrounding region
// was masked is observed at the very next checkpoint.
func Interruptible[A any](self Effect[A]) Effect[A] {
	return makeEffect(func(env *Env, resume func(Result[A])) {
		restored := env.withSignal(env.controller.Signal()).withInterruptible(true)
		self.run(restored, resume)
	})
}

// Restore marks whether a masked region was interruptible on entry. Apply it
// with Restored.
type Restore bool

// Restored re-enables interruptibility for self when the surrounding mask
// captured an interruptible region, and is the identity otherwise.
func Restored[A any](restore Restore, self Effect[A]) Effect[A] {
	if restore {
		return Interruptible(self)
	}
	return self
}

// UninterruptibleMask runs the effect built by f in an uninterruptible
// region, handing f a Restore that reverts to the caller's interruptibility.
// This is the tool for making resource bookkeeping atomic with respect to
// cancellation: acquire outside restore, use inside it.
func UninterruptibleMask[A any](f func(restore Restore) Effect[A]) Effect[A] {
	return makeEffect(func(env *Env, resume func(Result[A])) {
		restore := Restore(env.interruptible)
		inner, failure, panicked := protect(func() Effect[A] { return f(restore) })
		if panicked {
			resume(Err[A](failure))
			return
		}
		if !env.interruptible {
			inner.run(env, resume)
			return
		}
		masked := env.withSignal(abort.NewController().Signal()).withInterruptible(false)
		inner.run(masked, resume)
	})
}
