package effect

import (
	"errors"
	"sync"
	"time"

	"github.com/LuxXx/effect/abort"
	"github.com/LuxXx/effect/pure"
)

// RaceAll runs all effects in parallel under a child controller derived from
// the in-force signal. The first success wins: the rest are aborted, and the
// winner is delivered only after every child has reported, so losers finish
// their interruption cleanup before the race resolves. When every child
// fails, the first collected failure is delivered; failures reported after a
// win are dropped.
func RaceAll[A any](effects []Effect[A]) Effect[A] {
	return race(effects, false)
}

// RaceAllFirst is RaceAll where the first outcome of either polarity wins —
// a failure can win the race. Losers are still awaited before delivery.
func RaceAllFirst[A any](effects []Effect[A]) Effect[A] {
	return race(effects, true)
}

func race[A any](effects []Effect[A], anyPolarity bool) Effect[A] {
	return makeEffect(func(env *Env, resume func(Result[A])) {
		if len(effects) == 0 {
			resume(Err[A](Unexpected(errors.New("race: no effects"))))
			return
		}
		child, unlink := abort.Link(env.signal)
		childEnv := env.withController(child)

		var (
			mu           sync.Mutex
			remaining    = len(effects)
			winner       *Result[A]
			firstFailure *Failure
		)

		record := func(r Result[A]) {
			mu.Lock()
			remaining--
			abortRest := false
			if winner == nil && (r.ok || anyPolarity) {
				won := r
				winner = &won
				abortRest = true
			} else if !r.ok && firstFailure == nil {
				failure := r.failure
				firstFailure = &failure
			}
			finished := remaining == 0
			var final Result[A]
			if finished {
				if winner != nil {
					final = *winner
				} else {
					final = Err[A](*firstFailure)
				}
			}
			mu.Unlock()
			if abortRest {
				child.Abort()
			}
			if finished {
				unlink()
				resume(final)
			}
		}

		for _, eff := range effects {
			eff.run(childEnv, record)
		}
	})
}

// Timeout races self against the clock: Some carries self's value, None
// reports that d elapsed first. Expected failures, defects and aborts from
// self win the race and propagate.
func Timeout[A any](self Effect[A], d time.Duration) Effect[pure.Option[A]] {
	return RaceAllFirst([]Effect[pure.Option[A]]{
		Map(self, pure.Some[A]),
		As(Sleep(d), pure.None[A]()),
	})
}

// TimeoutOrElse runs orElse in place of self's value when d elapses first.
func TimeoutOrElse[A any](self Effect[A], d time.Duration, orElse func() Effect[A]) Effect[A] {
	return FlatMap(Timeout(self, d), func(o pure.Option[A]) Effect[A] {
		if a, ok := o.Get(); ok {
			return Succeed(a)
		}
		return Suspend(orElse)
	})
}

// TimeoutFail fails expectedly with onTimeout's error when d elapses first.
func TimeoutFail[A any](self Effect[A], d time.Duration, onTimeout func() error) Effect[A] {
	return TimeoutOrElse(self, d, func() Effect[A] {
		return Fail[A](onTimeout())
	})
}
