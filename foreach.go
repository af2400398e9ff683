package effect

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/LuxXx/effect/abort"
)

// ForEachOptions tunes ForEach. The zero value inherits the environment's
// concurrency policy and collects results.
type ForEachOptions struct {
	// Concurrency bounds the number of in-flight children. Inherit reads
	// the policy installed by WithConcurrency; Unbounded lifts the limit.
	Concurrency Concurrency
	// Discard skips collecting the output array.
	Discard bool
}

// normalizeOptions flattens optional options into one value.
// Accepts either 0 or 1 option structs. Panics if more than one is passed.
func normalizeOptions(opts []ForEachOptions) ForEachOptions {
	switch len(opts) {
	case 0:
		return ForEachOptions{Concurrency: 1}
	case 1:
		return opts[0]
	default:
		panic("normalizeOptions: only one or zero option structs allowed")
	}
}

// ForEach applies f to every item and collects the outputs in input order,
// regardless of completion order. Without options the items are processed
// sequentially.
//
// Sequentially, the first failure stops the iteration and already-completed
// outputs are discarded. Concurrently, the first failure from any child
// aborts the remaining in-flight work, and is delivered only after every
// in-flight child has reported — losers get to run their cleanup before the
// combinator resolves.
func ForEach[T, B any](items []T, f func(T) Effect[B], opts ...ForEachOptions) Effect[[]B] {
	opt := normalizeOptions(opts)
	return makeEffect(func(env *Env, resume func(Result[[]B])) {
		limit := resolveConcurrency(opt.Concurrency, env)
		if limit == 1 || len(items) <= 1 {
			forEachSequential(env, items, f, opt.Discard, resume)
			return
		}
		forEachConcurrent(env, items, f, limit, opt.Discard, resume)
	})
}

// ForEachDiscard is ForEach for effects run purely for their side effects.
func ForEachDiscard[T, B any](items []T, f func(T) Effect[B], opts ...ForEachOptions) Effect[Void] {
	opt := normalizeOptions(opts)
	opt.Discard = true
	return AsVoid(ForEach(items, f, opt))
}

// resolveConcurrency turns the option into an effective limit: a positive
// bound, or 0 meaning unbounded.
func resolveConcurrency(c Concurrency, env *Env) int {
	if c == Inherit {
		c = env.concurrency
	}
	switch {
	case c == Unbounded:
		return 0
	case c <= 0:
		// Inherit from an environment that itself says inherit: sequential.
		return 1
	default:
		return int(c)
	}
}

// forEachSequential processes items in order with an iterative driver:
// synchronously completing children continue the loop, asynchronous ones
// re-enter it from their callback. Either way the stack stays flat.
func forEachSequential[T, B any](env *Env, items []T, f func(T) Effect[B], discard bool, resume func(Result[[]B])) {
	var results []B
	if !discard {
		results = make([]B, 0, len(items))
	}
	index := 0
	var advance func()
	advance = func() {
		for {
			if index >= len(items) {
				resume(Ok(results))
				return
			}
			item := items[index]
			index++

			eff, failure, panicked := protect(func() Effect[B] { return f(item) })
			if panicked {
				resume(Err[[]B](failure))
				return
			}

			var mu sync.Mutex
			var (
				completed   bool
				outcome     Result[B]
				synchronous = true
			)
			eff.run(env, func(r Result[B]) {
				mu.Lock()
				outcome = r
				completed = true
				wasSync := synchronous
				mu.Unlock()
				if wasSync {
					return
				}
				if !r.ok {
					resume(retype[B, []B](r))
					return
				}
				if !discard {
					results = append(results, r.value)
				}
				advance()
			})
			mu.Lock()
			synchronous = false
			done, r := completed, outcome
			mu.Unlock()
			if !done {
				return
			}
			if !r.ok {
				resume(retype[B, []B](r))
				return
			}
			if !discard {
				results = append(results, r.value)
			}
		}
	}
	advance()
}

// forEachConcurrent pumps items while under the limit (limit 0 means
// unbounded) under a child controller derived from the in-force signal.
func forEachConcurrent[T, B any](env *Env, items []T, f func(T) Effect[B], limit int, discard bool, resume func(Result[[]B])) {
	child, unlink := abort.Link(env.signal)
	childEnv := env.withController(child)

	var (
		mu           sync.Mutex
		results      []B
		next         int
		inFlight     int
		firstFailure *Failure
		delivered    bool
		pumping      bool
	)
	if !discard {
		results = make([]B, len(items))
	}

	finish := func(r Result[[]B]) {
		unlink()
		resume(r)
	}

	var pump func()
	var launch func(idx int)

	pump = func() {
		mu.Lock()
		if pumping || delivered {
			mu.Unlock()
			return
		}
		pumping = true
		for {
			if firstFailure != nil || next >= len(items) {
				if inFlight > 0 {
					// Wait for in-flight children to report.
					pumping = false
					mu.Unlock()
					return
				}
				delivered = true
				pumping = false
				failure := firstFailure
				mu.Unlock()
				if failure != nil {
					finish(Err[[]B](*failure))
				} else {
					finish(Ok(results))
				}
				return
			}
			if limit > 0 && inFlight >= limit {
				pumping = false
				mu.Unlock()
				return
			}
			idx := next
			next++
			inFlight++
			mu.Unlock()
			launch(idx)
			mu.Lock()
		}
	}

	launch = func(idx int) {
		record := func(r Result[B]) {
			shouldAbort := false
			mu.Lock()
			inFlight--
			if r.ok {
				if !discard {
					results[idx] = r.value
				}
			} else if firstFailure == nil {
				failure := r.failure
				firstFailure = &failure
				shouldAbort = true
			}
			mu.Unlock()
			if shouldAbort {
				child.Abort()
			}
			pump()
		}

		eff, failure, panicked := protect(func() Effect[B] { return f(items[idx]) })
		if panicked {
			record(Err[B](failure))
			return
		}
		eff.run(childEnv, record)
	}

	pump()
}

// ForEachPartitioned is ForEach with per-key ordering: items whose keys hash
// to the same partition are processed sequentially in input order, while up
// to workers partitions run concurrently. The output array still follows
// input order.
func ForEachPartitioned[T, B any](items []T, key func(T) string, f func(T) Effect[B], workers int) Effect[[]B] {
	if workers <= 1 {
		return ForEach(items, f)
	}
	return Suspend(func() Effect[[]B] {
		partitions := make([][]int, workers)
		for i, item := range items {
			p := partitionIndex(key(item), workers)
			partitions[p] = append(partitions[p], i)
		}
		occupied := partitions[:0]
		for _, idxs := range partitions {
			if len(idxs) > 0 {
				occupied = append(occupied, idxs)
			}
		}

		results := make([]B, len(items))
		drained := ForEachDiscard(occupied, func(idxs []int) Effect[Void] {
			// Partitions own disjoint index sets, so the writes below
			// never collide.
			return ForEachDiscard(idxs, func(i int) Effect[Void] {
				return Map(f(items[i]), func(b B) Void {
					results[i] = b
					return Void{}
				})
			})
		}, ForEachOptions{Concurrency: Concurrency(workers)})
		return As(drained, results)
	})
}

// partitionIndex routes a key to one of n partitions by hash.
func partitionIndex(key string, n int) int {
	if n == 1 {
		return 0
	}
	return int(xxhash.Sum64String(key) % uint64(n))
}
