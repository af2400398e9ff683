// Package ref provides a mutable cell whose reads and writes are effect
// values. A Ref is safe to share between concurrent children; every
// operation holds the cell's lock for its duration, so Update and Modify
// are atomic read-modify-write steps.
package ref

import (
	"sync"

	"github.com/LuxXx/effect"
)

// Ref is a mutable cell holding an S.
type Ref[S any] struct {
	mu    sync.Mutex
	value S
}

// Make allocates a cell holding initial.
func Make[S any](initial S) effect.Effect[*Ref[S]] {
	return effect.Sync(func() *Ref[S] {
		return &Ref[S]{value: initial}
	})
}

// Get reads the current value.
func (r *Ref[S]) Get() effect.Effect[S] {
	return effect.Sync(func() S {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.value
	})
}

// Set replaces the current value.
func (r *Ref[S]) Set(value S) effect.Effect[effect.Void] {
	return effect.Sync(func() effect.Void {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.value = value
		return effect.Void{}
	})
}

// Update replaces the value with f of it, atomically.
func (r *Ref[S]) Update(f func(S) S) effect.Effect[effect.Void] {
	return effect.Sync(func() effect.Void {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.value = f(r.value)
		return effect.Void{}
	})
}

// GetAndUpdate replaces the value with f of it and returns the previous
// value.
func (r *Ref[S]) GetAndUpdate(f func(S) S) effect.Effect[S] {
	return effect.Sync(func() S {
		r.mu.Lock()
		defer r.mu.Unlock()
		prev := r.value
		r.value = f(prev)
		return prev
	})
}

// Modify computes a return value and a replacement in one atomic step.
func Modify[S, B any](r *Ref[S], f func(S) (B, S)) effect.Effect[B] {
	return effect.Sync(func() B {
		r.mu.Lock()
		defer r.mu.Unlock()
		b, next := f(r.value)
		r.value = next
		return b
	})
}

// CompareAndSet replaces old with new only when the cell still holds old,
// reporting whether the swap happened.
func CompareAndSet[S comparable](r *Ref[S], old, new S) effect.Effect[bool] {
	return effect.Sync(func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.value != old {
			return false
		}
		r.value = new
		return true
	})
}
