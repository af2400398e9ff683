package effect

import "context"

// RunFork executes the effect on its own goroutine with a root controller
// and returns its handle immediately.
func RunFork[A any](e Effect[A]) *Handle[A] {
	h := newHandle[A](nil)
	go h.start(e, newEnv())
	return h
}

// RunPromise executes the effect and blocks until it delivers. Cancelling
// ctx aborts the running effect. On failure the returned error is the
// Failure value itself: expected errors and error-typed defects remain
// reachable through errors.Is and errors.As, and aborts match ErrAborted.
func RunPromise[A any](ctx context.Context, e Effect[A]) (A, error) {
	h := RunFork(e)
	stop := context.AfterFunc(ctx, h.UnsafeAbort)
	defer stop()
	r := h.Wait()
	if a, ok := r.Get(); ok {
		return a, nil
	}
	var zero A
	return zero, r.failure
}

// RunSync executes the effect on the calling goroutine and returns its value
// when it completed synchronously. An effect that suspends keeps running in
// the background, and RunSync reports a defect carrying its live handle.
func RunSync[A any](e Effect[A]) (A, error) {
	h := newHandle[A](nil)
	h.start(e, newEnv())
	if r, ok := h.UnsafePoll(); ok {
		if a, success := r.Get(); success {
			return a, nil
		}
		var zero A
		return zero, r.failure
	}
	var zero A
	return zero, Unexpected(h)
}
