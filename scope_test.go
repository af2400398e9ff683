package effect_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LuxXx/effect"
)

// recorder collects finalizer markers safely across goroutines.
type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (rec *recorder) push(name string) effect.Effect[effect.Void] {
	return effect.Sync(func() effect.Void {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.entries = append(rec.entries, name)
		return effect.Void{}
	})
}

func (rec *recorder) snapshot() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]string(nil), rec.entries...)
}

func TestScopeClosesInReverseInsertionOrder(t *testing.T) {
	ctx := context.Background()
	scope := effect.NewScope()
	rec := &recorder{}

	setup := effect.AndThen(
		effect.AndThen(
			scope.AddFinalizer(func(effect.Result[any]) effect.Effect[effect.Void] { return rec.push("f1") }),
			scope.AddFinalizer(func(effect.Result[any]) effect.Effect[effect.Void] { return rec.push("f2") }),
		),
		scope.AddFinalizer(func(effect.Result[any]) effect.Effect[effect.Void] { return rec.push("f3") }),
	)
	_, err := effect.RunPromise(ctx, effect.AndThen(setup, scope.Close(effect.Ok[any](nil))))
	require.NoError(t, err)
	require.Equal(t, []string{"f3", "f2", "f1"}, rec.snapshot())
}

func TestScopeCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	scope := effect.NewScope()
	rec := &recorder{}

	_, err := effect.RunPromise(ctx, effect.AndThen(
		scope.AddFinalizer(func(effect.Result[any]) effect.Effect[effect.Void] { return rec.push("fin") }),
		effect.AndThen(
			scope.Close(effect.Ok[any](nil)),
			scope.Close(effect.Ok[any](nil)),
		),
	))
	require.NoError(t, err)
	require.Equal(t, []string{"fin"}, rec.snapshot())
}

func TestAddFinalizerOnClosedScopeRunsImmediately(t *testing.T) {
	ctx := context.Background()
	scope := effect.NewScope()
	rec := &recorder{}

	_, err := effect.RunPromise(ctx, effect.AndThen(
		scope.Close(effect.Ok[any]("done")),
		scope.AddFinalizer(func(r effect.Result[any]) effect.Effect[effect.Void] {
			v, ok := r.Get()
			require.True(t, ok)
			require.Equal(t, "done", v)
			return rec.push("late")
		}),
	))
	require.NoError(t, err)
	require.Equal(t, []string{"late"}, rec.snapshot())
}

func TestScopeCloseSurfacesFirstFinalizerFailure(t *testing.T) {
	ctx := context.Background()
	scope := effect.NewScope()
	rec := &recorder{}

	setup := effect.AndThen(
		scope.AddFinalizer(func(effect.Result[any]) effect.Effect[effect.Void] { return rec.push("first-registered") }),
		scope.AddFinalizer(func(effect.Result[any]) effect.Effect[effect.Void] {
			return effect.Die[effect.Void]("finalizer defect")
		}),
	)
	_, err := effect.RunPromise(ctx, effect.AndThen(setup, scope.Close(effect.Ok[any](nil))))
	var failure effect.Failure
	require.ErrorAs(t, err, &failure)
	require.True(t, failure.IsUnexpected())
	// The failing finalizer does not stop the remaining ones.
	require.Equal(t, []string{"first-registered"}, rec.snapshot())
}

func TestScopeForkChildClosedByParent(t *testing.T) {
	ctx := context.Background()
	parent := effect.NewScope()
	child := parent.Fork()
	rec := &recorder{}

	_, err := effect.RunPromise(ctx, effect.AndThen(
		child.AddFinalizer(func(effect.Result[any]) effect.Effect[effect.Void] { return rec.push("child") }),
		parent.Close(effect.Ok[any](nil)),
	))
	require.NoError(t, err)
	require.Equal(t, []string{"child"}, rec.snapshot())
}

func TestScopeForkChildDeregistersItself(t *testing.T) {
	ctx := context.Background()
	parent := effect.NewScope()
	child := parent.Fork()
	rec := &recorder{}

	_, err := effect.RunPromise(ctx, effect.AndThen(
		effect.AndThen(
			child.AddFinalizer(func(effect.Result[any]) effect.Effect[effect.Void] { return rec.push("child") }),
			child.Close(effect.Ok[any](nil)),
		),
		parent.Close(effect.Ok[any](nil)),
	))
	require.NoError(t, err)
	require.Equal(t, []string{"child"}, rec.snapshot())
}

func TestScopeForkFromClosedParentStartsClosed(t *testing.T) {
	ctx := context.Background()
	parent := effect.NewScope()
	_, err := effect.RunPromise(ctx, parent.Close(effect.Ok[any](nil)))
	require.NoError(t, err)

	child := parent.Fork()
	rec := &recorder{}
	_, err = effect.RunPromise(ctx, child.AddFinalizer(func(effect.Result[any]) effect.Effect[effect.Void] {
		return rec.push("immediate")
	}))
	require.NoError(t, err)
	require.Equal(t, []string{"immediate"}, rec.snapshot())
}

func TestScopedProvidesAndClosesScope(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}

	v, err := effect.RunPromise(ctx, effect.Scoped(effect.FlatMap(
		effect.Service(effect.ScopeTag),
		func(scope *effect.Scope) effect.Effect[int] {
			return effect.As(scope.AddFinalizer(func(effect.Result[any]) effect.Effect[effect.Void] {
				return rec.push("released")
			}), 10)
		},
	)))
	require.NoError(t, err)
	require.Equal(t, 10, v)
	require.Equal(t, []string{"released"}, rec.snapshot())
}

func TestScopedClosesOnFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	rec := &recorder{}

	_, err := effect.RunPromise(ctx, effect.Scoped(effect.AndThen(
		effect.FlatMap(effect.Service(effect.ScopeTag), func(scope *effect.Scope) effect.Effect[effect.Void] {
			return scope.AddFinalizer(func(r effect.Result[any]) effect.Effect[effect.Void] {
				failure, failed := r.GetFailure()
				require.True(t, failed)
				require.ErrorIs(t, failure, boom)
				return rec.push("released")
			})
		}),
		effect.Fail[int](boom),
	)))
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"released"}, rec.snapshot())
}

func TestAcquireReleaseRequiresScope(t *testing.T) {
	_, err := effect.RunPromise(context.Background(), effect.AcquireRelease(
		effect.Succeed(1),
		func(int, effect.Result[any]) effect.Effect[effect.Void] { return effect.Succeed(effect.Void{}) },
	))
	var failure effect.Failure
	require.ErrorAs(t, err, &failure)
	require.True(t, failure.IsUnexpected())
}

func TestAcquireReleaseRunsReleaseOnClose(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}

	v, err := effect.RunPromise(ctx, effect.Scoped(effect.FlatMap(
		effect.AcquireRelease(
			effect.Succeed("conn"),
			func(a string, _ effect.Result[any]) effect.Effect[effect.Void] {
				return rec.push("release:" + a)
			},
		),
		func(a string) effect.Effect[string] { return effect.Succeed(a + ":used") },
	)))
	require.NoError(t, err)
	require.Equal(t, "conn:used", v)
	require.Equal(t, []string{"release:conn"}, rec.snapshot())
}

// Cancellation between acquire and release cannot leak the resource.
func TestAcquireReleaseSurvivesAbort(t *testing.T) {
	rec := &recorder{}
	h := effect.RunFork(effect.Scoped(effect.AndThen(
		effect.AcquireRelease(
			effect.Succeed("res"),
			func(string, effect.Result[any]) effect.Effect[effect.Void] { return rec.push("released") },
		),
		effect.Sleep(time.Second),
	)))
	time.Sleep(20 * time.Millisecond)
	h.UnsafeAbort()

	r := h.Wait()
	failure, failed := r.GetFailure()
	require.True(t, failed)
	require.True(t, failure.IsAborted())
	require.Equal(t, []string{"released"}, rec.snapshot())
}

func TestAcquireUseReleaseFailedAcquireSkipsRelease(t *testing.T) {
	boom := errors.New("no resource")
	released := false
	_, err := effect.RunPromise(context.Background(), effect.AcquireUseRelease(
		effect.Fail[int](boom),
		func(int) effect.Effect[int] { return effect.Succeed(0) },
		func(int, effect.Result[int]) effect.Effect[effect.Void] {
			released = true
			return effect.Succeed(effect.Void{})
		},
	))
	require.ErrorIs(t, err, boom)
	require.False(t, released)
}

func TestOnResultRunsOnEveryExit(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	boom := errors.New("boom")

	_, err := effect.RunPromise(ctx, effect.OnResult(effect.Succeed(1), func(r effect.Result[int]) effect.Effect[effect.Void] {
		return rec.push("ok-exit")
	}))
	require.NoError(t, err)

	_, err = effect.RunPromise(ctx, effect.OnResult(effect.Fail[int](boom), func(r effect.Result[int]) effect.Effect[effect.Void] {
		return rec.push("err-exit")
	}))
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"ok-exit", "err-exit"}, rec.snapshot())
}

func TestOnInterruptFiresOnlyOnAbort(t *testing.T) {
	rec := &recorder{}

	_, err := effect.RunPromise(context.Background(), effect.OnInterrupt(effect.Succeed(1), func() effect.Effect[effect.Void] {
		return rec.push("never")
	}))
	require.NoError(t, err)
	require.Empty(t, rec.snapshot())

	h := effect.RunFork(effect.OnInterrupt(effect.Sleep(time.Second), func() effect.Effect[effect.Void] {
		return rec.push("interrupted")
	}))
	time.Sleep(20 * time.Millisecond)
	h.UnsafeAbort()
	r := h.Wait()
	failure, failed := r.GetFailure()
	require.True(t, failed)
	require.True(t, failure.IsAborted())
	require.Equal(t, []string{"interrupted"}, rec.snapshot())
}
