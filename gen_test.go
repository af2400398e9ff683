package effect_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LuxXx/effect"
)

func TestGenSequencesAwaits(t *testing.T) {
	v, err := effect.RunPromise(context.Background(), effect.Gen(func(g *effect.Sequencer) int {
		a := effect.Await(g, effect.Succeed(20))
		b := effect.Await(g, effect.Delay(effect.Succeed(22), 10*time.Millisecond))
		return a + b
	}))
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestGenShortCircuitsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	reached := false
	_, err := effect.RunPromise(context.Background(), effect.Gen(func(g *effect.Sequencer) int {
		effect.Await(g, effect.Fail[effect.Void](boom))
		reached = true
		return 1
	}))
	require.ErrorIs(t, err, boom)
	require.False(t, reached)
}

func TestGenBodyPanicIsDefect(t *testing.T) {
	_, err := effect.RunPromise(context.Background(), effect.Gen(func(*effect.Sequencer) int {
		panic("body exploded")
	}))
	var failure effect.Failure
	require.ErrorAs(t, err, &failure)
	defect, ok := failure.GetDefect()
	require.True(t, ok)
	require.Equal(t, "body exploded", defect)
}

func TestGenManySynchronousAwaits(t *testing.T) {
	v, err := effect.RunPromise(context.Background(), effect.Gen(func(g *effect.Sequencer) int {
		total := 0
		for i := 0; i < 10000; i++ {
			total += effect.Await(g, effect.Succeed(1))
		}
		return total
	}))
	require.NoError(t, err)
	require.Equal(t, 10000, v)
}

func TestGenObservesAbort(t *testing.T) {
	h := effect.RunFork(effect.Gen(func(g *effect.Sequencer) int {
		effect.Await(g, effect.Sleep(time.Second))
		return 1
	}))
	time.Sleep(20 * time.Millisecond)
	h.UnsafeAbort()
	r := h.Wait()
	failure, failed := r.GetFailure()
	require.True(t, failed)
	require.True(t, failure.IsAborted())
}
