// Package effect provides a lightweight effect runtime for Go: a
// suspended-computation value that composes success, failure, defects and
// cancellation, an interpreter that executes such values with structured
// concurrency and scoped finalization, and a small set of combinators on
// top.
//
// # What is an effect?
//
// An [Effect] is an inert description of work. Building one does nothing;
// one of the run functions — [RunPromise], [RunSync], [RunFork] — executes
// it and delivers exactly one [Result]. Because effects are plain values,
// failing, racing, forking, bracketing and interrupting are all expressed by
// wrapping values in values, and a description can be run as many times as
// needed.
//
// # Failure algebra
//
// Every failed run carries a [Failure] that is exactly one of:
//
//   - expected — a recoverable error raised with [Fail], handled by
//     [CatchAll] and [Match]
//   - unexpected — a defect: a panic or a [Die], visible only to
//     [CatchAllFailure] and [MatchFailure]
//   - aborted — cancellation, matched by errors.Is against [ErrAborted]
//
// Cancellation is cooperative: every constructor checks the in-force abort
// signal before running its body, so interruption is observed at combinator
// boundaries, never mid-body. [Uninterruptible], [Interruptible] and
// [UninterruptibleMask] fence those checkpoints off or reinstate them.
//
// # Structured concurrency
//
// [Fork] and [ForkDaemon] return a [Handle] for awaiting, joining, polling
// or aborting a child. [RaceAll] and [RaceAllFirst] cancel losers and wait
// for their cleanup before resolving. [ForEach] processes collections
// sequentially, with a bound, or unbounded, always preserving input order in
// its output.
//
// # Resources
//
// A [Scope] carries finalizers run in reverse registration order.
// [Scoped] provides one as a service; [AcquireRelease] registers release on
// it; [AcquireUseRelease] brackets acquire/use/release so that release runs
// for every outcome and only use is cancellable.
//
// # Direct style
//
// [Gen] runs a plain Go function against the runtime, with [Await] standing
// in for yield: awaited effects either return their value or unwind the
// body with their failure.
package effect
