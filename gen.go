package effect

// Sequencer drives a Gen body: it carries the environment the body's awaited
// effects run in. A Sequencer is single-shot and owned by exactly one body
// invocation; do not retain it past the body's return.
type Sequencer struct {
	env *Env
}

// genUnwind carries a failure out of a Gen body.
type genUnwind struct {
	failure Failure
}

// Gen runs body on its own goroutine, giving it a direct-style surface over
// effect values: inside the body, Await runs an effect and either returns
// its value or unwinds the body with its failure. The body's return value
// is the effect's success; a panic in body is a defect.
//
//	total := effect.Gen(func(g *effect.Sequencer) int {
//		a := effect.Await(g, readA)
//		b := effect.Await(g, readB(a))
//		return a + b
//	})
func Gen[A any](body func(g *Sequencer) A) Effect[A] {
	return makeEffect(func(env *Env, resume func(Result[A])) {
		go func() {
			delivered := false
			deliver := func(r Result[A]) {
				if delivered {
					return
				}
				delivered = true
				resume(r)
			}
			defer func() {
				if p := recover(); p != nil {
					if unwind, ok := p.(genUnwind); ok {
						deliver(Err[A](unwind.failure))
						return
					}
					deliver(Err[A](Unexpected(p)))
				}
			}()
			deliver(Ok(body(&Sequencer{env: env})))
		}()
	})
}

// Await runs eff in the body's environment and blocks the body until it
// delivers. On success it returns the value; on any failure — expected,
// defect or abort — it unwinds the body, which terminates with that failure.
func Await[B any](g *Sequencer, eff Effect[B]) B {
	outcome := make(chan Result[B], 1)
	eff.run(g.env, func(r Result[B]) {
		outcome <- r
	})
	r := <-outcome
	if a, ok := r.Get(); ok {
		return a
	}
	panic(genUnwind{failure: r.failure})
}
