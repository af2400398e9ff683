package effect

import (
	"github.com/LuxXx/effect/abort"
	"github.com/LuxXx/effect/servicemap"
)

// Concurrency is the policy applied by ForEach when its options say
// "inherit". Zero means inherit from the environment; Unbounded lifts the
// limit; any positive value bounds the number of in-flight children.
type Concurrency int

const (
	// Inherit defers to the concurrency bound in the environment.
	Inherit Concurrency = 0
	// Unbounded runs every child immediately.
	Unbounded Concurrency = -1
)

// Env is the per-execution dynamic context threaded through every run call:
// the cancellation pair in force, the interruptibility flag, the inherited
// concurrency policy, and the user service map.
//
// Env is copy-on-write: the with* helpers return fresh copies, so an Env
// handed to a child can never be altered by its siblings.
type Env struct {
	controller    *abort.Controller
	signal        *abort.Signal
	interruptible bool
	concurrency   Concurrency
	services      servicemap.ServiceMap
}

func newEnv() *Env {
	controller := abort.NewController()
	return &Env{
		controller:    controller,
		signal:        controller.Signal(),
		interruptible: true,
		concurrency:   1,
		services:      servicemap.Empty(),
	}
}

// Controller returns the abort controller in force.
func (e *Env) Controller() *abort.Controller { return e.controller }

// Signal returns the abort signal in force. Inside masked regions this is
// not the controller's own signal.
func (e *Env) Signal() *abort.Signal { return e.signal }

// Interruptible reports whether pending cancellation is observed at
// checkpoints.
func (e *Env) Interruptible() bool { return e.interruptible }

// Services returns the service map in force.
func (e *Env) Services() servicemap.ServiceMap { return e.services }

func (e *Env) clone() *Env {
	cp := *e
	return &cp
}

// withController installs a controller together with its own signal, as at
// fork and race boundaries.
func (e *Env) withController(c *abort.Controller) *Env {
	cp := e.clone()
	cp.controller = c
	cp.signal = c.Signal()
	return cp
}

// withSignal replaces only the signal, leaving the controller reachable for
// Interruptible to restore.
func (e *Env) withSignal(s *abort.Signal) *Env {
	cp := e.clone()
	cp.signal = s
	return cp
}

func (e *Env) withInterruptible(b bool) *Env {
	cp := e.clone()
	cp.interruptible = b
	return cp
}

func (e *Env) withConcurrency(c Concurrency) *Env {
	cp := e.clone()
	cp.concurrency = c
	return cp
}

func (e *Env) withServices(sm servicemap.ServiceMap) *Env {
	cp := e.clone()
	cp.services = sm
	return cp
}
