package node

import (
	"context"

	"github.com/specialistvlad/graphcall/memory"
)

// Device is the behavior-facing surface of the DependencyCallingDevice
// (spec §4.4), declared here rather than imported from package device to
// avoid a node<->device import cycle: device.Device resolves *Dependency
// values that live in this package, so the dependency has to run the other
// way.
type Device interface {
	// Call invokes dep's target node's pipeline and registers the
	// resulting reply against the current invocation's lifetime wait.
	// input is forwarded to dep.MemoryFactory when dep.Memory == NewMemory;
	// it is ignored for SameMemory edges.
	Call(ctx context.Context, dep *Dependency, input any) (Reply, error)

	// Ignore marks r as ignored and, if the current invocation is provably
	// its unique consumer, triggers r's reply-cancel signal. r stays
	// registered against the invocation's lifetime wait: the waiting phase
	// still awaits it.
	Ignore(r Reply)
}

// Reply is the subset of *reply.Reply a behavior needs, declared here for
// the same reason as Device: avoids node importing the device package,
// since reply itself is a leaf package both node and device depend on.
type Reply interface {
	Await(ctx context.Context) (any, error)
	Ignore()
}

// CompositeSignal is the read-only combined view of the call, scope and
// reply cancel signals offered to composite-signal behaviors (spec §4.3,
// hook 3).
type CompositeSignal interface {
	// Triggered reports whether any of the three tiers has fired.
	Triggered() bool
	// Done is closed once any of the three tiers has fired.
	Done() <-chan struct{}
}

// CancelAction is the closure a custom-action behavior hands back to the
// engine; the engine may invoke it at most once, at any point after the
// behavior starts, when a cancel signal the node opted into fires.
type CancelAction func()

// PlainBehavior is the standard behavior variant: it runs to completion (or
// throws) with no cancellation hook beyond the two mandatory passive
// checks the executor performs around it.
type PlainBehavior func(ctx context.Context, dev Device, mem *memory.Memory) (any, error)

// CompositeSignalBehavior additionally receives a read-only combined
// cancel-signal view it may poll at its own discretion.
type CompositeSignalBehavior func(ctx context.Context, dev Device, mem *memory.Memory, signal CompositeSignal) (any, error)

// CustomActionBehavior returns immediately with a cancel action and a
// result thunk. The executor runs the result thunk on the invoking worker
// to obtain the behavior's outcome, and may invoke action concurrently
// (from a different goroutine) when a signal the node opted into fires;
// action runs at most once per reply.
type CustomActionBehavior func(ctx context.Context, dev Device, mem *memory.Memory) (action CancelAction, result func() (any, error))
