// Package reply implements the future-like handle for one invocation of one
// node with one memory (spec §3, §4.1). A Reply is the unit of memoization
// and of cancellation at the finest grain.
//
// The completion primitive is hand-rolled rather than built on a channel of
// results or a third-party future type, per spec §9's design note: its
// external protocol (Await/Poll/the four exception accessors) must look
// identical whether the Reply was constructed already-completed or
// completed mid-flight from a concurrent goroutine. Grounded on the
// teacher's atomic node-state pattern (internal/node/node.go's
// atomic.Int32 State with SetState/GetState) generalized from a mutable
// state cell into a proper single-publish completion event.
package reply

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/graphcall/cancelsig"
)

// State is the lifecycle stage of a Reply. Once non-pending it never
// changes (spec §3 invariant: "once non-pending, the state is immutable").
type State int32

const (
	Pending State = iota
	StateSucceeded
	StateFailed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("reply.State(%d)", int32(s))
	}
}

// Reply is labelled by (node role, memory kind) for diagnostics. The
// engine memoizes a reply by node role in the memstore.Store of the memory
// instance it ran in, so two memories of the same kind keep separate
// replies even though their labels match.
type Reply struct {
	NodeRole string
	MemoryID string

	state atomic.Int32
	done  chan struct{}

	mu    sync.Mutex
	value any
	err   error // only meaningful when state is Failed

	completeOnce sync.Once

	// cancel is this reply's own cancellation tier (spec §4.3). It is
	// distinct from the call/scope signals: the engine triggers it only
	// when it can prove at most one consumer exists and that consumer
	// ignored the reply.
	cancel *cancelsig.Signal

	consumers   atomic.Int32 // count of device.Call registrations against this reply
	ignored     atomic.Bool
	signalFired atomic.Bool

	callbacks []func()

	// transitive is the set of replies this reply's own waiting phase ended
	// up waiting on: its direct calls for node-for-direct and for graph
	// (which records them without waiting), and for node-for-all its direct
	// calls plus everything reachable through their own transitive sets.
	// Set once, before the
	// reply completes, so an ancestor's waiting phase can keep walking
	// without re-deriving it (spec §4.1/§5).
	transitive []*Reply
}

// New returns a fresh, pending reply.
func New(nodeRole, memoryID string) *Reply {
	return &Reply{
		NodeRole: nodeRole,
		MemoryID: memoryID,
		done:     make(chan struct{}),
		cancel:   cancelsig.New(),
	}
}

// Succeeded returns an already-completed, successful reply. Used by
// behaviors whose value is available synchronously and by tests.
func Succeeded(nodeRole, memoryID string, value any) *Reply {
	r := New(nodeRole, memoryID)
	r.Succeed(value)
	return r
}

// Failed returns an already-completed, failed reply.
func Failed(nodeRole, memoryID string, err error) *Reply {
	r := New(nodeRole, memoryID)
	r.Fail(err)
	return r
}

// Succeed publishes a successful completion. Idempotent: only the first
// call of Succeed/Fail/Cancel on a given Reply has any effect (spec §3:
// "exactly one completion event is published").
func (r *Reply) Succeed(value any) {
	r.completeOnce.Do(func() {
		r.mu.Lock()
		r.value = value
		r.mu.Unlock()
		r.state.Store(int32(StateSucceeded))
		r.publish()
	})
}

// Fail publishes a failed completion. err should already be in canonical
// three-layer form (see NewChain/Reraise); the executor is responsible for
// that, not Reply itself.
func (r *Reply) Fail(err error) {
	r.completeOnce.Do(func() {
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
		r.state.Store(int32(StateFailed))
		r.publish()
	})
}

// Cancel publishes a cancelled completion.
func (r *Reply) Cancel() {
	r.completeOnce.Do(func() {
		r.state.Store(int32(Cancelled))
		r.publish()
	})
}

// publish closes the done channel and runs every callback registered via
// OnComplete. Must run inside completeOnce.Do.
func (r *Reply) publish() {
	close(r.done)
	r.mu.Lock()
	callbacks := r.callbacks
	r.callbacks = nil
	r.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

// OnComplete registers fn to run once the reply completes. If it already
// has, fn runs synchronously before OnComplete returns. Used by the call's
// outstanding-reply ledger (spec §4.5) and by memscope to track a scope's
// externally-accessible replies.
func (r *Reply) OnComplete(fn func()) {
	select {
	case <-r.done:
		fn()
		return
	default:
	}
	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		fn()
		return
	default:
	}
	r.callbacks = append(r.callbacks, fn)
	r.mu.Unlock()
}

// SetTransitiveCalls records the set of replies this reply's own waiting
// phase ended up waiting on. Must be called before the reply completes (the
// executor calls it right before Succeed/Fail, on the path that ran the
// behavior; replies cancelled or failed before that never get one); reading it after
// that point needs no further synchronization since r's completion happens
// after this write in every caller's path, and Await only returns once.
func (r *Reply) SetTransitiveCalls(calls []*Reply) {
	r.mu.Lock()
	r.transitive = calls
	r.mu.Unlock()
}

// TransitiveCalls returns the set recorded by SetTransitiveCalls, or nil if
// none was ever set (a reply completed before its behavior ran, or one
// built directly with Succeeded/Failed by a test).
func (r *Reply) TransitiveCalls() []*Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitive
}

// State returns the current lifecycle stage.
func (r *Reply) State() State { return State(r.state.Load()) }

// Done returns a channel closed once the reply reaches a terminal state.
func (r *Reply) Done() <-chan struct{} { return r.done }

// CancelSignal exposes this reply's own cancellation tier, for composite
// cancel-signal views (spec §4.3 hook 3) and for device.Ignore's
// provable-unique-consumer trigger.
func (r *Reply) CancelSignal() *cancelsig.Signal { return r.cancel }

// Poll returns the current state without blocking, along with the value (if
// succeeded) and error (if failed).
func (r *Reply) Poll() (State, any, error) {
	st := r.State()
	r.mu.Lock()
	defer r.mu.Unlock()
	return st, r.value, r.err
}

// Await blocks until the reply completes or ctx is done, whichever comes
// first.
func (r *Reply) Await(ctx context.Context) (any, error) {
	select {
	case <-r.done:
		_, v, err := r.Poll()
		return v, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RegisterConsumer records that one more call site now depends on this
// reply. Used by the device to track how many distinct consumers exist, the
// input to the reply-signal soundness proof (spec §8 invariant 5).
func (r *Reply) RegisterConsumer() int32 { return r.consumers.Add(1) }

// ConsumerCount returns the number of call sites that have registered as
// consumers of this reply so far, without registering a new one.
func (r *Reply) ConsumerCount() int32 { return r.consumers.Load() }

// Ignore marks the reply as ignored by a consumer. It does not by itself
// trigger the reply-cancel signal; the caller (device.Ignore) decides
// whether the provable-unique-consumer condition holds and calls
// TriggerCancelSignal if so.
func (r *Reply) Ignore() { r.ignored.Store(true) }

// Ignored reports whether any consumer has called Ignore.
func (r *Reply) Ignored() bool { return r.ignored.Load() }

// TriggerCancelSignal fires this reply's own cancellation tier. Safe to call
// more than once; only the first call has effect (spec §8 boundary
// behavior: "a doubly-ignored reply behaves as singly-ignored").
func (r *Reply) TriggerCancelSignal() {
	if r.signalFired.CompareAndSwap(false, true) {
		r.cancel.Trigger()
	}
}

// Container returns the outer container error exactly as stored, or nil if
// the reply did not fail.
func (r *Reply) Container() error {
	_, _, err := r.Poll()
	return err
}

// CallChain returns the middle layer — the *CallError — or nil.
func (r *Reply) CallChain() error {
	_, _, err := r.Poll()
	if err == nil {
		return nil
	}
	if container, ok := err.(*ContainerError); ok {
		return container.Call
	}
	return err
}

// Encountered returns the innermost exception the behavior actually
// produced or threw, or nil if the reply did not fail.
func (r *Reply) Encountered() error {
	_, _, err := r.Poll()
	if err == nil {
		return nil
	}
	return Encountered(err)
}

// Cause is the canonical way to inspect the original failure, skipping both
// container layers regardless of how deeply they were re-wrapped.
func (r *Reply) Cause() error {
	_, _, err := r.Poll()
	if err == nil {
		return nil
	}
	return Cause(err)
}
