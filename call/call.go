// Package call implements GraphCall, the request-scoped orchestrator of
// spec §3, §4.5: it owns the root memory and root scope for one call
// against a graph, drives root invocations through package executor, and
// tracks every reply created during the call in an outstanding-reply
// ledger so a caller can close the call cleanly or abandon it with a
// diagnostic snapshot.
//
// Grounded on the teacher's internal/dag/executor.go Run(): a WaitGroup
// counting outstanding node executions, a cancel-on-first-failure context
// fanned out to every worker, and a final aggregate result returned once
// the WaitGroup drains — generalized here from "WaitGroup + context" into
// "ledger of individually trackable replies + cancelsig.Signal", since a
// call's ledger must also report exactly which replies were still
// outstanding or ignored at close time, not just a drained/not-drained
// bit. The open/weakly-closed/final lifecycle itself is grounded on
// internal/app/app.go's Start/Stop pair.
package call

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/graphcall/cancelsig"
	"github.com/specialistvlad/graphcall/executor"
	"github.com/specialistvlad/graphcall/graph"
	"github.com/specialistvlad/graphcall/interrupt"
	"github.com/specialistvlad/graphcall/memory"
	"github.com/specialistvlad/graphcall/memscope"
	"github.com/specialistvlad/graphcall/node"
	"github.com/specialistvlad/graphcall/observer"
	"github.com/specialistvlad/graphcall/reply"
)

// MemoryFactory builds the root memory's input from the value the caller
// passed to Open.
type MemoryFactory func(input any) any

// Options tunes a GraphCall beyond Open's four required collaborators.
// The zero value is the default: dispatch every node's pipeline on a
// fresh goroutine (spec §5, "composes over an externally supplied
// execution facility").
type Options struct {
	// Execute runs f, e.g. on a worker-pool instead of a raw goroutine.
	Execute func(f func())

	// Interrupt guards custom-action invocations of interrupt-capable
	// nodes for the lifetime of this call (spec §5.3). Defaults to
	// interrupt.Noop{}.
	Interrupt interrupt.Modifier
}

// RootOutcome pairs a root invocation with the reply it produced.
type RootOutcome struct {
	Role  string
	Reply *reply.Reply
}

// FinalState is the snapshot returned by WeaklyClose and, with
// IsAbandoned set, by Abandon (spec §4.5 exit states).
type FinalState struct {
	RootOutcomes        []RootOutcome
	IgnoredReplies      []*reply.Reply
	UnhandledExceptions []error
	IsAbandoned         bool
}

// AbandonedState has the same shape as FinalState; kept as a distinct name
// because spec.md names it separately.
type AbandonedState = FinalState

// GraphCall is the lifecycle state machine of spec §5.5: open ->
// weakly-closed -> final or abandoned.
type GraphCall struct {
	graph      *graph.Graph
	rootScope  *memscope.Scope
	rootMemory *memory.Memory
	signal     *cancelsig.Signal
	observer   observer.Observer
	execute    func(func())
	interrupt  interrupt.Modifier

	mu              sync.Mutex
	ledger          map[*reply.Reply]struct{}
	outstanding     int
	rootOutstanding int
	closed          bool
	rootOrder       []*reply.Reply
	unhandled       []error

	weaklyClosedOnce  atomic.Bool
	ledgerDrainedOnce sync.Once
	ledgerDrained     chan struct{}
	finalOnce         sync.Once
	finalReady        chan struct{}
	final             FinalState
}

// Open starts a new call against g. memFactory builds the root memory's
// input from input; obs receives every observer hook fired during the
// call, or may be nil (treated as observer.Noop{}).
func Open(g *graph.Graph, memFactory MemoryFactory, input any, obs observer.Observer, opts ...Options) *GraphCall {
	if obs == nil {
		obs = observer.Noop{}
	}
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.Interrupt == nil {
		opt.Interrupt = interrupt.Noop{}
	}

	rootScope := memscope.NewRoot()
	rootMemory := memory.New("call-root", rootScope, memory.Available(memFactory(input)), nil)

	c := &GraphCall{
		graph:         g,
		rootScope:     rootScope,
		rootMemory:    rootMemory,
		signal:        cancelsig.New(),
		observer:      obs,
		execute:       opt.Execute,
		interrupt:     opt.Interrupt,
		ledger:        make(map[*reply.Reply]struct{}),
		finalReady:    make(chan struct{}),
		ledgerDrained: make(chan struct{}),
	}
	return c
}

// Signal exposes the call's own cancellation tier.
func (c *GraphCall) Signal() *cancelsig.Signal { return c.signal }

// TriggerCancelSignal fires the call's cancel signal directly, without
// otherwise altering the call's lifecycle state.
func (c *GraphCall) TriggerCancelSignal() { c.signal.Trigger() }

func (c *GraphCall) isRoot(n *node.Node) bool {
	for _, r := range c.graph.Roots() {
		if r == n {
			return true
		}
	}
	return false
}

// Invoke runs n, which must be one of the graph's declared roots, against
// the call's root memory. Calling Invoke on a non-root node, or after
// WeaklyClose, does not panic: it returns an already-failed reply
// describing the misuse (spec §9: "every accessor returns a well-defined
// shape").
func (c *GraphCall) Invoke(n *node.Node) *reply.Reply {
	if !c.isRoot(n) {
		err := fmt.Errorf("call: node %q is not a root of this call's graph", n.Role)
		return reply.Failed(n.Role, c.rootMemory.Kind, reply.NewChain(n.Role, err))
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		err := fmt.Errorf("call: lifecycle violation: Invoke(%q) called after WeaklyClose", n.Role)
		c.recordUnhandled(err)
		return reply.Failed(n.Role, c.rootMemory.Kind, reply.NewChain(n.Role, err))
	}

	h := executor.Hooks{
		CallSignal:        c.signal,
		OnCreated:         c.register,
		Observer:          c.observer,
		OnObserverFailure: c.recordUnhandled,
		Dispatch:          c.execute,
		Interrupt:         c.interrupt,
	}
	r := executor.Invoke(context.Background(), n, c.rootMemory, h)

	c.mu.Lock()
	c.rootOrder = append(c.rootOrder, r)
	c.rootOutstanding++
	c.mu.Unlock()

	r.OnComplete(func() {
		c.mu.Lock()
		c.rootOutstanding--
		fire := c.closed && c.rootOutstanding == 0
		c.mu.Unlock()
		if fire {
			c.signal.Trigger()
		}
	})

	return r
}

// register is wired as executor.Hooks.OnCreated: every freshly created
// reply anywhere in the call — not just roots — joins the outstanding-reply
// ledger at check-in (spec §4.5) and leaves it on completion. The ledger
// draining to zero is a distinct, later event from the call signal firing
// (spec §4.5: the signal fires "as soon as every root reply completes");
// it only ever gates c.ledgerDrained, which WeaklyClose's returned channel
// waits on before building the final snapshot.
func (c *GraphCall) register(r *reply.Reply) {
	c.mu.Lock()
	c.ledger[r] = struct{}{}
	c.outstanding++
	c.mu.Unlock()

	r.OnComplete(func() {
		c.mu.Lock()
		c.outstanding--
		drained := c.closed && c.outstanding == 0
		c.mu.Unlock()
		if drained {
			c.ledgerDrainedOnce.Do(func() { close(c.ledgerDrained) })
		}
	})
}

func (c *GraphCall) recordUnhandled(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.unhandled = append(c.unhandled, err)
	c.mu.Unlock()
}

// WeaklyClose refuses further root invocations from this point on
// (best-effort: an Invoke racing this call may still slip through) and
// returns a channel that yields the call's FinalState once every ledgered
// reply has completed. This is deliberately a later event than the call
// signal firing: the signal fires as soon as every root reply completes
// (spec §4.5), which a dependency relying on it to stop a fire-and-forget
// loop may need well before the rest of the ledger (non-root replies that
// loop spawned) has drained. Calling WeaklyClose more than once is a
// reported, non-fatal lifecycle violation; later calls observe the same
// eventual FinalState.
func (c *GraphCall) WeaklyClose(ctx context.Context) <-chan FinalState {
	out := make(chan FinalState, 1)
	first := c.weaklyClosedOnce.CompareAndSwap(false, true)
	if !first {
		c.recordUnhandled(fmt.Errorf("call: lifecycle violation: WeaklyClose called more than once"))
	} else {
		c.mu.Lock()
		c.closed = true
		fireSignalNow := c.rootOutstanding == 0
		drainedNow := c.outstanding == 0
		c.mu.Unlock()
		if fireSignalNow {
			c.signal.Trigger()
		}
		if drainedNow {
			c.ledgerDrainedOnce.Do(func() { close(c.ledgerDrained) })
		}
	}

	go func() {
		select {
		case <-c.ledgerDrained:
			c.finalOnce.Do(func() {
				c.final = c.snapshot(false)
				close(c.finalReady)
			})
			<-c.finalReady
			out <- c.final
		case <-ctx.Done():
			// The caller gave up waiting; the call itself is not final —
			// a later WeaklyClose or Abandon still observes real state.
			out <- c.snapshot(false)
		}
	}()
	return out
}

// Abandon triggers the cancel signal immediately and returns a snapshot of
// what is known at this instant. It completes no outstanding work and
// gives no guarantee about what happens to replies still in flight (spec
// §4.3: "abandoning completes no outstanding work; it merely stops
// waiting") — including any pending WeaklyClose wait, which it releases by
// declaring the ledger drained exactly as it found it.
func (c *GraphCall) Abandon() AbandonedState {
	c.signal.Trigger()
	c.ledgerDrainedOnce.Do(func() { close(c.ledgerDrained) })
	return c.snapshot(true)
}

func (c *GraphCall) snapshot(abandoned bool) FinalState {
	c.mu.Lock()
	defer c.mu.Unlock()

	roots := make([]RootOutcome, len(c.rootOrder))
	for i, r := range c.rootOrder {
		roots[i] = RootOutcome{Role: r.NodeRole, Reply: r}
	}

	var ignored []*reply.Reply
	for r := range c.ledger {
		if r.Ignored() {
			ignored = append(ignored, r)
		}
	}

	return FinalState{
		RootOutcomes:        roots,
		IgnoredReplies:      ignored,
		UnhandledExceptions: append([]error(nil), c.unhandled...),
		IsAbandoned:         abandoned,
	}
}

// WeaklyCloseOrAbandonOn composes WeaklyClose with a deadline: it waits for
// the ledger to drain until deadline elapses, then abandons the call if it
// hasn't drained by then.
func (c *GraphCall) WeaklyCloseOrAbandonOn(deadline context.Context) FinalState {
	ch := c.WeaklyClose(context.Background())
	select {
	case fs := <-ch:
		return fs
	case <-deadline.Done():
		return c.Abandon()
	}
}
