// Package executor implements the node-call state machine of spec §4.1:
// for one invocation of (node, memory) it runs check-in, priming, behavior
// and waiting, in that order, firing observer hooks along the way.
//
// Grounded on the teacher's internal/dag/executor.go worker loop (readyChan
// of runnable nodes, a cancel-on-first-failure context, a WaitGroup
// counting outstanding work) and internal/executor/executor.go's
// resource/step split — generalized from "pull work off a channel, decrement
// a static dependency counter" into "recurse into check-in for each primed
// dependency", since this engine's dependency graph is discovered
// dynamically per invocation (unprimed edges, new-memory edges) rather than
// laid out once as a static channel-driven DAG.
package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/graphcall/cancelsig"
	"github.com/specialistvlad/graphcall/device"
	"github.com/specialistvlad/graphcall/interrupt"
	"github.com/specialistvlad/graphcall/memory"
	"github.com/specialistvlad/graphcall/node"
	"github.com/specialistvlad/graphcall/observer"
	"github.com/specialistvlad/graphcall/reply"
)

// Hooks bundles the call-scoped collaborators the executor needs but does
// not own, so package executor never has to import package call (which in
// turn imports executor to drive root invocations — the dependency has to
// run one way only).
type Hooks struct {
	// CallSignal is polled at the pre-priming and between-phase
	// cancellation gates alongside the invocation's own mem.Scope.Signal()
	// (spec §4.3, hooks 1-2). The scope tier is read from mem rather than
	// carried here because a memory's enclosing scope varies with nesting
	// depth (a new-memory dependency lives under a child scope), while
	// cancelsig.Signal.AddChild already makes mem.Scope.Signal() report
	// true for both its own trigger and any ancestor scope's.
	CallSignal *cancelsig.Signal

	// OnCreated is invoked once, synchronously, right after a fresh reply
	// is installed at check-in (a cache miss) — before priming starts. The
	// call's outstanding-reply ledger registers through this hook (spec
	// §4.5: "registers each newly created reply... at check-in").
	OnCreated func(r *reply.Reply)

	// Observer receives the four hook families of spec §4.1/§4.3.
	Observer observer.Observer

	// OnObserverFailure receives any panic/error an observer hook raises.
	// Observer failures are captured here and never abort the pipeline
	// (spec §4.1); the call's unhandled-exception list is built from this.
	OnObserverFailure func(error)

	// Dispatch runs f, by default on a new goroutine (spec §5: "composes
	// over an externally supplied execution facility"). Every invocation's
	// pipeline body runs through Dispatch, which is what gives the engine
	// its parallelism without owning a thread pool.
	Dispatch func(f func())

	// Interrupt guards the custom-action invocations and dependency calls
	// of nodes built with MayInterrupt (spec §5.3). Defaults to
	// interrupt.Noop{}.
	Interrupt interrupt.Modifier
}

func (h Hooks) dispatch(f func()) {
	if h.Dispatch != nil {
		h.Dispatch(f)
		return
	}
	go f()
}

// Invoke is check-in plus, for the winning caller, pipeline execution
// dispatched through h.Dispatch. It always returns a published-or-pending
// reply immediately; the caller never blocks here.
func Invoke(ctx context.Context, n *node.Node, mem *memory.Memory, h Hooks) *reply.Reply {
	if h.Observer == nil {
		h.Observer = observer.Noop{}
	}
	if h.Interrupt == nil {
		h.Interrupt = interrupt.Noop{}
	}
	r, created := mem.Storage().GetOrCreate(n.Role, func() *reply.Reply {
		return reply.New(n.Role, mem.Kind)
	})

	if !created {
		fireCachedObserverHook(h, n, mem, r)
		return r
	}

	mem.Scope.RegisterMemory(mem.Kind)
	mem.Scope.TrackExternallyAccessible(r)
	if h.OnCreated != nil {
		h.OnCreated(r)
	}

	after := observer.Fire(h.Observer.FirstCall, n.Role, mem, h.OnObserverFailure)
	everyAfter := observer.Fire(h.Observer.EveryCall, n.Role, mem, h.OnObserverFailure)
	r.OnComplete(func() {
		_, v, err := r.Poll()
		after(v, err)
		everyAfter(v, err)
	})

	h.dispatch(func() { runPipeline(ctx, n, mem, h, r) })
	return r
}

func fireCachedObserverHook(h Hooks, n *node.Node, mem *memory.Memory, r *reply.Reply) {
	after := observer.Fire(h.Observer.EveryCall, n.Role, mem, h.OnObserverFailure)
	r.OnComplete(func() {
		_, v, err := r.Poll()
		after(v, err)
	})
}

// runPipeline drives priming, behavior and waiting for a freshly created
// reply. It is responsible for eventually completing r exactly once.
func runPipeline(ctx context.Context, n *node.Node, mem *memory.Memory, h Hooks, r *reply.Reply) {
	if triggered(h.CallSignal, mem.Scope.Signal(), nil) {
		r.Cancel()
		return
	}

	dev := device.New(mem, func(ctx context.Context, target *node.Node, targetMem *memory.Memory) *reply.Reply {
		if !n.MayInterrupt {
			return Invoke(ctx, target, targetMem, h)
		}
		var dr *reply.Reply
		interrupt.Guard(h.Interrupt, func() { dr = Invoke(ctx, target, targetMem, h) })
		return dr
	})

	failFastErr, waitAllFailures := runPriming(ctx, n, dev, h)
	if failFastErr != nil {
		dev.Close()
		r.Fail(reply.Reraise(failFastErr, n.Role, n.ExceptionStrategy == node.Suppress))
		return
	}

	var replySignal *cancelsig.Signal
	if n.CancelMode != node.Standard {
		replySignal = r.CancelSignal()
	}
	if triggered(h.CallSignal, mem.Scope.Signal(), replySignal) {
		dev.Close()
		r.Cancel()
		return
	}

	value, err := runBehavior(ctx, n, dev, mem, h, r)
	dev.Close()

	r.SetTransitiveCalls(waitOn(ctx, n, dev))

	if err != nil {
		others := excluding(waitAllFailures, err)
		r.Fail(reply.Reraise(err, n.Role, n.ExceptionStrategy == node.Suppress, others...))
		return
	}
	r.Succeed(value)
}

func excluding(errs []error, skip error) []error {
	out := make([]error, 0, len(errs))
	for _, e := range errs {
		if e != skip {
			out = append(out, e)
		}
	}
	return out
}

func triggered(signals ...*cancelsig.Signal) bool {
	for _, s := range signals {
		if s != nil && s.Triggered() {
			return true
		}
	}
	return false
}

// runPriming invokes every primed dependency in declared order and applies
// the node's priming-failure policy.
//
// For fail-fast, a non-nil first return is the failing dependency's
// canonical chain — the behavior must be skipped. For wait-all, the first
// return is always nil and the second return lists every primed
// dependency's failure (if any), for the caller to attach as secondary
// causes under the suppress exception-strategy.
func runPriming(ctx context.Context, n *node.Node, dev *device.Device, h Hooks) (failFast error, waitAllFailures []error) {
	primed := n.PrimedDependencies()
	if len(primed) == 0 {
		return nil, nil
	}

	switch n.PrimingFailurePolicy {
	case node.FailFast:
		for _, dep := range primed {
			nr, err := dev.Call(ctx, dep, nil)
			if err != nil {
				return err, nil
			}
			if _, awaitErr := nr.Await(ctx); awaitErr != nil {
				return awaitErr, nil
			}
		}
		return nil, nil

	default: // WaitAll
		// Invoke every primed dependency sequentially, in declared order,
		// on this goroutine first — only the waiting differs by policy, not
		// the invocation order. Only the Await is then fanned out, so the
		// wait-all phase still returns as soon as the slowest dependency
		// completes rather than serializing the waits too.
		replies := make([]node.Reply, len(primed))
		failures := make([]error, len(primed))
		for i, dep := range primed {
			nr, err := dev.Call(ctx, dep, nil)
			if err != nil {
				failures[i] = err
				continue
			}
			replies[i] = nr
		}

		var wg sync.WaitGroup
		for i, nr := range replies {
			if nr == nil {
				continue
			}
			i, nr := i, nr
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, awaitErr := nr.Await(ctx); awaitErr != nil {
					failures[i] = awaitErr
				}
			}()
		}
		wg.Wait()

		var nonNil []error
		for _, e := range failures {
			if e != nil {
				nonNil = append(nonNil, e)
			}
		}
		return nil, nonNil
	}
}

// runBehavior invokes the node's behavior variant and returns its value or
// the error it threw/returned (which may or may not already be a canonical
// chain; the caller decides via reply.Reraise).
func runBehavior(ctx context.Context, n *node.Node, dev *device.Device, mem *memory.Memory, h Hooks, r *reply.Reply) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicToError(rec)
		}
	}()

	before := observer.Fire(h.Observer.BeforeBehavior, n.Role, mem, h.OnObserverFailure)
	defer func() { before(value, err) }()

	switch {
	case n.IsCustomAction():
		beforeAction := observer.Fire(h.Observer.BeforeCustomAction, n.Role, mem, h.OnObserverFailure)
		var action node.CancelAction
		var result func() (any, error)
		if n.MayInterrupt {
			interrupt.Guard(h.Interrupt, func() {
				action, result = n.CustomActionBehaviorFunc()(ctx, dev, mem)
			})
		} else {
			action, result = n.CustomActionBehaviorFunc()(ctx, dev, mem)
		}
		value, err = runCustomAction(ctx, r, h, mem.Scope.Signal(), action, result, n.MayInterrupt)
		beforeAction(value, err)
		return value, err

	case n.IsCompositeSignal():
		stopped := make(chan struct{})
		view := newCompositeView(h.CallSignal, mem.Scope.Signal(), r.CancelSignal(), stopped)
		value, err := n.CompositeSignalBehaviorFunc()(ctx, dev, mem, view)
		close(stopped)
		return value, err

	default:
		return n.PlainBehaviorFunc()(ctx, dev, mem)
	}
}

// runCustomAction invokes result synchronously on the current goroutine,
// firing action at most once if a cancel signal the node opted into fires
// while result is still running. When mayInterrupt is set, both result and
// a fired action run under the node's Hooks.Interrupt guard, isolating the
// save/clear/restore effect to this goroutine (spec §5.3).
func runCustomAction(ctx context.Context, r *reply.Reply, h Hooks, scopeSignal *cancelsig.Signal, action node.CancelAction, result func() (any, error), mayInterrupt bool) (any, error) {
	guardedAction := action
	if mayInterrupt && action != nil {
		guardedAction = func() { interrupt.Guard(h.Interrupt, action) }
	}

	if action == nil {
		return runResult(h, result, mayInterrupt)
	}

	done := make(chan struct{})
	var fireOnce sync.Once
	for _, s := range []*cancelsig.Signal{h.CallSignal, scopeSignal, r.CancelSignal()} {
		if s == nil {
			continue
		}
		go func(s *cancelsig.Signal) {
			select {
			case <-done:
			case <-s.Done():
				fireOnce.Do(guardedAction)
			}
		}(s)
	}
	value, err := runResult(h, result, mayInterrupt)
	close(done)
	return value, err
}

func runResult(h Hooks, result func() (any, error), mayInterrupt bool) (value any, err error) {
	if !mayInterrupt {
		return result()
	}
	interrupt.Guard(h.Interrupt, func() {
		value, err = result()
	})
	return value, err
}

func panicToError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", rec)
}

// waitOn implements the waiting phase and returns the set this invocation
// ends up having waited on, for the caller to stash on r via
// reply.Reply.SetTransitiveCalls so that an ancestor's own node-for-all
// wait can keep walking without re-deriving it.
//
// graph adds no local wait at all — not even its own direct calls — so its
// own reply can complete without blocking on work it fired off (spec §9's
// "propagate the obligation up" design note). It still returns its direct
// calls as its transitive set: it merely declines to block on them itself,
// it does not hide them from an ancestor that needs to. node-for-direct
// awaits only the direct dependency replies this invocation's device
// registered, and advertises no more than that. node-for-all awaits its
// direct calls plus, walking recursively through each one's own recorded
// transitive set, every dependency-call reachable — the ordering guarantee
// of spec §5's happens-before list (testable invariant 2): this reply's
// own completion is never externally observable before any of that
// reachable work finishes, regardless of what dependency-lifetime policy
// the nodes along the way chose for themselves.
func waitOn(ctx context.Context, n *node.Node, dev *device.Device) []*reply.Reply {
	calls := dev.Calls()
	if n.DependencyLifetime == node.Graph {
		return calls
	}
	for _, r := range calls {
		r.Await(ctx)
	}
	if n.DependencyLifetime == node.NodeForDirect {
		return calls
	}

	seen := make(map[*reply.Reply]struct{}, len(calls))
	all := make([]*reply.Reply, 0, len(calls))
	queue := append([]*reply.Reply{}, calls...)
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		r.Await(ctx)
		all = append(all, r)
		queue = append(queue, r.TransitiveCalls()...)
	}
	return all
}

// compositeView fans call/scope/reply signals into the single read-only
// view a composite-signal behavior observes (spec §4.3 hook 3: "a combined
// cancel view"). done closes the moment any one of the three fires, or
// once the owning invocation stops watching (stopped closes), whichever
// comes first — the latter is what keeps the fan-in goroutine from leaking
// past a behavior that completes without ever being cancelled.
type compositeView struct {
	call, scope, reply *cancelsig.Signal
	done               chan struct{}
}

func newCompositeView(call, scope, reply *cancelsig.Signal, stopped <-chan struct{}) compositeView {
	v := compositeView{call: call, scope: scope, reply: reply, done: make(chan struct{})}
	go func() {
		select {
		case <-orDone(call):
		case <-orDone(scope):
		case <-orDone(reply):
		case <-stopped:
		}
		close(v.done)
	}()
	return v
}

func orDone(s *cancelsig.Signal) <-chan struct{} {
	if s == nil {
		return nil
	}
	return s.Done()
}

func (c compositeView) Triggered() bool { return triggered(c.call, c.scope, c.reply) }

func (c compositeView) Done() <-chan struct{} { return c.done }
