// Package device implements the DependencyCallingDevice of spec §4.4: the
// only legal path a behavior uses to reach a dependency.
//
// Grounded on the teacher's internal/executor/dependencies.go, which
// resolves a step's declared `uses` references into concrete resource
// instances before a behavior runs. This module generalizes that
// one-shot, pre-behavior resolution into an on-demand call the behavior
// makes itself, mid-flight, against the statically declared Dependency
// edges — because unprimed edges are by definition not resolved before
// the behavior starts.
//
// Device never imports package executor: the closure that actually runs a
// dependency's pipeline is injected by whoever constructs the Device (the
// executor, for every invocation), which is what keeps device a leaf next
// to node, memory and reply instead of the other side of an import cycle.
package device

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/graphcall/memory"
	"github.com/specialistvlad/graphcall/node"
	"github.com/specialistvlad/graphcall/reply"
)

// Invoker runs dep's target node's pipeline against mem (the memory the
// edge resolved to — the device resolves SameMemory/NewMemory before
// calling this) and returns the published reply.
type Invoker func(ctx context.Context, target *node.Node, mem *memory.Memory) *reply.Reply

// Device is constructed fresh for each node invocation by the executor; it
// is only valid for the lifetime of that invocation's behavior phase.
type Device struct {
	mem     *memory.Memory
	invoke  Invoker
	live    atomic.Bool
	mu      sync.Mutex
	calls   []*reply.Reply // direct dependency replies registered by this invocation, in call order
}

// New constructs a Device bound to mem, using invoke to actually run a
// target node's pipeline.
func New(mem *memory.Memory, invoke Invoker) *Device {
	d := &Device{mem: mem, invoke: invoke}
	d.live.Store(true)
	return d
}

// Close marks the device as no longer usable. The executor calls this once
// by the later of behavior return / response completion (spec §4.4: "weak
// close enforcement"); it is weak because a misbehaving behavior racing a
// call against Close may still slip through — the contract places the
// burden on the behavior, not the device.
func (d *Device) Close() { d.live.Store(false) }

// Calls returns the direct dependency replies registered during this
// invocation, in call order. Used by the executor's waiting phase.
func (d *Device) Calls() []*reply.Reply {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*reply.Reply, len(d.calls))
	copy(out, d.calls)
	return out
}

// Call implements node.Device. It resolves dep's target memory, runs the
// target's pipeline, registers the resulting reply against this
// invocation's lifetime wait, and returns it.
func (d *Device) Call(ctx context.Context, dep *node.Dependency, input any) (node.Reply, error) {
	if !d.live.Load() {
		return nil, fmt.Errorf("device: call on %q after close", dep.Target.Role)
	}

	targetMem, err := d.resolveMemory(dep, input)
	if err != nil {
		return nil, err
	}

	r := d.invoke(ctx, dep.Target, targetMem)
	if dep.Memory == node.NewMemory {
		// targetMem's scope was opened fresh for this edge alone
		// (resolveMemory's NewMemory case); r's own check-in, just above,
		// is the scope's only entry point, and everything else that will
		// ever register against it is a dependency reachable from r's own
		// pipeline — registered synchronously, before r can complete. So
		// it is safe to declare right away that no further registrations
		// are coming (spec §4.3): the scope signal still won't fire until
		// outstanding genuinely drains to zero.
		targetMem.Scope.Close()
	}
	r.RegisterConsumer()

	d.mu.Lock()
	d.calls = append(d.calls, r)
	d.mu.Unlock()

	return r, nil
}

// Ignore implements node.Device. It marks the reply ignored and, only when
// this device can prove it is the reply's sole consumer (spec §4.3,
// §8 invariant 5 — the proof decision is recorded in DESIGN.md), triggers
// the reply's own cancellation tier.
func (d *Device) Ignore(nr node.Reply) {
	r, ok := nr.(*reply.Reply)
	if !ok {
		return
	}
	r.Ignore()
	if r.ConsumerCount() == 1 {
		r.TriggerCancelSignal()
	}
}

// resolveMemory implements the three resolution rules of spec §4.4.
func (d *Device) resolveMemory(dep *node.Dependency, input any) (*memory.Memory, error) {
	switch dep.Memory {
	case node.SameMemory:
		return d.mem, nil
	case node.NewMemory:
		if dep.MemoryFactory == nil {
			return nil, fmt.Errorf("device: new-memory dependency on %q has no factory", dep.Target.Role)
		}
		childScope := d.mem.Scope.NewChild()
		childInput := memory.Available(dep.MemoryFactory(input))
		return memory.New(dep.Target.MemoryKind, childScope, childInput, d.mem.WithAncestor()), nil
	case node.AncestorMemory:
		anc, ok := d.mem.Ancestor(dep.AncestorKind)
		if !ok {
			return nil, fmt.Errorf("device: no ancestor of kind %q for dependency on %q", dep.AncestorKind, dep.Target.Role)
		}
		return anc, nil
	default:
		return nil, fmt.Errorf("device: unknown memory mode %v", dep.Memory)
	}
}
