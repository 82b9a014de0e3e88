// Package node implements the static Node description of spec §3, §4.1: an
// immutable vertex carrying a role, a memory-kind binding, a dependency
// list, the four policy knobs that shape its execution pipeline, and one of
// three behavior variants.
//
// Grounded on the teacher's internal/node/node.go, whose Node struct mixes
// static configuration (Name, Type, StepConfig) with mutable runtime state
// (depCount, state, destroyOnce). This module splits that in two: Node here
// holds only the immutable, graph-build-time description; the mutable
// per-invocation state moves to the reply the executor publishes for each
// (node, memory) pair. The atomic-counter idiom itself (sync/atomic guarded
// fields, sync.Once-guarded one-shot operations) is kept and reused in
// reply.Reply and call.GraphCall instead.
package node

import "fmt"

// PrimingFailurePolicy governs how a failed primed dependency affects the
// priming phase (spec §4.1).
type PrimingFailurePolicy int

const (
	// WaitAll awaits every primed dependency regardless of outcome before
	// proceeding to the behavior phase. Default.
	WaitAll PrimingFailurePolicy = iota
	// FailFast stops priming at the first primed dependency that publishes
	// a failed reply; that reply becomes the node's outcome.
	FailFast
)

func (p PrimingFailurePolicy) String() string {
	if p == FailFast {
		return "fail-fast"
	}
	return "wait-all"
}

// DependencyLifetime governs what the waiting phase awaits before a reply's
// externally observable completion is published (spec §4.1).
type DependencyLifetime int

const (
	// NodeForAll awaits every direct and transitive dependency call made
	// during the invocation. Default.
	NodeForAll DependencyLifetime = iota
	// NodeForDirect awaits only direct dependency calls.
	NodeForDirect
	// Graph adds no local wait; the obligation is propagated to the call's
	// outstanding-reply ledger instead.
	Graph
)

func (d DependencyLifetime) String() string {
	switch d {
	case NodeForDirect:
		return "node-for-direct"
	case Graph:
		return "graph"
	default:
		return "node-for-all"
	}
}

// ExceptionStrategy governs whether a re-raised canonical chain keeps other
// primed-dependency failures attached as secondary causes (spec §4.1, §7).
type ExceptionStrategy int

const (
	// Suppress keeps other primed-dependency failures attached as
	// secondary causes. Default.
	Suppress ExceptionStrategy = iota
	// Discard drops them.
	Discard
)

func (e ExceptionStrategy) String() string {
	if e == Discard {
		return "discard"
	}
	return "suppress"
}

// CancelMode selects which of hooks 3 and 4 (spec §4.3) a node's behavior
// variant participates in.
type CancelMode int

const (
	// Standard behaviors only see the mandatory pre-priming and
	// between-phase passive checks.
	Standard CancelMode = iota
	// CancelModeCompositeSignal behaviors additionally receive a read-only
	// combined cancel-signal view (hook 3).
	CancelModeCompositeSignal
	// CustomAction behaviors additionally return a cancel-action closure
	// the engine may invoke (hook 4).
	CustomAction
)

func (c CancelMode) String() string {
	switch c {
	case CancelModeCompositeSignal:
		return "composite-signal"
	case CustomAction:
		return "custom-action"
	default:
		return "standard"
	}
}

// MemoryMode selects where a dependency edge's target memory comes from
// (spec §4.4).
type MemoryMode int

const (
	// SameMemory resolves to the current invocation's own memory.
	SameMemory MemoryMode = iota
	// NewMemory constructs a fresh memory, under a freshly opened child
	// scope, via the edge's MemoryFactory.
	NewMemory
	// AncestorMemory resolves to a named ancestor of the current
	// invocation's own memory, looked up by kind (spec §4.4's third
	// resolution rule: "ancestor access"). The ancestor must already exist
	// in the current memory's ancestor map; nothing is constructed.
	AncestorMemory
)

func (m MemoryMode) String() string {
	switch m {
	case NewMemory:
		return "new-memory"
	case AncestorMemory:
		return "ancestor-memory"
	default:
		return "same-memory"
	}
}

// Dependency is one static edge from a node to another.
type Dependency struct {
	Target *Node
	Memory MemoryMode
	Primed bool

	// MemoryFactory is required when Memory == NewMemory; it is invoked by
	// device.Device to build the target's memory instance under a fresh
	// child scope.
	MemoryFactory MemoryFactory

	// AncestorKind is required when Memory == AncestorMemory; it names the
	// ancestor memory kind device.Device looks up via Memory.Ancestor.
	AncestorKind string
}

// MemoryFactory builds the input for a freshly opened child memory. input is
// whatever the consuming behavior passes to the device when it invokes the
// dependency (see device.Device.Call).
type MemoryFactory func(input any) any

// GraphView is the minimal read-only surface a per-node Validator needs.
// graph.Graph implements it; node stays independent of the graph package to
// avoid a package cycle (package graph imports node).
type GraphView interface {
	Roots() []*Node
	AllNodes() []*Node
	DependenciesOf(n *Node) []*Dependency
}

// Validator inspects a fully-assembled graph and returns a diagnostic error
// if it finds a violation.
type Validator func(g GraphView) error

// ValidatorFactory builds a Validator bound to one node, e.g. "this node's
// ignoring will trigger the reply signal" (spec §4.6).
type ValidatorFactory func(n *Node) Validator

// behaviorKind tags which of the three behavior variants a Node carries.
type behaviorKind int

const (
	plainKind behaviorKind = iota
	compositeSignalKind
	customActionKind
)

// Node is the immutable static description of one vertex. Construct with
// NewBuilder; Node itself has no exported constructor because every field
// combination must pass through a builder's validation.
type Node struct {
	Role       string
	Type       string
	MemoryKind string

	// TypeWitness, if set, checks a candidate type-instance for
	// compatibility with Type. It is stored only: neither Build nor
	// graph.FromRoots calls it.
	TypeWitness func(instance any) error

	dependencies []*Dependency

	PrimingFailurePolicy PrimingFailurePolicy
	DependencyLifetime   DependencyLifetime
	ExceptionStrategy    ExceptionStrategy
	CancelMode           CancelMode
	MayInterrupt         bool

	behaviorKind behaviorKind
	plain        PlainBehavior
	composite    CompositeSignalBehavior
	custom       CustomActionBehavior

	validatorFactories []ValidatorFactory
}

// Dependencies returns the node's declared dependency edges in declaration
// order.
func (n *Node) Dependencies() []*Dependency { return n.dependencies }

// PrimedDependencies returns only the primed edges, in declaration order.
func (n *Node) PrimedDependencies() []*Dependency {
	out := make([]*Dependency, 0, len(n.dependencies))
	for _, d := range n.dependencies {
		if d.Primed {
			out = append(out, d)
		}
	}
	return out
}

// ValidatorFactories returns the node's per-node validator factories.
func (n *Node) ValidatorFactories() []ValidatorFactory { return n.validatorFactories }

// IsCompositeSignal reports whether this node's behavior is the
// composite-signal variant.
func (n *Node) IsCompositeSignal() bool { return n.behaviorKind == compositeSignalKind }

// IsCustomAction reports whether this node's behavior is the custom-action
// variant.
func (n *Node) IsCustomAction() bool { return n.behaviorKind == customActionKind }

// PlainBehaviorFunc returns the node's plain behavior function. Callers must
// check IsCompositeSignal/IsCustomAction first.
func (n *Node) PlainBehaviorFunc() PlainBehavior { return n.plain }

// CompositeSignalBehaviorFunc returns the node's composite-signal behavior
// function.
func (n *Node) CompositeSignalBehaviorFunc() CompositeSignalBehavior { return n.composite }

// CustomActionBehaviorFunc returns the node's custom-action behavior
// function.
func (n *Node) CustomActionBehaviorFunc() CustomActionBehavior { return n.custom }

func (n *Node) String() string {
	return fmt.Sprintf("node(role=%s, type=%s, memory=%s)", n.Role, n.Type, n.MemoryKind)
}
