package node

import "fmt"

// Builder assembles a Node. Obtain one with NewBuilder; it yields an
// immutable Node from Build, or an error describing an invalid
// configuration (spec §6: "builder yielding an immutable node"). Validator
// factories are not run here; graph.FromRoots runs them.
type Builder struct {
	n   *Node
	err error
}

// NewBuilder starts building a node with the given role and memory-kind
// binding, both required.
func NewBuilder(role, memoryKind string) *Builder {
	b := &Builder{n: &Node{Role: role, MemoryKind: memoryKind}}
	if role == "" {
		b.err = fmt.Errorf("node: role must not be empty")
	}
	if memoryKind == "" && b.err == nil {
		b.err = fmt.Errorf("node: memory kind must not be empty")
	}
	return b
}

// Type declares an optional type tag and, optionally, a compatibility
// witness for a candidate type-instance. The witness is only stored on the
// Node as TypeWitness: neither Build nor graph.FromRoots calls it.
func (b *Builder) Type(tag string, witness func(instance any) error) *Builder {
	b.n.Type = tag
	b.n.TypeWitness = witness
	return b
}

// PrimingFailure overrides the default wait-all priming-failure policy.
func (b *Builder) PrimingFailure(p PrimingFailurePolicy) *Builder {
	b.n.PrimingFailurePolicy = p
	return b
}

// Lifetime overrides the default node-for-all dependency-lifetime policy.
func (b *Builder) Lifetime(d DependencyLifetime) *Builder {
	b.n.DependencyLifetime = d
	return b
}

// ExceptionStrategyOption overrides the default suppress exception-strategy.
func (b *Builder) ExceptionStrategyOption(e ExceptionStrategy) *Builder {
	b.n.ExceptionStrategy = e
	return b
}

// Validators adds per-node validator factories, run when the node is part
// of a graph being built.
func (b *Builder) Validators(factories ...ValidatorFactory) *Builder {
	b.n.validatorFactories = append(b.n.validatorFactories, factories...)
	return b
}

// Plain sets a plain behavior and cancel-mode standard.
func (b *Builder) Plain(fn PlainBehavior) *Builder {
	b.n.behaviorKind = plainKind
	b.n.plain = fn
	b.n.CancelMode = Standard
	return b
}

// WithCompositeSignal sets a composite-signal behavior and cancel-mode
// composite-signal.
func (b *Builder) WithCompositeSignal(fn CompositeSignalBehavior) *Builder {
	b.n.behaviorKind = compositeSignalKind
	b.n.composite = fn
	b.n.CancelMode = CancelModeCompositeSignal
	return b
}

// WithCustomAction sets a custom-action behavior and cancel-mode
// custom-action. mayInterrupt declares whether the engine must isolate the
// action's interrupt effect to the behavior's own worker (spec §4.3).
func (b *Builder) WithCustomAction(fn CustomActionBehavior, mayInterrupt bool) *Builder {
	b.n.behaviorKind = customActionKind
	b.n.custom = fn
	b.n.CancelMode = CustomAction
	b.n.MayInterrupt = mayInterrupt
	return b
}

// DependsOnSameMemoryPrimed adds a primed, same-memory dependency on
// target.
func (b *Builder) DependsOnSameMemoryPrimed(target *Node) *Builder {
	return b.addDependency(target, SameMemory, true, nil, "")
}

// DependsOnSameMemoryUnprimed adds an unprimed, same-memory dependency on
// target; the behavior must invoke it itself through the device.
func (b *Builder) DependsOnSameMemoryUnprimed(target *Node) *Builder {
	return b.addDependency(target, SameMemory, false, nil, "")
}

// DependsOnNewMemoryPrimed adds a primed dependency on target whose memory
// instance is freshly constructed via factory under a new child scope.
func (b *Builder) DependsOnNewMemoryPrimed(target *Node, factory MemoryFactory) *Builder {
	return b.addDependency(target, NewMemory, true, factory, "")
}

// DependsOnNewMemoryUnprimed adds an unprimed new-memory dependency.
func (b *Builder) DependsOnNewMemoryUnprimed(target *Node, factory MemoryFactory) *Builder {
	return b.addDependency(target, NewMemory, false, factory, "")
}

// DependsOnAncestorPrimed adds a primed dependency on target, resolved
// against the ancestor memory of the given kind already carried by the
// invoking memory (spec §4.4's third resolution rule).
func (b *Builder) DependsOnAncestorPrimed(target *Node, kind string) *Builder {
	return b.addDependency(target, AncestorMemory, true, nil, kind)
}

// DependsOnAncestorUnprimed adds an unprimed ancestor-memory dependency; the
// behavior must invoke it itself through the device.
func (b *Builder) DependsOnAncestorUnprimed(target *Node, kind string) *Builder {
	return b.addDependency(target, AncestorMemory, false, nil, kind)
}

func (b *Builder) addDependency(target *Node, mode MemoryMode, primed bool, factory MemoryFactory, ancestorKind string) *Builder {
	if b.err != nil {
		return b
	}
	if target == nil {
		b.err = fmt.Errorf("node %q: dependency target must not be nil", b.n.Role)
		return b
	}
	if mode == NewMemory && factory == nil {
		b.err = fmt.Errorf("node %q: new-memory dependency on %q requires a MemoryFactory", b.n.Role, target.Role)
		return b
	}
	if mode == AncestorMemory && ancestorKind == "" {
		b.err = fmt.Errorf("node %q: ancestor-memory dependency on %q requires a kind", b.n.Role, target.Role)
		return b
	}
	b.n.dependencies = append(b.n.dependencies, &Dependency{
		Target:        target,
		Memory:        mode,
		Primed:        primed,
		MemoryFactory: factory,
		AncestorKind:  ancestorKind,
	})
	return b
}

// Build validates the accumulated configuration and returns the immutable
// Node, or the first construction error encountered.
func (b *Builder) Build() (*Node, error) {
	if b.err != nil {
		return nil, b.err
	}
	switch b.n.behaviorKind {
	case plainKind:
		if b.n.plain == nil {
			return nil, fmt.Errorf("node %q: missing plain behavior", b.n.Role)
		}
	case compositeSignalKind:
		if b.n.composite == nil {
			return nil, fmt.Errorf("node %q: missing composite-signal behavior", b.n.Role)
		}
	case customActionKind:
		if b.n.custom == nil {
			return nil, fmt.Errorf("node %q: missing custom-action behavior", b.n.Role)
		}
	}
	return b.n, nil
}
