package node

import (
	"context"
	"testing"

	"github.com/specialistvlad/graphcall/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantBehavior(v any) PlainBehavior {
	return func(ctx context.Context, dev Device, mem *memory.Memory) (any, error) {
		return v, nil
	}
}

func TestBuilder_PlainNodeBuildsWithDefaults(t *testing.T) {
	n, err := NewBuilder("greeting", "request").Plain(constantBehavior("hi")).Build()
	require.NoError(t, err)

	assert.Equal(t, "greeting", n.Role)
	assert.Equal(t, "request", n.MemoryKind)
	assert.Equal(t, WaitAll, n.PrimingFailurePolicy)
	assert.Equal(t, NodeForAll, n.DependencyLifetime)
	assert.Equal(t, Suppress, n.ExceptionStrategy)
	assert.Equal(t, Standard, n.CancelMode)
	assert.False(t, n.IsCompositeSignal())
	assert.False(t, n.IsCustomAction())
}

func TestBuilder_RequiresRoleAndMemoryKind(t *testing.T) {
	_, err := NewBuilder("", "request").Plain(constantBehavior(1)).Build()
	assert.Error(t, err)

	_, err = NewBuilder("role", "").Plain(constantBehavior(1)).Build()
	assert.Error(t, err)
}

func TestBuilder_RequiresABehavior(t *testing.T) {
	_, err := NewBuilder("role", "mem").Build()
	assert.Error(t, err)
}

func TestBuilder_PoliciesOverrideDefaults(t *testing.T) {
	n, err := NewBuilder("role", "mem").
		Plain(constantBehavior(1)).
		PrimingFailure(FailFast).
		Lifetime(NodeForDirect).
		ExceptionStrategyOption(Discard).
		Build()
	require.NoError(t, err)

	assert.Equal(t, FailFast, n.PrimingFailurePolicy)
	assert.Equal(t, NodeForDirect, n.DependencyLifetime)
	assert.Equal(t, Discard, n.ExceptionStrategy)
}

func TestBuilder_SameMemoryPrimedDependencyOrderPreserved(t *testing.T) {
	a, _ := NewBuilder("a", "mem").Plain(constantBehavior(1)).Build()
	b, _ := NewBuilder("b", "mem").Plain(constantBehavior(2)).Build()

	c, err := NewBuilder("c", "mem").
		Plain(constantBehavior(3)).
		DependsOnSameMemoryPrimed(a).
		DependsOnSameMemoryUnprimed(b).
		Build()
	require.NoError(t, err)

	deps := c.Dependencies()
	require.Len(t, deps, 2)
	assert.Same(t, a, deps[0].Target)
	assert.True(t, deps[0].Primed)
	assert.Same(t, b, deps[1].Target)
	assert.False(t, deps[1].Primed)

	primed := c.PrimedDependencies()
	require.Len(t, primed, 1)
	assert.Same(t, a, primed[0].Target)
}

func TestBuilder_NewMemoryDependencyRequiresFactory(t *testing.T) {
	a, _ := NewBuilder("a", "item").Plain(constantBehavior(1)).Build()

	_, err := NewBuilder("b", "mem").
		Plain(constantBehavior(1)).
		DependsOnNewMemoryPrimed(a, nil).
		Build()
	assert.Error(t, err)

	factory := func(input any) any { return input }
	c, err := NewBuilder("c", "mem").
		Plain(constantBehavior(1)).
		DependsOnNewMemoryPrimed(a, factory).
		Build()
	require.NoError(t, err)
	assert.Equal(t, NewMemory, c.Dependencies()[0].Memory)
}

func TestBuilder_AncestorDependencyRequiresKind(t *testing.T) {
	a, _ := NewBuilder("a", "req").Plain(constantBehavior(1)).Build()

	_, err := NewBuilder("b", "mem").
		Plain(constantBehavior(1)).
		DependsOnAncestorPrimed(a, "").
		Build()
	assert.Error(t, err)

	c, err := NewBuilder("c", "mem").
		Plain(constantBehavior(1)).
		DependsOnAncestorPrimed(a, "req").
		Build()
	require.NoError(t, err)
	dep := c.Dependencies()[0]
	assert.Equal(t, AncestorMemory, dep.Memory)
	assert.True(t, dep.Primed)
	assert.Equal(t, "req", dep.AncestorKind)
}

func TestBuilder_CompositeSignalBehavior(t *testing.T) {
	n, err := NewBuilder("loop", "mem").
		WithCompositeSignal(func(ctx context.Context, dev Device, mem *memory.Memory, sig CompositeSignal) (any, error) {
			return 0, nil
		}).
		Build()
	require.NoError(t, err)
	assert.True(t, n.IsCompositeSignal())
	assert.Equal(t, CancelModeCompositeSignal, n.CancelMode)
}

func TestBuilder_CustomActionBehavior(t *testing.T) {
	n, err := NewBuilder("timer", "mem").
		WithCustomAction(func(ctx context.Context, dev Device, mem *memory.Memory) (CancelAction, func() (any, error)) {
			return func() {}, func() (any, error) { return "done", nil }
		}, true).
		Build()
	require.NoError(t, err)
	assert.True(t, n.IsCustomAction())
	assert.True(t, n.MayInterrupt)
}
