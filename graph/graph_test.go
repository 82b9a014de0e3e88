package graph

import (
	"context"
	"testing"

	"github.com/specialistvlad/graphcall/memory"
	"github.com/specialistvlad/graphcall/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plain(t *testing.T, role, memKind string) *node.Node {
	n, err := node.NewBuilder(role, memKind).Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) {
		return nil, nil
	}).Build()
	require.NoError(t, err)
	return n
}

func TestFromRoots_ClosesTransitiveDependencies(t *testing.T) {
	c := plain(t, "c", "mem")
	b, err := node.NewBuilder("b", "mem").
		Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) { return nil, nil }).
		DependsOnSameMemoryPrimed(c).
		Build()
	require.NoError(t, err)
	a, err := node.NewBuilder("a", "mem").
		Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) { return nil, nil }).
		DependsOnSameMemoryPrimed(b).
		Build()
	require.NoError(t, err)

	g, err := FromRoots("test", []*node.Node{a})
	require.NoError(t, err)
	assert.Len(t, g.AllNodes(), 3)
	_, ok := g.Lookup("c")
	assert.True(t, ok)
}

func TestFromRoots_DiamondDependencyVisitedOnce(t *testing.T) {
	shared := plain(t, "shared", "mem")
	left, err := node.NewBuilder("left", "mem").
		Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) { return nil, nil }).
		DependsOnSameMemoryPrimed(shared).
		Build()
	require.NoError(t, err)
	right, err := node.NewBuilder("right", "mem").
		Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) { return nil, nil }).
		DependsOnSameMemoryPrimed(shared).
		Build()
	require.NoError(t, err)
	root, err := node.NewBuilder("root", "mem").
		Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) { return nil, nil }).
		DependsOnSameMemoryPrimed(left).
		DependsOnSameMemoryPrimed(right).
		Build()
	require.NoError(t, err)

	g, err := FromRoots("test", []*node.Node{root})
	require.NoError(t, err)
	assert.Len(t, g.AllNodes(), 4)
}

func TestAncestorMemoryRelationshipsAcyclic_RejectsCycle(t *testing.T) {
	factory := func(any) any { return nil }

	bBuilder := node.NewBuilder("b", "kind-b").
		Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) { return nil, nil })
	b, err := bBuilder.Build()
	require.NoError(t, err)

	a, err := node.NewBuilder("a", "kind-a").
		Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) { return nil, nil }).
		DependsOnNewMemoryPrimed(b, factory).
		Build()
	require.NoError(t, err)

	// Rebuild b so it new-memory-depends on a, forming kind-a -> kind-b -> kind-a.
	b2, err := node.NewBuilder("b", "kind-b").
		Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) { return nil, nil }).
		DependsOnNewMemoryPrimed(a, factory).
		Build()
	require.NoError(t, err)

	_, err = FromRoots("cyclic", []*node.Node{b2})
	assert.Error(t, err)
}

func TestConsumerEnvelopsDependency_AllowsEnvelopingConsumer(t *testing.T) {
	factory := func(any) any { return nil }
	resource := plain(t, "resource", "resource")
	inner, err := node.NewBuilder("inner", "mem").
		Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) { return nil, nil }).
		DependsOnNewMemoryPrimed(resource, factory).
		Build()
	require.NoError(t, err)
	envelope, err := node.NewBuilder("envelope", "mem").
		Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) { return nil, nil }).
		DependsOnNewMemoryPrimed(resource, factory).
		DependsOnSameMemoryPrimed(inner).
		Build()
	require.NoError(t, err)

	_, err = FromRoots("test", []*node.Node{envelope})
	assert.NoError(t, err)
}

func TestConsumerEnvelopsDependency_RejectsUnenvelopedSiblings(t *testing.T) {
	factory := func(any) any { return nil }
	resource := plain(t, "resource", "resource")
	left, err := node.NewBuilder("left", "mem").
		Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) { return nil, nil }).
		DependsOnNewMemoryPrimed(resource, factory).
		Build()
	require.NoError(t, err)
	right, err := node.NewBuilder("right", "mem").
		Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) { return nil, nil }).
		DependsOnNewMemoryPrimed(resource, factory).
		Build()
	require.NoError(t, err)
	root, err := node.NewBuilder("root", "mem").
		Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) { return nil, nil }).
		DependsOnSameMemoryPrimed(left).
		DependsOnSameMemoryPrimed(right).
		Build()
	require.NoError(t, err)

	_, err = FromRoots("test", []*node.Node{root})
	assert.Error(t, err)
}
