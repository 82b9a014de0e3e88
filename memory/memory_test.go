package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/graphcall/memscope"
	"github.com/specialistvlad/graphcall/reply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AvailableInputReturnsImmediately(t *testing.T) {
	m := New("request", memscope.NewRoot(), Available(42), nil)

	v, err := m.Input().Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestMemory_PendingInputDelegatesToAwaitFunc(t *testing.T) {
	r := reply.New("n", "m")
	in := Pending(r.Await)

	done := make(chan struct{})
	var gotV any
	var gotErr error
	go func() {
		gotV, gotErr = in.Await(context.Background())
		close(done)
	}()

	r.Succeed("value")
	<-done

	require.NoError(t, gotErr)
	assert.Equal(t, "value", gotV)
}

func TestMemory_PendingInputPropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	r := reply.New("n", "m")
	r.Fail(boom)

	in := Pending(r.Await)
	_, err := in.Await(context.Background())
	assert.Equal(t, boom, err)
}

func TestMemory_AncestorLookup(t *testing.T) {
	root := New("request", memscope.NewRoot(), Available("in"), nil)
	child := New("item", root.Scope.NewChild(), Available(1), root.WithAncestor())

	anc, ok := child.Ancestor("request")
	require.True(t, ok)
	assert.Same(t, root, anc)

	_, ok = child.Ancestor("missing")
	assert.False(t, ok)
}

func TestMemory_MustAncestorPanicsWhenAbsent(t *testing.T) {
	m := New("request", memscope.NewRoot(), Available("in"), nil)
	assert.Panics(t, func() { m.MustAncestor("missing") })
}

func TestMemory_AncestorMapIsDefensivelyCopied(t *testing.T) {
	shared := map[string]*Memory{}
	m := New("request", memscope.NewRoot(), Available("in"), shared)
	shared["request"] = m // mutate the caller's map after construction

	_, ok := m.Ancestor("request")
	assert.False(t, ok, "New must have copied the map at construction time")
}

func TestMemory_WithAncestorChainsThroughGrandchild(t *testing.T) {
	root := New("request", memscope.NewRoot(), Available("r"), nil)
	mid := New("batch", root.Scope.NewChild(), Available("b"), root.WithAncestor())
	leaf := New("item", mid.Scope.NewChild(), Available("i"), mid.WithAncestor())

	_, ok := leaf.Ancestor("request")
	assert.True(t, ok, "grandparent kind must propagate through the chain")
	_, ok = leaf.Ancestor("batch")
	assert.True(t, ok)
}
