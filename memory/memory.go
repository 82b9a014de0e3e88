// Package memory implements Memory, the per-instance container that a
// Node's dependency edges bind against (spec §3, §4.2). A Memory groups one
// MemoryScope, one memoization Store, the caller-supplied input for this
// instance, and an immutable map of ancestor memories keyed by kind.
//
// Grounded on the teacher's internal/model (the newer architecture's plain
// data-holder structs for session/task state) generalized into the
// scope+storage+input+ancestors bundle spec §3 describes; the ancestor map
// itself has no teacher analogue and is grounded on the cross-resource
// reference pattern in internal/executor/context.go, where a step's
// execution context carries a lookup table of already-built resources by
// name rather than a single parent pointer.
package memory

import (
	"context"
	"fmt"

	"github.com/specialistvlad/graphcall/memscope"
	"github.com/specialistvlad/graphcall/memstore"
)

// Input is the value a memory instance was constructed with. It may already
// be available (the common case: the call's root input, or an iteration
// element) or still pending (a new memory created from a dependency whose
// own reply hasn't completed yet).
type Input interface {
	// Await blocks until the input value is available or ctx is done.
	Await(ctx context.Context) (any, error)
}

// available is an Input that already has its value.
type available struct {
	value any
}

func (a available) Await(ctx context.Context) (any, error) { return a.value, nil }

// Available wraps a value that is already known, with no waiting involved.
func Available(value any) Input { return available{value: value} }

// pending is an Input backed by something awaitable, e.g. a *reply.Reply.
type pending struct {
	await func(ctx context.Context) (any, error)
}

func (p pending) Await(ctx context.Context) (any, error) { return p.await(ctx) }

// Pending wraps an arbitrary await function, e.g. (*reply.Reply).Await, as a
// Memory input that is not yet resolved.
func Pending(await func(ctx context.Context) (any, error)) Input {
	return pending{await: await}
}

// Memory is one instance of a memory kind: a unit of isolation for
// memoization (its own Store) and cancellation (its own Scope), carrying
// whatever input it was constructed with and a read-only view of the
// ancestor memories it descended from.
type Memory struct {
	Kind  string
	Scope *memscope.Scope

	input     Input
	ancestors map[string]*Memory
	storage   *memstore.Store
}

// New constructs a fresh memory instance. ancestors is copied defensively so
// the caller's map can be reused or mutated afterward without affecting this
// memory (spec §3: "an immutable map of ancestor memories").
func New(kind string, scope *memscope.Scope, input Input, ancestors map[string]*Memory) *Memory {
	frozen := make(map[string]*Memory, len(ancestors))
	for k, v := range ancestors {
		frozen[k] = v
	}
	return &Memory{
		Kind:      kind,
		Scope:     scope,
		input:     input,
		ancestors: frozen,
		storage:   memstore.New(),
	}
}

// Input returns this memory's input accessor.
func (m *Memory) Input() Input { return m.input }

// Storage returns this memory's memoization store.
func (m *Memory) Storage() *memstore.Store { return m.storage }

// Ancestor looks up an ancestor memory by kind. It never searches
// transitively past a kind that isn't directly recorded: a node that needs
// a grandparent's memory must have that kind present in its own ancestor
// map, which WithAncestor guarantees by copying the parent's ancestor set
// into every child memory it builds.
func (m *Memory) Ancestor(kind string) (*Memory, bool) {
	anc, ok := m.ancestors[kind]
	return anc, ok
}

// MustAncestor is a convenience for callers, typically a behavior, that
// already validated the ancestor kind exists via the node's static
// declaration and want a panic (caught by the executor) rather than an
// (ok bool) check on a condition that should be structurally impossible.
func (m *Memory) MustAncestor(kind string) *Memory {
	anc, ok := m.ancestors[kind]
	if !ok {
		panic(fmt.Sprintf("memory: no ancestor of kind %q", kind))
	}
	return anc
}

// Ancestors returns the set of ancestor kinds this memory carries, for
// validators and diagnostics.
func (m *Memory) Ancestors() map[string]*Memory {
	out := make(map[string]*Memory, len(m.ancestors))
	for k, v := range m.ancestors {
		out[k] = v
	}
	return out
}

// WithAncestor returns a new ancestor map equal to m's own ancestors plus m
// itself recorded under m.Kind. A node that opens a new memory of some kind
// passes the result to New for the child memory, so the child inherits the
// whole ancestor chain plus its immediate parent.
func (m *Memory) WithAncestor() map[string]*Memory {
	out := m.Ancestors()
	out[m.Kind] = m
	return out
}
