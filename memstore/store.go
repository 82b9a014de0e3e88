// Package memstore implements the memoization primitive of spec §4.2: a
// thread-safe, insertion-once mapping from node identity to reply, scoped to
// one memory instance.
//
// Grounded on the teacher's internal/dag.Graph, whose AddNode/AddEdge guard
// a plain map with a single sync.RWMutex (internal/dag/dag.go, internal/dag/types.go)
// rather than a sync.Map — that repo's newer sync.Map-based
// internal/inmemorystore trades true check-and-insert atomicity for
// lock-free reads, which is the wrong trade here: GetOrCreate must
// guarantee the creating caller is the *unique* one that runs the node
// pipeline, so the simpler mutex-guarded map is kept.
package memstore

import (
	"sync"

	"github.com/specialistvlad/graphcall/reply"
)

// Store is the per-memory-instance node-identity -> reply table. Distinct
// memories of the same kind hold independent Stores (spec §4.2): this is
// what lets iteration yield independent per-element calls while graph-wide
// reuse within one memory instance stays single-shot.
type Store struct {
	mu      sync.Mutex
	entries map[string]*reply.Reply
}

// New returns an empty store.
func New() *Store {
	return &Store{entries: make(map[string]*reply.Reply)}
}

// GetOrCreate returns the existing reply for nodeID if one is already
// installed; otherwise it calls factory, installs the result, and reports
// created=true. The whole operation is linearizable: concurrent callers
// with the same nodeID observe exactly one factory invocation and share its
// result — the caller that receives created=true is the pipeline's unique
// owner for this (node, memory) pair.
func (s *Store) GetOrCreate(nodeID string, factory func() *reply.Reply) (r *reply.Reply, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[nodeID]; ok {
		return existing, false
	}
	r = factory()
	s.entries[nodeID] = r
	return r, true
}

// Lookup returns the reply for nodeID without creating one.
func (s *Store) Lookup(nodeID string) (*reply.Reply, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.entries[nodeID]
	return r, ok
}

// Len returns the number of memoized entries, for diagnostics and tests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
