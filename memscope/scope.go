// Package memscope implements the MemoryScope tree of spec §3, §4.3: a
// cancellation-bearing envelope that owns a lifetime boundary enclosing one
// or more memories, arranged in a tree rooted at the call.
//
// Grounded on the teacher's internal/topologystore / internal/inmemorytopology
// pair, which tracks structural parent/child relationships between nodes
// behind a narrow interface — generalized here from "node topology" to
// "scope tree", and on internal/dag/executor.go's pattern of a single
// context whose cancel fans out to every worker, generalized into a proper
// tree via cancelsig.Signal so a scope's trigger only cascades to its own
// descendants rather than the whole call.
package memscope

import (
	"sync"

	"github.com/specialistvlad/graphcall/cancelsig"
	"github.com/specialistvlad/graphcall/reply"
)

// Scope is one node of the tree rooted at the call.
type Scope struct {
	parent *Scope
	signal *cancelsig.Signal

	mu          sync.Mutex
	memoryIDs   map[string]struct{}
	outstanding int  // externally-accessible replies registered and not yet complete
	closed      bool // true once the creator declares no more registrations are coming
	autoTrigger bool // fire the scope signal once outstanding reaches 0 after closed
}

// NewRoot creates the root scope of a call.
func NewRoot() *Scope {
	return &Scope{signal: cancelsig.New(), memoryIDs: make(map[string]struct{}), autoTrigger: true}
}

// NewChild creates a child scope. Triggering the parent (directly or via its
// own ancestors) triggers the child; triggering the child never reaches the
// parent.
func (s *Scope) NewChild() *Scope {
	child := &Scope{parent: s, signal: cancelsig.New(), memoryIDs: make(map[string]struct{}), autoTrigger: true}
	s.signal.AddChild(child.signal)
	return child
}

// Signal exposes the scope's own cancellation tier, e.g. for composite
// cancel-signal views.
func (s *Scope) Signal() *cancelsig.Signal { return s.signal }

// Trigger fires this scope's signal, cascading to every descendant scope.
func (s *Scope) Trigger() { s.signal.Trigger() }

// Triggered reports whether this scope (or an ancestor) has fired.
func (s *Scope) Triggered() bool { return s.signal.Triggered() }

// RegisterMemory records that memoryID lives inside this scope.
func (s *Scope) RegisterMemory(memoryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memoryIDs[memoryID] = struct{}{}
}

// Memories returns the set of memory identities contained directly in this
// scope.
func (s *Scope) Memories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.memoryIDs))
	for id := range s.memoryIDs {
		out = append(out, id)
	}
	return out
}

// TrackExternallyAccessible registers r as one of this scope's externally
// accessible replies (spec §4.3): once every reply registered this way has
// completed, and the scope has been closed for further registrations, the
// scope signal fires on its own, independent of any ancestor trigger.
func (s *Scope) TrackExternallyAccessible(r *reply.Reply) {
	s.mu.Lock()
	s.outstanding++
	s.mu.Unlock()

	r.OnComplete(func() {
		s.mu.Lock()
		s.outstanding--
		fire := s.autoTrigger && s.closed && s.outstanding == 0
		s.mu.Unlock()
		if fire {
			s.Trigger()
		}
	})
}

// Close declares that no more externally-accessible replies will be
// registered against this scope. If none are currently outstanding, the
// scope signal fires immediately.
func (s *Scope) Close() {
	s.mu.Lock()
	s.closed = true
	fire := s.autoTrigger && s.outstanding == 0
	s.mu.Unlock()
	if fire {
		s.Trigger()
	}
}
