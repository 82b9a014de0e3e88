package graph

import (
	"fmt"

	"github.com/specialistvlad/graphcall/node"
)

// AncestorMemoryRelationshipsAcyclic enforces spec §3's memory invariant:
// "ancestor set must form a DAG when transitively unioned across all
// memory kinds in the graph." A new-memory dependency edge from a node of
// kind K1 to a target of kind K2 means every memory of kind K2 created
// through that edge gains an ancestor of kind K1 — so the kind-level graph
// formed by every such edge must itself be acyclic, or some memory kind
// would end up its own ancestor.
//
// Grounded on internal/dag/utils.go's detectCycles, the same
// visiting/visited DFS generalized from step-dependency edges to
// memory-kind edges.
func AncestorMemoryRelationshipsAcyclic(c *GraphCandidate) error {
	edges := make(map[string]map[string]struct{})
	for _, n := range c.sortedNodes() {
		for _, dep := range n.Dependencies() {
			if dep.Memory != node.NewMemory {
				continue
			}
			if edges[n.MemoryKind] == nil {
				edges[n.MemoryKind] = make(map[string]struct{})
			}
			edges[n.MemoryKind][dep.Target.MemoryKind] = struct{}{}
		}
	}

	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var visit func(kind string) error
	visit = func(kind string) error {
		visiting[kind] = true
		for next := range edges[kind] {
			if visiting[next] {
				return fmt.Errorf("ancestor memory relationship cycle involving memory kind %q", next)
			}
			if !visited[next] {
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		delete(visiting, kind)
		visited[kind] = true
		return nil
	}

	for kind := range edges {
		if !visited[kind] {
			if err := visit(kind); err != nil {
				return err
			}
		}
	}
	return nil
}

// ConsumerEnvelopsDependency enforces spec §3's envelope invariant, scoped
// to *resource* dependencies only — a target reached through at least one
// new-memory edge, the engine's way of giving a dependency its own bounded
// lifetime (open/close). An ordinary same-memory shared dependency (spec
// §8 scenario 2's memoized Z, consumed by both X and Y with no envelope)
// is exempt: nothing about sharing a plain memoized value needs one
// consumer to outlive the others.
//
// For any resource target with more than one direct consumer, at least
// one of those consumers must itself (directly or transitively) depend on
// every other consumer, so that one consumer's lifetime properly envelops
// the rest (scoped-resource safety: the envelope outlives everything it
// loaned the resource to).
func ConsumerEnvelopsDependency(c *GraphCandidate) error {
	consumersOf := make(map[string][]*nodeRef)
	isResource := make(map[string]bool)
	for _, n := range c.sortedNodes() {
		for _, dep := range n.Dependencies() {
			consumersOf[dep.Target.Role] = append(consumersOf[dep.Target.Role], &nodeRef{role: n.Role})
			if dep.Memory == node.NewMemory {
				isResource[dep.Target.Role] = true
			}
		}
	}

	reaches := func(fromRole, toRole string) bool {
		seen := map[string]bool{}
		var walk func(role string) bool
		walk = func(role string) bool {
			if role == toRole {
				return true
			}
			if seen[role] {
				return false
			}
			seen[role] = true
			n, ok := c.Nodes[role]
			if !ok {
				return false
			}
			for _, dep := range n.Dependencies() {
				if walk(dep.Target.Role) {
					return true
				}
			}
			return false
		}
		return walk(fromRole)
	}

	for target, consumers := range consumersOf {
		if !isResource[target] || len(consumers) <= 1 {
			continue
		}
		envelope := false
		for _, e := range consumers {
			coversAll := true
			for _, other := range consumers {
				if other.role == e.role {
					continue
				}
				if !reaches(e.role, other.role) {
					coversAll = false
					break
				}
			}
			if coversAll {
				envelope = true
				break
			}
		}
		if !envelope {
			return fmt.Errorf("dependency %q has %d consumers with no enveloping consumer", target, len(consumers))
		}
	}
	return nil
}

type nodeRef struct{ role string }
