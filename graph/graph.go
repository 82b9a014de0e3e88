// Package graph implements the structural closure and validation step of
// spec §4.4/§6: turning a set of root nodes into an immutable, validated
// Graph before a call can be opened against it.
//
// Grounded on the teacher's internal/dag/utils.go detectCycles, a
// visiting/visited DFS over *dag.Node.Deps, generalized from "step
// dependency edges" to "memory-kind ancestor edges" for
// AncestorMemoryRelationshipsAcyclic (the cycle the teacher guards against
// is a step calling its own dependency; the cycle this validator guards
// against is a memory kind that is, transitively, its own ancestor kind).
package graph

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/graphcall/node"
)

// Validator inspects a fully closed GraphCandidate and returns a
// diagnostic error naming offending nodes/edges, or nil if the candidate is
// well-formed. Graph-level validators run once per Graph.FromRoots call, in
// addition to every node's own ValidatorFactories.
type Validator func(c *GraphCandidate) error

// GraphCandidate is the root set plus its transitive dependency closure,
// before validation has run.
type GraphCandidate struct {
	Role  string
	Roots []*node.Node
	Nodes map[string]*node.Node // by role, the full closure
}

// Graph is a validated, immutable GraphCandidate. It implements
// node.GraphView, the read-only surface (roots, all nodes, a node's
// dependency edges) that per-node validators receive without importing this
// package, which would cycle back through node.
type Graph struct {
	candidate *GraphCandidate
}

// FromRoots closes roots into their full dependency set, then runs the two
// structural validators, every node's own ValidatorFactories, and any
// caller-supplied validators, in that order. The first failure aborts with
// a diagnostic naming the offending node; spec §9 classifies this as
// "validation failure (fatal at build)".
func FromRoots(role string, roots []*node.Node, validators ...Validator) (*Graph, error) {
	c := &GraphCandidate{Role: role, Roots: roots, Nodes: make(map[string]*node.Node)}
	for _, r := range roots {
		close_(c, r)
	}

	structural := []Validator{AncestorMemoryRelationshipsAcyclic, ConsumerEnvelopsDependency}
	for _, v := range structural {
		if err := v(c); err != nil {
			return nil, fmt.Errorf("graph %q: %w", role, err)
		}
	}

	for _, n := range c.sortedNodes() {
		for _, factory := range n.ValidatorFactories() {
			validate := factory(n)
			if validate == nil {
				continue
			}
			if err := validate(&Graph{candidate: c}); err != nil {
				return nil, fmt.Errorf("graph %q: node %q: %w", role, n.Role, err)
			}
		}
	}

	for _, v := range validators {
		if err := v(c); err != nil {
			return nil, fmt.Errorf("graph %q: %w", role, err)
		}
	}

	return &Graph{candidate: c}, nil
}

// close_ walks n's dependency edges into c.Nodes, recursing once per
// not-yet-visited role so a diamond dependency is only walked once.
func close_(c *GraphCandidate, n *node.Node) {
	if _, ok := c.Nodes[n.Role]; ok {
		return
	}
	c.Nodes[n.Role] = n
	for _, dep := range n.Dependencies() {
		close_(c, dep.Target)
	}
}

func (c *GraphCandidate) sortedNodes() []*node.Node {
	out := make([]*node.Node, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out
}

// Roots returns the graph's root nodes, in the order given to FromRoots.
func (g *Graph) Roots() []*node.Node { return g.candidate.Roots }

// Lookup finds a node anywhere in the closure by role.
func (g *Graph) Lookup(role string) (*node.Node, bool) {
	n, ok := g.candidate.Nodes[role]
	return n, ok
}

// AllNodes returns every node in the closure, role-sorted for deterministic
// iteration. Implements node.GraphView.
func (g *Graph) AllNodes() []*node.Node { return g.candidate.sortedNodes() }

// DependenciesOf implements node.GraphView.
func (g *Graph) DependenciesOf(n *node.Node) []*node.Dependency { return n.Dependencies() }
