package graphdef

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/graphcall/graph"
	"github.com/specialistvlad/graphcall/memory"
	"github.com/specialistvlad/graphcall/node"
	"github.com/zclconf/go-cty/cty"
)

// Loader compiles graphdef .hcl source into node.Node values via
// node.Builder, resolving each `behavior` name against reg. Grounded on the
// teacher's internal/app.App.NewApp load step (hcl.NewLoader().Load, then
// registry.PopulateDefinitionsFromModel) collapsed into a single parse-
// then-build pass, since graphdef has no separate module-manifest stage.
type Loader struct {
	registry *Registry
}

// NewLoader returns a Loader resolving `behavior` names against reg.
func NewLoader(reg *Registry) *Loader {
	return &Loader{registry: reg}
}

// CompiledGraph is every node a graphdef file declared, by role, plus the
// declaration order (for deterministic iteration in tests and tooling).
type CompiledGraph struct {
	nodes map[string]*node.Node
	order []string
}

// Lookup returns the compiled node for role.
func (c *CompiledGraph) Lookup(role string) (*node.Node, bool) {
	n, ok := c.nodes[role]
	return n, ok
}

// Roles returns every declared role in file order.
func (c *CompiledGraph) Roles() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Graph resolves roleNames to compiled nodes and builds a graph.Graph
// rooted at them via graph.FromRoots, running the same structural and
// per-node validators the programmatic builder path does.
func (c *CompiledGraph) Graph(roleNames ...string) (*graph.Graph, error) {
	roots := make([]*node.Node, 0, len(roleNames))
	for _, role := range roleNames {
		n, ok := c.Lookup(role)
		if !ok {
			return nil, fmt.Errorf("graphdef: unknown root role %q", role)
		}
		roots = append(roots, n)
	}
	return graph.FromRoots("graphdef", roots)
}

// Compile parses src (named filename for diagnostics) and builds every
// declared node. It does not pick roots: callers name which declared nodes
// are roots via CompiledGraph.Graph, since a declarative file commonly
// declares shared dependency nodes that are never themselves roots.
func (l *Loader) Compile(filename string, src []byte) (*CompiledGraph, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}

	var f File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
		return nil, diags
	}

	raw := make(map[string]*NodeBlock, len(f.Nodes))
	order := make([]string, 0, len(f.Nodes))
	for _, nb := range f.Nodes {
		if _, dup := raw[nb.Role]; dup {
			return nil, fmt.Errorf("graphdef: duplicate node role %q", nb.Role)
		}
		raw[nb.Role] = nb
		order = append(order, nb.Role)
	}

	built := make(map[string]*node.Node, len(raw))
	building := make(map[string]bool, len(raw))

	var build func(role string) (*node.Node, error)
	build = func(role string) (*node.Node, error) {
		if n, ok := built[role]; ok {
			return n, nil
		}
		if building[role] {
			return nil, fmt.Errorf("graphdef: dependency cycle involving node %q", role)
		}
		nb, ok := raw[role]
		if !ok {
			return nil, fmt.Errorf("graphdef: undeclared node %q", role)
		}
		building[role] = true
		n, err := l.buildNode(nb, build)
		building[role] = false
		if err != nil {
			return nil, err
		}
		built[role] = n
		return n, nil
	}

	for _, role := range order {
		if _, err := build(role); err != nil {
			return nil, err
		}
	}

	return &CompiledGraph{nodes: built, order: order}, nil
}

func (l *Loader) buildNode(nb *NodeBlock, build func(string) (*node.Node, error)) (*node.Node, error) {
	handler, ok := l.registry.lookup(nb.Behavior)
	if !ok {
		return nil, fmt.Errorf("graphdef: node %q references unregistered behavior %q", nb.Role, nb.Behavior)
	}

	memKind := nb.MemoryKind
	if memKind == "" {
		memKind = "default"
	}
	b := node.NewBuilder(nb.Role, memKind)

	if nb.PrimingFailure != "" {
		p, err := parsePrimingFailure(nb.Role, nb.PrimingFailure)
		if err != nil {
			return nil, err
		}
		b.PrimingFailure(p)
	}
	if nb.Lifetime != "" {
		d, err := parseLifetime(nb.Role, nb.Lifetime)
		if err != nil {
			return nil, err
		}
		b.Lifetime(d)
	}
	if nb.ExceptionStrategy != "" {
		e, err := parseExceptionStrategy(nb.Role, nb.ExceptionStrategy)
		if err != nil {
			return nil, err
		}
		b.ExceptionStrategyOption(e)
	}

	for _, db := range nb.DependsOn {
		target, err := build(db.Target)
		if err != nil {
			return nil, err
		}
		primed := db.Priming != "unprimed"
		switch db.Memory {
		case "", "same":
			if primed {
				b.DependsOnSameMemoryPrimed(target)
			} else {
				b.DependsOnSameMemoryUnprimed(target)
			}
		case "new":
			factory := newMemoryFactory(db)
			if primed {
				b.DependsOnNewMemoryPrimed(target, factory)
			} else {
				b.DependsOnNewMemoryUnprimed(target, factory)
			}
		default:
			return nil, fmt.Errorf("graphdef: node %q: dependency on %q has unknown memory mode %q", nb.Role, db.Target, db.Memory)
		}
	}

	// n is captured by the behavior closure below but only populated once
	// Build succeeds; the closure itself only ever runs later, when the
	// engine invokes the finished node, so the two-step fill-in is safe.
	var n *node.Node
	b.Plain(func(ctx context.Context, dev node.Device, mem *memory.Memory) (any, error) {
		return runBehavior(ctx, dev, nb, n, handler)
	})

	built, err := b.Build()
	if err != nil {
		return nil, err
	}
	n = built
	return n, nil
}

// newMemoryFactory evaluates a new-memory dependency edge's own arguments
// block (not the consuming node's) into the factory input the engine asks
// for when it opens the edge's fresh child memory (spec §4.4). The
// argument expressions have no dependency-output context available at this
// point, so they may only reference literals.
func newMemoryFactory(db *DependencyBlock) node.MemoryFactory {
	return func(any) any {
		args, err := evalArguments(db.Arguments, nil)
		if err != nil {
			panic(fmt.Errorf("graphdef: dependency on %q: %w", db.Target, err))
		}
		return args
	}
}

// runBehavior resolves each declared dependency's value through the device
// (cheap for a primed dependency, whose reply is already memoized and
// complete; an unprimed one is invoked here), exposes them to the node's own `arguments` expressions by
// role name, and dispatches the evaluated arguments to handler.
func runBehavior(ctx context.Context, dev node.Device, nb *NodeBlock, n *node.Node, handler HandlerFunc) (any, error) {
	deps := n.Dependencies()
	vars := make(map[string]cty.Value, len(deps))
	for i, dep := range deps {
		nr, err := dev.Call(ctx, dep, nil)
		if err != nil {
			return nil, err
		}
		v, err := nr.Await(ctx)
		if err != nil {
			return nil, err
		}
		vars[nb.DependsOn[i].Target] = goToCty(v)
	}

	evalCtx := &hcl.EvalContext{Variables: vars}
	args, err := evalArguments(nb.Arguments, evalCtx)
	if err != nil {
		return nil, err
	}
	return handler(ctx, args)
}

func evalArguments(block *ArgsBlock, evalCtx *hcl.EvalContext) (map[string]any, error) {
	if block == nil || block.Body == nil {
		return map[string]any{}, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	out := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, diags
		}
		goVal, err := ctyToGo(val)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		out[name] = goVal
	}
	return out, nil
}

func parsePrimingFailure(role, s string) (node.PrimingFailurePolicy, error) {
	switch s {
	case "wait-all":
		return node.WaitAll, nil
	case "fail-fast":
		return node.FailFast, nil
	default:
		return 0, fmt.Errorf("graphdef: node %q: unknown priming_failure %q", role, s)
	}
}

func parseLifetime(role, s string) (node.DependencyLifetime, error) {
	switch s {
	case "node-for-all":
		return node.NodeForAll, nil
	case "node-for-direct":
		return node.NodeForDirect, nil
	case "graph":
		return node.Graph, nil
	default:
		return 0, fmt.Errorf("graphdef: node %q: unknown lifetime %q", role, s)
	}
}

func parseExceptionStrategy(role, s string) (node.ExceptionStrategy, error) {
	switch s {
	case "suppress":
		return node.Suppress, nil
	case "discard":
		return node.Discard, nil
	default:
		return 0, fmt.Errorf("graphdef: node %q: unknown exception_strategy %q", role, s)
	}
}
