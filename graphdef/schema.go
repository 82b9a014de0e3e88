// Package graphdef is the supplemented declarative front end (SPEC_FULL.md
// §6): an optional .hcl format for describing a graph.GraphCandidate
// without writing Go, compiled through node.Builder the same way the
// programmatic API builds one by hand.
//
// Grounded on the teacher's internal/schema/schema.go struct-tag shape
// (label-tagged block fields decoded by gohcl.DecodeBody) and
// internal/hcl/translate.go's pattern of keeping raw hcl.Expression values
// around for deferred, context-dependent evaluation.
package graphdef

import "github.com/hashicorp/hcl/v2"

// ArgsBlock captures an `arguments` block's attributes as raw expressions,
// evaluated later against a dependency-output context (mirrors the
// teacher's schema.StepArgs).
type ArgsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// DependencyBlock is one `depends_on` block inside a node block.
type DependencyBlock struct {
	// Target names another node block's Role in the same file.
	Target string `hcl:"target,label"`

	// Memory selects the dependency's memory mode: "same" (default) or
	// "new". A "new" dependency requires MemoryFactory, which has no HCL
	// representation — new-memory edges from a declarative file always use
	// newMemoryFactory (the edge's own `arguments` block becomes the
	// factory's input).
	Memory string `hcl:"memory,optional"`

	// Priming selects "primed" (default) or "unprimed".
	Priming string `hcl:"priming,optional"`

	Arguments *ArgsBlock `hcl:"arguments,block"`
}

// NodeBlock is one `node` block: a declarative stand-in for one
// node.NewBuilder(...).Build() call.
type NodeBlock struct {
	Role string `hcl:"role,label"`

	// Behavior names a graphdef.Registry entry; the compiled node's plain
	// behavior evaluates Arguments and calls that handler.
	Behavior string `hcl:"behavior"`

	MemoryKind        string             `hcl:"memory_kind,optional"`
	PrimingFailure    string             `hcl:"priming_failure,optional"`
	Lifetime          string             `hcl:"lifetime,optional"`
	ExceptionStrategy string             `hcl:"exception_strategy,optional"`
	DependsOn         []*DependencyBlock `hcl:"depends_on,block"`
	Arguments         *ArgsBlock         `hcl:"arguments,block"`
}

// File is the top-level structure of a graphdef .hcl file.
type File struct {
	Nodes []*NodeBlock `hcl:"node,block"`
}
