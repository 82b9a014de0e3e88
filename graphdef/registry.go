package graphdef

import (
	"context"
	"fmt"
)

// HandlerFunc is the Go function a `behavior = "..."` name resolves to. args
// holds the node's `arguments` block, already evaluated against the node's
// dependency outputs and converted to native Go values.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Registry maps behavior names to HandlerFunc, the declarative analogue of
// the teacher's registry.Registry mapping a runner type's on_run name to a
// registered Go callback (internal/registry).
type Registry struct {
	handlers map[string]HandlerFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register binds name to fn. Registering the same name twice is a
// programmer error and panics, matching the teacher's registry.Register
// fatal-on-collision behavior.
func (r *Registry) Register(name string, fn HandlerFunc) {
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("graphdef: behavior %q already registered", name))
	}
	r.handlers[name] = fn
}

func (r *Registry) lookup(name string) (HandlerFunc, bool) {
	fn, ok := r.handlers[name]
	return fn, ok
}
