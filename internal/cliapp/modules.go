package cliapp

import (
	"context"
	"fmt"

	"github.com/specialistvlad/graphcall/graphdef"
)

// DefaultRegistry returns the graphdef.Registry the demo CLI wires in,
// mirroring the teacher's modules/print package: a handful of trivial
// behaviors just substantial enough to make a graphdef file runnable
// without writing Go.
func DefaultRegistry() *graphdef.Registry {
	reg := graphdef.NewRegistry()

	reg.Register("constant", func(ctx context.Context, args map[string]any) (any, error) {
		return args["value"], nil
	})

	reg.Register("print", func(ctx context.Context, args map[string]any) (any, error) {
		fmt.Printf("%v\n", args["value"])
		return args["value"], nil
	})

	reg.Register("add", func(ctx context.Context, args map[string]any) (any, error) {
		a, _ := args["a"].(float64)
		b, _ := args["b"].(float64)
		return a + b, nil
	})

	return reg
}
