package graphdef

import (
	"context"
	"testing"

	"github.com/specialistvlad/graphcall/call"
	"github.com/specialistvlad/graphcall/observer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantRegistry() *Registry {
	reg := NewRegistry()
	reg.Register("constant", func(ctx context.Context, args map[string]any) (any, error) {
		return args["value"], nil
	})
	reg.Register("double", func(ctx context.Context, args map[string]any) (any, error) {
		return args["n"].(float64) * 2, nil
	})
	return reg
}

const helloWorldSrc = `
node "x" {
  behavior = "constant"
  arguments {
    value = 21
  }
}

node "y" {
  behavior    = "double"
  depends_on "x" {}
  arguments {
    n = x
  }
}
`

func TestCompile_BuildsNodesInDeclarationOrder(t *testing.T) {
	l := NewLoader(constantRegistry())
	cg, err := l.Compile("test.hcl", []byte(helloWorldSrc))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, cg.Roles())

	_, ok := cg.Lookup("x")
	assert.True(t, ok)
	_, ok = cg.Lookup("y")
	assert.True(t, ok)
}

func TestCompile_DependencyArgumentsSeeUpstreamOutput(t *testing.T) {
	l := NewLoader(constantRegistry())
	cg, err := l.Compile("test.hcl", []byte(helloWorldSrc))
	require.NoError(t, err)

	g, err := cg.Graph("y")
	require.NoError(t, err)

	root, ok := g.Lookup("y")
	require.True(t, ok)

	c := call.Open(g, func(input any) any { return nil }, nil, observer.Noop{})
	r := c.Invoke(root)
	v, err := r.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(42), v)
}

func TestCompile_UnregisteredBehaviorFails(t *testing.T) {
	l := NewLoader(NewRegistry())
	_, err := l.Compile("test.hcl", []byte(`
node "x" {
  behavior = "missing"
}
`))
	assert.Error(t, err)
}

func TestCompile_DependencyCycleFails(t *testing.T) {
	l := NewLoader(constantRegistry())
	_, err := l.Compile("test.hcl", []byte(`
node "a" {
  behavior = "constant"
  depends_on "b" {}
}
node "b" {
  behavior = "constant"
  depends_on "a" {}
}
`))
	assert.Error(t, err)
}

func TestCompile_DuplicateRoleFails(t *testing.T) {
	l := NewLoader(constantRegistry())
	_, err := l.Compile("test.hcl", []byte(`
node "x" { behavior = "constant" }
node "x" { behavior = "constant" }
`))
	assert.Error(t, err)
}

func TestCompile_UndeclaredDependencyTargetFails(t *testing.T) {
	l := NewLoader(constantRegistry())
	_, err := l.Compile("test.hcl", []byte(`
node "x" {
  behavior = "constant"
  depends_on "ghost" {}
}
`))
	assert.Error(t, err)
}

func TestGraph_UnknownRootRoleFails(t *testing.T) {
	l := NewLoader(constantRegistry())
	cg, err := l.Compile("test.hcl", []byte(helloWorldSrc))
	require.NoError(t, err)

	_, err = cg.Graph("nope")
	assert.Error(t, err)
}
