package cliapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/specialistvlad/graphcall/call"
	"github.com/specialistvlad/graphcall/graphdef"
	"github.com/specialistvlad/graphcall/observer"
)

// App encapsulates the demo CLI's lifecycle: load a graphdef file, open one
// call against it, invoke the configured root, and report the outcome.
// Grounded on the teacher's internal/app.App, collapsed from its three-stage
// config-load/registry-populate/executor-run pipeline into a single-call
// equivalent, since this engine has no separate module-manifest stage.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *graphdef.Registry
}

// NewApp constructs an App with its own isolated logger, following the
// teacher's NewApp(outW, ...) shape.
func NewApp(outW io.Writer, cfg *Config, registry *graphdef.Registry) *App {
	return &App{
		outW:     outW,
		logger:   newLogger(cfg.LogLevel, cfg.LogFormat, outW),
		config:   cfg,
		registry: registry,
	}
}

// Run loads a.config.GraphPath, invokes the node named a.config.RootRole as
// the call's sole root, waits for it, and writes its value to outW.
func (a *App) Run(ctx context.Context) error {
	a.logger.Debug("cliapp.Run started.", "graph_path", a.config.GraphPath, "root_role", a.config.RootRole)

	src, err := os.ReadFile(a.config.GraphPath)
	if err != nil {
		return fmt.Errorf("failed to read graph file: %w", err)
	}

	loader := graphdef.NewLoader(a.registry)
	compiled, err := loader.Compile(a.config.GraphPath, src)
	if err != nil {
		return fmt.Errorf("failed to compile graph: %w", err)
	}

	g, err := compiled.Graph(a.config.RootRole)
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}
	root, ok := g.Lookup(a.config.RootRole)
	if !ok {
		return fmt.Errorf("root role %q not found after graph build", a.config.RootRole)
	}
	a.logger.Debug("Graph built.", "node_count", len(g.AllNodes()))

	c := call.Open(g, func(input any) any { return nil }, nil, observer.Logging{Logger: a.logger})
	a.logger.Info("Starting call.", "root", a.config.RootRole)
	r := c.Invoke(root)

	value, callErr := r.Await(ctx)

	final := <-c.WeaklyClose(ctx)
	for _, unhandled := range final.UnhandledExceptions {
		a.logger.Warn("Unhandled exception during call.", "error", unhandled)
	}

	if callErr != nil {
		return fmt.Errorf("root node %q failed: %w", a.config.RootRole, callErr)
	}

	a.logger.Info("Call finished.")
	fmt.Fprintf(a.outW, "%v\n", value)
	return nil
}
