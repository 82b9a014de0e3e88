// Command graphcall is a demo runner for graphdef files: it compiles a
// .hcl graph, invokes one named root node, and prints the resulting value.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/specialistvlad/graphcall/internal/cliapp"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cliapp.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW io.Writer, args []string) error {
	cfg, shouldExit, err := cliapp.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	app := cliapp.NewApp(outW, cfg, cliapp.DefaultRegistry())
	return app.Run(context.Background())
}
