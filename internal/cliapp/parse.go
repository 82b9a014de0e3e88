package cliapp

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// ExitError carries a process exit code alongside a user-facing message,
// grounded on the teacher's internal/cli.ExitError.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// Parse processes command-line arguments into a Config. The second return
// value reports whether the caller should exit cleanly (help requested, or
// no graph path given) without treating that as an error.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	flagSet := flag.NewFlagSet("graphcall", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
graphcall - a demo runner for static asynchronous data-dependency graphs.

Usage:
  graphcall [options] GRAPH_PATH

Arguments:
  GRAPH_PATH
    Path to a .hcl graphdef file declaring the graph's nodes.

Options:
`)
		flagSet.PrintDefaults()
	}

	rootFlag := flagSet.String("root", "", "Role of the node to invoke as this call's root.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	graphPath := ""
	if flagSet.NArg() > 0 {
		graphPath = flagSet.Arg(0)
	}
	if graphPath == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	if *rootFlag == "" {
		return nil, false, &ExitError{Code: 2, Message: "missing required flag: -root"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg, err := NewConfig(Config{
		GraphPath: graphPath,
		RootRole:  *rootFlag,
		LogFormat: logFormat,
		LogLevel:  logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return cfg, false, nil
}
