// Package cliapp is the demo CLI's application layer: it loads a graphdef
// file, opens one call against it, runs the named root node, and reports
// the outcome — the same App/Config split the teacher's internal/app and
// internal/cli packages use around its own grid-running lifecycle.
package cliapp

import "errors"

// Config holds everything cmd/graphcall needs to run one call.
type Config struct {
	GraphPath string // path to a .hcl graphdef file
	RootRole  string // the declared node to invoke as this call's root
	LogFormat string // "text" or "json"
	LogLevel  string // "debug", "info", "warn", "error"
}

// NewConfig validates cfg, grounded on the teacher's app.NewConfig.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GraphPath == "" {
		return nil, errors.New("GraphPath is a required configuration field and cannot be empty")
	}
	if cfg.RootRole == "" {
		return nil, errors.New("RootRole is a required configuration field and cannot be empty")
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, errors.New("LogFormat must be 'text' or 'json'")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.New("LogLevel must be 'debug', 'info', 'warn', or 'error'")
	}
	return &cfg, nil
}
