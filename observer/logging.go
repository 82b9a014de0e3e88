package observer

import (
	"log/slog"

	"github.com/specialistvlad/graphcall/memory"
)

// Logging implements Observer by writing structured log lines through its
// own *slog.Logger field rather than a context-carried one: the hook
// methods below take a role and a *memory.Memory, not a context.Context,
// so there is nothing to pull a logger out of.
//
// Grounded on internal/executor/executor.go's "Node execution failed."/
// "Node execution succeeded." log lines fired around node execution.
type Logging struct {
	Logger *slog.Logger
}

func (l Logging) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l Logging) EveryCall(role string, mem *memory.Memory) AfterFunc {
	log := l.logger().With("role", role, "memory_kind", mem.Kind)
	log.Debug("node check-in")
	return func(value any, err error) {
		if err != nil {
			log.Debug("node call observed", "error", err)
			return
		}
		log.Debug("node call observed", "value", value)
	}
}

func (l Logging) FirstCall(role string, mem *memory.Memory) AfterFunc {
	log := l.logger().With("role", role, "memory_kind", mem.Kind)
	log.Info("node first invocation")
	return func(value any, err error) {
		if err != nil {
			log.Warn("node invocation failed", "error", err)
			return
		}
		log.Info("node invocation succeeded")
	}
}

func (l Logging) BeforeBehavior(role string, mem *memory.Memory) AfterFunc {
	log := l.logger().With("role", role)
	log.Debug("node behavior starting")
	return func(value any, err error) {
		if err != nil {
			log.Debug("node behavior failed", "error", err)
			return
		}
		log.Debug("node behavior completed")
	}
}

func (l Logging) BeforeCustomAction(role string, mem *memory.Memory) AfterFunc {
	l.logger().Debug("node custom action starting", "role", role)
	return nil
}
