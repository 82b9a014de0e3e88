// Package observer implements the Observer collaborator of spec §4.1, §4.3:
// four hook families, each returning an "after" closure the executor
// invokes with the eventual outcome. Observer is deliberately out of scope
// as a framework (spec.md §1: "specified only as a collaborator") — this
// package is the thin interface plus a couple of concrete implementations
// useful enough to exercise the engine with.
//
// Grounded on the teacher's internal/ctxlog-backed logging calls sprinkled
// through internal/dag/executor.go and internal/executor/executor.go
// ("Node execution failed.", "Worker picked up node for execution.") —
// generalized from ad hoc log.Debug/Error call sites into a structured hook
// interface the executor calls at four well-defined points instead of
// wherever a developer happened to add one.
package observer

import "github.com/specialistvlad/graphcall/memory"

// AfterFunc is returned by a hook and must be invoked with the outcome once
// it is known.
type AfterFunc func(value any, err error)

// noopAfter is returned whenever a hook is nil or itself failed, so the
// executor never has to nil-check before calling the after closure.
func noopAfter(any, error) {}

// Observer is the collaborator the executor calls at four points per
// invocation (spec §4.1): every check-in (cache hit or miss), the first
// check-in for a (node, memory) pair, immediately before the behavior runs,
// and immediately before a custom action's result thunk runs.
type Observer interface {
	EveryCall(role string, mem *memory.Memory) AfterFunc
	FirstCall(role string, mem *memory.Memory) AfterFunc
	BeforeBehavior(role string, mem *memory.Memory) AfterFunc
	BeforeCustomAction(role string, mem *memory.Memory) AfterFunc
}

// Fire invokes hook, recovering any panic and reporting it (and any panic
// from the returned after closure) through onFailure rather than letting it
// escape into the pipeline (spec §4.1: "Observer failures are captured into
// the call's unhandled-exception list and never abort the pipeline").
// onFailure may be nil.
func Fire(hook func(role string, mem *memory.Memory) AfterFunc, role string, mem *memory.Memory, onFailure func(error)) AfterFunc {
	if hook == nil {
		return noopAfter
	}
	after, err := safeCall(func() AfterFunc { return hook(role, mem) })
	if err != nil {
		report(onFailure, err)
		return noopAfter
	}
	if after == nil {
		return noopAfter
	}
	return func(value any, callErr error) {
		if _, err := safeCallVoid(func() { after(value, callErr) }); err != nil {
			report(onFailure, err)
		}
	}
}

func report(onFailure func(error), err error) {
	if onFailure != nil {
		onFailure(err)
	}
}

func safeCall(f func() AfterFunc) (result AfterFunc, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = toError(rec)
		}
	}()
	return f(), nil
}

func safeCallVoid(f func()) (struct{}, error) {
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = toError(rec)
			}
		}()
		f()
	}()
	return struct{}{}, err
}

func toError(rec any) error {
	if e, ok := rec.(error); ok {
		return e
	}
	return &panicError{rec: rec}
}

type panicError struct{ rec any }

func (p *panicError) Error() string { return "observer panic: " + formatRec(p.rec) }

func formatRec(rec any) string {
	if s, ok := rec.(string); ok {
		return s
	}
	if e, ok := rec.(error); ok {
		return e.Error()
	}
	return "non-error panic value"
}
