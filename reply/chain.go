package reply

import (
	"errors"
	"fmt"
	"strings"
)

// CallError is the middle layer of the canonical three-layer failure chain
// (spec §3, §7): it accumulates the stack of calling node roles between the
// node that first encountered the exception and the node whose reply is
// being inspected, for diagnostics.
//
// Grounded on the teacher's fmt.Errorf("execution failed for %s: %w", ...)
// wrapping idiom (internal/executor/executor.go, internal/dag/executor.go),
// generalized into a dedicated error type so the stack can be inspected
// programmatically instead of only rendered into a string.
type CallError struct {
	// Stack holds calling node roles, outermost (most recent) first.
	Stack []string
	// Err is the next layer in: the encountered exception. A chain
	// re-raised from a dependency reuses that chain's encountered exception
	// here, never its ContainerError.
	Err error
}

func (e *CallError) Error() string {
	if len(e.Stack) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", strings.Join(e.Stack, " -> "), e.Err.Error())
}

func (e *CallError) Unwrap() error { return e.Err }

// Push returns a copy of e with role prepended to the stack. Used when a
// node re-raises a dependency's canonical chain: the consuming node is
// pushed onto the same CallError so chain identity survives the hop.
func (e *CallError) Push(role string) *CallError {
	stack := make([]string, 0, len(e.Stack)+1)
	stack = append(stack, role)
	stack = append(stack, e.Stack...)
	return &CallError{Stack: stack, Err: e.Err}
}

// ContainerError is the outermost layer of the canonical chain: it preserves
// reply-chain identity across re-raises and carries any secondary causes
// accumulated under the suppress exception-strategy (spec §4.1, §7).
type ContainerError struct {
	// Call is the middle layer.
	Call *CallError
	// Suppressed holds other primed-dependency failures attached as
	// secondary causes under the suppress strategy (default). Empty under
	// the discard strategy.
	Suppressed []error
}

func (e *ContainerError) Error() string {
	if len(e.Suppressed) == 0 {
		return e.Call.Error()
	}
	return fmt.Sprintf("%s (+%d suppressed)", e.Call.Error(), len(e.Suppressed))
}

func (e *ContainerError) Unwrap() error { return e.Call }

// WithSuppressed returns a copy of e with extra appended to Suppressed.
func (e *ContainerError) WithSuppressed(extra ...error) *ContainerError {
	merged := make([]error, 0, len(e.Suppressed)+len(extra))
	merged = append(merged, e.Suppressed...)
	merged = append(merged, extra...)
	return &ContainerError{Call: e.Call, Suppressed: merged}
}

// NewChain builds a fresh canonical three-layer chain: encountered is the
// exception the behavior actually produced or threw, role is the node that
// encountered it.
func NewChain(role string, encountered error) *ContainerError {
	return &ContainerError{Call: &CallError{Stack: []string{role}, Err: encountered}}
}

// Reraise implements the propagation policy of spec §7: if chain is already
// in canonical form (it came from a dependency reply), the same outer
// container is reused and consumingRole is pushed onto its call-stack. If
// suppress is true (the default exception-strategy), otherSuppressed is
// attached as secondary causes; if false (discard), it is dropped.
func Reraise(chain error, consumingRole string, suppress bool, otherSuppressed ...error) *ContainerError {
	var container *ContainerError
	if !errors.As(chain, &container) {
		container = NewChain(consumingRole, chain)
		if suppress {
			return container.WithSuppressed(otherSuppressed...)
		}
		return container
	}
	pushed := &ContainerError{Call: container.Call.Push(consumingRole), Suppressed: container.Suppressed}
	if suppress {
		return pushed.WithSuppressed(otherSuppressed...)
	}
	return pushed
}

// Encountered returns the innermost exception: the thing a behavior actually
// produced or threw, stripped of both container layers.
func Encountered(err error) error {
	var container *ContainerError
	if errors.As(err, &container) {
		return container.Call.Err
	}
	var call *CallError
	if errors.As(err, &call) {
		return call.Err
	}
	return err
}

// Cause is the first-non-container accessor (spec §7): an iterator over the
// cause chain skipping the two well-known container variants, landing on the
// first throwable that isn't one of them. For a canonical chain this is
// always equal to Encountered; it exists separately because a consumer may
// hold an error that went through additional, non-canonical wrapping (e.g.
// fmt.Errorf("...: %w", reply.Encountered(x))) before reaching them.
func Cause(err error) error {
	for err != nil {
		switch e := err.(type) {
		case *ContainerError:
			err = e.Call
			continue
		case *CallError:
			err = e.Err
			continue
		}
		if u := errors.Unwrap(err); u != nil {
			err = u
			continue
		}
		return err
	}
	return nil
}
