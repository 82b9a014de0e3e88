// Package interrupt implements the save/clear/restore hook spec §5.3
// describes for interrupt-capable nodes: a narrow wrapper the executor
// applies around every dependency call and custom-action invocation so an
// interrupt-capable node's cancel action can run without disturbing
// whatever interrupt state the calling goroutine already carried.
//
// Go has no cooperative thread-interrupt primitive (no equivalent of a
// POSIX signal mask or a Java Thread.interrupt flag attached to a stack),
// so there is nothing for Clear/Restore to actually suspend — see
// DESIGN.md's Open Question entry for this package. Modifier exists so a
// caller embedding this engine in a runtime that DOES have such a
// primitive (a custom scheduler, a cgo boundary, a signal-masking shim)
// has a single, documented seam to plug it into, without executor or
// device needing to know that seam exists.
package interrupt

// Modifier saves whatever ambient interrupt state the current goroutine
// carries, clears it for the duration of a guarded section, and restores
// it afterward. Save/Clear run before a dependency call or custom action
// starts; Restore runs once it returns, even on panic.
type Modifier interface {
	Save() any
	Clear(saved any)
	Restore(saved any)
}

// Noop is the default Modifier: every method is a no-op, matching Go's
// lack of a cooperative interrupt primitive to suspend in the first
// place.
type Noop struct{}

func (Noop) Save() any         { return nil }
func (Noop) Clear(saved any)   {}
func (Noop) Restore(saved any) {}

// Guard runs f with m's save/clear/restore wrapped around it. It is the
// shape the executor calls at every dependency-call and custom-action
// boundary of an interrupt-capable node (spec §5.3: "isolating the effect to that
// goroutine").
func Guard(m Modifier, f func()) {
	if m == nil {
		m = Noop{}
	}
	saved := m.Save()
	m.Clear(saved)
	defer m.Restore(saved)
	f()
}
