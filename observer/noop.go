package observer

import "github.com/specialistvlad/graphcall/memory"

// Noop implements Observer with every hook returning nil, the default for
// a GraphCall that doesn't care to watch.
type Noop struct{}

func (Noop) EveryCall(string, *memory.Memory) AfterFunc          { return nil }
func (Noop) FirstCall(string, *memory.Memory) AfterFunc          { return nil }
func (Noop) BeforeBehavior(string, *memory.Memory) AfterFunc     { return nil }
func (Noop) BeforeCustomAction(string, *memory.Memory) AfterFunc { return nil }
