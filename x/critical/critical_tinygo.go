//go:build tinygo

package critical

import "runtime/interrupt"

// State is the saved interrupt mask.
type State = interrupt.State

// Enter masks interrupts. Sections must be short and must not block.
func Enter() State { return interrupt.Disable() }

// Exit restores the mask saved by Enter.
func Exit(s State) { interrupt.Restore(s) }
