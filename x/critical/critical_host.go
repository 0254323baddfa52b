//go:build !tinygo

// Package critical provides the short critical section shared between the
// bus interrupt path and task code. On MCU builds it masks interrupts; on the
// host, where the "interrupt" is a goroutine, a single process-wide mutex
// stands in. Sections do not nest.
package critical

import "sync"

var mu sync.Mutex

type State struct{}

func Enter() State { mu.Lock(); return State{} }

func Exit(State) { mu.Unlock() }
