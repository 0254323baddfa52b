// Package alarm runs the audible/visual alert loop. The task is parked until
// resumed and does no work while parked.
package alarm

import (
	"context"
	"sync/atomic"
	"time"

	"labtrack-go/x/timex"
)

// Pattern drives one burst of the alert on the actuators.
type Pattern interface {
	AlertPattern()
}

type Actuator struct {
	out      Pattern
	interval time.Duration

	active  atomic.Bool
	started atomic.Bool
	cycles  atomic.Uint32

	resume  chan struct{}
	suspend chan chan struct{}
	done    chan struct{}
}

func New(out Pattern, interval time.Duration) *Actuator {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Actuator{
		out:      out,
		interval: interval,
		resume:   make(chan struct{}, 1),
		suspend:  make(chan chan struct{}),
		done:     make(chan struct{}),
	}
}

// Active reports whether the alarm has been resumed and not suspended.
func (a *Actuator) Active() bool { return a.active.Load() }

// Cycles counts completed alert bursts.
func (a *Actuator) Cycles() uint32 { return a.cycles.Load() }

// Resume starts the alert loop. Resuming an active alarm is a no-op.
func (a *Actuator) Resume() {
	a.active.Store(true)
	select {
	case a.resume <- struct{}{}:
	default:
	}
}

// Suspend parks the loop and returns once it is parked, so that the caller
// can clear the actuators knowing no burst is still in progress.
func (a *Actuator) Suspend() {
	a.active.Store(false)
	if !a.started.Load() {
		return
	}
	ack := make(chan struct{})
	select {
	case a.suspend <- ack:
		<-ack
	case <-a.done:
	}
}

// Run is the alarm task. It starts parked.
func (a *Actuator) Run(ctx context.Context) {
	a.started.Store(true)
	defer close(a.done)

	wait := timex.NewStoppedTimer()
	defer wait.Stop()

	for {
		// Parked.
		select {
		case <-ctx.Done():
			return
		case ack := <-a.suspend:
			close(ack)
			continue
		case <-a.resume:
			if !a.active.Load() {
				continue
			}
		}

		// Active.
	burst:
		for a.active.Load() {
			a.out.AlertPattern()
			a.cycles.Add(1)
			timex.ResetTimer(wait, a.interval)
			select {
			case <-ctx.Done():
				return
			case ack := <-a.suspend:
				close(ack)
				break burst
			case <-a.resume:
			case <-wait.C:
			}
		}
	}
}
