// Package event carries typed events from the presence filter and the
// security timer to the supervisor.
package event

import (
	"context"
	"sync/atomic"
	"time"

	"labtrack-go/x/timex"
)

type Event uint8

const (
	TagMissing Event = iota + 1
	TagReturned
	TimerExpired
)

func (e Event) String() string {
	switch e {
	case TagMissing:
		return "tag_missing"
	case TagReturned:
		return "tag_returned"
	case TimerExpired:
		return "timer_expired"
	default:
		return "none"
	}
}

// MinCapacity is the smallest queue the supervisor is designed around.
const MinCapacity = 3

// Sink is the producer side of a Channel.
type Sink interface {
	Send(Event) bool
}

// Channel is a bounded FIFO with many producers and one consumer. Send never
// blocks; when the queue is full the new event is dropped and counted.
type Channel struct {
	q     chan Event
	drops atomic.Uint32
	timer *time.Timer // consumer-owned
}

func NewChannel(capacity int) *Channel {
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	return &Channel{
		q:     make(chan Event, capacity),
		timer: timex.NewStoppedTimer(),
	}
}

// Send enqueues e without blocking. It reports false if e was dropped.
func (c *Channel) Send(e Event) bool {
	select {
	case c.q <- e:
		return true
	default:
		c.drops.Add(1)
		return false
	}
}

// Receive waits up to timeout for the next event. Only one goroutine may
// call Receive.
func (c *Channel) Receive(ctx context.Context, timeout time.Duration) (Event, bool) {
	select {
	case e := <-c.q:
		return e, true
	default:
	}
	if timeout <= 0 {
		return 0, false
	}
	timex.ResetTimer(c.timer, timeout)
	defer c.timer.Stop()
	select {
	case e := <-c.q:
		return e, true
	case <-c.timer.C:
		return 0, false
	case <-ctx.Done():
		return 0, false
	}
}

func (c *Channel) Len() int      { return len(c.q) }
func (c *Channel) Cap() int      { return cap(c.q) }
func (c *Channel) Drops() uint32 { return c.drops.Load() }
