// Package sectimer is the one-shot security countdown started when the
// equipment goes missing.
package sectimer

import (
	"sync"
	"time"

	"labtrack-go/errcode"
	"labtrack-go/services/monitor/internal/event"
)

// Timer is a one-shot countdown. On expiry it enqueues event.TimerExpired and
// nothing else; the callback runs on the runtime's timer goroutine.
type Timer struct {
	grace time.Duration
	sink  event.Sink

	mu       sync.Mutex
	t        *time.Timer
	gen      uint32
	running  bool
	fired    bool
	deadline time.Time
}

func New(grace time.Duration, sink event.Sink) *Timer {
	return &Timer{grace: grace, sink: sink}
}

func (s *Timer) Grace() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grace
}

// SetGrace changes the countdown used by the next Start. A running countdown
// keeps its deadline.
func (s *Timer) SetGrace(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.grace = d
	s.mu.Unlock()
}

// Start arms the timer for the grace period. Starting a running timer is a
// caller bug and returns errcode.Busy without touching the countdown.
func (s *Timer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return &errcode.E{C: errcode.Busy, Op: "sectimer.start"}
	}
	s.gen++
	gen := s.gen
	s.running, s.fired = true, false
	s.deadline = time.Now().Add(s.grace)
	s.t = time.AfterFunc(s.grace, func() { s.expire(gen) })
	return nil
}

func (s *Timer) expire(gen uint32) {
	s.mu.Lock()
	current := gen == s.gen && s.running
	if current {
		s.running, s.fired = false, true
	}
	s.mu.Unlock()
	if current {
		s.sink.Send(event.TimerExpired)
	}
}

// Stop disarms the timer. It reports whether a running countdown was
// cancelled.
func (s *Timer) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++ // invalidates a callback already in flight
	wasRunning := s.running
	if s.t != nil {
		s.t.Stop()
	}
	s.running, s.fired = false, false
	return wasRunning
}

func (s *Timer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Fired reports whether the current arming expired and has not been stopped
// since. A TimerExpired event from an older arming leaves this false.
func (s *Timer) Fired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Remaining is the time left on a running countdown, else zero.
func (s *Timer) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	if d := time.Until(s.deadline); d > 0 {
		return d
	}
	return 0
}
