// Package supervisor is the central state machine: it consumes presence and
// timer events, drives the security timer and the alarm task, and publishes
// the STATUS / TIMER_LEFT projection.
package supervisor

import (
	"context"
	"sync"
	"time"

	"labtrack-go/bus"
	"labtrack-go/services/monitor/internal/event"
	"labtrack-go/services/slave"
	"labtrack-go/types"
	"labtrack-go/x/mathx"
	"labtrack-go/x/timex"
)

var (
	TopicStatus     = bus.T("monitor", "status")
	TopicTransition = bus.T("monitor", "transition")
)

type Source interface {
	Receive(ctx context.Context, timeout time.Duration) (event.Event, bool)
}

type Timer interface {
	Start() error
	Stop() bool
	Fired() bool
	Remaining() time.Duration
}

type Alarm interface {
	Resume()
	Suspend()
}

// Registers is the protocol engine's task-side surface.
type Registers interface {
	SetStatus(bits uint8)
	SetTimerLeft(seconds uint16)
	TakeCommand() slave.Command
}

// Indicators are the local lamps and the clear-all used after suspending the
// alarm.
type Indicators interface {
	SetLED(led types.LED, on bool)
	SuccessPattern()
	ClearAll()
}

type Config struct {
	Label          string
	Grace          time.Duration
	ReceiveTimeout time.Duration
}

type Deps struct {
	Events     Source
	Timer      Timer
	Alarm      Alarm
	Regs       Registers
	Indicators Indicators      // optional
	Conn       *bus.Connection // optional
}

// effect is a side effect decided under the lock and carried out after it.
type effect uint8

const (
	fxStartTimer effect = 1 << iota
	fxStopTimer
	fxResumeAlarm
	fxSuspendAlarm
	fxShowPresent
	fxShowAbsent
	fxShowAcked
	fxSuccess
)

type Supervisor struct {
	cfg  Config
	deps Deps

	mu  sync.Mutex
	rec Record

	last    types.Snapshot
	started bool
}

func New(cfg Config, d Deps) *Supervisor {
	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = 100 * time.Millisecond
	}
	if d.Indicators == nil {
		d.Indicators = nopIndicators{}
	}
	return &Supervisor{
		cfg:  cfg,
		deps: d,
		rec:  Record{Label: cfg.Label, Grace: cfg.Grace, State: types.StatePresent},
	}
}

// Record returns a copy of the equipment record.
func (s *Supervisor) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

func (s *Supervisor) State() types.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.State
}

// SetEquipment updates the label and grace period on the record. An empty
// label or a non-positive grace keeps the current value.
func (s *Supervisor) SetEquipment(label string, grace time.Duration) {
	s.mu.Lock()
	if label != "" {
		s.rec.Label = label
	}
	if grace > 0 {
		s.rec.Grace = grace
	}
	s.mu.Unlock()
}

// NoteTag records the tag id read for the asset. Called from the presence
// task.
func (s *Supervisor) NoteTag(tag []byte) {
	s.mu.Lock()
	if !s.rec.Registered || string(s.rec.Tag[:s.rec.TagLen]) != string(tag) {
		s.rec.setTag(tag)
	}
	s.mu.Unlock()
}

// Run is the supervisor task.
func (s *Supervisor) Run(ctx context.Context) {
	s.Start()
	for ctx.Err() == nil {
		s.Step(ctx)
	}
}

// Start publishes the initial Present projection.
func (s *Supervisor) Start() {
	if s.started {
		return
	}
	s.started = true
	s.apply(fxShowPresent)
	s.publish()
}

// Step runs one supervisor cycle: drain the command mailbox, wait for at most
// one event, reconcile with the timer, publish.
func (s *Supervisor) Step(ctx context.Context) {
	if cmd := s.deps.Regs.TakeCommand(); cmd != slave.CmdNop {
		s.HandleCommand(cmd)
	}
	if ev, ok := s.deps.Events.Receive(ctx, s.cfg.ReceiveTimeout); ok {
		s.Handle(ev)
	}
	s.reconcile()
	s.publish()
}

// Handle applies one event. It reports whether the state changed.
func (s *Supervisor) Handle(ev event.Event) bool {
	s.mu.Lock()
	from := s.rec.State
	var fx effect
	switch ev {
	case event.TagMissing:
		if from == types.StatePresent {
			s.rec.State = types.StateAbsent
			s.rec.LastAbsentAt = time.Now()
			s.rec.Acknowledged = false
			fx = fxStartTimer | fxShowAbsent
		}
		// Absent/Alert: already handled, the timer is never restarted.
	case event.TagReturned:
		switch from {
		case types.StateAbsent:
			s.rec.State = types.StatePresent
			fx = fxStopTimer | fxShowPresent
		case types.StateAlert:
			s.rec.State = types.StatePresent
			fx = fxStopTimer | fxSuspendAlarm | fxSuccess | fxShowPresent
		case types.StatePresent:
			if s.rec.Acknowledged {
				fx = fxShowPresent
			}
		}
		s.rec.Acknowledged = false
	case event.TimerExpired:
		// Only the current arming counts; a stale expiry is dropped.
		if from == types.StateAbsent && s.deps.Timer.Fired() {
			s.rec.State = types.StateAlert
			fx = fxResumeAlarm
		}
	}
	to := s.rec.State
	s.mu.Unlock()

	s.apply(fx)
	if from != to {
		s.transitioned(from, to, ev.String())
	}
	return from != to
}

// HandleCommand applies a host command taken from the mailbox.
func (s *Supervisor) HandleCommand(cmd slave.Command) bool {
	if cmd != slave.CmdStopAlarm {
		return false
	}
	s.mu.Lock()
	from := s.rec.State
	if from != types.StateAlert {
		s.mu.Unlock()
		return false
	}
	// Acknowledged alarms return to Present without waiting for the tag;
	// STATUS shows no bits until the tag is read again.
	s.rec.State = types.StatePresent
	s.rec.Acknowledged = true
	s.mu.Unlock()

	s.apply(fxStopTimer | fxSuspendAlarm | fxShowAcked)
	s.transitioned(from, types.StatePresent, cmd.String())
	return true
}

// reconcile raises the alarm if the timer expired but its event was lost.
func (s *Supervisor) reconcile() {
	s.mu.Lock()
	absent := s.rec.State == types.StateAbsent
	s.mu.Unlock()
	if absent && s.deps.Timer.Fired() {
		s.Handle(event.TimerExpired)
	}
}

func (s *Supervisor) apply(fx effect) {
	d := s.deps
	if fx&fxStartTimer != 0 {
		if err := d.Timer.Start(); err != nil {
			println("[supervisor] timer start:", err.Error())
		}
	}
	if fx&fxStopTimer != 0 {
		d.Timer.Stop()
	}
	if fx&fxResumeAlarm != 0 {
		d.Indicators.SetLED(types.LEDBlue, false)
		d.Alarm.Resume()
	}
	if fx&fxSuspendAlarm != 0 {
		// Suspension does not say what the outputs were left at.
		d.Alarm.Suspend()
		d.Indicators.ClearAll()
	}
	if fx&fxSuccess != 0 {
		d.Indicators.SuccessPattern()
	}
	switch {
	case fx&fxShowPresent != 0:
		d.Indicators.SetLED(types.LEDBlue, false)
		d.Indicators.SetLED(types.LEDGreen, true)
	case fx&fxShowAbsent != 0:
		d.Indicators.SetLED(types.LEDGreen, false)
		d.Indicators.SetLED(types.LEDBlue, true)
	case fx&fxShowAcked != 0:
		d.Indicators.SetLED(types.LEDBlue, true)
	}
}

func (s *Supervisor) transitioned(from, to types.State, cause string) {
	println("[supervisor]", from.String(), "->", to.String(), "("+cause+")")
	if s.deps.Conn != nil {
		s.deps.Conn.Publish(s.deps.Conn.NewMessage(TopicTransition,
			types.Transition{From: from, To: to, Cause: cause, TS: timex.NowMs()}, false))
	}
}

// Snapshot builds the current projection.
func (s *Supervisor) Snapshot() types.Snapshot {
	s.mu.Lock()
	rec := s.rec
	s.mu.Unlock()

	var left uint16
	if rec.State == types.StateAbsent {
		ms := s.deps.Timer.Remaining().Milliseconds()
		left = mathx.SatU16(mathx.CeilDiv(ms, 1000))
	}
	return types.Snapshot{
		Label:        rec.Label,
		State:        rec.State,
		Status:       rec.statusBits(),
		TimerLeft:    left,
		Acknowledged: rec.Acknowledged,
		Tag:          rec.TagString(),
		TS:           timex.NowMs(),
	}
}

// publish pushes the projection through the register setters, and onto the
// bus when it changed.
func (s *Supervisor) publish() {
	snap := s.Snapshot()
	s.deps.Regs.SetStatus(snap.Status)
	s.deps.Regs.SetTimerLeft(snap.TimerLeft)

	prev := s.last
	prev.TS = snap.TS
	if prev == snap && s.last.TS != 0 {
		return
	}
	s.last = snap
	if s.deps.Conn != nil {
		s.deps.Conn.Publish(s.deps.Conn.NewMessage(TopicStatus, snap, true))
	}
}

type nopIndicators struct{}

func (nopIndicators) SetLED(types.LED, bool) {}
func (nopIndicators) SuccessPattern()        {}
func (nopIndicators) ClearAll()              {}
