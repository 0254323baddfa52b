// Package presence debounces raw per-poll tag reads into TagMissing and
// TagReturned transitions.
package presence

import (
	"context"
	"time"

	"labtrack-go/services/monitor/internal/event"
)

// DefaultThreshold is the number of consecutive empty polls before the tag
// is declared missing.
const DefaultThreshold = 5

// Sensor is the tag receiver.
type Sensor interface {
	Available() bool
	Read() []byte
	Clear()
}

type Options struct {
	Threshold uint8

	// Identify extracts a tag id from a raw frame. complete is false while
	// the frame is still arriving. Nil skips frame inspection.
	Identify func(frame []byte) (tag []byte, complete bool)
	// Authorize, when set, must accept the identified tag for the poll to
	// count as a sighting.
	Authorize func(tag []byte) bool
	// OnTag receives every accepted tag id.
	OnTag func(tag []byte)
	// MaxFrame bounds how long an incomplete frame may sit in the sensor.
	MaxFrame int
}

type Filter struct {
	sensor Sensor
	sink   event.Sink
	opt    Options

	present bool
	misses  uint8
}

// New returns a filter that starts in the "seen" state, matching the
// supervisor's initial Present.
func New(sensor Sensor, sink event.Sink, opt Options) *Filter {
	if opt.Threshold == 0 {
		opt.Threshold = DefaultThreshold
	}
	if opt.MaxFrame <= 0 {
		opt.MaxFrame = 16
	}
	return &Filter{sensor: sensor, sink: sink, opt: opt, present: true}
}

func (f *Filter) Present() bool { return f.present }
func (f *Filter) Misses() uint8 { return f.misses }

// Poll runs one acquisition cycle and returns the event it emitted, if any.
func (f *Filter) Poll() (event.Event, bool) {
	if f.sighted() {
		f.misses = 0
		if !f.present {
			f.present = true
			f.sink.Send(event.TagReturned)
			return event.TagReturned, true
		}
		return 0, false
	}
	if f.misses < f.opt.Threshold {
		f.misses++
	}
	if f.misses >= f.opt.Threshold && f.present {
		f.present = false
		f.sink.Send(event.TagMissing)
		return event.TagMissing, true
	}
	return 0, false
}

func (f *Filter) sighted() bool {
	if !f.sensor.Available() {
		return false
	}
	frame := f.sensor.Read()
	if len(frame) == 0 || frame[0] == 0 {
		return false
	}
	if f.opt.Identify == nil {
		f.sensor.Clear()
		return true
	}

	tag, complete := f.opt.Identify(frame)
	if !complete {
		if len(frame) >= f.opt.MaxFrame {
			f.sensor.Clear()
		}
		// A partial frame is still radio activity from a tag, unless we
		// have to know which one.
		return f.opt.Authorize == nil
	}
	f.sensor.Clear()
	if len(tag) == 0 {
		// Corrupt frame.
		return f.opt.Authorize == nil
	}
	if f.opt.Authorize != nil && !f.opt.Authorize(tag) {
		return false
	}
	if f.opt.OnTag != nil {
		f.opt.OnTag(tag)
	}
	return true
}

// Run polls every period until ctx is cancelled.
func (f *Filter) Run(ctx context.Context, period time.Duration) {
	tick := time.NewTicker(period)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			f.Poll()
		}
	}
}
