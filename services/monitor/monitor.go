// Package monitor wires the presence filter, security timer, supervisor and
// alarm task around one monitored asset.
package monitor

import (
	"context"
	"sync"
	"time"

	"labtrack-go/bus"
	"labtrack-go/drivers/rfid125"
	"labtrack-go/services/config"
	"labtrack-go/services/monitor/internal/alarm"
	"labtrack-go/services/monitor/internal/event"
	"labtrack-go/services/monitor/internal/presence"
	"labtrack-go/services/monitor/internal/sectimer"
	"labtrack-go/services/monitor/internal/supervisor"
	"labtrack-go/services/slave"
	"labtrack-go/types"
	"labtrack-go/x/mathx"
)

// Sensor is the tag receiver (rfid125.Reader on hardware).
type Sensor = presence.Sensor

// Actuators are the lamps and buzzer. AlertPattern and SuccessPattern block
// for the length of the pattern.
type Actuators interface {
	AlertPattern()
	SuccessPattern()
	SetLED(led types.LED, on bool)
	ClearAll()
}

// Overruns is optionally implemented by the sensor to report lost bytes.
type Overruns interface {
	Overruns() uint32
}

type Resources struct {
	Sensor    Sensor
	Actuators Actuators
	Engine    *slave.Engine
	Conn      *bus.Connection // optional
}

type Service struct {
	cfg config.Config
	res Resources

	events *event.Channel
	timer  *sectimer.Timer
	alarm  *alarm.Actuator
	filter *presence.Filter
	sup    *supervisor.Supervisor
}

// New builds the tasks. cfg must already be normalized. The allow-list is
// seeded from cfg before any task runs.
func New(cfg config.Config, res Resources) *Service {
	s := &Service{cfg: cfg, res: res}
	s.events = event.NewChannel(cfg.Supervisor.QueueLen)
	s.timer = sectimer.New(cfg.Grace(), s.events)
	s.alarm = alarm.New(res.Actuators, cfg.AlarmInterval())
	s.sup = supervisor.New(supervisor.Config{
		Label:          cfg.Equipment.Label,
		Grace:          cfg.Grace(),
		ReceiveTimeout: cfg.ReceiveTimeout(),
	}, supervisor.Deps{
		Events:     s.events,
		Timer:      s.timer,
		Alarm:      s.alarm,
		Regs:       res.Engine,
		Indicators: res.Actuators,
		Conn:       res.Conn,
	})

	if n := res.Engine.SeedTags(cfg.Slave.AllowList); n < len(cfg.Slave.AllowList) {
		println("[monitor] allow-list seeded", n, "of", len(cfg.Slave.AllowList))
	}
	opt := presence.Options{
		Threshold: uint8(cfg.Presence.MissThreshold),
		Identify:  rfid125.Identify,
		OnTag:     s.sup.NoteTag,
		MaxFrame:  rfid125.BufferSize,
	}
	if cfg.Presence.EnforceAllow {
		opt.Authorize = res.Engine.CheckTag
	}
	s.filter = presence.New(res.Sensor, s.events, opt)
	return s
}

// Run starts the alarm and presence tasks and runs the supervisor on the
// calling goroutine. It returns once every task has stopped.
func (s *Service) Run(ctx context.Context) {
	println("[monitor] start", s.cfg.Equipment.Label, "grace", s.cfg.Equipment.GraceSeconds, "s")
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.alarm.Run(ctx) }()
	go func() { defer wg.Done(); s.filter.Run(ctx, s.cfg.PollPeriod()) }()
	if s.res.Conn != nil {
		wg.Add(1)
		go func() { defer wg.Done(); s.watchConfig(ctx, s.res.Conn) }()
	}
	s.sup.Run(ctx)
	wg.Wait()
	s.timer.Stop()
	println("[monitor] stopped")
}

// watchConfig applies retained config/equipment updates. A new grace period
// takes effect at the next arming of the timer.
func (s *Service) watchConfig(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(config.TopicEquipment)
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-sub.Channel():
			if eq, ok := m.Payload.(config.EquipmentConfig); ok {
				s.applyEquipment(eq)
			}
		}
	}
}

func (s *Service) applyEquipment(eq config.EquipmentConfig) {
	var grace time.Duration
	if eq.GraceSeconds > 0 {
		grace = time.Duration(mathx.Min(eq.GraceSeconds, 0xFFFF)) * time.Second
		s.timer.SetGrace(grace)
	}
	s.sup.SetEquipment(eq.Label, grace)
	println("[monitor] equipment", s.sup.Record().Label, "grace", int(s.timer.Grace()/time.Second), "s")
}

func (s *Service) Snapshot() types.Snapshot { return s.sup.Snapshot() }

// Heartbeat gathers the counters reported by the heartbeat service.
func (s *Service) Heartbeat() types.Heartbeat {
	st := s.res.Engine.Stats()
	hb := types.Heartbeat{
		State:      s.sup.State(),
		EventDrops: s.events.Drops(),
		BusUnknown: st.UnknownCodes + st.UnknownRegs,
		BusErrors:  st.BusErrors,
		TagRejects: st.TagRejects,
	}
	if o, ok := s.res.Sensor.(Overruns); ok {
		hb.SensorBytes = o.Overruns()
	}
	return hb
}
