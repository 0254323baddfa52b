package heartbeat

import (
	"context"
	"time"

	"labtrack-go/bus"
	"labtrack-go/errcode"
	"labtrack-go/types"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	TopicHeartbeat       = bus.T("monitor", "heartbeat")
)

// Source supplies the counters reported on each beat.
type Source func() types.Heartbeat

type Service struct {
	Interval time.Duration
	Stats    Source

	start time.Time
}

func (s *Service) beat(conn *bus.Connection) {
	var hb types.Heartbeat
	if s.Stats != nil {
		hb = s.Stats()
	}
	hb.UptimeS = int64(time.Since(s.start) / time.Second)
	println("[hb] up", hb.UptimeS, "s state", hb.State.String(),
		"drops", hb.EventDrops, "bus?", hb.BusUnknown, "bus!", hb.BusErrors,
		"rejects", hb.TagRejects, "uart-ovr", hb.SensorBytes)
	conn.Publish(conn.NewMessage(TopicHeartbeat, hb, true))
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(s.Interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("[hb] stopping")
			return
		case <-tick.C:
			s.beat(conn)
		case msg := <-cfgSub.Channel():
			if iv, ok := intervalOf(msg.Payload); ok {
				s.Interval = iv
				tick.Reset(iv)
				println("[hb] interval set to", int(iv/time.Second), "s")
			}
		}
	}
}

// intervalOf accepts a bare seconds value or {"interval": seconds}.
func intervalOf(p any) (time.Duration, bool) {
	if m, ok := p.(map[string]any); ok {
		p = m["interval"]
	}
	var sec float64
	switch v := p.(type) {
	case int:
		sec = float64(v)
	case float64:
		sec = v
	default:
		return 0, false
	}
	if sec <= 0 {
		return 0, false
	}
	return time.Duration(sec * float64(time.Second)), true
}

// Start the heartbeat service. It needs a bus connection to publish on.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if conn == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "heartbeat.start", Msg: "nil connection"}
	}
	if s.Interval <= 0 {
		s.Interval = 10 * time.Second
	}
	s.start = time.Now()
	go s.serviceLoop(ctx, conn)
	return nil
}
