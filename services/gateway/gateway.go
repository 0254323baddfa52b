// Package gateway is the host side of the supervision bus: it polls the
// STATUS register of each device, turns bit changes into events and can
// acknowledge alarms that have been ringing for too long.
package gateway

import (
	"context"
	"time"

	"tinygo.org/x/drivers"

	"labtrack-go/bus"
	"labtrack-go/services/slave"
	"labtrack-go/types"
	"labtrack-go/x/conv"
	"labtrack-go/x/strx"
)

type Device struct {
	ID       string
	Name     string
	Address  uint16
	AckAfter time.Duration // overrides Config.AckAfter when > 0
}

type Config struct {
	Poll     time.Duration
	AckAfter time.Duration // 0 disables auto-acknowledge
	Timeout  time.Duration // per transaction, retries included
}

type tracked struct {
	dev Device
	cli *Client

	seen       bool
	lost       bool
	prev       uint8
	alarmSince time.Time
	acked      bool
}

type Gateway struct {
	cfg  Config
	conn *bus.Connection
	devs []*tracked
}

func New(i2c drivers.I2C, conn *bus.Connection, cfg Config, devs []Device) *Gateway {
	if cfg.Poll <= 0 {
		cfg.Poll = 5 * time.Second
	}
	g := &Gateway{cfg: cfg, conn: conn}
	for _, d := range devs {
		d.ID = strx.Coalesce(d.ID, "dev-"+conv.Itoa(int(d.Address)))
		d.Name = strx.Coalesce(d.Name, d.ID)
		g.devs = append(g.devs, &tracked{dev: d, cli: NewClient(i2c, d.Address, cfg.Timeout)})
	}
	return g
}

// Client returns the client for a device id, or nil.
func (g *Gateway) Client(id string) *Client {
	for _, t := range g.devs {
		if t.dev.ID == id {
			return t.cli
		}
	}
	return nil
}

func TopicEvent(id string) bus.Topic { return bus.T("gateway", id, "event") }

// Run polls every cfg.Poll until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) {
	println("[gateway] running,", len(g.devs), "device(s)")
	tick := time.NewTicker(g.cfg.Poll)
	defer tick.Stop()
	g.PollOnce(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			g.PollOnce(now)
		}
	}
}

// PollOnce reads every device once and returns the events it raised.
func (g *Gateway) PollOnce(now time.Time) []types.GatewayEvent {
	var out []types.GatewayEvent
	for _, t := range g.devs {
		out = g.pollDevice(t, now, out)
	}
	return out
}

func (g *Gateway) pollDevice(t *tracked, now time.Time, out []types.GatewayEvent) []types.GatewayEvent {
	cur, err := t.cli.ReadStatus()
	if err != nil {
		if !t.lost {
			t.lost = true
			out = g.emit(out, t, types.DeviceLost, 0, 0, err.Error(), now)
		}
		return out
	}
	t.lost = false

	if cur&slave.StatusAlarmActive != 0 {
		if t.alarmSince.IsZero() {
			t.alarmSince = now
		}
	} else {
		t.alarmSince, t.acked = time.Time{}, false
	}

	if !t.seen {
		// First poll only records the baseline.
		t.seen, t.prev = true, cur
		return out
	}

	var left uint16
	if cur&slave.StatusTimerRunning != 0 {
		left, _ = t.cli.ReadTimerLeft()
	}
	prev := t.prev
	t.prev = cur
	rose := func(bit uint8) bool { return prev&bit == 0 && cur&bit != 0 }
	fell := func(bit uint8) bool { return prev&bit != 0 && cur&bit == 0 }

	if rose(slave.StatusTagPresent) {
		out = g.emit(out, t, types.ObjectReturned, cur, left, "", now)
	}
	if fell(slave.StatusTagPresent) {
		out = g.emit(out, t, types.ObjectRemoved, cur, left, "", now)
	}
	if rose(slave.StatusAlarmActive) {
		out = g.emit(out, t, types.AlarmStarted, cur, left, "", now)
	}
	if fell(slave.StatusAlarmActive) {
		out = g.emit(out, t, types.AlarmStopped, cur, left, "", now)
	}

	ackAfter := g.cfg.AckAfter
	if t.dev.AckAfter > 0 {
		ackAfter = t.dev.AckAfter
	}
	if ackAfter > 0 && !t.acked && !t.alarmSince.IsZero() && now.Sub(t.alarmSince) >= ackAfter {
		if err := t.cli.StopAlarm(); err != nil {
			println("[gateway]", t.dev.ID, "auto-ack failed:", err.Error())
		} else {
			t.acked = true
			out = g.emit(out, t, types.AlarmAcked, cur, left, "", now)
		}
	}
	return out
}

func (g *Gateway) emit(out []types.GatewayEvent, t *tracked, kind types.GatewayEventKind,
	status uint8, left uint16, errText string, now time.Time) []types.GatewayEvent {
	ev := types.GatewayEvent{
		Device:    t.dev.ID,
		Name:      t.dev.Name,
		Kind:      kind,
		Status:    status,
		TimerLeft: left,
		Err:       errText,
		TS:        now.UnixMilli(),
	}
	println("[gateway]", ev.Device, string(ev.Kind), "status", ev.Status)
	if g.conn != nil {
		g.conn.Publish(g.conn.NewMessage(TopicEvent(ev.Device), ev, false))
	}
	return append(out, ev)
}
