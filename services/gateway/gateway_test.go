package gateway

import (
	"testing"
	"time"

	"labtrack-go/bus"
	"labtrack-go/errcode"
	"labtrack-go/services/slave"
	"labtrack-go/types"
)

func kinds(evs []types.GatewayEvent) []types.GatewayEventKind {
	var k []types.GatewayEventKind
	for _, e := range evs {
		k = append(k, e.Kind)
	}
	return k
}

func sameKinds(a []types.GatewayEventKind, b ...types.GatewayEventKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestClientRegisters(t *testing.T) {
	eng := slave.New(slave.AddressDefault)
	c := NewClient(slave.NewLoopback(eng), slave.AddressDefault, 0)

	eng.SetStatus(slave.StatusTimerRunning)
	eng.SetTimerLeft(0x0102)
	if st, err := c.ReadStatus(); err != nil || st != slave.StatusTimerRunning {
		t.Fatalf("status %#x %v", st, err)
	}
	if left, err := c.ReadTimerLeft(); err != nil || left != 0x0102 {
		t.Fatalf("timer %#x %v", left, err)
	}

	for _, tag := range []string{"0A1B2C3D4E", "X"} {
		if err := c.AddTag(tag); err != nil {
			t.Fatal(err)
		}
	}
	tags, err := c.ReadTags()
	if err != nil || len(tags) != 2 || tags[0] != "0A1B2C3D4E" || tags[1] != "X" {
		t.Fatalf("tags %q %v", tags, err)
	}
	if err := c.ClearTags(); err != nil {
		t.Fatal(err)
	}
	if tags, _ := c.ReadTags(); len(tags) != 0 {
		t.Fatalf("tags after clear %q", tags)
	}

	if err := c.StopAlarm(); err != nil {
		t.Fatal(err)
	}
	if cmd := eng.TakeCommand(); cmd != slave.CmdStopAlarm {
		t.Fatalf("mailbox %v", cmd)
	}
}

func TestAddTagRejectsBadLength(t *testing.T) {
	c := NewClient(slave.NewLoopback(), slave.AddressDefault, 0)
	for _, tag := range []string{"", "0123456789ABCDEF"} {
		if err := c.AddTag(tag); errcode.Of(err) != errcode.InvalidParams {
			t.Fatalf("%q: %v", tag, err)
		}
	}
}

func TestPollDetectsChanges(t *testing.T) {
	eng := slave.New(slave.AddressDefault)
	b := bus.NewBus(8)
	sub := b.NewConnection("test").Subscribe(bus.T("gateway", "+", "event"))
	g := New(slave.NewLoopback(eng), b.NewConnection("gateway"), Config{},
		[]Device{{ID: "bench1", Name: "scope", Address: slave.AddressDefault}})

	now := time.Unix(1000, 0)
	eng.SetStatus(slave.StatusTagPresent)
	if evs := g.PollOnce(now); len(evs) != 0 {
		t.Fatalf("baseline poll raised %v", kinds(evs))
	}

	eng.SetStatus(slave.StatusTimerRunning)
	eng.SetTimerLeft(4)
	evs := g.PollOnce(now.Add(time.Second))
	if !sameKinds(kinds(evs), types.ObjectRemoved) || evs[0].TimerLeft != 4 {
		t.Fatalf("removed: %+v", evs)
	}

	eng.SetStatus(slave.StatusAlarmActive)
	if evs := g.PollOnce(now.Add(2 * time.Second)); !sameKinds(kinds(evs), types.AlarmStarted) {
		t.Fatalf("alarm: %v", kinds(evs))
	}

	eng.SetStatus(slave.StatusTagPresent)
	if evs := g.PollOnce(now.Add(3 * time.Second)); !sameKinds(kinds(evs), types.ObjectReturned, types.AlarmStopped) {
		t.Fatalf("returned: %v", kinds(evs))
	}

	select {
	case m := <-sub.Channel():
		if m.Payload.(types.GatewayEvent).Device != "bench1" {
			t.Fatalf("event %+v", m.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no bus event")
	}
}

func TestAutoAck(t *testing.T) {
	eng := slave.New(slave.AddressDefault)
	g := New(slave.NewLoopback(eng), nil, Config{AckAfter: 10 * time.Second},
		[]Device{{Address: slave.AddressDefault}})

	now := time.Unix(1000, 0)
	eng.SetStatus(slave.StatusAlarmActive)
	g.PollOnce(now)
	if evs := g.PollOnce(now.Add(5 * time.Second)); len(evs) != 0 {
		t.Fatalf("early: %v", kinds(evs))
	}
	evs := g.PollOnce(now.Add(11 * time.Second))
	if !sameKinds(kinds(evs), types.AlarmAcked) || evs[0].Device != "dev-66" {
		t.Fatalf("ack: %+v", evs)
	}
	if eng.TakeCommand() != slave.CmdStopAlarm {
		t.Fatal("stop-alarm not written")
	}
	// Only once per alarm.
	if evs := g.PollOnce(now.Add(30 * time.Second)); len(evs) != 0 {
		t.Fatalf("repeat ack: %v", kinds(evs))
	}
}

func TestAutoAckPerDevice(t *testing.T) {
	quick := slave.New(0x42)
	slow := slave.New(0x43)
	g := New(slave.NewLoopback(quick, slow), nil, Config{AckAfter: time.Minute}, []Device{
		{ID: "quick", Address: 0x42, AckAfter: 5 * time.Second},
		{ID: "slow", Address: 0x43},
	})

	now := time.Unix(1000, 0)
	quick.SetStatus(slave.StatusAlarmActive)
	slow.SetStatus(slave.StatusAlarmActive)
	g.PollOnce(now)
	evs := g.PollOnce(now.Add(6 * time.Second))
	if !sameKinds(kinds(evs), types.AlarmAcked) || evs[0].Device != "quick" {
		t.Fatalf("per-device ack: %+v", evs)
	}
	if quick.TakeCommand() != slave.CmdStopAlarm || slow.TakeCommand() != slave.CmdNop {
		t.Fatal("wrong device acknowledged")
	}
	evs = g.PollOnce(now.Add(61 * time.Second))
	if !sameKinds(kinds(evs), types.AlarmAcked) || evs[0].Device != "slow" {
		t.Fatalf("default ack: %+v", evs)
	}
}

func TestDeviceLostOnce(t *testing.T) {
	g := New(slave.NewLoopback(), nil, Config{Timeout: time.Millisecond},
		[]Device{{ID: "ghost", Address: 0x10}})
	now := time.Now()
	evs := g.PollOnce(now)
	if !sameKinds(kinds(evs), types.DeviceLost) || evs[0].Err == "" {
		t.Fatalf("lost: %+v", evs)
	}
	if evs := g.PollOnce(now.Add(time.Second)); len(evs) != 0 {
		t.Fatalf("lost repeated: %v", kinds(evs))
	}
	if g.Client("ghost") == nil || g.Client("nope") != nil {
		t.Fatal("client lookup")
	}
}
