package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"labtrack-go/bus"
	"labtrack-go/drivers/rfid125"
	"labtrack-go/services/config"
	"labtrack-go/services/slave"
	"labtrack-go/types"
)

// tagSensor returns a complete frame for id whenever the tag is in range.
type tagSensor struct {
	inRange atomic.Bool
	id      atomic.Value // string
}

func (s *tagSensor) Available() bool { return s.inRange.Load() }
func (s *tagSensor) Read() []byte    { return rfid125.Frame(s.id.Load().(string)) }
func (s *tagSensor) Clear()          {}

type recActuators struct {
	mu      sync.Mutex
	alerts  int
	success int
	leds    map[types.LED]bool
}

func (a *recActuators) AlertPattern() {
	a.mu.Lock()
	a.alerts++
	a.mu.Unlock()
	time.Sleep(time.Millisecond)
}
func (a *recActuators) SuccessPattern() { a.mu.Lock(); a.success++; a.mu.Unlock() }
func (a *recActuators) SetLED(l types.LED, on bool) {
	a.mu.Lock()
	a.leds[l] = on
	a.mu.Unlock()
}
func (a *recActuators) ClearAll() { a.mu.Lock(); a.leds = map[types.LED]bool{}; a.mu.Unlock() }
func (a *recActuators) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alerts, a.success
}

func testConfig() config.Config {
	c := config.Default()
	c.Equipment.Label = "scope"
	c.Equipment.GraceSeconds = 1
	c.Presence.PollMs = 50
	c.Presence.MissThreshold = 2
	c.Supervisor.ReceiveTimeoutMs = 10
	c.Alarm.IntervalMs = 50
	c.Normalize()
	return c
}

func waitStatus(t *testing.T, eng *slave.Engine, want uint8, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if eng.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("STATUS %#02x, want %#02x", eng.Status(), want)
}

func TestEndToEndAlarmAndReturn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sens := &tagSensor{}
	sens.id.Store("0A1B2C3D4E")
	sens.inRange.Store(true)
	act := &recActuators{leds: map[types.LED]bool{}}
	eng := slave.New(slave.AddressDefault)
	b := bus.NewBus(8)

	svc := New(testConfig(), Resources{Sensor: sens, Actuators: act, Engine: eng, Conn: b.NewConnection("monitor")})
	done := make(chan struct{})
	go func() { svc.Run(ctx); close(done) }()

	waitStatus(t, eng, slave.StatusTagPresent, time.Second)
	sens.inRange.Store(false)
	waitStatus(t, eng, slave.StatusTimerRunning, time.Second)
	if left := eng.TimerLeft(); left > 1 {
		t.Fatalf("TIMER_LEFT %d", left)
	}
	waitStatus(t, eng, slave.StatusAlarmActive, 2*time.Second)

	sens.inRange.Store(true)
	waitStatus(t, eng, slave.StatusTagPresent, time.Second)
	alerts, success := act.counts()
	if alerts == 0 || success != 1 {
		t.Fatalf("alerts=%d success=%d", alerts, success)
	}
	if got := svc.Snapshot().Tag; got != "0A1B2C3D4E" {
		t.Fatalf("record tag %q", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestHostStopAlarm(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sens := &tagSensor{}
	sens.id.Store("0A1B2C3D4E")
	act := &recActuators{leds: map[types.LED]bool{}}
	eng := slave.New(slave.AddressDefault)
	svc := New(testConfig(), Resources{Sensor: sens, Actuators: act, Engine: eng})
	go svc.Run(ctx)

	waitStatus(t, eng, slave.StatusAlarmActive, 3*time.Second)
	if err := slave.NewLoopback(eng).Tx(slave.AddressDefault, []byte{slave.RegCommand, byte(slave.CmdStopAlarm)}, nil); err != nil {
		t.Fatal(err)
	}
	waitStatus(t, eng, 0, time.Second)
	if !svc.Snapshot().Acknowledged {
		t.Fatal("snapshot not acknowledged")
	}
}

func TestEnforcedAllowList(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := testConfig()
	cfg.Presence.EnforceAllow = true
	cfg.Slave.AllowList = []string{"0A1B2C3D4E"}

	sens := &tagSensor{}
	sens.id.Store("FFFFFFFFFF") // wrong tag in range
	sens.inRange.Store(true)
	act := &recActuators{leds: map[types.LED]bool{}}
	eng := slave.New(slave.AddressDefault)
	svc := New(cfg, Resources{Sensor: sens, Actuators: act, Engine: eng})
	go svc.Run(ctx)

	waitStatus(t, eng, slave.StatusTimerRunning, time.Second)
	sens.id.Store("0A1B2C3D4E")
	waitStatus(t, eng, slave.StatusTagPresent, time.Second)
	eng.NoteBusError()
	if hb := svc.Heartbeat(); hb.State != types.StatePresent || hb.BusErrors != 1 {
		t.Fatalf("heartbeat %+v", hb)
	}
}

func TestEquipmentReconfigured(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sens := &tagSensor{}
	sens.id.Store("0A1B2C3D4E")
	sens.inRange.Store(true)
	act := &recActuators{leds: map[types.LED]bool{}}
	eng := slave.New(slave.AddressDefault)
	b := bus.NewBus(8)
	svc := New(testConfig(), Resources{Sensor: sens, Actuators: act, Engine: eng, Conn: b.NewConnection("monitor")})
	go svc.Run(ctx)

	c := testConfig()
	c.Equipment = config.EquipmentConfig{Label: "scope-2", GraceSeconds: 9}
	config.Publish(b.NewConnection("config"), c)

	deadline := time.Now().Add(time.Second)
	for svc.Snapshot().Label != "scope-2" {
		if time.Now().After(deadline) {
			t.Fatalf("label %q", svc.Snapshot().Label)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if g := svc.timer.Grace(); g != 9*time.Second {
		t.Fatalf("grace %v", g)
	}

	// The next absence counts down from the new grace period.
	sens.inRange.Store(false)
	waitStatus(t, eng, slave.StatusTimerRunning, time.Second)
	if left := eng.TimerLeft(); left < 8 || left > 9 {
		t.Fatalf("TIMER_LEFT %d", left)
	}
}
