package display

import (
	"context"
	"sync"
	"testing"
	"time"

	"labtrack-go/bus"
	"labtrack-go/errcode"
	"labtrack-go/types"
)

func TestLines(t *testing.T) {
	cases := []struct {
		snap types.Snapshot
		l0   string
		l1   string
	}{
		{types.Snapshot{Label: "scope", State: types.StatePresent}, "scope", "PRESENT"},
		{types.Snapshot{State: types.StateAbsent, TimerLeft: 65}, "labtrack", "ABSENT 01:05"},
		{types.Snapshot{State: types.StateAbsent, TimerLeft: 6}, "labtrack", "ABSENT 00:06"},
		{types.Snapshot{State: types.StateAlert}, "labtrack", "ALERT!"},
		{types.Snapshot{State: types.StatePresent, Acknowledged: true}, "labtrack", "ACK - NO TAG"},
	}
	for _, c := range cases {
		l0, l1 := Lines(c.snap)
		if l0 != c.l0 || l1 != c.l1 {
			t.Errorf("%+v: got %q/%q want %q/%q", c.snap, l0, l1, c.l0, c.l1)
		}
	}
}

type fakeScreen struct {
	mu    sync.Mutex
	lines [][2]string
	fail  bool
}

func (f *fakeScreen) SetText(a, b string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		f.fail = false
		return errcode.Timeout
	}
	f.lines = append(f.lines, [2]string{a, b})
	return nil
}

func (f *fakeScreen) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

func waitCount(t *testing.T, f *fakeScreen, n int) {
	t.Helper()
	deadline := time.After(time.Second)
	for f.count() < n {
		select {
		case <-deadline:
			t.Fatalf("screen writes: got %d want %d", f.count(), n)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestRunRedrawsOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := bus.NewBus(8)
	pub := b.NewConnection("supervisor")
	scr := &fakeScreen{fail: true}

	pub.Publish(pub.NewMessage(topicStatus, types.Snapshot{State: types.StatePresent}, true))
	go Run(ctx, b.NewConnection("display"), scr)

	// The first write fails; the same frame is drawn on a later snapshot.
	deadline := time.After(time.Second)
	for ts := int64(1); scr.count() == 0; ts++ {
		pub.Publish(pub.NewMessage(topicStatus, types.Snapshot{State: types.StatePresent, TS: ts}, true))
		select {
		case <-deadline:
			t.Fatal("screen never drawn")
		case <-time.After(2 * time.Millisecond):
		}
	}

	pub.Publish(pub.NewMessage(topicStatus, types.Snapshot{State: types.StatePresent, TS: -1}, true))
	pub.Publish(pub.NewMessage(topicStatus, types.Snapshot{State: types.StateAlert}, true))
	waitCount(t, scr, 2)

	scr.mu.Lock()
	defer scr.mu.Unlock()
	if scr.lines[0][1] != "PRESENT" || scr.lines[1][1] != "ALERT!" || len(scr.lines) != 2 {
		t.Fatalf("writes: %q", scr.lines)
	}
}
