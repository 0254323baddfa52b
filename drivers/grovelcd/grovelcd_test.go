package grovelcd

import (
	"errors"
	"testing"
	"time"

	"labtrack-go/errcode"
)

type fakeBus struct {
	addr   uint16
	writes [][2]byte
	fail   int // fail the next n transfers
}

func (f *fakeBus) Tx(addr uint16, w, r []byte) error {
	f.addr = addr
	if f.fail > 0 {
		f.fail--
		return errcode.Nack
	}
	f.writes = append(f.writes, [2]byte{w[0], w[1]})
	return nil
}

func (f *fakeBus) text() string {
	var b []byte
	for _, w := range f.writes {
		if w[0] == ctlData {
			b = append(b, w[1])
		}
	}
	return string(b)
}

func TestConfigureSequence(t *testing.T) {
	bus := &fakeBus{}
	d := New(bus, Config{})
	if err := d.Configure(); err != nil {
		t.Fatal(err)
	}
	if bus.addr != Address {
		t.Fatalf("address %#x", bus.addr)
	}
	want := [][2]byte{{0x80, 0x28}, {0x80, 0x0C}, {0x80, 0x01}, {0x80, 0x06}}
	if len(bus.writes) != len(want) {
		t.Fatalf("writes: %x", bus.writes)
	}
	for i := range want {
		if bus.writes[i] != want[i] {
			t.Fatalf("write %d: %x want %x", i, bus.writes[i], want[i])
		}
	}
}

func TestSetTextPadsAndPositions(t *testing.T) {
	bus := &fakeBus{}
	d := New(bus, Config{})
	if err := d.SetText("PRESENT", "ABSENT 00:05 and more"); err != nil {
		t.Fatal(err)
	}
	if got := bus.text(); got != "PRESENT         ABSENT 00:05 and" {
		t.Fatalf("text %q", got)
	}
	if bus.writes[0] != [2]byte{0x80, 0x80} || bus.writes[1+Cols] != [2]byte{0x80, 0xC0} {
		t.Fatalf("cursor commands: %x %x", bus.writes[0], bus.writes[1+Cols])
	}
}

func TestSetCursorClamps(t *testing.T) {
	bus := &fakeBus{}
	d := New(bus, Config{})
	_ = d.SetCursor(40, 7)
	if bus.writes[0] != [2]byte{0x80, 0x80 | (Cols - 1) | 0x40} {
		t.Fatalf("cursor %x", bus.writes[0])
	}
}

func TestRetriesThenTimesOut(t *testing.T) {
	bus := &fakeBus{fail: 2}
	d := New(bus, Config{Timeout: 50 * time.Millisecond})
	if err := d.Print("x"); err != nil {
		t.Fatalf("transient NACK not retried: %v", err)
	}

	bus.fail = 1 << 30
	d = New(bus, Config{Timeout: 5 * time.Millisecond})
	err := d.Print("y")
	if errcode.Of(err) != errcode.Timeout || !errors.Is(err, errcode.Nack) {
		t.Fatalf("got %v", err)
	}
}
