//go:build !rp2040

package platform

import (
	"context"
	"testing"
	"time"

	"labtrack-go/drivers/grovelcd"
	"labtrack-go/drivers/rfid125"
	"labtrack-go/services/config"
)

func TestSimFeedsReader(t *testing.T) {
	cfg, _ := config.Lookup("sim")
	s := NewSim(cfg)
	s.every = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for !s.Reader.Available() {
		if time.Now().After(deadline) {
			t.Fatal("no frame fed")
		}
		time.Sleep(time.Millisecond)
	}
	s.SetInRange(false)
	time.Sleep(5 * time.Millisecond)
	s.Reader.Clear()
	time.Sleep(5 * time.Millisecond)
	if s.Reader.Available() {
		t.Fatal("frames fed while out of range")
	}
}

func TestSimSetTag(t *testing.T) {
	cfg, _ := config.Lookup("sim")
	s := NewSim(cfg)
	s.every = time.Millisecond
	s.SetTag("FFFFFFFFFF")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for {
		tag, complete := rfid125.Identify(s.Reader.Read())
		if complete {
			if string(tag) != "FFFFFFFFFF" {
				t.Fatalf("tag %q", tag)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("no frame read")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSimLCDRendersGrovelcd(t *testing.T) {
	l := NewSimLCD(grovelcd.Address)
	d := grovelcd.New(l, grovelcd.Config{})
	if err := d.Configure(); err != nil {
		t.Fatal(err)
	}
	if err := d.SetText("scope", "ABSENT 00:04"); err != nil {
		t.Fatal(err)
	}
	l0, l1 := l.Lines()
	if l0 != "scope           " || l1 != "ABSENT 00:04    " {
		t.Fatalf("lines %q %q", l0, l1)
	}
	if err := l.Tx(0x10, []byte{0x80, 0x01}, nil); err == nil {
		t.Fatal("wrong address accepted")
	}
}
