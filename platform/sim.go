//go:build !rp2040

package platform

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"labtrack-go/drivers/grovelcd"
	"labtrack-go/drivers/rfid125"
	"labtrack-go/errcode"
	"labtrack-go/services/config"
	"labtrack-go/services/slave"
	"labtrack-go/x/shmring"
)

// Sim is a host stand-in for the board. A tag "in range" makes the fake
// reader emit a frame every FrameEvery, like the real reader does.
type Sim struct {
	Board

	ring    *shmring.Ring
	lcd     *SimLCD
	inRange atomic.Bool
	tag     atomic.Value // string
	every   time.Duration
}

func NewSim(cfg config.Config) *Sim {
	s := &Sim{ring: shmring.New(64), every: 100 * time.Millisecond}
	s.tag.Store("0A1B2C3D4E")
	if len(cfg.Slave.AllowList) > 0 {
		s.tag.Store(cfg.Slave.AllowList[0])
	}
	s.inRange.Store(true)
	s.Reader = rfid125.New(s.ring)
	s.Panel = NewPanel(printLine("red"), printLine("green"), printLine("blue"), printLine("led"), printBeeper{})
	s.Engine = slave.New(uint8(cfg.Slave.Address))
	if cfg.Display.Enabled {
		s.lcd = NewSimLCD(uint16(cfg.Display.Address))
		s.LCD = s.lcd
	}
	return s
}

// Open returns a simulated board whose reader is fed by a background
// goroutine until ctx is cancelled.
func Open(ctx context.Context, cfg config.Config) (*Board, error) {
	s := NewSim(cfg)
	go s.Run(ctx)
	return &s.Board, nil
}

func (s *Sim) SetInRange(on bool) {
	if s.inRange.Swap(on) != on {
		println("[sim] tag in range:", on)
	}
}

// SetTag changes the id the simulated reader reports.
func (s *Sim) SetTag(id string) {
	if s.tag.Swap(id) != id {
		println("[sim] tag id:", id)
	}
}

// Bus is an initiator wired to the simulated engine.
func (s *Sim) Bus() *slave.Loopback { return slave.NewLoopback(s.Engine) }

// Screen returns the simulated display, or nil.
func (s *Sim) Screen() *SimLCD { return s.lcd }

// Run feeds frames into the reader ring while the tag is in range.
func (s *Sim) Run(ctx context.Context) {
	tick := time.NewTicker(s.every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if s.inRange.Load() {
				s.ring.WriteFrom(rfid125.Frame(s.tag.Load().(string)))
			}
		}
	}
}

type printLine string

func (p printLine) Set(on bool) {
	if on {
		println("[sim]", string(p), "on")
	} else {
		println("[sim]", string(p), "off")
	}
}

type printBeeper struct{}

func (printBeeper) On() error  { println("[sim] buzzer on"); return nil }
func (printBeeper) Off() error { println("[sim] buzzer off"); return nil }

// SimLCD decodes grovelcd traffic into a 2x16 text buffer and prints each
// line when it is completed.
type SimLCD struct {
	addr uint16

	mu   sync.Mutex
	text [grovelcd.Rows][grovelcd.Cols]byte
	row  int
	col  int
}

func NewSimLCD(addr uint16) *SimLCD {
	l := &SimLCD{addr: addr}
	l.clear()
	return l
}

func (l *SimLCD) clear() {
	for r := range l.text {
		for c := range l.text[r] {
			l.text[r][c] = ' '
		}
	}
	l.row, l.col = 0, 0
}

func (l *SimLCD) Tx(addr uint16, w, r []byte) error {
	if addr != l.addr {
		return errcode.Nack
	}
	if len(w) != 2 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	switch ctl, b := w[0], w[1]; ctl {
	case 0x80:
		switch {
		case b == 0x01:
			l.clear()
		case b&0x80 != 0:
			pos := int(b & 0x7F)
			l.row, l.col = pos/0x40, pos%0x40
			if l.row >= grovelcd.Rows {
				l.row = grovelcd.Rows - 1
			}
		}
	case 0x40:
		if l.col < grovelcd.Cols {
			l.text[l.row][l.col] = b
			l.col++
			if l.col == grovelcd.Cols {
				println("[lcd]", l.row, "|"+string(l.text[l.row][:])+"|")
			}
		}
	}
	return nil
}

// Lines returns the current display contents.
func (l *SimLCD) Lines() (string, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return string(l.text[0][:]), string(l.text[1][:])
}
