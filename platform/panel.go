// Package platform binds the monitor to a board: lamps, buzzer, tag reader,
// bus target and display bus. The rp2040 build drives real pins; every other
// build gets a printing simulation.
package platform

import (
	"sync"
	"time"

	"labtrack-go/types"
)

// Output is one on/off line (an LED pin).
type Output interface {
	Set(on bool)
}

// Beeper is the piezo buzzer.
type Beeper interface {
	On() error
	Off() error
}

// Panel implements monitor.Actuators over four lamps and a buzzer.
type Panel struct {
	mu     sync.Mutex
	leds   [4]Output // indexed by types.LED
	buzzer Beeper
	sleep  func(time.Duration)
}

func NewPanel(red, green, blue, builtin Output, bz Beeper) *Panel {
	return &Panel{leds: [4]Output{red, green, blue, builtin}, buzzer: bz, sleep: time.Sleep}
}

func (p *Panel) SetLED(l types.LED, on bool) {
	if int(l) >= len(p.leds) || p.leds[l] == nil {
		return
	}
	p.mu.Lock()
	p.leds[l].Set(on)
	p.mu.Unlock()
}

func (p *Panel) buzz(on bool) {
	if p.buzzer == nil {
		return
	}
	p.mu.Lock()
	if on {
		_ = p.buzzer.On()
	} else {
		_ = p.buzzer.Off()
	}
	p.mu.Unlock()
}

func (p *Panel) ClearAll() {
	for l := range p.leds {
		p.SetLED(types.LED(l), false)
	}
	p.buzz(false)
}

// AlertPattern: three red blinks (150 ms) then three long beeps (200 ms).
func (p *Panel) AlertPattern() {
	p.ClearAll()
	for i := 0; i < 3; i++ {
		p.SetLED(types.LEDRed, true)
		p.SetLED(types.LEDBuiltin, true)
		p.sleep(150 * time.Millisecond)
		p.SetLED(types.LEDRed, false)
		p.SetLED(types.LEDBuiltin, false)
		p.sleep(150 * time.Millisecond)
	}
	for i := 0; i < 3; i++ {
		p.buzz(true)
		p.sleep(200 * time.Millisecond)
		p.buzz(false)
		p.sleep(200 * time.Millisecond)
	}
}

// SuccessPattern: two quick green blinks and two short beeps.
func (p *Panel) SuccessPattern() {
	p.ClearAll()
	for i := 0; i < 2; i++ {
		p.SetLED(types.LEDGreen, true)
		p.sleep(80 * time.Millisecond)
		p.SetLED(types.LEDGreen, false)
		p.sleep(80 * time.Millisecond)
	}
	p.buzz(true)
	p.sleep(50 * time.Millisecond)
	p.buzz(false)
	p.sleep(80 * time.Millisecond)
	p.buzz(true)
	p.sleep(50 * time.Millisecond)
	p.buzz(false)
}

// StartupPattern cycles red, green, blue then flashes everything.
func (p *Panel) StartupPattern() {
	p.ClearAll()
	for _, l := range []types.LED{types.LEDRed, types.LEDGreen, types.LEDBlue} {
		p.SetLED(l, true)
		p.sleep(200 * time.Millisecond)
		p.SetLED(l, false)
		p.sleep(50 * time.Millisecond)
	}
	for l := range p.leds {
		p.SetLED(types.LED(l), true)
	}
	p.sleep(300 * time.Millisecond)
	p.ClearAll()
	p.buzz(true)
	p.sleep(100 * time.Millisecond)
	p.buzz(false)
	p.sleep(100 * time.Millisecond)
	p.buzz(true)
	p.sleep(100 * time.Millisecond)
	p.buzz(false)
}
