//go:build rp2040

package platform

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/buzzer"

	"labtrack-go/drivers/rfid125"
	"labtrack-go/services/config"
	"labtrack-go/services/slave"
	"labtrack-go/x/shmring"
)

// Pico pin plan.
const (
	pinRed    = machine.GP16
	pinGreen  = machine.GP17
	pinBlue   = machine.GP18
	pinBuzzer = machine.GP15

	pinTagTX = machine.GP0 // UART0 to the reader
	pinTagRX = machine.GP1

	pinTargetSDA = machine.GP4 // I2C0, supervised by the host
	pinTargetSCL = machine.GP5
	pinLCDSDA    = machine.GP6 // I2C1, display
	pinLCDSCL    = machine.GP7
)

type pinOut struct{ p machine.Pin }

func (o pinOut) Set(on bool) { o.p.Set(on) }

func output(p machine.Pin) pinOut {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return pinOut{p}
}

type buzzerOut struct{ d *buzzer.Device }

func (b buzzerOut) On() error  { return b.d.On() }
func (b buzzerOut) Off() error { return b.d.Off() }

// Open configures the pins and buses and starts the UART pump and the bus
// target loop. Both run until ctx is cancelled.
func Open(ctx context.Context, cfg config.Config) (*Board, error) {
	output(pinBuzzer)
	bz := buzzer.New(pinBuzzer)
	panel := NewPanel(output(pinRed), output(pinGreen), output(pinBlue), output(machine.LED), buzzerOut{&bz})

	ring := shmring.New(64)
	u := uartx.UART0
	if err := u.Configure(uartx.UARTConfig{BaudRate: rfid125.BaudRate, TX: pinTagTX, RX: pinTagRX}); err != nil {
		return nil, err
	}
	go pumpUART(ctx, u, ring)

	eng := slave.New(uint8(cfg.Slave.Address))
	tgt := machine.I2C0
	if err := tgt.Configure(machine.I2CConfig{
		Mode: machine.I2CModeTarget,
		SDA:  pinTargetSDA,
		SCL:  pinTargetSCL,
	}); err != nil {
		return nil, err
	}
	if err := tgt.Listen(uint16(cfg.Slave.Address)); err != nil {
		return nil, err
	}
	go serveTarget(ctx, tgt, eng)

	b := &Board{Reader: rfid125.New(ring), Panel: panel, Engine: eng}
	if cfg.Display.Enabled {
		lcd := machine.I2C1
		if err := lcd.Configure(machine.I2CConfig{SDA: pinLCDSDA, SCL: pinLCDSCL, Frequency: 100_000}); err != nil {
			return nil, err
		}
		b.LCD = lcd
	}
	return b, nil
}

// pumpUART moves received bytes into the ring. Bytes that do not fit are
// counted by the ring as overruns.
func pumpUART(ctx context.Context, u *uartx.UART, ring *shmring.Ring) {
	var buf [16]byte
	for ctx.Err() == nil {
		rctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
		n, _ := u.RecvSomeContext(rctx, buf[:])
		cancel()
		if n > 0 {
			ring.WriteFrom(buf[:n])
		}
	}
}

// serveTarget translates the controller's target-mode events into engine
// status codes. Reads are answered with ReplyLen bytes of the selected
// register.
func serveTarget(ctx context.Context, i2c *machine.I2C, e *slave.Engine) {
	var rx [32]byte
	var tx [slave.MaxTags * slave.TagSize]byte
	for ctx.Err() == nil {
		evt, n, err := i2c.WaitForEvent(rx[:])
		if err != nil {
			busError(e, "wait", err)
			time.Sleep(time.Millisecond)
			continue
		}
		switch evt {
		case machine.I2CReceive:
			e.Handle(slave.SRAddrAck, 0)
			for _, b := range rx[:n] {
				e.Handle(slave.SRData, b)
			}
		case machine.I2CRequest:
			m := slave.ReplyLen(e.Pointer())
			for i := 0; i < m; i++ {
				code := slave.STDataAck
				if i == 0 {
					code = slave.STAddrAck
				}
				tx[i], _ = e.Handle(code, 0)
			}
			if err := i2c.Reply(tx[:m]); err != nil {
				busError(e, "reply", err)
			}
			e.Handle(slave.STDataNack, 0)
		case machine.I2CFinish:
			e.Handle(slave.SRStop, 0)
		}
	}
}

// busError counts a target-mode failure and logs the first of every 100.
func busError(e *slave.Engine, op string, err error) {
	if n := e.NoteBusError(); n%100 == 1 {
		println("[slave]", op, "error:", err.Error(), "total", n)
	}
}
