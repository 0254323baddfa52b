// Package grovelcd drives the 16x2 character LCD on the Grove I2C backpack
// (text controller at 0x3E, HD44780 command set).
//
// Every transfer is a control byte followed by one payload byte: 0x80 for a
// command, 0x40 for display data.
package grovelcd

import (
	"time"

	"tinygo.org/x/drivers"

	"labtrack-go/x/mathx"
	"labtrack-go/x/retry"
	"labtrack-go/x/strx"
)

const (
	Address = 0x3E
	Cols    = 16
	Rows    = 2
)

const (
	ctlCommand = 0x80
	ctlData    = 0x40

	cmdClear       = 0x01
	cmdEntryMode   = 0x06 // increment, no shift
	cmdDisplayOn   = 0x0C // display on, cursor off, blink off
	cmdFunctionSet = 0x28 // 4-bit, 2 lines, 5x8
	cmdSetDDRAM    = 0x80
	row1Offset     = 0x40
)

type Config struct {
	Address uint16
	// Timeout bounds retries of a single transfer. Default 50 ms.
	Timeout time.Duration
}

type Device struct {
	bus     drivers.I2C
	addr    uint16
	timeout time.Duration
	w       [2]byte
}

// New wraps an already configured bus. It does not touch the device.
func New(bus drivers.I2C, cfg Config) *Device {
	d := &Device{bus: bus, addr: cfg.Address, timeout: cfg.Timeout}
	if d.addr == 0 {
		d.addr = Address
	}
	if d.timeout <= 0 {
		d.timeout = 50 * time.Millisecond
	}
	return d
}

// Configure runs the power-on init sequence.
func (d *Device) Configure() error {
	for _, c := range [...]byte{cmdFunctionSet, cmdDisplayOn, cmdClear, cmdEntryMode} {
		if err := d.command(c); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) Clear() error { return d.command(cmdClear) }

// SetCursor moves to (col,row); out-of-range values are clamped.
func (d *Device) SetCursor(col, row int) error {
	col = mathx.Clamp(col, 0, Cols-1)
	row = mathx.Clamp(row, 0, Rows-1)
	return d.command(cmdSetDDRAM | byte(col+row*row1Offset))
}

// Print writes s at the cursor.
func (d *Device) Print(s string) error {
	for i := 0; i < len(s); i++ {
		if err := d.tx(ctlData, s[i]); err != nil {
			return err
		}
	}
	return nil
}

// SetText rewrites both lines, padding each to the display width.
func (d *Device) SetText(line0, line1 string) error {
	for row, s := range [Rows]string{line0, line1} {
		if err := d.SetCursor(0, row); err != nil {
			return err
		}
		if err := d.Print(strx.Fit(s, Cols)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) command(c byte) error {
	if err := d.tx(ctlCommand, c); err != nil {
		return err
	}
	if c == cmdClear {
		time.Sleep(2 * time.Millisecond)
	}
	return nil
}

func (d *Device) tx(ctl, b byte) error {
	d.w[0], d.w[1] = ctl, b
	return retry.Do("grovelcd.tx", d.timeout, 2*time.Millisecond, func() error {
		return d.bus.Tx(d.addr, d.w[:], nil)
	})
}
