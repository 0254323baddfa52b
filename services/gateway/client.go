package gateway

import (
	"time"

	"tinygo.org/x/drivers"

	"labtrack-go/errcode"
	"labtrack-go/services/slave"
	"labtrack-go/x/retry"
)

// Client is the bus initiator side of one supervised device.
type Client struct {
	bus     drivers.I2C
	addr    uint16
	timeout time.Duration
	backoff time.Duration
}

func NewClient(bus drivers.I2C, addr uint16, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	return &Client{bus: bus, addr: addr, timeout: timeout, backoff: 5 * time.Millisecond}
}

func (c *Client) Address() uint16 { return c.addr }

func (c *Client) tx(op string, w, r []byte) error {
	return retry.Do(op, c.timeout, c.backoff, func() error {
		return c.bus.Tx(c.addr, w, r)
	})
}

func (c *Client) ReadStatus() (uint8, error) {
	var r [1]byte
	if err := c.tx("gateway.status", []byte{slave.RegStatus}, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

// ReadTimerLeft returns the remaining grace in seconds (big-endian on the
// wire).
func (c *Client) ReadTimerLeft() (uint16, error) {
	var r [2]byte
	if err := c.tx("gateway.timer", []byte{slave.RegTimerLeft}, r[:]); err != nil {
		return 0, err
	}
	return uint16(r[0])<<8 | uint16(r[1]), nil
}

// ReadTags reads the NUL-separated allow-list stream.
func (c *Client) ReadTags() ([]string, error) {
	var r [slave.MaxTags * slave.TagSize]byte
	if err := c.tx("gateway.tags", []byte{slave.RegTagIDs}, r[:]); err != nil {
		return nil, err
	}
	var tags []string
	start := 0
	for i, b := range r {
		if b != 0 {
			continue
		}
		if i == start {
			break // empty entry ends the stream
		}
		tags = append(tags, string(r[start:i]))
		start = i + 1
	}
	return tags, nil
}

func (c *Client) command(cmd slave.Command) error {
	return c.tx("gateway."+cmd.String(), []byte{slave.RegCommand, byte(cmd)}, nil)
}

func (c *Client) StopAlarm() error { return c.command(slave.CmdStopAlarm) }
func (c *Client) ClearTags() error { return c.command(slave.CmdClearTags) }

// AddTag appends tag to the device allow-list. The device silently refuses
// when the list is full; read the list back to confirm.
func (c *Client) AddTag(tag string) error {
	if len(tag) == 0 || len(tag) > slave.MaxTagLen {
		return &errcode.E{C: errcode.InvalidParams, Op: "gateway.add_tag", Msg: "tag length 1..15"}
	}
	w := make([]byte, 0, len(tag)+2)
	w = append(w, slave.RegAddTag)
	w = append(w, tag...)
	w = append(w, 0)
	return c.tx("gateway.add_tag", w, nil)
}
