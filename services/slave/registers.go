// Package slave implements the register-addressed responder the supervising
// host talks to over the two-wire bus. The protocol engine is a pure state
// transition over controller status codes, so the same code runs from the bus
// interrupt on hardware and from a loopback initiator in tests.
package slave

// Default 7-bit target address.
const AddressDefault = 0x42

// Register pointers.
const (
	RegStatus    = 0x00 // R, 1 byte bitfield
	RegTagIDs    = 0x01 // R, NUL-separated tag stream, 0x00 once exhausted
	RegTimerLeft = 0x09 // R, uint16 seconds, big-endian
	RegCommand   = 0x10 // W, 1 byte command
	RegAddTag    = 0x11 // W, tag bytes appended to the allow-list on stop
)

// STATUS bits.
const (
	StatusTagPresent   = 1 << 0
	StatusTimerRunning = 1 << 1
	StatusAlarmActive  = 1 << 2
)

// Command is a COMMAND register value.
type Command uint8

const (
	CmdNop       Command = 0x00
	CmdStopAlarm Command = 0x01
	CmdClearTags Command = 0x02
)

func (c Command) String() string {
	switch c {
	case CmdNop:
		return "nop"
	case CmdStopAlarm:
		return "stop_alarm"
	case CmdClearTags:
		return "clear_tags"
	default:
		return "unknown"
	}
}

// Fill is sent for unknown registers and past the end of fixed-size replies.
const Fill = 0xFF

// Allow-list geometry. TagSize includes the NUL terminator.
const (
	MaxTags   = 3
	TagSize   = 16
	MaxTagLen = TagSize - 1
)

// Code is a bus controller status code (TWI slave numbering, prescaler bits
// masked off).
type Code uint8

const (
	SRAddrAck  Code = 0x60 // own address + W received, ACK returned
	SRData     Code = 0x80 // data byte received, ACK returned
	SRStop     Code = 0xA0 // STOP or repeated START while addressed
	STAddrAck  Code = 0xA8 // own address + R received, first byte to load
	STDataAck  Code = 0xB8 // byte sent, ACK received, next byte to load
	STDataNack Code = 0xC0 // byte sent, NACK received (end of read)
	STLastData Code = 0xC8 // last byte sent while ACK disabled, ACK received
)

// Control is the control-register word the handler hands back to the
// controller after every code.
type Control uint8

const (
	CtlInt       Control = 1 << 7 // clear the interrupt flag
	CtlAck       Control = 1 << 6 // acknowledge the next byte / own address
	CtlEnable    Control = 1 << 2
	CtlIntEnable Control = 1 << 0

	// Rearm keeps the target responsive. Returned for every code, including
	// unknown ones, so a confused transaction never locks the bus.
	Rearm = CtlInt | CtlAck | CtlEnable | CtlIntEnable
)

// ReplyLen is the number of meaningful bytes a read of reg returns.
func ReplyLen(reg uint8) int {
	switch reg {
	case RegTimerLeft:
		return 2
	case RegTagIDs:
		return MaxTags * TagSize
	default:
		return 1
	}
}
