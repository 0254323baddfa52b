package slave

import (
	"sync/atomic"

	"labtrack-go/x/critical"
	"labtrack-go/x/strx"
)

// Stats are diagnostic counters maintained by the bus handler.
type Stats struct {
	UnknownCodes uint32 // status codes the handler does not recognise
	UnknownRegs  uint32 // reads of an unmapped register pointer
	TagsAdded    uint32
	TagRejects   uint32 // ADD_TAG writes refused because the list was full
	Truncated    uint32 // ADD_TAG writes longer than MaxTagLen
	Commands     uint32 // COMMAND writes accepted
	BusErrors    uint32 // controller-side failures reported by the platform
}

// Engine is the bus target: register file, allow-list and command mailbox.
//
// Handle runs in interrupt context. SetStatus/SetTimerLeft/TakeCommand are
// single-word atomics; CheckTag and the other allow-list accessors take the
// critical section briefly.
type Engine struct {
	addr uint8

	status    atomic.Uint32
	timerLeft atomic.Uint32
	mbox      Mailbox

	// Interrupt-owned.
	tags    AllowList
	reg     uint8
	rxIdx   uint8
	rxBuf   [MaxTagLen]byte
	rxLen   uint8
	rxEnded bool // NUL seen in ADD_TAG payload
	rxTrunc bool
	txIdx   uint8
	txTimer uint16 // TIMER_LEFT latched at address-read so both bytes agree

	unknownCodes atomic.Uint32
	unknownRegs  atomic.Uint32
	tagsAdded    atomic.Uint32
	tagRejects   atomic.Uint32
	truncated    atomic.Uint32
	commands     atomic.Uint32
	busErrors    atomic.Uint32
}

func New(addr uint8) *Engine {
	if addr == 0 {
		addr = AddressDefault
	}
	return &Engine{addr: addr}
}

func (e *Engine) Address() uint8 { return e.addr }

// Handle advances the protocol by one controller status code. in is the data
// register for SRData; out is the byte to load for ST codes. It never blocks
// and always returns Rearm.
func (e *Engine) Handle(code Code, in byte) (out byte, ctl Control) {
	cs := critical.Enter()
	switch code {
	case SRAddrAck:
		e.rxIdx, e.rxLen = 0, 0
		e.rxEnded, e.rxTrunc = false, false
	case SRData:
		if e.rxIdx == 0 {
			e.reg = in
		} else {
			e.onPayload(in)
		}
		if e.rxIdx < 0xFF {
			e.rxIdx++
		}
	case SRStop:
		e.endWrite()
	case STAddrAck:
		e.txIdx = 0
		e.txTimer = uint16(e.timerLeft.Load())
		out = e.nextTx()
	case STDataAck:
		out = e.nextTx()
	case STDataNack, STLastData:
		// read finished; nothing to load
	default:
		e.unknownCodes.Add(1)
	}
	critical.Exit(cs)
	return out, Rearm
}

func (e *Engine) onPayload(b byte) {
	switch e.reg {
	case RegCommand:
		if e.rxIdx != 1 {
			return
		}
		switch c := Command(b); c {
		case CmdStopAlarm:
			e.mbox.Post(c)
			e.commands.Add(1)
		case CmdClearTags:
			e.tags.Clear()
			e.commands.Add(1)
		case CmdNop:
			// Counted but not posted: it must not cancel a pending stop.
			e.commands.Add(1)
		}
	case RegAddTag:
		switch {
		case e.rxEnded:
		case b == 0:
			e.rxEnded = true
		case int(e.rxLen) < MaxTagLen:
			e.rxBuf[e.rxLen] = b
			e.rxLen++
		default:
			e.rxTrunc = true
		}
	}
}

func (e *Engine) endWrite() {
	if e.reg == RegAddTag && e.rxLen > 0 {
		if e.tags.Append(e.rxBuf[:e.rxLen]) {
			e.tagsAdded.Add(1)
			if e.rxTrunc {
				e.truncated.Add(1)
			}
		} else {
			e.tagRejects.Add(1)
		}
	}
	e.rxIdx, e.rxLen = 0, 0
	e.rxEnded, e.rxTrunc = false, false
}

func (e *Engine) nextTx() byte {
	i := e.txIdx
	if e.txIdx < 0xFF {
		e.txIdx++
	}
	switch e.reg {
	case RegStatus:
		if i == 0 {
			return byte(e.status.Load())
		}
		return Fill
	case RegTimerLeft:
		switch i {
		case 0:
			return byte(e.txTimer >> 8)
		case 1:
			return byte(e.txTimer)
		}
		return Fill
	case RegTagIDs:
		return e.tags.streamByte(int(i))
	default:
		if i == 0 {
			e.unknownRegs.Add(1)
		}
		return Fill
	}
}

// ---- task-side API ----

// SetStatus publishes the STATUS bitfield.
func (e *Engine) SetStatus(bits uint8) { e.status.Store(uint32(bits)) }

// SetTimerLeft publishes TIMER_LEFT in seconds.
func (e *Engine) SetTimerLeft(s uint16) { e.timerLeft.Store(uint32(s)) }

func (e *Engine) Status() uint8     { return uint8(e.status.Load()) }
func (e *Engine) TimerLeft() uint16 { return uint16(e.timerLeft.Load()) }

// Pointer is the register selected by the last write. Target controllers
// that need the reply length up front size it with ReplyLen(Pointer()).
func (e *Engine) Pointer() uint8 {
	cs := critical.Enter()
	r := e.reg
	critical.Exit(cs)
	return r
}

// TakeCommand drains the pending-command mailbox.
func (e *Engine) TakeCommand() Command { return e.mbox.Take() }

// CheckTag reports whether candidate (up to its first NUL) is on the
// allow-list. An empty allow-list authorises nothing.
func (e *Engine) CheckTag(candidate []byte) bool {
	c := strx.CString(candidate)
	if len(c) == 0 {
		return false
	}
	cs := critical.Enter()
	ok := e.tags.Contains(c)
	critical.Exit(cs)
	return ok
}

// SeedTags appends configured tags at boot. It returns how many were stored.
func (e *Engine) SeedTags(tags []string) int {
	n := 0
	cs := critical.Enter()
	for _, t := range tags {
		if e.tags.Append([]byte(t)) {
			n++
		}
	}
	critical.Exit(cs)
	return n
}

// Tags returns a copy of the allow-list.
func (e *Engine) Tags() []string {
	cs := critical.Enter()
	out := make([]string, 0, e.tags.Len())
	for i := 0; i < e.tags.Len(); i++ {
		out = append(out, string(e.tags.Entry(i)))
	}
	critical.Exit(cs)
	return out
}

func (e *Engine) Stats() Stats {
	return Stats{
		UnknownCodes: e.unknownCodes.Load(),
		UnknownRegs:  e.unknownRegs.Load(),
		TagsAdded:    e.tagsAdded.Load(),
		TagRejects:   e.tagRejects.Load(),
		Truncated:    e.truncated.Load(),
		Commands:     e.commands.Load(),
		BusErrors:    e.busErrors.Load(),
	}
}

// NoteBusError counts a transfer the controller failed before it reached
// Handle. It returns the new total.
func (e *Engine) NoteBusError() uint32 { return e.busErrors.Add(1) }
