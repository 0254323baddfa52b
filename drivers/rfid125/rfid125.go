// Package rfid125 reads a 125 kHz tag reader in UART mode (9600 8N1).
//
// The reader emits one frame per tag sighting:
//
//	0x02 | 10 ASCII hex (id) | 2 ASCII hex (checksum) | 0x03
//
// The checksum is the XOR of the five id bytes.
//
// Bytes are pumped into a shmring by the board's UART task; Reader is the
// consumer and accumulates at most BufferSize bytes between Clear calls.
package rfid125

import (
	"errors"

	"labtrack-go/x/shmring"
)

const (
	BaudRate   = 9600
	BufferSize = 16
	FrameLen   = 14
	IDLen      = 10

	stx = 0x02
	etx = 0x03
)

var (
	ErrShort    = errors.New("rfid125: short frame")
	ErrFraming  = errors.New("rfid125: bad framing")
	ErrHex      = errors.New("rfid125: bad hex digit")
	ErrChecksum = errors.New("rfid125: checksum mismatch")
)

// Reader buffers raw bytes from the UART ring.
type Reader struct {
	rx  *shmring.Ring
	buf [BufferSize]byte
	n   int
}

func New(rx *shmring.Ring) *Reader { return &Reader{rx: rx} }

// Available reports unread bytes in the ring.
func (r *Reader) Available() bool { return r.rx.Available() > 0 }

// Read moves pending bytes into the buffer and returns the buffered frame.
// Once the buffer is full further bytes stay in the ring.
func (r *Reader) Read() []byte {
	if r.n < BufferSize {
		r.n += r.rx.ReadInto(r.buf[r.n:])
	}
	return r.buf[:r.n]
}

// Clear empties the buffer and drops anything left in the ring.
func (r *Reader) Clear() {
	r.buf = [BufferSize]byte{}
	r.n = 0
	r.rx.Discard()
}

// Overruns is the number of bytes the UART pump could not store.
func (r *Reader) Overruns() uint32 { return r.rx.Overruns() }

// Identify adapts ParseTag to the presence filter: complete is false while
// the frame is still arriving; a complete but corrupt frame yields a nil tag.
func Identify(frame []byte) (tag []byte, complete bool) {
	start := -1
	for i, b := range frame {
		if b == stx {
			start = i
			break
		}
	}
	if start < 0 {
		// Noise without a start byte; nothing more will make it valid.
		return nil, len(frame) > 0
	}
	f := frame[start:]
	if len(f) < FrameLen {
		return nil, false
	}
	id, err := ParseTag(f[:FrameLen])
	if err != nil {
		return nil, true
	}
	return id, true
}

// ParseTag validates a full frame and returns the 10-character id.
func ParseTag(frame []byte) ([]byte, error) {
	if len(frame) < FrameLen {
		return nil, ErrShort
	}
	if frame[0] != stx || frame[FrameLen-1] != etx {
		return nil, ErrFraming
	}
	var sum byte
	for i := 0; i < IDLen; i += 2 {
		b, ok := hexByte(frame[1+i], frame[2+i])
		if !ok {
			return nil, ErrHex
		}
		sum ^= b
	}
	want, ok := hexByte(frame[1+IDLen], frame[2+IDLen])
	if !ok {
		return nil, ErrHex
	}
	if sum != want {
		return nil, ErrChecksum
	}
	id := make([]byte, IDLen)
	copy(id, frame[1:1+IDLen])
	return id, nil
}

// Frame builds a valid frame for id (10 hex characters). Used by the
// simulator and tests.
func Frame(id string) []byte {
	f := make([]byte, 0, FrameLen)
	f = append(f, stx)
	f = append(f, id...)
	var sum byte
	for i := 0; i+1 < len(id); i += 2 {
		b, _ := hexByte(id[i], id[i+1])
		sum ^= b
	}
	const digits = "0123456789ABCDEF"
	f = append(f, digits[sum>>4], digits[sum&0x0F], etx)
	return f
}

func hexByte(hi, lo byte) (byte, bool) {
	h, ok1 := nibble(hi)
	l, ok2 := nibble(lo)
	return h<<4 | l, ok1 && ok2
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
