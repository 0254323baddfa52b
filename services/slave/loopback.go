package slave

import (
	"sync"

	"labtrack-go/errcode"
)

// Loopback is an in-process bus initiator wired straight to one or more
// engines. It satisfies tinygo.org/x/drivers.I2C, feeding each engine the
// status-code sequence a hardware controller would raise.
type Loopback struct {
	mu      sync.Mutex
	targets map[uint16]*Engine
}

func NewLoopback(engines ...*Engine) *Loopback {
	l := &Loopback{targets: map[uint16]*Engine{}}
	for _, e := range engines {
		l.targets[uint16(e.Address())] = e
	}
	return l
}

// Tx writes w (if any) then, after a repeated start, reads len(r) bytes.
func (l *Loopback) Tx(addr uint16, w, r []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.targets[addr]
	if !ok {
		return errcode.Nack
	}
	if len(w) > 0 {
		e.Handle(SRAddrAck, 0)
		for _, b := range w {
			e.Handle(SRData, b)
		}
		e.Handle(SRStop, 0)
	}
	for i := range r {
		code := STDataAck
		if i == 0 {
			code = STAddrAck
		}
		r[i], _ = e.Handle(code, 0)
	}
	if len(r) > 0 {
		e.Handle(STDataNack, 0)
	}
	return nil
}
