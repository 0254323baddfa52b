// Package shmring is a single-producer, single-consumer byte ring. The UART
// pump is the producer and the tag reader the consumer.
package shmring

import "sync/atomic"

type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)

	overrun atomic.Uint32 // bytes refused because the ring was full
}

// New allocates a ring. size must be a power of two >= 2.
func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("shmring: size must be power of two >= 2")
	}
	return &Ring{buf: make([]byte, size), mask: uint32(size - 1)}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

// Available is the number of unread bytes.
func (r *Ring) Available() int { return int(r.wr.Load() - r.rd.Load()) }

// Overruns reports how many bytes were refused on a full ring.
func (r *Ring) Overruns() uint32 { return r.overrun.Load() }

// WriteFrom copies as much of src as fits. Producer side only.
func (r *Ring) WriteFrom(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	used := wr - rd
	n := int(r.size() - used)
	if n > len(src) {
		n = len(src)
	}
	if short := len(src) - n; short > 0 {
		r.overrun.Add(uint32(short))
	}
	for i := 0; i < n; i++ {
		r.buf[(wr+uint32(i))&r.mask] = src[i]
	}
	r.wr.Store(wr + uint32(n))
	return n
}

// ReadInto copies up to len(dst) unread bytes. Consumer side only.
func (r *Ring) ReadInto(dst []byte) int {
	rd := r.rd.Load()
	n := int(r.wr.Load() - rd)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(rd+uint32(i))&r.mask]
	}
	r.rd.Store(rd + uint32(n))
	return n
}

// Discard drops everything currently readable. Consumer side only.
func (r *Ring) Discard() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	r.rd.Store(wr)
	return int(wr - rd)
}
