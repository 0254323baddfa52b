package slave

import "bytes"

// AllowList is a fixed-capacity, append-only set of authorised tags. Entries
// are stored NUL-terminated. It is not safe for concurrent use; Engine
// serialises access.
type AllowList struct {
	tags [MaxTags][TagSize]byte
	lens [MaxTags]uint8
	n    uint8
}

// Append stores p, truncated to MaxTagLen. It reports false when p is empty
// or the list is full.
func (a *AllowList) Append(p []byte) bool {
	if len(p) == 0 || int(a.n) >= MaxTags {
		return false
	}
	if len(p) > MaxTagLen {
		p = p[:MaxTagLen]
	}
	slot := &a.tags[a.n]
	*slot = [TagSize]byte{}
	copy(slot[:], p)
	a.lens[a.n] = uint8(len(p))
	a.n++
	return true
}

// Clear forgets every entry.
func (a *AllowList) Clear() { a.n = 0 }

func (a *AllowList) Len() int { return int(a.n) }

// Entry returns entry i without its terminator. The slice aliases storage.
func (a *AllowList) Entry(i int) []byte {
	if i < 0 || i >= int(a.n) {
		return nil
	}
	return a.tags[i][:a.lens[i]]
}

// Contains reports an exact match. An empty list contains nothing.
func (a *AllowList) Contains(c []byte) bool {
	for i := 0; i < int(a.n); i++ {
		if bytes.Equal(a.Entry(i), c) {
			return true
		}
	}
	return false
}

// streamByte returns byte i of the concatenated NUL-terminated entries, and
// 0x00 past the end. Bounded by MaxTags*TagSize.
func (a *AllowList) streamByte(i int) byte {
	for k := 0; k < int(a.n); k++ {
		l := int(a.lens[k]) + 1
		if i < l {
			return a.tags[k][i]
		}
		i -= l
	}
	return 0x00
}
