// Package conv formats integers without fmt or strconv, for MCU builds.
package conv

// AppendInt appends the base-10 form of n to dst.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		dst = append(dst, '-')
		return AppendUint(dst, uint64(-n), 0)
	}
	return AppendUint(dst, uint64(n), 0)
}

// AppendUint appends u in base 10, left-padded with zeros to at least width
// digits.
func AppendUint(dst []byte, u uint64, width int) []byte {
	var buf [20]byte
	i := len(buf)
	for u > 0 || i == len(buf) {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	for n := len(buf) - i; n < width; n++ {
		dst = append(dst, '0')
	}
	return append(dst, buf[i:]...)
}

func Itoa(n int) string {
	var b [21]byte
	return string(AppendInt(b[:0], int64(n)))
}

// Pad formats u with at least width digits.
func Pad(u uint64, width int) string {
	var b [20]byte
	return string(AppendUint(b[:0], u, width))
}
