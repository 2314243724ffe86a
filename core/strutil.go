package core

// utoa formats a 64-bit value without the fmt package, which is too large
// for the firmware image. Uses a fixed buffer so only the returned string
// allocates.
func utoa(n uint64) string {
	if n == 0 {
		return "0"
	}

	var buf [20]byte // max digits of a uint64
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// hex32 formats a register value as 0x%08x
func hex32(v uint32) string {
	const digits = "0123456789abcdef"
	var buf [10]byte
	buf[0] = '0'
	buf[1] = 'x'
	for i := 9; i >= 2; i-- {
		buf[i] = digits[v&0xF]
		v >>= 4
	}
	return string(buf[:])
}
