package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// vlqMaxBytes is the longest encoding of a uint64: ceil(64/7)
const vlqMaxBytes = 10

// EncodeVLQ writes v as an unsigned VLQ: 7-bit groups, most significant
// first, every byte but the last with the 0x80 continuation bit set.
func EncodeVLQ(output OutputBuffer, v uint64) {
	var buf [vlqMaxBytes]byte
	pos := len(buf) - 1
	buf[pos] = byte(v & 0x7F)
	for v >>= 7; v != 0; v >>= 7 {
		pos--
		buf[pos] = byte(v&0x7F) | 0x80
	}
	output.Output(buf[pos:])
}

// DecodeVLQ decodes an unsigned VLQ from the data slice.
// The data slice is advanced past the consumed bytes.
func DecodeVLQ(data *[]byte) (uint64, error) {
	var v uint64
	for i := 0; i < vlqMaxBytes; i++ {
		if len(*data) == 0 {
			return 0, ErrBufferTooSmall
		}
		c := (*data)[0]
		*data = (*data)[1:]

		if i == vlqMaxBytes-1 && v>>57 != 0 {
			// The tenth group would shift bits out of the top
			return 0, ErrInvalidVLQ
		}
		v = v<<7 | uint64(c&0x7F)
		if c&0x80 == 0 {
			return v, nil
		}
	}
	return 0, ErrInvalidVLQ
}

// VLQSize returns the number of bytes EncodeVLQ produces for v
func VLQSize(v uint64) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}
