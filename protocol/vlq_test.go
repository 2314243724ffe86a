package protocol

import (
	"errors"
	"math"
	"testing"
)

func TestVLQEncodeDecode(t *testing.T) {
	testCases := []uint64{
		0,
		1,
		127,
		128,
		255,
		16383,
		16384,
		65535,
		14976000,
		1 << 32,
		3*65536 + 1000,
		math.MaxUint32,
		math.MaxUint64 >> 1,
		math.MaxUint64,
	}

	for _, expected := range testCases {
		output := NewScratchOutput()
		EncodeVLQ(output, expected)
		encoded := output.Result()

		if len(encoded) != VLQSize(expected) {
			t.Errorf("VLQSize(%d) = %d, encoder wrote %d bytes", expected, VLQSize(expected), len(encoded))
		}

		data := encoded
		decoded, err := DecodeVLQ(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}

		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}

		if len(data) != 0 {
			t.Errorf("VLQ decode didn't consume all bytes for value %d: %d bytes remaining", expected, len(data))
		}
	}
}

func TestVLQKnownEncodings(t *testing.T) {
	testCases := []struct {
		value uint64
		bytes []byte
	}{
		{0, []byte{0x00}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x81, 0x00}},
		{0x3FFF, []byte{0xFF, 0x7F}},
		{0x4000, []byte{0x81, 0x80, 0x00}},
	}

	for _, tc := range testCases {
		output := NewScratchOutput()
		EncodeVLQ(output, tc.value)
		got := output.Result()
		if string(got) != string(tc.bytes) {
			t.Errorf("EncodeVLQ(%#x) = % x, want % x", tc.value, got, tc.bytes)
		}
	}
}

func TestVLQSequence(t *testing.T) {
	values := []uint64{42, 1 << 40, 0, 300}

	output := NewScratchOutput()
	for _, v := range values {
		EncodeVLQ(output, v)
	}

	data := output.Result()
	for i, expected := range values {
		got, err := DecodeVLQ(&data)
		if err != nil {
			t.Fatalf("value %d: %v", i, err)
		}
		if got != expected {
			t.Errorf("value %d: expected %d, got %d", i, expected, got)
		}
	}
}

func TestVLQDecodeErrors(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		err  error
	}{
		{"empty", []byte{}, ErrBufferTooSmall},
		{"truncated", []byte{0x81, 0x80}, ErrBufferTooSmall},
		{"too long", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, ErrInvalidVLQ},
		{"overflows 64 bits", []byte{0x82, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, ErrInvalidVLQ},
	}

	for _, tc := range testCases {
		data := tc.data
		_, err := DecodeVLQ(&data)
		if !errors.Is(err, tc.err) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.err, err)
		}
	}
}
