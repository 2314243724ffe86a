// Package protocol implements the framed binary trace link between the
// firmware and the host monitor.
//
// A frame is
//
//	len | seq | payload... | crc16 hi | crc16 lo | 0x7E
//
// where len counts the whole frame, seq carries 0x10 in its high nibble and a
// 4-bit rolling sequence number in the low nibble, and the CRC covers len,
// seq and payload. Payload fields are VLQ encoded.
package protocol

// Version is the trace protocol version reported by the host tools
const Version = "0.1.0"

// Frame layout constants
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	// Message sequence masks
	MessageSeqMask = 0x0F
)
