package protocol

import "errors"

// ErrBadFrame is reported for frames dropped by the decoder
var ErrBadFrame = errors.New("bad frame")

// Encoder writes frames to an OutputBuffer. Each frame gets the next
// sequence number so the receiver can count lost frames.
type Encoder struct {
	output OutputBuffer
	seq    uint8
}

// NewEncoder creates an encoder writing to output
func NewEncoder(output OutputBuffer) *Encoder {
	return &Encoder{
		output: output,
		seq:    MessageDest,
	}
}

// EncodeFrame encodes and sends a frame with the given data
func (e *Encoder) EncodeFrame(frameData func(output OutputBuffer)) {
	cursor := e.output.CurPosition()

	// Write header (length placeholder and sequence)
	e.output.Output([]byte{0, e.seq})

	// Write frame contents
	frameData(e.output)

	// Update length field
	changed := len(e.output.DataSince(cursor))
	e.output.Update(cursor, uint8(changed+MessageTrailerSize))

	// Calculate and write CRC
	crc := CRC16(e.output.DataSince(cursor))
	e.output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})

	e.seq = ((e.seq + 1) & MessageSeqMask) | MessageDest
}

// EncodeEvent sends one trace event as a frame
func (e *Encoder) EncodeEvent(ev Event) {
	e.EncodeFrame(func(output OutputBuffer) {
		EncodeEvent(output, ev)
	})
}

// Frame is a validated frame as returned by Decoder
type Frame struct {
	Sequence uint8
	Payload  []byte // Frame data without header/trailer
}

// DecoderStats counts what the decoder saw on the wire
type DecoderStats struct {
	Frames    uint64 // valid frames
	BadFrames uint64 // frames dropped for length, sequence byte, sync or CRC
	Lost      uint64 // frames missing according to the sequence numbers
}

// Decoder reassembles frames from a byte stream. It resynchronizes on the
// 0x7E sync byte after any framing error.
type Decoder struct {
	buf     []byte
	synced  bool
	lastSeq int // -1 until the first frame
	stats   DecoderStats
}

// NewDecoder creates a decoder that starts out synchronized
func NewDecoder() *Decoder {
	return &Decoder{
		synced:  true,
		lastSeq: -1,
	}
}

// Write appends received bytes. It never fails; it implements io.Writer so
// a stream can be copied straight into the decoder.
func (d *Decoder) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	return len(p), nil
}

// Stats returns the decoder counters
func (d *Decoder) Stats() DecoderStats {
	return d.stats
}

// Next returns the next complete frame, or false when more data is needed.
// The returned payload is only valid until the next call to Next or Write.
func (d *Decoder) Next() (Frame, bool) {
	data := d.buf
	defer func() { d.compact(data) }()

	for len(data) > 0 {
		if !d.synced {
			// Look for sync byte to resynchronize
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = data[len(data):]
				break
			}
			data = data[syncPos+1:]
			d.synced = true
			continue
		}

		// Skip leading sync bytes
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		// Need at least minimum message length
		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			d.desync()
			continue
		}

		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			d.desync()
			continue
		}

		// Wait for full message
		if len(data) < msgLen {
			break
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			d.desync()
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			d.desync()
			continue
		}

		frame := Frame{
			Sequence: seq & MessageSeqMask,
			Payload:  data[MessageHeaderSize : msgLen-MessageTrailerSize],
		}
		data = data[msgLen:]
		d.countSequence(frame.Sequence)
		d.stats.Frames++
		return frame, true
	}
	return Frame{}, false
}

func (d *Decoder) desync() {
	d.synced = false
	d.stats.BadFrames++
}

func (d *Decoder) countSequence(seq uint8) {
	if d.lastSeq >= 0 {
		expected := uint8(d.lastSeq+1) & MessageSeqMask
		d.stats.Lost += uint64((seq - expected) & MessageSeqMask)
	}
	d.lastSeq = int(seq)
}

// compact drops consumed bytes, keeping the returned payload valid by
// moving data only on the following call.
func (d *Decoder) compact(rest []byte) {
	consumed := len(d.buf) - len(rest)
	if consumed == 0 {
		return
	}
	if len(rest) == 0 {
		d.buf = d.buf[:0]
		return
	}
	d.buf = d.buf[consumed:]
}
