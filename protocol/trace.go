package protocol

import "fmt"

// Trace event kinds. The values are part of the wire format.
const (
	EventOverflow uint8 = 1 // counter wrap accounted; Time = new period base
	EventMatch    uint8 = 2 // compare match; Time = match time, Value = deadline
	EventDeadline uint8 = 3 // deadline set; Time = deadline, Value = period base
	EventForced   uint8 = 4 // interrupt pended in software; Time = deadline
	EventWake     uint8 = 5 // wake callback run; Time = now, Value = deadline
	EventSetTime  uint8 = 6 // virtual time moved forward; Time = new time
	EventDropped  uint8 = 7 // events lost to ring overrun; Value = count
)

// msgTraceEvent is the message id prefixing every event payload
const msgTraceEvent = 1

// Event is one timer trace record
type Event struct {
	Kind  uint8
	Time  uint64
	Value uint64
}

func (e Event) String() string {
	return fmt.Sprintf("%s t=%d v=%d", EventName(e.Kind), e.Time, e.Value)
}

// EventName returns the display name of an event kind
func EventName(kind uint8) string {
	switch kind {
	case EventOverflow:
		return "OVERFLOW"
	case EventMatch:
		return "MATCH"
	case EventDeadline:
		return "DEADLINE"
	case EventForced:
		return "FORCED"
	case EventWake:
		return "WAKE"
	case EventSetTime:
		return "SET_TIME"
	case EventDropped:
		return "DROPPED"
	}
	return "UNKNOWN"
}

// EncodeEvent writes the payload of an event frame
func EncodeEvent(output OutputBuffer, ev Event) {
	EncodeVLQ(output, msgTraceEvent)
	EncodeVLQ(output, uint64(ev.Kind))
	EncodeVLQ(output, ev.Time)
	EncodeVLQ(output, ev.Value)
}

// DecodeEvent parses the payload of an event frame
func DecodeEvent(payload []byte) (Event, error) {
	data := payload
	id, err := DecodeVLQ(&data)
	if err != nil {
		return Event{}, fmt.Errorf("message id: %w", err)
	}
	if id != msgTraceEvent {
		return Event{}, fmt.Errorf("unknown message id %d: %w", id, ErrBadFrame)
	}

	var fields [3]uint64
	for i := range fields {
		if fields[i], err = DecodeVLQ(&data); err != nil {
			return Event{}, fmt.Errorf("event field %d: %w", i, err)
		}
	}
	if fields[0] > 0xFF {
		return Event{}, fmt.Errorf("event kind %d: %w", fields[0], ErrBadFrame)
	}
	if len(data) != 0 {
		return Event{}, fmt.Errorf("%d trailing bytes: %w", len(data), ErrBadFrame)
	}
	return Event{Kind: uint8(fields[0]), Time: fields[1], Value: fields[2]}, nil
}
