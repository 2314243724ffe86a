package protocol

import (
	"errors"
	"math"
	"testing"
)

func TestEventRoundTrip(t *testing.T) {
	events := []Event{
		{Kind: EventOverflow, Time: 65536},
		{Kind: EventWake, Time: math.MaxUint64, Value: math.MaxUint64 - 1},
		{Kind: EventDropped, Value: 12},
	}

	for _, ev := range events {
		out := NewScratchOutput()
		EncodeEvent(out, ev)
		got, err := DecodeEvent(out.Result())
		if err != nil {
			t.Errorf("%v: %v", ev, err)
			continue
		}
		if got != ev {
			t.Errorf("got %v, want %v", got, ev)
		}
	}
}

func TestDecodeEventErrors(t *testing.T) {
	out := NewScratchOutput()
	EncodeVLQ(out, 99) // unknown message id
	if _, err := DecodeEvent(out.Result()); !errors.Is(err, ErrBadFrame) {
		t.Errorf("unknown id: expected ErrBadFrame, got %v", err)
	}

	out.Reset()
	EncodeVLQ(out, msgTraceEvent)
	EncodeVLQ(out, uint64(EventWake))
	if _, err := DecodeEvent(out.Result()); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("truncated: expected ErrBufferTooSmall, got %v", err)
	}

	out.Reset()
	EncodeEvent(out, Event{Kind: EventWake})
	out.Output([]byte{0})
	if _, err := DecodeEvent(out.Result()); !errors.Is(err, ErrBadFrame) {
		t.Errorf("trailing data: expected ErrBadFrame, got %v", err)
	}
}

func TestEventName(t *testing.T) {
	if EventName(EventForced) != "FORCED" {
		t.Errorf("EventName(EventForced) = %s", EventName(EventForced))
	}
	if EventName(200) != "UNKNOWN" {
		t.Errorf("EventName(200) = %s", EventName(200))
	}
}
