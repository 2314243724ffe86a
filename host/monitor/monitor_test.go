package monitor

import (
	"bytes"
	"context"
	"testing"

	"ostimer/protocol"
)

func encode(events ...protocol.Event) []byte {
	out := protocol.NewScratchOutput()
	enc := protocol.NewEncoder(out)
	for _, e := range events {
		enc.EncodeEvent(e)
	}
	return append([]byte(nil), out.Result()...)
}

func TestRun(t *testing.T) {
	data := encode(
		ev(protocol.EventDeadline, 200, 0),
		ev(protocol.EventOverflow, 65536, 0),
		ev(protocol.EventWake, 65600, 200),
	)

	m := New(nil, DefaultMaxLate)
	var seen int
	m.OnEvent = func(protocol.Event) { seen++ }
	if err := m.Run(context.Background(), bytes.NewReader(data)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	r := m.Report()
	if r.Frames != 3 || r.Events != 3 || seen != 3 {
		t.Errorf("frames=%d events=%d seen=%d, want 3", r.Frames, r.Events, seen)
	}
	if r.Violations != 1 || r.OK() {
		t.Errorf("late wake not reported: %v", r)
	}
}

func TestFeedSplitFrames(t *testing.T) {
	data := encode(
		ev(protocol.EventWake, 10, 10),
		ev(protocol.EventWake, 20, 20),
	)

	m := New(nil, DefaultMaxLate)
	for i := range data {
		m.Feed(data[i : i+1])
	}
	if r := m.Report(); r.Wakes != 2 || !r.OK() {
		t.Errorf("report = %v", r)
	}
}

func TestFeedInvalidPayload(t *testing.T) {
	out := protocol.NewScratchOutput()
	enc := protocol.NewEncoder(out)
	enc.EncodeFrame(func(o protocol.OutputBuffer) {
		protocol.EncodeVLQ(o, 99) // not a trace event
	})

	m := New(nil, DefaultMaxLate)
	m.Feed(out.Result())
	if r := m.Report(); r.Invalid != 1 || r.Events != 0 || r.OK() {
		t.Errorf("report = %+v", r)
	}
}

func TestRecent(t *testing.T) {
	var events []protocol.Event
	for i := uint64(1); i <= HistorySize+6; i++ {
		events = append(events, ev(protocol.EventWake, i*100, i*100))
	}
	m := New(nil, DefaultMaxLate)
	m.Feed(encode(events...))

	got := m.Recent(3)
	if len(got) != 3 {
		t.Fatalf("Recent(3) returned %d events", len(got))
	}
	last := uint64(HistorySize+6) * 100
	if got[0].Time != last-200 || got[2].Time != last {
		t.Errorf("Recent(3) = %v", got)
	}

	if n := len(m.Recent(1000)); n != HistorySize {
		t.Errorf("Recent(1000) returned %d events, want %d", n, HistorySize)
	}
	if n := len(New(nil, 0).Recent(5)); n != 0 {
		t.Errorf("empty monitor returned %d events", n)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := New(nil, DefaultMaxLate)
	if err := m.Run(ctx, bytes.NewReader(encode(ev(protocol.EventWake, 1, 1)))); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
