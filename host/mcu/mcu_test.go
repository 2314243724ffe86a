package mcu

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"ostimer/host/monitor"
	"ostimer/protocol"
)

// fakePort serves a fixed byte stream, then reports read timeouts
type fakePort struct {
	data    *bytes.Reader
	flushed bool
	closed  bool
	onDrain func()
}

func (p *fakePort) Read(b []byte) (int, error) {
	n, err := p.data.Read(b)
	if err == io.EOF && p.onDrain != nil {
		p.onDrain()
	}
	return n, err
}

func (p *fakePort) Write(b []byte) (int, error) { return len(b), nil }
func (p *fakePort) Close() error { p.closed = true; return nil }
func (p *fakePort) Flush() error { p.flushed = true; return nil }

func traceBytes(events ...protocol.Event) []byte {
	out := protocol.NewScratchOutput()
	enc := protocol.NewEncoder(out)
	for _, ev := range events {
		enc.EncodeEvent(ev)
	}
	return out.Result()
}

func TestStreamFeedsMonitor(t *testing.T) {
	data := traceBytes(
		protocol.Event{Kind: protocol.EventDeadline, Time: 100},
		protocol.Event{Kind: protocol.EventWake, Time: 100, Value: 100},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	port := &fakePort{data: bytes.NewReader(data), onDrain: cancel}

	m := NewMCU(nil)
	if err := m.Attach(port); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !port.flushed {
		t.Errorf("stale input not flushed on attach")
	}

	var rec bytes.Buffer
	m.RecordTo(&rec)

	mon := monitor.New(nil, monitor.DefaultMaxLate)
	if err := m.Stream(ctx, mon); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if r := mon.Report(); r.Wakes != 1 || !r.OK() {
		t.Errorf("report = %v", r)
	}
	if !bytes.Equal(rec.Bytes(), data) {
		t.Errorf("recorded %d bytes, want %d", rec.Len(), len(data))
	}

	if err := m.Close(); err != nil || !port.closed || m.IsConnected() {
		t.Errorf("Close: err=%v closed=%v connected=%v", err, port.closed, m.IsConnected())
	}
}

func TestStreamNotConnected(t *testing.T) {
	m := NewMCU(nil)
	err := m.Stream(context.Background(), monitor.New(nil, 0))
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close on unconnected MCU: %v", err)
	}
}
