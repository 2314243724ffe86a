package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"ostimer/protocol"
)

// HistorySize is the number of recent events kept for display
const HistorySize = 64

// Monitor feeds a byte stream through the frame decoder and the checker.
// Stats and Recent may be called from another goroutine while Run is
// active.
type Monitor struct {
	logger  *slog.Logger
	dec     *protocol.Decoder
	checker *Checker

	// OnEvent, if set, is called for every decoded event from Run's
	// goroutine
	OnEvent func(protocol.Event)

	mu      sync.Mutex
	recent  [HistorySize]protocol.Event
	count   uint64
	invalid uint64 // frames with an undecodable payload
}

// New creates a monitor allowing wakes up to maxLate ticks late
func New(logger *slog.Logger, maxLate uint64) *Monitor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Monitor{
		logger:  logger,
		dec:     protocol.NewDecoder(),
		checker: NewChecker(logger, maxLate),
	}
}

// Report combines the checker and decoder counters
type Report struct {
	Stats
	Frames    uint64
	BadFrames uint64
	Lost      uint64
	Invalid   uint64
}

// OK reports whether the trace was clean
func (r Report) OK() bool {
	return r.Violations == 0 && r.BadFrames == 0 && r.Lost == 0 && r.Invalid == 0 && r.Dropped == 0
}

func (r Report) String() string {
	return fmt.Sprintf("events=%d overflows=%d wakes=%d forced=%d max_late=%d violations=%d frames=%d bad=%d lost=%d dropped=%d",
		r.Events, r.Overflows, r.Wakes, r.Forced, r.MaxLate, r.Violations, r.Frames, r.BadFrames, r.Lost, r.Dropped)
}

// Report returns the current counters
func (m *Monitor) Report() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	ds := m.dec.Stats()
	return Report{
		Stats:     m.checker.Stats(),
		Frames:    ds.Frames,
		BadFrames: ds.BadFrames,
		Lost:      ds.Lost,
		Invalid:   m.invalid,
	}
}

// Recent returns up to n of the latest events, oldest first
func (m *Monitor) Recent(n int) []protocol.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n > HistorySize {
		n = HistorySize
	}
	if uint64(n) > m.count {
		n = int(m.count)
	}
	out := make([]protocol.Event, n)
	start := m.count - uint64(n)
	for i := range out {
		out[i] = m.recent[(start+uint64(i))%HistorySize]
	}
	return out
}

// Feed processes a chunk of received bytes
func (m *Monitor) Feed(data []byte) {
	m.mu.Lock()
	m.dec.Write(data)
	var events []protocol.Event
	for {
		frame, ok := m.dec.Next()
		if !ok {
			break
		}
		ev, err := protocol.DecodeEvent(frame.Payload)
		if err != nil {
			m.invalid++
			m.logger.Warn("undecodable frame", "seq", frame.Sequence, "err", err)
			continue
		}
		// Violations are logged and counted by the checker
		_ = m.checker.Check(ev)
		m.recent[m.count%HistorySize] = ev
		m.count++
		events = append(events, ev)
	}
	m.mu.Unlock()

	if m.OnEvent != nil {
		for _, ev := range events {
			m.OnEvent(ev)
		}
	}
}

// Run reads r until EOF, a read error or cancellation of ctx. Reaching EOF
// is not an error.
func (m *Monitor) Run(ctx context.Context, r io.Reader) error {
	return m.run(ctx, r, false)
}

// Follow reads a live stream until a read error or cancellation of ctx. EOF
// only means nothing arrived within the port read timeout.
func (m *Monitor) Follow(ctx context.Context, r io.Reader) error {
	return m.run(ctx, r, true)
}

func (m *Monitor) run(ctx context.Context, r io.Reader, follow bool) error {
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			m.Feed(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			if follow {
				continue
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading trace: %w", err)
		}
	}
}
