package core

import (
	"ostimer/protocol"
)

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event type codes recorded by the timer
const (
	EvtOverflow = protocol.EventOverflow // wrap accounted
	EvtMatch    = protocol.EventMatch    // compare match acknowledged
	EvtDeadline = protocol.EventDeadline // deadline set
	EvtForced   = protocol.EventForced   // interrupt pended in software
	EvtWake     = protocol.EventWake     // wake callback run
	EvtSetTime  = protocol.EventSetTime  // virtual time moved forward
)

const (
	TraceRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event ring written from the timer interrupt. traceCount is the number
	// of events ever recorded, traceFlushed how many of those were emitted by
	// FlushTrace.
	traceRing    [TraceRingSize]protocol.Event
	traceCount   uint32
	traceFlushed uint32
	traceEnabled bool = true
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// SetTraceEnabled enables or disables event recording
func SetTraceEnabled(enabled bool) {
	traceEnabled = enabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent stores an event in the ring. Non-blocking and allocation free,
// callable from the timer interrupt.
func RecordEvent(kind uint8, time, value uint64) {
	if !traceEnabled {
		return
	}
	state := disableInterrupts()
	traceRing[traceCount%TraceRingSize] = protocol.Event{
		Kind:  kind,
		Time:  time,
		Value: value,
	}
	traceCount++
	restoreInterrupts(state)
}

// TraceEvents copies the buffered events, oldest first, into dst and returns
// how many were copied.
func TraceEvents(dst []protocol.Event) int {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	start := uint32(0)
	if traceCount > TraceRingSize {
		start = traceCount - TraceRingSize
	}
	n := 0
	for i := start; i < traceCount && n < len(dst); i++ {
		dst[n] = traceRing[i%TraceRingSize]
		n++
	}
	return n
}

// FlushTrace encodes every event recorded since the previous flush as one
// frame each. Events overwritten before they could be flushed are reported
// with a single EventDropped frame. Returns the number of frames written.
func FlushTrace(enc *protocol.Encoder) int {
	var pending [TraceRingSize]protocol.Event

	state := disableInterrupts()
	start := traceFlushed
	dropped := uint32(0)
	if traceCount-start > TraceRingSize {
		dropped = traceCount - TraceRingSize - start
		start = traceCount - TraceRingSize
	}
	n := 0
	for i := start; i < traceCount; i++ {
		pending[n] = traceRing[i%TraceRingSize]
		n++
	}
	traceFlushed = traceCount
	restoreInterrupts(state)

	frames := 0
	if dropped != 0 {
		enc.EncodeEvent(protocol.Event{Kind: protocol.EventDropped, Value: uint64(dropped)})
		frames++
	}
	for i := 0; i < n; i++ {
		enc.EncodeEvent(pending[i])
		frames++
	}
	return frames
}

// DumpTraceRing outputs the event ring (call on shutdown/error)
func DumpTraceRing() {
	if debugPrintln == nil {
		return
	}

	var events [TraceRingSize]protocol.Event
	n := TraceEvents(events[:])

	debugPrintln("[TIMER] === Event Ring Dump ===")
	for i := 0; i < n; i++ {
		evt := &events[i]
		debugPrintln("[TIMER] " + protocol.EventName(evt.Kind) +
			" t=" + utoa(evt.Time) +
			" v=" + utoa(evt.Value))
	}
	debugPrintln("[TIMER] === End Dump ===")
}

// ClearTraceRing clears the event ring
func ClearTraceRing() {
	state := disableInterrupts()
	for i := range traceRing {
		traceRing[i] = protocol.Event{}
	}
	traceCount = 0
	traceFlushed = 0
	restoreInterrupts(state)
}

// DebugRegister prints a named register value as hex
func DebugRegister(name string, v uint32) {
	DebugPrintln("[REG] " + name + "=" + hex32(v))
}
