//go:build tinygo && mk22

package main

import (
	"device/arm"
	"runtime/interrupt"

	"ostimer/core"
	"ostimer/mk22"
	"ostimer/protocol"
)

// Heartbeat LED on PTB21: 100 ms on per second
const (
	heartbeatOnMs    = 100
	heartbeatCycleMs = 1000
)

var (
	// osTimer is the kernel OS timer. Its type is fixed at compile time so
	// the interrupt handler calls the FTM0 accessors directly.
	osTimer core.TimerAdapter[mk22.FlexTimer[mk22.MMIO]]

	heartbeat *core.DigitalOut

	// Trace output staging
	traceOutput *protocol.ScratchOutput
	traceEnc    *protocol.Encoder
)

func main() {
	bus := mk22.MMIO{}

	InitClock()
	mk22.EnablePortClocks(bus)
	InitDebugUART()

	core.SetDebugWriter(DebugPrintln)

	// OS timer on FTM0. Init enables FTM0_IRQn in the NVIC; the handler
	// only has to be bound.
	osTimer.Init(mk22.NewFlexTimer0(bus))
	interrupt.New(int(mk22.FTM0_IRQn), func(interrupt.Interrupt) {
		core.ServiceInterrupt(&osTimer)
	})
	core.SetContextSwitchHook(func() {
		mk22.RequestContextSwitch(bus)
	})
	core.RegisterOSTimer(&osTimer)
	core.InitSleepQueue()

	core.DebugPrintln("[BOOT] OS timer at " + utoa(uint64(osTimer.Frequency())) + " Hz")

	core.SetGPIODriver(mk22.NewGPIODriver(bus))
	var err error
	heartbeat, err = core.NewDigitalOut(mk22.PinNumber(mk22.PortB, 21), false)
	if err != nil {
		core.DebugPrintln("[BOOT] heartbeat pin: " + err.Error())
	} else {
		tc := osTimer.Conversion()
		heartbeat.Toggle(osTimer.GetTime()+tc.TicksFromUS(1000),
			tc.TicksFromUS(heartbeatOnMs*1000), tc.TicksFromUS(heartbeatCycleMs*1000))
	}

	traceOutput = protocol.NewScratchOutput()
	traceEnc = protocol.NewEncoder(traceOutput)

	// Main loop: ship trace events, sleep until the next interrupt
	for {
		traceOutput.Reset()
		if core.FlushTrace(traceEnc) > 0 {
			WriteTrace(traceOutput.Result())
		}
		arm.Asm("wfi")
	}
}

func utoa(n uint64) string {
	var buf [20]byte
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return string(buf[i:])
}
