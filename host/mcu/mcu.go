// Package mcu manages the connection to a board streaming its OS timer
// trace over the debug UART.
package mcu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ostimer/host/monitor"
	"ostimer/host/serial"
)

// ErrNotConnected is returned when streaming without an open port
var ErrNotConnected = errors.New("mcu: not connected")

// settleTime lets a board that was just reset through DTR start its clock
const settleTime = 100 * time.Millisecond

// MCU represents a connection to a board running the OS timer firmware
type MCU struct {
	logger *slog.Logger

	// Serial port
	port   serial.Port
	device string

	// Raw trace copy, if recording
	record io.Writer

	// Connection state
	connected bool
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU(logger *slog.Logger) *MCU {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &MCU{logger: logger}
}

// Connect connects to a board via serial port
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to a board with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	// Give the board time to initialize (if it just powered on)
	time.Sleep(settleTime)

	m.device = cfg.Device
	return m.Attach(port)
}

// Attach uses an already open port. Bytes buffered before the call are
// discarded since they may hold a partial frame.
func (m *MCU) Attach(port serial.Port) error {
	if err := port.Flush(); err != nil {
		port.Close()
		return fmt.Errorf("flushing stale input: %w", err)
	}
	m.port = port
	m.connected = true
	m.logger.Info("connected", "device", m.device)
	return nil
}

// RecordTo copies every received byte to w. The recording can later be
// replayed through monitor.Run.
func (m *MCU) RecordTo(w io.Writer) {
	m.record = w
}

// Reader returns the trace byte stream, teeing into the recording
func (m *MCU) Reader() io.Reader {
	if m.record == nil {
		return m.port
	}
	return io.TeeReader(m.port, m.record)
}

// Stream feeds the trace into mon until ctx is cancelled or the port fails
func (m *MCU) Stream(ctx context.Context, mon *monitor.Monitor) error {
	if !m.connected {
		return ErrNotConnected
	}
	err := mon.Follow(ctx, m.Reader())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close closes the connection to the board
func (m *MCU) Close() error {
	if !m.connected {
		return nil
	}
	m.connected = false
	if err := m.port.Close(); err != nil {
		return err
	}
	m.logger.Info("disconnected", "device", m.device)
	return nil
}

// IsConnected returns true if connected to a board
func (m *MCU) IsConnected() bool {
	return m.connected
}

// Device returns the serial device path, empty for attached ports
func (m *MCU) Device() string {
	return m.device
}
