package scope

// This file contains the narrow hardware surfaces the rest of the tool
// drives. Everything above this package talks to the capture device
// through these interfaces, never to USB directly.

import "time"

// Generator is the glitch generation surface of a capture device.
// Callers write settings and arm; computed glitch state is never read
// back from the hardware.
type Generator interface {
	// ClockFrequency returns the glitch module clock in Hz.
	ClockFrequency() float64
	// SetOffset positions the glitch relative to the trigger: coarse
	// whole clock cycles plus a signed sub-cycle percentage of one
	// cycle (negative values reach left of the cycle edge).
	SetOffset(coarse int, subCycle float64) error
	// SetWidth shapes the pulse: a percentage of one clock cycle,
	// repeated over repeat consecutive cycles to approximate pulses
	// longer than a single cycle.
	SetWidth(percent float64, repeat int) error
	// Arm readies the generator to fire on the next trigger edge.
	Arm() error
	// Teardown unconditionally disables the glitch outputs. Safe to
	// call at any time, including after a failure or mid-run stop.
	Teardown() error
}

// Transport moves bytes to and from the target's serial port.
type Transport interface {
	Write(data []byte) error
	// Read returns up to n bytes, waiting at most timeout for the
	// first byte. A shorter or empty slice with a nil error means the
	// target went quiet; callers never see a timeout error.
	Read(n int, timeout time.Duration) ([]byte, error)
	// Flush discards buffered input left over from a previous exchange.
	Flush() error
}

// ResetControl drives the target's reset and power lines.
type ResetControl interface {
	// SetReset asserts (true) or releases (false) the reset line.
	SetReset(asserted bool) error
	// SetPower switches the target power rail on or off.
	SetPower(on bool) error
}

// Device is a complete capture setup: glitch generation, target
// serial and target reset in one box.
type Device interface {
	Generator
	Transport
	ResetControl
}
