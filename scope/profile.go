package scope

// This file contains the glitch routing profile applied to a capture
// device before a run: clock source, crowbar selection and trigger
// wiring for externally triggered voltage glitching.

import "fmt"

// TriggerMode selects how the glitch module fires once armed.
type TriggerMode uint8

const (
	// TriggerSingle fires once per arm on the external trigger edge.
	TriggerSingle TriggerMode = iota
	// TriggerContinuous refires on every trigger edge while armed.
	// Useful for scoping out timing with a logic analyzer attached.
	TriggerContinuous
)

func (m TriggerMode) String() string {
	switch m {
	case TriggerSingle:
		return "single"
	case TriggerContinuous:
		return "continuous"
	}
	return fmt.Sprintf("TriggerMode(%d)", uint8(m))
}

// GlitchProfile describes the scope-side routing for crowbar voltage
// glitching on an external trigger: glitch clock from the internal
// generator, glitch-only output, armed after scope setup, trigger on
// the external input pin. Timing values derived from ClockHz assume
// the glitch clock free-runs against the target's internal oscillator.
type GlitchProfile struct {
	// ClockHz is the glitch module clock frequency
	ClockHz float64
	// HighPower selects the high-power crowbar FET; the low-power FET
	// otherwise. High power drops the rail harder but risks the target.
	HighPower bool
	// Trigger selects one-shot or continuous firing
	Trigger TriggerMode
	// Baud is the rate for the tunneled target serial port
	Baud int
}

// DefaultProfile returns the routing used for STM32 work: 24 MHz
// glitch clock, low-power crowbar, one glitch per arm, and the ROM
// bootloader's 9600 baud serial.
func DefaultProfile() GlitchProfile {
	return GlitchProfile{
		ClockHz: 24e6,
		Trigger: TriggerSingle,
		Baud:    9600,
	}
}

// Validate reports the first nonsensical profile field.
func (p GlitchProfile) Validate() error {
	if p.ClockHz <= 0 {
		return fmt.Errorf("clock frequency must be positive, got %g Hz", p.ClockHz)
	}
	if p.Baud <= 0 {
		return fmt.Errorf("baud rate must be positive, got %d", p.Baud)
	}
	return nil
}
