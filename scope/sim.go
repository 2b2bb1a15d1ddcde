package scope

// This file contains an in-memory capture device for tests and dry
// runs. It records every setting written to it and emulates the
// serial side of a readout-protected STM32 ROM bootloader, so the
// full tool runs end to end with no hardware attached.

import "time"

// Sim implements Device without hardware.
//
// The default serial behavior answers like a protected, unglitched
// STM32: ACK the wake byte, serve the version command, NACK the read
// command, stay quiet on everything else. Set OnWrite to script
// different replies; returning nil bytes leaves the target mute.
type Sim struct {
	// Clock reported by ClockFrequency
	Clock float64

	// OnWrite, when set, maps each written frame to the bytes queued
	// for subsequent reads, replacing the built-in bootloader.
	OnWrite func(frame []byte) []byte

	// Open emulates a target whose readout protection is absent: the
	// read command and the address and size frames that follow it are
	// all acknowledged.
	Open bool

	// ReadProbeReply, when non-nil, replaces the built-in answer to
	// the read command. An empty slice keeps the target quiet.
	ReadProbeReply []byte

	// Last settings written to the generator
	LastCoarse   int
	LastSubCycle float64
	LastPercent  float64
	LastRepeat   int

	// Call counters for inspection in tests
	OffsetWrites int
	WidthWrites  int
	Arms         int
	Teardowns    int
	Flushes      int

	// Recorded reset and power line transitions, in order
	ResetStates []bool
	PowerStates []bool

	// Frames written to the serial side, in order
	Writes [][]byte

	rx    []byte
	awake bool
}

// Bootloader protocol bytes mirrored by the emulation. These are the
// target-side twins of the host constants in the target package.
const (
	simWake byte = 0x7F
	simAck  byte = 0x79
	simNack byte = 0x1F
)

// NewSim returns a simulator whose glitch clock runs at clockHz.
func NewSim(clockHz float64) *Sim {
	return &Sim{Clock: clockHz}
}

func (s *Sim) ClockFrequency() float64 {
	return s.Clock
}

func (s *Sim) SetOffset(coarse int, subCycle float64) error {
	s.LastCoarse = coarse
	s.LastSubCycle = subCycle
	s.OffsetWrites++
	return nil
}

func (s *Sim) SetWidth(percent float64, repeat int) error {
	s.LastPercent = percent
	s.LastRepeat = repeat
	s.WidthWrites++
	return nil
}

func (s *Sim) Arm() error {
	s.Arms++
	return nil
}

func (s *Sim) Teardown() error {
	s.Teardowns++
	return nil
}

func (s *Sim) Write(data []byte) error {
	frame := append([]byte(nil), data...)
	s.Writes = append(s.Writes, frame)

	var reply []byte
	if s.OnWrite != nil {
		reply = s.OnWrite(frame)
	} else {
		reply = s.bootloaderReply(frame)
	}
	s.rx = append(s.rx, reply...)
	return nil
}

// Read serves queued reply bytes without waiting; an exhausted queue
// reads as an empty slice, which callers classify as a mute target.
func (s *Sim) Read(n int, timeout time.Duration) ([]byte, error) {
	if n > len(s.rx) {
		n = len(s.rx)
	}
	out := append([]byte(nil), s.rx[:n]...)
	s.rx = s.rx[n:]
	return out, nil
}

func (s *Sim) Flush() error {
	s.rx = nil
	s.Flushes++
	return nil
}

func (s *Sim) SetReset(asserted bool) error {
	s.ResetStates = append(s.ResetStates, asserted)
	if asserted {
		s.awake = false
		s.rx = nil
	}
	return nil
}

func (s *Sim) SetPower(on bool) error {
	s.PowerStates = append(s.PowerStates, on)
	if !on {
		s.awake = false
		s.rx = nil
	}
	return nil
}

// bootloaderReply emulates a protected STM32 bootloader that never
// experiences a fault: the read probe is always refused.
func (s *Sim) bootloaderReply(frame []byte) []byte {
	if !s.awake {
		if len(frame) == 1 && frame[0] == simWake {
			s.awake = true
			return []byte{simAck}
		}
		return nil
	}
	if len(frame) == 2 && frame[1] == ^frame[0] {
		switch frame[0] {
		case 0x01:
			// get-version: protocol 3.1, two option bytes
			return []byte{simAck, 0x31, 0x00, 0x00, simAck}
		case 0x11:
			if s.ReadProbeReply != nil {
				return append([]byte(nil), s.ReadProbeReply...)
			}
			if s.Open {
				return []byte{simAck}
			}
			// read-memory, refused while protection is on
			return []byte{simNack}
		default:
			// size frame of an in-flight read
			if s.Open {
				return []byte{simAck}
			}
		}
	}
	if s.Open && len(frame) == 5 && frame[4] == frame[0]^frame[1]^frame[2]^frame[3] {
		// address frame with a good checksum
		return []byte{simAck}
	}
	return nil
}
