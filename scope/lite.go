package scope

// This file contains the ChipWhisperer-Lite driver. Everything goes
// through vendor control requests on endpoint zero: FPGA registers for
// the clock and glitch blocks, firmware requests for the target UART
// and the I/O routing that carries reset, power and the crowbar FETs.

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/gousb"
	"github.com/rs/zerolog"
)

const (
	// ChipWhisperer-Lite USB identifiers
	VendorNewAE = 0x2B3E
	ProductLite = 0xACE2
)

// Control requests handled by the capture firmware.
const (
	reqMemReadCtrl  = 0x12 // read an FPGA register, address in wValue
	reqMemWriteCtrl = 0x13 // write an FPGA register, address in wValue
	reqUsartData    = 0x1A // target UART data, OUT sends and IN drains
	reqUsartConfig  = 0x1B // target UART control, sub-command in wValue
)

// Target UART sub-commands passed in wValue of reqUsartConfig.
const (
	usartInit    = 0x0010 // payload: baud u32 LE, stop bits, parity, data bits
	usartEnable  = 0x0011
	usartDisable = 0x0012
	usartNumWait = 0x0014 // returns pending RX byte count as u32 LE
)

// UART parity codes used by usartInit.
const (
	usartParityNone = 0
	usartParityOdd  = 1
	usartParityEven = 2
)

// FPGA register addresses.
//
// Register 19 holds the glitch repeat count as a 32-bit little endian
// value. Register 38 is the clock generator control block: source and
// enable bits, multiply, divide, load strobe. Register 51 is the
// glitch settings block, 8 bytes:
//
//	0-1  width as signed DCM phase steps, 256 steps per cycle
//	2-3  sub-cycle offset as signed DCM phase steps
//	4    trigger source and output mode bits, bit 7 arms
//	5-7  coarse offset in whole clock cycles, little endian
//
// Register 55 is the I/O routing block, 8 bytes: target pin functions
// in bytes 0-3, reset and power bits in byte 6, crowbar FET enables in
// byte 7.
const (
	addrGlitchCycles   = 19
	addrAdvClk         = 38
	addrGlitchSettings = 51
	addrIORoute        = 55
)

// Clock generator control bits and reference frequency.
const (
	clkgenReference = 96e6
	clkgenSrcSystem = 0x01
	clkgenEnable    = 0x04
	clkgenLoad      = 0x01
)

// Glitch settings byte 4.
const (
	glitchTriggerSingle     = 0x01
	glitchTriggerContinuous = 0x02
	glitchOutputOnly        = 0x08
	glitchArmBit            = 0x80
)

// I/O routing: pin functions (bytes 0-3), byte 6 and byte 7 bits.
const (
	ioFuncSerialRX = 0x01
	ioFuncSerialTX = 0x02

	ioNRSTDrive   = 0x01 // drive the reset line instead of floating it
	ioNRSTLevel   = 0x02 // driven level, low asserts reset
	ioTargetPower = 0x04

	glitchFETLowPower  = 0x01
	glitchFETHighPower = 0x02
)

// Lite drives a ChipWhisperer-Lite over USB.
type Lite struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	logger  zerolog.Logger
	profile GlitchProfile
	clockHz float64

	// Shadow copies of the write-mostly registers.
	settings [8]byte
	ioroute  [8]byte
}

var _ Device = (*Lite)(nil)

// OpenLite connects to a ChipWhisperer-Lite and programs it for the
// given profile: clock generator, target UART, glitch module and I/O
// routing including the selected crowbar FET.
func OpenLite(logger zerolog.Logger, profile GlitchProfile) (*Lite, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(VendorNewAE), gousb.ID(ProductLite))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("USB error: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("ChipWhisperer-Lite not found (VID:0x%04X PID:0x%04X)", VendorNewAE, ProductLite)
	}

	// Auto-detach matters on Linux where cdc-acm grabs the device.
	if err := dev.SetAutoDetach(true); err != nil {
		logger.Debug().Err(err).Msg("Could not enable kernel driver auto-detach")
	}

	l := &Lite{
		ctx:     ctx,
		dev:     dev,
		logger:  logger,
		profile: profile,
	}

	if err := l.claimInterface(); err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}

	if err := l.program(); err != nil {
		l.Close()
		return nil, err
	}

	serial, _ := dev.SerialNumber()
	logger.Info().
		Str("serial", serial).
		Float64("clock_hz", l.clockHz).
		Msg("Connected to ChipWhisperer-Lite")

	return l, nil
}

// claimInterface finds and claims the vendor interface.
func (l *Lite) claimInterface() error {
	cfg, err := l.dev.Config(1)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	l.cfg = cfg

	// Find the vendor interface (class 0xFF); the CDC interfaces on
	// the same device belong to the kernel.
	vendorIntfNum := -1
	for _, intf := range cfg.Desc.Interfaces {
		if len(intf.AltSettings) > 0 {
			if intf.AltSettings[0].Class == gousb.ClassVendorSpec {
				vendorIntfNum = intf.Number
				break
			}
		}
	}
	if vendorIntfNum == -1 {
		vendorIntfNum = 0
	}

	intf, err := cfg.Interface(vendorIntfNum, 0)
	if err != nil {
		return fmt.Errorf("failed to claim interface %d: %w", vendorIntfNum, err)
	}
	l.intf = intf

	return nil
}

// program pushes the full profile into the device.
func (l *Lite) program() error {
	mul, div := clkgenParams(l.profile.ClockHz)
	l.clockHz = clkgenReference * float64(mul) / float64(div)

	clk := [4]byte{clkgenSrcSystem | clkgenEnable, mul, div, clkgenLoad}
	if err := l.regWrite(addrAdvClk, clk[:]); err != nil {
		return fmt.Errorf("failed to program clock generator: %w", err)
	}

	if err := l.usartSetup(); err != nil {
		return err
	}

	l.settings = [8]byte{}
	switch l.profile.Trigger {
	case TriggerContinuous:
		l.settings[4] = glitchTriggerContinuous
	default:
		l.settings[4] = glitchTriggerSingle
	}
	l.settings[4] |= glitchOutputOnly
	if err := l.regWrite(addrGlitchSettings, l.settings[:]); err != nil {
		return fmt.Errorf("failed to program glitch module: %w", err)
	}

	var cycles [4]byte
	binary.LittleEndian.PutUint32(cycles[:], 1)
	if err := l.regWrite(addrGlitchCycles, cycles[:]); err != nil {
		return fmt.Errorf("failed to program repeat count: %w", err)
	}

	l.ioroute = [8]byte{ioFuncSerialRX, ioFuncSerialTX}
	l.ioroute[6] = ioTargetPower
	if l.profile.HighPower {
		l.ioroute[7] = glitchFETHighPower
	} else {
		l.ioroute[7] = glitchFETLowPower
	}
	if err := l.regWrite(addrIORoute, l.ioroute[:]); err != nil {
		return fmt.Errorf("failed to program I/O routing: %w", err)
	}

	return nil
}

// usartSetup configures the target UART. The STM32 ROM bootloader
// talks 8E1.
func (l *Lite) usartSetup() error {
	cfg := make([]byte, 7)
	binary.LittleEndian.PutUint32(cfg[0:4], uint32(l.profile.Baud))
	cfg[4] = 1
	cfg[5] = usartParityEven
	cfg[6] = 8

	if err := l.ctrlWrite(reqUsartConfig, usartInit, cfg); err != nil {
		return fmt.Errorf("failed to configure target UART: %w", err)
	}
	if err := l.ctrlWrite(reqUsartConfig, usartEnable, nil); err != nil {
		return fmt.Errorf("failed to enable target UART: %w", err)
	}

	return nil
}

// ClockFrequency returns the frequency the clock generator actually
// produces, which is what offset and width math must be based on.
func (l *Lite) ClockFrequency() float64 {
	return l.clockHz
}

// SetOffset programs the trigger-to-glitch delay: whole cycles into
// the coarse counter, the sub-cycle part as a DCM phase shift.
func (l *Lite) SetOffset(coarse int, subCycle float64) error {
	if coarse < 0 || coarse >= 1<<24 {
		return fmt.Errorf("coarse offset %d cycles is outside the device range", coarse)
	}

	binary.LittleEndian.PutUint16(l.settings[2:4], uint16(phaseSteps(subCycle)))
	l.settings[5] = byte(coarse)
	l.settings[6] = byte(coarse >> 8)
	l.settings[7] = byte(coarse >> 16)

	if err := l.regWrite(addrGlitchSettings, l.settings[:]); err != nil {
		return fmt.Errorf("failed to write offset settings: %w", err)
	}
	return nil
}

// SetWidth programs the pulse width phase and the repeat count.
func (l *Lite) SetWidth(percent float64, repeat int) error {
	if repeat < 1 {
		return fmt.Errorf("repeat count %d must be at least 1", repeat)
	}

	binary.LittleEndian.PutUint16(l.settings[0:2], uint16(phaseSteps(percent)))
	if err := l.regWrite(addrGlitchSettings, l.settings[:]); err != nil {
		return fmt.Errorf("failed to write width settings: %w", err)
	}

	var cycles [4]byte
	binary.LittleEndian.PutUint32(cycles[:], uint32(repeat))
	if err := l.regWrite(addrGlitchCycles, cycles[:]); err != nil {
		return fmt.Errorf("failed to write repeat count: %w", err)
	}
	return nil
}

// Arm readies the glitch module for the next trigger edge. The arm bit
// self-clears once the glitch fires.
func (l *Lite) Arm() error {
	buf := l.settings
	buf[4] |= glitchArmBit
	if err := l.regWrite(addrGlitchSettings, buf[:]); err != nil {
		return fmt.Errorf("failed to arm glitch module: %w", err)
	}
	return nil
}

// Teardown disconnects both crowbar FETs so the target rail comes back
// to nominal whatever state the sweep ended in.
func (l *Lite) Teardown() error {
	l.ioroute[7] &^= glitchFETLowPower | glitchFETHighPower
	if err := l.regWrite(addrIORoute, l.ioroute[:]); err != nil {
		return fmt.Errorf("failed to disconnect crowbar FETs: %w", err)
	}
	l.logger.Debug().Msg("Crowbar FETs disconnected")
	return nil
}

// Write sends bytes out the target UART.
func (l *Lite) Write(data []byte) error {
	if err := l.ctrlWrite(reqUsartData, 0, data); err != nil {
		return fmt.Errorf("failed to write to target UART: %w", err)
	}
	return nil
}

// Read returns up to n bytes from the target UART, polling until they
// arrive or the timeout passes. A quiet target yields an empty slice,
// not an error.
func (l *Lite) Read(n int, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		avail, err := l.usartAvailable()
		if err != nil {
			return nil, err
		}

		if avail >= n || time.Now().After(deadline) {
			if avail == 0 {
				return nil, nil
			}
			if avail > n {
				avail = n
			}
			buf := make([]byte, avail)
			got, err := l.ctrlRead(reqUsartData, 0, buf)
			if err != nil {
				return nil, fmt.Errorf("failed to read from target UART: %w", err)
			}
			return buf[:got], nil
		}

		time.Sleep(time.Millisecond)
	}
}

// Flush drains whatever the target UART has buffered.
func (l *Lite) Flush() error {
	for {
		avail, err := l.usartAvailable()
		if err != nil {
			return err
		}
		if avail == 0 {
			return nil
		}
		if avail > 64 {
			avail = 64
		}
		buf := make([]byte, avail)
		if _, err := l.ctrlRead(reqUsartData, 0, buf); err != nil {
			return fmt.Errorf("failed to drain target UART: %w", err)
		}
	}
}

// SetReset drives the target reset line low, or floats it so the
// target's pull-up releases reset.
func (l *Lite) SetReset(asserted bool) error {
	if asserted {
		l.ioroute[6] |= ioNRSTDrive
		l.ioroute[6] &^= ioNRSTLevel
	} else {
		l.ioroute[6] &^= ioNRSTDrive
	}

	if err := l.regWrite(addrIORoute, l.ioroute[:]); err != nil {
		return fmt.Errorf("failed to update reset line: %w", err)
	}
	return nil
}

// SetPower switches the 3.3 V target supply.
func (l *Lite) SetPower(on bool) error {
	if on {
		l.ioroute[6] |= ioTargetPower
	} else {
		l.ioroute[6] &^= ioTargetPower
	}

	if err := l.regWrite(addrIORoute, l.ioroute[:]); err != nil {
		return fmt.Errorf("failed to switch target power: %w", err)
	}
	return nil
}

// Close releases USB resources.
func (l *Lite) Close() error {
	if l.intf != nil {
		l.intf.Close()
		l.intf = nil
	}
	if l.cfg != nil {
		l.cfg.Close()
		l.cfg = nil
	}
	if l.dev != nil {
		l.dev.Close()
		l.dev = nil
	}
	if l.ctx != nil {
		l.ctx.Close()
		l.ctx = nil
	}
	return nil
}

func (l *Lite) usartAvailable() (int, error) {
	var buf [4]byte
	if _, err := l.ctrlRead(reqUsartConfig, usartNumWait, buf[:]); err != nil {
		return 0, fmt.Errorf("failed to query target UART: %w", err)
	}
	return int(binary.LittleEndian.Uint32(buf[:])), nil
}

func (l *Lite) regWrite(addr uint16, data []byte) error {
	return l.ctrlWrite(reqMemWriteCtrl, addr, data)
}

func (l *Lite) ctrlWrite(req uint8, val uint16, data []byte) error {
	_, err := l.dev.Control(gousb.ControlOut|gousb.ControlVendor|gousb.ControlDevice, req, val, 0, data)
	return err
}

func (l *Lite) ctrlRead(req uint8, val uint16, data []byte) (int, error) {
	return l.dev.Control(gousb.ControlIn|gousb.ControlVendor|gousb.ControlDevice, req, val, 0, data)
}

// phaseSteps converts a percent-of-cycle phase to DCM steps. The DCM
// advances 256 steps per cycle and clamps at +/-127.
func phaseSteps(percent float64) int16 {
	steps := int16(math.Round(percent * 256 / 100))
	if steps > 127 {
		steps = 127
	}
	if steps < -127 {
		steps = -127
	}
	return steps
}

// clkgenParams picks multiply and divide values that land the 96 MHz
// reference as close as possible to the requested frequency.
func clkgenParams(hz float64) (mul, div byte) {
	best := math.Inf(1)
	mul, div = 1, 1

	for m := 1; m <= 255; m++ {
		for d := 1; d <= 255; d++ {
			diff := math.Abs(clkgenReference*float64(m)/float64(d) - hz)
			if diff < best {
				best = diff
				mul = byte(m)
				div = byte(d)
			}
		}
	}

	return mul, div
}
