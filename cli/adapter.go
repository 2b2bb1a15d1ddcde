package cli

// This file contains adapter selection: the built-in simulator for dry
// runs and the ChipWhisperer-Lite for real hardware.

import (
	"fmt"

	"github.com/bsmt/cwfriend/scope"
	"github.com/urfave/cli/v2"
)

func (a *App) openDevice(ctx *cli.Context, profile scope.GlitchProfile) (scope.Device, func(), error) {
	adapter := ctx.String("adapter")
	switch adapter {
	case "sim":
		sim := scope.NewSim(profile.ClockHz)
		if err := applySimBehavior(sim, ctx.String("sim-behavior")); err != nil {
			return nil, nil, err
		}
		a.logger.Info().
			Str("behavior", ctx.String("sim-behavior")).
			Float64("clock_hz", profile.ClockHz).
			Msg("Using simulated capture device")
		return sim, func() {}, nil

	case "lite":
		lite, err := scope.OpenLite(a.logger, profile)
		if err != nil {
			return nil, nil, err
		}
		return lite, func() {
			if err := lite.Close(); err != nil {
				a.logger.Warn().Err(err).Msg("Failed to close USB device")
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown adapter %q (expected sim or lite)", adapter)
	}
}

// applySimBehavior scripts how the simulated bootloader answers the
// read probe.
func applySimBehavior(sim *scope.Sim, behavior string) error {
	switch behavior {
	case "", "nack":
		// protected target, the default
	case "ack":
		sim.Open = true
	case "mute":
		sim.ReadProbeReply = []byte{}
	case "odd":
		sim.ReadProbeReply = []byte{0x55}
	default:
		return fmt.Errorf("unknown sim behavior %q (expected nack, ack, mute or odd)", behavior)
	}
	return nil
}
