package cli

// This file contains helpers that turn parsed flags into the package
// configurations handed to the glitch, target and sweep constructors.

import (
	"fmt"
	"strconv"

	"github.com/bsmt/cwfriend/glitch"
	"github.com/bsmt/cwfriend/scope"
	"github.com/bsmt/cwfriend/sweep"
	"github.com/bsmt/cwfriend/target"
	"github.com/urfave/cli/v2"
)

func parseProfile(ctx *cli.Context) scope.GlitchProfile {
	profile := scope.DefaultProfile()
	profile.ClockHz = ctx.Float64("clock")
	profile.Baud = ctx.Int("baud")
	profile.HighPower = ctx.Bool("high-power")
	return profile
}

func parseTargetConfig(ctx *cli.Context) (target.Config, error) {
	cfg := target.DefaultConfig()

	addr, err := parseAddress(ctx.String("address"))
	if err != nil {
		return cfg, err
	}
	cfg.Address = addr
	cfg.ReadSize = ctx.Int("size")
	cfg.ResetHold = ctx.Duration("reset-hold")
	cfg.ReadTimeout = ctx.Duration("read-timeout")
	cfg.CutPower = ctx.Bool("cut-power")

	// check has no success-phase flag; keep the default there
	if name := ctx.String("success-phase"); name != "" {
		phase, err := target.ParsePhase(name)
		if err != nil {
			return cfg, err
		}
		cfg.SuccessPhase = phase
	}

	return cfg, nil
}

func parseGlitchConfig(ctx *cli.Context) glitch.Config {
	return glitch.Config{
		MinWidthPercent: ctx.Float64("min-width"),
		ExtOnly:         ctx.Bool("ext-only"),
	}
}

func parseSweepConfig(ctx *cli.Context) sweep.Config {
	return sweep.Config{
		Offsets: sweep.TimeRange{
			Start: ctx.Float64("offset-start"),
			End:   ctx.Float64("offset-end"),
			Step:  ctx.Float64("offset-step"),
		},
		Widths: sweep.TimeRange{
			Start: ctx.Float64("width-start"),
			End:   ctx.Float64("width-end"),
			Step:  ctx.Float64("width-step"),
		},
		Attempts: ctx.Int("attempts"),
		Delay:    ctx.Duration("delay"),
	}
}

// parseAddress accepts decimal or 0x-prefixed flash addresses.
func parseAddress(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid flash address %q: %w", s, err)
	}
	return uint32(v), nil
}
