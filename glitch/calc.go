package glitch

// This file contains the conversion from operator time-domain offsets
// and widths to the discrete settings the glitch generator accepts,
// and the Calculator that writes those settings to the hardware.

import (
	"fmt"
	"math"

	"github.com/bsmt/cwfriend/scope"
	"github.com/rs/zerolog"
)

// WidthCeiling is the widest reliable single-cycle pulse the glitch
// hardware produces, in percent of one clock cycle.
const WidthCeiling = 49.8

// Tuning holds the empirically determined quirks of a hardware
// generation. Sub-cycle excursions inside the near-zero band do not
// register on the glitch output at all.
type Tuning struct {
	// OffsetDeadband bounds the open interval (-OffsetDeadband,
	// +OffsetDeadband) of sub-cycle percentages the hardware cannot
	// produce.
	OffsetDeadband float64
	// OffsetSnap is the magnitude substituted for values inside the
	// deadband, keeping the sign of the branch that produced them.
	OffsetSnap float64
}

// DefaultTuning matches the CW-Lite generation.
func DefaultTuning() Tuning {
	return Tuning{OffsetDeadband: 1.0, OffsetSnap: 1.0}
}

// snap moves a sub-cycle value out of the unreliable near-zero band.
// Zero only arises on the positive branch and snaps positive.
func (t Tuning) snap(subCycle float64) float64 {
	if subCycle <= -t.OffsetDeadband || subCycle >= t.OffsetDeadband {
		return subCycle
	}
	if subCycle < 0 {
		return -t.OffsetSnap
	}
	return t.OffsetSnap
}

// OffsetSetting positions a glitch: whole clock cycles after the
// trigger plus a signed sub-cycle percentage of one cycle. Settings
// are derived fresh per grid point and never stored.
type OffsetSetting struct {
	Coarse   int
	SubCycle float64
}

// WidthSetting shapes a glitch pulse: percent of one clock cycle,
// repeated over consecutive cycles to approximate pulses longer than
// a single cycle.
type WidthSetting struct {
	Percent float64
	Repeat  int
}

// ComputeOffset maps a desired trigger-to-glitch delay in seconds to
// generator units. The whole-cycle count is the floor of the ideal
// cycle count; the leftover fraction becomes a sub-cycle percentage.
// Fractions above one half cannot be expressed as a positive value on
// this hardware, so the coarse count takes one extra cycle and the
// sub-cycle value reaches back negative. The branch rule is strictly
// greater-than one half, so fractions of exactly 0 and 0.5 are
// stable across repeated calls.
//
// With extOnly set the caller's glitch clock free-runs against the
// target and sub-cycle placement is meaningless; the coarse count
// carries the whole offset and the sub-cycle register is pinned at
// the safe snap magnitude.
//
// Negative delays are valid and place the glitch before the trigger
// reference point.
func ComputeOffset(desired, clockHz float64, extOnly bool, tune Tuning) (OffsetSetting, error) {
	if clockHz <= 0 {
		return OffsetSetting{}, fmt.Errorf("clock frequency must be positive, got %g Hz", clockHz)
	}
	period := 1 / clockHz
	ideal := desired / period
	floor := math.Floor(ideal)
	frac := ideal - floor // always in [0,1)

	set := OffsetSetting{Coarse: int(floor)}
	if extOnly {
		set.SubCycle = tune.OffsetSnap
		return set, nil
	}

	if frac > 0.5 {
		set.Coarse++
		set.SubCycle = -(1 - frac) * 100
	} else {
		set.SubCycle = frac * 100
	}
	set.SubCycle = tune.snap(set.SubCycle)
	return set, nil
}

// ComputeWidth maps a desired pulse duration in seconds to generator
// units. Pulses shorter than one clock period become a single
// constrained pulse. Longer pulses repeat over floor(cycles) cycles,
// with the leftover fraction constrained twice in sequence: repeated
// narrow fractional pulses need the same floor as single pulses to
// register on the hardware.
func ComputeWidth(desired, clockHz, minWidthPercent float64) (WidthSetting, error) {
	if clockHz <= 0 {
		return WidthSetting{}, fmt.Errorf("clock frequency must be positive, got %g Hz", clockHz)
	}
	if minWidthPercent >= WidthCeiling {
		return WidthSetting{}, fmt.Errorf("minimum width %g%% must stay below the %g%% ceiling", minWidthPercent, WidthCeiling)
	}
	period := 1 / clockHz
	cycles := desired / period

	if cycles < 1 {
		return WidthSetting{
			Percent: ConstrainWidth(cycles*100, minWidthPercent),
			Repeat:  1,
		}, nil
	}

	repeat := int(math.Floor(cycles))
	frac := cycles - math.Floor(cycles)
	percent := ConstrainWidth(ConstrainWidth(frac*100, minWidthPercent), minWidthPercent)
	return WidthSetting{Percent: percent, Repeat: repeat}, nil
}

// ConstrainWidth linearly rescales a width on a 0-100 scale into
// [min, WidthCeiling]: 0 maps to the ineffective-width floor, 100 to
// the hardware ceiling.
func ConstrainWidth(percent, min float64) float64 {
	return percent*(WidthCeiling-min)/100 + min
}

// Config carries the operator-tunable calculator parameters.
type Config struct {
	// MinWidthPercent is the narrowest effective glitch width in
	// percent of one clock cycle
	MinWidthPercent float64
	// ExtOnly restricts glitch placement to whole clock cycles
	ExtOnly bool
	// Tuning overrides the hardware quirk constants; the zero value
	// selects DefaultTuning
	Tuning Tuning
}

// Calculator converts desired time-domain values and writes the
// resulting settings onto a generator. Writing settings is its only
// side effect; computed glitch state is never read back.
type Calculator struct {
	gen    scope.Generator
	cfg    Config
	logger zerolog.Logger
}

// New validates the configuration against the generator's clock
// before any settings are written.
func New(gen scope.Generator, logger zerolog.Logger, cfg Config) (*Calculator, error) {
	if hz := gen.ClockFrequency(); hz <= 0 {
		return nil, fmt.Errorf("generator clock frequency must be positive, got %g Hz", hz)
	}
	if cfg.MinWidthPercent >= WidthCeiling {
		return nil, fmt.Errorf("minimum width %g%% must stay below the %g%% ceiling", cfg.MinWidthPercent, WidthCeiling)
	}
	if cfg.Tuning == (Tuning{}) {
		cfg.Tuning = DefaultTuning()
	}
	return &Calculator{gen: gen, cfg: cfg, logger: logger}, nil
}

// ApplyOffset computes the settings for a desired trigger-to-glitch
// delay and writes them to the generator.
func (c *Calculator) ApplyOffset(desired float64) error {
	set, err := ComputeOffset(desired, c.gen.ClockFrequency(), c.cfg.ExtOnly, c.cfg.Tuning)
	if err != nil {
		return err
	}
	c.logger.Debug().
		Float64("desired", desired).
		Int("coarse", set.Coarse).
		Float64("sub_cycle", set.SubCycle).
		Msg("Applying offset")
	if err := c.gen.SetOffset(set.Coarse, set.SubCycle); err != nil {
		return fmt.Errorf("failed to apply offset setting: %w", err)
	}
	return nil
}

// ApplyWidth computes the settings for a desired pulse duration and
// writes them to the generator.
func (c *Calculator) ApplyWidth(desired float64) error {
	set, err := ComputeWidth(desired, c.gen.ClockFrequency(), c.cfg.MinWidthPercent)
	if err != nil {
		return err
	}
	c.logger.Debug().
		Float64("desired", desired).
		Float64("percent", set.Percent).
		Int("repeat", set.Repeat).
		Msg("Applying width")
	if err := c.gen.SetWidth(set.Percent, set.Repeat); err != nil {
		return fmt.Errorf("failed to apply width setting: %w", err)
	}
	return nil
}
