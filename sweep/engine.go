package sweep

// This file contains the engine that walks the offset-by-width grid,
// repeats trials at each point and reduces them to one record.

import (
	"context"
	"fmt"
	"time"

	"github.com/bsmt/cwfriend/glitch"
	"github.com/bsmt/cwfriend/model"
	"github.com/bsmt/cwfriend/scope"
	"github.com/rs/zerolog"
)

// TrialRunner performs one complete target interaction and classifies
// it. Implementations never return errors: everything that can go
// wrong during a trial is an observation about the target.
type TrialRunner interface {
	RunTrial() model.Outcome
}

// Config describes the sweep grid and its repetition.
type Config struct {
	// Offsets is the trigger-to-glitch axis, walked by the outer loop
	Offsets TimeRange
	// Widths is the pulse duration axis, walked by the inner loop
	Widths TimeRange
	// Attempts is the number of trials per grid point
	Attempts int
	// Delay is the recovery pause after each trial
	Delay time.Duration
}

// Validate names the first invalid parameter.
func (c Config) Validate() error {
	if err := c.Offsets.Validate(); err != nil {
		return fmt.Errorf("offset range: %w", err)
	}
	if err := c.Widths.Validate(); err != nil {
		return fmt.Errorf("width range: %w", err)
	}
	if c.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1, got %d", c.Attempts)
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %s", c.Delay)
	}
	return nil
}

// Engine owns the grid walk. The same physical generator and target
// back every trial, so there is exactly one trial in flight at any
// time and no locking anywhere.
type Engine struct {
	gen    scope.Generator
	calc   *glitch.Calculator
	runner TrialRunner
	cfg    Config
	logger zerolog.Logger

	// OnPoint, when set, observes each record as it is appended.
	OnPoint func(model.TrialRecord)
}

// New validates the grid before any hardware is touched.
func New(gen scope.Generator, calc *glitch.Calculator, runner TrialRunner, logger zerolog.Logger, cfg Config) (*Engine, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator must not be nil")
	}
	if calc == nil {
		return nil, fmt.Errorf("calculator must not be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("trial runner must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		gen:    gen,
		calc:   calc,
		runner: runner,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Run walks the grid offset-major, width-minor and returns one record
// per visited point, in visitation order. Whatever records have
// accumulated are returned on every way out; a cancelled run returns
// them alongside the context's error. The glitch outputs are
// deactivated on every exit path, cancellation included.
//
// Cancellation is honored between trials, never mid-trial: a point
// whose attempts all completed is still reduced and recorded before
// the engine winds down.
func (e *Engine) Run(ctx context.Context) ([]model.TrialRecord, error) {
	offsets := e.cfg.Offsets.Values()
	widths := e.cfg.Widths.Values()

	defer func() {
		if err := e.gen.Teardown(); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to deactivate glitch outputs")
		}
	}()

	e.logger.Info().
		Int("points", len(offsets)*len(widths)).
		Int("attempts", e.cfg.Attempts).
		Dur("delay", e.cfg.Delay).
		Msg("Starting sweep")

	var records []model.TrialRecord
	outcomes := make([]model.Outcome, 0, e.cfg.Attempts)

	for _, offset := range offsets {
		if err := e.calc.ApplyOffset(offset); err != nil {
			return records, err
		}
		for _, width := range widths {
			if err := e.calc.ApplyWidth(width); err != nil {
				return records, err
			}

			outcomes = outcomes[:0]
			var cancelled error
			for attempt := 0; attempt < e.cfg.Attempts; attempt++ {
				if err := ctx.Err(); err != nil {
					cancelled = err
					break
				}
				if err := e.gen.Arm(); err != nil {
					return records, fmt.Errorf("failed to arm generator: %w", err)
				}
				outcomes = append(outcomes, e.runner.RunTrial())
				if e.cfg.Delay > 0 {
					if err := sleepCtx(ctx, e.cfg.Delay); err != nil {
						cancelled = err
						break
					}
				}
			}

			if len(outcomes) == e.cfg.Attempts {
				verdict, err := model.Reduce(outcomes)
				if err != nil {
					return records, err
				}
				record := model.TrialRecord{Offset: offset, Width: width, Outcome: verdict}
				records = append(records, record)
				e.logger.Debug().
					Float64("offset", offset).
					Float64("width", width).
					Stringer("outcome", verdict).
					Msg("Grid point done")
				if e.OnPoint != nil {
					e.OnPoint(record)
				}
			}
			if cancelled != nil {
				e.logger.Info().Int("records", len(records)).Msg("Sweep interrupted")
				return records, cancelled
			}
		}
	}

	e.logger.Info().Int("records", len(records)).Msg("Sweep complete")
	return records, nil
}

// sleepCtx waits for d or for cancellation, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
