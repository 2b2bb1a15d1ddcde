package cli

// This file contains the sweep command: baseline probe, grid walk,
// history recording and the final report.

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsmt/cwfriend/glitch"
	"github.com/bsmt/cwfriend/history"
	"github.com/bsmt/cwfriend/model"
	"github.com/bsmt/cwfriend/report"
	"github.com/bsmt/cwfriend/sweep"
	"github.com/bsmt/cwfriend/target"
	"github.com/urfave/cli/v2"
)

func (a *App) sweep(ctx *cli.Context) error {
	startTime := time.Now()

	profile := parseProfile(ctx)
	targetCfg, err := parseTargetConfig(ctx)
	if err != nil {
		return err
	}
	glitchCfg := parseGlitchConfig(ctx)
	sweepCfg := parseSweepConfig(ctx)

	// Generate random 16-byte ID
	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return fmt.Errorf("failed to generate run ID: %w", err)
	}
	runID := hex.EncodeToString(idBytes)

	run := &model.Run{
		ID:        runID,
		Timestamp: startTime,
		Args:      os.Args,
		Sweep: &model.SweepParams{
			OffsetStart:     sweepCfg.Offsets.Start,
			OffsetEnd:       sweepCfg.Offsets.End,
			OffsetStep:      sweepCfg.Offsets.Step,
			WidthStart:      sweepCfg.Widths.Start,
			WidthEnd:        sweepCfg.Widths.End,
			WidthStep:       sweepCfg.Widths.Step,
			Attempts:        sweepCfg.Attempts,
			Delay:           sweepCfg.Delay,
			ClockHz:         profile.ClockHz,
			ExtOnly:         glitchCfg.ExtOnly,
			MinWidthPercent: glitchCfg.MinWidthPercent,
		},
		Target: &model.TargetParams{
			Address:   targetCfg.Address,
			ReadSize:  targetCfg.ReadSize,
			Baud:      profile.Baud,
			Adapter:   ctx.String("adapter"),
			HighPower: profile.HighPower,
			CutPower:  targetCfg.CutPower,
		},
	}

	// Capture working directory
	if cwd, err := os.Getwd(); err == nil {
		run.WorkDir = cwd
	}

	// Create the run directory early so artifacts can be written
	// straight into it.
	var runDir string
	if !ctx.Bool("no-history") {
		root, err := history.Root(ctx.String("history-dir"))
		if err != nil {
			return err
		}
		runDir, err = history.PrepareRunDir(root, run)
		if err != nil {
			return fmt.Errorf("failed to prepare history directory: %w", err)
		}
	}

	var finalErr error
	defer func() {
		run.Duration = time.Since(startTime)
		if finalErr != nil {
			run.ExitCode = 1
		}
		if runDir != "" {
			a.recordRun(runDir, run)
		}
	}()

	dev, closeDev, err := a.openDevice(ctx, profile)
	if err != nil {
		finalErr = err
		return err
	}
	defer closeDev()

	tgt, err := target.New(dev, dev, a.logger, targetCfg)
	if err != nil {
		finalErr = err
		return err
	}
	calc, err := glitch.New(dev, a.logger, glitchCfg)
	if err != nil {
		finalErr = err
		return err
	}
	engine, err := sweep.New(dev, calc, tgt, a.logger, sweepCfg)
	if err != nil {
		finalErr = err
		return err
	}

	if !ctx.Bool("skip-check") {
		status, err := tgt.CheckProtection()
		if err != nil {
			finalErr = fmt.Errorf("baseline check failed: %w", err)
			return finalErr
		}
		a.logger.Info().
			Str("bootloader", fmt.Sprintf("%d.%d", status.Major, status.Minor)).
			Bool("protected", status.Protected).
			Msg("Baseline established")
		if !status.Protected {
			fmt.Println("Readout protection is already disabled; nothing to glitch.")
			return nil
		}
	}

	// Surface hits as they land; the full grid comes at the end.
	engine.OnPoint = func(rec model.TrialRecord) {
		if rec.Outcome >= model.OutcomeOdd {
			a.logger.Info().
				Float64("offset", rec.Offset).
				Float64("width", rec.Width).
				Str("outcome", rec.Outcome.String()).
				Msg("Hit")
		}
	}

	// Interrupts land between trials, never mid-trial.
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, runErr := engine.Run(sigCtx)

	run.Records = records
	run.Tally = report.Tally(records)
	run.Cancelled = errors.Is(runErr, context.Canceled)
	if runErr != nil && !run.Cancelled {
		finalErr = runErr
	}

	a.printRunReport(run)

	if run.Cancelled {
		a.logger.Info().Int("points", len(records)).Msg("Interrupted; partial results kept")
		return nil
	}
	return runErr
}
