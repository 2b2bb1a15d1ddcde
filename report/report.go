package report

// This file contains the record exports: the CSV artifact, the outcome
// tally and the copy-pasteable repro commands for interesting points.

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/bsmt/cwfriend/model"
)

// WriteCSV writes one row per grid point: offset and width in seconds
// at full precision, outcome by name.
func WriteCSV(w io.Writer, records []model.TrialRecord) error {
	if _, err := fmt.Fprintln(w, "offset,width,outcome"); err != nil {
		return err
	}

	for _, rec := range records {
		_, err := fmt.Fprintf(w, "%s,%s,%s\n", formatExact(rec.Offset), formatExact(rec.Width), rec.Outcome)
		if err != nil {
			return err
		}
	}

	return nil
}

// Tally counts reduced outcomes by name.
func Tally(records []model.TrialRecord) map[string]int {
	tally := make(map[string]int)
	for _, rec := range records {
		tally[rec.Outcome.String()]++
	}
	return tally
}

// Hits returns the grid points whose reduced outcome was odd or
// successful, in visitation order.
func Hits(records []model.TrialRecord) []model.TrialRecord {
	var hits []model.TrialRecord
	for _, rec := range records {
		if rec.Outcome >= model.OutcomeOdd {
			hits = append(hits, rec)
		}
	}
	return hits
}

// BuildSweepArgs builds the sweep arguments that revisit a single grid
// point from a recorded run. The point becomes a one-cell range so the
// command reruns exactly that offset and width.
func BuildSweepArgs(rec model.TrialRecord, sweep *model.SweepParams, target *model.TargetParams) []string {
	args := []string{"sweep"}

	args = append(args,
		"--offset-start", formatExact(rec.Offset),
		"--offset-end", formatExact(rec.Offset+sweep.OffsetStep),
		"--offset-step", formatExact(sweep.OffsetStep),
		"--width-start", formatExact(rec.Width),
		"--width-end", formatExact(rec.Width+sweep.WidthStep),
		"--width-step", formatExact(sweep.WidthStep),
		"--attempts", strconv.Itoa(sweep.Attempts),
		"--delay", sweep.Delay.String(),
		"--clock", formatExact(sweep.ClockHz),
		"--min-width", formatExact(sweep.MinWidthPercent),
	)

	if sweep.ExtOnly {
		args = append(args, "--ext-only")
	}

	if target != nil {
		args = append(args,
			"--address", fmt.Sprintf("0x%08X", target.Address),
			"--size", strconv.Itoa(target.ReadSize),
			"--baud", strconv.Itoa(target.Baud),
		)
		if target.Adapter != "" {
			args = append(args, "--adapter", target.Adapter)
		}
		if target.HighPower {
			args = append(args, "--high-power")
		}
		if target.CutPower {
			args = append(args, "--cut-power")
		}
	}

	return args
}

// BuildSweepCommand builds the repro command string for one grid point.
// It reuses BuildSweepArgs and joins the arguments with proper shell
// escaping.
func BuildSweepCommand(rec model.TrialRecord, sweep *model.SweepParams, target *model.TargetParams) string {
	if sweep == nil {
		return ""
	}

	args := BuildSweepArgs(rec, sweep, target)

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, "cwfriend")

	for _, arg := range args {
		parts = append(parts, shellescape.Quote(arg))
	}

	return strings.Join(parts, " ")
}

// formatExact renders a float with enough digits to round-trip.
func formatExact(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
