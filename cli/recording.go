package cli

// This file contains run recording: the records artifact and run
// metadata written into the history directory, and the report printed
// after a sweep or view.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bsmt/cwfriend/history"
	"github.com/bsmt/cwfriend/model"
	"github.com/bsmt/cwfriend/report"
)

// recordRun writes records.csv and run.json into runDir. Recording
// failures never fail the run itself.
func (a *App) recordRun(runDir string, run *model.Run) {
	if len(run.Records) > 0 {
		if err := a.writeRecordsCSV(runDir, run); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to write records.csv")
		}
	}

	if err := history.WriteRun(runDir, run); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to record run history")
		return
	}

	a.logger.Debug().Str("dir", runDir).Str("id", run.ID).Msg("Recorded run")
}

func (a *App) writeRecordsCSV(runDir string, run *model.Run) error {
	csvPath := filepath.Join(runDir, "records.csv")

	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create records file: %w", err)
	}
	err = report.WriteCSV(f, run.Records)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write records file: %w", err)
	}

	info, err := os.Stat(csvPath)
	if err != nil {
		return err
	}
	run.Artifacts = append(run.Artifacts, model.Artifact{
		Type: model.ArtifactTypeRecordsCSV,
		Size: uint64(info.Size()),
		File: "records.csv",
	})

	return nil
}

// printRunReport renders the grid, tally and repro lines for a run.
func (a *App) printRunReport(run *model.Run) {
	if len(run.Records) == 0 {
		fmt.Println("No grid points were completed")
		return
	}

	tally := run.Tally
	if tally == nil {
		tally = report.Tally(run.Records)
	}

	fmt.Println()
	fmt.Print(report.Grid(run.Records))
	fmt.Printf("\n  %s\n\n", report.Legend)

	for _, name := range []string{"normal", "mute", "odd", "successful"} {
		if n := tally[name]; n > 0 {
			fmt.Printf("%12s: %d\n", name, n)
		}
	}

	hits := report.Hits(run.Records)
	if len(hits) == 0 {
		return
	}

	fmt.Println("\nRe-run interesting points:")
	for _, hit := range hits {
		fmt.Printf("  %s\n", report.BuildSweepCommand(hit, run.Sweep, run.Target))
	}
}
