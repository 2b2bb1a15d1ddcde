package cli

// This file contains the view command for rendering recorded runs.

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bsmt/cwfriend/history"
	"github.com/bsmt/cwfriend/model"
	"github.com/bsmt/cwfriend/report"
	"github.com/urfave/cli/v2"
)

// findEntry resolves a view argument against entries sorted newest
// first: 0 or a negative number counts back from the most recent run,
// anything else matches as a hex ID prefix.
func findEntry(entries []history.Entry, arg string) (*history.Entry, error) {
	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if parsed > 0 {
			return nil, fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, -2 for third-to-last, etc.)", arg)
		}
		index := int(-parsed)
		if index >= len(entries) {
			return nil, fmt.Errorf("index %s out of range (only %d runs recorded)", arg, len(entries))
		}
		return &entries[index], nil
	}

	hexID := strings.ToLower(arg)
	for i := range entries {
		if strings.HasPrefix(strings.ToLower(entries[i].Run.ID), hexID) {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("no run found matching ID: %s", arg)
}

func (a *App) view(ctx *cli.Context) error {
	arg := "0"
	if ctx.Args().Len() > 0 {
		arg = ctx.Args().First()
	}

	root, err := history.Root(ctx.String("history-dir"))
	if err != nil {
		return err
	}

	entries, err := history.LoadEntries(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("no runs recorded yet")
	}

	// Sort by timestamp (newest first)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Run.Timestamp.After(entries[j].Run.Timestamp)
	})

	entry, err := findEntry(entries, arg)
	if err != nil {
		return err
	}

	return a.displayRun(entry)
}

func (a *App) displayRun(entry *history.Entry) error {
	run := entry.Run

	fmt.Printf("=== Run: %s ===\n", shortID(run.ID))
	fmt.Printf("Time: %s\n", run.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Duration: %s\n", run.Duration.Round(time.Millisecond))
	fmt.Printf("Exit Code: %d\n", run.ExitCode)
	if run.Cancelled {
		fmt.Println("Interrupted: yes")
	}
	if run.WorkDir != "" {
		fmt.Printf("Working Dir: %s\n", run.WorkDir)
	}
	if run.Sweep != nil {
		fmt.Printf("Offsets: %s to %s step %s\n",
			report.FormatSeconds(run.Sweep.OffsetStart),
			report.FormatSeconds(run.Sweep.OffsetEnd),
			report.FormatSeconds(run.Sweep.OffsetStep))
		fmt.Printf("Widths: %s to %s step %s\n",
			report.FormatSeconds(run.Sweep.WidthStart),
			report.FormatSeconds(run.Sweep.WidthEnd),
			report.FormatSeconds(run.Sweep.WidthStep))
		fmt.Printf("Attempts: %d per point, %s apart\n", run.Sweep.Attempts, run.Sweep.Delay)
	}
	if run.Target != nil {
		fmt.Printf("Target: address 0x%08X, %d bytes, %d baud", run.Target.Address, run.Target.ReadSize, run.Target.Baud)
		if run.Target.Adapter != "" {
			fmt.Printf(" (%s)", run.Target.Adapter)
		}
		fmt.Println()
	}
	for _, artifact := range run.Artifacts {
		if artifact.Type == model.ArtifactTypeRecordsCSV {
			fmt.Printf("Records: %s (%.1f KB)\n",
				filepath.Join(entry.FullPath, artifact.File), float64(artifact.Size)/1024)
		}
	}

	a.printRunReport(&run)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
