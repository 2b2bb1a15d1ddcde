package cli

// This file contains the list command for displaying previous runs.

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bsmt/cwfriend/history"
	"github.com/bsmt/cwfriend/model"
	"github.com/urfave/cli/v2"
)

func (a *App) list(ctx *cli.Context) error {
	filterPath := ctx.String("path")
	limit := ctx.Int("limit")

	root, err := history.Root(ctx.String("history-dir"))
	if err != nil {
		return err
	}

	entries, err := history.LoadEntries(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	// Apply path filter if specified
	var filtered []history.Entry
	for _, entry := range entries {
		if filterPath == "" || strings.Contains(entry.Run.WorkDir, filterPath) {
			filtered = append(filtered, entry)
		}
	}

	if len(filtered) == 0 {
		if filterPath != "" {
			fmt.Printf("No runs found matching path: %s\n", filterPath)
		} else {
			fmt.Println("No runs recorded yet")
		}
		return nil
	}

	// Sort by timestamp (newest first)
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Run.Timestamp.After(filtered[j].Run.Timestamp)
	})

	// Apply limit
	display := filtered
	if limit > 0 && limit < len(display) {
		display = display[:limit]
	}

	fmt.Printf("\n=== Runs (%d total) ===\n\n", len(filtered))

	for _, entry := range display {
		run := entry.Run
		timestamp := run.Timestamp.Format("2006-01-02 15:04:05")
		duration := run.Duration.Round(time.Millisecond)

		status := "✓"
		if run.ExitCode != 0 {
			status = "✗"
		}

		// Format args (skip the program name)
		args := ""
		if len(run.Args) > 1 {
			args = strings.Join(run.Args[1:], " ")
		}

		fmt.Printf("%s  %s  [%s]  exit=%d  id=%s\n", status, timestamp, duration, run.ExitCode, shortID(run.ID))
		if args != "" {
			fmt.Printf("   Args: %s\n", args)
		}
		if run.Cancelled {
			fmt.Println("   Interrupted: yes")
		}
		if run.WorkDir != "" {
			fmt.Printf("   Path: %s\n", run.WorkDir)
		}
		if n := len(run.Records); n > 0 {
			hits := 0
			for _, rec := range run.Records {
				if rec.Outcome >= model.OutcomeOdd {
					hits++
				}
			}
			fmt.Printf("   Points: %d visited, %d interesting\n", n, hits)
		}
		for _, artifact := range run.Artifacts {
			var typeName string
			switch artifact.Type {
			case model.ArtifactTypeRecordsCSV:
				typeName = "records"
			case model.ArtifactTypeReport:
				typeName = "report"
			}
			if typeName != "" {
				fmt.Printf("   %s: %s (%.1f KB)\n", typeName, artifact.File, float64(artifact.Size)/1024)
			}
		}
		fmt.Printf("   %s\n", entry.FullPath)
		fmt.Println()
	}

	fmt.Println("\nView a run: cwfriend view <ID>")

	return nil
}
