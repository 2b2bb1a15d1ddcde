package history

// This file contains the run history store: one directory per sweep
// under .cwfriend, holding run.json plus the artifacts recorded
// alongside it.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bsmt/cwfriend/model"
	"github.com/rs/zerolog"
)

// DirName is the history root created under the working directory.
const DirName = ".cwfriend"

type Entry struct {
	Run      model.Run
	FullPath string
}

// Root resolves the history root: the override when given, otherwise
// .cwfriend under the current working directory.
func Root(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return filepath.Join(cwd, DirName), nil
}

// PrepareRunDir creates the directory a run's artifacts are written
// into: <root>/<timestamp>-<short id>.
func PrepareRunDir(root string, run *model.Run) (string, error) {
	timestamp := run.Timestamp.Format("20060102-150405")
	shortID := run.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	runDir := filepath.Join(root, fmt.Sprintf("%s-%s", timestamp, shortID))

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	return runDir, nil
}

// WriteRun persists the run metadata as run.json inside runDir.
func WriteRun(runDir string, run *model.Run) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run metadata: %w", err)
	}

	if err := os.WriteFile(filepath.Join(runDir, "run.json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write run metadata: %w", err)
	}

	return nil
}

// LoadEntries loads every recorded run under root. A missing root means
// no runs have been recorded yet and yields an empty list.
func LoadEntries(logger zerolog.Logger, root string) ([]Entry, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var entries []Entry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			runPath := filepath.Join(path, "run.json")
			if _, err := os.Stat(runPath); err == nil {
				run, err := parseRunJSON(runPath)
				if err != nil {
					logger.Warn().Err(err).Str("path", runPath).Msg("Failed to parse run.json")
					return nil
				}

				entries = append(entries, Entry{
					Run:      run,
					FullPath: path,
				})
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk history directory: %w", err)
	}

	return entries, nil
}

// parseRunJSON parses a run.json file.
func parseRunJSON(runPath string) (model.Run, error) {
	data, err := os.ReadFile(runPath)
	if err != nil {
		return model.Run{}, err
	}

	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return model.Run{}, err
	}

	return run, nil
}
