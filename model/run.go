package model

import "time"

// Run represents a single recorded execution (sweep or check).
// It is persisted as run.json inside the run's history directory.
type Run struct {
	// Unique ID for this run (16 random bytes, hex encoded)
	ID string `json:"id"`
	// Timestamp when the run started
	Timestamp time.Time `json:"timestamp"`
	// Command-line arguments (including command name)
	Args []string `json:"args"`
	// Working directory where the run was started
	WorkDir string `json:"workdir,omitempty"`
	// Exit code of the run
	ExitCode int `json:"exit_code"`
	// Whether the operator interrupted the run before the grid finished
	Cancelled bool `json:"cancelled,omitempty"`
	// Duration of the run
	Duration time.Duration `json:"duration"`
	// Sweep parameters (nil for check-only runs)
	Sweep *SweepParams `json:"sweep,omitempty"`
	// Target addressing parameters
	Target *TargetParams `json:"target,omitempty"`
	// Count of reduced outcomes by name
	Tally map[string]int `json:"tally,omitempty"`
	// Reduced result per visited grid point, in visitation order
	Records []TrialRecord `json:"records,omitempty"`
	// Artifacts generated during this run
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// TrialRecord is the reduced result of all attempts at one grid point.
// Records are append-only: once written they are never mutated.
type TrialRecord struct {
	// Offset from trigger to glitch in seconds
	Offset float64 `json:"offset"`
	// Width of the glitch pulse in seconds
	Width float64 `json:"width"`
	// Reduced outcome over all attempts at this point
	Outcome Outcome `json:"outcome"`
}

// SweepParams records the grid a sweep walked.
type SweepParams struct {
	// Offset axis in seconds (start inclusive, end exclusive)
	OffsetStart float64 `json:"offset_start"`
	OffsetEnd   float64 `json:"offset_end"`
	OffsetStep  float64 `json:"offset_step"`
	// Width axis in seconds (start inclusive, end exclusive)
	WidthStart float64 `json:"width_start"`
	WidthEnd   float64 `json:"width_end"`
	WidthStep  float64 `json:"width_step"`
	// Attempts per grid point
	Attempts int `json:"attempts"`
	// Delay between attempts
	Delay time.Duration `json:"delay"`
	// Glitch module clock frequency in Hz
	ClockHz float64 `json:"clock_hz"`
	// Whether only whole-cycle offsets were used
	ExtOnly bool `json:"ext_only,omitempty"`
	// Narrowest effective glitch width in percent of one clock cycle
	MinWidthPercent float64 `json:"min_width_percent"`
}

// TargetParams records how the target was addressed.
type TargetParams struct {
	// Flash address probed by the read command
	Address uint32 `json:"address"`
	// Number of bytes requested by the read command
	ReadSize int `json:"read_size"`
	// Serial baud rate
	Baud int `json:"baud"`
	// Scope adapter in use (sim or lite)
	Adapter string `json:"adapter,omitempty"`
	// Whether the high-power crowbar was selected
	HighPower bool `json:"high_power,omitempty"`
	// Whether reset was performed by cycling target power
	CutPower bool `json:"cut_power,omitempty"`
}

// ArtifactType identifies the type of artifact
type ArtifactType uint8

const (
	ArtifactTypeRecordsCSV ArtifactType = iota
	ArtifactTypeReport
)

// Artifact represents a file generated during a run
type Artifact struct {
	Type ArtifactType `json:"type"`
	Size uint64       `json:"size"`
	File string       `json:"file"` // relative to run dir
}
