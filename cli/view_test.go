package cli

import (
	"testing"
	"time"

	"github.com/bsmt/cwfriend/history"
	"github.com/bsmt/cwfriend/model"
)

func testEntries() []history.Entry {
	// Sorted newest first, the order view hands to findEntry.
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []history.Entry{
		{Run: model.Run{ID: "aa11bb22cc33dd44", Timestamp: base}, FullPath: "/runs/newest"},
		{Run: model.Run{ID: "ab99ee88ff770011", Timestamp: base.Add(-time.Hour)}, FullPath: "/runs/middle"},
		{Run: model.Run{ID: "ff00112233445566", Timestamp: base.Add(-2 * time.Hour)}, FullPath: "/runs/oldest"},
	}
}

func TestFindEntry(t *testing.T) {
	tests := []struct {
		name     string
		arg      string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "index 0 - last run",
			arg:      "0",
			wantPath: "/runs/newest",
		},
		{
			name:     "index -1 - second to last",
			arg:      "-1",
			wantPath: "/runs/middle",
		},
		{
			name:     "index -2 - third to last",
			arg:      "-2",
			wantPath: "/runs/oldest",
		},
		{
			name:    "positive index rejected",
			arg:     "1",
			wantErr: true,
		},
		{
			name:    "index out of range",
			arg:     "-3",
			wantErr: true,
		},
		{
			name:     "hex ID prefix",
			arg:      "ff00",
			wantPath: "/runs/oldest",
		},
		{
			name:     "hex ID prefix is case insensitive",
			arg:      "AB99",
			wantPath: "/runs/middle",
		},
		{
			name:     "ambiguous prefix picks the newest",
			arg:      "a",
			wantPath: "/runs/newest",
		},
		{
			name:    "unknown ID",
			arg:     "deadbeef",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := findEntry(testEntries(), tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("findEntry(%q) expected error, got %v", tt.arg, entry.FullPath)
				}
				return
			}
			if err != nil {
				t.Fatalf("findEntry(%q) unexpected error: %v", tt.arg, err)
			}
			if entry.FullPath != tt.wantPath {
				t.Errorf("findEntry(%q) = %v, want %v", tt.arg, entry.FullPath, tt.wantPath)
			}
		})
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"aa11bb22cc33dd44", "aa11bb22"},
		{"abc", "abc"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := shortID(tt.in); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
