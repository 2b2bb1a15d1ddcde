package glitch

import (
	"testing"

	"github.com/bsmt/cwfriend/scope"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// A 1024 Hz clock gives a dyadic period, so desired values built from
// it hit the branch boundaries exactly.
const testClock = 1024.0

func cycles(n float64) float64 {
	return n / testClock
}

func TestComputeOffsetBranches(t *testing.T) {
	tests := []struct {
		name       string
		desired    float64
		wantCoarse int
		wantSub    float64
	}{
		{
			name:       "fraction below half stays positive",
			desired:    cycles(10.25),
			wantCoarse: 10,
			wantSub:    25.0,
		},
		{
			name:       "fraction above half borrows a cycle",
			desired:    cycles(10.75),
			wantCoarse: 11,
			wantSub:    -25.0,
		},
		{
			name:       "fraction exactly half stays on the positive branch",
			desired:    cycles(10.5),
			wantCoarse: 10,
			wantSub:    50.0,
		},
		{
			name:       "whole cycles snap out of the dead band",
			desired:    cycles(10),
			wantCoarse: 10,
			wantSub:    1.0,
		},
		{
			name:       "zero offset",
			desired:    0,
			wantCoarse: 0,
			wantSub:    1.0,
		},
		{
			name:       "tiny positive fraction snaps positive",
			desired:    cycles(10.005),
			wantCoarse: 10,
			wantSub:    1.0,
		},
		{
			name:       "tiny negative fraction snaps negative",
			desired:    cycles(10.9921875),
			wantCoarse: 11,
			wantSub:    -1.0,
		},
		{
			name:       "negative offset above half",
			desired:    cycles(-2.25),
			wantCoarse: -2,
			wantSub:    -25.0,
		},
		{
			name:       "negative offset below half",
			desired:    cycles(-2.75),
			wantCoarse: -3,
			wantSub:    25.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ComputeOffset(tt.desired, testClock, false, DefaultTuning())
			require.NoError(t, err)
			require.Equal(t, tt.wantCoarse, set.Coarse)
			require.InDelta(t, tt.wantSub, set.SubCycle, 1e-9)
		})
	}
}

// Repeated calls with the same input must pick the same branch.
func TestComputeOffsetStable(t *testing.T) {
	for _, desired := range []float64{cycles(10), cycles(10.5)} {
		first, err := ComputeOffset(desired, testClock, false, DefaultTuning())
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := ComputeOffset(desired, testClock, false, DefaultTuning())
			require.NoError(t, err)
			require.Equal(t, first, again)
		}
	}
}

func TestComputeOffsetExtOnly(t *testing.T) {
	set, err := ComputeOffset(cycles(10.75), testClock, true, DefaultTuning())
	require.NoError(t, err)
	require.Equal(t, 10, set.Coarse)
	require.InDelta(t, 1.0, set.SubCycle, 1e-9)
}

func TestComputeOffsetTuning(t *testing.T) {
	tune := Tuning{OffsetDeadband: 2.0, OffsetSnap: 2.5}
	set, err := ComputeOffset(cycles(10.015625), testClock, false, tune)
	require.NoError(t, err)
	require.Equal(t, 10, set.Coarse)
	// 1.5625% is inside the widened band
	require.InDelta(t, 2.5, set.SubCycle, 1e-9)
}

func TestComputeOffsetBadClock(t *testing.T) {
	for _, hz := range []float64{0, -24e6} {
		_, err := ComputeOffset(1e-6, hz, false, DefaultTuning())
		require.Error(t, err)
		require.Contains(t, err.Error(), "clock frequency")
	}
}

func TestConstrainWidthEndpoints(t *testing.T) {
	for _, min := range []float64{0, 10, 35, 49} {
		require.Equal(t, min, ConstrainWidth(0, min))
		require.InDelta(t, WidthCeiling, ConstrainWidth(100, min), 1e-9)
	}
}

func TestConstrainWidthMidpoint(t *testing.T) {
	// 50 on the raw scale lands halfway between floor and ceiling
	require.InDelta(t, 42.4, ConstrainWidth(50, 35), 1e-9)
}

func TestComputeWidthSinglePulse(t *testing.T) {
	set, err := ComputeWidth(cycles(0.25), testClock, 35)
	require.NoError(t, err)
	require.Equal(t, 1, set.Repeat)
	// constrain(25, 35) = 25*0.148 + 35
	require.InDelta(t, 38.7, set.Percent, 1e-9)
}

func TestComputeWidthRepeatCounts(t *testing.T) {
	tests := []struct {
		name       string
		desired    float64
		wantRepeat int
	}{
		{name: "quarter cycle", desired: cycles(0.25), wantRepeat: 1},
		{name: "just under one cycle", desired: cycles(0.9921875), wantRepeat: 1},
		{name: "exactly one cycle", desired: cycles(1), wantRepeat: 1},
		{name: "three and a half cycles", desired: cycles(3.5), wantRepeat: 3},
		{name: "five and seven eighths", desired: cycles(5.875), wantRepeat: 5},
		{name: "negative width is a single pulse", desired: -cycles(0.5), wantRepeat: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ComputeWidth(tt.desired, testClock, 35)
			require.NoError(t, err)
			require.Equal(t, tt.wantRepeat, set.Repeat)
		})
	}
}

// Multi-cycle leftovers go through the constrain mapping twice.
func TestComputeWidthDoubleConstrain(t *testing.T) {
	set, err := ComputeWidth(cycles(3.5), testClock, 35)
	require.NoError(t, err)
	require.Equal(t, 3, set.Repeat)
	once := ConstrainWidth(50, 35)
	require.InDelta(t, ConstrainWidth(once, 35), set.Percent, 1e-9)
	require.Greater(t, set.Percent, 35.0)
	require.Less(t, set.Percent, once)
}

func TestComputeWidthBadConfig(t *testing.T) {
	_, err := ComputeWidth(60e-9, 0, 35)
	require.Error(t, err)
	require.Contains(t, err.Error(), "clock frequency")

	_, err = ComputeWidth(60e-9, testClock, 49.8)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ceiling")
}

func TestCalculatorApplies(t *testing.T) {
	sim := scope.NewSim(testClock)
	calc, err := New(sim, zerolog.Nop(), Config{MinWidthPercent: 35})
	require.NoError(t, err)

	require.NoError(t, calc.ApplyOffset(cycles(10.75)))
	require.Equal(t, 11, sim.LastCoarse)
	require.InDelta(t, -25.0, sim.LastSubCycle, 1e-9)
	require.Equal(t, 1, sim.OffsetWrites)

	require.NoError(t, calc.ApplyWidth(cycles(3.5)))
	require.Equal(t, 3, sim.LastRepeat)
	require.Equal(t, 1, sim.WidthWrites)
}

func TestCalculatorRejectsBadClock(t *testing.T) {
	sim := scope.NewSim(0)
	_, err := New(sim, zerolog.Nop(), Config{MinWidthPercent: 35})
	require.Error(t, err)
	require.Contains(t, err.Error(), "clock frequency")
}

func TestCalculatorRejectsBadMinWidth(t *testing.T) {
	sim := scope.NewSim(testClock)
	_, err := New(sim, zerolog.Nop(), Config{MinWidthPercent: 49.8})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ceiling")
}
