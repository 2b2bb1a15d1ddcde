package report

import (
	"strings"
	"testing"
	"time"

	"github.com/bsmt/cwfriend/model"
	"github.com/stretchr/testify/require"
)

func gridRecords() []model.TrialRecord {
	return []model.TrialRecord{
		{Offset: 0, Width: 4e-8, Outcome: model.OutcomeNormal},
		{Offset: 0, Width: 5e-8, Outcome: model.OutcomeMute},
		{Offset: 0, Width: 6e-8, Outcome: model.OutcomeOdd},
		{Offset: 1e-8, Width: 4e-8, Outcome: model.OutcomeSuccessful},
		{Offset: 1e-8, Width: 5e-8, Outcome: model.OutcomeNormal},
		{Offset: 1e-8, Width: 6e-8, Outcome: model.OutcomeNormal},
	}
}

func TestGrid(t *testing.T) {
	expected := "     40ns 50ns 60ns\n" +
		"  0s    .    m    o\n" +
		"10ns    !    .    .\n"
	require.Equal(t, expected, Grid(gridRecords()))
}

func TestGridPartialRow(t *testing.T) {
	records := gridRecords()[:4]

	expected := "     40ns 50ns 60ns\n" +
		"  0s    .    m    o\n" +
		"10ns    !          \n"
	require.Equal(t, expected, Grid(records))
}

func TestGridEmpty(t *testing.T) {
	require.Equal(t, "", Grid(nil))
}

func TestFormatSeconds(t *testing.T) {
	cases := []struct {
		value float64
		want  string
	}{
		{0, "0s"},
		{1.5, "1.5s"},
		{0.002, "2ms"},
		{0.001, "1ms"},
		{4.5e-5, "45us"},
		{1.25e-7, "125ns"},
		{-1e-8, "-10ns"},
		{5e-10, "500ps"},
		// Accumulated step noise must not leak into labels.
		{2.0000000000000004e-8, "20ns"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, FormatSeconds(tc.value), "value %g", tc.value)
	}
}

func TestTally(t *testing.T) {
	tally := Tally(gridRecords())
	require.Equal(t, map[string]int{
		"normal":     3,
		"mute":       1,
		"odd":        1,
		"successful": 1,
	}, tally)
}

func TestHits(t *testing.T) {
	hits := Hits(gridRecords())
	require.Len(t, hits, 2)
	require.Equal(t, model.OutcomeOdd, hits[0].Outcome)
	require.Equal(t, model.OutcomeSuccessful, hits[1].Outcome)
	require.Equal(t, 6e-8, hits[0].Width)
}

func TestWriteCSV(t *testing.T) {
	records := []model.TrialRecord{
		{Offset: -0.25, Width: 0.125, Outcome: model.OutcomeOdd},
		{Offset: 0, Width: 0.125, Outcome: model.OutcomeNormal},
	}

	var b strings.Builder
	require.NoError(t, WriteCSV(&b, records))
	require.Equal(t, "offset,width,outcome\n-0.25,0.125,odd\n0,0.125,normal\n", b.String())
}

func TestBuildSweepCommand(t *testing.T) {
	rec := model.TrialRecord{Offset: -0.25, Width: 0.125, Outcome: model.OutcomeSuccessful}
	sweep := &model.SweepParams{
		OffsetStep:      0.0625,
		WidthStep:       0.03125,
		Attempts:        10,
		Delay:           50 * time.Millisecond,
		ClockHz:         1024,
		MinWidthPercent: 35,
	}
	target := &model.TargetParams{
		Address:   0x08000000,
		ReadSize:  4,
		Baud:      115200,
		Adapter:   "lite",
		HighPower: true,
	}

	cmd := BuildSweepCommand(rec, sweep, target)
	require.Equal(t, "cwfriend sweep"+
		" --offset-start -0.25 --offset-end -0.1875 --offset-step 0.0625"+
		" --width-start 0.125 --width-end 0.15625 --width-step 0.03125"+
		" --attempts 10 --delay 50ms --clock 1024 --min-width 35"+
		" --address 0x08000000 --size 4 --baud 115200 --adapter lite --high-power", cmd)
}

func TestBuildSweepCommandNoSweepParams(t *testing.T) {
	require.Equal(t, "", BuildSweepCommand(model.TrialRecord{}, nil, nil))
}
