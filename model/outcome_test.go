package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	tests := []struct {
		name string
		in   []Outcome
		want Outcome
	}{
		{
			name: "single normal",
			in:   []Outcome{OutcomeNormal},
			want: OutcomeNormal,
		},
		{
			name: "all equal",
			in:   []Outcome{OutcomeMute, OutcomeMute, OutcomeMute},
			want: OutcomeMute,
		},
		{
			name: "successful wins over normals",
			in:   []Outcome{OutcomeNormal, OutcomeSuccessful, OutcomeNormal},
			want: OutcomeSuccessful,
		},
		{
			name: "odd wins over mute",
			in:   []Outcome{OutcomeMute, OutcomeOdd},
			want: OutcomeOdd,
		},
		{
			name: "mute wins over normal",
			in:   []Outcome{OutcomeNormal, OutcomeNormal, OutcomeMute},
			want: OutcomeMute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reduce(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestReduceEmpty(t *testing.T) {
	_, err := Reduce(nil)
	require.Error(t, err)
}

// Reducing must not depend on the order attempts happened to land in.
func TestReduceCommutative(t *testing.T) {
	perms := [][]Outcome{
		{OutcomeNormal, OutcomeMute, OutcomeOdd},
		{OutcomeOdd, OutcomeNormal, OutcomeMute},
		{OutcomeMute, OutcomeOdd, OutcomeNormal},
	}
	for _, p := range perms {
		got, err := Reduce(p)
		require.NoError(t, err)
		require.Equal(t, OutcomeOdd, got)
	}
}

func TestReduceIdempotent(t *testing.T) {
	for _, o := range []Outcome{OutcomeNormal, OutcomeMute, OutcomeOdd, OutcomeSuccessful} {
		got, err := Reduce([]Outcome{o, o, o})
		require.NoError(t, err)
		require.Equal(t, o, got)
	}
}

func TestOutcomeOrder(t *testing.T) {
	require.True(t, OutcomeNormal < OutcomeMute)
	require.True(t, OutcomeMute < OutcomeOdd)
	require.True(t, OutcomeOdd < OutcomeSuccessful)
}

func TestOutcomeJSONByName(t *testing.T) {
	rec := TrialRecord{Offset: 48.5e-6, Width: 60e-9, Outcome: OutcomeSuccessful}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.Contains(t, string(data), `"successful"`)

	var back TrialRecord
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, rec, back)
}

func TestOutcomeJSONUnknownName(t *testing.T) {
	var o Outcome
	err := json.Unmarshal([]byte(`"glorious"`), &o)
	require.Error(t, err)
}

func TestParseOutcomeRoundTrip(t *testing.T) {
	for _, o := range []Outcome{OutcomeNormal, OutcomeMute, OutcomeOdd, OutcomeSuccessful} {
		parsed, err := ParseOutcome(o.String())
		require.NoError(t, err)
		require.Equal(t, o, parsed)
	}
}
