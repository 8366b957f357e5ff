package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDurationGuardsExplicitValues(t *testing.T) {
	start := time.Date(2026, time.March, 9, 7, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	f := func(v float64) *float64 { return &v }

	cases := map[string]struct {
		explicit *float64
		end      *time.Time
		want     *int
	}{
		"explicit wins":              {explicit: f(1799.6), end: &end, want: intPtr(1800)},
		"negative clamps":            {explicit: f(-5), want: intPtr(0)},
		"huge clamps":                {explicit: f(1e300), want: intPtr(MaxDurationSeconds)},
		"NaN falls back to span":     {explicit: f(math.NaN()), end: &end, want: intPtr(1800)},
		"infinite falls back":        {explicit: f(math.Inf(1)), end: &end, want: intPtr(1800)},
		"NaN without end is missing": {explicit: f(math.NaN())},
		"nothing is missing":         {},
	}
	for name, tc := range cases {
		got := ImportedWorkoutRecord{StartedAt: start, EndedAt: tc.end, DurationSeconds: tc.explicit}.Duration()
		require.Equal(t, tc.want, got, name)
	}
}

func intPtr(v int) *int { return &v }
