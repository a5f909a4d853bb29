package fitness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveRange(t *testing.T) {
	today := time.Date(2024, time.March, 15, 13, 45, 0, 0, time.UTC)

	cases := []struct {
		period string
		start  time.Time
		end    time.Time
	}{
		{PeriodCurrentMonth, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{PeriodLastMonth, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)},
		{PeriodLast3Months, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{PeriodLastYear, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{PeriodAllTime, time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{"bogus", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		start, end := ResolveRange(tc.period, today)
		require.Equal(t, tc.start, start, "period %s start", tc.period)
		require.Equal(t, tc.end, end, "period %s end", tc.period)
	}
}

func TestResolveRangeLastMonthAcrossYearBoundary(t *testing.T) {
	today := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	start, end := ResolveRange(PeriodLastMonth, today)
	require.Equal(t, time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), end)
}
