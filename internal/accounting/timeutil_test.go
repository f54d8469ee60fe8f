package accounting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHoursMillisRoundTrip(t *testing.T) {
	assert.Equal(t, int64(3600000), HoursToMillis(1))
	assert.Equal(t, int64(1800000), HoursToMillis(0.5))
	assert.Equal(t, int64(-3600000), HoursToMillis(-1))
	assert.Equal(t, int64(60000), HoursToMillis(GoodwillInHours))
	assert.InDelta(t, 1.5, MillisToHours(HoursToMillis(1.5)), 1e-12)
}

func TestOneMonthLaterAnchoring(t *testing.T) {
	tests := []struct {
		name      string
		from      time.Time
		anchorDay int
		want      time.Time
	}{
		{
			name: "plain month",
			from: time.Date(2021, 3, 15, 10, 30, 0, 0, time.UTC),
			want: time.Date(2021, 4, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "clamped at short month",
			from: time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "leap year february",
			from: time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "anchor restores day after clamp",
			from:      time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC),
			anchorDay: 31,
			want:      time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "year rollover",
			from: time.Date(2021, 12, 10, 0, 0, 0, 0, time.UTC),
			want: time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OneMonthLater(tt.from, tt.anchorDay)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestWithinBoundaries(t *testing.T) {
	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, Within(start, start, expiry), "start is inclusive")
	assert.False(t, Within(expiry, start, expiry), "expiry is exclusive")
	assert.True(t, Within(RightBefore(expiry), start, expiry))
	assert.False(t, Within(RightBefore(start), start, expiry))
	assert.True(t, Within(expiry, start, time.Time{}), "zero expiry is unbounded")
}

func TestEarliestOldest(t *testing.T) {
	a := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, Earliest(a, b).Equal(a))
	assert.True(t, Earliest(time.Time{}, b).Equal(b), "zero counts as no bound")
	assert.True(t, Earliest(a, time.Time{}).Equal(a))
	assert.True(t, Oldest(a, b).Equal(b))
}
