package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 30}, got)
	assert.Equal(t, "09:30", got.String())

	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestTimeOfDayOrdering(t *testing.T) {
	a := TimeOfDay{Hour: 9, Minute: 0}
	b := TimeOfDay{Hour: 9, Minute: 30}
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Before(a))
	assert.False(t, a.After(a))
}

func TestOverlap(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
	}
	cases := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"disjoint", at(9, 0), at(10, 0), at(11, 0), at(12, 0), false},
		{"identical", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
		{"partial", at(9, 0), at(11, 0), at(10, 0), at(12, 0), true},
		{"contained", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"touching bounds conflict", at(9, 0), at(11, 0), at(11, 0), at(12, 0), true},
		{"one minute apart", at(9, 0), at(10, 59), at(11, 0), at(12, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlap(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			// The predicate is symmetric in its two intervals.
			assert.Equal(t, tc.want, Overlap(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd))
		})
	}
}

func TestHourBuckets(t *testing.T) {
	t.Run("whole hours", func(t *testing.T) {
		got := HourBuckets(TimeOfDay{Hour: 9}, TimeOfDay{Hour: 11})
		assert.Equal(t, []TimeRange{
			{StartTime: "09", EndTime: "10"},
			{StartTime: "10", EndTime: "11"},
		}, got)
	})

	t.Run("trailing partial hour extends one bucket", func(t *testing.T) {
		got := HourBuckets(TimeOfDay{Hour: 9}, TimeOfDay{Hour: 11, Minute: 30})
		assert.Equal(t, []TimeRange{
			{StartTime: "09", EndTime: "10"},
			{StartTime: "10", EndTime: "11"},
			{StartTime: "11", EndTime: "12"},
		}, got)
	})

	t.Run("empty range", func(t *testing.T) {
		assert.Empty(t, HourBuckets(TimeOfDay{Hour: 9}, TimeOfDay{Hour: 9}))
	})

	t.Run("deterministic", func(t *testing.T) {
		a := HourBuckets(TimeOfDay{Hour: 8}, TimeOfDay{Hour: 20})
		b := HourBuckets(TimeOfDay{Hour: 8}, TimeOfDay{Hour: 20})
		assert.Equal(t, a, b)
	})

	t.Run("last bucket of the day renders as 23-24", func(t *testing.T) {
		got := HourBuckets(TimeOfDay{Hour: 22}, TimeOfDay{Hour: 23, Minute: 30})
		assert.Equal(t, []TimeRange{
			{StartTime: "22", EndTime: "23"},
			{StartTime: "23", EndTime: "24"},
		}, got)
	})

	t.Run("keys are zero padded", func(t *testing.T) {
		got := HourBuckets(TimeOfDay{Hour: 8}, TimeOfDay{Hour: 10})
		require.Len(t, got, 2)
		assert.Equal(t, "08-09", got[0].Key())
		assert.Equal(t, "09-10", got[1].Key())
	})
}
