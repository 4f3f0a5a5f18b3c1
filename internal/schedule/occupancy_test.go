package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-reading-room/internal/model"
)

func newTestAggregator(store *memStore) *OccupancyAggregator {
	a := NewOccupancyAggregator(testPolicy(), store, 30)
	a.now = func() time.Time {
		return time.Date(2026, 3, 30, 12, 0, 0, 0, time.UTC)
	}
	return a
}

func session(id, userID uint64, day, startH, endH int) model.Session {
	return model.Session{
		ID:        id,
		UserID:    userID,
		BookIDs:   []uint64{10},
		StartTime: time.Date(2026, 3, day, startH, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, day, endH, 0, 0, 0, time.UTC),
	}
}

func TestOccupancyHourlyRates(t *testing.T) {
	ctx := context.Background()

	t.Run("empty window yields an explicit all-zero map", func(t *testing.T) {
		a := newTestAggregator(&memStore{})
		rates, err := a.HourlyRates(ctx)
		require.NoError(t, err)

		// One bucket per working hour, 09-10 through 20-21.
		require.Len(t, rates, 12)
		for k, v := range rates {
			assert.Zero(t, v, "bucket %s", k)
		}
		assert.Contains(t, rates, "09-10")
		assert.Contains(t, rates, "20-21")
	})

	t.Run("rates are normalized to percentages", func(t *testing.T) {
		store := &memStore{sessions: []model.Session{
			session(1, 1, 10, 10, 12), // buckets 10-11, 11-12
			session(2, 2, 11, 10, 11), // bucket  10-11
		}}
		a := newTestAggregator(store)
		rates, err := a.HourlyRates(ctx)
		require.NoError(t, err)

		require.Len(t, rates, 12)
		assert.InDelta(t, 200.0/3, rates["10-11"], 1e-9)
		assert.InDelta(t, 100.0/3, rates["11-12"], 1e-9)
		assert.Zero(t, rates["09-10"])

		var sum float64
		for _, v := range rates {
			sum += v
		}
		assert.InDelta(t, 100, sum, 1e-9)
	})

	t.Run("window bounds compare by calendar date", func(t *testing.T) {
		// The scan runs at 12:00 on the window's end day; a session later
		// that afternoon still belongs to the window, as the store's
		// date-based comparison includes the whole end day.
		store := &memStore{sessions: []model.Session{
			session(1, 1, 30, 14, 16), // buckets 14-15, 15-16
		}}
		a := newTestAggregator(store)
		rates, err := a.HourlyRates(ctx)
		require.NoError(t, err)

		assert.InDelta(t, 50, rates["14-15"], 1e-9)
		assert.InDelta(t, 50, rates["15-16"], 1e-9)
	})

	t.Run("sessions outside the window are ignored", func(t *testing.T) {
		store := &memStore{sessions: []model.Session{
			session(1, 1, 10, 10, 12),
			{
				ID: 2, UserID: 1, BookIDs: []uint64{10},
				StartTime: time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC),
				EndTime:   time.Date(2026, 1, 5, 16, 0, 0, 0, time.UTC),
			},
		}}
		a := newTestAggregator(store)
		rates, err := a.HourlyRates(ctx)
		require.NoError(t, err)

		assert.Zero(t, rates["14-15"])
		assert.InDelta(t, 50, rates["10-11"], 1e-9)
		assert.InDelta(t, 50, rates["11-12"], 1e-9)
	})
}
