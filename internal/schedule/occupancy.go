package schedule

import (
	"context"
	"fmt"
	"time"
)

// OccupancyAggregator produces a coarse utilization heat-map of the
// reading room: for each working-hour bucket, the fraction of all
// session-hours in a trailing window that fell into that bucket. It
// performs a read-only scan and tolerates running concurrently with
// writers; the report is statistical, not correctness-critical.
type OccupancyAggregator struct {
	policy     Policy
	store      SessionStore
	windowDays int
	now        func() time.Time // injectable clock
}

// NewOccupancyAggregator constructs an aggregator over the given store.
// windowDays controls how far back the scan reaches (30 by default when
// zero or negative).
func NewOccupancyAggregator(policy Policy, store SessionStore, windowDays int) *OccupancyAggregator {
	if store == nil {
		panic("nil store passed to NewOccupancyAggregator")
	}
	if windowDays <= 0 {
		windowDays = 30
	}
	return &OccupancyAggregator{
		policy:     policy,
		store:      store,
		windowDays: windowDays,
		now:        time.Now,
	}
}

// HourlyRates returns a map from hour-bucket key ("HH-HH") to the
// percentage of session-hours observed in that bucket over the trailing
// window. Every working-hour bucket is present in the result. When the
// window holds no sessions at all, an explicit all-zero map is returned
// instead of dividing by zero.
func (a *OccupancyAggregator) HourlyRates(ctx context.Context) (map[string]float64, error) {
	today := a.now()
	from := today.AddDate(0, 0, -a.windowDays)

	sessions, err := a.store.FindAllInDateRange(ctx, from, today)
	if err != nil {
		return nil, fmt.Errorf("%w: scan sessions: %v", ErrStorage, err)
	}

	counts := make(map[string]float64)
	for _, b := range HourBuckets(a.policy.Open, a.policy.Close) {
		counts[b.Key()] = 0
	}
	for _, s := range sessions {
		spanned := HourBuckets(TimeOfDayOf(s.StartTime), TimeOfDayOf(s.EndTime))
		for _, b := range spanned {
			counts[b.Key()]++
		}
	}

	var sum float64
	for _, v := range counts {
		sum += v
	}
	if sum == 0 {
		return counts, nil
	}
	for k, v := range counts {
		counts[k] = v / sum * 100
	}
	return counts, nil
}
