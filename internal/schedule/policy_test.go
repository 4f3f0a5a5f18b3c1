package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testPolicy() Policy {
	return Policy{
		Open:        TimeOfDay{Hour: 9},
		Close:       TimeOfDay{Hour: 21},
		MinLeadDays: 0,
		MaxLeadDays: 14,
	}
}

func TestPolicyValidate(t *testing.T) {
	p := testPolicy()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	day := func(offset, h, m int) time.Time {
		return time.Date(2026, 3, 2+offset, h, m, 0, 0, time.UTC)
	}

	t.Run("accepts a valid interval", func(t *testing.T) {
		assert.NoError(t, p.Validate(now, day(1, 10, 0), day(1, 12, 0)))
	})

	t.Run("accepts an interval touching the working bounds", func(t *testing.T) {
		assert.NoError(t, p.Validate(now, day(1, 9, 0), day(1, 21, 0)))
	})

	t.Run("rejects start not before end", func(t *testing.T) {
		err := p.Validate(now, day(1, 12, 0), day(1, 10, 0))
		assert.ErrorIs(t, err, ErrInvalidInterval)

		err = p.Validate(now, day(1, 10, 0), day(1, 10, 0))
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("rejects start beyond the planning horizon", func(t *testing.T) {
		err := p.Validate(now, day(15, 10, 0), day(15, 12, 0))
		assert.ErrorIs(t, err, ErrOutsideLeadWindow)
	})

	t.Run("rejects start in the past", func(t *testing.T) {
		err := p.Validate(now, day(-1, 10, 0), day(-1, 12, 0))
		assert.ErrorIs(t, err, ErrOutsideLeadWindow)
	})

	t.Run("rejects start before opening", func(t *testing.T) {
		err := p.Validate(now, day(1, 8, 0), day(1, 10, 0))
		assert.ErrorIs(t, err, ErrOutsideOperatingHours)
	})

	t.Run("rejects end after closing", func(t *testing.T) {
		err := p.Validate(now, day(1, 19, 0), day(1, 22, 0))
		assert.ErrorIs(t, err, ErrOutsideOperatingHours)
	})

	t.Run("interval order outranks operating hours", func(t *testing.T) {
		// Both checks would fail here; the interval check runs first.
		err := p.Validate(now, day(1, 23, 0), day(1, 22, 0))
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("lead window respects MinLeadDays", func(t *testing.T) {
		strict := testPolicy()
		strict.MinLeadDays = 2
		err := strict.Validate(now, day(1, 10, 0), day(1, 12, 0))
		assert.ErrorIs(t, err, ErrOutsideLeadWindow)
		assert.NoError(t, strict.Validate(now, day(3, 10, 0), day(3, 12, 0)))
	})
}
