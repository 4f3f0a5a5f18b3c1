package schedule

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-reading-room/internal/model"
)

// ----- in-memory fakes -----

type fakeUsers map[uint64]model.User

func (f fakeUsers) GetUserByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f[id]
	if !ok {
		return model.User{}, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return u, nil
}

type fakeCatalog map[uint64]model.Book

func (f fakeCatalog) GetBookByID(_ context.Context, id uint64) (model.Book, error) {
	b, ok := f[id]
	if !ok {
		return model.Book{}, fmt.Errorf("%w: book %d", ErrNotFound, id)
	}
	return b, nil
}

// memStore keeps sessions in a slice and evaluates overlap counts with
// the same inclusive-bounds predicate the SQL store uses.
type memStore struct {
	sessions []model.Session
	nextID   uint64
}

func (m *memStore) Transact(_ context.Context, fn func(tx SessionTx) error) error {
	return fn(&memTx{store: m})
}

func (m *memStore) GetSessionByID(_ context.Context, id uint64) (model.Session, error) {
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Session{}, fmt.Errorf("%w: session %d", ErrNotFound, id)
}

func (m *memStore) DeleteSessionByID(_ context.Context, id uint64) error {
	for i, s := range m.sessions {
		if s.ID == id {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: session %d", ErrNotFound, id)
}

func (m *memStore) FindAllByUser(_ context.Context, userID uint64) ([]model.Session, error) {
	var out []model.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) FindByUserAndDate(_ context.Context, userID uint64, date time.Time) ([]model.Session, error) {
	var out []model.Session
	for _, s := range m.sessions {
		if s.UserID == userID && sameDate(s.StartTime, date) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) FindByBookAndDate(_ context.Context, bookID uint64, date time.Time) ([]model.Session, error) {
	var out []model.Session
	for _, s := range m.sessions {
		if holdsBook(s, bookID) && sameDate(s.StartTime, date) {
			out = append(out, s)
		}
	}
	return out, nil
}

// FindAllInDateRange compares calendar dates, not instants, mirroring
// the SQL store's DATE(start_timestamp) BETWEEN comparison.
func (m *memStore) FindAllInDateRange(_ context.Context, from, to time.Time) ([]model.Session, error) {
	var out []model.Session
	for _, s := range m.sessions {
		d := dateOnly(s.StartTime)
		if !d.Before(dateOnly(from)) && !d.After(dateOnly(to)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) FindAll(_ context.Context) ([]model.Session, error) {
	return append([]model.Session(nil), m.sessions...), nil
}

type memTx struct{ store *memStore }

func (t *memTx) CountOverlappingForUser(_ context.Context, userID uint64, start, end time.Time) (int, error) {
	n := 0
	for _, s := range t.store.sessions {
		if s.UserID == userID && Overlap(s.StartTime, s.EndTime, start, end) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) CountOverlappingForBook(_ context.Context, bookID uint64, start, end time.Time) (int, error) {
	n := 0
	for _, s := range t.store.sessions {
		if holdsBook(s, bookID) && Overlap(s.StartTime, s.EndTime, start, end) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertSession(_ context.Context, s *model.Session) error {
	t.store.nextID++
	s.ID = t.store.nextID
	t.store.sessions = append(t.store.sessions, *s)
	return nil
}

func (t *memTx) UpdateSession(_ context.Context, s *model.Session) error {
	for i, cur := range t.store.sessions {
		if cur.ID == s.ID {
			t.store.sessions[i] = *s
			return nil
		}
	}
	return fmt.Errorf("%w: session %d", ErrNotFound, s.ID)
}

func holdsBook(s model.Session, bookID uint64) bool {
	for _, id := range s.BookIDs {
		if id == bookID {
			return true
		}
	}
	return false
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ----- fixtures -----

func newTestManager(t *testing.T) (*Manager, *memStore) {
	t.Helper()
	users := fakeUsers{
		1: {ID: 1, Email: "reader@lib.io", Role: "READER"},
		2: {ID: 2, Email: "other@lib.io", Role: "READER"},
	}
	catalog := fakeCatalog{
		10: {ID: 10, Name: "Clean Architecture", Count: 2},
		11: {ID: 11, Name: "SICP", Count: 1},
	}
	store := &memStore{}
	m := NewManager(testPolicy(), users, catalog, store)
	m.now = func() time.Time {
		return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	}
	return m, store
}

func req(userID uint64, books []uint64, startH, endH int) SessionRequest {
	return SessionRequest{
		UserID:    userID,
		BookIDs:   books,
		StartTime: time.Date(2026, 3, 3, startH, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 3, endH, 0, 0, 0, time.UTC),
	}
}

// ----- tests -----

func TestManagerCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("books a valid session", func(t *testing.T) {
		m, store := newTestManager(t)
		view, err := m.Create(ctx, req(1, []uint64{10, 11}, 10, 12))
		require.NoError(t, err)
		assert.NotZero(t, view.ID)
		assert.Equal(t, "reader@lib.io", view.User.Email)
		assert.Equal(t, []string{"Clean Architecture", "SICP"}, view.Books)
		assert.Len(t, store.sessions, 1)
	})

	t.Run("rejects unknown user and book", func(t *testing.T) {
		m, store := newTestManager(t)
		_, err := m.Create(ctx, req(99, []uint64{10}, 10, 12))
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = m.Create(ctx, req(1, []uint64{99}, 10, 12))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, store.sessions)
	})

	t.Run("rejects a policy violation before any write", func(t *testing.T) {
		m, store := newTestManager(t)
		_, err := m.Create(ctx, req(1, []uint64{10}, 6, 8))
		assert.ErrorIs(t, err, ErrOutsideOperatingHours)
		assert.Empty(t, store.sessions)
	})

	t.Run("rejects a second session overlapping the user's own", func(t *testing.T) {
		m, _ := newTestManager(t)
		_, err := m.Create(ctx, req(1, []uint64{10}, 10, 12))
		require.NoError(t, err)
		_, err = m.Create(ctx, req(1, []uint64{11}, 11, 13))
		assert.ErrorIs(t, err, ErrUserScheduleConflict)
	})

	t.Run("a touching boundary counts as a user conflict", func(t *testing.T) {
		m, _ := newTestManager(t)
		_, err := m.Create(ctx, req(1, []uint64{10}, 10, 11))
		require.NoError(t, err)
		_, err = m.Create(ctx, req(1, []uint64{11}, 11, 12))
		assert.ErrorIs(t, err, ErrUserScheduleConflict)
	})

	t.Run("exhausts book copies", func(t *testing.T) {
		m, _ := newTestManager(t)
		// SICP has a single copy; two readers over the same interval.
		_, err := m.Create(ctx, req(1, []uint64{11}, 10, 12))
		require.NoError(t, err)
		_, err = m.Create(ctx, req(2, []uint64{11}, 10, 12))
		assert.ErrorIs(t, err, ErrBookUnavailable)
	})

	t.Run("a second copy admits a second reader", func(t *testing.T) {
		m, store := newTestManager(t)
		// Clean Architecture has two copies.
		_, err := m.Create(ctx, req(1, []uint64{10}, 10, 12))
		require.NoError(t, err)
		_, err = m.Create(ctx, req(2, []uint64{10}, 10, 12))
		require.NoError(t, err)
		assert.Len(t, store.sessions, 2)
	})
}

func TestManagerUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("moves a session to a free slot", func(t *testing.T) {
		m, store := newTestManager(t)
		view, err := m.Create(ctx, req(1, []uint64{10}, 10, 12))
		require.NoError(t, err)

		updated, err := m.Update(ctx, view.ID, req(1, []uint64{11}, 14, 16))
		require.NoError(t, err)
		assert.Equal(t, view.ID, updated.ID)
		assert.Equal(t, []string{"SICP"}, updated.Books)
		require.Len(t, store.sessions, 1)
		assert.Equal(t, 14, store.sessions[0].StartTime.Hour())
	})

	t.Run("rejects an unknown session", func(t *testing.T) {
		m, _ := newTestManager(t)
		_, err := m.Update(ctx, 42, req(1, []uint64{10}, 10, 12))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("moving onto its own slot is a self conflict", func(t *testing.T) {
		m, _ := newTestManager(t)
		view, err := m.Create(ctx, req(1, []uint64{10}, 10, 12))
		require.NoError(t, err)
		_, err = m.Update(ctx, view.ID, req(1, []uint64{10}, 10, 12))
		assert.ErrorIs(t, err, ErrUserScheduleConflict)
	})
}

func TestManagerDelete(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	view, err := m.Create(ctx, req(1, []uint64{10}, 10, 12))
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, view.ID))
	assert.Empty(t, store.sessions)

	assert.ErrorIs(t, m.Delete(ctx, view.ID), ErrNotFound)
}

func TestManagerListAndFilter(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	// Insert out of chronological order.
	_, err := m.Create(ctx, req(1, []uint64{10}, 14, 16))
	require.NoError(t, err)
	_, err = m.Create(ctx, req(1, []uint64{11}, 9, 11))
	require.NoError(t, err)
	_, err = m.Create(ctx, req(2, []uint64{10}, 14, 16))
	require.NoError(t, err)

	t.Run("list is sorted by start time", func(t *testing.T) {
		views, err := m.ListByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.True(t, views[0].StartTime.Before(views[1].StartTime))
	})

	t.Run("list rejects unknown user", func(t *testing.T) {
		_, err := m.ListByUser(ctx, 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("filter by user", func(t *testing.T) {
		views, err := m.Filter(ctx, SessionFilter{UserID: 2})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, uint64(2), views[0].User.ID)
	})

	t.Run("interval filter keeps strictly inner sessions", func(t *testing.T) {
		from := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
		to := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
		views, err := m.Filter(ctx, SessionFilter{StartTime: &from, EndTime: &to})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, 9, views[0].StartTime.Hour())
	})
}

func TestManagerReservedTimes(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	_, err := m.Create(ctx, req(1, []uint64{11}, 14, 16))
	require.NoError(t, err)
	_, err = m.Create(ctx, req(2, []uint64{10}, 9, 11))
	require.NoError(t, err)
	_, err = m.Create(ctx, req(1, []uint64{10}, 9, 11))
	require.NoError(t, err)

	date := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

	t.Run("per book, sorted, duplicates kept", func(t *testing.T) {
		spans, err := m.ReservedTimesForBook(ctx, 10, date)
		require.NoError(t, err)
		assert.Equal(t, []TimeRange{
			{StartTime: "09:00", EndTime: "11:00"},
			{StartTime: "09:00", EndTime: "11:00"},
		}, spans)
	})

	t.Run("per user", func(t *testing.T) {
		spans, err := m.ReservedTimesForUser(ctx, 1, date)
		require.NoError(t, err)
		assert.Equal(t, []TimeRange{
			{StartTime: "09:00", EndTime: "11:00"},
			{StartTime: "14:00", EndTime: "16:00"},
		}, spans)
	})

	t.Run("unknown references are rejected", func(t *testing.T) {
		_, err := m.ReservedTimesForBook(ctx, 99, date)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = m.ReservedTimesForUser(ctx, 99, date)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
