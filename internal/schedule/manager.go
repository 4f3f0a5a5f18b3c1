package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/library-reading-room/internal/model"
)

// UserDirectory resolves user ids against the identity store. GetUserByID
// returns an error wrapping ErrNotFound when no such user exists.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id uint64) (model.User, error)
}

// Catalog gives the engine read access to book records, in particular the
// per-book copy count. GetBookByID returns an error wrapping ErrNotFound
// when no such book exists.
type Catalog interface {
	GetBookByID(ctx context.Context, id uint64) (model.Book, error)
}

// SessionTx is the view of the session store available inside a single
// transaction. The overlap counts and the subsequent write happen through
// the same SessionTx so concurrent submissions cannot both pass the
// capacity check against stale counts.
type SessionTx interface {
	// CountOverlappingForUser returns how many of the user's sessions
	// overlap [start, end], bounds inclusive.
	CountOverlappingForUser(ctx context.Context, userID uint64, start, end time.Time) (int, error)
	// CountOverlappingForBook returns how many sessions holding the book
	// overlap [start, end], bounds inclusive.
	CountOverlappingForBook(ctx context.Context, bookID uint64, start, end time.Time) (int, error)
	// InsertSession persists a new session and assigns its ID.
	InsertSession(ctx context.Context, s *model.Session) error
	// UpdateSession overwrites the stored session with the given ID
	// wholesale, including its book links.
	UpdateSession(ctx context.Context, s *model.Session) error
}

// SessionStore is the persistence collaborator for sessions. Transact
// runs fn inside one database transaction, committing when fn returns nil
// and rolling back otherwise. Lookup methods return errors wrapping
// ErrNotFound for missing ids.
type SessionStore interface {
	Transact(ctx context.Context, fn func(tx SessionTx) error) error
	GetSessionByID(ctx context.Context, id uint64) (model.Session, error)
	DeleteSessionByID(ctx context.Context, id uint64) error
	FindAllByUser(ctx context.Context, userID uint64) ([]model.Session, error)
	FindByUserAndDate(ctx context.Context, userID uint64, date time.Time) ([]model.Session, error)
	FindByBookAndDate(ctx context.Context, bookID uint64, date time.Time) ([]model.Session, error)
	FindAllInDateRange(ctx context.Context, from, to time.Time) ([]model.Session, error)
	FindAll(ctx context.Context) ([]model.Session, error)
}

// SessionRequest is a proposed session as submitted by a caller. Create
// and Update share this shape; an update replaces every field of the
// stored session, including the owning user.
type SessionRequest struct {
	UserID    uint64    `json:"user_id"`
	BookIDs   []uint64  `json:"book_ids"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// UserView is the user projection embedded in session responses.
type UserView struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SessionView is the display projection of a persisted session, with the
// owning user and book titles resolved.
type SessionView struct {
	ID        uint64    `json:"id"`
	User      UserView  `json:"user"`
	Books     []string  `json:"books"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// SessionFilter narrows the session listing. A zero UserID matches all
// users; both time bounds must be set for the interval filter to apply,
// and it keeps sessions lying strictly inside the window.
type SessionFilter struct {
	UserID    uint64     `json:"user_id"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// Manager orchestrates the session lifecycle: it resolves referenced
// users and books, runs the admission policy, checks capacity conflicts
// inside a store transaction and persists the result. It owns no state
// beyond its collaborators and is safe for concurrent use.
type Manager struct {
	policy  Policy
	users   UserDirectory
	catalog Catalog
	store   SessionStore
	now     func() time.Time // injectable clock
}

// NewManager constructs a Manager. All collaborators must be non-nil.
func NewManager(policy Policy, users UserDirectory, catalog Catalog, store SessionStore) *Manager {
	if users == nil || catalog == nil || store == nil {
		panic("nil collaborator passed to NewManager")
	}
	return &Manager{
		policy:  policy,
		users:   users,
		catalog: catalog,
		store:   store,
		now:     time.Now,
	}
}

// Create admits and persists a new session. The pipeline is resolve →
// validate → conflict-check → insert; the conflict counts and the insert
// run in one transaction so capacity invariants hold under concurrent
// submission. The first failing check aborts before any write.
func (m *Manager) Create(ctx context.Context, req SessionRequest) (*SessionView, error) {
	user, books, err := m.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := m.policy.Validate(m.now(), req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	sess := model.Session{
		UserID:    req.UserID,
		BookIDs:   req.BookIDs,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	err = m.store.Transact(ctx, func(tx SessionTx) error {
		if err := m.checkConflicts(ctx, tx, req, books); err != nil {
			return err
		}
		if err := tx.InsertSession(ctx, &sess); err != nil {
			return fmt.Errorf("%w: insert session: %v", ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newSessionView(sess, user, books), nil
}

// Update replaces the session with the given id wholesale, re-running
// the full admission pipeline. The conflict check does not exclude the
// session's own previous interval, matching creation exactly: moving a
// session onto its current slot is rejected as a self-conflict.
func (m *Manager) Update(ctx context.Context, sessionID uint64, req SessionRequest) (*SessionView, error) {
	user, books, err := m.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := m.store.GetSessionByID(ctx, sessionID); err != nil {
		return nil, err
	}
	if err := m.policy.Validate(m.now(), req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	sess := model.Session{
		ID:        sessionID,
		UserID:    req.UserID,
		BookIDs:   req.BookIDs,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	err = m.store.Transact(ctx, func(tx SessionTx) error {
		if err := m.checkConflicts(ctx, tx, req, books); err != nil {
			return err
		}
		if err := tx.UpdateSession(ctx, &sess); err != nil {
			return fmt.Errorf("%w: update session: %v", ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newSessionView(sess, user, books), nil
}

// Delete removes the session with the given id outright. It requires the
// session to exist and performs no overlap or ownership re-check.
func (m *Manager) Delete(ctx context.Context, sessionID uint64) error {
	if _, err := m.store.GetSessionByID(ctx, sessionID); err != nil {
		return err
	}
	return m.store.DeleteSessionByID(ctx, sessionID)
}

// ListByUser returns all of the user's sessions as display projections,
// sorted ascending by start time.
func (m *Manager) ListByUser(ctx context.Context, userID uint64) ([]SessionView, error) {
	user, err := m.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sessions, err := m.store.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
	return m.views(ctx, sessions, &user)
}

// Filter returns sessions matching the given filter, sorted ascending by
// start time. The interval filter keeps sessions starting after the
// window's start and ending before its end.
func (m *Manager) Filter(ctx context.Context, f SessionFilter) ([]SessionView, error) {
	sessions, err := m.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	matched := sessions[:0]
	for _, s := range sessions {
		if f.UserID != 0 && s.UserID != f.UserID {
			continue
		}
		if f.StartTime != nil && f.EndTime != nil {
			if !s.StartTime.After(*f.StartTime) || !s.EndTime.Before(*f.EndTime) {
				continue
			}
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartTime.Before(matched[j].StartTime)
	})
	return m.views(ctx, matched, nil)
}

// ReservedTimesForBook lists the reserved spans of a book on a calendar
// date as "HH:mm" pairs, sorted ascending by start. Spans of overlapping
// sessions are reported as-is, without deduplication.
func (m *Manager) ReservedTimesForBook(ctx context.Context, bookID uint64, date time.Time) ([]TimeRange, error) {
	if _, err := m.catalog.GetBookByID(ctx, bookID); err != nil {
		return nil, err
	}
	sessions, err := m.store.FindByBookAndDate(ctx, bookID, date)
	if err != nil {
		return nil, err
	}
	return reservedTimes(sessions), nil
}

// ReservedTimesForUser lists the user's reserved spans on a calendar date
// as "HH:mm" pairs, sorted ascending by start.
func (m *Manager) ReservedTimesForUser(ctx context.Context, userID uint64, date time.Time) ([]TimeRange, error) {
	if _, err := m.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	sessions, err := m.store.FindByUserAndDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return reservedTimes(sessions), nil
}

// resolve loads the acting user and every requested book, failing with a
// wrapped ErrNotFound on the first missing reference.
func (m *Manager) resolve(ctx context.Context, req SessionRequest) (model.User, []model.Book, error) {
	user, err := m.users.GetUserByID(ctx, req.UserID)
	if err != nil {
		return model.User{}, nil, err
	}
	books := make([]model.Book, 0, len(req.BookIDs))
	for _, id := range req.BookIDs {
		b, err := m.catalog.GetBookByID(ctx, id)
		if err != nil {
			return model.User{}, nil, err
		}
		books = append(books, b)
	}
	return user, books, nil
}

// checkConflicts runs the capacity checks against live counts inside the
// enclosing transaction: first the user's own schedule, then every
// requested book's remaining copies over the proposed interval.
func (m *Manager) checkConflicts(ctx context.Context, tx SessionTx, req SessionRequest, books []model.Book) error {
	userOverlaps, err := tx.CountOverlappingForUser(ctx, req.UserID, req.StartTime, req.EndTime)
	if err != nil {
		return fmt.Errorf("%w: count user overlaps: %v", ErrStorage, err)
	}
	if userOverlaps > 0 {
		return fmt.Errorf("%w: [%s; %s]", ErrUserScheduleConflict,
			req.StartTime.Format(time.RFC3339), req.EndTime.Format(time.RFC3339))
	}
	for _, b := range books {
		overlaps, err := tx.CountOverlappingForBook(ctx, b.ID, req.StartTime, req.EndTime)
		if err != nil {
			return fmt.Errorf("%w: count book overlaps: %v", ErrStorage, err)
		}
		if b.Count-overlaps <= 0 {
			return fmt.Errorf("%w: %q in [%s; %s]", ErrBookUnavailable, b.Name,
				req.StartTime.Format(time.RFC3339), req.EndTime.Format(time.RFC3339))
		}
	}
	return nil
}

// views maps sessions to display projections. When owner is non-nil it is
// used for every session; otherwise each session's user is resolved.
func (m *Manager) views(ctx context.Context, sessions []model.Session, owner *model.User) ([]SessionView, error) {
	out := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		user := model.User{}
		if owner != nil {
			user = *owner
		} else {
			u, err := m.users.GetUserByID(ctx, s.UserID)
			if err != nil {
				return nil, err
			}
			user = u
		}
		books := make([]model.Book, 0, len(s.BookIDs))
		for _, id := range s.BookIDs {
			b, err := m.catalog.GetBookByID(ctx, id)
			if err != nil {
				return nil, err
			}
			books = append(books, b)
		}
		out = append(out, *newSessionView(s, user, books))
	}
	return out, nil
}

func newSessionView(s model.Session, user model.User, books []model.Book) *SessionView {
	titles := make([]string, 0, len(books))
	for _, b := range books {
		titles = append(titles, b.Name)
	}
	return &SessionView{
		ID:        s.ID,
		User:      UserView{ID: user.ID, Email: user.Email, Role: user.Role},
		Books:     titles,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
	}
}

// reservedTimes formats session spans as clock-time pairs sorted by
// start. Duplicate spans from overlapping sessions are kept.
func reservedTimes(sessions []model.Session) []TimeRange {
	out := make([]TimeRange, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, TimeRange{
			StartTime: s.StartTime.Format("15:04"),
			EndTime:   s.EndTime.Format("15:04"),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}
